package internal

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// 系統設計問題：
//   如何維護雙人對戰房間的權威狀態，在並發提交下保證
//   「每回合至多一名勝者」，並安全地排程回合自動重開？
//
// 核心挑戰：
//   1. 並發控制：同房兩名玩家可能同時提交答案
//   2. 回合生命週期：等待玩家 → 進行中 → 已分勝負 →（計時器）→ 下一回合
//   3. 計時器競態：延遲重開觸發時房間可能已被銷毀
//
// 設計方案：
//   ✅ 每房一把 RWMutex - 提交、判定、寫入勝者在同一臨界區完成，
//      先搶到鎖的勝利提交成為唯一勝者，之後的提交直接被擋下
//   ✅ 可取消的計時器把手 - 房間持有 *time.Timer，銷毀房間時取消，
//      觸發時再由註冊表確認房間仍存在
//   ✅ 快照廣播 - 對外只交出深拷貝快照，廣播不持有房間鎖

// ErrRoomFull 房間已滿（防禦性檢查；正常流程由配對器避免）
var ErrRoomFull = errors.New("房間已滿")

// maxPlayersPerRoom 每房固定兩人對戰
const maxPlayersPerRoom = 2

// opponentLeftMessage 對手離開時顯示給留守玩家的訊息（客戶端直接顯示）
const opponentLeftMessage = "Opponent left the game."

// PlayerState 玩家在房間內的狀態：各變體的作答進度加上顯示名稱快照
type PlayerState struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Coefficients []any        `json:"coefficients"`
	LastShot     *Shot        `json:"lastShot"`
	Gates        []string     `json:"logicGateState"`
	Vectors      [][2]float64 `json:"vectorVoyageState"`
}

// clone 深拷貝，供快照與勝者記錄使用
func (ps *PlayerState) clone() *PlayerState {
	if ps == nil {
		return nil
	}
	cp := &PlayerState{
		ID:           ps.ID,
		Name:         ps.Name,
		Coefficients: append([]any(nil), ps.Coefficients...),
		Gates:        append([]string(nil), ps.Gates...),
		Vectors:      append([][2]float64(nil), ps.Vectors...),
	}
	if ps.LastShot != nil {
		shot := *ps.LastShot
		cp.LastShot = &shot
	}
	return cp
}

// Room 遊戲房間：配對單位兼回合狀態機
type Room struct {
	ID       string
	GameType GameType

	variant Variant

	mu             sync.RWMutex
	players        map[string]*PlayerState // playerID -> 房內狀態，容量 2
	scores         map[string]int          // playerID -> 房內累計勝場
	active         bool
	winner         *PlayerState
	specialMessage string
	challenge      Challenge
	restartTimer   *time.Timer
}

// NewRoom 創建指定變體的空房間
func NewRoom(id string, gt GameType) (*Room, error) {
	variant, ok := VariantFor(gt)
	if !ok {
		return nil, errors.New("未知的遊戲變體: " + string(gt))
	}
	return &Room{
		ID:       id,
		GameType: gt,
		variant:  variant,
		players:  make(map[string]*PlayerState),
		scores:   make(map[string]int),
	}, nil
}

// AddPlayer 加入玩家並初始化中性的作答狀態與房內計分
func (r *Room) AddPlayer(playerID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) >= maxPlayersPerRoom {
		return ErrRoomFull
	}

	r.players[playerID] = &PlayerState{
		ID:           playerID,
		Name:         name,
		Coefficients: []any{},
		Gates:        []string{},
		Vectors:      [][2]float64{},
	}
	r.scores[playerID] = 0
	return nil
}

// RemoveResult 移除玩家的結果
type RemoveResult struct {
	Removed  bool         // 玩家確實在房內
	Empty    bool         // 移除後房間已空，呼叫端應銷毀房間
	ForceEnd bool         // 進行中的回合因對手離開被強制結束
	Snapshot RoomSnapshot // 移除後的房間快照（Empty 時無意義）
}

// RemovePlayer 移除玩家
//
// 進行中的房間掉到兩人以下時強制結束回合（無勝者、附離開訊息），
// 房間本身保留，讓留守玩家等待新對手。
func (r *Room) RemovePlayer(playerID string) RemoveResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.players[playerID]; !exists {
		return RemoveResult{}
	}

	delete(r.players, playerID)
	delete(r.scores, playerID)

	result := RemoveResult{Removed: true}

	if len(r.players) == 0 {
		r.cancelRestartLocked()
		result.Empty = true
		return result
	}

	if r.active && len(r.players) < maxPlayersPerRoom {
		r.active = false
		r.winner = nil
		r.specialMessage = opponentLeftMessage
		result.ForceEnd = true
	}

	result.Snapshot = r.snapshotLocked()
	return result
}

// StartRound 開始新回合
//
// 僅在滿員（兩人）時生效：房間的 active 不變量是「滿員且勝負未分」，
// 單人房不得被標記為進行中。返回 false 表示未開始。
func (r *Room) StartRound() (RoomSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.players) != maxPlayersPerRoom {
		return RoomSnapshot{}, false
	}

	r.cancelRestartLocked()
	r.challenge = r.variant.NewChallenge()
	for _, ps := range r.players {
		r.variant.ResetSubmission(ps, r.challenge)
	}
	r.active = true
	r.winner = nil
	r.specialMessage = ""

	return r.snapshotLocked(), true
}

// SubmitOutcome 一次提交的處理結果
type SubmitOutcome struct {
	Processed     bool         // 房間狀態允許提交且已記錄
	Snapshot      RoomSnapshot // 記錄提交後、判定前的快照（與廣播順序一致）
	Won           bool
	WinnerName    string
	RoundEndEvent string
	RoundEndData  any
	RejectEvent   string
	RejectData    any
}

// Submit 處理一次作答提交
//
// 記錄、判定與寫入勝者在同一把寫鎖內完成：兩名玩家同時提交正解時，
// 先取得鎖的一方成為唯一勝者，後到的提交因 winner 已定而被忽略。
func (r *Room) Submit(playerID string, payload json.RawMessage) SubmitOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	ps, exists := r.players[playerID]
	if !exists || !r.active || r.winner != nil || r.challenge == nil {
		return SubmitOutcome{}
	}

	// 格式錯誤不中斷流程：狀態保持原樣，照常廣播並當作答錯
	_ = r.variant.ApplySubmission(ps, payload)

	out := SubmitOutcome{
		Processed: true,
		Snapshot:  r.snapshotLocked(),
	}

	if r.variant.Evaluate(ps, r.challenge) {
		r.active = false
		r.winner = ps.clone()
		r.scores[playerID]++
		out.Won = true
		out.WinnerName = ps.Name
		out.RoundEndEvent, out.RoundEndData = r.variant.RoundEndEvent(r.winner, r.challenge)
	} else {
		out.RejectEvent, out.RejectData = r.variant.RejectEvent()
	}

	return out
}

// ResetCoefficients 化學房專用：把玩家的係數全部重置為 1，不做勝負判定
func (r *Room) ResetCoefficients(playerID string) (RoomSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ps, exists := r.players[playerID]
	if !exists || !r.active || r.winner != nil {
		return RoomSnapshot{}, false
	}

	c, ok := r.challenge.(*ChemicalChallenge)
	if !ok {
		return RoomSnapshot{}, false
	}

	ps.Coefficients = neutralCoefficients(len(c.Target))
	return r.snapshotLocked(), true
}

// RenamePlayer 更新房內的顯示名稱快照
func (r *Room) RenamePlayer(playerID, name string) (RoomSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ps, exists := r.players[playerID]
	if !exists {
		return RoomSnapshot{}, false
	}

	ps.Name = name
	return r.snapshotLocked(), true
}

// ScheduleRestart 排程延遲重開
//
// 計時器把手由房間持有，再次排程會先取消前一個；
// fn 觸發時必須自行透過註冊表確認房間仍存在。
func (r *Room) ScheduleRestart(delay time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelRestartLocked()
	r.restartTimer = time.AfterFunc(delay, fn)
}

// CancelRestart 取消尚未觸發的延遲重開（銷毀房間前必須呼叫）
func (r *Room) CancelRestart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelRestartLocked()
}

func (r *Room) cancelRestartLocked() {
	if r.restartTimer != nil {
		r.restartTimer.Stop()
		r.restartTimer = nil
	}
}

// PlayerCount 房內人數
func (r *Room) PlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// IsActive 回合是否進行中
func (r *Room) IsActive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// ---------------------------------------------------------------------------
// 快照
// ---------------------------------------------------------------------------

// ChemicalRoomState 快照中化學房的題目區塊
type ChemicalRoomState struct {
	Equation *ChemicalChallenge `json:"equation"`
}

// ProjectileRoomState 快照中拋體房的題目區塊
type ProjectileRoomState struct {
	Target Point `json:"target"`
}

// LogicGateRoomState 快照中邏輯閘房的題目區塊
type LogicGateRoomState struct {
	Challenge *LogicGateChallenge `json:"challenge"`
}

// VectorRoomState 快照中向量房的題目區塊
type VectorRoomState struct {
	Challenge *VectorChallenge `json:"challenge"`
}

// RoomSnapshot 房間的完整狀態快照（gameUpdate 事件的載荷）
//
// 只有當前變體的題目區塊會被填入，其餘保持 nil。
type RoomSnapshot struct {
	RoomID         string                  `json:"roomId"`
	GameType       GameType                `json:"gameType"`
	Players        map[string]*PlayerState `json:"players"`
	PlayerCount    int                     `json:"playerCount"`
	IsGameActive   bool                    `json:"isGameActive"`
	Winner         *PlayerState            `json:"winner"`
	SpecialMessage string                  `json:"specialMessage,omitempty"`
	Scores         map[string]int          `json:"scores"`
	Chemical       *ChemicalRoomState      `json:"chemical,omitempty"`
	Projectile     *ProjectileRoomState    `json:"projectile,omitempty"`
	LogicGate      *LogicGateRoomState     `json:"logicGate,omitempty"`
	VectorVoyage   *VectorRoomState        `json:"vectorVoyage,omitempty"`
}

// MemberIDs 快照成員的連線 ID 列表（廣播對象）
func (s RoomSnapshot) MemberIDs() []string {
	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot 取得當前狀態的深拷貝快照
func (r *Room) Snapshot() RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// snapshotLocked 需要持有鎖（讀或寫）
func (r *Room) snapshotLocked() RoomSnapshot {
	players := make(map[string]*PlayerState, len(r.players))
	for id, ps := range r.players {
		players[id] = ps.clone()
	}
	scores := make(map[string]int, len(r.scores))
	for id, s := range r.scores {
		scores[id] = s
	}

	snap := RoomSnapshot{
		RoomID:         r.ID,
		GameType:       r.GameType,
		Players:        players,
		PlayerCount:    len(r.players),
		IsGameActive:   r.active,
		Winner:         r.winner.clone(),
		SpecialMessage: r.specialMessage,
		Scores:         scores,
	}
	if r.challenge != nil {
		r.challenge.attach(&snap)
	}
	return snap
}

// LobbySummary 大廳顯示用的房間摘要
type LobbySummary struct {
	RoomID       string   `json:"roomId"`
	GameType     GameType `json:"gameType"`
	PlayerCount  int      `json:"playerCount"`
	IsGameActive bool     `json:"isGameActive"`
}

// Summary 取得大廳摘要（按需重算，不做快取）
func (r *Room) Summary() LobbySummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return LobbySummary{
		RoomID:       r.ID,
		GameType:     r.GameType,
		PlayerCount:  len(r.players),
		IsGameActive: r.active,
	}
}
