package internal

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// 系統設計問題：
//   如何把「配對進房、回合推進、勝負結算、排行榜記帳、狀態廣播」
//   串成一條可並發執行又不互相踩踏的控制流？
//
// 核心挑戰：
//   1. 配對競態：兩個玩家同時要求加入同一變體，不能擠進同一個
//      只剩一個空位的房間，也不能各開一房浪費配對機會
//   2. 一致性：玩家目錄、房間成員、排行榜三張表必須同步演進
//   3. 延遲重開：計時器觸發時房間可能已被銷毀
//
// 設計方案：
//   ✅ 註冊表寫鎖涵蓋「找房＋進房」- 配對是單一臨界區，不會超員
//   ✅ 鎖序固定 - Manager 鎖在外、Room 鎖在內，目錄與排行榜為葉鎖
//   ✅ 廣播在鎖外 - 臨界區內只產生快照，發布一律不持鎖
//
// 錯誤處理原則：
//   - 非法狀態事件（對不存在／未開始的房間提交、在房間內重複加入）
//     靜默忽略，僅記 Debug——客戶端理應擋住，但服務端不信任它
//   - 格式錯誤的提交視為普通答錯，絕不拋出
//   - 一致性異常（重開計時器打到已銷毀的房間）防禦性跳過並記 Warn
//   任何錯誤都不致命：沒有持久化可污染，放棄該操作即回到已知良好狀態。

// Manager 頂層協調者：房間註冊表／配對器 + 連線目錄 + 回合生命週期
type Manager struct {
	cfg         *Config
	logger      *slog.Logger
	sessions    *SessionDirectory
	leaderboard *Leaderboard
	broadcaster Broadcaster

	mu    sync.RWMutex
	rooms map[string]*Room // roomID -> Room，註冊表獨佔持有所有房間
}

// NewManager 創建協調者
//
// 廣播閘道須在對外服務前以 SetBroadcaster 綁定；
// 未綁定時發布落入無操作的預設實作（便於單元測試逐步組裝）。
func NewManager(cfg *Config, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:         cfg,
		logger:      logger,
		sessions:    NewSessionDirectory(),
		leaderboard: NewLeaderboard(),
		broadcaster: nopBroadcaster{},
		rooms:       make(map[string]*Room),
	}
}

// SetBroadcaster 綁定對外發布閘道
func (m *Manager) SetBroadcaster(b Broadcaster) {
	m.broadcaster = b
}

// Connect 新連線：登記玩家並讓所有人（含新連線）看到最新大廳與排行榜
func (m *Manager) Connect(connID string) {
	p := m.sessions.Register(connID)
	m.logger.Info("玩家連線", "player_id", connID, "name", p.Name)

	m.broadcastLobby()
	m.broadcastLeaderboard()
}

// Disconnect 連線中斷：先按離房處理，再移除目錄項
func (m *Manager) Disconnect(connID string) {
	m.leaveRoom(connID, false)
	m.sessions.Remove(connID)
	m.logger.Info("玩家斷線", "player_id", connID)

	m.broadcastLobby()
}

// PlayerInfo 私下回覆玩家自己的身分資料
func (m *Manager) PlayerInfo(connID string) {
	p, ok := m.sessions.Get(connID)
	if !ok {
		return
	}
	m.broadcaster.SendTo(connID, EventPlayerInfo, p)
}

// JoinRoom 配對進房
//
// 已在房間內的加入請求靜默忽略。在既有房間中尋找「同變體、未進行、
// 未滿員」者（掃描順序即 map 迭代順序，不保證公平，可接受的非確定
// 性）；找不到就開新房。湊滿兩人立即開始回合。
func (m *Manager) JoinRoom(connID string, gameType GameType) {
	p, ok := m.sessions.Get(connID)
	if !ok {
		return
	}
	if p.RoomID != "" {
		m.logger.Debug("玩家已在房間內，忽略加入請求",
			"player_id", connID, "room_id", p.RoomID)
		return
	}

	m.mu.Lock()
	room := m.findOpenRoomLocked(gameType)
	if room == nil {
		newRoom, err := NewRoom("room_"+uuid.NewString(), gameType)
		if err != nil {
			m.mu.Unlock()
			m.logger.Debug("忽略未知變體的加入請求",
				"player_id", connID, "game_type", gameType)
			return
		}
		room = newRoom
		m.rooms[room.ID] = room
		m.logger.Info("房間已創建", "room_id", room.ID, "game_type", gameType)
	}

	if err := room.AddPlayer(connID, p.Name); err != nil {
		// findOpenRoomLocked 已排除滿房，理論上到不了這裡
		m.mu.Unlock()
		m.logger.Warn("加入房間失敗", "room_id", room.ID,
			"player_id", connID, "error", err)
		return
	}
	m.sessions.SetRoom(connID, room.ID)
	m.mu.Unlock()

	m.logger.Info("玩家加入房間",
		"room_id", room.ID, "player_id", connID, "name", p.Name)

	if snap, started := room.StartRound(); started {
		m.broadcastRoomSnapshot(snap)
	} else {
		m.broadcastRoomSnapshot(room.Snapshot())
	}
	m.broadcastLobby()
}

// findOpenRoomLocked 尋找可加入的房間（需持有 m.mu）
func (m *Manager) findOpenRoomLocked(gameType GameType) *Room {
	for _, room := range m.rooms {
		if room.GameType != gameType {
			continue
		}
		if room.IsActive() || room.PlayerCount() >= maxPlayersPerRoom {
			continue
		}
		return room
	}
	return nil
}

// LeaveRoom 主動離房
func (m *Manager) LeaveRoom(connID string) {
	m.leaveRoom(connID, true)
	m.broadcastLobby()
}

// leaveRoom 共用的離房流程
//
// notifyLeaver 為真時，先私下發 roomId=null 的 gameUpdate 給離開者，
// 讓其客戶端在房間廣播反映缺席之前就解除綁定（斷線時連線已不在，略過）。
func (m *Manager) leaveRoom(connID string, notifyLeaver bool) {
	p, ok := m.sessions.Get(connID)
	if !ok || p.RoomID == "" {
		return
	}

	m.mu.Lock()
	room := m.rooms[p.RoomID]
	m.sessions.SetRoom(connID, "")
	if room == nil {
		m.mu.Unlock()
		m.logger.Warn("玩家記錄指向不存在的房間", "player_id", connID, "room_id", p.RoomID)
		return
	}

	result := room.RemovePlayer(connID)
	if result.Empty {
		delete(m.rooms, room.ID)
	}
	m.mu.Unlock()

	if !result.Removed {
		return
	}

	if notifyLeaver {
		m.broadcaster.SendTo(connID, EventGameUpdate, map[string]any{"roomId": nil})
	}

	if result.Empty {
		m.logger.Info("房間已清空並銷毀", "room_id", room.ID)
		return
	}

	if result.ForceEnd {
		m.logger.Info("對手離開，回合強制結束", "room_id", room.ID)
	}
	m.broadcastRoomSnapshot(result.Snapshot)
}

// Rename 玩家改名
//
// 修剪空白後為空則忽略；超長截斷到配置上限（以 rune 計）。
// 排行榜分數跟著名稱搬家，目標名稱已有分數時覆蓋。
func (m *Manager) Rename(connID, name string) {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return
	}
	if runes := []rune(clean); len(runes) > m.cfg.Game.NameMaxLength {
		clean = string(runes[:m.cfg.Game.NameMaxLength])
	}

	oldName, p, ok := m.sessions.Rename(connID, clean)
	if !ok {
		return
	}

	if p.RoomID != "" {
		m.mu.RLock()
		room := m.rooms[p.RoomID]
		m.mu.RUnlock()
		if room != nil {
			if snap, renamed := room.RenamePlayer(connID, clean); renamed {
				m.broadcastRoomSnapshot(snap)
			}
		}
	}

	m.leaderboard.Rename(oldName, clean)
	m.logger.Info("玩家改名", "player_id", connID, "old", oldName, "new", clean)
}

// SubmitAnswer 處理一次作答提交
//
// gameType 來自事件名稱，必須與房間變體一致，否則靜默丟棄。
// 提交記錄後立即廣播房間狀態（對手能看到作答進度），再判定勝負：
// 獲勝則結算並排程重開，答錯則私下回覆提交者。
func (m *Manager) SubmitAnswer(connID string, gameType GameType, payload json.RawMessage) {
	room := m.roomOf(connID)
	if room == nil {
		return
	}
	if room.GameType != gameType {
		m.logger.Debug("提交的變體與房間不符，忽略",
			"player_id", connID, "room_type", room.GameType, "submitted", gameType)
		return
	}

	out := room.Submit(connID, payload)
	if !out.Processed {
		return
	}

	m.broadcastRoomSnapshot(out.Snapshot)

	if !out.Won {
		m.broadcaster.SendTo(connID, out.RejectEvent, out.RejectData)
		return
	}

	m.leaderboard.RecordWin(out.WinnerName)
	m.logger.Info("回合分出勝負",
		"room_id", room.ID, "winner", out.WinnerName, "game_type", room.GameType)

	m.broadcastLeaderboard()
	m.broadcaster.SendToMany(out.Snapshot.MemberIDs(), out.RoundEndEvent, out.RoundEndData)

	roomID := room.ID
	room.ScheduleRestart(m.cfg.Game.RestartDelay.Std(), func() {
		m.restartRound(roomID)
	})
}

// ResetCoefficients 化學房：把提交者的係數重置為全 1（不判定勝負）
func (m *Manager) ResetCoefficients(connID string) {
	room := m.roomOf(connID)
	if room == nil {
		return
	}
	if snap, ok := room.ResetCoefficients(connID); ok {
		m.broadcastRoomSnapshot(snap)
	}
}

// RequestNewGame 手動要求重開回合（不在房間內時為無操作）
func (m *Manager) RequestNewGame(connID string) {
	room := m.roomOf(connID)
	if room == nil {
		return
	}
	if snap, started := room.StartRound(); started {
		m.broadcastRoomSnapshot(snap)
	}
}

// restartRound 延遲重開觸發點
//
// 計時器可能在房間銷毀後才觸發：重新查註冊表，房間已不存在就
// 防禦性跳過。房間還在但已不滿員時 StartRound 自行拒絕。
func (m *Manager) restartRound(roomID string) {
	m.mu.RLock()
	room := m.rooms[roomID]
	m.mu.RUnlock()

	if room == nil {
		m.logger.Warn("延遲重開觸發時房間已不存在，跳過", "room_id", roomID)
		return
	}

	if snap, started := room.StartRound(); started {
		m.broadcastRoomSnapshot(snap)
	} else {
		m.logger.Debug("延遲重開時房間不滿員，等待新玩家", "room_id", roomID)
	}
}

// ResetLeaderboard 清空全局排行榜並重新發布（公開管理操作）
func (m *Manager) ResetLeaderboard() {
	m.leaderboard.Reset()
	m.logger.Info("排行榜已重置")
	m.broadcastLeaderboard()
}

// LobbyInfo 大廳摘要列表（按需重算）
func (m *Manager) LobbyInfo() []LobbySummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]LobbySummary, 0, len(m.rooms))
	for _, room := range m.rooms {
		summaries = append(summaries, room.Summary())
	}
	return summaries
}

// TopScores 排行榜前段名次
func (m *Manager) TopScores() []ScoreEntry {
	return m.leaderboard.TopN(m.cfg.Game.LeaderboardSize)
}

// Stats 統計資訊
func (m *Manager) Stats() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byType := make(map[GameType]int)
	activeRooms := 0
	playersInRooms := 0
	for _, room := range m.rooms {
		summary := room.Summary()
		byType[summary.GameType]++
		playersInRooms += summary.PlayerCount
		if summary.IsGameActive {
			activeRooms++
		}
	}

	return map[string]any{
		"total_rooms":      len(m.rooms),
		"active_rooms":     activeRooms,
		"players_in_rooms": playersInRooms,
		"total_sessions":   m.sessions.Count(),
		"by_game_type":     byType,
	}
}

// Stop 停止協調者：取消所有未觸發的重開計時器
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, room := range m.rooms {
		room.CancelRestart()
	}
	m.logger.Info("協調者已停止")
}

// roomOf 解析連線目前所在的房間，不在房間內返回 nil
func (m *Manager) roomOf(connID string) *Room {
	p, ok := m.sessions.Get(connID)
	if !ok || p.RoomID == "" {
		return nil
	}

	m.mu.RLock()
	room := m.rooms[p.RoomID]
	m.mu.RUnlock()

	if room == nil {
		m.logger.Warn("玩家記錄指向不存在的房間",
			"player_id", connID, "room_id", p.RoomID)
	}
	return room
}

// broadcastRoomSnapshot 把房間快照發給所有成員
func (m *Manager) broadcastRoomSnapshot(snap RoomSnapshot) {
	m.broadcaster.SendToMany(snap.MemberIDs(), EventGameUpdate, snap)
}

// broadcastLobby 把大廳摘要發給所有連線
func (m *Manager) broadcastLobby() {
	m.broadcaster.BroadcastAll(EventLobbyUpdate, m.LobbyInfo())
}

// broadcastLeaderboard 把排行榜前段發給所有連線
func (m *Manager) broadcastLeaderboard() {
	m.broadcaster.BroadcastAll(EventLeaderboardUpdate, m.TopScores())
}
