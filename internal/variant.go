package internal

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
)

// 系統設計問題：
//   四種小遊戲共用同一套房間／回合生命週期，但出題、作答與勝負判定
//   各不相同。如何避免生命週期控制器裡到處散落 gameType 字串比較？
//
// 設計方案：
//   ✅ 封閉的多型集合 - Variant 介面，一種遊戲一個實作
//   ✅ 建房時分派一次 - Room 持有 Variant，之後不再做字串判斷
//   ✅ 勝負判定為純函數 - 只讀取提交內容與當前題目，不碰共享狀態

// GameType 遊戲變體標籤（與客戶端協議一致）
type GameType string

const (
	GameChemical     GameType = "chemical"     // 配平化學方程式
	GameProjectile   GameType = "projectile"   // 拋體命中目標
	GameLogicGate    GameType = "logicGate"    // 組合邏輯閘
	GameVectorVoyage GameType = "vectorVoyage" // 向量加總航行
)

// 拋體運動常數（與客戶端畫面座標約定一致）
const (
	gravity         = 9.8  // 重力加速度
	cannonOffsetX   = 25.0 // 砲台在畫面上的水平偏移
	hitRadius       = 20.0 // 垂直誤差在此範圍內視為命中
	minTargetHeight = 50.0 // 目標最低高度
)

// Variant 一種小遊戲的完整行為
//
// Evaluate 是純函數：只依據玩家的提交內容與當前題目判定勝負，
// 不允許讀寫任何房間層級的共享狀態。
type Variant interface {
	// Type 返回變體標籤
	Type() GameType

	// NewChallenge 從題庫抽出新一回合的題目
	NewChallenge() Challenge

	// ResetSubmission 將玩家的作答狀態重置為該變體的中性預設值
	ResetSubmission(ps *PlayerState, ch Challenge)

	// ApplySubmission 解析客戶端提交並記錄到玩家狀態；
	// 格式錯誤返回 error，呼叫端視為一次普通的答錯，絕不致命
	ApplySubmission(ps *PlayerState, payload json.RawMessage) error

	// Evaluate 判定玩家當前的提交是否達成勝利條件
	Evaluate(ps *PlayerState, ch Challenge) bool

	// RejectEvent 答錯時私下回覆給提交者的事件
	RejectEvent() (event string, data any)

	// RoundEndEvent 獲勝時廣播給全房的回合結束事件（含解答揭示）
	RoundEndEvent(winner *PlayerState, ch Challenge) (event string, data any)
}

// VariantFor 依標籤取得變體實作（建房時分派一次）
func VariantFor(gt GameType) (Variant, bool) {
	switch gt {
	case GameChemical:
		return chemicalVariant{}, true
	case GameProjectile:
		return projectileVariant{}, true
	case GameLogicGate:
		return logicGateVariant{}, true
	case GameVectorVoyage:
		return vectorVariant{}, true
	default:
		return nil, false
	}
}

// Challenge 一回合的題目，選定後不可變
type Challenge interface {
	// attach 將題目掛到房間快照中對應變體的欄位
	attach(s *RoomSnapshot)
}

// EquationPart 方程式顯示結構的一個片段
type EquationPart struct {
	Type  string `json:"type"` // reactant / operator / product
	Value string `json:"value"`
}

// ChemicalChallenge 化學配平題
type ChemicalChallenge struct {
	Formula   []string       `json:"formula"`
	Target    []int          `json:"target"`
	Reactants int            `json:"reactants"`
	Structure []EquationPart `json:"structure"`
}

func (c *ChemicalChallenge) attach(s *RoomSnapshot) {
	s.Chemical = &ChemicalRoomState{Equation: c}
}

// Point 2D 座標
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shot 一次拋體發射的參數
type Shot struct {
	Angle    float64 `json:"angle"` // 仰角（度）
	Velocity float64 `json:"velocity"`
}

// ProjectileChallenge 拋體命中題
type ProjectileChallenge struct {
	Target Point `json:"target"`
}

func (c *ProjectileChallenge) attach(s *RoomSnapshot) {
	s.Projectile = &ProjectileRoomState{Target: c.Target}
}

// TruthTableRow 真值表的一列
type TruthTableRow struct {
	Inputs []int `json:"inputs"`
	Output int   `json:"output"`
}

// LogicGateSolution 邏輯閘題目的標準解
type LogicGateSolution struct {
	Gates      []string        `json:"gates"`
	TruthTable []TruthTableRow `json:"truthTable"`
}

// LogicGateChallenge 邏輯閘組合題
type LogicGateChallenge struct {
	Inputs    int               `json:"inputs"`
	Slots     int               `json:"slots"`
	Available []string          `json:"available"`
	Solution  LogicGateSolution `json:"solution"`
}

func (c *LogicGateChallenge) attach(s *RoomSnapshot) {
	s.LogicGate = &LogicGateRoomState{Challenge: c}
}

// VectorChallenge 向量加總題
type VectorChallenge struct {
	Target    [2]float64   `json:"target"`
	Available [][2]float64 `json:"available"`
}

func (c *VectorChallenge) attach(s *RoomSnapshot) {
	s.VectorVoyage = &VectorRoomState{Challenge: c}
}

// ---------------------------------------------------------------------------
// 化學配平
// ---------------------------------------------------------------------------

type chemicalVariant struct{}

func (chemicalVariant) Type() GameType { return GameChemical }

func (chemicalVariant) NewChallenge() Challenge {
	eq := pickChemicalEquation()
	return &ChemicalChallenge{
		Formula:   eq.Formula,
		Target:    eq.Target,
		Reactants: eq.Reactants,
		Structure: buildEquationStructure(eq),
	}
}

// buildEquationStructure 依反應物數量組出客戶端渲染用的顯示結構：
// 反應物之間以「+」連接，反應物與生成物之間以「→」連接。
func buildEquationStructure(eq ChemicalEquation) []EquationPart {
	reactants := eq.Formula[:eq.Reactants]
	products := eq.Formula[eq.Reactants:]

	structure := make([]EquationPart, 0, 2*len(eq.Formula))
	for i, v := range reactants {
		structure = append(structure, EquationPart{Type: "reactant", Value: v})
		if i < len(reactants)-1 {
			structure = append(structure, EquationPart{Type: "operator", Value: "+"})
		}
	}
	structure = append(structure, EquationPart{Type: "operator", Value: "→"})
	for i, v := range products {
		structure = append(structure, EquationPart{Type: "product", Value: v})
		if i < len(products)-1 {
			structure = append(structure, EquationPart{Type: "operator", Value: "+"})
		}
	}
	return structure
}

func (chemicalVariant) ResetSubmission(ps *PlayerState, ch Challenge) {
	length := 0
	if c, ok := ch.(*ChemicalChallenge); ok {
		length = len(c.Target)
	}
	ps.Coefficients = neutralCoefficients(length)
}

// neutralCoefficients 回合開始時的預設係數：全部為 1
func neutralCoefficients(length int) []any {
	coeffs := make([]any, length)
	for i := range coeffs {
		coeffs[i] = float64(1)
	}
	return coeffs
}

func (chemicalVariant) ApplySubmission(ps *PlayerState, payload json.RawMessage) error {
	var coeffs []any
	if err := json.Unmarshal(payload, &coeffs); err != nil {
		return fmt.Errorf("解析係數失敗: %w", err)
	}
	ps.Coefficients = coeffs
	return nil
}

// Evaluate 係數逐項與目標比對。客戶端可能送來字串或數字，
// 先做數值轉換再比較；無法轉換的項目一律視為不相等，絕不 panic。
func (chemicalVariant) Evaluate(ps *PlayerState, ch Challenge) bool {
	c, ok := ch.(*ChemicalChallenge)
	if !ok {
		return false
	}
	if len(ps.Coefficients) != len(c.Target) {
		return false
	}
	for i, raw := range ps.Coefficients {
		value, ok := coerceNumber(raw)
		if !ok || value != float64(c.Target[i]) {
			return false
		}
	}
	return true
}

// coerceNumber 盡力把 JSON 值轉成數字
func coerceNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func (chemicalVariant) RejectEvent() (string, any) {
	return "chemicalAnswerResult", map[string]any{"correct": false}
}

func (chemicalVariant) RoundEndEvent(winner *PlayerState, ch Challenge) (string, any) {
	c, _ := ch.(*ChemicalChallenge)
	data := map[string]any{"winner": winner}
	if c != nil {
		data["targetEquation"] = c.Target
		data["structure"] = c.Structure
	}
	return "chemicalRoundEnd", data
}

// ---------------------------------------------------------------------------
// 拋體命中
// ---------------------------------------------------------------------------

type projectileVariant struct{}

func (projectileVariant) Type() GameType { return GameProjectile }

// NewChallenge 以「先模擬一次合法發射、再取其落點」的方式生成目標，
// 保證每個目標都打得中。落點低於最低高度時重新取樣（而非截斷到
// 最低高度，截斷會破壞可命中性）。
func (projectileVariant) NewChallenge() Challenge {
	for {
		_, target := sampleProjectileShot()
		if target.Y >= minTargetHeight {
			return &ProjectileChallenge{Target: target}
		}
	}
}

// sampleProjectileShot 隨機取一組合法發射參數並計算其落點
//
// 仰角 20–70 度（弧線較有趣）、初速 40–100、飛行 2–8 秒。
func sampleProjectileShot() (Shot, Point) {
	shot := Shot{
		Angle:    20 + rand.Float64()*50,
		Velocity: 40 + rand.Float64()*60,
	}
	flightTime := 2 + rand.Float64()*6
	return shot, projectilePosition(shot, flightTime)
}

// projectilePosition 等加速度運動下 t 秒時的彈道位置
func projectilePosition(shot Shot, t float64) Point {
	rad := shot.Angle * math.Pi / 180
	return Point{
		X: cannonOffsetX + shot.Velocity*math.Cos(rad)*t,
		Y: shot.Velocity*math.Sin(rad)*t - 0.5*gravity*t*t,
	}
}

func (projectileVariant) ResetSubmission(ps *PlayerState, _ Challenge) {
	ps.LastShot = nil
}

func (projectileVariant) ApplySubmission(ps *PlayerState, payload json.RawMessage) error {
	var shot Shot
	if err := json.Unmarshal(payload, &shot); err != nil {
		return fmt.Errorf("解析發射參數失敗: %w", err)
	}
	ps.LastShot = &shot
	return nil
}

// Evaluate 由目標的水平座標反推飛行時間，再檢查該時刻的垂直位置
// 與目標的誤差。水平速度趨近於零時 time 會發散成非有限值，
// 必須視為未命中而不是讓 NaN 傳染下去。
func (projectileVariant) Evaluate(ps *PlayerState, ch Challenge) bool {
	c, ok := ch.(*ProjectileChallenge)
	if !ok || ps.LastShot == nil {
		return false
	}

	shot := *ps.LastShot
	rad := shot.Angle * math.Pi / 180
	vx := shot.Velocity * math.Cos(rad)
	vy := shot.Velocity * math.Sin(rad)

	t := (c.Target.X - cannonOffsetX) / vx
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return false
	}

	y := vy*t - 0.5*gravity*t*t
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return false
	}

	return math.Abs(y-c.Target.Y) < hitRadius
}

func (projectileVariant) RejectEvent() (string, any) {
	return "projectileMiss", nil
}

func (projectileVariant) RoundEndEvent(winner *PlayerState, _ Challenge) (string, any) {
	return "projectileRoundEnd", map[string]any{
		"winner":      winner,
		"winningShot": winner.LastShot,
	}
}

// ---------------------------------------------------------------------------
// 邏輯閘組合
// ---------------------------------------------------------------------------

type logicGateVariant struct{}

func (logicGateVariant) Type() GameType { return GameLogicGate }

func (logicGateVariant) NewChallenge() Challenge {
	c := pickLogicGateChallenge()
	return &c
}

func (logicGateVariant) ResetSubmission(ps *PlayerState, _ Challenge) {
	ps.Gates = []string{}
}

func (logicGateVariant) ApplySubmission(ps *PlayerState, payload json.RawMessage) error {
	var gates []string
	if err := json.Unmarshal(payload, &gates); err != nil {
		return fmt.Errorf("解析邏輯閘序列失敗: %w", err)
	}
	ps.Gates = gates
	return nil
}

// Evaluate 逐位比對閘名序列與標準解。
// 注意：這是字面比對而非模擬電路，功能等價但順序或命名不同的解
// 會被判錯；維持此行為是刻意的產品決策，勿私自升級成真值表模擬。
func (logicGateVariant) Evaluate(ps *PlayerState, ch Challenge) bool {
	c, ok := ch.(*LogicGateChallenge)
	if !ok {
		return false
	}
	if len(ps.Gates) != len(c.Solution.Gates) {
		return false
	}
	for i, gate := range ps.Gates {
		if gate != c.Solution.Gates[i] {
			return false
		}
	}
	return true
}

func (logicGateVariant) RejectEvent() (string, any) {
	return "logicGateAnswerResult", map[string]any{"correct": false}
}

func (logicGateVariant) RoundEndEvent(winner *PlayerState, _ Challenge) (string, any) {
	return "logicGateRoundEnd", map[string]any{
		"winner":       winner,
		"correctGates": winner.Gates,
	}
}

// ---------------------------------------------------------------------------
// 向量加總航行
// ---------------------------------------------------------------------------

type vectorVariant struct{}

func (vectorVariant) Type() GameType { return GameVectorVoyage }

func (vectorVariant) NewChallenge() Challenge {
	c := pickVectorChallenge()
	return &c
}

func (vectorVariant) ResetSubmission(ps *PlayerState, _ Challenge) {
	ps.Vectors = [][2]float64{}
}

func (vectorVariant) ApplySubmission(ps *PlayerState, payload json.RawMessage) error {
	var vectors [][2]float64
	if err := json.Unmarshal(payload, &vectors); err != nil {
		return fmt.Errorf("解析向量序列失敗: %w", err)
	}
	ps.Vectors = vectors
	return nil
}

// Evaluate 所有已放置向量的分量和必須與目標精確相等（無容差）
func (vectorVariant) Evaluate(ps *PlayerState, ch Challenge) bool {
	c, ok := ch.(*VectorChallenge)
	if !ok {
		return false
	}
	var sum [2]float64
	for _, v := range ps.Vectors {
		sum[0] += v[0]
		sum[1] += v[1]
	}
	return sum[0] == c.Target[0] && sum[1] == c.Target[1]
}

func (vectorVariant) RejectEvent() (string, any) {
	return "vectorVoyageAnswerResult", map[string]any{"correct": false}
}

func (vectorVariant) RoundEndEvent(winner *PlayerState, _ Challenge) (string, any) {
	return "vectorVoyageRoundEnd", map[string]any{"winner": winner}
}
