package internal

// Broadcaster 對外發布閘道
//
// 核心只依賴這個介面，不直接接觸任何連線：發布一律是
// fire-and-forget，閘道不得阻塞呼叫端，投遞失敗由閘道自行消化。
// 生產環境由 WebSocketHub 實作，測試使用記錄型的假實作。
type Broadcaster interface {
	// BroadcastAll 發給所有連線
	BroadcastAll(event string, data any)

	// SendToMany 發給指定的一組連線（房間廣播）
	SendToMany(connIDs []string, event string, data any)

	// SendTo 發給單一連線（私下回覆）
	SendTo(connID string, event string, data any)
}

// nopBroadcaster 未綁定閘道前的安全預設
type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastAll(string, any)         {}
func (nopBroadcaster) SendToMany([]string, string, any) {}
func (nopBroadcaster) SendTo(string, string, any)       {}

// 對外事件名稱（與客戶端協議一致）
const (
	EventLobbyUpdate       = "lobbyUpdate"
	EventLeaderboardUpdate = "leaderboardUpdate"
	EventGameUpdate        = "gameUpdate"
	EventPlayerInfo        = "playerInfo"
)
