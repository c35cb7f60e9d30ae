package internal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// 系統設計問題：
//   如何實現多人遊戲的實時狀態同步？
//
// 核心挑戰：
//   1. 實時通信：大廳、排行榜、房間狀態變更需要立即推送
//   2. 連接管理：連線即玩家身分，斷線要同步清理遊戲側狀態
//   3. 心跳機制：檢測死連接（網絡異常、客戶端崩潰）
//   4. 並發廣播：同時向多個客戶端發送消息，慢客戶端不得拖累他人
//
// 設計方案：
//   ✅ WebSocket - 全雙工通信（低延遲、服務器推送）
//   ✅ Hub 模式 - 集中管理所有連接，實作 Broadcaster 閘道
//   ✅ Ping/Pong 心跳 - 檢測死連接（54s/60s）
//   ✅ 緩衝 channel - 異步發送（緩衝區滿時丟棄，不阻塞）

const (
	readTimeout     = 60 * time.Second
	pingInterval    = 54 * time.Second // 避開代理的 60 秒超時，留 6 秒余量
	writeTimeout    = 10 * time.Second
	sendBufferSize  = 256
	maxInboundBytes = 4096
)

// ClientMessage 客戶端入站消息的外層信封
//
// data 留作原始 JSON，由各事件的處理邏輯自行解碼。
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ServerMessage 服務器出站消息的外層信封
type ServerMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// WebSocketHub WebSocket 連接中心
//
// 每個連接即一名玩家：連接 ID 就是遊戲側的玩家 ID。
// Hub 實作 Broadcaster 介面，是 Manager 對外發布的唯一出口。
type WebSocketHub struct {
	manager  *Manager
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu          sync.RWMutex
	connections map[string]*Connection // connID -> Connection
}

// Connection 單一 WebSocket 連接
type Connection struct {
	ID        string
	Conn      *websocket.Conn
	Send      chan []byte
	Hub       *WebSocketHub
	closeOnce sync.Once // 確保 channel 只關閉一次
}

// NewWebSocketHub 創建 WebSocket Hub
func NewWebSocketHub(manager *Manager, logger *slog.Logger) *WebSocketHub {
	return &WebSocketHub{
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 在生產環境應該檢查來源
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[string]*Connection),
	}
}

// ServeWS 處理 WebSocket 連接
//
// 連接先註冊進 Hub 再通知 Manager：Connect 觸發的大廳與排行榜
// 廣播必須能送達新連線本身。
func (hub *WebSocketHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("升級 WebSocket 失敗", "error", err)
		return
	}

	connection := &Connection{
		ID:   "conn_" + uuid.NewString(),
		Conn: conn,
		Send: make(chan []byte, sendBufferSize),
		Hub:  hub,
	}

	// 讀取泵最後啟動：玩家登記完成前不得有入站事件被處理
	hub.register(connection)
	hub.manager.Connect(connection.ID)

	go connection.writePump()
	go connection.readPump()

	hub.logger.Info("WebSocket 連接建立",
		"conn_id", connection.ID,
		"remote", r.RemoteAddr)
}

// register 註冊連接
func (hub *WebSocketHub) register(conn *Connection) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.connections[conn.ID] = conn
}

// unregister 取消註冊連接
func (hub *WebSocketHub) unregister(conn *Connection) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if actual, exists := hub.connections[conn.ID]; exists && actual == conn {
		delete(hub.connections, conn.ID)
		conn.closeOnce.Do(func() {
			close(conn.Send)
		})
	}
}

// ---------------------------------------------------------------------------
// Broadcaster 實作
// ---------------------------------------------------------------------------

// BroadcastAll 發給所有連接
func (hub *WebSocketHub) BroadcastAll(event string, data any) {
	message, ok := hub.encode(event, data)
	if !ok {
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for _, conn := range hub.connections {
		hub.enqueue(conn, message)
	}
}

// SendToMany 發給指定的一組連接
func (hub *WebSocketHub) SendToMany(connIDs []string, event string, data any) {
	message, ok := hub.encode(event, data)
	if !ok {
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for _, id := range connIDs {
		if conn, exists := hub.connections[id]; exists {
			hub.enqueue(conn, message)
		}
	}
}

// SendTo 發給單一連接
func (hub *WebSocketHub) SendTo(connID string, event string, data any) {
	message, ok := hub.encode(event, data)
	if !ok {
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if conn, exists := hub.connections[connID]; exists {
		hub.enqueue(conn, message)
	}
}

// encode 序列化出站消息
func (hub *WebSocketHub) encode(event string, data any) ([]byte, bool) {
	message, err := json.Marshal(ServerMessage{Event: event, Data: data})
	if err != nil {
		hub.logger.Error("序列化出站消息失敗", "event", event, "error", err)
		return nil, false
	}
	return message, true
}

// enqueue 非阻塞投遞：緩衝區滿時丟棄，慢客戶端靠心跳超時淘汰
func (hub *WebSocketHub) enqueue(conn *Connection, message []byte) {
	select {
	case conn.Send <- message:
	default:
		hub.logger.Warn("連接緩衝區滿，丟棄消息", "conn_id", conn.ID)
	}
}

// ConnectionCount 當前連接數（統計用）
func (hub *WebSocketHub) ConnectionCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.connections)
}

// Stop 停止 Hub：關閉所有連接
func (hub *WebSocketHub) Stop() {
	hub.mu.Lock()
	connections := hub.connections
	hub.connections = make(map[string]*Connection)
	hub.mu.Unlock()

	for _, conn := range connections {
		// 先關閉 Send channel，再關閉連接
		conn.closeOnce.Do(func() {
			close(conn.Send)
		})
		conn.Conn.Close()
	}

	hub.logger.Info("WebSocket Hub 已停止")
}

// ---------------------------------------------------------------------------
// 讀寫 goroutine
// ---------------------------------------------------------------------------

// readPump 讀取客戶端消息
//
// 心跳機制（讀取端）：60 秒內沒有任何消息（包括 Pong）就關閉連接，
// 配合 writePump 的 54 秒 Ping（留 6 秒余量）。
// 讀取循環退出即視為斷線：取消註冊並通知 Manager 清理遊戲側狀態。
func (c *Connection) readPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
		c.Hub.manager.Disconnect(c.ID)
		c.Hub.logger.Info("WebSocket 連接關閉", "conn_id", c.ID)
	}()

	c.Conn.SetReadLimit(maxInboundBytes)
	if err := c.Conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		c.Hub.logger.Error("設置讀取期限失敗", "error", err)
	}
	c.Conn.SetPongHandler(func(string) error {
		// 收到 Pong 重置超時
		return c.Conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Error("WebSocket 讀取錯誤",
					"error", err, "conn_id", c.ID)
			}
			break
		}

		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

// writePump 寫入消息到客戶端
//
// 心跳機制（發送端）：每 54 秒發送 Ping。54 秒避開常見代理的
// 60 秒超時閾值。所有寫入都帶 10 秒期限，慢客戶端自行淘汰。
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				c.Hub.logger.Error("設置寫入期限失敗", "error", err)
			}
			if !ok {
				// Hub 關閉了通道，優雅關閉連接
				deadline := time.Now().Add(time.Second)
				if err := c.Conn.SetWriteDeadline(deadline); err == nil {
					_ = c.Conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				}
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// 批量發送隊列中的消息
			n := len(c.Send)
			for i := 0; i < n; i++ {
				if err := c.Conn.WriteMessage(websocket.TextMessage, <-c.Send); err != nil {
					return
				}
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				c.Hub.logger.Error("設置寫入期限失敗", "error", err)
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 解析入站事件並分派給 Manager
//
// 入站協議：{"type": 事件名, "data": 載荷}。
// 未知事件與格式錯誤的載荷只記 Debug，絕不中斷連接。
func (c *Connection) handleMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.Hub.logger.Debug("解析客戶端消息失敗",
			"error", err, "conn_id", c.ID)
		return
	}

	m := c.Hub.manager

	switch msg.Type {
	case "requestInitialData":
		m.PlayerInfo(c.ID)

	case "joinRoom":
		var payload struct {
			GameType GameType `json:"gameType"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.Hub.logger.Debug("joinRoom 載荷格式錯誤", "conn_id", c.ID, "error", err)
			return
		}
		m.JoinRoom(c.ID, payload.GameType)

	case "leaveRoom":
		m.LeaveRoom(c.ID)

	case "setPlayerName":
		var name string
		if err := json.Unmarshal(msg.Data, &name); err != nil {
			c.Hub.logger.Debug("setPlayerName 載荷格式錯誤", "conn_id", c.ID, "error", err)
			return
		}
		m.Rename(c.ID, name)

	case "updateCoefficients":
		m.SubmitAnswer(c.ID, GameChemical, msg.Data)

	case "resetChemicalCoefficients":
		m.ResetCoefficients(c.ID)

	case "fireProjectile":
		m.SubmitAnswer(c.ID, GameProjectile, msg.Data)

	case "submitLogicGate":
		m.SubmitAnswer(c.ID, GameLogicGate, msg.Data)

	case "submitVectorVoyage":
		m.SubmitAnswer(c.ID, GameVectorVoyage, msg.Data)

	case "requestNewGame":
		m.RequestNewGame(c.ID)

	default:
		c.Hub.logger.Debug("收到未知消息類型",
			"type", msg.Type, "conn_id", c.ID)
	}
}
