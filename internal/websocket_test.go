package internal_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/makermindz/multi-player-game/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsEnvelope 服務器出站消息的信封（data 延後解碼）
type wsEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// newWSServer 啟動完整的 WebSocket 服務器（Hub 綁定為廣播閘道）
func newWSServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := internal.NewManager(internal.DefaultConfig(), logger)
	hub := internal.NewWebSocketHub(manager, logger)
	manager.SetBroadcaster(hub)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", hub.ServeWS)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		manager.Stop()
		hub.Stop()
	})
	return server
}

// dialWS 建立一條客戶端連線
func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// send 發一個 {"type", "data"} 信封
func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()

	payload, err := json.Marshal(map[string]any{"type": msgType, "data": data})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

// waitForEvent 讀消息直到遇到指定事件（跳過途中其他事件）
func waitForEvent(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "等待事件 %q 時讀取失敗", event)

		var envelope wsEnvelope
		require.NoError(t, json.Unmarshal(raw, &envelope))
		if envelope.Event == event {
			return envelope.Data
		}
	}
}

// waitForSnapshot 等下一個 gameUpdate 並解碼為房間快照
func waitForSnapshot(t *testing.T, conn *websocket.Conn) internal.RoomSnapshot {
	t.Helper()

	data := waitForEvent(t, conn, "gameUpdate")
	var snap internal.RoomSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	return snap
}

// TestWebSocketInitialData 連線即收到大廳與排行榜，身分可查詢
func TestWebSocketInitialData(t *testing.T) {
	server := newWSServer(t)
	conn := dialWS(t, server)

	waitForEvent(t, conn, "lobbyUpdate")
	waitForEvent(t, conn, "leaderboardUpdate")

	send(t, conn, "requestInitialData", nil)
	data := waitForEvent(t, conn, "playerInfo")

	var player internal.Player
	require.NoError(t, json.Unmarshal(data, &player))
	assert.Equal(t, "Player 1", player.Name)
	assert.NotEmpty(t, player.ID)
	assert.Empty(t, player.RoomID)
}

// TestWebSocketFullMatch 完整對局：配對、開局、獲勝、結算
func TestWebSocketFullMatch(t *testing.T) {
	server := newWSServer(t)

	alice := dialWS(t, server)
	send(t, alice, "setPlayerName", "Alice")
	send(t, alice, "joinRoom", map[string]any{"gameType": "vectorVoyage"})

	// 單人等待中
	snap := waitForSnapshot(t, alice)
	assert.Equal(t, 1, snap.PlayerCount)
	assert.False(t, snap.IsGameActive)

	bob := dialWS(t, server)
	send(t, bob, "joinRoom", map[string]any{"gameType": "vectorVoyage"})

	// 湊滿兩人，回合開始，雙方都看到題目
	var active internal.RoomSnapshot
	for {
		active = waitForSnapshot(t, alice)
		if active.IsGameActive {
			break
		}
	}
	require.NotNil(t, active.VectorVoyage)
	target := active.VectorVoyage.Challenge.Target

	// 目標向量自身就是一組解
	send(t, alice, "submitVectorVoyage", [][2]float64{target})

	endData := waitForEvent(t, alice, "vectorVoyageRoundEnd")
	var end struct {
		Winner internal.PlayerState `json:"winner"`
	}
	require.NoError(t, json.Unmarshal(endData, &end))
	assert.Equal(t, "Alice", end.Winner.Name)

	// 對手也收到更新後的排行榜與回合結束（發布順序：先排行榜後結束事件）
	boardData := waitForEvent(t, bob, "leaderboardUpdate")
	var scores []internal.ScoreEntry
	require.NoError(t, json.Unmarshal(boardData, &scores))
	require.NotEmpty(t, scores)
	assert.Equal(t, internal.ScoreEntry{Name: "Alice", Score: 1}, scores[0])

	waitForEvent(t, bob, "vectorVoyageRoundEnd")
}

// TestWebSocketWrongAnswerPrivate 答錯的回覆只給提交者
func TestWebSocketWrongAnswerPrivate(t *testing.T) {
	server := newWSServer(t)

	alice := dialWS(t, server)
	bob := dialWS(t, server)
	send(t, alice, "joinRoom", map[string]any{"gameType": "logicGate"})
	send(t, bob, "joinRoom", map[string]any{"gameType": "logicGate"})

	var active internal.RoomSnapshot
	for {
		active = waitForSnapshot(t, bob)
		if active.IsGameActive {
			break
		}
	}

	send(t, bob, "submitLogicGate", []string{"DEFINITELY_WRONG"})

	data := waitForEvent(t, bob, "logicGateAnswerResult")
	var result struct {
		Correct bool `json:"correct"`
	}
	require.NoError(t, json.Unmarshal(data, &result))
	assert.False(t, result.Correct)
}

// TestWebSocketLeaveRoom 離房者收到 roomId=null 的私下通知
func TestWebSocketLeaveRoom(t *testing.T) {
	server := newWSServer(t)

	alice := dialWS(t, server)
	bob := dialWS(t, server)
	send(t, alice, "joinRoom", map[string]any{"gameType": "chemical"})
	send(t, bob, "joinRoom", map[string]any{"gameType": "chemical"})

	for {
		if waitForSnapshot(t, bob).IsGameActive {
			break
		}
	}

	send(t, bob, "leaveRoom", nil)

	// 離開者：解除綁定通知（roomId 為 null，解碼後為空字串）
	detach := waitForSnapshot(t, bob)
	assert.Empty(t, detach.RoomID)

	// 留守者：回合強制結束
	var forced internal.RoomSnapshot
	for {
		forced = waitForSnapshot(t, alice)
		if !forced.IsGameActive {
			break
		}
	}
	assert.Equal(t, "Opponent left the game.", forced.SpecialMessage)
	assert.Equal(t, 1, forced.PlayerCount)
}

// TestWebSocketMalformedMessage 格式錯誤的消息不中斷連線
func TestWebSocketMalformedMessage(t *testing.T) {
	server := newWSServer(t)
	conn := dialWS(t, server)

	waitForEvent(t, conn, "lobbyUpdate")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json at all")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"joinRoom","data":42}`)))

	// 連線仍然可用
	send(t, conn, "requestInitialData", nil)
	waitForEvent(t, conn, "playerInfo")
}
