package internal_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/makermindz/multi-player-game/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer 啟動一個只含 HTTP 輔助面的測試服務器
func newTestServer(t *testing.T) (*httptest.Server, *internal.Manager) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := internal.NewManager(internal.DefaultConfig(), logger)
	t.Cleanup(manager.Stop)

	handler := internal.NewHandler(manager, logger)
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	return server, manager
}

// get 發一個 GET 請求並讀完響應內容
func get(t *testing.T, url string) (int, []byte) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

// TestPing 存活探測返回純文本 pong
func TestPing(t *testing.T) {
	server, _ := newTestServer(t)

	status, body := get(t, server.URL+"/ping")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "pong", string(body))
}

// TestResetLeaderboardEndpoint 管理端點清空排行榜
func TestResetLeaderboardEndpoint(t *testing.T) {
	server, manager := newTestServer(t)

	// 先製造一筆分數：直接走遊戲流程
	manager.Connect("c1")
	manager.Connect("c2")
	manager.JoinRoom("c1", internal.GameVectorVoyage)
	manager.JoinRoom("c2", internal.GameVectorVoyage)

	status, body := get(t, server.URL+"/reset-leaderboard")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Global leaderboard has been cleared.", string(body))
	assert.Empty(t, manager.TopScores())
}

// TestLobbyEndpoint 大廳查詢
func TestLobbyEndpoint(t *testing.T) {
	server, manager := newTestServer(t)

	t.Run("empty lobby", func(t *testing.T) {
		status, body := get(t, server.URL+"/api/v1/lobby")
		require.Equal(t, http.StatusOK, status)

		var payload struct {
			Rooms []internal.LobbySummary `json:"rooms"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Empty(t, payload.Rooms)
	})

	t.Run("lists open rooms", func(t *testing.T) {
		manager.Connect("c1")
		manager.JoinRoom("c1", internal.GameChemical)

		status, body := get(t, server.URL+"/api/v1/lobby")
		require.Equal(t, http.StatusOK, status)

		var payload struct {
			Rooms []internal.LobbySummary `json:"rooms"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Len(t, payload.Rooms, 1)
		assert.Equal(t, internal.GameChemical, payload.Rooms[0].GameType)
		assert.Equal(t, 1, payload.Rooms[0].PlayerCount)
		assert.False(t, payload.Rooms[0].IsGameActive)
	})
}

// TestLeaderboardEndpoint 排行榜查詢
func TestLeaderboardEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	status, body := get(t, server.URL+"/api/v1/leaderboard")
	require.Equal(t, http.StatusOK, status)

	var payload struct {
		Scores []internal.ScoreEntry `json:"scores"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Empty(t, payload.Scores)
}

// TestHealthEndpoint 健康檢查
func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	status, body := get(t, server.URL+"/health")
	require.Equal(t, http.StatusOK, status)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "healthy", payload["status"])
	assert.NotZero(t, payload["time"])
}

// TestStatsEndpoint 統計端點
func TestStatsEndpoint(t *testing.T) {
	server, manager := newTestServer(t)

	manager.Connect("c1")
	manager.JoinRoom("c1", internal.GameProjectile)

	status, body := get(t, server.URL+"/stats")
	require.Equal(t, http.StatusOK, status)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, float64(1), payload["total_rooms"])
	assert.Equal(t, float64(1), payload["total_sessions"])
	assert.Equal(t, float64(0), payload["active_rooms"])
}

// TestMethodNotAllowed 只註冊 GET 的端點拒絕其他方法
func TestMethodNotAllowed(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/ping", "text/plain", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
