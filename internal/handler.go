package internal

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// Handler HTTP 請求處理器
//
// 遊戲本體全部走 WebSocket，HTTP 只承擔輔助面：
// 存活探測、排行榜管理操作、大廳與排行榜的只讀查詢。
type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

// NewHandler 創建 HTTP 處理器
func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

// Routes 設定路由
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// 中間件鏈
	wrap := func(handler http.HandlerFunc) http.HandlerFunc {
		return h.recoverer(h.loggerMiddleware(handler))
	}

	// 存活探測與管理操作（純文本，沿用既有客戶端約定）
	mux.HandleFunc("GET /ping", wrap(h.ping))
	mux.HandleFunc("GET /reset-leaderboard", wrap(h.resetLeaderboard))

	// 只讀查詢 API
	mux.HandleFunc("GET /api/v1/lobby", wrap(h.lobby))
	mux.HandleFunc("GET /api/v1/leaderboard", wrap(h.leaderboard))

	// 健康檢查
	mux.HandleFunc("GET /health", wrap(h.health))
	mux.HandleFunc("GET /stats", wrap(h.stats))

	return mux
}

// ping 存活探測（外部監控以純文本 pong 判定存活）
func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	h.textResponse(w, "pong", http.StatusOK)
}

// resetLeaderboard 清空全局排行榜
//
// GET 而非 DELETE 是沿用既有部署的約定：管理者從瀏覽器直接觸發。
func (h *Handler) resetLeaderboard(w http.ResponseWriter, r *http.Request) {
	h.manager.ResetLeaderboard()
	h.textResponse(w, "Global leaderboard has been cleared.", http.StatusOK)
}

// lobby 大廳房間摘要
func (h *Handler) lobby(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]any{
		"rooms": h.manager.LobbyInfo(),
	}, http.StatusOK)
}

// leaderboard 排行榜前段名次
func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]any{
		"scores": h.manager.TopScores(),
	}, http.StatusOK)
}

// health 健康檢查
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]any{
		"status": "healthy",
		"time":   time.Now().Unix(),
	}, http.StatusOK)
}

// stats 統計資訊
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.manager.Stats(), http.StatusOK)
}

// textResponse 返回純文本響應
func (h *Handler) textResponse(w http.ResponseWriter, body string, status int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		h.logger.Error("寫入響應失敗", "error", err)
	}
}

// jsonResponse 返回 JSON 響應
func (h *Handler) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("編碼 JSON 失敗", "error", err)
	}
}

// loggerMiddleware 日誌中間件
func (h *Handler) loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 包裝 ResponseWriter 以獲取狀態碼
		ww := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next(ww, r)

		h.logger.Info("HTTP 請求",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.statusCode,
			"duration", time.Since(start))
	}
}

// recoverer panic 恢復中間件
func (h *Handler) recoverer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.logger.Error("處理請求時發生 panic",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": "內部伺服器錯誤",
				})
			}
		}()

		next(w, r)
	}
}

// responseWriter 包裝 ResponseWriter 以獲取狀態碼
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
