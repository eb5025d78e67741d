package handlers

import (
	"net/http"

	"github.com/samber/lo"
)

func NewRouter(authHandlers *AuthHandlers, roomHandlers *RoomHandlers, wsHandlers *WebSocketHandlers) *http.ServeMux {
	mux := http.NewServeMux()

	// Auth routes
	mux.HandleFunc("POST /login", authHandlers.Login)
	mux.HandleFunc("POST /register", authHandlers.Register)

	// Presence
	mux.HandleFunc("GET /projects/{id}/online", roomHandlers.GetOnlineUsers)
	mux.HandleFunc("GET /healthz", roomHandlers.Health)

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)
	return mux
}

// CORS answers preflight requests and echoes allowed origins.
func CORS(origins []string, next http.Handler) http.Handler {
	allowAll := len(origins) == 0 || lo.Contains(origins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAll:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && lo.Contains(origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
