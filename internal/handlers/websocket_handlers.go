package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"collab-realtime/internal/auth"
	"collab-realtime/internal/models"
	ws "collab-realtime/internal/websocket"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// Authenticator is the handshake side of auth.Gate.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Identity, error)
	Release(userID string)
}

type WebSocketHandlers struct {
	gate     Authenticator
	hub      *ws.Hub
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewWebSocketHandlers(gate Authenticator, hub *ws.Hub, origins []string, log *slog.Logger) *WebSocketHandlers {
	return &WebSocketHandlers{
		gate: gate,
		hub:  hub,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
	}
}

// HandleWebSocket authenticates before upgrading, so a rejected attempt gets
// a plain HTTP error carrying the reason and never enters the registry.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.Authenticate(r.Context(), bearerToken(r))
	if err != nil {
		var hs *auth.HandshakeError
		if errors.As(err, &hs) {
			h.log.Debug("Handshake rejected", "reason", hs.Reason, "remote", r.RemoteAddr, "error", hs.Err)
			http.Error(w, hs.Reason, hs.Status)
			return
		}
		h.log.Error("Handshake failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Upgrade error", "user_id", identity.UserID, "error", err)
		h.gate.Release(identity.UserID)
		return
	}

	client := ws.NewClient(h.hub, conn, *identity)
	if err := h.hub.Register(client); err != nil {
		h.gate.Release(identity.UserID)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// bearerToken reads the Authorization header, falling back to ?token= for
// browsers that cannot set headers on a websocket request.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}

func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 || lo.Contains(origins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || lo.Contains(origins, origin)
	}
}
