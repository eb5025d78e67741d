package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"collab-realtime/internal/auth"
	"collab-realtime/internal/models"
	"collab-realtime/internal/services"
	ws "collab-realtime/internal/websocket"
)

// RoomHandlers serves read-only views of live presence.
type RoomHandlers struct {
	roomService *services.RoomService
	tokens      auth.TokenValidator
	hub         *ws.Hub
	log         *slog.Logger
}

func NewRoomHandlers(roomService *services.RoomService, tokens auth.TokenValidator, hub *ws.Hub, log *slog.Logger) *RoomHandlers {
	return &RoomHandlers{
		roomService: roomService,
		tokens:      tokens,
		hub:         hub,
		log:         log,
	}
}

// GetOnlineUsers returns the same snapshot as the get_online_users event,
// restricted to project members.
func (h *RoomHandlers) GetOnlineUsers(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, auth.ReasonTokenRequired, http.StatusUnauthorized)
		return
	}
	userID, _, err := h.tokens.UserIDFromToken(token)
	if err != nil {
		http.Error(w, auth.ReasonInvalidToken, http.StatusUnauthorized)
		return
	}

	projectID := r.PathValue("id")
	if err := h.roomService.RequireProjectMember(r.Context(), userID, projectID); err != nil {
		if errors.Is(err, services.ErrNotProjectMember) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		h.log.Error("Membership check failed", "user_id", userID, "project_id", projectID, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.OnlineUsersPayload{
		ProjectID: projectID,
		Users:     h.hub.OnlineUsers(projectID),
	})
}

func (h *RoomHandlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"realtime": h.hub.Diagnostics(),
	})
}
