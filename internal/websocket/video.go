package websocket

import (
	"context"
	"encoding/json"

	"collab-realtime/internal/models"

	"github.com/samber/lo"
)

// The video router keeps no call state of its own: a call is the set of
// connections that joined video_{roomId}. Payloads are relayed untouched.

func participantOf(c *Client) models.Participant {
	return models.Participant{ConnectionID: c.id, UserID: c.UserID(), User: c.Profile()}
}

func (h *Hub) videoJoin(_ context.Context, c *Client, data json.RawMessage) error {
	var req models.SignalRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	room := videoRoom(req.RoomID)

	others := lo.Filter(h.registry.ConnectionsInRoom(room), func(o *Client, _ int) bool { return o != c })
	if !h.registry.JoinRoom(c.id, room) {
		return nil
	}

	h.broadcast(room, c, models.EventVideoUserJoined, models.ParticipantPayload{
		RoomID:      req.RoomID,
		Participant: participantOf(c),
	})
	c.Emit(models.EventVideoCallParticipants, models.ParticipantsPayload{
		RoomID:       req.RoomID,
		Participants: lo.Map(others, func(o *Client, _ int) models.Participant { return participantOf(o) }),
	})
	return nil
}

// relaySignal forwards offer, answer and ICE candidates to the one
// connection of the target user inside the call. A target that already left
// is a normal race, so the frame is dropped without an error.
func (h *Hub) relaySignal(event models.EventType) handlerFunc {
	return func(_ context.Context, c *Client, data json.RawMessage) error {
		var req models.SignalRequest
		if err := h.decode(data, &req); err != nil {
			return err
		}
		if req.TargetUserID == "" {
			return userError(msgMissingTargetField)
		}

		target := h.registry.FindInRoom(req.TargetUserID, videoRoom(req.RoomID))
		if target == nil {
			h.log.Debug("Signal target not in call", "event", event, "room", req.RoomID, "target", req.TargetUserID)
			return nil
		}
		target.Emit(event, models.SignalPayload{
			RoomID:           req.RoomID,
			FromUserID:       c.UserID(),
			FromConnectionID: c.id,
			Payload:          req.Payload,
		})
		return nil
	}
}

func (h *Hub) videoLeave(_ context.Context, c *Client, data json.RawMessage) error {
	var req models.SignalRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	room := videoRoom(req.RoomID)
	if h.registry.LeaveRoom(c.id, room) {
		h.broadcast(room, c, models.EventVideoUserLeft, models.ParticipantPayload{
			RoomID:      req.RoomID,
			Participant: participantOf(c),
		})
	}
	return nil
}

func (h *Hub) screenShare(event models.EventType) handlerFunc {
	return func(_ context.Context, c *Client, data json.RawMessage) error {
		var req models.SignalRequest
		if err := h.decode(data, &req); err != nil {
			return err
		}
		h.broadcast(videoRoom(req.RoomID), c, event, models.ScreenSharePayload{
			RoomID: req.RoomID,
			UserID: c.UserID(),
		})
		return nil
	}
}

// callMessage echoes to the sender too, so every participant renders the
// same server timestamp.
func (h *Hub) callMessage(_ context.Context, c *Client, data json.RawMessage) error {
	var req models.CallMessageRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	text := trimmed(req.Message)
	if text == "" {
		return nil
	}

	h.broadcast(videoRoom(req.RoomID), nil, models.EventVideoCallMessage, models.CallMessagePayload{
		RoomID:    req.RoomID,
		UserID:    c.UserID(),
		Username:  c.Profile().Username,
		Message:   truncate(text, h.cfg.MaxMessageLength),
		Timestamp: h.now().UTC(),
	})
	return nil
}
