package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"collab-realtime/internal/models"
	"collab-realtime/internal/services"
)

func (h *Hub) sendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var req models.SendMessageRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	content := trimmed(req.Content)
	if content == "" {
		return userError(msgEmptyContent)
	}
	if !c.limiter.Allow(h.now()) {
		return userError(msgRateLimited)
	}
	content = truncate(content, h.cfg.MaxMessageLength)

	err := h.rooms.VerifyChatAccess(ctx, c.UserID(), req.ProjectID, req.RoomID)
	switch {
	case errors.Is(err, services.ErrRoomNotFound):
		return userError(msgRoomNotInProject)
	case errors.Is(err, services.ErrNotProjectMember):
		return userError(msgNotProjectMember)
	case err != nil:
		return failed(msgSendMessageFailed, err)
	}

	msgType := req.MessageType
	if msgType == "" {
		msgType = models.DefaultMessageType
	}
	var replyTo *string
	if req.ReplyToMessageID != nil && *req.ReplyToMessageID != "" {
		replyTo = req.ReplyToMessageID
	}

	saved, err := h.rooms.SaveMessage(ctx, &models.ChatMessage{
		RoomID:           req.RoomID,
		SenderID:         c.UserID(),
		Content:          content,
		MessageType:      msgType,
		ReplyToMessageID: replyTo,
	})
	if err != nil {
		return failed(msgSendMessageFailed, err)
	}

	if replyTo != nil {
		saved.ReplyTo = h.replyTarget(ctx, *replyTo)
	}

	h.broadcast(chatRoom(req.RoomID), c, models.EventNewMessage, saved)
	c.Emit(models.EventMessageSent, saved)
	return nil
}

// replyTarget is best-effort: any failure leaves the reply unattached.
func (h *Hub) replyTarget(ctx context.Context, id string) *models.ChatMessage {
	ctx, cancel := context.WithTimeout(ctx, replyLookupTimeout)
	defer cancel()

	target, err := h.rooms.ReplyTarget(ctx, id)
	if err != nil {
		h.log.Debug("Reply target lookup failed", "message_id", id, "error", err)
		return nil
	}
	return target
}

func (h *Hub) sendFriendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var req models.SendFriendMessageRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	content := trimmed(req.Content)
	if content == "" {
		return userError(msgEmptyContent)
	}
	content = truncate(content, h.cfg.MaxMessageLength)

	msg, err := h.friends.SendMessage(ctx, c.UserID(), req.RecipientID, content)
	if errors.Is(err, services.ErrNotFriends) {
		return userError(msgNotFriends)
	}
	if err != nil {
		return failed(msgSendFriendFailed, err)
	}

	profile := c.Profile()
	msg.Sender = &profile

	h.broadcast(mailbox(req.RecipientID), nil, models.EventFriendMessage, msg)
	c.Emit(models.EventFriendMessageSent, msg)
	return nil
}
