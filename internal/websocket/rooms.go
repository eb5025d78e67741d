package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"collab-realtime/internal/models"
	"collab-realtime/internal/services"

	"github.com/samber/lo"
)

func (h *Hub) joinFriendsChat(ctx context.Context, c *Client, _ json.RawMessage) error {
	userID := c.UserID()
	if !h.registry.JoinRoom(c.id, mailbox(userID)) {
		return nil
	}

	friends, err := h.friends.Friends(ctx, userID)
	if err != nil {
		h.log.Warn("Friend lookup failed", "user_id", userID, "error", err)
		c.Emit(models.EventOnlineFriendsList, models.OnlineFriendsPayload{Friends: []models.Profile{}})
		return nil
	}

	profile := c.Profile()
	friendIDs := lo.Map(friends, func(f *models.Profile, _ int) string { return f.ID })
	h.tasks.Go("friend_online", func(context.Context) error {
		for _, id := range friendIDs {
			h.broadcast(mailbox(id), nil, models.EventFriendOnline, models.PresencePayload{
				UserID: userID,
				User:   &profile,
			})
		}
		return nil
	})

	online := lo.FilterMap(friends, func(f *models.Profile, _ int) (models.Profile, bool) {
		return *f, h.registry.UserOnline(f.ID)
	})
	if online == nil {
		online = []models.Profile{}
	}
	c.Emit(models.EventOnlineFriendsList, models.OnlineFriendsPayload{Friends: online})
	return nil
}

func (h *Hub) joinProjectRooms(ctx context.Context, c *Client, data json.RawMessage) error {
	var req models.JoinProjectRoomsRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}

	chatRooms, err := h.rooms.ProjectRooms(ctx, c.UserID(), req.ProjectID)
	if errors.Is(err, services.ErrNotProjectMember) {
		return userError(msgNotProjectMember)
	}
	if err != nil {
		return failed(msgJoinProjectFailed, err)
	}

	names := make([]string, 0, len(chatRooms)+1)
	names = append(names, projectRoom(req.ProjectID))
	for _, r := range chatRooms {
		names = append(names, chatRoom(r.ID))
	}
	for _, name := range names {
		// The connection may have closed while the store was queried.
		if !h.registry.JoinRoom(c.id, name) {
			return nil
		}
	}

	if chatRooms == nil {
		chatRooms = []*models.ChatRoom{}
	}
	c.Emit(models.EventRoomsJoined, models.RoomsJoinedPayload{
		ProjectID: req.ProjectID,
		Rooms:     names,
		ChatRooms: chatRooms,
	})

	profile := c.Profile()
	h.broadcast(projectRoom(req.ProjectID), c, models.EventUserOnline, models.PresencePayload{
		UserID:    c.UserID(),
		ProjectID: req.ProjectID,
		User:      &profile,
	})
	return nil
}

func (h *Hub) getOnlineUsers(_ context.Context, c *Client, data json.RawMessage) error {
	var req models.OnlineUsersRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	c.Emit(models.EventOnlineUsers, models.OnlineUsersPayload{
		ProjectID: req.ProjectID,
		Users:     h.OnlineUsers(req.ProjectID),
	})
	return nil
}
