package services

import (
	"context"
	"fmt"

	"collab-realtime/internal/models"
)

type FriendService struct {
	db Store
}

func NewFriendService(db Store) *FriendService {
	return &FriendService{db: db}
}

func (s *FriendService) Friends(ctx context.Context, userID string) ([]*models.Profile, error) {
	friends, err := s.db.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return friends, nil
}

// SendMessage checks for an accepted friendship in either direction and
// stores the message.
func (s *FriendService) SendMessage(ctx context.Context, senderID, recipientID, content string) (*models.FriendMessage, error) {
	ok, err := s.db.AreFriends(ctx, senderID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("check friendship: %w", err)
	}
	if !ok {
		return nil, ErrNotFriends
	}

	msg, err := s.db.InsertFriendMessage(ctx, &models.FriendMessage{
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
	})
	if err != nil {
		return nil, fmt.Errorf("insert friend message: %w", err)
	}
	return msg, nil
}
