package services

import (
	"context"
	"errors"
	"fmt"

	"collab-realtime/internal/database"
	"collab-realtime/internal/models"

	"golang.org/x/sync/errgroup"
)

var (
	ErrNotProjectMember = errors.New("not a member of this project")
	ErrRoomNotFound     = errors.New("chat room not found")
	ErrNotFriends       = errors.New("users are not friends")
)

// Store is the slice of the database the real-time handlers depend on.
type Store interface {
	database.ProfileRepository
	database.FriendshipRepository
	database.ProjectRepository
	database.ChatRoomRepository
	database.MessageRepository
}

type RoomService struct {
	db Store
}

func NewRoomService(db Store) *RoomService {
	return &RoomService{db: db}
}

// ProjectRooms checks membership and returns the project's chat rooms.
func (s *RoomService) ProjectRooms(ctx context.Context, userID, projectID string) ([]*models.ChatRoom, error) {
	if err := s.RequireProjectMember(ctx, userID, projectID); err != nil {
		return nil, err
	}
	rooms, err := s.db.ListProjectChatRooms(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list chat rooms: %w", err)
	}
	return rooms, nil
}

func (s *RoomService) RequireProjectMember(ctx context.Context, userID, projectID string) error {
	ok, err := s.db.IsActiveMember(ctx, userID, projectID)
	if err != nil {
		return fmt.Errorf("check project membership: %w", err)
	}
	if !ok {
		return ErrNotProjectMember
	}
	return nil
}

// VerifyChatAccess runs the room lookup and the membership check in
// parallel. The room must exist and belong to projectID.
func (s *RoomService) VerifyChatAccess(ctx context.Context, userID, projectID, roomID string) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		room, err := s.db.GetChatRoom(gctx, roomID)
		if errors.Is(err, database.ErrNotFound) {
			return ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("get chat room: %w", err)
		}
		if room.ProjectID != projectID {
			return ErrRoomNotFound
		}
		return nil
	})
	g.Go(func() error {
		return s.RequireProjectMember(gctx, userID, projectID)
	})

	return g.Wait()
}

// SaveMessage persists a chat message; the returned row carries the sender profile.
func (s *RoomService) SaveMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	saved, err := s.db.InsertChatMessage(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}
	return saved, nil
}

func (s *RoomService) ReplyTarget(ctx context.Context, id string) (*models.ChatMessage, error) {
	return s.db.GetChatMessage(ctx, id)
}
