//go:generate go run go.uber.org/mock/mockgen -source=interfaces.go -destination=../mocks/mock_database.go -package=mocks
package database

import (
	"context"
	"errors"

	"collab-realtime/internal/models"
)

// ErrNotFound is returned by point lookups that match no row.
var ErrNotFound = errors.New("record not found")

type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
}

type ProfileRepository interface {
	GetProfileByID(ctx context.Context, id string) (*models.Profile, error)
}

type FriendshipRepository interface {
	// AreFriends reports an accepted friendship in either direction.
	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
	ListFriends(ctx context.Context, userID string) ([]*models.Profile, error)
}

type ProjectRepository interface {
	// IsActiveMember is true for the project owner and for active members.
	IsActiveMember(ctx context.Context, userID, projectID string) (bool, error)
}

type ChatRoomRepository interface {
	GetChatRoom(ctx context.Context, roomID string) (*models.ChatRoom, error)
	ListProjectChatRooms(ctx context.Context, projectID string) ([]*models.ChatRoom, error)
}

type MessageRepository interface {
	InsertChatMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error)
	GetChatMessage(ctx context.Context, id string) (*models.ChatMessage, error)
	InsertFriendMessage(ctx context.Context, msg *models.FriendMessage) (*models.FriendMessage, error)
}

type Database interface {
	UserRepository
	ProfileRepository
	FriendshipRepository
	ProjectRepository
	ChatRoomRepository
	MessageRepository
	Close() error
}
