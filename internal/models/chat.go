package models

import "time"

const (
	FriendshipAccepted = "accepted"
	MemberActive       = "active"

	DefaultMessageType = "text"
)

type ChatRoom struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is a project chat-room message. Sender is filled from the
// profiles table when the row is written or read back.
type ChatMessage struct {
	ID               string       `json:"id"`
	RoomID           string       `json:"room_id"`
	SenderID         string       `json:"sender_id"`
	Content          string       `json:"content"`
	MessageType      string       `json:"message_type"`
	ReplyToMessageID *string      `json:"reply_to_message_id,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	Sender           *Profile     `json:"sender,omitempty"`
	ReplyTo          *ChatMessage `json:"reply_to,omitempty"`
}

type FriendMessage struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	Sender      *Profile  `json:"sender,omitempty"`
}
