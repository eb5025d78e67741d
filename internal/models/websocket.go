package models

import (
	"encoding/json"
	"time"
)

type EventType string

// Inbound events.
const (
	EventJoinFriendsChat    EventType = "join_friends_chat"
	EventSendFriendMessage  EventType = "send_friend_message"
	EventJoinProjectRooms   EventType = "join_project_rooms"
	EventSendMessage        EventType = "send_message"
	EventTypingStart        EventType = "typing_start"
	EventTypingStop         EventType = "typing_stop"
	EventGetOnlineUsers     EventType = "get_online_users"
	EventVideoCallJoin      EventType = "video_call_join"
	EventVideoOffer         EventType = "video_offer"
	EventVideoAnswer        EventType = "video_answer"
	EventVideoIceCandidate  EventType = "video_ice_candidate"
	EventVideoCallLeave     EventType = "video_call_leave"
	EventScreenShareStarted EventType = "screen_share_started"
	EventScreenShareStopped EventType = "screen_share_stopped"
	EventVideoCallMessage   EventType = "video_call_message"
)

// Outbound events.
const (
	EventError                 EventType = "error"
	EventConnected             EventType = "connected"
	EventOnlineFriendsList     EventType = "online_friends_list"
	EventFriendOnline          EventType = "friend_online"
	EventFriendMessage         EventType = "friend_message"
	EventFriendMessageSent     EventType = "friend_message_sent"
	EventRoomsJoined           EventType = "rooms_joined"
	EventUserOnline            EventType = "user_online"
	EventUserOffline           EventType = "user_offline"
	EventNewMessage            EventType = "new_message"
	EventMessageSent           EventType = "message_sent"
	EventUserTyping            EventType = "user_typing"
	EventUserStoppedTyping     EventType = "user_stopped_typing"
	EventOnlineUsers           EventType = "online_users"
	EventVideoUserJoined       EventType = "video_user_joined"
	EventVideoCallParticipants EventType = "video_call_participants"
	EventVideoUserLeft         EventType = "video_user_left"
)

// Envelope is the frame exchanged in both directions over the socket.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Inbound payloads

type SendFriendMessageRequest struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Content     string `json:"content"`
}

type JoinProjectRoomsRequest struct {
	ProjectID string `json:"projectId" validate:"required"`
}

// SendMessageRequest accepts any short message type except "system", which
// only the server writes.
type SendMessageRequest struct {
	RoomID           string  `json:"roomId" validate:"required"`
	ProjectID        string  `json:"projectId" validate:"required"`
	Content          string  `json:"content"`
	MessageType      string  `json:"messageType" validate:"omitempty,max=32,ne=system"`
	ReplyToMessageID *string `json:"replyToMessageId"`
}

type TypingRequest struct {
	RoomID    string `json:"roomId" validate:"required"`
	ProjectID string `json:"projectId"`
}

type OnlineUsersRequest struct {
	ProjectID string `json:"projectId" validate:"required"`
}

// SignalRequest covers every video_* event. Payload is relayed untouched.
type SignalRequest struct {
	RoomID       string          `json:"roomId" validate:"required"`
	TargetUserID string          `json:"targetUserId"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

type CallMessageRequest struct {
	RoomID  string `json:"roomId" validate:"required"`
	Message string `json:"message"`
}

// Outbound payloads

type ConnectedPayload struct {
	ConnectionID string  `json:"connectionId"`
	User         Profile `json:"user"`
}

type OnlineFriendsPayload struct {
	Friends []Profile `json:"friends"`
}

type PresencePayload struct {
	UserID    string   `json:"userId"`
	ProjectID string   `json:"projectId,omitempty"`
	User      *Profile `json:"user,omitempty"`
}

type RoomsJoinedPayload struct {
	ProjectID string      `json:"projectId"`
	Rooms     []string    `json:"rooms"`
	ChatRooms []*ChatRoom `json:"chatRooms"`
}

type OnlineUser struct {
	ConnectionID string `json:"connectionId"`
	Profile
}

type OnlineUsersPayload struct {
	ProjectID string       `json:"projectId"`
	Users     []OnlineUser `json:"users"`
}

type TypingPayload struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	RoomID    string `json:"roomId"`
	ProjectID string `json:"projectId,omitempty"`
}

type Participant struct {
	ConnectionID string  `json:"connectionId"`
	UserID       string  `json:"userId"`
	User         Profile `json:"user"`
}

type ParticipantsPayload struct {
	RoomID       string        `json:"roomId"`
	Participants []Participant `json:"participants"`
}

type ParticipantPayload struct {
	RoomID string `json:"roomId"`
	Participant
}

type SignalPayload struct {
	RoomID           string          `json:"roomId"`
	FromUserID       string          `json:"fromUserId"`
	FromConnectionID string          `json:"fromConnectionId"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}

type ScreenSharePayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type CallMessagePayload struct {
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
