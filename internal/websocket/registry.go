package websocket

import (
	"strings"
	"sync"
)

// Room name prefixes. Every broadcast scope is one of these keyed by an id.
const (
	projectRoomPrefix = "project_"
	chatRoomPrefix    = "chat_"
	videoRoomPrefix   = "video_"
	mailboxPrefix     = "user_"
)

func projectRoom(projectID string) string { return projectRoomPrefix + projectID }
func chatRoom(roomID string) string       { return chatRoomPrefix + roomID }
func videoRoom(roomID string) string      { return videoRoomPrefix + roomID }
func mailbox(userID string) string        { return mailboxPrefix + userID }

// RegistryStats is the aggregate reported by the diagnostics timer.
type RegistryStats struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
	Memberships int `json:"memberships"`
}

// Registry maps users to their live connections and connections to the
// rooms they joined. A connection handle belongs to at most one user.
// Lookups by room scan the live connections; callers only see the method
// contracts so an index can replace the scan later.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]*Client             // handle -> client
	users   map[string]map[string]struct{} // userID -> handles
	members map[string]map[string]struct{} // handle -> rooms
}

func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[string]*Client),
		users:   make(map[string]map[string]struct{}),
		members: make(map[string]map[string]struct{}),
	}
}

// Register adds the connection to the user's set and gives it an empty
// membership record. Registering the same handle twice is a no-op.
func (r *Registry) Register(userID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle := c.ID()
	if _, ok := r.conns[handle]; ok {
		return
	}
	r.conns[handle] = c

	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]struct{})
		r.users[userID] = set
	}
	set[handle] = struct{}{}
	r.members[handle] = make(map[string]struct{})
}

// JoinRoom records room for handle. It returns false when the handle is no
// longer registered, which happens when a store round-trip outlives the
// connection.
func (r *Registry) JoinRoom(handle, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[handle]; !ok {
		return false
	}
	rooms, ok := r.members[handle]
	if !ok {
		rooms = make(map[string]struct{})
		r.members[handle] = rooms
	}
	rooms[room] = struct{}{}
	return true
}

// LeaveRoom removes a single membership and reports whether it existed.
func (r *Registry) LeaveRoom(handle, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms, ok := r.members[handle]
	if !ok {
		return false
	}
	if _, ok := rooms[room]; !ok {
		return false
	}
	delete(rooms, room)
	return true
}

// LeaveAll removes the connection from the registry and returns the rooms it
// belonged to.
func (r *Registry) LeaveAll(handle string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[handle]
	if !ok {
		return nil
	}

	snapshot := make([]string, 0, len(r.members[handle]))
	for room := range r.members[handle] {
		snapshot = append(snapshot, room)
	}
	delete(r.members, handle)
	delete(r.conns, handle)

	userID := c.UserID()
	if set, ok := r.users[userID]; ok {
		delete(set, handle)
		if len(set) == 0 {
			delete(r.users, userID)
		}
	}
	return snapshot
}

func (r *Registry) CountForUser(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID])
}

func (r *Registry) UserOnline(userID string) bool {
	return r.CountForUser(userID) > 0
}

func (r *Registry) IsMember(handle, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[handle][room]
	return ok
}

func (r *Registry) RoomsOf(handle string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.members[handle]))
	for room := range r.members[handle] {
		rooms = append(rooms, room)
	}
	return rooms
}

// ConnectionsInRoom returns every connection whose membership includes room.
func (r *Registry) ConnectionsInRoom(room string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Client
	for handle, rooms := range r.members {
		if _, ok := rooms[room]; ok {
			out = append(out, r.conns[handle])
		}
	}
	return out
}

// FindInRoom returns a connection of userID that joined room, or nil. When
// the user has several connections in the room any one of them may be
// returned.
func (r *Registry) FindInRoom(userID, room string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for handle := range r.users[userID] {
		if _, ok := r.members[handle][room]; ok {
			return r.conns[handle]
		}
	}
	return nil
}

func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{Connections: len(r.conns), Users: len(r.users)}
	for _, rooms := range r.members {
		stats.Memberships += len(rooms)
	}
	return stats
}

func isVideoRoom(room string) bool   { return strings.HasPrefix(room, videoRoomPrefix) }
func isProjectRoom(room string) bool { return strings.HasPrefix(room, projectRoomPrefix) }

func projectIDOf(room string) string { return strings.TrimPrefix(room, projectRoomPrefix) }
func videoIDOf(room string) string   { return strings.TrimPrefix(room, videoRoomPrefix) }
