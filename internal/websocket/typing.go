package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"collab-realtime/internal/models"
)

type TypingState int

const (
	TypingIdle TypingState = iota
	TypingActive
)

func (s TypingState) String() string {
	if s == TypingActive {
		return "typing"
	}
	return "idle"
}

type typingKey struct {
	conn string
	room string
}

type typingTimer struct {
	gen   uint64
	timer *time.Timer
}

// TypingTracker holds one state per (connection, room). Typing entries own a
// single timer; idle is the absence of an entry. Each arm gets a new
// generation so a timer that fires after being replaced or cancelled does
// nothing.
type TypingTracker struct {
	timeout time.Duration

	mu      sync.Mutex
	gen     uint64
	entries map[typingKey]*typingTimer
}

func NewTypingTracker(timeout time.Duration) *TypingTracker {
	return &TypingTracker{
		timeout: timeout,
		entries: make(map[typingKey]*typingTimer),
	}
}

// Start moves (conn, room) to typing and arms the expiry timer. It returns
// true only on the idle to typing transition; a start while already typing
// re-arms the timer. onStart, onStop and onExpire run under the tracker lock
// so peers see transitions in the order the tracker makes them. They must
// not block or call back into the tracker.
func (t *TypingTracker) Start(conn, room string, onStart, onExpire func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := typingKey{conn: conn, room: room}
	t.gen++
	gen := t.gen
	timer := time.AfterFunc(t.timeout, func() { t.expire(key, gen, onExpire) })

	if e, ok := t.entries[key]; ok {
		e.timer.Stop()
		e.gen = gen
		e.timer = timer
		return false
	}
	t.entries[key] = &typingTimer{gen: gen, timer: timer}
	if onStart != nil {
		onStart()
	}
	return true
}

// Stop moves (conn, room) back to idle. It returns false if it was idle.
func (t *TypingTracker) Stop(conn, room string, onStop func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := typingKey{conn: conn, room: room}
	e, ok := t.entries[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(t.entries, key)
	if onStop != nil {
		onStop()
	}
	return true
}

// CancelAll drops every timer of conn without running its expiry.
func (t *TypingTracker) CancelAll(conn string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for key, e := range t.entries {
		if key.conn != conn {
			continue
		}
		e.timer.Stop()
		delete(t.entries, key)
		n++
	}
	return n
}

func (t *TypingTracker) State(conn, room string) TypingState {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[typingKey{conn: conn, room: room}]; ok {
		return TypingActive
	}
	return TypingIdle
}

func (t *TypingTracker) expire(key typingKey, gen uint64, onExpire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok || e.gen != gen {
		return
	}
	delete(t.entries, key)
	if onExpire != nil {
		onExpire()
	}
}

func (h *Hub) typingStart(_ context.Context, c *Client, data json.RawMessage) error {
	var req models.TypingRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	room := chatRoom(req.RoomID)
	if !h.registry.IsMember(c.id, room) {
		return nil
	}

	payload := h.typingPayload(c, req)
	h.typing.Start(c.id, room,
		func() { h.broadcast(room, c, models.EventUserTyping, payload) },
		func() { h.broadcast(room, c, models.EventUserStoppedTyping, payload) },
	)
	return nil
}

func (h *Hub) typingStop(_ context.Context, c *Client, data json.RawMessage) error {
	var req models.TypingRequest
	if err := h.decode(data, &req); err != nil {
		return err
	}
	room := chatRoom(req.RoomID)
	payload := h.typingPayload(c, req)
	h.typing.Stop(c.id, room, func() {
		h.broadcast(room, c, models.EventUserStoppedTyping, payload)
	})
	return nil
}

func (h *Hub) typingPayload(c *Client, req models.TypingRequest) models.TypingPayload {
	return models.TypingPayload{
		UserID:    c.UserID(),
		Username:  c.Profile().Username,
		RoomID:    req.RoomID,
		ProjectID: req.ProjectID,
	}
}
