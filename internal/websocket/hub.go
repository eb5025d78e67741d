package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"collab-realtime/internal/config"
	"collab-realtime/internal/models"
	"collab-realtime/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

const (
	handlerTimeout     = 10 * time.Second
	replyLookupTimeout = 2 * time.Second
)

// Admissions is the provisional connection counter kept by the handshake gate.
type Admissions interface {
	Release(userID string)
	Reconcile(isLive func(userID string) bool) []string
}

// ProfilePurger drops stale cache entries during the sweep.
type ProfilePurger interface {
	Purge() int
}

type Options struct {
	Config     config.RealtimeConfig
	Rooms      *services.RoomService
	Friends    *services.FriendService
	Admissions Admissions
	Profiles   ProfilePurger
	Logger     *slog.Logger
}

type handlerFunc func(ctx context.Context, c *Client, data json.RawMessage) error

// Hub dispatches inbound events for every connection. A connection's events
// are handled one at a time on its read goroutine; different connections
// run concurrently and share state only through the Registry, the typing
// tracker and the admissions counter.
type Hub struct {
	cfg        config.RealtimeConfig
	rooms      *services.RoomService
	friends    *services.FriendService
	admissions Admissions
	profiles   ProfilePurger
	log        *slog.Logger

	registry *Registry
	typing   *TypingTracker
	tasks    *Detacher
	validate *validator.Validate
	handlers map[models.EventType]handlerFunc
	// life orders Register against Shutdown so no connection is added after
	// Shutdown has taken its snapshot.
	life   sync.RWMutex
	closed atomic.Bool
	now    func() time.Time
}

func NewHub(opts Options) *Hub {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	h := &Hub{
		cfg:        opts.Config,
		rooms:      opts.Rooms,
		friends:    opts.Friends,
		admissions: opts.Admissions,
		profiles:   opts.Profiles,
		log:        log,
		registry:   NewRegistry(),
		typing:     NewTypingTracker(opts.Config.TypingTimeout),
		tasks:      NewDetacher(log),
		validate:   validator.New(),
		now:        time.Now,
	}

	h.handlers = map[models.EventType]handlerFunc{
		models.EventJoinFriendsChat:    h.joinFriendsChat,
		models.EventSendFriendMessage:  h.sendFriendMessage,
		models.EventJoinProjectRooms:   h.joinProjectRooms,
		models.EventSendMessage:        h.sendMessage,
		models.EventTypingStart:        h.typingStart,
		models.EventTypingStop:         h.typingStop,
		models.EventGetOnlineUsers:     h.getOnlineUsers,
		models.EventVideoCallJoin:      h.videoJoin,
		models.EventVideoOffer:         h.relaySignal(models.EventVideoOffer),
		models.EventVideoAnswer:        h.relaySignal(models.EventVideoAnswer),
		models.EventVideoIceCandidate:  h.relaySignal(models.EventVideoIceCandidate),
		models.EventVideoCallLeave:     h.videoLeave,
		models.EventScreenShareStarted: h.screenShare(models.EventScreenShareStarted),
		models.EventScreenShareStopped: h.screenShare(models.EventScreenShareStopped),
		models.EventVideoCallMessage:   h.callMessage,
	}
	return h
}

func (h *Hub) Registry() *Registry { return h.registry }

// Dispatch decodes one frame and runs its handler. No failure escapes: every
// error and panic becomes an error event and the connection stays open.
func (h *Hub) Dispatch(c *Client, raw []byte) {
	var env models.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.emitError(msgInvalidPayload)
		return
	}

	handler, ok := h.handlers[env.Event]
	if !ok {
		h.log.Debug("Unknown event", "conn_id", c.id, "event", env.Event)
		c.emitError(msgUnknownEvent)
		return
	}

	ctx, cancel := context.WithTimeout(h.tasks.ctx, handlerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			h.log.Error("Handler panicked", "event", env.Event, "conn_id", c.id, "panic", fmt.Sprint(r))
			c.emitError(msgInternal)
		}
	}()

	if err := handler(ctx, c, env.Data); err != nil {
		h.report(c, env.Event, err)
	}
}

func (h *Hub) report(c *Client, event models.EventType, err error) {
	var ce *clientError
	if errors.As(err, &ce) {
		h.log.Debug("Event rejected", "event", event, "conn_id", c.id, "user_id", c.UserID(), "reason", ce.msg)
		c.emitError(ce.msg)
		return
	}

	msg := msgInternal
	var ie *internalError
	if errors.As(err, &ie) {
		msg = ie.msg
	}
	h.log.Error("Event failed", "event", event, "conn_id", c.id, "user_id", c.UserID(), "error", err)
	c.emitError(msg)
}

// decode unmarshals data into v and runs the struct's validate tags.
func (h *Hub) decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return userError(msgInvalidPayload)
	}
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && lo.SomeBy(verrs, func(fe validator.FieldError) bool { return fe.Tag() == "required" }) {
		return userError(msgMissingFields)
	}
	return userError(msgInvalidPayload)
}

func encode(event models.EventType, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(models.Envelope{Event: event, Data: data})
}

// broadcast sends to every connection in room except skip. skip may be nil.
func (h *Hub) broadcast(room string, skip *Client, event models.EventType, payload any) int {
	data, err := encode(event, payload)
	if err != nil {
		h.log.Error("Broadcast encode failed", "room", room, "error", err)
		return 0
	}

	sent := 0
	for _, conn := range h.registry.ConnectionsInRoom(room) {
		if conn == skip {
			continue
		}
		if conn.enqueue(data) == nil {
			sent++
		}
	}
	return sent
}

// OnlineUsers lists every connection currently in the project room, ordered
// by username. A user with several connections appears once per connection.
func (h *Hub) OnlineUsers(projectID string) []models.OnlineUser {
	conns := h.registry.ConnectionsInRoom(projectRoom(projectID))
	users := make([]models.OnlineUser, 0, len(conns))
	for _, c := range conns {
		users = append(users, models.OnlineUser{ConnectionID: c.id, Profile: c.Profile()})
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Username != users[j].Username {
			return users[i].Username < users[j].Username
		}
		return users[i].ConnectionID < users[j].ConnectionID
	})
	return users
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

func trimmed(s string) string { return strings.TrimSpace(s) }
