package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"collab-realtime/internal/config"
	"collab-realtime/internal/database"
	"collab-realtime/internal/models"
	"collab-realtime/internal/services"
	"collab-realtime/pkg/logger"

	"github.com/stretchr/testify/require"
)

// memStore is an in-memory services.Store.
type memStore struct {
	mu          sync.Mutex
	profiles    map[string]models.Profile
	friends     map[[2]string]bool
	members     map[[2]string]bool
	rooms       map[string]*models.ChatRoom
	messages    map[string]*models.ChatMessage
	chatSaved   []*models.ChatMessage
	friendSaved []*models.FriendMessage
	friendsErr  error
	seq         int
}

var _ services.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		profiles: make(map[string]models.Profile),
		friends:  make(map[[2]string]bool),
		members:  make(map[[2]string]bool),
		rooms:    make(map[string]*models.ChatRoom),
		messages: make(map[string]*models.ChatMessage),
	}
}

func (s *memStore) addUser(id, username string) models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := models.Profile{ID: id, Username: username, FullName: username + " Doe"}
	s.profiles[id] = p
	return p
}

func (s *memStore) befriend(a, b string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friends[[2]string{a, b}] = true
}

func (s *memStore) addMember(userID, projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[[2]string{userID, projectID}] = true
}

func (s *memStore) addRoom(id, projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[id] = &models.ChatRoom{ID: id, ProjectID: projectID, Name: "room " + id}
}

func (s *memStore) savedChat() []*models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.ChatMessage(nil), s.chatSaved...)
}

func (s *memStore) savedFriend() []*models.FriendMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.FriendMessage(nil), s.friendSaved...)
}

func (s *memStore) GetProfileByID(_ context.Context, id string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &p, nil
}

func (s *memStore) AreFriends(_ context.Context, userID, otherID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.friends[[2]string{userID, otherID}] || s.friends[[2]string{otherID, userID}], nil
}

func (s *memStore) ListFriends(_ context.Context, userID string) ([]*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.friendsErr != nil {
		return nil, s.friendsErr
	}
	var out []*models.Profile
	for pair := range s.friends {
		var other string
		switch userID {
		case pair[0]:
			other = pair[1]
		case pair[1]:
			other = pair[0]
		default:
			continue
		}
		p := s.profiles[other]
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) IsActiveMember(_ context.Context, userID, projectID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[[2]string{userID, projectID}], nil
}

func (s *memStore) GetChatRoom(_ context.Context, roomID string) (*models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return r, nil
}

func (s *memStore) ListProjectChatRooms(_ context.Context, projectID string) ([]*models.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ChatRoom
	for _, r := range s.rooms {
		if r.ProjectID == projectID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) InsertChatMessage(_ context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	sender := s.profiles[msg.SenderID]
	saved := *msg
	saved.ID = fmt.Sprintf("m%d", s.seq)
	saved.CreatedAt = time.Now()
	saved.Sender = &sender
	s.messages[saved.ID] = &saved
	s.chatSaved = append(s.chatSaved, &saved)
	out := saved
	return &out, nil
}

func (s *memStore) GetChatMessage(_ context.Context, id string) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (s *memStore) InsertFriendMessage(_ context.Context, msg *models.FriendMessage) (*models.FriendMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	saved := *msg
	saved.ID = fmt.Sprintf("f%d", s.seq)
	saved.CreatedAt = time.Now()
	s.friendSaved = append(s.friendSaved, &saved)
	out := saved
	return &out, nil
}

// countingAdmissions mirrors the gate's provisional counter.
type countingAdmissions struct {
	mu     sync.Mutex
	counts map[string]int
}

func (a *countingAdmissions) admit(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.counts == nil {
		a.counts = make(map[string]int)
	}
	a.counts[userID]++
}

func (a *countingAdmissions) Release(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.counts[userID] <= 1 {
		delete(a.counts, userID)
		return
	}
	a.counts[userID]--
}

func (a *countingAdmissions) Reconcile(isLive func(string) bool) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var removed []string
	for id := range a.counts {
		if !isLive(id) {
			delete(a.counts, id)
			removed = append(removed, id)
		}
	}
	return removed
}

func (a *countingAdmissions) count(userID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts[userID]
}

type testEnv struct {
	hub        *Hub
	store      *memStore
	admissions *countingAdmissions
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Defaults("test-secret").Realtime
	cfg.TypingTimeout = 80 * time.Millisecond

	store := newMemStore()
	admissions := &countingAdmissions{}
	hub := NewHub(Options{
		Config:     cfg,
		Rooms:      services.NewRoomService(store),
		Friends:    services.NewFriendService(store),
		Admissions: admissions,
		Logger:     logger.NewWithLevel(slog.LevelError),
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
	})
	return &testEnv{hub: hub, store: store, admissions: admissions}
}

// connect registers a transport-less client and discards its greeting.
func (e *testEnv) connect(t *testing.T, userID string) *Client {
	t.Helper()
	profile, err := e.store.GetProfileByID(context.Background(), userID)
	if errors.Is(err, database.ErrNotFound) {
		p := e.store.addUser(userID, "user-"+userID)
		profile = &p
	}
	c := NewClient(e.hub, nil, models.Identity{UserID: userID, Role: "authenticated", Profile: *profile})
	e.admissions.admit(userID)
	require.NoError(t, e.hub.Register(c))
	drain(c)
	return c
}

func (e *testEnv) send(t *testing.T, c *Client, event models.EventType, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(models.Envelope{Event: event, Data: data})
	require.NoError(t, err)
	e.hub.Dispatch(c, raw)
}

// drain returns every frame queued for c without waiting.
func drain(c *Client) []models.Envelope {
	var out []models.Envelope
	for {
		select {
		case b := <-c.send:
			var env models.Envelope
			if err := json.Unmarshal(b, &env); err == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

// waitFor blocks until c receives event, skipping anything else.
func waitFor(t *testing.T, c *Client, event models.EventType) models.Envelope {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case b := <-c.send:
			var env models.Envelope
			require.NoError(t, json.Unmarshal(b, &env))
			if env.Event == event {
				return env
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", event)
		}
	}
}

func eventsOf(envs []models.Envelope) []models.EventType {
	out := make([]models.EventType, 0, len(envs))
	for _, e := range envs {
		out = append(out, e.Event)
	}
	return out
}

func only(t *testing.T, envs []models.Envelope, event models.EventType) models.Envelope {
	t.Helper()
	require.Len(t, envs, 1, "got %v", eventsOf(envs))
	require.Equal(t, event, envs[0].Event)
	return envs[0]
}

func payloadOf[T any](t *testing.T, env models.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func errorMessage(t *testing.T, envs []models.Envelope) string {
	t.Helper()
	env := only(t, envs, models.EventError)
	return payloadOf[models.ErrorPayload](t, env).Message
}
