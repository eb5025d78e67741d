package websocket

import (
	"testing"

	"collab-realtime/internal/models"

	"github.com/stretchr/testify/require"
)

func newRegistryClient(t *testing.T, userID string) *Client {
	t.Helper()
	env := newTestEnv(t)
	return NewClient(env.hub, nil, models.Identity{UserID: userID})
}

func TestRegistry_RegisterIsIdempotentPerHandle(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	c := newRegistryClient(t, "u1")

	// Given the same handle registered twice
	r.Register("u1", c)
	r.JoinRoom(c.ID(), "project_p1")
	r.Register("u1", c)

	// Then it counts once and keeps its membership
	req.Equal(1, r.CountForUser("u1"))
	req.True(r.IsMember(c.ID(), "project_p1"))
}

func TestRegistry_LeaveAllReturnsSnapshotAndPrunesUser(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	a := newRegistryClient(t, "u1")
	b := newRegistryClient(t, "u1")
	r.Register("u1", a)
	r.Register("u1", b)
	r.JoinRoom(a.ID(), "project_p1")
	r.JoinRoom(a.ID(), "chat_r1")
	r.JoinRoom(b.ID(), "project_p1")

	// When the first connection leaves
	rooms := r.LeaveAll(a.ID())

	// Then its rooms are returned and the sibling is untouched
	req.ElementsMatch([]string{"project_p1", "chat_r1"}, rooms)
	req.Equal(1, r.CountForUser("u1"))
	req.True(r.IsMember(b.ID(), "project_p1"))
	req.False(r.IsMember(a.ID(), "project_p1"))

	// When the last connection leaves the user key is gone
	r.LeaveAll(b.ID())
	req.Equal(0, r.CountForUser("u1"))
	req.False(r.UserOnline("u1"))
	req.Equal(RegistryStats{}, r.Stats())
}

func TestRegistry_JoinAfterRemovalIsNoop(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	c := newRegistryClient(t, "u1")
	r.Register("u1", c)
	r.LeaveAll(c.ID())

	req.False(r.JoinRoom(c.ID(), "project_p1"))
	req.Empty(r.ConnectionsInRoom("project_p1"))
	req.Nil(r.LeaveAll(c.ID()))
	req.False(r.LeaveRoom(c.ID(), "project_p1"))
}

func TestRegistry_Lookups(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	a := newRegistryClient(t, "u1")
	b := newRegistryClient(t, "u2")
	c := newRegistryClient(t, "u2")
	r.Register("u1", a)
	r.Register("u2", b)
	r.Register("u2", c)
	r.JoinRoom(a.ID(), "video_v1")
	r.JoinRoom(c.ID(), "video_v1")
	r.JoinRoom(b.ID(), "project_p1")

	req.Equal(c, r.FindInRoom("u2", "video_v1"))
	req.Nil(r.FindInRoom("u2", "video_v2"))
	req.ElementsMatch([]*Client{a, c}, r.ConnectionsInRoom("video_v1"))
	req.Len(r.All(), 3)
	req.Equal(RegistryStats{Connections: 3, Users: 2, Memberships: 3}, r.Stats())

	req.True(r.LeaveRoom(c.ID(), "video_v1"))
	req.Nil(r.FindInRoom("u2", "video_v1"))
}
