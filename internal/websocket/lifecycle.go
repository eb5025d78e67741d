package websocket

import (
	"context"
	"os"
	"runtime"
	"time"

	"collab-realtime/internal/models"

	"github.com/shirou/gopsutil/process"
)

// Diagnostics is what the stats timer logs and /healthz returns.
type Diagnostics struct {
	RegistryStats
	Goroutines int     `json:"goroutines"`
	RSSBytes   uint64  `json:"rssBytes"`
	CPUPercent float64 `json:"cpuPercent"`
}

// Register records an authenticated connection and greets it.
func (h *Hub) Register(c *Client) error {
	h.life.RLock()
	if h.closed.Load() {
		h.life.RUnlock()
		return ErrHubClosed
	}
	h.registry.Register(c.UserID(), c)
	h.life.RUnlock()

	c.Emit(models.EventConnected, models.ConnectedPayload{ConnectionID: c.id, User: c.Profile()})
	h.log.Info("Client connected", "conn_id", c.id, "user_id", c.UserID(),
		"user_connections", h.registry.CountForUser(c.UserID()))
	return nil
}

// Disconnect unwinds every piece of state owned by c. Only the first call
// has an effect.
func (h *Hub) Disconnect(c *Client, reason string) {
	c.leaveOnce.Do(func() {
		userID := c.UserID()

		for _, room := range h.registry.RoomsOf(c.id) {
			if isVideoRoom(room) {
				h.broadcast(room, c, models.EventVideoUserLeft, models.ParticipantPayload{
					RoomID:      videoIDOf(room),
					Participant: participantOf(c),
				})
			}
		}

		h.typing.CancelAll(c.id)

		if h.admissions != nil {
			h.admissions.Release(userID)
		}

		for _, room := range h.registry.LeaveAll(c.id) {
			if isProjectRoom(room) {
				h.broadcast(room, c, models.EventUserOffline, models.PresencePayload{
					UserID:    userID,
					ProjectID: projectIDOf(room),
				})
			}
		}

		c.Close()
		h.log.Info("Client disconnected", "conn_id", c.id, "user_id", userID, "reason", reason)
	})
}

// Start launches the sweep and stats loops. They stop on Shutdown.
func (h *Hub) Start() {
	h.tasks.Go("sweep", func(ctx context.Context) error {
		return every(ctx, h.cfg.CleanupInterval, func() { h.Sweep() })
	})
	h.tasks.Go("stats", func(ctx context.Context) error {
		return every(ctx, h.cfg.StatsInterval, func() { h.ReportStats() })
	})
}

func every(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}

// Sweep reconciles the handshake counter with the live registry and drops
// stale profiles. It returns the users whose counter entry was removed.
func (h *Hub) Sweep() []string {
	var removed []string
	if h.admissions != nil {
		removed = h.admissions.Reconcile(h.registry.UserOnline)
	}
	purged := 0
	if h.profiles != nil {
		purged = h.profiles.Purge()
	}
	if len(removed) > 0 || purged > 0 {
		h.log.Info("Sweep reclaimed stale entries", "counters", len(removed), "profiles", purged)
	}
	return removed
}

func (h *Hub) Diagnostics() Diagnostics {
	d := Diagnostics{
		RegistryStats: h.registry.Stats(),
		Goroutines:    runtime.NumGoroutine(),
	}

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return d
	}
	if mem, err := p.MemoryInfo(); err == nil {
		d.RSSBytes = mem.RSS
	}
	if cpu, err := p.CPUPercent(); err == nil {
		d.CPUPercent = cpu
	}
	return d
}

func (h *Hub) ReportStats() {
	d := h.Diagnostics()
	h.log.Info("Realtime stats",
		"connections", d.Connections,
		"users", d.Users,
		"memberships", d.Memberships,
		"goroutines", d.Goroutines,
		"rss_bytes", d.RSSBytes,
		"cpu_percent", d.CPUPercent,
	)
}

// Shutdown stops the periodic loops, closes every live connection and waits
// for detached tasks until ctx expires.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.life.Lock()
	swapped := h.closed.CompareAndSwap(false, true)
	h.life.Unlock()
	if !swapped {
		return nil
	}
	h.tasks.Stop()

	clients := h.registry.All()
	for _, c := range clients {
		c.Close()
	}
	h.log.Info("Hub shutting down", "closed_connections", len(clients))
	return h.tasks.Wait(ctx)
}
