package websocket

import (
	"sync"
	"time"
)

// RateLimitWindow is a sliding window of send timestamps owned by one
// connection.
type RateLimitWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
}

func NewRateLimitWindow(limit int, window time.Duration) *RateLimitWindow {
	return &RateLimitWindow{
		limit:  limit,
		window: window,
		stamps: make([]time.Time, 0, limit),
	}
}

// Allow records now and returns true if fewer than limit sends happened in
// the window ending at now.
func (w *RateLimitWindow) Allow(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	if len(w.stamps) >= w.limit {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

func (w *RateLimitWindow) Remaining(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	return w.limit - len(w.stamps)
}

func (w *RateLimitWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	w.stamps = w.stamps[i:]
}
