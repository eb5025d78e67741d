package auth

import (
	"context"
	"sync"
	"time"

	"collab-realtime/internal/database"
	"collab-realtime/internal/models"

	"golang.org/x/sync/singleflight"
)

// profileFetchTimeout bounds a shared store lookup. It is detached from the
// caller that started it because other handshakes may be waiting on it.
const profileFetchTimeout = 5 * time.Second

type cachedProfile struct {
	profile   models.Profile
	fetchedAt time.Time
}

// ProfileCache keeps user profiles for a fixed freshness window. A stale
// entry is treated as absent; concurrent refreshes of the same id share a
// single store lookup.
type ProfileCache struct {
	repo    database.ProfileRepository
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]cachedProfile
	group   singleflight.Group
}

func NewProfileCache(repo database.ProfileRepository, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		repo:    repo,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedProfile),
	}
}

// Get returns a fresh profile, reading through to the store on miss or staleness.
func (c *ProfileCache) Get(ctx context.Context, userID string) (*models.Profile, error) {
	if p, ok := c.Peek(userID); ok {
		return &p, nil
	}

	v, err, _ := c.group.Do(userID, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), profileFetchTimeout)
		defer cancel()

		p, err := c.repo.GetProfileByID(fetchCtx, userID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[userID] = cachedProfile{profile: *p, fetchedAt: c.now()}
		c.mu.Unlock()
		return *p, nil
	})
	if err != nil {
		return nil, err
	}
	p := v.(models.Profile)
	return &p, nil
}

// Peek returns the cached profile only while it is fresh.
func (c *ProfileCache) Peek(userID string) (models.Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[userID]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return models.Profile{}, false
	}
	return e.profile, true
}

func (c *ProfileCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// Purge drops stale entries and returns how many were removed.
func (c *ProfileCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for id, e := range c.entries {
		if now.Sub(e.fetchedAt) >= c.ttl {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

func (c *ProfileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
