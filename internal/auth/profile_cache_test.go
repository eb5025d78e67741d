package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"collab-realtime/internal/mocks"
	"collab-realtime/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestProfileCache_RefreshesAfterFreshnessWindow(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockProfileRepository(ctrl)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := NewProfileCache(repo, 5*time.Minute)
	cache.now = clock.Now

	repo.EXPECT().GetProfileByID(gomock.Any(), "u-1").
		Return(&models.Profile{ID: "u-1", Username: "first"}, nil).Times(1)

	// Given a first read populates the cache
	p, err := cache.Get(context.Background(), "u-1")
	req.NoError(err)
	req.Equal("first", p.Username)

	// When read again inside the window, the store is not hit
	clock.Advance(4 * time.Minute)
	p, err = cache.Get(context.Background(), "u-1")
	req.NoError(err)
	req.Equal("first", p.Username)

	// When the window has elapsed, the entry counts as absent
	clock.Advance(time.Minute)
	_, ok := cache.Peek("u-1")
	req.False(ok)

	repo.EXPECT().GetProfileByID(gomock.Any(), "u-1").
		Return(&models.Profile{ID: "u-1", Username: "second"}, nil).Times(1)
	p, err = cache.Get(context.Background(), "u-1")
	req.NoError(err)
	req.Equal("second", p.Username)
}

func TestProfileCache_ErrorIsNotCached(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockProfileRepository(ctrl)
	cache := NewProfileCache(repo, time.Minute)

	gomock.InOrder(
		repo.EXPECT().GetProfileByID(gomock.Any(), "u-2").Return(nil, errors.New("boom")),
		repo.EXPECT().GetProfileByID(gomock.Any(), "u-2").Return(&models.Profile{ID: "u-2"}, nil),
	)

	_, err := cache.Get(context.Background(), "u-2")
	req.Error(err)
	req.Equal(0, cache.Len())

	p, err := cache.Get(context.Background(), "u-2")
	req.NoError(err)
	req.Equal("u-2", p.ID)
}

func TestProfileCache_PurgeDropsStaleEntries(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockProfileRepository(ctrl)
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cache := NewProfileCache(repo, time.Minute)
	cache.now = clock.Now

	repo.EXPECT().GetProfileByID(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id string) (*models.Profile, error) {
			return &models.Profile{ID: id}, nil
		}).Times(2)

	_, _ = cache.Get(context.Background(), "old")
	clock.Advance(2 * time.Minute)
	_, _ = cache.Get(context.Background(), "new")

	req.Equal(1, cache.Purge())
	req.Equal(1, cache.Len())
	_, ok := cache.Peek("new")
	req.True(ok)
}

func TestProfileCache_SharedLookupOutlivesAbortedCaller(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockProfileRepository(ctrl)
	cache := NewProfileCache(repo, time.Minute)

	entered := make(chan struct{})
	release := make(chan struct{})
	repo.EXPECT().GetProfileByID(gomock.Any(), "u-3").
		DoAndReturn(func(ctx context.Context, id string) (*models.Profile, error) {
			close(entered)
			<-release
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return &models.Profile{ID: id, Username: "carol"}, nil
		}).Times(1)

	// Given a first handshake starts the lookup and then goes away
	firstCtx, abort := context.WithCancel(context.Background())
	go func() { _, _ = cache.Get(firstCtx, "u-3") }()
	<-entered

	// And a second handshake for the same user waits on that lookup
	type result struct {
		p   *models.Profile
		err error
	}
	second := make(chan result, 1)
	go func() {
		p, err := cache.Get(context.Background(), "u-3")
		second <- result{p, err}
	}()
	time.Sleep(20 * time.Millisecond)

	// When the first caller aborts before the store answers
	abort()
	close(release)

	// Then the waiting caller still gets the profile
	got := <-second
	req.NoError(got.err)
	req.Equal("carol", got.p.Username)
	_, ok := cache.Peek("u-3")
	req.True(ok)
}
