package worker

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentabot/rentabot/engine/resource"
	"github.com/rentabot/rentabot/pkg/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testContext() context.Context {
	return logger.ContextWithLogger(context.Background(), logger.NewForTests())
}

func newResourceStore(clock *fakeClock) *resource.Store {
	s := resource.NewStoreWithClock(clock.Now)
	s.Populate([]resource.Resource{
		{ID: 1, Name: "bot-1", Tags: "ubuntu, docker", MaxLockDuration: resource.DefaultMaxLockDuration, LockDetails: resource.DetailsAvailableInitial},
		{ID: 2, Name: "bot-2", Tags: "ubuntu", MaxLockDuration: resource.DefaultMaxLockDuration, LockDetails: resource.DetailsAvailableInitial},
	})
	return s
}

func TestReaperTick(t *testing.T) {
	t.Run("Should release locks whose TTL elapsed", func(t *testing.T) {
		clock := newFakeClock()
		resources := newResourceStore(clock)
		_, _, err := resources.Lock(1, 60)
		require.NoError(t, err)
		clock.Advance(61 * time.Second)
		NewReaper(resources, nil, 0).Tick(testContext())
		got, err := resources.Get(1)
		require.NoError(t, err)
		assert.False(t, got.IsLocked())
		assert.True(t, strings.HasPrefix(got.LockDetails, resource.DetailsAutoExpiredPfx))
	})
	t.Run("Should leave live locks alone", func(t *testing.T) {
		clock := newFakeClock()
		resources := newResourceStore(clock)
		token, _, err := resources.Lock(1, 600)
		require.NoError(t, err)
		clock.Advance(61 * time.Second)
		NewReaper(resources, nil, 0).Tick(testContext())
		got, err := resources.Get(1)
		require.NoError(t, err)
		assert.Equal(t, token, got.LockToken)
	})
	t.Run("Should only expire the elapsed subset", func(t *testing.T) {
		clock := newFakeClock()
		resources := newResourceStore(clock)
		_, _, err := resources.Lock(1, 60)
		require.NoError(t, err)
		_, _, err = resources.Lock(2, 600)
		require.NoError(t, err)
		clock.Advance(120 * time.Second)
		NewReaper(resources, nil, 0).Tick(testContext())
		first, err := resources.Get(1)
		require.NoError(t, err)
		second, err := resources.Get(2)
		require.NoError(t, err)
		assert.False(t, first.IsLocked())
		assert.True(t, second.IsLocked())
	})
}

func TestReaperRun(t *testing.T) {
	t.Run("Should stop when the context is cancelled", func(t *testing.T) {
		clock := newFakeClock()
		resources := newResourceStore(clock)
		reaper := NewReaper(resources, nil, time.Millisecond)
		ctx, cancel := context.WithCancel(testContext())
		done := make(chan error, 1)
		go func() { done <- reaper.Run(ctx) }()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("reaper did not stop")
		}
	})
}
