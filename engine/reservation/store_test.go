package reservation

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentabot/rentabot/engine/core"
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

func errCode(t *testing.T, err error) string {
	t.Helper()
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	return coreErr.Code
}

func TestStoreCreate(t *testing.T) {
	t.Run("Should enqueue a pending reservation", func(t *testing.T) {
		clock := newFakeClock()
		s := NewStoreWithClock(clock.Now, DefaultClaimWindow)
		r := s.Create([]string{"ubuntu"}, 2, 1800, 600)
		assert.True(t, strings.HasPrefix(r.ReservationID, core.ReservationIDPrefix))
		assert.Equal(t, StatusPending, r.Status)
		assert.Equal(t, []string{"ubuntu"}, r.Tags)
		assert.Equal(t, 2, r.Quantity)
		assert.Equal(t, 600, r.TTL)
		assert.Equal(t, clock.Now(), r.CreatedAt)
		assert.Equal(t, clock.Now().Add(1800*time.Second), r.ExpiresAt)
		assert.Empty(t, r.ResourceIDs)
		assert.Empty(t, r.LockTokens)
	})
	t.Run("Should number queue positions in creation order", func(t *testing.T) {
		s := NewStoreWithClock(newFakeClock().Now, DefaultClaimWindow)
		first := s.Create([]string{"ubuntu"}, 1, 3600, 600)
		second := s.Create([]string{"ubuntu"}, 1, 3600, 600)
		require.NotNil(t, first.PositionInQueue)
		require.NotNil(t, second.PositionInQueue)
		assert.Equal(t, 1, *first.PositionInQueue)
		assert.Equal(t, 2, *second.PositionInQueue)
	})
}

func TestStoreGetAndList(t *testing.T) {
	t.Run("Should return reservations in FIFO order", func(t *testing.T) {
		s := NewStoreWithClock(newFakeClock().Now, DefaultClaimWindow)
		first := s.Create([]string{"a"}, 1, 3600, 600)
		second := s.Create([]string{"b"}, 1, 3600, 600)
		listed := s.List()
		require.Len(t, listed, 2)
		assert.Equal(t, first.ReservationID, listed[0].ReservationID)
		assert.Equal(t, second.ReservationID, listed[1].ReservationID)
	})
	t.Run("Should recompute positions after a cancellation", func(t *testing.T) {
		s := NewStoreWithClock(newFakeClock().Now, DefaultClaimWindow)
		first := s.Create([]string{"a"}, 1, 3600, 600)
		second := s.Create([]string{"b"}, 1, 3600, 600)
		require.NoError(t, s.Cancel(first.ReservationID))
		got, err := s.Get(second.ReservationID)
		require.NoError(t, err)
		require.NotNil(t, got.PositionInQueue)
		assert.Equal(t, 1, *got.PositionInQueue)
	})
	t.Run("Should not assign positions to fulfilled reservations", func(t *testing.T) {
		s := NewStoreWithClock(newFakeClock().Now, DefaultClaimWindow)
		r := s.Create([]string{"a"}, 1, 3600, 600)
		_, ok := s.Fulfill(r.ReservationID, []int{1}, []string{"token"})
		require.True(t, ok)
		got, err := s.Get(r.ReservationID)
		require.NoError(t, err)
		assert.Nil(t, got.PositionInQueue)
	})
	t.Run("Should report an unknown reservation", func(t *testing.T) {
		s := NewStoreWithClock(newFakeClock().Now, DefaultClaimWindow)
		_, err := s.Get("res_missing")
		assert.Equal(t, core.ErrCodeReservationNotFound, errCode(t, err))
	})
}

func TestStoreFulfill(t *testing.T) {
	t.Run("Should transition a pending reservation with its locks", func(t *testing.T) {
		clock := newFakeClock()
		s := NewStoreWithClock(clock.Now, 90*time.Second)
		r := s.Create([]string{"ubuntu"}, 2, 3600, 600)
		fulfilled, ok := s.Fulfill(r.ReservationID, []int{1, 2}, []string{"t1", "t2"})
		require.True(t, ok)
		assert.Equal(t, StatusFulfilled, fulfilled.Status)
		assert.Equal(t, []int{1, 2}, fulfilled.ResourceIDs)
		assert.Equal(t, []string{"t1", "t2"}, fulfilled.LockTokens)
		require.NotNil(t, fulfilled.FulfilledAt)
		require.NotNil(t, fulfilled.ClaimExpiresAt)
		assert.Equal(t, clock.Now().Add(90*time.Second), *fulfilled.ClaimExpiresAt)
	})
	t.Run("Should report when the reservation is no longer pending", func(t *testing.T) {
		s := NewStoreWithClock(newFakeClock().Now, DefaultClaimWindow)
		r := s.Create([]string{"ubuntu"}, 1, 3600, 600)
		require.NoError(t, s.Cancel(r.ReservationID))
		_, ok := s.Fulfill(r.ReservationID, []int{1}, []string{"t1"})
		assert.False(t, ok)
	})
}

func TestStoreClaim(t *testing.T) {
	t.Run("Should claim a fulfilled reservation inside the window", func(t *testing.T) {
		clock := newFakeClock()
		s := NewStoreWithClock(clock.Now, DefaultClaimWindow)
		r := s.Create([]string{"ubuntu"}, 1, 3600, 600)
		_, ok := s.Fulfill(r.ReservationID, []int{1}, []string{"t1"})
		require.True(t, ok)
		clock.Advance(30 * time.Second)
		claimed, err := s.Claim(r.ReservationID)
		require.NoError(t, err)
		assert.Equal(t, StatusClaimed, claimed.Status)
		require.NotNil(t, claimed.ClaimedAt)
		assert.Equal(t, []string{"t1"}, claimed.LockTokens)
	})
	t.Run("Should refuse claiming a pending reservation", func(t *testing.T) {
		s := NewStoreWithClock(newFakeClock().Now, DefaultClaimWindow)
		r := s.Create([]string{"ubuntu"}, 1, 3600, 600)
		_, err := s.Claim(r.ReservationID)
		assert.Equal(t, core.ErrCodeReservationNotFulfilled, errCode(t, err))
	})
	t.Run("Should hide an already claimed reservation", func(t *testing.T) {
		s := NewStoreWithClock(newFakeClock().Now, DefaultClaimWindow)
		r := s.Create([]string{"ubuntu"}, 1, 3600, 600)
		_, ok := s.Fulfill(r.ReservationID, []int{1}, []string{"t1"})
		require.True(t, ok)
		_, err := s.Claim(r.ReservationID)
		require.NoError(t, err)
		_, err = s.Claim(r.ReservationID)
		assert.Equal(t, core.ErrCodeReservationNotFound, errCode(t, err))
	})
	t.Run("Should refuse claiming after the window expired", func(t *testing.T) {
		clock := newFakeClock()
		s := NewStoreWithClock(clock.Now, DefaultClaimWindow)
		r := s.Create([]string{"ubuntu"}, 1, 3600, 600)
		_, ok := s.Fulfill(r.ReservationID, []int{1}, []string{"t1"})
		require.True(t, ok)
		clock.Advance(DefaultClaimWindow + time.Second)
		_, err := s.Claim(r.ReservationID)
		assert.Equal(t, core.ErrCodeReservationClaimExpired, errCode(t, err))
	})
}

func TestStoreCancel(t *testing.T) {
	t.Run("Should delete a pending reservation", func(t *testing.T) {
		s := NewStoreWithClock(newFakeClock().Now, DefaultClaimWindow)
		r := s.Create([]string{"ubuntu"}, 1, 3600, 600)
		require.NoError(t, s.Cancel(r.ReservationID))
		_, err := s.Get(r.ReservationID)
		assert.Equal(t, core.ErrCodeReservationNotFound, errCode(t, err))
	})
	t.Run("Should refuse cancelling a fulfilled reservation", func(t *testing.T) {
		s := NewStoreWithClock(newFakeClock().Now, DefaultClaimWindow)
		r := s.Create([]string{"ubuntu"}, 1, 3600, 600)
		_, ok := s.Fulfill(r.ReservationID, []int{1}, []string{"t1"})
		require.True(t, ok)
		err := s.Cancel(r.ReservationID)
		assert.Equal(t, core.ErrCodeReservationCannotBeCancelled, errCode(t, err))
	})
	t.Run("Should report an unknown reservation", func(t *testing.T) {
		s := NewStoreWithClock(newFakeClock().Now, DefaultClaimWindow)
		err := s.Cancel("res_missing")
		assert.Equal(t, core.ErrCodeReservationNotFound, errCode(t, err))
	})
}

func TestStoreExpiryDeletes(t *testing.T) {
	t.Run("Should delete a pending reservation past its wait deadline", func(t *testing.T) {
		clock := newFakeClock()
		s := NewStoreWithClock(clock.Now, DefaultClaimWindow)
		r := s.Create([]string{"ubuntu"}, 1, 30, 600)
		assert.False(t, s.DeleteExpiredPending(r.ReservationID))
		clock.Advance(31 * time.Second)
		assert.True(t, s.DeleteExpiredPending(r.ReservationID))
		_, err := s.Get(r.ReservationID)
		assert.Error(t, err)
	})
	t.Run("Should not delete a fulfilled reservation as pending", func(t *testing.T) {
		clock := newFakeClock()
		s := NewStoreWithClock(clock.Now, DefaultClaimWindow)
		r := s.Create([]string{"ubuntu"}, 1, 30, 600)
		_, ok := s.Fulfill(r.ReservationID, []int{1}, []string{"t1"})
		require.True(t, ok)
		clock.Advance(31 * time.Second)
		assert.False(t, s.DeleteExpiredPending(r.ReservationID))
	})
	t.Run("Should delete a fulfilled reservation past its claim window", func(t *testing.T) {
		clock := newFakeClock()
		s := NewStoreWithClock(clock.Now, DefaultClaimWindow)
		r := s.Create([]string{"ubuntu"}, 1, 3600, 600)
		_, ok := s.Fulfill(r.ReservationID, []int{1}, []string{"t1"})
		require.True(t, ok)
		assert.False(t, s.DeleteExpiredFulfilled(r.ReservationID))
		clock.Advance(DefaultClaimWindow + time.Second)
		assert.True(t, s.DeleteExpiredFulfilled(r.ReservationID))
	})
	t.Run("Should not delete a claimed reservation", func(t *testing.T) {
		clock := newFakeClock()
		s := NewStoreWithClock(clock.Now, DefaultClaimWindow)
		r := s.Create([]string{"ubuntu"}, 1, 3600, 600)
		_, ok := s.Fulfill(r.ReservationID, []int{1}, []string{"t1"})
		require.True(t, ok)
		_, err := s.Claim(r.ReservationID)
		require.NoError(t, err)
		clock.Advance(DefaultClaimWindow + time.Second)
		assert.False(t, s.DeleteExpiredFulfilled(r.ReservationID))
	})
}
