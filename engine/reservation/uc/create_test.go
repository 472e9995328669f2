package uc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentabot/rentabot/engine/core"
	"github.com/rentabot/rentabot/engine/reservation"
	"github.com/rentabot/rentabot/engine/resource"
	"github.com/rentabot/rentabot/pkg/logger"
)

func testContext() context.Context {
	return logger.ContextWithLogger(context.Background(), logger.NewForTests())
}

func newStores() (*resource.Store, *reservation.Store) {
	resources := resource.NewStore()
	resources.Populate([]resource.Resource{
		{ID: 1, Name: "bot-1", Tags: "ubuntu, docker", MaxLockDuration: resource.DefaultMaxLockDuration, LockDetails: resource.DetailsAvailableInitial},
		{ID: 2, Name: "bot-2", Tags: "ubuntu", MaxLockDuration: 600, LockDetails: resource.DetailsAvailableInitial},
	})
	reservations := reservation.NewStoreWithClock(resources.Now, reservation.DefaultClaimWindow)
	return resources, reservations
}

func coreCode(t *testing.T, err error) string {
	t.Helper()
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	return coreErr.Code
}

func TestCreate(t *testing.T) {
	t.Run("Should enqueue a valid reservation with defaults applied", func(t *testing.T) {
		resources, reservations := newStores()
		created, err := NewCreate(resources, reservations, nil, &CreateInput{
			Tags:     []string{"ubuntu"},
			Quantity: 1,
		}).Execute(testContext())
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusPending, created.Status)
		assert.Equal(t, reservation.DefaultTTL, created.TTL)
		assert.Equal(t, time.Duration(reservation.DefaultMaxWaitTime)*time.Second, created.ExpiresAt.Sub(created.CreatedAt))
	})
	t.Run("Should queue even when every matching resource is locked", func(t *testing.T) {
		resources, reservations := newStores()
		_, _, err := resources.Lock(1, 120)
		require.NoError(t, err)
		_, _, err = resources.Lock(2, 120)
		require.NoError(t, err)
		created, err := NewCreate(resources, reservations, nil, &CreateInput{
			Tags:     []string{"ubuntu"},
			Quantity: 2,
			TTL:      300,
		}).Execute(testContext())
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusPending, created.Status)
	})
	t.Run("Should refuse an empty tag list", func(t *testing.T) {
		resources, reservations := newStores()
		_, err := NewCreate(resources, reservations, nil, &CreateInput{Quantity: 1}).Execute(testContext())
		require.Error(t, err)
		assert.Equal(t, core.ErrCodeInvalidReservationTags, coreCode(t, err))
		assert.Contains(t, err.Error(), "Tags list cannot be empty")
	})
	t.Run("Should refuse a non-positive quantity", func(t *testing.T) {
		resources, reservations := newStores()
		_, err := NewCreate(resources, reservations, nil, &CreateInput{
			Tags: []string{"ubuntu"},
		}).Execute(testContext())
		assert.Equal(t, core.ErrCodeBadRequest, coreCode(t, err))
	})
	t.Run("Should refuse tags no resource carries", func(t *testing.T) {
		resources, reservations := newStores()
		_, err := NewCreate(resources, reservations, nil, &CreateInput{
			Tags:     []string{"gpu"},
			Quantity: 1,
		}).Execute(testContext())
		require.Error(t, err)
		assert.Equal(t, core.ErrCodeResourceNotFound, coreCode(t, err))
		assert.Contains(t, err.Error(), "No resources match the requested tags")
	})
	t.Run("Should refuse when too few resources tolerate the TTL", func(t *testing.T) {
		resources, reservations := newStores()
		_, err := NewCreate(resources, reservations, nil, &CreateInput{
			Tags:     []string{"ubuntu"},
			Quantity: 2,
			TTL:      3600,
		}).Execute(testContext())
		require.Error(t, err)
		assert.Equal(t, core.ErrCodeInvalidTTL, coreCode(t, err))
		assert.Contains(t, err.Error(), "Need 2 compatible resources, found 1")
	})
}

func TestClaimAndCancel(t *testing.T) {
	t.Run("Should claim a fulfilled reservation", func(t *testing.T) {
		resources, reservations := newStores()
		created, err := NewCreate(resources, reservations, nil, &CreateInput{
			Tags:     []string{"ubuntu"},
			Quantity: 1,
			TTL:      300,
		}).Execute(testContext())
		require.NoError(t, err)
		_, ok := reservations.Fulfill(created.ReservationID, []int{1}, []string{"t1"})
		require.True(t, ok)
		claimed, err := NewClaim(reservations, nil, created.ReservationID).Execute(testContext())
		require.NoError(t, err)
		assert.Equal(t, reservation.StatusClaimed, claimed.Status)
	})
	t.Run("Should refuse claiming a pending reservation", func(t *testing.T) {
		resources, reservations := newStores()
		created, err := NewCreate(resources, reservations, nil, &CreateInput{
			Tags:     []string{"ubuntu"},
			Quantity: 1,
			TTL:      300,
		}).Execute(testContext())
		require.NoError(t, err)
		_, err = NewClaim(reservations, nil, created.ReservationID).Execute(testContext())
		assert.Equal(t, core.ErrCodeReservationNotFulfilled, coreCode(t, err))
	})
	t.Run("Should cancel a pending reservation", func(t *testing.T) {
		resources, reservations := newStores()
		created, err := NewCreate(resources, reservations, nil, &CreateInput{
			Tags:     []string{"ubuntu"},
			Quantity: 1,
			TTL:      300,
		}).Execute(testContext())
		require.NoError(t, err)
		require.NoError(t, NewCancel(reservations, nil, created.ReservationID).Execute(testContext()))
		_, err = NewGet(reservations, created.ReservationID).Execute(testContext())
		assert.Equal(t, core.ErrCodeReservationNotFound, coreCode(t, err))
	})
}
