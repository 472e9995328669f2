package reservation

import (
	"sort"
	"sync"
	"time"

	"github.com/rentabot/rentabot/engine/core"
)

// Store holds all reservation state behind its own mutex, independent of
// the resource catalog mutex. Where both are needed the resource side is
// touched first or between explicit release-and-recheck steps.
type Store struct {
	mu          sync.Mutex
	byID        map[string]Reservation
	clock       func() time.Time
	claimWindow time.Duration
	nextSeq     uint64
}

// NewStore creates an empty reservation store using the wall clock and the
// default claim window.
func NewStore() *Store {
	return NewStoreWithClock(time.Now, DefaultClaimWindow)
}

// NewStoreWithClock creates a store with an injectable clock and claim
// window, used by tests and by configuration overrides.
func NewStoreWithClock(clock func() time.Time, claimWindow time.Duration) *Store {
	if claimWindow <= 0 {
		claimWindow = DefaultClaimWindow
	}
	return &Store{
		byID:        make(map[string]Reservation),
		clock:       clock,
		claimWindow: claimWindow,
	}
}

// Now returns the store's notion of current time in UTC.
func (s *Store) Now() time.Time {
	return s.clock().UTC()
}

// Create enqueues a new pending reservation and returns it with its queue
// position filled in.
func (s *Store) Create(tags []string, quantity, maxWaitTime, ttl int) Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	s.nextSeq++
	r := Reservation{
		ReservationID: core.NewReservationID(),
		Status:        StatusPending,
		Tags:          append([]string(nil), tags...),
		Quantity:      quantity,
		TTL:           ttl,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Duration(maxWaitTime) * time.Second),
		ResourceIDs:   []int{},
		LockTokens:    []string{},
		seq:           s.nextSeq,
	}
	s.byID[r.ReservationID] = r
	return s.withPosition(r)
}

// Get returns a copy of the reservation with its computed queue position.
func (s *Store) Get(id string) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return Reservation{}, notFound(id)
	}
	return s.withPosition(r), nil
}

// List returns copies of all reservations, positions filled for pending,
// ordered by creation.
func (s *Store) List() []Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reservation, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, s.withPosition(r))
	}
	sortFIFO(out)
	return out
}

// Claim transitions a fulfilled reservation to claimed, handing ownership
// of its lock tokens to the caller.
func (s *Store) Claim(id string) (Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return Reservation{}, notFound(id)
	}
	switch r.Status {
	case StatusPending:
		return Reservation{}, core.NewError(
			core.ErrCodeReservationNotFulfilled,
			"Reservation is not fulfilled yet",
			map[string]any{"reservation_id": id, "status": string(r.Status)},
		)
	case StatusClaimed:
		// Already claimed reservations are gone from the caller's view.
		return Reservation{}, notFound(id)
	}
	now := s.Now()
	if r.ClaimExpiresAt != nil && !now.Before(*r.ClaimExpiresAt) {
		return Reservation{}, core.NewError(
			core.ErrCodeReservationClaimExpired,
			"Reservation claim window has expired",
			map[string]any{"reservation_id": id, "claim_expires_at": r.ClaimExpiresAt},
		)
	}
	r.Status = StatusClaimed
	r.ClaimedAt = &now
	s.byID[id] = r
	return r, nil
}

// Cancel deletes a pending reservation. Fulfilled or claimed reservations
// have already consumed resources and cannot be cancelled.
func (s *Store) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return notFound(id)
	}
	if r.Status != StatusPending {
		return core.NewError(
			core.ErrCodeReservationCannotBeCancelled,
			"Only pending reservations can be cancelled",
			map[string]any{"reservation_id": id, "status": string(r.Status)},
		)
	}
	delete(s.byID, id)
	return nil
}

// Snapshot returns copies of all reservations without computed positions.
// The scheduler works from snapshots and re-checks under the mutex before
// every state change.
func (s *Store) Snapshot() []Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Reservation, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r)
	}
	sortFIFO(out)
	return out
}

// DeleteExpiredPending deletes the reservation if it is still pending and
// its wait deadline has passed. Returns whether it was deleted.
func (s *Store) DeleteExpiredPending(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok || r.Status != StatusPending {
		return false
	}
	if s.Now().Before(r.ExpiresAt) {
		return false
	}
	delete(s.byID, id)
	return true
}

// DeleteExpiredFulfilled deletes the reservation if it is still fulfilled
// and its claim window has passed. The caller is expected to have released
// the held locks first, outside this mutex.
func (s *Store) DeleteExpiredFulfilled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok || r.Status != StatusFulfilled {
		return false
	}
	if r.ClaimExpiresAt == nil || s.Now().Before(*r.ClaimExpiresAt) {
		return false
	}
	delete(s.byID, id)
	return true
}

// Fulfill transitions a pending reservation to fulfilled with the locked
// resources. Returns false when the reservation is no longer pending (for
// example cancelled while the batch lock ran); the caller then owns the
// cleanup of the just-acquired locks.
func (s *Store) Fulfill(id string, resourceIDs []int, lockTokens []string) (Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok || r.Status != StatusPending {
		return Reservation{}, false
	}
	now := s.Now()
	claimExpires := now.Add(s.claimWindow)
	r.Status = StatusFulfilled
	r.FulfilledAt = &now
	r.ClaimExpiresAt = &claimExpires
	r.ResourceIDs = append([]int(nil), resourceIDs...)
	r.LockTokens = append([]string(nil), lockTokens...)
	s.byID[id] = r
	return r, true
}

// withPosition fills the computed 1-based FIFO position for pending
// reservations. Caller must hold the mutex.
func (s *Store) withPosition(r Reservation) Reservation {
	if r.Status != StatusPending {
		r.PositionInQueue = nil
		return r
	}
	position := 1
	for _, other := range s.byID {
		if other.Status != StatusPending || other.ReservationID == r.ReservationID {
			continue
		}
		if fifoBefore(other, r) {
			position++
		}
	}
	r.PositionInQueue = &position
	return r
}

func sortFIFO(rs []Reservation) {
	sort.Slice(rs, func(i, j int) bool { return fifoBefore(rs[i], rs[j]) })
}

func fifoBefore(a, b Reservation) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.seq < b.seq
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func notFound(id string) *core.Error {
	return core.NewError(
		core.ErrCodeReservationNotFound,
		"Reservation not found",
		map[string]any{"reservation_id": id},
	)
}
