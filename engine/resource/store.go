package resource

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rentabot/rentabot/engine/core"
)

// Store is the in-memory resource catalog. Every mutation happens under
// its mutex and replaces the stored record wholesale, so callers holding
// a previously returned copy never observe a half-updated resource.
type Store struct {
	mu    sync.Mutex
	byID  map[int]Resource
	clock func() time.Time
}

// NewStore creates an empty catalog using the wall clock.
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock creates a catalog with an injectable clock. Tests use
// this to drive TTL expiry without sleeping.
func NewStoreWithClock(clock func() time.Time) *Store {
	return &Store{byID: make(map[int]Resource), clock: clock}
}

// Now returns the store's notion of current time in UTC.
func (s *Store) Now() time.Time {
	return s.clock().UTC()
}

// Populate replaces the catalog contents. Called once at startup from the
// descriptor loader.
func (s *Store) Populate(resources []Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[int]Resource, len(resources))
	for _, r := range resources {
		s.byID[r.ID] = r
	}
}

// Get returns a copy of the resource with the given id.
func (s *Store) Get(id int) (Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

func (s *Store) get(id int) (Resource, error) {
	r, ok := s.byID[id]
	if !ok {
		return Resource{}, core.NewError(
			core.ErrCodeResourceNotFound,
			"Resource not found",
			map[string]any{"resource_id": id},
		)
	}
	return r, nil
}

// List returns copies of all resources in id order.
func (s *Store) List() []Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list()
}

func (s *Store) list() []Resource {
	out := make([]Resource, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindByName returns the resource with the given name.
func (s *Store) FindByName(name string) (Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.byID {
		if r.Name == name {
			return r, nil
		}
	}
	return Resource{}, core.NewError(
		core.ErrCodeResourceNotFound,
		"Resource not found",
		map[string]any{"resource_name": name},
	)
}

// MatchTags returns copies of the resources whose declared tags contain
// every required tag, in id order.
func (s *Store) MatchTags(required []string) []Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchTags(required)
}

func (s *Store) matchTags(required []string) []Resource {
	var out []Resource
	for _, r := range s.list() {
		if r.HasTags(required) {
			out = append(out, r)
		}
	}
	return out
}

// Lock acquires an exclusive lock on the resource for ttl seconds and
// returns the fresh token along with the updated record.
func (s *Store) Lock(id, ttl int) (string, Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(id)
	if err != nil {
		return "", Resource{}, err
	}
	if r.IsLocked() {
		return "", Resource{}, core.NewError(
			core.ErrCodeResourceAlreadyLocked,
			"Cannot lock the requested resource, resource is already locked",
			map[string]any{"resource_id": id},
		)
	}
	if err := validateTTL(&r, ttl); err != nil {
		return "", Resource{}, err
	}
	now := s.Now()
	updated := lockRecord(r, core.NewLockToken(), now, ttl)
	s.byID[id] = updated
	return updated.LockToken, updated, nil
}

// Unlock releases the lock identified by token. Unlocks are authorized
// solely by token equality.
func (s *Store) Unlock(id int, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(id)
	if err != nil {
		return err
	}
	if !r.IsLocked() {
		return core.NewError(
			core.ErrCodeResourceAlreadyUnlocked,
			"Resource is already unlocked",
			map[string]any{"resource_id": id},
		)
	}
	if token != r.LockToken {
		return core.NewError(
			core.ErrCodeInvalidLockToken,
			"Cannot unlock resource, the lock token is not valid.",
			map[string]any{"resource_id": id, "invalid-lock-token": token},
		)
	}
	s.byID[id] = unlockRecord(r, DetailsAvailable)
	return nil
}

// Extend refreshes the lock expiry to now + additionalTTL. This is an
// absolute refresh, not an additive extension from the prior expiry.
func (s *Store) Extend(id int, token string, additionalTTL int) (Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(id)
	if err != nil {
		return Resource{}, err
	}
	if !r.IsLocked() {
		return Resource{}, core.NewError(
			core.ErrCodeResourceAlreadyUnlocked,
			"Resource is already unlocked",
			map[string]any{"resource_id": id},
		)
	}
	if token != r.LockToken {
		return Resource{}, core.NewError(
			core.ErrCodeInvalidLockToken,
			"Cannot extend lock, the lock token is not valid.",
			map[string]any{"resource_id": id, "invalid-lock-token": token},
		)
	}
	newExpires := s.Now().Add(time.Duration(additionalTTL) * time.Second)
	if r.LockAcquiredAt != nil {
		total := int(newExpires.Sub(*r.LockAcquiredAt) / time.Second)
		if total > r.MaxLockDuration {
			return Resource{}, core.NewError(
				core.ErrCodeInvalidTTL,
				fmt.Sprintf("Total lock duration %ds would exceed maximum %ds", total, r.MaxLockDuration),
				map[string]any{
					"resource_id":       id,
					"additional_ttl":    additionalTTL,
					"max-lock-duration": r.MaxLockDuration,
				},
			)
		}
	}
	r.LockExpiresAt = &newExpires
	s.byID[id] = r
	return r, nil
}

// UnlockByToken releases whichever resource currently holds the token.
// Used by the fulfillment scheduler to reclaim locks it handed out; a
// NotFound result is normal when the user already unlocked.
func (s *Store) UnlockByToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.byID {
		if r.IsLocked() && r.LockToken == token {
			s.byID[id] = unlockRecord(r, DetailsAvailable)
			return nil
		}
	}
	return core.NewError(
		core.ErrCodeResourceNotFound,
		"No resource currently holds this lock token",
		map[string]any{"lock-token": token},
	)
}

// LockByTags atomically locks quantity unlocked resources matching the
// required tags. Either all of them are locked as a group, or none are.
func (s *Store) LockByTags(required []string, quantity, ttl int) ([]Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var candidates []Resource
	for _, r := range s.matchTags(required) {
		if !r.IsLocked() {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) < quantity {
		return nil, core.NewError(
			core.ErrCodeInsufficientResources,
			fmt.Sprintf("Not enough available resources matching the tag(s): need %d, found %d", quantity, len(candidates)),
			map[string]any{"tags": required, "requested": quantity, "available": len(candidates)},
		)
	}
	selected := candidates[:quantity]
	// TTL must hold for every selected resource before any mutation.
	for i := range selected {
		if err := validateTTL(&selected[i], ttl); err != nil {
			return nil, err
		}
	}
	now := s.Now()
	locked := make([]Resource, 0, quantity)
	for _, r := range selected {
		updated := lockRecord(r, core.NewLockToken(), now, ttl)
		s.byID[updated.ID] = updated
		locked = append(locked, updated)
	}
	return locked, nil
}

// ExpireLock clears the lock on the resource if it is still held and its
// expiry has passed. The reaper calls this after snapshotting, so both
// conditions are re-checked against the current record.
func (s *Store) ExpireLock(id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.get(id)
	if err != nil {
		return false, err
	}
	now := s.Now()
	if !r.IsLocked() || r.LockExpiresAt == nil || now.Before(*r.LockExpiresAt) {
		return false, nil
	}
	s.byID[id] = unlockRecord(r, DetailsAutoExpiredPfx+now.Format(time.RFC3339))
	return true, nil
}

func validateTTL(r *Resource, ttl int) error {
	if ttl > r.MaxLockDuration {
		return core.NewError(
			core.ErrCodeInvalidTTL,
			fmt.Sprintf("TTL %ds exceeds maximum lock duration %ds", ttl, r.MaxLockDuration),
			map[string]any{
				"resource_id":       r.ID,
				"ttl":               ttl,
				"max-lock-duration": r.MaxLockDuration,
			},
		)
	}
	return nil
}

func lockRecord(r Resource, token string, now time.Time, ttl int) Resource {
	expires := now.Add(time.Duration(ttl) * time.Second)
	r.LockToken = token
	r.LockDetails = DetailsLocked
	r.LockAcquiredAt = &now
	r.LockExpiresAt = &expires
	return r
}

func unlockRecord(r Resource, details string) Resource {
	r.LockToken = ""
	r.LockDetails = details
	r.LockAcquiredAt = nil
	r.LockExpiresAt = nil
	return r
}
