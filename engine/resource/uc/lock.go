package uc

import (
	"context"

	"github.com/rentabot/rentabot/engine/infra/monitoring"
	"github.com/rentabot/rentabot/engine/resource"
	"github.com/rentabot/rentabot/pkg/logger"
)

// LockInput carries the parameters for locking a single resource.
type LockInput struct {
	ResourceID int
	TTL        int
}

// LockResult is returned on a successful lock.
type LockResult struct {
	Token    string
	Resource resource.Resource
}

// Lock acquires an exclusive lock on one resource.
type Lock struct {
	store   *resource.Store
	metrics *monitoring.Metrics
	input   *LockInput
}

func NewLock(store *resource.Store, metrics *monitoring.Metrics, input *LockInput) *Lock {
	return &Lock{store: store, metrics: metrics, input: input}
}

func (uc *Lock) Execute(ctx context.Context) (*LockResult, error) {
	log := logger.FromContext(ctx)
	ttl := uc.input.TTL
	if ttl <= 0 {
		ttl = resource.DefaultLockTTL
	}
	token, locked, err := uc.store.Lock(uc.input.ResourceID, ttl)
	if err != nil {
		log.Warn("Lock refused", "resource_id", uc.input.ResourceID, "error", err)
		return nil, err
	}
	uc.metrics.LockAcquired()
	log.Info("Resource locked", "resource_id", locked.ID, "ttl", ttl)
	return &LockResult{Token: token, Resource: locked}, nil
}
