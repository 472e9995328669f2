package uc

import (
	"context"
	"time"

	"github.com/rentabot/rentabot/engine/infra/monitoring"
	"github.com/rentabot/rentabot/engine/resource"
	"github.com/rentabot/rentabot/pkg/logger"
)

// ExtendInput carries the parameters for refreshing a lock expiry.
type ExtendInput struct {
	ResourceID    int
	Token         string
	AdditionalTTL int
}

// ExtendResult is returned on a successful refresh.
type ExtendResult struct {
	Resource resource.Resource
	// TotalLockDuration is the full lock lifetime in seconds, from
	// acquisition to the new expiry.
	TotalLockDuration int
}

// Extend refreshes a lock's expiry to now + additional TTL. The new expiry
// is absolute, it can shorten the lock when the additional TTL is smaller
// than the time remaining.
type Extend struct {
	store   *resource.Store
	metrics *monitoring.Metrics
	input   *ExtendInput
}

func NewExtend(store *resource.Store, metrics *monitoring.Metrics, input *ExtendInput) *Extend {
	return &Extend{store: store, metrics: metrics, input: input}
}

func (uc *Extend) Execute(ctx context.Context) (*ExtendResult, error) {
	log := logger.FromContext(ctx)
	extended, err := uc.store.Extend(uc.input.ResourceID, uc.input.Token, uc.input.AdditionalTTL)
	if err != nil {
		log.Warn("Extend refused", "resource_id", uc.input.ResourceID, "error", err)
		return nil, err
	}
	total := uc.input.AdditionalTTL
	if extended.LockAcquiredAt != nil && extended.LockExpiresAt != nil {
		total = int(extended.LockExpiresAt.Sub(*extended.LockAcquiredAt) / time.Second)
	}
	uc.metrics.LockExtended()
	log.Info("Lock extended", "resource_id", extended.ID, "new_expires_at", extended.LockExpiresAt)
	return &ExtendResult{Resource: extended, TotalLockDuration: total}, nil
}
