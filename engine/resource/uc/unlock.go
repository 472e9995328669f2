package uc

import (
	"context"

	"github.com/rentabot/rentabot/engine/infra/monitoring"
	"github.com/rentabot/rentabot/engine/resource"
	"github.com/rentabot/rentabot/pkg/logger"
)

// UnlockInput carries the parameters for releasing a lock.
type UnlockInput struct {
	ResourceID int
	Token      string
}

// Unlock releases a held lock, authorized solely by token equality.
type Unlock struct {
	store   *resource.Store
	metrics *monitoring.Metrics
	input   *UnlockInput
}

func NewUnlock(store *resource.Store, metrics *monitoring.Metrics, input *UnlockInput) *Unlock {
	return &Unlock{store: store, metrics: metrics, input: input}
}

func (uc *Unlock) Execute(ctx context.Context) error {
	log := logger.FromContext(ctx)
	if err := uc.store.Unlock(uc.input.ResourceID, uc.input.Token); err != nil {
		log.Warn("Unlock refused", "resource_id", uc.input.ResourceID, "error", err)
		return err
	}
	uc.metrics.LockReleased(monitoring.ReleaseByUser)
	log.Info("Resource unlocked", "resource_id", uc.input.ResourceID)
	return nil
}
