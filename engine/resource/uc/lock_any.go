package uc

import (
	"context"

	"github.com/rentabot/rentabot/engine/core"
	"github.com/rentabot/rentabot/engine/infra/monitoring"
	"github.com/rentabot/rentabot/engine/resource"
	"github.com/rentabot/rentabot/pkg/logger"
)

// LockByCriteriaInput selects a resource by id, name or tag set. Exactly
// one criterion must be provided.
type LockByCriteriaInput struct {
	ID   int
	Name string
	Tags []string
	TTL  int
}

// LockByCriteria resolves a resource from the given criterion and locks
// it. The tag path picks the first unlocked match in id order.
type LockByCriteria struct {
	store   *resource.Store
	metrics *monitoring.Metrics
	input   *LockByCriteriaInput
}

func NewLockByCriteria(store *resource.Store, metrics *monitoring.Metrics, input *LockByCriteriaInput) *LockByCriteria {
	return &LockByCriteria{store: store, metrics: metrics, input: input}
}

func (uc *LockByCriteria) Execute(ctx context.Context) (*LockResult, error) {
	resourceID, err := uc.resolveID(ctx)
	if err != nil {
		return nil, err
	}
	lock := NewLock(uc.store, uc.metrics, &LockInput{ResourceID: resourceID, TTL: uc.input.TTL})
	return lock.Execute(ctx)
}

func (uc *LockByCriteria) resolveID(ctx context.Context) (int, error) {
	log := logger.FromContext(ctx)
	switch {
	case uc.input.ID > 0:
		return uc.input.ID, nil
	case uc.input.Name != "":
		r, err := uc.store.FindByName(uc.input.Name)
		if err != nil {
			log.Warn("Resource not found", "resource_name", uc.input.Name)
			return 0, err
		}
		return r.ID, nil
	case len(uc.input.Tags) > 0:
		matches := uc.store.MatchTags(uc.input.Tags)
		if len(matches) == 0 {
			log.Warn("Resources not found", "tags", uc.input.Tags)
			return 0, core.NewError(
				core.ErrCodeResourceNotFound,
				"No resource found matching the tag(s)",
				map[string]any{"tags": uc.input.Tags},
			)
		}
		for _, r := range matches {
			if !r.IsLocked() {
				return r.ID, nil
			}
		}
		return 0, core.NewError(
			core.ErrCodeResourceAlreadyLocked,
			"No available resource found matching the tag(s)",
			map[string]any{"tags": uc.input.Tags},
		)
	default:
		return 0, core.NewError(
			core.ErrCodeBadRequest,
			"A resource id, name or tag criterion is required",
			nil,
		)
	}
}
