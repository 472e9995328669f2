package uc

import (
	"context"
	"fmt"

	"github.com/rentabot/rentabot/engine/core"
	"github.com/rentabot/rentabot/engine/infra/monitoring"
	"github.com/rentabot/rentabot/engine/reservation"
	"github.com/rentabot/rentabot/engine/resource"
	"github.com/rentabot/rentabot/pkg/logger"
)

// CreateInput carries the parameters for lodging a reservation.
type CreateInput struct {
	Tags        []string
	Quantity    int
	MaxWaitTime int
	TTL         int
}

// Create validates a reservation against the catalog shape and enqueues
// it. Validation checks what the catalog could ever satisfy, not current
// availability: a reservation for currently locked resources still queues.
type Create struct {
	resources    *resource.Store
	reservations *reservation.Store
	metrics      *monitoring.Metrics
	input        *CreateInput
}

func NewCreate(
	resources *resource.Store,
	reservations *reservation.Store,
	metrics *monitoring.Metrics,
	input *CreateInput,
) *Create {
	return &Create{resources: resources, reservations: reservations, metrics: metrics, input: input}
}

func (uc *Create) Execute(ctx context.Context) (*reservation.Reservation, error) {
	log := logger.FromContext(ctx)
	if len(uc.input.Tags) == 0 {
		return nil, core.NewError(
			core.ErrCodeInvalidReservationTags,
			"Tags list cannot be empty",
			nil,
		)
	}
	if uc.input.Quantity <= 0 {
		return nil, core.NewError(
			core.ErrCodeBadRequest,
			"Quantity must be a positive integer",
			map[string]any{"quantity": uc.input.Quantity},
		)
	}
	maxWaitTime := uc.input.MaxWaitTime
	if maxWaitTime <= 0 {
		maxWaitTime = reservation.DefaultMaxWaitTime
	}
	ttl := uc.input.TTL
	if ttl <= 0 {
		ttl = reservation.DefaultTTL
	}
	matches := uc.resources.MatchTags(uc.input.Tags)
	if len(matches) == 0 {
		log.Warn("No resources match reservation tags", "tags", uc.input.Tags)
		return nil, core.NewError(
			core.ErrCodeResourceNotFound,
			"No resources match the requested tags",
			map[string]any{"tags": uc.input.Tags},
		)
	}
	compatible := 0
	for _, r := range matches {
		if r.MaxLockDuration >= ttl {
			compatible++
		}
	}
	if compatible < uc.input.Quantity {
		return nil, core.NewError(
			core.ErrCodeInvalidTTL,
			fmt.Sprintf("Need %d compatible resources, found %d", uc.input.Quantity, compatible),
			map[string]any{
				"tags":       uc.input.Tags,
				"quantity":   uc.input.Quantity,
				"ttl":        ttl,
				"compatible": compatible,
			},
		)
	}
	created := uc.reservations.Create(uc.input.Tags, uc.input.Quantity, maxWaitTime, ttl)
	uc.metrics.ReservationCreated()
	log.Info("Reservation created",
		"reservation_id", created.ReservationID,
		"tags", created.Tags,
		"quantity", created.Quantity,
		"expires_at", created.ExpiresAt,
	)
	return &created, nil
}
