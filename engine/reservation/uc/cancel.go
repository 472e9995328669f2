package uc

import (
	"context"

	"github.com/rentabot/rentabot/engine/infra/monitoring"
	"github.com/rentabot/rentabot/engine/reservation"
	"github.com/rentabot/rentabot/pkg/logger"
)

// Cancel removes a pending reservation from the queue. Fulfilled or
// claimed reservations cannot be cancelled: their resources are already
// locked and must be claim-expired or unlocked by token instead.
type Cancel struct {
	reservations *reservation.Store
	metrics      *monitoring.Metrics
	id           string
}

func NewCancel(reservations *reservation.Store, metrics *monitoring.Metrics, id string) *Cancel {
	return &Cancel{reservations: reservations, metrics: metrics, id: id}
}

func (uc *Cancel) Execute(ctx context.Context) error {
	log := logger.FromContext(ctx)
	if err := uc.reservations.Cancel(uc.id); err != nil {
		log.Warn("Cancel refused", "reservation_id", uc.id, "error", err)
		return err
	}
	log.Info("Reservation cancelled", "reservation_id", uc.id)
	return nil
}
