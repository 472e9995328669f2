package uc

import (
	"context"

	"github.com/rentabot/rentabot/engine/infra/monitoring"
	"github.com/rentabot/rentabot/engine/reservation"
	"github.com/rentabot/rentabot/pkg/logger"
)

// Claim accepts a fulfilled reservation, handing ownership of its lock
// tokens to the caller. The caller unlocks them through the lock manager
// when done.
type Claim struct {
	reservations *reservation.Store
	metrics      *monitoring.Metrics
	id           string
}

func NewClaim(reservations *reservation.Store, metrics *monitoring.Metrics, id string) *Claim {
	return &Claim{reservations: reservations, metrics: metrics, id: id}
}

func (uc *Claim) Execute(ctx context.Context) (*reservation.Reservation, error) {
	log := logger.FromContext(ctx)
	claimed, err := uc.reservations.Claim(uc.id)
	if err != nil {
		log.Warn("Claim refused", "reservation_id", uc.id, "error", err)
		return nil, err
	}
	uc.metrics.ReservationClaimed()
	log.Info("Reservation claimed", "reservation_id", claimed.ReservationID, "resource_ids", claimed.ResourceIDs)
	return &claimed, nil
}
