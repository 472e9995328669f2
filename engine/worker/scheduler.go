package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rentabot/rentabot/engine/core"
	"github.com/rentabot/rentabot/engine/infra/monitoring"
	"github.com/rentabot/rentabot/engine/reservation"
	"github.com/rentabot/rentabot/engine/resource"
	"github.com/rentabot/rentabot/pkg/logger"
)

// Scheduler drives the reservation lifecycle: it expires stale
// reservations and matches freed resources to pending ones in FIFO order.
type Scheduler struct {
	resources    *resource.Store
	reservations *reservation.Store
	metrics      *monitoring.Metrics
	interval     time.Duration
}

func NewScheduler(
	resources *resource.Store,
	reservations *reservation.Store,
	metrics *monitoring.Metrics,
	interval time.Duration,
) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		resources:    resources,
		reservations: reservations,
		metrics:      metrics,
		interval:     interval,
	}
}

// Run ticks until the context is cancelled. Errors are logged and
// swallowed; the loop only ends at shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Info("Reservation scheduler started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Reservation scheduler stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs the three scheduler phases, each from a fresh snapshot.
func (s *Scheduler) Tick(ctx context.Context) {
	s.expirePending(ctx)
	s.expireUnclaimed(ctx)
	s.fulfillPending(ctx)
}

// expirePending deletes pending reservations whose wait deadline passed.
func (s *Scheduler) expirePending(ctx context.Context) {
	log := logger.FromContext(ctx)
	now := s.reservations.Now()
	for _, snap := range s.reservations.Snapshot() {
		if snap.Status != reservation.StatusPending || now.Before(snap.ExpiresAt) {
			continue
		}
		if s.reservations.DeleteExpiredPending(snap.ReservationID) {
			s.metrics.ReservationExpired("pending")
			log.Info("Reservation expired while pending", "reservation_id", snap.ReservationID)
		}
	}
}

// expireUnclaimed releases the locks of fulfilled reservations whose
// claim window passed, then deletes them. Locks are released outside the
// reservation mutex since they live in resource state; a missing token is
// normal, the caller may have unlocked already.
func (s *Scheduler) expireUnclaimed(ctx context.Context) {
	log := logger.FromContext(ctx)
	now := s.reservations.Now()
	for _, snap := range s.reservations.Snapshot() {
		if snap.Status != reservation.StatusFulfilled {
			continue
		}
		if snap.ClaimExpiresAt == nil || now.Before(*snap.ClaimExpiresAt) {
			continue
		}
		s.releaseTokens(ctx, snap.LockTokens, monitoring.ReleaseReclaimed)
		if s.reservations.DeleteExpiredFulfilled(snap.ReservationID) {
			s.metrics.ReservationExpired("claim")
			log.Info("Unclaimed reservation expired, resources released",
				"reservation_id", snap.ReservationID,
				"resource_ids", snap.ResourceIDs,
			)
		}
	}
}

// fulfillPending walks pending reservations oldest first and batch-locks
// resources for each one that can be satisfied. A reservation that cannot
// be satisfied is skipped rather than stalling the queue, so a later
// reservation can be fulfilled while an earlier one waits.
func (s *Scheduler) fulfillPending(ctx context.Context) {
	log := logger.FromContext(ctx)
	for _, snap := range s.reservations.Snapshot() {
		if snap.Status != reservation.StatusPending {
			continue
		}
		locked, err := s.resources.LockByTags(snap.Tags, snap.Quantity, snap.TTL)
		if err != nil {
			var coreErr *core.Error
			if errors.As(err, &coreErr) && coreErr.Code == core.ErrCodeInsufficientResources {
				continue
			}
			log.Error("Batch lock failed", "reservation_id", snap.ReservationID, "error", err)
			continue
		}
		ids := make([]int, len(locked))
		tokens := make([]string, len(locked))
		for i, r := range locked {
			ids[i] = r.ID
			tokens[i] = r.LockToken
		}
		fulfilled, ok := s.reservations.Fulfill(snap.ReservationID, ids, tokens)
		if !ok {
			// Cancelled while the batch lock ran; release the fresh
			// locks instead of leaking them until TTL expiry.
			s.releaseTokens(ctx, tokens, monitoring.ReleaseReclaimed)
			log.Warn("Reservation vanished during fulfillment, locks released",
				"reservation_id", snap.ReservationID,
			)
			continue
		}
		s.metrics.ReservationFulfilled()
		log.Info("Reservation fulfilled",
			"reservation_id", fulfilled.ReservationID,
			"resource_ids", fulfilled.ResourceIDs,
		)
	}
}

func (s *Scheduler) releaseTokens(ctx context.Context, tokens []string, reason string) {
	log := logger.FromContext(ctx)
	for _, token := range tokens {
		if err := s.resources.UnlockByToken(token); err != nil {
			var coreErr *core.Error
			if errors.As(err, &coreErr) && coreErr.Code == core.ErrCodeResourceNotFound {
				continue
			}
			log.Error("Failed to release lock token", "error", err)
			continue
		}
		s.metrics.LockReleased(reason)
	}
}
