package worker

import (
	"context"
	"time"

	"github.com/rentabot/rentabot/engine/infra/monitoring"
	"github.com/rentabot/rentabot/engine/resource"
	"github.com/rentabot/rentabot/pkg/logger"
)

// DefaultInterval is the cadence of both background loops.
const DefaultInterval = 10 * time.Second

// Reaper periodically unlocks resources whose lock TTL has elapsed.
// Expiry latency is bounded by the tick interval.
type Reaper struct {
	resources *resource.Store
	metrics   *monitoring.Metrics
	interval  time.Duration
}

func NewReaper(resources *resource.Store, metrics *monitoring.Metrics, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reaper{resources: resources, metrics: metrics, interval: interval}
}

// Run ticks until the context is cancelled. Errors are logged and
// swallowed; the loop only ends at shutdown.
func (r *Reaper) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Info("Lock expiration reaper started", "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Lock expiration reaper stopped")
			return nil
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs one reap pass: snapshot the catalog outside the mutex, then
// re-check each expired candidate against the current record before
// clearing it, since the user may have unlocked or extended meanwhile.
func (r *Reaper) Tick(ctx context.Context) {
	log := logger.FromContext(ctx)
	now := r.resources.Now()
	for _, snap := range r.resources.List() {
		if !snap.IsLocked() || snap.LockExpiresAt == nil || now.Before(*snap.LockExpiresAt) {
			continue
		}
		expired, err := r.resources.ExpireLock(snap.ID)
		if err != nil {
			log.Error("Lock expiry failed", "resource_id", snap.ID, "error", err)
			continue
		}
		if expired {
			r.metrics.LockReleased(monitoring.ReleaseExpired)
			log.Info("Lock auto-expired", "resource_id", snap.ID, "resource_name", snap.Name)
		}
	}
}
