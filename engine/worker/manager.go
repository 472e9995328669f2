package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Manager runs the reaper and the scheduler as independent long-running
// loops and joins them at shutdown.
type Manager struct {
	reaper    *Reaper
	scheduler *Scheduler
}

func NewManager(reaper *Reaper, scheduler *Scheduler) *Manager {
	return &Manager{reaper: reaper, scheduler: scheduler}
}

// Run blocks until the context is cancelled and both loops have exited.
func (m *Manager) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.reaper.Run(ctx) })
	g.Go(func() error { return m.scheduler.Run(ctx) })
	return g.Wait()
}
