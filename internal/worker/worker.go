// Package worker runs the engine's background loops: gateway event
// reconciliation, hold/offer sweeping and follow-up job dispatch.
package worker

import (
	"context"
	"log/slog"
	"time"

	"coursereg/internal/pkg/config"
	"coursereg/internal/usecase/commands"

	"golang.org/x/sync/errgroup"
)

// Manager owns the loops' lifecycle. Start returns once the loops are
// running; Stop cancels them and waits for the current iteration to finish.
type Manager struct {
	reconcile commands.ReconcileCommands
	sweep     commands.SweepCommands
	jobs      commands.JobCommands
	cfg       config.WorkerConfig

	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewManager(
	reconcile commands.ReconcileCommands,
	sweep commands.SweepCommands,
	jobs commands.JobCommands,
	cfg config.WorkerConfig,
) *Manager {
	return &Manager{
		reconcile: reconcile,
		sweep:     sweep,
		jobs:      jobs,
		cfg:       cfg,
	}
}

func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(context.WithoutCancel(ctx))
	m.group, ctx = errgroup.WithContext(ctx)

	m.group.Go(func() error {
		m.loop(ctx, "reconciler", m.cfg.ReconcileInterval, func(ctx context.Context) error {
			_, err := m.reconcile.ProcessDue(ctx)
			return err
		})
		return nil
	})
	m.group.Go(func() error {
		m.loop(ctx, "hold-sweeper", m.cfg.SweepInterval, func(ctx context.Context) error {
			_, err := m.sweep.ExpireHolds(ctx)
			return err
		})
		return nil
	})
	m.group.Go(func() error {
		m.loop(ctx, "offer-sweeper", m.cfg.SweepInterval, func(ctx context.Context) error {
			_, err := m.sweep.ExpireOffers(ctx)
			return err
		})
		return nil
	})
	m.group.Go(func() error {
		m.loop(ctx, "job-dispatcher", m.cfg.JobInterval, func(ctx context.Context) error {
			_, err := m.jobs.ProcessDue(ctx)
			return err
		})
		return nil
	})

	slog.Info("background workers started",
		"reconcile_interval", m.cfg.ReconcileInterval.String(),
		"sweep_interval", m.cfg.SweepInterval.String(),
		"job_interval", m.cfg.JobInterval.String())
}

func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	if err := m.group.Wait(); err != nil {
		slog.Warn("worker shutdown", "error", err.Error())
	}
	slog.Info("background workers stopped")
}

// loop ticks at the given interval. A failing iteration is logged and the
// loop keeps going; transient database errors must not kill reconciliation.
func (m *Manager) loop(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Error("worker iteration failed", "worker", name, "error", err.Error())
			}
		}
	}
}
