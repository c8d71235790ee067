package commands

import (
	"context"
	"log/slog"

	"coursereg/internal/domain/registration"
	"coursereg/internal/infra/db"
	"coursereg/internal/infra/uow"
	"coursereg/internal/observability"
	"coursereg/internal/pkg/clock"
	"coursereg/internal/pkg/config"
	"coursereg/internal/pkg/errs"
)

type SweepCommands interface {
	// ExpireHolds closes pending registrations whose hold deadline passed,
	// freeing their seats. Returns how many were expired.
	ExpireHolds(ctx context.Context) (int, error)
	// ExpireOffers lapses waitlist offers whose response window passed. The
	// skipped learner keeps no claim; the freed seat cascades to the next
	// entry.
	ExpireOffers(ctx context.Context) (int, error)
}

type sweepCommandsImpl struct {
	runner  uow.Runner
	regs    RegistrationRepository
	ledger  CapacityLedger
	wl      WaitlistRepository
	jobs    JobQueue
	audit   Auditor
	clock   clock.Clock
	cfg     config.WorkerConfig
	metrics *observability.Metrics
}

func NewSweepCommands(
	runner uow.Runner,
	regs RegistrationRepository,
	ledger CapacityLedger,
	wl WaitlistRepository,
	jobs JobQueue,
	audit Auditor,
	clk clock.Clock,
	cfg config.WorkerConfig,
	metrics *observability.Metrics,
) SweepCommands {
	return &sweepCommandsImpl{
		runner:  runner,
		regs:    regs,
		ledger:  ledger,
		wl:      wl,
		jobs:    jobs,
		audit:   audit,
		clock:   clk,
		cfg:     cfg,
		metrics: metrics,
	}
}

func (c *sweepCommandsImpl) ExpireHolds(ctx context.Context) (int, error) {
	now := c.clock.Now()
	expired := 0

	err := c.runner.Within(ctx, func(ctx context.Context, tx db.DBTX) error {
		expired = 0
		batch, err := c.regs.ListExpired(ctx, tx, now, c.cfg.BatchSize)
		if err != nil {
			return err
		}

		for _, snap := range batch {
			moved, err := c.regs.Transition(ctx, tx, snap.ID,
				registration.StatusPendingPayment, registration.StatusExpired, now)
			if err != nil {
				return err
			}
			if !moved {
				// Lost the race to a payment confirmation. The seat stays.
				continue
			}

			if err := releaseSeatAndPromote(ctx, tx, c.ledger, c.jobs, snap.CohortID, now); err != nil {
				return err
			}
			if err := c.audit.Record(ctx, tx, AuditFact{
				RegistrationID: snap.ID,
				FromStatus:     registration.StatusPendingPayment.String(),
				ToStatus:       registration.StatusExpired.String(),
				OccurredAt:     now,
			}); err != nil {
				slog.Warn("audit append failed", "registration_id", snap.ID.String(), "error", err.Error())
			}
			if err := enqueueNotification(ctx, tx, c.jobs, snap.LearnerID, TemplateRegistrationExpired, map[string]any{
				"registration_id": snap.ID.String(),
				"cohort_id":       snap.CohortID.String(),
			}, now); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if expired > 0 {
		c.metrics.ExpiredHoldsTotal.Add(float64(expired))
	}
	return expired, nil
}

func (c *sweepCommandsImpl) ExpireOffers(ctx context.Context) (int, error) {
	now := c.clock.Now()
	lapsed := 0

	err := c.runner.Within(ctx, func(ctx context.Context, tx db.DBTX) error {
		lapsed = 0
		batch, err := c.wl.ListLapsedOffers(ctx, tx, now, c.cfg.BatchSize)
		if err != nil {
			return err
		}

		for _, entry := range batch {
			moved, err := c.wl.MarkExpired(ctx, tx, entry.ID)
			if err != nil {
				return err
			}
			if !moved {
				continue
			}

			// The promoter reserved a seat for this offer; give it back and
			// let the promotion job hand it to the next entry.
			if err := releaseSeatAndPromote(ctx, tx, c.ledger, c.jobs, entry.CohortID, now); err != nil {
				return err
			}
			if err := enqueueNotification(ctx, tx, c.jobs, entry.LearnerID, TemplateWaitlistOfferExpired, map[string]any{
				"cohort_id": entry.CohortID.String(),
			}, now); err != nil {
				return err
			}
			lapsed++
		}
		return nil
	})
	if err != nil {
		return 0, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return lapsed, nil
}
