package commands

import (
	"context"
	"log/slog"

	"coursereg/internal/infra"
	"coursereg/internal/infra/db"
	"coursereg/internal/infra/uow"
	"coursereg/internal/observability"
	"coursereg/internal/pkg/clock"
	"coursereg/internal/pkg/config"
	"coursereg/internal/pkg/errs"

	"github.com/google/uuid"
)

type PromotionCommands interface {
	// PromoteNext offers a freed seat to the head of the cohort's waitlist.
	// Returns false when nothing was promoted (empty queue or no free seat).
	PromoteNext(ctx context.Context, cohortID uuid.UUID) (bool, error)
}

type promotionCommandsImpl struct {
	runner  uow.Runner
	ledger  CapacityLedger
	wl      WaitlistRepository
	jobs    JobQueue
	clock   clock.Clock
	cfg     config.RegistrationConfig
	metrics *observability.Metrics
}

func NewPromotionCommands(
	runner uow.Runner,
	ledger CapacityLedger,
	wl WaitlistRepository,
	jobs JobQueue,
	clk clock.Clock,
	cfg config.RegistrationConfig,
	metrics *observability.Metrics,
) PromotionCommands {
	return &promotionCommandsImpl{
		runner:  runner,
		ledger:  ledger,
		wl:      wl,
		jobs:    jobs,
		clock:   clk,
		cfg:     cfg,
		metrics: metrics,
	}
}

// PromoteNext reserves the seat FIRST, then marks the head entry offered.
// The offer therefore always has a seat behind it; converting the offer
// skips the ledger entirely. If the head entry changed under us the seat is
// released again and the next sweep re-runs the promotion.
func (c *promotionCommandsImpl) PromoteNext(ctx context.Context, cohortID uuid.UUID) (bool, error) {
	now := c.clock.Now()
	var promoted bool

	err := c.runner.Within(ctx, func(ctx context.Context, tx db.DBTX) error {
		promoted = false

		entry, err := c.wl.PeekNext(ctx, tx, cohortID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil
			}
			return err
		}

		reserved, err := c.ledger.TryReserve(ctx, tx, cohortID)
		if err != nil {
			return err
		}
		if !reserved {
			return nil
		}

		offered, err := c.wl.MarkOffered(ctx, tx, entry.ID, now.Add(c.cfg.OfferWindow))
		if err != nil {
			return err
		}
		if !offered {
			slog.Debug("waitlist head changed during promotion", "cohort_id", cohortID.String())
			return c.ledger.Release(ctx, tx, cohortID)
		}

		if err := enqueueNotification(ctx, tx, c.jobs, entry.LearnerID, TemplateWaitlistOffer, map[string]any{
			"cohort_id":        cohortID.String(),
			"offer_expires_at": now.Add(c.cfg.OfferWindow),
		}, now); err != nil {
			return err
		}
		promoted = true
		return nil
	})
	if err != nil {
		return false, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if promoted {
		c.metrics.PromotionsTotal.Inc()
	}
	return promoted, nil
}
