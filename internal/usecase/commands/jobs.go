package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"coursereg/internal/infra/db"
	"coursereg/internal/infra/uow"
	"coursereg/internal/pkg/clock"
	"coursereg/internal/pkg/config"
	"coursereg/internal/pkg/errs"
)

type JobCommands interface {
	// ProcessDue drains a batch of due jobs and returns how many ran.
	ProcessDue(ctx context.Context) (int, error)
}

type jobCommandsImpl struct {
	runner    uow.Runner
	jobs      JobQueue
	promotion PromotionCommands
	notifier  Notifier
	certs     CertificateIssuer
	clock     clock.Clock
	cfg       config.WorkerConfig
}

func NewJobCommands(
	runner uow.Runner,
	jobs JobQueue,
	promotion PromotionCommands,
	notifier Notifier,
	certs CertificateIssuer,
	clk clock.Clock,
	cfg config.WorkerConfig,
) JobCommands {
	return &jobCommandsImpl{
		runner:    runner,
		jobs:      jobs,
		promotion: promotion,
		notifier:  notifier,
		certs:     certs,
		clock:     clk,
		cfg:       cfg,
	}
}

// ProcessDue claims jobs under SKIP LOCKED, then runs each one. Collaborator
// calls happen outside the claiming transaction so a slow notifier cannot
// hold row locks; a job that fails is rescheduled with backoff until its
// attempt budget runs out.
func (c *jobCommandsImpl) ProcessDue(ctx context.Context) (int, error) {
	now := c.clock.Now()

	var batch []JobRecord
	err := c.runner.Within(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		batch, err = c.jobs.DueBatch(ctx, tx, now, c.cfg.BatchSize)
		if err != nil {
			return err
		}
		// Claim by pushing next_attempt_at forward; jobs still running past
		// this horizon get retried, which every handler tolerates.
		for _, job := range batch {
			if err := c.jobs.Reschedule(ctx, tx, job.ID, job.Attempts+1, now.Add(jobClaimWindow)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	ran := 0
	for _, job := range batch {
		if err := c.run(ctx, job); err != nil {
			c.settle(ctx, job, err)
			continue
		}
		c.settle(ctx, job, nil)
		ran++
	}
	return ran, nil
}

const jobClaimWindow = 5 * time.Minute

func (c *jobCommandsImpl) run(ctx context.Context, job JobRecord) error {
	switch job.Kind {
	case JobKindWaitlistPromotion:
		var body promotionPayload
		if err := json.Unmarshal(job.Payload, &body); err != nil {
			return err
		}
		_, err := c.promotion.PromoteNext(ctx, body.CohortID)
		return err
	case JobKindNotification:
		var body notificationPayload
		if err := json.Unmarshal(job.Payload, &body); err != nil {
			return err
		}
		return c.notifier.Send(ctx, body.LearnerID, body.Template, body.Data)
	case JobKindCertificate:
		var body certificatePayload
		if err := json.Unmarshal(job.Payload, &body); err != nil {
			return err
		}
		return c.certs.Issue(ctx, body.LearnerID, body.CohortID)
	default:
		return errs.New("unknown job kind: " + job.Kind)
	}
}

func (c *jobCommandsImpl) settle(ctx context.Context, job JobRecord, runErr error) {
	now := c.clock.Now()
	err := c.runner.WithDB(ctx, func(ctx context.Context, d db.DBTX) error {
		if runErr == nil {
			return c.jobs.MarkDone(ctx, d, job.ID)
		}
		attempts := job.Attempts + 1
		if attempts >= c.cfg.MaxAttempts {
			slog.Error("job exhausted its attempts",
				"job_id", job.ID.String(), "kind", job.Kind, "error", runErr.Error())
			return c.jobs.MarkFailed(ctx, d, job.ID)
		}
		slog.Warn("job failed, rescheduling",
			"job_id", job.ID.String(), "kind", job.Kind, "attempt", attempts, "error", runErr.Error())
		return c.jobs.Reschedule(ctx, d, job.ID, attempts, now.Add(retryDelay(attempts)))
	})
	if err != nil {
		slog.Error("job settlement failed", "job_id", job.ID.String(), "error", err.Error())
	}
}
