package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"coursereg/internal/domain/payment"
	"coursereg/internal/domain/registration"
	"coursereg/internal/infra"
	"coursereg/internal/infra/db"
	"coursereg/internal/infra/uow"
	"coursereg/internal/observability"
	"coursereg/internal/pkg/clock"
	"coursereg/internal/pkg/config"
	"coursereg/internal/pkg/errs"

	"github.com/google/uuid"
)

// Gateway event kinds as delivered on the webhook.
const (
	EventPaymentCreated = "payment.created"
	EventPaymentPaid    = "payment.paid"
	EventPaymentFailed  = "payment.failed"
	EventRefundIssued   = "refund.issued"
)

// Anomaly kinds recorded by reconciliation.
const (
	AnomalyAmountMismatch    = "amount_mismatch"
	AnomalyUnknownRef        = "unknown_provider_ref"
	AnomalyUnknownKind       = "unknown_event_kind"
	AnomalyPaidAfterClosure  = "paid_after_terminal"
	AnomalyRefConflict       = "provider_ref_conflict"
	AnomalyRefundUncompleted = "refund_without_completion"
)

// applyOutcome classifies a single event application for metrics and for the
// intake queue's disposition.
type applyOutcome string

const (
	outcomeApplied   applyOutcome = "applied"
	outcomeDuplicate applyOutcome = "duplicate"
	outcomeAnomaly   applyOutcome = "anomaly"
	outcomeRetry     applyOutcome = "retry"
)

type ReconcileCommands interface {
	// IntakeGatewayEvent durably queues a delivery. It never rejects a
	// well-formed event; processing happens asynchronously.
	IntakeGatewayEvent(ctx context.Context, ev IntakeEvent) error
	// ProcessDue drains a batch of queued events and returns how many were
	// settled (processed or failed).
	ProcessDue(ctx context.Context) (int, error)
}

type reconcileCommandsImpl struct {
	runner    uow.Runner
	events    GatewayEventRepository
	payments  PaymentRepository
	regs      RegistrationRepository
	promos    PromoRepository
	ledger    CapacityLedger
	jobs      JobQueue
	audit     Auditor
	anomalies AnomalyRecorder
	clock     clock.Clock
	cfg       config.WorkerConfig
	metrics   *observability.Metrics
}

func NewReconcileCommands(
	runner uow.Runner,
	events GatewayEventRepository,
	payments PaymentRepository,
	regs RegistrationRepository,
	promos PromoRepository,
	ledger CapacityLedger,
	jobs JobQueue,
	audit Auditor,
	anomalies AnomalyRecorder,
	clk clock.Clock,
	cfg config.WorkerConfig,
	metrics *observability.Metrics,
) ReconcileCommands {
	return &reconcileCommandsImpl{
		runner:    runner,
		events:    events,
		payments:  payments,
		regs:      regs,
		promos:    promos,
		ledger:    ledger,
		jobs:      jobs,
		audit:     audit,
		anomalies: anomalies,
		clock:     clk,
		cfg:       cfg,
		metrics:   metrics,
	}
}

func (c *reconcileCommandsImpl) IntakeGatewayEvent(ctx context.Context, ev IntakeEvent) error {
	now := c.clock.Now()
	var inserted bool

	err := c.runner.WithDB(ctx, func(ctx context.Context, d db.DBTX) error {
		var err error
		inserted, err = c.events.Insert(ctx, d, ev, now)
		return err
	})
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if inserted {
		c.metrics.GatewayEventsTotal.WithLabelValues(ev.Kind, "queued").Inc()
	} else {
		c.metrics.GatewayEventsTotal.WithLabelValues(ev.Kind, "redelivery").Inc()
	}
	return nil
}

func (c *reconcileCommandsImpl) ProcessDue(ctx context.Context) (int, error) {
	now := c.clock.Now()
	settled := 0

	err := c.runner.Within(ctx, func(ctx context.Context, tx db.DBTX) error {
		settled = 0
		batch, err := c.events.DueBatch(ctx, tx, now, c.cfg.BatchSize)
		if err != nil {
			return err
		}

		for _, rec := range batch {
			outcome, err := c.apply(ctx, tx, rec, now)
			if err != nil {
				return err
			}
			c.metrics.GatewayEventsTotal.WithLabelValues(rec.Kind, string(outcome)).Inc()

			switch outcome {
			case outcomeRetry:
				if rec.Attempts+1 >= c.cfg.MaxAttempts {
					if err := c.recordAnomaly(ctx, tx, AnomalyUnknownRef, rec, now); err != nil {
						return err
					}
					if err := c.events.MarkFailed(ctx, tx, rec.ID, now); err != nil {
						return err
					}
					settled++
					continue
				}
				if err := c.events.Reschedule(ctx, tx, rec.ID, rec.Attempts+1, now.Add(retryDelay(rec.Attempts+1))); err != nil {
					return err
				}
			case outcomeAnomaly:
				if err := c.events.MarkFailed(ctx, tx, rec.ID, now); err != nil {
					return err
				}
				settled++
			default:
				if err := c.events.MarkProcessed(ctx, tx, rec.ID, now); err != nil {
					return err
				}
				settled++
			}
		}
		return nil
	})
	if err != nil {
		return 0, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return settled, nil
}

// createdPayload is the body of a payment.created delivery; it carries the
// registration the gateway's checkout session was opened for.
type createdPayload struct {
	RegistrationID uuid.UUID `json:"registration_id"`
}

func (c *reconcileCommandsImpl) apply(ctx context.Context, tx db.DBTX, rec GatewayEventRecord, now time.Time) (applyOutcome, error) {
	switch rec.Kind {
	case EventPaymentCreated:
		return c.applyCreated(ctx, tx, rec, now)
	case EventPaymentPaid:
		return c.applyPaid(ctx, tx, rec, now)
	case EventPaymentFailed:
		return c.applyFailed(ctx, tx, rec, now)
	case EventRefundIssued:
		return c.applyRefund(ctx, tx, rec, now)
	default:
		if err := c.recordAnomaly(ctx, tx, AnomalyUnknownKind, rec, now); err != nil {
			return "", err
		}
		return outcomeAnomaly, nil
	}
}

// applyCreated binds the gateway's payment reference to our pending payment.
func (c *reconcileCommandsImpl) applyCreated(ctx context.Context, tx db.DBTX, rec GatewayEventRecord, now time.Time) (applyOutcome, error) {
	var body createdPayload
	if err := json.Unmarshal(rec.Payload, &body); err != nil || body.RegistrationID == uuid.Nil {
		if aErr := c.recordAnomaly(ctx, tx, AnomalyUnknownRef, rec, now); aErr != nil {
			return "", aErr
		}
		return outcomeAnomaly, nil
	}

	pmt, err := c.payments.FindByRegistrationID(ctx, tx, body.RegistrationID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return outcomeRetry, nil
		}
		return "", err
	}

	attached, err := c.payments.AttachProviderRef(ctx, tx, pmt.ID(), rec.ProviderRef)
	if err != nil {
		return "", err
	}
	if attached {
		return outcomeApplied, nil
	}
	if pmt.ProviderRef() != nil && *pmt.ProviderRef() == rec.ProviderRef {
		return outcomeDuplicate, nil
	}
	if err := c.recordAnomaly(ctx, tx, AnomalyRefConflict, rec, now); err != nil {
		return "", err
	}
	return outcomeAnomaly, nil
}

func (c *reconcileCommandsImpl) applyPaid(ctx context.Context, tx db.DBTX, rec GatewayEventRecord, now time.Time) (applyOutcome, error) {
	pmt, outcome, err := c.paymentForRef(ctx, tx, rec, now)
	if pmt == nil {
		return outcome, err
	}

	if pmt.Status() == payment.StatusCompleted || pmt.Status() == payment.StatusRefunded {
		return outcomeDuplicate, nil
	}
	if !pmt.MatchesAmount(rec.AmountCents, rec.Currency) {
		if err := c.recordAnomaly(ctx, tx, AnomalyAmountMismatch, rec, now); err != nil {
			return "", err
		}
		return outcomeAnomaly, nil
	}

	moved, err := c.payments.Transition(ctx, tx, pmt.ID(), pmt.Status(), payment.StatusCompleted, now)
	if err != nil {
		return "", err
	}
	if !moved {
		return outcomeDuplicate, nil
	}

	return c.confirmRegistration(ctx, tx, rec, pmt.RegistrationID(), now)
}

// confirmRegistration settles the registration after its payment completed.
// A paid event landing after the hold expired means money arrived for a seat
// we no longer hold; the payment stays completed and the gap is surfaced as
// an anomaly for staff to refund.
func (c *reconcileCommandsImpl) confirmRegistration(ctx context.Context, tx db.DBTX, rec GatewayEventRecord, registrationID uuid.UUID, now time.Time) (applyOutcome, error) {
	reg, err := c.regs.FindByID(ctx, tx, registrationID)
	if err != nil {
		return "", err
	}

	confirmed, err := c.regs.Transition(ctx, tx, reg.ID, registration.StatusPendingPayment, registration.StatusConfirmed, now)
	if err != nil {
		return "", err
	}
	if !confirmed {
		if reg.Status == registration.StatusConfirmed {
			return outcomeDuplicate, nil
		}
		if err := c.recordAnomaly(ctx, tx, AnomalyPaidAfterClosure, rec, now); err != nil {
			return "", err
		}
		return outcomeAnomaly, nil
	}

	if reg.PromoCodeID != nil {
		consumed, err := c.promos.ConsumeUsage(ctx, tx, *reg.PromoCodeID)
		if err != nil {
			return "", err
		}
		if !consumed {
			// The code sold out between quote and payment. The quoted price
			// stands; the budget overshoot is logged, not charged back.
			slog.Warn("promo usage cap reached after quote",
				"registration_id", reg.ID.String(), "promo_code_id", reg.PromoCodeID.String())
		}
	}

	if err := c.audit.Record(ctx, tx, AuditFact{
		RegistrationID: reg.ID,
		FromStatus:     registration.StatusPendingPayment.String(),
		ToStatus:       registration.StatusConfirmed.String(),
		OccurredAt:     now,
	}); err != nil {
		slog.Warn("audit append failed", "registration_id", reg.ID.String(), "error", err.Error())
	}
	if err := enqueueNotification(ctx, tx, c.jobs, reg.LearnerID, TemplateRegistrationConfirmed, map[string]any{
		"registration_id": reg.ID.String(),
		"cohort_id":       reg.CohortID.String(),
	}, now); err != nil {
		return "", err
	}
	if err := enqueueCertificate(ctx, tx, c.jobs, reg.LearnerID, reg.CohortID, now); err != nil {
		return "", err
	}

	c.metrics.ConfirmationsTotal.Inc()
	return outcomeApplied, nil
}

// applyFailed records the failed attempt. The registration keeps its seat
// and its hold deadline; the learner may retry until the hold lapses.
func (c *reconcileCommandsImpl) applyFailed(ctx context.Context, tx db.DBTX, rec GatewayEventRecord, now time.Time) (applyOutcome, error) {
	pmt, outcome, err := c.paymentForRef(ctx, tx, rec, now)
	if pmt == nil {
		return outcome, err
	}

	if pmt.Status() != payment.StatusPending {
		return outcomeDuplicate, nil
	}
	moved, err := c.payments.Transition(ctx, tx, pmt.ID(), payment.StatusPending, payment.StatusFailed, now)
	if err != nil {
		return "", err
	}
	if !moved {
		return outcomeDuplicate, nil
	}
	return outcomeApplied, nil
}

func (c *reconcileCommandsImpl) applyRefund(ctx context.Context, tx db.DBTX, rec GatewayEventRecord, now time.Time) (applyOutcome, error) {
	pmt, outcome, err := c.paymentForRef(ctx, tx, rec, now)
	if pmt == nil {
		return outcome, err
	}

	if pmt.Status() == payment.StatusRefunded {
		return c.settleRefundedRegistration(ctx, tx, pmt.RegistrationID(), now, outcomeDuplicate)
	}
	moved, err := c.payments.Transition(ctx, tx, pmt.ID(), payment.StatusCompleted, payment.StatusRefunded, now)
	if err != nil {
		return "", err
	}
	if !moved {
		// The gateway refunded money we never booked as completed.
		if err := c.recordAnomaly(ctx, tx, AnomalyRefundUncompleted, rec, now); err != nil {
			return "", err
		}
		return outcomeAnomaly, nil
	}
	return c.settleRefundedRegistration(ctx, tx, pmt.RegistrationID(), now, outcomeApplied)
}

// settleRefundedRegistration moves the registration to refunded and frees
// the seat, unless an administrative cancel already did both.
func (c *reconcileCommandsImpl) settleRefundedRegistration(ctx context.Context, tx db.DBTX, registrationID uuid.UUID, now time.Time, onNoop applyOutcome) (applyOutcome, error) {
	reg, err := c.regs.FindByID(ctx, tx, registrationID)
	if err != nil {
		return "", err
	}

	moved, err := c.regs.Transition(ctx, tx, reg.ID, registration.StatusConfirmed, registration.StatusRefunded, now)
	if err != nil {
		return "", err
	}
	if !moved {
		return onNoop, nil
	}

	if err := releaseSeatAndPromote(ctx, tx, c.ledger, c.jobs, reg.CohortID, now); err != nil {
		return "", err
	}
	if err := c.audit.Record(ctx, tx, AuditFact{
		RegistrationID: reg.ID,
		FromStatus:     registration.StatusConfirmed.String(),
		ToStatus:       registration.StatusRefunded.String(),
		OccurredAt:     now,
	}); err != nil {
		slog.Warn("audit append failed", "registration_id", reg.ID.String(), "error", err.Error())
	}
	if err := enqueueNotification(ctx, tx, c.jobs, reg.LearnerID, TemplateRegistrationRefunded, map[string]any{
		"registration_id": reg.ID.String(),
	}, now); err != nil {
		return "", err
	}
	return outcomeApplied, nil
}

// paymentForRef resolves the payment an event refers to. An unknown ref is
// retried, not failed: the binding created event may still be queued behind
// this one.
func (c *reconcileCommandsImpl) paymentForRef(ctx context.Context, tx db.DBTX, rec GatewayEventRecord, now time.Time) (*payment.Payment, applyOutcome, error) {
	pmt, err := c.payments.FindByProviderRef(ctx, tx, rec.ProviderRef)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, outcomeRetry, nil
		}
		return nil, "", err
	}
	return pmt, "", nil
}

func (c *reconcileCommandsImpl) recordAnomaly(ctx context.Context, tx db.DBTX, kind string, rec GatewayEventRecord, now time.Time) error {
	detail, _ := json.Marshal(map[string]any{
		"provider_event_id": rec.ProviderEventID,
		"kind":              rec.Kind,
		"amount_cents":      rec.AmountCents,
		"currency":          rec.Currency,
	})
	if err := c.anomalies.Record(ctx, tx, kind, rec.ProviderRef, detail, now); err != nil {
		return err
	}
	c.metrics.AnomaliesTotal.WithLabelValues(kind).Inc()
	return nil
}

type certificatePayload struct {
	LearnerID uuid.UUID `json:"learner_id"`
	CohortID  uuid.UUID `json:"cohort_id"`
}

func enqueueCertificate(ctx context.Context, tx db.DBTX, jobs JobQueue, learnerID, cohortID uuid.UUID, now time.Time) error {
	payload, err := json.Marshal(certificatePayload{LearnerID: learnerID, CohortID: cohortID})
	if err != nil {
		return err
	}
	return jobs.Enqueue(ctx, tx, JobKindCertificate, payload, now)
}

// retryDelay backs off linearly in 30s steps. Reconciliation latency is
// bounded by the gateway's own redelivery schedule anyway.
func retryDelay(attempts int32) time.Duration {
	return time.Duration(attempts) * 30 * time.Second
}
