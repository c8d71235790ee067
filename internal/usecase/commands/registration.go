package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"coursereg/internal/domain/cohort"
	"coursereg/internal/domain/payment"
	"coursereg/internal/domain/pricing"
	"coursereg/internal/domain/promo"
	"coursereg/internal/domain/registration"
	"coursereg/internal/domain/waitlist"
	"coursereg/internal/infra"
	"coursereg/internal/infra/db"
	"coursereg/internal/infra/uow"
	"coursereg/internal/observability"
	"coursereg/internal/pkg/clock"
	"coursereg/internal/pkg/config"
	"coursereg/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrCohortNotFound           = errs.New("cohort not found")
	ErrCohortFull               = errs.New("cohort is full")
	ErrAlreadyRegistered        = errs.New("learner already registered for this cohort")
	ErrRegistrationWindowClosed = errs.New("registration window is closed")
	ErrInvalidPromoCode         = errs.New("invalid promo code")
	ErrRegistrationNotFound     = errs.New("registration not found")
	ErrForbidden                = errs.New("actor may not modify this registration")
	ErrAlreadyTerminal          = errs.New("registration is already terminal")
	ErrTransitionConflict       = errs.New("registration changed concurrently")
	ErrAlreadyOnWaitlist        = errs.New("learner already on the waitlist")
	ErrDatabaseOperationFailed  = errs.New("database operation failed")
)

// ActorRole is the caller's authorization level for cancel operations.
type ActorRole string

const (
	RoleLearner ActorRole = "learner"
	RoleStaff   ActorRole = "staff"
)

type CreateRegistrationParams struct {
	LearnerID uuid.UUID
	CohortID  uuid.UUID
	PromoCode *string
}

type CreateRegistrationResult struct {
	RegistrationID uuid.UUID
	Status         registration.Status
	AmountDueCents int64
	Currency       string
	DiscountCents  int64
	ExpiresAt      time.Time
}

type RegistrationCommands interface {
	CreateRegistration(ctx context.Context, params CreateRegistrationParams) (*CreateRegistrationResult, error)
	CancelRegistration(ctx context.Context, registrationID, actorID uuid.UUID, role ActorRole) error
	JoinWaitlist(ctx context.Context, learnerID, cohortID uuid.UUID) (int, error)
}

type registrationCommandsImpl struct {
	runner   uow.Runner
	catalog  CatalogReader
	ledger   CapacityLedger
	regs     RegistrationRepository
	payments PaymentRepository
	promos   PromoRepository
	wl       WaitlistRepository
	jobs     JobQueue
	audit    Auditor
	clock    clock.Clock
	cfg      config.RegistrationConfig
	metrics  *observability.Metrics
}

func NewRegistrationCommands(
	runner uow.Runner,
	catalog CatalogReader,
	ledger CapacityLedger,
	regs RegistrationRepository,
	payments PaymentRepository,
	promos PromoRepository,
	wl WaitlistRepository,
	jobs JobQueue,
	audit Auditor,
	clk clock.Clock,
	cfg config.RegistrationConfig,
	metrics *observability.Metrics,
) RegistrationCommands {
	return &registrationCommandsImpl{
		runner:   runner,
		catalog:  catalog,
		ledger:   ledger,
		regs:     regs,
		payments: payments,
		promos:   promos,
		wl:       wl,
		jobs:     jobs,
		audit:    audit,
		clock:    clk,
		cfg:      cfg,
		metrics:  metrics,
	}
}

// CreateRegistration sequences promo evaluation, seat reservation and
// registration creation inside one transaction. The rollback on any later
// failure is the compensating release for the reserve; a seat can never be
// left orphaned by a half-created registration.
func (c *registrationCommandsImpl) CreateRegistration(ctx context.Context, params CreateRegistrationParams) (*CreateRegistrationResult, error) {
	now := c.clock.Now()
	var result *CreateRegistrationResult

	err := c.runner.Within(ctx, func(ctx context.Context, tx db.DBTX) error {
		ch, err := c.loadOpenCohort(ctx, tx, params.CohortID, now)
		if err != nil {
			return err
		}

		if err := c.ensureNotRegistered(ctx, tx, params.LearnerID, params.CohortID); err != nil {
			return err
		}

		quote, promoID, err := c.evaluatePromo(ctx, tx, params.PromoCode, ch, now)
		if err != nil {
			return err
		}

		if err := c.claimSeat(ctx, tx, ch.ID(), params.LearnerID, now); err != nil {
			return err
		}

		reg, err := registration.NewPendingRegistration(
			params.LearnerID, ch.ID(), quote.FinalPrice, ch.Currency(), promoID, c.cfg.HoldWindow, now,
		)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if err := c.regs.Create(ctx, tx, reg); err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				return ErrAlreadyRegistered
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if err := c.createPendingPayment(ctx, tx, reg, now); err != nil {
			return err
		}

		c.recordAudit(ctx, tx, AuditFact{
			RegistrationID: reg.ID(),
			ActorID:        &params.LearnerID,
			FromStatus:     "",
			ToStatus:       reg.Status().String(),
			OccurredAt:     now,
		})
		if err := enqueueNotification(ctx, tx, c.jobs, params.LearnerID, TemplateRegistrationCreated, map[string]any{
			"registration_id": reg.ID().String(),
			"cohort_id":       ch.ID().String(),
			"amount_cents":    quote.FinalPrice.Cents(),
		}, now); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		result = &CreateRegistrationResult{
			RegistrationID: reg.ID(),
			Status:         reg.Status(),
			AmountDueCents: quote.FinalPrice.Cents(),
			Currency:       ch.Currency(),
			DiscountCents:  quote.Discount.Cents(),
			ExpiresAt:      *reg.ExpiresAt(),
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCohortFull) {
			c.metrics.ReservationsTotal.WithLabelValues("full").Inc()
		}
		return nil, err
	}

	c.metrics.ReservationsTotal.WithLabelValues("reserved").Inc()
	return result, nil
}

func (c *registrationCommandsImpl) loadOpenCohort(ctx context.Context, tx db.DBTX, cohortID uuid.UUID, now time.Time) (*cohort.Cohort, error) {
	snap, err := c.catalog.CohortByID(ctx, tx, cohortID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrCohortNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	price, err := pricing.NewMoney(snap.PriceCents)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	ch, err := cohort.Reconstruct(
		snap.ID, snap.ProgramID, snap.Title, snap.Capacity, snap.EnrolledCount,
		price, snap.Currency,
		snap.RegistrationOpens, snap.RegistrationCloses, snap.StartsAt, snap.EndsAt,
		cohort.AdminState(snap.AdminState),
	)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if !ch.IsRegistrationOpen(now) {
		return nil, ErrRegistrationWindowClosed
	}
	return ch, nil
}

func (c *registrationCommandsImpl) ensureNotRegistered(ctx context.Context, tx db.DBTX, learnerID, cohortID uuid.UUID) error {
	_, err := c.regs.FindHolding(ctx, tx, learnerID, cohortID)
	if err == nil {
		return ErrAlreadyRegistered
	}
	if !infra.IsKind(err, infra.KindNotFound) {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return nil
}

func (c *registrationCommandsImpl) evaluatePromo(ctx context.Context, tx db.DBTX, code *string, ch *cohort.Cohort, now time.Time) (promo.Quote, *uuid.UUID, error) {
	if code == nil || *code == "" {
		return promo.Quote{FinalPrice: ch.Price()}, nil, nil
	}

	pc, err := c.promos.FindByCode(ctx, tx, *code)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return promo.Quote{}, nil, ErrInvalidPromoCode
		}
		return promo.Quote{}, nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	quote, err := pc.Evaluate(ch.Price(), ch.ProgramID(), now)
	if err != nil {
		return promo.Quote{}, nil, errs.Mark(err, ErrInvalidPromoCode)
	}
	id := pc.ID()
	return quote, &id, nil
}

// claimSeat takes the seat either off a live waitlist offer (already held
// for this learner) or from the ledger.
func (c *registrationCommandsImpl) claimSeat(ctx context.Context, tx db.DBTX, cohortID, learnerID uuid.UUID, now time.Time) error {
	entry, err := c.wl.FindLive(ctx, tx, cohortID, learnerID)
	if err != nil && !infra.IsKind(err, infra.KindNotFound) {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if entry != nil && entry.Status() == waitlist.StatusOffered && !entry.OfferLapsed(now) {
		converted, err := c.wl.MarkConverted(ctx, tx, entry.ID(), waitlist.StatusOffered)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if converted {
			// The promoter reserved this seat when it made the offer.
			return nil
		}
	}

	reserved, err := c.ledger.TryReserve(ctx, tx, cohortID)
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if !reserved {
		return ErrCohortFull
	}

	if entry != nil && entry.Status() == waitlist.StatusWaiting {
		// Registering directly ends the learner's wait; the entry must not
		// stay live or the next freed seat would be offered to a seat holder.
		if _, err := c.wl.MarkConverted(ctx, tx, entry.ID(), waitlist.StatusWaiting); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
	}
	return nil
}

func (c *registrationCommandsImpl) createPendingPayment(ctx context.Context, tx db.DBTX, reg *registration.Registration, now time.Time) error {
	p := payment.NewPendingPayment(reg.ID(), reg.AmountDue(), reg.Currency(), now)
	if err := c.payments.Create(ctx, tx, p); err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return nil
}

// CancelRegistration ends a claim. Learners may cancel their own; staff may
// cancel any. A confirmed registration moves to refunded (the refund itself
// is settled by the gateway and reconciled when its event arrives).
func (c *registrationCommandsImpl) CancelRegistration(ctx context.Context, registrationID, actorID uuid.UUID, role ActorRole) error {
	now := c.clock.Now()

	err := c.runner.Within(ctx, func(ctx context.Context, tx db.DBTX) error {
		snap, err := c.regs.FindByID(ctx, tx, registrationID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrRegistrationNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if role != RoleStaff && snap.LearnerID != actorID {
			return ErrForbidden
		}
		if snap.Status.IsTerminal() {
			return ErrAlreadyTerminal
		}

		var target registration.Status
		var template string
		switch snap.Status {
		case registration.StatusPendingPayment:
			target = registration.StatusCanceled
			template = TemplateRegistrationCanceled
		case registration.StatusConfirmed:
			target = registration.StatusRefunded
			template = TemplateRegistrationRefunded
		default:
			return ErrAlreadyTerminal
		}

		won, err := c.regs.Transition(ctx, tx, snap.ID, snap.Status, target, now)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if !won {
			return ErrTransitionConflict
		}

		if err := releaseSeatAndPromote(ctx, tx, c.ledger, c.jobs, snap.CohortID, now); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		c.recordAudit(ctx, tx, AuditFact{
			RegistrationID: snap.ID,
			ActorID:        &actorID,
			FromStatus:     snap.Status.String(),
			ToStatus:       target.String(),
			OccurredAt:     now,
		})
		if err := enqueueNotification(ctx, tx, c.jobs, snap.LearnerID, template, map[string]any{
			"registration_id": snap.ID.String(),
			"cohort_id":       snap.CohortID.String(),
		}, now); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.metrics.ReleasesTotal.Inc()
	return nil
}

// JoinWaitlist enqueues the learner after a CohortFull rejection.
func (c *registrationCommandsImpl) JoinWaitlist(ctx context.Context, learnerID, cohortID uuid.UUID) (int, error) {
	now := c.clock.Now()
	var position int

	err := c.runner.Within(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := c.loadOpenCohort(ctx, tx, cohortID, now); err != nil {
			return err
		}
		if err := c.ensureNotRegistered(ctx, tx, learnerID, cohortID); err != nil {
			return err
		}

		pos, err := c.wl.Enqueue(ctx, tx, cohortID, learnerID)
		if err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				return ErrAlreadyOnWaitlist
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		position = pos
		return nil
	})
	if err != nil {
		return 0, err
	}
	return position, nil
}

func (c *registrationCommandsImpl) recordAudit(ctx context.Context, tx db.DBTX, fact AuditFact) {
	if err := c.audit.Record(ctx, tx, fact); err != nil {
		slog.Warn("audit append failed", "registration_id", fact.RegistrationID.String(), "error", err.Error())
	}
}

// notificationPayload is the job body the dispatcher unmarshals.
type notificationPayload struct {
	LearnerID uuid.UUID      `json:"learner_id"`
	Template  string         `json:"template"`
	Data      map[string]any `json:"data,omitempty"`
}

func enqueueNotification(ctx context.Context, tx db.DBTX, jobs JobQueue, learnerID uuid.UUID, template string, data map[string]any, now time.Time) error {
	payload, err := json.Marshal(notificationPayload{
		LearnerID: learnerID,
		Template:  template,
		Data:      data,
	})
	if err != nil {
		return err
	}
	return jobs.Enqueue(ctx, tx, JobKindNotification, payload, now)
}

type promotionPayload struct {
	CohortID uuid.UUID `json:"cohort_id"`
}

// releaseSeatAndPromote frees the seat and schedules promotion as a
// follow-up job; the cascade of offers never runs inline in the request
// that freed the seat.
func releaseSeatAndPromote(ctx context.Context, tx db.DBTX, ledger CapacityLedger, jobs JobQueue, cohortID uuid.UUID, now time.Time) error {
	if err := ledger.Release(ctx, tx, cohortID); err != nil {
		return err
	}
	payload, err := json.Marshal(promotionPayload{CohortID: cohortID})
	if err != nil {
		return err
	}
	return jobs.Enqueue(ctx, tx, JobKindWaitlistPromotion, payload, now)
}
