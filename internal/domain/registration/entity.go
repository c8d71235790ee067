package registration

import (
	"errors"
	"time"

	"coursereg/internal/domain/pricing"

	"github.com/google/uuid"
)

var (
	ErrInvalidStatus     = errors.New("invalid registration status")
	ErrInvalidTransition = errors.New("invalid registration transition")
	ErrInvalidHoldWindow = errors.New("hold window must be positive")
)

// Registration is one learner's claim on one cohort seat. It is created
// holding a seat (the reserve is the commit) and payment-pending; all later
// status changes go through storage-level CAS.
type Registration struct {
	id          uuid.UUID
	learnerID   uuid.UUID
	cohortID    uuid.UUID
	status      Status
	amountDue   pricing.Money
	currency    string
	promoCodeID *uuid.UUID
	expiresAt   *time.Time
	confirmedAt *time.Time
	canceledAt  *time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

// NewPendingRegistration creates the initial PENDING_PAYMENT claim with its
// hold deadline. The caller has already reserved the seat.
func NewPendingRegistration(
	learnerID, cohortID uuid.UUID,
	amountDue pricing.Money,
	currency string,
	promoCodeID *uuid.UUID,
	holdWindow time.Duration,
	now time.Time,
) (*Registration, error) {
	if holdWindow <= 0 {
		return nil, ErrInvalidHoldWindow
	}
	expiresAt := now.Add(holdWindow)
	return &Registration{
		id:          uuid.New(),
		learnerID:   learnerID,
		cohortID:    cohortID,
		status:      StatusPendingPayment,
		amountDue:   amountDue,
		currency:    currency,
		promoCodeID: promoCodeID,
		expiresAt:   &expiresAt,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

func Reconstruct(
	id, learnerID, cohortID uuid.UUID,
	status Status,
	amountDue pricing.Money,
	currency string,
	promoCodeID *uuid.UUID,
	expiresAt, confirmedAt, canceledAt *time.Time,
	createdAt, updatedAt time.Time,
) (*Registration, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	return &Registration{
		id:          id,
		learnerID:   learnerID,
		cohortID:    cohortID,
		status:      status,
		amountDue:   amountDue,
		currency:    currency,
		promoCodeID: promoCodeID,
		expiresAt:   expiresAt,
		confirmedAt: confirmedAt,
		canceledAt:  canceledAt,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}, nil
}

func (r *Registration) ID() uuid.UUID            { return r.id }
func (r *Registration) LearnerID() uuid.UUID     { return r.learnerID }
func (r *Registration) CohortID() uuid.UUID      { return r.cohortID }
func (r *Registration) Status() Status           { return r.status }
func (r *Registration) AmountDue() pricing.Money { return r.amountDue }
func (r *Registration) Currency() string         { return r.currency }
func (r *Registration) PromoCodeID() *uuid.UUID  { return r.promoCodeID }
func (r *Registration) ExpiresAt() *time.Time    { return r.expiresAt }
func (r *Registration) ConfirmedAt() *time.Time  { return r.confirmedAt }
func (r *Registration) CanceledAt() *time.Time   { return r.canceledAt }
func (r *Registration) CreatedAt() time.Time     { return r.createdAt }
func (r *Registration) UpdatedAt() time.Time     { return r.updatedAt }

func (r *Registration) IsTerminal() bool {
	return r.status.IsTerminal()
}

func (r *Registration) HasExpired(now time.Time) bool {
	return r.status == StatusPendingPayment && r.expiresAt != nil && now.After(*r.expiresAt)
}
