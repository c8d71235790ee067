package payment

import (
	"errors"
	"time"

	"coursereg/internal/domain/pricing"

	"github.com/google/uuid"
)

var (
	ErrInvalidStatus = errors.New("invalid payment status")
	ErrAmountChanged = errors.New("payment amount is immutable")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	default:
		return false
	}
}

// CanTransitionTo: a completed payment is immutable except for the single
// permitted move to refunded. A failed payment may be retried by the
// gateway, so failed -> completed stays open while the registration holds
// its seat.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusCompleted || next == StatusFailed
	case StatusFailed:
		return next == StatusCompleted
	case StatusCompleted:
		return next == StatusRefunded
	default:
		return false
	}
}

// Payment is one payment attempt tied 1:1 to a registration.
type Payment struct {
	id             uuid.UUID
	registrationID uuid.UUID
	amount         pricing.Money
	currency       string
	status         Status
	providerRef    *string
	paidAt         *time.Time
	refundedAt     *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// NewPendingPayment is created together with its registration when the
// registration enters PENDING_PAYMENT.
func NewPendingPayment(registrationID uuid.UUID, amount pricing.Money, currency string, now time.Time) *Payment {
	return &Payment{
		id:             uuid.New(),
		registrationID: registrationID,
		amount:         amount,
		currency:       currency,
		status:         StatusPending,
		createdAt:      now,
		updatedAt:      now,
	}
}

func Reconstruct(
	id, registrationID uuid.UUID,
	amount pricing.Money,
	currency string,
	status Status,
	providerRef *string,
	paidAt, refundedAt *time.Time,
	createdAt, updatedAt time.Time,
) (*Payment, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	return &Payment{
		id:             id,
		registrationID: registrationID,
		amount:         amount,
		currency:       currency,
		status:         status,
		providerRef:    providerRef,
		paidAt:         paidAt,
		refundedAt:     refundedAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}, nil
}

func (p *Payment) ID() uuid.UUID             { return p.id }
func (p *Payment) RegistrationID() uuid.UUID { return p.registrationID }
func (p *Payment) Amount() pricing.Money     { return p.amount }
func (p *Payment) Currency() string          { return p.currency }
func (p *Payment) Status() Status            { return p.status }
func (p *Payment) ProviderRef() *string      { return p.providerRef }
func (p *Payment) PaidAt() *time.Time        { return p.paidAt }
func (p *Payment) RefundedAt() *time.Time    { return p.refundedAt }
func (p *Payment) CreatedAt() time.Time      { return p.createdAt }
func (p *Payment) UpdatedAt() time.Time      { return p.updatedAt }

// MatchesAmount compares in integer minor units; a Paid event with a
// different amount is a reconciliation anomaly, never a silent accept.
func (p *Payment) MatchesAmount(cents int64, currency string) bool {
	return p.amount.Cents() == cents && p.currency == currency
}
