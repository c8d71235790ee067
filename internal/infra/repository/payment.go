package repository

import (
	"context"
	"time"

	"coursereg/internal/domain/payment"
	"coursereg/internal/domain/pricing"
	"coursereg/internal/infra"
	"coursereg/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PaymentRepository struct{}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{}
}

func (r *PaymentRepository) Create(ctx context.Context, d db.DBTX, p *payment.Payment) error {
	_, err := d.Exec(ctx,
		`INSERT INTO payments
		   (id, registration_id, amount_cents, currency, status, provider_ref, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		p.ID(), p.RegistrationID(), p.Amount().Cents(), p.Currency(),
		p.Status().String(), p.ProviderRef(), p.CreatedAt(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create payment", err)
	}
	return nil
}

func (r *PaymentRepository) FindByProviderRef(ctx context.Context, d db.DBTX, providerRef string) (*payment.Payment, error) {
	return r.findOne(ctx, d,
		`SELECT id, registration_id, amount_cents, currency, status, provider_ref,
		        paid_at, refunded_at, created_at, updated_at
		 FROM payments WHERE provider_ref = $1`,
		providerRef,
	)
}

func (r *PaymentRepository) FindByRegistrationID(ctx context.Context, d db.DBTX, registrationID uuid.UUID) (*payment.Payment, error) {
	return r.findOne(ctx, d,
		`SELECT id, registration_id, amount_cents, currency, status, provider_ref,
		        paid_at, refunded_at, created_at, updated_at
		 FROM payments WHERE registration_id = $1`,
		registrationID,
	)
}

func (r *PaymentRepository) findOne(ctx context.Context, d db.DBTX, query string, args ...any) (*payment.Payment, error) {
	var (
		id, registrationID   uuid.UUID
		amountCents          int64
		currency, status     string
		providerRef          *string
		paidAt, refundedAt   *time.Time
		createdAt, updatedAt time.Time
	)
	err := d.QueryRow(ctx, query, args...).Scan(
		&id, &registrationID, &amountCents, &currency, &status, &providerRef,
		&paidAt, &refundedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, infra.WrapRepoErr("payment not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find payment", err)
	}

	amount, err := pricing.NewMoney(amountCents)
	if err != nil {
		return nil, infra.WrapRepoErr("stored payment amount is invalid", err)
	}
	p, err := payment.Reconstruct(id, registrationID, amount, currency,
		payment.Status(status), providerRef, paidAt, refundedAt, createdAt, updatedAt)
	if err != nil {
		return nil, infra.WrapRepoErr("stored payment is invalid", err)
	}
	return p, nil
}

// AttachProviderRef binds the gateway reference exactly once; a second
// Created delivery for the same payment finds the ref already set and
// reports false.
func (r *PaymentRepository) AttachProviderRef(ctx context.Context, d db.DBTX, id uuid.UUID, providerRef string) (bool, error) {
	tag, err := d.Exec(ctx,
		`UPDATE payments SET provider_ref = $2, updated_at = now()
		 WHERE id = $1 AND provider_ref IS NULL`,
		id, providerRef,
	)
	if err != nil {
		return false, infra.WrapRepoErr("failed to attach provider ref", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentRepository) Transition(ctx context.Context, d db.DBTX, id uuid.UUID, from, to payment.Status, now time.Time) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, infra.WrapRepoErr("illegal payment transition", payment.ErrInvalidStatus, infra.KindConflict)
	}

	var query string
	switch to {
	case payment.StatusCompleted:
		query = `UPDATE payments SET status = $3, paid_at = $4, updated_at = $4
		         WHERE id = $1 AND status = $2`
	case payment.StatusRefunded:
		query = `UPDATE payments SET status = $3, refunded_at = $4, updated_at = $4
		         WHERE id = $1 AND status = $2`
	default:
		query = `UPDATE payments SET status = $3, updated_at = $4
		         WHERE id = $1 AND status = $2`
	}

	tag, err := d.Exec(ctx, query, id, from.String(), to.String(), now)
	if err != nil {
		return false, infra.WrapRepoErr("failed to transition payment", err)
	}
	return tag.RowsAffected() == 1, nil
}
