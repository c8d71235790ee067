package repository

import (
	"context"
	"time"

	"coursereg/internal/domain/registration"
	"coursereg/internal/infra"
	"coursereg/internal/infra/db"
	"coursereg/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type RegistrationRepository struct{}

func NewRegistrationRepository() *RegistrationRepository {
	return &RegistrationRepository{}
}

func (r *RegistrationRepository) Create(ctx context.Context, d db.DBTX, reg *registration.Registration) error {
	_, err := d.Exec(ctx,
		`INSERT INTO registrations
		   (id, learner_id, cohort_id, status, amount_cents, currency, promo_code_id,
		    expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		reg.ID(), reg.LearnerID(), reg.CohortID(), reg.Status().String(),
		reg.AmountDue().Cents(), reg.Currency(), reg.PromoCodeID(),
		reg.ExpiresAt(), reg.CreatedAt(),
	)
	if err != nil {
		if infra.IsUniqueViolation(err) {
			return infra.WrapRepoErr("learner already holds a registration for this cohort", err, infra.KindDuplicateKey)
		}
		return infra.WrapRepoErr("failed to create registration", err)
	}
	return nil
}

func (r *RegistrationRepository) FindByID(ctx context.Context, d db.DBTX, id uuid.UUID) (*commands.RegistrationSnapshot, error) {
	return r.findOne(ctx, d,
		`SELECT id, learner_id, cohort_id, status, amount_cents, currency, promo_code_id, expires_at
		 FROM registrations WHERE id = $1`,
		id,
	)
}

// FindHolding returns the non-terminal registration occupying the
// learner's seat, if one exists. The partial unique index guarantees at
// most one.
func (r *RegistrationRepository) FindHolding(ctx context.Context, d db.DBTX, learnerID, cohortID uuid.UUID) (*commands.RegistrationSnapshot, error) {
	return r.findOne(ctx, d,
		`SELECT id, learner_id, cohort_id, status, amount_cents, currency, promo_code_id, expires_at
		 FROM registrations
		 WHERE learner_id = $1 AND cohort_id = $2 AND status IN ('pending_payment', 'confirmed')`,
		learnerID, cohortID,
	)
}

func (r *RegistrationRepository) findOne(ctx context.Context, d db.DBTX, query string, args ...any) (*commands.RegistrationSnapshot, error) {
	var s commands.RegistrationSnapshot
	var status string
	err := d.QueryRow(ctx, query, args...).Scan(
		&s.ID, &s.LearnerID, &s.CohortID, &status, &s.AmountCents, &s.Currency,
		&s.PromoCodeID, &s.ExpiresAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, infra.WrapRepoErr("registration not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find registration", err)
	}
	s.Status = registration.Status(status)
	return &s, nil
}

// Transition applies one status CAS. The timestamp column matching the
// target status is set in the same statement, so "is it confirmed" is
// always answered by the status enum, never inferred from a timestamp.
func (r *RegistrationRepository) Transition(ctx context.Context, d db.DBTX, id uuid.UUID, from, to registration.Status, now time.Time) (bool, error) {
	if !from.CanTransitionTo(to) {
		return false, infra.WrapRepoErr("illegal registration transition", registration.ErrInvalidTransition, infra.KindConflict)
	}

	var query string
	switch to {
	case registration.StatusConfirmed:
		query = `UPDATE registrations SET status = $3, confirmed_at = $4, updated_at = $4
		         WHERE id = $1 AND status = $2`
	case registration.StatusCanceled, registration.StatusExpired, registration.StatusRefunded:
		query = `UPDATE registrations SET status = $3, canceled_at = $4, updated_at = $4
		         WHERE id = $1 AND status = $2`
	default:
		query = `UPDATE registrations SET status = $3, updated_at = $4
		         WHERE id = $1 AND status = $2`
	}

	tag, err := d.Exec(ctx, query, id, from.String(), to.String(), now)
	if err != nil {
		return false, infra.WrapRepoErr("failed to transition registration", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RegistrationRepository) ListExpired(ctx context.Context, d db.DBTX, now time.Time, limit int32) ([]commands.RegistrationSnapshot, error) {
	rows, err := d.Query(ctx,
		`SELECT id, learner_id, cohort_id, status, amount_cents, currency, promo_code_id, expires_at
		 FROM registrations
		 WHERE status = 'pending_payment' AND expires_at < $1
		 ORDER BY expires_at
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list expired registrations", err)
	}
	defer rows.Close()

	var out []commands.RegistrationSnapshot
	for rows.Next() {
		var s commands.RegistrationSnapshot
		var status string
		if err := rows.Scan(&s.ID, &s.LearnerID, &s.CohortID, &status, &s.AmountCents,
			&s.Currency, &s.PromoCodeID, &s.ExpiresAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan expired registration", err)
		}
		s.Status = registration.Status(status)
		out = append(out, s)
	}
	return out, rows.Err()
}
