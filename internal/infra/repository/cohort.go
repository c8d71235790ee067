package repository

import (
	"context"

	"coursereg/internal/infra"
	"coursereg/internal/infra/db"
	"coursereg/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CohortRepository is the capacity ledger and the catalog read side. The
// two conditional UPDATEs below are the only statements anywhere that touch
// enrolled_count; atomicity lives in the storage layer, so the guarantee
// holds across service instances.
type CohortRepository struct{}

func NewCohortRepository() *CohortRepository {
	return &CohortRepository{}
}

func (r *CohortRepository) CohortByID(ctx context.Context, d db.DBTX, id uuid.UUID) (*commands.CohortSnapshot, error) {
	var s commands.CohortSnapshot
	err := d.QueryRow(ctx,
		`SELECT id, program_id, title, capacity, enrolled_count, price_cents, currency,
		        registration_opens, registration_closes, starts_at, ends_at, admin_state
		 FROM cohorts WHERE id = $1`,
		id,
	).Scan(
		&s.ID, &s.ProgramID, &s.Title, &s.Capacity, &s.EnrolledCount, &s.PriceCents, &s.Currency,
		&s.RegistrationOpens, &s.RegistrationCloses, &s.StartsAt, &s.EndsAt, &s.AdminState,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, infra.WrapRepoErr("cohort not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find cohort", err)
	}
	return &s, nil
}

// TryReserve is a single compare-and-increment: exactly one of two
// concurrent attempts for the last seat can match the WHERE clause.
func (r *CohortRepository) TryReserve(ctx context.Context, d db.DBTX, cohortID uuid.UUID) (bool, error) {
	tag, err := d.Exec(ctx,
		`UPDATE cohorts
		 SET enrolled_count = enrolled_count + 1, updated_at = now()
		 WHERE id = $1 AND enrolled_count < capacity`,
		cohortID,
	)
	if err != nil {
		return false, infra.WrapRepoErr("failed to reserve seat", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release decrements with a floor of zero; releasing an already-released
// slot is a no-op.
func (r *CohortRepository) Release(ctx context.Context, d db.DBTX, cohortID uuid.UUID) error {
	_, err := d.Exec(ctx,
		`UPDATE cohorts
		 SET enrolled_count = enrolled_count - 1, updated_at = now()
		 WHERE id = $1 AND enrolled_count > 0`,
		cohortID,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to release seat", err)
	}
	return nil
}
