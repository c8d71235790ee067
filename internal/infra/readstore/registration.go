package readstore

import (
	"context"

	"coursereg/internal/infra"
	"coursereg/internal/infra/db"
	"coursereg/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type RegistrationReadStore struct {
	db db.DBTX
}

func NewRegistrationReadStore(d db.DBTX) *RegistrationReadStore {
	return &RegistrationReadStore{db: d}
}

func (r *RegistrationReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.RegistrationView, error) {
	var v queries.RegistrationView
	err := r.db.QueryRow(ctx,
		`SELECT r.id, r.learner_id, r.cohort_id, c.title, r.status,
		        r.amount_cents, r.currency, p.code,
		        r.expires_at, r.confirmed_at, r.canceled_at, r.created_at, r.updated_at
		 FROM registrations r
		 JOIN cohorts c ON c.id = r.cohort_id
		 LEFT JOIN promo_codes p ON p.id = r.promo_code_id
		 WHERE r.id = $1`,
		id,
	).Scan(
		&v.ID, &v.LearnerID, &v.CohortID, &v.CohortTitle, &v.Status,
		&v.AmountCents, &v.Currency, &v.PromoCode,
		&v.ExpiresAt, &v.ConfirmedAt, &v.CanceledAt, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, infra.WrapRepoErr("registration not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find registration view", err)
	}
	return &v, nil
}

func (r *RegistrationReadStore) FindByLearnerID(ctx context.Context, learnerID uuid.UUID) ([]*queries.RegistrationListItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.id, r.cohort_id, c.title, r.status, r.amount_cents, r.created_at
		 FROM registrations r
		 JOIN cohorts c ON c.id = r.cohort_id
		 WHERE r.learner_id = $1
		 ORDER BY r.created_at DESC`,
		learnerID,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list registrations", err)
	}
	defer rows.Close()

	var out []*queries.RegistrationListItem
	for rows.Next() {
		var item queries.RegistrationListItem
		if err := rows.Scan(&item.ID, &item.CohortID, &item.CohortTitle,
			&item.Status, &item.AmountCents, &item.CreatedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan registration row", err)
		}
		out = append(out, &item)
	}
	return out, rows.Err()
}

// FindWaitlistStatus ranks the learner among live entries; position 1 is the
// head of the queue.
func (r *RegistrationReadStore) FindWaitlistStatus(ctx context.Context, cohortID, learnerID uuid.UUID) (*queries.WaitlistStatusView, error) {
	var v queries.WaitlistStatusView
	err := r.db.QueryRow(ctx,
		`SELECT w.cohort_id, w.status, w.offer_expires_at,
		        (SELECT COUNT(*) FROM waitlist_entries x
		         WHERE x.cohort_id = w.cohort_id
		           AND x.status IN ('waiting', 'offered')
		           AND x.seq <= w.seq) AS position
		 FROM waitlist_entries w
		 WHERE w.cohort_id = $1 AND w.learner_id = $2
		   AND w.status IN ('waiting', 'offered')`,
		cohortID, learnerID,
	).Scan(&v.CohortID, &v.Status, &v.OfferExpiresAt, &v.Position)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, infra.WrapRepoErr("waitlist entry not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find waitlist status", err)
	}
	return &v, nil
}
