package readstore

import (
	"context"
	"time"

	"coursereg/internal/domain/cohort"
	"coursereg/internal/domain/pricing"
	"coursereg/internal/infra"
	"coursereg/internal/infra/db"
	"coursereg/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CohortReadStore struct {
	db db.DBTX
}

func NewCohortReadStore(d db.DBTX) *CohortReadStore {
	return &CohortReadStore{db: d}
}

const cohortViewColumns = `id, program_id, title, capacity, enrolled_count,
	price_cents, currency, registration_opens, registration_closes,
	starts_at, ends_at, admin_state`

func (r *CohortReadStore) FindByID(ctx context.Context, id uuid.UUID, now time.Time) (*queries.CohortView, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+cohortViewColumns+` FROM cohorts WHERE id = $1`, id)
	view, err := scanCohortView(row, now)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, infra.WrapRepoErr("cohort not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find cohort view", err)
	}
	return view, nil
}

func (r *CohortReadStore) ListAll(ctx context.Context, now time.Time) ([]*queries.CohortView, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+cohortViewColumns+` FROM cohorts ORDER BY starts_at`)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list cohorts", err)
	}
	defer rows.Close()

	var out []*queries.CohortView
	for rows.Next() {
		view, err := scanCohortView(rows, now)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan cohort row", err)
		}
		out = append(out, view)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanCohortView derives the visible state at read time; FULL and OPEN are
// never stored, only computed from the counter and the calendar.
func scanCohortView(row rowScanner, now time.Time) (*queries.CohortView, error) {
	var (
		id, programID                   uuid.UUID
		title, currency, adminState     string
		capacity, enrolled              int32
		priceCents                      int64
		opens, closes, startsAt, endsAt time.Time
	)
	if err := row.Scan(&id, &programID, &title, &capacity, &enrolled,
		&priceCents, &currency, &opens, &closes, &startsAt, &endsAt, &adminState); err != nil {
		return nil, err
	}

	price, err := pricing.NewMoney(priceCents)
	if err != nil {
		return nil, err
	}
	c, err := cohort.Reconstruct(id, programID, title, capacity, enrolled,
		price, currency, opens, closes, startsAt, endsAt, cohort.AdminState(adminState))
	if err != nil {
		return nil, err
	}

	return &queries.CohortView{
		ID:                 id,
		ProgramID:          programID,
		Title:              title,
		Capacity:           capacity,
		RemainingSeats:     c.RemainingSeats(),
		PriceCents:         priceCents,
		Currency:           currency,
		State:              c.StateAt(now).String(),
		RegistrationOpens:  opens,
		RegistrationCloses: closes,
		StartsAt:           startsAt,
		EndsAt:             endsAt,
	}, nil
}
