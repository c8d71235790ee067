package queries

import (
	"context"
	"time"

	"coursereg/internal/infra"
	"coursereg/internal/pkg/clock"
	"coursereg/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrCohortNotFound = errs.New("cohort not found")

type CohortView struct {
	ID                 uuid.UUID `json:"id"`
	ProgramID          uuid.UUID `json:"program_id"`
	Title              string    `json:"title"`
	Capacity           int32     `json:"capacity"`
	RemainingSeats     int32     `json:"remaining_seats"`
	PriceCents         int64     `json:"price_cents"`
	Currency           string    `json:"currency"`
	State              string    `json:"state"`
	RegistrationOpens  time.Time `json:"registration_opens"`
	RegistrationCloses time.Time `json:"registration_closes"`
	StartsAt           time.Time `json:"starts_at"`
	EndsAt             time.Time `json:"ends_at"`
}

type CohortQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*CohortView, error)
	List(ctx context.Context) ([]*CohortView, error)
}

// CohortViewRepo returns views with the state already derived for the
// stamped time.
type CohortViewRepo interface {
	FindByID(ctx context.Context, id uuid.UUID, now time.Time) (*CohortView, error)
	ListAll(ctx context.Context, now time.Time) ([]*CohortView, error)
}

type cohortQueriesImpl struct {
	repo  CohortViewRepo
	clock clock.Clock
}

func NewCohortQueries(repo CohortViewRepo, clk clock.Clock) CohortQueries {
	return &cohortQueriesImpl{repo: repo, clock: clk}
}

func (q *cohortQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*CohortView, error) {
	view, err := q.repo.FindByID(ctx, id, q.clock.Now())
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrCohortNotFound
		}
		return nil, errs.Mark(err, ErrQueryFailed)
	}
	return view, nil
}

func (q *cohortQueriesImpl) List(ctx context.Context) ([]*CohortView, error) {
	views, err := q.repo.ListAll(ctx, q.clock.Now())
	if err != nil {
		return nil, errs.Mark(err, ErrQueryFailed)
	}
	return views, nil
}
