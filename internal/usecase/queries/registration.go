package queries

import (
	"context"
	"time"

	"coursereg/internal/infra"
	"coursereg/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrRegistrationNotFound = errs.New("registration not found")
	ErrNotOnWaitlist        = errs.New("learner is not on the waitlist")
	ErrQueryFailed          = errs.New("query failed")
)

// Read models (DTO for read side)
type RegistrationView struct {
	ID          uuid.UUID  `json:"id"`
	LearnerID   uuid.UUID  `json:"learner_id"`
	CohortID    uuid.UUID  `json:"cohort_id"`
	CohortTitle string     `json:"cohort_title"`
	Status      string     `json:"status"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	PromoCode   *string    `json:"promo_code,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CanceledAt  *time.Time `json:"canceled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type RegistrationListItem struct {
	ID          uuid.UUID `json:"id"`
	CohortID    uuid.UUID `json:"cohort_id"`
	CohortTitle string    `json:"cohort_title"`
	Status      string    `json:"status"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

type WaitlistStatusView struct {
	CohortID       uuid.UUID  `json:"cohort_id"`
	Position       int        `json:"position"`
	Status         string     `json:"status"`
	OfferExpiresAt *time.Time `json:"offer_expires_at,omitempty"`
}

type RegistrationQueries interface {
	// GetByID hides other learners' registrations from non-staff callers:
	// a foreign ID reads as not found, never as forbidden.
	GetByID(ctx context.Context, requesterID uuid.UUID, isStaff bool, id uuid.UUID) (*RegistrationView, error)
	ListByLearner(ctx context.Context, learnerID uuid.UUID) ([]*RegistrationListItem, error)
	WaitlistStatus(ctx context.Context, cohortID, learnerID uuid.UUID) (*WaitlistStatusView, error)
}

type RegistrationViewRepo interface {
	FindByID(ctx context.Context, id uuid.UUID) (*RegistrationView, error)
	FindByLearnerID(ctx context.Context, learnerID uuid.UUID) ([]*RegistrationListItem, error)
	FindWaitlistStatus(ctx context.Context, cohortID, learnerID uuid.UUID) (*WaitlistStatusView, error)
}

type registrationQueriesImpl struct {
	repo RegistrationViewRepo
}

func NewRegistrationQueries(repo RegistrationViewRepo) RegistrationQueries {
	return &registrationQueriesImpl{repo: repo}
}

func (q *registrationQueriesImpl) GetByID(ctx context.Context, requesterID uuid.UUID, isStaff bool, id uuid.UUID) (*RegistrationView, error) {
	view, err := q.repo.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, errs.Mark(err, ErrQueryFailed)
	}
	if !isStaff && view.LearnerID != requesterID {
		return nil, ErrRegistrationNotFound
	}
	return view, nil
}

func (q *registrationQueriesImpl) ListByLearner(ctx context.Context, learnerID uuid.UUID) ([]*RegistrationListItem, error) {
	items, err := q.repo.FindByLearnerID(ctx, learnerID)
	if err != nil {
		return nil, errs.Mark(err, ErrQueryFailed)
	}
	return items, nil
}

func (q *registrationQueriesImpl) WaitlistStatus(ctx context.Context, cohortID, learnerID uuid.UUID) (*WaitlistStatusView, error) {
	view, err := q.repo.FindWaitlistStatus(ctx, cohortID, learnerID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrNotOnWaitlist
		}
		return nil, errs.Mark(err, ErrQueryFailed)
	}
	return view, nil
}
