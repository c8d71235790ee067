//go:build unit

package queries_test

import (
	"context"
	"testing"
	"time"

	"coursereg/internal/infra"
	"coursereg/internal/pkg/clock"
	"coursereg/internal/usecase/queries"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRegistrationViewRepo struct {
	mock.Mock
}

func (m *mockRegistrationViewRepo) FindByID(ctx context.Context, id uuid.UUID) (*queries.RegistrationView, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*queries.RegistrationView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRegistrationViewRepo) FindByLearnerID(ctx context.Context, learnerID uuid.UUID) ([]*queries.RegistrationListItem, error) {
	args := m.Called(ctx, learnerID)
	if v := args.Get(0); v != nil {
		return v.([]*queries.RegistrationListItem), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRegistrationViewRepo) FindWaitlistStatus(ctx context.Context, cohortID, learnerID uuid.UUID) (*queries.WaitlistStatusView, error) {
	args := m.Called(ctx, cohortID, learnerID)
	if v := args.Get(0); v != nil {
		return v.(*queries.WaitlistStatusView), args.Error(1)
	}
	return nil, args.Error(1)
}

func notFoundRepoErr() error {
	return infra.WrapRepoErr("row not found", pgx.ErrNoRows, infra.KindNotFound)
}

func registrationView(learnerID uuid.UUID) *queries.RegistrationView {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := created.Add(30 * time.Minute)
	return &queries.RegistrationView{
		ID:          uuid.New(),
		LearnerID:   learnerID,
		CohortID:    uuid.New(),
		CohortTitle: "Go for Backend Engineers",
		Status:      "pending_payment",
		AmountCents: 50000,
		Currency:    "USD",
		ExpiresAt:   &expires,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestRegistrationQueries_GetByID(t *testing.T) {
	t.Parallel()

	t.Run("owner reads their own registration", func(t *testing.T) {
		t.Parallel()
		repo := new(mockRegistrationViewRepo)
		q := queries.NewRegistrationQueries(repo)

		learnerID := uuid.New()
		view := registrationView(learnerID)
		repo.On("FindByID", mock.Anything, view.ID).Return(view, nil)

		got, err := q.GetByID(context.Background(), learnerID, false, view.ID)
		require.NoError(t, err)
		if diff := cmp.Diff(view, got); diff != "" {
			t.Errorf("view mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("foreign registration reads as not found for a learner", func(t *testing.T) {
		t.Parallel()
		repo := new(mockRegistrationViewRepo)
		q := queries.NewRegistrationQueries(repo)

		view := registrationView(uuid.New())
		repo.On("FindByID", mock.Anything, view.ID).Return(view, nil)

		got, err := q.GetByID(context.Background(), uuid.New(), false, view.ID)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, queries.ErrRegistrationNotFound)
	})

	t.Run("staff reads any registration", func(t *testing.T) {
		t.Parallel()
		repo := new(mockRegistrationViewRepo)
		q := queries.NewRegistrationQueries(repo)

		view := registrationView(uuid.New())
		repo.On("FindByID", mock.Anything, view.ID).Return(view, nil)

		got, err := q.GetByID(context.Background(), uuid.New(), true, view.ID)
		require.NoError(t, err)
		assert.Equal(t, view.ID, got.ID)
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		t.Parallel()
		repo := new(mockRegistrationViewRepo)
		q := queries.NewRegistrationQueries(repo)

		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, notFoundRepoErr())

		_, err := q.GetByID(context.Background(), uuid.New(), true, id)
		assert.ErrorIs(t, err, queries.ErrRegistrationNotFound)
	})
}

func TestRegistrationQueries_ListByLearner(t *testing.T) {
	t.Parallel()

	repo := new(mockRegistrationViewRepo)
	q := queries.NewRegistrationQueries(repo)

	learnerID := uuid.New()
	items := []*queries.RegistrationListItem{
		{ID: uuid.New(), CohortTitle: "Go for Backend Engineers", Status: "confirmed", AmountCents: 50000},
		{ID: uuid.New(), CohortTitle: "Applied Cryptography", Status: "pending_payment", AmountCents: 30000},
	}
	repo.On("FindByLearnerID", mock.Anything, learnerID).Return(items, nil)

	got, err := q.ListByLearner(context.Background(), learnerID)
	require.NoError(t, err)
	if diff := cmp.Diff(items, got); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistrationQueries_WaitlistStatus(t *testing.T) {
	t.Parallel()

	t.Run("returns position for a queued learner", func(t *testing.T) {
		t.Parallel()
		repo := new(mockRegistrationViewRepo)
		q := queries.NewRegistrationQueries(repo)

		cohortID := uuid.New()
		learnerID := uuid.New()
		view := &queries.WaitlistStatusView{CohortID: cohortID, Position: 3, Status: "waiting"}
		repo.On("FindWaitlistStatus", mock.Anything, cohortID, learnerID).Return(view, nil)

		got, err := q.WaitlistStatus(context.Background(), cohortID, learnerID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Position)
	})

	t.Run("absent learner maps to not on waitlist", func(t *testing.T) {
		t.Parallel()
		repo := new(mockRegistrationViewRepo)
		q := queries.NewRegistrationQueries(repo)

		cohortID := uuid.New()
		learnerID := uuid.New()
		repo.On("FindWaitlistStatus", mock.Anything, cohortID, learnerID).Return(nil, notFoundRepoErr())

		_, err := q.WaitlistStatus(context.Background(), cohortID, learnerID)
		assert.ErrorIs(t, err, queries.ErrNotOnWaitlist)
	})
}

type mockCohortViewRepo struct {
	mock.Mock
}

func (m *mockCohortViewRepo) FindByID(ctx context.Context, id uuid.UUID, now time.Time) (*queries.CohortView, error) {
	args := m.Called(ctx, id, now)
	if v := args.Get(0); v != nil {
		return v.(*queries.CohortView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCohortViewRepo) ListAll(ctx context.Context, now time.Time) ([]*queries.CohortView, error) {
	args := m.Called(ctx, now)
	if v := args.Get(0); v != nil {
		return v.([]*queries.CohortView), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCohortQueries_GetByID(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("stamps the clock into the state derivation", func(t *testing.T) {
		t.Parallel()
		repo := new(mockCohortViewRepo)
		q := queries.NewCohortQueries(repo, clock.NewMockClock(now))

		view := &queries.CohortView{ID: uuid.New(), Title: "Go for Backend Engineers", State: "open", RemainingSeats: 12}
		repo.On("FindByID", mock.Anything, view.ID, now).Return(view, nil)

		got, err := q.GetByID(context.Background(), view.ID)
		require.NoError(t, err)
		if diff := cmp.Diff(view, got); diff != "" {
			t.Errorf("view mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing cohort maps to not found", func(t *testing.T) {
		t.Parallel()
		repo := new(mockCohortViewRepo)
		q := queries.NewCohortQueries(repo, clock.NewMockClock(now))

		id := uuid.New()
		repo.On("FindByID", mock.Anything, id, now).Return(nil, notFoundRepoErr())

		_, err := q.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, queries.ErrCohortNotFound)
	})
}
