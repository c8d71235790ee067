// Package usecasemock provides hand-written test doubles for the usecase
// interfaces consumed by the HTTP layer.
package usecasemock

import (
	"context"

	"coursereg/internal/usecase/commands"
	"coursereg/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type RegistrationCommands struct{ mock.Mock }

func (m *RegistrationCommands) CreateRegistration(ctx context.Context, params commands.CreateRegistrationParams) (*commands.CreateRegistrationResult, error) {
	args := m.Called(ctx, params)
	if result, ok := args.Get(0).(*commands.CreateRegistrationResult); ok {
		return result, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RegistrationCommands) CancelRegistration(ctx context.Context, registrationID, actorID uuid.UUID, role commands.ActorRole) error {
	return m.Called(ctx, registrationID, actorID, role).Error(0)
}

func (m *RegistrationCommands) JoinWaitlist(ctx context.Context, learnerID, cohortID uuid.UUID) (int, error) {
	args := m.Called(ctx, learnerID, cohortID)
	return args.Int(0), args.Error(1)
}

type RegistrationQueries struct{ mock.Mock }

func (m *RegistrationQueries) GetByID(ctx context.Context, requesterID uuid.UUID, isStaff bool, id uuid.UUID) (*queries.RegistrationView, error) {
	args := m.Called(ctx, requesterID, isStaff, id)
	if view, ok := args.Get(0).(*queries.RegistrationView); ok {
		return view, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RegistrationQueries) ListByLearner(ctx context.Context, learnerID uuid.UUID) ([]*queries.RegistrationListItem, error) {
	args := m.Called(ctx, learnerID)
	if items, ok := args.Get(0).([]*queries.RegistrationListItem); ok {
		return items, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RegistrationQueries) WaitlistStatus(ctx context.Context, cohortID, learnerID uuid.UUID) (*queries.WaitlistStatusView, error) {
	args := m.Called(ctx, cohortID, learnerID)
	if view, ok := args.Get(0).(*queries.WaitlistStatusView); ok {
		return view, args.Error(1)
	}
	return nil, args.Error(1)
}

type CohortQueries struct{ mock.Mock }

func (m *CohortQueries) GetByID(ctx context.Context, id uuid.UUID) (*queries.CohortView, error) {
	args := m.Called(ctx, id)
	if view, ok := args.Get(0).(*queries.CohortView); ok {
		return view, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CohortQueries) List(ctx context.Context) ([]*queries.CohortView, error) {
	args := m.Called(ctx)
	if views, ok := args.Get(0).([]*queries.CohortView); ok {
		return views, args.Error(1)
	}
	return nil, args.Error(1)
}

type ReconcileCommands struct{ mock.Mock }

func (m *ReconcileCommands) IntakeGatewayEvent(ctx context.Context, ev commands.IntakeEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *ReconcileCommands) ProcessDue(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
