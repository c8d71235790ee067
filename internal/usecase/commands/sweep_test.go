//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"coursereg/internal/domain/registration"
	"coursereg/internal/domain/waitlist"
	"coursereg/internal/observability"
	"coursereg/internal/pkg/clock"
	"coursereg/internal/pkg/config"
	"coursereg/internal/usecase/commands"
	commandsmock "coursereg/tests/mock/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sweepFixture struct {
	regs   *commandsmock.RegistrationRepository
	ledger *commandsmock.CapacityLedger
	wl     *commandsmock.WaitlistRepository
	jobs   *commandsmock.JobQueue
	audit  *commandsmock.Auditor
	clock  *clock.MockClock
	cmd    commands.SweepCommands
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	f := &sweepFixture{
		regs:   &commandsmock.RegistrationRepository{},
		ledger: &commandsmock.CapacityLedger{},
		wl:     &commandsmock.WaitlistRepository{},
		jobs:   &commandsmock.JobQueue{},
		audit:  &commandsmock.Auditor{},
		clock:  clock.NewMockClock(baseTime),
	}
	f.cmd = commands.NewSweepCommands(
		commandsmock.StubRunner{},
		f.regs, f.ledger, f.wl, f.jobs, f.audit,
		f.clock,
		config.WorkerConfig{BatchSize: 50, MaxAttempts: 3},
		observability.NewMetrics(),
	)
	return f
}

func TestExpireHolds(t *testing.T) {
	ctx := context.Background()
	cohortID := uuid.New()

	t.Run("expired hold frees the seat and schedules promotion", func(t *testing.T) {
		f := newSweepFixture(t)
		snap := commands.RegistrationSnapshot{
			ID:        uuid.New(),
			LearnerID: uuid.New(),
			CohortID:  cohortID,
			Status:    registration.StatusPendingPayment,
		}
		f.regs.On("ListExpired", ctx, nil, baseTime, int32(50)).Return([]commands.RegistrationSnapshot{snap}, nil)
		f.regs.On("Transition", ctx, nil, snap.ID,
			registration.StatusPendingPayment, registration.StatusExpired, baseTime).Return(true, nil)
		f.ledger.On("Release", ctx, nil, cohortID).Return(nil)
		f.jobs.On("Enqueue", ctx, nil, commands.JobKindWaitlistPromotion, mock.Anything, baseTime).Return(nil)
		f.jobs.On("Enqueue", ctx, nil, commands.JobKindNotification, mock.Anything, baseTime).Return(nil)
		f.audit.On("Record", ctx, nil, mock.Anything).Return(nil)

		expired, err := f.cmd.ExpireHolds(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, expired)
		f.ledger.AssertExpectations(t)
		f.jobs.AssertExpectations(t)
	})

	t.Run("losing to a concurrent confirmation keeps the seat", func(t *testing.T) {
		f := newSweepFixture(t)
		snap := commands.RegistrationSnapshot{
			ID:       uuid.New(),
			CohortID: cohortID,
			Status:   registration.StatusPendingPayment,
		}
		f.regs.On("ListExpired", ctx, nil, baseTime, int32(50)).Return([]commands.RegistrationSnapshot{snap}, nil)
		f.regs.On("Transition", ctx, nil, snap.ID,
			registration.StatusPendingPayment, registration.StatusExpired, baseTime).Return(false, nil)

		expired, err := f.cmd.ExpireHolds(ctx)

		require.NoError(t, err)
		assert.Equal(t, 0, expired)
		f.ledger.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("nothing due", func(t *testing.T) {
		f := newSweepFixture(t)
		f.regs.On("ListExpired", ctx, nil, baseTime, int32(50)).Return([]commands.RegistrationSnapshot{}, nil)

		expired, err := f.cmd.ExpireHolds(ctx)

		require.NoError(t, err)
		assert.Zero(t, expired)
	})
}

func TestExpireOffers(t *testing.T) {
	ctx := context.Background()
	cohortID := uuid.New()

	t.Run("lapsed offer returns the seat and cascades", func(t *testing.T) {
		f := newSweepFixture(t)
		deadline := baseTime.Add(-time.Hour)
		entry := commands.WaitlistSnapshot{
			ID:             uuid.New(),
			CohortID:       cohortID,
			LearnerID:      uuid.New(),
			Status:         waitlist.StatusOffered.String(),
			OfferExpiresAt: &deadline,
		}
		f.wl.On("ListLapsedOffers", ctx, nil, baseTime, int32(50)).Return([]commands.WaitlistSnapshot{entry}, nil)
		f.wl.On("MarkExpired", ctx, nil, entry.ID).Return(true, nil)
		f.ledger.On("Release", ctx, nil, cohortID).Return(nil)
		f.jobs.On("Enqueue", ctx, nil, commands.JobKindWaitlistPromotion, mock.Anything, baseTime).Return(nil)
		f.jobs.On("Enqueue", ctx, nil, commands.JobKindNotification, mock.Anything, baseTime).Return(nil)

		lapsed, err := f.cmd.ExpireOffers(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, lapsed)
		f.ledger.AssertExpectations(t)
	})

	t.Run("entry converted meanwhile is skipped", func(t *testing.T) {
		f := newSweepFixture(t)
		entry := commands.WaitlistSnapshot{ID: uuid.New(), CohortID: cohortID}
		f.wl.On("ListLapsedOffers", ctx, nil, baseTime, int32(50)).Return([]commands.WaitlistSnapshot{entry}, nil)
		f.wl.On("MarkExpired", ctx, nil, entry.ID).Return(false, nil)

		lapsed, err := f.cmd.ExpireOffers(ctx)

		require.NoError(t, err)
		assert.Zero(t, lapsed)
		f.ledger.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPromoteNext(t *testing.T) {
	ctx := context.Background()
	cohortID := uuid.New()

	newPromotion := func(t *testing.T) (*commandsmock.CapacityLedger, *commandsmock.WaitlistRepository, *commandsmock.JobQueue, commands.PromotionCommands) {
		t.Helper()
		ledger := &commandsmock.CapacityLedger{}
		wl := &commandsmock.WaitlistRepository{}
		jobs := &commandsmock.JobQueue{}
		cmd := commands.NewPromotionCommands(
			commandsmock.StubRunner{}, ledger, wl, jobs,
			clock.NewMockClock(baseTime),
			config.RegistrationConfig{HoldWindow: 30 * time.Minute, OfferWindow: 24 * time.Hour},
			observability.NewMetrics(),
		)
		return ledger, wl, jobs, cmd
	}

	t.Run("head of queue gets an offer backed by a reserved seat", func(t *testing.T) {
		ledger, wl, jobs, cmd := newPromotion(t)
		entry := &commands.WaitlistSnapshot{
			ID:        uuid.New(),
			CohortID:  cohortID,
			LearnerID: uuid.New(),
			Status:    waitlist.StatusWaiting.String(),
		}
		wl.On("PeekNext", ctx, nil, cohortID).Return(entry, nil)
		ledger.On("TryReserve", ctx, nil, cohortID).Return(true, nil)
		wl.On("MarkOffered", ctx, nil, entry.ID, baseTime.Add(24*time.Hour)).Return(true, nil)
		jobs.On("Enqueue", ctx, nil, commands.JobKindNotification, mock.Anything, baseTime).Return(nil)

		promoted, err := cmd.PromoteNext(ctx, cohortID)

		require.NoError(t, err)
		assert.True(t, promoted)
		wl.AssertExpectations(t)
	})

	t.Run("empty queue promotes nothing", func(t *testing.T) {
		ledger, wl, _, cmd := newPromotion(t)
		wl.On("PeekNext", ctx, nil, cohortID).Return(nil, notFoundErr())

		promoted, err := cmd.PromoteNext(ctx, cohortID)

		require.NoError(t, err)
		assert.False(t, promoted)
		ledger.AssertNotCalled(t, "TryReserve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no free seat promotes nothing", func(t *testing.T) {
		ledger, wl, _, cmd := newPromotion(t)
		entry := &commands.WaitlistSnapshot{ID: uuid.New(), CohortID: cohortID}
		wl.On("PeekNext", ctx, nil, cohortID).Return(entry, nil)
		ledger.On("TryReserve", ctx, nil, cohortID).Return(false, nil)

		promoted, err := cmd.PromoteNext(ctx, cohortID)

		require.NoError(t, err)
		assert.False(t, promoted)
		wl.AssertNotCalled(t, "MarkOffered", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("head changed under us releases the seat again", func(t *testing.T) {
		ledger, wl, _, cmd := newPromotion(t)
		entry := &commands.WaitlistSnapshot{ID: uuid.New(), CohortID: cohortID}
		wl.On("PeekNext", ctx, nil, cohortID).Return(entry, nil)
		ledger.On("TryReserve", ctx, nil, cohortID).Return(true, nil)
		wl.On("MarkOffered", ctx, nil, entry.ID, baseTime.Add(24*time.Hour)).Return(false, nil)
		ledger.On("Release", ctx, nil, cohortID).Return(nil)

		promoted, err := cmd.PromoteNext(ctx, cohortID)

		require.NoError(t, err)
		assert.False(t, promoted)
		ledger.AssertExpectations(t)
	})
}
