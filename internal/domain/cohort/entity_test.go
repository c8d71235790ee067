//go:build unit

package cohort_test

import (
	"testing"
	"time"

	"coursereg/internal/domain/cohort"
	"coursereg/internal/domain/pricing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	opens  = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	closes = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	starts = time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	ends   = time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
)

func buildCohort(t *testing.T, capacity, enrolled int32, adminState cohort.AdminState) *cohort.Cohort {
	t.Helper()
	c, err := cohort.Reconstruct(
		uuid.New(), uuid.New(), "Backend Engineering, Spring",
		capacity, enrolled,
		pricing.MustMoney(120000), "USD",
		opens, closes, starts, ends,
		adminState,
	)
	require.NoError(t, err)
	return c
}

func TestReconstructValidation(t *testing.T) {
	_, err := cohort.Reconstruct(uuid.New(), uuid.New(), "x", 0, 0,
		pricing.MustMoney(1), "USD", opens, closes, starts, ends, cohort.AdminActive)
	assert.ErrorIs(t, err, cohort.ErrInvalidCapacity)

	_, err = cohort.Reconstruct(uuid.New(), uuid.New(), "x", 10, 11,
		pricing.MustMoney(1), "USD", opens, closes, starts, ends, cohort.AdminActive)
	assert.ErrorIs(t, err, cohort.ErrCountOutOfBounds)
}

func TestStateDerivation(t *testing.T) {
	tests := []struct {
		name     string
		enrolled int32
		admin    cohort.AdminState
		at       time.Time
		want     cohort.State
	}{
		{"before window", 0, cohort.AdminActive, opens.Add(-time.Hour), cohort.StateUpcoming},
		{"open with seats", 5, cohort.AdminActive, opens.Add(time.Hour), cohort.StateOpen},
		{"full exactly at capacity", 10, cohort.AdminActive, opens.Add(time.Hour), cohort.StateFull},
		{"running", 10, cohort.AdminActive, starts.Add(time.Hour), cohort.StateInProgress},
		{"finished", 10, cohort.AdminActive, ends.Add(time.Hour), cohort.StateCompleted},
		{"canceled wins", 5, cohort.AdminCanceled, opens.Add(time.Hour), cohort.StateCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := buildCohort(t, 10, tt.enrolled, tt.admin)
			assert.Equal(t, tt.want, c.StateAt(tt.at))
		})
	}
}

func TestRegistrationWindow(t *testing.T) {
	c := buildCohort(t, 10, 0, cohort.AdminActive)
	assert.False(t, c.IsRegistrationOpen(opens.Add(-time.Second)))
	assert.True(t, c.IsRegistrationOpen(opens))
	assert.True(t, c.IsRegistrationOpen(closes.Add(-time.Second)))
	assert.False(t, c.IsRegistrationOpen(closes))

	canceled := buildCohort(t, 10, 0, cohort.AdminCanceled)
	assert.False(t, canceled.IsRegistrationOpen(opens.Add(time.Hour)))
}

func TestSeatAccounting(t *testing.T) {
	c := buildCohort(t, 10, 7, cohort.AdminActive)
	assert.False(t, c.IsFull())
	assert.Equal(t, int32(3), c.RemainingSeats())

	full := buildCohort(t, 10, 10, cohort.AdminActive)
	assert.True(t, full.IsFull())
	assert.Equal(t, int32(0), full.RemainingSeats())
}
