//go:build unit || e2e

package builder

import (
	"time"

	"coursereg/internal/usecase/queries"

	"github.com/google/uuid"
)

type CohortBuilder struct {
	ID                 uuid.UUID
	ProgramID          uuid.UUID
	Title              string
	Capacity           int32
	RemainingSeats     int32
	PriceCents         int64
	Currency           string
	State              string
	RegistrationOpens  time.Time
	RegistrationCloses time.Time
	StartsAt           time.Time
	EndsAt             time.Time
}

func NewCohortBuilder() *CohortBuilder {
	now := time.Now()
	return &CohortBuilder{
		ID:                 uuid.New(),
		ProgramID:          uuid.New(),
		Title:              "Intro to Distributed Systems",
		Capacity:           30,
		RemainingSeats:     30,
		PriceCents:         50000,
		Currency:           "USD",
		State:              "open",
		RegistrationOpens:  now.Add(-time.Hour),
		RegistrationCloses: now.Add(24 * time.Hour),
		StartsAt:           now.Add(48 * time.Hour),
		EndsAt:             now.Add(30 * 24 * time.Hour),
	}
}

func (b *CohortBuilder) BuildView() *queries.CohortView {
	return &queries.CohortView{
		ID:                 b.ID,
		ProgramID:          b.ProgramID,
		Title:              b.Title,
		Capacity:           b.Capacity,
		RemainingSeats:     b.RemainingSeats,
		PriceCents:         b.PriceCents,
		Currency:           b.Currency,
		State:              b.State,
		RegistrationOpens:  b.RegistrationOpens,
		RegistrationCloses: b.RegistrationCloses,
		StartsAt:           b.StartsAt,
		EndsAt:             b.EndsAt,
	}
}

func (b *CohortBuilder) WithCapacity(capacity int32) *CohortBuilder {
	b.Capacity = capacity
	b.RemainingSeats = capacity
	return b
}

func (b *CohortBuilder) AsFull() *CohortBuilder {
	b.RemainingSeats = 0
	b.State = "full"
	return b
}
