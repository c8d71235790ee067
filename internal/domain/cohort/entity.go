package cohort

import (
	"errors"
	"time"

	"coursereg/internal/domain/pricing"

	"github.com/google/uuid"
)

var (
	ErrInvalidCapacity   = errors.New("capacity must be positive")
	ErrCountOutOfBounds  = errors.New("enrolled count out of bounds")
	ErrInvalidAdminState = errors.New("invalid cohort admin state")
)

// AdminState is the administratively set part of a cohort's lifecycle.
// The externally visible State is derived from it plus the calendar and
// the seat count.
type AdminState string

const (
	AdminActive   AdminState = "active"
	AdminCanceled AdminState = "canceled"
)

type State string

const (
	StateUpcoming   State = "upcoming"
	StateOpen       State = "open"
	StateFull       State = "full"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateCanceled   State = "canceled"
)

func (s State) String() string {
	return string(s)
}

// Cohort is one scheduled, capacity-bounded offering of a program. The
// enrolled count is mutated only by the capacity ledger's conditional
// writes; this entity is a read-side snapshot.
type Cohort struct {
	id                 uuid.UUID
	programID          uuid.UUID
	title              string
	capacity           int32
	enrolledCount      int32
	price              pricing.Money
	currency           string
	registrationOpens  time.Time
	registrationCloses time.Time
	startsAt           time.Time
	endsAt             time.Time
	adminState         AdminState
}

func Reconstruct(
	id, programID uuid.UUID,
	title string,
	capacity, enrolledCount int32,
	price pricing.Money,
	currency string,
	registrationOpens, registrationCloses, startsAt, endsAt time.Time,
	adminState AdminState,
) (*Cohort, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if enrolledCount < 0 || enrolledCount > capacity {
		return nil, ErrCountOutOfBounds
	}
	if adminState != AdminActive && adminState != AdminCanceled {
		return nil, ErrInvalidAdminState
	}
	return &Cohort{
		id:                 id,
		programID:          programID,
		title:              title,
		capacity:           capacity,
		enrolledCount:      enrolledCount,
		price:              price,
		currency:           currency,
		registrationOpens:  registrationOpens,
		registrationCloses: registrationCloses,
		startsAt:           startsAt,
		endsAt:             endsAt,
		adminState:         adminState,
	}, nil
}

func (c *Cohort) ID() uuid.UUID        { return c.id }
func (c *Cohort) ProgramID() uuid.UUID { return c.programID }
func (c *Cohort) Title() string        { return c.title }
func (c *Cohort) Capacity() int32      { return c.capacity }
func (c *Cohort) EnrolledCount() int32 { return c.enrolledCount }
func (c *Cohort) Price() pricing.Money { return c.price }
func (c *Cohort) Currency() string     { return c.currency }

func (c *Cohort) IsFull() bool {
	return c.enrolledCount >= c.capacity
}

func (c *Cohort) RemainingSeats() int32 {
	return c.capacity - c.enrolledCount
}

func (c *Cohort) IsRegistrationOpen(now time.Time) bool {
	if c.adminState == AdminCanceled {
		return false
	}
	return !now.Before(c.registrationOpens) && now.Before(c.registrationCloses)
}

// StateAt derives the visible state; FULL holds exactly when the seat
// count has reached capacity during the registration window.
func (c *Cohort) StateAt(now time.Time) State {
	if c.adminState == AdminCanceled {
		return StateCanceled
	}
	switch {
	case now.After(c.endsAt):
		return StateCompleted
	case !now.Before(c.startsAt):
		return StateInProgress
	case now.Before(c.registrationOpens):
		return StateUpcoming
	case c.IsFull():
		return StateFull
	default:
		return StateOpen
	}
}
