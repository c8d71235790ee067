package waitlist

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidStatus = errors.New("invalid waitlist status")

type Status string

const (
	// StatusWaiting: in line, FIFO by sequence number.
	StatusWaiting Status = "waiting"
	// StatusOffered: a freed seat is being held for this entry until the
	// offer deadline.
	StatusOffered Status = "offered"
	// StatusExpired: the offer lapsed; the seat went back to the ledger.
	StatusExpired Status = "expired"
	// StatusConverted: the learner completed registration off the offer.
	StatusConverted Status = "converted"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusWaiting, StatusOffered, StatusExpired, StatusConverted:
		return true
	default:
		return false
	}
}

// IsLive reports whether the entry still occupies a queue position.
func (s Status) IsLive() bool {
	return s == StatusWaiting || s == StatusOffered
}

// Entry is a learner's position in a cohort's queue. Ordering is by the
// monotonic sequence assigned at enqueue, never by wall clock.
type Entry struct {
	id             uuid.UUID
	cohortID       uuid.UUID
	learnerID      uuid.UUID
	seq            int64
	status         Status
	offerExpiresAt *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

func Reconstruct(
	id, cohortID, learnerID uuid.UUID,
	seq int64,
	status Status,
	offerExpiresAt *time.Time,
	createdAt, updatedAt time.Time,
) (*Entry, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	return &Entry{
		id:             id,
		cohortID:       cohortID,
		learnerID:      learnerID,
		seq:            seq,
		status:         status,
		offerExpiresAt: offerExpiresAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}, nil
}

func (e *Entry) ID() uuid.UUID              { return e.id }
func (e *Entry) CohortID() uuid.UUID        { return e.cohortID }
func (e *Entry) LearnerID() uuid.UUID       { return e.learnerID }
func (e *Entry) Seq() int64                 { return e.seq }
func (e *Entry) Status() Status             { return e.status }
func (e *Entry) OfferExpiresAt() *time.Time { return e.offerExpiresAt }
func (e *Entry) CreatedAt() time.Time       { return e.createdAt }
func (e *Entry) UpdatedAt() time.Time       { return e.updatedAt }

func (e *Entry) OfferLapsed(now time.Time) bool {
	return e.status == StatusOffered && e.offerExpiresAt != nil && now.After(*e.offerExpiresAt)
}
