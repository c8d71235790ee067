package response

import (
	"time"

	"coursereg/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type CohortResponse struct {
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

func FromCohortView(view *queries.CohortView) *CohortResponse {
	var resp CohortResponse
	_ = copier.Copy(&resp, view)
	return &resp
}

func FromCohortViews(views []*queries.CohortView) []*CohortResponse {
	out := make([]*CohortResponse, 0, len(views))
	for _, v := range views {
		out = append(out, FromCohortView(v))
	}
	return out
}
