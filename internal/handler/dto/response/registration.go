package response

import (
	"time"

	"coursereg/internal/usecase/commands"
	"coursereg/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type CreateRegistrationResponse struct {
	RegistrationID uuid.UUID `json:"registration_id"`
	Status         string    `json:"status"`
	AmountDueCents int64     `json:"amount_due_cents"`
	Currency       string    `json:"currency"`
	DiscountCents  int64     `json:"discount_cents"`
	ExpiresAt      time.Time `json:"expires_at"`
}

func FromCreateResult(result *commands.CreateRegistrationResult) *CreateRegistrationResponse {
	return &CreateRegistrationResponse{
		RegistrationID: result.RegistrationID,
		Status:         result.Status.String(),
		AmountDueCents: result.AmountDueCents,
		Currency:       result.Currency,
		DiscountCents:  result.DiscountCents,
		ExpiresAt:      result.ExpiresAt,
	}
}

type RegistrationResponse struct {
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

func FromRegistrationView(view *queries.RegistrationView) *RegistrationResponse {
	var resp RegistrationResponse
	_ = copier.Copy(&resp, view)
	return &resp
}

type RegistrationListResponse struct {
	ID          uuid.UUID `json:"id"`
	CohortID    uuid.UUID `json:"cohort_id"`
	CohortTitle string    `json:"cohort_title"`
	Status      string    `json:"status"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

func FromRegistrationListItems(items []*queries.RegistrationListItem) []*RegistrationListResponse {
	out := make([]*RegistrationListResponse, 0, len(items))
	for _, item := range items {
		var resp RegistrationListResponse
		_ = copier.Copy(&resp, item)
		out = append(out, &resp)
	}
	return out
}

type WaitlistJoinResponse struct {
	CohortID uuid.UUID `json:"cohort_id"`
	Position int       `json:"position"`
}

type WaitlistStatusResponse struct {
	CohortID       uuid.UUID  `json:"cohort_id"`
	Position       int        `json:"position"`
	Status         string     `json:"status"`
	OfferExpiresAt *time.Time `json:"offer_expires_at,omitempty"`
}

func FromWaitlistStatus(view *queries.WaitlistStatusView) *WaitlistStatusResponse {
	var resp WaitlistStatusResponse
	_ = copier.Copy(&resp, view)
	return &resp
}
