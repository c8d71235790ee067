package request

import (
	"strings"

	"github.com/google/uuid"
)

type CreateRegistrationRequest struct {
	CohortID  uuid.UUID `json:"cohort_id" binding:"required"`
	PromoCode *string   `json:"promo_code,omitempty"`
}

func (r CreateRegistrationRequest) GetPromoCode() *string {
	if r.PromoCode == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*r.PromoCode)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

type JoinWaitlistRequest struct {
	CohortID uuid.UUID `json:"cohort_id" binding:"required"`
}
