//go:build unit || e2e

package builder

import (
	"time"

	reqdto "coursereg/internal/handler/dto/request"
	"coursereg/internal/usecase/queries"

	"github.com/google/uuid"
)

type RegistrationBuilder struct {
	ID          uuid.UUID
	LearnerID   uuid.UUID
	CohortID    uuid.UUID
	CohortTitle string
	Status      string
	AmountCents int64
	Currency    string
	PromoCode   *string
	ExpiresAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewRegistrationBuilder() *RegistrationBuilder {
	now := time.Now()
	expires := now.Add(30 * time.Minute)
	return &RegistrationBuilder{
		ID:          uuid.New(),
		LearnerID:   uuid.New(),
		CohortID:    uuid.New(),
		CohortTitle: "Intro to Distributed Systems",
		Status:      "pending_payment",
		AmountCents: 50000,
		Currency:    "USD",
		ExpiresAt:   &expires,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (b *RegistrationBuilder) BuildCreateRequestDTO() reqdto.CreateRegistrationRequest {
	return reqdto.CreateRegistrationRequest{
		CohortID:  b.CohortID,
		PromoCode: b.PromoCode,
	}
}

func (b *RegistrationBuilder) BuildView() *queries.RegistrationView {
	return &queries.RegistrationView{
		ID:          b.ID,
		LearnerID:   b.LearnerID,
		CohortID:    b.CohortID,
		CohortTitle: b.CohortTitle,
		Status:      b.Status,
		AmountCents: b.AmountCents,
		Currency:    b.Currency,
		PromoCode:   b.PromoCode,
		ExpiresAt:   b.ExpiresAt,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func (b *RegistrationBuilder) BuildListItem() *queries.RegistrationListItem {
	return &queries.RegistrationListItem{
		ID:          b.ID,
		CohortID:    b.CohortID,
		CohortTitle: b.CohortTitle,
		Status:      b.Status,
		AmountCents: b.AmountCents,
		CreatedAt:   b.CreatedAt,
	}
}

func (b *RegistrationBuilder) WithLearnerID(id uuid.UUID) *RegistrationBuilder {
	b.LearnerID = id
	return b
}

func (b *RegistrationBuilder) WithCohortID(id uuid.UUID) *RegistrationBuilder {
	b.CohortID = id
	return b
}

func (b *RegistrationBuilder) WithPromoCode(code string) *RegistrationBuilder {
	b.PromoCode = &code
	return b
}

func (b *RegistrationBuilder) WithStatus(status string) *RegistrationBuilder {
	b.Status = status
	return b
}

func (b *RegistrationBuilder) WithAmountCents(amount int64) *RegistrationBuilder {
	b.AmountCents = amount
	return b
}

func (b *RegistrationBuilder) AsConfirmed() *RegistrationBuilder {
	now := time.Now()
	b.Status = "confirmed"
	b.ExpiresAt = nil
	b.UpdatedAt = now
	return b
}
