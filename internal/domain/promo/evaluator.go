package promo

import (
	"time"

	"coursereg/internal/domain/pricing"

	"github.com/google/uuid"
)

// Quote is the result of a successful evaluation.
type Quote struct {
	Discount   pricing.Money
	FinalPrice pricing.Money
}

// Evaluate validates the code against a base price and program and computes
// the discounted price. It is pure: no usage slot is consumed here, so a
// learner who validates a code and abandons checkout costs the code nothing.
//
// Rules short-circuit in order: active, validity window, usage budget,
// program scope, minimum purchase.
func (p *PromoCode) Evaluate(base pricing.Money, programID uuid.UUID, now time.Time) (Quote, error) {
	if !p.active {
		return Quote{}, ErrCodeInactive
	}
	if p.validFrom != nil && now.Before(*p.validFrom) {
		return Quote{}, ErrCodeNotYetValid
	}
	if p.validTo != nil && now.After(*p.validTo) {
		return Quote{}, ErrCodeExpired
	}
	if p.maxUses != nil && p.usageCount >= *p.maxUses {
		return Quote{}, ErrCodeExhausted
	}
	if p.programID != nil && *p.programID != programID {
		return Quote{}, ErrScopeMismatch
	}
	if p.minPurchase != nil && base.LessThan(*p.minPurchase) {
		return Quote{}, ErrBelowMinimumPurchase
	}

	discount := p.discountFor(base)
	return Quote{
		Discount:   discount,
		FinalPrice: base.Sub(discount),
	}, nil
}

func (p *PromoCode) discountFor(base pricing.Money) pricing.Money {
	switch p.kind {
	case DiscountPercentage:
		d := base.Percent(p.value)
		if p.maxDiscount != nil {
			d = d.Min(*p.maxDiscount)
		}
		return d
	case DiscountFixedAmount:
		return pricing.MustMoney(p.value).Min(base)
	default:
		return pricing.Money{}
	}
}
