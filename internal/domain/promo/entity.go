package promo

import (
	"errors"
	"strings"
	"time"

	"coursereg/internal/domain/pricing"

	"github.com/google/uuid"
)

var (
	ErrInvalidDiscountType  = errors.New("invalid discount type")
	ErrInvalidDiscountValue = errors.New("invalid discount value")
	ErrCodeInactive         = errors.New("promo code is inactive")
	ErrCodeNotYetValid      = errors.New("promo code is not yet valid")
	ErrCodeExpired          = errors.New("promo code has expired")
	ErrCodeExhausted        = errors.New("promo code usage limit reached")
	ErrScopeMismatch        = errors.New("promo code does not apply to this program")
	ErrBelowMinimumPurchase = errors.New("price is below the code's minimum purchase")
)

type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
)

func (t DiscountType) IsValid() bool {
	return t == DiscountPercentage || t == DiscountFixedAmount
}

// NormalizeCode is the single case-normalization point for codes; lookups
// and storage both go through it.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PromoCode is a discount rule. The evaluator reads it; the only write is
// the usage-count increment at registration confirmation, which happens in
// storage, not here.
type PromoCode struct {
	id          uuid.UUID
	code        string
	kind        DiscountType
	value       int64
	maxDiscount *pricing.Money
	minPurchase *pricing.Money
	programID   *uuid.UUID
	maxUses     *int32
	usageCount  int32
	validFrom   *time.Time
	validTo     *time.Time
	active      bool
}

func NewPromoCode(
	id uuid.UUID,
	code string,
	kind DiscountType,
	value int64,
	maxDiscountCents, minPurchaseCents *int64,
	programID *uuid.UUID,
	maxUses *int32,
	usageCount int32,
	validFrom, validTo *time.Time,
	active bool,
) (*PromoCode, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidDiscountType
	}
	if value <= 0 {
		return nil, ErrInvalidDiscountValue
	}
	if kind == DiscountPercentage && value > 100 {
		return nil, ErrInvalidDiscountValue
	}

	var maxDiscount, minPurchase *pricing.Money
	if maxDiscountCents != nil {
		m, err := pricing.NewMoney(*maxDiscountCents)
		if err != nil {
			return nil, ErrInvalidDiscountValue
		}
		maxDiscount = &m
	}
	if minPurchaseCents != nil {
		m, err := pricing.NewMoney(*minPurchaseCents)
		if err != nil {
			return nil, ErrInvalidDiscountValue
		}
		minPurchase = &m
	}

	return &PromoCode{
		id:          id,
		code:        NormalizeCode(code),
		kind:        kind,
		value:       value,
		maxDiscount: maxDiscount,
		minPurchase: minPurchase,
		programID:   programID,
		maxUses:     maxUses,
		usageCount:  usageCount,
		validFrom:   validFrom,
		validTo:     validTo,
		active:      active,
	}, nil
}

func (p *PromoCode) ID() uuid.UUID      { return p.id }
func (p *PromoCode) Code() string       { return p.code }
func (p *PromoCode) Kind() DiscountType { return p.kind }
func (p *PromoCode) Value() int64       { return p.value }
