package repository

import (
	"context"
	"time"

	"coursereg/internal/domain/promo"
	"coursereg/internal/infra"
	"coursereg/internal/infra/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PromoRepository struct{}

func NewPromoRepository() *PromoRepository {
	return &PromoRepository{}
}

func (r *PromoRepository) FindByCode(ctx context.Context, d db.DBTX, code string) (*promo.PromoCode, error) {
	var (
		id               uuid.UUID
		storedCode       string
		kind             string
		value            int64
		maxDiscountCents *int64
		minPurchaseCents *int64
		programID        *uuid.UUID
		maxUses          *int32
		usageCount       int32
		validFrom        *time.Time
		validTo          *time.Time
		active           bool
	)
	err := d.QueryRow(ctx,
		`SELECT id, code, discount_type, value, max_discount_cents, min_purchase_cents,
		        program_id, max_uses, usage_count, valid_from, valid_to, active
		 FROM promo_codes WHERE code = $1`,
		promo.NormalizeCode(code),
	).Scan(&id, &storedCode, &kind, &value, &maxDiscountCents, &minPurchaseCents,
		&programID, &maxUses, &usageCount, &validFrom, &validTo, &active)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, infra.WrapRepoErr("promo code not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find promo code", err)
	}

	entity, err := promo.NewPromoCode(id, storedCode, promo.DiscountType(kind), value,
		maxDiscountCents, minPurchaseCents, programID, maxUses, usageCount, validFrom, validTo, active)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to reconstruct promo code", err)
	}
	return entity, nil
}

// ConsumeUsage spends one usage slot at confirmation. Conditional on the
// cap so a burst of simultaneous confirmations cannot overdraw the budget;
// false means the budget ran out between validation and confirmation.
func (r *PromoRepository) ConsumeUsage(ctx context.Context, d db.DBTX, id uuid.UUID) (bool, error) {
	tag, err := d.Exec(ctx,
		`UPDATE promo_codes
		 SET usage_count = usage_count + 1, updated_at = now()
		 WHERE id = $1 AND (max_uses IS NULL OR usage_count < max_uses)`,
		id,
	)
	if err != nil {
		return false, infra.WrapRepoErr("failed to consume promo usage", err)
	}
	return tag.RowsAffected() == 1, nil
}
