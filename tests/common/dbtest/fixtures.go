//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// CreateTestCohort inserts an open cohort and returns its id. Registration
// is open from an hour ago until a day from now, so tests can register
// immediately without touching the clock.
func CreateTestCohort(t *testing.T, db DBLike, title string, capacity int, priceCents int64) uuid.UUID {
	t.Helper()

	cohortID := uuid.New()
	now := time.Now()

	_, err := db.Exec(context.Background(),
		`INSERT INTO cohorts
		   (id, program_id, title, capacity, enrolled_count, price_cents, currency,
		    registration_opens, registration_closes, starts_at, ends_at, admin_state)
		 VALUES ($1, $2, $3, $4, 0, $5, 'USD', $6, $7, $8, $9, 'active')`,
		cohortID, uuid.New(), title, capacity, priceCents,
		now.Add(-time.Hour), now.Add(24*time.Hour),
		now.Add(48*time.Hour), now.Add(30*24*time.Hour),
	)
	require.NoError(t, err)

	return cohortID
}

func CreateTestPromoCode(t *testing.T, db DBLike, code, discountType string, value int64, maxUses *int32) uuid.UUID {
	t.Helper()

	promoID := uuid.New()
	_, err := db.Exec(context.Background(),
		`INSERT INTO promo_codes (id, code, discount_type, value, max_uses, usage_count, active)
		 VALUES ($1, $2, $3, $4, $5, 0, true)
		 ON CONFLICT (code) DO NOTHING`,
		promoID, code, discountType, value, maxUses,
	)
	require.NoError(t, err)

	return promoID
}

// CreateExpiredHold inserts a pending registration whose hold deadline has
// already passed, together with a reserved seat on the cohort. The sweeper
// is expected to expire it and release the seat.
func CreateExpiredHold(t *testing.T, db DBLike, cohortID, learnerID uuid.UUID, amountCents int64) uuid.UUID {
	t.Helper()

	ctx := context.Background()
	regID := uuid.New()
	now := time.Now()

	_, err := db.Exec(ctx,
		`UPDATE cohorts SET enrolled_count = enrolled_count + 1 WHERE id = $1 AND enrolled_count < capacity`,
		cohortID)
	require.NoError(t, err)

	_, err = db.Exec(ctx,
		`INSERT INTO registrations
		   (id, learner_id, cohort_id, status, amount_cents, currency, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, 'pending_payment', $4, 'USD', $5, $6, $6)`,
		regID, learnerID, cohortID, amountCents, now.Add(-time.Minute), now.Add(-31*time.Minute),
	)
	require.NoError(t, err)

	return regID
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables between subtests
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, t)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	if _, err := pool.Exec(ctx, sqlAny.(string)); err != nil {
		return err
	}

	return nil
}
