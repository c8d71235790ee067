package repository

import (
	"context"
	"time"

	"coursereg/internal/domain/waitlist"
	"coursereg/internal/infra"
	"coursereg/internal/infra/db"
	"coursereg/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type WaitlistRepository struct{}

func NewWaitlistRepository() *WaitlistRepository {
	return &WaitlistRepository{}
}

// Enqueue appends the learner and returns their 1-based position. The
// bigserial seq column gives the FIFO order a monotonic tiebreaker that
// wall clocks cannot.
func (r *WaitlistRepository) Enqueue(ctx context.Context, d db.DBTX, cohortID, learnerID uuid.UUID) (int, error) {
	var seq int64
	err := d.QueryRow(ctx,
		`INSERT INTO waitlist_entries (id, cohort_id, learner_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, 'waiting', now(), now())
		 RETURNING seq`,
		uuid.New(), cohortID, learnerID,
	).Scan(&seq)
	if err != nil {
		if infra.IsUniqueViolation(err) {
			return 0, infra.WrapRepoErr("learner already on waitlist", err, infra.KindDuplicateKey)
		}
		return 0, infra.WrapRepoErr("failed to enqueue waitlist entry", err)
	}

	var position int
	err = d.QueryRow(ctx,
		`SELECT COUNT(*) FROM waitlist_entries
		 WHERE cohort_id = $1 AND status IN ('waiting', 'offered') AND seq <= $2`,
		cohortID, seq,
	).Scan(&position)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to compute waitlist position", err)
	}
	return position, nil
}

func (r *WaitlistRepository) PeekNext(ctx context.Context, d db.DBTX, cohortID uuid.UUID) (*commands.WaitlistSnapshot, error) {
	return r.findOne(ctx, d,
		`SELECT id, cohort_id, learner_id, seq, status, offer_expires_at
		 FROM waitlist_entries
		 WHERE cohort_id = $1 AND status = 'waiting'
		 ORDER BY seq
		 LIMIT 1`,
		cohortID,
	)
}

func (r *WaitlistRepository) FindLive(ctx context.Context, d db.DBTX, cohortID, learnerID uuid.UUID) (*waitlist.Entry, error) {
	var (
		id, chID, lrnID      uuid.UUID
		seq                  int64
		status               string
		offerExpiresAt       *time.Time
		createdAt, updatedAt time.Time
	)
	err := d.QueryRow(ctx,
		`SELECT id, cohort_id, learner_id, seq, status, offer_expires_at, created_at, updated_at
		 FROM waitlist_entries
		 WHERE cohort_id = $1 AND learner_id = $2 AND status IN ('waiting', 'offered')`,
		cohortID, learnerID,
	).Scan(&id, &chID, &lrnID, &seq, &status, &offerExpiresAt, &createdAt, &updatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, infra.WrapRepoErr("waitlist entry not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find waitlist entry", err)
	}

	entry, err := waitlist.Reconstruct(id, chID, lrnID, seq,
		waitlist.Status(status), offerExpiresAt, createdAt, updatedAt)
	if err != nil {
		return nil, infra.WrapRepoErr("stored waitlist entry is invalid", err)
	}
	return entry, nil
}

func (r *WaitlistRepository) findOne(ctx context.Context, d db.DBTX, query string, args ...any) (*commands.WaitlistSnapshot, error) {
	var s commands.WaitlistSnapshot
	err := d.QueryRow(ctx, query, args...).Scan(
		&s.ID, &s.CohortID, &s.LearnerID, &s.Seq, &s.Status, &s.OfferExpiresAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, infra.WrapRepoErr("waitlist entry not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find waitlist entry", err)
	}
	return &s, nil
}

// PositionOf ranks the learner among live entries by seq.
func (r *WaitlistRepository) PositionOf(ctx context.Context, d db.DBTX, cohortID, learnerID uuid.UUID) (int, error) {
	var position int
	err := d.QueryRow(ctx,
		`SELECT COUNT(*) FROM waitlist_entries
		 WHERE cohort_id = $1 AND status IN ('waiting', 'offered')
		   AND seq <= (SELECT seq FROM waitlist_entries
		               WHERE cohort_id = $1 AND learner_id = $2
		                 AND status IN ('waiting', 'offered'))`,
		cohortID, learnerID,
	).Scan(&position)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to compute waitlist position", err)
	}
	if position == 0 {
		return 0, infra.WrapRepoErr("learner not on waitlist", pgx.ErrNoRows, infra.KindNotFound)
	}
	return position, nil
}

func (r *WaitlistRepository) MarkOffered(ctx context.Context, d db.DBTX, entryID uuid.UUID, deadline time.Time) (bool, error) {
	return r.cas(ctx, d,
		`UPDATE waitlist_entries
		 SET status = 'offered', offer_expires_at = $2, updated_at = now()
		 WHERE id = $1 AND status = 'waiting'`,
		entryID, deadline)
}

func (r *WaitlistRepository) MarkConverted(ctx context.Context, d db.DBTX, entryID uuid.UUID, from waitlist.Status) (bool, error) {
	return r.cas(ctx, d,
		`UPDATE waitlist_entries
		 SET status = 'converted', updated_at = now()
		 WHERE id = $1 AND status = $2`,
		entryID, from.String())
}

func (r *WaitlistRepository) MarkExpired(ctx context.Context, d db.DBTX, entryID uuid.UUID) (bool, error) {
	return r.cas(ctx, d,
		`UPDATE waitlist_entries
		 SET status = 'expired', updated_at = now()
		 WHERE id = $1 AND status = 'offered'`,
		entryID)
}

func (r *WaitlistRepository) cas(ctx context.Context, d db.DBTX, query string, args ...any) (bool, error) {
	tag, err := d.Exec(ctx, query, args...)
	if err != nil {
		return false, infra.WrapRepoErr("failed to update waitlist entry", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *WaitlistRepository) ListLapsedOffers(ctx context.Context, d db.DBTX, now time.Time, limit int32) ([]commands.WaitlistSnapshot, error) {
	rows, err := d.Query(ctx,
		`SELECT id, cohort_id, learner_id, seq, status, offer_expires_at
		 FROM waitlist_entries
		 WHERE status = 'offered' AND offer_expires_at < $1
		 ORDER BY offer_expires_at
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list lapsed offers", err)
	}
	defer rows.Close()

	var out []commands.WaitlistSnapshot
	for rows.Next() {
		var s commands.WaitlistSnapshot
		if err := rows.Scan(&s.ID, &s.CohortID, &s.LearnerID, &s.Seq, &s.Status, &s.OfferExpiresAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan waitlist entry", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
