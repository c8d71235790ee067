package repository

import (
	"context"
	"time"

	"coursereg/internal/infra"
	"coursereg/internal/infra/db"
	"coursereg/internal/usecase/commands"

	"github.com/google/uuid"
)

// JobRepository backs the internal follow-up-action queue. Jobs are
// enqueued in the transaction that caused them, so a committed state change
// and its follow-up are never split.
type JobRepository struct{}

func NewJobRepository() *JobRepository {
	return &JobRepository{}
}

func (r *JobRepository) Enqueue(ctx context.Context, d db.DBTX, kind string, payload []byte, runAt time.Time) error {
	_, err := d.Exec(ctx,
		`INSERT INTO jobs (id, kind, payload, status, attempts, run_at, created_at)
		 VALUES ($1, $2, $3, 'queued', 0, $4, now())`,
		uuid.New(), kind, payload, runAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to enqueue job", err)
	}
	return nil
}

func (r *JobRepository) DueBatch(ctx context.Context, d db.DBTX, now time.Time, limit int32) ([]commands.JobRecord, error) {
	rows, err := d.Query(ctx,
		`SELECT id, kind, payload, attempts
		 FROM jobs
		 WHERE status = 'queued' AND run_at <= $1
		 ORDER BY run_at
		 LIMIT $2
		 FOR UPDATE SKIP LOCKED`,
		now, limit,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to fetch due jobs", err)
	}
	defer rows.Close()

	var out []commands.JobRecord
	for rows.Next() {
		var rec commands.JobRecord
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Payload, &rec.Attempts); err != nil {
			return nil, infra.WrapRepoErr("failed to scan job", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *JobRepository) MarkDone(ctx context.Context, d db.DBTX, id uuid.UUID) error {
	_, err := d.Exec(ctx, `UPDATE jobs SET status = 'done' WHERE id = $1`, id)
	if err != nil {
		return infra.WrapRepoErr("failed to mark job done", err)
	}
	return nil
}

func (r *JobRepository) Reschedule(ctx context.Context, d db.DBTX, id uuid.UUID, attempts int32, nextAt time.Time) error {
	_, err := d.Exec(ctx,
		`UPDATE jobs SET attempts = $2, run_at = $3 WHERE id = $1`,
		id, attempts, nextAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to reschedule job", err)
	}
	return nil
}

func (r *JobRepository) MarkFailed(ctx context.Context, d db.DBTX, id uuid.UUID) error {
	_, err := d.Exec(ctx, `UPDATE jobs SET status = 'failed' WHERE id = $1`, id)
	if err != nil {
		return infra.WrapRepoErr("failed to mark job failed", err)
	}
	return nil
}
