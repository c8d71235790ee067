package repository

import (
	"context"
	"time"

	"coursereg/internal/infra"
	"coursereg/internal/infra/db"
	"coursereg/internal/usecase/commands"

	"github.com/google/uuid"
)

// GatewayEventRepository is the durable webhook intake. Dedupe happens at
// insert on the provider's event ID, so redeliveries are acknowledged
// without re-queueing.
type GatewayEventRepository struct{}

func NewGatewayEventRepository() *GatewayEventRepository {
	return &GatewayEventRepository{}
}

func (r *GatewayEventRepository) Insert(ctx context.Context, d db.DBTX, ev commands.IntakeEvent, now time.Time) (bool, error) {
	tag, err := d.Exec(ctx,
		`INSERT INTO gateway_events
		   (id, provider_event_id, provider_ref, kind, amount_cents, currency, payload,
		    status, attempts, next_attempt_at, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'queued', 0, $8, $8)
		 ON CONFLICT (provider_event_id) DO NOTHING`,
		uuid.New(), ev.ProviderEventID, ev.ProviderRef, ev.Kind,
		ev.AmountCents, ev.Currency, ev.Payload, now,
	)
	if err != nil {
		return false, infra.WrapRepoErr("failed to queue gateway event", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DueBatch claims queued events ready for processing. SKIP LOCKED lets
// multiple reconciler instances drain the queue without stepping on each
// other.
func (r *GatewayEventRepository) DueBatch(ctx context.Context, d db.DBTX, now time.Time, limit int32) ([]commands.GatewayEventRecord, error) {
	rows, err := d.Query(ctx,
		`SELECT id, provider_event_id, provider_ref, kind, amount_cents, currency, payload, attempts
		 FROM gateway_events
		 WHERE status = 'queued' AND next_attempt_at <= $1
		 ORDER BY received_at
		 LIMIT $2
		 FOR UPDATE SKIP LOCKED`,
		now, limit,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to fetch due gateway events", err)
	}
	defer rows.Close()

	var out []commands.GatewayEventRecord
	for rows.Next() {
		var rec commands.GatewayEventRecord
		if err := rows.Scan(&rec.ID, &rec.ProviderEventID, &rec.ProviderRef, &rec.Kind,
			&rec.AmountCents, &rec.Currency, &rec.Payload, &rec.Attempts); err != nil {
			return nil, infra.WrapRepoErr("failed to scan gateway event", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *GatewayEventRepository) MarkProcessed(ctx context.Context, d db.DBTX, id uuid.UUID, now time.Time) error {
	_, err := d.Exec(ctx,
		`UPDATE gateway_events SET status = 'processed', processed_at = $2 WHERE id = $1`,
		id, now,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to mark gateway event processed", err)
	}
	return nil
}

func (r *GatewayEventRepository) Reschedule(ctx context.Context, d db.DBTX, id uuid.UUID, attempts int32, nextAt time.Time) error {
	_, err := d.Exec(ctx,
		`UPDATE gateway_events SET attempts = $2, next_attempt_at = $3 WHERE id = $1`,
		id, attempts, nextAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to reschedule gateway event", err)
	}
	return nil
}

func (r *GatewayEventRepository) MarkFailed(ctx context.Context, d db.DBTX, id uuid.UUID, now time.Time) error {
	_, err := d.Exec(ctx,
		`UPDATE gateway_events SET status = 'failed', processed_at = $2 WHERE id = $1`,
		id, now,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to mark gateway event failed", err)
	}
	return nil
}
