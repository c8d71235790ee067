package repository

import (
	"context"
	"time"

	"coursereg/internal/infra"
	"coursereg/internal/infra/db"
	"coursereg/internal/usecase/commands"

	"github.com/google/uuid"
)

// AuditRepository appends transition facts. Callers treat it as
// best-effort: a failed append is logged, never propagated.
type AuditRepository struct{}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Record(ctx context.Context, d db.DBTX, fact commands.AuditFact) error {
	_, err := d.Exec(ctx,
		`INSERT INTO audit_log (id, registration_id, actor_id, from_status, to_status, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), fact.RegistrationID, fact.ActorID, fact.FromStatus, fact.ToStatus, fact.OccurredAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to append audit fact", err)
	}
	return nil
}

// AnomalyRepository records reconciliation gaps for the alerting path.
type AnomalyRepository struct{}

func NewAnomalyRepository() *AnomalyRepository {
	return &AnomalyRepository{}
}

func (r *AnomalyRepository) Record(ctx context.Context, d db.DBTX, kind, providerRef string, detail []byte, now time.Time) error {
	_, err := d.Exec(ctx,
		`INSERT INTO reconciliation_anomalies (id, kind, provider_ref, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), kind, providerRef, detail, now,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to record reconciliation anomaly", err)
	}
	return nil
}
