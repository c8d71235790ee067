package commands

import (
	"context"
	"time"

	"coursereg/internal/domain/payment"
	"coursereg/internal/domain/promo"
	"coursereg/internal/domain/registration"
	"coursereg/internal/domain/waitlist"
	"coursereg/internal/infra/db"

	"github.com/google/uuid"
)

// Write-side snapshots prevent dependency on read-side query types.

type CohortSnapshot struct {
	ID                 uuid.UUID
	ProgramID          uuid.UUID
	Title              string
	Capacity           int32
	EnrolledCount      int32
	PriceCents         int64
	Currency           string
	RegistrationOpens  time.Time
	RegistrationCloses time.Time
	StartsAt           time.Time
	EndsAt             time.Time
	AdminState         string
}

type RegistrationSnapshot struct {
	ID          uuid.UUID
	LearnerID   uuid.UUID
	CohortID    uuid.UUID
	Status      registration.Status
	AmountCents int64
	Currency    string
	PromoCodeID *uuid.UUID
	ExpiresAt   *time.Time
}

type WaitlistSnapshot struct {
	ID             uuid.UUID
	CohortID       uuid.UUID
	LearnerID      uuid.UUID
	Seq            int64
	Status         string
	OfferExpiresAt *time.Time
}

type GatewayEventRecord struct {
	ID              uuid.UUID
	ProviderEventID string
	ProviderRef     string
	Kind            string
	AmountCents     int64
	Currency        string
	Payload         []byte
	Attempts        int32
}

type JobRecord struct {
	ID       uuid.UUID
	Kind     string
	Payload  []byte
	Attempts int32
}

// AuditFact is one state-transition record for the audit collaborator.
type AuditFact struct {
	RegistrationID uuid.UUID
	ActorID        *uuid.UUID
	FromStatus     string
	ToStatus       string
	OccurredAt     time.Time
}

// CatalogReader is the catalog collaborator: read-only cohort facts.
type CatalogReader interface {
	CohortByID(ctx context.Context, d db.DBTX, id uuid.UUID) (*CohortSnapshot, error)
}

// CapacityLedger is the authoritative seat counter. TryReserve and Release
// are the only two mutators of a cohort's enrolled count in the system;
// both are single atomic conditional writes.
type CapacityLedger interface {
	// TryReserve returns false when the cohort is full; that is an expected
	// branch, not an error.
	TryReserve(ctx context.Context, d db.DBTX, cohortID uuid.UUID) (bool, error)
	// Release is a no-op when the count is already zero.
	Release(ctx context.Context, d db.DBTX, cohortID uuid.UUID) error
}

type RegistrationRepository interface {
	Create(ctx context.Context, d db.DBTX, reg *registration.Registration) error
	FindByID(ctx context.Context, d db.DBTX, id uuid.UUID) (*RegistrationSnapshot, error)
	// FindHolding returns the learner's seat-holding registration for the
	// cohort, if any.
	FindHolding(ctx context.Context, d db.DBTX, learnerID, cohortID uuid.UUID) (*RegistrationSnapshot, error)
	// Transition CASes the status; false means the expected status was
	// stale and nothing was applied.
	Transition(ctx context.Context, d db.DBTX, id uuid.UUID, from, to registration.Status, now time.Time) (bool, error)
	ListExpired(ctx context.Context, d db.DBTX, now time.Time, limit int32) ([]RegistrationSnapshot, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, d db.DBTX, p *payment.Payment) error
	FindByProviderRef(ctx context.Context, d db.DBTX, providerRef string) (*payment.Payment, error)
	FindByRegistrationID(ctx context.Context, d db.DBTX, registrationID uuid.UUID) (*payment.Payment, error)
	// AttachProviderRef binds the gateway's reference to the payment once,
	// on the Created event.
	AttachProviderRef(ctx context.Context, d db.DBTX, id uuid.UUID, providerRef string) (bool, error)
	Transition(ctx context.Context, d db.DBTX, id uuid.UUID, from, to payment.Status, now time.Time) (bool, error)
}

type PromoRepository interface {
	FindByCode(ctx context.Context, d db.DBTX, code string) (*promo.PromoCode, error)
	// ConsumeUsage is the only place a usage slot is spent; it is a
	// conditional increment bounded by the code's usage cap.
	ConsumeUsage(ctx context.Context, d db.DBTX, id uuid.UUID) (bool, error)
}

type WaitlistRepository interface {
	Enqueue(ctx context.Context, d db.DBTX, cohortID, learnerID uuid.UUID) (int, error)
	PeekNext(ctx context.Context, d db.DBTX, cohortID uuid.UUID) (*WaitlistSnapshot, error)
	PositionOf(ctx context.Context, d db.DBTX, cohortID, learnerID uuid.UUID) (int, error)
	FindLive(ctx context.Context, d db.DBTX, cohortID, learnerID uuid.UUID) (*waitlist.Entry, error)
	MarkOffered(ctx context.Context, d db.DBTX, entryID uuid.UUID, deadline time.Time) (bool, error)
	// MarkConverted CASes the entry out of the queue; from names the live
	// status the caller observed.
	MarkConverted(ctx context.Context, d db.DBTX, entryID uuid.UUID, from waitlist.Status) (bool, error)
	MarkExpired(ctx context.Context, d db.DBTX, entryID uuid.UUID) (bool, error)
	ListLapsedOffers(ctx context.Context, d db.DBTX, now time.Time, limit int32) ([]WaitlistSnapshot, error)
}

// IntakeEvent is a gateway delivery as received on the wire.
type IntakeEvent struct {
	ProviderEventID string
	ProviderRef     string
	Kind            string
	AmountCents     int64
	Currency        string
	Payload         []byte
}

type GatewayEventRepository interface {
	// Insert durably queues a delivery; false means the provider event ID
	// was seen before (gateway redelivery).
	Insert(ctx context.Context, d db.DBTX, ev IntakeEvent, now time.Time) (bool, error)
	DueBatch(ctx context.Context, d db.DBTX, now time.Time, limit int32) ([]GatewayEventRecord, error)
	MarkProcessed(ctx context.Context, d db.DBTX, id uuid.UUID, now time.Time) error
	Reschedule(ctx context.Context, d db.DBTX, id uuid.UUID, attempts int32, nextAt time.Time) error
	MarkFailed(ctx context.Context, d db.DBTX, id uuid.UUID, now time.Time) error
}

// JobQueue is the internal follow-up-action queue (waitlist promotion,
// notification delivery, certificate issuance). Enqueuing happens in the
// same transaction as the state change that warrants the job.
type JobQueue interface {
	Enqueue(ctx context.Context, d db.DBTX, kind string, payload []byte, runAt time.Time) error
	DueBatch(ctx context.Context, d db.DBTX, now time.Time, limit int32) ([]JobRecord, error)
	MarkDone(ctx context.Context, d db.DBTX, id uuid.UUID) error
	Reschedule(ctx context.Context, d db.DBTX, id uuid.UUID, attempts int32, nextAt time.Time) error
	MarkFailed(ctx context.Context, d db.DBTX, id uuid.UUID) error
}

// Auditor receives a fact for every state transition. Best-effort: callers
// log failures and move on, a transition never rolls back over audit.
type Auditor interface {
	Record(ctx context.Context, d db.DBTX, fact AuditFact) error
}

// AnomalyRecorder surfaces reconciliation gaps between the engine's and the
// gateway's view of money. Never silently dropped.
type AnomalyRecorder interface {
	Record(ctx context.Context, d db.DBTX, kind, providerRef string, detail []byte, now time.Time) error
}

// Notifier delivers a message to a learner. Fire-and-forget: the job worker
// calls it, failures are logged and retried by the queue, never propagated
// to the request that triggered them.
type Notifier interface {
	Send(ctx context.Context, learnerID uuid.UUID, template string, payload map[string]any) error
}

// CertificateIssuer is invoked only after a registration is confirmed; its
// failure must not roll back the confirmation.
type CertificateIssuer interface {
	Issue(ctx context.Context, learnerID, cohortID uuid.UUID) error
}

// Job kinds carried on the JobQueue.
const (
	JobKindWaitlistPromotion = "waitlist_promotion"
	JobKindNotification      = "notification"
	JobKindCertificate       = "certificate"
)

// Notification templates.
const (
	TemplateRegistrationCreated   = "registration_created"
	TemplateRegistrationConfirmed = "registration_confirmed"
	TemplateRegistrationCanceled  = "registration_canceled"
	TemplateRegistrationExpired   = "registration_expired"
	TemplateRegistrationRefunded  = "registration_refunded"
	TemplateWaitlistOffer         = "waitlist_offer"
	TemplateWaitlistOfferExpired  = "waitlist_offer_expired"
)
