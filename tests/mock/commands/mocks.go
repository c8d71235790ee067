// Package commandsmock provides hand-written test doubles for the command
// layer's ports.
package commandsmock

import (
	"context"
	"time"

	"coursereg/internal/domain/payment"
	"coursereg/internal/domain/promo"
	"coursereg/internal/domain/registration"
	"coursereg/internal/domain/waitlist"
	"coursereg/internal/infra/db"
	"coursereg/internal/usecase/commands"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// StubRunner executes the function directly, with no transaction. Repository
// mocks ignore the DBTX anyway.
type StubRunner struct{}

func (StubRunner) Within(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	return fn(ctx, nil)
}

func (StubRunner) WithDB(ctx context.Context, fn func(ctx context.Context, d db.DBTX) error) error {
	return fn(ctx, nil)
}

type CatalogReader struct{ mock.Mock }

func (m *CatalogReader) CohortByID(ctx context.Context, d db.DBTX, id uuid.UUID) (*commands.CohortSnapshot, error) {
	args := m.Called(ctx, d, id)
	if snap, ok := args.Get(0).(*commands.CohortSnapshot); ok {
		return snap, args.Error(1)
	}
	return nil, args.Error(1)
}

type CapacityLedger struct{ mock.Mock }

func (m *CapacityLedger) TryReserve(ctx context.Context, d db.DBTX, cohortID uuid.UUID) (bool, error) {
	args := m.Called(ctx, d, cohortID)
	return args.Bool(0), args.Error(1)
}

func (m *CapacityLedger) Release(ctx context.Context, d db.DBTX, cohortID uuid.UUID) error {
	return m.Called(ctx, d, cohortID).Error(0)
}

type RegistrationRepository struct{ mock.Mock }

func (m *RegistrationRepository) Create(ctx context.Context, d db.DBTX, reg *registration.Registration) error {
	return m.Called(ctx, d, reg).Error(0)
}

func (m *RegistrationRepository) FindByID(ctx context.Context, d db.DBTX, id uuid.UUID) (*commands.RegistrationSnapshot, error) {
	args := m.Called(ctx, d, id)
	if snap, ok := args.Get(0).(*commands.RegistrationSnapshot); ok {
		return snap, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RegistrationRepository) FindHolding(ctx context.Context, d db.DBTX, learnerID, cohortID uuid.UUID) (*commands.RegistrationSnapshot, error) {
	args := m.Called(ctx, d, learnerID, cohortID)
	if snap, ok := args.Get(0).(*commands.RegistrationSnapshot); ok {
		return snap, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RegistrationRepository) Transition(ctx context.Context, d db.DBTX, id uuid.UUID, from, to registration.Status, now time.Time) (bool, error) {
	args := m.Called(ctx, d, id, from, to, now)
	return args.Bool(0), args.Error(1)
}

func (m *RegistrationRepository) ListExpired(ctx context.Context, d db.DBTX, now time.Time, limit int32) ([]commands.RegistrationSnapshot, error) {
	args := m.Called(ctx, d, now, limit)
	if snaps, ok := args.Get(0).([]commands.RegistrationSnapshot); ok {
		return snaps, args.Error(1)
	}
	return nil, args.Error(1)
}

type PaymentRepository struct{ mock.Mock }

func (m *PaymentRepository) Create(ctx context.Context, d db.DBTX, p *payment.Payment) error {
	return m.Called(ctx, d, p).Error(0)
}

func (m *PaymentRepository) FindByProviderRef(ctx context.Context, d db.DBTX, providerRef string) (*payment.Payment, error) {
	args := m.Called(ctx, d, providerRef)
	if p, ok := args.Get(0).(*payment.Payment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PaymentRepository) FindByRegistrationID(ctx context.Context, d db.DBTX, registrationID uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, d, registrationID)
	if p, ok := args.Get(0).(*payment.Payment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PaymentRepository) AttachProviderRef(ctx context.Context, d db.DBTX, id uuid.UUID, providerRef string) (bool, error) {
	args := m.Called(ctx, d, id, providerRef)
	return args.Bool(0), args.Error(1)
}

func (m *PaymentRepository) Transition(ctx context.Context, d db.DBTX, id uuid.UUID, from, to payment.Status, now time.Time) (bool, error) {
	args := m.Called(ctx, d, id, from, to, now)
	return args.Bool(0), args.Error(1)
}

type PromoRepository struct{ mock.Mock }

func (m *PromoRepository) FindByCode(ctx context.Context, d db.DBTX, code string) (*promo.PromoCode, error) {
	args := m.Called(ctx, d, code)
	if pc, ok := args.Get(0).(*promo.PromoCode); ok {
		return pc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PromoRepository) ConsumeUsage(ctx context.Context, d db.DBTX, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, d, id)
	return args.Bool(0), args.Error(1)
}

type WaitlistRepository struct{ mock.Mock }

func (m *WaitlistRepository) Enqueue(ctx context.Context, d db.DBTX, cohortID, learnerID uuid.UUID) (int, error) {
	args := m.Called(ctx, d, cohortID, learnerID)
	return args.Int(0), args.Error(1)
}

func (m *WaitlistRepository) PeekNext(ctx context.Context, d db.DBTX, cohortID uuid.UUID) (*commands.WaitlistSnapshot, error) {
	args := m.Called(ctx, d, cohortID)
	if snap, ok := args.Get(0).(*commands.WaitlistSnapshot); ok {
		return snap, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WaitlistRepository) PositionOf(ctx context.Context, d db.DBTX, cohortID, learnerID uuid.UUID) (int, error) {
	args := m.Called(ctx, d, cohortID, learnerID)
	return args.Int(0), args.Error(1)
}

func (m *WaitlistRepository) FindLive(ctx context.Context, d db.DBTX, cohortID, learnerID uuid.UUID) (*waitlist.Entry, error) {
	args := m.Called(ctx, d, cohortID, learnerID)
	if entry, ok := args.Get(0).(*waitlist.Entry); ok {
		return entry, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *WaitlistRepository) MarkOffered(ctx context.Context, d db.DBTX, entryID uuid.UUID, deadline time.Time) (bool, error) {
	args := m.Called(ctx, d, entryID, deadline)
	return args.Bool(0), args.Error(1)
}

func (m *WaitlistRepository) MarkConverted(ctx context.Context, d db.DBTX, entryID uuid.UUID, from waitlist.Status) (bool, error) {
	args := m.Called(ctx, d, entryID, from)
	return args.Bool(0), args.Error(1)
}

func (m *WaitlistRepository) MarkExpired(ctx context.Context, d db.DBTX, entryID uuid.UUID) (bool, error) {
	args := m.Called(ctx, d, entryID)
	return args.Bool(0), args.Error(1)
}

func (m *WaitlistRepository) ListLapsedOffers(ctx context.Context, d db.DBTX, now time.Time, limit int32) ([]commands.WaitlistSnapshot, error) {
	args := m.Called(ctx, d, now, limit)
	if snaps, ok := args.Get(0).([]commands.WaitlistSnapshot); ok {
		return snaps, args.Error(1)
	}
	return nil, args.Error(1)
}

type GatewayEventRepository struct{ mock.Mock }

func (m *GatewayEventRepository) Insert(ctx context.Context, d db.DBTX, ev commands.IntakeEvent, now time.Time) (bool, error) {
	args := m.Called(ctx, d, ev, now)
	return args.Bool(0), args.Error(1)
}

func (m *GatewayEventRepository) DueBatch(ctx context.Context, d db.DBTX, now time.Time, limit int32) ([]commands.GatewayEventRecord, error) {
	args := m.Called(ctx, d, now, limit)
	if recs, ok := args.Get(0).([]commands.GatewayEventRecord); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *GatewayEventRepository) MarkProcessed(ctx context.Context, d db.DBTX, id uuid.UUID, now time.Time) error {
	return m.Called(ctx, d, id, now).Error(0)
}

func (m *GatewayEventRepository) Reschedule(ctx context.Context, d db.DBTX, id uuid.UUID, attempts int32, nextAt time.Time) error {
	return m.Called(ctx, d, id, attempts, nextAt).Error(0)
}

func (m *GatewayEventRepository) MarkFailed(ctx context.Context, d db.DBTX, id uuid.UUID, now time.Time) error {
	return m.Called(ctx, d, id, now).Error(0)
}

type JobQueue struct{ mock.Mock }

func (m *JobQueue) Enqueue(ctx context.Context, d db.DBTX, kind string, payload []byte, runAt time.Time) error {
	return m.Called(ctx, d, kind, payload, runAt).Error(0)
}

func (m *JobQueue) DueBatch(ctx context.Context, d db.DBTX, now time.Time, limit int32) ([]commands.JobRecord, error) {
	args := m.Called(ctx, d, now, limit)
	if recs, ok := args.Get(0).([]commands.JobRecord); ok {
		return recs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *JobQueue) MarkDone(ctx context.Context, d db.DBTX, id uuid.UUID) error {
	return m.Called(ctx, d, id).Error(0)
}

func (m *JobQueue) Reschedule(ctx context.Context, d db.DBTX, id uuid.UUID, attempts int32, nextAt time.Time) error {
	return m.Called(ctx, d, id, attempts, nextAt).Error(0)
}

func (m *JobQueue) MarkFailed(ctx context.Context, d db.DBTX, id uuid.UUID) error {
	return m.Called(ctx, d, id).Error(0)
}

type Auditor struct{ mock.Mock }

func (m *Auditor) Record(ctx context.Context, d db.DBTX, fact commands.AuditFact) error {
	return m.Called(ctx, d, fact).Error(0)
}

type AnomalyRecorder struct{ mock.Mock }

func (m *AnomalyRecorder) Record(ctx context.Context, d db.DBTX, kind, providerRef string, detail []byte, now time.Time) error {
	return m.Called(ctx, d, kind, providerRef, detail, now).Error(0)
}

type Notifier struct{ mock.Mock }

func (m *Notifier) Send(ctx context.Context, learnerID uuid.UUID, template string, payload map[string]any) error {
	return m.Called(ctx, learnerID, template, payload).Error(0)
}

type CertificateIssuer struct{ mock.Mock }

func (m *CertificateIssuer) Issue(ctx context.Context, learnerID, cohortID uuid.UUID) error {
	return m.Called(ctx, learnerID, cohortID).Error(0)
}
