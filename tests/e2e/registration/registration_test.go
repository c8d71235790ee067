//go:build e2e

package registration_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"coursereg/internal/pkg/jwt"
	"coursereg/tests/common/authtest"
	"coursereg/tests/common/builder"
	"coursereg/tests/common/dbtest"
	"coursereg/tests/common/httptest"
	"coursereg/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const (
	registrationsURL = "/api/registrations"
	waitlistURL      = "/api/waitlist"
	webhookURL       = "/api/webhooks/gateway"
)

type RegistrationSuite struct {
	e2e.SharedSuite
}

func TestRegistrationSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(RegistrationSuite))
}

func (s *RegistrationSuite) learnerToken(learnerID uuid.UUID) string {
	helper := authtest.NewJWTHelper(s.Config.JWT)
	return helper.GenerateToken(s.T(), learnerID, jwt.RoleLearner)
}

func (s *RegistrationSuite) staffToken(staffID uuid.UUID) string {
	helper := authtest.NewJWTHelper(s.Config.JWT)
	return helper.GenerateToken(s.T(), staffID, jwt.RoleStaff)
}

// deliverWebhook signs and posts a gateway event, asserting it is accepted.
func (s *RegistrationSuite) deliverWebhook(eventID, kind, providerRef string, amountCents int64, data map[string]any) {
	t := s.T()

	payload := map[string]any{
		"event_id":     eventID,
		"kind":         kind,
		"provider_ref": providerRef,
		"amount_cents": amountCents,
		"currency":     "USD",
		"data":         data,
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte(s.Config.Gateway.WebhookSecret))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	w := httptest.PerformRawRequest(t, s.Router, http.MethodPost, webhookURL, body,
		map[string]string{"X-Gateway-Signature": sig})
	require.Equal(t, http.StatusOK, w.Code, "webhook delivery should be accepted")
}

// payRegistration walks a registration through created+paid gateway events
// and one reconcile pass each.
func (s *RegistrationSuite) payRegistration(registrationID uuid.UUID, providerRef string, amountCents int64) {
	t := s.T()
	ctx := context.Background()

	s.deliverWebhook("evt-created-"+providerRef, "payment.created", providerRef, amountCents,
		map[string]any{"registration_id": registrationID.String()})
	_, err := s.Reconcile.ProcessDue(ctx)
	require.NoError(t, err)

	s.deliverWebhook("evt-paid-"+providerRef, "payment.paid", providerRef, amountCents, nil)
	_, err = s.Reconcile.ProcessDue(ctx)
	require.NoError(t, err)
}

func (s *RegistrationSuite) registrationStatus(registrationID uuid.UUID) string {
	var status string
	err := s.DB.QueryRow(context.Background(),
		`SELECT status FROM registrations WHERE id = $1`, registrationID).Scan(&status)
	require.NoError(s.T(), err)
	return status
}

func (s *RegistrationSuite) enrolledCount(cohortID uuid.UUID) int {
	var count int
	err := s.DB.QueryRow(context.Background(),
		`SELECT enrolled_count FROM cohorts WHERE id = $1`, cohortID).Scan(&count)
	require.NoError(s.T(), err)
	return count
}

// =============================================================================
// TestRegistrationLifecycle - hold creation, payment confirmation, queries
// =============================================================================

func (s *RegistrationSuite) TestRegistrationLifecycle() {
	s.Run("Normal case: Learner registers and gets a payment hold", func() {
		t := s.T()

		cohortID := dbtest.CreateTestCohort(t, s.DB, "Go for Backend Engineers", 10, 50000)
		learnerID := uuid.New()
		token := s.learnerToken(learnerID)

		reqBody := builder.NewRegistrationBuilder().WithCohortID(cohortID).BuildCreateRequestDTO()
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, registrationsURL, reqBody, token)
		require.Equal(t, http.StatusCreated, w.Code)

		var created map[string]any
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &created))
		require.Equal(t, "pending_payment", created["status"])
		require.Equal(t, float64(50000), created["amount_due_cents"])
		require.Equal(t, 1, s.enrolledCount(cohortID))
	})

	s.Run("Normal case: Paid gateway event confirms the registration", func() {
		t := s.T()

		cohortID := dbtest.CreateTestCohort(t, s.DB, "Go for Backend Engineers", 10, 50000)
		learnerID := uuid.New()
		token := s.learnerToken(learnerID)

		reqBody := builder.NewRegistrationBuilder().WithCohortID(cohortID).BuildCreateRequestDTO()
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, registrationsURL, reqBody, token)
		require.Equal(t, http.StatusCreated, w.Code)

		var created map[string]any
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &created))
		regID := uuid.MustParse(created["registration_id"].(string))

		s.payRegistration(regID, "pi_lifecycle_1", 50000)

		w = httptest.PerformRequest(t, s.Router, http.MethodGet,
			registrationsURL+"/"+regID.String(), nil, token)
		require.Equal(t, http.StatusOK, w.Code)

		var view map[string]any
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &view))
		require.Equal(t, "confirmed", view["status"])
		require.Equal(t, 1, s.enrolledCount(cohortID))
	})

	s.Run("Error case: Duplicate registration for the same cohort is rejected", func() {
		t := s.T()

		cohortID := dbtest.CreateTestCohort(t, s.DB, "Go for Backend Engineers", 10, 50000)
		learnerID := uuid.New()
		token := s.learnerToken(learnerID)

		reqBody := builder.NewRegistrationBuilder().WithCohortID(cohortID).BuildCreateRequestDTO()
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, registrationsURL, reqBody, token)
		require.Equal(t, http.StatusCreated, w.Code)

		w = httptest.PerformRequest(t, s.Router, http.MethodPost, registrationsURL, reqBody, token)
		require.Equal(t, http.StatusConflict, w.Code)
		require.Equal(t, 1, s.enrolledCount(cohortID))
	})

	s.Run("Normal case: Promo code discounts the hold amount", func() {
		t := s.T()

		cohortID := dbtest.CreateTestCohort(t, s.DB, "Go for Backend Engineers", 10, 50000)
		dbtest.CreateTestPromoCode(t, s.DB, "SAVE20", "percentage", 20, nil)
		learnerID := uuid.New()
		token := s.learnerToken(learnerID)

		reqBody := builder.NewRegistrationBuilder().
			WithCohortID(cohortID).
			WithPromoCode("SAVE20").
			BuildCreateRequestDTO()
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, registrationsURL, reqBody, token)
		require.Equal(t, http.StatusCreated, w.Code)

		var created map[string]any
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &created))
		require.Equal(t, float64(40000), created["amount_due_cents"])
		require.Equal(t, float64(10000), created["discount_cents"])
	})
}

// =============================================================================
// TestCapacityRace - concurrent contention for the last seat
// =============================================================================

func (s *RegistrationSuite) TestCapacityRace() {
	s.Run("Normal case: Exactly one of many concurrent registrations wins the last seat", func() {
		t := s.T()

		cohortID := dbtest.CreateTestCohort(t, s.DB, "Last Seat Standing", 1, 50000)

		const contenders = 8
		codes := make([]int, contenders)
		var wg sync.WaitGroup
		for i := range contenders {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				token := s.learnerToken(uuid.New())
				reqBody := builder.NewRegistrationBuilder().WithCohortID(cohortID).BuildCreateRequestDTO()
				w := httptest.PerformRequest(t, s.Router, http.MethodPost, registrationsURL, reqBody, token)
				codes[idx] = w.Code
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, code := range codes {
			switch code {
			case http.StatusCreated:
				winners++
			case http.StatusConflict:
				// expected for everyone else
			default:
				t.Fatalf("unexpected status code %d", code)
			}
		}
		require.Equal(t, 1, winners, "exactly one registration should win the seat")
		require.Equal(t, 1, s.enrolledCount(cohortID))
	})
}

// =============================================================================
// TestPaymentIdempotence - redelivered gateway events apply once
// =============================================================================

func (s *RegistrationSuite) TestPaymentIdempotence() {
	s.Run("Normal case: Redelivered paid event does not double-apply", func() {
		t := s.T()
		ctx := context.Background()

		cohortID := dbtest.CreateTestCohort(t, s.DB, "Idempotence 101", 10, 50000)
		learnerID := uuid.New()
		token := s.learnerToken(learnerID)

		reqBody := builder.NewRegistrationBuilder().WithCohortID(cohortID).BuildCreateRequestDTO()
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, registrationsURL, reqBody, token)
		require.Equal(t, http.StatusCreated, w.Code)

		var created map[string]any
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &created))
		regID := uuid.MustParse(created["registration_id"].(string))

		s.payRegistration(regID, "pi_idem_1", 50000)

		// Same event ID delivered again: accepted, deduped, nothing changes.
		s.deliverWebhook("evt-paid-pi_idem_1", "payment.paid", "pi_idem_1", 50000, nil)
		_, err := s.Reconcile.ProcessDue(ctx)
		require.NoError(t, err)

		require.Equal(t, "confirmed", s.registrationStatus(regID))
		require.Equal(t, 1, s.enrolledCount(cohortID))
	})

	s.Run("Error case: Amount mismatch is recorded as an anomaly, never confirmed", func() {
		t := s.T()
		ctx := context.Background()

		cohortID := dbtest.CreateTestCohort(t, s.DB, "Idempotence 101", 10, 50000)
		learnerID := uuid.New()
		token := s.learnerToken(learnerID)

		reqBody := builder.NewRegistrationBuilder().WithCohortID(cohortID).BuildCreateRequestDTO()
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, registrationsURL, reqBody, token)
		require.Equal(t, http.StatusCreated, w.Code)

		var created map[string]any
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &created))
		regID := uuid.MustParse(created["registration_id"].(string))

		s.deliverWebhook("evt-created-pi_bad", "payment.created", "pi_bad", 50000,
			map[string]any{"registration_id": regID.String()})
		_, err := s.Reconcile.ProcessDue(ctx)
		require.NoError(t, err)

		// Gateway claims a different amount than the hold.
		s.deliverWebhook("evt-paid-pi_bad", "payment.paid", "pi_bad", 12345, nil)
		_, err = s.Reconcile.ProcessDue(ctx)
		require.NoError(t, err)

		require.Equal(t, "pending_payment", s.registrationStatus(regID))

		var anomalies int
		err = s.DB.QueryRow(ctx,
			`SELECT COUNT(*) FROM reconciliation_anomalies WHERE kind = 'amount_mismatch'`).Scan(&anomalies)
		require.NoError(t, err)
		require.Equal(t, 1, anomalies)
	})
}

// =============================================================================
// TestWaitlistPromotion - cancellation cascades into a waitlist offer
// =============================================================================

func (s *RegistrationSuite) TestWaitlistPromotion() {
	s.Run("Normal case: Cancellation promotes the waitlist head to an offer", func() {
		t := s.T()
		ctx := context.Background()

		cohortID := dbtest.CreateTestCohort(t, s.DB, "One Seat Wonder", 1, 50000)
		holder := uuid.New()
		waiter := uuid.New()

		holderToken := s.learnerToken(holder)
		reqBody := builder.NewRegistrationBuilder().WithCohortID(cohortID).BuildCreateRequestDTO()
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, registrationsURL, reqBody, holderToken)
		require.Equal(t, http.StatusCreated, w.Code)

		var created map[string]any
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &created))
		regID := uuid.MustParse(created["registration_id"].(string))

		waiterToken := s.learnerToken(waiter)
		joinBody := map[string]any{"cohort_id": cohortID.String()}
		w = httptest.PerformRequest(t, s.Router, http.MethodPost, waitlistURL, joinBody, waiterToken)
		require.Equal(t, http.StatusCreated, w.Code)

		var joined map[string]any
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &joined))
		require.Equal(t, float64(1), joined["position"])

		w = httptest.PerformRequest(t, s.Router, http.MethodDelete,
			registrationsURL+"/"+regID.String(), nil, holderToken)
		require.Equal(t, http.StatusNoContent, w.Code)

		// The cancellation enqueued a promotion job; run the dispatcher.
		_, err := s.Jobs.ProcessDue(ctx)
		require.NoError(t, err)

		w = httptest.PerformRequest(t, s.Router, http.MethodGet,
			waitlistURL+"/"+cohortID.String(), nil, waiterToken)
		require.Equal(t, http.StatusOK, w.Code)

		var status map[string]any
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &status))
		require.Equal(t, "offered", status["status"])

		// The offer holds the released seat.
		require.Equal(t, 1, s.enrolledCount(cohortID))
	})

	s.Run("Normal case: Offer holder converts without consuming a second seat", func() {
		t := s.T()
		ctx := context.Background()

		cohortID := dbtest.CreateTestCohort(t, s.DB, "One Seat Wonder", 1, 50000)
		holder := uuid.New()
		waiter := uuid.New()

		holderToken := s.learnerToken(holder)
		reqBody := builder.NewRegistrationBuilder().WithCohortID(cohortID).BuildCreateRequestDTO()
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, registrationsURL, reqBody, holderToken)
		require.Equal(t, http.StatusCreated, w.Code)

		var created map[string]any
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &created))
		regID := uuid.MustParse(created["registration_id"].(string))

		waiterToken := s.learnerToken(waiter)
		joinBody := map[string]any{"cohort_id": cohortID.String()}
		w = httptest.PerformRequest(t, s.Router, http.MethodPost, waitlistURL, joinBody, waiterToken)
		require.Equal(t, http.StatusCreated, w.Code)

		w = httptest.PerformRequest(t, s.Router, http.MethodDelete,
			registrationsURL+"/"+regID.String(), nil, holderToken)
		require.Equal(t, http.StatusNoContent, w.Code)

		_, err := s.Jobs.ProcessDue(ctx)
		require.NoError(t, err)

		// The offered learner registers; the reserved seat backs the offer.
		w = httptest.PerformRequest(t, s.Router, http.MethodPost, registrationsURL, reqBody, waiterToken)
		require.Equal(t, http.StatusCreated, w.Code)
		require.Equal(t, 1, s.enrolledCount(cohortID))
	})
}

// =============================================================================
// TestOfferExpiry - lapsed offers skip to the next learner in line
// =============================================================================

func (s *RegistrationSuite) TestOfferExpiry() {
	s.Run("Normal case: Lapsed offer passes the seat to the next waiter in FIFO order", func() {
		t := s.T()
		ctx := context.Background()

		cohortID := dbtest.CreateTestCohort(t, s.DB, "Patience Pays Off", 1, 50000)
		holder := uuid.New()
		first := uuid.New()
		second := uuid.New()

		holderToken := s.learnerToken(holder)
		reqBody := builder.NewRegistrationBuilder().WithCohortID(cohortID).BuildCreateRequestDTO()
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, registrationsURL, reqBody, holderToken)
		require.Equal(t, http.StatusCreated, w.Code)

		var created map[string]any
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &created))
		regID := uuid.MustParse(created["registration_id"].(string))

		joinBody := map[string]any{"cohort_id": cohortID.String()}
		firstToken := s.learnerToken(first)
		w = httptest.PerformRequest(t, s.Router, http.MethodPost, waitlistURL, joinBody, firstToken)
		require.Equal(t, http.StatusCreated, w.Code)
		secondToken := s.learnerToken(second)
		w = httptest.PerformRequest(t, s.Router, http.MethodPost, waitlistURL, joinBody, secondToken)
		require.Equal(t, http.StatusCreated, w.Code)

		w = httptest.PerformRequest(t, s.Router, http.MethodDelete,
			registrationsURL+"/"+regID.String(), nil, holderToken)
		require.Equal(t, http.StatusNoContent, w.Code)

		_, err := s.Jobs.ProcessDue(ctx)
		require.NoError(t, err)

		// First waiter holds the offer; lapse it manually.
		_, err = s.DB.Exec(ctx,
			`UPDATE waitlist_entries SET offer_expires_at = now() - interval '1 minute'
			 WHERE cohort_id = $1 AND learner_id = $2`, cohortID, first)
		require.NoError(t, err)

		expired, err := s.Sweep.ExpireOffers(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, expired)

		// The sweep re-enqueued a promotion; the dispatcher hands the seat on.
		_, err = s.Jobs.ProcessDue(ctx)
		require.NoError(t, err)

		w = httptest.PerformRequest(t, s.Router, http.MethodGet,
			waitlistURL+"/"+cohortID.String(), nil, secondToken)
		require.Equal(t, http.StatusOK, w.Code)

		var status map[string]any
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &status))
		require.Equal(t, "offered", status["status"])

		// The lapsed learner is off the live waitlist.
		w = httptest.PerformRequest(t, s.Router, http.MethodGet,
			waitlistURL+"/"+cohortID.String(), nil, firstToken)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

// =============================================================================
// TestHoldExpiry - the sweeper reclaims lapsed payment holds
// =============================================================================

func (s *RegistrationSuite) TestHoldExpiry() {
	s.Run("Normal case: Expired hold releases the seat", func() {
		t := s.T()
		ctx := context.Background()

		cohortID := dbtest.CreateTestCohort(t, s.DB, "Slow Payers Anonymous", 5, 50000)
		learnerID := uuid.New()
		regID := dbtest.CreateExpiredHold(t, s.DB, cohortID, learnerID, 50000)
		require.Equal(t, 1, s.enrolledCount(cohortID))

		expired, err := s.Sweep.ExpireHolds(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, expired)

		require.Equal(t, "expired", s.registrationStatus(regID))
		require.Equal(t, 0, s.enrolledCount(cohortID))
	})

	s.Run("Normal case: Expiry re-opens the seat for a new registration", func() {
		t := s.T()
		ctx := context.Background()

		cohortID := dbtest.CreateTestCohort(t, s.DB, "Slow Payers Anonymous", 1, 50000)
		dbtest.CreateExpiredHold(t, s.DB, cohortID, uuid.New(), 50000)

		_, err := s.Sweep.ExpireHolds(ctx)
		require.NoError(t, err)

		token := s.learnerToken(uuid.New())
		reqBody := builder.NewRegistrationBuilder().WithCohortID(cohortID).BuildCreateRequestDTO()
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, registrationsURL, reqBody, token)
		require.Equal(t, http.StatusCreated, w.Code)
	})
}

// =============================================================================
// TestStaffCancel - refund path for confirmed registrations
// =============================================================================

func (s *RegistrationSuite) TestStaffCancel() {
	s.Run("Normal case: Staff cancels a confirmed registration and the refund releases once", func() {
		t := s.T()
		ctx := context.Background()

		cohortID := dbtest.CreateTestCohort(t, s.DB, "Refund Me Maybe", 3, 50000)
		learnerID := uuid.New()
		token := s.learnerToken(learnerID)

		reqBody := builder.NewRegistrationBuilder().WithCohortID(cohortID).BuildCreateRequestDTO()
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, registrationsURL, reqBody, token)
		require.Equal(t, http.StatusCreated, w.Code)

		var created map[string]any
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &created))
		regID := uuid.MustParse(created["registration_id"].(string))

		s.payRegistration(regID, "pi_refund_1", 50000)
		require.Equal(t, "confirmed", s.registrationStatus(regID))

		w = httptest.PerformRequest(t, s.Router, http.MethodDelete,
			registrationsURL+"/"+regID.String(), nil, s.staffToken(uuid.New()))
		require.Equal(t, http.StatusNoContent, w.Code)

		require.Equal(t, "refunded", s.registrationStatus(regID))
		require.Equal(t, 0, s.enrolledCount(cohortID))

		// The gateway's refund event arrives afterwards; the seat must not
		// be released a second time.
		s.deliverWebhook("evt-refund-pi_refund_1", "refund.issued", "pi_refund_1", 50000, nil)
		_, err := s.Reconcile.ProcessDue(ctx)
		require.NoError(t, err)
		require.Equal(t, 0, s.enrolledCount(cohortID))
	})

	s.Run("Error case: Learner cannot cancel a stranger's registration", func() {
		t := s.T()

		cohortID := dbtest.CreateTestCohort(t, s.DB, "Refund Me Maybe", 3, 50000)
		owner := uuid.New()
		ownerToken := s.learnerToken(owner)

		reqBody := builder.NewRegistrationBuilder().WithCohortID(cohortID).BuildCreateRequestDTO()
		w := httptest.PerformRequest(t, s.Router, http.MethodPost, registrationsURL, reqBody, ownerToken)
		require.Equal(t, http.StatusCreated, w.Code)

		var created map[string]any
		require.NoError(t, httptest.DecodeResponseBody(t, w.Body, &created))
		regID := uuid.MustParse(created["registration_id"].(string))

		strangerToken := s.learnerToken(uuid.New())
		w = httptest.PerformRequest(t, s.Router, http.MethodDelete,
			registrationsURL+"/"+regID.String(), nil, strangerToken)
		require.Equal(t, http.StatusForbidden, w.Code)
	})
}
