//go:build unit

package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coursereg/internal/domain/promo"
	"coursereg/internal/domain/registration"
	"coursereg/internal/handler/api"
	"coursereg/internal/pkg/errs"
	"coursereg/internal/pkg/jwt"
	"coursereg/internal/usecase/commands"
	"coursereg/internal/usecase/queries"
	usecasemock "coursereg/tests/mock/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type RegistrationHandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	mockCommands *usecasemock.RegistrationCommands
	mockQueries  *usecasemock.RegistrationQueries
	handler      *api.RegistrationHandler

	learnerID uuid.UUID
}

func (s *RegistrationHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	s.mockCommands = &usecasemock.RegistrationCommands{}
	s.mockQueries = &usecasemock.RegistrationQueries{}
	s.handler = api.NewRegistrationHandler(s.mockCommands, s.mockQueries)
	s.learnerID = uuid.New()

	// Mock authentication middleware for testing
	authMiddleware := func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set("learner_id", s.learnerID)
		if c.GetHeader("X-Test-Staff") != "" {
			c.Set("role", jwt.RoleStaff)
		} else {
			c.Set("role", jwt.RoleLearner)
		}
		c.Next()
	}

	s.router.POST("/registrations", authMiddleware, s.handler.CreateRegistration)
	s.router.GET("/registrations", authMiddleware, s.handler.ListMyRegistrations)
	s.router.GET("/registrations/:id", authMiddleware, s.handler.GetRegistration)
	s.router.DELETE("/registrations/:id", authMiddleware, s.handler.CancelRegistration)
	s.router.POST("/waitlist", authMiddleware, s.handler.JoinWaitlist)
	s.router.GET("/waitlist/:cohort_id", authMiddleware, s.handler.WaitlistStatus)
}

func TestRegistrationHandlerSuite(t *testing.T) {
	suite.Run(t, new(RegistrationHandlerTestSuite))
}

func (s *RegistrationHandlerTestSuite) doJSON(method, url string, body any, staff bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-token")
	if staff {
		req.Header.Set("X-Test-Staff", "1")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *RegistrationHandlerTestSuite) TestCreateRegistration() {
	cohortID := uuid.New()

	s.Run("created", func() {
		s.SetupTest()
		result := &commands.CreateRegistrationResult{
			RegistrationID: uuid.New(),
			Status:         registration.StatusPendingPayment,
			AmountDueCents: 42000,
			Currency:       "USD",
			ExpiresAt:      time.Now().Add(30 * time.Minute),
		}
		s.mockCommands.On("CreateRegistration", mock.Anything, commands.CreateRegistrationParams{
			LearnerID: s.learnerID,
			CohortID:  cohortID,
		}).Return(result, nil)

		w := s.doJSON(http.MethodPost, "/registrations", gin.H{"cohort_id": cohortID}, false)

		s.Equal(http.StatusCreated, w.Code)
		s.Contains(w.Body.String(), "pending_payment")
		s.Contains(w.Body.String(), "42000")
	})

	s.Run("full cohort maps to conflict", func() {
		s.SetupTest()
		s.mockCommands.On("CreateRegistration", mock.Anything, mock.Anything).
			Return(nil, commands.ErrCohortFull)

		w := s.doJSON(http.MethodPost, "/registrations", gin.H{"cohort_id": cohortID}, false)

		s.Equal(http.StatusConflict, w.Code)
	})

	s.Run("closed window maps to unprocessable entity", func() {
		s.SetupTest()
		s.mockCommands.On("CreateRegistration", mock.Anything, mock.Anything).
			Return(nil, commands.ErrRegistrationWindowClosed)

		w := s.doJSON(http.MethodPost, "/registrations", gin.H{"cohort_id": cohortID}, false)

		s.Equal(http.StatusUnprocessableEntity, w.Code)
	})

	s.Run("invalid promo maps to bad request", func() {
		s.SetupTest()
		s.mockCommands.On("CreateRegistration", mock.Anything, mock.Anything).
			Return(nil, commands.ErrInvalidPromoCode)

		w := s.doJSON(http.MethodPost, "/registrations",
			gin.H{"cohort_id": cohortID, "promo_code": "NOPE"}, false)

		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("expired promo tells the learner why", func() {
		s.SetupTest()
		s.mockCommands.On("CreateRegistration", mock.Anything, mock.Anything).
			Return(nil, errs.Mark(promo.ErrCodeExpired, commands.ErrInvalidPromoCode))

		w := s.doJSON(http.MethodPost, "/registrations",
			gin.H{"cohort_id": cohortID, "promo_code": "LATE"}, false)

		s.Equal(http.StatusBadRequest, w.Code)
		s.Contains(w.Body.String(), "promo code has expired")
	})

	s.Run("exhausted promo tells the learner why", func() {
		s.SetupTest()
		s.mockCommands.On("CreateRegistration", mock.Anything, mock.Anything).
			Return(nil, errs.Mark(promo.ErrCodeExhausted, commands.ErrInvalidPromoCode))

		w := s.doJSON(http.MethodPost, "/registrations",
			gin.H{"cohort_id": cohortID, "promo_code": "GONE"}, false)

		s.Equal(http.StatusBadRequest, w.Code)
		s.Contains(w.Body.String(), "promo code usage limit reached")
	})

	s.Run("missing cohort_id fails binding", func() {
		s.SetupTest()

		w := s.doJSON(http.MethodPost, "/registrations", gin.H{}, false)

		s.Equal(http.StatusBadRequest, w.Code)
		s.mockCommands.AssertNotCalled(s.T(), "CreateRegistration", mock.Anything, mock.Anything)
	})

	s.Run("unauthenticated", func() {
		s.SetupTest()
		req := httptest.NewRequest(http.MethodPost, "/registrations", bytes.NewBufferString("{}"))
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *RegistrationHandlerTestSuite) TestGetRegistration() {
	regID := uuid.New()

	s.Run("found", func() {
		s.SetupTest()
		s.mockQueries.On("GetByID", mock.Anything, s.learnerID, false, regID).
			Return(&queries.RegistrationView{
				ID:        regID,
				LearnerID: s.learnerID,
				Status:    "confirmed",
			}, nil)

		w := s.doJSON(http.MethodGet, "/registrations/"+regID.String(), nil, false)

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), "confirmed")
	})

	s.Run("staff flag is forwarded", func() {
		s.SetupTest()
		s.mockQueries.On("GetByID", mock.Anything, s.learnerID, true, regID).
			Return(&queries.RegistrationView{ID: regID}, nil)

		w := s.doJSON(http.MethodGet, "/registrations/"+regID.String(), nil, true)

		s.Equal(http.StatusOK, w.Code)
		s.mockQueries.AssertExpectations(s.T())
	})

	s.Run("not found", func() {
		s.SetupTest()
		s.mockQueries.On("GetByID", mock.Anything, s.learnerID, false, regID).
			Return(nil, queries.ErrRegistrationNotFound)

		w := s.doJSON(http.MethodGet, "/registrations/"+regID.String(), nil, false)

		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("malformed id", func() {
		s.SetupTest()

		w := s.doJSON(http.MethodGet, "/registrations/not-a-uuid", nil, false)

		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *RegistrationHandlerTestSuite) TestCancelRegistration() {
	regID := uuid.New()

	s.Run("no content on success", func() {
		s.SetupTest()
		s.mockCommands.On("CancelRegistration", mock.Anything, regID, s.learnerID, commands.RoleLearner).
			Return(nil)

		w := s.doJSON(http.MethodDelete, "/registrations/"+regID.String(), nil, false)

		s.Equal(http.StatusNoContent, w.Code)
	})

	s.Run("staff role is forwarded", func() {
		s.SetupTest()
		s.mockCommands.On("CancelRegistration", mock.Anything, regID, s.learnerID, commands.RoleStaff).
			Return(nil)

		w := s.doJSON(http.MethodDelete, "/registrations/"+regID.String(), nil, true)

		s.Equal(http.StatusNoContent, w.Code)
		s.mockCommands.AssertExpectations(s.T())
	})

	s.Run("forbidden", func() {
		s.SetupTest()
		s.mockCommands.On("CancelRegistration", mock.Anything, regID, s.learnerID, commands.RoleLearner).
			Return(commands.ErrForbidden)

		w := s.doJSON(http.MethodDelete, "/registrations/"+regID.String(), nil, false)

		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("already terminal maps to conflict", func() {
		s.SetupTest()
		s.mockCommands.On("CancelRegistration", mock.Anything, regID, s.learnerID, commands.RoleLearner).
			Return(commands.ErrAlreadyTerminal)

		w := s.doJSON(http.MethodDelete, "/registrations/"+regID.String(), nil, false)

		s.Equal(http.StatusConflict, w.Code)
	})
}

func (s *RegistrationHandlerTestSuite) TestJoinWaitlist() {
	cohortID := uuid.New()

	s.Run("created with position", func() {
		s.SetupTest()
		s.mockCommands.On("JoinWaitlist", mock.Anything, s.learnerID, cohortID).Return(4, nil)

		w := s.doJSON(http.MethodPost, "/waitlist", gin.H{"cohort_id": cohortID}, false)

		s.Equal(http.StatusCreated, w.Code)
		s.Contains(w.Body.String(), `"position":4`)
	})

	s.Run("double join maps to conflict", func() {
		s.SetupTest()
		s.mockCommands.On("JoinWaitlist", mock.Anything, s.learnerID, cohortID).
			Return(0, commands.ErrAlreadyOnWaitlist)

		w := s.doJSON(http.MethodPost, "/waitlist", gin.H{"cohort_id": cohortID}, false)

		s.Equal(http.StatusConflict, w.Code)
	})
}

func (s *RegistrationHandlerTestSuite) TestWaitlistStatus() {
	cohortID := uuid.New()

	s.Run("returns live position", func() {
		s.SetupTest()
		s.mockQueries.On("WaitlistStatus", mock.Anything, cohortID, s.learnerID).
			Return(&queries.WaitlistStatusView{
				CohortID: cohortID,
				Position: 2,
				Status:   "waiting",
			}, nil)

		w := s.doJSON(http.MethodGet, "/waitlist/"+cohortID.String(), nil, false)

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"position":2`)
	})

	s.Run("not on waitlist", func() {
		s.SetupTest()
		s.mockQueries.On("WaitlistStatus", mock.Anything, cohortID, s.learnerID).
			Return(nil, queries.ErrNotOnWaitlist)

		w := s.doJSON(http.MethodGet, "/waitlist/"+cohortID.String(), nil, false)

		s.Equal(http.StatusNotFound, w.Code)
	})
}
