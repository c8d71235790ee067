package api

import (
	"errors"
	"net/http"

	reqdto "coursereg/internal/handler/dto/request"
	resdto "coursereg/internal/handler/dto/response"
	"coursereg/internal/handler/httperr"
	"coursereg/internal/handler/middleware"
	"coursereg/internal/pkg/jwt"
	"coursereg/internal/usecase/commands"
	"coursereg/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RegistrationHandler struct {
	commands commands.RegistrationCommands
	queries  queries.RegistrationQueries
}

func NewRegistrationHandler(cmds commands.RegistrationCommands, qrys queries.RegistrationQueries) *RegistrationHandler {
	return &RegistrationHandler{
		commands: cmds,
		queries:  qrys,
	}
}

// @Summary Register for a cohort
// @Description Claim a seat in a cohort, optionally applying a promo code
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.CreateRegistrationRequest true "Registration request"
// @Success 201 {object} resdto.CreateRegistrationResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /registrations [post]
func (h *RegistrationHandler) CreateRegistration(c *gin.Context) {
	learnerID, ok := middleware.GetLearnerID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	var req reqdto.CreateRegistrationRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	result, err := h.commands.CreateRegistration(c.Request.Context(), commands.CreateRegistrationParams{
		LearnerID: learnerID,
		CohortID:  req.CohortID,
		PromoCode: req.GetPromoCode(),
	})
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrCohortNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Cohort not found",
			})
		case errors.Is(err, commands.ErrCohortFull):
			c.JSON(http.StatusConflict, gin.H{
				"error":             "Cohort is full",
				"waitlist_eligible": true,
			})
		case errors.Is(err, commands.ErrAlreadyRegistered):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Already registered for this cohort",
			})
		case errors.Is(err, commands.ErrRegistrationWindowClosed):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Registration window is closed",
			})
		case errors.Is(err, commands.ErrInvalidPromoCode):
			// err carries the rejection cause ("promo code has expired", ...)
			// so the learner sees why the code was refused.
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "Invalid or expired promo code",
				"reason": err.Error(),
			})
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusCreated, resdto.FromCreateResult(result))
}

// @Summary Get registration
// @Description Get registration by ID; learners see only their own
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} resdto.RegistrationResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /registrations/{id} [get]
func (h *RegistrationHandler) GetRegistration(c *gin.Context) {
	learnerID, ok := middleware.GetLearnerID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid registration ID format",
		})
		return
	}

	view, err := h.queries.GetByID(c.Request.Context(), learnerID, middleware.IsStaff(c), id)
	if err != nil {
		if errors.Is(err, queries.ErrRegistrationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Registration not found",
			})
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromRegistrationView(view))
}

// @Summary List my registrations
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} resdto.RegistrationListResponse
// @Failure 401 {object} map[string]string
// @Router /registrations [get]
func (h *RegistrationHandler) ListMyRegistrations(c *gin.Context) {
	learnerID, ok := middleware.GetLearnerID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	items, err := h.queries.ListByLearner(c.Request.Context(), learnerID)
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromRegistrationListItems(items))
}

// @Summary Cancel registration
// @Description Cancel a pending or confirmed registration, freeing the seat
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /registrations/{id} [delete]
func (h *RegistrationHandler) CancelRegistration(c *gin.Context) {
	learnerID, ok := middleware.GetLearnerID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid registration ID format",
		})
		return
	}

	role := commands.RoleLearner
	if r, ok := middleware.GetRole(c); ok && r == jwt.RoleStaff {
		role = commands.RoleStaff
	}

	err = h.commands.CancelRegistration(c.Request.Context(), id, learnerID, role)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrRegistrationNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Registration not found",
			})
		case errors.Is(err, commands.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{
				"error": "Not allowed to cancel this registration",
			})
		case errors.Is(err, commands.ErrAlreadyTerminal):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Registration is already closed",
			})
		case errors.Is(err, commands.ErrTransitionConflict):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Registration changed concurrently, retry",
			})
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Join waitlist
// @Description Queue for a seat after the cohort filled up
// @Tags waitlist
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.JoinWaitlistRequest true "Waitlist request"
// @Success 201 {object} resdto.WaitlistJoinResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /waitlist [post]
func (h *RegistrationHandler) JoinWaitlist(c *gin.Context) {
	learnerID, ok := middleware.GetLearnerID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	var req reqdto.JoinWaitlistRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	position, err := h.commands.JoinWaitlist(c.Request.Context(), learnerID, req.CohortID)
	if err != nil {
		switch {
		case errors.Is(err, commands.ErrCohortNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Cohort not found",
			})
		case errors.Is(err, commands.ErrRegistrationWindowClosed):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Registration window is closed",
			})
		case errors.Is(err, commands.ErrAlreadyRegistered):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Already registered for this cohort",
			})
		case errors.Is(err, commands.ErrAlreadyOnWaitlist):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Already on the waitlist",
			})
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusCreated, resdto.WaitlistJoinResponse{
		CohortID: req.CohortID,
		Position: position,
	})
}

// @Summary Waitlist status
// @Description The caller's live waitlist position for a cohort
// @Tags waitlist
// @Produce json
// @Security BearerAuth
// @Param cohort_id path string true "Cohort ID"
// @Success 200 {object} resdto.WaitlistStatusResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /waitlist/{cohort_id} [get]
func (h *RegistrationHandler) WaitlistStatus(c *gin.Context) {
	learnerID, ok := middleware.GetLearnerID(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	cohortID, err := uuid.Parse(c.Param("cohort_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cohort ID format",
		})
		return
	}

	view, err := h.queries.WaitlistStatus(c.Request.Context(), cohortID, learnerID)
	if err != nil {
		if errors.Is(err, queries.ErrNotOnWaitlist) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Not on the waitlist",
			})
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromWaitlistStatus(view))
}
