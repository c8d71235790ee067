package api

import (
	"errors"
	"net/http"

	resdto "coursereg/internal/handler/dto/response"
	"coursereg/internal/handler/httperr"
	"coursereg/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CohortHandler struct {
	queries queries.CohortQueries
}

func NewCohortHandler(qrys queries.CohortQueries) *CohortHandler {
	return &CohortHandler{queries: qrys}
}

// @Summary List cohorts
// @Description Cohorts with their derived state and remaining seats
// @Tags cohorts
// @Produce json
// @Success 200 {array} resdto.CohortResponse
// @Router /cohorts [get]
func (h *CohortHandler) ListCohorts(c *gin.Context) {
	views, err := h.queries.List(c.Request.Context())
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, resdto.FromCohortViews(views))
}

// @Summary Get cohort
// @Tags cohorts
// @Produce json
// @Param id path string true "Cohort ID"
// @Success 200 {object} resdto.CohortResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cohorts/{id} [get]
func (h *CohortHandler) GetCohort(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cohort ID format",
		})
		return
	}

	view, err := h.queries.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, queries.ErrCohortNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Cohort not found",
			})
			return
		}
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}

	c.JSON(http.StatusOK, resdto.FromCohortView(view))
}
