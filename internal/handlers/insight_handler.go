package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
	"finsight/internal/services"
)

// InsightHandler exposes the on-demand insight generators.
type InsightHandler struct {
	insights services.InsightServicer
}

// NewInsightHandler creates a new InsightHandler.
func NewInsightHandler(insights services.InsightServicer) *InsightHandler {
	return &InsightHandler{insights: insights}
}

// InsightsQuery binds the generator selector and output filters.
type InsightsQuery struct {
	Type     string `form:"type" binding:"omitempty,insight_type"`
	Severity string `form:"severity" binding:"omitempty,notification_severity"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=200"`
}

// GetInsights runs the selected insight generators over current ledger data.
// GET /insights
func (h *InsightHandler) GetInsights(c *gin.Context) {
	var query InsightsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.InsightFilter{
		Type:  query.Type,
		Limit: query.Limit,
	}
	if query.Severity != "" {
		severity := models.Severity(query.Severity)
		filter.Severity = &severity
	}

	notifications, err := h.insights.GenerateInsights(filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"insights": notifications,
		"count":    len(notifications),
	})
}
