package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finsight/internal/errors"
	"finsight/internal/services"
)

// CategorizeHandler exposes the rule-based categorizer.
type CategorizeHandler struct {
	categorizer services.CategorizerServicer
}

// NewCategorizeHandler creates a new CategorizeHandler.
func NewCategorizeHandler(categorizer services.CategorizerServicer) *CategorizeHandler {
	return &CategorizeHandler{categorizer: categorizer}
}

// CategorizeRequest represents a single-transaction categorization request.
// With external_id and vendor the best match is committed; without them the
// call previews the ranked suggestions.
type CategorizeRequest struct {
	Name       string `json:"name" binding:"required"`
	ExternalID string `json:"external_id"`
	Vendor     string `json:"vendor"`
}

// Categorize matches a transaction name against the active rules.
// POST /categorize
func (h *CategorizeHandler) Categorize(c *gin.Context) {
	var req CategorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.categorizer.Categorize(services.CategorizeInput{
		Name:       req.Name,
		ExternalID: req.ExternalID,
		Vendor:     req.Vendor,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// BulkCategorize applies all active rules across the transaction store.
// POST /categorize/bulk
func (h *CategorizeHandler) BulkCategorize(c *gin.Context) {
	result, err := h.categorizer.BulkCategorize()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
