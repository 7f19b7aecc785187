package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
	"finsight/internal/services"
)

// BudgetHandler exposes category budget management.
type BudgetHandler struct {
	budgets services.BudgetServicer
}

// NewBudgetHandler creates a new BudgetHandler.
func NewBudgetHandler(budgets services.BudgetServicer) *BudgetHandler {
	return &BudgetHandler{budgets: budgets}
}

// ListBudgetsQuery binds the list filter parameters.
type ListBudgetsQuery struct {
	IsActive *bool `form:"is_active"`
}

// ListBudgets lists budgets, optionally filtered by active flag.
// GET /budgets
func (h *BudgetHandler) ListBudgets(c *gin.Context) {
	var query ListBudgetsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budgets, err := h.budgets.ListBudgets(query.IsActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budgets": budgets})
}

// GetBudget fetches a single budget by id.
// GET /budgets/:id
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	budget, err := h.budgets.GetBudgetByID(budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// CreateBudgetRequest represents a budget creation request.
type CreateBudgetRequest struct {
	CategoryID  uint   `json:"category_id" binding:"required"`
	BudgetLimit int64  `json:"budget_limit" binding:"required,gt=0"`
	PeriodType  string `json:"period_type" binding:"required,budget_period"`
}

// CreateBudget creates a budget for a category.
// POST /budgets
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	var req CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	budget, err := h.budgets.CreateBudget(services.CreateBudgetInput{
		CategoryID:  req.CategoryID,
		BudgetLimit: req.BudgetLimit,
		PeriodType:  models.BudgetPeriod(req.PeriodType),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"budget": budget})
}

// UpdateBudgetRequest represents a partial budget update.
type UpdateBudgetRequest struct {
	BudgetLimit *int64  `json:"budget_limit" binding:"omitempty,gt=0"`
	PeriodType  *string `json:"period_type" binding:"omitempty,budget_period"`
	IsActive    any     `json:"is_active"`
}

// UpdateBudget updates a budget's limit, period or active flag.
// PUT /budgets/:id
func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	isActive, err := parseOptionalBool("is_active", req.IsActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	input := services.UpdateBudgetInput{
		BudgetLimit: req.BudgetLimit,
		IsActive:    isActive,
	}
	if req.PeriodType != nil {
		period := models.BudgetPeriod(*req.PeriodType)
		input.PeriodType = &period
	}

	budget, err := h.budgets.UpdateBudget(budgetID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"budget": budget})
}

// DeleteBudget removes a budget.
// DELETE /budgets/:id
func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.budgets.DeleteBudget(budgetID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "budget deleted"})
}

// GetBudgetProgress reports spending against a budget for its current period.
// GET /budgets/:id/progress
func (h *BudgetHandler) GetBudgetProgress(c *gin.Context) {
	budgetID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	progress, err := h.budgets.GetBudgetProgress(budgetID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": progress})
}
