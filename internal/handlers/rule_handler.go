package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finsight/internal/errors"
	"finsight/internal/services"
)

// RuleHandler handles categorization rule requests.
type RuleHandler struct {
	ruleService services.RuleServicer
}

// NewRuleHandler creates a new RuleHandler.
func NewRuleHandler(ruleService services.RuleServicer) *RuleHandler {
	return &RuleHandler{ruleService: ruleService}
}

// CreateRuleRequest represents the request payload for creating a rule.
type CreateRuleRequest struct {
	NamePattern        string `json:"name_pattern" binding:"required"`
	CategoryID         *uint  `json:"category_id"`
	CategoryName       string `json:"category_name"`
	ParentCategoryName string `json:"parent_category_name"`
	Priority           int    `json:"priority"`
}

// UpdateRuleRequest represents the request payload for updating a rule.
type UpdateRuleRequest struct {
	NamePattern *string `json:"name_pattern"`
	CategoryID  *uint   `json:"category_id"`
	Priority    *int    `json:"priority"`
	IsActive    any     `json:"is_active"`
}

// ListRules returns rules in match order.
// GET /rules?active_only=true
func (h *RuleHandler) ListRules(c *gin.Context) {
	var query struct {
		ActiveOnly bool `form:"active_only"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rules, err := h.ruleService.ListRules(query.ActiveOnly)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// GetRuleByID returns one rule.
// GET /rules/:id
func (h *RuleHandler) GetRuleByID(c *gin.Context) {
	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	rule, err := h.ruleService.GetRuleByID(ruleID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// CreateRule creates a categorization rule.
// POST /rules
func (h *RuleHandler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rule, err := h.ruleService.CreateRule(services.CreateRuleInput{
		NamePattern:        req.NamePattern,
		CategoryID:         req.CategoryID,
		CategoryName:       req.CategoryName,
		ParentCategoryName: req.ParentCategoryName,
		Priority:           req.Priority,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

// UpdateRule applies a partial update.
// PUT /rules/:id
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	isActive, err := parseOptionalBool("is_active", req.IsActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rule, err := h.ruleService.UpdateRule(ruleID, services.UpdateRuleInput{
		NamePattern: req.NamePattern,
		CategoryID:  req.CategoryID,
		Priority:    req.Priority,
		IsActive:    isActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// DeleteRule removes a rule.
// DELETE /rules/:id
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	ruleID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.ruleService.DeleteRule(ruleID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Rule deleted successfully"})
}
