package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
	"finsight/internal/services"
)

// CategoryHandler handles category-related requests.
type CategoryHandler struct {
	categoryService services.CategoryServicer
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categoryService services.CategoryServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CreateCategoryRequest represents the request payload for creating a category.
type CreateCategoryRequest struct {
	Name         string `json:"name" binding:"required"`
	NameLocal    string `json:"name_local"`
	Type         string `json:"type" binding:"required,category_type"`
	ParentID     *uint  `json:"parent_id"`
	Icon         string `json:"icon"`
	Color        string `json:"color" binding:"omitempty,hex_color"`
	Description  string `json:"description"`
	DisplayOrder *int   `json:"display_order"`
}

// UpdateCategoryRequest represents the request payload for updating a
// category. IsActive accepts a boolean or the strings "true"/"false".
type UpdateCategoryRequest struct {
	Name         *string `json:"name"`
	NameLocal    *string `json:"name_local"`
	Icon         *string `json:"icon"`
	Color        *string `json:"color" binding:"omitempty,hex_color"`
	Description  *string `json:"description"`
	DisplayOrder *int    `json:"display_order"`
	IsActive     any     `json:"is_active"`
}

// ListCategories returns active categories with ledger rollups and the
// uncategorized bucket.
// GET /categories?type=expense&include_inactive=false
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	var query struct {
		Type            string `form:"type" binding:"omitempty,category_type"`
		IncludeInactive bool   `form:"include_inactive"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.CategoryFilter{IncludeInactive: query.IncludeInactive}
	if query.Type != "" {
		categoryType := models.CategoryType(query.Type)
		filter.Type = &categoryType
	}

	result, err := h.categoryService.ListCategories(filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCategoryByID returns one category.
// GET /categories/:id
func (h *CategoryHandler) GetCategoryByID(c *gin.Context) {
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.GetCategoryByID(categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// CreateCategory creates a category under an optional parent.
// POST /categories
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.categoryService.CreateCategory(services.CreateCategoryInput{
		Name:         req.Name,
		NameLocal:    req.NameLocal,
		Type:         models.CategoryType(req.Type),
		ParentID:     req.ParentID,
		Icon:         req.Icon,
		Color:        req.Color,
		Description:  req.Description,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// UpdateCategory applies a partial update.
// PUT /categories/:id
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	isActive, err := parseOptionalBool("is_active", req.IsActive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.UpdateCategory(categoryID, services.UpdateCategoryInput{
		Name:         req.Name,
		NameLocal:    req.NameLocal,
		Icon:         req.Icon,
		Color:        req.Color,
		Description:  req.Description,
		DisplayOrder: req.DisplayOrder,
		IsActive:     isActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// DeleteCategory removes a category with no transactions and no children,
// returning the removed row.
// DELETE /categories/:id
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	categoryID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.DeleteCategory(categoryID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}
