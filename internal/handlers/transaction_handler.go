package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
	"finsight/internal/pagination"
	"finsight/internal/services"
)

// TransactionHandler exposes the read surface over the ledger.
type TransactionHandler struct {
	transactions services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactions services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

// ListTransactionsQuery binds the list filter parameters.
type ListTransactionsQuery struct {
	pagination.PageRequest
	FromDate   string `form:"from_date" binding:"omitempty,datetime=2006-01-02"`
	ToDate     string `form:"to_date" binding:"omitempty,datetime=2006-01-02"`
	Type       string `form:"type" binding:"omitempty,category_type"`
	CategoryID *uint  `form:"category_id"`
	Vendor     string `form:"vendor"`
	MinAmount  *int64 `form:"min_amount"`
	MaxAmount  *int64 `form:"max_amount"`
}

// ListTransactions lists transactions with optional filters.
// GET /transactions
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var query ListTransactionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	query.Defaults()

	filter := services.TransactionFilter{
		CategoryID: query.CategoryID,
		MinAmount:  query.MinAmount,
		MaxAmount:  query.MaxAmount,
	}
	if query.FromDate != "" {
		from, _ := time.Parse("2006-01-02", query.FromDate)
		filter.FromDate = &from
	}
	if query.ToDate != "" {
		to, _ := time.Parse("2006-01-02", query.ToDate)
		filter.ToDate = &to
	}
	if query.Type != "" {
		categoryType := models.CategoryType(query.Type)
		filter.Type = &categoryType
	}
	if query.Vendor != "" {
		filter.Vendor = &query.Vendor
	}

	result, err := h.transactions.ListTransactions(query.PageRequest, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SearchTransactionsQuery binds the search parameters.
type SearchTransactionsQuery struct {
	pagination.PageRequest
	Term string `form:"q" binding:"required"`
}

// SearchTransactions performs a text search over name, memo, vendor and
// category names.
// GET /transactions/search
func (h *TransactionHandler) SearchTransactions(c *gin.Context) {
	var query SearchTransactionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	query.Defaults()

	result, err := h.transactions.SearchTransactions(query.Term, query.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransactionQuery binds the identity pair for a single lookup.
type GetTransactionQuery struct {
	ExternalID string `form:"external_id" binding:"required"`
	Vendor     string `form:"vendor" binding:"required"`
}

// GetTransaction fetches a single transaction by its identity pair.
// GET /transactions/lookup
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	var query GetTransactionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	transaction, err := h.transactions.GetTransaction(query.ExternalID, query.Vendor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": transaction})
}
