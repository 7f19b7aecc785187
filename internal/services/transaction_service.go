package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
	"finsight/internal/pagination"
	"finsight/internal/search"
)

// transactionService is the read surface over the ledger. Transaction
// lifecycle (creation, deletion) belongs to the external ledger integration;
// this service only lists, searches, and fetches.
type transactionService struct {
	db      *gorm.DB
	dialect search.Dialect
}

// NewTransactionService creates a new TransactionServicer using the search
// dialect of the active backend.
func NewTransactionService(db *gorm.DB, dialect search.Dialect) TransactionServicer {
	return &transactionService{db: db, dialect: dialect}
}

// ListTransactions returns a filtered, paginated transaction list, newest
// first. Reserved-category entries are excluded, consistent with search and
// insights.
func (s *transactionService) ListTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Scopes(search.ExcludeReserved)
	if filter.FromDate != nil {
		base = base.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("date <= ?", *filter.ToDate)
	}
	if filter.Type != nil {
		base = base.Where("category_type = ?", *filter.Type)
	}
	if filter.CategoryID != nil {
		base = base.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Vendor != nil {
		base = base.Where("vendor = ?", *filter.Vendor)
	}
	if filter.MinAmount != nil {
		base = base.Where("ABS(amount) >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		base = base.Where("ABS(amount) <= ?", *filter.MaxAmount)
	}

	return s.paginate(base, page)
}

// SearchTransactions matches term against transaction text fields using the
// backend's search dialect. The dialect decides placeholder count and
// ordering; the fragment and values are bound together here and nowhere
// else.
func (s *transactionService) SearchTransactions(term string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if strings.TrimSpace(term) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "search term is required")
	}
	page.Defaults()

	condition, values := s.dialect.SearchCondition(strings.TrimSpace(term))
	base := s.db.Model(&models.Transaction{}).
		Scopes(search.ExcludeReserved).
		Where(condition, values...)

	return s.paginate(base, page)
}

// GetTransaction fetches one transaction by its composite identity.
func (s *transactionService) GetTransaction(externalID, vendor string) (*models.Transaction, error) {
	if externalID == "" || vendor == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "external id and vendor are required")
	}

	var transaction models.Transaction
	err := s.db.Preload("Category").
		Where("external_id = ? AND vendor = ?", externalID, vendor).
		First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

func (s *transactionService) paginate(base *gorm.DB, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	err := base.Preload("Category").
		Order("date DESC, id DESC").
		Scopes(pagination.Paginate(page)).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}
