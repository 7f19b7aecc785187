package services

import (
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"finsight/internal/cache"
	apperrors "finsight/internal/errors"
	"finsight/internal/logger"
	"finsight/internal/models"
)

// recentUncategorizedLimit caps the transactions returned in the
// uncategorized bucket.
const recentUncategorizedLimit = 50

// categoryService owns the category tree and its listing rollups.
type categoryService struct {
	db        *gorm.DB
	listCache *cache.TTLCache
}

// NewCategoryService creates a new CategoryServicer. listCache may be nil to
// disable read-through caching of list results.
func NewCategoryService(db *gorm.DB, listCache *cache.TTLCache) CategoryServicer {
	return &categoryService{db: db, listCache: listCache}
}

// ListCategories returns categories annotated with transaction counts and
// amounts, plus the uncategorized bucket: transactions with no category or
// assigned to a non-leaf category. Rollup failures degrade to zero
// aggregates rather than failing the listing.
func (s *categoryService) ListCategories(filter CategoryFilter) (*CategoryList, error) {
	cacheKey := listCacheKey(filter)
	if s.listCache != nil {
		if cached, ok := s.listCache.Get(cacheKey); ok {
			if result, ok := cached.(*CategoryList); ok {
				return result, nil
			}
		}
	}

	query := s.db.Model(&models.Category{})
	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}

	var categories []models.Category
	if err := query.Order("display_order ASC, id ASC").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &CategoryList{
		Categories:    make([]CategoryStats, 0, len(categories)),
		Uncategorized: UncategorizedBucket{Transactions: []models.Transaction{}},
	}

	aggregates := s.transactionAggregates()
	for _, category := range categories {
		stats := CategoryStats{Category: category}
		if agg, ok := aggregates[category.ID]; ok {
			stats.TransactionCount = agg.Count
			stats.TotalAmount = agg.Total
		}
		result.Categories = append(result.Categories, stats)
	}

	s.fillUncategorized(result)

	if s.listCache != nil {
		s.listCache.Set(cacheKey, result)
	}
	return result, nil
}

// GetCategoryByID retrieves a category by ID.
func (s *categoryService) GetCategoryByID(categoryID uint) (*models.Category, error) {
	var category models.Category
	if err := s.db.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// CreateCategory creates a new category under the optional parent, computing
// depth_level and hierarchy_path from the parent. The materialized path is
// the ancestor id chain ending in the new node's own id.
func (s *categoryService) CreateCategory(input CreateCategoryInput) (*models.Category, error) {
	if input.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if !input.Type.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category type must be expense, income, or investment")
	}

	var parent *models.Category
	if input.ParentID != nil {
		var p models.Category
		if err := s.db.First(&p, *input.ParentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "parent category not found")
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if p.Type != input.Type {
			return nil, apperrors.ErrCategoryTypeMismatch
		}
		parent = &p
	}

	// Sibling names are unique per parent and type, case-sensitive.
	dupQuery := s.db.Model(&models.Category{}).
		Where("name = ? AND type = ?", input.Name, input.Type)
	if input.ParentID != nil {
		dupQuery = dupQuery.Where("parent_id = ?", *input.ParentID)
	} else {
		dupQuery = dupQuery.Where("parent_id IS NULL")
	}
	var duplicates int64
	if err := dupQuery.Count(&duplicates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if duplicates > 0 {
		return nil, apperrors.ErrDuplicateCategory
	}

	displayOrder, err := s.resolveDisplayOrder(input)
	if err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:         input.Name,
		NameLocal:    input.NameLocal,
		Type:         input.Type,
		ParentID:     input.ParentID,
		DisplayOrder: displayOrder,
		Icon:         input.Icon,
		Color:        input.Color,
		Description:  input.Description,
		IsActive:     true,
	}
	if parent != nil {
		category.DepthLevel = parent.DepthLevel + 1
	}

	// The path includes the node's own id, which is only known after insert,
	// so create and path update share a transaction.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(category).Error; err != nil {
			return err
		}
		path := strconv.FormatUint(uint64(category.ID), 10)
		if parent != nil {
			path = parent.HierarchyPath + "/" + path
		}
		category.HierarchyPath = path
		return tx.Model(category).Update("hierarchy_path", path).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.invalidateListCache()
	return category, nil
}

// UpdateCategory applies a partial update. Parent and type are immutable
// after creation; at least one updatable field must be supplied.
func (s *categoryService) UpdateCategory(categoryID uint, input UpdateCategoryInput) (*models.Category, error) {
	category, err := s.GetCategoryByID(categoryID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name cannot be empty")
		}
		updates["name"] = *input.Name
	}
	if input.NameLocal != nil {
		updates["name_local"] = *input.NameLocal
	}
	if input.Icon != nil {
		updates["icon"] = *input.Icon
	}
	if input.Color != nil {
		updates["color"] = *input.Color
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.DisplayOrder != nil {
		updates["display_order"] = *input.DisplayOrder
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "no updatable field supplied")
	}

	if err := s.db.Model(category).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.invalidateListCache()
	return category, nil
}

// DeleteCategory removes a category that has no referencing transactions and
// no children, returning the removed row.
func (s *categoryService) DeleteCategory(categoryID uint) (*models.Category, error) {
	category, err := s.GetCategoryByID(categoryID)
	if err != nil {
		return nil, err
	}

	var referencing int64
	if err := s.db.Model(&models.Transaction{}).Where("category_id = ?", categoryID).Count(&referencing).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if referencing > 0 {
		return nil, apperrors.ErrCategoryInUse
	}

	var children int64
	if err := s.db.Model(&models.Category{}).Where("parent_id = ?", categoryID).Count(&children).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if children > 0 {
		return nil, apperrors.ErrCategoryHasChildren
	}

	if err := s.db.Delete(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.invalidateListCache()
	return category, nil
}

type categoryAggregate struct {
	CategoryID uint
	Count      int64
	Total      int64
}

// transactionAggregates returns per-category transaction counts and amount
// sums. On failure (e.g. a ledger schema missing the amount column) it logs
// and returns no aggregates so the listing still succeeds.
func (s *categoryService) transactionAggregates() map[uint]categoryAggregate {
	var rows []categoryAggregate
	err := s.db.Model(&models.Transaction{}).
		Select("category_id, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where("category_id IS NOT NULL").
		Group("category_id").
		Scan(&rows).Error
	if err != nil {
		logger.Get().Warnw("category rollup query failed, returning empty aggregates", "error", err)
		return map[uint]categoryAggregate{}
	}

	aggregates := make(map[uint]categoryAggregate, len(rows))
	for _, row := range rows {
		aggregates[row.CategoryID] = row
	}
	return aggregates
}

// fillUncategorized populates the bucket of transactions with no category or
// whose category has children. Failures degrade to an empty bucket.
func (s *categoryService) fillUncategorized(result *CategoryList) {
	nonLeaf := "(category_id IS NULL OR category_id IN (SELECT DISTINCT parent_id FROM categories WHERE parent_id IS NOT NULL AND deleted_at IS NULL))"

	var row struct {
		Count int64
		Total int64
	}
	err := s.db.Model(&models.Transaction{}).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Where(nonLeaf).
		Scan(&row).Error
	if err != nil {
		logger.Get().Warnw("uncategorized rollup query failed, returning empty bucket", "error", err)
		return
	}

	var recent []models.Transaction
	err = s.db.Model(&models.Transaction{}).
		Where(nonLeaf).
		Order("date DESC").
		Limit(recentUncategorizedLimit).
		Find(&recent).Error
	if err != nil {
		logger.Get().Warnw("uncategorized listing query failed, returning empty bucket", "error", err)
		return
	}

	result.Uncategorized.Count = row.Count
	result.Uncategorized.TotalAmount = row.Total
	result.Uncategorized.Transactions = recent
}

func (s *categoryService) resolveDisplayOrder(input CreateCategoryInput) (int, error) {
	if input.DisplayOrder != nil {
		return *input.DisplayOrder, nil
	}

	// Default to max(sibling display_order)+1.
	siblings := s.db.Model(&models.Category{}).Where("type = ?", input.Type)
	if input.ParentID != nil {
		siblings = siblings.Where("parent_id = ?", *input.ParentID)
	} else {
		siblings = siblings.Where("parent_id IS NULL")
	}

	var maxOrder struct {
		Max *int
	}
	if err := siblings.Select("MAX(display_order) AS max").Scan(&maxOrder).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if maxOrder.Max == nil {
		return 0, nil
	}
	return *maxOrder.Max + 1, nil
}

func (s *categoryService) invalidateListCache() {
	if s.listCache != nil {
		s.listCache.Clear()
	}
}

func listCacheKey(filter CategoryFilter) string {
	categoryType := "any"
	if filter.Type != nil {
		categoryType = string(*filter.Type)
	}
	return fmt.Sprintf("categories:list:type=%s:inactive=%t", categoryType, filter.IncludeInactive)
}
