package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
)

// budgetService manages category budgets, the read-only input to the budget
// insight generator.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

// ListBudgets returns budgets with their categories, optionally filtered by
// active state.
func (s *budgetService) ListBudgets(isActive *bool) ([]models.CategoryBudget, error) {
	query := s.db.Preload("Category")
	if isActive != nil {
		query = query.Where("is_active = ?", *isActive)
	}

	var budgets []models.CategoryBudget
	if err := query.Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

// GetBudgetByID returns a budget by ID.
func (s *budgetService) GetBudgetByID(budgetID uint) (*models.CategoryBudget, error) {
	var budget models.CategoryBudget
	if err := s.db.Preload("Category").First(&budget, budgetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// CreateBudget creates a budget for a category.
func (s *budgetService) CreateBudget(input CreateBudgetInput) (*models.CategoryBudget, error) {
	if input.BudgetLimit <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget limit must be positive")
	}
	period := input.PeriodType
	if period == "" {
		period = models.BudgetPeriodMonthly
	}
	if period != models.BudgetPeriodMonthly && period != models.BudgetPeriodYearly {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period type must be monthly or yearly")
	}

	var category models.Category
	if err := s.db.First(&category, input.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	budget := &models.CategoryBudget{
		CategoryID:  input.CategoryID,
		BudgetLimit: input.BudgetLimit,
		PeriodType:  period,
		IsActive:    true,
	}
	if err := s.db.Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budget, nil
}

// UpdateBudget applies a partial update to a budget.
func (s *budgetService) UpdateBudget(budgetID uint, input UpdateBudgetInput) (*models.CategoryBudget, error) {
	budget, err := s.GetBudgetByID(budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if input.BudgetLimit != nil {
		if *input.BudgetLimit <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget limit must be positive")
		}
		updates["budget_limit"] = *input.BudgetLimit
	}
	if input.PeriodType != nil {
		if *input.PeriodType != models.BudgetPeriodMonthly && *input.PeriodType != models.BudgetPeriodYearly {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "period type must be monthly or yearly")
		}
		updates["period_type"] = *input.PeriodType
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "no updatable field supplied")
	}

	if err := s.db.Model(budget).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budget, nil
}

// DeleteBudget removes a budget.
func (s *budgetService) DeleteBudget(budgetID uint) error {
	budget, err := s.GetBudgetByID(budgetID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetBudgetProgress reports current-period spending against one budget,
// rolling up the category and its descendants.
func (s *budgetService) GetBudgetProgress(budgetID uint) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(budgetID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var periodStart time.Time
	switch budget.PeriodType {
	case models.BudgetPeriodYearly:
		periodStart = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	default:
		periodStart = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}

	var spent int64
	err = s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(ABS(amount)), 0)").
		Where("amount < 0 AND date >= ? AND date <= ?", periodStart, now).
		Where("category_id IN (SELECT id FROM categories WHERE (hierarchy_path = ? OR hierarchy_path LIKE ?) AND deleted_at IS NULL)",
			budget.Category.HierarchyPath, budget.Category.HierarchyPath+"/%").
		Scan(&spent).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var percentage float64
	if budget.BudgetLimit > 0 {
		percentage = float64(spent) / float64(budget.BudgetLimit) * 100
	}

	return &BudgetProgress{
		BudgetID:    budget.ID,
		CategoryID:  budget.CategoryID,
		BudgetLimit: budget.BudgetLimit,
		Spent:       spent,
		Remaining:   budget.BudgetLimit - spent,
		Percentage:  percentage,
	}, nil
}
