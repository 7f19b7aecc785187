package services

import (
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"

	apperrors "finsight/internal/errors"
	"finsight/internal/models"
)

// ruleService manages categorization rules. Rules are read-mostly; they
// never mutate transactions themselves.
type ruleService struct {
	db *gorm.DB
}

// NewRuleService creates a new RuleServicer.
func NewRuleService(db *gorm.DB) RuleServicer {
	return &ruleService{db: db}
}

// ListRules returns rules in match order: longest pattern first, priority
// breaking ties.
func (s *ruleService) ListRules(activeOnly bool) ([]models.CategorizationRule, error) {
	query := s.db.Preload("Category")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var rules []models.CategorizationRule
	if err := query.Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return CompareRules(rules[i], rules[j]) < 0
	})
	return rules, nil
}

// GetRuleByID retrieves a rule by ID.
func (s *ruleService) GetRuleByID(ruleID uint) (*models.CategorizationRule, error) {
	var rule models.CategorizationRule
	if err := s.db.Preload("Category").First(&rule, ruleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRuleNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &rule, nil
}

// CreateRule creates a new categorization rule. Either a category id or a
// category name hint must be supplied; a rule with neither could never
// assign anything.
func (s *ruleService) CreateRule(input CreateRuleInput) (*models.CategorizationRule, error) {
	if strings.TrimSpace(input.NamePattern) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name pattern is required")
	}
	if input.CategoryID == nil && strings.TrimSpace(input.CategoryName) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "a category id or category name is required")
	}

	if input.CategoryID != nil {
		var category models.Category
		if err := s.db.First(&category, *input.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrCategoryNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	rule := &models.CategorizationRule{
		NamePattern:        strings.TrimSpace(input.NamePattern),
		CategoryID:         input.CategoryID,
		CategoryName:       strings.TrimSpace(input.CategoryName),
		ParentCategoryName: strings.TrimSpace(input.ParentCategoryName),
		Priority:           input.Priority,
		IsActive:           true,
	}
	if err := s.db.Create(rule).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rule, nil
}

// UpdateRule applies a partial update to a rule.
func (s *ruleService) UpdateRule(ruleID uint, input UpdateRuleInput) (*models.CategorizationRule, error) {
	rule, err := s.GetRuleByID(ruleID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if input.NamePattern != nil {
		if strings.TrimSpace(*input.NamePattern) == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name pattern cannot be empty")
		}
		updates["name_pattern"] = strings.TrimSpace(*input.NamePattern)
	}
	if input.CategoryID != nil {
		var category models.Category
		if err := s.db.First(&category, *input.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrCategoryNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		updates["category_id"] = *input.CategoryID
	}
	if input.Priority != nil {
		updates["priority"] = *input.Priority
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if len(updates) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "no updatable field supplied")
	}

	if err := s.db.Model(rule).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rule, nil
}

// DeleteRule removes a rule.
func (s *ruleService) DeleteRule(ruleID uint) error {
	rule, err := s.GetRuleByID(ruleID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(rule).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
