package services

import (
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"

	"finsight/internal/cache"
	apperrors "finsight/internal/errors"
	"finsight/internal/logger"
	"finsight/internal/models"
	"finsight/internal/search"
)

// maxSuggestions caps the candidate list returned by a categorization call.
const maxSuggestions = 5

// Base confidence depends on whether a rule already resolves to a category
// id; a pattern that must resolve its category by name carries less
// certainty.
const (
	baseConfidenceResolved   = 0.8
	baseConfidenceUnresolved = 0.5
	minLengthRatio           = 0.5
)

// CompareRules orders categorization rules: longer patterns first, priority
// breaking ties among equal-length patterns. Returns a negative value when a
// ranks before b. The ordering is a pure function of the two stored fields so
// it can be tested independently of storage.
func CompareRules(a, b models.CategorizationRule) int {
	if d := len(b.NamePattern) - len(a.NamePattern); d != 0 {
		return d
	}
	return b.Priority - a.Priority
}

// categorizerService matches transaction names against categorization rules
// and commits category assignments.
type categorizerService struct {
	db         *gorm.DB
	resolver   CategoryResolver
	queryCache *cache.QueryCache
}

// NewCategorizerService creates a new CategorizerServicer. resolver may be
// nil, in which case rules without a resolved category id only ever produce
// suggestions. queryCache may be nil; when set, cached transaction aggregates
// are invalidated after every committed assignment.
func NewCategorizerService(db *gorm.DB, resolver CategoryResolver, queryCache *cache.QueryCache) CategorizerServicer {
	return &categorizerService{db: db, resolver: resolver, queryCache: queryCache}
}

// Categorize matches input.Name against active rules. With an external
// id and vendor the best match is committed to that transaction; without
// them the ranked candidate list is returned as a preview. No matching rule
// is a successful empty result, not an error.
func (s *categorizerService) Categorize(input CategorizeInput) (*CategorizeResult, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction name is required")
	}
	normalized := strings.ToLower(strings.TrimSpace(input.Name))

	rules, err := s.matchingRules(normalized)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return &CategorizeResult{Matched: false, Suggestions: []RuleMatch{}}, nil
	}

	suggestions := make([]RuleMatch, 0, len(rules))
	for _, rule := range rules {
		suggestions = append(suggestions, s.toMatch(rule, normalized))
	}
	best := suggestions[0]

	if best.CategoryID == nil && s.resolver != nil {
		resolved, err := s.resolver.ResolveCategory(ResolveHint{
			CategoryName:    rules[0].CategoryName,
			ParentCategory:  rules[0].ParentCategoryName,
			TransactionName: input.Name,
		})
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if resolved != nil {
			best.CategoryID = &resolved.CategoryID
			if best.CategoryName == "" {
				best.CategoryName = resolved.Subcategory
			}
			suggestions[0] = best
		}
	}

	result := &CategorizeResult{Matched: true, Match: &best, Suggestions: suggestions}

	commit := input.ExternalID != "" && input.Vendor != ""
	if !commit || best.CategoryID == nil {
		return result, nil
	}

	transaction, err := s.commit(input.ExternalID, input.Vendor, *best.CategoryID, best.Confidence)
	if err != nil {
		return nil, err
	}
	result.Transaction = transaction
	return result, nil
}

// BulkCategorize applies every active rule across the transaction store in
// one pass over a single connection. Each rule issues one UPDATE matching
// transactions by substring, excluding reserved and income-type assignments,
// touching only rows with no category, not yet auto-categorized, or with
// lower confidence than the rule carries. The returned update count is
// summed per rule, so a transaction matched by two rules counts twice even
// though only the later assignment persists.
func (s *categorizerService) BulkCategorize() (*BulkCategorizeResult, error) {
	var rules []models.CategorizationRule
	if err := s.db.Where("is_active = ?", true).Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return CompareRules(rules[i], rules[j]) < 0
	})

	result := &BulkCategorizeResult{PatternsConsidered: len(rules)}

	err := s.db.Connection(func(conn *gorm.DB) error {
		// The connection handle shares one statement; every query must run
		// on its own session or conditions leak between statements.
		session := func() *gorm.DB { return conn.Session(&gorm.Session{NewDB: true}) }
		for _, rule := range rules {
			confidence := baseConfidenceUnresolved
			categoryID := rule.CategoryID
			if categoryID != nil {
				confidence = baseConfidenceResolved
			} else if s.resolver != nil {
				resolved, err := s.resolver.ResolveCategory(ResolveHint{
					CategoryName:   rule.CategoryName,
					ParentCategory: rule.ParentCategoryName,
				})
				if err != nil {
					logger.Get().Warnw("category resolution failed, skipping rule",
						"rule_id", rule.ID, "pattern", rule.NamePattern, "error", err)
					continue
				}
				if resolved != nil {
					categoryID = &resolved.CategoryID
				}
			}
			if categoryID == nil {
				continue
			}

			var category models.Category
			if err := session().First(&category, *categoryID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return err
			}

			pattern := "%" + strings.ToLower(rule.NamePattern) + "%"
			res := session().Model(&models.Transaction{}).
				Scopes(search.ExcludeReserved).
				Where("LOWER(name) LIKE ?", pattern).
				Where("(category_type IS NULL OR category_type <> ?)", models.CategoryTypeIncome).
				Where("(category_id IS NULL OR auto_categorized = ? OR confidence_score < ?)", false, confidence).
				Updates(map[string]interface{}{
					"category_id":      *categoryID,
					"category_type":    category.Type,
					"auto_categorized": true,
					"confidence_score": gorm.Expr("CASE WHEN confidence_score >= ? THEN confidence_score ELSE ? END", confidence, confidence),
				})
			if res.Error != nil {
				return res.Error
			}
			result.TransactionsUpdated += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.invalidateTransactionCaches()
	return result, nil
}

// matchingRules returns up to maxSuggestions active rules whose pattern is a
// case-insensitive substring of the normalized name, best-ranked first.
func (s *categorizerService) matchingRules(normalized string) ([]models.CategorizationRule, error) {
	var rules []models.CategorizationRule
	if err := s.db.Preload("Category").Where("is_active = ?", true).Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	matched := rules[:0]
	for _, rule := range rules {
		if rule.NamePattern == "" {
			continue
		}
		if strings.Contains(normalized, strings.ToLower(rule.NamePattern)) {
			matched = append(matched, rule)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return CompareRules(matched[i], matched[j]) < 0
	})

	if len(matched) > maxSuggestions {
		matched = matched[:maxSuggestions]
	}
	return matched, nil
}

// toMatch computes the confidence-scored candidate for one rule against the
// normalized transaction name.
func (s *categorizerService) toMatch(rule models.CategorizationRule, normalized string) RuleMatch {
	base := baseConfidenceUnresolved
	if rule.CategoryID != nil {
		base = baseConfidenceResolved
	}

	nameLen := len(normalized)
	if nameLen < 1 {
		nameLen = 1
	}
	ratio := float64(len(rule.NamePattern)) / float64(nameLen)
	if ratio < minLengthRatio {
		ratio = minLengthRatio
	}

	confidence := base * ratio
	if confidence > 1.0 {
		confidence = 1.0
	}

	name := rule.CategoryName
	if name == "" && rule.Category != nil {
		name = rule.Category.Name
	}

	return RuleMatch{
		RuleID:       rule.ID,
		Pattern:      rule.NamePattern,
		Priority:     rule.Priority,
		CategoryID:   rule.CategoryID,
		CategoryName: name,
		Confidence:   confidence,
	}
}

// commit persists the assignment: the category is set only when not already
// set, auto_categorized is raised, and confidence_score never decreases.
func (s *categorizerService) commit(externalID, vendor string, categoryID uint, confidence float64) (*models.Transaction, error) {
	var category models.Category
	if err := s.db.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	res := s.db.Model(&models.Transaction{}).
		Where("external_id = ? AND vendor = ?", externalID, vendor).
		Updates(map[string]interface{}{
			"category_id":      gorm.Expr("COALESCE(category_id, ?)", categoryID),
			"category_type":    gorm.Expr("CASE WHEN category_id IS NULL THEN ? ELSE category_type END", category.Type),
			"auto_categorized": true,
			"confidence_score": gorm.Expr("CASE WHEN confidence_score >= ? THEN confidence_score ELSE ? END", confidence, confidence),
		})
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrTransactionNotFound
	}

	var transaction models.Transaction
	if err := s.db.Preload("Category").
		Where("external_id = ? AND vendor = ?", externalID, vendor).
		First(&transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.invalidateTransactionCaches()
	return &transaction, nil
}

func (s *categorizerService) invalidateTransactionCaches() {
	if s.queryCache != nil {
		s.queryCache.InvalidateTable("transactions")
	}
}
