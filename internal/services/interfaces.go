package services

import (
	"time"

	"finsight/internal/models"
	"finsight/internal/pagination"
)

// CategoryFilter narrows ListCategories results.
type CategoryFilter struct {
	Type            *models.CategoryType
	IncludeInactive bool
}

// CategoryStats annotates a category with ledger rollups.
type CategoryStats struct {
	models.Category
	TransactionCount int64 `json:"transaction_count"`
	TotalAmount      int64 `json:"total_amount"`
}

// UncategorizedBucket summarizes transactions with no category or assigned to
// a non-leaf category.
type UncategorizedBucket struct {
	Count        int64                `json:"count"`
	TotalAmount  int64                `json:"total_amount"`
	Transactions []models.Transaction `json:"transactions"`
}

// CategoryList is the full ListCategories result.
type CategoryList struct {
	Categories    []CategoryStats     `json:"categories"`
	Uncategorized UncategorizedBucket `json:"uncategorized"`
}

// CreateCategoryInput holds the fields accepted when creating a category.
type CreateCategoryInput struct {
	Name         string
	NameLocal    string
	Type         models.CategoryType
	ParentID     *uint
	Icon         string
	Color        string
	Description  string
	DisplayOrder *int
}

// UpdateCategoryInput holds the partial fields accepted when updating a
// category. Nil fields are left untouched; at least one must be set.
type UpdateCategoryInput struct {
	Name         *string
	NameLocal    *string
	Icon         *string
	Color        *string
	Description  *string
	DisplayOrder *int
	IsActive     *bool
}

// CategoryServicer owns the category hierarchy: tree mutations and listing
// with ledger rollups.
type CategoryServicer interface {
	ListCategories(filter CategoryFilter) (*CategoryList, error)
	GetCategoryByID(categoryID uint) (*models.Category, error)
	CreateCategory(input CreateCategoryInput) (*models.Category, error)
	UpdateCategory(categoryID uint, input UpdateCategoryInput) (*models.Category, error)
	DeleteCategory(categoryID uint) (*models.Category, error)
}

// ResolveHint carries the names available to a resolver when a rule has no
// directly-resolved category id.
type ResolveHint struct {
	CategoryName    string
	ParentCategory  string
	TransactionName string
}

// ResolvedCategory is a successful resolver lookup.
type ResolvedCategory struct {
	CategoryID     uint
	ParentCategory string
	Subcategory    string
}

// CategoryResolver resolves a category name hint to a concrete category.
// A nil result with a nil error means "no resolution", which is not a
// failure.
type CategoryResolver interface {
	ResolveCategory(hint ResolveHint) (*ResolvedCategory, error)
}

// CategorizeInput is a single-transaction categorization request. Name is
// required. When ExternalID and Vendor are both set the best match is
// committed to that transaction; otherwise the call is a preview returning
// suggestions only.
type CategorizeInput struct {
	Name       string
	ExternalID string
	Vendor     string
}

// RuleMatch is one candidate rule with its computed confidence.
type RuleMatch struct {
	RuleID       uint    `json:"rule_id"`
	Pattern      string  `json:"pattern"`
	Priority     int     `json:"priority"`
	CategoryID   *uint   `json:"category_id,omitempty"`
	CategoryName string  `json:"category_name,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// CategorizeResult is the outcome of a single-transaction categorization.
// Matched false with empty Suggestions is a successful "nothing to suggest"
// result, not an error.
type CategorizeResult struct {
	Matched     bool                `json:"matched"`
	Match       *RuleMatch          `json:"match,omitempty"`
	Suggestions []RuleMatch         `json:"suggestions"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
}

// BulkCategorizeResult reports a bulk pass. TransactionsUpdated sums the
// per-rule update counts; a transaction matched by more than one rule is
// counted once per matching rule.
type BulkCategorizeResult struct {
	PatternsConsidered  int   `json:"patterns_considered"`
	TransactionsUpdated int64 `json:"transactions_updated"`
}

// CategorizerServicer applies categorization rules to transactions.
type CategorizerServicer interface {
	Categorize(input CategorizeInput) (*CategorizeResult, error)
	BulkCategorize() (*BulkCategorizeResult, error)
}

// CreateRuleInput holds the fields accepted when creating a rule.
type CreateRuleInput struct {
	NamePattern        string
	CategoryID         *uint
	CategoryName       string
	ParentCategoryName string
	Priority           int
}

// UpdateRuleInput holds the partial fields accepted when updating a rule.
type UpdateRuleInput struct {
	NamePattern *string
	CategoryID  *uint
	Priority    *int
	IsActive    *bool
}

// RuleServicer manages categorization rules.
type RuleServicer interface {
	ListRules(activeOnly bool) ([]models.CategorizationRule, error)
	GetRuleByID(ruleID uint) (*models.CategorizationRule, error)
	CreateRule(input CreateRuleInput) (*models.CategorizationRule, error)
	UpdateRule(ruleID uint, input UpdateRuleInput) (*models.CategorizationRule, error)
	DeleteRule(ruleID uint) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Type       *models.CategoryType
	CategoryID *uint
	Vendor     *string
	MinAmount  *int64
	MaxAmount  *int64
}

// TransactionServicer is the read surface over the ledger.
type TransactionServicer interface {
	ListTransactions(page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	SearchTransactions(term string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	GetTransaction(externalID, vendor string) (*models.Transaction, error)
}

// CreateBudgetInput holds the fields accepted when creating a budget.
type CreateBudgetInput struct {
	CategoryID  uint
	BudgetLimit int64
	PeriodType  models.BudgetPeriod
}

// UpdateBudgetInput holds the partial fields accepted when updating a budget.
type UpdateBudgetInput struct {
	BudgetLimit *int64
	PeriodType  *models.BudgetPeriod
	IsActive    *bool
}

// BudgetProgress reports spending against one budget for the current period.
type BudgetProgress struct {
	BudgetID    uint    `json:"budget_id"`
	CategoryID  uint    `json:"category_id"`
	BudgetLimit int64   `json:"budget_limit"`
	Spent       int64   `json:"spent"`
	Remaining   int64   `json:"remaining"`
	Percentage  float64 `json:"percentage"`
}

// BudgetServicer manages category budgets.
type BudgetServicer interface {
	ListBudgets(isActive *bool) ([]models.CategoryBudget, error)
	GetBudgetByID(budgetID uint) (*models.CategoryBudget, error)
	CreateBudget(input CreateBudgetInput) (*models.CategoryBudget, error)
	UpdateBudget(budgetID uint, input UpdateBudgetInput) (*models.CategoryBudget, error)
	DeleteBudget(budgetID uint) error
	GetBudgetProgress(budgetID uint) (*BudgetProgress, error)
}

// InsightFilter selects which generators run and filters their output.
// Type "all" (or empty) runs every generator. Limit defaults to 50.
type InsightFilter struct {
	Type     string
	Severity *models.Severity
	Limit    int
}

// InsightServicer computes ephemeral notifications from current ledger data.
type InsightServicer interface {
	GenerateInsights(filter InsightFilter) ([]models.Notification, error)
}
