package models

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

// CategoryBudget is a spending limit for a category and its descendants.
// BudgetLimit is in cents. Only monthly budgets are evaluated by the insight
// generator today; yearly budgets are stored but skipped.
type CategoryBudget struct {
	Base
	CategoryID  uint         `gorm:"not null;index" json:"category_id"`
	BudgetLimit int64        `gorm:"not null" json:"budget_limit"`
	PeriodType  BudgetPeriod `gorm:"not null;default:monthly" json:"period_type"`
	IsActive    bool         `gorm:"default:true" json:"is_active"`

	// Relationships
	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
