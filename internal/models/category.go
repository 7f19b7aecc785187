package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeExpense    CategoryType = "expense"
	CategoryTypeIncome     CategoryType = "income"
	CategoryTypeInvestment CategoryType = "investment"
)

// Valid reports whether t is a known category type.
func (t CategoryType) Valid() bool {
	switch t {
	case CategoryTypeExpense, CategoryTypeIncome, CategoryTypeInvestment:
		return true
	}
	return false
}

// Category is a node in the category tree. A node's type always equals its
// parent's type, and HierarchyPath is the materialized ancestor-to-self chain
// of ids ("3/7/12") so descendant lookups do not need recursive queries.
// Parent and Type are immutable after creation.
type Category struct {
	Base
	Name          string       `gorm:"not null" json:"name"`
	NameLocal     string       `json:"name_local,omitempty"`
	Type          CategoryType `gorm:"not null;index" json:"type"`
	ParentID      *uint        `gorm:"index" json:"parent_id,omitempty"`
	DisplayOrder  int          `json:"display_order"`
	DepthLevel    int          `json:"depth_level"`
	HierarchyPath string       `gorm:"index" json:"hierarchy_path"`
	Icon          string       `json:"icon"`
	Color         string       `json:"color"`
	Description   string       `json:"description"`
	IsActive      bool         `gorm:"default:true" json:"is_active"`
	IsReserved    bool         `gorm:"default:false" json:"is_reserved"`

	// Relationships
	Parent   *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []Category `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}
