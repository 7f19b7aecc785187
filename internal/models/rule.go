package models

// CategorizationRule matches transaction names by case-insensitive substring
// and maps them to a category. When CategoryID is nil the rule only carries a
// category name hint; resolution to a concrete id is deferred to a resolver
// collaborator at categorization time. Rules never mutate transactions
// themselves.
type CategorizationRule struct {
	Base
	NamePattern        string `gorm:"not null" json:"name_pattern"`
	CategoryID         *uint  `json:"category_id,omitempty"`
	CategoryName       string `json:"category_name,omitempty"`
	ParentCategoryName string `json:"parent_category_name,omitempty"`
	Priority           int    `gorm:"default:0" json:"priority"`
	IsActive           bool   `gorm:"default:true" json:"is_active"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
