package models

import "time"

// Transaction is a ledger entry referenced by the categorizer and insight
// generator. Identity is the (ExternalID, Vendor) pair; creation and deletion
// are owned by the external ledger integration, this core only reads rows and
// writes category assignments. Amount is signed cents: negative for expenses,
// positive for income. ConfidenceScore is monotonically non-decreasing once
// the categorizer sets it.
type Transaction struct {
	Base
	ExternalID      string       `gorm:"not null;uniqueIndex:idx_transactions_identity" json:"external_id"`
	Vendor          string       `gorm:"not null;uniqueIndex:idx_transactions_identity;index" json:"vendor"`
	Name            string       `gorm:"not null" json:"name"`
	Memo            string       `json:"memo,omitempty"`
	Tags            string       `json:"tags,omitempty"`
	Amount          int64        `gorm:"not null" json:"amount"`
	Date            time.Time    `gorm:"not null;index" json:"date"`
	CategoryID      *uint        `gorm:"index" json:"category_id,omitempty"`
	CategoryType    CategoryType `gorm:"index" json:"category_type,omitempty"`
	AutoCategorized bool         `gorm:"default:false" json:"auto_categorized"`
	ConfidenceScore float64      `gorm:"default:0" json:"confidence_score"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
