package search

import "gorm.io/gorm"

// ExcludeReserved is a GORM scope that filters out transactions assigned to a
// reserved category (internal bank bookkeeping such as escrow entries). Every
// transaction listing, search, bulk categorization pass, and insight scan
// applies this scope so results stay consistent across surfaces. The
// predicate is dialect-neutral.
func ExcludeReserved(db *gorm.DB) *gorm.DB {
	return db.Where(
		"(category_id IS NULL OR category_id NOT IN (SELECT id FROM categories WHERE is_reserved = ? AND deleted_at IS NULL))",
		true,
	)
}
