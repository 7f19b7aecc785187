package search

import (
	"strings"

	"finsight/internal/config"
)

// sqliteDialect has no text index to lean on, so it falls back to
// case-insensitive pattern matching directly.
type sqliteDialect struct{}

func (sqliteDialect) Name() string { return config.DriverSQLite }

func (sqliteDialect) SearchCondition(term string) (string, []any) {
	pattern := "%" + strings.ToLower(term) + "%"
	cond := `(LOWER(name) LIKE ? OR LOWER(memo) LIKE ? OR LOWER(vendor) LIKE ?` +
		` OR category_id IN (SELECT id FROM categories WHERE LOWER(name) LIKE ? AND deleted_at IS NULL))`
	return cond, []any{pattern, pattern, pattern, pattern}
}
