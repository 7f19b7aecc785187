package search

import "finsight/internal/config"

// postgresDialect uses the native text index, with ILIKE fallbacks across
// the same columns in case the index lags behind recent writes.
type postgresDialect struct{}

func (postgresDialect) Name() string { return config.DriverPostgres }

func (postgresDialect) SearchCondition(term string) (string, []any) {
	pattern := "%" + term + "%"
	cond := `(to_tsvector('simple', coalesce(name, '') || ' ' || coalesce(memo, '')) @@ plainto_tsquery('simple', ?)` +
		` OR name ILIKE ? OR memo ILIKE ? OR vendor ILIKE ?` +
		` OR category_id IN (SELECT id FROM categories WHERE name ILIKE ? AND deleted_at IS NULL))`
	return cond, []any{term, pattern, pattern, pattern, pattern}
}
