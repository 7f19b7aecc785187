// Package search builds backend-specific SQL for transaction text queries.
// This is the only seam that knows which storage backend is active; business
// logic asks a Dialect for a condition and binds whatever values it returns,
// in the order it returns them. Callers must not assume placeholder count or
// ordering is the same across dialects.
package search

import (
	"fmt"

	"finsight/internal/config"
)

// Dialect translates a logical search term into a boolean SQL fragment plus
// its bound values for one backend.
type Dialect interface {
	// Name returns the driver name the dialect targets.
	Name() string

	// SearchCondition returns a boolean fragment matching transactions whose
	// name, memo, vendor, or category name match term, with the values to
	// bind to its placeholders.
	SearchCondition(term string) (string, []any)
}

// ForDriver returns the Dialect for a database driver name.
func ForDriver(driver string) (Dialect, error) {
	switch driver {
	case config.DriverPostgres:
		return postgresDialect{}, nil
	case config.DriverSQLite:
		return sqliteDialect{}, nil
	}
	return nil, fmt.Errorf("no search dialect for driver %q", driver)
}
