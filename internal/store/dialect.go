package store

import (
	"database/sql"

	"github.com/lawnchairsociety/wavecollapse/internal/config"
)

// Dialect abstracts the differences between SQLite and PostgreSQL.
type Dialect interface {
	// DriverName returns the driver name for sql.Open().
	DriverName() string

	// DataSourceName builds the connection string. Per-connection settings
	// belong here, since sql.DB opens connections on demand.
	DataSourceName(cfg config.StoreConfig) (string, error)

	// ConfigurePool applies connection pool limits.
	ConfigurePool(db *sql.DB, cfg config.StoreConfig)

	// Placeholder returns the parameter placeholder for the given position (1-indexed).
	// SQLite: "?" (ignores position), PostgreSQL: "$1", "$2", etc.
	Placeholder(position int) string

	// IsDuplicateKeyError returns true if the error is a unique constraint violation.
	IsDuplicateKeyError(err error) bool
}

// DialectType identifies the database dialect.
type DialectType string

const (
	DialectSQLite   DialectType = "sqlite"
	DialectPostgres DialectType = "postgres"
)

// NewDialect returns the dialect for a store driver name. Anything other
// than postgres means SQLite.
func NewDialect(dialectType DialectType) Dialect {
	if dialectType == DialectPostgres {
		return &PostgresDialect{}
	}
	return &SQLiteDialect{}
}
