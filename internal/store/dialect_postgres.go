package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lawnchairsociety/wavecollapse/internal/config"
	_ "github.com/lib/pq"
)

// PostgresDialect implements Dialect for the lib/pq driver.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

// DataSourceName returns a lib/pq key/value connection string.
func (d *PostgresDialect) DataSourceName(cfg config.StoreConfig) (string, error) {
	pg := cfg.Postgres
	if pg.Host == "" || pg.Database == "" {
		return "", errors.New("postgres store needs a host and a database")
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pg.Host, pg.Port, pg.User, pg.Password, pg.Database, pg.SSLMode,
	), nil
}

// ConfigurePool applies the configured pool limits; zero keeps the default.
func (d *PostgresDialect) ConfigurePool(db *sql.DB, cfg config.StoreConfig) {
	pg := cfg.Postgres
	if pg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pg.MaxOpenConns)
	}
	if pg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pg.MaxIdleConns)
	}
	if pg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pg.ConnMaxLifetime)
	}
}

// Placeholder returns "$N" for the given position.
func (d *PostgresDialect) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

// IsDuplicateKeyError reports a unique_violation (SQLSTATE 23505).
func (d *PostgresDialect) IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "23505") ||
		strings.Contains(msg, "unique constraint")
}
