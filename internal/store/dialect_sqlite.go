package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lawnchairsociety/wavecollapse/internal/config"
	_ "modernc.org/sqlite"
)

// sqlitePragmas run on every new connection. busy_timeout comes first so
// the others wait out a concurrent writer.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"foreign_keys(1)",
	"journal_mode(WAL)",
}

// SQLiteDialect implements Dialect for the modernc.org/sqlite driver.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite"
}

// DataSourceName creates the database directory and returns the file path
// with the pragmas every connection needs.
func (d *SQLiteDialect) DataSourceName(cfg config.StoreConfig) (string, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	params := make([]string, len(sqlitePragmas))
	for i, p := range sqlitePragmas {
		params[i] = "_pragma=" + p
	}
	return cfg.SQLitePath + "?" + strings.Join(params, "&"), nil
}

// ConfigurePool leaves database/sql defaults in place; WAL lets readers
// run beside the single writer.
func (d *SQLiteDialect) ConfigurePool(*sql.DB, config.StoreConfig) {}

// Placeholder returns "?" for all positions.
func (d *SQLiteDialect) Placeholder(int) string {
	return "?"
}

func (d *SQLiteDialect) IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
