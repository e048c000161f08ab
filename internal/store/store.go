// Package store persists finished solves in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lawnchairsociety/wavecollapse/internal/config"
	"github.com/lawnchairsociety/wavecollapse/internal/generator"
	"github.com/lawnchairsociety/wavecollapse/internal/logger"
)

var (
	ErrSolveNotFound = errors.New("store: solve not found")
	ErrDuplicateID   = errors.New("store: solve id already exists")
)

// Summary is one row of the solves table.
type Summary struct {
	ID          string        `json:"id"`
	Seed        int64         `json:"seed"`
	Shape       string        `json:"shape"`
	Width       int           `json:"width,omitempty"`
	Height      int           `json:"height,omitempty"`
	Radius      int           `json:"radius,omitempty"`
	ModuleSet   string        `json:"module_set"`
	Fingerprint string        `json:"fingerprint"`
	Attempts    int           `json:"attempts"`
	Collapses   int           `json:"collapses"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Solve is a stored solve with its cells.
type Solve struct {
	Summary
	Cells []generator.Placement `json:"cells"`
}

// Result converts the stored solve back into a generator result.
func (s *Solve) Result() *generator.Result {
	return &generator.Result{
		Shape:       s.Shape,
		Width:       s.Width,
		Height:      s.Height,
		Radius:      s.Radius,
		ModuleSet:   s.ModuleSet,
		Fingerprint: s.Fingerprint,
		Seed:        s.Seed,
		Attempts:    s.Attempts,
		Elapsed:     s.Elapsed,
		Cells:       s.Cells,
	}
}

// Store wraps the database connection.
type Store struct {
	db      *sql.DB
	dialect Dialect
	q       queries
	now     func() time.Time
}

type queries struct {
	insertSolve string
	insertCell  string
	getSolve    string
	getCells    string
	listSolves  string
	deleteSolve string
}

func buildQueries(qb *QueryBuilder) queries {
	return queries{
		insertSolve: qb.Build(`INSERT INTO solves
			(id, seed, shape, width, height, radius, module_set, fingerprint, attempts, collapses, elapsed_ms, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		insertCell: qb.Build(`INSERT INTO solve_cells
			(solve_id, ordinal, address, x, y, module, module_name, orientation, glyph)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		getSolve: qb.Build(`SELECT ` + summaryColumns + ` FROM solves WHERE id = ?`),
		getCells: qb.Build(`SELECT address, x, y, module, module_name, orientation, glyph
			FROM solve_cells WHERE solve_id = ? ORDER BY ordinal`),
		listSolves:  qb.Build(`SELECT ` + summaryColumns + ` FROM solves ORDER BY created_at DESC, id LIMIT ?`),
		deleteSolve: qb.Build(`DELETE FROM solves WHERE id = ?`),
	}
}

const summaryColumns = `id, seed, shape, width, height, radius, module_set, fingerprint, attempts, collapses, elapsed_ms, created_at`

// Open connects to the configured database and creates the schema.
func Open(cfg config.StoreConfig) (*Store, error) {
	dialect := NewDialect(DialectType(cfg.Driver))

	dsn, err := dialect.DataSourceName(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	dialect.ConfigurePool(db, cfg)

	s, err := newStore(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("Opened solve store", "driver", dialect.DriverName())
	return s, nil
}

func newStore(db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{
		db:      db,
		dialect: dialect,
		q:       buildQueries(NewQueryBuilder(dialect)),
		now:     time.Now,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS solves (
			id TEXT PRIMARY KEY,
			seed BIGINT NOT NULL,
			shape TEXT NOT NULL,
			width INTEGER NOT NULL DEFAULT 0,
			height INTEGER NOT NULL DEFAULT 0,
			radius INTEGER NOT NULL DEFAULT 0,
			module_set TEXT NOT NULL DEFAULT '',
			fingerprint TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 1,
			collapses INTEGER NOT NULL DEFAULT 0,
			elapsed_ms BIGINT NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS solve_cells (
			solve_id TEXT NOT NULL REFERENCES solves(id) ON DELETE CASCADE,
			ordinal INTEGER NOT NULL,
			address TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			module INTEGER NOT NULL,
			module_name TEXT NOT NULL DEFAULT '',
			orientation INTEGER NOT NULL,
			glyph TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (solve_id, ordinal)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_solves_created_at ON solves(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_solves_fingerprint ON solves(fingerprint)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// SaveSolve stores a result and its cells in one transaction and returns
// the new solve ID.
func (s *Store) SaveSolve(ctx context.Context, r *generator.Result) (string, error) {
	id := uuid.NewString()
	if err := s.SaveSolveAs(ctx, id, r); err != nil {
		return "", err
	}
	return id, nil
}

// SaveSolveAs stores a result under an ID chosen by the caller, such as
// the ID a stream announced before the solve finished.
func (s *Store) SaveSolveAs(ctx context.Context, id string, r *generator.Result) error {
	if err := s.saveSolve(ctx, id, r); err != nil {
		return err
	}
	logger.Always("Solve stored", "id", id, "shape", r.Shape, "seed", r.Seed, "cells", len(r.Cells))
	return nil
}

func (s *Store) saveSolve(ctx context.Context, id string, r *generator.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.q.insertSolve,
		id, r.Seed, r.Shape, r.Width, r.Height, r.Radius, r.ModuleSet, r.Fingerprint,
		r.Attempts, r.Stats.Collapses, r.Elapsed.Milliseconds(), s.now().UnixMilli(),
	)
	if err != nil {
		if s.dialect.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		return fmt.Errorf("failed to insert solve: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.q.insertCell)
	if err != nil {
		return fmt.Errorf("failed to prepare cell insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range r.Cells {
		if _, err := stmt.ExecContext(ctx, id, i, c.Address, c.X, c.Y, c.Module, c.ModuleName, c.Orientation, c.Glyph); err != nil {
			return fmt.Errorf("failed to insert cell %s: %w", c.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit solve: %w", err)
	}
	return nil
}

// GetSolve retrieves a solve and its cells by ID.
func (s *Store) GetSolve(ctx context.Context, id string) (*Solve, error) {
	row := s.db.QueryRowContext(ctx, s.q.getSolve, id)
	summary, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSolveNotFound, id)
		}
		return nil, fmt.Errorf("failed to get solve: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.q.getCells, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get cells: %w", err)
	}
	defer rows.Close()

	solve := &Solve{Summary: *summary}
	for rows.Next() {
		var c generator.Placement
		if err := rows.Scan(&c.Address, &c.X, &c.Y, &c.Module, &c.ModuleName, &c.Orientation, &c.Glyph); err != nil {
			return nil, fmt.Errorf("failed to scan cell: %w", err)
		}
		solve.Cells = append(solve.Cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cells: %w", err)
	}
	return solve, nil
}

// ListSolves returns the most recent solves, newest first.
func (s *Store) ListSolves(ctx context.Context, limit int) ([]*Summary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, s.q.listSolves, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list solves: %w", err)
	}
	defer rows.Close()

	var out []*Summary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan solve: %w", err)
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

// DeleteSolve removes a solve and its cells.
func (s *Store) DeleteSolve(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q.deleteSolve, id)
	if err != nil {
		return fmt.Errorf("failed to delete solve: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSolveNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (*Summary, error) {
	var (
		s         Summary
		elapsedMS int64
		createdMS int64
	)
	err := row.Scan(&s.ID, &s.Seed, &s.Shape, &s.Width, &s.Height, &s.Radius, &s.ModuleSet,
		&s.Fingerprint, &s.Attempts, &s.Collapses, &elapsedMS, &createdMS)
	if err != nil {
		return nil, err
	}
	s.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	s.CreatedAt = time.UnixMilli(createdMS)
	return &s, nil
}
