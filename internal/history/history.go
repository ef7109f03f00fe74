// Package history keeps a SQLite ledger of digest runs: when each digest
// was generated, where it was written, and which sources failed. It stores
// run metadata only, never article content.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	conn *sql.DB
	path string
}

// Run is one recorded digest generation.
type Run struct {
	ID           int64
	GeneratedAt  time.Time
	OutputPath   string
	ArticleCount int
	SectionCount int
	FailureCount int
}

// RunFailure is one source failure recorded against a run.
type RunFailure struct {
	RunID   int64
	Source  string
	Kind    string
	Message string
}

// Open creates or opens the run history database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// RecordRun inserts a run and its failures in one transaction and returns
// the new run ID.
func (db *DB) RecordRun(run Run, failures []RunFailure) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO runs (generated_at, output_path, article_count, section_count, failure_count)
		VALUES (?, ?, ?, ?, ?)`,
		run.GeneratedAt.UTC().Format(time.RFC3339), run.OutputPath,
		run.ArticleCount, run.SectionCount, len(failures),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, f := range failures {
		if _, err := tx.Exec(
			`INSERT INTO run_failures (run_id, source, kind, message) VALUES (?, ?, ?, ?)`,
			runID, f.Source, f.Kind, f.Message,
		); err != nil {
			return 0, fmt.Errorf("inserting failure for %s: %w", f.Source, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.Query(
		`SELECT id, generated_at, output_path, article_count, section_count, failure_count
		FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var generatedAt string
		if err := rows.Scan(&r.ID, &generatedAt, &r.OutputPath,
			&r.ArticleCount, &r.SectionCount, &r.FailureCount); err != nil {
			return nil, err
		}
		r.GeneratedAt, err = time.Parse(time.RFC3339, generatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing generated_at for run %d: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Failures returns the failures recorded against a run.
func (db *DB) Failures(runID int64) ([]RunFailure, error) {
	rows, err := db.conn.Query(
		`SELECT run_id, source, kind, message FROM run_failures WHERE run_id = ? ORDER BY source`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []RunFailure
	for rows.Next() {
		var f RunFailure
		if err := rows.Scan(&f.RunID, &f.Source, &f.Kind, &f.Message); err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}
