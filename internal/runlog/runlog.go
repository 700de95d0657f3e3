// Package runlog keeps a local SQLite history of extraction runs, so an
// investigator can see which windows were already pulled and with what
// counts. Failures here never abort a run.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/justinforbes/Microsoft-365-Extractor-Suite/internal/ual"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	search_id     TEXT,
	search_name   TEXT,
	started_at    TEXT,
	duration_ms   INTEGER,
	total_records INTEGER,
	pages         INTEGER,
	output_path   TEXT
)`

// Store is a run-history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the run log at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("runlog: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("runlog: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts one completed run.
func (s *Store) Record(ctx context.Context, sum *ual.RunSummary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, search_id, search_name, started_at, duration_ms, total_records, pages, output_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.SearchID, sum.SearchName, sum.StartedAt.UTC().Format(time.RFC3339),
		sum.Duration.Milliseconds(), sum.TotalRecords, sum.PageCount, sum.OutputPath)
	if err != nil {
		return fmt.Errorf("runlog: record run %s: %w", sum.RunID, err)
	}
	return nil
}

// Runs returns how many runs have been recorded.
func (s *Store) Runs(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("runlog: count runs: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
