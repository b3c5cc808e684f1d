// Package history persists run outcomes to a local SQLite database so
// consecutive runs can be compared and the last failure replayed from
// the command line.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/anybank/anybank-e2e/internal/harness"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	passed      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	suite    TEXT NOT NULL,
	check_name TEXT NOT NULL,
	status   TEXT NOT NULL,
	message  TEXT NOT NULL,
	position INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_run ON results(run_id);
`

// Store is a handle on the history database.
type Store struct {
	db *sql.DB
}

// RunSummary is one recorded run.
type RunSummary struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Passed   bool
}

// StoredResult is one check outcome within a recorded run.
type StoredResult struct {
	Suite   string
	Check   string
	Status  harness.Status
	Message string
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores the outcome of one invocation and returns its id.
func (s *Store) RecordRun(results []harness.SuiteResult) (string, error) {
	runID := uuid.NewString()

	started := time.Now()
	var total time.Duration
	passed := true
	for _, sr := range results {
		if sr.Started.Before(started) {
			started = sr.Started
		}
		total += sr.Duration
		if !sr.Passed {
			passed = false
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("starting history tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, started_at, duration_ms, passed) VALUES (?, ?, ?, ?)`,
		runID, started.UTC().Format(time.RFC3339Nano), total.Milliseconds(), boolInt(passed),
	); err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	pos := 0
	for _, sr := range results {
		for _, r := range sr.Results {
			if _, err := tx.Exec(
				`INSERT INTO results (run_id, suite, check_name, status, message, position) VALUES (?, ?, ?, ?, ?, ?)`,
				runID, sr.Suite, r.Check, string(r.Status), r.Message, pos,
			); err != nil {
				return "", fmt.Errorf("inserting result: %w", err)
			}
			pos++
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing history: %w", err)
	}
	return runID, nil
}

// LastRun returns the most recent run, or nil if none recorded yet.
func (s *Store) LastRun() (*RunSummary, error) {
	runs, err := s.Runs(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// Runs returns up to limit runs, newest first.
func (s *Store) Runs(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, duration_ms, passed FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			r        RunSummary
			started  string
			duration int64
			passed   int
		)
		if err := rows.Scan(&r.ID, &started, &duration, &passed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Started, _ = time.Parse(time.RFC3339Nano, started)
		r.Duration = time.Duration(duration) * time.Millisecond
		r.Passed = passed != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Results returns the check outcomes of a run in execution order.
func (s *Store) Results(runID string) ([]StoredResult, error) {
	rows, err := s.db.Query(
		`SELECT suite, check_name, status, message FROM results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []StoredResult
	for rows.Next() {
		var r StoredResult
		var status string
		if err := rows.Scan(&r.Suite, &r.Check, &status, &r.Message); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.Status = harness.Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
