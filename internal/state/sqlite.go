package state

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/leapstack-labs/sqlstage/pkg/core"
)

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates an unopened store.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens the database at path and runs pending migrations.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening sqlite database: %w", err)
	}
	// SQLite is single-writer; a second pooled connection would also see
	// a different database entirely for ":memory:".
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("pinging sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return s.Migrate()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateRun inserts a new running run and returns it.
func (s *SQLiteStore) CreateRun(engines, datasets []string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Engines:   strings.Join(engines, ","),
		Datasets:  strings.Join(datasets, ","),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO bootstrap_runs (id, engines, datasets, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Engines, run.Datasets, string(run.Status), run.StartedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}
	return run, nil
}

// RecordOutcome inserts one pair outcome for a run.
func (s *SQLiteStore) RecordOutcome(runID string, o core.PairOutcome) error {
	_, err := s.db.Exec(
		`INSERT INTO pair_outcomes (run_id, engine, dataset, status, sql_path, schema_path, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, o.Engine, o.Dataset, string(o.Status), o.SQLPath, o.Schema, o.Err, o.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("recording outcome: %w", err)
	}
	return nil
}

// CompleteRun marks a run finished.
func (s *SQLiteStore) CompleteRun(runID string, status RunStatus, errMsg string) error {
	_, err := s.db.Exec(
		`UPDATE bootstrap_runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(status), errMsg, time.Now().UTC().Format(time.RFC3339), runID,
	)
	if err != nil {
		return fmt.Errorf("completing run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, engines, datasets, status, COALESCE(error, ''), started_at, completed_at
		 FROM bootstrap_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var status, startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(&run.ID, &run.Engines, &run.Datasets, &status, &run.Error, &startedAt, &completedAt); err != nil {
			return nil, err
		}
		run.Status = RunStatus(status)
		run.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if completedAt.Valid {
			if t, err := time.Parse(time.RFC3339, completedAt.String); err == nil {
				run.CompletedAt = &t
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Outcomes returns the recorded outcomes of one run in insertion order.
func (s *SQLiteStore) Outcomes(runID string) ([]core.PairOutcome, error) {
	rows, err := s.db.Query(
		`SELECT engine, dataset, status, sql_path, schema_path, error, duration_ms
		 FROM pair_outcomes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var outcomes []core.PairOutcome
	for rows.Next() {
		var o core.PairOutcome
		var status string
		var durationMS int64
		if err := rows.Scan(&o.Engine, &o.Dataset, &status, &o.SQLPath, &o.Schema, &o.Err, &durationMS); err != nil {
			return nil, err
		}
		o.Status = core.PairStatus(status)
		o.Duration = time.Duration(durationMS) * time.Millisecond
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
