// Package store keeps the local run-history database: one record per
// catalog run plus a per-query result breakdown. The catalog file
// itself only remembers the latest hit count; the store remembers how
// counts evolved across runs.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultDBPath is the store location relative to the working directory.
const DefaultDBPath = ".huntbook/history.db"

// nowUTC returns the current UTC time as an ISO 8601 string.
func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

// nullStr converts a sql.NullString to a plain string (empty if null).
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// Run is one catalog execution against one entity.
type Run struct {
	ID            int64
	EntityKind    string
	EntityID      string
	TimeFrame     string
	StartedAt     string
	FinishedAt    string
	TotalHits     int
	QueriesRun    int
	QueriesFailed int
}

// RunResult is the outcome of one query within a run. Error is empty
// for successful executions.
type RunResult struct {
	ID         int64
	RunID      int64
	QueryName  string
	HitCount   int
	DurationMS int64
	Error      string
}

// Store wraps the SQLite run-history database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at path, creating the parent
// directory and applying the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store dir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	var version sql.NullInt64
	err := s.db.QueryRow(`SELECT version FROM schema_info LIMIT 1`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := s.db.Exec(`INSERT INTO schema_info (version) VALUES (?)`, schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case version.Int64 > schemaVersion:
		return fmt.Errorf("store schema v%d is newer than this build supports (v%d)", version.Int64, schemaVersion)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// RecordRun inserts a run and its per-query results in one transaction
// and returns the run ID. StartedAt/FinishedAt default to now when
// empty.
func (s *Store) RecordRun(run *Run, results []RunResult) (int64, error) {
	if run.StartedAt == "" {
		run.StartedAt = nowUTC()
	}
	if run.FinishedAt == "" {
		run.FinishedAt = nowUTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO runs (entity_kind, entity_id, time_frame, started_at, finished_at, total_hits, queries_run, queries_failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.EntityKind, run.EntityID, run.TimeFrame, run.StartedAt, run.FinishedAt,
		run.TotalHits, run.QueriesRun, run.QueriesFailed)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for _, r := range results {
		var errCol any
		if r.Error != "" {
			errCol = r.Error
		}
		if _, err := tx.Exec(`
			INSERT INTO run_results (run_id, query_name, hit_count, duration_ms, error)
			VALUES (?, ?, ?, ?, ?)`,
			runID, r.QueryName, r.HitCount, r.DurationMS, errCol); err != nil {
			return 0, fmt.Errorf("insert result %q: %w", r.QueryName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	run.ID = runID
	return runID, nil
}

// ListRuns returns the most recent runs, newest first. entityKind
// filters when non-empty; limit <= 0 means no limit.
func (s *Store) ListRuns(entityKind string, limit int) ([]Run, error) {
	q := `SELECT id, entity_kind, entity_id, time_frame, started_at, finished_at, total_hits, queries_run, queries_failed
		FROM runs`
	var args []any
	if entityKind != "" {
		q += ` WHERE entity_kind = ?`
		args = append(args, entityKind)
	}
	q += ` ORDER BY id DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.EntityKind, &r.EntityID, &r.TimeFrame, &r.StartedAt, &r.FinishedAt,
			&r.TotalHits, &r.QueriesRun, &r.QueriesFailed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ResultsForRun returns the per-query results of one run in insertion
// (catalog) order.
func (s *Store) ResultsForRun(runID int64) ([]RunResult, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, query_name, hit_count, duration_ms, error
		FROM run_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []RunResult
	for rows.Next() {
		var r RunResult
		var errCol sql.NullString
		if err := rows.Scan(&r.ID, &r.RunID, &r.QueryName, &r.HitCount, &r.DurationMS, &errCol); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Error = nullStr(errCol)
		results = append(results, r)
	}
	return results, rows.Err()
}
