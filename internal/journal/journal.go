// Package journal keeps an SQLite record of extraction runs, so past
// batches and their per-file failures can be inspected later.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Journal wraps SQLite-backed persistence for extraction runs.
type Journal struct {
	DB *sql.DB // Export for direct database access
}

// Open opens (or creates) the database at path and ensures schema.
// The parent directory is created when missing.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	j := &Journal{DB: db}
	if err := j.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            id TEXT PRIMARY KEY,
            mode TEXT NOT NULL,
            source_dir TEXT,
            dest_dir TEXT,
            with_landmarks BOOLEAN DEFAULT FALSE,
            ensure_pairs BOOLEAN DEFAULT FALSE,
            extracted INTEGER DEFAULT 0,
            cached INTEGER DEFAULT 0,
            failed INTEGER DEFAULT 0,
            removed_pairs INTEGER DEFAULT 0,
            removed_orphans INTEGER DEFAULT 0,
            started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            finished_at TIMESTAMP,
            error_message TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS run_failures (
            run_id TEXT NOT NULL,
            file TEXT NOT NULL,
            error_message TEXT,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE INDEX IF NOT EXISTS idx_run_failures_run_id ON run_failures(run_id);`,
	}
	for _, stmt := range stmts {
		if _, err := j.DB.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying DB.
func (j *Journal) Close() error {
	if j == nil || j.DB == nil {
		return nil
	}
	return j.DB.Close()
}

// NewRunID generates a unique run identifier.
func NewRunID() string {
	ts := time.Now().UTC().Format("20060102T150405")
	return fmt.Sprintf("run-%s-%04d", ts, rand.Intn(10000))
}

// Run captures one persisted extraction run.
type Run struct {
	ID             string
	Mode           string
	SourceDir      string
	DestDir        string
	WithLandmarks  bool
	EnsurePairs    bool
	Extracted      int
	Cached         int
	Failed         int
	RemovedPairs   int
	RemovedOrphans int
	Error          string
	StartedAt      time.Time
	FinishedAt     *time.Time
}

// Failure captures one per-file failure of a run.
type Failure struct {
	RunID string
	File  string
	Error string
	At    time.Time
}

// Outcome carries the final counters of a run into Finish.
type Outcome struct {
	Extracted      int
	Cached         int
	Failed         int
	RemovedPairs   int
	RemovedOrphans int
	Error          string
}

// Begin inserts a new run in its starting state.
func (j *Journal) Begin(run Run) error {
	if j == nil {
		return nil
	}
	_, err := j.DB.Exec(`INSERT OR REPLACE INTO runs (id, mode, source_dir, dest_dir, with_landmarks, ensure_pairs) VALUES (?, ?, ?, ?, ?, ?);`,
		run.ID, run.Mode, run.SourceDir, run.DestDir, run.WithLandmarks, run.EnsurePairs)
	return err
}

// RecordFailure appends one per-file failure to a run.
func (j *Journal) RecordFailure(runID, file, errMsg string) error {
	if j == nil {
		return nil
	}
	_, err := j.DB.Exec(`INSERT INTO run_failures (run_id, file, error_message) VALUES (?, ?, ?);`,
		runID, file, errMsg)
	return err
}

// Finish closes a run with its final counters.
func (j *Journal) Finish(id string, out Outcome) error {
	if j == nil {
		return nil
	}
	_, err := j.DB.Exec(`UPDATE runs SET extracted=?, cached=?, failed=?, removed_pairs=?, removed_orphans=?, finished_at=CURRENT_TIMESTAMP, error_message=? WHERE id=?;`,
		out.Extracted, out.Cached, out.Failed, out.RemovedPairs, out.RemovedOrphans, out.Error, id)
	return err
}

// RecentRuns returns the latest runs up to limit.
func (j *Journal) RecentRuns(limit int) ([]Run, error) {
	if j == nil {
		return nil, errors.New("journal not initialized")
	}
	rows, err := j.DB.Query(`SELECT id, mode, source_dir, dest_dir, with_landmarks, ensure_pairs, extracted, cached, failed, removed_pairs, removed_orphans, started_at, finished_at, error_message FROM runs ORDER BY started_at DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started time.Time
		var finished sql.NullTime
		var errorMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.Mode, &run.SourceDir, &run.DestDir, &run.WithLandmarks, &run.EnsurePairs,
			&run.Extracted, &run.Cached, &run.Failed, &run.RemovedPairs, &run.RemovedOrphans,
			&started, &finished, &errorMsg); err != nil {
			return nil, err
		}
		run.StartedAt = started
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		if errorMsg.Valid {
			run.Error = errorMsg.String
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Failures returns the per-file failures recorded for a run.
func (j *Journal) Failures(runID string) ([]Failure, error) {
	if j == nil {
		return nil, errors.New("journal not initialized")
	}
	rows, err := j.DB.Query(`SELECT run_id, file, error_message, created_at FROM run_failures WHERE run_id=? ORDER BY created_at;`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var f Failure
		var errorMsg sql.NullString
		if err := rows.Scan(&f.RunID, &f.File, &errorMsg, &f.At); err != nil {
			return nil, err
		}
		if errorMsg.Valid {
			f.Error = errorMsg.String
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}
