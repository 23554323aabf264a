// Package state provides SQLite-based run history for skyplan.
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/skyplan-dev/skyplan/pkg/models"
)

// DB wraps an SQLite database connection holding run history.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens an SQLite database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Runs},
		{2, migrationV2Steps},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Runs = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	goal TEXT NOT NULL,
	achievement TEXT NOT NULL,
	stop_reason TEXT NOT NULL,
	iterations INTEGER NOT NULL DEFAULT 0,
	elapsed_ms INTEGER NOT NULL DEFAULT 0,
	chain TEXT,
	context_json TEXT,
	verdict_json TEXT,
	started_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

const migrationV2Steps = `
CREATE TABLE IF NOT EXISTS steps (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	capability TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT,
	reason TEXT,
	iteration INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_steps_run_id ON steps(run_id);
`

// RunSummary is a single row of run history.
type RunSummary struct {
	// RunID uniquely identifies the run.
	RunID string
	// Goal is the goal text.
	Goal string
	// Achievement is the final achievement level.
	Achievement models.Achievement
	// StopReason is why the run terminated.
	StopReason string
	// Iterations is the number of loop iterations performed.
	Iterations int
	// Elapsed is the total run duration.
	Elapsed time.Duration
	// StartedAt is when the run began.
	StartedAt time.Time
}

// SaveReport persists a completed run and its steps.
func (db *DB) SaveReport(report *models.Report) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	chain, err := json.Marshal(report.Chain)
	if err != nil {
		return fmt.Errorf("marshal chain: %w", err)
	}
	contextJSON, err := json.Marshal(report.Context)
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	verdictJSON, err := json.Marshal(report.Verdict)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO runs (id, goal, achievement, stop_reason, iterations, elapsed_ms, chain, context_json, verdict_json, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID, report.Goal.Text, string(report.Verdict.Achievement), report.StopReason,
		report.Iterations, report.Elapsed.Milliseconds(), string(chain), string(contextJSON),
		string(verdictJSON), report.StartedAt.UTC(),
	)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}

	for i, step := range report.Steps {
		_, err = tx.Exec(`
			INSERT INTO steps (run_id, seq, capability, status, error, reason, iteration, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			report.RunID, i, step.Capability, string(step.Status), step.Error, step.Reason,
			step.Iteration, step.Duration.Milliseconds(),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("insert step %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]RunSummary, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT id, goal, achievement, stop_reason, iterations, elapsed_ms, started_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var elapsedMS int64
		if err := rows.Scan(&r.RunID, &r.Goal, &r.Achievement, &r.StopReason, &r.Iterations, &elapsedMS, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun loads a full report by run ID. Returns sql.ErrNoRows when the
// run does not exist.
func (db *DB) GetRun(runID string) (*models.Report, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var report models.Report
	var achievement, chain, contextJSON, verdictJSON string
	var elapsedMS int64
	row := db.conn.QueryRow(`
		SELECT id, goal, achievement, stop_reason, iterations, elapsed_ms, chain, context_json, verdict_json, started_at
		FROM runs WHERE id = ?`, runID)
	err := row.Scan(&report.RunID, &report.Goal.Text, &achievement, &report.StopReason,
		&report.Iterations, &elapsedMS, &chain, &contextJSON, &verdictJSON, &report.StartedAt)
	if err != nil {
		return nil, err
	}
	report.Elapsed = time.Duration(elapsedMS) * time.Millisecond

	if err := json.Unmarshal([]byte(chain), &report.Chain); err != nil {
		return nil, fmt.Errorf("unmarshal chain: %w", err)
	}
	if err := json.Unmarshal([]byte(contextJSON), &report.Context); err != nil {
		return nil, fmt.Errorf("unmarshal context: %w", err)
	}
	if err := json.Unmarshal([]byte(verdictJSON), &report.Verdict); err != nil {
		return nil, fmt.Errorf("unmarshal verdict: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT capability, status, error, reason, iteration, duration_ms
		FROM steps WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var step models.StepResult
		var status string
		var durationMS int64
		if err := rows.Scan(&step.Capability, &status, &step.Error, &step.Reason, &step.Iteration, &durationMS); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		step.Status = models.StepStatus(status)
		step.Duration = time.Duration(durationMS) * time.Millisecond
		report.Steps = append(report.Steps, step)
	}
	return &report, rows.Err()
}
