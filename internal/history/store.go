// Package history persists one record per launched run in a SQLite
// database under the suite's log root. History failures are reported to the
// caller but are expected to be treated as non-fatal: losing a history row
// must never kill a training job.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/macaw-rl/macawlab/internal/fsutil"
)

// FileName is the database file created under the log root.
const FileName = "macawlab.db"

// Run is one recorded launch of an experiment.
type Run struct {
	ID          string
	Experiment  string
	LogDir      string
	TaskConfig  string
	AlgoParams  string
	Override    string
	Status      string
	ExitCode    int
	Error       string
	MetricLines int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Store wraps the SQLite database holding run history.
type Store struct {
	db *sql.DB
}

// Timestamps are stored as unix seconds; the driver round-trips integers
// reliably where time.Time columns would not.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	experiment   TEXT NOT NULL,
	log_dir      TEXT NOT NULL,
	task_config  TEXT NOT NULL,
	algo_params  TEXT NOT NULL,
	override     TEXT NOT NULL,
	status       TEXT NOT NULL,
	exit_code    INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	metric_lines INTEGER NOT NULL DEFAULT 0,
	started_at   INTEGER NOT NULL,
	finished_at  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Open creates (if necessary) and opens the history database in the given
// log root directory.
func Open(logRoot string) (*Store, error) {
	if err := fsutil.EnsureDir(logRoot); err != nil {
		return nil, err
	}

	path := filepath.Join(logRoot, FileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", path, err)
	}
	// SQLite handles one writer at a time; the launcher's workers all write.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin records a run in the "running" state.
func (s *Store) Begin(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, experiment, log_dir, task_config, algo_params, override, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, 'running', ?)`,
		run.ID, run.Experiment, run.LogDir, run.TaskConfig, run.AlgoParams, run.Override, run.StartedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// Finish updates a run with its terminal status.
func (s *Store) Finish(ctx context.Context, id, status string, exitCode int, errText string, metricLines int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, exit_code = ?, error = ?, metric_lines = ?, finished_at = ? WHERE id = ?`,
		status, exitCode, errText, metricLines, time.Now().UTC().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}

// Recent returns the most recently started runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	if n < 1 {
		n = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, experiment, log_dir, task_config, algo_params, override, status, exit_code, error, metric_lines, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &r.Experiment, &r.LogDir, &r.TaskConfig, &r.AlgoParams, &r.Override,
			&r.Status, &r.ExitCode, &r.Error, &r.MetricLines, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.StartedAt = time.Unix(started, 0).UTC()
		if finished > 0 {
			r.FinishedAt = time.Unix(finished, 0).UTC()
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read run history: %w", err)
	}
	return runs, nil
}
