// Package history records pipeline runs and their ordered stage results in a
// local SQLite database so past runs can be listed and inspected.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/repoforge/repoforge/internal/pipeline"
	"github.com/repoforge/repoforge/internal/project"
)

// ErrRunNotFound is returned when a run id is not in the database.
var ErrRunNotFound = errors.New("run not found")

// Store is a pipeline.RunLog backed by SQLite.
type Store struct {
	db *sql.DB
}

var _ pipeline.RunLog = (*Store)(nil)

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func createSchema(db *sql.DB) error {
	stmts := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		`CREATE TABLE IF NOT EXISTS runs (
			run_id       TEXT PRIMARY KEY,
			project_name TEXT NOT NULL,
			project_dir  TEXT NOT NULL,
			config_yaml  TEXT NOT NULL,
			state        TEXT NOT NULL,
			failed_stage TEXT NOT NULL DEFAULT '',
			commit_hash  TEXT NOT NULL DEFAULT '',
			summary      TEXT NOT NULL DEFAULT '',
			started_at   TEXT NOT NULL,
			finished_at  TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS stage_results (
			run_id      TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			seq         INTEGER NOT NULL,
			stage       TEXT NOT NULL,
			feature     TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL,
			reason      TEXT NOT NULL DEFAULT '',
			detail      TEXT NOT NULL DEFAULT '',
			recoverable INTEGER NOT NULL DEFAULT 0,
			artifacts   TEXT NOT NULL DEFAULT '',
			started_at  TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`,
		"CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

// BeginRun implements pipeline.RunLog.
func (s *Store) BeginRun(ctx context.Context, runID, projectDir string, cfg *project.Config, started time.Time) error {
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, project_name, project_dir, config_yaml, state, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, cfg.Name, projectDir, string(data), pipeline.StateInProgress.String(), formatTime(started))
	if err != nil {
		return fmt.Errorf("recording run %s: %w", runID, err)
	}
	return nil
}

// RecordStage implements pipeline.RunLog.
func (s *Store) RecordStage(ctx context.Context, runID string, seq int, res pipeline.StageResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stage_results
			(run_id, seq, stage, feature, status, reason, detail, recoverable, artifacts, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, seq, res.Stage, string(res.Feature), res.Status.String(), res.Reason, res.Detail,
		res.Recoverable, strings.Join(res.Artifacts, "\n"), formatTime(res.Started), res.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("recording stage %s of run %s: %w", res.Stage, runID, err)
	}
	return nil
}

// EndRun implements pipeline.RunLog.
func (s *Store) EndRun(ctx context.Context, out *pipeline.Outcome) error {
	summary := ""
	if out.Report != nil {
		summary = out.Report.Summary()
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET state = ?, failed_stage = ?, commit_hash = ?, summary = ?, finished_at = ?
		WHERE run_id = ?
	`, out.State.String(), out.FailedStage, out.CommitHash, summary, formatTime(out.Finished), out.RunID)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", out.RunID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", out.RunID, err)
	}
	if n == 0 {
		return fmt.Errorf("finishing run %s: %w", out.RunID, ErrRunNotFound)
	}
	return nil
}

// timeLayout is fixed width so timestamps sort correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
