package history

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Run is one recorded pipeline run.
type Run struct {
	ID          string    `json:"run_id"`
	ProjectName string    `json:"project_name"`
	ProjectDir  string    `json:"project_dir"`
	ConfigYAML  string    `json:"config_yaml,omitempty"`
	State       string    `json:"state"`
	FailedStage string    `json:"failed_stage,omitempty"`
	CommitHash  string    `json:"commit_hash,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Started     time.Time `json:"started_at"`
	Finished    time.Time `json:"finished_at,omitzero"`
	Stages      []Stage   `json:"stages,omitempty"`
}

// Stage is one recorded stage result.
type Stage struct {
	Seq         int           `json:"seq"`
	Name        string        `json:"stage"`
	Feature     string        `json:"feature,omitempty"`
	Status      string        `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	Detail      string        `json:"detail,omitempty"`
	Recoverable bool          `json:"recoverable,omitempty"`
	Artifacts   []string      `json:"artifacts,omitempty"`
	Started     time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

const runColumns = `run_id, project_name, project_dir, config_yaml, state, failed_stage,
	commit_hash, summary, started_at, COALESCE(finished_at, '')`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r                 Run
		started, finished string
	)
	err := row.Scan(&r.ID, &r.ProjectName, &r.ProjectDir, &r.ConfigYAML, &r.State, &r.FailedStage,
		&r.CommitHash, &r.Summary, &started, &finished)
	if err != nil {
		return nil, err
	}
	r.Started = parseTime(started)
	if finished != "" {
		r.Finished = parseTime(finished)
	}
	return &r, nil
}

// List returns the most recent runs, newest first, without their stages.
// A limit of zero or less returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, run_id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Get returns one run with its stages in recorded order. id may be a
// unique prefix of the run id.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRunNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE run_id = ? OR run_id LIKE ? ESCAPE '\\' ORDER BY run_id LIMIT 2",
		id, escapeLike(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("looking up run %s: %w", id, err)
	}
	var matches []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		matches = append(matches, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("looking up run %s: %w", id, err)
	}

	var run *Run
	for _, m := range matches {
		if m.ID == id {
			run = m
		}
	}
	switch {
	case run != nil:
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(matches) > 1:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	default:
		run = matches[0]
	}

	stages, err := s.stages(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Stages = stages
	return run, nil
}

func (s *Store) stages(ctx context.Context, runID string) ([]Stage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, stage, feature, status, reason, detail, recoverable, artifacts, started_at, duration_ms
		FROM stage_results
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading stages of run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Stage
	for rows.Next() {
		var (
			st        Stage
			artifacts string
			started   string
			ms        int64
		)
		if err := rows.Scan(&st.Seq, &st.Name, &st.Feature, &st.Status, &st.Reason, &st.Detail,
			&st.Recoverable, &artifacts, &started, &ms); err != nil {
			return nil, fmt.Errorf("scanning stage: %w", err)
		}
		if artifacts != "" {
			st.Artifacts = strings.Split(artifacts, "\n")
		}
		st.Started = parseTime(started)
		st.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading stages of run %s: %w", runID, err)
	}
	return out, nil
}

// Prune deletes all but the newest keep runs and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM runs WHERE run_id NOT IN (
			SELECT run_id FROM runs ORDER BY started_at DESC, run_id LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning runs: %w", err)
	}
	return n, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
