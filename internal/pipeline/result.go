package pipeline

import (
	"time"

	"github.com/repoforge/repoforge/internal/project"
	"github.com/repoforge/repoforge/internal/validate"
)

// Status is the lifecycle state of one stage.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Reason codes carried by failed StageResults. Codegen failures use the
// codegen.Reason* values.
const (
	ReasonCancelled        = "cancelled"
	ReasonPathTraversal    = "path-traversal"
	ReasonOutOfScope       = "out-of-scope"
	ReasonStandards        = "standards-unavailable"
	ReasonValidationFailed = "validation-failed"
	ReasonPrecondition     = "precondition"
	ReasonPostcondition    = "postcondition"
	ReasonPanic            = "panic"
	ReasonError            = "error"
)

// StageResult is the tagged outcome of one stage: on success the artifacts
// it wrote, on failure why and whether the run may continue.
type StageResult struct {
	Stage       string
	Feature     project.Feature // set for feature sub-stages only
	Status      Status
	Artifacts   []string
	Reason      string
	Detail      string
	Recoverable bool
	Started     time.Time
	Duration    time.Duration
}

// Succeeded reports whether the stage completed.
func (r StageResult) Succeeded() bool { return r.Status == StatusSucceeded }

// IsFeature reports whether r belongs to a feature sub-stage.
func (r StageResult) IsFeature() bool { return r.Feature != "" }

// State is the run-level state.
type State int

const (
	StateInProgress State = iota
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in-progress"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome summarizes a finished run.
type Outcome struct {
	RunID      string
	State      State
	ProjectDir string
	Config     *project.Config
	Results    []StageResult // every stage result, in execution order
	Report     *validate.Report
	// FailedStage names the stage or check that aborted the run.
	FailedStage string
	Cancelled   bool
	CommitHash  string
	Started     time.Time
	Finished    time.Time
}

// Completed reports whether the run reached Completed.
func (o *Outcome) Completed() bool { return o.State == StateCompleted }

// ExitCode maps the outcome to a process exit code.
func (o *Outcome) ExitCode() int {
	if o.Completed() {
		return 0
	}
	return 1
}

// FeatureResults returns the feature sub-stage results in selection order.
func (o *Outcome) FeatureResults() []StageResult {
	var out []StageResult
	for _, r := range o.Results {
		if r.IsFeature() {
			out = append(out, r)
		}
	}
	return out
}

// FailedFeatures returns the features whose sub-stage failed.
func (o *Outcome) FailedFeatures() []project.Feature {
	var out []project.Feature
	for _, r := range o.FeatureResults() {
		if !r.Succeeded() {
			out = append(out, r.Feature)
		}
	}
	return out
}

// Result returns the result recorded for the named stage.
func (o *Outcome) Result(stage string) (StageResult, bool) {
	for _, r := range o.Results {
		if r.Stage == stage {
			return r, true
		}
	}
	return StageResult{}, false
}
