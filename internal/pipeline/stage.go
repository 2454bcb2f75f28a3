package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/repoforge/repoforge/internal/codegen"
	"github.com/repoforge/repoforge/internal/fswriter"
	"github.com/repoforge/repoforge/internal/project"
	"github.com/repoforge/repoforge/internal/standards"
	"github.com/repoforge/repoforge/internal/validate"
)

// Stage names, in execution order.
const (
	StageLoadStandards   = "load-standards"
	StageCreateStructure = "create-structure"
	StageCoreCode        = "generate-core-code"
	StageFeatureCode     = "generate-feature-code"
	StageWorkflows       = "setup-workflows"
	StageSecurity        = "implement-security"
	StageTests           = "generate-tests"
	StageDocumentation   = "generate-documentation"
	StageValidate        = "validate"
	StageFinalize        = "finalize"
)

// FeatureStageName returns the sub-stage name for f, e.g.
// "generate-feature-code/authentication".
func FeatureStageName(f project.Feature) string {
	return StageFeatureCode + "/" + f.Slug()
}

// RunContext is the state shared by the stages of one run. It replaces
// process-wide singletons: everything a stage reads or produces travels
// through it and its lifetime ends with the run.
type RunContext struct {
	RunID      string
	Config     *project.Config // read-only
	ProjectDir string
	Writer     *fswriter.Writer
	Generator  codegen.Generator
	Logger     *zap.Logger

	// ExcerptChars is the per-document standards budget for prompts.
	ExcerptChars int

	// Standards is set by load-standards and read-only afterwards.
	Standards *standards.Cache
	// Report is set by validate.
	Report *validate.Report
	// CommitHash is set by finalize.
	CommitHash string
}

// Stage is one unit of the pipeline.
type Stage interface {
	Name() string
	// Precondition reports whether the stage may start.
	Precondition(rc *RunContext) error
	// Execute performs the stage and returns the paths it wrote.
	Execute(ctx context.Context, rc *RunContext) ([]string, error)
	// Postcondition checks the stage's effect after a successful Execute.
	Postcondition(rc *RunContext, artifacts []string) error
}

// stageError carries a reason code through a stage's error return.
type stageError struct {
	reason string
	err    error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

func failWith(reason string, format string, args ...any) error {
	return &stageError{reason: reason, err: fmt.Errorf(format, args...)}
}

func requireStandards(rc *RunContext) error {
	if rc.Standards == nil {
		return failWith(ReasonPrecondition, "standards are not loaded")
	}
	return nil
}
