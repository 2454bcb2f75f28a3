package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/repoforge/repoforge/internal/codegen"
	"github.com/repoforge/repoforge/internal/fswriter"
	"github.com/repoforge/repoforge/internal/project"
	"github.com/repoforge/repoforge/internal/scaffold"
	"github.com/repoforge/repoforge/internal/standards"
	"github.com/repoforge/repoforge/internal/validate"
)

// reservedDirs may never be written by generated output.
var reservedDirs = []string{".git", ".repoforge"}

// loadStandardsStage fills the run's standards cache.
type loadStandardsStage struct {
	source standards.Source
	docs   []string
}

func (s *loadStandardsStage) Name() string { return StageLoadStandards }

func (s *loadStandardsStage) Precondition(*RunContext) error {
	if s.source == nil {
		return failWith(ReasonPrecondition, "no standards source configured")
	}
	return nil
}

func (s *loadStandardsStage) Execute(ctx context.Context, rc *RunContext) ([]string, error) {
	cache, err := standards.Load(ctx, s.source, s.docs)
	if err != nil {
		return nil, &stageError{reason: ReasonStandards, err: err}
	}
	rc.Standards = cache
	return nil, nil
}

func (s *loadStandardsStage) Postcondition(rc *RunContext, _ []string) error {
	for _, name := range s.docs {
		if _, ok := rc.Standards.Get(name); !ok {
			return failWith(ReasonPostcondition, "standards document %q missing after load", name)
		}
	}
	return nil
}

// structureStage writes the deterministic project skeleton.
type structureStage struct{}

func (structureStage) Name() string { return StageCreateStructure }

func (structureStage) Precondition(*RunContext) error { return nil }

func (structureStage) Execute(_ context.Context, rc *RunContext) ([]string, error) {
	written, result, err := scaffold.Generate(rc.Config, rc.Writer)
	if err != nil {
		return written, err
	}
	for _, w := range result.Warnings {
		rc.Logger.Warn("scaffold warning", zap.String("stage", StageCreateStructure), zap.String("detail", w))
	}
	return written, nil
}

func (structureStage) Postcondition(rc *RunContext, artifacts []string) error {
	return artifactsExist(rc, artifacts)
}

// aiStage asks the generator for a set of files and writes them.
type aiStage struct {
	name string
	// docs are the standards documents excerpted into the prompt.
	docs         []string
	instructions func(cfg *project.Config) string
	// scope lists the paths the stage may write: a name ending in "/"
	// admits everything below it, anything else admits exactly that file.
	// A nil scope admits any path outside the reserved directories.
	scope func(cfg *project.Config) []string
	// skip, when it returns true, makes the stage a successful no-op.
	skip func(cfg *project.Config) bool
	// require lists paths that must be among the written artifacts.
	require func(cfg *project.Config) []string
}

func (s *aiStage) Name() string { return s.name }

func (s *aiStage) Precondition(rc *RunContext) error {
	if rc.Generator == nil {
		return failWith(ReasonPrecondition, "no generator configured")
	}
	return requireStandards(rc)
}

func (s *aiStage) Execute(ctx context.Context, rc *RunContext) ([]string, error) {
	if s.skip != nil && s.skip(rc.Config) {
		return nil, nil
	}

	var scope []string
	if s.scope != nil {
		scope = s.scope(rc.Config)
	}

	pc, err := codegen.NewPromptContext(s.name, s.instructions(rc.Config), rc.Config, rc.Standards, s.docs, rc.ExcerptChars)
	if err != nil {
		return nil, &stageError{reason: ReasonStandards, err: err}
	}
	pc.AllowedPaths = scope

	text, err := rc.Generator.Generate(ctx, pc)
	if err != nil {
		return nil, err
	}
	entries, err := codegen.ParseFiles(text)
	if err != nil {
		return nil, &stageError{reason: codegen.ReasonInvalidShape, err: err}
	}
	if err := checkScope(rc.Writer, entries, scope); err != nil {
		return nil, err
	}
	return rc.Writer.WriteTree(entries)
}

func (s *aiStage) Postcondition(rc *RunContext, artifacts []string) error {
	if s.skip != nil && s.skip(rc.Config) {
		return nil
	}
	if s.require != nil {
		for _, want := range s.require(rc.Config) {
			if !slices.Contains(artifacts, want) {
				return failWith(ReasonPostcondition, "expected %s to be generated", want)
			}
		}
	}
	return artifactsExist(rc, artifacts)
}

// checkScope rejects entries that escape the project (reported as path
// traversal) and entries outside scope. Nothing is written when any entry is
// rejected.
func checkScope(w *fswriter.Writer, entries []fswriter.Entry, scope []string) error {
	for _, e := range entries {
		if _, err := w.Resolve(e.Path); err != nil {
			if errors.Is(err, fswriter.ErrPathTraversal) {
				return &stageError{reason: ReasonPathTraversal, err: err}
			}
			return err
		}
		clean := path.Clean(filepath.ToSlash(e.Path))
		if inAny(clean, reservedDirs) {
			return failWith(ReasonOutOfScope, "%s is in a reserved directory", e.Path)
		}
		if scope != nil && !inScope(clean, scope) {
			return failWith(ReasonOutOfScope, "%s is outside %s", e.Path, strings.Join(scope, ", "))
		}
	}
	return nil
}

func inScope(p string, scope []string) bool {
	for _, s := range scope {
		if strings.HasSuffix(s, "/") {
			if strings.HasPrefix(p, s) {
				return true
			}
		} else if p == s {
			return true
		}
	}
	return false
}

func inAny(p string, dirs []string) bool {
	for _, d := range dirs {
		if p == d || strings.HasPrefix(p, d+"/") {
			return true
		}
	}
	return false
}

func artifactsExist(rc *RunContext, artifacts []string) error {
	for _, a := range artifacts {
		if _, err := os.Stat(filepath.Join(rc.ProjectDir, filepath.FromSlash(a))); err != nil {
			return failWith(ReasonPostcondition, "artifact %s missing after write: %v", a, err)
		}
	}
	return nil
}

// validateStage runs the validator and stores the report.
type validateStage struct {
	validator Validator
}

func (s *validateStage) Name() string { return StageValidate }

func (s *validateStage) Precondition(*RunContext) error {
	if s.validator == nil {
		return failWith(ReasonPrecondition, "no validator configured")
	}
	return nil
}

func (s *validateStage) Execute(_ context.Context, rc *RunContext) ([]string, error) {
	report, err := s.validator.Validate(rc.ProjectDir, rc.Config)
	if err != nil {
		return nil, err
	}
	rc.Report = report
	if !report.Passed() {
		return nil, failWith(ReasonValidationFailed, "%s", report.Summary())
	}
	return nil, nil
}

func (s *validateStage) Postcondition(*RunContext, []string) error { return nil }

// finalizeStage commits the project. It refuses to run without a passing
// report even if the orchestrator were to call it.
type finalizeStage struct {
	finalizer Finalizer
}

func (s *finalizeStage) Name() string { return StageFinalize }

func (s *finalizeStage) Precondition(rc *RunContext) error {
	if s.finalizer == nil {
		return failWith(ReasonPrecondition, "no finalizer configured")
	}
	if !rc.Report.Passed() {
		return failWith(ReasonPrecondition, "validation report has not passed")
	}
	return nil
}

func (s *finalizeStage) Execute(ctx context.Context, rc *RunContext) ([]string, error) {
	hash, err := s.finalizer.Finalize(ctx, rc.ProjectDir, rc.Config, rc.Report)
	if err != nil {
		return nil, err
	}
	rc.CommitHash = hash
	return nil, nil
}

func (s *finalizeStage) Postcondition(rc *RunContext, _ []string) error {
	if rc.CommitHash == "" {
		return failWith(ReasonPostcondition, "finalizer returned no commit")
	}
	return nil
}

// ciScope returns the paths setup-workflows may write for the configured CI
// system.
func ciScope(cfg *project.Config) []string {
	loc, dir, ok := validate.CILocation(cfg.Deployment.CI)
	if !ok {
		return []string{}
	}
	if dir {
		return []string{loc + "/"}
	}
	return []string{loc}
}

// generationStages returns the AI stages that run after the feature loop.
func generationStages() []Stage {
	return []Stage{
		&aiStage{
			name:         StageWorkflows,
			docs:         []string{standards.DocWorkflows},
			instructions: workflowInstructions,
			scope:        ciScope,
			skip:         func(cfg *project.Config) bool { return cfg.Deployment.CI == project.CINone },
			require: func(cfg *project.Config) []string {
				if loc, dir, ok := validate.CILocation(cfg.Deployment.CI); ok && !dir {
					return []string{loc}
				}
				return nil
			},
		},
		&aiStage{
			name:         StageSecurity,
			docs:         []string{standards.DocSecurity, standards.DocCompliance},
			instructions: securityInstructions,
			scope:        func(*project.Config) []string { return []string{"src/", "docs/"} },
		},
		&aiStage{
			name:         StageTests,
			docs:         []string{standards.DocTesting},
			instructions: testInstructions,
			scope:        func(*project.Config) []string { return []string{"tests/"} },
		},
		&aiStage{
			name:         StageDocumentation,
			docs:         []string{standards.DocDocumentation},
			instructions: documentationInstructions,
			scope: func(*project.Config) []string {
				return []string{"README.md", "CONTRIBUTING.md", "SECURITY.md", "CHANGELOG.md", "docs/"}
			},
			require: func(*project.Config) []string { return []string{"README.md"} },
		},
	}
}

func coreStage() Stage {
	return &aiStage{
		name:         StageCoreCode,
		docs:         []string{standards.DocCoding},
		instructions: coreInstructions,
	}
}

func describe(cfg *project.Config) string {
	desc := fmt.Sprintf("a %s %s project named %q", cfg.Language, cfg.Type, cfg.Name)
	if cfg.Framework != "" {
		desc += " using " + cfg.Framework
	}
	return desc
}
