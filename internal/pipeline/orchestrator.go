package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/repoforge/repoforge/internal/codegen"
	"github.com/repoforge/repoforge/internal/fswriter"
	"github.com/repoforge/repoforge/internal/project"
	"github.com/repoforge/repoforge/internal/standards"
	"github.com/repoforge/repoforge/internal/validate"
)

// DefaultFeatureWorkers caps concurrent feature generation.
const DefaultFeatureWorkers = 2

// Validator checks a written project.
type Validator interface {
	Validate(projectPath string, cfg *project.Config) (*validate.Report, error)
}

// Finalizer commits a validated project and returns the commit hash.
type Finalizer interface {
	Finalize(ctx context.Context, dir string, cfg *project.Config, report *validate.Report) (string, error)
}

// Observer receives stage lifecycle events. Feature sub-stages run on
// worker goroutines, so implementations must be safe for concurrent use.
type Observer interface {
	StageStarted(runID, stage string)
	StageFinished(runID string, result StageResult)
}

// RunLog persists the ordered StageResult log of each run. Recording
// failures are logged and never affect the run.
type RunLog interface {
	BeginRun(ctx context.Context, runID, projectDir string, cfg *project.Config, started time.Time) error
	RecordStage(ctx context.Context, runID string, seq int, result StageResult) error
	EndRun(ctx context.Context, outcome *Outcome) error
}

// Metrics receives stage and run counters.
type Metrics interface {
	ObserveStage(stage, status string, d time.Duration)
	ObserveRun(state string)
}

// Deps are the collaborators of an Orchestrator. Standards, Generator,
// Validator and Finalizer are required; the rest are optional.
type Deps struct {
	Standards     standards.Source
	StandardsDocs []string // defaults to standards.DefaultDocuments
	Generator     codegen.Generator
	Validator     Validator
	Finalizer     Finalizer

	Observer Observer
	RunLog   RunLog
	Metrics  Metrics
	Logger   *zap.Logger

	FeatureWorkers int
	ExcerptChars   int
}

// Orchestrator runs the fixed stage sequence.
type Orchestrator struct {
	deps Deps
}

// New returns an orchestrator with defaults applied to deps.
func New(deps Deps) *Orchestrator {
	if len(deps.StandardsDocs) == 0 {
		deps.StandardsDocs = standards.DefaultDocuments
	}
	if deps.FeatureWorkers <= 0 {
		deps.FeatureWorkers = DefaultFeatureWorkers
	}
	if deps.ExcerptChars <= 0 {
		deps.ExcerptChars = codegen.DefaultExcerptChars
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Orchestrator{deps: deps}
}

// Run generates the project described by cfg into projectDir. A config that
// fails validation is rejected with an error before any stage runs; every
// other failure is reported through the returned Outcome, and the directory
// is left in place for inspection.
func (o *Orchestrator) Run(ctx context.Context, cfg *project.Config, projectDir string) (*Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, err := fswriter.New(projectDir)
	if err != nil {
		return nil, err
	}

	r := &run{
		o: o,
		rc: &RunContext{
			RunID:        uuid.NewString(),
			Config:       cfg.Clone(),
			ProjectDir:   w.Base(),
			Writer:       w,
			Generator:    o.deps.Generator,
			ExcerptChars: o.deps.ExcerptChars,
		},
	}
	r.rc.Logger = o.deps.Logger.With(zap.String("run_id", r.rc.RunID))
	r.outcome = &Outcome{
		RunID:      r.rc.RunID,
		State:      StateInProgress,
		ProjectDir: w.Base(),
		Config:     r.rc.Config,
		Started:    time.Now(),
	}

	if o.deps.RunLog != nil {
		if err := o.deps.RunLog.BeginRun(context.WithoutCancel(ctx), r.rc.RunID, w.Base(), r.rc.Config, r.outcome.Started); err != nil {
			r.rc.Logger.Warn("recording run start", zap.Error(err))
		}
	}

	r.execute(ctx)
	return r.finish(ctx), nil
}

// run holds the mutable state of one Run call.
type run struct {
	o       *Orchestrator
	rc      *RunContext
	outcome *Outcome
}

func (r *run) execute(ctx context.Context) {
	d := r.o.deps
	before := []Stage{
		&loadStandardsStage{source: d.Standards, docs: d.StandardsDocs},
		structureStage{},
		coreStage(),
	}
	for _, s := range before {
		if !r.step(ctx, s) {
			return
		}
	}

	if !r.features(ctx) {
		return
	}

	for _, s := range generationStages() {
		if !r.step(ctx, s) {
			return
		}
	}

	if !r.step(ctx, &validateStage{validator: d.Validator}) {
		return
	}
	// Gate: nothing after validate runs without an overall pass.
	if !r.rc.Report.Passed() {
		r.abort(StageValidate)
		return
	}

	r.step(ctx, &finalizeStage{finalizer: d.Finalizer})
}

// step runs one fatal stage. It returns false when the run must stop.
func (r *run) step(ctx context.Context, s Stage) bool {
	if ctx.Err() != nil {
		r.outcome.Cancelled = true
		r.abort(s.Name())
		return false
	}

	res := r.runStage(ctx, s, "")
	r.record(ctx, res)
	if res.Succeeded() {
		return true
	}
	if ctx.Err() != nil {
		r.outcome.Cancelled = true
	}
	r.abort(res.Stage)
	return false
}

// features runs one recoverable sub-stage per selected feature with bounded
// parallelism and waits for all of them. Results are recorded in selection
// order. It returns false when the run must stop.
func (r *run) features(ctx context.Context) bool {
	feats := r.rc.Config.Features
	if len(feats) == 0 {
		return true
	}
	results := make([]StageResult, len(feats))

	var g errgroup.Group
	g.SetLimit(r.o.deps.FeatureWorkers)
	for i, f := range feats {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = StageResult{
					Stage:   FeatureStageName(f),
					Feature: f,
					Status:  StatusFailed,
					Reason:  ReasonCancelled,
					Detail:  "run cancelled before the feature started",
					Started: time.Now(),
				}
				return nil
			}
			results[i] = r.runStage(ctx, featureStage(f), f)
			return nil
		})
	}
	_ = g.Wait() // join barrier; workers never return errors

	fatal := ""
	for _, res := range results {
		r.record(ctx, res)
		if !res.Succeeded() && !res.Recoverable && fatal == "" {
			fatal = res.Stage
		}
	}
	if ctx.Err() != nil {
		r.outcome.Cancelled = true
		r.abort(StageFeatureCode)
		return false
	}
	if fatal != "" {
		r.abort(fatal)
		return false
	}
	return true
}

// runStage drives one stage through Pending → Running → Succeeded|Failed.
// A panic inside the stage becomes a failed result.
func (r *run) runStage(ctx context.Context, s Stage, feature project.Feature) (res StageResult) {
	res = StageResult{Stage: s.Name(), Feature: feature, Status: StatusPending, Started: time.Now()}
	log := r.rc.Logger.With(zap.String("stage", s.Name()))

	defer func() {
		if p := recover(); p != nil {
			log.Error("stage panicked", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			res.Status = StatusFailed
			res.Reason = ReasonPanic
			res.Detail = fmt.Sprint(p)
			res.Recoverable = feature != ""
			res.Duration = time.Since(res.Started)
		}
		r.finished(res)
	}()

	if err := s.Precondition(r.rc); err != nil {
		res.Duration = time.Since(res.Started)
		return r.fail(res, err, feature)
	}

	res.Status = StatusRunning
	res.Started = time.Now()
	if r.o.deps.Observer != nil {
		r.o.deps.Observer.StageStarted(r.rc.RunID, s.Name())
	}
	log.Debug("stage started")

	artifacts, err := s.Execute(ctx, r.rc)
	res.Artifacts = artifacts
	if err == nil {
		err = s.Postcondition(r.rc, artifacts)
	}
	res.Duration = time.Since(res.Started)
	if err != nil {
		return r.fail(res, err, feature)
	}

	res.Status = StatusSucceeded
	log.Info("stage succeeded", zap.Int("artifacts", len(artifacts)), zap.Duration("duration", res.Duration))
	return res
}

// fail fills in a failed result. Feature failures are recoverable unless
// they tried to write outside the project.
func (r *run) fail(res StageResult, err error, feature project.Feature) StageResult {
	res.Status = StatusFailed
	res.Reason = reasonOf(err)
	res.Detail = err.Error()
	res.Recoverable = feature != "" && res.Reason != ReasonPathTraversal
	if res.Duration == 0 {
		res.Duration = time.Since(res.Started)
	}
	r.rc.Logger.Warn("stage failed",
		zap.String("stage", res.Stage),
		zap.String("reason", res.Reason),
		zap.Bool("recoverable", res.Recoverable),
		zap.Error(err),
	)
	return res
}

func reasonOf(err error) string {
	var se *stageError
	if errors.As(err, &se) {
		return se.reason
	}
	if reason := codegen.ReasonOf(err); reason != "" {
		return reason
	}
	switch {
	case errors.Is(err, fswriter.ErrPathTraversal):
		return ReasonPathTraversal
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCancelled
	case errors.Is(err, standards.ErrMissingDocument):
		return ReasonStandards
	default:
		return ReasonError
	}
}

// finished reports a result to the observer and metrics as soon as it is
// known. The ordered log is written separately by record.
func (r *run) finished(res StageResult) {
	if r.o.deps.Observer != nil {
		r.o.deps.Observer.StageFinished(r.rc.RunID, res)
	}
	if r.o.deps.Metrics != nil {
		label := res.Stage
		if res.IsFeature() {
			label = StageFeatureCode
		}
		r.o.deps.Metrics.ObserveStage(label, res.Status.String(), res.Duration)
	}
}

// record appends res to the run's ordered log.
func (r *run) record(ctx context.Context, res StageResult) {
	r.outcome.Results = append(r.outcome.Results, res)
	if r.o.deps.RunLog == nil {
		return
	}
	seq := len(r.outcome.Results)
	if err := r.o.deps.RunLog.RecordStage(context.WithoutCancel(ctx), r.rc.RunID, seq, res); err != nil {
		r.rc.Logger.Warn("recording stage result", zap.String("stage", res.Stage), zap.Error(err))
	}
}

func (r *run) abort(stage string) {
	r.outcome.State = StateAborted
	if r.outcome.FailedStage == "" {
		r.outcome.FailedStage = stage
	}
}

func (r *run) finish(ctx context.Context) *Outcome {
	out := r.outcome
	out.Report = r.rc.Report
	out.CommitHash = r.rc.CommitHash
	if out.State == StateInProgress {
		out.State = StateCompleted
	}
	out.Finished = time.Now()

	r.rc.Logger.Info("run finished",
		zap.String("state", out.State.String()),
		zap.String("failed_stage", out.FailedStage),
		zap.Duration("duration", out.Finished.Sub(out.Started)),
	)
	if r.o.deps.Metrics != nil {
		r.o.deps.Metrics.ObserveRun(out.State.String())
	}
	if r.o.deps.RunLog != nil {
		if err := r.o.deps.RunLog.EndRun(context.WithoutCancel(ctx), out); err != nil {
			r.rc.Logger.Warn("recording run end", zap.Error(err))
		}
	}
	return out
}
