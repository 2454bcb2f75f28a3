// Package metrics records pipeline and codegen activity in Prometheus
// collectors. A CLI run has no scrape endpoint, so the collected values are
// exported to a node-exporter textfile when a path is configured.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/repoforge/repoforge/internal/llm"
)

// Recorder owns a private registry so repeated construction in tests never
// collides with the global one.
type Recorder struct {
	registry       *prometheus.Registry
	stagesTotal    *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	attemptsTotal  *prometheus.CounterVec
	attemptLatency *prometheus.HistogramVec
	runsTotal      *prometheus.CounterVec
}

// NewRecorder creates a recorder with all collectors registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		stagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repoforge_stage_results_total",
				Help: "Pipeline stage outcomes by stage and status",
			},
			[]string{"stage", "status"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "repoforge_stage_duration_seconds",
				Help:    "Wall time spent in each pipeline stage",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"stage"},
		),
		attemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repoforge_codegen_attempts_total",
				Help: "Generation service calls by stage and error type",
			},
			[]string{"stage", "error_type"},
		),
		attemptLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "repoforge_codegen_attempt_duration_seconds",
				Help:    "Latency of individual generation service calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repoforge_runs_total",
				Help: "Pipeline runs by final state",
			},
			[]string{"state"},
		),
	}
}

// ObserveStage records one finished stage. Feature sub-stages are folded
// into their parent stage name to keep label cardinality fixed.
func (r *Recorder) ObserveStage(stage, status string, d time.Duration) {
	r.stagesTotal.WithLabelValues(stage, status).Inc()
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveAttempt records one provider call. A nil err is labelled "none".
func (r *Recorder) ObserveAttempt(stage string, _ int, err error, d time.Duration) {
	errorType := "none"
	if err != nil {
		errorType = llm.TypeOf(err).String()
	}
	r.attemptsTotal.WithLabelValues(stage, errorType).Inc()
	r.attemptLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRun records the final state of a run.
func (r *Recorder) ObserveRun(state string) {
	r.runsTotal.WithLabelValues(state).Inc()
}

// Registry exposes the underlying registry for tests and exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes every collected metric in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
