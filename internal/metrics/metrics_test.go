package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repoforge/repoforge/internal/llm"
)

func TestRecorder_Stages(t *testing.T) {
	r := NewRecorder()
	r.ObserveStage("create-structure", "succeeded", 10*time.Millisecond)
	r.ObserveStage("generate-feature-code", "failed", time.Second)
	r.ObserveStage("generate-feature-code", "succeeded", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.stagesTotal.WithLabelValues("generate-feature-code", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stagesTotal.WithLabelValues("create-structure", "succeeded")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.stageDuration))
}

func TestRecorder_Attempts(t *testing.T) {
	r := NewRecorder()
	r.ObserveAttempt("generate-tests", 1, llm.NewError(llm.ErrorTypeRateLimit, "429"), time.Millisecond)
	r.ObserveAttempt("generate-tests", 2, nil, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.attemptsTotal.WithLabelValues("generate-tests", "rate_limit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.attemptsTotal.WithLabelValues("generate-tests", "none")))
}

func TestRecorder_IndependentRegistries(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	a.ObserveRun("completed")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.runsTotal.WithLabelValues("completed")))
	assert.Equal(t, 0, testutil.CollectAndCount(b.runsTotal))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveRun("aborted")

	path := filepath.Join(t.TempDir(), "repoforge.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `repoforge_runs_total{state="aborted"} 1`)
}
