package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/repoforge/repoforge/internal/pipeline"
	"github.com/repoforge/repoforge/internal/project"
	"github.com/repoforge/repoforge/internal/validate"
)

func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected output to contain %q, got:\n%s", substr, s)
	}
}

func abortedOutcome() *pipeline.Outcome {
	cfg := &project.Config{Name: "demo-api"}
	return &pipeline.Outcome{
		RunID:       "run-1",
		State:       pipeline.StateAborted,
		ProjectDir:  "/tmp/demo-api",
		Config:      cfg,
		FailedStage: pipeline.StageValidate,
		Results: []pipeline.StageResult{
			{Stage: pipeline.StageCoreCode, Status: pipeline.StatusSucceeded, Duration: time.Second},
			{
				Stage:       "generate-feature-code/database",
				Feature:     project.FeatureDatabase,
				Status:      pipeline.StatusFailed,
				Reason:      "non-transient",
				Detail:      "llm error (bad_request): rejected\nmore detail",
				Recoverable: true,
			},
			{Stage: pipeline.StageValidate, Status: pipeline.StatusFailed, Reason: pipeline.ReasonValidationFailed},
		},
		Report: &validate.Report{Checks: []validate.Check{
			{Name: validate.CheckStructure, Passed: true},
			{Name: validate.CheckSecurity, Passed: false, Detail: "no COMPLIANCE marker for NIST"},
		}},
	}
}

func TestRenderOutcome_Aborted(t *testing.T) {
	var buf bytes.Buffer
	renderOutcome(&buf, abortedOutcome())
	out := buf.String()

	assertContains(t, out, "generate-feature-code/database")
	assertContains(t, out, "(non-transient, recoverable): llm error (bad_request): rejected")
	assertContains(t, out, "Failed features: Database")
	assertContains(t, out, "1/2 checks passed (failed: security)")
	assertContains(t, out, "no COMPLIANCE marker for NIST")
	assertContains(t, out, "failed at validate")
	if strings.Contains(out, "more detail") {
		t.Error("only the first line of a failure detail is shown")
	}
}

func TestRenderOutcome_Completed(t *testing.T) {
	out := abortedOutcome()
	out.State = pipeline.StateCompleted
	out.FailedStage = ""
	out.Results = out.Results[:1]
	out.Report.Checks[1].Passed = true
	out.CommitHash = "0123456789abcdef0123456789abcdef01234567"

	var buf bytes.Buffer
	renderOutcome(&buf, out)
	assertContains(t, buf.String(), "demo-api generated in /tmp/demo-api (commit 0123456789ab)")
}

func TestConfigFromFlags(t *testing.T) {
	t.Cleanup(func() {
		initType, initLanguage, initFramework = "", "", ""
		initFeatures, initCompliance, initControls = nil, nil, nil
		initCI = ""
	})
	initType = "api"
	initLanguage = "typescript"
	initFramework = "express"
	initFeatures = []string{"database", "Authentication"}
	initCompliance = []string{"NIST"}
	initCI = "none"

	cfg, err := configFromFlags("demo-api")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Features) != 2 || cfg.Features[0] != project.FeatureDatabase {
		t.Errorf("expected features in flag order, got %v", cfg.Features)
	}
	if cfg.Security.Authentication != "none" {
		t.Errorf("expected default authentication, got %q", cfg.Security.Authentication)
	}

	initFramework = "django"
	if _, err := configFromFlags("demo-api"); !errors.Is(err, project.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for incompatible framework, got %v", err)
	}
	if _, err := configFromFlags(""); !errors.Is(err, project.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig without a name, got %v", err)
	}
}

func TestRedact(t *testing.T) {
	if got := redact("sk-abcdef1234"); got != "*********1234" {
		t.Errorf("unexpected redaction %q", got)
	}
	if got := redact("abc"); got != "***" {
		t.Errorf("unexpected redaction %q", got)
	}
}

func TestVersionCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	buildVersion = "1.2.3"
	t.Cleanup(func() { versionShort = false })

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"version", "--short"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "1.2.3" {
		t.Errorf("expected 1.2.3, got %q", buf.String())
	}
}

func TestValidateCommand_NotAProject(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	rootCmd.SetArgs([]string{"validate", t.TempDir()})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "is not a generated project") {
		t.Fatalf("expected not-a-project error, got %v", err)
	}
}
