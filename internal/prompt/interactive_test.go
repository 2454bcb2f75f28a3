package prompt

import (
	"bytes"
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/repoforge/repoforge/internal/project"
)

func TestRun_DemoAPI(t *testing.T) {
	// name (default), api, typescript, express, Authentication+Database,
	// jwt, rbac, NIST, two controls, github-actions.
	input := "\n2\n1\n2\n1, 2\n2\n2\n1\nAC-2 AU-2\n1\n"
	var out bytes.Buffer

	cfg, err := New(strings.NewReader(input), &out).Run("demo-api")
	if err != nil {
		t.Fatalf("unexpected error: %v\noutput:\n%s", err, out.String())
	}

	if cfg.Name != "demo-api" {
		t.Errorf("expected name demo-api, got %q", cfg.Name)
	}
	if cfg.Type != project.TypeAPI || cfg.Language != project.LanguageTypeScript {
		t.Errorf("expected typescript api, got %s %s", cfg.Language, cfg.Type)
	}
	if cfg.Framework != "express" {
		t.Errorf("expected express, got %q", cfg.Framework)
	}
	wantFeatures := []project.Feature{project.FeatureAuthentication, project.FeatureDatabase}
	if !slices.Equal(cfg.Features, wantFeatures) {
		t.Errorf("expected features %v, got %v", wantFeatures, cfg.Features)
	}
	if cfg.Security.Authentication != "jwt" || cfg.Security.Authorization != "rbac" {
		t.Errorf("unexpected security %+v", cfg.Security)
	}
	if !slices.Equal(cfg.Compliance.Frameworks, []string{"NIST"}) {
		t.Errorf("expected NIST, got %v", cfg.Compliance.Frameworks)
	}
	if !slices.Equal(cfg.Security.Controls, []string{"AC-2", "AU-2"}) {
		t.Errorf("expected controls AC-2 AU-2, got %v", cfg.Security.Controls)
	}
	if cfg.Deployment.CI != project.CIGitHubActions {
		t.Errorf("expected github-actions, got %q", cfg.Deployment.CI)
	}
	if cfg.Version != project.CurrentVersion {
		t.Errorf("expected defaults applied, version %q", cfg.Version)
	}
	if !strings.Contains(out.String(), "  2) express") {
		t.Errorf("framework menu not shown:\n%s", out.String())
	}
}

func TestRun_FeatureOrderFollowsInput(t *testing.T) {
	// library projects have no framework menu.
	input := "lib-x\n5\n4\n3,1,3\n1\n1\n\n4\n"
	cfg, err := New(strings.NewReader(input), &bytes.Buffer{}).Run("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []project.Feature{project.FeatureCaching, project.FeatureAuthentication}
	if !slices.Equal(cfg.Features, want) {
		t.Errorf("expected %v, got %v", want, cfg.Features)
	}
	if cfg.Framework != "" {
		t.Errorf("expected no framework, got %q", cfg.Framework)
	}
	if cfg.HasCompliance() {
		t.Errorf("expected no compliance, got %v", cfg.Compliance.Frameworks)
	}
	if cfg.Deployment.CI != project.CINone {
		t.Errorf("expected none, got %q", cfg.Deployment.CI)
	}
}

func TestRun_InvalidName(t *testing.T) {
	_, err := New(strings.NewReader("Bad Name\n"), &bytes.Buffer{}).Run("")
	if !errors.Is(err, project.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestRun_OutOfRangeSelection(t *testing.T) {
	_, err := New(strings.NewReader("demo\n9\n"), &bytes.Buffer{}).Run("")
	if err == nil || !strings.Contains(err.Error(), "choose 1-6") {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestRun_TruncatedInput(t *testing.T) {
	_, err := New(strings.NewReader("demo\n2\n"), &bytes.Buffer{}).Run("")
	if err == nil {
		t.Fatal("expected an error when input ends early")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" 1, 2 ,,3  4")
	want := []string{"1", "2", "3", "4"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if len(splitList("   ")) != 0 {
		t.Error("blank input should select nothing")
	}
}

func TestIsInteractive_RegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if IsInteractive(f) {
		t.Error("a regular file is not a terminal")
	}
}
