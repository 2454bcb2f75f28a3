package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/repoforge/repoforge/internal/codegen"
	"github.com/repoforge/repoforge/internal/project"
	"github.com/repoforge/repoforge/internal/standards"
	"github.com/repoforge/repoforge/internal/validate"
)

// mapSource serves standards documents from memory.
type mapSource map[string]string

func (m mapSource) Fetch(_ context.Context, name string) (string, error) {
	text, ok := m[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", standards.ErrMissingDocument, name)
	}
	return text, nil
}

func allStandards() mapSource {
	src := mapSource{}
	for _, name := range standards.DefaultDocuments {
		src[name] = "# " + name + " standard\n" + strings.Repeat("Follow the "+name+" rules. ", 50)
	}
	return src
}

// stageFiles is what a well-behaved model returns for each stage of the
// demo project.
func stageFiles(stage string) string {
	one := func(path, content string) string {
		return codegen.FormatFiles(map[string]string{path: content}, path)
	}
	switch {
	case stage == StageCoreCode:
		return codegen.FormatFiles(map[string]string{
			"src/index.ts": "import { app } from './app';\napp.listen(3000);\n",
			"src/app.ts":   "import express from 'express';\nexport const app = express();\n",
		}, "src/index.ts", "src/app.ts")
	case strings.HasPrefix(stage, StageFeatureCode+"/"):
		slug := strings.TrimPrefix(stage, StageFeatureCode+"/")
		src := "src/features/" + slug + "/index.ts"
		test := "tests/features/" + slug + "/" + slug + ".test.ts"
		return codegen.FormatFiles(map[string]string{
			src:  "export const " + strings.ReplaceAll(slug, "-", "_") + " = {};\n",
			test: "test('" + slug + "', () => {});\n",
		}, src, test)
	case stage == StageWorkflows:
		return one(".github/workflows/ci.yml", "name: ci\non: [push]\njobs:\n  test:\n    runs-on: ubuntu-latest\n    steps:\n      - run: npm test\n")
	case stage == StageSecurity:
		return one("src/security/audit.ts", "// COMPLIANCE: NIST AU-2\nexport function audit(event: string): void {\n  console.log(event);\n}\n")
	case stage == StageTests:
		return one("tests/app.test.ts", "import { app } from '../src/app';\ntest('app', () => expect(app).toBeDefined());\n")
	case stage == StageDocumentation:
		return one("README.md", "# demo-api\n\nAn Express API.\n")
	default:
		return "unexpected stage " + stage
	}
}

// fakeGenerator answers each stage from a table, falling back to stageFiles.
type fakeGenerator struct {
	mu        sync.Mutex
	overrides map[string]func(ctx context.Context, pc codegen.PromptContext) (string, error)
	calls     []string
}

func (g *fakeGenerator) Generate(ctx context.Context, pc codegen.PromptContext) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, pc.Stage)
	fn := g.overrides[pc.Stage]
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx, pc)
	}
	return stageFiles(pc.Stage), nil
}

func (g *fakeGenerator) called(stage string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.calls {
		if c == stage {
			return true
		}
	}
	return false
}

// countingFinalizer records calls without touching git.
type countingFinalizer struct {
	mu    sync.Mutex
	calls int
}

func (f *countingFinalizer) Finalize(context.Context, string, *project.Config, *validate.Report) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return "0123456789abcdef0123456789abcdef01234567", nil
}

func (f *countingFinalizer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type noSecrets struct{}

func (noSecrets) Detect(string) ([]validate.Finding, error) { return nil, nil }

// recordingLog is an in-memory RunLog.
type recordingLog struct {
	mu     sync.Mutex
	begun  []string
	seqs   []int
	stages []string
	ended  *Outcome
}

func (l *recordingLog) BeginRun(_ context.Context, runID, _ string, _ *project.Config, _ time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.begun = append(l.begun, runID)
	return nil
}

func (l *recordingLog) RecordStage(_ context.Context, _ string, seq int, res StageResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seqs = append(l.seqs, seq)
	l.stages = append(l.stages, res.Stage)
	return nil
}

func (l *recordingLog) EndRun(_ context.Context, out *Outcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ended = out
	return nil
}

// recordingObserver counts lifecycle events.
type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	finished []string
}

func (o *recordingObserver) StageStarted(_, stage string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, stage)
}

func (o *recordingObserver) StageFinished(_ string, res StageResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = append(o.finished, res.Stage)
}

func demoConfig() *project.Config {
	cfg := &project.Config{
		Name:      "demo-api",
		Type:      project.TypeAPI,
		Language:  project.LanguageTypeScript,
		Framework: "express",
		Features:  []project.Feature{project.FeatureAuthentication, project.FeatureDatabase},
		Compliance: project.ComplianceConfig{
			Frameworks: []string{"NIST"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// testDeps wires fakes everywhere except the validator.
func testDeps(gen codegen.Generator, fin Finalizer) Deps {
	return Deps{
		Standards: allStandards(),
		Generator: gen,
		Validator: validate.New(validate.WithSecretDetector(noSecrets{})),
		Finalizer: fin,
	}
}

func stageNames(results []StageResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Stage
	}
	return out
}

// snapshotTree returns path → content for every file under dir, skipping .git.
func snapshotTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}
		rel, _ := filepath.Rel(dir, path)
		if d.IsDir() {
			out[rel+"/"] = ""
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}
