//go:build integration

package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/repoforge/repoforge/internal/codegen"
	"github.com/repoforge/repoforge/internal/llm"
	"github.com/repoforge/repoforge/internal/project"
	"github.com/repoforge/repoforge/internal/standards"
)

// testEnv holds paths to isolated test directories.
type testEnv struct {
	HomeDir      string // HOME, so user settings land in a sandbox
	StandardsDir string // directory standards source
	ParentDir    string // where projects are generated
	HistoryPath  string
}

// setupTestEnv creates isolated temp directories and writes a complete
// standards corpus.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		HomeDir:      t.TempDir(),
		StandardsDir: t.TempDir(),
		ParentDir:    t.TempDir(),
	}
	env.HistoryPath = filepath.Join(env.HomeDir, ".repoforge", "history.db")
	t.Setenv("HOME", env.HomeDir)

	for _, name := range standards.DefaultDocuments {
		writeFile(t, filepath.Join(env.StandardsDir, name+".md"),
			"# "+name+"\n\nFollow the "+name+" guidance.\n")
	}
	return env
}

// scriptedModel is an llm.Provider that answers each stage with files a
// well-behaved model would return for a TypeScript API. Stages listed in
// fail get a non-transient error instead.
type scriptedModel struct {
	fail map[string]bool
}

func (m scriptedModel) Model() string { return "scripted" }

func (m scriptedModel) Complete(_ context.Context, req llm.Request) (string, error) {
	_, rest, _ := strings.Cut(req.Prompt, "## Stage\n")
	stage, _, _ := strings.Cut(rest, "\n")
	if m.fail[stage] {
		return "", llm.NewError(llm.ErrorTypeBadRequest, "refused "+stage)
	}

	files := map[string]string{}
	switch {
	case stage == "generate-core-code":
		files["src/index.ts"] = "export const start = () => 'ok';\n"
	case strings.HasPrefix(stage, "generate-feature-code/"):
		slug := strings.TrimPrefix(stage, "generate-feature-code/")
		files["src/features/"+slug+"/index.ts"] = "export const enabled = true;\n"
	case stage == "setup-workflows":
		files[".github/workflows/ci.yml"] = "name: ci\non: [push]\n"
	case stage == "implement-security":
		files["src/security/audit.ts"] = "// COMPLIANCE: SOC2 CC6.1\nexport const audit = true;\n"
	case stage == "generate-tests":
		files["tests/index.test.ts"] = "test('start', () => {});\n"
	case stage == "generate-documentation":
		files["README.md"] = "# shop-api\n"
	}
	order := make([]string, 0, len(files))
	for path := range files {
		order = append(order, path)
	}
	return codegen.FormatFiles(files, order...), nil
}

func shopConfig() *project.Config {
	cfg := &project.Config{
		Name:      "shop-api",
		Type:      project.TypeAPI,
		Language:  project.LanguageTypeScript,
		Framework: "fastify",
		Features:  []project.Feature{project.FeatureAuthentication, project.FeaturePayments, project.FeatureSearch},
		Security:  project.SecurityConfig{Controls: []string{"CC6.1"}},
		Compliance: project.ComplianceConfig{
			Frameworks: []string{"SOC2"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// --- Assertion helpers ---

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected file to exist: %s", path)
	}
	if info.IsDir() {
		t.Fatalf("expected file but got directory: %s", path)
	}
}

func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected path to not exist: %s", path)
	}
}
