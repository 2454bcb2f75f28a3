package scaffold

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"github.com/repoforge/repoforge/internal/branding"
	"github.com/repoforge/repoforge/internal/fswriter"
	"github.com/repoforge/repoforge/internal/project"
)

// Dependency is one entry in the rendered dependency manifest.
type Dependency struct {
	Group   string // Maven group id, empty elsewhere
	Name    string
	Version string // version or, for Python, a version specifier
}

// Data holds all template variables available to scaffold templates.
type Data struct {
	Name         string // e.g., "demo-api"
	Description  string // Human-readable description
	Version      string // Initial project version
	Language     string
	Framework    string
	ModulePath   string // Go module path
	JavaGroup    string // Maven group id
	IndentSize   int
	IgnoreRules  []string
	Dependencies []Dependency
}

// Result holds the outcome of rendering a skeleton.
type Result struct {
	Entries  []fswriter.Entry
	Warnings []string
}

// Directories every generated project starts with.
var baseDirs = []string{"src", "tests", "docs"}

// NewData derives template variables from cfg.
func NewData(cfg *project.Config) *Data {
	d := &Data{
		Name:         cfg.Name,
		Version:      "0.1.0",
		Language:     string(cfg.Language),
		Framework:    cfg.Framework,
		ModulePath:   "example.com/" + cfg.Name,
		JavaGroup:    "com.example." + strings.ReplaceAll(cfg.Name, "-", ""),
		IndentSize:   2,
		IgnoreRules:  ignoreRules(cfg.Language),
		Dependencies: frameworkDependencies(cfg.Language, cfg.Framework),
	}

	d.Description = fmt.Sprintf("%s %s generated by %s", cfg.Language, cfg.Type, branding.DisplayName())
	if cfg.Framework != "" {
		d.Description = fmt.Sprintf("%s %s (%s) generated by %s", cfg.Language, cfg.Type, cfg.Framework, branding.DisplayName())
	}
	switch cfg.Language {
	case project.LanguagePython, project.LanguageJava, project.LanguageRust:
		d.IndentSize = 4
	}
	return d
}

// Render produces the skeleton for cfg. The result depends only on cfg, so
// rendering the same config twice yields identical entries.
func Render(cfg *project.Config) (*Result, error) {
	data := NewData(cfg)
	result := &Result{}

	for _, dir := range baseDirs {
		result.Entries = append(result.Entries, fswriter.Dir(dir))
	}
	// Keep the empty directories under version control.
	result.Entries = append(result.Entries,
		fswriter.File("tests/.gitkeep", ""),
		fswriter.File("docs/.gitkeep", ""),
	)
	if cfg.Deployment.CI == project.CIGitHubActions {
		result.Entries = append(result.Entries, fswriter.Dir(".github/workflows"))
	}

	for _, set := range []string{"common", string(cfg.Language)} {
		entries, err := renderSet(set, data)
		if err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, entries...)
	}

	cfgData, err := cfg.Marshal()
	if err != nil {
		return nil, err
	}
	// The persisted config must load back cleanly; a config that does not is
	// reported rather than fatal since the in-memory copy already validated.
	if _, err := project.Parse(cfgData); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("persisted config does not reload: %v", err))
	}
	result.Entries = append(result.Entries, fswriter.File(project.ConfigRelPath(), string(cfgData)))

	return result, nil
}

// Generate renders the skeleton for cfg and writes it through w. It returns
// the written paths.
func Generate(cfg *project.Config, w *fswriter.Writer) ([]string, *Result, error) {
	result, err := Render(cfg)
	if err != nil {
		return nil, nil, err
	}
	written, err := w.WriteTree(result.Entries)
	if err != nil {
		return nil, result, fmt.Errorf("writing project skeleton: %w", err)
	}
	return written, result, nil
}

// renderSet executes every template in templates/<set>. A missing set is
// not an error: not every language ships extra files.
func renderSet(set string, data *Data) ([]fswriter.Entry, error) {
	templatesDir := path.Join("templates", set)

	entries, err := fs.ReadDir(scaffoldFS, templatesDir)
	if err != nil {
		if set == "common" {
			return nil, fmt.Errorf("template set %q not found: %w", set, err)
		}
		return nil, nil
	}

	var out []fswriter.Entry
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		tmplPath := path.Join(templatesDir, entry.Name())
		tmplBytes, err := fs.ReadFile(scaffoldFS, tmplPath)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", tmplPath, err)
		}

		// Strip .tmpl extension for the output filename.
		outName := strings.TrimSuffix(entry.Name(), ".tmpl")

		tmpl, err := template.New(entry.Name()).Option("missingkey=error").Parse(string(tmplBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", tmplPath, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("executing template %s: %w", tmplPath, err)
		}
		content := buf.String()
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		out = append(out, fswriter.File(outName, content))
	}
	return out, nil
}

func ignoreRules(lang project.Language) []string {
	switch lang {
	case project.LanguageTypeScript, project.LanguageJavaScript:
		return []string{"node_modules/", "dist/", "coverage/"}
	case project.LanguagePython:
		return []string{"__pycache__/", "*.pyc", ".venv/", ".pytest_cache/"}
	case project.LanguageGo:
		return []string{"/bin/", "*.test", "coverage.out"}
	case project.LanguageJava:
		return []string{"target/", "build/", ".gradle/"}
	case project.LanguageRust:
		return []string{"target/"}
	default:
		return nil
	}
}

// frameworkTable pins the manifest entry for each framework.
var frameworkTable = map[project.Language]map[string][]Dependency{
	project.LanguageTypeScript: {
		"express":      {{Name: "express", Version: "^4.21.0"}, {Name: "@types/express", Version: "^4.17.21"}},
		"fastify":      {{Name: "fastify", Version: "^4.28.0"}},
		"nestjs":       {{Name: "@nestjs/core", Version: "^10.3.0"}, {Name: "@nestjs/common", Version: "^10.3.0"}},
		"react":        {{Name: "react", Version: "^18.3.1"}, {Name: "react-dom", Version: "^18.3.1"}},
		"nextjs":       {{Name: "next", Version: "^14.2.0"}, {Name: "react", Version: "^18.3.1"}},
		"vue":          {{Name: "vue", Version: "^3.4.0"}},
		"angular":      {{Name: "@angular/core", Version: "^18.0.0"}},
		"commander":    {{Name: "commander", Version: "^12.1.0"}},
		"oclif":        {{Name: "@oclif/core", Version: "^4.0.0"}},
		"react-native": {{Name: "react-native", Version: "^0.74.0"}},
		"ionic":        {{Name: "@ionic/core", Version: "^8.2.0"}},
	},
	project.LanguageJavaScript: {
		"express":      {{Name: "express", Version: "^4.21.0"}},
		"fastify":      {{Name: "fastify", Version: "^4.28.0"}},
		"koa":          {{Name: "koa", Version: "^2.15.0"}},
		"react":        {{Name: "react", Version: "^18.3.1"}, {Name: "react-dom", Version: "^18.3.1"}},
		"vue":          {{Name: "vue", Version: "^3.4.0"}},
		"svelte":       {{Name: "svelte", Version: "^4.2.0"}},
		"commander":    {{Name: "commander", Version: "^12.1.0"}},
		"yargs":        {{Name: "yargs", Version: "^17.7.2"}},
		"react-native": {{Name: "react-native", Version: "^0.74.0"}},
	},
	project.LanguagePython: {
		"django":  {{Name: "django", Version: ">=5.0"}},
		"flask":   {{Name: "flask", Version: ">=3.0"}},
		"fastapi": {{Name: "fastapi", Version: ">=0.111"}, {Name: "uvicorn", Version: ">=0.30"}},
		"click":   {{Name: "click", Version: ">=8.1"}},
		"typer":   {{Name: "typer", Version: ">=0.12"}},
	},
	project.LanguageGo: {
		"gin":        {{Name: "github.com/gin-gonic/gin", Version: "v1.10.0"}},
		"echo":       {{Name: "github.com/labstack/echo/v4", Version: "v4.12.0"}},
		"chi":        {{Name: "github.com/go-chi/chi/v5", Version: "v5.1.0"}},
		"grpc":       {{Name: "google.golang.org/grpc", Version: "v1.65.0"}},
		"cobra":      {{Name: "github.com/spf13/cobra", Version: "v1.8.1"}},
		"urfave-cli": {{Name: "github.com/urfave/cli/v2", Version: "v2.27.2"}},
	},
	project.LanguageJava: {
		"spring-boot": {{Group: "org.springframework.boot", Name: "spring-boot-starter-web", Version: "3.3.1"}},
		"quarkus":     {{Group: "io.quarkus", Name: "quarkus-rest", Version: "3.12.0"}},
		"micronaut":   {{Group: "io.micronaut", Name: "micronaut-http-server-netty", Version: "4.5.0"}},
		"picocli":     {{Group: "info.picocli", Name: "picocli", Version: "4.7.6"}},
	},
	project.LanguageRust: {
		"axum":      {{Name: "axum", Version: "0.7"}, {Name: "tokio", Version: "1"}},
		"actix-web": {{Name: "actix-web", Version: "4"}},
		"rocket":    {{Name: "rocket", Version: "0.5"}},
		"clap":      {{Name: "clap", Version: "4"}},
		"tonic":     {{Name: "tonic", Version: "0.12"}, {Name: "tokio", Version: "1"}},
	},
}

func frameworkDependencies(lang project.Language, framework string) []Dependency {
	return frameworkTable[lang][framework]
}
