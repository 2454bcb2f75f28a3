package validate

import (
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/repoforge/repoforge/internal/project"
)

// markerPattern matches a compliance marker such as
// "COMPLIANCE: NIST AC-2, AU-6". Group 1 is the framework, group 2 the
// optional control ids that follow it on the same line.
var markerPattern = regexp.MustCompile(`COMPLIANCE:[ \t]*([A-Za-z0-9][A-Za-z0-9-]*)([^\r\n]*)`)

// marker is one compliance annotation found in a source file.
type marker struct {
	File      string
	Framework string
	Controls  []string
}

// Validator runs the fixed battery of checks.
type Validator struct {
	secrets SecretDetector
}

// Option customizes a Validator.
type Option func(*Validator)

// WithSecretDetector replaces the default gitleaks detector.
func WithSecretDetector(d SecretDetector) Option {
	return func(v *Validator) { v.secrets = d }
}

// New returns a validator using the gitleaks default rule set for the
// secrets check.
func New(opts ...Option) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	if v.secrets == nil {
		v.secrets = NewGitleaksDetector()
	}
	return v
}

// Validate checks the project at projectPath against cfg. The returned
// error is reserved for an unreadable project directory; check failures are
// reported in the Report.
func (v *Validator) Validate(projectPath string, cfg *project.Config) (*Report, error) {
	snap, err := takeSnapshot(projectPath)
	if err != nil {
		return nil, err
	}

	checks := []struct {
		name string
		run  func(*snapshot, *project.Config) (bool, string)
	}{
		{CheckStructure, checkStructure},
		{CheckDependencies, checkDependencies},
		{CheckSecurity, checkSecurity},
		{CheckTests, checkTests},
		{CheckDocumentation, checkDocumentation},
		{CheckSecrets, v.checkSecrets},
	}

	report := &Report{Checks: make([]Check, 0, len(checks))}
	for _, c := range checks {
		passed, detail := c.run(snap, cfg)
		report.Checks = append(report.Checks, Check{Name: c.name, Passed: passed, Detail: detail})
	}
	return report, nil
}

// CILocation returns the path the structure check requires for ci and
// whether it must be a directory. ok is false when nothing is required.
func CILocation(ci string) (loc string, dir bool, ok bool) {
	switch ci {
	case project.CIGitHubActions:
		return ".github/workflows", true, true
	case project.CIGitLab:
		return ".gitlab-ci.yml", false, true
	case project.CIJenkins:
		return "Jenkinsfile", false, true
	default:
		return "", false, false
	}
}

func checkStructure(s *snapshot, cfg *project.Config) (bool, string) {
	var missing []string
	if !s.isFile("README.md") {
		missing = append(missing, "README.md")
	}
	if !s.isDir("tests") {
		missing = append(missing, "tests/")
	}
	if loc, dir, ok := CILocation(cfg.Deployment.CI); ok {
		if dir && !s.isDir(loc) {
			missing = append(missing, loc+"/")
		} else if !dir && !s.isFile(loc) {
			missing = append(missing, loc)
		}
	}
	if len(missing) > 0 {
		return false, "missing " + strings.Join(missing, ", ")
	}
	return true, ""
}

func checkDependencies(s *snapshot, cfg *project.Config) (bool, string) {
	manifests := project.DependencyManifests(cfg.Language)
	for _, m := range manifests {
		if s.isFile(m) {
			return true, m
		}
	}
	return false, fmt.Sprintf("no %s dependency manifest (want one of %s)", cfg.Language, strings.Join(manifests, ", "))
}

// checkSecurity requires, for every declared compliance framework, a marker
// naming it in a source file under src/, and requires every declared
// control id to be named by at least one marker.
func checkSecurity(s *snapshot, cfg *project.Config) (bool, string) {
	if !cfg.HasCompliance() {
		return true, "no compliance frameworks declared"
	}

	markers, err := findMarkers(s, cfg.Language)
	if err != nil {
		return false, err.Error()
	}

	var problems []string
	for _, fw := range cfg.Compliance.Frameworks {
		if !slices.ContainsFunc(markers, func(m marker) bool { return strings.EqualFold(m.Framework, fw) }) {
			problems = append(problems, fmt.Sprintf("no COMPLIANCE: %s marker under src/", fw))
		}
	}
	for _, ctrl := range cfg.Security.Controls {
		if !slices.ContainsFunc(markers, func(m marker) bool {
			return slices.ContainsFunc(m.Controls, func(c string) bool { return strings.EqualFold(c, ctrl) })
		}) {
			problems = append(problems, fmt.Sprintf("control %s not referenced by any marker", ctrl))
		}
	}
	if len(problems) > 0 {
		return false, strings.Join(problems, "; ")
	}
	return true, fmt.Sprintf("%d marker(s) found", len(markers))
}

// findMarkers returns every compliance marker in lang's source files under
// src/, in path order.
func findMarkers(s *snapshot, lang project.Language) ([]marker, error) {
	exts := project.SourceExtensions(lang)
	var markers []marker
	for _, rel := range s.under("src") {
		if !slices.Contains(exts, path.Ext(rel)) {
			continue
		}
		text, ok, err := s.readText(rel)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		if !ok {
			continue
		}
		for _, m := range markerPattern.FindAllStringSubmatch(text, -1) {
			markers = append(markers, marker{
				File:      rel,
				Framework: m[1],
				Controls:  controlIDs(m[2]),
			})
		}
	}
	return markers, nil
}

// controlIDs splits the text after a marker's framework into ids, dropping
// separators, trailing punctuation and comment terminators.
func controlIDs(rest string) []string {
	fields := strings.FieldsFunc(rest, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == ';'
	})
	var ids []string
	for _, f := range fields {
		if f == "*/" || f == "-->" || f == "#}" {
			break
		}
		if id := strings.TrimRight(f, ".:;)"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func checkTests(s *snapshot, _ *project.Config) (bool, string) {
	if !s.isDir("tests") {
		return false, "tests/ does not exist"
	}
	n := 0
	for _, rel := range s.under("tests") {
		if !strings.HasPrefix(path.Base(rel), ".") {
			n++
		}
	}
	if n == 0 {
		return false, "tests/ is empty"
	}
	return true, fmt.Sprintf("%d file(s)", n)
}

func checkDocumentation(s *snapshot, _ *project.Config) (bool, string) {
	fi, ok := s.files["README.md"]
	switch {
	case !ok || fi.dir:
		return false, "README.md does not exist"
	case fi.size == 0:
		return false, "README.md is empty"
	default:
		return true, ""
	}
}

func (v *Validator) checkSecrets(s *snapshot, _ *project.Config) (bool, string) {
	var leaks []string
	for _, rel := range s.regularFiles() {
		text, ok, err := s.readText(rel)
		if err != nil {
			return false, fmt.Sprintf("reading %s: %v", rel, err)
		}
		if !ok || text == "" {
			continue
		}
		findings, err := v.secrets.Detect(text)
		if err != nil {
			return false, fmt.Sprintf("scanning %s: %v", rel, err)
		}
		for _, f := range findings {
			leaks = append(leaks, fmt.Sprintf("%s:%d %s", rel, f.Line, f.RuleID))
		}
	}
	if len(leaks) == 0 {
		return true, ""
	}
	const shown = 5
	detail := strings.Join(leaks[:min(len(leaks), shown)], ", ")
	if len(leaks) > shown {
		detail += fmt.Sprintf(" and %d more", len(leaks)-shown)
	}
	return false, "possible secrets: " + detail
}
