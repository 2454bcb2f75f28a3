// Package prompt asks the init questionnaire on a terminal using numbered
// menus and turns the answers into a project.Config.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/repoforge/repoforge/internal/project"
)

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Questionnaire reads answers from r and writes menus to w.
type Questionnaire struct {
	reader *bufio.Reader
	w      io.Writer
}

// New returns a questionnaire over r and w.
func New(r io.Reader, w io.Writer) *Questionnaire {
	return &Questionnaire{reader: bufio.NewReader(r), w: w}
}

// Run asks every question and returns a validated config. defaultName is
// offered for the project name when non-empty.
func (q *Questionnaire) Run(defaultName string) (*project.Config, error) {
	cfg := &project.Config{}

	name, err := q.ask("Project name", defaultName)
	if err != nil {
		return nil, err
	}
	if err := project.ValidateName(name); err != nil {
		return nil, err
	}
	cfg.Name = name

	typ, err := selectOne(q, "Select project type:", project.Types)
	if err != nil {
		return nil, err
	}
	cfg.Type = typ

	lang, err := selectOne(q, "Select language:", project.Languages)
	if err != nil {
		return nil, err
	}
	cfg.Language = lang

	if frameworks := project.Frameworks(lang, typ); len(frameworks) > 0 {
		fw, err := selectOne(q, "Select framework:", append([]string{"none"}, frameworks...))
		if err != nil {
			return nil, err
		}
		if fw != "none" {
			cfg.Framework = fw
		}
	}

	cfg.Features, err = selectMany(q, "Select features (comma-separated, blank for none):", project.AllFeatures)
	if err != nil {
		return nil, err
	}

	cfg.Security.Authentication, err = selectOne(q, "Select authentication:", project.AuthModes)
	if err != nil {
		return nil, err
	}
	cfg.Security.Authorization, err = selectOne(q, "Select authorization:", project.AuthzModels)
	if err != nil {
		return nil, err
	}

	cfg.Compliance.Frameworks, err = selectMany(q, "Select compliance frameworks (comma-separated, blank for none):", project.ComplianceFrameworks)
	if err != nil {
		return nil, err
	}
	if cfg.HasCompliance() {
		controls, err := q.ask("Compliance control ids (comma-separated, optional)", "")
		if err != nil {
			return nil, err
		}
		cfg.Security.Controls = splitList(controls)
	}

	cfg.Deployment.CI, err = selectOne(q, "Select CI system:", project.CISystems)
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ask reads a free-text answer, returning def for a blank line.
func (q *Questionnaire) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(q.w, "\n%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(q.w, "\n%s: ", label)
	}
	line, err := q.readLine()
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

func (q *Questionnaire) readLine() (string, error) {
	line, err := q.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (q *Questionnaire) menu(prompt string, items []string) {
	fmt.Fprintf(q.w, "\n%s\n", prompt)
	for i, item := range items {
		fmt.Fprintf(q.w, "  %d) %s\n", i+1, item)
	}
}

// selectOne presents a numbered list and returns the chosen item.
func selectOne[T ~string](q *Questionnaire, prompt string, items []T) (T, error) {
	q.menu(prompt, toStrings(items))
	fmt.Fprintf(q.w, "Enter number [1-%d]: ", len(items))

	line, err := q.readLine()
	if err != nil {
		return "", fmt.Errorf("reading selection: %w", err)
	}
	idx, err := parseChoice(line, len(items))
	if err != nil {
		return "", err
	}
	return items[idx], nil
}

// selectMany presents a numbered list and returns the chosen items in the
// order they were entered. A blank answer selects nothing.
func selectMany[T ~string](q *Questionnaire, prompt string, items []T) ([]T, error) {
	q.menu(prompt, toStrings(items))
	fmt.Fprintf(q.w, "Enter numbers [1-%d]: ", len(items))

	line, err := q.readLine()
	if err != nil {
		return nil, fmt.Errorf("reading selection: %w", err)
	}
	var out []T
	seen := make(map[int]bool)
	for _, field := range splitList(line) {
		idx, err := parseChoice(field, len(items))
		if err != nil {
			return nil, err
		}
		if !seen[idx] {
			seen[idx] = true
			out = append(out, items[idx])
		}
	}
	return out, nil
}

func parseChoice(s string, n int) (int, error) {
	num, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || num < 1 || num > n {
		return 0, fmt.Errorf("invalid selection %q: choose 1-%d", strings.TrimSpace(s), n)
	}
	return num - 1, nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func toStrings[T ~string](items []T) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = string(it)
	}
	return out
}
