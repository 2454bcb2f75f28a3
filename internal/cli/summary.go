package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/repoforge/repoforge/internal/pipeline"
	"github.com/repoforge/repoforge/internal/validate"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func mark(ok bool) string {
	if ok {
		return okStyle.Render("✓")
	}
	return failStyle.Render("✗")
}

// progress prints stage lifecycle lines as the run advances. Feature
// sub-stages report from worker goroutines.
type progress struct {
	mu sync.Mutex
	w  io.Writer
}

func newProgress(w io.Writer) *progress {
	return &progress{w: w}
}

func (p *progress) StageStarted(_, stage string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "  %s %s\n", dimStyle.Render("→"), stage)
}

func (p *progress) StageFinished(_ string, res pipeline.StageResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if res.Succeeded() {
		fmt.Fprintf(p.w, "  %s %s %s\n", mark(true), res.Stage, dimStyle.Render(res.Duration.Round(time.Millisecond).String()))
		return
	}
	fmt.Fprintf(p.w, "  %s %s: %s\n", mark(false), res.Stage, res.Reason)
}

// renderOutcome prints every stage outcome, the failed features, and the
// validation report.
func renderOutcome(w io.Writer, out *pipeline.Outcome) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Stages"))
	for _, res := range out.Results {
		line := fmt.Sprintf("  %s %-40s %s", mark(res.Succeeded()), res.Stage, res.Status)
		if !res.Succeeded() {
			kind := "fatal"
			if res.Recoverable {
				kind = "recoverable"
			}
			line += fmt.Sprintf(" (%s, %s): %s", res.Reason, kind, firstLine(res.Detail))
		}
		fmt.Fprintln(w, line)
	}

	if failed := out.FailedFeatures(); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, f := range failed {
			names[i] = string(f)
		}
		fmt.Fprintf(w, "\n%s %s\n", warnStyle.Render("Failed features:"), strings.Join(names, ", "))
	}

	if out.Report != nil {
		fmt.Fprintln(w)
		renderReport(w, out.Report)
	}

	fmt.Fprintln(w)
	switch {
	case out.Completed():
		fmt.Fprintf(w, "%s %s generated in %s (commit %s)\n",
			okStyle.Render("Done."), out.Config.Name, out.ProjectDir, shortHash(out.CommitHash))
	case out.Cancelled:
		fmt.Fprintf(w, "%s cancelled at %s; partial project left in %s\n",
			failStyle.Render("Aborted:"), out.FailedStage, out.ProjectDir)
	default:
		fmt.Fprintf(w, "%s failed at %s; partial project left in %s\n",
			failStyle.Render("Aborted:"), out.FailedStage, out.ProjectDir)
	}
}

func renderReport(w io.Writer, report *validate.Report) {
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render("Validation"), dimStyle.Render(report.Summary()))
	for _, c := range report.Checks {
		line := fmt.Sprintf("  %s %-14s", mark(c.Passed), c.Name)
		if c.Detail != "" {
			line += " " + c.Detail
		}
		fmt.Fprintln(w, line)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
