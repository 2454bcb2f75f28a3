package codegen

import (
	"fmt"
	"strings"

	"github.com/repoforge/repoforge/internal/project"
	"github.com/repoforge/repoforge/internal/standards"
)

// DefaultExcerptChars is the per-document character budget for standards
// excerpts quoted into a prompt.
const DefaultExcerptChars = 4000

// Excerpt is a bounded slice of one standards document.
type Excerpt struct {
	Name string
	Text string
}

// PromptContext is everything a single generation call sees.
type PromptContext struct {
	Stage        string
	Instructions string
	ConfigYAML   string
	Excerpts     []Excerpt
	AllowedPaths []string
}

// NewPromptContext serializes cfg in full and takes the first budget
// characters of each named standards document.
func NewPromptContext(stage, instructions string, cfg *project.Config, cache *standards.Cache, docs []string, budget int) (PromptContext, error) {
	data, err := cfg.Marshal()
	if err != nil {
		return PromptContext{}, err
	}
	if budget <= 0 {
		budget = DefaultExcerptChars
	}

	pc := PromptContext{
		Stage:        stage,
		Instructions: instructions,
		ConfigYAML:   string(data),
	}
	for _, name := range docs {
		text, err := cache.Excerpt(name, budget)
		if err != nil {
			return PromptContext{}, fmt.Errorf("building prompt for %s: %w", stage, err)
		}
		pc.Excerpts = append(pc.Excerpts, Excerpt{Name: name, Text: text})
	}
	return pc, nil
}

const systemPrompt = `You are a senior software engineer generating production-quality project files.
Follow the engineering standards provided. Never leave placeholders or unfinished stubs.
When a file implements a security or compliance control, annotate it with a comment of the
form "COMPLIANCE: <FRAMEWORK> <CONTROL-ID>" (for example "COMPLIANCE: NIST AC-2").`

// render turns the context into system instructions and a user blob.
func (pc PromptContext) render() (system, user string) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Stage\n%s\n\n", pc.Stage)
	fmt.Fprintf(&sb, "## Task\n%s\n\n", pc.Instructions)
	fmt.Fprintf(&sb, "## Project configuration\n```yaml\n%s```\n\n", pc.ConfigYAML)
	for _, ex := range pc.Excerpts {
		fmt.Fprintf(&sb, "## Standard: %s\n%s\n\n", ex.Name, ex.Text)
	}
	if len(pc.AllowedPaths) > 0 {
		fmt.Fprintf(&sb, "## Output location\nOnly create files under: %s\n\n", strings.Join(pc.AllowedPaths, ", "))
	}
	sb.WriteString("## Output format\n")
	sb.WriteString(FileFormatInstructions)
	sb.WriteByte('\n')
	return systemPrompt, sb.String()
}
