package validate

import (
	"fmt"
	"strings"
)

// Check names, in the order they appear in a Report.
const (
	CheckStructure     = "structure"
	CheckDependencies  = "dependencies"
	CheckSecurity      = "security"
	CheckTests         = "tests"
	CheckDocumentation = "documentation"
	CheckSecrets       = "secrets"
)

// Check is the outcome of a single predicate.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Report is the full result of one validation pass.
type Report struct {
	Checks []Check `json:"checks"`
}

// Passed reports overall pass: true iff every check passed. An empty report
// never passes.
func (r *Report) Passed() bool {
	if r == nil || len(r.Checks) == 0 {
		return false
	}
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed returns the checks that did not pass.
func (r *Report) Failed() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// Get returns the named check.
func (r *Report) Get(name string) (Check, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

// Summary renders a one-line description such as "4/6 checks passed
// (failed: security, secrets)".
func (r *Report) Summary() string {
	failed := r.Failed()
	passed := len(r.Checks) - len(failed)
	if len(failed) == 0 {
		return fmt.Sprintf("%d/%d checks passed", passed, len(r.Checks))
	}
	names := make([]string, len(failed))
	for i, c := range failed {
		names[i] = c.Name
	}
	return fmt.Sprintf("%d/%d checks passed (failed: %s)", passed, len(r.Checks), strings.Join(names, ", "))
}
