package project

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrInvalidConfig marks user-input errors. A config that fails validation
// never reaches the pipeline.
var ErrInvalidConfig = errors.New("invalid project config")

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// supportedVersions is the range of config file versions this build reads.
var supportedVersions = func() *semver.Constraints {
	c, err := semver.NewConstraint("^1.0.0")
	if err != nil {
		panic(err)
	}
	return c
}()

// ValidationIssue is a single problem found in a config.
type ValidationIssue struct {
	Field   string
	Message string
}

// ValidationError collects every issue found in one config.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.Field != "" {
			parts = append(parts, issue.Field+": "+issue.Message)
		} else {
			parts = append(parts, issue.Message)
		}
	}
	return fmt.Sprintf("%s: %s", ErrInvalidConfig, strings.Join(parts, "; "))
}

// Unwrap lets callers match ErrInvalidConfig with errors.Is.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfig }

// ValidateName checks a project name against the allowed pattern.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: invalid name %q: must match pattern [a-z0-9][a-z0-9-]*", ErrInvalidConfig, name)
	}
	return nil
}

// Validate checks every field of c and returns a *ValidationError listing
// all problems, or nil.
func (c *Config) Validate() error {
	var issues []ValidationIssue
	add := func(field, format string, args ...any) {
		issues = append(issues, ValidationIssue{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if err := checkVersion(c.Version); err != nil {
		add("version", "%v", err)
	}

	if c.Name == "" {
		add("name", "must not be empty")
	} else if !namePattern.MatchString(c.Name) {
		add("name", "%q must contain only lowercase letters, digits and hyphens", c.Name)
	}

	if !slices.Contains(Types, c.Type) {
		add("type", "unsupported project type %q", c.Type)
	}
	if !slices.Contains(Languages, c.Language) {
		add("language", "unsupported language %q", c.Language)
	}
	if slices.Contains(Types, c.Type) && slices.Contains(Languages, c.Language) &&
		!FrameworkCompatible(c.Language, c.Type, c.Framework) {
		add("framework", "%q is not compatible with %s %s projects (supported: %s)",
			c.Framework, c.Language, c.Type, strings.Join(Frameworks(c.Language, c.Type), ", "))
	}

	seen := make(map[Feature]bool, len(c.Features))
	for i, f := range c.Features {
		if !f.Known() {
			add(fmt.Sprintf("features[%d]", i), "unknown feature %q", f)
			continue
		}
		if seen[f] {
			add(fmt.Sprintf("features[%d]", i), "duplicate feature %q", f)
		}
		seen[f] = true
	}

	if !slices.Contains(AuthModes, c.Security.Authentication) {
		add("security.authentication", "unsupported mode %q", c.Security.Authentication)
	}
	if !slices.Contains(AuthzModels, c.Security.Authorization) {
		add("security.authorization", "unsupported model %q", c.Security.Authorization)
	}
	for i, ctrl := range c.Security.Controls {
		if strings.TrimSpace(ctrl) == "" {
			add(fmt.Sprintf("security.controls[%d]", i), "must not be empty")
		}
	}

	frameworks := make(map[string]bool, len(c.Compliance.Frameworks))
	for i, fw := range c.Compliance.Frameworks {
		if !slices.Contains(ComplianceFrameworks, fw) {
			add(fmt.Sprintf("compliance.frameworks[%d]", i), "unsupported framework %q", fw)
		}
		if frameworks[fw] {
			add(fmt.Sprintf("compliance.frameworks[%d]", i), "duplicate framework %q", fw)
		}
		frameworks[fw] = true
	}

	if !slices.Contains(CISystems, c.Deployment.CI) {
		add("deployment.ci", "unsupported CI system %q", c.Deployment.CI)
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// checkVersion accepts any 1.x config file version.
func checkVersion(v string) error {
	if v == "" {
		return fmt.Errorf("must not be empty")
	}
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%q is not a semantic version: %w", v, err)
	}
	if !supportedVersions.Check(parsed) {
		return fmt.Errorf("version %s is not supported by this build (want %s)", v, supportedVersions)
	}
	return nil
}
