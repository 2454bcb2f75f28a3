package pipeline

import (
	"fmt"
	"strings"

	"github.com/repoforge/repoforge/internal/project"
	"github.com/repoforge/repoforge/internal/validate"
)

func coreInstructions(cfg *project.Config) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate the core application code for %s.\n", describe(cfg))
	sb.WriteString("Create the entry point, configuration loading, error handling and the application skeleton under src/. ")
	sb.WriteString("Update the dependency manifest if the code needs additional packages. ")
	sb.WriteString("Do not implement the optional features; they are generated separately under src/features/.\n")
	if cfg.Security.Authentication != "none" {
		fmt.Fprintf(&sb, "Leave an integration point for %s authentication.\n", cfg.Security.Authentication)
	}
	return sb.String()
}

func featureInstructions(f project.Feature) func(cfg *project.Config) string {
	return func(cfg *project.Config) string {
		spec := f.Spec()
		var sb strings.Builder
		fmt.Fprintf(&sb, "Implement the %s feature for %s.\n", f, describe(cfg))
		sb.WriteString(spec.Instructions)
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "Place source files under src/features/%s/ and tests under tests/features/%s/. ", spec.Slug, spec.Slug)
		sb.WriteString("Do not modify files outside these directories.\n")
		if f == project.FeatureAuthentication && cfg.Security.Authentication != "none" {
			fmt.Fprintf(&sb, "Use %s authentication", cfg.Security.Authentication)
			if cfg.Security.Authorization != "none" {
				fmt.Fprintf(&sb, " with %s authorization", strings.ToUpper(cfg.Security.Authorization))
			}
			sb.WriteString(".\n")
		}
		return sb.String()
	}
}

func workflowInstructions(cfg *project.Config) string {
	loc, _, _ := validate.CILocation(cfg.Deployment.CI)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create the %s CI configuration for %s at %s.\n", cfg.Deployment.CI, describe(cfg), loc)
	sb.WriteString("The pipeline must install dependencies, lint, run the test suite and fail on any error.\n")
	if cfg.Deployment.Platform != "" {
		fmt.Fprintf(&sb, "Add a deployment job targeting %s that runs only on the default branch.\n", cfg.Deployment.Platform)
	}
	if cfg.Compliance.ContinuousMonitoring {
		sb.WriteString("Add a scheduled job that runs dependency and secret scanning.\n")
	}
	return sb.String()
}

func securityInstructions(cfg *project.Config) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Implement the security controls for %s under src/security/.\n", describe(cfg))

	var controls []string
	if cfg.Security.Encryption {
		controls = append(controls, "encryption of sensitive data at rest and in transit")
	}
	if cfg.Security.RateLimiting {
		controls = append(controls, "request rate limiting")
	}
	if cfg.Security.Monitoring {
		controls = append(controls, "security event logging and monitoring hooks")
	}
	if cfg.Security.Authorization != "none" {
		controls = append(controls, strings.ToUpper(cfg.Security.Authorization)+" authorization checks")
	}
	controls = append(controls, "input validation", "secure HTTP headers where applicable")
	fmt.Fprintf(&sb, "Cover: %s.\n", strings.Join(controls, "; "))

	if cfg.HasCompliance() {
		fmt.Fprintf(&sb, "The project must satisfy: %s. ", strings.Join(cfg.Compliance.Frameworks, ", "))
		sb.WriteString("Annotate every file implementing a control with a comment of the form ")
		sb.WriteString("\"COMPLIANCE: <FRAMEWORK> <CONTROL-ID>\", one per framework, for example \"COMPLIANCE: ")
		sb.WriteString(cfg.Compliance.Frameworks[0])
		sb.WriteString(" AC-2\".\n")
	}
	if len(cfg.Security.Controls) > 0 {
		fmt.Fprintf(&sb, "Each of these control ids must appear in at least one marker: %s.\n",
			strings.Join(cfg.Security.Controls, ", "))
	}
	if cfg.Compliance.GenerateReports {
		sb.WriteString("Write a control mapping report to docs/compliance.md.\n")
	}
	return sb.String()
}

func testInstructions(cfg *project.Config) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate the test suite for %s under tests/.\n", describe(cfg))
	sb.WriteString("Cover the core application code and the security controls with unit tests, ")
	sb.WriteString("and add one integration test exercising the main entry point.\n")
	return sb.String()
}

func documentationInstructions(cfg *project.Config) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write the documentation for %s.\n", describe(cfg))
	sb.WriteString("README.md must describe the project, prerequisites, setup, configuration, running, testing and deployment. ")
	sb.WriteString("Put deeper guides under docs/.\n")
	if len(cfg.Features) > 0 {
		names := make([]string, len(cfg.Features))
		for i, f := range cfg.Features {
			names[i] = string(f)
		}
		fmt.Fprintf(&sb, "Document these features: %s.\n", strings.Join(names, ", "))
	}
	if cfg.HasCompliance() {
		sb.WriteString("Add SECURITY.md describing the security posture and compliance scope.\n")
	}
	return sb.String()
}
