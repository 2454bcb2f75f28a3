package project

import "slices"

// CurrentVersion is the config file format version written by this build.
const CurrentVersion = "1.0.0"

// Type is the kind of project being generated.
type Type string

const (
	TypeWeb          Type = "web"
	TypeAPI          Type = "api"
	TypeCLI          Type = "cli"
	TypeMicroservice Type = "microservice"
	TypeLibrary      Type = "library"
	TypeMobile       Type = "mobile"
)

// Types lists every supported project type in display order.
var Types = []Type{TypeWeb, TypeAPI, TypeCLI, TypeMicroservice, TypeLibrary, TypeMobile}

// Language is the primary implementation language of the generated project.
type Language string

const (
	LanguageTypeScript Language = "typescript"
	LanguageJavaScript Language = "javascript"
	LanguagePython     Language = "python"
	LanguageGo         Language = "go"
	LanguageJava       Language = "java"
	LanguageRust       Language = "rust"
)

// Languages lists every supported language in display order.
var Languages = []Language{
	LanguageTypeScript, LanguageJavaScript, LanguagePython,
	LanguageGo, LanguageJava, LanguageRust,
}

// CI systems understood by the workflow stage and the structure check.
const (
	CIGitHubActions = "github-actions"
	CIGitLab        = "gitlab-ci"
	CIJenkins       = "jenkins"
	CINone          = "none"
)

// CISystems lists every supported CI system.
var CISystems = []string{CIGitHubActions, CIGitLab, CIJenkins, CINone}

// AuthModes lists the supported authentication modes.
var AuthModes = []string{"none", "jwt", "oauth2", "session", "api-key"}

// AuthzModels lists the supported authorization models.
var AuthzModels = []string{"none", "rbac", "abac"}

// ComplianceFrameworks lists the compliance frameworks the generator knows
// how to annotate.
var ComplianceFrameworks = []string{"NIST", "SOC2", "HIPAA", "PCI-DSS", "GDPR", "ISO27001"}

// Config describes the project to generate. It is built once, validated
// before any stage runs, and then only read.
type Config struct {
	Version    string           `yaml:"version" json:"version"`
	Name       string           `yaml:"name" json:"name"`
	Type       Type             `yaml:"type" json:"type"`
	Language   Language         `yaml:"language" json:"language"`
	Framework  string           `yaml:"framework,omitempty" json:"framework,omitempty"`
	Features   []Feature        `yaml:"features,omitempty" json:"features,omitempty"`
	Security   SecurityConfig   `yaml:"security" json:"security"`
	Compliance ComplianceConfig `yaml:"compliance" json:"compliance"`
	Deployment DeploymentConfig `yaml:"deployment" json:"deployment"`
}

// SecurityConfig captures the security posture requested for the project.
type SecurityConfig struct {
	Authentication string   `yaml:"authentication" json:"authentication"`
	Authorization  string   `yaml:"authorization" json:"authorization"`
	Encryption     bool     `yaml:"encryption" json:"encryption"`
	RateLimiting   bool     `yaml:"rate_limiting" json:"rate_limiting"`
	Monitoring     bool     `yaml:"monitoring" json:"monitoring"`
	Controls       []string `yaml:"controls,omitempty" json:"controls,omitempty"`
}

// ComplianceConfig lists the compliance frameworks the project must address.
type ComplianceConfig struct {
	Frameworks           []string `yaml:"frameworks,omitempty" json:"frameworks,omitempty"`
	GenerateReports      bool     `yaml:"generate_reports" json:"generate_reports"`
	ContinuousMonitoring bool     `yaml:"continuous_monitoring" json:"continuous_monitoring"`
}

// DeploymentConfig names the deployment, CI and monitoring targets.
type DeploymentConfig struct {
	Platform   string `yaml:"platform,omitempty" json:"platform,omitempty"`
	CI         string `yaml:"ci" json:"ci"`
	Monitoring string `yaml:"monitoring,omitempty" json:"monitoring,omitempty"`
}

// Clone returns a deep copy so the orchestrator can hand stages a value
// nothing outside the run can mutate.
func (c *Config) Clone() *Config {
	out := *c
	out.Features = slices.Clone(c.Features)
	out.Security.Controls = slices.Clone(c.Security.Controls)
	out.Compliance.Frameworks = slices.Clone(c.Compliance.Frameworks)
	return &out
}

// HasCompliance reports whether any compliance framework was declared.
func (c *Config) HasCompliance() bool {
	return len(c.Compliance.Frameworks) > 0
}

// ApplyDefaults fills optional fields that have a well-defined default.
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	if c.Security.Authentication == "" {
		c.Security.Authentication = "none"
	}
	if c.Security.Authorization == "" {
		c.Security.Authorization = "none"
	}
	if c.Deployment.CI == "" {
		c.Deployment.CI = CIGitHubActions
	}
}
