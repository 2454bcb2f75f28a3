package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoConfig = `name: demo-api
type: api
language: typescript
framework: express
features: [Authentication, Database]
compliance:
  frameworks: [NIST]
`

func validConfig() *Config {
	cfg := &Config{
		Name:      "demo-api",
		Type:      TypeAPI,
		Language:  LanguageTypeScript,
		Framework: "express",
		Features:  []Feature{FeatureAuthentication, FeatureDatabase},
		Compliance: ComplianceConfig{
			Frameworks: []string{"NIST"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestParse_Demo(t *testing.T) {
	cfg, err := Parse([]byte(demoConfig))
	require.NoError(t, err)

	assert.Equal(t, "demo-api", cfg.Name)
	assert.Equal(t, TypeAPI, cfg.Type)
	assert.Equal(t, LanguageTypeScript, cfg.Language)
	assert.Equal(t, []Feature{FeatureAuthentication, FeatureDatabase}, cfg.Features)
	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, CIGitHubActions, cfg.Deployment.CI)
	assert.Equal(t, "none", cfg.Security.Authentication)
	assert.True(t, cfg.HasCompliance())
}

func TestParse_FeatureSlugs(t *testing.T) {
	cfg, err := Parse([]byte("name: x\ntype: cli\nlanguage: go\nfeatures: [rate-limiting, logging]\n"))
	require.NoError(t, err)
	assert.Equal(t, []Feature{FeatureRateLimiting, FeatureLogging}, cfg.Features)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"uppercase name", "name: Demo\ntype: api\nlanguage: go\n"},
		{"missing name", "type: api\nlanguage: go\n"},
		{"bad type", "name: x\ntype: desktop\nlanguage: go\n"},
		{"bad language", "name: x\ntype: api\nlanguage: cobol\n"},
		{"incompatible framework", "name: x\ntype: api\nlanguage: python\nframework: express\n"},
		{"unknown feature", "name: x\ntype: api\nlanguage: go\nfeatures: [Teleportation]\n"},
		{"unknown compliance", "name: x\ntype: api\nlanguage: go\ncompliance:\n  frameworks: [FOO]\n"},
		{"unsupported version", "version: 2.0.0\nname: x\ntype: api\nlanguage: go\n"},
		{"unknown field", "name: x\ntype: api\nlanguage: go\ncolour: blue\n"},
		{"not yaml", "name: [unterminated\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "want ErrInvalidConfig, got %v", err)
		})
	}
}

func TestValidate_CollectsAllIssues(t *testing.T) {
	cfg := validConfig()
	cfg.Name = "Bad Name"
	cfg.Features = append(cfg.Features, FeatureDatabase)
	cfg.Deployment.CI = "travis"

	err := cfg.Validate()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	fields := make([]string, 0, len(ve.Issues))
	for _, issue := range ve.Issues {
		fields = append(fields, issue.Field)
	}
	assert.ElementsMatch(t, []string{"name", "features[2]", "deployment.ci"}, fields)
}

func TestValidate_EmptyFrameworkAlwaysCompatible(t *testing.T) {
	cfg := validConfig()
	cfg.Framework = ""
	cfg.Type = TypeLibrary
	assert.NoError(t, cfg.Validate())
}

func TestClone_IsDeep(t *testing.T) {
	cfg := validConfig()
	clone := cfg.Clone()
	clone.Features[0] = FeatureSearch
	clone.Compliance.Frameworks[0] = "SOC2"

	assert.Equal(t, FeatureAuthentication, cfg.Features[0])
	assert.Equal(t, "NIST", cfg.Compliance.Frameworks[0])
}

func TestParseFeature(t *testing.T) {
	f, err := ParseFeature("file-upload")
	require.NoError(t, err)
	assert.Equal(t, FeatureFileUpload, f)

	f, err = ParseFeature("authentication")
	require.NoError(t, err)
	assert.Equal(t, FeatureAuthentication, f)

	_, err = ParseFeature("nope")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestFeatureTableComplete(t *testing.T) {
	slugs := make(map[string]bool)
	for _, f := range AllFeatures {
		require.True(t, f.Known(), "%s missing from table", f)
		spec := f.Spec()
		assert.NotEmpty(t, spec.Instructions, f)
		assert.False(t, slugs[spec.Slug], "duplicate slug %s", spec.Slug)
		slugs[spec.Slug] = true
		assert.NoError(t, ValidateName(spec.Slug))
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := validConfig()
	data, err := cfg.Marshal()
	require.NoError(t, err)

	dir := t.TempDir()
	path := ConfigPath(dir)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestDependencyManifests(t *testing.T) {
	for _, lang := range Languages {
		assert.NotEmpty(t, DependencyManifests(lang), lang)
		assert.NotEmpty(t, SourceExtensions(lang), lang)
	}
}
