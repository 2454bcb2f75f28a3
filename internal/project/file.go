package project

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/repoforge/repoforge/internal/branding"
)

// ConfigFileName is the name of the persisted config inside the project's
// branding directory.
const ConfigFileName = "config.yaml"

// ConfigRelPath returns the project-relative path of the persisted config
// (e.g. ".repoforge/config.yaml").
func ConfigRelPath() string {
	return filepath.ToSlash(filepath.Join(branding.HomeDir(), ConfigFileName))
}

// ConfigPath returns the full path to the persisted config for a project.
func ConfigPath(projectPath string) string {
	return filepath.Join(projectPath, filepath.FromSlash(ConfigRelPath()))
}

// Parse validates raw YAML against the schema, decodes it, applies defaults
// and runs semantic validation.
func Parse(data []byte) (*Config, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: decoding config: %v", ErrInvalidConfig, err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads and parses a config document from path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the persisted config of an existing generated project.
func Load(projectPath string) (*Config, error) {
	return LoadFile(ConfigPath(projectPath))
}

// Marshal renders c as the YAML document persisted alongside the project.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling project config: %w", err)
	}
	return data, nil
}
