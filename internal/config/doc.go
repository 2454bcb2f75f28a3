// Package config manages user-level settings stored at ~/.repoforge/config.yaml.
// It provides functions to load, read, and write keys such as the model
// provider, retry policy, and history database location, and resolves them
// into a typed Settings value for the init command.
package config
