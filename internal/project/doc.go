// Package project defines the configuration model of a project to generate:
// its type, language, framework, feature set, security and compliance
// requirements, and deployment targets. Configs are parsed from YAML,
// checked against an embedded JSON schema, validated semantically, and
// persisted as .repoforge/config.yaml inside the generated project.
package project
