// Package codegen is the client every generation stage uses to ask the model
// for code. It renders the prompt context (project config plus bounded
// standards excerpts), applies the provider rate limit, retries transient
// failures with exponential backoff, and rejects responses whose shape is
// unusable before they reach the filesystem.
package codegen
