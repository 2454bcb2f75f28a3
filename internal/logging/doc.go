// Package logging builds the zap loggers used for diagnostic output.
// User-facing progress and summaries are printed by the CLI, not logged.
package logging
