// Package standards loads the engineering standards corpus (security,
// compliance, testing, documentation, coding guidance) that generation
// stages quote into their prompts. Documents are opaque text; the package
// only maps names to content and hands out bounded excerpts.
package standards
