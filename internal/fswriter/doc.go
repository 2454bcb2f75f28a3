// Package fswriter applies generated artifacts to a project directory. Writes
// are idempotent (existing files are overwritten), atomic per file, and
// confined to the project's base directory.
package fswriter
