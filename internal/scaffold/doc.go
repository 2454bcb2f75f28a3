// Package scaffold renders the deterministic project skeleton written by the
// create-structure stage: top-level directories, the language's dependency
// manifest, ignore rules and the persisted project config. Everything past
// the skeleton is produced by the generation stages.
package scaffold
