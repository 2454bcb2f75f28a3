// Package pipeline sequences the generation stages of a run.
//
// Stages run strictly one after another in a fixed order. The only
// concurrency is inside generate-feature-code, where features are generated
// by a small worker pool and joined before the next stage starts. A stage
// never terminates the run itself: it reports a StageResult and the
// Orchestrator alone decides whether to continue. Nothing after validate
// runs unless the validation report passes, so a project that fails any
// check is never committed.
package pipeline
