// Package llm provides thin adapters over the hosted model APIs used for code
// generation, and classifies their failures into transient and non-transient
// error types. Adapters do no retrying of their own; retry and backoff live
// in the codegen package.
package llm
