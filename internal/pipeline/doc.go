// Package pipeline implements the stage-generation handlers.
//
// Each handler reads the session's captured inputs and previously
// generated artifacts, derives the next artifact deterministically, and
// persists it. The result payload stored on the job summarizes what was
// produced; the artifact rows hold the full content. Handlers fail when
// their required upstream material is missing rather than producing an
// empty artifact.
package pipeline
