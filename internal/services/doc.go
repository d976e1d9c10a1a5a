// Package services defines shared error utilities consumed across the
// session workflow and job pipeline.
//
// Key responsibilities:
//   - Structured error markers (validation, not found, expired, conflict,
//     transient) that callers classify with errors.Is instead of catching
//     a generic throwable.
//   - The Wrap helper that tags a failure with a marker while preserving
//     operation context in the message.
//
// Use these markers when wiring new operations so failure handling stays
// uniform: API handlers map markers to HTTP status codes, and the job
// runner stores marker-tagged messages on failed jobs.
package services
