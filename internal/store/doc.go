// Package store persists discovery sessions, generation jobs, CVP
// inputs, and derived artifacts in SQLite.
//
// The Store manages the database connection, schema initialization, and
// the single-statement status writes the rest of the system relies on:
// each session-stage or job-status update is one atomic UPDATE keyed by
// id, and terminal job states (completed, failed) are guarded write-once
// at the SQL level so a finished job can never be resurrected.
//
// The database is working storage for in-flight discovery sessions, not
// a long-term archive. Schema changes bump the version in schema.go;
// users delete the database to adopt the new schema.
package store
