// Package daemon wires the store, job runner, and HTTP API into a
// single-instance background process. A flock-guarded lock file keeps a
// second daemon from sharing the database.
package daemon
