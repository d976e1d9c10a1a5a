// Package jobs runs stage-generation work in the background.
//
// Enqueue persists a job row in the queued state, hands the caller the
// job id for polling, and pushes the id onto a bounded dispatch channel
// drained by the Runner's worker pool. Within one job the status
// transitions are totally ordered (queued, running, then completed or
// failed, with terminal states write-once); across jobs no ordering is
// guaranteed, even for the same session. Any cross-job sequencing must
// come from the session stage gate, never from this queue.
//
// There is no retry, no cancellation, and no timeout: a handler that
// never returns leaves its job in running forever, and a failed job
// stays failed until an external decision-maker enqueues new work. If
// the process dies after the row is written but before the dispatch is
// consumed, the job is orphaned in queued; no re-dispatch-on-restart
// mechanism exists.
package jobs
