package jobs

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"psfd/internal/config"
	"psfd/internal/logging"
	"psfd/internal/services"
	"psfd/internal/store"
)

// Queue creates job records and dispatches them for background
// execution without blocking the caller on the run itself.
type Queue struct {
	store    *store.Store
	logger   *slog.Logger
	dispatch chan string
}

// NewQueue constructs a queue with a bounded dispatch channel.
func NewQueue(cfg *config.Config, st *store.Store, logger *slog.Logger) *Queue {
	depth := cfg.Jobs.QueueDepth
	if depth < 1 {
		depth = 1
	}
	return &Queue{
		store:    st,
		logger:   logging.NewComponentLogger(logger, "job-queue"),
		dispatch: make(chan string, depth),
	}
}

// Enqueue validates the request, persists a queued job row, and hands
// the id to the worker pool. The id is returned synchronously so the
// caller can poll; the only synchronous failure modes are a bad job
// type, an unknown session, or a persistence fault. Handler failures
// surface through a later status poll, never here.
//
// Each call creates exactly one job record and exactly one dispatch.
// The dispatch is sent only after the row is durably written, so a
// poller reading immediately after Enqueue returns always sees the job.
func (q *Queue) Enqueue(ctx context.Context, sessionID string, jobType Type) (string, error) {
	if !Known(jobType) {
		return "", services.Wrap(services.ErrValidation, "job-queue", "enqueue", "unknown job type "+string(jobType), nil)
	}

	sess, err := q.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "job-queue", "load session", sessionID, err)
	}
	if sess == nil {
		return "", services.Wrap(services.ErrNotFound, "job-queue", "enqueue", "session "+sessionID+" not found", nil)
	}

	jobID := uuid.NewString()
	if _, err := q.store.NewJob(ctx, jobID, sessionID, string(jobType)); err != nil {
		return "", services.Wrap(services.ErrTransient, "job-queue", "persist job", jobID, err)
	}

	select {
	case q.dispatch <- jobID:
		q.logger.Info("job enqueued",
			logging.String(logging.FieldJobID, jobID),
			logging.String(logging.FieldSessionID, sessionID),
			logging.String(logging.FieldJobType, string(jobType)),
		)
	case <-ctx.Done():
		// Shutdown raced the dispatch. The row stays queued with no
		// re-dispatch-on-restart mechanism; the gap is deliberate.
		q.logger.Warn("dispatch abandoned during shutdown; job remains queued",
			logging.String(logging.FieldJobID, jobID),
			logging.String(logging.FieldJobType, string(jobType)),
		)
	}

	return jobID, nil
}

// Dispatches exposes the dispatch channel to the worker pool.
func (q *Queue) Dispatches() <-chan string {
	return q.dispatch
}

// Depth returns the number of dispatched jobs not yet claimed by a
// worker.
func (q *Queue) Depth() int {
	return len(q.dispatch)
}
