package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"psfd/internal/config"
	"psfd/internal/logging"
	"psfd/internal/services"
	"psfd/internal/store"
)

// Runner drains the queue's dispatch channel with a fixed pool of
// workers and drives each job through its lifecycle.
type Runner struct {
	store    *store.Store
	registry *Registry
	queue    *Queue
	logger   *slog.Logger
	workers  int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner constructs a runner over the given queue and handler
// registry.
func NewRunner(cfg *config.Config, st *store.Store, registry *Registry, queue *Queue, logger *slog.Logger) *Runner {
	workers := cfg.Jobs.Workers
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		store:    st,
		registry: registry,
		queue:    queue,
		logger:   logging.NewComponentLogger(logger, "job-runner"),
		workers:  workers,
	}
}

// Start launches the worker pool. It returns an error if the runner is
// already running.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("job runner already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.runWorker(runCtx, i)
	}

	r.logger.Info("job runner started", logging.Int("workers", r.workers))
	return nil
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
	r.logger.Info("job runner stopped")
}

func (r *Runner) runWorker(ctx context.Context, id int) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-r.queue.Dispatches():
			if err := r.ProcessJob(ctx, jobID); err != nil {
				r.logger.Error("job processing failed",
					logging.String(logging.FieldJobID, jobID),
					logging.Int("worker", id),
					logging.Error(err),
				)
			}
		}
	}
}

// ProcessJob executes a single dispatched job. Handler faults are
// recorded on the job row and do not surface as an error here; only
// store faults do.
func (r *Runner) ProcessJob(ctx context.Context, jobID string) error {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "job-runner", "load job", jobID, err)
	}
	if job == nil {
		r.logger.Warn("dispatched job missing", logging.String(logging.FieldJobID, jobID))
		return nil
	}
	if job.Status.Terminal() {
		// Stale dispatch; the row already reached a terminal state.
		return nil
	}

	jobType, ok := ParseType(job.Type)
	if !ok {
		return r.failWithoutRunning(ctx, job)
	}
	handler, ok := r.registry.Lookup(jobType)
	if !ok {
		return r.failWithoutRunning(ctx, job)
	}

	if err := r.store.MarkJobRunning(ctx, job.ID); err != nil {
		return services.Wrap(services.ErrTransient, "job-runner", "mark running", job.ID, err)
	}
	r.logger.Info("job running",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldSessionID, job.SessionID),
		logging.String(logging.FieldJobType, job.Type),
	)

	result, execErr := handler.Execute(ctx, job.SessionID)
	if execErr != nil {
		if err := r.store.FailJob(ctx, job.ID, execErr.Error()); err != nil {
			return services.Wrap(services.ErrTransient, "job-runner", "record failure", job.ID, err)
		}
		r.logger.Warn("job failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldJobType, job.Type),
			logging.Error(execErr),
		)
		return nil
	}

	if err := r.store.CompleteJob(ctx, job.ID, string(result)); err != nil {
		return services.Wrap(services.ErrTransient, "job-runner", "record completion", job.ID, err)
	}
	r.logger.Info("job completed",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldJobType, job.Type),
	)
	return nil
}

// failWithoutRunning marks an unroutable job failed straight from the
// queued state; started_at is never stamped.
func (r *Runner) failWithoutRunning(ctx context.Context, job *store.Job) error {
	message := "Unknown job type: " + job.Type
	if err := r.store.FailJob(ctx, job.ID, message); err != nil {
		return services.Wrap(services.ErrTransient, "job-runner", "record failure", job.ID, err)
	}
	r.logger.Warn("job rejected",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldJobType, job.Type),
	)
	return nil
}
