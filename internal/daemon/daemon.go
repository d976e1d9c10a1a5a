package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"psfd/internal/api"
	"psfd/internal/config"
	"psfd/internal/jobs"
	"psfd/internal/logging"
	"psfd/internal/store"
)

// Daemon coordinates the background services and enforces
// single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	queue  *jobs.Queue
	runner *jobs.Runner

	sessions *api.SessionService
	jobsAPI  *api.JobService
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, queue *jobs.Queue, runner *jobs.Runner, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || queue == nil || runner == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, queue, runner, and logger")
	}

	lockPath := cfg.LockFilePath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    st,
		queue:    queue,
		runner:   runner,
		sessions: api.NewSessionService(cfg, st, logger),
		jobsAPI:  api.NewJobService(st),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, launches the job runner, and brings
// up the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another psfd instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.runner.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start runner: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.runner.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down background processing and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.runner.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the API listener address once started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon runtime information.
func (d *Daemon) Status(ctx context.Context) (api.DaemonStatus, error) {
	stats, err := d.store.Stats(ctx)
	if err != nil {
		return api.DaemonStatus{}, fmt.Errorf("load stats: %w", err)
	}
	return api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		Workers:      d.cfg.Jobs.Workers,
		QueueDepth:   d.queue.Depth(),
		Sessions:     stats.Sessions,
		Jobs: map[string]int{
			string(store.JobQueued):    stats.Queued,
			string(store.JobRunning):   stats.Running,
			string(store.JobCompleted): stats.Completed,
			string(store.JobFailed):    stats.Failed,
		},
	}, nil
}
