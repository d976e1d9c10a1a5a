package jobs_test

import (
	"context"
	"errors"
	"testing"

	"psfd/internal/jobs"
	"psfd/internal/logging"
	"psfd/internal/services"
	"psfd/internal/store"
	"psfd/internal/testsupport"
)

func TestEnqueuePersistsAndDispatchesOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sess := testsupport.NewSession(t, st)
	queue := jobs.NewQueue(cfg, st, logging.NewNop())

	jobID, err := queue.Enqueue(ctx, sess.ID, jobs.TypeGenerateHypotheses)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if jobID == "" {
		t.Fatal("expected job id")
	}

	job, err := st.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job == nil || job.Status != store.JobQueued {
		t.Fatalf("expected persisted queued job, got %#v", job)
	}
	if job.SessionID != sess.ID || job.Type != string(jobs.TypeGenerateHypotheses) {
		t.Fatalf("unexpected job fields: %#v", job)
	}

	if queue.Depth() != 1 {
		t.Fatalf("expected exactly one dispatch, depth=%d", queue.Depth())
	}
	select {
	case dispatched := <-queue.Dispatches():
		if dispatched != jobID {
			t.Fatalf("dispatched %q, want %q", dispatched, jobID)
		}
	default:
		t.Fatal("expected a pending dispatch")
	}
}

func TestEnqueueRejectsUnknownType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	sess := testsupport.NewSession(t, st)
	queue := jobs.NewQueue(cfg, st, logging.NewNop())

	_, err := queue.Enqueue(context.Background(), sess.ID, jobs.Type("summon_demons"))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if queue.Depth() != 0 {
		t.Fatal("rejected enqueue must not dispatch")
	}

	all, err := st.JobsBySession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("JobsBySession failed: %v", err)
	}
	if len(all) != 0 {
		t.Fatal("rejected enqueue must not persist a job")
	}
}

func TestEnqueueRejectsUnknownSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	queue := jobs.NewQueue(cfg, st, logging.NewNop())
	_, err := queue.Enqueue(context.Background(), "no-such-session", jobs.TypeAnalyzeInputs)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if queue.Depth() != 0 {
		t.Fatal("rejected enqueue must not dispatch")
	}
}

func TestEnqueueAssignsDistinctIDs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sess := testsupport.NewSession(t, st)
	queue := jobs.NewQueue(cfg, st, logging.NewNop())

	first, err := queue.Enqueue(ctx, sess.ID, jobs.TypeAnalyzeInputs)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	second, err := queue.Enqueue(ctx, sess.ID, jobs.TypeAnalyzeInputs)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if first == second {
		t.Fatal("each enqueue must create a distinct job")
	}
	if queue.Depth() != 2 {
		t.Fatalf("expected two dispatches, depth=%d", queue.Depth())
	}
}
