package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"psfd/internal/jobs"
	"psfd/internal/logging"
	"psfd/internal/store"
	"psfd/internal/testsupport"
)

func TestProcessJobCompletes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sess := testsupport.NewSession(t, st)
	registry := jobs.NewRegistry()
	registry.Register(jobs.TypeAnalyzeInputs, jobs.HandlerFunc(func(ctx context.Context, sessionID string) (json.RawMessage, error) {
		if sessionID != sess.ID {
			t.Errorf("handler got session %q, want %q", sessionID, sess.ID)
		}
		return json.RawMessage(`{"score":7}`), nil
	}))

	queue := jobs.NewQueue(cfg, st, logging.NewNop())
	runner := jobs.NewRunner(cfg, st, registry, queue, logging.NewNop())

	jobID, err := queue.Enqueue(ctx, sess.ID, jobs.TypeAnalyzeInputs)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := runner.ProcessJob(ctx, jobID); err != nil {
		t.Fatalf("ProcessJob failed: %v", err)
	}

	job, err := st.GetJob(ctx, jobID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if job.Status != store.JobCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if job.Result != `{"score":7}` {
		t.Fatalf("unexpected result %q", job.Result)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Fatal("completed job must carry both timestamps")
	}
	if job.ErrorMessage != "" {
		t.Fatalf("completed job must not carry an error, got %q", job.ErrorMessage)
	}
}

func TestProcessJobRecordsHandlerFault(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sess := testsupport.NewSession(t, st)
	registry := jobs.NewRegistry()
	registry.Register(jobs.TypeRunDesktopResearch, jobs.HandlerFunc(func(ctx context.Context, sessionID string) (json.RawMessage, error) {
		return nil, errors.New("research source unreachable")
	}))

	queue := jobs.NewQueue(cfg, st, logging.NewNop())
	runner := jobs.NewRunner(cfg, st, registry, queue, logging.NewNop())

	jobID, err := queue.Enqueue(ctx, sess.ID, jobs.TypeRunDesktopResearch)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := runner.ProcessJob(ctx, jobID); err != nil {
		t.Fatalf("ProcessJob failed: %v", err)
	}

	job, _ := st.GetJob(ctx, jobID)
	if job.Status != store.JobFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.ErrorMessage != "research source unreachable" {
		t.Fatalf("unexpected error message %q", job.ErrorMessage)
	}
	if job.Result != "" {
		t.Fatal("failed job must not carry a result")
	}
	if job.StartedAt == nil {
		t.Fatal("handler fault happens after the running transition")
	}
}

func TestProcessJobFailsUnroutableTypeWithoutRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sess := testsupport.NewSession(t, st)
	job, err := st.NewJob(ctx, "job-odd", sess.ID, "telepathy")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	queue := jobs.NewQueue(cfg, st, logging.NewNop())
	runner := jobs.NewRunner(cfg, st, jobs.NewRegistry(), queue, logging.NewNop())
	if err := runner.ProcessJob(ctx, job.ID); err != nil {
		t.Fatalf("ProcessJob failed: %v", err)
	}

	failed, _ := st.GetJob(ctx, job.ID)
	if failed.Status != store.JobFailed {
		t.Fatalf("expected failed, got %s", failed.Status)
	}
	if failed.ErrorMessage != "Unknown job type: telepathy" {
		t.Fatalf("unexpected error message %q", failed.ErrorMessage)
	}
	if failed.StartedAt != nil {
		t.Fatal("unroutable job must never pass through running")
	}
}

func TestProcessJobIgnoresMissingAndTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	queue := jobs.NewQueue(cfg, st, logging.NewNop())
	runner := jobs.NewRunner(cfg, st, jobs.NewRegistry(), queue, logging.NewNop())

	if err := runner.ProcessJob(ctx, "never-created"); err != nil {
		t.Fatalf("missing job must be a no-op, got %v", err)
	}

	sess := testsupport.NewSession(t, st)
	job, err := st.NewJob(ctx, "job-done", sess.ID, "analyze_inputs")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if err := st.FailJob(ctx, job.ID, "earlier failure"); err != nil {
		t.Fatalf("FailJob failed: %v", err)
	}

	if err := runner.ProcessJob(ctx, job.ID); err != nil {
		t.Fatalf("terminal job must be a no-op, got %v", err)
	}
	still, _ := st.GetJob(ctx, job.ID)
	if still.ErrorMessage != "earlier failure" {
		t.Fatalf("terminal job mutated: %#v", still)
	}
}

func TestRunnerStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sess := testsupport.NewSession(t, st)
	registry := jobs.NewRegistry()
	registry.Register(jobs.TypeGeneratePersonaPack, jobs.HandlerFunc(func(ctx context.Context, sessionID string) (json.RawMessage, error) {
		return json.RawMessage(`{"personas":3}`), nil
	}))

	queue := jobs.NewQueue(cfg, st, logging.NewNop())
	runner := jobs.NewRunner(cfg, st, registry, queue, logging.NewNop())

	if err := runner.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := runner.Start(ctx); err == nil {
		t.Fatal("second Start must fail while running")
	}
	defer runner.Stop()

	jobID, err := queue.Enqueue(ctx, sess.ID, jobs.TypeGeneratePersonaPack)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err := st.GetJob(ctx, jobID)
		if err != nil {
			t.Fatalf("GetJob failed: %v", err)
		}
		if job.Status.Terminal() {
			if job.Status != store.JobCompleted {
				t.Fatalf("expected completed, got %s (%s)", job.Status, job.ErrorMessage)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never finished, last status %s", job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	runner.Stop()
	runner.Stop()
}
