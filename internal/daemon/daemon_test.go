package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"psfd/internal/api"
	"psfd/internal/daemon"
	"psfd/internal/jobs"
	"psfd/internal/logging"
	"psfd/internal/pipeline"
	"psfd/internal/store"
	"psfd/internal/testsupport"
)

type harness struct {
	t      *testing.T
	base   string
	store  *store.Store
	daemon *daemon.Daemon
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	registry := pipeline.NewRegistry(st, logger)
	queue := jobs.NewQueue(cfg, st, logger)
	runner := jobs.NewRunner(cfg, st, registry, queue, logger)

	d, err := daemon.New(cfg, st, queue, runner, logger)
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start failed: %v", err)
	}
	t.Cleanup(d.Stop)

	return &harness{
		t:      t,
		base:   "http://" + d.Addr(),
		store:  st,
		daemon: d,
	}
}

func (h *harness) do(method, path string, body any) (*http.Response, []byte) {
	h.t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("encode body: %v", err)
		}
		payload = bytes.NewBuffer(encoded)
	} else {
		payload = &bytes.Buffer{}
	}

	req, err := http.NewRequest(method, h.base+path, payload)
	if err != nil {
		h.t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		h.t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

func (h *harness) decode(data []byte, out any) {
	h.t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		h.t.Fatalf("decode response %s: %v", data, err)
	}
}

func (h *harness) createSession() api.SessionCreated {
	h.t.Helper()
	resp, body := h.do(http.MethodPost, "/api/sessions", nil)
	if resp.StatusCode != http.StatusCreated {
		h.t.Fatalf("create session: status %d body %s", resp.StatusCode, body)
	}
	var created api.SessionCreated
	h.decode(body, &created)
	return created
}

func (h *harness) transition(sessionID, target string) (*http.Response, []byte) {
	h.t.Helper()
	return h.do(http.MethodPatch, "/api/sessions/"+sessionID, map[string]string{"targetState": target})
}

func (h *harness) awaitJob(jobID string) api.JobView {
	h.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, body := h.do(http.MethodGet, "/api/jobs/"+jobID, nil)
		if resp.StatusCode != http.StatusOK {
			h.t.Fatalf("get job: status %d body %s", resp.StatusCode, body)
		}
		var view api.JobView
		h.decode(body, &view)
		if view.Status == "completed" || view.Status == "failed" {
			return view
		}
		if time.Now().After(deadline) {
			h.t.Fatalf("job %s never finished, status %s", jobID, view.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)

	created := h.createSession()
	if created.SessionID == "" || created.ExportToken == "" {
		t.Fatalf("unexpected create response: %#v", created)
	}

	resp, body := h.do(http.MethodGet, "/api/sessions/"+created.SessionID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get session: status %d body %s", resp.StatusCode, body)
	}
	var view api.SessionView
	h.decode(body, &view)
	if view.CurrentState != "S0" {
		t.Fatalf("expected S0, got %s", view.CurrentState)
	}

	resp, body = h.transition(created.SessionID, "S1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transition: status %d body %s", resp.StatusCode, body)
	}
	var result api.TransitionResult
	h.decode(body, &result)
	if result.PreviousState != "S0" || result.CurrentState != "S1" {
		t.Fatalf("unexpected transition: %#v", result)
	}
	if result.JobID != "" {
		t.Fatal("entering S1 must not enqueue a job")
	}

	resp, _ = h.do(http.MethodGet, "/api/sessions/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing session, got %d", resp.StatusCode)
	}
}

func TestIllegalTransitionConflict(t *testing.T) {
	h := newHarness(t)
	created := h.createSession()

	resp, body := h.transition(created.SessionID, "S3")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d body %s", resp.StatusCode, body)
	}
	var failure api.ErrorResponse
	h.decode(body, &failure)
	if failure.Error != "Invalid state transition: S0 → S3" {
		t.Fatalf("unexpected conflict body %q", failure.Error)
	}

	resp, _ = h.transition(created.SessionID, "S9")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown target must be 400, got %d", resp.StatusCode)
	}
}

func TestExpiredSessionGone(t *testing.T) {
	h := newHarness(t)

	expired := time.Now().Add(-time.Hour)
	sess, err := h.store.NewSession(context.Background(), "expired-session", "expired-token", &expired)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	resp, _ := h.do(http.MethodGet, "/api/sessions/"+sess.ID, nil)
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("expected 410, got %d", resp.StatusCode)
	}
	resp, _ = h.transition(sess.ID, "S1")
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("transition on expired session must be 410, got %d", resp.StatusCode)
	}
}

func TestInputsRoundTripOverHTTP(t *testing.T) {
	h := newHarness(t)
	created := h.createSession()

	fields := api.CVPFields{
		ForWho:        "indie podcasters with weekly shows",
		StrugglesWith: "editing eats four hours per episode",
		WeOffer:       "one-click silence and filler removal",
	}
	resp, body := h.do(http.MethodPut, "/api/sessions/"+created.SessionID+"/inputs", fields)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save inputs: status %d body %s", resp.StatusCode, body)
	}

	resp, body = h.do(http.MethodGet, "/api/sessions/"+created.SessionID+"/inputs", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get inputs: status %d body %s", resp.StatusCode, body)
	}
	var saved api.CVPFields
	h.decode(body, &saved)
	if saved != fields {
		t.Fatalf("inputs did not round trip: %#v", saved)
	}
}

func TestStageCompletionEnqueues(t *testing.T) {
	h := newHarness(t)
	created := h.createSession()

	fields := api.CVPFields{
		ForWho:            "indie podcasters with weekly shows",
		InSituation:       "the night before an episode ships",
		StrugglesWith:     "editing eats four hours per episode",
		CurrentWorkaround: "manual cuts in a free audio editor",
		WeOffer:           "one-click silence and filler removal",
		SoTheyGet:         "an episode ready in under thirty minutes",
		Unlike:            "generic audio suites built for studios",
		Because:           "the cleanup model is tuned on podcast speech",
	}
	if resp, body := h.do(http.MethodPut, "/api/sessions/"+created.SessionID+"/inputs", fields); resp.StatusCode != http.StatusOK {
		t.Fatalf("save inputs: status %d body %s", resp.StatusCode, body)
	}

	h.transition(created.SessionID, "S1")

	resp, body := h.transition(created.SessionID, "S2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transition to S2: status %d body %s", resp.StatusCode, body)
	}
	var result api.TransitionResult
	h.decode(body, &result)
	if result.JobID == "" {
		t.Fatal("entering S2 must enqueue analyze_inputs")
	}
	analyze := h.awaitJob(result.JobID)
	if analyze.Status != "completed" || analyze.Type != "analyze_inputs" {
		t.Fatalf("unexpected analyze job: %#v", analyze)
	}

	chat := map[string]string{"role": "user", "content": "They publish every Tuesday."}
	if resp, body := h.do(http.MethodPost, "/api/sessions/"+created.SessionID+"/chat", chat); resp.StatusCode != http.StatusCreated {
		t.Fatalf("append chat: status %d body %s", resp.StatusCode, body)
	}

	resp, body = h.transition(created.SessionID, "S3")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transition to S3: status %d body %s", resp.StatusCode, body)
	}
	h.decode(body, &result)
	hypotheses := h.awaitJob(result.JobID)
	if hypotheses.Status != "completed" || hypotheses.Type != "generate_hypotheses" {
		t.Fatalf("unexpected hypotheses job: %#v", hypotheses)
	}

	resp, body = h.do(http.MethodGet, "/api/sessions/"+created.SessionID+"/jobs", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list jobs: status %d body %s", resp.StatusCode, body)
	}
	var list struct {
		Jobs []api.JobView `json:"jobs"`
	}
	h.decode(body, &list)
	types := map[string]bool{}
	for _, job := range list.Jobs {
		types[job.Type] = true
	}
	if !types["extract_chat_insights"] {
		t.Fatalf("leaving the chat stage must enqueue extract_chat_insights, saw %v", types)
	}
}

func TestFullDiscoveryRunAndExport(t *testing.T) {
	h := newHarness(t)
	created := h.createSession()

	fields := api.CVPFields{
		ForWho:            "indie podcasters with weekly shows",
		InSituation:       "the night before an episode ships",
		StrugglesWith:     "editing eats four hours per episode",
		CurrentWorkaround: "manual cuts in a free audio editor",
		WeOffer:           "one-click silence and filler removal",
		SoTheyGet:         "an episode ready in under thirty minutes",
		Unlike:            "generic audio suites built for studios",
		Because:           "the cleanup model is tuned on podcast speech",
	}
	h.do(http.MethodPut, "/api/sessions/"+created.SessionID+"/inputs", fields)

	resp, _ := h.do(http.MethodGet, "/api/export/"+created.ExportToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("export before report must be 404, got %d", resp.StatusCode)
	}

	h.transition(created.SessionID, "S1")
	for _, target := range []string{"S2", "S3", "S4", "S5", "S6"} {
		resp, body := h.transition(created.SessionID, target)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("transition to %s: status %d body %s", target, resp.StatusCode, body)
		}
		var result api.TransitionResult
		h.decode(body, &result)
		if result.JobID == "" {
			t.Fatalf("entering %s must enqueue a job", target)
		}
		job := h.awaitJob(result.JobID)
		if job.Status != "completed" {
			t.Fatalf("job for %s failed: %s", target, job.Error)
		}
	}

	resp, body := h.do(http.MethodGet, "/api/export/"+created.ExportToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export: status %d body %s", resp.StatusCode, body)
	}
	var export api.ExportView
	h.decode(body, &export)
	if export.SessionID != created.SessionID || len(export.Report) == 0 {
		t.Fatalf("unexpected export: %#v", export)
	}

	resp, body = h.do(http.MethodGet, "/api/sessions/"+created.SessionID+"/artifacts", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("artifacts: status %d body %s", resp.StatusCode, body)
	}
	var artifacts api.ArtifactListResponse
	h.decode(body, &artifacts)
	if len(artifacts.Artifacts) < 6 {
		t.Fatalf("expected the full artifact trail, got %d", len(artifacts.Artifacts))
	}

	resp, _ = h.do(http.MethodGet, "/api/export/bogus", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown token must be 404, got %d", resp.StatusCode)
	}
}

func TestSkipEdgeRun(t *testing.T) {
	h := newHarness(t)
	created := h.createSession()

	h.transition(created.SessionID, "S1")
	resp, body := h.transition(created.SessionID, "S3")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("skip edge S1->S3: status %d body %s", resp.StatusCode, body)
	}
	var result api.TransitionResult
	h.decode(body, &result)
	if result.PreviousState != "S1" || result.CurrentState != "S3" {
		t.Fatalf("unexpected skip transition: %#v", result)
	}

	resp, body = h.transition(created.SessionID, "S1")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("going backwards must be 409, got %d body %s", resp.StatusCode, body)
	}

	// No inputs were analyzed, so the enqueued hypothesis job must land
	// on failed rather than hang or vanish.
	job := h.awaitJob(result.JobID)
	if job.Status != "failed" || job.Error == "" {
		t.Fatalf("expected failed hypothesis job with an error, got %#v", job)
	}

	types := map[string]bool{}
	sessionJobs, err := h.store.JobsBySession(context.Background(), created.SessionID)
	if err != nil {
		t.Fatalf("JobsBySession failed: %v", err)
	}
	for _, j := range sessionJobs {
		types[j.Type] = true
	}
	if types["extract_chat_insights"] {
		t.Fatal("skipping the chat stage must not enqueue a chat harvest")
	}
}

func TestStatusEndpoint(t *testing.T) {
	h := newHarness(t)
	h.createSession()

	resp, body := h.do(http.MethodGet, "/api/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: status %d body %s", resp.StatusCode, body)
	}
	var status api.DaemonStatus
	h.decode(body, &status)
	if !status.Running || status.Sessions != 1 {
		t.Fatalf("unexpected status: %#v", status)
	}
	if status.Workers < 1 {
		t.Fatalf("expected worker count, got %d", status.Workers)
	}
}

func TestDaemonDoubleStart(t *testing.T) {
	h := newHarness(t)
	if err := h.daemon.Start(context.Background()); err == nil {
		t.Fatal("second Start must fail while running")
	}
}
