package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"psfd/internal/api"
)

func TestClientSurfacesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"Invalid state transition: S0 → S3"}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	_, err := c.Transition(context.Background(), "some-session", "S3")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Invalid state transition: S0 → S3" {
		t.Fatalf("error body must pass through verbatim, got %q", err)
	}
}

func TestClientDecodesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sessions/abc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc","currentState":"S1","nextStates":["S2","S3"]}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	view, err := c.GetSession(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if view.CurrentState != "S1" || len(view.NextStates) != 2 {
		t.Fatalf("unexpected view: %#v", view)
	}
}

func TestClientNormalizesAddress(t *testing.T) {
	c := newClient("127.0.0.1:7687")
	if c.base != "http://127.0.0.1:7687" {
		t.Fatalf("unexpected base %q", c.base)
	}
}

func TestMergeInputsKeepsUnsetFields(t *testing.T) {
	cmd := newInputsCommand(newCommandContext(nil, nil))
	setCmd, _, err := cmd.Find([]string{"set"})
	if err != nil {
		t.Fatalf("find set command: %v", err)
	}
	if err := setCmd.Flags().Set("we-offer", "new offer"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	current := api.CVPFields{ForWho: "podcasters", WeOffer: "old offer"}
	merged := mergeInputs(current, api.CVPFields{WeOffer: "new offer"}, setCmd)
	if merged.ForWho != "podcasters" {
		t.Fatalf("unset field must be preserved, got %#v", merged)
	}
	if merged.WeOffer != "new offer" {
		t.Fatalf("set field must be applied, got %#v", merged)
	}
}
