package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"psfd/internal/logging"
	"psfd/internal/services"
	"psfd/internal/session"
)

type stubStore struct {
	sessions map[string]*session.Session
	loadErr  error
	saveErr  error
	saved    []session.Stage
}

func newStubStore(sessions ...*session.Session) *stubStore {
	store := &stubStore{sessions: make(map[string]*session.Session)}
	for _, sess := range sessions {
		store.sessions[sess.ID] = sess
	}
	return store
}

func (s *stubStore) GetSession(_ context.Context, id string) (*session.Session, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.sessions[id], nil
}

func (s *stubStore) UpdateSessionState(_ context.Context, id string, state session.Stage) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	if sess, ok := s.sessions[id]; ok {
		sess.CurrentState = state
	}
	s.saved = append(s.saved, state)
	return nil
}

func TestApplyCommitsLegalTransition(t *testing.T) {
	store := newStubStore(&session.Session{ID: "sess-1", CurrentState: session.StageStart})
	svc := session.NewService(store, logging.NewNop())

	result, err := svc.Apply(context.Background(), "sess-1", session.StageInputs)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if result.PreviousState != session.StageStart || result.CurrentState != session.StageInputs {
		t.Fatalf("unexpected transition result: %+v", result)
	}
	if store.sessions["sess-1"].CurrentState != session.StageInputs {
		t.Fatal("stage not persisted")
	}
}

func TestApplySkipEdge(t *testing.T) {
	store := newStubStore(&session.Session{ID: "sess-1", CurrentState: session.StageInputs})
	svc := session.NewService(store, logging.NewNop())

	result, err := svc.Apply(context.Background(), "sess-1", session.StageHypotheses)
	if err != nil {
		t.Fatalf("skip edge should succeed: %v", err)
	}
	if result.CurrentState != session.StageHypotheses {
		t.Fatalf("unexpected current state %s", result.CurrentState)
	}
}

func TestApplyRejectsIllegalEdge(t *testing.T) {
	store := newStubStore(&session.Session{ID: "sess-1", CurrentState: session.StageHypotheses})
	svc := session.NewService(store, logging.NewNop())

	_, err := svc.Apply(context.Background(), "sess-1", session.StageInputs)
	if err == nil {
		t.Fatal("expected conflict for backward transition")
	}
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict classification, got %v", err)
	}
	if err.Error() != "Invalid state transition: S3 → S1" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if len(store.saved) != 0 {
		t.Fatal("illegal transition must not persist")
	}
}

func TestApplyUnknownSession(t *testing.T) {
	svc := session.NewService(newStubStore(), logging.NewNop())
	_, err := svc.Apply(context.Background(), "missing", session.StageInputs)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestApplyExpiredSession(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	store := newStubStore(&session.Session{ID: "sess-1", CurrentState: session.StageStart, ExpiresAt: &past})
	svc := session.NewService(store, logging.NewNop())

	_, err := svc.Apply(context.Background(), "sess-1", session.StageInputs)
	if !errors.Is(err, services.ErrExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if len(store.saved) != 0 {
		t.Fatal("expired session must not transition")
	}
}

func TestApplyStoreFailure(t *testing.T) {
	store := newStubStore(&session.Session{ID: "sess-1", CurrentState: session.StageStart})
	store.saveErr = errors.New("disk full")
	svc := session.NewService(store, logging.NewNop())

	_, err := svc.Apply(context.Background(), "sess-1", session.StageInputs)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
}
