package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"psfd/internal/config"
	"psfd/internal/session"
	"psfd/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewSession creates a session for tests using the provided store.
func NewSession(t testing.TB, st *store.Store) *session.Session {
	t.Helper()

	expires := time.Now().Add(24 * time.Hour)
	sess, err := st.NewSession(context.Background(), uuid.NewString(), uuid.NewString(), &expires)
	if err != nil {
		t.Fatalf("store.NewSession: %v", err)
	}
	return sess
}
