package jobs

import (
	"context"
	"encoding/json"
)

// Handler describes the contract the runner needs from each
// stage-generation task. Execute reads whatever session state it needs,
// writes its own output artifacts, and returns the result payload stored
// on the job. Handlers are invoked at most once per job; they need not
// be idempotent but must not assume they will be retried.
type Handler interface {
	Execute(ctx context.Context, sessionID string) (json.RawMessage, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, sessionID string) (json.RawMessage, error)

func (f HandlerFunc) Execute(ctx context.Context, sessionID string) (json.RawMessage, error) {
	return f(ctx, sessionID)
}

// Registry maps job types to their handlers. It is constructed once at
// startup and passed by reference into the runner so tests can
// substitute stub handlers without global state.
type Registry struct {
	handlers map[Type]Handler
	order    []Type
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Type]Handler)}
}

// Register binds a handler to a job type, replacing any previous
// binding.
func (r *Registry) Register(t Type, handler Handler) {
	if _, exists := r.handlers[t]; !exists {
		r.order = append(r.order, t)
	}
	r.handlers[t] = handler
}

// Lookup returns the handler bound to a job type.
func (r *Registry) Lookup(t Type) (Handler, bool) {
	handler, ok := r.handlers[t]
	return handler, ok
}

// Types returns the registered job types in registration order.
func (r *Registry) Types() []Type {
	cp := make([]Type, len(r.order))
	copy(cp, r.order)
	return cp
}
