package session

import (
	"context"
	"log/slog"
	"time"

	"psfd/internal/logging"
	"psfd/internal/services"
)

// Store is the persistence surface the transition service needs.
type Store interface {
	GetSession(ctx context.Context, id string) (*Session, error)
	UpdateSessionState(ctx context.Context, id string, state Stage) error
}

// Transition describes a committed stage change.
type Transition struct {
	SessionID     string
	PreviousState Stage
	CurrentState  Stage
}

// Service validates and commits stage changes. It is the only mutator of
// a session's current stage.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a transition service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logging.NewComponentLogger(logger, "session"),
		now:    time.Now,
	}
}

// Apply loads the session, asserts the requested edge, and persists the
// new stage. Failure modes: services.ErrNotFound when the session does
// not exist, services.ErrExpired when it is past its expiry, and
// *InvalidTransitionError (classified as services.ErrConflict) when the
// edge is illegal.
func (s *Service) Apply(ctx context.Context, sessionID string, target Stage) (Transition, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return Transition{}, services.Wrap(services.ErrTransient, "session", "load", sessionID, err)
	}
	if sess == nil {
		return Transition{}, services.Wrap(services.ErrNotFound, "session", "load", "session "+sessionID+" not found", nil)
	}
	if sess.Expired(s.now()) {
		return Transition{}, services.Wrap(services.ErrExpired, "session", "transition", "session "+sessionID+" expired", nil)
	}

	from := sess.CurrentState
	if err := AssertTransition(from, target); err != nil {
		return Transition{}, err
	}

	if err := s.store.UpdateSessionState(ctx, sessionID, target); err != nil {
		return Transition{}, services.Wrap(services.ErrTransient, "session", "persist transition", sessionID, err)
	}

	s.logger.Info("session advanced",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String("from", string(from)),
		logging.String("to", string(target)),
	)
	return Transition{SessionID: sessionID, PreviousState: from, CurrentState: target}, nil
}
