package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"psfd/internal/config"
	"psfd/internal/logging"
	"psfd/internal/pipeline"
	"psfd/internal/services"
	"psfd/internal/session"
	"psfd/internal/store"
)

// SessionService exposes session operations returning API DTOs. All
// reads gate on existence and expiry; stage changes go through the
// transition service.
type SessionService struct {
	store       *store.Store
	transitions *session.Service
	expiry      time.Duration
	logger      *slog.Logger
}

// NewSessionService constructs the session facade.
func NewSessionService(cfg *config.Config, st *store.Store, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:       st,
		transitions: session.NewService(st, logger),
		expiry:      time.Duration(cfg.Session.ExpiryDays) * 24 * time.Hour,
		logger:      logging.NewComponentLogger(logger, "session-api"),
	}
}

// Create issues a new session at the start stage with a fresh export
// token.
func (s *SessionService) Create(ctx context.Context) (*SessionCreated, error) {
	id := uuid.NewString()
	token, err := newExportToken()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "session-api", "create", "export token", err)
	}

	var expiresAt *time.Time
	if s.expiry > 0 {
		expiry := time.Now().UTC().Add(s.expiry)
		expiresAt = &expiry
	}
	if _, err := s.store.NewSession(ctx, id, token, expiresAt); err != nil {
		return nil, services.Wrap(services.ErrTransient, "session-api", "create", id, err)
	}

	s.logger.Info("session created", logging.String(logging.FieldSessionID, id))
	return &SessionCreated{SessionID: id, ExportToken: token}, nil
}

// Get fetches a session, failing with not-found or expired markers.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*SessionView, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	view := FromSession(sess)
	return &view, nil
}

// Transition asserts and commits a stage change. The target is parsed
// here so malformed input fails as validation, not conflict.
func (s *SessionService) Transition(ctx context.Context, sessionID, target string) (*TransitionResult, error) {
	stage, ok := session.ParseStage(target)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "session-api", "transition", "unknown target state "+target, nil)
	}
	committed, err := s.transitions.Apply(ctx, sessionID, stage)
	if err != nil {
		return nil, err
	}
	return &TransitionResult{
		ID:            committed.SessionID,
		PreviousState: string(committed.PreviousState),
		CurrentState:  string(committed.CurrentState),
	}, nil
}

// GetInputs returns the session's value-proposition fields, empty when
// none were saved yet.
func (s *SessionService) GetInputs(ctx context.Context, sessionID string) (*CVPFields, error) {
	if _, err := s.load(ctx, sessionID); err != nil {
		return nil, err
	}
	inputs, err := s.store.GetCVPInputs(ctx, sessionID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "session-api", "load inputs", sessionID, err)
	}
	fields := FromCVPInputs(inputs)
	return &fields, nil
}

// SaveInputs upserts the session's value-proposition fields.
func (s *SessionService) SaveInputs(ctx context.Context, sessionID string, fields CVPFields) (*CVPFields, error) {
	if _, err := s.load(ctx, sessionID); err != nil {
		return nil, err
	}
	inputs := &store.CVPInputs{
		SessionID:         sessionID,
		ForWho:            fields.ForWho,
		InSituation:       fields.InSituation,
		StrugglesWith:     fields.StrugglesWith,
		CurrentWorkaround: fields.CurrentWorkaround,
		WeOffer:           fields.WeOffer,
		SoTheyGet:         fields.SoTheyGet,
		Unlike:            fields.Unlike,
		Because:           fields.Because,
	}
	if err := s.store.SaveCVPInputs(ctx, inputs); err != nil {
		return nil, services.Wrap(services.ErrTransient, "session-api", "save inputs", sessionID, err)
	}
	return &fields, nil
}

// Artifacts lists the session's generated artifacts.
func (s *SessionService) Artifacts(ctx context.Context, sessionID string) (*ArtifactListResponse, error) {
	if _, err := s.load(ctx, sessionID); err != nil {
		return nil, err
	}
	artifacts, err := s.store.ArtifactsBySession(ctx, sessionID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "session-api", "load artifacts", sessionID, err)
	}
	response := &ArtifactListResponse{Artifacts: []ArtifactView{}}
	for _, artifact := range artifacts {
		response.Artifacts = append(response.Artifacts, FromArtifact(artifact))
	}
	return response, nil
}

// AppendChat records one clarifier transcript turn.
func (s *SessionService) AppendChat(ctx context.Context, sessionID, role, content string) (*ChatMessageView, error) {
	if _, err := s.load(ctx, sessionID); err != nil {
		return nil, err
	}
	if role != "user" && role != "assistant" {
		return nil, services.Wrap(services.ErrValidation, "session-api", "append chat", "unknown role "+role, nil)
	}
	if content == "" {
		return nil, services.Wrap(services.ErrValidation, "session-api", "append chat", "empty content", nil)
	}
	msg, err := s.store.AppendChatMessage(ctx, sessionID, role, content)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "session-api", "append chat", sessionID, err)
	}
	view := FromChatMessage(msg)
	return &view, nil
}

// ChatTranscript returns the session's transcript in order.
func (s *SessionService) ChatTranscript(ctx context.Context, sessionID string) (*ChatTranscriptResponse, error) {
	if _, err := s.load(ctx, sessionID); err != nil {
		return nil, err
	}
	messages, err := s.store.ChatMessages(ctx, sessionID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "session-api", "load transcript", sessionID, err)
	}
	response := &ChatTranscriptResponse{Messages: []ChatMessageView{}}
	for _, msg := range messages {
		response.Messages = append(response.Messages, FromChatMessage(msg))
	}
	return response, nil
}

// ExportByToken resolves an export token to the session's latest report
// artifact. The token is the only credential; session ids are never
// accepted here.
func (s *SessionService) ExportByToken(ctx context.Context, token string) (*ExportView, error) {
	sess, err := s.store.GetSessionByExportToken(ctx, token)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "session-api", "resolve token", "", err)
	}
	if sess == nil {
		return nil, services.Wrap(services.ErrNotFound, "session-api", "resolve token", "unknown export token", nil)
	}
	if sess.Expired(time.Now()) {
		return nil, services.Wrap(services.ErrExpired, "session-api", "export", "session "+sess.ID+" expired", nil)
	}

	report, err := s.store.LatestArtifact(ctx, sess.ID, pipeline.ArtifactPSFReport)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "session-api", "load report", sess.ID, err)
	}
	if report == nil {
		return nil, services.Wrap(services.ErrNotFound, "session-api", "export", "report not generated", nil)
	}
	return &ExportView{
		SessionID:   sess.ID,
		Report:      []byte(report.Payload),
		GeneratedAt: formatTimestamp(report.CreatedAt),
	}, nil
}

func (s *SessionService) load(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "session-api", "load", sessionID, err)
	}
	if sess == nil {
		return nil, services.Wrap(services.ErrNotFound, "session-api", "load", "session "+sessionID+" not found", nil)
	}
	if sess.Expired(time.Now()) {
		return nil, services.Wrap(services.ErrExpired, "session-api", "load", "session "+sessionID+" expired", nil)
	}
	return sess, nil
}

func newExportToken() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
