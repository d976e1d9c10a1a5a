package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"psfd/internal/api"
	"psfd/internal/config"
	"psfd/internal/jobs"
	"psfd/internal/logging"
	"psfd/internal/services"
	"psfd/internal/session"
)

// stageJobs maps a newly entered stage to the generation job that
// prepares its content. Entering S3 from S2 additionally harvests the
// clarifier chat, handled in enqueueForTransition.
var stageJobs = map[session.Stage]jobs.Type{
	session.StageClarifiers: jobs.TypeAnalyzeInputs,
	session.StageHypotheses: jobs.TypeGenerateHypotheses,
	session.StageResearch:   jobs.TypeRunDesktopResearch,
	session.StagePersona:    jobs.TypeGeneratePersonaPack,
	session.StageReport:     jobs.TypeAssemblePSFReport,
}

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", srv.handleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", srv.handleGetSession)
	mux.HandleFunc("PATCH /api/sessions/{id}", srv.handleTransition)
	mux.HandleFunc("GET /api/sessions/{id}/inputs", srv.handleGetInputs)
	mux.HandleFunc("PUT /api/sessions/{id}/inputs", srv.handleSaveInputs)
	mux.HandleFunc("GET /api/sessions/{id}/artifacts", srv.handleArtifacts)
	mux.HandleFunc("GET /api/sessions/{id}/jobs", srv.handleSessionJobs)
	mux.HandleFunc("GET /api/sessions/{id}/chat", srv.handleGetChat)
	mux.HandleFunc("POST /api/sessions/{id}/chat", srv.handleAppendChat)
	mux.HandleFunc("GET /api/jobs/{id}", srv.handleGetJob)
	mux.HandleFunc("GET /api/export/{token}", srv.handleExport)
	mux.HandleFunc("GET /api/status", srv.handleStatus)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	created, err := s.daemon.sessions.Create(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "Session")
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *apiServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "Session")
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

type transitionBody struct {
	TargetState string `json:"targetState"`
}

func (s *apiServer) handleTransition(w http.ResponseWriter, r *http.Request) {
	var body transitionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}

	result, err := s.daemon.sessions.Transition(r.Context(), r.PathValue("id"), body.TargetState)
	if err != nil {
		s.writeServiceError(w, err, "Session")
		return
	}
	if err := s.enqueueForTransition(r.Context(), result); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// enqueueForTransition schedules the generation work owed to the stage
// just entered. The first job id is attached to the transition response
// for polling; any companion jobs are discoverable via the session's
// job list.
func (s *apiServer) enqueueForTransition(ctx context.Context, result *api.TransitionResult) error {
	current := session.Stage(result.CurrentState)
	jobType, ok := stageJobs[current]
	if !ok {
		return nil
	}
	jobID, err := s.daemon.queue.Enqueue(ctx, result.ID, jobType)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	result.JobID = jobID

	// Leaving the clarifier chat also harvests its transcript.
	if current == session.StageHypotheses && session.Stage(result.PreviousState) == session.StageClarifiers {
		if _, err := s.daemon.queue.Enqueue(ctx, result.ID, jobs.TypeExtractChatInsights); err != nil {
			return fmt.Errorf("enqueue %s: %w", jobs.TypeExtractChatInsights, err)
		}
	}
	return nil
}

func (s *apiServer) handleGetInputs(w http.ResponseWriter, r *http.Request) {
	fields, err := s.daemon.sessions.GetInputs(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "Session")
		return
	}
	s.writeJSON(w, http.StatusOK, fields)
}

func (s *apiServer) handleSaveInputs(w http.ResponseWriter, r *http.Request) {
	var fields api.CVPFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	saved, err := s.daemon.sessions.SaveInputs(r.Context(), r.PathValue("id"), fields)
	if err != nil {
		s.writeServiceError(w, err, "Session")
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *apiServer) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	artifacts, err := s.daemon.sessions.Artifacts(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "Session")
		return
	}
	s.writeJSON(w, http.StatusOK, artifacts)
}

func (s *apiServer) handleSessionJobs(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if _, err := s.daemon.sessions.Get(r.Context(), sessionID); err != nil {
		s.writeServiceError(w, err, "Session")
		return
	}
	list, err := s.daemon.store.JobsBySession(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]api.JobView, 0, len(list))
	for _, job := range list {
		views = append(views, api.FromJob(job))
	}
	s.writeJSON(w, http.StatusOK, map[string][]api.JobView{"jobs": views})
}

type chatBody struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *apiServer) handleGetChat(w http.ResponseWriter, r *http.Request) {
	transcript, err := s.daemon.sessions.ChatTranscript(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "Session")
		return
	}
	s.writeJSON(w, http.StatusOK, transcript)
}

func (s *apiServer) handleAppendChat(w http.ResponseWriter, r *http.Request) {
	var body chatBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	msg, err := s.daemon.sessions.AppendChat(r.Context(), r.PathValue("id"), body.Role, body.Content)
	if err != nil {
		s.writeServiceError(w, err, "Session")
		return
	}
	s.writeJSON(w, http.StatusCreated, msg)
}

func (s *apiServer) handleGetJob(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.jobsAPI.Describe(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err, "Job")
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleExport(w http.ResponseWriter, r *http.Request) {
	export, err := s.daemon.sessions.ExportByToken(r.Context(), r.PathValue("token"))
	if err != nil {
		s.writeServiceError(w, err, "Export")
		return
	}
	s.writeJSON(w, http.StatusOK, export)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.daemon.Status(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

// writeServiceError maps the sentinel error markers onto HTTP statuses.
// Conflict responses carry the transition error's message verbatim so
// clients can display it unchanged.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error, resource string) {
	var invalid *session.InvalidTransitionError
	switch {
	case errors.As(err, &invalid):
		s.writeError(w, http.StatusConflict, invalid.Error())
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, resource+" not found")
	case errors.Is(err, services.ErrExpired):
		s.writeError(w, http.StatusGone, resource+" expired")
	case errors.Is(err, services.ErrConflict):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
