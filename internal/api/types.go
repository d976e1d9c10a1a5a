package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SessionCreated is the response to session creation. The export token
// is returned exactly once here; the report endpoint accepts it as a
// bearer capability.
type SessionCreated struct {
	SessionID   string `json:"sessionId"`
	ExportToken string `json:"exportToken"`
}

// SessionView describes a session in a transport-friendly format.
type SessionView struct {
	ID           string   `json:"id"`
	ExportToken  string   `json:"exportToken"`
	CurrentState string   `json:"currentState"`
	NextStates   []string `json:"nextStates"`
	CreatedAt    string   `json:"createdAt,omitempty"`
	ExpiresAt    string   `json:"expiresAt,omitempty"`
}

// TransitionResult reports a committed stage change. JobID is set when
// entering the new stage enqueued a generation job.
type TransitionResult struct {
	ID            string `json:"id"`
	PreviousState string `json:"previousState"`
	CurrentState  string `json:"currentState"`
	JobID         string `json:"jobId,omitempty"`
}

// CVPFields carries the eight value-proposition inputs. Absent fields
// round-trip as empty strings.
type CVPFields struct {
	ForWho            string `json:"forWho"`
	InSituation       string `json:"inSituation"`
	StrugglesWith     string `json:"strugglesWith"`
	CurrentWorkaround string `json:"currentWorkaround"`
	WeOffer           string `json:"weOffer"`
	SoTheyGet         string `json:"soTheyGet"`
	Unlike            string `json:"unlike"`
	Because           string `json:"because"`
}

// JobView describes a generation job for polling clients.
type JobView struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"sessionId"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   string          `json:"createdAt,omitempty"`
	StartedAt   string          `json:"startedAt,omitempty"`
	CompletedAt string          `json:"completedAt,omitempty"`
}

// ArtifactView describes one generated artifact.
type ArtifactView struct {
	ID        int64           `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"createdAt,omitempty"`
}

// ArtifactListResponse wraps a session's artifacts.
type ArtifactListResponse struct {
	Artifacts []ArtifactView `json:"artifacts"`
}

// ChatMessageView is one transcript turn.
type ChatMessageView struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// ChatTranscriptResponse wraps a session's transcript.
type ChatTranscriptResponse struct {
	Messages []ChatMessageView `json:"messages"`
}

// ExportView is the token-gated report payload.
type ExportView struct {
	SessionID   string          `json:"sessionId"`
	Report      json.RawMessage `json:"report"`
	GeneratedAt string          `json:"generatedAt,omitempty"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DatabasePath string         `json:"databasePath"`
	LockFilePath string         `json:"lockFilePath"`
	Workers      int            `json:"workers"`
	QueueDepth   int            `json:"queueDepth"`
	Sessions     int            `json:"sessions"`
	Jobs         map[string]int `json:"jobs"`
}

// ErrorResponse is the uniform failure body.
type ErrorResponse struct {
	Error string `json:"error"`
}
