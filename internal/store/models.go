package store

import (
	"strings"
	"time"
)

// JobStatus represents the lifecycle of a generation job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

var allJobStatuses = []JobStatus{JobQueued, JobRunning, JobCompleted, JobFailed}

var jobStatusSet = func() map[JobStatus]struct{} {
	set := make(map[JobStatus]struct{}, len(allJobStatuses))
	for _, status := range allJobStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllJobStatuses returns the ordered list of known job statuses.
func AllJobStatuses() []JobStatus {
	cp := make([]JobStatus, len(allJobStatuses))
	copy(cp, allJobStatuses)
	return cp
}

// ParseJobStatus converts a string into a known JobStatus.
func ParseJobStatus(value string) (JobStatus, bool) {
	normalized := JobStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := jobStatusSet[normalized]
	return normalized, ok
}

// Terminal reports whether a status is write-once final.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job is a generation job persisted for polling.
type Job struct {
	ID           string
	SessionID    string
	Type         string
	Status       JobStatus
	Result       string
	ErrorMessage string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// CVPInputs holds the customer-value-proposition fields captured during
// the inputs stage. All fields are optional free text.
type CVPInputs struct {
	SessionID         string
	ForWho            string
	InSituation       string
	StrugglesWith     string
	CurrentWorkaround string
	WeOffer           string
	SoTheyGet         string
	Unlike            string
	Because           string
	UpdatedAt         time.Time
}

// Artifact is a typed JSON payload produced by a generation handler.
type Artifact struct {
	ID        int64
	SessionID string
	Type      string
	Payload   string
	CreatedAt time.Time
}

// ChatMessage is one turn of the clarifier chat transcript.
type ChatMessage struct {
	ID        int64
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// Stats is a count of jobs grouped by status.
type Stats struct {
	Sessions  int
	Queued    int
	Running   int
	Completed int
	Failed    int
}
