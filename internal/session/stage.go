package session

import (
	"strings"
	"time"
)

// Stage represents a point in the session's discovery workflow.
type Stage string

const (
	StageStart      Stage = "S0"
	StageInputs     Stage = "S1"
	StageClarifiers Stage = "S2"
	StageHypotheses Stage = "S3"
	StageResearch   Stage = "S4"
	StagePersona    Stage = "S5"
	StageReport     Stage = "S6"
)

var allStages = []Stage{
	StageStart,
	StageInputs,
	StageClarifiers,
	StageHypotheses,
	StageResearch,
	StagePersona,
	StageReport,
}

var stageSet = func() map[Stage]struct{} {
	set := make(map[Stage]struct{}, len(allStages))
	for _, stage := range allStages {
		set[stage] = struct{}{}
	}
	return set
}()

// transitions is the legal successor table. S2 may be skipped (S1 → S3)
// when no clarifiers are needed; every other stage is visited in order
// and never revisited. S6 is terminal.
var transitions = map[Stage][]Stage{
	StageStart:      {StageInputs},
	StageInputs:     {StageClarifiers, StageHypotheses},
	StageClarifiers: {StageHypotheses},
	StageHypotheses: {StageResearch},
	StageResearch:   {StagePersona},
	StagePersona:    {StageReport},
	StageReport:     {},
}

// AllStages returns the ordered list of known stages.
func AllStages() []Stage {
	cp := make([]Stage, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToUpper(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stageSet[normalized]
	return normalized, ok
}

// CanTransition reports whether to is a legal successor of from.
func CanTransition(from, to Stage) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStates returns the legal successors of a stage in declaration
// order. Callers may present the result as a menu of valid choices.
func NextStates(stage Stage) []Stage {
	next := transitions[stage]
	cp := make([]Stage, len(next))
	copy(cp, next)
	return cp
}

// AssertTransition returns an *InvalidTransitionError when the requested
// edge is not in the graph. It has no side effects.
func AssertTransition(from, to Stage) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// Terminal reports whether a stage has no outgoing edges.
func Terminal(stage Stage) bool {
	return len(transitions[stage]) == 0
}

// Session is a discovery session persisted by the store.
type Session struct {
	ID           string
	ExportToken  string
	CurrentState Stage
	CreatedAt    time.Time
	ExpiresAt    *time.Time
}

// Expired reports whether the session's expiry is set and strictly
// before now.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}
