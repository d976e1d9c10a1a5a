package api

import (
	"encoding/json"
	"time"

	"psfd/internal/session"
	"psfd/internal/store"
)

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimestampPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTimestamp(*t)
}

// FromSession converts a session model into its DTO.
func FromSession(sess *session.Session) SessionView {
	next := session.NextStates(sess.CurrentState)
	states := make([]string, len(next))
	for i, stage := range next {
		states[i] = string(stage)
	}
	return SessionView{
		ID:           sess.ID,
		ExportToken:  sess.ExportToken,
		CurrentState: string(sess.CurrentState),
		NextStates:   states,
		CreatedAt:    formatTimestamp(sess.CreatedAt),
		ExpiresAt:    formatTimestampPtr(sess.ExpiresAt),
	}
}

// FromJob converts a job model into its DTO. The result payload is
// passed through verbatim when present.
func FromJob(job *store.Job) JobView {
	view := JobView{
		ID:          job.ID,
		SessionID:   job.SessionID,
		Type:        job.Type,
		Status:      string(job.Status),
		Error:       job.ErrorMessage,
		CreatedAt:   formatTimestamp(job.CreatedAt),
		StartedAt:   formatTimestampPtr(job.StartedAt),
		CompletedAt: formatTimestampPtr(job.CompletedAt),
	}
	if job.Result != "" {
		view.Result = json.RawMessage(job.Result)
	}
	return view
}

// FromArtifact converts an artifact row into its DTO.
func FromArtifact(artifact *store.Artifact) ArtifactView {
	return ArtifactView{
		ID:        artifact.ID,
		Type:      artifact.Type,
		Payload:   json.RawMessage(artifact.Payload),
		CreatedAt: formatTimestamp(artifact.CreatedAt),
	}
}

// FromCVPInputs converts stored inputs into the DTO; nil becomes the
// all-empty form.
func FromCVPInputs(inputs *store.CVPInputs) CVPFields {
	if inputs == nil {
		return CVPFields{}
	}
	return CVPFields{
		ForWho:            inputs.ForWho,
		InSituation:       inputs.InSituation,
		StrugglesWith:     inputs.StrugglesWith,
		CurrentWorkaround: inputs.CurrentWorkaround,
		WeOffer:           inputs.WeOffer,
		SoTheyGet:         inputs.SoTheyGet,
		Unlike:            inputs.Unlike,
		Because:           inputs.Because,
	}
}

// FromChatMessage converts one transcript turn into its DTO.
func FromChatMessage(msg *store.ChatMessage) ChatMessageView {
	return ChatMessageView{
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: formatTimestamp(msg.CreatedAt),
	}
}
