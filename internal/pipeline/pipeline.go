package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"psfd/internal/jobs"
	"psfd/internal/logging"
	"psfd/internal/store"
)

// Pipeline holds the shared dependencies of the generation handlers.
type Pipeline struct {
	store  *store.Store
	logger *slog.Logger
}

// NewRegistry builds the handler registry the runner executes.
func NewRegistry(st *store.Store, logger *slog.Logger) *jobs.Registry {
	p := &Pipeline{
		store:  st,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
	registry := jobs.NewRegistry()
	registry.Register(jobs.TypeAnalyzeInputs, jobs.HandlerFunc(p.AnalyzeInputs))
	registry.Register(jobs.TypeGenerateHypotheses, jobs.HandlerFunc(p.GenerateHypotheses))
	registry.Register(jobs.TypeRunDesktopResearch, jobs.HandlerFunc(p.RunDesktopResearch))
	registry.Register(jobs.TypeGeneratePersonaPack, jobs.HandlerFunc(p.GeneratePersonaPack))
	registry.Register(jobs.TypeExtractChatInsights, jobs.HandlerFunc(p.ExtractChatInsights))
	registry.Register(jobs.TypeAssemblePSFReport, jobs.HandlerFunc(p.AssemblePSFReport))
	return registry
}

// fieldSpec drives both the vagueness critique and claim extraction for
// one value-proposition field.
type fieldSpec struct {
	name     string
	category string
	domain   string
	question string
	value    func(*store.CVPInputs) string
}

var cvpFields = []fieldSpec{
	{
		name:     "for_who",
		category: "customer_specificity",
		domain:   DomainSegmentReachability,
		question: "Which specific group of people is this for, and where do they gather?",
		value:    func(in *store.CVPInputs) string { return in.ForWho },
	},
	{
		name:     "in_situation",
		category: "trigger_context",
		domain:   DomainSegmentReachability,
		question: "What concrete moment triggers the need?",
		value:    func(in *store.CVPInputs) string { return in.InSituation },
	},
	{
		name:     "struggles_with",
		category: "problem_consequence",
		domain:   DomainPainSeverityFrequency,
		question: "What does the struggle cost them, and how often does it happen?",
		value:    func(in *store.CVPInputs) string { return in.StrugglesWith },
	},
	{
		name:     "current_workaround",
		category: "workaround",
		domain:   DomainWorkaroundInadequacy,
		question: "What do they do about it today, and where does that fall short?",
		value:    func(in *store.CVPInputs) string { return in.CurrentWorkaround },
	},
	{
		name:     "we_offer",
		category: "outcome_value",
		domain:   DomainAdoptionSwitching,
		question: "What exactly would they adopt, in one sentence?",
		value:    func(in *store.CVPInputs) string { return in.WeOffer },
	},
	{
		name:     "so_they_get",
		category: "outcome_value",
		domain:   DomainBuyerPayment,
		question: "What outcome would they pay for, and how would they notice it?",
		value:    func(in *store.CVPInputs) string { return in.SoTheyGet },
	},
	{
		name:     "unlike",
		category: "workaround",
		domain:   DomainAdoptionSwitching,
		question: "What would they have to stop using to switch?",
		value:    func(in *store.CVPInputs) string { return in.Unlike },
	},
	{
		name:     "because",
		category: "outcome_value",
		domain:   DomainBuyerPayment,
		question: "Why should they believe the outcome claim?",
		value:    func(in *store.CVPInputs) string { return in.Because },
	},
}

// minFieldLength is the cutoff below which a field reads as a
// placeholder rather than a statement.
const minFieldLength = 12

// AnalyzeInputs critiques the captured inputs and extracts their claims.
func (p *Pipeline) AnalyzeInputs(ctx context.Context, sessionID string) (json.RawMessage, error) {
	inputs, err := p.store.GetCVPInputs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load inputs: %w", err)
	}
	if inputs == nil {
		return nil, fmt.Errorf("no value proposition inputs recorded")
	}

	report := VaguenessReport{Issues: []VaguenessIssue{}}
	claims := ClaimMap{Claims: []Claim{}}
	for _, field := range cvpFields {
		text := strings.TrimSpace(field.value(inputs))
		if len(text) < minFieldLength {
			description := "field is empty"
			if text != "" {
				description = "statement is too short to be testable"
			}
			report.Issues = append(report.Issues, VaguenessIssue{
				Category:    field.category,
				Field:       field.name,
				Description: description,
				Question:    field.question,
			})
			continue
		}
		claims.Claims = append(claims.Claims, Claim{
			Source: field.name,
			Text:   text,
			Domain: field.domain,
		})
	}

	if err := p.save(ctx, sessionID, ArtifactVaguenessReport, report); err != nil {
		return nil, err
	}
	if err := p.save(ctx, sessionID, ArtifactClaimMap, claims); err != nil {
		return nil, err
	}
	return p.summary(map[string]int{"issues": len(report.Issues), "claims": len(claims.Claims)})
}

// GenerateHypotheses turns the claim map into a falsifiable pool, one
// hypothesis per hypothesis domain that has at least one claim.
func (p *Pipeline) GenerateHypotheses(ctx context.Context, sessionID string) (json.RawMessage, error) {
	claims, err := p.loadClaimMap(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	inputs, err := p.store.GetCVPInputs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load inputs: %w", err)
	}
	segment := "the target segment"
	situation := "their current situation"
	if inputs != nil {
		if s := strings.TrimSpace(inputs.ForWho); s != "" {
			segment = s
		}
		if s := strings.TrimSpace(inputs.InSituation); s != "" {
			situation = s
		}
	}

	byDomain := map[string]Claim{}
	for _, claim := range claims.Claims {
		if _, taken := byDomain[claim.Domain]; !taken {
			byDomain[claim.Domain] = claim
		}
	}

	pool := HypothesisPool{Hypotheses: []Hypothesis{}}
	domains := []string{
		DomainSegmentReachability,
		DomainPainSeverityFrequency,
		DomainWorkaroundInadequacy,
		DomainBuyerPayment,
		DomainAdoptionSwitching,
	}
	for _, domain := range domains {
		claim, ok := byDomain[domain]
		if !ok {
			continue
		}
		n := len(pool.Hypotheses) + 1
		pool.Hypotheses = append(pool.Hypotheses, Hypothesis{
			ID:              fmt.Sprintf("hyp-%d", n),
			Domain:          domain,
			Segment:         segment,
			Context:         situation,
			Claim:           claim.Text,
			Measure:         fmt.Sprintf("at least 3 of 5 interviewees in %s confirm: %s", segment, claim.Text),
			Disproof:        fmt.Sprintf("fewer than 2 of 5 interviewees recognize: %s", claim.Text),
			EvidenceSources: []string{},
			Status:          "unknown",
			Confidence:      "low",
		})
	}
	if len(pool.Hypotheses) == 0 {
		return nil, fmt.Errorf("claim map contains no usable claims")
	}

	if err := p.save(ctx, sessionID, ArtifactHypothesisPool, pool); err != nil {
		return nil, err
	}
	return p.summary(map[string]int{"hypotheses": len(pool.Hypotheses)})
}

// RunDesktopResearch drafts one desk-research query per hypothesis.
func (p *Pipeline) RunDesktopResearch(ctx context.Context, sessionID string) (json.RawMessage, error) {
	pool, err := p.loadHypothesisPool(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	brief := ResearchBrief{Queries: []ResearchQuery{}}
	for _, hyp := range pool.Hypotheses {
		brief.Queries = append(brief.Queries, ResearchQuery{
			HypothesisID: hyp.ID,
			Query:        fmt.Sprintf("evidence that %s (%s)", hyp.Claim, hyp.Segment),
			Sources:      []string{"industry_reports", "community_forums", "competitor_sites"},
		})
	}

	if err := p.save(ctx, sessionID, ArtifactResearchBrief, brief); err != nil {
		return nil, err
	}
	return p.summary(map[string]int{"queries": len(brief.Queries)})
}

// GeneratePersonaPack sketches three interviewee archetypes from the
// inputs and the hypothesis pool.
func (p *Pipeline) GeneratePersonaPack(ctx context.Context, sessionID string) (json.RawMessage, error) {
	if _, err := p.loadHypothesisPool(ctx, sessionID); err != nil {
		return nil, err
	}
	inputs, err := p.store.GetCVPInputs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load inputs: %w", err)
	}
	if inputs == nil {
		return nil, fmt.Errorf("no value proposition inputs recorded")
	}

	segment := textOr(inputs.ForWho, "the target segment")
	situation := textOr(inputs.InSituation, "their day to day")
	pain := textOr(inputs.StrugglesWith, "the stated struggle")
	workaround := textOr(inputs.CurrentWorkaround, "improvised tooling")
	gain := textOr(inputs.SoTheyGet, "the promised outcome")

	pack := PersonaPack{Personas: []Persona{
		{
			Name:       "The Committed",
			Segment:    segment,
			Situation:  situation,
			Pain:       pain,
			Workaround: workaround,
			Gain:       gain,
		},
		{
			Name:       "The Pragmatist",
			Segment:    segment,
			Situation:  situation,
			Pain:       pain,
			Workaround: "has settled into " + workaround + " and tolerates it",
			Gain:       gain,
		},
		{
			Name:       "The Skeptic",
			Segment:    segment,
			Situation:  situation,
			Pain:       "doubts that " + pain + " is worth solving",
			Workaround: workaround,
			Gain:       "would need proof before valuing " + gain,
		},
	}}

	if err := p.save(ctx, sessionID, ArtifactPersonaPack, pack); err != nil {
		return nil, err
	}
	return p.summary(map[string]int{"personas": len(pack.Personas)})
}

// chatCategories cycles over the clarifier question categories when
// tagging extracted quotes.
var chatCategories = []string{
	"customer_specificity",
	"trigger_context",
	"problem_consequence",
	"workaround",
	"outcome_value",
}

// ExtractChatInsights pulls the user's side of the clarifier transcript
// into categorized quotes.
func (p *Pipeline) ExtractChatInsights(ctx context.Context, sessionID string) (json.RawMessage, error) {
	messages, err := p.store.ChatMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load chat transcript: %w", err)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no chat transcript recorded")
	}

	extract := ChatExtract{Turns: len(messages), Insights: []ChatInsight{}}
	for _, msg := range messages {
		if msg.Role != "user" {
			continue
		}
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		extract.Insights = append(extract.Insights, ChatInsight{
			Category: chatCategories[len(extract.Insights)%len(chatCategories)],
			Quote:    content,
		})
	}

	if err := p.save(ctx, sessionID, ArtifactChatExtract, extract); err != nil {
		return nil, err
	}
	return p.summary(map[string]int{"turns": extract.Turns, "insights": len(extract.Insights)})
}

// AssemblePSFReport stitches the prior artifacts into the final report.
// The hypothesis pool is required; the other sections are included when
// present.
func (p *Pipeline) AssemblePSFReport(ctx context.Context, sessionID string) (json.RawMessage, error) {
	pool, err := p.store.LatestArtifact(ctx, sessionID, ArtifactHypothesisPool)
	if err != nil {
		return nil, fmt.Errorf("load hypothesis pool: %w", err)
	}
	if pool == nil {
		return nil, fmt.Errorf("no hypothesis pool generated")
	}
	inputs, err := p.store.GetCVPInputs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load inputs: %w", err)
	}
	if inputs == nil {
		return nil, fmt.Errorf("no value proposition inputs recorded")
	}

	report := PSFReport{
		ValueProposition: composeValueProposition(inputs),
		Hypotheses:       json.RawMessage(pool.Payload),
	}
	sections := 2
	optional := []struct {
		artifactType string
		target       *json.RawMessage
	}{
		{ArtifactVaguenessReport, &report.Vagueness},
		{ArtifactResearchBrief, &report.Research},
		{ArtifactPersonaPack, &report.Personas},
		{ArtifactChatExtract, &report.ChatInsights},
	}
	for _, section := range optional {
		artifact, err := p.store.LatestArtifact(ctx, sessionID, section.artifactType)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", section.artifactType, err)
		}
		if artifact != nil {
			*section.target = json.RawMessage(artifact.Payload)
			sections++
		}
	}

	if err := p.save(ctx, sessionID, ArtifactPSFReport, report); err != nil {
		return nil, err
	}
	return p.summary(map[string]int{"sections": sections})
}

func (p *Pipeline) loadClaimMap(ctx context.Context, sessionID string) (*ClaimMap, error) {
	artifact, err := p.store.LatestArtifact(ctx, sessionID, ArtifactClaimMap)
	if err != nil {
		return nil, fmt.Errorf("load claim map: %w", err)
	}
	if artifact == nil {
		return nil, fmt.Errorf("input analysis has not produced a claim map")
	}
	var claims ClaimMap
	if err := json.Unmarshal([]byte(artifact.Payload), &claims); err != nil {
		return nil, fmt.Errorf("decode claim map: %w", err)
	}
	return &claims, nil
}

func (p *Pipeline) loadHypothesisPool(ctx context.Context, sessionID string) (*HypothesisPool, error) {
	artifact, err := p.store.LatestArtifact(ctx, sessionID, ArtifactHypothesisPool)
	if err != nil {
		return nil, fmt.Errorf("load hypothesis pool: %w", err)
	}
	if artifact == nil {
		return nil, fmt.Errorf("no hypothesis pool generated")
	}
	var pool HypothesisPool
	if err := json.Unmarshal([]byte(artifact.Payload), &pool); err != nil {
		return nil, fmt.Errorf("decode hypothesis pool: %w", err)
	}
	return &pool, nil
}

func (p *Pipeline) save(ctx context.Context, sessionID, artifactType string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", artifactType, err)
	}
	if _, err := p.store.SaveArtifact(ctx, sessionID, artifactType, string(encoded)); err != nil {
		return fmt.Errorf("save %s: %w", artifactType, err)
	}
	p.logger.Info("artifact saved",
		logging.String(logging.FieldSessionID, sessionID),
		logging.String("artifact_type", artifactType),
	)
	return nil
}

func (p *Pipeline) summary(counts map[string]int) (json.RawMessage, error) {
	encoded, err := json.Marshal(counts)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return encoded, nil
}

func composeValueProposition(in *store.CVPInputs) string {
	parts := []string{}
	if s := strings.TrimSpace(in.ForWho); s != "" {
		parts = append(parts, "For "+s)
	}
	if s := strings.TrimSpace(in.InSituation); s != "" {
		parts = append(parts, "in "+s)
	}
	if s := strings.TrimSpace(in.StrugglesWith); s != "" {
		parts = append(parts, "who struggle with "+s)
	}
	if s := strings.TrimSpace(in.WeOffer); s != "" {
		parts = append(parts, "we offer "+s)
	}
	if s := strings.TrimSpace(in.SoTheyGet); s != "" {
		parts = append(parts, "so they get "+s)
	}
	if s := strings.TrimSpace(in.Unlike); s != "" {
		parts = append(parts, "unlike "+s)
	}
	if s := strings.TrimSpace(in.Because); s != "" {
		parts = append(parts, "because "+s)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ", ") + "."
}

func textOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
