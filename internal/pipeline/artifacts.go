package pipeline

import "encoding/json"

// Artifact type tokens as stored on artifact rows.
const (
	ArtifactVaguenessReport = "vagueness_report"
	ArtifactClaimMap        = "claim_map"
	ArtifactHypothesisPool  = "hypothesis_pool"
	ArtifactResearchBrief   = "research_brief"
	ArtifactPersonaPack     = "persona_pack"
	ArtifactChatExtract     = "chat_extract"
	ArtifactPSFReport       = "psf_report"
)

// Hypothesis domains.
const (
	DomainSegmentReachability   = "segment_reachability"
	DomainPainSeverityFrequency = "pain_severity_frequency"
	DomainWorkaroundInadequacy  = "workaround_inadequacy"
	DomainBuyerPayment          = "buyer_payment"
	DomainAdoptionSwitching     = "adoption_switching"
)

// VaguenessIssue flags a value-proposition field that needs sharpening.
type VaguenessIssue struct {
	Category    string `json:"category"`
	Field       string `json:"field"`
	Description string `json:"description"`
	Question    string `json:"question"`
}

// VaguenessReport is the analyze_inputs critique of the captured inputs.
type VaguenessReport struct {
	Issues []VaguenessIssue `json:"issues"`
}

// Claim is a testable assertion extracted from one input field.
type Claim struct {
	Source string `json:"source"`
	Text   string `json:"text"`
	Domain string `json:"domain"`
}

// ClaimMap groups the extracted claims by their source field.
type ClaimMap struct {
	Claims []Claim `json:"claims"`
}

// Hypothesis is one falsifiable statement in the pool.
type Hypothesis struct {
	ID              string   `json:"id"`
	Domain          string   `json:"domain"`
	Segment         string   `json:"segment"`
	Context         string   `json:"context"`
	Claim           string   `json:"claim"`
	Measure         string   `json:"measure"`
	Disproof        string   `json:"disproof"`
	EvidenceSources []string `json:"evidenceSources"`
	Status          string   `json:"status"`
	Confidence      string   `json:"confidence"`
}

// HypothesisPool is the generate_hypotheses output.
type HypothesisPool struct {
	Hypotheses []Hypothesis `json:"hypotheses"`
}

// ResearchQuery is one desk-research task tied to a hypothesis.
type ResearchQuery struct {
	HypothesisID string   `json:"hypothesisId"`
	Query        string   `json:"query"`
	Sources      []string `json:"sources"`
}

// ResearchBrief is the run_desktop_research output.
type ResearchBrief struct {
	Queries []ResearchQuery `json:"queries"`
}

// Persona sketches one interviewee archetype.
type Persona struct {
	Name       string `json:"name"`
	Segment    string `json:"segment"`
	Situation  string `json:"situation"`
	Pain       string `json:"pain"`
	Workaround string `json:"workaround"`
	Gain       string `json:"gain"`
}

// PersonaPack is the generate_persona_pack output.
type PersonaPack struct {
	Personas []Persona `json:"personas"`
}

// ChatInsight is one categorized quote pulled from the clarifier chat.
type ChatInsight struct {
	Category string `json:"category"`
	Quote    string `json:"quote"`
}

// ChatExtract is the extract_chat_insights output.
type ChatExtract struct {
	Turns    int           `json:"turns"`
	Insights []ChatInsight `json:"insights"`
}

// PSFReport stitches the prior artifacts into the final document. The
// sub-artifact sections carry the stored payloads verbatim; absent
// optional sections are null.
type PSFReport struct {
	ValueProposition string          `json:"valueProposition"`
	Vagueness        json.RawMessage `json:"vagueness,omitempty"`
	Hypotheses       json.RawMessage `json:"hypotheses"`
	Research         json.RawMessage `json:"research,omitempty"`
	Personas         json.RawMessage `json:"personas,omitempty"`
	ChatInsights     json.RawMessage `json:"chatInsights,omitempty"`
}
