package jobs

import "strings"

// Type identifies a stage-generation task.
type Type string

const (
	TypeAnalyzeInputs       Type = "analyze_inputs"
	TypeGenerateHypotheses  Type = "generate_hypotheses"
	TypeRunDesktopResearch  Type = "run_desktop_research"
	TypeGeneratePersonaPack Type = "generate_persona_pack"
	TypeExtractChatInsights Type = "extract_chat_insights"
	TypeAssemblePSFReport   Type = "assemble_psf_report"
)

var allTypes = []Type{
	TypeAnalyzeInputs,
	TypeGenerateHypotheses,
	TypeRunDesktopResearch,
	TypeGeneratePersonaPack,
	TypeExtractChatInsights,
	TypeAssemblePSFReport,
}

var typeSet = func() map[Type]struct{} {
	set := make(map[Type]struct{}, len(allTypes))
	for _, t := range allTypes {
		set[t] = struct{}{}
	}
	return set
}()

// AllTypes returns the ordered list of known job types.
func AllTypes() []Type {
	cp := make([]Type, len(allTypes))
	copy(cp, allTypes)
	return cp
}

// ParseType converts a string into a known Type.
func ParseType(value string) (Type, bool) {
	normalized := Type(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := typeSet[normalized]
	return normalized, ok
}

// Known reports whether t is one of the six generation-task tokens.
func Known(t Type) bool {
	_, ok := typeSet[t]
	return ok
}
