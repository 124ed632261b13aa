package models

// PromptType classifies the user's intent.
type PromptType string

const (
	// PromptTypeCoding covers requests to write or fix code.
	PromptTypeCoding PromptType = "coding"
	// PromptTypeExplanation covers requests to explain something.
	PromptTypeExplanation PromptType = "explanation"
	// PromptTypeGeneration covers requests to produce non-code content.
	PromptTypeGeneration PromptType = "generation"
	// PromptTypeAnalysis covers requests to analyze or compare.
	PromptTypeAnalysis PromptType = "analysis"
	// PromptTypeGeneral is the fallback classification.
	PromptTypeGeneral PromptType = "general"
)

// Valid returns true if the type is one of the five defined categories.
func (t PromptType) Valid() bool {
	switch t {
	case PromptTypeCoding, PromptTypeExplanation, PromptTypeGeneration,
		PromptTypeAnalysis, PromptTypeGeneral:
		return true
	default:
		return false
	}
}

// PromptDomain classifies the technical domain of a prompt.
type PromptDomain string

const (
	// DomainWeb covers frontend and web technologies.
	DomainWeb PromptDomain = "web"
	// DomainBackend covers servers, APIs and databases.
	DomainBackend PromptDomain = "backend"
	// DomainMobile covers mobile platforms.
	DomainMobile PromptDomain = "mobile"
	// DomainData covers data processing and machine learning.
	DomainData PromptDomain = "data"
	// DomainGeneral is the fallback domain.
	DomainGeneral PromptDomain = "general"
)

// Valid returns true if the domain is a known value.
func (d PromptDomain) Valid() bool {
	switch d {
	case DomainWeb, DomainBackend, DomainMobile, DomainData, DomainGeneral:
		return true
	default:
		return false
	}
}

// SignalLevel grades a qualitative prompt signal.
type SignalLevel string

const (
	// SignalLow is the weakest grade.
	SignalLow SignalLevel = "low"
	// SignalMedium is the intermediate grade.
	SignalMedium SignalLevel = "medium"
	// SignalHigh is the strongest grade.
	SignalHigh SignalLevel = "high"
)

// Complexity grades the size of a request.
type Complexity string

const (
	// ComplexitySimple is for short requests (under 10 words).
	ComplexitySimple Complexity = "simple"
	// ComplexityMedium is for mid-sized requests (under 30 words).
	ComplexityMedium Complexity = "medium"
	// ComplexityComplex is for everything larger.
	ComplexityComplex Complexity = "complex"
)

// PromptAnalysis holds the signals extracted from a raw prompt.
type PromptAnalysis struct {
	// Type is the intent classification.
	Type PromptType `json:"type"`
	// Domain is the technical domain classification.
	Domain PromptDomain `json:"domain"`
	// Complexity grades the request size.
	Complexity Complexity `json:"complexity"`
	// Clarity grades how unambiguous the request is.
	Clarity SignalLevel `json:"clarity"`
	// Specificity grades how many qualifying details the request carries.
	Specificity SignalLevel `json:"specificity"`
	// Actionability grades whether the request names an action and constraints.
	Actionability SignalLevel `json:"actionability"`
}

// StageInstructions carries per-stage guidance generated during refinement.
type StageInstructions struct {
	// Collection guides the aggregation stage (e.g. which strategy fits).
	Collection string `json:"collection,omitempty"`
	// Synthesis guides the synthesis stage (tone, structure, depth).
	Synthesis string `json:"synthesis,omitempty"`
}

// RefinedPrompt is the immutable output of the refinement stage. Every
// later stage consumes it; none may modify it.
type RefinedPrompt struct {
	// Original is the raw user prompt.
	Original string `json:"original"`
	// Refined is the rewritten, structured prompt text.
	Refined string `json:"refined"`
	// Analysis holds the extracted signals.
	Analysis PromptAnalysis `json:"analysis"`
	// SubPrompts are generated decompositions of the request, if enabled.
	SubPrompts []string `json:"sub_prompts,omitempty"`
	// Instructions carry guidance for the downstream stages.
	Instructions StageInstructions `json:"instructions"`
}
