package models

import "time"

// SynthesisResult is the final response contract produced by the synthesis
// stage. The synthesis internals are a collaborator; the core only depends
// on this shape.
type SynthesisResult struct {
	// Content is the final response text.
	Content string `json:"content"`
	// Summary is a short abstract of the response.
	Summary string `json:"summary"`
	// QualityScore grades the response in [0,1].
	QualityScore float64 `json:"quality_score"`
	// ConfidenceLevel is the qualitative confidence grade.
	ConfidenceLevel SignalLevel `json:"confidence_level"`
	// Duration is how long synthesis took.
	Duration time.Duration `json:"duration"`
	// Recommendations lists follow-up suggestions.
	Recommendations []string `json:"recommendations,omitempty"`
}

// PipelineAgents names the agents that served a request.
type PipelineAgents struct {
	// Refinement is the refinement agent ID.
	Refinement string `json:"refinement"`
	// Collection is the collection agent ID.
	Collection string `json:"collection"`
	// Synthesis is the synthesis agent ID.
	Synthesis string `json:"synthesis"`
}

// OrchestrationDetail exposes the workflow internals to the caller.
type OrchestrationDetail struct {
	// Workflow is the completed workflow record, including its log.
	Workflow *Workflow `json:"workflow"`
	// Steps maps step names to their results.
	Steps map[string]*StepResult `json:"steps"`
	// Metrics is the process-wide metrics snapshot taken at completion.
	Metrics MetricsSnapshot `json:"metrics"`
}

// OrchestrationResult is the shape returned to the transport/UI layer for
// every processed request.
type OrchestrationResult struct {
	// RequestID is the unique identifier assigned to the request.
	RequestID string `json:"request_id"`
	// OriginalPrompt is the raw prompt as received.
	OriginalPrompt string `json:"original_prompt"`
	// Orchestration exposes workflow, step and metrics details.
	Orchestration OrchestrationDetail `json:"orchestration"`
	// Agents names the agents that served the request.
	Agents PipelineAgents `json:"agents"`
	// Result is the final synthesized response, nil when the workflow failed
	// before synthesis.
	Result *SynthesisResult `json:"result,omitempty"`
	// Metadata carries request-scoped extras (timings, strategy).
	Metadata map[string]any `json:"metadata,omitempty"`
}
