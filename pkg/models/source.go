package models

import "time"

// SourceStatus marks whether a distribution call succeeded.
type SourceStatus string

const (
	// SourceStatusCollected indicates the source returned usable data.
	SourceStatusCollected SourceStatus = "collected"
	// SourceStatusFailed indicates the source errored or timed out.
	SourceStatusFailed SourceStatus = "failed"
)

// SourceResult is the outcome of querying one distribution source.
// A failed call still produces a record so the aggregation stage can
// report degraded coverage instead of losing the information.
type SourceResult struct {
	// SourceID identifies the source that produced this record.
	SourceID string `json:"source_id"`
	// SourceType is the source kind (general, code, documentation, ...).
	SourceType string `json:"source_type"`
	// Data is the payload returned by the source.
	Data any `json:"data,omitempty"`
	// Confidence is the source's trust score, clamped to [0,1].
	Confidence float64 `json:"confidence"`
	// Metadata carries source-specific details (model name, latency, ...).
	Metadata map[string]any `json:"metadata,omitempty"`
	// Timestamp is when the result was produced.
	Timestamp time.Time `json:"timestamp"`
	// Status marks the call as collected or failed.
	Status SourceStatus `json:"status"`
	// Error contains the failure reason for failed records.
	Error string `json:"error,omitempty"`
}

// Failed returns true if the record represents a failed source call.
func (r *SourceResult) Failed() bool {
	return r.Status == SourceStatusFailed
}

// ClampConfidence forces the confidence into [0,1].
func (r *SourceResult) ClampConfidence() {
	r.Confidence = Clamp01(r.Confidence)
}

// Clamp01 clamps v to the [0,1] range. Every confidence or score in the
// system passes through this before being stored.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
