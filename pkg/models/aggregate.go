package models

import "time"

// AggregationStrategy selects the algorithm used to combine source results.
type AggregationStrategy string

const (
	// StrategyWeighted ranks sources by confidence times validation score.
	StrategyWeighted AggregationStrategy = "weighted"
	// StrategyConsensus groups sources by content similarity.
	StrategyConsensus AggregationStrategy = "consensus"
	// StrategyChronological orders sources newest first.
	StrategyChronological AggregationStrategy = "chronological"
	// StrategySimple passes sources through unchanged.
	StrategySimple AggregationStrategy = "simple"
)

// Valid returns true if the strategy is a known value.
func (s AggregationStrategy) Valid() bool {
	switch s {
	case StrategyWeighted, StrategyConsensus, StrategyChronological, StrategySimple:
		return true
	default:
		return false
	}
}

// SourceValidation is the per-source validation verdict.
type SourceValidation struct {
	// SourceID identifies the validated source record.
	SourceID string `json:"source_id"`
	// IsValid is false when any error-level issue was found.
	IsValid bool `json:"is_valid"`
	// Errors lists fatal issues (missing data).
	Errors []string `json:"errors,omitempty"`
	// Warnings lists quality issues that reduce the score only.
	Warnings []string `json:"warnings,omitempty"`
	// Score starts at 1.0 and is reduced per issue, floored at 0.
	Score float64 `json:"score"`
}

// WeightedItem is a source with its aggregation weight attached.
type WeightedItem struct {
	// Source is the underlying record.
	Source SourceResult `json:"source"`
	// ValidationScore is the score assigned by the validation step.
	ValidationScore float64 `json:"validation_score"`
	// Weight is confidence times validation score.
	Weight float64 `json:"weight"`
	// NormalizedWeight is the weight divided by the total, so all
	// normalized weights sum to 1 when the total is positive.
	NormalizedWeight float64 `json:"normalized_weight"`
}

// ConsensusGroup is a cluster of sources with similar content.
type ConsensusGroup struct {
	// Key is the similarity key the group was formed on.
	Key string `json:"key"`
	// Sources are the member records.
	Sources []SourceResult `json:"sources"`
	// TotalConfidence is the sum of member confidences.
	TotalConfidence float64 `json:"total_confidence"`
}

// QualityScores are the aggregate quality sub-scores, each in [0,1].
type QualityScores struct {
	// Completeness blends keyword coverage and source count.
	Completeness float64 `json:"completeness"`
	// Consistency is the consensus agreement level, or a fixed default
	// for strategies that do not measure agreement.
	Consistency float64 `json:"consistency"`
	// Reliability is the overall confidence.
	Reliability float64 `json:"reliability"`
}

// AggregateMetadata describes how the structure was built.
type AggregateMetadata struct {
	// SourceCount is the number of valid sources that were aggregated.
	SourceCount int `json:"source_count"`
	// OverallConfidence is the mean confidence plus a convergence bonus,
	// clamped to [0,1].
	OverallConfidence float64 `json:"overall_confidence"`
	// Coverage is the fraction of prompt keywords found in source content.
	Coverage float64 `json:"coverage"`
	// AgreementLevel is the top consensus group share (consensus only).
	AgreementLevel float64 `json:"agreement_level"`
	// Strategy is the aggregation strategy used.
	Strategy AggregationStrategy `json:"strategy"`
	// AggregatedAt is when the structure was built.
	AggregatedAt time.Time `json:"aggregated_at"`
}

// AggregatedStructure is the unified evidence structure produced once per
// request by the collection stage. Immutable after construction.
type AggregatedStructure struct {
	// MainContent holds the top-ranked sources (at most 3 for weighted and
	// simple strategies, the top consensus group for consensus).
	MainContent []SourceResult `json:"main_content"`
	// SupportingData holds the remaining sources.
	SupportingData []SourceResult `json:"supporting_data,omitempty"`
	// Evidence holds only sources with confidence above 0.7.
	Evidence []SourceResult `json:"evidence,omitempty"`
	// Alternatives holds the non-leading consensus groups.
	Alternatives []ConsensusGroup `json:"alternatives,omitempty"`
	// Quality holds the aggregate quality sub-scores.
	Quality QualityScores `json:"quality"`
	// Metadata describes the aggregation run.
	Metadata AggregateMetadata `json:"metadata"`
}
