// Package collect implements the collection stage: it normalizes,
// cleans, validates and aggregates the source results for one request
// into a single evidence structure.
package collect

import (
	"errors"
	"fmt"
	"time"

	"github.com/mosaic-agent/mosaic/pkg/models"
)

var (
	// ErrTooManySources indicates the input exceeds the source cap.
	ErrTooManySources = errors.New("too many sources")
	// ErrNoValidSources indicates validation rejected every source.
	ErrNoValidSources = errors.New("no valid sources")
)

// Options configure the collection pipeline. Each optional step can be
// switched off independently.
type Options struct {
	// MaxDataSources caps how many source records one request may carry.
	MaxDataSources int
	// Strategy selects the aggregation algorithm.
	Strategy models.AggregationStrategy
	// CleanEnabled toggles the recursive data cleaning step.
	CleanEnabled bool
	// ValidateEnabled toggles the validation step. When off, every
	// collected record is treated as valid with score 1.
	ValidateEnabled bool
	// StaleAfter is the age past which a record is considered stale.
	StaleAfter time.Duration
}

// DefaultOptions returns the collection defaults.
func DefaultOptions() Options {
	return Options{
		MaxDataSources:  10,
		Strategy:        models.StrategyWeighted,
		CleanEnabled:    true,
		ValidateEnabled: true,
		StaleAfter:      time.Hour,
	}
}

// Collector runs the collection pipeline.
type Collector struct {
	opts Options
}

// New creates a Collector. Invalid option values fall back to defaults.
func New(opts Options) *Collector {
	if opts.MaxDataSources <= 0 {
		opts.MaxDataSources = DefaultOptions().MaxDataSources
	}
	if !opts.Strategy.Valid() {
		opts.Strategy = models.StrategyWeighted
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = time.Hour
	}
	return &Collector{opts: opts}
}

// CollectAndAggregate runs the full pipeline over the source results of
// one request. The refined prompt provides the keywords for coverage
// measurement. Failed source records are retained through validation so
// degraded coverage is visible, but only valid records aggregate.
func (c *Collector) CollectAndAggregate(refined *models.RefinedPrompt, results []*models.SourceResult, _ map[string]any) (*models.AggregatedStructure, error) {
	if len(results) > c.opts.MaxDataSources {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManySources, len(results), c.opts.MaxDataSources)
	}

	records := c.normalize(results)

	if c.opts.CleanEnabled {
		for i := range records {
			records[i].Data = Clean(records[i].Data)
		}
	}

	var validations []models.SourceValidation
	if c.opts.ValidateEnabled {
		validations = c.Validate(records)
	} else {
		validations = make([]models.SourceValidation, len(records))
		for i, r := range records {
			validations[i] = models.SourceValidation{SourceID: r.SourceID, IsValid: true, Score: 1}
		}
	}

	valid, scores := splitValid(records, validations)
	if len(valid) == 0 {
		return nil, ErrNoValidSources
	}

	return c.aggregate(refined, valid, scores)
}

// normalize copies the inbound records, dropping nils, clamping
// confidences and stamping missing timestamps.
func (c *Collector) normalize(results []*models.SourceResult) []models.SourceResult {
	out := make([]models.SourceResult, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		rec := *r
		rec.Confidence = models.Clamp01(rec.Confidence)
		if rec.Timestamp.IsZero() {
			rec.Timestamp = time.Now().UTC()
		}
		out = append(out, rec)
	}
	return out
}

// splitValid partitions the records by validation verdict, keeping each
// valid record paired with its score.
func splitValid(records []models.SourceResult, validations []models.SourceValidation) ([]models.SourceResult, []float64) {
	var valid []models.SourceResult
	var scores []float64
	for i, v := range validations {
		if v.IsValid {
			valid = append(valid, records[i])
			scores = append(scores, v.Score)
		}
	}
	return valid, scores
}
