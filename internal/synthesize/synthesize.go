// Package synthesize turns an aggregated evidence structure into the
// final response. The Synthesizer interface is the pluggable contract;
// the built-in template implementation is deterministic so the pipeline
// works end to end without external inference.
package synthesize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mosaic-agent/mosaic/pkg/models"
)

// ErrNilInput indicates Synthesize was called without its inputs.
var ErrNilInput = errors.New("refined prompt and aggregated structure are required")

// Synthesizer produces the final response from the refined prompt and
// the aggregated evidence.
type Synthesizer interface {
	Synthesize(refined *models.RefinedPrompt, agg *models.AggregatedStructure) (*models.SynthesisResult, error)
}

// TemplateSynthesizer assembles the response from the aggregated main
// content, guided by the stage instructions from refinement.
type TemplateSynthesizer struct{}

// NewTemplate creates the built-in deterministic synthesizer.
func NewTemplate() *TemplateSynthesizer {
	return &TemplateSynthesizer{}
}

// Synthesize builds the response text, a short summary, a quality grade
// and follow-up recommendations derived from the quality sub-scores.
func (s *TemplateSynthesizer) Synthesize(refined *models.RefinedPrompt, agg *models.AggregatedStructure) (*models.SynthesisResult, error) {
	if refined == nil || agg == nil {
		return nil, ErrNilInput
	}
	start := time.Now()

	var b strings.Builder
	for i, src := range agg.MainContent {
		text := contentText(src.Data)
		if text == "" {
			continue
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	content := b.String()
	if content == "" {
		content = "No usable content was collected for this request."
	}

	if refined.Instructions.Synthesis != "" {
		content += "\n\n" + "Guidance applied: " + refined.Instructions.Synthesis
	}

	quality := qualityScore(agg.Quality)

	return &models.SynthesisResult{
		Content:         content,
		Summary:         summarize(content),
		QualityScore:    quality,
		ConfidenceLevel: confidenceLevel(agg.Metadata.OverallConfidence),
		Duration:        time.Since(start),
		Recommendations: recommendations(agg),
	}, nil
}

// qualityScore averages the three quality sub-scores.
func qualityScore(q models.QualityScores) float64 {
	return models.Clamp01((q.Completeness + q.Consistency + q.Reliability) / 3)
}

// confidenceLevel grades a numeric confidence into low/medium/high.
func confidenceLevel(confidence float64) models.SignalLevel {
	switch {
	case confidence >= 0.75:
		return models.SignalHigh
	case confidence >= 0.45:
		return models.SignalMedium
	default:
		return models.SignalLow
	}
}

// summarize keeps the first sentence of the content, capped at 200
// characters.
func summarize(content string) string {
	summary := content
	if i := strings.IndexAny(summary, ".\n"); i > 0 {
		summary = summary[:i+1]
	}
	summary = strings.TrimSpace(strings.TrimSuffix(summary, "\n"))
	if len(summary) > 200 {
		summary = summary[:200]
	}
	return summary
}

// recommendations derives follow-up suggestions from the weak spots of
// the aggregation.
func recommendations(agg *models.AggregatedStructure) []string {
	var out []string
	if agg.Quality.Completeness < 0.5 {
		out = append(out, "Add more sources or rephrase the request; coverage of the prompt was low.")
	}
	if agg.Quality.Consistency < 0.5 {
		out = append(out, "Sources disagreed; review the alternatives before relying on the main answer.")
	}
	if agg.Metadata.OverallConfidence < 0.45 {
		out = append(out, "Overall confidence is low; verify the answer independently.")
	}
	if n := len(agg.Alternatives); n > 0 {
		out = append(out, fmt.Sprintf("%d alternative interpretation(s) were recorded.", n))
	}
	return out
}

func contentText(data any) string {
	switch t := data.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
