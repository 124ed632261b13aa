package synthesize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mosaic-agent/mosaic/internal/agent"
	"github.com/mosaic-agent/mosaic/internal/guard"
	"github.com/mosaic-agent/mosaic/pkg/models"
)

func aggregated(confidence float64, contents ...string) *models.AggregatedStructure {
	agg := &models.AggregatedStructure{
		Quality: models.QualityScores{Completeness: 0.8, Consistency: 0.7, Reliability: confidence},
		Metadata: models.AggregateMetadata{
			SourceCount:       len(contents),
			OverallConfidence: confidence,
			Strategy:          models.StrategyWeighted,
			AggregatedAt:      time.Now().UTC(),
		},
	}
	for i, c := range contents {
		agg.MainContent = append(agg.MainContent, models.SourceResult{
			SourceID:   string(rune('a' + i)),
			Data:       c,
			Confidence: confidence,
			Status:     models.SourceStatusCollected,
		})
	}
	return agg
}

func TestSynthesizeAssemblesContent(t *testing.T) {
	s := NewTemplate()
	refined := &models.RefinedPrompt{
		Refined: "describe lighthouses",
		Instructions: models.StageInstructions{
			Synthesis: "keep it short",
		},
	}

	res, err := s.Synthesize(refined, aggregated(0.8, "First block. More text.", "Second block."))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Content, "First block.") || !strings.Contains(res.Content, "Second block.") {
		t.Errorf("content missing source blocks:\n%s", res.Content)
	}
	if !strings.Contains(res.Content, "keep it short") {
		t.Errorf("content missing synthesis guidance")
	}
	if res.Summary != "First block." {
		t.Errorf("summary = %q", res.Summary)
	}
	if res.ConfidenceLevel != models.SignalHigh {
		t.Errorf("confidence level = %s, want high", res.ConfidenceLevel)
	}
	if res.QualityScore <= 0 || res.QualityScore > 1 {
		t.Errorf("quality score = %v", res.QualityScore)
	}
}

func TestSynthesizeEmptyContent(t *testing.T) {
	s := NewTemplate()

	res, err := s.Synthesize(&models.RefinedPrompt{Refined: "x"}, aggregated(0.2))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Content, "No usable content") {
		t.Errorf("content = %q", res.Content)
	}
	if res.ConfidenceLevel != models.SignalLow {
		t.Errorf("confidence level = %s, want low", res.ConfidenceLevel)
	}
}

func TestSynthesizeNilInputs(t *testing.T) {
	s := NewTemplate()
	if _, err := s.Synthesize(nil, aggregated(0.5)); !errors.Is(err, ErrNilInput) {
		t.Errorf("nil refined: got %v", err)
	}
	if _, err := s.Synthesize(&models.RefinedPrompt{}, nil); !errors.Is(err, ErrNilInput) {
		t.Errorf("nil aggregated: got %v", err)
	}
}

func TestRecommendations(t *testing.T) {
	agg := aggregated(0.3, "short")
	agg.Quality = models.QualityScores{Completeness: 0.2, Consistency: 0.4, Reliability: 0.3}
	agg.Alternatives = []models.ConsensusGroup{{Key: "other view"}}

	got := recommendations(agg)
	if len(got) != 4 {
		t.Fatalf("recommendations = %d, want 4: %v", len(got), got)
	}

	solid := aggregated(0.9, "content")
	if got := recommendations(solid); len(got) != 0 {
		t.Errorf("solid aggregation produced recommendations: %v", got)
	}
}

func TestConfidenceLevels(t *testing.T) {
	tests := []struct {
		confidence float64
		want       models.SignalLevel
	}{
		{0.9, models.SignalHigh},
		{0.75, models.SignalHigh},
		{0.6, models.SignalMedium},
		{0.45, models.SignalMedium},
		{0.2, models.SignalLow},
	}
	for _, tt := range tests {
		if got := confidenceLevel(tt.confidence); got != tt.want {
			t.Errorf("confidenceLevel(%v) = %s, want %s", tt.confidence, got, tt.want)
		}
	}
}

func TestAgentProcessTask(t *testing.T) {
	a := NewAgent(nil, agent.DefaultConfig(), guard.New())

	req := &Request{
		Refined:    &models.RefinedPrompt{Refined: "describe lighthouses"},
		Aggregated: aggregated(0.8, "A lighthouse guides ships."),
	}
	res, err := a.ProcessTask(context.Background(), &models.Task{ID: "t1", Payload: req})
	if err != nil {
		t.Fatal(err)
	}
	sr, ok := res.(*models.SynthesisResult)
	if !ok {
		t.Fatalf("result type %T", res)
	}
	if sr.Summary == "" {
		t.Error("empty summary")
	}
}
