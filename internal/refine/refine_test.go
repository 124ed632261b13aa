package refine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mosaic-agent/mosaic/internal/agent"
	"github.com/mosaic-agent/mosaic/internal/guard"
	"github.com/mosaic-agent/mosaic/pkg/models"
)

func newRefiner(t *testing.T) *Refiner {
	t.Helper()
	return New(DefaultOptions(), guard.New())
}

func TestAnalyzeClassification(t *testing.T) {
	tests := []struct {
		name       string
		prompt     string
		wantType   models.PromptType
		wantDomain models.PromptDomain
		wantCplx   models.Complexity
	}{
		{
			name:       "french coding request stays general domain",
			prompt:     "Créer une fonction JavaScript simple",
			wantType:   models.PromptTypeCoding,
			wantDomain: models.DomainGeneral,
			wantCplx:   models.ComplexitySimple,
		},
		{
			name:       "coding wins over generation",
			prompt:     "Write a function that parses dates",
			wantType:   models.PromptTypeCoding,
			wantDomain: models.DomainGeneral,
			wantCplx:   models.ComplexitySimple,
		},
		{
			name:       "explanation",
			prompt:     "Explain why the sky is blue",
			wantType:   models.PromptTypeExplanation,
			wantDomain: models.DomainGeneral,
			wantCplx:   models.ComplexitySimple,
		},
		{
			name:       "generation",
			prompt:     "Write a short story about a lighthouse keeper",
			wantType:   models.PromptTypeGeneration,
			wantDomain: models.DomainGeneral,
			wantCplx:   models.ComplexitySimple,
		},
		{
			name:       "analysis with data domain",
			prompt:     "Compare these two datasets and summarize the statistics behind them",
			wantType:   models.PromptTypeAnalysis,
			wantDomain: models.DomainData,
			wantCplx:   models.ComplexityMedium,
		},
		{
			name:       "backend domain",
			prompt:     "Implement a REST server that stores users in a database",
			wantType:   models.PromptTypeCoding,
			wantDomain: models.DomainBackend,
			wantCplx:   models.ComplexityMedium,
		},
		{
			name:       "no keyword falls back to general",
			prompt:     "something about lighthouses and weather patterns",
			wantType:   models.PromptTypeGeneral,
			wantDomain: models.DomainGeneral,
			wantCplx:   models.ComplexitySimple,
		},
		{
			name:       "keyword must match whole words",
			prompt:     "rapidly improve the morale of the onboarding cohort",
			wantType:   models.PromptTypeGeneral,
			wantDomain: models.DomainGeneral,
			wantCplx:   models.ComplexitySimple,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Analyze(tt.prompt)
			if a.Type != tt.wantType {
				t.Errorf("type = %s, want %s", a.Type, tt.wantType)
			}
			if a.Domain != tt.wantDomain {
				t.Errorf("domain = %s, want %s", a.Domain, tt.wantDomain)
			}
			if a.Complexity != tt.wantCplx {
				t.Errorf("complexity = %s, want %s", a.Complexity, tt.wantCplx)
			}
		})
	}
}

func TestAnalyzeSignals(t *testing.T) {
	tests := []struct {
		name     string
		prompt   string
		clarity  models.SignalLevel
		specif   models.SignalLevel
		actable  models.SignalLevel
	}{
		{
			name:    "interrogative plus precision is high clarity",
			prompt:  "How exactly does garbage collection work step by step",
			clarity: models.SignalHigh,
			specif:  models.SignalLow,
			actable: models.SignalLow,
		},
		{
			name:    "interrogative alone is medium clarity",
			prompt:  "How does garbage collection behave",
			clarity: models.SignalMedium,
			specif:  models.SignalLow,
			actable: models.SignalLow,
		},
		{
			name:    "three markers give high specificity",
			prompt:  "Summarize the report for the board using charts based on quarterly figures",
			clarity: models.SignalLow,
			specif:  models.SignalHigh,
			actable: models.SignalLow,
		},
		{
			name:    "verb plus constraint is high actionability",
			prompt:  "Build a parser that must handle malformed input",
			clarity: models.SignalLow,
			specif:  models.SignalLow,
			actable: models.SignalHigh,
		},
		{
			name:    "verb alone is medium actionability",
			prompt:  "Build a parser handling malformed input",
			clarity: models.SignalLow,
			specif:  models.SignalLow,
			actable: models.SignalMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Analyze(tt.prompt)
			if a.Clarity != tt.clarity {
				t.Errorf("clarity = %s, want %s", a.Clarity, tt.clarity)
			}
			if a.Specificity != tt.specif {
				t.Errorf("specificity = %s, want %s", a.Specificity, tt.specif)
			}
			if a.Actionability != tt.actable {
				t.Errorf("actionability = %s, want %s", a.Actionability, tt.actable)
			}
		})
	}
}

func TestRefineValidation(t *testing.T) {
	r := newRefiner(t)

	var verr *ValidationError
	if _, err := r.Refine("hey", nil); !errors.As(err, &verr) {
		t.Fatalf("short prompt: got %v, want ValidationError", err)
	}
	if _, err := r.Refine(strings.Repeat("a", 4001), nil); !errors.As(err, &verr) {
		t.Fatalf("long prompt: got %v, want ValidationError", err)
	}

	var perr *guard.PolicyViolationError
	if _, err := r.Refine("build me a langchain wrapper", nil); !errors.As(err, &perr) {
		t.Fatalf("contaminated prompt: got %v, want PolicyViolationError", err)
	}
}

func TestRefineAnnotations(t *testing.T) {
	r := newRefiner(t)

	rp, err := r.Refine("Créer une fonction JavaScript simple", map[string]any{
		"user_level":  "beginner",
		"constraints": "no external packages",
	})
	if err != nil {
		t.Fatal(err)
	}
	if rp.Analysis.Clarity != models.SignalLow {
		t.Fatalf("clarity = %s, want low", rp.Analysis.Clarity)
	}
	for _, want := range []string{
		"Clarifying questions",
		"User level: beginner",
		"Constraints: no external packages",
		"general-domain request of simple complexity",
	} {
		if !strings.Contains(rp.Refined, want) {
			t.Errorf("refined prompt missing %q:\n%s", want, rp.Refined)
		}
	}
	if !strings.HasPrefix(rp.Refined, "Créer une fonction JavaScript simple") {
		t.Errorf("refined prompt does not start with the original text")
	}
}

func TestRefineSubPrompts(t *testing.T) {
	r := newRefiner(t)

	rp, err := r.Refine("Créer une fonction JavaScript simple", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rp.SubPrompts) != 3 {
		t.Fatalf("coding sub-prompts = %d, want 3", len(rp.SubPrompts))
	}
	if !strings.HasPrefix(rp.SubPrompts[0], "Outline the architecture") {
		t.Errorf("unexpected first sub-prompt %q", rp.SubPrompts[0])
	}

	long := "Please explain in depth the tradeoffs between the different consensus " +
		"protocols used by distributed databases, covering availability, latency, " +
		"partition behavior and typical deployment topologies in production systems, " +
		"including how operators tune quorum sizes and replica placement for mixed workloads"
	rp, err = r.Refine(long, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rp.Analysis.Complexity != models.ComplexityComplex {
		t.Fatalf("complexity = %s, want complex", rp.Analysis.Complexity)
	}
	if len(rp.SubPrompts) != 3 {
		t.Fatalf("complex sub-prompts = %d, want 3", len(rp.SubPrompts))
	}

	disabled := New(Options{MinLength: 5, MaxLength: 4000}, guard.New())
	rp, err = disabled.Refine("Créer une fonction JavaScript simple", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rp.SubPrompts) != 0 {
		t.Errorf("sub-prompts generated with generation disabled")
	}
	if rp.Instructions.Collection != "" || rp.Instructions.Synthesis != "" {
		t.Errorf("instructions generated with generation disabled")
	}
}

func TestRefineInstructions(t *testing.T) {
	r := newRefiner(t)

	rp, err := r.Refine("Implement a REST server that stores users in a database", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rp.Instructions.Collection, "coding-type") {
		t.Errorf("collection instructions = %q", rp.Instructions.Collection)
	}
	if !strings.Contains(rp.Instructions.Synthesis, "backend-domain") {
		t.Errorf("synthesis instructions = %q", rp.Instructions.Synthesis)
	}
}

func TestAgentProcessTask(t *testing.T) {
	g := guard.New()
	a := NewAgent(DefaultOptions(), agent.DefaultConfig(), g)

	task := &models.Task{ID: "t1", Payload: &Request{Prompt: "Créer une fonction JavaScript simple"}}
	res, err := a.ProcessTask(context.Background(), task)
	if err != nil {
		t.Fatal(err)
	}
	rp, ok := res.(*models.RefinedPrompt)
	if !ok {
		t.Fatalf("result type %T", res)
	}
	if rp.Analysis.Type != models.PromptTypeCoding {
		t.Errorf("type = %s, want coding", rp.Analysis.Type)
	}

	_, err = a.ProcessTask(context.Background(), &models.Task{ID: "t2", Payload: &Request{Prompt: "hey"}})
	if !agent.IsPermanent(err) {
		t.Errorf("validation failure not marked permanent: %v", err)
	}

	_, err = a.ProcessTask(context.Background(), &models.Task{ID: "t3", Payload: map[string]any{"nope": true}})
	if !agent.IsPermanent(err) {
		t.Errorf("empty prompt not marked permanent: %v", err)
	}
}
