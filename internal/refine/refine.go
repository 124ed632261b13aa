// Package refine analyzes a raw user prompt into classification signals
// and rewrites it into a clarified, structured form for the downstream
// pipeline stages. The analysis is pure and deterministic: no I/O, no
// randomness, no retries.
package refine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mosaic-agent/mosaic/internal/guard"
	"github.com/mosaic-agent/mosaic/pkg/models"
)

// ValidationError reports a prompt that fails the input checks. It is
// never retried and aborts the whole refinement call.
type ValidationError struct {
	// Reason describes the failed check.
	Reason string
}

func (e *ValidationError) Error() string {
	return "prompt validation failed: " + e.Reason
}

// Options configure the refinement behavior.
type Options struct {
	// MinLength is the minimum accepted prompt length in characters.
	MinLength int
	// MaxLength is the maximum accepted prompt length in characters.
	MaxLength int
	// ExpansionEnabled toggles context expansion annotations.
	ExpansionEnabled bool
	// SubPromptsEnabled toggles sub-prompt and instruction generation.
	SubPromptsEnabled bool
}

// DefaultOptions returns the refinement defaults.
func DefaultOptions() Options {
	return Options{
		MinLength:         5,
		MaxLength:         4000,
		ExpansionEnabled:  true,
		SubPromptsEnabled: true,
	}
}

// Refiner turns raw prompts into RefinedPrompt structures.
type Refiner struct {
	opts  Options
	guard *guard.Guard
}

// New creates a Refiner with the given options and compliance guard.
func New(opts Options, g *guard.Guard) *Refiner {
	return &Refiner{opts: opts, guard: g}
}

// Refine validates, analyzes and rewrites a prompt. The context carries
// optional caller hints: "user_level", "constraints", "preferences".
func (r *Refiner) Refine(prompt string, reqCtx map[string]any) (*models.RefinedPrompt, error) {
	trimmed := strings.TrimSpace(prompt)
	if len(trimmed) < r.opts.MinLength {
		return nil, &ValidationError{Reason: fmt.Sprintf("prompt length %d below minimum %d", len(trimmed), r.opts.MinLength)}
	}
	if len(trimmed) > r.opts.MaxLength {
		return nil, &ValidationError{Reason: fmt.Sprintf("prompt length %d above maximum %d", len(trimmed), r.opts.MaxLength)}
	}
	if err := r.guard.Check(trimmed); err != nil {
		return nil, err
	}

	analysis := Analyze(trimmed)

	var notes []string
	if analysis.Clarity == models.SignalLow {
		qs := clarifyingQuestions[analysis.Type]
		notes = append(notes, "Clarifying questions to resolve before answering:")
		for _, q := range qs {
			notes = append(notes, "- "+q)
		}
	}
	if analysis.Specificity == models.SignalLow {
		notes = append(notes, fmt.Sprintf(
			"Assume a %s-domain request of %s complexity unless stated otherwise.",
			analysis.Domain, analysis.Complexity))
	}
	if r.opts.ExpansionEnabled && len(reqCtx) > 0 {
		notes = append(notes, contextAnnotations(reqCtx)...)
	}

	refined := restructure(trimmed, notes)

	rp := &models.RefinedPrompt{
		Original: prompt,
		Refined:  refined,
		Analysis: analysis,
	}

	if r.opts.SubPromptsEnabled {
		rp.SubPrompts = subPrompts(trimmed, analysis)
		rp.Instructions = stageInstructions(analysis)
	}

	return rp, nil
}

// Analyze extracts the classification signals from a prompt. Exported so
// the distribution stage and tests can classify without a full Refiner.
func Analyze(prompt string) models.PromptAnalysis {
	norm := normalize(prompt)
	words := len(strings.Fields(prompt))

	return models.PromptAnalysis{
		Type:          classifyType(norm),
		Domain:        classifyDomain(norm),
		Complexity:    classifyComplexity(words),
		Clarity:       gradeClarity(norm),
		Specificity:   gradeSpecificity(norm),
		Actionability: gradeActionability(norm),
	}
}

// normalize lowercases the prompt and collapses punctuation to spaces,
// keeping apostrophes and hyphens which occur inside French keywords.
func normalize(s string) string {
	lower := strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(lower) + 2)
	b.WriteByte(' ')
	for _, r := range lower {
		switch {
		case r == '\'' || r == '’' || r == '-':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r > 127:
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	b.WriteByte(' ')
	return b.String()
}

// hasKeyword reports whether the normalized text contains kw as a whole
// word (or whole phrase).
func hasKeyword(norm, kw string) bool {
	return strings.Contains(norm, " "+kw+" ")
}

func hasAny(norm string, kws []string) bool {
	for _, kw := range kws {
		if hasKeyword(norm, kw) {
			return true
		}
	}
	return false
}

func classifyType(norm string) models.PromptType {
	for _, t := range typeOrder {
		if hasAny(norm, typeKeywords[t]) {
			return t
		}
	}
	return models.PromptTypeGeneral
}

func classifyDomain(norm string) models.PromptDomain {
	for _, d := range domainOrder {
		if hasAny(norm, domainKeywords[d]) {
			return d
		}
	}
	return models.DomainGeneral
}

func classifyComplexity(words int) models.Complexity {
	switch {
	case words < 10:
		return models.ComplexitySimple
	case words < 30:
		return models.ComplexityMedium
	default:
		return models.ComplexityComplex
	}
}

func gradeClarity(norm string) models.SignalLevel {
	hasQuestion := hasAny(norm, interrogatives)
	hasPrecision := hasAny(norm, precisionMarkers)
	switch {
	case hasQuestion && hasPrecision:
		return models.SignalHigh
	case hasQuestion || hasPrecision:
		return models.SignalMedium
	default:
		return models.SignalLow
	}
}

func gradeSpecificity(norm string) models.SignalLevel {
	count := 0
	for _, m := range specificityMarkers {
		if hasKeyword(norm, m) {
			count++
		}
	}
	switch {
	case count >= 3:
		return models.SignalHigh
	case count >= 1:
		return models.SignalMedium
	default:
		return models.SignalLow
	}
}

func gradeActionability(norm string) models.SignalLevel {
	hasVerb := hasAny(norm, actionVerbs)
	hasConstraint := hasAny(norm, constraintMarkers)
	switch {
	case hasVerb && hasConstraint:
		return models.SignalHigh
	case hasVerb || hasConstraint:
		return models.SignalMedium
	default:
		return models.SignalLow
	}
}

// contextAnnotations turns caller context into appended annotation lines,
// in sorted key order for determinism.
func contextAnnotations(reqCtx map[string]any) []string {
	labels := map[string]string{
		"user_level":  "User level",
		"constraints": "Constraints",
		"preferences": "Preferences",
	}
	keys := make([]string, 0, len(reqCtx))
	for k := range reqCtx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []string
	for _, k := range keys {
		label, ok := labels[k]
		if !ok {
			continue
		}
		out = append(out, fmt.Sprintf("%s: %v", label, reqCtx[k]))
	}
	return out
}

// restructure lays the prompt out as a two-part {main, supplementary}
// document.
func restructure(main string, notes []string) string {
	if len(notes) == 0 {
		return main
	}
	return main + "\n\n---\n" + strings.Join(notes, "\n")
}

// subPrompts generates decompositions: a breakdown for complex requests
// and an architecture/implementation/testing triplet for coding requests.
func subPrompts(prompt string, a models.PromptAnalysis) []string {
	var out []string
	if a.Complexity == models.ComplexityComplex {
		out = append(out,
			"Identify the core requirement of: "+prompt,
			"List the edge cases and failure modes of: "+prompt,
			"Describe how to validate a solution for: "+prompt,
		)
	}
	if a.Type == models.PromptTypeCoding {
		out = append(out,
			"Outline the architecture for: "+prompt,
			"Implement the solution for: "+prompt,
			"Write tests covering: "+prompt,
		)
	}
	return out
}

// stageInstructions parameterizes the downstream guidance by the
// extracted signals.
func stageInstructions(a models.PromptAnalysis) models.StageInstructions {
	collection := fmt.Sprintf(
		"Aggregate %s-type responses; prefer sources specialized in the %s domain; expect %s complexity.",
		a.Type, a.Domain, a.Complexity)
	synthesis := fmt.Sprintf(
		"Produce a %s response for a %s-domain request; keep structure proportional to %s complexity.",
		a.Type, a.Domain, a.Complexity)
	return models.StageInstructions{Collection: collection, Synthesis: synthesis}
}
