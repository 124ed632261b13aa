package source

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mosaic-agent/mosaic/pkg/models"
)

// DocSource serves static documentation snippets matched by keyword.
// It is deterministic and needs no network, which makes it both the
// offline fallback and the source the test suite runs against.
type DocSource struct {
	id         string
	role       string
	confidence float64
	snippets   map[string]string
}

// NewDoc creates a documentation source. A nil snippet map installs a
// small built-in set.
func NewDoc(id, role string, snippets map[string]string) *DocSource {
	if snippets == nil {
		snippets = defaultSnippets
	}
	confidence := 0.6
	return &DocSource{id: id, role: role, confidence: confidence, snippets: snippets}
}

var defaultSnippets = map[string]string{
	"function": "A function groups statements behind a name so they can be reused and tested in isolation.",
	"fonction": "Une fonction regroupe des instructions sous un nom pour les réutiliser et les tester isolément.",
	"server":   "A server accepts requests over a transport, dispatches them to handlers and returns responses.",
	"database": "A database stores structured records and answers queries over them with transactional guarantees.",
	"test":     "A test exercises one behavior with known inputs and asserts on the observable outcome.",
}

// ID returns the catalog identifier.
func (s *DocSource) ID() string { return s.id }

// Role returns the source role.
func (s *DocSource) Role() string { return s.role }

// Query matches snippet keys against the refined prompt and returns the
// concatenated matches, or a generic note when nothing matches.
func (s *DocSource) Query(_ context.Context, refined *models.RefinedPrompt, _ map[string]any) (*models.SourceResult, error) {
	lower := strings.ToLower(refined.Refined)

	var matched []string
	for key, snippet := range s.snippets {
		if strings.Contains(lower, key) {
			matched = append(matched, snippet)
		}
	}

	confidence := s.confidence
	var data string
	if len(matched) == 0 {
		data = fmt.Sprintf("No documentation entry matches a %s %s request.",
			refined.Analysis.Complexity, refined.Analysis.Type)
		confidence = 0.3
	} else {
		// Map iteration order is random; keep output stable.
		sort.Strings(matched)
		data = strings.Join(matched, "\n")
	}

	return collected(s.id, s.role, data, confidence, map[string]any{
		"matches": len(matched),
	}), nil
}
