// Package guard implements the compliance check run at every trust
// boundary: agent construction, inbound requests and inter-agent payloads.
// It scans serialized payloads for forbidden integration identifiers and
// fails fast on contamination.
package guard

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

// PolicyViolationError reports a forbidden identifier found outside a
// prohibition statement. It is fatal: construction or processing aborts
// and the check is never retried.
type PolicyViolationError struct {
	// Identifier is the deny-list term that matched.
	Identifier string
	// Excerpt is the text surrounding the match.
	Excerpt string
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("policy violation: forbidden identifier %q in %q", e.Identifier, e.Excerpt)
}

// Guard scans text for deny-listed integration identifiers. A match is
// tolerated only when it occurs inside a recognized prohibition statement,
// i.e. the text that itself declares the separation rule.
type Guard struct {
	denyList    []string
	prohibition []string
	mu          sync.RWMutex
}

// guardConfig is the .mosaic.yaml fragment for extending the deny list.
type guardConfig struct {
	Compliance struct {
		DenyList []string `yaml:"deny_list"`
	} `yaml:"compliance"`
}

// New creates a Guard with the default deny list and prohibition markers.
func New() *Guard {
	return &Guard{
		denyList:    append([]string{}, DefaultDenyList...),
		prohibition: append([]string{}, prohibitionMarkers...),
	}
}

// excerptRadius is how many characters around a match are included in
// violation reports.
const excerptRadius = 80

// Check scans the subject text and returns a *PolicyViolationError on
// contamination, nil otherwise.
func (g *Guard) Check(subject string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	lower := strings.ToLower(subject)
	for _, id := range g.denyList {
		idx := 0
		for {
			pos := strings.Index(lower[idx:], id)
			if pos < 0 {
				break
			}
			pos += idx
			if !g.isProhibitionStatement(sentence(lower, pos)) {
				return &PolicyViolationError{Identifier: id, Excerpt: window(subject, pos, len(id))}
			}
			idx = pos + len(id)
		}
	}
	return nil
}

// CheckPayload serializes any payload to JSON and scans it. Values that
// cannot be serialized are formatted with %+v so nothing escapes the scan.
func (g *Guard) CheckPayload(payload any) error {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return g.Check(fmt.Sprintf("%+v", payload))
	}
	return g.Check(string(data))
}

// AddIdentifier extends the deny list at runtime.
func (g *Guard) AddIdentifier(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.denyList = append(g.denyList, strings.ToLower(id))
}

// LoadConfig merges extra deny-list terms from a .mosaic.yaml file.
func (g *Guard) LoadConfig(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	var cfg guardConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range cfg.Compliance.DenyList {
		g.denyList = append(g.denyList, strings.ToLower(id))
	}
	return nil
}

// isProhibitionStatement reports whether the sentence reads as a statement
// of the separation rule rather than actual usage. Caller must hold g.mu.
func (g *Guard) isProhibitionStatement(stmt string) bool {
	for _, marker := range g.prohibition {
		if strings.Contains(stmt, marker) {
			return true
		}
	}
	return false
}

// sentence returns the sentence of s containing position pos, bounded by
// periods, newlines or the ends of the text. The tolerance for deny-listed
// terms applies only within the statement that declares the rule, so the
// scope must not leak across sentence boundaries.
func sentence(s string, pos int) string {
	start := pos
	for start > 0 && s[start-1] != '.' && s[start-1] != '\n' {
		start--
	}
	end := pos
	for end < len(s) && s[end] != '.' && s[end] != '\n' {
		end++
	}
	return s[start:end]
}

// window returns the slice of s around a match at pos of length n,
// clipped to excerptRadius on each side.
func window(s string, pos, n int) string {
	start := pos - excerptRadius
	if start < 0 {
		start = 0
	}
	end := pos + n + excerptRadius
	if end > len(s) {
		end = len(s)
	}
	return s[start:end]
}
