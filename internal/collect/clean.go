package collect

import (
	"strings"
	"unicode"
)

// Clean normalizes a payload recursively: strings lose control
// characters and redundant whitespace, slices and maps are walked, and
// every other value passes through unchanged.
func Clean(v any) any {
	switch t := v.(type) {
	case string:
		return cleanString(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clean(e)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = cleanString(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Clean(e)
		}
		return out
	default:
		return v
	}
}

// cleanString strips control characters (newlines become spaces),
// collapses whitespace runs and trims the ends.
func cleanString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}
