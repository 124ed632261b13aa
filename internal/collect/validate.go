package collect

import (
	"fmt"
	"time"

	"github.com/mosaic-agent/mosaic/pkg/models"
)

// Validate scores every record. The score starts at 1.0 and loses 0.5
// for missing data, 0.2 for low confidence, 0.1 for very short content
// and 0.1 for stale records, floored at 0. Only missing data makes a
// record invalid; everything else is a warning. Invalid records are
// still returned so the caller can report them.
func (c *Collector) Validate(records []models.SourceResult) []models.SourceValidation {
	out := make([]models.SourceValidation, len(records))
	now := time.Now().UTC()

	for i, r := range records {
		v := models.SourceValidation{SourceID: r.SourceID, IsValid: true, Score: 1}

		content := contentString(r.Data)
		if r.Failed() || r.Data == nil || content == "" {
			v.IsValid = false
			v.Score -= 0.5
			v.Errors = append(v.Errors, "missing data")
		}
		if r.Confidence < 0.3 {
			v.Score -= 0.2
			v.Warnings = append(v.Warnings, fmt.Sprintf("low confidence %.2f", r.Confidence))
		}
		if content != "" && len(content) < 10 {
			v.Score -= 0.1
			v.Warnings = append(v.Warnings, "content too short")
		}
		if now.Sub(r.Timestamp) > c.opts.StaleAfter {
			v.Score -= 0.1
			v.Warnings = append(v.Warnings, "stale result")
		}

		if v.Score < 0 {
			v.Score = 0
		}
		out[i] = v
	}
	return out
}

// contentString extracts the textual content of a payload for scoring.
// Non-string payloads count as present but unmeasured.
func contentString(data any) string {
	switch t := data.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
