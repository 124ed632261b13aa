// Package source defines the data sources queried during the
// distribution stage and the catalog registry that owns them.
package source

import (
	"context"
	"time"

	"github.com/mosaic-agent/mosaic/pkg/models"
)

// Role names what a source is good at. The distribution stage selects
// sources by role.
const (
	RoleGeneral       = "general"
	RoleCode          = "code"
	RoleDocumentation = "documentation"
	RoleExplanation   = "explanation"
	RoleWeb           = "web"
)

// Source is a queryable data source. Implementations must be safe for
// concurrent use; the distribution stage fans out across them.
type Source interface {
	// ID returns the catalog identifier of the source.
	ID() string
	// Role returns what the source specializes in.
	Role() string
	// Query asks the source about a refined prompt. Implementations
	// return an error for transport failures; the caller converts those
	// into failed result records.
	Query(ctx context.Context, refined *models.RefinedPrompt, reqCtx map[string]any) (*models.SourceResult, error)
}

// collected builds a successful result record with a clamped confidence.
func collected(id, role string, data any, confidence float64, meta map[string]any) *models.SourceResult {
	r := &models.SourceResult{
		SourceID:   id,
		SourceType: role,
		Data:       data,
		Confidence: confidence,
		Metadata:   meta,
		Timestamp:  time.Now().UTC(),
		Status:     models.SourceStatusCollected,
	}
	r.ClampConfidence()
	return r
}
