// Package distribute fans a refined prompt out across the selected
// sources and settles every call into a result record.
package distribute

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mosaic-agent/mosaic/internal/source"
	"github.com/mosaic-agent/mosaic/pkg/models"
)

var (
	// ErrNilPrompt indicates Distribute was called without a refined prompt.
	ErrNilPrompt = errors.New("refined prompt is nil or empty")
	// ErrNoSources indicates the registry selected no sources at all.
	ErrNoSources = errors.New("no sources available")
)

// Options configure the fan-out behavior.
type Options struct {
	// PerSourceTimeout bounds each individual source call.
	PerSourceTimeout time.Duration
	// BatchTimeout bounds the whole fan-out.
	BatchTimeout time.Duration
}

// DefaultOptions returns the distribution defaults.
func DefaultOptions() Options {
	return Options{
		PerSourceTimeout: 30 * time.Second,
		BatchTimeout:     2 * time.Minute,
	}
}

// Distributor runs the fan-out stage against a source registry.
type Distributor struct {
	registry *source.Registry
	opts     Options
}

// New creates a Distributor.
func New(registry *source.Registry, opts Options) *Distributor {
	if opts.PerSourceTimeout <= 0 {
		opts.PerSourceTimeout = DefaultOptions().PerSourceTimeout
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = DefaultOptions().BatchTimeout
	}
	return &Distributor{registry: registry, opts: opts}
}

// Distribute queries every selected source concurrently and waits for
// all of them to settle. A failing or timed-out source degrades to a
// failed record in its slot; once the inputs validate, the returned
// slice always has one entry per selected source, in selection order.
func (d *Distributor) Distribute(ctx context.Context, refined *models.RefinedPrompt, reqCtx map[string]any) ([]*models.SourceResult, error) {
	if refined == nil || refined.Refined == "" {
		return nil, ErrNilPrompt
	}

	selected := d.registry.Select(refined.Analysis)
	if len(selected) == 0 {
		return nil, ErrNoSources
	}

	batchCtx, cancel := context.WithTimeout(ctx, d.opts.BatchTimeout)
	defer cancel()

	results := make([]*models.SourceResult, len(selected))
	var wg sync.WaitGroup
	for i, s := range selected {
		wg.Add(1)
		go func(i int, s source.Source) {
			defer wg.Done()
			results[i] = d.queryOne(batchCtx, s, refined, reqCtx)
		}(i, s)
	}
	wg.Wait()

	return results, nil
}

func (d *Distributor) queryOne(ctx context.Context, s source.Source, refined *models.RefinedPrompt, reqCtx map[string]any) *models.SourceResult {
	callCtx, cancel := context.WithTimeout(ctx, d.opts.PerSourceTimeout)
	defer cancel()

	res, err := s.Query(callCtx, refined, reqCtx)
	if err != nil {
		return &models.SourceResult{
			SourceID:   s.ID(),
			SourceType: s.Role(),
			Timestamp:  time.Now().UTC(),
			Status:     models.SourceStatusFailed,
			Error:      err.Error(),
		}
	}
	if res == nil {
		return &models.SourceResult{
			SourceID:   s.ID(),
			SourceType: s.Role(),
			Timestamp:  time.Now().UTC(),
			Status:     models.SourceStatusFailed,
			Error:      "source returned no result",
		}
	}
	res.ClampConfidence()
	return res
}
