package collect

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mosaic-agent/mosaic/internal/agent"
	"github.com/mosaic-agent/mosaic/internal/guard"
	"github.com/mosaic-agent/mosaic/pkg/models"
)

// Request is the task payload accepted by the collection agent.
type Request struct {
	// Refined is the refinement stage output.
	Refined *models.RefinedPrompt `json:"refined"`
	// Results are the source records from the distribution stage.
	Results []*models.SourceResult `json:"results"`
	// Context carries optional caller hints.
	Context map[string]any `json:"context,omitempty"`
}

// Agent wraps a Collector behind the agent runtime.
type Agent struct {
	*agent.BaseAgent
	collector *Collector
}

// NewAgent creates a collection agent.
func NewAgent(opts Options, cfg agent.Config, g *guard.Guard) *Agent {
	a := &Agent{
		BaseAgent: agent.NewBase(models.AgentTypeCollection, cfg, g),
		collector: New(opts),
	}
	a.SetProcessor(a)
	return a
}

// Collector exposes the underlying pipeline for direct use.
func (a *Agent) Collector() *Collector { return a.collector }

// ProcessTask aggregates the source results carried in the payload.
// Cap and validation failures are permanent; the same input cannot
// succeed on retry.
func (a *Agent) ProcessTask(ctx context.Context, task *models.Task) (any, error) {
	req, err := decodeRequest(task.Payload)
	if err != nil {
		return nil, agent.Permanent(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	structure, err := a.collector.CollectAndAggregate(req.Refined, req.Results, req.Context)
	if err != nil {
		return nil, agent.Permanent(err)
	}
	return structure, nil
}

func decodeRequest(payload any) (*Request, error) {
	switch v := payload.(type) {
	case *Request:
		return v, nil
	case Request:
		return &v, nil
	default:
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("decode collection request: %w", err)
		}
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decode collection request: %w", err)
		}
		return &req, nil
	}
}
