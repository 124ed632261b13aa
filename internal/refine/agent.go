package refine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mosaic-agent/mosaic/internal/agent"
	"github.com/mosaic-agent/mosaic/internal/guard"
	"github.com/mosaic-agent/mosaic/pkg/models"
)

// Request is the task payload accepted by the refinement agent.
type Request struct {
	// Prompt is the raw user prompt.
	Prompt string `json:"prompt"`
	// Context carries optional caller hints such as user_level,
	// constraints and preferences.
	Context map[string]any `json:"context,omitempty"`
}

// Agent wraps a Refiner behind the agent runtime.
type Agent struct {
	*agent.BaseAgent
	refiner *Refiner
}

// NewAgent creates a refinement agent using the given options and guard.
func NewAgent(opts Options, cfg agent.Config, g *guard.Guard) *Agent {
	a := &Agent{
		BaseAgent: agent.NewBase(models.AgentTypeRefinement, cfg, g),
		refiner:   New(opts, g),
	}
	a.SetProcessor(a)
	return a
}

// ProcessTask refines the prompt carried in the task payload. Validation
// and policy failures are permanent and never retried.
func (a *Agent) ProcessTask(ctx context.Context, task *models.Task) (any, error) {
	req, err := decodeRequest(task.Payload)
	if err != nil {
		return nil, agent.Permanent(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rp, err := a.refiner.Refine(req.Prompt, req.Context)
	if err != nil {
		return nil, agent.Permanent(err)
	}
	return rp, nil
}

// decodeRequest accepts either a *Request, a Request, a bare prompt
// string, or a JSON-compatible map.
func decodeRequest(payload any) (*Request, error) {
	switch v := payload.(type) {
	case *Request:
		return v, nil
	case Request:
		return &v, nil
	case string:
		return &Request{Prompt: v}, nil
	default:
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("decode refinement request: %w", err)
		}
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decode refinement request: %w", err)
		}
		if req.Prompt == "" {
			return nil, &ValidationError{Reason: "empty prompt"}
		}
		return &req, nil
	}
}
