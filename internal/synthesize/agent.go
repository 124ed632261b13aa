package synthesize

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mosaic-agent/mosaic/internal/agent"
	"github.com/mosaic-agent/mosaic/internal/guard"
	"github.com/mosaic-agent/mosaic/pkg/models"
)

// Request is the task payload accepted by the synthesis agent.
type Request struct {
	// Refined is the refinement stage output.
	Refined *models.RefinedPrompt `json:"refined"`
	// Aggregated is the collection stage output.
	Aggregated *models.AggregatedStructure `json:"aggregated"`
}

// Agent wraps a Synthesizer behind the agent runtime.
type Agent struct {
	*agent.BaseAgent
	synthesizer Synthesizer
}

// NewAgent creates a synthesis agent. A nil synthesizer installs the
// built-in template implementation.
func NewAgent(s Synthesizer, cfg agent.Config, g *guard.Guard) *Agent {
	if s == nil {
		s = NewTemplate()
	}
	a := &Agent{
		BaseAgent:   agent.NewBase(models.AgentTypeSynthesis, cfg, g),
		synthesizer: s,
	}
	a.SetProcessor(a)
	return a
}

// ProcessTask synthesizes the final response from the payload.
func (a *Agent) ProcessTask(ctx context.Context, task *models.Task) (any, error) {
	req, err := decodeRequest(task.Payload)
	if err != nil {
		return nil, agent.Permanent(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := a.synthesizer.Synthesize(req.Refined, req.Aggregated)
	if err != nil {
		return nil, err
	}
	return res, nil
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
			return nil, fmt.Errorf("decode synthesis request: %w", err)
		}
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("decode synthesis request: %w", err)
		}
		return &req, nil
	}
}
