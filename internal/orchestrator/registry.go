package orchestrator

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mosaic-agent/mosaic/internal/agent"
	"github.com/mosaic-agent/mosaic/internal/guard"
	"github.com/mosaic-agent/mosaic/pkg/models"
)

var (
	// ErrAgentExists indicates an agent with the same ID is registered.
	ErrAgentExists = errors.New("agent already registered")
	// ErrAgentNotFound indicates no agent matches the given ID.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrNoAvailableAgents indicates no ready agent can take the task.
	ErrNoAvailableAgents = errors.New("no available agents")
	// ErrInitializeFailed indicates the agent did not reach the ready state.
	ErrInitializeFailed = errors.New("agent initialization failed")
)

// Dispatch policies.
const (
	PolicyLoadBalanced = "load_balanced"
	PolicyRoundRobin   = "round_robin"
)

// Agent is what the orchestrator requires from a managed agent. The
// runtime's BaseAgent satisfies it.
type Agent interface {
	ID() string
	Type() models.AgentType
	State() models.AgentState
	ActiveTasks() int
	Info() models.AgentInfo
	Initialize(ctx context.Context) bool
	ExecuteTask(ctx context.Context, taskID string, payload any, opts agent.TaskOptions) (*models.Task, error)
	SetCommKey(key []byte)
	Shutdown() error
}

// registry owns the registered agents. A single mutex serializes all
// membership changes; reads take the same lock, registration is rare.
type registry struct {
	guard *guard.Guard

	mu         sync.Mutex
	agents     map[string]Agent
	order      []string
	registered map[string]time.Time
	rrCursor   map[models.AgentType]int
	commKey    []byte
}

func newRegistry(g *guard.Guard) *registry {
	key := make([]byte, 32)
	rand.Read(key)
	return &registry{
		guard:      g,
		agents:     map[string]Agent{},
		registered: map[string]time.Time{},
		rrCursor:   map[models.AgentType]int{},
		commKey:    key,
	}
}

// register checks the agent against the compliance guard, hands it the
// shared comm key and initializes it.
func (r *registry) register(ctx context.Context, a Agent) error {
	if err := r.guard.CheckPayload(a.Info()); err != nil {
		return err
	}

	r.mu.Lock()
	if _, exists := r.agents[a.ID()]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAgentExists, a.ID())
	}
	r.mu.Unlock()

	a.SetCommKey(r.commKey)
	if !a.Initialize(ctx) {
		return fmt.Errorf("%w: %s", ErrInitializeFailed, a.ID())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.ID()] = a
	r.order = append(r.order, a.ID())
	r.registered[a.ID()] = time.Now().UTC()
	return nil
}

// unregister shuts the agent down and removes it.
func (r *registry) unregister(id string) error {
	r.mu.Lock()
	a, ok := r.agents[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	delete(r.agents, id)
	delete(r.registered, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	return a.Shutdown()
}

// pick selects a ready agent of the given type according to the policy.
func (r *registry) pick(agentType models.AgentType, policy string) (Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ready []Agent
	for _, id := range r.order {
		a := r.agents[id]
		if a.Type() == agentType && a.State() == models.AgentStateReady {
			ready = append(ready, a)
		}
	}
	if len(ready) == 0 {
		return nil, fmt.Errorf("%w: type %s", ErrNoAvailableAgents, agentType)
	}

	if policy == PolicyRoundRobin {
		i := r.rrCursor[agentType] % len(ready)
		r.rrCursor[agentType]++
		return ready[i], nil
	}

	best := ready[0]
	for _, a := range ready[1:] {
		if a.ActiveTasks() < best.ActiveTasks() {
			best = a
		}
	}
	return best, nil
}

// infos snapshots every registered agent.
func (r *registry) infos() []models.AgentInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.AgentInfo, 0, len(r.order))
	for _, id := range r.order {
		info := r.agents[id].Info()
		info.RegisteredAt = r.registered[id]
		out = append(out, info)
	}
	return out
}

// shutdownAll stops every agent and clears the registry.
func (r *registry) shutdownAll() error {
	r.mu.Lock()
	agents := make([]Agent, 0, len(r.order))
	for _, id := range r.order {
		agents = append(agents, r.agents[id])
	}
	r.agents = map[string]Agent{}
	r.registered = map[string]time.Time{}
	r.order = nil
	r.mu.Unlock()

	var firstErr error
	for _, a := range agents {
		if err := a.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
