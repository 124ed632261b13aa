package models

import "time"

// AgentState represents the lifecycle state of an agent.
type AgentState string

const (
	// AgentStateInitialized indicates the agent exists but has not started initializing.
	AgentStateInitialized AgentState = "initialized"
	// AgentStateInitializing indicates the agent is running its startup checks.
	AgentStateInitializing AgentState = "initializing"
	// AgentStateReady indicates the agent can accept tasks.
	AgentStateReady AgentState = "ready"
	// AgentStateError indicates initialization or processing failed.
	AgentStateError AgentState = "error"
	// AgentStateShuttingDown indicates the agent is draining its tasks.
	AgentStateShuttingDown AgentState = "shutting_down"
	// AgentStateShutdown indicates the agent has stopped permanently.
	AgentStateShutdown AgentState = "shutdown"
)

// Valid returns true if the state is a known value.
func (s AgentState) Valid() bool {
	switch s {
	case AgentStateInitialized, AgentStateInitializing, AgentStateReady,
		AgentStateError, AgentStateShuttingDown, AgentStateShutdown:
		return true
	default:
		return false
	}
}

// validAgentTransitions defines the allowed lifecycle transitions.
// Key is the current state, value is the set of valid target states.
// Error is recoverable into initializing so the orchestrator can retry
// registration; shutdown is terminal.
var validAgentTransitions = map[AgentState]map[AgentState]bool{
	AgentStateInitialized: {
		AgentStateInitializing: true,
	},
	AgentStateInitializing: {
		AgentStateReady: true,
		AgentStateError: true,
	},
	AgentStateReady: {
		AgentStateError:        true,
		AgentStateShuttingDown: true,
	},
	AgentStateError: {
		AgentStateInitializing: true,
		AgentStateShuttingDown: true,
	},
	AgentStateShuttingDown: {
		AgentStateShutdown: true,
	},
	AgentStateShutdown: {},
}

// CanTransition checks if a lifecycle transition is valid.
func CanTransition(from, to AgentState) bool {
	targets, ok := validAgentTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// AgentType identifies the pipeline role an agent fulfils.
type AgentType string

const (
	// AgentTypeRefinement analyzes and rewrites raw prompts.
	AgentTypeRefinement AgentType = "refinement"
	// AgentTypeCollection cleans, validates and aggregates distributed results.
	AgentTypeCollection AgentType = "collection"
	// AgentTypeSynthesis produces the final response from the aggregated structure.
	AgentTypeSynthesis AgentType = "synthesis"
)

// AgentInfo is a read-only snapshot of an agent's registry entry.
type AgentInfo struct {
	// ID is the opaque agent identifier.
	ID string `json:"id"`
	// Type is the pipeline role of the agent.
	Type AgentType `json:"type"`
	// State is the lifecycle state at snapshot time.
	State AgentState `json:"state"`
	// ActiveTasks is the number of tasks currently running.
	ActiveTasks int `json:"active_tasks"`
	// RegisteredAt is when the orchestrator registered the agent.
	RegisteredAt time.Time `json:"registered_at"`
}
