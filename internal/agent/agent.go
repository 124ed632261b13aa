// Package agent provides the runtime base shared by all pipeline agents:
// lifecycle state machine, task bookkeeping and encrypted point-to-point
// messaging. Concrete agents embed BaseAgent and supply a TaskProcessor.
package agent

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mosaic-agent/mosaic/internal/guard"
	"github.com/mosaic-agent/mosaic/pkg/models"
)

// Common errors for the agent runtime.
var (
	// ErrNotReady indicates a task was submitted to an agent that is not ready.
	ErrNotReady = errors.New("agent not ready")
	// ErrNotImplemented indicates the base ProcessTask was invoked directly.
	ErrNotImplemented = errors.New("process task not implemented")
	// ErrInvalidTransition indicates an invalid lifecycle transition was attempted.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrTaskNotFound indicates the requested task is not in the task table.
	ErrTaskNotFound = errors.New("task not found")
	// ErrAtCapacity indicates the agent already runs its maximum of
	// concurrent tasks.
	ErrAtCapacity = errors.New("agent at task capacity")
)

// TaskProcessor is implemented by concrete agents to do the actual work.
type TaskProcessor interface {
	// ProcessTask executes one task and returns its result.
	ProcessTask(ctx context.Context, task *models.Task) (any, error)
}

// permanentError marks a processor error as non-retryable.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so ExecuteTask will not retry it. Validation and
// policy failures are surfaced immediately rather than retried.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked non-retryable.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// EventType is the kind of task lifecycle event.
type EventType string

const (
	// EventTaskStarted is emitted when a task begins executing.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted is emitted when a task finishes successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed is emitted when a task ends in error.
	EventTaskFailed EventType = "task_failed"
	// EventTaskCancelled is emitted when shutdown cancels a running task.
	EventTaskCancelled EventType = "task_cancelled"
	// EventMessageSent is emitted when the agent sends a message.
	EventMessageSent EventType = "message_sent"
)

// Event is a task lifecycle notification delivered to registered handlers.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// AgentID is the agent that emitted the event.
	AgentID string
	// TaskID is the related task, if any.
	TaskID string
	// Error contains failure details for EventTaskFailed.
	Error error
	// Message is the sent message for EventMessageSent.
	Message *Message
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// EventHandler receives task lifecycle events. Handlers are invoked
// synchronously in registration order, preserving event ordering.
type EventHandler func(Event)

// Config holds the runtime configuration shared by all agent types.
type Config struct {
	// Timeout is the per-task execution timeout.
	Timeout time.Duration
	// MaxRetries is how many times a failed task is retried. Permanent
	// errors are never retried regardless.
	MaxRetries int
	// SandboxEnabled toggles the sandbox admission checks.
	SandboxEnabled bool
	// MaxPayloadBytes caps the serialized size of an inbound payload.
	MaxPayloadBytes int
	// RateLimitPerMinute caps task admissions per minute.
	RateLimitPerMinute int
	// MaxConcurrentTasks caps tasks running at once. Zero means no cap.
	MaxConcurrentTasks int
	// AllowedCommands whitelists commands the agent may reference.
	AllowedCommands []string
	// TaskRetention is how long finished tasks stay in the task table.
	TaskRetention time.Duration
}

// DefaultConfig returns the runtime defaults used by the pipeline agents.
func DefaultConfig() Config {
	return Config{
		Timeout:            30 * time.Second,
		MaxRetries:         0,
		SandboxEnabled:     true,
		MaxPayloadBytes:    1 << 20,
		RateLimitPerMinute: 120,
		MaxConcurrentTasks: 8,
		AllowedCommands:    []string{"analyze", "refine", "collect", "synthesize"},
		TaskRetention:      time.Hour,
	}
}

// BaseAgent is the runtime shared by all agent types. It owns its task
// table exclusively; no other component mutates it.
type BaseAgent struct {
	id        string
	agentType models.AgentType
	cfg       Config
	guard     *guard.Guard
	processor TaskProcessor
	sandbox   *sandbox
	commKey   []byte

	mu           sync.RWMutex
	state        models.AgentState
	tasks        map[string]*models.Task
	cleanups     map[string]*time.Timer
	handlers     []EventHandler
	registeredAt time.Time
}

// NewBase creates an agent runtime in the initialized state. The guard is
// mandatory; construction-time compliance runs in Initialize.
func NewBase(agentType models.AgentType, cfg Config, g *guard.Guard) *BaseAgent {
	key := make([]byte, 32)
	rand.Read(key)

	return &BaseAgent{
		id:           uuid.New().String()[:8],
		agentType:    agentType,
		cfg:          cfg,
		guard:        g,
		commKey:      key,
		state:        models.AgentStateInitialized,
		tasks:        make(map[string]*models.Task),
		cleanups:     make(map[string]*time.Timer),
		registeredAt: time.Now(),
	}
}

// SetProcessor installs the concrete task processor.
func (a *BaseAgent) SetProcessor(p TaskProcessor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.processor = p
}

// ID returns the agent's opaque identifier.
func (a *BaseAgent) ID() string { return a.id }

// Type returns the agent's pipeline role.
func (a *BaseAgent) Type() models.AgentType { return a.agentType }

// State returns the current lifecycle state.
func (a *BaseAgent) State() models.AgentState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Config returns a copy of the agent's configuration.
func (a *BaseAgent) Config() Config { return a.cfg }

// ActiveTasks returns the number of tasks currently running.
func (a *BaseAgent) ActiveTasks() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for _, t := range a.tasks {
		if t.Status == models.TaskStatusRunning {
			n++
		}
	}
	return n
}

// Info returns a registry snapshot of the agent.
func (a *BaseAgent) Info() models.AgentInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := 0
	for _, t := range a.tasks {
		if t.Status == models.TaskStatusRunning {
			n++
		}
	}
	return models.AgentInfo{
		ID:           a.id,
		Type:         a.agentType,
		State:        a.state,
		ActiveTasks:  n,
		RegisteredAt: a.registeredAt,
	}
}

// OnEvent registers a handler for task lifecycle events.
func (a *BaseAgent) OnEvent(h EventHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers = append(a.handlers, h)
}

// emit delivers an event to all registered handlers.
func (a *BaseAgent) emit(ev Event) {
	a.mu.RLock()
	handlers := make([]EventHandler, len(a.handlers))
	copy(handlers, a.handlers)
	a.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}

// transition moves the agent to a new lifecycle state, validating the
// transition table.
func (a *BaseAgent) transition(to models.AgentState) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !models.CanTransition(a.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.state, to)
	}
	a.state = to
	return nil
}

// Initialize runs the compliance guard against the agent's own
// configuration, then sets up the sandbox context. It returns false
// instead of an error on failure so the orchestrator can decide whether
// to retry registration; the agent is left in the error state.
func (a *BaseAgent) Initialize(ctx context.Context) bool {
	if err := a.transition(models.AgentStateInitializing); err != nil {
		return false
	}

	cfgText, err := json.Marshal(a.cfg)
	if err != nil {
		a.transition(models.AgentStateError)
		return false
	}
	if err := a.guard.Check(string(cfgText)); err != nil {
		a.transition(models.AgentStateError)
		return false
	}

	if a.cfg.SandboxEnabled {
		a.mu.Lock()
		a.sandbox = newSandbox(a.cfg)
		a.mu.Unlock()
	}

	if err := a.transition(models.AgentStateReady); err != nil {
		return false
	}
	return true
}

// TaskOptions override per-call execution settings.
type TaskOptions struct {
	// Timeout overrides the configured per-task timeout when positive.
	Timeout time.Duration
	// Retries overrides the configured retry count when positive. Zero
	// keeps the configured count.
	Retries int
}

// ExecuteTask admits, records and runs one task. It fails with ErrNotReady
// unless the agent is ready and with ErrAtCapacity when the concurrency
// cap is reached, runs the compliance guard and sandbox checks against
// the payload, emits start/complete/fail events, and schedules task-table
// cleanup after the retention window regardless of outcome.
func (a *BaseAgent) ExecuteTask(ctx context.Context, taskID string, payload any, opts TaskOptions) (*models.Task, error) {
	if a.State() != models.AgentStateReady {
		return nil, fmt.Errorf("%w: agent %s is %s", ErrNotReady, a.id, a.State())
	}

	if err := a.guard.CheckPayload(payload); err != nil {
		return nil, err
	}

	a.mu.RLock()
	sb := a.sandbox
	proc := a.processor
	a.mu.RUnlock()

	if sb != nil {
		if err := sb.admit(payload); err != nil {
			return nil, err
		}
	}

	if taskID == "" {
		taskID = uuid.New().String()
	}

	task := &models.Task{
		ID:        taskID,
		AgentID:   a.id,
		Payload:   payload,
		Status:    models.TaskStatusRunning,
		StartedAt: time.Now(),
	}
	a.mu.Lock()
	if a.cfg.MaxConcurrentTasks > 0 {
		running := 0
		for _, t := range a.tasks {
			if t.Status == models.TaskStatusRunning {
				running++
			}
		}
		if running >= a.cfg.MaxConcurrentTasks {
			a.mu.Unlock()
			return nil, fmt.Errorf("%w: agent %s runs %d tasks", ErrAtCapacity, a.id, running)
		}
	}
	a.tasks[taskID] = task
	a.mu.Unlock()

	a.emit(Event{Type: EventTaskStarted, AgentID: a.id, TaskID: taskID, Timestamp: time.Now()})
	defer a.scheduleCleanup(taskID)

	timeout := a.cfg.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	retries := a.cfg.MaxRetries
	if opts.Retries > 0 {
		retries = opts.Retries
	}

	var result any
	var runErr error
	for attempt := 0; attempt <= retries; attempt++ {
		runCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		if proc != nil {
			result, runErr = proc.ProcessTask(runCtx, task)
		} else {
			runErr = ErrNotImplemented
		}
		if cancel != nil {
			cancel()
		}
		if runErr == nil || IsPermanent(runErr) || errors.Is(runErr, ErrNotImplemented) {
			break
		}
	}

	now := time.Now()
	a.mu.Lock()
	task.CompletedAt = &now
	if runErr != nil {
		task.Status = models.TaskStatusError
		task.Error = runErr.Error()
	} else {
		task.Status = models.TaskStatusCompleted
		task.Result = result
	}
	a.mu.Unlock()

	if runErr != nil {
		a.emit(Event{Type: EventTaskFailed, AgentID: a.id, TaskID: taskID, Error: runErr, Timestamp: now})
		return task, runErr
	}
	a.emit(Event{Type: EventTaskCompleted, AgentID: a.id, TaskID: taskID, Timestamp: now})
	return task, nil
}

// scheduleCleanup removes the task from the table after the retention
// window, success or not.
func (a *BaseAgent) scheduleCleanup(taskID string) {
	retention := a.cfg.TaskRetention
	if retention <= 0 {
		retention = time.Hour
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == models.AgentStateShutdown {
		return
	}
	a.cleanups[taskID] = time.AfterFunc(retention, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.tasks, taskID)
		delete(a.cleanups, taskID)
	})
}

// CommandAllowed reports whether the sandbox whitelist admits a command.
// Agents without a sandbox admit everything.
func (a *BaseAgent) CommandAllowed(cmd string) bool {
	a.mu.RLock()
	sb := a.sandbox
	a.mu.RUnlock()
	if sb == nil {
		return true
	}
	return sb.commandAllowed(cmd)
}

// Task returns the task with the given ID from the task table.
func (a *BaseAgent) Task(taskID string) (*models.Task, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.tasks[taskID]
	if !ok {
		return nil, ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

// Shutdown marks all running tasks cancelled, detaches all handlers and
// transitions to shutdown. A second call returns ErrInvalidTransition;
// the state check is the guard against double shutdown.
func (a *BaseAgent) Shutdown() error {
	if err := a.transition(models.AgentStateShuttingDown); err != nil {
		return err
	}

	now := time.Now()
	a.mu.Lock()
	var cancelled []string
	for id, t := range a.tasks {
		if t.Status == models.TaskStatusRunning {
			t.Status = models.TaskStatusCancelled
			t.CompletedAt = &now
			cancelled = append(cancelled, id)
		}
	}
	for _, timer := range a.cleanups {
		timer.Stop()
	}
	a.cleanups = make(map[string]*time.Timer)
	handlers := a.handlers
	a.handlers = nil
	a.mu.Unlock()

	for _, id := range cancelled {
		for _, h := range handlers {
			h(Event{Type: EventTaskCancelled, AgentID: a.id, TaskID: id, Timestamp: now})
		}
	}

	return a.transition(models.AgentStateShutdown)
}
