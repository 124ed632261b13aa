package models

import "time"

// WorkflowStatus represents the state of a workflow.
type WorkflowStatus string

const (
	// WorkflowStatusCreated indicates the workflow exists but has not started.
	WorkflowStatusCreated WorkflowStatus = "created"
	// WorkflowStatusRunning indicates the workflow is executing steps.
	WorkflowStatusRunning WorkflowStatus = "running"
	// WorkflowStatusCompleted indicates all steps finished, or the workflow
	// stopped early because a step condition was not met.
	WorkflowStatusCompleted WorkflowStatus = "completed"
	// WorkflowStatusError indicates a required step failed.
	WorkflowStatusError WorkflowStatus = "error"
)

// Valid returns true if the status is a known value.
func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowStatusCreated, WorkflowStatusRunning, WorkflowStatusCompleted, WorkflowStatusError:
		return true
	default:
		return false
	}
}

// ConditionOperator is the comparison applied by a step condition.
type ConditionOperator string

const (
	// OpEquals passes when the field equals the value.
	OpEquals ConditionOperator = "equals"
	// OpNotEquals passes when the field differs from the value.
	OpNotEquals ConditionOperator = "not_equals"
	// OpGreaterThan passes when the numeric field exceeds the value.
	OpGreaterThan ConditionOperator = "greater_than"
	// OpExists passes when the field is present and non-nil.
	OpExists ConditionOperator = "exists"
)

// Valid returns true if the operator is a known value.
func (o ConditionOperator) Valid() bool {
	switch o {
	case OpEquals, OpNotEquals, OpGreaterThan, OpExists:
		return true
	default:
		return false
	}
}

// StepCondition is evaluated against a step's result after it completes.
// If any condition fails, the workflow stops without error.
type StepCondition struct {
	// Field is a dotted path into the step result (e.g. "analysis.type").
	Field string `json:"field"`
	// Operator is the comparison to apply.
	Operator ConditionOperator `json:"operator"`
	// Value is the operand for equals/not_equals/greater_than.
	Value any `json:"value,omitempty"`
}

// LogLevel classifies workflow log entries.
type LogLevel string

const (
	// LogLevelInfo records informational events such as early exits.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarning records non-required step failures.
	LogLevelWarning LogLevel = "warning"
	// LogLevelError records required step failures.
	LogLevelError LogLevel = "error"
)

// WorkflowLogEntry is one entry in a workflow's error log. The log is part
// of the orchestration result even on success, so callers can distinguish
// a clean run from a degraded one.
type WorkflowLogEntry struct {
	// Level is the severity of the entry.
	Level LogLevel `json:"level"`
	// Step is the name of the step the entry relates to.
	Step string `json:"step"`
	// Message describes what happened.
	Message string `json:"message"`
	// Timestamp is when the entry was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// StepResult records the outcome of one workflow step.
type StepResult struct {
	// Step is the step name.
	Step string `json:"step"`
	// Success indicates whether the step completed without error.
	Success bool `json:"success"`
	// Output is the step's result value on success.
	Output any `json:"output,omitempty"`
	// Error contains the failure message if the step failed.
	Error string `json:"error,omitempty"`
	// StartedAt is when the step began.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the step finished.
	CompletedAt time.Time `json:"completed_at"`
}

// Workflow is one orchestrated execution of ordered steps for a single
// request. It is mutated only by the orchestrator driving it.
type Workflow struct {
	// ID is the unique identifier for this workflow.
	ID string `json:"id"`
	// Steps is the ordered list of step names.
	Steps []string `json:"steps"`
	// CurrentStep is the index of the step being executed. It never
	// decreases within a workflow.
	CurrentStep int `json:"current_step"`
	// StepResults maps step names to their recorded outcomes.
	StepResults map[string]*StepResult `json:"step_results"`
	// Log accumulates warnings, errors and early-exit notices.
	Log []WorkflowLogEntry `json:"log"`
	// Status is the current workflow state.
	Status WorkflowStatus `json:"status"`
	// StartedAt is when the workflow began running.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the workflow reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Warnings returns the warning-level entries from the workflow log.
func (w *Workflow) Warnings() []WorkflowLogEntry {
	var out []WorkflowLogEntry
	for _, e := range w.Log {
		if e.Level == LogLevelWarning {
			out = append(out, e)
		}
	}
	return out
}
