package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusRunning indicates the task is being worked on.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusError indicates the task failed.
	TaskStatusError TaskStatus = "error"
	// TaskStatusCancelled indicates the task was cancelled before completion.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusRunning, TaskStatusCompleted, TaskStatusError, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a terminal state.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusError, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Task represents a unit of work executed by an agent.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// AgentID is the ID of the agent executing this task.
	AgentID string `json:"agent_id"`
	// Payload is the input data for the task.
	Payload any `json:"payload,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// StartedAt is when the task began executing.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the task reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Result holds the task output on success.
	Result any `json:"result,omitempty"`
	// Error contains the error message if the task failed.
	Error string `json:"error,omitempty"`
}

// Duration returns the elapsed execution time, or the time since start
// if the task has not finished.
func (t *Task) Duration() time.Duration {
	if t.CompletedAt != nil {
		return t.CompletedAt.Sub(t.StartedAt)
	}
	return time.Since(t.StartedAt)
}
