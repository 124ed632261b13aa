package models

// MetricsSnapshot is a point-in-time copy of the orchestrator's counters.
// Counters accumulate monotonically for the process lifetime and reset
// only on restart.
type MetricsSnapshot struct {
	// TasksCompleted is the number of tasks that finished successfully.
	TasksCompleted int64 `json:"tasks_completed"`
	// TasksFailed is the number of tasks that ended in error.
	TasksFailed int64 `json:"tasks_failed"`
	// TotalExecMillis is the summed execution time of finished tasks.
	TotalExecMillis int64 `json:"total_exec_millis"`
	// AverageExecMillis is TotalExecMillis divided by finished task count.
	AverageExecMillis float64 `json:"average_exec_millis"`
	// ActiveWorkflows is the number of workflows currently running.
	ActiveWorkflows int64 `json:"active_workflows"`
}
