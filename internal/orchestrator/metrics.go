package orchestrator

import (
	"sync"
	"time"

	"github.com/mosaic-agent/mosaic/pkg/models"
)

// Metrics accumulates process-wide counters. All methods are safe for
// concurrent use.
type Metrics struct {
	mu              sync.Mutex
	tasksCompleted  int64
	tasksFailed     int64
	totalExecMillis int64
	activeWorkflows int64
}

// NewMetrics creates a zeroed metrics accumulator.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// TaskCompleted records one successful task and its execution time.
func (m *Metrics) TaskCompleted(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasksCompleted++
	m.totalExecMillis += d.Milliseconds()
}

// TaskFailed records one failed task and its execution time.
func (m *Metrics) TaskFailed(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasksFailed++
	m.totalExecMillis += d.Milliseconds()
}

// WorkflowStarted increments the active workflow gauge.
func (m *Metrics) WorkflowStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeWorkflows++
}

// WorkflowFinished decrements the active workflow gauge.
func (m *Metrics) WorkflowFinished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeWorkflows > 0 {
		m.activeWorkflows--
	}
}

// Snapshot returns a point-in-time copy of the counters.
func (m *Metrics) Snapshot() models.MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := models.MetricsSnapshot{
		TasksCompleted:  m.tasksCompleted,
		TasksFailed:     m.tasksFailed,
		TotalExecMillis: m.totalExecMillis,
		ActiveWorkflows: m.activeWorkflows,
	}
	if finished := m.tasksCompleted + m.tasksFailed; finished > 0 {
		snap.AverageExecMillis = float64(m.totalExecMillis) / float64(finished)
	}
	return snap
}
