package orchestrator

import (
	"sync"
	"time"
)

// AuditEvent is one orchestration event kept in the bounded ring.
type AuditEvent struct {
	// RequestID ties the event to a processed request.
	RequestID string `json:"request_id"`
	// Step names the workflow step the event concerns, if any.
	Step string `json:"step,omitempty"`
	// Level is info, warning or error.
	Level string `json:"level"`
	// Message describes the event.
	Message string `json:"message"`
	// At is when the event was recorded.
	At time.Time `json:"at"`
}

// auditRing is a bounded in-memory ring of orchestration events. When
// full, the oldest events are overwritten.
type auditRing struct {
	mu    sync.Mutex
	buf   []AuditEvent
	next  int
	count int
}

func newAuditRing(capacity int) *auditRing {
	if capacity <= 0 {
		capacity = 256
	}
	return &auditRing{buf: make([]AuditEvent, capacity)}
}

func (r *auditRing) append(ev AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = ev
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// snapshot returns the retained events, oldest first.
func (r *auditRing) snapshot() []AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ordered()
}

// drain returns the retained events, oldest first, and empties the ring.
func (r *auditRing) drain() []AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.ordered()
	r.count = 0
	r.next = 0
	return out
}

// ordered copies the retained events oldest first. Caller holds the lock.
func (r *auditRing) ordered() []AuditEvent {
	out := make([]AuditEvent, 0, r.count)
	start := r.next - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
