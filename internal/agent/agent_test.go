package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mosaic-agent/mosaic/internal/guard"
	"github.com/mosaic-agent/mosaic/pkg/models"
)

type stubProcessor struct {
	result   any
	err      error
	failTimes int
	calls    int
}

func (p *stubProcessor) ProcessTask(ctx context.Context, task *models.Task) (any, error) {
	p.calls++
	if p.failTimes > 0 {
		p.failTimes--
		return nil, errors.New("transient failure")
	}
	return p.result, p.err
}

func newReadyAgent(t *testing.T, proc TaskProcessor) *BaseAgent {
	t.Helper()
	a := NewBase(models.AgentTypeRefinement, DefaultConfig(), guard.New())
	if proc != nil {
		a.SetProcessor(proc)
	}
	if !a.Initialize(context.Background()) {
		t.Fatalf("Initialize() = false, state %s", a.State())
	}
	return a
}

func TestBaseAgent_Initialize(t *testing.T) {
	a := NewBase(models.AgentTypeCollection, DefaultConfig(), guard.New())

	if a.State() != models.AgentStateInitialized {
		t.Fatalf("new agent state = %s, want initialized", a.State())
	}
	if !a.Initialize(context.Background()) {
		t.Fatal("Initialize() = false, want true")
	}
	if a.State() != models.AgentStateReady {
		t.Errorf("state after Initialize = %s, want ready", a.State())
	}
}

func TestBaseAgent_Initialize_ContaminatedConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedCommands = []string{"langchain"}
	a := NewBase(models.AgentTypeCollection, cfg, guard.New())

	if a.Initialize(context.Background()) {
		t.Error("Initialize() = true for contaminated config, want false")
	}
	if a.State() != models.AgentStateError {
		t.Errorf("state = %s, want error", a.State())
	}
}

func TestBaseAgent_Initialize_RetryAfterError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedCommands = []string{"langchain"}
	a := NewBase(models.AgentTypeCollection, cfg, guard.New())

	if a.Initialize(context.Background()) {
		t.Fatal("first Initialize should fail")
	}
	// The error state is recoverable so the orchestrator can retry
	// registration after fixing the configuration.
	if !models.CanTransition(a.State(), models.AgentStateInitializing) {
		t.Error("error state should allow re-initialization")
	}
}

func TestBaseAgent_ExecuteTask(t *testing.T) {
	proc := &stubProcessor{result: "refined"}
	a := newReadyAgent(t, proc)

	var events []EventType
	a.OnEvent(func(ev Event) { events = append(events, ev.Type) })

	task, err := a.ExecuteTask(context.Background(), "t1", "payload", TaskOptions{})
	if err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("task status = %s, want completed", task.Status)
	}
	if task.Result != "refined" {
		t.Errorf("task result = %v, want %q", task.Result, "refined")
	}
	if task.CompletedAt == nil {
		t.Error("task CompletedAt is nil after completion")
	}

	want := []EventType{EventTaskStarted, EventTaskCompleted}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events[%d] = %s, want %s", i, events[i], want[i])
		}
	}
}

func TestBaseAgent_ExecuteTask_NotReady(t *testing.T) {
	a := NewBase(models.AgentTypeRefinement, DefaultConfig(), guard.New())

	_, err := a.ExecuteTask(context.Background(), "t1", "payload", TaskOptions{})
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("ExecuteTask on uninitialized agent: error = %v, want ErrNotReady", err)
	}
}

func TestBaseAgent_ExecuteTask_NoProcessor(t *testing.T) {
	a := newReadyAgent(t, nil)

	_, err := a.ExecuteTask(context.Background(), "t1", "payload", TaskOptions{})
	if !errors.Is(err, ErrNotImplemented) {
		t.Errorf("error = %v, want ErrNotImplemented", err)
	}
}

func TestBaseAgent_ExecuteTask_ContaminatedPayload(t *testing.T) {
	a := newReadyAgent(t, &stubProcessor{result: "ok"})

	_, err := a.ExecuteTask(context.Background(), "t1", "run this through crewai", TaskOptions{})
	var pv *guard.PolicyViolationError
	if !errors.As(err, &pv) {
		t.Errorf("error = %v, want *guard.PolicyViolationError", err)
	}
}

func TestBaseAgent_ExecuteTask_FailureRecorded(t *testing.T) {
	proc := &stubProcessor{err: errors.New("source unavailable")}
	a := newReadyAgent(t, proc)

	task, err := a.ExecuteTask(context.Background(), "t1", "payload", TaskOptions{})
	if err == nil {
		t.Fatal("ExecuteTask() error = nil, want failure")
	}
	if task.Status != models.TaskStatusError {
		t.Errorf("task status = %s, want error", task.Status)
	}
	if task.Error == "" {
		t.Error("task Error is empty")
	}
}

func TestBaseAgent_ExecuteTask_Retries(t *testing.T) {
	proc := &stubProcessor{result: "ok", failTimes: 2}
	a := newReadyAgent(t, proc)

	task, err := a.ExecuteTask(context.Background(), "t1", "payload", TaskOptions{Retries: 2})
	if err != nil {
		t.Fatalf("ExecuteTask() with retries error = %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("task status = %s, want completed", task.Status)
	}
	if proc.calls != 3 {
		t.Errorf("processor calls = %d, want 3", proc.calls)
	}
}

func TestBaseAgent_ExecuteTask_ConfiguredRetriesKept(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 1
	proc := &stubProcessor{result: "ok", failTimes: 1}
	a := NewBase(models.AgentTypeRefinement, cfg, guard.New())
	a.SetProcessor(proc)
	if !a.Initialize(context.Background()) {
		t.Fatal("Initialize failed")
	}

	// A zero Retries option keeps the configured count rather than
	// disabling retries.
	task, err := a.ExecuteTask(context.Background(), "t1", "payload", TaskOptions{Retries: 0})
	if err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("task status = %s, want completed", task.Status)
	}
	if proc.calls != 2 {
		t.Errorf("processor calls = %d, want 2", proc.calls)
	}
}

func TestBaseAgent_ExecuteTask_PermanentNotRetried(t *testing.T) {
	proc := &stubProcessor{err: Permanent(errors.New("prompt too short"))}
	a := newReadyAgent(t, proc)

	_, err := a.ExecuteTask(context.Background(), "t1", "payload", TaskOptions{Retries: 3})
	if err == nil {
		t.Fatal("expected failure")
	}
	if proc.calls != 1 {
		t.Errorf("processor calls = %d, want 1 (permanent errors are not retried)", proc.calls)
	}
}

type blockingProcessor struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingProcessor) ProcessTask(ctx context.Context, task *models.Task) (any, error) {
	p.started <- struct{}{}
	select {
	case <-p.release:
		return "ok", nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestBaseAgent_ExecuteTask_ConcurrencyCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrentTasks = 1
	proc := &blockingProcessor{started: make(chan struct{}), release: make(chan struct{})}
	a := NewBase(models.AgentTypeRefinement, cfg, guard.New())
	a.SetProcessor(proc)
	if !a.Initialize(context.Background()) {
		t.Fatal("Initialize failed")
	}

	done := make(chan error, 1)
	go func() {
		_, err := a.ExecuteTask(context.Background(), "t1", "payload", TaskOptions{})
		done <- err
	}()
	<-proc.started

	_, err := a.ExecuteTask(context.Background(), "t2", "payload", TaskOptions{})
	if !errors.Is(err, ErrAtCapacity) {
		t.Errorf("error = %v, want ErrAtCapacity", err)
	}

	close(proc.release)
	if err := <-done; err != nil {
		t.Fatalf("first task error = %v", err)
	}

	// Capacity frees up once the running task finishes.
	go func() { <-proc.started }()
	if _, err := a.ExecuteTask(context.Background(), "t3", "payload", TaskOptions{}); err != nil {
		t.Errorf("task after release: error = %v", err)
	}
}

func TestBaseAgent_Shutdown(t *testing.T) {
	a := newReadyAgent(t, &stubProcessor{result: "ok"})

	// Plant a running task directly to observe cancellation.
	a.mu.Lock()
	a.tasks["running"] = &models.Task{ID: "running", AgentID: a.ID(), Status: models.TaskStatusRunning, StartedAt: time.Now()}
	a.mu.Unlock()

	if err := a.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if a.State() != models.AgentStateShutdown {
		t.Errorf("state = %s, want shutdown", a.State())
	}

	task, err := a.Task("running")
	if err != nil {
		t.Fatalf("Task() error = %v", err)
	}
	if task.Status != models.TaskStatusCancelled {
		t.Errorf("in-flight task status = %s, want cancelled", task.Status)
	}

	// Double shutdown is rejected by the state check.
	if err := a.Shutdown(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Shutdown() error = %v, want ErrInvalidTransition", err)
	}
}

func TestBaseAgent_Sandbox_PayloadTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPayloadBytes = 16
	a := NewBase(models.AgentTypeRefinement, cfg, guard.New())
	a.SetProcessor(&stubProcessor{result: "ok"})
	if !a.Initialize(context.Background()) {
		t.Fatal("Initialize failed")
	}

	_, err := a.ExecuteTask(context.Background(), "t1", map[string]string{"k": "a long payload that exceeds the cap"}, TaskOptions{})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestBaseAgent_Sandbox_RateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 2
	a := NewBase(models.AgentTypeRefinement, cfg, guard.New())
	a.SetProcessor(&stubProcessor{result: "ok"})
	if !a.Initialize(context.Background()) {
		t.Fatal("Initialize failed")
	}

	for i := 0; i < 2; i++ {
		if _, err := a.ExecuteTask(context.Background(), "", "p", TaskOptions{}); err != nil {
			t.Fatalf("task %d error = %v", i, err)
		}
	}
	_, err := a.ExecuteTask(context.Background(), "", "p", TaskOptions{})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("error = %v, want ErrRateLimited", err)
	}
}

func TestMessaging_RoundTrip(t *testing.T) {
	a := newReadyAgent(t, nil)

	var sent *Message
	a.OnEvent(func(ev Event) {
		if ev.Type == EventMessageSent {
			sent = ev.Message
		}
	})

	payload := map[string]string{"instruction": "aggregate with weighted strategy"}
	msg, err := a.SendMessage("collector-1", payload, true)
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if !msg.Encrypted {
		t.Error("message not marked encrypted")
	}
	if sent == nil || sent.ID != msg.ID {
		t.Error("message event not emitted")
	}

	var got map[string]string
	if err := a.OpenMessage(msg, &got); err != nil {
		t.Fatalf("OpenMessage() error = %v", err)
	}
	if got["instruction"] != payload["instruction"] {
		t.Errorf("round-tripped payload = %v, want %v", got, payload)
	}
}

func TestMessaging_DecryptFailure(t *testing.T) {
	a := newReadyAgent(t, nil)
	b := newReadyAgent(t, nil) // different comm key

	msg, err := a.SendMessage(b.ID(), "secret", true)
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	var dst string
	err = b.OpenMessage(msg, &dst)
	if !errors.Is(err, ErrDecrypt) {
		t.Errorf("OpenMessage with wrong key: error = %v, want ErrDecrypt", err)
	}
	// The failure must not affect the receiving agent's lifecycle.
	if b.State() != models.AgentStateReady {
		t.Errorf("receiver state = %s, want ready", b.State())
	}
}

func TestMessaging_Plaintext(t *testing.T) {
	a := newReadyAgent(t, nil)

	msg, err := a.SendMessage("x", 42, false)
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	var got int
	if err := a.OpenMessage(msg, &got); err != nil {
		t.Fatalf("OpenMessage() error = %v", err)
	}
	if got != 42 {
		t.Errorf("payload = %d, want 42", got)
	}
}

func TestMessaging_SharedKey(t *testing.T) {
	a := newReadyAgent(t, nil)
	b := newReadyAgent(t, nil)

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	a.SetCommKey(key)
	b.SetCommKey(key)

	msg, err := a.SendMessage(b.ID(), "hello", true)
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	var got string
	if err := b.OpenMessage(msg, &got); err != nil {
		t.Fatalf("OpenMessage() error = %v", err)
	}
	if got != "hello" {
		t.Errorf("payload = %q, want %q", got, "hello")
	}
}
