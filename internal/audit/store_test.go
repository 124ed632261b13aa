package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mosaic-agent/mosaic/internal/orchestrator"
	"github.com/mosaic-agent/mosaic/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, at time.Time) orchestrator.RunRecord {
	return orchestrator.RunRecord{
		RequestID:   id,
		Prompt:      "Créer une fonction JavaScript simple",
		Status:      models.WorkflowStatusCompleted,
		Duration:    1200 * time.Millisecond,
		Confidence:  0.75,
		StepSummary: "refine:ok distribute:ok collect:ok synthesize:ok ",
		Events: []orchestrator.AuditEvent{
			{RequestID: id, Level: "info", Message: "request accepted", At: at},
			{RequestID: id, Step: "collect", Level: "warning", Message: "one source failed", At: at},
		},
		At: at,
	}
}

func TestRecordAndListRuns(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()

	if err := s.RecordRun(sampleRun("req1", now.Add(-time.Minute))); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordRun(sampleRun("req2", now)); err != nil {
		t.Fatal(err)
	}

	runs, err := s.Runs(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].RequestID != "req2" {
		t.Errorf("newest run = %s, want req2", runs[0].RequestID)
	}
	if runs[0].Status != string(models.WorkflowStatusCompleted) {
		t.Errorf("status = %s", runs[0].Status)
	}
	if runs[0].DurationMillis != 1200 {
		t.Errorf("duration = %d", runs[0].DurationMillis)
	}
	if len(runs[0].PromptHash) != 64 {
		t.Errorf("prompt hash length = %d, want 64", len(runs[0].PromptHash))
	}
	if runs[0].PromptExcerpt == "" {
		t.Error("empty prompt excerpt")
	}
}

func TestEventsForRequest(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()

	if err := s.RecordRun(sampleRun("req1", now)); err != nil {
		t.Fatal(err)
	}

	events, err := s.Events("req1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Message != "request accepted" {
		t.Errorf("first event = %q", events[0].Message)
	}
	if events[1].Step != "collect" {
		t.Errorf("second event step = %q", events[1].Step)
	}

	none, err := s.Events("unknown")
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("unknown request returned %d events", len(none))
	}
}

func TestRunsLimit(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		run := sampleRun(string(rune('a'+i)), now.Add(time.Duration(i)*time.Second))
		if err := s.RecordRun(run); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.Runs(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Errorf("runs = %d, want 3", len(runs))
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.db")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.RecordRun(sampleRun("req1", time.Now().UTC())); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	runs, err := s.Runs(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("runs after reopen = %d, want 1", len(runs))
	}
}
