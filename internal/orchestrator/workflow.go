package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mosaic-agent/mosaic/pkg/models"
)

// Step is one unit of a workflow. Run produces the step output; the
// conditions are evaluated against that output after success.
type Step struct {
	// Name identifies the step within the workflow.
	Name string
	// Required aborts the workflow when the step fails. A non-required
	// failure is logged as a warning and execution continues.
	Required bool
	// Conditions gate the continuation of the workflow. A failed
	// condition stops the workflow as completed, not as an error.
	Conditions []models.StepCondition
	// Run executes the step.
	Run func(ctx context.Context) (any, error)
}

func newWorkflow(steps []Step) *models.Workflow {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return &models.Workflow{
		ID:          uuid.New().String()[:8],
		Steps:       names,
		StepResults: map[string]*models.StepResult{},
		Status:      models.WorkflowStatusCreated,
	}
}

// runWorkflow drives the steps in order. The workflow ends as:
//   - error when a required step fails (earlier results are retained),
//   - completed when a step condition stops it early (info log entry),
//   - completed when every step has run, warnings included.
func runWorkflow(ctx context.Context, wf *models.Workflow, steps []Step, log func(AuditEvent)) {
	wf.Status = models.WorkflowStatusRunning
	wf.StartedAt = time.Now().UTC()

	finish := func(status models.WorkflowStatus) {
		now := time.Now().UTC()
		wf.Status = status
		wf.CompletedAt = &now
	}

	for i, step := range steps {
		wf.CurrentStep = i

		sr := &models.StepResult{Step: step.Name, StartedAt: time.Now().UTC()}
		output, err := step.Run(ctx)
		sr.CompletedAt = time.Now().UTC()

		if err != nil {
			sr.Error = err.Error()
			wf.StepResults[step.Name] = sr

			if step.Required {
				entry := models.WorkflowLogEntry{
					Level:     models.LogLevelError,
					Step:      step.Name,
					Message:   fmt.Sprintf("required step failed: %v", err),
					Timestamp: time.Now().UTC(),
				}
				wf.Log = append(wf.Log, entry)
				log(AuditEvent{Step: step.Name, Level: string(models.LogLevelError), Message: entry.Message, At: entry.Timestamp})
				finish(models.WorkflowStatusError)
				return
			}

			entry := models.WorkflowLogEntry{
				Level:     models.LogLevelWarning,
				Step:      step.Name,
				Message:   fmt.Sprintf("step failed: %v", err),
				Timestamp: time.Now().UTC(),
			}
			wf.Log = append(wf.Log, entry)
			log(AuditEvent{Step: step.Name, Level: string(models.LogLevelWarning), Message: entry.Message, At: entry.Timestamp})
			continue
		}

		sr.Success = true
		sr.Output = output
		wf.StepResults[step.Name] = sr

		if cond, ok := failedCondition(step.Conditions, output); ok {
			entry := models.WorkflowLogEntry{
				Level:     models.LogLevelInfo,
				Step:      step.Name,
				Message:   fmt.Sprintf("stopped_early: condition %s %s not met", cond.Field, cond.Operator),
				Timestamp: time.Now().UTC(),
			}
			wf.Log = append(wf.Log, entry)
			log(AuditEvent{Step: step.Name, Level: string(models.LogLevelInfo), Message: entry.Message, At: entry.Timestamp})
			finish(models.WorkflowStatusCompleted)
			return
		}
	}

	finish(models.WorkflowStatusCompleted)
}

// failedCondition returns the first condition the output does not meet.
func failedCondition(conditions []models.StepCondition, output any) (models.StepCondition, bool) {
	for _, c := range conditions {
		if !evalCondition(c, output) {
			return c, true
		}
	}
	return models.StepCondition{}, false
}

// evalCondition resolves the dotted field path against the step output
// and applies the operator. An unresolvable path fails every operator
// except not_equals.
func evalCondition(c models.StepCondition, output any) bool {
	value, found := lookupPath(output, c.Field)

	switch c.Operator {
	case models.OpExists:
		return found && value != nil
	case models.OpEquals:
		return found && equalValues(value, c.Value)
	case models.OpNotEquals:
		return !found || !equalValues(value, c.Value)
	case models.OpGreaterThan:
		got, ok1 := toFloat(value)
		want, ok2 := toFloat(c.Value)
		return found && ok1 && ok2 && got > want
	default:
		return false
	}
}

// lookupPath traverses the output as generic JSON data along a dotted
// path. Typed structs are converted through a marshal round trip.
func lookupPath(output any, path string) (any, bool) {
	if path == "" {
		return output, output != nil
	}

	node := toGeneric(output)
	for _, part := range strings.Split(path, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

func toGeneric(v any) any {
	switch v.(type) {
	case map[string]any, []any, string, float64, bool, nil:
		return v
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func equalValues(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
