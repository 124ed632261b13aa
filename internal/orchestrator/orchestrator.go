// Package orchestrator supervises the four-stage pipeline: it owns the
// agents, drives the workflow for each request and accumulates metrics
// and audit events.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mosaic-agent/mosaic/internal/agent"
	"github.com/mosaic-agent/mosaic/internal/collect"
	"github.com/mosaic-agent/mosaic/internal/distribute"
	"github.com/mosaic-agent/mosaic/internal/guard"
	"github.com/mosaic-agent/mosaic/internal/refine"
	"github.com/mosaic-agent/mosaic/internal/synthesize"
	"github.com/mosaic-agent/mosaic/pkg/models"
)

// Step names of the default pipeline.
const (
	StepRefine     = "refine"
	StepDistribute = "distribute"
	StepCollect    = "collect"
	StepSynthesize = "synthesize"
)

// RunRecord summarizes one finished orchestration for the audit store.
type RunRecord struct {
	// RequestID is the request identifier.
	RequestID string
	// Prompt is the original prompt.
	Prompt string
	// Status is the terminal workflow status.
	Status models.WorkflowStatus
	// Duration is the wall time of the workflow.
	Duration time.Duration
	// Confidence is the overall aggregation confidence, 0 if unreached.
	Confidence float64
	// StepSummary lists the executed steps and their outcomes.
	StepSummary string
	// Events are the audit events recorded during the run.
	Events []AuditEvent
	// At is when the run finished.
	At time.Time
}

// Recorder persists finished runs. The audit store implements it; a nil
// recorder keeps history in memory only.
type Recorder interface {
	RecordRun(run RunRecord) error
}

// Options configure the orchestrator.
type Options struct {
	// DispatchPolicy selects how agents are picked for tasks.
	DispatchPolicy string
	// StepTimeout bounds each pipeline step.
	StepTimeout time.Duration
	// StepRetries is the retry count passed to agents per step.
	StepRetries int
	// RingCapacity bounds the in-memory audit event ring.
	RingCapacity int
}

// DefaultOptions returns the orchestrator defaults.
func DefaultOptions() Options {
	return Options{
		DispatchPolicy: PolicyLoadBalanced,
		StepTimeout:    2 * time.Minute,
		RingCapacity:   256,
	}
}

// Orchestrator supervises agents and processes requests end to end.
type Orchestrator struct {
	guard       *guard.Guard
	registry    *registry
	distributor *distribute.Distributor
	metrics     *Metrics
	ring        *auditRing
	recorder    Recorder
	opts        Options
}

// New creates an Orchestrator. The orchestrator's own options pass
// through the compliance guard, the same check every agent runs on its
// configuration at registration.
func New(g *guard.Guard, d *distribute.Distributor, opts Options) (*Orchestrator, error) {
	if opts.DispatchPolicy == "" {
		opts.DispatchPolicy = PolicyLoadBalanced
	}
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = DefaultOptions().StepTimeout
	}
	if err := g.CheckPayload(opts); err != nil {
		return nil, err
	}
	return &Orchestrator{
		guard:       g,
		registry:    newRegistry(g),
		distributor: d,
		metrics:     NewMetrics(),
		ring:        newAuditRing(opts.RingCapacity),
		opts:        opts,
	}, nil
}

// SetRecorder installs the audit store the event ring flushes to.
func (o *Orchestrator) SetRecorder(r Recorder) {
	o.recorder = r
}

// RegisterAgent checks the agent against the compliance guard,
// distributes the shared comm key and initializes it.
func (o *Orchestrator) RegisterAgent(ctx context.Context, a Agent) error {
	return o.registry.register(ctx, a)
}

// UnregisterAgent shuts the agent down and removes it.
func (o *Orchestrator) UnregisterAgent(id string) error {
	return o.registry.unregister(id)
}

// Agents snapshots the registered agents.
func (o *Orchestrator) Agents() []models.AgentInfo {
	return o.registry.infos()
}

// Metrics returns a snapshot of the process counters.
func (o *Orchestrator) Metrics() models.MetricsSnapshot {
	return o.metrics.Snapshot()
}

// Events returns the retained audit events, oldest first.
func (o *Orchestrator) Events() []AuditEvent {
	return o.ring.snapshot()
}

// DispatchTask routes a payload to a ready agent of the given type
// according to the dispatch policy and records the outcome in the
// metrics.
func (o *Orchestrator) DispatchTask(ctx context.Context, agentType models.AgentType, payload any) (*models.Task, error) {
	a, err := o.registry.pick(agentType, o.opts.DispatchPolicy)
	if err != nil {
		return nil, err
	}

	task, err := a.ExecuteTask(ctx, uuid.New().String(), payload, agent.TaskOptions{
		Timeout: o.opts.StepTimeout,
		Retries: o.opts.StepRetries,
	})
	if task != nil {
		if err != nil {
			o.metrics.TaskFailed(task.Duration())
		} else {
			o.metrics.TaskCompleted(task.Duration())
		}
	}
	return task, err
}

// pipelineState carries the intermediate products of one request
// between the workflow steps.
type pipelineState struct {
	refined    *models.RefinedPrompt
	results    []*models.SourceResult
	aggregated *models.AggregatedStructure
	synthesis  *models.SynthesisResult
	agents     models.PipelineAgents
}

// ProcessRequest runs the full pipeline for one prompt. The returned
// result carries the workflow record even when a step fails; the error
// is non-nil only when the request could not be processed at all.
func (o *Orchestrator) ProcessRequest(ctx context.Context, prompt string, reqCtx map[string]any) (*models.OrchestrationResult, error) {
	requestID := uuid.New().String()[:8]
	state := &pipelineState{}

	steps := []Step{
		{
			Name:     StepRefine,
			Required: true,
			Run: func(ctx context.Context) (any, error) {
				task, err := o.DispatchTask(ctx, models.AgentTypeRefinement, &refine.Request{Prompt: prompt, Context: reqCtx})
				if task != nil {
					state.agents.Refinement = task.AgentID
				}
				if err != nil {
					return nil, err
				}
				refined, ok := task.Result.(*models.RefinedPrompt)
				if !ok {
					return nil, fmt.Errorf("refinement returned %T", task.Result)
				}
				state.refined = refined
				return refined, nil
			},
		},
		{
			Name:     StepDistribute,
			Required: true,
			Run: func(ctx context.Context) (any, error) {
				results, err := o.distributor.Distribute(ctx, state.refined, reqCtx)
				if err != nil {
					return nil, err
				}
				state.results = results
				return results, nil
			},
		},
		{
			Name:     StepCollect,
			Required: true,
			Run: func(ctx context.Context) (any, error) {
				task, err := o.DispatchTask(ctx, models.AgentTypeCollection, &collect.Request{
					Refined: state.refined,
					Results: state.results,
					Context: reqCtx,
				})
				if task != nil {
					state.agents.Collection = task.AgentID
				}
				if err != nil {
					return nil, err
				}
				agg, ok := task.Result.(*models.AggregatedStructure)
				if !ok {
					return nil, fmt.Errorf("collection returned %T", task.Result)
				}
				state.aggregated = agg
				return agg, nil
			},
		},
		{
			Name:     StepSynthesize,
			Required: true,
			Run: func(ctx context.Context) (any, error) {
				task, err := o.DispatchTask(ctx, models.AgentTypeSynthesis, &synthesize.Request{
					Refined:    state.refined,
					Aggregated: state.aggregated,
				})
				if task != nil {
					state.agents.Synthesis = task.AgentID
				}
				if err != nil {
					return nil, err
				}
				syn, ok := task.Result.(*models.SynthesisResult)
				if !ok {
					return nil, fmt.Errorf("synthesis returned %T", task.Result)
				}
				state.synthesis = syn
				return syn, nil
			},
		},
	}

	return o.execute(ctx, requestID, prompt, steps, state)
}

// ExecuteWorkflow runs a caller-supplied step list as an ad-hoc workflow
// under the orchestrator's metrics, audit ring and recorder. Step
// conditions and required flags behave exactly as in the default
// pipeline; the label names the workflow in the audit trail.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, label string, steps []Step) (*models.OrchestrationResult, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("workflow %q has no steps", label)
	}
	requestID := uuid.New().String()[:8]
	return o.execute(ctx, requestID, label, steps, nil)
}

// execute drives a workflow and assembles the orchestration result.
func (o *Orchestrator) execute(ctx context.Context, requestID, prompt string, steps []Step, state *pipelineState) (*models.OrchestrationResult, error) {
	if state == nil {
		state = &pipelineState{}
	}

	o.metrics.WorkflowStarted()
	defer o.metrics.WorkflowFinished()

	wf := newWorkflow(steps)
	logEvent := func(ev AuditEvent) {
		ev.RequestID = requestID
		o.ring.append(ev)
	}

	logEvent(AuditEvent{Level: string(models.LogLevelInfo), Message: "request accepted", At: time.Now().UTC()})
	runWorkflow(ctx, wf, steps, logEvent)

	result := &models.OrchestrationResult{
		RequestID:      requestID,
		OriginalPrompt: prompt,
		Orchestration: models.OrchestrationDetail{
			Workflow: wf,
			Steps:    wf.StepResults,
			Metrics:  o.metrics.Snapshot(),
		},
		Agents: state.agents,
		Result: state.synthesis,
		Metadata: map[string]any{
			"dispatch_policy": o.opts.DispatchPolicy,
		},
	}
	if state.aggregated != nil {
		result.Metadata["strategy"] = string(state.aggregated.Metadata.Strategy)
		result.Metadata["overall_confidence"] = state.aggregated.Metadata.OverallConfidence
	}

	o.recordRun(requestID, prompt, wf, state)
	return result, nil
}

// recordRun flushes the run summary and the ring events to the
// recorder, if one is installed.
func (o *Orchestrator) recordRun(requestID, prompt string, wf *models.Workflow, state *pipelineState) {
	if o.recorder == nil {
		return
	}

	var duration time.Duration
	if wf.CompletedAt != nil {
		duration = wf.CompletedAt.Sub(wf.StartedAt)
	}
	confidence := 0.0
	if state.aggregated != nil {
		confidence = state.aggregated.Metadata.OverallConfidence
	}

	summary := ""
	for _, name := range wf.Steps {
		sr, ok := wf.StepResults[name]
		switch {
		case !ok:
			summary += name + ":skipped "
		case sr.Success:
			summary += name + ":ok "
		default:
			summary += name + ":failed "
		}
	}

	run := RunRecord{
		RequestID:   requestID,
		Prompt:      prompt,
		Status:      wf.Status,
		Duration:    duration,
		Confidence:  confidence,
		StepSummary: summary,
		Events:      o.ring.drain(),
		At:          time.Now().UTC(),
	}
	if err := o.recorder.RecordRun(run); err != nil {
		o.ring.append(AuditEvent{
			RequestID: requestID,
			Level:     string(models.LogLevelWarning),
			Message:   fmt.Sprintf("audit flush failed: %v", err),
			At:        time.Now().UTC(),
		})
	}
}

// Shutdown stops every registered agent.
func (o *Orchestrator) Shutdown() error {
	return o.registry.shutdownAll()
}
