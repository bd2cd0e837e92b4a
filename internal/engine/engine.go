// Package engine executes workflow definitions: steps run strictly in
// document order, each gated by its condition, judged by its executor,
// and governed by its failure policy. The engine owns the run lifecycle
// and produces one RunResult per run; individual step failures are data
// in that result, never errors out of Run.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/railcar-dev/railcar/internal/conditions"
	"github.com/railcar-dev/railcar/internal/exec"
	"github.com/railcar-dev/railcar/internal/gitinfo"
	"github.com/railcar-dev/railcar/internal/llm"
	"github.com/railcar-dev/railcar/internal/logging"
	"github.com/railcar-dev/railcar/internal/personas"
	"github.com/railcar-dev/railcar/internal/steps"
	"github.com/railcar-dev/railcar/internal/store"
	"github.com/railcar-dev/railcar/internal/streaming"
	"github.com/railcar-dev/railcar/internal/vars"
	"github.com/railcar-dev/railcar/pkg/schema"
)

// Engine runs workflow definitions against injected capabilities. Hub,
// History, and Events are optional: a nil hub publishes nothing, a nil
// store persists nothing. Persistence is best-effort — a failed write is
// logged, never surfaced into the run outcome.
type Engine struct {
	Exec     exec.Runner
	LLM      llm.Client
	Personas personas.Resolver
	Prompts  personas.Resolver
	Hub      streaming.EventHub
	History  store.Store
	Events   *store.EventLog
	Logger   *slog.Logger
	WorkDir  string

	// Sleep waits between retry attempts; tests replace it to avoid
	// real delays. Defaults to WaitForBackoff.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run executes def and returns the aggregate result. The returned error
// is non-nil only for a run that could not start (invalid definition);
// aborted, failed, and cancelled runs all return a RunResult.
func (e *Engine) Run(ctx context.Context, def schema.WorkflowDefinition, sink streaming.ProgressSink) (*schema.RunResult, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = streaming.NopSink{}
	}

	runID := uuid.New().String()
	ctx = logging.WithRun(ctx, runID, def.Name)
	logger := e.logger()

	varStore := vars.NewStore()
	if gitCtx, err := gitinfo.Collect(ctx, e.Exec, e.WorkDir); err == nil {
		gitCtx.Seed(varStore)
	} else {
		logger.DebugContext(ctx, "repository context unavailable", slog.String("error", err.Error()))
	}

	dispatcher := &steps.Dispatcher{
		Exec:     e.Exec,
		LLM:      e.LLM,
		Personas: e.Personas,
		Prompts:  e.Prompts,
		Vars:     varStore,
		Sink:     sink,
		WorkDir:  e.WorkDir,
	}

	result := &schema.RunResult{
		RunID:        runID,
		WorkflowName: def.Name,
		Status:       schema.RunStatusRunning,
		StartedAt:    time.Now().UTC(),
	}
	ledger := newRunLedger()
	run := NewRunTracker()
	_ = run.To(schema.RunStatusRunning)

	e.recordStart(ctx, result)
	e.emit(ctx, result, "", schema.EventRunStarted, "")
	sink.Line(fmt.Sprintf("workflow %s: %d steps", def.Name, len(def.Steps)))
	logger.InfoContext(ctx, "run started", slog.Int("steps", len(def.Steps)))

	var cancelled, aborted bool

steps:
	for i := range def.Steps {
		step := def.Steps[i]
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		stepCtx := logging.WithStepID(ctx, step.ID)
		tracker := NewStepTracker(step.ID)

		if step.Condition != "" && !conditions.Eval(step.Condition, ledger) {
			_ = tracker.To(schema.StepStatusSkipped)
			ledger.append(schema.StepResult{ID: step.ID, Passed: true, Skipped: true})
			sink.Line(fmt.Sprintf("step %s: skipped (condition not met)", step.ID))
			e.emit(stepCtx, result, step.ID, schema.EventStepSkipped, step.Condition)
			continue
		}

		// Policies were syntax-checked by Validate; the error is unreachable.
		policy, _ := schema.ParseFailurePolicy(step.FailurePolicy)

		outcome, attempts, waitErr := e.runAttempts(stepCtx, dispatcher, tracker, step, policy, sink, result)
		outcome.Result.Attempts = attempts
		ledger.append(outcome.Result)

		// Captures happen after the final attempt, and only for non-empty
		// values, so an empty retry output cannot clobber a variable.
		if step.CaptureAs != "" && outcome.Capture != "" {
			varStore.Set(step.CaptureAs, outcome.Capture)
		}

		if outcome.Result.Passed {
			_ = tracker.To(schema.StepStatusPassed)
			sink.Line(fmt.Sprintf("step %s: passed", step.ID))
			e.emit(stepCtx, result, step.ID, schema.EventStepPassed, "")
			continue
		}

		_ = tracker.To(schema.StepStatusFailed)
		sink.Line(fmt.Sprintf("step %s: failed: %s", step.ID, outcome.Result.FailureReason))
		e.emit(stepCtx, result, step.ID, schema.EventStepFailed, outcome.Result.FailureReason)

		switch {
		case waitErr != nil || ctx.Err() != nil:
			cancelled = true
			break steps
		case policy.AbortsRun():
			aborted = true
			result.AbortedAtStepID = step.ID
			break steps
		default:
			logger.WarnContext(stepCtx, "step failed, continuing",
				slog.String("reason", outcome.Result.FailureReason))
		}
	}

	result.Steps = ledger.results()
	result.Passed = true
	for i := range result.Steps {
		if !result.Steps[i].Passed {
			result.Passed = false
			break
		}
	}

	switch {
	case cancelled:
		result.Status = schema.RunStatusCancelled
	case aborted:
		result.Status = schema.RunStatusAborted
	case result.Passed:
		result.Status = schema.RunStatusCompletedOK
	default:
		result.Status = schema.RunStatusCompletedWithFailures
	}
	_ = run.To(result.Status)
	result.CompletedAt = time.Now().UTC()

	e.emit(ctx, result, "", runEventType(result.Status), result.AbortedAtStepID)
	sink.Line(summaryLine(result))
	logger.InfoContext(ctx, "run finished",
		slog.String("status", string(result.Status)),
		slog.Bool("passed", result.Passed))
	e.recordFinish(ctx, result)

	return result, nil
}

// runAttempts drives one step through its retry budget. It returns the
// last attempt's outcome, the number of attempts consumed, and a non-nil
// error only when the backoff wait was cancelled.
func (e *Engine) runAttempts(ctx context.Context, d *steps.Dispatcher, tracker *StepTracker, step schema.StepDefinition, policy schema.FailurePolicy, sink streaming.ProgressSink, result *schema.RunResult) (steps.Outcome, int, error) {
	total := policy.Attempts()
	var outcome steps.Outcome

	for attempt := 1; attempt <= total; attempt++ {
		if attempt == 1 {
			_ = tracker.To(schema.StepStatusRunning)
			sink.Line(fmt.Sprintf("step %s: running", step.ID))
			e.emit(ctx, result, step.ID, schema.EventStepStarted, "")
		} else {
			_ = tracker.To(schema.StepStatusRunning)
			sink.Line(fmt.Sprintf("step %s: retrying (attempt %d/%d)", step.ID, attempt, total))
		}

		outcome = d.Dispatch(ctx, step)
		if outcome.Result.Passed || !outcome.Retryable || attempt == total {
			return outcome, attempt, nil
		}

		_ = tracker.To(schema.StepStatusRetrying)
		e.emit(ctx, result, step.ID, schema.EventStepRetrying,
			fmt.Sprintf("attempt %d/%d failed: %s", attempt, total, outcome.Result.FailureReason))

		if delay := ComputeBackoff(policy.Delay, attempt); delay > 0 {
			if err := e.sleep(ctx, delay); err != nil {
				return outcome, attempt, err
			}
		}
	}
	return outcome, total, nil
}

// --- plumbing ---

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	return WaitForBackoff(ctx, d)
}

// emit publishes a structured event to the hub and appends it to the
// persistent event log. Both are best-effort.
func (e *Engine) emit(ctx context.Context, result *schema.RunResult, stepID, eventType, detail string) {
	if e.Hub != nil {
		ev := streaming.StreamEvent{
			RunID:    result.RunID,
			Workflow: result.WorkflowName,
			StepID:   stepID,
			Type:     eventType,
			Detail:   detail,
		}
		if err := e.Hub.Publish(ctx, ev); err != nil {
			e.logger().WarnContext(ctx, "publish event", slog.String("error", err.Error()))
		}
	}
	if e.Events != nil {
		ev := &store.Event{
			RunID:  result.RunID,
			StepID: stepID,
			Type:   eventType,
			Detail: detail,
		}
		if err := e.Events.AppendEvent(ctx, ev); err != nil {
			e.logger().WarnContext(ctx, "append event", slog.String("error", err.Error()))
		}
	}
}

func (e *Engine) recordStart(ctx context.Context, result *schema.RunResult) {
	if e.History == nil {
		return
	}
	err := e.History.CreateRun(ctx, &store.Run{
		ID:        result.RunID,
		Workflow:  result.WorkflowName,
		Status:    schema.RunStatusRunning,
		StartedAt: result.StartedAt,
	})
	if err != nil {
		e.logger().WarnContext(ctx, "record run start", slog.String("error", err.Error()))
	}
}

func (e *Engine) recordFinish(ctx context.Context, result *schema.RunResult) {
	if e.History == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		e.logger().WarnContext(ctx, "marshal run result", slog.String("error", err.Error()))
		return
	}
	completed := result.CompletedAt
	err = e.History.CompleteRun(ctx, &store.Run{
		ID:          result.RunID,
		Workflow:    result.WorkflowName,
		Status:      result.Status,
		Passed:      result.Passed,
		Result:      payload,
		StartedAt:   result.StartedAt,
		CompletedAt: &completed,
	})
	if err != nil {
		e.logger().WarnContext(ctx, "record run finish", slog.String("error", err.Error()))
	}
}

func runEventType(status schema.RunStatus) string {
	switch status {
	case schema.RunStatusAborted:
		return schema.EventRunAborted
	case schema.RunStatusCancelled:
		return schema.EventRunCancelled
	default:
		return schema.EventRunCompleted
	}
}

func summaryLine(result *schema.RunResult) string {
	var passed, failed, skipped int
	for i := range result.Steps {
		switch {
		case result.Steps[i].Skipped:
			skipped++
		case result.Steps[i].Passed:
			passed++
		default:
			failed++
		}
	}
	return fmt.Sprintf("run %s: %d passed, %d failed, %d skipped",
		result.Status, passed, failed, skipped)
}
