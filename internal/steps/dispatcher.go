// Package steps dispatches one step definition to its executor: an
// LLM-backed agent call, a templated prompt call, or a shell command.
// The dispatcher owns input resolution and pass/fail judging; ordering,
// retries, and failure policy live in the engine.
package steps

import (
	"context"
	"strings"

	"github.com/railcar-dev/railcar/internal/exec"
	"github.com/railcar-dev/railcar/internal/llm"
	"github.com/railcar-dev/railcar/internal/personas"
	"github.com/railcar-dev/railcar/internal/streaming"
	"github.com/railcar-dev/railcar/internal/vars"
	"github.com/railcar-dev/railcar/pkg/schema"
)

// Built-in input source names and the fixed commands behind them.
const (
	SourceDiffStaged     = "git_diff_staged"
	SourceDiffLastCommit = "git_diff_last_commit"
	SourceCommitMessage  = "commit_message_last"
)

var builtinSources = map[string]string{
	SourceDiffStaged:     "git diff --cached",
	SourceDiffLastCommit: "git diff HEAD~1 HEAD",
	SourceCommitMessage:  "git log -1 --pretty=%B",
}

// stageTrackedCommand is the one auto-remediation the dispatcher performs:
// when git_diff_staged resolves empty, stage tracked modifications and
// re-resolve once.
const stageTrackedCommand = "git add -u"

// Outcome is the result of dispatching one step attempt.
type Outcome struct {
	Result schema.StepResult
	// Capture is the value to store under the step's capture_as variable:
	// de-fenced (prompt steps) and filtered (capture_filter), possibly
	// empty. Storing it is the runner's job, after the final attempt.
	Capture string
	// Retryable reports whether a failed attempt may consume retry
	// budget. Configuration errors and model unavailability are final.
	Retryable bool
}

// Dispatcher executes single steps against injected capabilities.
type Dispatcher struct {
	Exec     exec.Runner
	LLM      llm.Client
	Personas personas.Resolver // persona documents (agent steps)
	Prompts  personas.Resolver // prompt templates (prompt steps)
	Vars     *vars.Store
	Sink     streaming.ProgressSink
	WorkDir  string
}

// Dispatch resolves the step's input and runs it. It never returns an
// error: every failure mode is folded into the Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, step schema.StepDefinition) Outcome {
	input, inputErr := d.resolveInput(ctx, step)
	if inputErr != nil {
		return d.fail(step, inputErr)
	}

	switch step.Kind {
	case schema.StepKindAgent:
		return d.runAgent(ctx, step, input)
	case schema.StepKindPrompt:
		return d.runPrompt(ctx, step, input)
	case schema.StepKindShell:
		return d.runShell(ctx, step, input)
	default:
		return d.fail(step, schema.NewErrorf(schema.ErrCodeConfig,
			"unknown step kind %q", step.Kind).WithStep(step.ID))
	}
}

// resolveInput turns the step's input declaration into literal text:
// an exact {{name}} reference reads the variable store; a recognized
// built-in source name runs its fixed command; anything else is literal
// text with interpolation applied.
func (d *Dispatcher) resolveInput(ctx context.Context, step schema.StepDefinition) (string, *schema.RailcarError) {
	raw := step.Input
	if raw == "" {
		return "", nil
	}

	if name, ok := vars.IsReference(raw); ok {
		val, _ := d.Vars.Get(name)
		return val, nil
	}

	if command, ok := builtinSources[raw]; ok {
		return d.resolveBuiltin(ctx, step, raw, command)
	}

	return d.Vars.Interpolate(raw), nil
}

func (d *Dispatcher) resolveBuiltin(ctx context.Context, step schema.StepDefinition, source, command string) (string, *schema.RailcarError) {
	out, err := d.runSource(ctx, command)
	if err != nil {
		return "(failed to read " + source + ")", nil
	}

	if source == SourceDiffStaged && out == "" {
		// Nothing staged: stage tracked modifications and look again.
		if _, stageErr := d.Exec.Run(ctx, stageTrackedCommand, d.WorkDir, nil); stageErr == nil {
			out, err = d.runSource(ctx, command)
			if err != nil {
				return "(failed to read " + source + ")", nil
			}
		}
		if out == "" {
			return "", schema.NewError(schema.ErrCodeExecution, "no changes to stage").WithStep(step.ID)
		}
	}

	return out, nil
}

func (d *Dispatcher) runSource(ctx context.Context, command string) (string, error) {
	res, err := d.Exec.Run(ctx, command, d.WorkDir, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// fail builds a failed Outcome from a typed error.
func (d *Dispatcher) fail(step schema.StepDefinition, err *schema.RailcarError) Outcome {
	return Outcome{
		Result: schema.StepResult{
			ID:            step.ID,
			Passed:        false,
			FailureReason: exec.Truncate(err.Message),
		},
		Retryable: err.Retryable(),
	}
}

// pass builds a passed Outcome and computes the capture value.
func (d *Dispatcher) pass(step schema.StepDefinition, output string) Outcome {
	return Outcome{
		Result:  schema.StepResult{ID: step.ID, Passed: true, Output: output},
		Capture: d.captureValue(step, output),
	}
}

// failJudged builds a failed Outcome for a step that executed but did not
// meet its expectation; output and capture are still populated so later
// steps can branch on what was observed.
func (d *Dispatcher) failJudged(step schema.StepDefinition, output string, err *schema.RailcarError) Outcome {
	return Outcome{
		Result: schema.StepResult{
			ID:            step.ID,
			Output:        output,
			FailureReason: exec.Truncate(err.Message),
		},
		Capture:   d.captureValue(step, output),
		Retryable: err.Retryable(),
	}
}

func (d *Dispatcher) sink() streaming.ProgressSink {
	if d.Sink != nil {
		return d.Sink
	}
	return streaming.NopSink{}
}
