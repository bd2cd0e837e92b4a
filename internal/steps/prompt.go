package steps

import (
	"context"

	"github.com/railcar-dev/railcar/internal/llm"
	"github.com/railcar-dev/railcar/pkg/schema"
)

// runPrompt resolves the step's prompt template, interpolates variables
// into its body, and sends it with the resolved input as one user message.
// Prompt steps carry no implicit verdict: they pass unless an explicit
// expect substring is declared and missing.
func (d *Dispatcher) runPrompt(ctx context.Context, step schema.StepDefinition, input string) Outcome {
	tpl, err := d.Prompts.Resolve(step.Prompt)
	if err != nil {
		return d.fail(step, asRailcarError(err).WithStep(step.ID))
	}

	user := d.Vars.Interpolate(tpl.Body)
	if input != "" {
		user += "\n\n## Input\n\n" + input
	}

	output, streamErr := d.complete(ctx, llm.Request{
		User:      user,
		ModelHint: tpl.ModelHint,
	})
	if streamErr != nil {
		return d.fail(step, asRailcarError(streamErr).WithStep(step.ID))
	}

	if judgeErr := judge(output, step.Expect); judgeErr != nil {
		return d.failJudged(step, output, judgeErr.WithStep(step.ID))
	}
	return d.pass(step, output)
}
