package steps

import (
	"context"
	"errors"

	"github.com/railcar-dev/railcar/internal/llm"
	"github.com/railcar-dev/railcar/pkg/schema"
)

// verdictInstruction is appended to every persona so the judge has a
// deterministic marker to look for.
const verdictInstruction = "\n\nConclude your response with a final line of exactly " +
	"\"RESULT: PASS\" if the input meets the criteria above, or \"RESULT: FAIL\" if it does not."

// runAgent resolves the step's persona, streams a judged model call, and
// folds the verdict into the outcome. The model's full response is the
// step output either way.
func (d *Dispatcher) runAgent(ctx context.Context, step schema.StepDefinition, input string) Outcome {
	persona, err := d.Personas.Resolve(step.Agent)
	if err != nil {
		return d.fail(step, asRailcarError(err).WithStep(step.ID))
	}

	output, streamErr := d.complete(ctx, llm.Request{
		System:    persona.Body + verdictInstruction,
		User:      input,
		ModelHint: persona.ModelHint,
	})
	if streamErr != nil {
		return d.fail(step, asRailcarError(streamErr).WithStep(step.ID))
	}

	if judgeErr := judge(output, agentExpectation(step)); judgeErr != nil {
		return d.failJudged(step, output, judgeErr.WithStep(step.ID))
	}
	return d.pass(step, output)
}

// complete issues one chat request and drains the stream, forwarding
// fragments to the progress sink.
func (d *Dispatcher) complete(ctx context.Context, req llm.Request) (string, error) {
	stream, err := d.LLM.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	sink := d.sink()
	return llm.Collect(ctx, stream, sink.Chunk)
}

// asRailcarError coerces an arbitrary error into the typed form, wrapping
// foreign errors as execution failures. Typed errors are copied so callers
// can attach a step ID without mutating shared sentinels.
func asRailcarError(err error) *schema.RailcarError {
	var re *schema.RailcarError
	if errors.As(err, &re) {
		clone := *re
		return &clone
	}
	return schema.NewError(schema.ErrCodeExecution, err.Error()).WithCause(err)
}
