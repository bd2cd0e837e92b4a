package steps

import (
	"context"
	"strings"

	"github.com/railcar-dev/railcar/internal/exec"
	"github.com/railcar-dev/railcar/pkg/schema"
)

// runShell interpolates the step's command and working directory and runs
// the command through the shell. The trimmed stdout is the step output;
// a resolved input is exported to the command as RAILCAR_INPUT.
func (d *Dispatcher) runShell(ctx context.Context, step schema.StepDefinition, input string) Outcome {
	command := d.Vars.Interpolate(step.Command)

	dir := d.WorkDir
	if step.Cwd != "" {
		dir = d.Vars.Interpolate(step.Cwd)
	}

	env := make(map[string]string, len(step.Env)+1)
	for k, v := range step.Env {
		env[k] = d.Vars.Interpolate(v)
	}
	if input != "" {
		env["RAILCAR_INPUT"] = input
	}

	res, runErr := d.Exec.Run(ctx, command, dir, env)
	output := strings.TrimSpace(res.Stdout)

	if runErr != nil {
		re := asRailcarError(runErr).WithStep(step.ID)
		if reason := exec.FailureText(res.Stderr, runErr); reason != "" {
			re = schema.NewError(re.Code, reason).WithStep(step.ID).WithCause(runErr)
		}
		return d.failJudged(step, output, re)
	}

	if judgeErr := judge(output, step.Expect); judgeErr != nil {
		return d.failJudged(step, output, judgeErr.WithStep(step.ID))
	}
	return d.pass(step, output)
}
