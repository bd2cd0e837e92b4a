// Package exec is the process-execution leaf of the engine. The Runner
// interface is injected everywhere a step or built-in input source needs a
// subprocess, so the orchestration layers are testable without spawning
// anything.
package exec

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	osexec "os/exec"
	"strings"
	"time"

	"github.com/railcar-dev/railcar/pkg/schema"
)

const (
	defaultTimeout       = 10 * time.Minute
	defaultMaxOutputSize = 10 * 1024 * 1024 // 10MB

	// FailureReasonLimit bounds failure_reason text so logs stay readable.
	FailureReasonLimit = 200
)

// Result is the captured outcome of one subprocess execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes an external command synchronously in a working directory.
type Runner interface {
	Run(ctx context.Context, command, dir string, env map[string]string) (Result, error)
}

// ShellRunner runs commands through /bin/sh -c with bounded output capture.
type ShellRunner struct {
	Timeout       time.Duration
	MaxOutputSize int64
}

// NewShellRunner creates a ShellRunner with defaults applied.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{Timeout: defaultTimeout, MaxOutputSize: defaultMaxOutputSize}
}

// Run executes command via the shell. A nonzero exit is returned as an
// EXECUTION_ERROR whose message carries stderr (truncated), with the
// captured Result still populated for the caller's judging logic.
func (r *ShellRunner) Run(ctx context.Context, command, dir string, env map[string]string) (Result, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxOut := r.MaxOutputSize
	if maxOut <= 0 {
		maxOut = defaultMaxOutputSize
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := osexec.CommandContext(execCtx, "/bin/sh", "-c", command)
	if dir != "" {
		cmd.Dir = dir
	}
	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdoutBuf, limit: maxOut}
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxOut}

	start := time.Now()
	runErr := cmd.Run()
	res := Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: time.Since(start),
	}

	if runErr == nil {
		return res, nil
	}

	if execCtx.Err() == context.DeadlineExceeded {
		res.ExitCode = -1
		return res, schema.NewErrorf(schema.ErrCodeExecution,
			"command timed out after %s", timeout).WithCause(runErr)
	}

	var exitErr *osexec.ExitError
	if errors.As(runErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, schema.NewErrorf(schema.ErrCodeExecution,
			"exit %d: %s", res.ExitCode, FailureText(res.Stderr, runErr)).WithCause(runErr)
	}

	// Not an exit error: command not found, permission denied, etc.
	res.ExitCode = -1
	return res, schema.NewErrorf(schema.ErrCodeExecution, "%s", Truncate(runErr.Error())).WithCause(runErr)
}

// FailureText picks the most useful description of a failed execution:
// stderr when present, the raw error otherwise. Truncated to
// FailureReasonLimit.
func FailureText(stderr string, err error) string {
	text := strings.TrimSpace(stderr)
	if text == "" && err != nil {
		text = err.Error()
	}
	return Truncate(text)
}

// Truncate bounds s to FailureReasonLimit characters, appending an
// ellipsis marker when cut.
func Truncate(s string) string {
	if len(s) <= FailureReasonLimit {
		return s
	}
	return s[:FailureReasonLimit] + "..."
}

// --- limitedWriter ---

// limitedWriter wraps a writer and silently discards bytes beyond the
// limit. Write always reports the full len(p) consumed to prevent the
// subprocess from blocking on a full pipe.
type limitedWriter struct {
	w       io.Writer
	limit   int64
	written int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	total := len(p)
	remaining := lw.limit - lw.written
	if remaining <= 0 {
		return total, nil
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := lw.w.Write(p)
	lw.written += int64(n)
	if err != nil {
		return total, err
	}
	return total, nil
}
