package exec

import (
	"context"
	"sync"

	"github.com/railcar-dev/railcar/pkg/schema"
)

// FakeRunner is a scripted Runner for tests: exact command strings map to
// canned results. Unscripted commands fail with a NOT_FOUND error so tests
// notice unexpected executions. Safe for concurrent use.
type FakeRunner struct {
	mu      sync.Mutex
	results map[string]fakeResult
	calls   []string
}

type fakeResult struct {
	res Result
	err error
}

// NewFakeRunner creates an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{results: make(map[string]fakeResult)}
}

// Script registers stdout for an exact command string.
func (f *FakeRunner) Script(command, stdout string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[command] = fakeResult{res: Result{Stdout: stdout}}
	return f
}

// ScriptError registers a failure for an exact command string.
func (f *FakeRunner) ScriptError(command, stderr string, exitCode int) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[command] = fakeResult{
		res: Result{Stderr: stderr, ExitCode: exitCode},
		err: schema.NewErrorf(schema.ErrCodeExecution, "exit %d: %s", exitCode, Truncate(stderr)),
	}
	return f
}

// Run returns the scripted result for command, recording the call.
func (f *FakeRunner) Run(_ context.Context, command, _ string, _ map[string]string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, command)
	if r, ok := f.results[command]; ok {
		return r.res, r.err
	}
	return Result{}, schema.NewErrorf(schema.ErrCodeNotFound, "unscripted command: %s", command)
}

// Calls returns every command Run has seen, in order.
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how many times command has been run.
func (f *FakeRunner) CallCount(command string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == command {
			n++
		}
	}
	return n
}
