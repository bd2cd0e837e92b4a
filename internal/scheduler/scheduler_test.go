package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu      sync.Mutex
	runs    []string
	block   chan struct{} // when set, RunWorkflow blocks until closed
	started chan struct{} // signalled once per RunWorkflow entry
}

func (r *recordingRunner) RunWorkflow(_ context.Context, name string) error {
	r.mu.Lock()
	r.runs = append(r.runs, name)
	r.mu.Unlock()
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	return nil
}

func (r *recordingRunner) Runs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSchedulerRejectsBadCron(t *testing.T) {
	_, err := NewScheduler([]Entry{{Workflow: "nightly", Cron: "not a cron"}}, &recordingRunner{}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nightly")
}

func TestCalculateNextRun(t *testing.T) {
	s, err := NewScheduler(nil, &recordingRunner{}, testLogger())
	require.NoError(t, err)

	from := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	next, err := s.CalculateNextRun("0 2 * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC), next)
}

func TestTickFiresDueEntries(t *testing.T) {
	runner := &recordingRunner{started: make(chan struct{}, 1)}
	s, err := NewScheduler([]Entry{{Workflow: "nightly", Cron: "0 2 * * *"}}, runner, testLogger())
	require.NoError(t, err)

	// Force the entry due.
	s.entries[0].nextRun = time.Now().UTC().Add(-time.Minute)
	s.tick(context.Background(), time.Now().UTC())

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("scheduled run did not fire")
	}
	assert.Equal(t, []string{"nightly"}, runner.Runs())
	assert.True(t, s.entries[0].nextRun.After(time.Now().UTC()), "next run advanced")
}

func TestTickSkipsFutureEntries(t *testing.T) {
	runner := &recordingRunner{}
	s, err := NewScheduler([]Entry{{Workflow: "nightly", Cron: "0 2 * * *"}}, runner, testLogger())
	require.NoError(t, err)

	s.tick(context.Background(), time.Now().UTC())
	assert.Empty(t, runner.Runs())
}

func TestTickDeduplicatesInflightRuns(t *testing.T) {
	runner := &recordingRunner{
		block:   make(chan struct{}),
		started: make(chan struct{}, 2),
	}
	s, err := NewScheduler([]Entry{{Workflow: "nightly", Cron: "0 2 * * *"}}, runner, testLogger())
	require.NoError(t, err)

	s.entries[0].nextRun = time.Now().UTC().Add(-time.Minute)
	s.tick(context.Background(), time.Now().UTC())
	<-runner.started

	// Due again while the first run still holds the in-flight slot.
	s.entries[0].nextRun = time.Now().UTC().Add(-time.Minute)
	s.tick(context.Background(), time.Now().UTC())

	close(runner.block)
	assert.Equal(t, []string{"nightly"}, runner.Runs())
}

func TestStartAndStop(t *testing.T) {
	runner := &recordingRunner{}
	s, err := NewScheduler(nil, runner, testLogger())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.Error(t, s.Start(context.Background()), "double start is rejected")
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop(), "stop is idempotent")
}
