package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railcar-dev/railcar/pkg/schema"
)

func newTestEventLog(t *testing.T) (*EventLog, *LibSQLStore) {
	t.Helper()
	s := newTestStore(t)
	return NewEventLog(s), s
}

func TestEventLog_AppendEvent_MonotonicSequence(t *testing.T) {
	el, s := newTestEventLog(t)
	ctx := context.Background()
	run := seedRun(t, s, "pre-push")

	for i := 0; i < 5; i++ {
		e := &Event{
			RunID:  run.ID,
			StepID: "review",
			Type:   schema.EventStepStarted,
		}
		require.NoError(t, el.AppendEvent(ctx, e))
		assert.Equal(t, int64(i+1), e.Sequence, "sequence should be monotonic")
	}
}

func TestEventLog_SequencesAreIndependentPerRun(t *testing.T) {
	el, s := newTestEventLog(t)
	ctx := context.Background()
	r1 := seedRun(t, s, "pre-push")
	r2 := seedRun(t, s, "release-check")

	e1 := &Event{RunID: r1.ID, Type: schema.EventRunStarted}
	require.NoError(t, el.AppendEvent(ctx, e1))
	e2 := &Event{RunID: r2.ID, Type: schema.EventRunStarted}
	require.NoError(t, el.AppendEvent(ctx, e2))

	assert.Equal(t, int64(1), e1.Sequence)
	assert.Equal(t, int64(1), e2.Sequence)
}

func TestEventLog_ConcurrentAppendsKeepContiguousSequence(t *testing.T) {
	el, s := newTestEventLog(t)
	ctx := context.Background()
	run := seedRun(t, s, "pre-push")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = el.AppendEvent(ctx, &Event{RunID: run.ID, Type: schema.EventStepStarted, StepID: "review"})
		}()
	}
	wg.Wait()

	events, err := el.GetEvents(ctx, run.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, n)
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.Sequence)
	}
}

func TestEventLog_ReplaySteps(t *testing.T) {
	el, s := newTestEventLog(t)
	ctx := context.Background()
	run := seedRun(t, s, "pre-push")

	script := []Event{
		{Type: schema.EventRunStarted},
		{StepID: "build", Type: schema.EventStepStarted},
		{StepID: "build", Type: schema.EventStepPassed},
		{StepID: "review", Type: schema.EventStepStarted},
		{StepID: "review", Type: schema.EventStepRetrying},
		{StepID: "review", Type: schema.EventStepFailed},
		{StepID: "push", Type: schema.EventStepSkipped},
	}
	for i := range script {
		script[i].RunID = run.ID
		require.NoError(t, el.AppendEvent(ctx, &script[i]))
	}

	statuses, err := el.ReplaySteps(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.StepStatusPassed, statuses["build"])
	assert.Equal(t, schema.StepStatusFailed, statuses["review"])
	assert.Equal(t, schema.StepStatusSkipped, statuses["push"])
}

func TestEventLog_ReplayDetectsSequenceGap(t *testing.T) {
	el, s := newTestEventLog(t)
	ctx := context.Background()
	run := seedRun(t, s, "pre-push")

	// Bypass the log to create a gap.
	require.NoError(t, s.AppendEvent(ctx, &Event{RunID: run.ID, Type: schema.EventRunStarted, Sequence: 1}))
	require.NoError(t, s.AppendEvent(ctx, &Event{RunID: run.ID, StepID: "x", Type: schema.EventStepStarted, Sequence: 3}))

	_, err := el.ReplaySteps(ctx, run.ID)
	require.Error(t, err)
	re, ok := err.(*schema.RailcarError)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeStore, re.Code)
}
