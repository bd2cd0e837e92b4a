package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railcar-dev/railcar/pkg/schema"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	s, err := NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() {
		_ = s.Close()
		_ = os.RemoveAll(dir)
	})
	return s
}

func seedRun(t *testing.T, s *LibSQLStore, workflow string) *Run {
	t.Helper()
	run := &Run{
		ID:        uuid.New().String(),
		Workflow:  workflow,
		Status:    schema.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateRun(context.Background(), run))
	return run
}

// --- Run tests ---

func TestCreateAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := seedRun(t, s, "pre-push")

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "pre-push", got.Workflow)
	assert.Equal(t, schema.RunStatusRunning, got.Status)
	assert.False(t, got.Passed)
	assert.Nil(t, got.CompletedAt)
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "nonexistent")
	require.Error(t, err)
	re, ok := err.(*schema.RailcarError)
	require.True(t, ok)
	assert.Equal(t, schema.ErrCodeNotFound, re.Code)
}

func TestCompleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := seedRun(t, s, "pre-push")

	result := schema.RunResult{
		RunID:        run.ID,
		WorkflowName: "pre-push",
		Status:       schema.RunStatusCompletedOK,
		Passed:       true,
		Steps:        []schema.StepResult{{ID: "review", Passed: true}},
	}
	payload, err := json.Marshal(result)
	require.NoError(t, err)

	now := time.Now().UTC()
	run.Status = schema.RunStatusCompletedOK
	run.Passed = true
	run.Result = payload
	run.CompletedAt = &now
	require.NoError(t, s.CompleteRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, schema.RunStatusCompletedOK, got.Status)
	assert.True(t, got.Passed)
	require.NotNil(t, got.CompletedAt)

	var stored schema.RunResult
	require.NoError(t, json.Unmarshal(got.Result, &stored))
	require.Len(t, stored.Steps, 1)
	assert.Equal(t, "review", stored.Steps[0].ID)
}

func TestCompleteRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.CompleteRun(context.Background(), &Run{ID: "ghost", Status: schema.RunStatusCompletedOK})
	require.Error(t, err)
}

func TestListRunsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedRun(t, s, "pre-push")
	seedRun(t, s, "pre-push")
	other := seedRun(t, s, "release-check")

	now := time.Now().UTC()
	other.Status = schema.RunStatusCompletedWithFailures
	other.CompletedAt = &now
	require.NoError(t, s.CompleteRun(ctx, other))

	byWorkflow, err := s.ListRuns(ctx, RunFilter{Workflow: "pre-push"})
	require.NoError(t, err)
	assert.Len(t, byWorkflow, 2)

	failed := schema.RunStatusCompletedWithFailures
	byStatus, err := s.ListRuns(ctx, RunFilter{Status: &failed})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "release-check", byStatus[0].Workflow)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

// --- Event tests ---

func TestAppendAndGetEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	run := seedRun(t, s, "pre-push")

	require.NoError(t, s.AppendEvent(ctx, &Event{RunID: run.ID, Type: schema.EventRunStarted, Sequence: 1}))
	require.NoError(t, s.AppendEvent(ctx, &Event{RunID: run.ID, StepID: "review", Type: schema.EventStepStarted, Sequence: 2}))

	events, err := s.GetEvents(ctx, run.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, schema.EventRunStarted, events[0].Type)
	assert.Equal(t, "review", events[1].StepID)

	tail, err := s.GetEvents(ctx, run.ID, 1)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, int64(2), tail[0].Sequence)
}
