package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	// Initially empty.
	assert.Equal(t, "", RunID(ctx))
	assert.Equal(t, "", Workflow(ctx))
	assert.Equal(t, "", StepID(ctx))

	// Set values.
	ctx = WithRunID(ctx, "run-123")
	ctx = WithWorkflow(ctx, "pre-push")
	ctx = WithStepID(ctx, "review")

	// Round-trip.
	assert.Equal(t, "run-123", RunID(ctx))
	assert.Equal(t, "pre-push", Workflow(ctx))
	assert.Equal(t, "review", StepID(ctx))
}

func TestWithRun(t *testing.T) {
	ctx := WithRun(context.Background(), "run-1", "release-check")
	assert.Equal(t, "run-1", RunID(ctx))
	assert.Equal(t, "release-check", Workflow(ctx))
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner))

	ctx := WithStepID(WithRun(context.Background(), "run-auto", "pre-push"), "review")
	logger.InfoContext(ctx, "auto inject")

	output := buf.String()
	assert.Contains(t, output, `"run_id":"run-auto"`)
	assert.Contains(t, output, `"workflow":"pre-push"`)
	assert.Contains(t, output, `"step_id":"review"`)
	assert.Contains(t, output, "auto inject")
}

func TestCorrelationHandlerEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner))

	logger.InfoContext(context.Background(), "bare log")

	output := buf.String()
	assert.NotContains(t, output, "run_id")
	assert.NotContains(t, output, "step_id")
	assert.Contains(t, output, "bare log")
}

func TestCorrelationHandlerPartialContext(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner))

	ctx := WithRunID(context.Background(), "run-only")
	logger.InfoContext(ctx, "partial")

	output := buf.String()
	assert.Contains(t, output, `"run_id":"run-only"`)
	assert.NotContains(t, output, "step_id")
}

func TestCorrelationHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	handler := NewCorrelationHandler(inner)
	logger := slog.New(handler.WithAttrs([]slog.Attr{slog.String("component", "engine")}))

	ctx := WithRunID(context.Background(), "run-attr")
	logger.InfoContext(ctx, "with attrs")

	output := buf.String()
	assert.Contains(t, output, `"run_id":"run-attr"`)
	assert.Contains(t, output, `"component":"engine"`)
}

func TestCorrelationHandlerWithGroup(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	handler := NewCorrelationHandler(inner)
	logger := slog.New(handler.WithGroup("engine"))

	ctx := WithRunID(context.Background(), "run-grp")
	logger.InfoContext(ctx, "grouped", "key", "val")

	output := buf.String()
	assert.Contains(t, output, "run-grp")
	assert.Contains(t, output, "grouped")
}
