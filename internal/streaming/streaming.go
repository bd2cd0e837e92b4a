// Package streaming carries run progress out of the engine: a write-only
// ProgressSink for ordered human-readable lines, and an in-memory pub/sub
// hub for structured run events.
package streaming

import "context"

// ProgressSink receives ordered, human-readable progress output from a
// run: step headers, streamed model text, retry notices, pass/fail
// markers, and the final summary. The engine never reads from it.
type ProgressSink interface {
	// Line emits one complete progress line.
	Line(text string)
	// Chunk emits a fragment of streamed model output, delivered as it
	// arrives and before the owning step concludes.
	Chunk(text string)
}

// StreamEvent is a structured event published during a run.
type StreamEvent struct {
	RunID    string `json:"run_id"`
	Workflow string `json:"workflow"`
	StepID   string `json:"step_id,omitempty"`
	Type     string `json:"type"`
	Detail   string `json:"detail,omitempty"`
}

// EventFilter selects which events a subscriber receives.
type EventFilter struct {
	RunID string   `json:"run_id,omitempty"`
	Types []string `json:"types,omitempty"`
}

// EventHub provides pub/sub for run events.
type EventHub interface {
	Publish(ctx context.Context, event StreamEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan StreamEvent, func(), error)
}
