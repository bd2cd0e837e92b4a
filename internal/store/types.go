package store

import (
	"encoding/json"
	"time"

	"github.com/railcar-dev/railcar/pkg/schema"
)

// Run is the persisted representation of one workflow run.
type Run struct {
	ID          string           `json:"id"`
	Workflow    string           `json:"workflow"`
	Status      schema.RunStatus `json:"status"`
	Passed      bool             `json:"passed"`
	Result      json.RawMessage  `json:"result,omitempty"` // full RunResult, set on completion
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Event is an immutable entry in the run event log.
type Event struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	StepID    string    `json:"step_id,omitempty"`
	Type      string    `json:"event_type"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Sequence  int64     `json:"sequence"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Workflow string            `json:"workflow,omitempty"`
	Status   *schema.RunStatus `json:"status,omitempty"`
	Since    *time.Time        `json:"since,omitempty"`
	Limit    int               `json:"limit,omitempty"`
	Offset   int               `json:"offset,omitempty"`
}
