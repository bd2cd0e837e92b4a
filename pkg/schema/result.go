package schema

import "time"

// StepStatus is the lifecycle state of a single step.
type StepStatus string

const (
	StepStatusPending  StepStatus = "pending"
	StepStatusRunning  StepStatus = "running"
	StepStatusRetrying StepStatus = "retrying"
	StepStatusPassed   StepStatus = "passed"
	StepStatusFailed   StepStatus = "failed"
	StepStatusSkipped  StepStatus = "skipped"
)

// RunStatus is the terminal state of a whole run.
type RunStatus string

const (
	RunStatusPending               RunStatus = "pending"
	RunStatusRunning               RunStatus = "running"
	RunStatusCompletedOK           RunStatus = "completed_ok"
	RunStatusCompletedWithFailures RunStatus = "completed_with_failures"
	RunStatusAborted               RunStatus = "aborted"
	RunStatusCancelled             RunStatus = "cancelled"
)

// StepResult is the final outcome of one step. The run ledger keeps exactly
// one StepResult per executed step id; retries overwrite earlier attempts.
type StepResult struct {
	ID            string `json:"id"`
	Passed        bool   `json:"passed"`
	Skipped       bool   `json:"skipped,omitempty"`
	Output        string `json:"output,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
	Attempts      int    `json:"attempts,omitempty"`
}

// RunResult is the aggregate outcome of one workflow run, returned to the
// caller even when the run aborted. Steps appear in execution order; steps
// never started (after an abort or cancellation) are absent.
type RunResult struct {
	RunID           string       `json:"run_id"`
	WorkflowName    string       `json:"workflow_name"`
	Status          RunStatus    `json:"status"`
	Passed          bool         `json:"passed"`
	Steps           []StepResult `json:"steps"`
	AbortedAtStepID string       `json:"aborted_at_step_id,omitempty"`
	StartedAt       time.Time    `json:"started_at"`
	CompletedAt     time.Time    `json:"completed_at"`
}

// Step returns the ledger entry for a step id, or nil if the step has not
// produced a result (not yet started, or skipped before the abort point).
func (r *RunResult) Step(id string) *StepResult {
	for i := range r.Steps {
		if r.Steps[i].ID == id {
			return &r.Steps[i]
		}
	}
	return nil
}
