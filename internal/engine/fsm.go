package engine

import "github.com/railcar-dev/railcar/pkg/schema"

// ValidRunTransitions defines the allowed state transitions for runs.
var ValidRunTransitions = map[schema.RunStatus][]schema.RunStatus{
	schema.RunStatusPending: {schema.RunStatusRunning, schema.RunStatusCancelled},
	schema.RunStatusRunning: {
		schema.RunStatusCompletedOK,
		schema.RunStatusCompletedWithFailures,
		schema.RunStatusAborted,
		schema.RunStatusCancelled,
	},
	schema.RunStatusCompletedOK:           {},
	schema.RunStatusCompletedWithFailures: {},
	schema.RunStatusAborted:               {},
	schema.RunStatusCancelled:             {},
}

// ValidStepTransitions defines the allowed state transitions for steps.
var ValidStepTransitions = map[schema.StepStatus][]schema.StepStatus{
	schema.StepStatusPending:  {schema.StepStatusRunning, schema.StepStatusSkipped},
	schema.StepStatusRunning:  {schema.StepStatusPassed, schema.StepStatusFailed, schema.StepStatusRetrying},
	schema.StepStatusRetrying: {schema.StepStatusRunning, schema.StepStatusFailed},
	schema.StepStatusPassed:   {},
	schema.StepStatusFailed:   {},
	schema.StepStatusSkipped:  {},
}

// StepTracker enforces the step lifecycle: every status change goes
// through To, which rejects transitions the table does not allow.
type StepTracker struct {
	ID     string
	Status schema.StepStatus
}

// NewStepTracker starts a tracker in the pending state.
func NewStepTracker(id string) *StepTracker {
	return &StepTracker{ID: id, Status: schema.StepStatusPending}
}

// To transitions the step to next, or fails with INVALID_TRANSITION.
func (t *StepTracker) To(next schema.StepStatus) error {
	if !validStepTransition(t.Status, next) {
		return schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"invalid step transition: %s -> %s", t.Status, next).WithStep(t.ID)
	}
	t.Status = next
	return nil
}

// RunTracker enforces the run lifecycle.
type RunTracker struct {
	Status schema.RunStatus
}

// NewRunTracker starts a tracker in the pending state.
func NewRunTracker() *RunTracker {
	return &RunTracker{Status: schema.RunStatusPending}
}

// To transitions the run to next, or fails with INVALID_TRANSITION.
func (t *RunTracker) To(next schema.RunStatus) error {
	if !validRunTransition(t.Status, next) {
		return schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"invalid run transition: %s -> %s", t.Status, next)
	}
	t.Status = next
	return nil
}

func validStepTransition(from, to schema.StepStatus) bool {
	for _, a := range ValidStepTransitions[from] {
		if a == to {
			return true
		}
	}
	return false
}

func validRunTransition(from, to schema.RunStatus) bool {
	for _, a := range ValidRunTransitions[from] {
		if a == to {
			return true
		}
	}
	return false
}
