package schema

// Event types recorded in the run event log and published on the hub.
const (
	EventRunStarted   = "run.started"
	EventRunCompleted = "run.completed"
	EventRunAborted   = "run.aborted"
	EventRunCancelled = "run.cancelled"

	EventStepStarted  = "step.started"
	EventStepRetrying = "step.retrying"
	EventStepPassed   = "step.passed"
	EventStepFailed   = "step.failed"
	EventStepSkipped  = "step.skipped"
)
