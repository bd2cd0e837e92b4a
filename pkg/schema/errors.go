package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeConfig            = "CONFIG_ERROR"    // unknown step kind, missing referenced document
	ErrCodeExecution         = "EXECUTION_ERROR" // process nonzero exit, dispatch threw
	ErrCodeExpectation       = "EXPECTATION_MISMATCH"
	ErrCodeNoModel           = "NO_MODEL_AVAILABLE"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeCancelled         = "CANCELLED"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeStore             = "STORE_ERROR"
)

// RailcarError is the structured error type for all railcar operations.
type RailcarError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	StepID  string `json:"step_id,omitempty"`
	Cause   error  `json:"-"`
}

func (e *RailcarError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("[%s] step %s: %s", e.Code, e.StepID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *RailcarError) Unwrap() error {
	return e.Cause
}

// NewError creates a new RailcarError.
func NewError(code, message string) *RailcarError {
	return &RailcarError{Code: code, Message: message}
}

// NewErrorf creates a new RailcarError with a formatted message.
func NewErrorf(code, format string, args ...any) *RailcarError {
	return &RailcarError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithStep attaches a step ID to the error.
func (e *RailcarError) WithStep(stepID string) *RailcarError {
	e.StepID = stepID
	return e
}

// WithCause attaches an underlying cause.
func (e *RailcarError) WithCause(err error) *RailcarError {
	e.Cause = err
	return e
}

// Retryable reports whether the failure class is subject to the step's
// retry budget. Configuration problems and model unavailability fail the
// step immediately regardless of policy.
func (e *RailcarError) Retryable() bool {
	switch e.Code {
	case ErrCodeConfig, ErrCodeNoModel, ErrCodeValidation, ErrCodeNotFound, ErrCodeCancelled:
		return false
	}
	return true
}
