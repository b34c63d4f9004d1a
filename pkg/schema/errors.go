package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeExecution     = "EXECUTION_ERROR"
	ErrCodeTimeout       = "TIMEOUT_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeStepFailed    = "STEP_FAILED"
	ErrCodeInterpolation = "INTERPOLATION_ERROR"
	ErrCodeStorage       = "STORAGE_ERROR"
)

// FactotumError is the structured error type for all factotum operations.
type FactotumError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	StepID  string         `json:"step_id,omitempty"`
	Cause   error          `json:"-"`
}

func (e *FactotumError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("[%s] step %s: %s", e.Code, e.StepID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *FactotumError) Unwrap() error {
	return e.Cause
}

// NewError creates a new FactotumError.
func NewError(code, message string) *FactotumError {
	return &FactotumError{Code: code, Message: message}
}

// NewErrorf creates a new FactotumError with a formatted message.
func NewErrorf(code, format string, args ...any) *FactotumError {
	return &FactotumError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithStep attaches a step ID to the error.
func (e *FactotumError) WithStep(stepID string) *FactotumError {
	e.StepID = stepID
	return e
}

// WithCause attaches an underlying cause.
func (e *FactotumError) WithCause(err error) *FactotumError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *FactotumError) WithDetails(details map[string]any) *FactotumError {
	e.Details = details
	return e
}
