package filter

import (
	"fmt"
)

// Error types for filter operations
type (
	// CompilationError indicates a filter expression could not be compiled
	CompilationError struct {
		Expression string
		Reason     string
		Err        error
	}

	// EvaluationError indicates a filter could not be evaluated
	EvaluationError struct {
		Expression string
		Title      string
		Reason     string
		Err        error
	}
)

func (e *CompilationError) Error() string {
	msg := fmt.Sprintf("compilation error in '%s': %s", e.Expression, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation error for filter '%s' on '%s': %s", e.Expression, e.Title, e.Reason)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
