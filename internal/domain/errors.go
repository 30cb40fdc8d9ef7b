// Package domain defines the core types and errors shared by the lake resolver,
// the query gateway and the HTTP layer.
package domain

import "fmt"

// NotFoundError indicates a lake or other resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid caller input (bad lake name, malformed body).
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// QueryError indicates the engine rejected a caller-supplied statement.
// Message carries the engine's text verbatim.
type QueryError struct {
	Message string
	Err     error
}

func (e *QueryError) Error() string { return e.Message }

func (e *QueryError) Unwrap() error { return e.Err }

// EngineError indicates an unexpected failure while preparing or introspecting
// an engine handle (open, view registration, SHOW TABLES, directory listing).
type EngineError struct {
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *EngineError) Unwrap() error { return e.Err }

// InvalidStateError indicates a session was used outside its Open state.
// It is a programming error and should never reach a caller in correct usage.
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrQuery wraps an engine error returned for a caller statement.
func ErrQuery(err error) *QueryError {
	return &QueryError{Message: err.Error(), Err: err}
}

// ErrEngine wraps err with a short description of the step that failed.
func ErrEngine(err error, format string, args ...interface{}) *EngineError {
	return &EngineError{Message: fmt.Sprintf(format, args...), Err: err}
}

// ErrInvalidState creates an InvalidStateError with a formatted message.
func ErrInvalidState(format string, args ...interface{}) *InvalidStateError {
	return &InvalidStateError{Message: fmt.Sprintf(format, args...)}
}
