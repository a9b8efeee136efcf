package router

import "fmt"

// RequestParseError reports a request body that is not a single JSON value.
type RequestParseError struct {
	Route string
	Err   error
}

func (e *RequestParseError) Error() string {
	return fmt.Sprintf("request body for '/%s' is not valid JSON: %v", e.Route, e.Err)
}

func (e *RequestParseError) Unwrap() error {
	return e.Err
}

// HandlerError reports a custom logic call that failed, panicked or ran out
// of time. ID is the opaque identifier returned to the caller.
type HandlerError struct {
	Name string
	ID   string
	Kind string
	Err  error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("custom logic '%s' failed with %s [%s]: %v", e.Name, e.Kind, e.ID, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// panicError carries a value recovered from a handler.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
