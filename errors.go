package dali

import (
	"errors"
	"fmt"
)

// ErrUnexpectedStatus is the cause of an ExecutionError when the server
// answers with a non-2xx status code.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// BuildError reports a ClientBuilder field that cannot be turned into a Client.
type BuildError struct {
	Field  string
	Reason string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("dali: invalid %s: %s", e.Field, e.Reason)
}

// ExecutionError wraps every failure of a single request: invalid URI,
// transport errors, non-2xx responses, and response decoding errors.
// StatusCode is 0 when no response was received.
type ExecutionError struct {
	URI        string
	StatusCode int
	Body       string
	Err        error
}

func (e *ExecutionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dali: request to %s failed with status %d: %v", e.URI, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("dali: request to %s failed: %v", e.URI, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
