// Package faults defines the error taxonomy shared by every stage of a
// bring-up run. Each category maps to the same exit status (1), but they
// are reported differently and tests match on them individually.
package faults

import (
	"errors"
	"fmt"
	"time"
)

// ErrOperatorAbort is returned when the operator chooses to quit at an
// interactive prompt. It is not a failure: the run tears down whatever
// exists (usually nothing) and exits with status 0.
var ErrOperatorAbort = errors.New("aborted by operator")

// ConfigError reports invalid or missing invocation arguments. It is
// always raised before any side effect has occurred.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// EnvironmentError reports a missing precondition in the host environment,
// most notably the device endpoint never appearing within its timeout.
type EnvironmentError struct {
	Port    string
	Timeout time.Duration
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("device %s did not appear within %s", e.Port, e.Timeout)
}

// ToolError reports an external tool or child process that failed to start,
// exited non-zero, or died before it was supposed to. Stderr carries any
// output captured from the process for post-mortem diagnosis.
type ToolError struct {
	Tool   string
	Err    error
	Stderr string
}

func (e *ToolError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s: %s", e.Tool, e.Err, e.Stderr)
	}

	return fmt.Sprintf("%s: %s", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// ResourceError reports a required file that could not be read.
type ResourceError struct {
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("required file %s: %s", e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
