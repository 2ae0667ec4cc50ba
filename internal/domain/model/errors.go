package model

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	ErrorKindValidation     ErrorKind = "validation"
	ErrorKindSpawn          ErrorKind = "spawn"
	ErrorKindTimeout        ErrorKind = "timeout"
	ErrorKindCanceled       ErrorKind = "canceled"
	ErrorKindDenied         ErrorKind = "denied"
	ErrorKindNonZeroExit    ErrorKind = "non_zero_exit"
	ErrorKindPartialFailure ErrorKind = "partial_failure"
	ErrorKindInternal       ErrorKind = "internal"
)

// ValidationError is returned before any process is spawned.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ExecutionError means the process did not run to completion: it could not be
// launched, was denied by policy, timed out or was canceled.
type ExecutionError struct {
	Kind    ErrorKind
	Command string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Command, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// NonZeroExitError means the process ran and reported failure.
type NonZeroExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *NonZeroExitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = "no error output"
	}
	return fmt.Sprintf("%s failed with exit code %d: %s", e.Command, e.ExitCode, msg)
}

// PartialFailureError is reported when an earlier step succeeded and a later
// one failed. The earlier step's side effect remains in the cluster.
type PartialFailureError struct {
	Completed string
	Err       error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%q succeeded but a follow-up step failed: %v", e.Completed, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// KindOf classifies err. A partial failure wins over the error it wraps.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var partial *PartialFailureError
	if errors.As(err, &partial) {
		return ErrorKindPartialFailure
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return ErrorKindValidation
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Kind
	}
	var exitErr *NonZeroExitError
	if errors.As(err, &exitErr) {
		return ErrorKindNonZeroExit
	}
	return ErrorKindInternal
}
