package jobs

import (
	"errors"
	"fmt"
)

// ErrorKind classifies orchestration and execution failures.
//
// NOTE: These values are persisted in job.json and returned to API callers,
// so they are part of the stable contract.
type ErrorKind string

const (
	// ErrInvalidInput marks malformed or missing submission parameters.
	// Rejected before a job is created, never retried.
	ErrInvalidInput ErrorKind = "invalid_input"

	// ErrNotFound marks an unknown job id.
	ErrNotFound ErrorKind = "not_found"

	// ErrNotReady marks a result request on a job that has not completed.
	ErrNotReady ErrorKind = "not_ready"

	// ErrConflict marks an illegal transition request, such as cancelling
	// a job that is already terminal.
	ErrConflict ErrorKind = "conflict"

	// ErrExecutorFailure marks a nonzero exit or error from the pipeline
	// executor.
	ErrExecutorFailure ErrorKind = "executor_failure"

	// ErrTimeout marks an executor call that exceeded its allotted time.
	ErrTimeout ErrorKind = "timeout"

	// ErrInterrupted marks a job that was in flight when the process
	// restarted and was reconciled to failed on recovery.
	ErrInterrupted ErrorKind = "interrupted"

	// ErrInternalFault marks an orchestration-layer fault. It always
	// surfaces as a failed job, never as a crash of the manager.
	ErrInternalFault ErrorKind = "internal_fault"
)

// Error is the structured error surfaced by the job manager.
//
// State is populated for not_ready errors so callers can decide whether to
// keep polling or inspect the job's error.
type Error struct {
	Kind    ErrorKind
	Message string
	State   State
}

func (e *Error) Error() string {
	if e.State != "" {
		return fmt.Sprintf("%s: %s (state=%s)", e.Kind, e.Message, e.State)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errf builds a classified error with a formatted message.
func Errf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the classification from an error chain.
// Unclassified errors report internal_fault.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrInternalFault
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
