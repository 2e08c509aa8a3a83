package txn

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode enumerates the failure kinds an execution can surface.
type ErrorCode int

const (
	// Unknown is the zero value; failures that escaped classification.
	Unknown ErrorCode = iota
	// AcquisitionFailed means no Session could be obtained. Fatal to the
	// execution; there is no boundary to roll back.
	AcquisitionFailed
	// CapabilityUnsupported means the Interpreter cannot serve a requested
	// Operation. Aborts interpretation and rolls back prior work.
	CapabilityUnsupported
	// BackendFailure is an underlying I/O or protocol error; triggers rollback.
	BackendFailure
	// BoundaryFailure means the begin, commit or rollback call itself failed.
	// Reported distinctly; the Session is still released.
	BoundaryFailure
	// Cancelled means the caller's context was cancelled or timed out.
	Cancelled
)

// String returns the code's name for logging.
func (c ErrorCode) String() string {
	switch c {
	case AcquisitionFailed:
		return "acquisition_failed"
	case CapabilityUnsupported:
		return "capability_unsupported"
	case BackendFailure:
		return "backend_failure"
	case BoundaryFailure:
		return "boundary_failure"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// FailureClass refines BackendFailure with the nature of the underlying
// fault. Interpreters set it when classifying backend errors; retry policy
// and callers can branch on it without parsing driver error strings.
type FailureClass int

const (
	ClassUnknown FailureClass = iota
	ClassConnectivity
	ClassConstraint
	ClassNotFound
	ClassSerialization
	ClassTimeout
)

// String returns the class name for logging.
func (c FailureClass) String() string {
	switch c {
	case ClassConnectivity:
		return "connectivity"
	case ClassConstraint:
		return "constraint"
	case ClassNotFound:
		return "not_found"
	case ClassSerialization:
		return "serialization"
	case ClassTimeout:
		return "timeout"
	}
	return "unknown"
}

// Error is the typed error returned by executions. Code places the failure
// in the taxonomy, Class refines backend failures, and Err carries the
// underlying cause for errors.Is/As.
type Error struct {
	Code  ErrorCode
	Class FailureClass
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("txn: %s", e.Code)
	}
	if e.Class != ClassUnknown {
		return fmt.Sprintf("txn: %s (%s): %v", e.Code, e.Class, e.Err)
	}
	return fmt.Sprintf("txn: %s: %v", e.Code, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// NewError constructs a taxonomy error wrapping cause.
func NewError(code ErrorCode, cause error) *Error {
	return &Error{Code: code, Err: cause}
}

// NewBackendFailure constructs a BackendFailure with a refined class.
func NewBackendFailure(class FailureClass, cause error) *Error {
	return &Error{Code: BackendFailure, Class: class, Err: cause}
}

// Code returns the taxonomy code of err, or Unknown when err carries none.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}

// ClassOf returns the failure class of err, or ClassUnknown.
func ClassOf(err error) FailureClass {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ClassUnknown
}

// Classify normalizes err into a taxonomy error. Already-classified errors
// pass through unchanged; context cancellation and deadline expiry become
// Cancelled; anything else is a BackendFailure of unknown class.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Code: Cancelled, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: Cancelled, Class: ClassTimeout, Err: err}
	}
	return &Error{Code: BackendFailure, Err: err}
}
