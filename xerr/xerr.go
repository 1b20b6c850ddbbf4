// Package xerr defines the small taxonomy of internal operation results
// used across upnpcore (spec §7): InvalidSyntax, NotFound, InvalidState,
// Timeout, InvalidParameters, NotImplemented and ResourceExhausted. Callers
// compare with errors.Is against the Kind sentinels; wrapped causes are
// preserved so the original error survives for logging (errors.Cause /
// errors.Unwrap).
package xerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind is one of the sentinel error kinds below.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	// InvalidSyntax: malformed XML or SCPD; unrecoverable for the affected request.
	InvalidSyntax Kind = "invalid syntax"
	// NotFound: UUID, service, action, argument or subscriber lookup failed.
	NotFound Kind = "not found"
	// InvalidState: an operation was attempted in the wrong lifecycle phase.
	InvalidState Kind = "invalid state"
	// Timeout: an HTTP, SSDP or shared-variable wait exceeded its bound.
	Timeout Kind = "timeout"
	// InvalidParameters: argument or state-variable value validation failed.
	InvalidParameters Kind = "invalid parameters"
	// NotImplemented: an optional action was not overridden by a profile.
	NotImplemented Kind = "not implemented"
	// ResourceExhausted: a fixed-size internal limit (e.g. the GENA
	// subscriber cap) was reached; distinct from InvalidState since callers
	// report it with a different HTTP status than a lifecycle violation.
	ResourceExhausted Kind = "resource exhausted"
)

// kindError pairs a Kind with a message and an optional wrapped cause so
// that both errors.Is(err, SomeKind) and errors.Unwrap/errors.Cause work.
type kindError struct {
	kind  Kind
	msg   string
	cause error
}

func (e *kindError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.msg)
}

func (e *kindError) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.kind
}

func (e *kindError) Unwrap() error { return e.cause }

func (e *kindError) Cause() error { return e.cause }

// New wraps kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind to an existing cause so errors.Is(err, kind) and
// errors.Cause(err) (or errors.Unwrap) both reach the original error.
func Wrap(kind Kind, cause error, format string, args ...interface{}) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

// Is reports whether err carries kind, following wrapped causes.
func Is(err error, kind Kind) bool {
	return errors.Is(err, kind)
}

// Cause unwraps err to the deepest non-xerr cause, mirroring
// github.com/pkg/errors.Cause for errors constructed by this package.
func Cause(err error) error {
	return errors.Cause(err)
}
