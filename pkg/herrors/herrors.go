// Package herrors defines the error taxonomy shared across Hyperstore
// packages (spec.md §7). Failures are returned synchronously as errors;
// the domain, store and jsonio packages mostly return *Error values of
// these kinds, while graph, schema and session return their own
// sentinel or plain errors. Nothing in Hyperstore panics for a recoverable
// condition. Packages also expose package-level sentinel errors (e.g.
// schema.ErrDuplicateSchema, graph.ErrDuplicateElement) for
// errors.Is-style matching, mirroring the teacher's
// pkg/storage.ErrNotFound/ErrAlreadyExists convention; Error.Kind lets
// callers branch on the coarser taxonomy when the specific sentinel
// doesn't matter.
package herrors

import "fmt"

// Kind is the coarse error taxonomy from spec.md §7.
type Kind string

const (
	InvalidArgument Kind = "InvalidArgument"
	UnknownSchema   Kind = "UnknownSchema"
	AmbiguousSchema Kind = "AmbiguousSchema"
	DuplicateSchema Kind = "DuplicateSchema"
	DuplicateElement Kind = "DuplicateElement"
	InvalidElement  Kind = "InvalidElement"
	TypeMismatch    Kind = "TypeMismatch"
	DisposedElement Kind = "DisposedElement"
	ConstraintError Kind = "ConstraintError"
)

// Error is the concrete error type raised by Hyperstore operations. It
// wraps an underlying sentinel (via Unwrap) so callers can use either
// errors.Is against the package sentinel or a switch on Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind that also wraps err, so
// errors.Is(result, err) succeeds.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}
