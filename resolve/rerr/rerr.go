// Package rerr defines a Kind-tagged error taxonomy for resolution
// failures. No other resolve/* package imports it; they wrap errors with
// github.com/pkg/errors directly. Errors carry a Kind so that callers (and tests) can branch on
// the category of failure without parsing messages, while the message
// chain itself is built with github.com/pkg/errors so that wrapping at
// each layer keeps the original cause and a stack trace attached.
package rerr

import "github.com/pkg/errors"

// Kind classifies a resolution failure.
type Kind int

const (
	// KindUnknown is the zero value; it should never be returned
	// deliberately.
	KindUnknown Kind = iota
	// KindUndefinedSymbol means one or more referenced symbols were never
	// defined by any loaded file.
	KindUndefinedSymbol
	// KindDuplicateSymbol means two non-weak definitions of the same
	// symbol were loaded and neither is a COMMON that lost to a larger
	// COMMON.
	KindDuplicateSymbol
	// KindMalformedInput means a collaborator returned data that violates
	// an invariant the resolver depends on (e.g. an out-of-range section
	// index).
	KindMalformedInput
	// KindIO wraps a failure surfaced by a collaborator (object reader,
	// archive loader) while it was asked to materialize a file.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindUndefinedSymbol:
		return "undefined symbol"
	case KindDuplicateSymbol:
		return "duplicate symbol"
	case KindMalformedInput:
		return "malformed input"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is the concrete error type built by New, Newf, Wrap and Wrapf.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Unwrap lets errors.Is / errors.As see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.err }

// New builds a Kind-tagged error with a stack trace attached.
func New(kind Kind, msg string) error {
	return errors.WithStack(&Error{Kind: kind, msg: msg})
}

// Newf is like New but with fmt-style formatting.
func Newf(kind Kind, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: kind, msg: errors.Errorf(format, args...).Error()})
}

// Wrap attaches kind and msg to an existing error, preserving it as the
// cause.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&Error{Kind: kind, msg: msg, err: err})
}

// Wrapf is like Wrap with fmt-style formatting.
func Wrapf(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&Error{Kind: kind, msg: errors.Errorf(format, args...).Error(), err: err})
}

// KindOf extracts the Kind from err, walking the cause chain. It returns
// KindUnknown if err is nil or carries no *Error.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		cause := errors.Cause(err)
		if cause == err {
			return KindUnknown
		}
		err = cause
	}
	return KindUnknown
}
