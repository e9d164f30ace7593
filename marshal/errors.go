package marshal

import (
	"errors"
	"fmt"
)

// Failure kinds. Every failure returned by this package is an *Error whose Kind
// is one of these, so callers can use errors.Is.
var (
	ErrNullHandle            = errors.New("null handle")
	ErrAllocationFailure     = errors.New("allocation failure")
	ErrNativeCallFailure     = errors.New("native call failure")
	ErrPreconditionViolation = errors.New("precondition violation")
)

// Error is the single failure type surfaced to callers of a native entry point.
// Error() returns Message verbatim: when the native library supplied a
// diagnostic, Message is exactly that diagnostic.
type Error struct {
	// Function is the fully-qualified logical name of the call.
	Function string
	// Position is the 1-based argument position that failed, or 0.
	Position int
	// Kind is one of the Err* sentinels.
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func argError(fn string, pos int, kind error, format string, args ...any) *Error {
	return &Error{
		Function: fn,
		Position: pos,
		Kind:     kind,
		Message:  fmt.Sprintf("%s: argument %d: %s: %s", fn, pos, kind, fmt.Sprintf(format, args...)),
	}
}

func callError(fn string, kind error, format string, args ...any) *Error {
	return &Error{
		Function: fn,
		Kind:     kind,
		Message:  fmt.Sprintf("%s: %s: %s", fn, kind, fmt.Sprintf(format, args...)),
	}
}

// asError converts an error returned by a custom Strategy into an *Error
// attributed to the given position.
func asError(fn string, pos int, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	for _, kind := range []error{ErrNullHandle, ErrAllocationFailure, ErrNativeCallFailure} {
		if errors.Is(err, kind) {
			return &Error{Function: fn, Position: pos, Kind: kind, Message: fmt.Sprintf("%s: argument %d: %v", fn, pos, err)}
		}
	}
	return &Error{Function: fn, Position: pos, Kind: ErrPreconditionViolation, Message: fmt.Sprintf("%s: argument %d: %v", fn, pos, err)}
}
