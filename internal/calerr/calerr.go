// Package calerr holds the error kinds a calibration summary run can fail with.
//
// Every stage wraps one of these sentinels with eris so callers can branch on
// the kind with errors.Is while the message still carries the detail.
package calerr

import (
	"errors"

	"github.com/rotisserie/eris"
)

var (
	// ErrMalformedInput: missing CSV columns, unreadable input, bad epoch list.
	ErrMalformedInput = eris.New("malformed input")

	// ErrInvalidGeometry: non-positive beam axis.
	ErrInvalidGeometry = eris.New("invalid beam geometry")

	// ErrRender: nothing to plot, or a backend failed to draw a figure.
	ErrRender = eris.New("render failed")

	// ErrOutputWrite: the output directory or a file in it could not be written.
	ErrOutputWrite = eris.New("output write failed")
)

// Wrapf attaches a formatted message to one of the sentinels above. If cause
// is non-nil its text is kept in the chain too.
func Wrapf(kind error, cause error, format string, args ...any) error {
	if cause != nil {
		return eris.Wrapf(&kindError{kind: kind, cause: cause}, format, args...)
	}
	return eris.Wrapf(kind, format, args...)
}

// Kind reports which sentinel err carries, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrMalformedInput, ErrInvalidGeometry, ErrRender, ErrOutputWrite} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string {
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.cause}
}
