package cache

import (
	"errors"
	"fmt"
)

// Sentinel conditions distinguishable with errors.Is. Every error the
// cache layer returns is a *Error wrapping one of these or an underlying
// I/O, transport or store error.
var (
	// ErrNotLoaded is returned by lookups before any successful load.
	ErrNotLoaded = errors.New("nothing loaded")

	// ErrBadNumber is returned for non-positive document numbers.
	ErrBadNumber = errors.New("invalid document number")

	// ErrNotAvailable is returned for numbers in the always-excluded set.
	ErrNotAvailable = errors.New("document not available from source")

	// ErrNotCached is returned for numbers beyond the latest loaded one.
	ErrNotCached = errors.New("document not yet cached")

	// ErrNotFound is returned when a number inside the loaded range has
	// no entry.
	ErrNotFound = errors.New("document not found in local cache")

	// ErrFormat is returned when the index file cannot be parsed at all.
	ErrFormat = errors.New("unsupported index file format")

	// ErrCharset is returned when a cached file decodes under no known
	// charset.
	ErrCharset = errors.New("unknown file charset")
)

// Error is the single error kind surfaced by the cache layer. It carries
// a human-readable message and wraps the underlying cause, if any.
type Error struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// newError builds a cache error wrapping cause with a formatted message.
func newError(cause error, format string, args ...any) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}
