package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownContentKind is returned when content is staged under a MIME
	// type the transport does not carry. This indicates a caller bug: the
	// encoder produced a type that was never offered in encoding parameters.
	ErrUnknownContentKind = errors.New("unknown content type")

	// ErrLinkNotFound is returned by registry lookups for an id that is not
	// registered. Callers are expected to only reference links they created
	// or loaded.
	ErrLinkNotFound = errors.New("link not found")

	// ErrNoStagedContent is returned when an action is committed without any
	// content having been staged for it.
	ErrNoStagedContent = errors.New("no staged content for action")

	// ErrUnsupported is returned for operations this transport does not
	// implement, such as multi-address link loading.
	ErrUnsupported = errors.New("operation not supported")
)

// fatalError marks an error that must abort scheduling rather than fail a
// single action. Wildcard fan-out stops at the first fatal result.
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return "fatal: " + e.err.Error() }

func (e *fatalError) Unwrap() error { return e.err }

// Fatal wraps err so that IsFatal reports true for it.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// Fatalf formats a fatal error.
func Fatalf(format string, args ...any) error {
	return &fatalError{err: fmt.Errorf(format, args...)}
}

// IsFatal reports whether err (or any error it wraps) was marked fatal.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
