// Package sentinel holds error values for infrastructure facts. Stores and
// clients return them, optionally wrapped, and callers branch with errors.Is.
package sentinel

import "errors"

var (
	// ErrNotFound: the wire, schema or key does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict: a concurrent writer saved a newer version first.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState: the resource cannot serve the request as stored,
	// e.g. a schema of an unsupported type.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable: a dependency is down or its circuit is open.
	ErrUnavailable = errors.New("unavailable")
)
