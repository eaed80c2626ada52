package core

import "errors"

// Sentinel errors shared across the pipeline. Callers wrap them with
// fmt.Errorf("%w: ...") and test with errors.Is.
var (
	// ErrInvalidArgument reports a bad value at configuration or
	// construction time (empty category name, non-positive batch size).
	// It is never returned from the dispatch hot path.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound reports an administrative operation on a category
	// that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports an administrative operation that would
	// silently overwrite an existing category.
	ErrConflict = errors.New("conflict")

	// ErrDeliveryFailure reports a failed network delivery inside a
	// sink. It reaches the diagnostics side channel only, never the
	// caller of Dispatch.
	ErrDeliveryFailure = errors.New("delivery failure")

	// ErrClosed reports an operation on a sink or provider after it
	// was closed.
	ErrClosed = errors.New("closed")
)
