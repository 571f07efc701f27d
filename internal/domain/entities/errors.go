package entities

import "errors"

// Error taxonomy shared by services, handlers and store backends.
// Callers classify with errors.Is; every returned error wraps exactly one of these.
var (
	// ErrStateConflict means the node's current status forbids the requested transition.
	ErrStateConflict = errors.New("state conflict")
	// ErrNotFound means a referenced node id or identifier does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrStoreTransient is a transaction conflict or timeout; the whole operation may be retried.
	ErrStoreTransient = errors.New("store transient failure")
	// ErrInternalInconsistency means a node was observed in a state no status table covers.
	ErrInternalInconsistency = errors.New("internal inconsistency")
	// ErrInvalidInput means the request itself is malformed.
	ErrInvalidInput = errors.New("invalid input")
)
