package engine

import "errors"

var (
	// ErrInvalidItemCode is returned when a request names an item the catalog does not know.
	ErrInvalidItemCode = errors.New("invalid item code")
	// ErrCyclicBuildGraph is returned when an item is reachable from itself through its materials.
	ErrCyclicBuildGraph = errors.New("cyclic build graph")
	// ErrMalformedRequest is returned for requests that cannot be searched as given.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrUniverseTooLarge is returned when the candidate total would not fit in a uint64.
	ErrUniverseTooLarge = errors.New("area universe too large")
)
