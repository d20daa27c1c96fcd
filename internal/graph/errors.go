package graph

import "errors"

// ===========================================================================
// Projection Errors
// ===========================================================================

var (
	// ErrOutOfSequence is returned when a record does not follow the applied version.
	ErrOutOfSequence = errors.New("record out of sequence")
	// ErrNodeAggregateNotFound is returned when an event names an unknown aggregate.
	ErrNodeAggregateNotFound = errors.New("node aggregate not found")
	// ErrNodeAggregateExists is returned when an aggregate is created twice.
	ErrNodeAggregateExists = errors.New("node aggregate already exists")
	// ErrNodeNotFound is returned when an event names an unknown variant.
	ErrNodeNotFound = errors.New("node not found")
)
