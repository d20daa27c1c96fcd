package contentstream

import (
	"errors"
	"fmt"
)

var (
	// ErrStreamNotFound is returned when a stream does not exist.
	ErrStreamNotFound = errors.New("content stream not found")

	// ErrStreamExists is returned when creating a stream whose id is taken.
	ErrStreamExists = errors.New("content stream already exists")

	// ErrStreamClosed is returned when appending to a closed stream.
	ErrStreamClosed = errors.New("content stream is closed")

	// ErrConcurrencyConflict is returned when the expected version does not match.
	ErrConcurrencyConflict = errors.New("content stream version conflict")
)

// ConcurrencyConflictError reports an optimistic concurrency failure.
type ConcurrencyConflictError struct {
	StreamID ID
	Expected int64
	Actual   int64
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("content stream %s: expected version %d, actual %d", e.StreamID, e.Expected, e.Actual)
}

// Is matches ErrConcurrencyConflict.
func (e *ConcurrencyConflictError) Is(target error) bool {
	return target == ErrConcurrencyConflict
}

func notFound(id ID) error {
	return fmt.Errorf("%w: %s", ErrStreamNotFound, id)
}
