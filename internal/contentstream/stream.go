// Package contentstream stores append-only event sequences with fork support.
//
// A stream is identified by an ID and holds records numbered from 1. Forking
// copies the source's records up to its current version into a new stream;
// after that both streams evolve independently. Closed streams reject appends
// until reopened.
package contentstream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ID identifies a content stream.
type ID string

// NewID returns a fresh random stream id.
func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string { return string(id) }

// AnyVersion disables the optimistic concurrency check of Append.
const AnyVersion int64 = -1

// Status is the lifecycle state of a stream.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Event is an event to be appended.
type Event struct {
	Type     string          `json:"eventType"`
	Payload  json.RawMessage `json:"payload"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Record is a stored event.
type Record struct {
	Event
	StreamID       ID        `json:"streamId"`
	SequenceNumber int64     `json:"sequenceNumber"`
	RecordedAt     time.Time `json:"recordedAt"`
}

// Info describes a stream.
type Info struct {
	ID        ID
	Version   int64
	Status    Status
	CreatedAt time.Time

	// SourceID and SourceVersion are set for forked streams and name the
	// stream and version the fork was taken from.
	SourceID      ID
	SourceVersion int64
}

// IsForked reports whether the stream was created by Fork.
func (i Info) IsForked() bool { return i.SourceID != "" }

// Store persists content streams.
type Store interface {
	// Create creates an empty open stream.
	Create(ctx context.Context, id ID) error

	// Fork creates target holding a copy of source's records and returns the
	// source version the fork was taken at.
	Fork(ctx context.Context, source, target ID) (int64, error)

	// Append adds events to an open stream. Unless expectedVersion is
	// AnyVersion it must equal the current version. Returns the new version.
	Append(ctx context.Context, id ID, expectedVersion int64, events []Event) (int64, error)

	// Load returns the records with sequence numbers greater than after.
	Load(ctx context.Context, id ID, after int64) ([]Record, error)

	Close(ctx context.Context, id ID) error
	Reopen(ctx context.Context, id ID) error
	Remove(ctx context.Context, id ID) error

	Info(ctx context.Context, id ID) (Info, error)
	Streams(ctx context.Context) ([]Info, error)
}
