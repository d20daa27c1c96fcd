// Package messaging forwards appended content stream records to NATS.
//
// Every record is published as JSON to "<prefix>.<streamId>", in sequence
// order, so subscribers can follow one stream or all of them with
// "<prefix>.>".
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/log"
	"github.com/zjrosen/contentgraph/internal/pubsub"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "contentgraph.streams"

// Publisher sends raw messages. *nats.Conn implements it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Connect opens a NATS connection named after the content repository.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("contentgraph"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn(log.CatMessaging, "disconnected from NATS", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info(log.CatMessaging, "reconnected to NATS", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Message is the JSON body of a forwarded record.
type Message struct {
	StreamID       contentstream.ID `json:"streamId"`
	SequenceNumber int64            `json:"sequenceNumber"`
	EventType      string           `json:"eventType"`
	Payload        json.RawMessage  `json:"payload"`
	Metadata       json.RawMessage  `json:"metadata,omitempty"`
	RecordedAt     time.Time        `json:"recordedAt"`
}

// Forwarder publishes the records of pubsub.AppendedEvent changes.
type Forwarder struct {
	pub    Publisher
	prefix string

	forwarded atomic.Int64
	failed    atomic.Int64
}

// NewForwarder creates a Forwarder. An empty prefix uses DefaultSubjectPrefix.
func NewForwarder(pub Publisher, prefix string) *Forwarder {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Forwarder{pub: pub, prefix: strings.TrimSuffix(prefix, ".")}
}

// Subject returns the subject records of stream are published to.
func (f *Forwarder) Subject(stream contentstream.ID) string {
	return f.prefix + "." + string(stream)
}

// Run forwards changes from sub until ctx is cancelled. It blocks. The
// subscription is lossless, so a slow connection slows down appends rather
// than skipping records.
func (f *Forwarder) Run(ctx context.Context, sub pubsub.Subscriber[contentstream.Change]) {
	pubsub.Consume(ctx, sub, func(e pubsub.Event[contentstream.Change]) {
		if e.Type != pubsub.AppendedEvent {
			return
		}
		if err := f.Forward(e.Payload.Records); err != nil {
			log.ErrorErr(log.CatMessaging, "failed to forward records", err, "stream", e.Payload.StreamID)
		}
	}, pubsub.Lossless())
}

// Forward publishes records in order and stops at the first failure.
func (f *Forwarder) Forward(records []contentstream.Record) error {
	for _, r := range records {
		data, err := json.Marshal(Message{
			StreamID:       r.StreamID,
			SequenceNumber: r.SequenceNumber,
			EventType:      r.Type,
			Payload:        r.Payload,
			Metadata:       r.Metadata,
			RecordedAt:     r.RecordedAt,
		})
		if err != nil {
			f.failed.Add(1)
			return fmt.Errorf("marshal record %d of %s: %w", r.SequenceNumber, r.StreamID, err)
		}
		if err := f.pub.Publish(f.Subject(r.StreamID), data); err != nil {
			f.failed.Add(1)
			return fmt.Errorf("publish record %d of %s: %w", r.SequenceNumber, r.StreamID, err)
		}
		f.forwarded.Add(1)
	}
	return nil
}

// Forwarded returns the number of records published.
func (f *Forwarder) Forwarded() int64 { return f.forwarded.Load() }

// Failed returns the number of records that could not be published.
func (f *Forwarder) Failed() int64 { return f.failed.Load() }
