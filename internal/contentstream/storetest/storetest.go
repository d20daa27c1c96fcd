// Package storetest holds the behavioural test suite every contentstream.Store
// implementation must pass.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/contentgraph/internal/contentstream"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) contentstream.Store

func events(prefix string, n int) []contentstream.Event {
	out := make([]contentstream.Event, n)
	for i := range out {
		out[i] = contentstream.Event{
			Type:     "TestEvent",
			Payload:  json.RawMessage(fmt.Sprintf(`{"name":"%s-%d"}`, prefix, i)),
			Metadata: json.RawMessage(`{"commandType":"test"}`),
		}
	}
	return out
}

func payloads(records []contentstream.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = string(r.Payload)
	}
	return out
}

// Run executes the suite.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("create and append", func(t *testing.T) {
		s := newStore(t)
		id := contentstream.NewID()
		require.NoError(t, s.Create(ctx, id))
		require.ErrorIs(t, s.Create(ctx, id), contentstream.ErrStreamExists)

		v, err := s.Append(ctx, id, 0, events("a", 2))
		require.NoError(t, err)
		require.Equal(t, int64(2), v)

		records, err := s.Load(ctx, id, 0)
		require.NoError(t, err)
		require.Len(t, records, 2)
		require.Equal(t, int64(1), records[0].SequenceNumber)
		require.Equal(t, int64(2), records[1].SequenceNumber)
		require.Equal(t, id, records[0].StreamID)
		require.Equal(t, "TestEvent", records[0].Type)
		require.JSONEq(t, `{"name":"a-0"}`, string(records[0].Payload))
		require.JSONEq(t, `{"commandType":"test"}`, string(records[0].Metadata))

		tail, err := s.Load(ctx, id, 1)
		require.NoError(t, err)
		require.Len(t, tail, 1)
		require.Equal(t, int64(2), tail[0].SequenceNumber)

		none, err := s.Load(ctx, id, 2)
		require.NoError(t, err)
		require.Empty(t, none)
	})

	t.Run("expected version", func(t *testing.T) {
		s := newStore(t)
		id := contentstream.NewID()
		require.NoError(t, s.Create(ctx, id))
		_, err := s.Append(ctx, id, 0, events("a", 1))
		require.NoError(t, err)

		_, err = s.Append(ctx, id, 0, events("b", 1))
		require.ErrorIs(t, err, contentstream.ErrConcurrencyConflict)
		var conflict *contentstream.ConcurrencyConflictError
		require.ErrorAs(t, err, &conflict)
		require.Equal(t, int64(0), conflict.Expected)
		require.Equal(t, int64(1), conflict.Actual)

		v, err := s.Append(ctx, id, contentstream.AnyVersion, events("c", 1))
		require.NoError(t, err)
		require.Equal(t, int64(2), v)
	})

	t.Run("unknown stream", func(t *testing.T) {
		s := newStore(t)
		id := contentstream.NewID()
		_, err := s.Append(ctx, id, contentstream.AnyVersion, events("a", 1))
		require.ErrorIs(t, err, contentstream.ErrStreamNotFound)
		_, err = s.Load(ctx, id, 0)
		require.ErrorIs(t, err, contentstream.ErrStreamNotFound)
		_, err = s.Info(ctx, id)
		require.ErrorIs(t, err, contentstream.ErrStreamNotFound)
		_, err = s.Fork(ctx, id, contentstream.NewID())
		require.ErrorIs(t, err, contentstream.ErrStreamNotFound)
		require.ErrorIs(t, s.Close(ctx, id), contentstream.ErrStreamNotFound)
		require.ErrorIs(t, s.Remove(ctx, id), contentstream.ErrStreamNotFound)
	})

	t.Run("close and reopen", func(t *testing.T) {
		s := newStore(t)
		id := contentstream.NewID()
		require.NoError(t, s.Create(ctx, id))
		require.NoError(t, s.Close(ctx, id))

		info, err := s.Info(ctx, id)
		require.NoError(t, err)
		require.Equal(t, contentstream.StatusClosed, info.Status)

		_, err = s.Append(ctx, id, contentstream.AnyVersion, events("a", 1))
		require.ErrorIs(t, err, contentstream.ErrStreamClosed)

		require.NoError(t, s.Reopen(ctx, id))
		_, err = s.Append(ctx, id, contentstream.AnyVersion, events("a", 1))
		require.NoError(t, err)
	})

	t.Run("fork then append independently", func(t *testing.T) {
		s := newStore(t)
		a, b := contentstream.NewID(), contentstream.NewID()
		require.NoError(t, s.Create(ctx, a))
		_, err := s.Append(ctx, a, 0, events("prefix", 3))
		require.NoError(t, err)

		v, err := s.Fork(ctx, a, b)
		require.NoError(t, err)
		require.Equal(t, int64(3), v)

		info, err := s.Info(ctx, b)
		require.NoError(t, err)
		require.True(t, info.IsForked())
		require.Equal(t, a, info.SourceID)
		require.Equal(t, int64(3), info.SourceVersion)
		require.Equal(t, int64(3), info.Version)

		_, err = s.Append(ctx, a, 3, events("a", 2))
		require.NoError(t, err)
		_, err = s.Append(ctx, b, 3, events("b", 1))
		require.NoError(t, err)

		ra, err := s.Load(ctx, a, 0)
		require.NoError(t, err)
		rb, err := s.Load(ctx, b, 0)
		require.NoError(t, err)

		require.Equal(t, payloads(ra[:3]), payloads(rb[:3]), "prefixes stay identical")
		require.Equal(t, []string{`{"name":"a-0"}`, `{"name":"a-1"}`}, payloads(ra[3:]))
		require.Equal(t, []string{`{"name":"b-0"}`}, payloads(rb[3:]))
		for _, r := range rb {
			require.Equal(t, b, r.StreamID)
		}

		require.ErrorIs(t, func() error { _, err := s.Fork(ctx, a, b); return err }(), contentstream.ErrStreamExists)
	})

	t.Run("remove", func(t *testing.T) {
		s := newStore(t)
		a, b := contentstream.NewID(), contentstream.NewID()
		require.NoError(t, s.Create(ctx, a))
		_, err := s.Append(ctx, a, 0, events("a", 1))
		require.NoError(t, err)
		_, err = s.Fork(ctx, a, b)
		require.NoError(t, err)

		require.NoError(t, s.Remove(ctx, a))
		_, err = s.Info(ctx, a)
		require.ErrorIs(t, err, contentstream.ErrStreamNotFound)

		rb, err := s.Load(ctx, b, 0)
		require.NoError(t, err)
		require.Len(t, rb, 1, "forks survive removal of their source")

		streams, err := s.Streams(ctx)
		require.NoError(t, err)
		require.Len(t, streams, 1)
		require.Equal(t, b, streams[0].ID)
	})
}
