package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/contentstream/storetest"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "Failed to create test database")
	t.Cleanup(func() { db.Close() })
	return db
}

func TestEventStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) contentstream.Store {
		return setupTestDB(t).EventStore()
	})
}

func TestEventStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := NewDB(path)
	require.NoError(t, err)
	store := db.EventStore()
	id := contentstream.NewID()
	require.NoError(t, store.Create(ctx, id))
	_, err = store.Append(ctx, id, 0, []contentstream.Event{
		{Type: "RootNodeAggregateWithNodeWasCreated", Payload: json.RawMessage(`{"nodeAggregateId":"sites"}`)},
	})
	require.NoError(t, err)
	require.NoError(t, store.Close(ctx, id))
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()
	store = db.EventStore()

	info, err := store.Info(ctx, id)
	require.NoError(t, err)
	require.Equal(t, int64(1), info.Version)
	require.Equal(t, contentstream.StatusClosed, info.Status)

	records, err := store.Load(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Empty(t, records[0].Metadata, "absent metadata stays absent")
}

func TestEventStore_RemoveDeletesEvents(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	store := db.EventStore()

	id := contentstream.NewID()
	require.NoError(t, store.Create(ctx, id))
	_, err := store.Append(ctx, id, 0, []contentstream.Event{{Type: "E", Payload: json.RawMessage(`{}`)}})
	require.NoError(t, err)
	require.NoError(t, store.Remove(ctx, id))

	var n int
	require.NoError(t, db.conn.QueryRow("SELECT COUNT(*) FROM events WHERE stream_id = ?", string(id)).Scan(&n))
	require.Zero(t, n)
}

// Sequence numbers are contiguous from 1 whatever the batch sizes, and a fork
// taken at any point loads the same prefix.
func TestEventStore_SequenceProperty(t *testing.T) {
	db := setupTestDB(t)
	store := db.EventStore()
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		id := contentstream.NewID()
		require.NoError(rt, store.Create(ctx, id))

		batches := rapid.SliceOfN(rapid.IntRange(0, 4), 1, 6).Draw(rt, "batches")
		forkAt := rapid.IntRange(0, len(batches)-1).Draw(rt, "forkAt")
		var fork contentstream.ID
		var total int64
		for i, size := range batches {
			events := make([]contentstream.Event, size)
			for j := range events {
				events[j] = contentstream.Event{Type: "E", Payload: json.RawMessage(fmt.Sprintf(`{"n":%d}`, total+int64(j)))}
			}
			v, err := store.Append(ctx, id, total, events)
			require.NoError(rt, err)
			total += int64(size)
			require.Equal(rt, total, v)

			if i == forkAt {
				fork = contentstream.NewID()
				_, err := store.Fork(ctx, id, fork)
				require.NoError(rt, err)
			}
		}

		records, err := store.Load(ctx, id, 0)
		require.NoError(rt, err)
		require.Len(rt, records, int(total))
		for i, r := range records {
			require.Equal(rt, int64(i+1), r.SequenceNumber)
		}

		forked, err := store.Load(ctx, fork, 0)
		require.NoError(rt, err)
		for i, r := range forked {
			require.Equal(rt, records[i].Payload, r.Payload)
		}
	})
}
