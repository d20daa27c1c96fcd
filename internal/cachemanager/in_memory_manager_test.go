package cachemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// snapshot stands in for a projected node aggregate.
type snapshot struct {
	ID       string
	TypeName string
}

func newSnapshots() *InMemoryCacheManager[string, snapshot] {
	return NewInMemoryCacheManager[string, snapshot]("snapshots", DefaultExpiration, DefaultCleanupInterval)
}

func TestInMemoryCacheManager_Get(t *testing.T) {
	ctx := context.Background()
	cache := newSnapshots()
	home := snapshot{ID: "home", TypeName: "Acme:Page"}
	cache.Set(ctx, "cs-1@3/home", home, DefaultExpiration)

	got, ok := cache.Get(ctx, "cs-1@3/home")
	require.True(t, ok)
	require.Equal(t, home, got)

	got, ok = cache.Get(ctx, "cs-1@4/home")
	require.False(t, ok)
	require.Zero(t, got)
}

func TestInMemoryCacheManager_GetWrongType(t *testing.T) {
	cache := newSnapshots()
	cache.cache.Set("cs-1@3/home", "not a snapshot", DefaultExpiration)

	_, ok := cache.Get(context.Background(), "cs-1@3/home")
	require.False(t, ok)
}

func TestInMemoryCacheManager_GetMultiple(t *testing.T) {
	ctx := context.Background()
	cache := newSnapshots()
	cache.Set(ctx, "a", snapshot{ID: "a"}, DefaultExpiration)
	cache.Set(ctx, "b", snapshot{ID: "b"}, DefaultExpiration)
	cache.cache.Set("broken", 42, DefaultExpiration)

	tests := []struct {
		name   string
		keys   []string
		want   map[string]snapshot
		wantOK bool
	}{
		{name: "no keys", keys: nil},
		{name: "all missing", keys: []string{"x", "y"}},
		{name: "partial", keys: []string{"a", "x"}, want: map[string]snapshot{"a": {ID: "a"}}, wantOK: true},
		{name: "all present", keys: []string{"a", "b"}, want: map[string]snapshot{"a": {ID: "a"}, "b": {ID: "b"}}, wantOK: true},
		{name: "wrong type is a miss", keys: []string{"a", "broken"}, want: map[string]snapshot{"a": {ID: "a"}}, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cache.GetMultiple(ctx, tt.keys)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestInMemoryCacheManager_GetWithRefresh(t *testing.T) {
	ctx := context.Background()
	cache := newSnapshots()
	cache.Set(ctx, "home", snapshot{ID: "home"}, 20*time.Millisecond)

	_, ok := cache.GetWithRefresh(ctx, "home", time.Hour)
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = cache.Get(ctx, "home")
	require.True(t, ok, "refresh extends the ttl")

	_, ok = cache.GetWithRefresh(ctx, "missing", time.Hour)
	require.False(t, ok)
}

func TestInMemoryCacheManager_DeleteAndFlush(t *testing.T) {
	ctx := context.Background()
	cache := newSnapshots()
	cache.Set(ctx, "a", snapshot{ID: "a"}, DefaultExpiration)
	cache.Set(ctx, "b", snapshot{ID: "b"}, DefaultExpiration)

	require.NoError(t, cache.Delete(ctx))
	require.Equal(t, 2, cache.ItemCount())

	require.NoError(t, cache.Delete(ctx, "a", "missing"))
	require.Equal(t, 1, cache.ItemCount())

	require.NoError(t, cache.Flush(ctx))
	require.Zero(t, cache.ItemCount())
}

func TestInMemoryCacheManager_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	cache := newSnapshots()
	cache.Set(ctx, "cs-1@3/a", snapshot{ID: "a"}, DefaultExpiration)
	cache.Set(ctx, "cs-1@4/a", snapshot{ID: "a"}, DefaultExpiration)
	cache.Set(ctx, "cs-2@1/a", snapshot{ID: "a"}, DefaultExpiration)

	require.Equal(t, 2, cache.DeletePrefix(ctx, "cs-1@"))
	require.Equal(t, 1, cache.ItemCount())
	require.Zero(t, cache.DeletePrefix(ctx, "cs-9@"))

	_, ok := cache.Get(ctx, "cs-2@1/a")
	require.True(t, ok)
}

type streamKey string

func TestInMemoryCacheManager_TypedKeys(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[streamKey, int64]("versions", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(ctx, "cs-1", 7, DefaultExpiration)

	got, ok := cache.GetMultiple(ctx, []streamKey{"cs-1", "cs-2"})
	require.True(t, ok)
	require.Equal(t, map[streamKey]int64{"cs-1": 7}, got)
}
