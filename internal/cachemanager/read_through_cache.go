package cachemanager

import (
	"context"
	"sync/atomic"
	"time"
)

// Stats counts how a ReadThroughCache answered its lookups.
type Stats struct {
	Hits       int64
	Misses     int64
	LoadErrors int64
}

// ReadThroughCache loads missing values with fn and caches the result.
// Errors are never cached.
type ReadThroughCache[K comparable, V any, I any] struct {
	cache           CacheManager[K, V]
	fn              func(ctx context.Context, input I) (V, error)
	shouldSkipCache bool

	hits, misses, loadErrors atomic.Int64
}

// NewReadThroughCache wraps cache with the loader fn. With shouldSkipCache
// every lookup calls fn and the cache is never touched.
func NewReadThroughCache[K comparable, V any, I any](
	cache CacheManager[K, V],
	fn func(ctx context.Context, input I) (V, error),
	shouldSkipCache bool,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{
		cache:           cache,
		fn:              fn,
		shouldSkipCache: shouldSkipCache,
	}
}

// Get returns the cached value for key or loads it from input.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	return r.get(ctx, key, input, ttl, r.cache.Get)
}

// GetWithRefresh is Get, but a hit also extends the ttl of the entry.
func (r *ReadThroughCache[K, V, I]) GetWithRefresh(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	return r.get(ctx, key, input, ttl, func(ctx context.Context, key K) (V, bool) {
		return r.cache.GetWithRefresh(ctx, key, ttl)
	})
}

func (r *ReadThroughCache[K, V, I]) get(ctx context.Context, key K, input I, ttl time.Duration, lookup func(context.Context, K) (V, bool)) (V, error) {
	if r.shouldSkipCache {
		return r.load(ctx, input)
	}

	if value, ok := lookup(ctx, key); ok {
		r.hits.Add(1)
		return value, nil
	}
	r.misses.Add(1)

	value, err := r.load(ctx, input)
	if err != nil {
		return value, err
	}
	r.cache.Set(ctx, key, value, ttl)
	return value, nil
}

func (r *ReadThroughCache[K, V, I]) load(ctx context.Context, input I) (V, error) {
	value, err := r.fn(ctx, input)
	if err != nil {
		r.loadErrors.Add(1)
	}
	return value, err
}

// Invalidate drops cached values so the next Get calls the loader again.
func (r *ReadThroughCache[K, V, I]) Invalidate(ctx context.Context, keys ...K) error {
	return r.cache.Delete(ctx, keys...)
}

// Stats returns the lookup counters. Lookups with the cache skipped count
// neither as hits nor as misses.
func (r *ReadThroughCache[K, V, I]) Stats() Stats {
	return Stats{
		Hits:       r.hits.Load(),
		Misses:     r.misses.Load(),
		LoadErrors: r.loadErrors.Load(),
	}
}
