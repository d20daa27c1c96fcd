// Package graph folds content stream records into a queryable content graph.
//
// A Projection keeps one ContentGraph per stream and catches it up with the
// store on every access, so command handlers always validate against the
// stream's current version. Aggregate lookups go through a go-cache backed
// read-through cache keyed by stream, version and aggregate id.
package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zjrosen/contentgraph/internal/cachemanager"
	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/log"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/pubsub"
)

// Projection maintains content graphs for the streams of a store.
type Projection struct {
	store contentstream.Store

	mu     sync.Mutex
	graphs map[contentstream.ID]*ContentGraph

	cache      *cachemanager.InMemoryCacheManager[string, *NodeAggregate]
	aggregates *cachemanager.ReadThroughCache[string, *NodeAggregate, aggregateLookup]
	ttl        time.Duration
}

type aggregateLookup struct {
	graph *ContentGraph
	id    model.NodeAggregateID
}

// Option configures a Projection.
type Option func(*projectionConfig)

type projectionConfig struct {
	ttl             time.Duration
	cleanupInterval time.Duration
	skipCache       bool
}

// WithCacheTTL sets how long aggregate snapshots stay cached.
func WithCacheTTL(ttl, cleanupInterval time.Duration) Option {
	return func(c *projectionConfig) {
		c.ttl = ttl
		c.cleanupInterval = cleanupInterval
	}
}

// WithoutCache disables the aggregate cache.
func WithoutCache() Option {
	return func(c *projectionConfig) {
		c.skipCache = true
	}
}

// NewProjection creates a projection reading from store.
func NewProjection(store contentstream.Store, opts ...Option) *Projection {
	cfg := projectionConfig{
		ttl:             cachemanager.DefaultExpiration,
		cleanupInterval: cachemanager.DefaultCleanupInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	cache := cachemanager.NewInMemoryCacheManager[string, *NodeAggregate]("node-aggregates", cfg.ttl, cfg.cleanupInterval)
	p := &Projection{
		store:  store,
		graphs: make(map[contentstream.ID]*ContentGraph),
		cache:  cache,
		ttl:    cfg.ttl,
	}
	p.aggregates = cachemanager.NewReadThroughCache[string, *NodeAggregate, aggregateLookup](
		cache,
		func(_ context.Context, in aggregateLookup) (*NodeAggregate, error) {
			a, ok := in.graph.FindNodeAggregateByID(in.id)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrNodeAggregateNotFound, in.id)
			}
			return a, nil
		},
		cfg.skipCache,
	)
	return p
}

// ContentGraph returns the graph of stream caught up to the stream's
// current version.
func (p *Projection) ContentGraph(ctx context.Context, stream contentstream.ID) (*ContentGraph, error) {
	p.mu.Lock()
	g, ok := p.graphs[stream]
	if !ok {
		g = newContentGraph(stream)
		p.graphs[stream] = g
	}
	p.mu.Unlock()

	if err := p.catchUp(ctx, g); err != nil {
		if !ok {
			p.mu.Lock()
			delete(p.graphs, stream)
			p.mu.Unlock()
		}
		return nil, err
	}
	return g, nil
}

func (p *Projection) catchUp(ctx context.Context, g *ContentGraph) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	records, err := p.store.Load(ctx, g.streamID, g.version)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", g.streamID, err)
	}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.apply(r); err != nil {
			return err
		}
	}
	if len(records) > 0 {
		log.Debug(log.CatProjection, "caught up", "stream", g.streamID, "version", g.version, "applied", len(records))
	}
	return nil
}

// NodeAggregate returns the aggregate id in stream at the stream's current
// version.
func (p *Projection) NodeAggregate(ctx context.Context, stream contentstream.ID, id model.NodeAggregateID) (*NodeAggregate, error) {
	g, err := p.ContentGraph(ctx, stream)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s@%d/%s", stream, g.Version(), id)
	return p.aggregates.Get(ctx, key, aggregateLookup{graph: g, id: id}, p.ttl)
}

// CacheStats reports how the aggregate cache answered NodeAggregate lookups.
func (p *Projection) CacheStats() cachemanager.Stats {
	return p.aggregates.Stats()
}

// Forget drops the graph and cached aggregates of stream.
func (p *Projection) Forget(ctx context.Context, stream contentstream.ID) {
	p.mu.Lock()
	delete(p.graphs, stream)
	p.mu.Unlock()
	p.cache.DeletePrefix(ctx, string(stream)+"@")
}

// Follow keeps graphs warm from store notifications until ctx is done.
// Appends are applied eagerly and removed streams are forgotten.
func (p *Projection) Follow(ctx context.Context, changes pubsub.Subscriber[contentstream.Change]) {
	pubsub.Consume(ctx, changes, func(e pubsub.Event[contentstream.Change]) {
		switch e.Type {
		case pubsub.DeletedEvent:
			p.Forget(ctx, e.Payload.StreamID)
		case pubsub.AppendedEvent:
			p.mu.Lock()
			g, ok := p.graphs[e.Payload.StreamID]
			p.mu.Unlock()
			if !ok {
				return
			}
			if err := p.catchUp(ctx, g); err != nil {
				log.ErrorErr(log.CatProjection, "catch up failed", err, "stream", e.Payload.StreamID)
			}
		}
	})
}
