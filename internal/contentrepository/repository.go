// Package contentrepository wires dimensions, node types, the content stream
// store, the projection, the command handlers and the workspace manager into
// one content repository fronted by a FIFO command processor.
//
// The returned ContentRepository must be started with Start before commands
// are submitted and cleaned up with Shutdown.
package contentrepository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/graph"
	"github.com/zjrosen/contentgraph/internal/handler"
	"github.com/zjrosen/contentgraph/internal/metrics"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/nodetype"
	"github.com/zjrosen/contentgraph/internal/processor"
	"github.com/zjrosen/contentgraph/internal/pubsub"
	"github.com/zjrosen/contentgraph/internal/tracing"
	"github.com/zjrosen/contentgraph/internal/workspace"
)

// Config holds everything needed to build a ContentRepository.
type Config struct {
	// Dimensions is the variation graph of the dimension space. Required.
	Dimensions *dimensionspace.VariationGraph
	// NodeTypes serves the node type registry. Required.
	NodeTypes *nodetype.Manager

	// Store persists content streams. Defaults to a memory store.
	Store contentstream.Store
	// Workspaces persists workspaces. Defaults to a memory repository.
	Workspaces workspace.Repository

	// Tracer enables command and store spans when set.
	Tracer trace.Tracer
	// Metrics enables prometheus collectors when set.
	Metrics *metrics.Metrics

	// CacheTTL and CacheCleanupInterval configure the aggregate cache of the
	// projection. A negative CacheTTL disables the cache.
	CacheTTL             time.Duration
	CacheCleanupInterval time.Duration

	// QueueCapacity defaults to processor.DefaultQueueCapacity.
	QueueCapacity int
	// DeduplicationTTL rejects identical commands submitted within the
	// window. Zero disables deduplication.
	DeduplicationTTL time.Duration
	// SlowCommandThreshold defaults to processor.DefaultTimeoutWarningThreshold.
	SlowCommandThreshold time.Duration

	// HandlerOptions are passed to the node aggregate command handler.
	HandlerOptions []handler.Option
}

// Validate checks that all required configuration is provided.
func (c *Config) Validate() error {
	if c.Dimensions == nil {
		return errors.New("dimensions are required")
	}
	if c.NodeTypes == nil {
		return errors.New("node types are required")
	}
	if c.QueueCapacity < 0 {
		return errors.New("queue capacity must not be negative")
	}
	return nil
}

// ContentRepository is the write side of one content repository.
type ContentRepository struct {
	dims       *dimensionspace.VariationGraph
	nodeTypes  *nodetype.Manager
	store      contentstream.Store
	projection *graph.Projection
	nodes      *handler.Handler
	workspaces *workspace.Manager
	processor  *processor.CommandProcessor
	metrics    *metrics.Metrics

	changes *pubsub.Broker[contentstream.Change]
	events  *pubsub.Broker[any]

	cancel context.CancelFunc
}

// New builds a content repository from cfg.
func New(cfg Config) (*ContentRepository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid content repository config: %w", err)
	}
	if cfg.Store == nil {
		cfg.Store = contentstream.NewMemoryStore()
	}
	if cfg.Workspaces == nil {
		cfg.Workspaces = workspace.NewMemoryRepository()
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = processor.DefaultQueueCapacity
	}
	if cfg.SlowCommandThreshold == 0 {
		cfg.SlowCommandThreshold = processor.DefaultTimeoutWarningThreshold
	}

	changes := pubsub.NewBroker[contentstream.Change]()
	events := pubsub.NewBroker[any]()

	// innermost first: metrics and tracing see the raw store, notifications
	// fire only for writes that reached it
	store := cfg.Store
	if cfg.Metrics != nil {
		store = cfg.Metrics.WrapStore(store)
	}
	store = tracing.WrapStore(store, cfg.Tracer)
	store = contentstream.WithNotifications(store, changes)

	var projectionOpts []graph.Option
	switch {
	case cfg.CacheTTL < 0:
		projectionOpts = append(projectionOpts, graph.WithoutCache())
	case cfg.CacheTTL > 0:
		projectionOpts = append(projectionOpts, graph.WithCacheTTL(cfg.CacheTTL, cfg.CacheCleanupInterval))
	}
	projection := graph.NewProjection(store, projectionOpts...)
	if cfg.Metrics != nil {
		if err := cfg.Metrics.ObserveCache("node_aggregates", projection.CacheStats); err != nil {
			return nil, err
		}
	}
	nodes := handler.New(cfg.NodeTypes, cfg.Dimensions, store, projection, cfg.HandlerOptions...)
	workspaces := workspace.NewManager(cfg.Workspaces, store, nodes)

	middlewares := []processor.Middleware{
		tracing.NewMiddleware(cfg.Tracer),
		processor.NewLoggingMiddleware(),
		processor.NewCommandLogMiddleware(events),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware())
	}
	middlewares = append(middlewares, processor.NewTimeoutMiddleware(cfg.SlowCommandThreshold))
	if cfg.DeduplicationTTL > 0 {
		dedup := processor.NewDeduplicationMiddleware(processor.DeduplicationMiddlewareConfig{TTL: cfg.DeduplicationTTL})
		middlewares = append(middlewares, dedup.Middleware())
	}

	cmdProcessor := processor.NewCommandProcessor(
		processor.WithQueueCapacity(cfg.QueueCapacity),
		processor.WithEventBus(events),
		processor.WithMiddleware(middlewares...),
	)

	r := &ContentRepository{
		dims:       cfg.Dimensions,
		nodeTypes:  cfg.NodeTypes,
		store:      store,
		projection: projection,
		nodes:      nodes,
		workspaces: workspaces,
		processor:  cmdProcessor,
		metrics:    cfg.Metrics,
		changes:    changes,
		events:     events,
	}
	r.registerHandlers()
	return r, nil
}

// registerHandlers routes every node command through its workspace and every
// workspace command to the workspace manager.
func (r *ContentRepository) registerHandlers() {
	nodeHandler := processor.HandlerFunc(r.handleNodeCommand)
	for _, t := range command.NodeCommandTypes() {
		r.processor.RegisterHandler(t, nodeHandler)
	}
	workspaceHandler := processor.HandlerFunc(r.handleWorkspaceCommand)
	for _, t := range command.WorkspaceCommandTypes() {
		r.processor.RegisterHandler(t, workspaceHandler)
	}
}

// Start begins the command processor loop and keeps the projection warm from
// store notifications until Shutdown or ctx is done.
func (r *ContentRepository) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	go r.projection.Follow(ctx, r.changes)
	go r.processor.Run(ctx)

	if err := r.processor.WaitForReady(ctx); err != nil {
		return fmt.Errorf("waiting for command processor: %w", err)
	}
	return nil
}

// Shutdown processes the remaining queued commands, then stops following
// the store and closes the brokers.
func (r *ContentRepository) Shutdown() {
	r.processor.Drain()
	if r.cancel != nil {
		r.cancel()
	}
	r.changes.Close()
	r.events.Close()
}

// Handle submits cmd and waits for its result. A failed command returns the
// result together with its error.
func (r *ContentRepository) Handle(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	return r.processor.SubmitAndWait(ctx, cmd)
}

// Submit enqueues cmd without waiting.
func (r *ContentRepository) Submit(cmd command.Command) error {
	return r.processor.Submit(cmd)
}

// ContentGraph returns the graph of the stream the workspace currently points at.
func (r *ContentRepository) ContentGraph(ctx context.Context, name model.WorkspaceName) (*graph.ContentGraph, error) {
	w, err := r.workspaces.Find(ctx, name)
	if err != nil {
		return nil, err
	}
	return r.projection.ContentGraph(ctx, w.StreamID())
}

// Dimensions returns the variation graph.
func (r *ContentRepository) Dimensions() *dimensionspace.VariationGraph { return r.dims }

// NodeTypes returns the node type manager.
func (r *ContentRepository) NodeTypes() *nodetype.Manager { return r.nodeTypes }

// Store returns the wrapped content stream store.
func (r *ContentRepository) Store() contentstream.Store { return r.store }

// Projection returns the content graph projection.
func (r *ContentRepository) Projection() *graph.Projection { return r.projection }

// Workspaces returns the workspace manager for read access and maintenance.
func (r *ContentRepository) Workspaces() *workspace.Manager { return r.workspaces }

// Changes returns the broker publishing every store write.
func (r *ContentRepository) Changes() *pubsub.Broker[contentstream.Change] { return r.changes }

// Events returns the broker publishing handled command events, command logs
// and command errors.
func (r *ContentRepository) Events() *pubsub.Broker[any] { return r.events }

// Processor returns the command processor.
func (r *ContentRepository) Processor() *processor.CommandProcessor { return r.processor }
