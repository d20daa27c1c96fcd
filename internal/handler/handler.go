// Package handler turns node aggregate commands into events.
//
// Every command is validated against the projected content graph of the
// target stream and, when all checks pass, its events are appended with the
// version the graph was read at. A concurrent append makes the store reject
// the write, so a failed command never leaves partial state behind.
package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/event"
	"github.com/zjrosen/contentgraph/internal/graph"
	"github.com/zjrosen/contentgraph/internal/log"
	"github.com/zjrosen/contentgraph/internal/nodetype"
)

// Result describes a handled command.
type Result struct {
	StreamID contentstream.ID
	// Version is the stream version after the append, or the version the
	// command was validated at when it produced no events.
	Version int64
	Events  []event.Event
}

// Handler handles node aggregate commands.
type Handler struct {
	nodeTypes *nodetype.Manager
	dims      *dimensionspace.VariationGraph
	store     contentstream.Store
	graphs    *graph.Projection

	ancestorChecks bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithoutAncestorConstraintChecks skips the node type constraints parents
// and grandparents impose on new children. Used when importing content that
// was valid under an older node type configuration.
func WithoutAncestorConstraintChecks() Option {
	return func(h *Handler) {
		h.ancestorChecks = false
	}
}

// New creates a Handler.
func New(nodeTypes *nodetype.Manager, dims *dimensionspace.VariationGraph, store contentstream.Store, graphs *graph.Projection, opts ...Option) *Handler {
	h := &Handler{
		nodeTypes:      nodeTypes,
		dims:           dims,
		store:          store,
		graphs:         graphs,
		ancestorChecks: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// scope carries the state one command is validated against.
type scope struct {
	*Handler
	reg   *nodetype.Registry
	graph *graph.ContentGraph
}

// Handle validates cmd against the content graph of stream and appends the
// resulting events. Commands that create tethered descendants get their
// descendant ids filled in before they are recorded.
func (h *Handler) Handle(ctx context.Context, stream contentstream.ID, cmd command.NodeCommand) (*Result, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	info, err := h.store.Info(ctx, stream)
	if err != nil {
		if errors.Is(err, contentstream.ErrStreamNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrContentStreamDoesNotExist, stream)
		}
		return nil, fmt.Errorf("failed to read content stream: %w", err)
	}
	if info.Status == contentstream.StatusClosed {
		return nil, fmt.Errorf("%w: %s", ErrContentStreamIsClosed, stream)
	}

	reg, err := h.nodeTypes.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to load node types: %w", err)
	}
	g, err := h.graphs.ContentGraph(ctx, stream)
	if err != nil {
		return nil, err
	}
	expectedVersion := g.Version()

	s := &scope{Handler: h, reg: reg, graph: g}
	events, err := s.dispatch(cmd)
	if err != nil {
		log.Debug(log.CatCommand, "command rejected", "type", cmd.Type(), "id", cmd.ID(), "stream", stream, "error", err)
		return nil, err
	}
	if len(events) == 0 {
		return &Result{StreamID: stream, Version: expectedVersion}, nil
	}

	cmdType, payload, err := command.Encode(cmd)
	if err != nil {
		return nil, err
	}
	records, err := event.Normalize(events, event.Metadata{
		CommandType:    string(cmdType),
		CommandPayload: payload,
		CommandID:      cmd.ID(),
	})
	if err != nil {
		return nil, err
	}
	version, err := h.store.Append(ctx, stream, expectedVersion, records)
	if err != nil {
		return nil, err
	}

	log.Debug(log.CatCommand, "command handled",
		"type", cmd.Type(),
		"id", cmd.ID(),
		"stream", stream,
		"events", len(events),
		"version", version,
	)
	return &Result{StreamID: stream, Version: version, Events: events}, nil
}

func (s *scope) dispatch(cmd command.NodeCommand) ([]event.Event, error) {
	switch c := cmd.(type) {
	case *command.CreateRootNodeAggregateWithNodeCommand:
		return s.createRootNodeAggregate(c)
	case *command.CreateNodeAggregateWithNodeCommand:
		return s.createNodeAggregate(c)
	case *command.MoveNodeAggregateCommand:
		return s.moveNodeAggregate(c)
	case *command.DisableNodeAggregateCommand:
		return s.disableNodeAggregate(c)
	case *command.EnableNodeAggregateCommand:
		return s.enableNodeAggregate(c)
	case *command.RemoveNodeAggregateCommand:
		return s.removeNodeAggregate(c)
	case *command.SetNodePropertiesCommand:
		return s.setNodeProperties(c)
	case *command.SetNodeReferencesCommand:
		return s.setNodeReferences(c)
	case *command.ChangeNodeAggregateTypeCommand:
		return s.changeNodeAggregateType(c)
	case *command.CreateNodeVariantCommand:
		return s.createNodeVariant(c)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCommand, cmd.Type())
	}
}
