package testutil

import (
	"context"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/handler"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/nodetype"
)

// NodeCommandHandler is implemented by *handler.Handler.
type NodeCommandHandler interface {
	Handle(ctx context.Context, stream contentstream.ID, cmd command.NodeCommand) (*handler.Result, error)
}

type rootData struct {
	id       model.NodeAggregateID
	typeName nodetype.Name
}

type disableData struct {
	id    model.NodeAggregateID
	point dimensionspace.Point
}

// Builder accumulates content and issues the commands creating it.
type Builder struct {
	t         TestingT
	h         NodeCommandHandler
	stream    contentstream.ID
	workspace model.WorkspaceName
	roots     []rootData
	nodes     []nodeData
	disabled  []disableData
}

// NewBuilder creates a builder writing to stream.
func NewBuilder(t TestingT, h NodeCommandHandler, stream contentstream.ID) *Builder {
	t.Helper()
	return &Builder{t: t, h: h, stream: stream, workspace: model.LiveWorkspace}
}

// InWorkspace sets the workspace name recorded on the commands.
func (b *Builder) InWorkspace(name model.WorkspaceName) *Builder {
	b.workspace = name
	return b
}

// WithRoot adds a root node aggregate.
func (b *Builder) WithRoot(id model.NodeAggregateID, typeName nodetype.Name) *Builder {
	b.roots = append(b.roots, rootData{id: id, typeName: typeName})
	return b
}

// WithNode adds a node aggregate below parent with optional configuration.
func (b *Builder) WithNode(id, parent model.NodeAggregateID, opts ...NodeOption) *Builder {
	n := defaultNode(id, parent)
	for _, opt := range opts {
		opt(&n)
	}
	b.nodes = append(b.nodes, n)
	return b
}

// WithDisabled disables id at p and all its specializations.
func (b *Builder) WithDisabled(id model.NodeAggregateID, p dimensionspace.Point) *Builder {
	b.disabled = append(b.disabled, disableData{id: id, point: p})
	return b
}

// Build issues all accumulated commands in order: roots, nodes, disables.
func (b *Builder) Build() {
	b.t.Helper()
	for _, r := range b.roots {
		b.handle(command.NewCreateRootNodeAggregateWithNodeCommand(command.SourceAPI, b.workspace, r.id, r.typeName))
	}
	for _, n := range b.nodes {
		b.handle(b.createCommand(n))
	}
	for _, d := range b.disabled {
		b.handle(command.NewDisableNodeAggregateCommand(command.SourceAPI, b.workspace, d.id, d.point, command.AllSpecializations))
	}
}

func (b *Builder) createCommand(n nodeData) *command.CreateNodeAggregateWithNodeCommand {
	var opts []command.CreateNodeOption
	if n.name != "" {
		opts = append(opts, command.WithNodeName(n.name))
	}
	if n.before != "" {
		opts = append(opts, command.WithSucceedingSibling(n.before))
	}
	if n.properties != nil {
		opts = append(opts, command.WithInitialPropertyValues(n.properties))
	}
	return command.NewCreateNodeAggregateWithNodeCommand(command.SourceAPI, b.workspace, n.id, n.typeName, dimensionspace.OriginOf(n.origin), n.parent, opts...)
}

func (b *Builder) handle(cmd command.NodeCommand) {
	b.t.Helper()
	_, err := b.h.Handle(context.Background(), b.stream, cmd)
	require.NoError(b.t, err, "%s failed", cmd.Type())
}
