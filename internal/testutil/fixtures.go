// Package testutil provides shared fixtures for content graph tests: a small
// dimension space, a node type set exercising constraints and tethered
// nodes, an in-memory environment wiring store, projection, handler and
// workspace manager, and a builder issuing node commands.
package testutil

import (
	"context"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/graph"
	"github.com/zjrosen/contentgraph/internal/handler"
	"github.com/zjrosen/contentgraph/internal/nodetype"
	"github.com/zjrosen/contentgraph/internal/workspace"
)

// TestingT is satisfied by *testing.T and *rapid.T.
type TestingT interface {
	require.TestingT
	Helper()
}

// DimensionsYAML declares one language dimension where en_US falls back to en.
const DimensionsYAML = `
dimensions:
  - name: language
    values:
      en:
        specializations: [en_US]
      en_US: {}
      fr: {}
`

// NodeTypesYAML declares the Acme node types:
//   - Acme:Sites is the root type
//   - Acme:Page allows pages only and tethers an Acme:Collection "main" slot
//     that rejects images
//   - Acme:Article is a page with an additional "teaser" slot
//   - Acme:Collection allows content only
//   - Acme:Leaf allows no children
const NodeTypesYAML = `
'Acme:Sites':
  superTypes: {'ContentRepository:Root': true}
'Acme:Content':
  abstract: true
'Acme:Text':
  superTypes: {'Acme:Content': true}
  properties:
    text: {type: string}
'Acme:Image':
  superTypes: {'Acme:Content': true}
'Acme:Collection':
  constraints:
    nodeTypes: {'Acme:Content': true, '*': false}
'Acme:Page':
  properties:
    title: {type: string, defaultValue: Untitled}
    weight: {type: integer}
  references:
    related:
      constraints:
        nodeTypes: {'Acme:Page': true, '*': false}
        maxItems: 1
  childNodes:
    main:
      type: 'Acme:Collection'
      constraints:
        nodeTypes: {'Acme:Image': false}
  constraints:
    nodeTypes: {'Acme:Page': true, '*': false}
'Acme:Article':
  superTypes: {'Acme:Page': true}
  childNodes:
    teaser: {type: 'Acme:Collection'}
'Acme:Leaf':
  constraints:
    nodeTypes: {'*': false}
`

var (
	En   = dimensionspace.NewPoint(map[string]string{"language": "en"})
	EnUS = dimensionspace.NewPoint(map[string]string{"language": "en_US"})
	Fr   = dimensionspace.NewPoint(map[string]string{"language": "fr"})
)

// Dimensions builds the variation graph of DimensionsYAML.
func Dimensions(t TestingT) *dimensionspace.VariationGraph {
	t.Helper()
	cfg, err := dimensionspace.ParseConfig([]byte(DimensionsYAML))
	require.NoError(t, err)
	g, err := cfg.Build()
	require.NoError(t, err)
	return g
}

// NodeTypeFS returns a file system holding NodeTypesYAML at a path matched
// by nodetype.DefaultPattern.
func NodeTypeFS() fstest.MapFS {
	return fstest.MapFS{
		"Acme.Site/NodeTypes.yaml": {Data: []byte(NodeTypesYAML)},
	}
}

// NodeTypes returns a manager serving NodeTypesYAML.
func NodeTypes(t TestingT) *nodetype.Manager {
	t.Helper()
	tree, err := nodetype.LoadFS(NodeTypeFS(), "")
	require.NoError(t, err)
	return nodetype.NewManager(nodetype.StaticProvider(tree))
}

// Environment is a fully wired in-memory content repository.
type Environment struct {
	Dimensions *dimensionspace.VariationGraph
	NodeTypes  *nodetype.Manager
	Store      contentstream.Store
	Graphs     *graph.Projection
	Handler    *handler.Handler
	Workspaces *workspace.Manager
}

// NewEnvironment wires the fixtures around a fresh memory store.
func NewEnvironment(t TestingT, opts ...handler.Option) *Environment {
	t.Helper()
	return NewEnvironmentWithStore(t, contentstream.NewMemoryStore(), workspace.NewMemoryRepository(), opts...)
}

// NewEnvironmentWithStore wires the fixtures around the given persistence.
func NewEnvironmentWithStore(t TestingT, store contentstream.Store, repo workspace.Repository, opts ...handler.Option) *Environment {
	t.Helper()
	env := &Environment{
		Dimensions: Dimensions(t),
		NodeTypes:  NodeTypes(t),
		Store:      store,
		Graphs:     graph.NewProjection(store, graph.WithoutCache()),
	}
	env.Handler = handler.New(env.NodeTypes, env.Dimensions, store, env.Graphs, opts...)
	env.Workspaces = workspace.NewManager(repo, store, env.Handler)
	return env
}

// Graph returns the content graph of stream.
func (e *Environment) Graph(t TestingT, stream contentstream.ID) *graph.ContentGraph {
	t.Helper()
	g, err := e.Graphs.ContentGraph(context.Background(), stream)
	require.NoError(t, err)
	return g
}

// Version returns the current version of stream.
func (e *Environment) Version(t TestingT, stream contentstream.ID) int64 {
	t.Helper()
	info, err := e.Store.Info(context.Background(), stream)
	require.NoError(t, err)
	return info.Version
}
