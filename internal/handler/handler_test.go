package handler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/event"
	"github.com/zjrosen/contentgraph/internal/graph"
	"github.com/zjrosen/contentgraph/internal/handler"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/nodetype"
	"github.com/zjrosen/contentgraph/internal/testutil"
)

const (
	ws    = model.LiveWorkspace
	sites = model.NodeAggregateID("sites")
)

var (
	en   = testutil.En
	enUS = testutil.EnUS
	fr   = testutil.Fr
)

type fixture struct {
	t      testutil.TestingT
	ctx    context.Context
	store  *contentstream.MemoryStore
	graphs *graph.Projection
	h      *handler.Handler
	stream contentstream.ID
}

func newFixture(t testutil.TestingT, opts ...handler.Option) *fixture {
	t.Helper()
	ctx := context.Background()

	store := contentstream.NewMemoryStore()
	graphs := graph.NewProjection(store)
	f := &fixture{
		t:      t,
		ctx:    ctx,
		store:  store,
		graphs: graphs,
		h:      handler.New(testutil.NodeTypes(t), testutil.Dimensions(t), store, graphs, opts...),
		stream: "cs-live",
	}
	require.NoError(t, store.Create(ctx, f.stream))
	f.handle(command.NewCreateRootNodeAggregateWithNodeCommand(command.SourceAPI, ws, sites, "Acme:Sites"))
	return f
}

func (f *fixture) handle(cmd command.NodeCommand) *handler.Result {
	f.t.Helper()
	res, err := f.h.Handle(f.ctx, f.stream, cmd)
	require.NoError(f.t, err)
	return res
}

// reject handles cmd, expects it to fail and checks that nothing was appended.
func (f *fixture) reject(cmd command.NodeCommand) error {
	f.t.Helper()
	before := f.version()
	_, err := f.h.Handle(f.ctx, f.stream, cmd)
	require.Error(f.t, err)
	require.Equal(f.t, before, f.version(), "rejected command appended events")
	return err
}

func (f *fixture) version() int64 {
	f.t.Helper()
	info, err := f.store.Info(f.ctx, f.stream)
	require.NoError(f.t, err)
	return info.Version
}

func (f *fixture) graph() *graph.ContentGraph {
	f.t.Helper()
	g, err := f.graphs.ContentGraph(f.ctx, f.stream)
	require.NoError(f.t, err)
	return g
}

func (f *fixture) aggregate(id model.NodeAggregateID) *graph.NodeAggregate {
	f.t.Helper()
	a, ok := f.graph().FindNodeAggregateByID(id)
	require.True(f.t, ok, "aggregate %s not found", id)
	return a
}

func (f *fixture) createPage(id model.NodeAggregateID, origin dimensionspace.Point, parent model.NodeAggregateID, opts ...command.CreateNodeOption) *handler.Result {
	f.t.Helper()
	return f.handle(command.NewCreateNodeAggregateWithNodeCommand(command.SourceAPI, ws, id, "Acme:Page", dimensionspace.OriginOf(origin), parent, opts...))
}

func points(ps ...dimensionspace.Point) dimensionspace.PointSet {
	return dimensionspace.NewPointSet(ps...)
}

func TestHandle_CreateNodeAggregateWithTetheredChildren(t *testing.T) {
	f := newFixture(t)

	cmd := command.NewCreateNodeAggregateWithNodeCommand(command.SourceAPI, ws, "page", "Acme:Page", dimensionspace.OriginOf(en), sites,
		command.WithNodeName("home"),
		command.WithInitialPropertyValues(model.PropertyValues{"weight": 3}),
	)
	res := f.handle(cmd)
	require.Len(t, res.Events, 2)
	require.Equal(t, f.version(), res.Version)

	mainID := model.TetheredNodeAggregateID("page", "main")
	require.Equal(t, model.NodeAggregateIDsByNodePaths{"main": mainID}, cmd.TetheredDescendantNodeAggregateIDs,
		"derived tethered ids are written back to the command")

	page := f.aggregate("page")
	require.True(t, page.CoveredDimensionSpacePoints().Equal(points(en, enUS)))
	n, ok := page.NodeByOccupiedDimensionSpacePoint(en)
	require.True(t, ok)
	// values pass through the JSON encoded stream
	require.Equal(t, model.PropertyValues{"title": "Untitled", "weight": float64(3)}, n.Properties)

	main := f.aggregate(mainID)
	require.True(t, main.IsTethered())
	require.Equal(t, model.NodeName("main"), main.NodeName)
	parent, ok := f.graph().ParentIDAt(mainID, enUS)
	require.True(t, ok)
	require.Equal(t, model.NodeAggregateID("page"), parent)
}

func TestHandle_TetheredIDsAreDeterministic(t *testing.T) {
	first := newFixture(t)
	second := newFixture(t)

	a := first.createPage("page", en, sites)
	b := second.createPage("page", en, sites)
	require.Equal(t, a.Events, b.Events)
}

func TestHandle_CreateRootNodeAggregate(t *testing.T) {
	f := newFixture(t)

	root := f.aggregate(sites)
	require.True(t, root.IsRoot())
	require.True(t, root.CoveredDimensionSpacePoints().Equal(points(en, enUS, fr)))

	err := f.reject(command.NewCreateRootNodeAggregateWithNodeCommand(command.SourceAPI, ws, "other", "Acme:Sites"))
	require.ErrorIs(t, err, handler.ErrRootNodeAggregateTypeIsAlreadyOccupied)

	err = f.reject(command.NewCreateRootNodeAggregateWithNodeCommand(command.SourceAPI, ws, "pages", "Acme:Page"))
	require.ErrorIs(t, err, handler.ErrNodeTypeIsNotOfTypeRoot)
}

func TestHandle_CreateNodeAggregateRejections(t *testing.T) {
	tests := []struct {
		name     string
		typeName nodetype.Name
		origin   dimensionspace.Point
		parent   model.NodeAggregateID
		id       model.NodeAggregateID
		opts     []command.CreateNodeOption
		wantErr  error
	}{
		{name: "parent not found", typeName: "Acme:Page", origin: en, parent: "missing", wantErr: handler.ErrParentNodeAggregateNotFound},
		{name: "unknown type", typeName: "Acme:Missing", origin: en, parent: sites, wantErr: handler.ErrNodeTypeNotFound},
		{name: "abstract type", typeName: "Acme:Content", origin: en, parent: sites, wantErr: handler.ErrNodeTypeIsAbstract},
		{name: "root type", typeName: "Acme:Sites", origin: en, parent: sites, wantErr: handler.ErrNodeTypeIsOfTypeRoot},
		{name: "unknown point", typeName: "Acme:Page", origin: dimensionspace.NewPoint(map[string]string{"language": "de"}), parent: sites, wantErr: handler.ErrDimensionSpacePointNotFound},
		{name: "id taken", typeName: "Acme:Page", origin: en, parent: sites, id: "page", wantErr: handler.ErrNodeAggregateCurrentlyExists},
		{name: "parent type disallows child", typeName: "Acme:Text", origin: en, parent: "page", wantErr: handler.ErrNodeConstraintViolation},
		{name: "tethered slot disallows child", typeName: "Acme:Image", origin: en, parent: model.TetheredNodeAggregateID("page", "main"), wantErr: handler.ErrNodeConstraintViolation},
		{name: "parent does not cover origin", typeName: "Acme:Page", origin: fr, parent: "page", wantErr: handler.ErrNodeAggregateDoesCurrentlyNotCoverDimensionSpacePoint},
		{name: "name covered by sibling", typeName: "Acme:Page", origin: enUS, parent: sites, opts: []command.CreateNodeOption{command.WithNodeName("home")}, wantErr: handler.ErrNodeNameIsAlreadyCovered},
		{name: "name of tethered slot", typeName: "Acme:Page", origin: en, parent: "page", opts: []command.CreateNodeOption{command.WithNodeName("main")}, wantErr: handler.ErrNodeNameIsAlreadyOccupied},
		{name: "undeclared property", typeName: "Acme:Page", origin: en, parent: sites, opts: []command.CreateNodeOption{command.WithInitialPropertyValues(model.PropertyValues{"text": "x"})}, wantErr: handler.ErrPropertyNotDeclared},
		{name: "property type mismatch", typeName: "Acme:Page", origin: en, parent: sites, opts: []command.CreateNodeOption{command.WithInitialPropertyValues(model.PropertyValues{"weight": "heavy"})}, wantErr: handler.ErrPropertyTypeMismatch},
		{name: "sibling not found", typeName: "Acme:Page", origin: en, parent: sites, opts: []command.CreateNodeOption{command.WithSucceedingSibling("missing")}, wantErr: handler.ErrNodeAggregateCurrentlyDoesNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.createPage("page", en, sites, command.WithNodeName("home"))

			id := tt.id
			if id == "" {
				id = "new"
			}
			err := f.reject(command.NewCreateNodeAggregateWithNodeCommand(command.SourceAPI, ws, id, tt.typeName, dimensionspace.OriginOf(tt.origin), tt.parent, tt.opts...))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHandle_CreateBelowTetheredSlot(t *testing.T) {
	f := newFixture(t)
	f.createPage("page", en, sites)
	main := model.TetheredNodeAggregateID("page", "main")

	f.handle(command.NewCreateNodeAggregateWithNodeCommand(command.SourceAPI, ws, "text", "Acme:Text", dimensionspace.OriginOf(en), main,
		command.WithInitialPropertyValues(model.PropertyValues{"text": "hello"}),
	))

	err := f.reject(command.NewCreateNodeAggregateWithNodeCommand(command.SourceAPI, ws, "image", "Acme:Image", dimensionspace.OriginOf(en), main))
	var violation *handler.ConstraintViolationError
	require.ErrorAs(t, err, &violation)
	require.Equal(t, nodetype.Name("Acme:Page"), violation.Parent)
	require.Equal(t, "main", violation.Slot)
}

func TestHandle_WithoutAncestorConstraintChecks(t *testing.T) {
	f := newFixture(t, handler.WithoutAncestorConstraintChecks())
	f.createPage("page", en, sites)

	f.handle(command.NewCreateNodeAggregateWithNodeCommand(command.SourceAPI, ws, "text", "Acme:Text", dimensionspace.OriginOf(en), "page"))
	require.True(t, f.aggregate("text").Covers(enUS))
}

func TestHandle_CreateWithSucceedingSibling(t *testing.T) {
	f := newFixture(t)
	f.createPage("a", en, sites)
	f.createPage("b", en, sites)
	f.createPage("c", en, sites, command.WithSucceedingSibling("b"))

	require.Equal(t, []model.NodeAggregateID{"a", "c", "b"}, f.graph().ChildIDsAt(sites, en))
	require.Equal(t, []model.NodeAggregateID{"a", "c", "b"}, f.graph().ChildIDsAt(sites, enUS))
}

func TestHandle_UnknownOrClosedStream(t *testing.T) {
	f := newFixture(t)

	_, err := f.h.Handle(f.ctx, "cs-missing", command.NewCreateNodeAggregateWithNodeCommand(command.SourceAPI, ws, "page", "Acme:Page", dimensionspace.OriginOf(en), sites))
	require.ErrorIs(t, err, handler.ErrContentStreamDoesNotExist)

	require.NoError(t, f.store.Close(f.ctx, f.stream))
	err = f.reject(command.NewCreateNodeAggregateWithNodeCommand(command.SourceAPI, ws, "page", "Acme:Page", dimensionspace.OriginOf(en), sites))
	require.ErrorIs(t, err, handler.ErrContentStreamIsClosed)
}

func TestHandle_InvalidCommand(t *testing.T) {
	f := newFixture(t)
	err := f.reject(command.NewCreateNodeAggregateWithNodeCommand(command.SourceAPI, ws, "", "Acme:Page", dimensionspace.OriginOf(en), sites))
	require.ErrorIs(t, err, command.ErrMalformedCommand)
}

// ===========================================================================
// Move
// ===========================================================================

func TestHandle_MoveNodeAggregate(t *testing.T) {
	t.Run("scatter reorders at the given point only", func(t *testing.T) {
		f := newFixture(t)
		f.createPage("a", en, sites)
		f.createPage("b", en, sites)

		f.handle(command.NewMoveNodeAggregateCommand(command.SourceAPI, ws, en, "b", command.Scatter, command.WithNewSucceedingSibling("a")))

		require.Equal(t, []model.NodeAggregateID{"b", "a"}, f.graph().ChildIDsAt(sites, en))
		require.Equal(t, []model.NodeAggregateID{"a", "b"}, f.graph().ChildIDsAt(sites, enUS))
	})

	t.Run("preceding sibling", func(t *testing.T) {
		f := newFixture(t)
		f.createPage("a", en, sites)
		f.createPage("b", en, sites)
		f.createPage("c", en, sites)

		f.handle(command.NewMoveNodeAggregateCommand(command.SourceAPI, ws, en, "c", command.GatherAll, command.WithNewPrecedingSibling("a")))

		require.Equal(t, []model.NodeAggregateID{"a", "c", "b"}, f.graph().ChildIDsAt(sites, en))
		require.Equal(t, []model.NodeAggregateID{"a", "c", "b"}, f.graph().ChildIDsAt(sites, enUS))
	})

	t.Run("gather specializations below new parent", func(t *testing.T) {
		f := newFixture(t)
		f.createPage("a", en, sites)
		f.createPage("b", en, sites)

		f.handle(command.NewMoveNodeAggregateCommand(command.SourceAPI, ws, en, "b", command.GatherSpecializations, command.WithNewParent("a")))

		for _, p := range []dimensionspace.Point{en, enUS} {
			parent, ok := f.graph().ParentIDAt("b", p)
			require.True(t, ok)
			require.Equal(t, model.NodeAggregateID("a"), parent)
		}
	})

	t.Run("rejections", func(t *testing.T) {
		f := newFixture(t)
		f.createPage("a", en, sites)
		f.createPage("b", en, "a")
		f.createPage("c", en, sites, command.WithNodeName("taken"))
		f.createPage("d", en, "a", command.WithNodeName("taken"))
		main := model.TetheredNodeAggregateID("a", "main")

		err := f.reject(command.NewMoveNodeAggregateCommand(command.SourceAPI, ws, en, "a", command.Scatter, command.WithNewParent("b")))
		require.ErrorIs(t, err, handler.ErrNodeAggregateIsDescendant)

		err = f.reject(command.NewMoveNodeAggregateCommand(command.SourceAPI, ws, en, "a", command.Scatter, command.WithNewParent("a")))
		require.ErrorIs(t, err, command.ErrMalformedCommand)

		err = f.reject(command.NewMoveNodeAggregateCommand(command.SourceAPI, ws, en, main, command.Scatter, command.WithNewParent(sites)))
		require.ErrorIs(t, err, handler.ErrNodeAggregateIsTethered)

		err = f.reject(command.NewMoveNodeAggregateCommand(command.SourceAPI, ws, en, sites, command.Scatter, command.WithNewParent("a")))
		require.ErrorIs(t, err, handler.ErrNodeAggregateIsRoot)

		err = f.reject(command.NewMoveNodeAggregateCommand(command.SourceAPI, ws, fr, "a", command.Scatter, command.WithNewSucceedingSibling("c")))
		require.ErrorIs(t, err, handler.ErrNodeAggregateDoesCurrentlyNotCoverDimensionSpacePoint)

		err = f.reject(command.NewMoveNodeAggregateCommand(command.SourceAPI, ws, en, "b", command.Scatter, command.WithNewSucceedingSibling("c")))
		require.ErrorIs(t, err, handler.ErrNodeAggregateIsNoSibling)

		err = f.reject(command.NewMoveNodeAggregateCommand(command.SourceAPI, ws, en, "c", command.Scatter, command.WithNewParent("a")))
		require.ErrorIs(t, err, handler.ErrNodeNameIsAlreadyCovered)

		err = f.reject(command.NewMoveNodeAggregateCommand(command.SourceAPI, ws, en, "b", command.Scatter, command.WithNewParent("c"), command.WithNewSucceedingSibling("d")))
		require.ErrorIs(t, err, handler.ErrNodeAggregateIsNoChild)
	})
}

// ===========================================================================
// Visibility
// ===========================================================================

func TestHandle_DisableAllSpecializations(t *testing.T) {
	f := newFixture(t)
	f.createPage("page", en, sites)
	f.handle(command.NewCreateNodeVariantCommand(command.SourceAPI, ws, "page", dimensionspace.OriginOf(en), dimensionspace.OriginOf(fr)))
	require.True(t, f.aggregate("page").CoveredDimensionSpacePoints().Equal(points(en, enUS, fr)))

	res := f.handle(command.NewDisableNodeAggregateCommand(command.SourceAPI, ws, "page", en, command.AllSpecializations))

	require.Len(t, res.Events, 1)
	disabled, ok := res.Events[0].(*event.NodeAggregateWasDisabled)
	require.True(t, ok)
	require.True(t, disabled.AffectedDimensionSpacePoints.Equal(points(en, enUS)))
	require.True(t, f.aggregate("page").DisabledDimensionSpacePoints().Equal(points(en, enUS)))
	require.False(t, f.aggregate("page").IsDisabledAt(fr))
}

func TestHandle_DisableEnableAreIdempotent(t *testing.T) {
	f := newFixture(t)
	f.createPage("page", en, sites)

	f.handle(command.NewDisableNodeAggregateCommand(command.SourceAPI, ws, "page", en, command.AllVariants))
	version := f.version()

	res := f.handle(command.NewDisableNodeAggregateCommand(command.SourceAPI, ws, "page", enUS, command.OnlyGivenVariant))
	require.Empty(t, res.Events)
	require.Equal(t, version, res.Version)
	require.Equal(t, version, f.version())

	res = f.handle(command.NewEnableNodeAggregateCommand(command.SourceAPI, ws, "page", enUS, command.OnlyGivenVariant))
	require.Len(t, res.Events, 1)
	require.True(t, f.aggregate("page").DisabledDimensionSpacePoints().Equal(points(en)))

	res = f.handle(command.NewEnableNodeAggregateCommand(command.SourceAPI, ws, "page", enUS, command.OnlyGivenVariant))
	require.Empty(t, res.Events)
}

func TestHandle_RemoveNodeAggregate(t *testing.T) {
	f := newFixture(t)
	f.createPage("page", en, sites)
	f.createPage("child", en, "page")
	f.handle(command.NewCreateNodeVariantCommand(command.SourceAPI, ws, "page", dimensionspace.OriginOf(en), dimensionspace.OriginOf(enUS)))

	res := f.handle(command.NewRemoveNodeAggregateCommand(command.SourceAPI, ws, "page", enUS, command.OnlyGivenVariant))
	removed := res.Events[0].(*event.NodeAggregateWasRemoved)
	require.True(t, removed.AffectedCoveredDimensionSpacePoints.Equal(points(enUS)))
	require.True(t, removed.AffectedOccupiedDimensionSpacePoints.Equal(points(enUS)))

	page := f.aggregate("page")
	require.True(t, page.CoveredDimensionSpacePoints().Equal(points(en)))
	require.False(t, page.Occupies(enUS))
	require.False(t, f.aggregate("child").Covers(enUS))

	f.handle(command.NewRemoveNodeAggregateCommand(command.SourceAPI, ws, "page", en, command.AllVariants))
	_, ok := f.graph().FindNodeAggregateByID("page")
	require.False(t, ok)
	_, ok = f.graph().FindNodeAggregateByID("child")
	require.False(t, ok)

	err := f.reject(command.NewRemoveNodeAggregateCommand(command.SourceAPI, ws, "page", en, command.AllVariants))
	require.ErrorIs(t, err, handler.ErrNodeAggregateCurrentlyDoesNotExist)
}

func TestHandle_RemoveTetheredNodeAggregate(t *testing.T) {
	f := newFixture(t)
	f.createPage("page", en, sites)

	err := f.reject(command.NewRemoveNodeAggregateCommand(command.SourceAPI, ws, model.TetheredNodeAggregateID("page", "main"), en, command.AllVariants))
	require.ErrorIs(t, err, handler.ErrNodeAggregateIsTethered)
}

// ===========================================================================
// Content
// ===========================================================================

func TestHandle_SetNodeProperties(t *testing.T) {
	f := newFixture(t)
	f.createPage("page", en, sites, command.WithInitialPropertyValues(model.PropertyValues{"weight": 1}))

	f.handle(command.NewSetNodePropertiesCommand(command.SourceAPI, ws, "page", dimensionspace.OriginOf(en), model.PropertyValues{"title": "Hello"}, "weight"))
	n, ok := f.aggregate("page").NodeByOccupiedDimensionSpacePoint(en)
	require.True(t, ok)
	require.Equal(t, model.PropertyValues{"title": "Hello"}, n.Properties)

	tests := []struct {
		name    string
		origin  dimensionspace.Point
		values  model.PropertyValues
		unset   []string
		wantErr error
	}{
		{name: "undeclared", origin: en, values: model.PropertyValues{"text": "x"}, wantErr: handler.ErrPropertyNotDeclared},
		{name: "undeclared unset", origin: en, values: model.PropertyValues{"title": "x"}, unset: []string{"text"}, wantErr: handler.ErrPropertyNotDeclared},
		{name: "type mismatch", origin: en, values: model.PropertyValues{"title": 42}, wantErr: handler.ErrPropertyTypeMismatch},
		{name: "origin not occupied", origin: enUS, values: model.PropertyValues{"title": "x"}, wantErr: handler.ErrDimensionSpacePointIsNotYetOccupied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.reject(command.NewSetNodePropertiesCommand(command.SourceAPI, ws, "page", dimensionspace.OriginOf(tt.origin), tt.values, tt.unset...))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHandle_SetNodeReferences(t *testing.T) {
	f := newFixture(t)
	f.createPage("a", en, sites)
	f.createPage("b", en, sites)
	f.createPage("c", en, sites)

	f.handle(command.NewSetNodeReferencesCommand(command.SourceAPI, ws, "a", dimensionspace.OriginOf(en), "related", model.NodeReference{Target: "b"}))
	n, ok := f.aggregate("a").NodeByOccupiedDimensionSpacePoint(en)
	require.True(t, ok)
	require.Equal(t, []model.NodeReference{{Target: "b"}}, n.References["related"])

	tests := []struct {
		name    string
		ref     model.ReferenceName
		targets []model.NodeAggregateID
		wantErr error
	}{
		{name: "undeclared reference", ref: "parent", targets: []model.NodeAggregateID{"b"}, wantErr: handler.ErrReferenceNotDeclared},
		{name: "too many targets", ref: "related", targets: []model.NodeAggregateID{"b", "c"}, wantErr: handler.ErrReferenceCannotBeSet},
		{name: "missing target", ref: "related", targets: []model.NodeAggregateID{"missing"}, wantErr: handler.ErrNodeAggregateCurrentlyDoesNotExist},
		{name: "target type not allowed", ref: "related", targets: []model.NodeAggregateID{model.TetheredNodeAggregateID("b", "main")}, wantErr: handler.ErrNodeConstraintViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var refs []model.NodeReference
			for _, target := range tt.targets {
				refs = append(refs, model.NodeReference{Target: target})
			}
			err := f.reject(command.NewSetNodeReferencesCommand(command.SourceAPI, ws, "a", dimensionspace.OriginOf(en), tt.ref, refs...))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// ===========================================================================
// Type Change
// ===========================================================================

func TestHandle_ChangeNodeAggregateTypeCreatesMissingTetheredNodes(t *testing.T) {
	f := newFixture(t)
	f.createPage("page", en, sites)

	cmd := command.NewChangeNodeAggregateTypeCommand(command.SourceAPI, ws, "page", "Acme:Article", command.HappyPath)
	res := f.handle(cmd)
	require.Len(t, res.Events, 2)

	teaser := model.TetheredNodeAggregateID("page", "teaser")
	require.Equal(t, teaser, cmd.TetheredDescendantNodeAggregateIDs["teaser"])
	require.Equal(t, nodetype.Name("Acme:Article"), f.aggregate("page").NodeTypeName)
	require.True(t, f.aggregate(teaser).CoveredDimensionSpacePoints().Equal(points(en, enUS)))
}

func TestHandle_ChangeNodeAggregateTypeStrategies(t *testing.T) {
	setup := func(t *testing.T) *fixture {
		f := newFixture(t)
		f.createPage("page", en, sites)
		f.createPage("child", en, "page")
		return f
	}

	t.Run("happy path rejects disallowed children", func(t *testing.T) {
		f := setup(t)
		err := f.reject(command.NewChangeNodeAggregateTypeCommand(command.SourceAPI, ws, "page", "Acme:Leaf", command.HappyPath))
		require.ErrorIs(t, err, handler.ErrNodeConstraintViolation)
	})

	t.Run("delete removes disallowed and obsolete children", func(t *testing.T) {
		f := setup(t)
		main := model.TetheredNodeAggregateID("page", "main")

		res := f.handle(command.NewChangeNodeAggregateTypeCommand(command.SourceAPI, ws, "page", "Acme:Leaf", command.Delete))

		require.Len(t, res.Events, 3)
		require.IsType(t, &event.NodeAggregateTypeWasChanged{}, res.Events[0])
		var removed []model.NodeAggregateID
		for _, e := range res.Events[1:] {
			r, ok := e.(*event.NodeAggregateWasRemoved)
			require.True(t, ok)
			require.True(t, r.AffectedCoveredDimensionSpacePoints.Equal(points(en, enUS)))
			removed = append(removed, r.NodeAggregateID)
		}
		require.ElementsMatch(t, []model.NodeAggregateID{"child", main}, removed)
		require.Empty(t, f.graph().FindChildNodeAggregates("page"))
	})

	t.Run("rejections", func(t *testing.T) {
		f := setup(t)
		err := f.reject(command.NewChangeNodeAggregateTypeCommand(command.SourceAPI, ws, "page", "Acme:Content", command.HappyPath))
		require.ErrorIs(t, err, handler.ErrNodeTypeIsAbstract)

		err = f.reject(command.NewChangeNodeAggregateTypeCommand(command.SourceAPI, ws, "child", "Acme:Text", command.HappyPath))
		require.ErrorIs(t, err, handler.ErrNodeConstraintViolation)

		err = f.reject(command.NewChangeNodeAggregateTypeCommand(command.SourceAPI, ws, model.TetheredNodeAggregateID("page", "main"), "Acme:Collection", command.HappyPath))
		require.ErrorIs(t, err, handler.ErrNodeAggregateIsTethered)
	})
}

func TestHandle_ChangeNodeAggregateTypeKeepsGrandchildrenOfRegularChildren(t *testing.T) {
	setup := func(t *testing.T) *fixture {
		f := newFixture(t)
		f.createPage("page", en, sites)
		f.createPage("sub", en, "page", command.WithNodeName("sub"))
		f.createPage("leaf", en, "sub")
		return f
	}
	subMain := model.TetheredNodeAggregateID("sub", "main")

	for _, strategy := range []command.NodeAggregateTypeChangeChildConstraintConflictResolutionStrategy{command.HappyPath, command.Delete} {
		t.Run(string(strategy), func(t *testing.T) {
			f := setup(t)

			res := f.handle(command.NewChangeNodeAggregateTypeCommand(command.SourceAPI, ws, "page", "Acme:Article", strategy))

			for _, e := range res.Events {
				require.NotEqual(t, event.TypeNodeAggregateWasRemoved, e.EventType(), "unexpected removal of %v", e)
			}
			g := f.graph()
			for _, id := range []model.NodeAggregateID{"sub", "leaf", subMain} {
				_, ok := g.FindNodeAggregateByID(id)
				require.True(t, ok, "%s was removed", id)
			}
		})
	}
}

func TestHandle_ChangeNodeAggregateTypeDeleteRemovesSubtreeOnce(t *testing.T) {
	f := newFixture(t)
	f.createPage("page", en, sites)
	f.createPage("named", en, "page", command.WithNodeName("x"))
	f.createPage("leaf", en, "named")

	res := f.handle(command.NewChangeNodeAggregateTypeCommand(command.SourceAPI, ws, "page", "Acme:Leaf", command.Delete))

	var removed []model.NodeAggregateID
	for _, e := range res.Events[1:] {
		r, ok := e.(*event.NodeAggregateWasRemoved)
		require.True(t, ok)
		removed = append(removed, r.NodeAggregateID)
	}
	require.ElementsMatch(t, []model.NodeAggregateID{"named", model.TetheredNodeAggregateID("page", "main")}, removed)

	g := f.graph()
	for _, id := range []model.NodeAggregateID{"named", "leaf", model.TetheredNodeAggregateID("named", "main")} {
		_, ok := g.FindNodeAggregateByID(id)
		require.False(t, ok, "%s survived", id)
	}

	// The stream still projects, so later commands work.
	f.createPage("next", en, sites)
}

// ===========================================================================
// Variants
// ===========================================================================

func TestHandle_CreateNodeVariant(t *testing.T) {
	tests := []struct {
		name         string
		created      dimensionspace.Point
		target       dimensionspace.Point
		wantType     event.Event
		wantCoverage map[string]dimensionspace.PointSet
	}{
		{
			name:     "specialization",
			created:  en,
			target:   enUS,
			wantType: &event.NodeSpecializationVariantWasCreated{},
			wantCoverage: map[string]dimensionspace.PointSet{
				en.Hash():   points(en),
				enUS.Hash(): points(enUS),
			},
		},
		{
			name:     "generalization",
			created:  enUS,
			target:   en,
			wantType: &event.NodeGeneralizationVariantWasCreated{},
			wantCoverage: map[string]dimensionspace.PointSet{
				en.Hash():   points(en),
				enUS.Hash(): points(enUS),
			},
		},
		{
			name:     "peer",
			created:  en,
			target:   fr,
			wantType: &event.NodePeerVariantWasCreated{},
			wantCoverage: map[string]dimensionspace.PointSet{
				en.Hash(): points(en, enUS),
				fr.Hash(): points(fr),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.createPage("page", tt.created, sites)

			res := f.handle(command.NewCreateNodeVariantCommand(command.SourceAPI, ws, "page", dimensionspace.OriginOf(tt.created), dimensionspace.OriginOf(tt.target)))

			require.Len(t, res.Events, 2, "the tethered child is varied along")
			require.IsType(t, tt.wantType, res.Events[0])
			require.IsType(t, tt.wantType, res.Events[1])

			for _, a := range []*graph.NodeAggregate{f.aggregate("page"), f.aggregate(model.TetheredNodeAggregateID("page", "main"))} {
				for _, origin := range a.OccupiedDimensionSpacePoints().Points() {
					require.True(t, tt.wantCoverage[origin.Hash()].Equal(a.CoverageByOccupant(origin)), "coverage of %s at %s", a.ID, origin)
				}
				require.Equal(t, len(tt.wantCoverage), a.OccupiedDimensionSpacePoints().Len())
			}
		})
	}
}

func TestHandle_CreateNodeVariantRejections(t *testing.T) {
	f := newFixture(t)
	f.createPage("page", en, sites)
	f.createPage("child", en, "page")
	f.handle(command.NewCreateNodeVariantCommand(command.SourceAPI, ws, "page", dimensionspace.OriginOf(en), dimensionspace.OriginOf(enUS)))

	err := f.reject(command.NewCreateNodeVariantCommand(command.SourceAPI, ws, "page", dimensionspace.OriginOf(en), dimensionspace.OriginOf(enUS)))
	require.ErrorIs(t, err, handler.ErrDimensionSpacePointIsAlreadyOccupied)

	err = f.reject(command.NewCreateNodeVariantCommand(command.SourceAPI, ws, "page", dimensionspace.OriginOf(fr), dimensionspace.OriginOf(en)))
	require.ErrorIs(t, err, handler.ErrDimensionSpacePointIsNotYetOccupied)

	err = f.reject(command.NewCreateNodeVariantCommand(command.SourceAPI, ws, "child", dimensionspace.OriginOf(en), dimensionspace.OriginOf(fr)))
	require.ErrorIs(t, err, handler.ErrNodeAggregateDoesCurrentlyNotCoverDimensionSpacePoint)

	err = f.reject(command.NewCreateNodeVariantCommand(command.SourceAPI, ws, model.TetheredNodeAggregateID("page", "main"), dimensionspace.OriginOf(en), dimensionspace.OriginOf(fr)))
	require.ErrorIs(t, err, handler.ErrNodeAggregateIsTethered)
}

func TestHandle_EventsCarryCommandMetadata(t *testing.T) {
	f := newFixture(t)
	cmd := command.NewCreateNodeAggregateWithNodeCommand(command.SourceAPI, ws, "page", "Acme:Page", dimensionspace.OriginOf(en), sites)
	f.handle(cmd)

	records, err := f.store.Load(f.ctx, f.stream, 1)
	require.NoError(t, err)
	require.Len(t, records, 2)

	meta, err := event.MetadataOf(records[0])
	require.NoError(t, err)
	require.Equal(t, cmd.ID(), meta.CommandID)
	require.Equal(t, string(command.CmdCreateNodeAggregateWithNode), meta.CommandType)

	decoded, err := command.Decode(command.CommandType(meta.CommandType), meta.CommandPayload)
	require.NoError(t, err)
	require.Equal(t, cmd.TetheredDescendantNodeAggregateIDs, decoded.(*command.CreateNodeAggregateWithNodeCommand).TetheredDescendantNodeAggregateIDs)

	meta, err = event.MetadataOf(records[1])
	require.NoError(t, err)
	require.True(t, meta.IsZero(), "only the first event of a command carries its metadata")
}
