package workspace_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/handler"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/testutil"
	"github.com/zjrosen/contentgraph/internal/workspace"
)

const user model.WorkspaceName = "user-alice"

var originEn = dimensionspace.OriginOf(testutil.En)

type fixture struct {
	t   *testing.T
	ctx context.Context
	env *testutil.Environment
}

// newFixture creates a live workspace holding the standard content and a
// user workspace based on it.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background(), env: testutil.NewEnvironment(t)}

	live := f.handle(command.NewCreateRootWorkspaceCommand(command.SourceAPI, model.LiveWorkspace, "Live", ""))
	testutil.NewBuilder(t, f.env.Handler, live.Workspace.StreamID()).WithStandardContent().Build()
	f.handle(command.NewCreateWorkspaceCommand(command.SourceAPI, user, model.LiveWorkspace, "Alice", "private changes"))
	return f
}

func (f *fixture) handle(cmd command.WorkspaceCommand) *workspace.Result {
	f.t.Helper()
	res, err := f.env.Workspaces.Handle(f.ctx, cmd)
	require.NoError(f.t, err)
	return res
}

func (f *fixture) find(name model.WorkspaceName) *workspace.Workspace {
	f.t.Helper()
	w, err := f.env.Workspaces.Find(f.ctx, name)
	require.NoError(f.t, err)
	return w
}

func (f *fixture) stream(name model.WorkspaceName) contentstream.ID {
	f.t.Helper()
	return f.find(name).StreamID()
}

func (f *fixture) version(name model.WorkspaceName) int64 {
	f.t.Helper()
	return f.env.Version(f.t, f.stream(name))
}

func (f *fixture) in(name model.WorkspaceName) *testutil.Builder {
	return testutil.NewBuilder(f.t, f.env.Handler, f.stream(name)).InWorkspace(name)
}

func (f *fixture) exists(name model.WorkspaceName, id model.NodeAggregateID) bool {
	f.t.Helper()
	_, ok := f.env.Graph(f.t, f.stream(name)).FindNodeAggregateByID(id)
	return ok
}

func (f *fixture) status(name model.WorkspaceName) workspace.Status {
	f.t.Helper()
	s, err := f.env.Workspaces.Status(f.ctx, name)
	require.NoError(f.t, err)
	return s
}

func (f *fixture) streamStatus(id contentstream.ID) contentstream.Status {
	f.t.Helper()
	info, err := f.env.Store.Info(f.ctx, id)
	require.NoError(f.t, err)
	return info.Status
}

func (f *fixture) setTitle(name model.WorkspaceName, id model.NodeAggregateID, title string) {
	f.t.Helper()
	_, err := f.env.Handler.Handle(f.ctx, f.stream(name), command.NewSetNodePropertiesCommand(command.SourceAPI, name, id,
		originEn, model.PropertyValues{"title": title}))
	require.NoError(f.t, err)
}

func TestManager_CreateWorkspace(t *testing.T) {
	f := newFixture(t)

	live, alice := f.find(model.LiveWorkspace), f.find(user)
	require.True(t, live.IsRoot())
	require.Equal(t, model.LiveWorkspace, alice.BaseName())
	require.Equal(t, "Alice", alice.Title())
	require.NotEqual(t, live.StreamID(), alice.StreamID())
	require.Equal(t, f.version(model.LiveWorkspace), f.version(user), "fork copies the base")
	require.True(t, f.exists(user, testutil.Home))
	require.Equal(t, workspace.StatusUpToDate, f.status(user))

	t.Run("name taken", func(t *testing.T) {
		_, err := f.env.Workspaces.Handle(f.ctx, command.NewCreateWorkspaceCommand(command.SourceAPI, user, model.LiveWorkspace, "", ""))
		require.ErrorIs(t, err, workspace.ErrWorkspaceAlreadyExists)
	})
	t.Run("unknown base", func(t *testing.T) {
		_, err := f.env.Workspaces.Handle(f.ctx, command.NewCreateWorkspaceCommand(command.SourceAPI, "user-bob", "review", "", ""))
		require.ErrorIs(t, err, workspace.ErrBaseWorkspaceDoesNotExist)
	})
	t.Run("own base", func(t *testing.T) {
		_, err := f.env.Workspaces.Handle(f.ctx, command.NewCreateWorkspaceCommand(command.SourceAPI, "user-bob", "user-bob", "", ""))
		require.ErrorIs(t, err, command.ErrMalformedCommand)
	})
}

func TestManager_PublishWorkspace(t *testing.T) {
	f := newFixture(t)
	f.in(user).WithNode("contact", testutil.Sites).Build()
	old := f.stream(user)
	require.False(t, f.exists(model.LiveWorkspace, "contact"))

	res := f.handle(command.NewPublishWorkspaceCommand(command.SourceAPI, user))

	require.Equal(t, 2, res.Events, "page and its main slot")
	require.Equal(t, old, res.PreviousStreamID)
	require.NotEqual(t, old, f.stream(user))
	require.Equal(t, contentstream.StatusClosed, f.streamStatus(old))
	require.True(t, f.exists(model.LiveWorkspace, "contact"))
	require.True(t, f.exists(user, "contact"))
	require.Equal(t, workspace.StatusUpToDate, f.status(user))

	changes, err := f.env.Workspaces.Changes(f.ctx, user)
	require.NoError(t, err)
	require.Empty(t, changes)
}

func TestManager_PublishOutdatedWorkspace(t *testing.T) {
	f := newFixture(t)
	f.in(user).WithNode("contact", testutil.Sites).Build()
	f.in(model.LiveWorkspace).WithNode("imprint", testutil.Sites).Build()
	require.Equal(t, workspace.StatusOutdated, f.status(user))
	liveVersion := f.version(model.LiveWorkspace)

	_, err := f.env.Workspaces.Handle(f.ctx, command.NewPublishWorkspaceCommand(command.SourceAPI, user))

	require.ErrorIs(t, err, workspace.ErrBaseWorkspaceHasBeenModified)
	require.Equal(t, liveVersion, f.version(model.LiveWorkspace))
	require.Equal(t, contentstream.StatusOpen, f.streamStatus(f.stream(user)))
	require.True(t, f.exists(user, "contact"))
}

func TestManager_PublishThenDiscardWithoutChanges(t *testing.T) {
	f := newFixture(t)
	liveVersion := f.version(model.LiveWorkspace)
	stream := f.stream(user)

	res := f.handle(command.NewPublishWorkspaceCommand(command.SourceAPI, user))
	require.Zero(t, res.Events)
	require.Equal(t, stream, f.stream(user), "nothing to publish keeps the stream")

	res = f.handle(command.NewDiscardWorkspaceCommand(command.SourceAPI, user))
	require.Zero(t, res.Events)
	require.Equal(t, liveVersion, f.version(model.LiveWorkspace))
	require.Equal(t, liveVersion, f.version(user))
}

func TestManager_DiscardWorkspace(t *testing.T) {
	f := newFixture(t)
	f.in(user).WithNode("contact", testutil.Sites).Build()
	old := f.stream(user)

	res := f.handle(command.NewDiscardWorkspaceCommand(command.SourceAPI, user))

	require.Equal(t, 2, res.Events)
	require.False(t, f.exists(user, "contact"))
	require.Equal(t, contentstream.StatusClosed, f.streamStatus(old))

	_, err := f.env.Handler.Handle(f.ctx, old, command.NewCreateNodeAggregateWithNodeCommand(command.SourceAPI, user, "late", "Acme:Page", originEn, testutil.Sites))
	require.ErrorIs(t, err, handler.ErrContentStreamIsClosed, "writes to the replaced stream are refused")
}

func TestManager_RebaseWorkspace(t *testing.T) {
	f := newFixture(t)
	f.in(user).WithNode("contact", testutil.Sites).Build()
	f.in(model.LiveWorkspace).WithNode("imprint", testutil.Sites).Build()

	res := f.handle(command.NewRebaseWorkspaceCommand(command.SourceAPI, user))

	require.Empty(t, res.Conflicts)
	require.True(t, f.exists(user, "contact"))
	require.True(t, f.exists(user, "imprint"))
	require.Equal(t, workspace.StatusUpToDate, f.status(user))

	f.handle(command.NewPublishWorkspaceCommand(command.SourceAPI, user))
	require.True(t, f.exists(model.LiveWorkspace, "contact"))
}

func TestManager_RebaseConflicts(t *testing.T) {
	setup := func(t *testing.T) *fixture {
		f := newFixture(t)
		f.setTitle(user, testutil.About, "About us")
		f.in(user).WithNode("contact", testutil.Sites).Build()
		_, err := f.env.Handler.Handle(f.ctx, f.stream(model.LiveWorkspace),
			command.NewRemoveNodeAggregateCommand(command.SourceAPI, model.LiveWorkspace, testutil.About, testutil.En, command.AllVariants))
		require.NoError(t, err)
		return f
	}

	t.Run("force drops failing commands", func(t *testing.T) {
		f := setup(t)

		res := f.handle(command.NewRebaseWorkspaceCommand(command.SourceAPI, user))

		require.Len(t, res.Conflicts, 1)
		require.Equal(t, command.CmdSetNodeProperties, res.Conflicts[0].Command.Type())
		require.ErrorIs(t, res.Conflicts[0].Err, handler.ErrNodeAggregateCurrentlyDoesNotExist)
		require.True(t, f.exists(user, "contact"))
		require.False(t, f.exists(user, testutil.About))
	})

	t.Run("fail keeps the workspace", func(t *testing.T) {
		f := setup(t)
		stream := f.stream(user)

		_, err := f.env.Workspaces.Handle(f.ctx, command.NewRebaseWorkspaceCommand(command.SourceAPI, user).WithErrorStrategy(command.RebaseFail))

		var conflict *workspace.RebaseConflictError
		require.ErrorAs(t, err, &conflict)
		require.ErrorIs(t, err, workspace.ErrRebaseConflict)
		require.Equal(t, user, conflict.Workspace)
		require.Len(t, conflict.Conflicts, 1)
		require.Equal(t, stream, f.stream(user))
		require.Equal(t, contentstream.StatusOpen, f.streamStatus(stream))
		require.True(t, f.exists(user, testutil.About))
	})
}

func TestManager_RebaseWithoutBaseChangesReproducesEvents(t *testing.T) {
	f := newFixture(t)
	f.in(user).
		WithNode("contact", testutil.Sites, testutil.Name("contact")).
		WithNode("team", "contact", testutil.Origin(testutil.EnUS)).
		WithDisabled("contact", testutil.En).
		Build()
	f.setTitle(user, testutil.About, "About us")
	before, err := f.env.Workspaces.Changes(f.ctx, user)
	require.NoError(t, err)

	f.handle(command.NewRebaseWorkspaceCommand(command.SourceAPI, user))

	after, err := f.env.Workspaces.Changes(f.ctx, user)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		require.Equal(t, before[i].SequenceNumber, after[i].SequenceNumber)
		require.Equal(t, before[i].Type, after[i].Type)
		require.JSONEq(t, string(before[i].Payload), string(after[i].Payload))
	}
}

func TestManager_PublishIndividualNodes(t *testing.T) {
	f := newFixture(t)
	f.in(user).WithNode("contact", testutil.Sites).WithNode("imprint", testutil.Sites).Build()
	f.setTitle(user, testutil.About, "About us")
	old := f.stream(user)

	res := f.handle(command.NewPublishIndividualNodesFromWorkspaceCommand(command.SourceAPI, user,
		command.NodeIDToPublishOrDiscard{NodeAggregateID: "imprint"},
		command.NodeIDToPublishOrDiscard{NodeAggregateID: testutil.About},
	))

	require.Equal(t, 3, res.Events, "imprint, its main slot and the title change")
	require.True(t, f.exists(model.LiveWorkspace, "imprint"))
	require.False(t, f.exists(model.LiveWorkspace, "contact"))
	require.True(t, f.exists(user, "contact"))
	require.Equal(t, workspace.StatusUpToDate, f.status(user))
	require.Equal(t, contentstream.StatusClosed, f.streamStatus(old))

	changes, err := f.env.Workspaces.Changes(f.ctx, user)
	require.NoError(t, err)
	require.Len(t, changes, 2, "only contact remains unpublished")

	streams, err := f.env.Store.Streams(f.ctx)
	require.NoError(t, err)
	require.Len(t, streams, 3, "live, the replaced user stream and the remaining part")
}

func TestManager_PublishIndividualNodesWithDependency(t *testing.T) {
	f := newFixture(t)
	f.in(user).WithNode("contact", testutil.Sites).WithNode("team", "contact").Build()
	stream := f.stream(user)
	liveVersion := f.version(model.LiveWorkspace)

	_, err := f.env.Workspaces.Handle(f.ctx, command.NewPublishIndividualNodesFromWorkspaceCommand(command.SourceAPI, user,
		command.NodeIDToPublishOrDiscard{NodeAggregateID: "team"},
	))

	var conflict *workspace.RebaseConflictError
	require.ErrorAs(t, err, &conflict)
	require.ErrorIs(t, conflict.Conflicts[0].Err, handler.ErrParentNodeAggregateNotFound)
	require.Equal(t, liveVersion, f.version(model.LiveWorkspace))
	require.Equal(t, stream, f.stream(user))
	require.Equal(t, contentstream.StatusOpen, f.streamStatus(stream))

	streams, err := f.env.Store.Streams(f.ctx)
	require.NoError(t, err)
	require.Len(t, streams, 2, "temporary streams are removed")
}

func TestManager_PublishIndividualNodesSelectingEverything(t *testing.T) {
	f := newFixture(t)
	f.in(user).WithNode("contact", testutil.Sites).Build()

	res := f.handle(command.NewPublishIndividualNodesFromWorkspaceCommand(command.SourceAPI, user,
		command.NodeIDToPublishOrDiscard{NodeAggregateID: "contact"},
	))

	require.Equal(t, 2, res.Events)
	require.True(t, f.exists(model.LiveWorkspace, "contact"))
}

func TestManager_DiscardIndividualNodes(t *testing.T) {
	f := newFixture(t)
	f.in(user).WithNode("contact", testutil.Sites).WithNode("imprint", testutil.Sites).Build()

	res := f.handle(command.NewDiscardIndividualNodesFromWorkspaceCommand(command.SourceAPI, user,
		command.NodeIDToPublishOrDiscard{NodeAggregateID: "contact", DimensionSpacePoint: &testutil.En},
	))

	require.Equal(t, 2, res.Events)
	require.False(t, f.exists(user, "contact"))
	require.True(t, f.exists(user, "imprint"))
	require.False(t, f.exists(model.LiveWorkspace, "imprint"))

	stream := f.stream(user)
	res = f.handle(command.NewDiscardIndividualNodesFromWorkspaceCommand(command.SourceAPI, user,
		command.NodeIDToPublishOrDiscard{NodeAggregateID: "contact"},
	))
	require.Zero(t, res.Events)
	require.Equal(t, stream, f.stream(user), "nothing matched")
}

func TestManager_RootWorkspaceHasNoBase(t *testing.T) {
	f := newFixture(t)

	for _, cmd := range []command.WorkspaceCommand{
		command.NewPublishWorkspaceCommand(command.SourceAPI, model.LiveWorkspace),
		command.NewDiscardWorkspaceCommand(command.SourceAPI, model.LiveWorkspace),
		command.NewRebaseWorkspaceCommand(command.SourceAPI, model.LiveWorkspace),
	} {
		_, err := f.env.Workspaces.Handle(f.ctx, cmd)
		require.ErrorIs(t, err, workspace.ErrWorkspaceHasNoBase, "%s", cmd.Type())
	}
	require.Equal(t, workspace.StatusUpToDate, f.status(model.LiveWorkspace))
}

func TestManager_DeleteWorkspace(t *testing.T) {
	f := newFixture(t)
	stream := f.stream(user)

	_, err := f.env.Workspaces.Handle(f.ctx, command.NewDeleteWorkspaceCommand(command.SourceAPI, model.LiveWorkspace))
	require.ErrorIs(t, err, workspace.ErrWorkspaceHasDependents)

	f.handle(command.NewDeleteWorkspaceCommand(command.SourceAPI, user))

	_, err = f.env.Workspaces.Find(f.ctx, user)
	require.ErrorIs(t, err, workspace.ErrWorkspaceDoesNotExist)
	_, err = f.env.Store.Info(f.ctx, stream)
	require.ErrorIs(t, err, contentstream.ErrStreamNotFound)

	_, err = f.env.Workspaces.Handle(f.ctx, command.NewDeleteWorkspaceCommand(command.SourceAPI, user))
	require.ErrorIs(t, err, workspace.ErrWorkspaceDoesNotExist)
}

func TestManager_RenameWorkspace(t *testing.T) {
	f := newFixture(t)

	f.handle(command.NewRenameWorkspaceCommand(command.SourceAPI, user, "Alice (review)", "ready for review"))

	w := f.find(user)
	require.Equal(t, "Alice (review)", w.Title())
	require.Equal(t, "ready for review", w.Description())
	require.True(t, w.UpdatedAt().After(w.CreatedAt()) || w.UpdatedAt().Equal(w.CreatedAt()))
}

func TestManager_Prune(t *testing.T) {
	f := newFixture(t)
	f.in(user).WithNode("contact", testutil.Sites).Build()
	old := f.stream(user)
	f.handle(command.NewPublishWorkspaceCommand(command.SourceAPI, user))

	removed, err := f.env.Workspaces.Prune(f.ctx)

	require.NoError(t, err)
	require.Equal(t, []contentstream.ID{old}, removed)
	workspaces, err := f.env.Workspaces.List(f.ctx)
	require.NoError(t, err)
	require.Len(t, workspaces, 2)
	for _, w := range workspaces {
		require.Equal(t, contentstream.StatusOpen, f.streamStatus(w.StreamID()))
	}
}
