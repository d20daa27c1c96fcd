// Package repotest holds the behavioural test suite every
// workspace.Repository implementation must pass.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/workspace"
)

// Factory returns a fresh, empty repository.
type Factory func(t *testing.T) workspace.Repository

// Run executes the suite.
func Run(t *testing.T, newRepo Factory) {
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	t.Run("save and find", func(t *testing.T) {
		r := newRepo(t)
		w := workspace.ReconstituteWorkspace("user-alice", model.LiveWorkspace, "Alice", "drafts", "cs-1", created, created.Add(time.Hour))
		require.NoError(t, r.Save(ctx, w))

		got, err := r.Find(ctx, "user-alice")
		require.NoError(t, err)
		require.Equal(t, model.WorkspaceName("user-alice"), got.Name())
		require.Equal(t, model.LiveWorkspace, got.BaseName())
		require.Equal(t, "Alice", got.Title())
		require.Equal(t, "drafts", got.Description())
		require.Equal(t, contentstream.ID("cs-1"), got.StreamID())
		require.True(t, created.Equal(got.CreatedAt()))
		require.True(t, created.Add(time.Hour).Equal(got.UpdatedAt()))
		require.False(t, got.IsRoot())
	})

	t.Run("root workspace", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Save(ctx, workspace.NewWorkspace(model.LiveWorkspace, "", "", "", "cs-live")))

		got, err := r.Find(ctx, model.LiveWorkspace)
		require.NoError(t, err)
		require.True(t, got.IsRoot())
		require.Equal(t, "live", got.Title())
	})

	t.Run("save replaces", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Save(ctx, workspace.ReconstituteWorkspace("review", model.LiveWorkspace, "Review", "", "cs-1", created, created)))
		require.NoError(t, r.Save(ctx, workspace.ReconstituteWorkspace("review", model.LiveWorkspace, "Review", "second pass", "cs-2", created, created.Add(time.Minute))))

		got, err := r.Find(ctx, "review")
		require.NoError(t, err)
		require.Equal(t, contentstream.ID("cs-2"), got.StreamID())
		require.Equal(t, "second pass", got.Description())

		all, err := r.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
	})

	t.Run("list is ordered by name", func(t *testing.T) {
		r := newRepo(t)
		for _, name := range []model.WorkspaceName{"user-bob", model.LiveWorkspace, "user-alice"} {
			require.NoError(t, r.Save(ctx, workspace.NewWorkspace(name, "", "", "", contentstream.NewID())))
		}

		all, err := r.List(ctx)
		require.NoError(t, err)
		names := make([]model.WorkspaceName, len(all))
		for i, w := range all {
			names[i] = w.Name()
		}
		require.Equal(t, []model.WorkspaceName{model.LiveWorkspace, "user-alice", "user-bob"}, names)
	})

	t.Run("delete", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Save(ctx, workspace.NewWorkspace("review", model.LiveWorkspace, "", "", "cs-1")))
		require.NoError(t, r.Delete(ctx, "review"))

		_, err := r.Find(ctx, "review")
		require.ErrorIs(t, err, workspace.ErrWorkspaceDoesNotExist)
		require.ErrorIs(t, r.Delete(ctx, "review"), workspace.ErrWorkspaceDoesNotExist)
	})

	t.Run("returned workspaces are copies", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Save(ctx, workspace.NewWorkspace("review", model.LiveWorkspace, "Review", "", "cs-1")))

		got, err := r.Find(ctx, "review")
		require.NoError(t, err)
		got.Rename("Changed", "")

		again, err := r.Find(ctx, "review")
		require.NoError(t, err)
		require.Equal(t, "Review", again.Title())
	})
}
