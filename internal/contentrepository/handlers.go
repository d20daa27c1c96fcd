package contentrepository

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/handler"
	"github.com/zjrosen/contentgraph/internal/workspace"
)

// handleNodeCommand resolves the workspace of cmd to its current stream and
// applies the command there. Data carries the *handler.Result.
func (r *ContentRepository) handleNodeCommand(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	nc, ok := cmd.(command.NodeCommand)
	if !ok {
		return nil, fmt.Errorf("%w: %s", handler.ErrUnsupportedCommand, cmd.Type())
	}
	w, err := r.workspaces.Find(ctx, nc.Workspace())
	if err != nil {
		return nil, err
	}

	res, err := r.nodes.Handle(ctx, w.StreamID(), nc)
	if err != nil {
		return nil, err
	}

	events := make([]any, len(res.Events))
	for i, e := range res.Events {
		events[i] = e
	}
	return &command.CommandResult{Success: true, Events: events, Data: res}, nil
}

// handleWorkspaceCommand applies cmd through the workspace manager. Data
// carries the *workspace.Result.
func (r *ContentRepository) handleWorkspaceCommand(ctx context.Context, cmd command.Command) (*command.CommandResult, error) {
	wc, ok := cmd.(command.WorkspaceCommand)
	if !ok {
		return nil, fmt.Errorf("%w: %s", handler.ErrUnsupportedCommand, cmd.Type())
	}

	res, err := r.workspaces.Handle(ctx, wc)
	if err != nil {
		var conflict *workspace.RebaseConflictError
		if errors.As(err, &conflict) {
			r.observeRebaseConflicts(len(conflict.Conflicts))
		}
		return nil, err
	}
	if len(res.Conflicts) > 0 {
		r.observeRebaseConflicts(len(res.Conflicts))
	}

	// old streams are never read again
	if res.PreviousStreamID != "" {
		r.projection.Forget(ctx, res.PreviousStreamID)
	}
	return &command.CommandResult{Success: true, Data: res}, nil
}

func (r *ContentRepository) observeRebaseConflicts(n int) {
	if r.metrics != nil {
		r.metrics.ObserveRebaseConflicts(n)
	}
}
