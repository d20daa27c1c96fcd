package workspace

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/model"
)

// ===========================================================================
// Workspace Errors
// ===========================================================================

var (
	// ErrWorkspaceDoesNotExist is returned for unknown workspace names.
	ErrWorkspaceDoesNotExist = errors.New("workspace does not exist")
	// ErrWorkspaceAlreadyExists is returned when creating a workspace whose name is taken.
	ErrWorkspaceAlreadyExists = errors.New("workspace already exists")
	// ErrBaseWorkspaceDoesNotExist is returned when the base of a new workspace is unknown.
	ErrBaseWorkspaceDoesNotExist = errors.New("base workspace does not exist")
	// ErrWorkspaceHasNoBase is returned for operations that need a base on a root workspace.
	ErrWorkspaceHasNoBase = errors.New("workspace has no base workspace")
	// ErrWorkspaceHasDependents is returned when deleting a workspace other workspaces are based on.
	ErrWorkspaceHasDependents = errors.New("workspace has dependent workspaces")
	// ErrBaseWorkspaceHasBeenModified is returned when publishing an outdated workspace.
	ErrBaseWorkspaceHasBeenModified = errors.New("base workspace has been modified in the meantime")
	// ErrRebaseConflict matches every RebaseConflictError.
	ErrRebaseConflict = errors.New("rebase conflict")
)

// CommandThatFailed is a recorded command that could not be replayed.
type CommandThatFailed struct {
	// SequenceNumber is the position of the command's first event in the
	// replayed stream.
	SequenceNumber int64
	Command        command.NodeCommand
	Err            error
}

// RebaseConflictError lists the commands that failed while replaying the
// changes of a workspace onto a new base stream.
type RebaseConflictError struct {
	Workspace model.WorkspaceName
	Conflicts []CommandThatFailed
}

func (e *RebaseConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("#%d %s: %v", c.SequenceNumber, c.Command.Type(), c.Err))
	}
	return fmt.Sprintf("rebase of workspace %q failed for %d command(s): %s", e.Workspace, len(e.Conflicts), strings.Join(parts, "; "))
}

// Is matches ErrRebaseConflict.
func (e *RebaseConflictError) Is(target error) bool {
	return target == ErrRebaseConflict
}
