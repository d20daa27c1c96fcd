// Package workspace binds names to content streams and moves changes
// between a workspace and its base.
//
// A workspace always points at exactly one open content stream. Publishing,
// discarding and rebasing never mutate that stream in place: they build a
// new stream, rebind the workspace and close the old one. Any failure before
// the rebind leaves the workspace, its stream and the base untouched.
package workspace

import (
	"time"

	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/model"
)

// Status tells whether a workspace contains the current state of its base.
type Status string

const (
	// StatusUpToDate means the base has not advanced since the workspace stream was forked.
	StatusUpToDate Status = "up_to_date"
	// StatusOutdated means the base has new events; the workspace must be rebased before publishing.
	StatusOutdated Status = "outdated"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Workspace is a named pointer to a content stream, optionally based on
// another workspace. Fields are unexported; use the constructors and getters.
type Workspace struct {
	name        model.WorkspaceName
	baseName    model.WorkspaceName
	title       string
	description string
	streamID    contentstream.ID

	createdAt time.Time
	updatedAt time.Time
}

// NewWorkspace creates a workspace bound to stream. baseName is empty for
// root workspaces.
func NewWorkspace(name, baseName model.WorkspaceName, title, description string, stream contentstream.ID) *Workspace {
	now := time.Now()
	if title == "" {
		title = string(name)
	}
	return &Workspace{
		name:        name,
		baseName:    baseName,
		title:       title,
		description: description,
		streamID:    stream,
		createdAt:   now,
		updatedAt:   now,
	}
}

// ReconstituteWorkspace restores a workspace from persisted data.
func ReconstituteWorkspace(
	name, baseName model.WorkspaceName,
	title, description string,
	stream contentstream.ID,
	createdAt, updatedAt time.Time,
) *Workspace {
	return &Workspace{
		name:        name,
		baseName:    baseName,
		title:       title,
		description: description,
		streamID:    stream,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (w *Workspace) Name() model.WorkspaceName { return w.name }

// BaseName returns the name of the base workspace, empty for root workspaces.
func (w *Workspace) BaseName() model.WorkspaceName { return w.baseName }

func (w *Workspace) Title() string       { return w.title }
func (w *Workspace) Description() string { return w.description }

// StreamID returns the content stream the workspace currently points at.
func (w *Workspace) StreamID() contentstream.ID { return w.streamID }

func (w *Workspace) CreatedAt() time.Time { return w.createdAt }
func (w *Workspace) UpdatedAt() time.Time { return w.updatedAt }

// IsRoot reports whether the workspace has no base.
func (w *Workspace) IsRoot() bool { return w.baseName == "" }

// Rename changes title and description.
func (w *Workspace) Rename(title, description string) {
	w.title = title
	w.description = description
	w.updatedAt = time.Now()
}

// rebind points the workspace at stream.
func (w *Workspace) rebind(stream contentstream.ID) {
	w.streamID = stream
	w.updatedAt = time.Now()
}

func (w *Workspace) clone() *Workspace {
	c := *w
	return &c
}
