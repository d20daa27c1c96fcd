package sqlite

import (
	"encoding/json"
	"time"

	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/workspace"
)

// StreamModel represents a row of the content_streams table.
// Times are stored as Unix nanoseconds so creation order survives a round trip.
type StreamModel struct {
	ID            string
	Version       int64
	Status        string
	SourceID      *string // nullable
	SourceVersion int64
	CreatedAt     int64
}

func (m *StreamModel) toInfo() contentstream.Info {
	info := contentstream.Info{
		ID:            contentstream.ID(m.ID),
		Version:       m.Version,
		Status:        contentstream.Status(m.Status),
		CreatedAt:     time.Unix(0, m.CreatedAt),
		SourceVersion: m.SourceVersion,
	}
	if m.SourceID != nil {
		info.SourceID = contentstream.ID(*m.SourceID)
	}
	return info
}

// EventModel represents a row of the events table.
type EventModel struct {
	StreamID       string
	SequenceNumber int64
	EventType      string
	Payload        string
	Metadata       *string // nullable
	RecordedAt     int64
}

func (m *EventModel) toRecord() contentstream.Record {
	r := contentstream.Record{
		Event: contentstream.Event{
			Type:    m.EventType,
			Payload: json.RawMessage(m.Payload),
		},
		StreamID:       contentstream.ID(m.StreamID),
		SequenceNumber: m.SequenceNumber,
		RecordedAt:     time.Unix(0, m.RecordedAt),
	}
	if m.Metadata != nil {
		r.Metadata = json.RawMessage(*m.Metadata)
	}
	return r
}

// WorkspaceModel represents a row of the workspaces table with Unix timestamps.
type WorkspaceModel struct {
	Name        string
	BaseName    *string // nullable, root workspaces have none
	Title       string
	Description string
	StreamID    string
	CreatedAt   int64
	UpdatedAt   int64
}

func toWorkspaceModel(w *workspace.Workspace) *WorkspaceModel {
	m := &WorkspaceModel{
		Name:        string(w.Name()),
		Title:       w.Title(),
		Description: w.Description(),
		StreamID:    string(w.StreamID()),
		CreatedAt:   w.CreatedAt().Unix(),
		UpdatedAt:   w.UpdatedAt().Unix(),
	}
	if !w.IsRoot() {
		base := string(w.BaseName())
		m.BaseName = &base
	}
	return m
}

func (m *WorkspaceModel) toDomain() *workspace.Workspace {
	var base model.WorkspaceName
	if m.BaseName != nil {
		base = model.WorkspaceName(*m.BaseName)
	}
	return workspace.ReconstituteWorkspace(
		model.WorkspaceName(m.Name),
		base,
		m.Title,
		m.Description,
		contentstream.ID(m.StreamID),
		time.Unix(m.CreatedAt, 0),
		time.Unix(m.UpdatedAt, 0),
	)
}
