// Package presentation turns repository state into JSON documents and
// terminal reports for the CLI.
package presentation

import (
	"time"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/handler"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/nodetype"
	"github.com/zjrosen/contentgraph/internal/workspace"
)

// WorkspaceDTO represents a workspace for presentation
type WorkspaceDTO struct {
	Name        string    `json:"name"`
	Base        string    `json:"base,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StreamID    string    `json:"contentStreamId"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FromWorkspace converts a workspace to a DTO. status may be empty.
func FromWorkspace(w *workspace.Workspace, status workspace.Status) WorkspaceDTO {
	return WorkspaceDTO{
		Name:        w.Name().String(),
		Base:        w.BaseName().String(),
		Title:       w.Title(),
		Description: w.Description(),
		StreamID:    w.StreamID().String(),
		Status:      status.String(),
		CreatedAt:   w.CreatedAt(),
		UpdatedAt:   w.UpdatedAt(),
	}
}

// NodeTypeDTO represents a resolved node type
type NodeTypeDTO struct {
	Name       string         `json:"name"`
	Label      string         `json:"label,omitempty"`
	Abstract   bool           `json:"abstract"`
	Final      bool           `json:"final"`
	SuperTypes []string       `json:"superTypes"`
	Properties []PropertyDTO  `json:"properties"`
	ChildNodes []ChildNodeDTO `json:"childNodes,omitempty"`
}

// PropertyDTO is a declared property
type PropertyDTO struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default any    `json:"defaultValue,omitempty"`
}

// ChildNodeDTO is a tethered child declaration
type ChildNodeDTO struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// FromNodeType converts a resolved node type to a DTO.
func FromNodeType(t *nodetype.NodeType) NodeTypeDTO {
	cfg := t.Configuration()

	superTypes := make([]string, 0, len(t.DeclaredSuperTypes()))
	for _, s := range t.DeclaredSuperTypes() {
		superTypes = append(superTypes, string(s.Name()))
	}

	properties := make([]PropertyDTO, len(cfg.Properties))
	for i, p := range cfg.Properties {
		properties[i] = PropertyDTO{Name: p.Name, Type: p.Type}
		if p.HasDefault {
			properties[i].Default = p.DefaultValue
		}
	}

	var children []ChildNodeDTO
	for _, c := range t.TetheredNodes() {
		children = append(children, ChildNodeDTO{Name: c.Name, Type: string(c.Type)})
	}

	return NodeTypeDTO{
		Name:       string(t.Name()),
		Label:      t.Label(),
		Abstract:   t.IsAbstract(),
		Final:      t.IsFinal(),
		SuperTypes: superTypes,
		Properties: properties,
		ChildNodes: children,
	}
}

// FromNodeTypes converts a slice of node types to DTOs
func FromNodeTypes(types []*nodetype.NodeType) []NodeTypeDTO {
	dtos := make([]NodeTypeDTO, len(types))
	for i, t := range types {
		dtos[i] = FromNodeType(t)
	}
	return dtos
}

// ResultDTO represents a handled command
type ResultDTO struct {
	Command   string        `json:"command"`
	Workspace string        `json:"workspace,omitempty"`
	StreamID  string        `json:"contentStreamId,omitempty"`
	Version   int64         `json:"version,omitempty"`
	Events    []EventDTO    `json:"events"`
	Conflicts []ConflictDTO `json:"conflicts,omitempty"`
}

// EventDTO names an emitted domain event
type EventDTO struct {
	Type        string `json:"eventType"`
	AggregateID string `json:"nodeAggregateId"`
}

// ConflictDTO is a command a rebase could not replay
type ConflictDTO struct {
	SequenceNumber int64  `json:"sequenceNumber"`
	CommandType    string `json:"commandType"`
	Error          string `json:"error"`
}

// FromConflicts converts rebase conflicts to DTOs.
func FromConflicts(conflicts []workspace.CommandThatFailed) []ConflictDTO {
	dtos := make([]ConflictDTO, len(conflicts))
	for i, c := range conflicts {
		dtos[i] = ConflictDTO{SequenceNumber: c.SequenceNumber, Error: c.Err.Error()}
		if c.Command != nil {
			dtos[i].CommandType = string(c.Command.Type())
		}
	}
	return dtos
}

// FromResult converts a command result of the content repository.
// Data is either a *handler.Result or a *workspace.Result.
func FromResult(cmd command.Command, res *command.CommandResult) ResultDTO {
	dto := ResultDTO{Command: string(cmd.Type()), Events: []EventDTO{}}
	if res == nil {
		return dto
	}
	if wc, ok := cmd.(interface{ Workspace() model.WorkspaceName }); ok {
		dto.Workspace = wc.Workspace().String()
	}

	switch data := res.Data.(type) {
	case *handler.Result:
		dto.StreamID = data.StreamID.String()
		dto.Version = data.Version
		for _, e := range data.Events {
			dto.Events = append(dto.Events, EventDTO{Type: string(e.EventType()), AggregateID: e.AggregateID().String()})
		}
	case *workspace.Result:
		if data.Workspace != nil {
			dto.Workspace = data.Workspace.Name().String()
			dto.StreamID = data.Workspace.StreamID().String()
		}
		dto.Conflicts = FromConflicts(data.Conflicts)
	}
	return dto
}
