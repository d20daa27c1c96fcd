package command

import (
	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/model"
)

// WorkspaceCommand is a command handled by the workspace manager.
type WorkspaceCommand interface {
	Command
	Workspace() model.WorkspaceName
}

// WorkspaceCommandTypes returns the types of all workspace commands.
func WorkspaceCommandTypes() []CommandType {
	return []CommandType{
		CmdCreateRootWorkspace,
		CmdCreateWorkspace,
		CmdPublishWorkspace,
		CmdPublishIndividualNodesFromWorkspace,
		CmdDiscardWorkspace,
		CmdDiscardIndividualNodesFromWorkspace,
		CmdRebaseWorkspace,
		CmdDeleteWorkspace,
		CmdRenameWorkspace,
	}
}

func streamOrNew(id contentstream.ID) contentstream.ID {
	if id == "" {
		return contentstream.NewID()
	}
	return id
}

func validateNodeSelection(cmdType CommandType, field string, nodes []NodeIDToPublishOrDiscard) error {
	if len(nodes) == 0 {
		return required(cmdType, field)
	}
	for _, n := range nodes {
		if n.NodeAggregateID == "" {
			return required(cmdType, field+".node_aggregate_id")
		}
	}
	return nil
}

// CreateRootWorkspaceCommand creates a workspace without base on a fresh stream.
type CreateRootWorkspaceCommand struct {
	*BaseCommand       `json:"-"`
	WorkspaceName      model.WorkspaceName `json:"workspaceName"`
	Title              string              `json:"title,omitempty"`
	Description        string              `json:"description,omitempty"`
	NewContentStreamID contentstream.ID    `json:"newContentStreamId"`
}

// NewCreateRootWorkspaceCommand creates a new CreateRootWorkspaceCommand.
func NewCreateRootWorkspaceCommand(source CommandSource, name model.WorkspaceName, title, description string) *CreateRootWorkspaceCommand {
	base := NewBaseCommand(CmdCreateRootWorkspace, source)
	return &CreateRootWorkspaceCommand{
		BaseCommand:        &base,
		WorkspaceName:      name,
		Title:              title,
		Description:        description,
		NewContentStreamID: contentstream.NewID(),
	}
}

// Validate checks the workspace name and stream id.
func (c *CreateRootWorkspaceCommand) Validate() error {
	if err := validateWorkspace(CmdCreateRootWorkspace, c.WorkspaceName); err != nil {
		return err
	}
	if c.NewContentStreamID == "" {
		return required(CmdCreateRootWorkspace, "new_content_stream_id")
	}
	return nil
}

func (c *CreateRootWorkspaceCommand) Workspace() model.WorkspaceName { return c.WorkspaceName }

// CreateWorkspaceCommand creates a workspace forked from its base.
type CreateWorkspaceCommand struct {
	*BaseCommand       `json:"-"`
	WorkspaceName      model.WorkspaceName `json:"workspaceName"`
	BaseWorkspaceName  model.WorkspaceName `json:"baseWorkspaceName"`
	Title              string              `json:"title,omitempty"`
	Description        string              `json:"description,omitempty"`
	NewContentStreamID contentstream.ID    `json:"newContentStreamId"`
}

// NewCreateWorkspaceCommand creates a new CreateWorkspaceCommand.
func NewCreateWorkspaceCommand(source CommandSource, name, baseName model.WorkspaceName, title, description string) *CreateWorkspaceCommand {
	base := NewBaseCommand(CmdCreateWorkspace, source)
	return &CreateWorkspaceCommand{
		BaseCommand:        &base,
		WorkspaceName:      name,
		BaseWorkspaceName:  baseName,
		Title:              title,
		Description:        description,
		NewContentStreamID: contentstream.NewID(),
	}
}

// Validate checks both workspace names.
func (c *CreateWorkspaceCommand) Validate() error {
	if err := validateWorkspace(CmdCreateWorkspace, c.WorkspaceName); err != nil {
		return err
	}
	if c.BaseWorkspaceName == "" {
		return required(CmdCreateWorkspace, "base_workspace_name")
	}
	if c.BaseWorkspaceName == c.WorkspaceName {
		return malformed(CmdCreateWorkspace, "base_workspace_name", "must differ from workspace_name")
	}
	if c.NewContentStreamID == "" {
		return required(CmdCreateWorkspace, "new_content_stream_id")
	}
	return nil
}

func (c *CreateWorkspaceCommand) Workspace() model.WorkspaceName { return c.WorkspaceName }

// PublishWorkspaceCommand publishes all changes to the base workspace.
type PublishWorkspaceCommand struct {
	*BaseCommand       `json:"-"`
	WorkspaceName      model.WorkspaceName `json:"workspaceName"`
	NewContentStreamID contentstream.ID    `json:"newContentStreamId"`
}

// NewPublishWorkspaceCommand creates a new PublishWorkspaceCommand.
func NewPublishWorkspaceCommand(source CommandSource, name model.WorkspaceName) *PublishWorkspaceCommand {
	base := NewBaseCommand(CmdPublishWorkspace, source)
	return &PublishWorkspaceCommand{
		BaseCommand:        &base,
		WorkspaceName:      name,
		NewContentStreamID: contentstream.NewID(),
	}
}

// Validate checks the workspace name.
func (c *PublishWorkspaceCommand) Validate() error {
	return validateWorkspace(CmdPublishWorkspace, c.WorkspaceName)
}

func (c *PublishWorkspaceCommand) Workspace() model.WorkspaceName { return c.WorkspaceName }

// PublishIndividualNodesFromWorkspaceCommand publishes the changes of selected nodes.
type PublishIndividualNodesFromWorkspaceCommand struct {
	*BaseCommand                    `json:"-"`
	WorkspaceName                   model.WorkspaceName        `json:"workspaceName"`
	NodesToPublish                  []NodeIDToPublishOrDiscard `json:"nodesToPublish"`
	ContentStreamIDForMatchingPart  contentstream.ID           `json:"contentStreamIdForMatchingPart"`
	ContentStreamIDForRemainingPart contentstream.ID           `json:"contentStreamIdForRemainingPart"`
}

// NewPublishIndividualNodesFromWorkspaceCommand creates a new PublishIndividualNodesFromWorkspaceCommand.
func NewPublishIndividualNodesFromWorkspaceCommand(source CommandSource, name model.WorkspaceName, nodes ...NodeIDToPublishOrDiscard) *PublishIndividualNodesFromWorkspaceCommand {
	base := NewBaseCommand(CmdPublishIndividualNodesFromWorkspace, source)
	return &PublishIndividualNodesFromWorkspaceCommand{
		BaseCommand:                     &base,
		WorkspaceName:                   name,
		NodesToPublish:                  nodes,
		ContentStreamIDForMatchingPart:  contentstream.NewID(),
		ContentStreamIDForRemainingPart: contentstream.NewID(),
	}
}

// Validate checks the workspace name and the node selection.
func (c *PublishIndividualNodesFromWorkspaceCommand) Validate() error {
	if err := validateWorkspace(CmdPublishIndividualNodesFromWorkspace, c.WorkspaceName); err != nil {
		return err
	}
	if c.ContentStreamIDForMatchingPart == c.ContentStreamIDForRemainingPart {
		return malformed(CmdPublishIndividualNodesFromWorkspace, "content_stream_id_for_remaining_part", "must differ from the matching part")
	}
	return validateNodeSelection(CmdPublishIndividualNodesFromWorkspace, "nodes_to_publish", c.NodesToPublish)
}

func (c *PublishIndividualNodesFromWorkspaceCommand) Workspace() model.WorkspaceName {
	return c.WorkspaceName
}

// DiscardWorkspaceCommand drops all changes of a workspace.
type DiscardWorkspaceCommand struct {
	*BaseCommand       `json:"-"`
	WorkspaceName      model.WorkspaceName `json:"workspaceName"`
	NewContentStreamID contentstream.ID    `json:"newContentStreamId"`
}

// NewDiscardWorkspaceCommand creates a new DiscardWorkspaceCommand.
func NewDiscardWorkspaceCommand(source CommandSource, name model.WorkspaceName) *DiscardWorkspaceCommand {
	base := NewBaseCommand(CmdDiscardWorkspace, source)
	return &DiscardWorkspaceCommand{
		BaseCommand:        &base,
		WorkspaceName:      name,
		NewContentStreamID: contentstream.NewID(),
	}
}

// Validate checks the workspace name.
func (c *DiscardWorkspaceCommand) Validate() error {
	return validateWorkspace(CmdDiscardWorkspace, c.WorkspaceName)
}

func (c *DiscardWorkspaceCommand) Workspace() model.WorkspaceName { return c.WorkspaceName }

// DiscardIndividualNodesFromWorkspaceCommand drops the changes of selected nodes.
type DiscardIndividualNodesFromWorkspaceCommand struct {
	*BaseCommand       `json:"-"`
	WorkspaceName      model.WorkspaceName        `json:"workspaceName"`
	NodesToDiscard     []NodeIDToPublishOrDiscard `json:"nodesToDiscard"`
	NewContentStreamID contentstream.ID           `json:"newContentStreamId"`
}

// NewDiscardIndividualNodesFromWorkspaceCommand creates a new DiscardIndividualNodesFromWorkspaceCommand.
func NewDiscardIndividualNodesFromWorkspaceCommand(source CommandSource, name model.WorkspaceName, nodes ...NodeIDToPublishOrDiscard) *DiscardIndividualNodesFromWorkspaceCommand {
	base := NewBaseCommand(CmdDiscardIndividualNodesFromWorkspace, source)
	return &DiscardIndividualNodesFromWorkspaceCommand{
		BaseCommand:        &base,
		WorkspaceName:      name,
		NodesToDiscard:     nodes,
		NewContentStreamID: contentstream.NewID(),
	}
}

// Validate checks the workspace name and the node selection.
func (c *DiscardIndividualNodesFromWorkspaceCommand) Validate() error {
	if err := validateWorkspace(CmdDiscardIndividualNodesFromWorkspace, c.WorkspaceName); err != nil {
		return err
	}
	return validateNodeSelection(CmdDiscardIndividualNodesFromWorkspace, "nodes_to_discard", c.NodesToDiscard)
}

func (c *DiscardIndividualNodesFromWorkspaceCommand) Workspace() model.WorkspaceName {
	return c.WorkspaceName
}

// RebaseWorkspaceCommand replays the changes of a workspace on the current base.
type RebaseWorkspaceCommand struct {
	*BaseCommand           `json:"-"`
	WorkspaceName          model.WorkspaceName         `json:"workspaceName"`
	RebasedContentStreamID contentstream.ID            `json:"rebasedContentStreamId"`
	ErrorStrategy          RebaseErrorHandlingStrategy `json:"rebaseErrorHandlingStrategy"`
}

// NewRebaseWorkspaceCommand creates a new RebaseWorkspaceCommand using the force strategy.
func NewRebaseWorkspaceCommand(source CommandSource, name model.WorkspaceName) *RebaseWorkspaceCommand {
	base := NewBaseCommand(CmdRebaseWorkspace, source)
	return &RebaseWorkspaceCommand{
		BaseCommand:            &base,
		WorkspaceName:          name,
		RebasedContentStreamID: contentstream.NewID(),
		ErrorStrategy:          RebaseForce,
	}
}

// WithErrorStrategy sets the error handling strategy.
func (c *RebaseWorkspaceCommand) WithErrorStrategy(s RebaseErrorHandlingStrategy) *RebaseWorkspaceCommand {
	c.ErrorStrategy = s
	return c
}

// Validate checks the workspace name and error strategy.
func (c *RebaseWorkspaceCommand) Validate() error {
	if err := validateWorkspace(CmdRebaseWorkspace, c.WorkspaceName); err != nil {
		return err
	}
	if c.ErrorStrategy == "" {
		c.ErrorStrategy = RebaseForce
	}
	if !c.ErrorStrategy.Valid() {
		return malformed(CmdRebaseWorkspace, "rebase_error_handling_strategy", "must be force or fail")
	}
	c.RebasedContentStreamID = streamOrNew(c.RebasedContentStreamID)
	return nil
}

func (c *RebaseWorkspaceCommand) Workspace() model.WorkspaceName { return c.WorkspaceName }

// DeleteWorkspaceCommand removes a workspace binding.
type DeleteWorkspaceCommand struct {
	*BaseCommand  `json:"-"`
	WorkspaceName model.WorkspaceName `json:"workspaceName"`
}

// NewDeleteWorkspaceCommand creates a new DeleteWorkspaceCommand.
func NewDeleteWorkspaceCommand(source CommandSource, name model.WorkspaceName) *DeleteWorkspaceCommand {
	base := NewBaseCommand(CmdDeleteWorkspace, source)
	return &DeleteWorkspaceCommand{BaseCommand: &base, WorkspaceName: name}
}

// Validate checks the workspace name.
func (c *DeleteWorkspaceCommand) Validate() error {
	return validateWorkspace(CmdDeleteWorkspace, c.WorkspaceName)
}

func (c *DeleteWorkspaceCommand) Workspace() model.WorkspaceName { return c.WorkspaceName }

// RenameWorkspaceCommand changes title and description of a workspace.
type RenameWorkspaceCommand struct {
	*BaseCommand  `json:"-"`
	WorkspaceName model.WorkspaceName `json:"workspaceName"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
}

// NewRenameWorkspaceCommand creates a new RenameWorkspaceCommand.
func NewRenameWorkspaceCommand(source CommandSource, name model.WorkspaceName, title, description string) *RenameWorkspaceCommand {
	base := NewBaseCommand(CmdRenameWorkspace, source)
	return &RenameWorkspaceCommand{
		BaseCommand:   &base,
		WorkspaceName: name,
		Title:         title,
		Description:   description,
	}
}

// Validate checks the workspace name and that a title is given.
func (c *RenameWorkspaceCommand) Validate() error {
	if err := validateWorkspace(CmdRenameWorkspace, c.WorkspaceName); err != nil {
		return err
	}
	if c.Title == "" {
		return required(CmdRenameWorkspace, "title")
	}
	return nil
}

func (c *RenameWorkspaceCommand) Workspace() model.WorkspaceName { return c.WorkspaceName }
