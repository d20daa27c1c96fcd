package command

import (
	"encoding/json"
	"fmt"
	"slices"
)

var nodeCommandFactories = map[CommandType]func(CommandSource) NodeCommand{
	CmdCreateRootNodeAggregateWithNode: func(s CommandSource) NodeCommand {
		base := NewBaseCommand(CmdCreateRootNodeAggregateWithNode, s)
		return &CreateRootNodeAggregateWithNodeCommand{BaseCommand: &base}
	},
	CmdCreateNodeAggregateWithNode: func(s CommandSource) NodeCommand {
		base := NewBaseCommand(CmdCreateNodeAggregateWithNode, s)
		return &CreateNodeAggregateWithNodeCommand{BaseCommand: &base}
	},
	CmdMoveNodeAggregate: func(s CommandSource) NodeCommand {
		base := NewBaseCommand(CmdMoveNodeAggregate, s)
		return &MoveNodeAggregateCommand{BaseCommand: &base}
	},
	CmdDisableNodeAggregate: func(s CommandSource) NodeCommand {
		base := NewBaseCommand(CmdDisableNodeAggregate, s)
		return &DisableNodeAggregateCommand{BaseCommand: &base}
	},
	CmdEnableNodeAggregate: func(s CommandSource) NodeCommand {
		base := NewBaseCommand(CmdEnableNodeAggregate, s)
		return &EnableNodeAggregateCommand{BaseCommand: &base}
	},
	CmdRemoveNodeAggregate: func(s CommandSource) NodeCommand {
		base := NewBaseCommand(CmdRemoveNodeAggregate, s)
		return &RemoveNodeAggregateCommand{BaseCommand: &base}
	},
	CmdSetNodeProperties: func(s CommandSource) NodeCommand {
		base := NewBaseCommand(CmdSetNodeProperties, s)
		return &SetNodePropertiesCommand{BaseCommand: &base}
	},
	CmdSetNodeReferences: func(s CommandSource) NodeCommand {
		base := NewBaseCommand(CmdSetNodeReferences, s)
		return &SetNodeReferencesCommand{BaseCommand: &base}
	},
	CmdChangeNodeAggregateType: func(s CommandSource) NodeCommand {
		base := NewBaseCommand(CmdChangeNodeAggregateType, s)
		return &ChangeNodeAggregateTypeCommand{BaseCommand: &base}
	},
	CmdCreateNodeVariant: func(s CommandSource) NodeCommand {
		base := NewBaseCommand(CmdCreateNodeVariant, s)
		return &CreateNodeVariantCommand{BaseCommand: &base}
	},
}

// Encode serializes a node command for recording alongside its events.
func Encode(cmd NodeCommand) (CommandType, json.RawMessage, error) {
	if _, ok := nodeCommandFactories[cmd.Type()]; !ok {
		return "", nil, malformed(cmd.Type(), "", "cannot be recorded")
	}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode %s: %w", cmd.Type(), err)
	}
	return cmd.Type(), payload, nil
}

// Decode restores a recorded node command. The result carries SourceReplay
// and a fresh command id.
func Decode(cmdType CommandType, payload json.RawMessage) (NodeCommand, error) {
	return DecodeNode(cmdType, SourceReplay, payload)
}

// DecodeNode builds a node command of the given source from its JSON payload.
func DecodeNode(cmdType CommandType, source CommandSource, payload json.RawMessage) (NodeCommand, error) {
	factory, ok := nodeCommandFactories[cmdType]
	if !ok {
		return nil, malformed(cmdType, "", "is not a replayable node command")
	}
	cmd := factory(source)
	if err := json.Unmarshal(payload, cmd); err != nil {
		return nil, malformed(cmdType, "payload", err.Error())
	}
	return cmd, nil
}

// NodeCommandTypes returns the types of all node aggregate commands, sorted.
func NodeCommandTypes() []CommandType {
	out := make([]CommandType, 0, len(nodeCommandFactories))
	for t := range nodeCommandFactories {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

var workspaceCommandFactories = map[CommandType]func(CommandSource) WorkspaceCommand{
	CmdCreateRootWorkspace: func(s CommandSource) WorkspaceCommand { return NewCreateRootWorkspaceCommand(s, "", "", "") },
	CmdCreateWorkspace:     func(s CommandSource) WorkspaceCommand { return NewCreateWorkspaceCommand(s, "", "", "", "") },
	CmdPublishWorkspace:    func(s CommandSource) WorkspaceCommand { return NewPublishWorkspaceCommand(s, "") },
	CmdPublishIndividualNodesFromWorkspace: func(s CommandSource) WorkspaceCommand {
		return NewPublishIndividualNodesFromWorkspaceCommand(s, "")
	},
	CmdDiscardWorkspace: func(s CommandSource) WorkspaceCommand { return NewDiscardWorkspaceCommand(s, "") },
	CmdDiscardIndividualNodesFromWorkspace: func(s CommandSource) WorkspaceCommand {
		return NewDiscardIndividualNodesFromWorkspaceCommand(s, "")
	},
	CmdRebaseWorkspace: func(s CommandSource) WorkspaceCommand { return NewRebaseWorkspaceCommand(s, "") },
	CmdDeleteWorkspace: func(s CommandSource) WorkspaceCommand { return NewDeleteWorkspaceCommand(s, "") },
	CmdRenameWorkspace: func(s CommandSource) WorkspaceCommand { return NewRenameWorkspaceCommand(s, "", "", "") },
}

// DecodeWorkspace builds a workspace command from its JSON payload. Fields
// missing from the payload keep the defaults of the constructor, so fresh
// stream ids are generated unless given.
func DecodeWorkspace(cmdType CommandType, source CommandSource, payload json.RawMessage) (WorkspaceCommand, error) {
	factory, ok := workspaceCommandFactories[cmdType]
	if !ok {
		return nil, malformed(cmdType, "", "is not a workspace command")
	}
	cmd := factory(source)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, cmd); err != nil {
			return nil, malformed(cmdType, "payload", err.Error())
		}
	}
	return cmd, nil
}
