// Package command defines the commands accepted by the content repository.
// Commands are intents; they are never stored on their own but recorded as
// metadata of the events they produce so they can be replayed on rebase.
package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Command represents an explicit intent entering the content repository.
// All commands must implement this interface to be processed by the FIFO processor.
type Command interface {
	// ID returns unique command identifier for tracing/correlation
	ID() string
	// Type returns the command type for routing to handlers
	Type() CommandType
	// Validate checks the command shape before any state is consulted
	Validate() error
	// Priority returns execution priority (0=normal, 1=urgent)
	Priority() int
	// CreatedAt returns when command was created
	CreatedAt() time.Time
}

// CommandType identifies the kind of command for handler routing.
type CommandType string

const (
	// Node Aggregate Commands

	// CmdCreateRootNodeAggregateWithNode creates a root node aggregate covering all points.
	CmdCreateRootNodeAggregateWithNode CommandType = "create_root_node_aggregate_with_node"
	// CmdCreateNodeAggregateWithNode creates a node aggregate with one node below a parent.
	CmdCreateNodeAggregateWithNode CommandType = "create_node_aggregate_with_node"
	// CmdMoveNodeAggregate moves a node aggregate to a new parent and/or position.
	CmdMoveNodeAggregate CommandType = "move_node_aggregate"
	// CmdDisableNodeAggregate disables a node aggregate at a set of points.
	CmdDisableNodeAggregate CommandType = "disable_node_aggregate"
	// CmdEnableNodeAggregate re-enables a node aggregate at a set of points.
	CmdEnableNodeAggregate CommandType = "enable_node_aggregate"
	// CmdRemoveNodeAggregate removes a node aggregate at a set of points.
	CmdRemoveNodeAggregate CommandType = "remove_node_aggregate"
	// CmdSetNodeProperties replaces property values of one node.
	CmdSetNodeProperties CommandType = "set_node_properties"
	// CmdSetNodeReferences replaces one named reference of one node.
	CmdSetNodeReferences CommandType = "set_node_references"
	// CmdChangeNodeAggregateType changes the node type of an aggregate.
	CmdChangeNodeAggregateType CommandType = "change_node_aggregate_type"
	// CmdCreateNodeVariant creates a variant of a node at another origin.
	CmdCreateNodeVariant CommandType = "create_node_variant"

	// Workspace Commands

	// CmdCreateRootWorkspace creates a workspace without base on a fresh stream.
	CmdCreateRootWorkspace CommandType = "create_root_workspace"
	// CmdCreateWorkspace creates a workspace forked from its base.
	CmdCreateWorkspace CommandType = "create_workspace"
	// CmdPublishWorkspace publishes all changes to the base workspace.
	CmdPublishWorkspace CommandType = "publish_workspace"
	// CmdPublishIndividualNodesFromWorkspace publishes the changes of selected nodes.
	CmdPublishIndividualNodesFromWorkspace CommandType = "publish_individual_nodes_from_workspace"
	// CmdDiscardWorkspace drops all changes.
	CmdDiscardWorkspace CommandType = "discard_workspace"
	// CmdDiscardIndividualNodesFromWorkspace drops the changes of selected nodes.
	CmdDiscardIndividualNodesFromWorkspace CommandType = "discard_individual_nodes_from_workspace"
	// CmdRebaseWorkspace replays the changes on top of the current base.
	CmdRebaseWorkspace CommandType = "rebase_workspace"
	// CmdDeleteWorkspace removes the workspace binding.
	CmdDeleteWorkspace CommandType = "delete_workspace"
	// CmdRenameWorkspace changes title and description.
	CmdRenameWorkspace CommandType = "rename_workspace"
)

// String returns the string representation of the CommandType.
func (ct CommandType) String() string {
	return string(ct)
}

// CommandSource identifies where the command originated.
type CommandSource string

const (
	// SourceCLI indicates the command came from the command line.
	SourceCLI CommandSource = "cli"
	// SourceAPI indicates the command came from an in-process caller.
	SourceAPI CommandSource = "api"
	// SourceReplay indicates the command was decoded from event metadata.
	SourceReplay CommandSource = "replay"
	// SourceInternal indicates the command was system-generated.
	SourceInternal CommandSource = "internal"
)

// String returns the string representation of the CommandSource.
func (cs CommandSource) String() string {
	return string(cs)
}

// BaseCommand provides common fields for all commands.
// Concrete command types should embed this struct.
type BaseCommand struct {
	id          string
	cmdType     CommandType
	priority    int
	createdAt   time.Time
	source      CommandSource
	traceID     string
	spanContext trace.SpanContext // For OpenTelemetry trace propagation
}

// NewBaseCommand creates a BaseCommand with a generated UUID and current timestamp.
func NewBaseCommand(cmdType CommandType, source CommandSource) BaseCommand {
	return BaseCommand{
		id:        uuid.New().String(),
		cmdType:   cmdType,
		priority:  0,
		createdAt: time.Now(),
		source:    source,
	}
}

// ID returns the unique command identifier.
func (b *BaseCommand) ID() string {
	return b.id
}

// Type returns the command type for handler routing.
func (b *BaseCommand) Type() CommandType {
	return b.cmdType
}

// Priority returns the execution priority (0=normal, 1=urgent).
func (b *BaseCommand) Priority() int {
	return b.priority
}

// CreatedAt returns when the command was created.
func (b *BaseCommand) CreatedAt() time.Time {
	return b.createdAt
}

// Source returns the origin of this command.
func (b *BaseCommand) Source() CommandSource {
	return b.source
}

// TraceID returns the correlation ID for related commands.
// If a valid SpanContext is set, the trace ID is derived from it.
func (b *BaseCommand) TraceID() string {
	if b.spanContext.IsValid() {
		return b.spanContext.TraceID().String()
	}
	return b.traceID
}

// SetTraceID sets the correlation ID for command tracing.
func (b *BaseCommand) SetTraceID(traceID string) {
	b.traceID = traceID
}

// SpanContext returns the OpenTelemetry span context for trace propagation.
func (b *BaseCommand) SpanContext() trace.SpanContext {
	return b.spanContext
}

// SetSpanContext sets the OpenTelemetry span context for trace propagation.
func (b *BaseCommand) SetSpanContext(sc trace.SpanContext) {
	b.spanContext = sc
}

// SetPriority sets the execution priority.
func (b *BaseCommand) SetPriority(priority int) {
	b.priority = priority
}

// Validate is a no-op for BaseCommand. Concrete commands should override this.
func (b *BaseCommand) Validate() error {
	return nil
}

// CommandResult contains the outcome of command execution.
type CommandResult struct {
	// Success indicates whether the command executed successfully.
	Success bool
	// Events contains the domain events appended by the command.
	Events []any
	// FollowUp contains commands to enqueue after the current one.
	FollowUp []Command
	// Error contains the error if Success is false.
	Error error
	// Data contains optional result data for the caller.
	Data any
}

// ErrQueueFull is returned when the command queue has reached capacity.
var ErrQueueFull = errors.New("command queue is full")

// ErrDuplicateCommand is returned when the same command content is submitted
// again within the deduplication window.
var ErrDuplicateCommand = errors.New("duplicate command")

// ErrMalformedCommand marks boundary validation failures.
var ErrMalformedCommand = errors.New("malformed command")

// MalformedCommandError reports a command that failed shape validation.
type MalformedCommandError struct {
	CommandType CommandType
	Field       string
	Reason      string
}

func (e *MalformedCommandError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.CommandType, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", e.CommandType, e.Field, e.Reason)
}

// Is matches ErrMalformedCommand.
func (e *MalformedCommandError) Is(target error) bool {
	return target == ErrMalformedCommand
}

func malformed(cmdType CommandType, field, reason string) error {
	return &MalformedCommandError{CommandType: cmdType, Field: field, Reason: reason}
}

func required(cmdType CommandType, field string) error {
	return malformed(cmdType, field, "is required")
}
