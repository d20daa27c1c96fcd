package command

import (
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/nodetype"
)

// NodeCommand is a command that changes the content graph of a workspace.
// Node commands do not name a content stream; the caller resolves the
// workspace, which lets the same command be replayed onto another stream.
type NodeCommand interface {
	Command
	// Workspace returns the workspace the command addresses.
	Workspace() model.WorkspaceName
	// MatchesNode reports whether the command changes the selected node.
	MatchesNode(n NodeIDToPublishOrDiscard) bool
}

// TetheredDescendantsCompleter is implemented by commands that create tethered
// descendants. The handler fills in missing ids before recording the command.
type TetheredDescendantsCompleter interface {
	TetheredDescendantIDs() model.NodeAggregateIDsByNodePaths
	SetTetheredDescendantIDs(ids model.NodeAggregateIDsByNodePaths)
}

func validateWorkspace(cmdType CommandType, name model.WorkspaceName) error {
	if name == "" {
		return required(cmdType, "workspace_name")
	}
	if err := name.Validate(); err != nil {
		return malformed(cmdType, "workspace_name", err.Error())
	}
	return nil
}

func pointRef(p dimensionspace.Point) *dimensionspace.Point { return &p }

// ===========================================================================
// Creation
// ===========================================================================

// CreateRootNodeAggregateWithNodeCommand creates a root node aggregate.
type CreateRootNodeAggregateWithNodeCommand struct {
	*BaseCommand                       `json:"-"`
	WorkspaceName                      model.WorkspaceName               `json:"workspaceName"`
	NodeAggregateID                    model.NodeAggregateID             `json:"nodeAggregateId"`
	NodeTypeName                       nodetype.Name                     `json:"nodeTypeName"`
	TetheredDescendantNodeAggregateIDs model.NodeAggregateIDsByNodePaths `json:"tetheredDescendantNodeAggregateIds,omitempty"`
}

// NewCreateRootNodeAggregateWithNodeCommand creates a new CreateRootNodeAggregateWithNodeCommand.
func NewCreateRootNodeAggregateWithNodeCommand(source CommandSource, workspace model.WorkspaceName, id model.NodeAggregateID, typeName nodetype.Name) *CreateRootNodeAggregateWithNodeCommand {
	base := NewBaseCommand(CmdCreateRootNodeAggregateWithNode, source)
	return &CreateRootNodeAggregateWithNodeCommand{
		BaseCommand:     &base,
		WorkspaceName:   workspace,
		NodeAggregateID: id,
		NodeTypeName:    typeName,
	}
}

// Validate checks that workspace, aggregate id and type are provided.
func (c *CreateRootNodeAggregateWithNodeCommand) Validate() error {
	if err := validateWorkspace(CmdCreateRootNodeAggregateWithNode, c.WorkspaceName); err != nil {
		return err
	}
	if c.NodeAggregateID == "" {
		return required(CmdCreateRootNodeAggregateWithNode, "node_aggregate_id")
	}
	if c.NodeTypeName == "" {
		return required(CmdCreateRootNodeAggregateWithNode, "node_type_name")
	}
	return nil
}

func (c *CreateRootNodeAggregateWithNodeCommand) Workspace() model.WorkspaceName {
	return c.WorkspaceName
}

func (c *CreateRootNodeAggregateWithNodeCommand) MatchesNode(n NodeIDToPublishOrDiscard) bool {
	return n.matches(c.NodeAggregateID, nil)
}

func (c *CreateRootNodeAggregateWithNodeCommand) TetheredDescendantIDs() model.NodeAggregateIDsByNodePaths {
	return c.TetheredDescendantNodeAggregateIDs
}

func (c *CreateRootNodeAggregateWithNodeCommand) SetTetheredDescendantIDs(ids model.NodeAggregateIDsByNodePaths) {
	c.TetheredDescendantNodeAggregateIDs = ids
}

// CreateNodeAggregateWithNodeCommand creates a node aggregate with its first node.
type CreateNodeAggregateWithNodeCommand struct {
	*BaseCommand                       `json:"-"`
	WorkspaceName                      model.WorkspaceName               `json:"workspaceName"`
	NodeAggregateID                    model.NodeAggregateID             `json:"nodeAggregateId"`
	NodeTypeName                       nodetype.Name                     `json:"nodeTypeName"`
	OriginDimensionSpacePoint          dimensionspace.OriginPoint        `json:"originDimensionSpacePoint"`
	ParentNodeAggregateID              model.NodeAggregateID             `json:"parentNodeAggregateId"`
	SucceedingSiblingNodeAggregateID   model.NodeAggregateID             `json:"succeedingSiblingNodeAggregateId,omitempty"`
	NodeName                           model.NodeName                    `json:"nodeName,omitempty"`
	InitialPropertyValues              model.PropertyValues              `json:"initialPropertyValues,omitempty"`
	TetheredDescendantNodeAggregateIDs model.NodeAggregateIDsByNodePaths `json:"tetheredDescendantNodeAggregateIds,omitempty"`
}

// CreateNodeOption configures a CreateNodeAggregateWithNodeCommand.
type CreateNodeOption func(*CreateNodeAggregateWithNodeCommand)

// WithNodeName sets the node name.
func WithNodeName(name model.NodeName) CreateNodeOption {
	return func(c *CreateNodeAggregateWithNodeCommand) {
		c.NodeName = name
	}
}

// WithSucceedingSibling positions the node before the given sibling.
func WithSucceedingSibling(id model.NodeAggregateID) CreateNodeOption {
	return func(c *CreateNodeAggregateWithNodeCommand) {
		c.SucceedingSiblingNodeAggregateID = id
	}
}

// WithInitialPropertyValues sets property values of the new node.
func WithInitialPropertyValues(values model.PropertyValues) CreateNodeOption {
	return func(c *CreateNodeAggregateWithNodeCommand) {
		c.InitialPropertyValues = values
	}
}

// WithTetheredDescendantIDs assigns ids to tethered descendants by path.
func WithTetheredDescendantIDs(ids model.NodeAggregateIDsByNodePaths) CreateNodeOption {
	return func(c *CreateNodeAggregateWithNodeCommand) {
		c.TetheredDescendantNodeAggregateIDs = ids
	}
}

// NewCreateNodeAggregateWithNodeCommand creates a new CreateNodeAggregateWithNodeCommand.
func NewCreateNodeAggregateWithNodeCommand(
	source CommandSource,
	workspace model.WorkspaceName,
	id model.NodeAggregateID,
	typeName nodetype.Name,
	origin dimensionspace.OriginPoint,
	parent model.NodeAggregateID,
	opts ...CreateNodeOption,
) *CreateNodeAggregateWithNodeCommand {
	base := NewBaseCommand(CmdCreateNodeAggregateWithNode, source)
	cmd := &CreateNodeAggregateWithNodeCommand{
		BaseCommand:               &base,
		WorkspaceName:             workspace,
		NodeAggregateID:           id,
		NodeTypeName:              typeName,
		OriginDimensionSpacePoint: origin,
		ParentNodeAggregateID:     parent,
	}
	for _, opt := range opts {
		opt(cmd)
	}
	return cmd
}

// Validate checks the required identifiers.
func (c *CreateNodeAggregateWithNodeCommand) Validate() error {
	if err := validateWorkspace(CmdCreateNodeAggregateWithNode, c.WorkspaceName); err != nil {
		return err
	}
	if c.NodeAggregateID == "" {
		return required(CmdCreateNodeAggregateWithNode, "node_aggregate_id")
	}
	if c.NodeTypeName == "" {
		return required(CmdCreateNodeAggregateWithNode, "node_type_name")
	}
	if c.ParentNodeAggregateID == "" {
		return required(CmdCreateNodeAggregateWithNode, "parent_node_aggregate_id")
	}
	if c.ParentNodeAggregateID == c.NodeAggregateID {
		return malformed(CmdCreateNodeAggregateWithNode, "parent_node_aggregate_id", "must differ from node_aggregate_id")
	}
	if c.SucceedingSiblingNodeAggregateID == c.NodeAggregateID {
		return malformed(CmdCreateNodeAggregateWithNode, "succeeding_sibling_node_aggregate_id", "must differ from node_aggregate_id")
	}
	return nil
}

func (c *CreateNodeAggregateWithNodeCommand) Workspace() model.WorkspaceName { return c.WorkspaceName }

func (c *CreateNodeAggregateWithNodeCommand) MatchesNode(n NodeIDToPublishOrDiscard) bool {
	return n.matches(c.NodeAggregateID, pointRef(c.OriginDimensionSpacePoint.ToPoint()))
}

func (c *CreateNodeAggregateWithNodeCommand) TetheredDescendantIDs() model.NodeAggregateIDsByNodePaths {
	return c.TetheredDescendantNodeAggregateIDs
}

func (c *CreateNodeAggregateWithNodeCommand) SetTetheredDescendantIDs(ids model.NodeAggregateIDsByNodePaths) {
	c.TetheredDescendantNodeAggregateIDs = ids
}

// ===========================================================================
// Structure
// ===========================================================================

// MoveNodeAggregateCommand moves a node aggregate below a new parent, to a
// new position among its siblings, or both.
type MoveNodeAggregateCommand struct {
	*BaseCommand                        `json:"-"`
	WorkspaceName                       model.WorkspaceName          `json:"workspaceName"`
	DimensionSpacePoint                 dimensionspace.Point         `json:"dimensionSpacePoint"`
	NodeAggregateID                     model.NodeAggregateID        `json:"nodeAggregateId"`
	NewParentNodeAggregateID            model.NodeAggregateID        `json:"newParentNodeAggregateId,omitempty"`
	NewPrecedingSiblingNodeAggregateID  model.NodeAggregateID        `json:"newPrecedingSiblingNodeAggregateId,omitempty"`
	NewSucceedingSiblingNodeAggregateID model.NodeAggregateID        `json:"newSucceedingSiblingNodeAggregateId,omitempty"`
	RelationDistributionStrategy        RelationDistributionStrategy `json:"relationDistributionStrategy"`
}

// MoveOption configures a MoveNodeAggregateCommand.
type MoveOption func(*MoveNodeAggregateCommand)

// WithNewParent moves the node below parent.
func WithNewParent(parent model.NodeAggregateID) MoveOption {
	return func(c *MoveNodeAggregateCommand) {
		c.NewParentNodeAggregateID = parent
	}
}

// WithNewPrecedingSibling positions the node after sibling.
func WithNewPrecedingSibling(sibling model.NodeAggregateID) MoveOption {
	return func(c *MoveNodeAggregateCommand) {
		c.NewPrecedingSiblingNodeAggregateID = sibling
	}
}

// WithNewSucceedingSibling positions the node before sibling.
func WithNewSucceedingSibling(sibling model.NodeAggregateID) MoveOption {
	return func(c *MoveNodeAggregateCommand) {
		c.NewSucceedingSiblingNodeAggregateID = sibling
	}
}

// NewMoveNodeAggregateCommand creates a new MoveNodeAggregateCommand.
func NewMoveNodeAggregateCommand(
	source CommandSource,
	workspace model.WorkspaceName,
	point dimensionspace.Point,
	id model.NodeAggregateID,
	strategy RelationDistributionStrategy,
	opts ...MoveOption,
) *MoveNodeAggregateCommand {
	base := NewBaseCommand(CmdMoveNodeAggregate, source)
	cmd := &MoveNodeAggregateCommand{
		BaseCommand:                  &base,
		WorkspaceName:                workspace,
		DimensionSpacePoint:          point,
		NodeAggregateID:              id,
		RelationDistributionStrategy: strategy,
	}
	for _, opt := range opts {
		opt(cmd)
	}
	return cmd
}

// Validate checks identifiers and the distribution strategy.
func (c *MoveNodeAggregateCommand) Validate() error {
	if err := validateWorkspace(CmdMoveNodeAggregate, c.WorkspaceName); err != nil {
		return err
	}
	if c.NodeAggregateID == "" {
		return required(CmdMoveNodeAggregate, "node_aggregate_id")
	}
	if !c.RelationDistributionStrategy.Valid() {
		return malformed(CmdMoveNodeAggregate, "relation_distribution_strategy", "must be scatter, gatherSpecializations or gatherAll")
	}
	for _, other := range []model.NodeAggregateID{c.NewParentNodeAggregateID, c.NewPrecedingSiblingNodeAggregateID, c.NewSucceedingSiblingNodeAggregateID} {
		if other != "" && other == c.NodeAggregateID {
			return malformed(CmdMoveNodeAggregate, "", "a node cannot be moved relative to itself")
		}
	}
	if c.NewParentNodeAggregateID == "" && c.NewPrecedingSiblingNodeAggregateID == "" && c.NewSucceedingSiblingNodeAggregateID == "" {
		return malformed(CmdMoveNodeAggregate, "", "a new parent or sibling is required")
	}
	return nil
}

func (c *MoveNodeAggregateCommand) Workspace() model.WorkspaceName { return c.WorkspaceName }

func (c *MoveNodeAggregateCommand) MatchesNode(n NodeIDToPublishOrDiscard) bool {
	return n.matches(c.NodeAggregateID, pointRef(c.DimensionSpacePoint))
}

// ===========================================================================
// Visibility and Removal
// ===========================================================================

// variantSelection is shared by disable, enable and remove.
type variantSelection struct {
	WorkspaceName                model.WorkspaceName          `json:"workspaceName"`
	NodeAggregateID              model.NodeAggregateID        `json:"nodeAggregateId"`
	CoveredDimensionSpacePoint   dimensionspace.Point         `json:"coveredDimensionSpacePoint"`
	NodeVariantSelectionStrategy NodeVariantSelectionStrategy `json:"nodeVariantSelectionStrategy"`
}

func (v variantSelection) validate(cmdType CommandType) error {
	if err := validateWorkspace(cmdType, v.WorkspaceName); err != nil {
		return err
	}
	if v.NodeAggregateID == "" {
		return required(cmdType, "node_aggregate_id")
	}
	if !v.NodeVariantSelectionStrategy.Valid() {
		return malformed(cmdType, "node_variant_selection_strategy", "must be onlyGivenVariant, allSpecializations or allVariants")
	}
	return nil
}

// Workspace returns the workspace the command addresses.
func (v variantSelection) Workspace() model.WorkspaceName { return v.WorkspaceName }

// MatchesNode reports whether the command changes the selected node.
func (v variantSelection) MatchesNode(n NodeIDToPublishOrDiscard) bool {
	return n.matches(v.NodeAggregateID, pointRef(v.CoveredDimensionSpacePoint))
}

// DisableNodeAggregateCommand disables a node aggregate.
type DisableNodeAggregateCommand struct {
	*BaseCommand `json:"-"`
	variantSelection
}

// NewDisableNodeAggregateCommand creates a new DisableNodeAggregateCommand.
func NewDisableNodeAggregateCommand(source CommandSource, workspace model.WorkspaceName, id model.NodeAggregateID, point dimensionspace.Point, strategy NodeVariantSelectionStrategy) *DisableNodeAggregateCommand {
	base := NewBaseCommand(CmdDisableNodeAggregate, source)
	return &DisableNodeAggregateCommand{
		BaseCommand:      &base,
		variantSelection: variantSelection{workspace, id, point, strategy},
	}
}

// Validate checks identifiers and the selection strategy.
func (c *DisableNodeAggregateCommand) Validate() error {
	return c.validate(CmdDisableNodeAggregate)
}

// EnableNodeAggregateCommand re-enables a node aggregate.
type EnableNodeAggregateCommand struct {
	*BaseCommand `json:"-"`
	variantSelection
}

// NewEnableNodeAggregateCommand creates a new EnableNodeAggregateCommand.
func NewEnableNodeAggregateCommand(source CommandSource, workspace model.WorkspaceName, id model.NodeAggregateID, point dimensionspace.Point, strategy NodeVariantSelectionStrategy) *EnableNodeAggregateCommand {
	base := NewBaseCommand(CmdEnableNodeAggregate, source)
	return &EnableNodeAggregateCommand{
		BaseCommand:      &base,
		variantSelection: variantSelection{workspace, id, point, strategy},
	}
}

// Validate checks identifiers and the selection strategy.
func (c *EnableNodeAggregateCommand) Validate() error {
	return c.validate(CmdEnableNodeAggregate)
}

// RemoveNodeAggregateCommand removes a node aggregate and its descendants.
type RemoveNodeAggregateCommand struct {
	*BaseCommand `json:"-"`
	variantSelection
}

// NewRemoveNodeAggregateCommand creates a new RemoveNodeAggregateCommand.
func NewRemoveNodeAggregateCommand(source CommandSource, workspace model.WorkspaceName, id model.NodeAggregateID, point dimensionspace.Point, strategy NodeVariantSelectionStrategy) *RemoveNodeAggregateCommand {
	base := NewBaseCommand(CmdRemoveNodeAggregate, source)
	return &RemoveNodeAggregateCommand{
		BaseCommand:      &base,
		variantSelection: variantSelection{workspace, id, point, strategy},
	}
}

// Validate checks identifiers and the selection strategy.
func (c *RemoveNodeAggregateCommand) Validate() error {
	return c.validate(CmdRemoveNodeAggregate)
}

// ===========================================================================
// Content
// ===========================================================================

// SetNodePropertiesCommand sets and unsets property values of one node.
type SetNodePropertiesCommand struct {
	*BaseCommand              `json:"-"`
	WorkspaceName             model.WorkspaceName        `json:"workspaceName"`
	NodeAggregateID           model.NodeAggregateID      `json:"nodeAggregateId"`
	OriginDimensionSpacePoint dimensionspace.OriginPoint `json:"originDimensionSpacePoint"`
	PropertyValues            model.PropertyValues       `json:"propertyValues,omitempty"`
	PropertiesToUnset         []string                   `json:"propertiesToUnset,omitempty"`
}

// NewSetNodePropertiesCommand creates a new SetNodePropertiesCommand.
func NewSetNodePropertiesCommand(source CommandSource, workspace model.WorkspaceName, id model.NodeAggregateID, origin dimensionspace.OriginPoint, values model.PropertyValues, unset ...string) *SetNodePropertiesCommand {
	base := NewBaseCommand(CmdSetNodeProperties, source)
	return &SetNodePropertiesCommand{
		BaseCommand:               &base,
		WorkspaceName:             workspace,
		NodeAggregateID:           id,
		OriginDimensionSpacePoint: origin,
		PropertyValues:            values,
		PropertiesToUnset:         unset,
	}
}

// Validate checks identifiers and that something is set or unset.
func (c *SetNodePropertiesCommand) Validate() error {
	if err := validateWorkspace(CmdSetNodeProperties, c.WorkspaceName); err != nil {
		return err
	}
	if c.NodeAggregateID == "" {
		return required(CmdSetNodeProperties, "node_aggregate_id")
	}
	if len(c.PropertyValues) == 0 && len(c.PropertiesToUnset) == 0 {
		return malformed(CmdSetNodeProperties, "property_values", "must set or unset at least one property")
	}
	for _, name := range c.PropertiesToUnset {
		if _, ok := c.PropertyValues[name]; ok {
			return malformed(CmdSetNodeProperties, "properties_to_unset", "property "+name+" is both set and unset")
		}
	}
	return nil
}

func (c *SetNodePropertiesCommand) Workspace() model.WorkspaceName { return c.WorkspaceName }

func (c *SetNodePropertiesCommand) MatchesNode(n NodeIDToPublishOrDiscard) bool {
	return n.matches(c.NodeAggregateID, pointRef(c.OriginDimensionSpacePoint.ToPoint()))
}

// SetNodeReferencesCommand replaces one named reference of a node.
type SetNodeReferencesCommand struct {
	*BaseCommand                    `json:"-"`
	WorkspaceName                   model.WorkspaceName        `json:"workspaceName"`
	SourceNodeAggregateID           model.NodeAggregateID      `json:"sourceNodeAggregateId"`
	SourceOriginDimensionSpacePoint dimensionspace.OriginPoint `json:"sourceOriginDimensionSpacePoint"`
	ReferenceName                   model.ReferenceName        `json:"referenceName"`
	References                      []model.NodeReference      `json:"references"`
}

// NewSetNodeReferencesCommand creates a new SetNodeReferencesCommand.
func NewSetNodeReferencesCommand(source CommandSource, workspace model.WorkspaceName, id model.NodeAggregateID, origin dimensionspace.OriginPoint, name model.ReferenceName, refs ...model.NodeReference) *SetNodeReferencesCommand {
	base := NewBaseCommand(CmdSetNodeReferences, source)
	return &SetNodeReferencesCommand{
		BaseCommand:                     &base,
		WorkspaceName:                   workspace,
		SourceNodeAggregateID:           id,
		SourceOriginDimensionSpacePoint: origin,
		ReferenceName:                   name,
		References:                      refs,
	}
}

// Validate checks identifiers and reference targets.
func (c *SetNodeReferencesCommand) Validate() error {
	if err := validateWorkspace(CmdSetNodeReferences, c.WorkspaceName); err != nil {
		return err
	}
	if c.SourceNodeAggregateID == "" {
		return required(CmdSetNodeReferences, "source_node_aggregate_id")
	}
	if c.ReferenceName == "" {
		return required(CmdSetNodeReferences, "reference_name")
	}
	seen := make(map[model.NodeAggregateID]bool, len(c.References))
	for _, ref := range c.References {
		if ref.Target == "" {
			return required(CmdSetNodeReferences, "references.target")
		}
		if seen[ref.Target] {
			return malformed(CmdSetNodeReferences, "references", "target "+string(ref.Target)+" is referenced twice")
		}
		seen[ref.Target] = true
	}
	return nil
}

func (c *SetNodeReferencesCommand) Workspace() model.WorkspaceName { return c.WorkspaceName }

func (c *SetNodeReferencesCommand) MatchesNode(n NodeIDToPublishOrDiscard) bool {
	return n.matches(c.SourceNodeAggregateID, pointRef(c.SourceOriginDimensionSpacePoint.ToPoint()))
}

// ===========================================================================
// Type and Variants
// ===========================================================================

// ChangeNodeAggregateTypeCommand changes the node type of an aggregate.
type ChangeNodeAggregateTypeCommand struct {
	*BaseCommand                       `json:"-"`
	WorkspaceName                      model.WorkspaceName                                              `json:"workspaceName"`
	NodeAggregateID                    model.NodeAggregateID                                            `json:"nodeAggregateId"`
	NewNodeTypeName                    nodetype.Name                                                    `json:"newNodeTypeName"`
	Strategy                           NodeAggregateTypeChangeChildConstraintConflictResolutionStrategy `json:"strategy"`
	TetheredDescendantNodeAggregateIDs model.NodeAggregateIDsByNodePaths                                `json:"tetheredDescendantNodeAggregateIds,omitempty"`
}

// NewChangeNodeAggregateTypeCommand creates a new ChangeNodeAggregateTypeCommand.
func NewChangeNodeAggregateTypeCommand(source CommandSource, workspace model.WorkspaceName, id model.NodeAggregateID, newType nodetype.Name, strategy NodeAggregateTypeChangeChildConstraintConflictResolutionStrategy) *ChangeNodeAggregateTypeCommand {
	base := NewBaseCommand(CmdChangeNodeAggregateType, source)
	return &ChangeNodeAggregateTypeCommand{
		BaseCommand:     &base,
		WorkspaceName:   workspace,
		NodeAggregateID: id,
		NewNodeTypeName: newType,
		Strategy:        strategy,
	}
}

// Validate checks identifiers and that a strategy is given.
func (c *ChangeNodeAggregateTypeCommand) Validate() error {
	if err := validateWorkspace(CmdChangeNodeAggregateType, c.WorkspaceName); err != nil {
		return err
	}
	if c.NodeAggregateID == "" {
		return required(CmdChangeNodeAggregateType, "node_aggregate_id")
	}
	if c.NewNodeTypeName == "" {
		return required(CmdChangeNodeAggregateType, "new_node_type_name")
	}
	if c.Strategy == "" {
		return required(CmdChangeNodeAggregateType, "strategy")
	}
	if !c.Strategy.Valid() {
		return malformed(CmdChangeNodeAggregateType, "strategy", "must be happyPath or delete")
	}
	return nil
}

func (c *ChangeNodeAggregateTypeCommand) Workspace() model.WorkspaceName { return c.WorkspaceName }

func (c *ChangeNodeAggregateTypeCommand) MatchesNode(n NodeIDToPublishOrDiscard) bool {
	return n.matches(c.NodeAggregateID, nil)
}

func (c *ChangeNodeAggregateTypeCommand) TetheredDescendantIDs() model.NodeAggregateIDsByNodePaths {
	return c.TetheredDescendantNodeAggregateIDs
}

func (c *ChangeNodeAggregateTypeCommand) SetTetheredDescendantIDs(ids model.NodeAggregateIDsByNodePaths) {
	c.TetheredDescendantNodeAggregateIDs = ids
}

// CreateNodeVariantCommand creates a variant of a node at another origin.
type CreateNodeVariantCommand struct {
	*BaseCommand    `json:"-"`
	WorkspaceName   model.WorkspaceName        `json:"workspaceName"`
	NodeAggregateID model.NodeAggregateID      `json:"nodeAggregateId"`
	SourceOrigin    dimensionspace.OriginPoint `json:"sourceOrigin"`
	TargetOrigin    dimensionspace.OriginPoint `json:"targetOrigin"`
}

// NewCreateNodeVariantCommand creates a new CreateNodeVariantCommand.
func NewCreateNodeVariantCommand(source CommandSource, workspace model.WorkspaceName, id model.NodeAggregateID, from, to dimensionspace.OriginPoint) *CreateNodeVariantCommand {
	base := NewBaseCommand(CmdCreateNodeVariant, source)
	return &CreateNodeVariantCommand{
		BaseCommand:     &base,
		WorkspaceName:   workspace,
		NodeAggregateID: id,
		SourceOrigin:    from,
		TargetOrigin:    to,
	}
}

// Validate checks identifiers and that source and target differ.
func (c *CreateNodeVariantCommand) Validate() error {
	if err := validateWorkspace(CmdCreateNodeVariant, c.WorkspaceName); err != nil {
		return err
	}
	if c.NodeAggregateID == "" {
		return required(CmdCreateNodeVariant, "node_aggregate_id")
	}
	if c.SourceOrigin.Equal(c.TargetOrigin.Point) {
		return malformed(CmdCreateNodeVariant, "target_origin", "must differ from source_origin")
	}
	return nil
}

func (c *CreateNodeVariantCommand) Workspace() model.WorkspaceName { return c.WorkspaceName }

func (c *CreateNodeVariantCommand) MatchesNode(n NodeIDToPublishOrDiscard) bool {
	return n.matches(c.NodeAggregateID, pointRef(c.TargetOrigin.ToPoint()))
}
