package command

import (
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/model"
)

// NodeVariantSelectionStrategy selects which covered points besides the
// given one a disable, enable or remove command affects.
type NodeVariantSelectionStrategy string

const (
	// OnlyGivenVariant affects the given point only.
	OnlyGivenVariant NodeVariantSelectionStrategy = "onlyGivenVariant"
	// AllSpecializations affects the given point and its covered specializations.
	AllSpecializations NodeVariantSelectionStrategy = "allSpecializations"
	// AllVariants affects every point the aggregate covers.
	AllVariants NodeVariantSelectionStrategy = "allVariants"
)

// Valid reports whether s is a known strategy.
func (s NodeVariantSelectionStrategy) Valid() bool {
	switch s {
	case OnlyGivenVariant, AllSpecializations, AllVariants:
		return true
	}
	return false
}

// RelationDistributionStrategy decides which covered points a move affects.
type RelationDistributionStrategy string

const (
	// Scatter moves the node at the given point only.
	Scatter RelationDistributionStrategy = "scatter"
	// GatherSpecializations moves the node at the given point and its covered specializations.
	GatherSpecializations RelationDistributionStrategy = "gatherSpecializations"
	// GatherAll moves the node at every covered point.
	GatherAll RelationDistributionStrategy = "gatherAll"
)

// Valid reports whether s is a known strategy.
func (s RelationDistributionStrategy) Valid() bool {
	switch s {
	case Scatter, GatherSpecializations, GatherAll:
		return true
	}
	return false
}

// NodeAggregateTypeChangeChildConstraintConflictResolutionStrategy decides what
// happens to children the new node type no longer allows.
type NodeAggregateTypeChangeChildConstraintConflictResolutionStrategy string

const (
	// HappyPath fails the type change if any child would become invalid.
	HappyPath NodeAggregateTypeChangeChildConstraintConflictResolutionStrategy = "happyPath"
	// Delete removes children that would become invalid.
	Delete NodeAggregateTypeChangeChildConstraintConflictResolutionStrategy = "delete"
)

// Valid reports whether s is a known strategy.
func (s NodeAggregateTypeChangeChildConstraintConflictResolutionStrategy) Valid() bool {
	return s == HappyPath || s == Delete
}

// RebaseErrorHandlingStrategy decides whether a rebase with failing commands completes.
type RebaseErrorHandlingStrategy string

const (
	// RebaseFail aborts the rebase and keeps the old stream when a command fails.
	RebaseFail RebaseErrorHandlingStrategy = "fail"
	// RebaseForce completes the rebase and reports the failing commands.
	RebaseForce RebaseErrorHandlingStrategy = "force"
)

// Valid reports whether s is a known strategy.
func (s RebaseErrorHandlingStrategy) Valid() bool {
	return s == RebaseFail || s == RebaseForce
}

// NodeIDToPublishOrDiscard selects the changes of one node for a partial
// publish or discard. An empty point matches changes at every point.
type NodeIDToPublishOrDiscard struct {
	NodeAggregateID     model.NodeAggregateID `json:"nodeAggregateId"`
	DimensionSpacePoint *dimensionspace.Point `json:"dimensionSpacePoint,omitempty"`
}

func (n NodeIDToPublishOrDiscard) matches(id model.NodeAggregateID, p *dimensionspace.Point) bool {
	if n.NodeAggregateID != id {
		return false
	}
	if n.DimensionSpacePoint == nil || p == nil {
		return true
	}
	return n.DimensionSpacePoint.Equal(*p)
}
