package handler

import (
	"errors"
	"fmt"

	"github.com/zjrosen/contentgraph/internal/nodetype"
)

// ===========================================================================
// Content Stream Errors
// ===========================================================================

var (
	// ErrUnsupportedCommand is returned for commands the handler does not route.
	ErrUnsupportedCommand = errors.New("unsupported command")
	// ErrContentStreamDoesNotExist is returned when the addressed stream is unknown.
	ErrContentStreamDoesNotExist = errors.New("content stream does not exist")
	// ErrContentStreamIsClosed is returned when the addressed stream rejects appends.
	ErrContentStreamIsClosed = errors.New("content stream is closed")
)

// ===========================================================================
// Dimension Space Errors
// ===========================================================================

var (
	// ErrDimensionSpacePointNotFound is returned for points outside the variation graph.
	ErrDimensionSpacePointNotFound = errors.New("dimension space point not found")
	// ErrDimensionSpacePointIsNotYetOccupied is returned when no variant originates at a point.
	ErrDimensionSpacePointIsNotYetOccupied = errors.New("dimension space point is not yet occupied")
	// ErrDimensionSpacePointIsAlreadyOccupied is returned when a variant already originates at a point.
	ErrDimensionSpacePointIsAlreadyOccupied = errors.New("dimension space point is already occupied")
)

// ===========================================================================
// Node Type Errors
// ===========================================================================

var (
	// ErrNodeTypeNotFound is returned for unregistered node types.
	ErrNodeTypeNotFound = errors.New("node type not found")
	// ErrNodeTypeIsAbstract is returned when an abstract type is instantiated.
	ErrNodeTypeIsAbstract = errors.New("node type is abstract")
	// ErrNodeTypeIsOfTypeRoot is returned when a root type is used below a parent.
	ErrNodeTypeIsOfTypeRoot = errors.New("node type is of type root")
	// ErrNodeTypeIsNotOfTypeRoot is returned when a root aggregate is created with a regular type.
	ErrNodeTypeIsNotOfTypeRoot = errors.New("node type is not of type root")
	// ErrRootNodeAggregateTypeIsAlreadyOccupied is returned when a second root of one type is created.
	ErrRootNodeAggregateTypeIsAlreadyOccupied = errors.New("root node aggregate type is already occupied")
	// ErrPropertyNotDeclared is returned when a node type does not declare a property.
	ErrPropertyNotDeclared = errors.New("property is not declared")
	// ErrPropertyTypeMismatch is returned when a value does not match the declared property type.
	ErrPropertyTypeMismatch = errors.New("property value does not match the declared type")
	// ErrReferenceNotDeclared is returned when a node type does not declare a reference.
	ErrReferenceNotDeclared = errors.New("reference is not declared")
	// ErrReferenceCannotBeSet is returned when references exceed the declared maximum.
	ErrReferenceCannotBeSet = errors.New("reference cannot be set")
)

// ===========================================================================
// Node Aggregate Errors
// ===========================================================================

var (
	// ErrNodeAggregateCurrentlyExists is returned when creating an aggregate whose id is taken.
	ErrNodeAggregateCurrentlyExists = errors.New("node aggregate currently exists")
	// ErrNodeAggregateCurrentlyDoesNotExist is returned when an aggregate is unknown.
	ErrNodeAggregateCurrentlyDoesNotExist = errors.New("node aggregate currently does not exist")
	// ErrParentNodeAggregateNotFound is returned when the parent aggregate is unknown.
	ErrParentNodeAggregateNotFound = errors.New("parent node aggregate not found")
	// ErrNodeAggregateDoesCurrentlyNotCoverDimensionSpacePoint is returned for uncovered points.
	ErrNodeAggregateDoesCurrentlyNotCoverDimensionSpacePoint = errors.New("node aggregate does currently not cover dimension space point")
	// ErrNodeAggregateIsRoot is returned when an operation does not apply to roots.
	ErrNodeAggregateIsRoot = errors.New("node aggregate is root")
	// ErrNodeAggregateIsTethered is returned when a tethered aggregate is changed on its own.
	ErrNodeAggregateIsTethered = errors.New("node aggregate is tethered")
	// ErrNodeAggregateIsDescendant is returned when moving a node below itself.
	ErrNodeAggregateIsDescendant = errors.New("node aggregate is descendant")
	// ErrNodeAggregateIsNoSibling is returned when a sibling has another parent.
	ErrNodeAggregateIsNoSibling = errors.New("node aggregate is no sibling")
	// ErrNodeAggregateIsNoChild is returned when a sibling is not a child of the new parent.
	ErrNodeAggregateIsNoChild = errors.New("node aggregate is no child")
	// ErrNodeNameIsAlreadyCovered is returned when a sibling already carries the name.
	ErrNodeNameIsAlreadyCovered = errors.New("node name is already covered")
	// ErrNodeNameIsAlreadyOccupied is returned when the name is a tethered slot of the parent type.
	ErrNodeNameIsAlreadyOccupied = errors.New("node name is already occupied")
)

// ===========================================================================
// Constraint Errors
// ===========================================================================

// ErrNodeConstraintViolation matches every ConstraintViolationError.
var ErrNodeConstraintViolation = errors.New("node constraint violation")

// ConstraintViolationError reports a node type that is not allowed at a
// position. Parent is the type whose constraints were applied; Slot is set
// when the constraints of a tethered slot of Parent were applied.
type ConstraintViolationError struct {
	NodeType nodetype.Name
	Parent   nodetype.Name
	Slot     string
	Reason   string
}

func (e *ConstraintViolationError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("node type %q: %s", e.NodeType, e.Reason)
	case e.Slot != "":
		return fmt.Sprintf("node type %q is not allowed below tethered node %q of %q", e.NodeType, e.Slot, e.Parent)
	default:
		return fmt.Sprintf("node type %q is not allowed below %q", e.NodeType, e.Parent)
	}
}

// Is matches ErrNodeConstraintViolation.
func (e *ConstraintViolationError) Is(target error) bool {
	return target == ErrNodeConstraintViolation
}
