package handler

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/graph"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/nodetype"
)

// ===========================================================================
// Dimension Space
// ===========================================================================

func (s *scope) requirePoint(p dimensionspace.Point) error {
	if !s.dims.Has(p) {
		return fmt.Errorf("%w: %s", ErrDimensionSpacePointNotFound, p)
	}
	return nil
}

// ===========================================================================
// Node Types
// ===========================================================================

func (s *scope) requireNodeType(name nodetype.Name) (*nodetype.NodeType, error) {
	t, err := s.reg.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeTypeNotFound, name)
	}
	return t, nil
}

func requireNotAbstract(t *nodetype.NodeType) error {
	if t.IsAbstract() {
		return fmt.Errorf("%w: %s", ErrNodeTypeIsAbstract, t.Name())
	}
	return nil
}

func requireNotOfTypeRoot(t *nodetype.NodeType) error {
	if t.IsRoot() {
		return fmt.Errorf("%w: %s", ErrNodeTypeIsOfTypeRoot, t.Name())
	}
	return nil
}

func requireOfTypeRoot(t *nodetype.NodeType) error {
	if !t.IsRoot() {
		return fmt.Errorf("%w: %s", ErrNodeTypeIsNotOfTypeRoot, t.Name())
	}
	return nil
}

// requireTetheredDescendantNodeTypes checks that every tethered descendant
// type of t exists and is no root type.
func (s *scope) requireTetheredDescendantNodeTypes(t *nodetype.NodeType) error {
	return s.walkTetheredNodeTypes(t, map[nodetype.Name]bool{t.Name(): true})
}

func (s *scope) walkTetheredNodeTypes(t *nodetype.NodeType, path map[nodetype.Name]bool) error {
	for _, def := range t.TetheredNodes() {
		child, err := s.requireNodeType(def.Type)
		if err != nil {
			return err
		}
		if err := requireNotOfTypeRoot(child); err != nil {
			return err
		}
		if path[child.Name()] {
			return &ConstraintViolationError{NodeType: child.Name(), Parent: t.Name(), Slot: def.Name, Reason: "tethered node types must not recurse"}
		}
		path[child.Name()] = true
		if err := s.walkTetheredNodeTypes(child, path); err != nil {
			return err
		}
		delete(path, child.Name())
	}
	return nil
}

// requireProperties checks that t declares every property and that each
// value matches the declared type.
func requireProperties(t *nodetype.NodeType, values model.PropertyValues) error {
	for name, v := range values {
		def, ok := t.Property(name)
		if !ok {
			return fmt.Errorf("%w: %s on %s", ErrPropertyNotDeclared, name, t.Name())
		}
		if !matchesPropertyType(def.Type, v) {
			return fmt.Errorf("%w: %s of %s expects %s, got %T", ErrPropertyTypeMismatch, name, t.Name(), def.Type, v)
		}
	}
	return nil
}

func requireReferenceProperties(t *nodetype.NodeType, ref nodetype.ReferenceDefinition, values model.PropertyValues) error {
	for name, v := range values {
		var def *nodetype.PropertyDefinition
		for i := range ref.Properties {
			if ref.Properties[i].Name == name {
				def = &ref.Properties[i]
				break
			}
		}
		if def == nil {
			return fmt.Errorf("%w: %s on reference %s of %s", ErrPropertyNotDeclared, name, ref.Name, t.Name())
		}
		if !matchesPropertyType(def.Type, v) {
			return fmt.Errorf("%w: %s on reference %s expects %s, got %T", ErrPropertyTypeMismatch, name, ref.Name, def.Type, v)
		}
	}
	return nil
}

// matchesPropertyType reports whether v can be stored in a property of typ.
// Values of unknown types are accepted; nil is accepted for every type.
func matchesPropertyType(typ string, v any) bool {
	if v == nil {
		return true
	}
	switch typ {
	case "string":
		_, ok := v.(string)
		return ok
	case "boolean", "bool":
		_, ok := v.(bool)
		return ok
	case "integer", "int":
		switch n := v.(type) {
		case int, int32, int64, uint, uint32, uint64:
			return true
		case float64:
			return n == math.Trunc(n)
		}
		return false
	case "float", "double":
		switch v.(type) {
		case int, int32, int64, uint, uint32, uint64, float32, float64:
			return true
		}
		return false
	case "DateTime", "DateTimeImmutable", "DateTimeInterface":
		switch d := v.(type) {
		case time.Time:
			return true
		case string:
			_, err := time.Parse(time.RFC3339, d)
			return err == nil
		}
		return false
	}
	if typ == "array" || strings.HasPrefix(typ, "array<") {
		switch v.(type) {
		case []any, []string, map[string]any:
			return true
		}
		return false
	}
	return true
}

// ===========================================================================
// Node Aggregates
// ===========================================================================

func (s *scope) requireAggregate(id model.NodeAggregateID) (*graph.NodeAggregate, error) {
	a, ok := s.graph.FindNodeAggregateByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeAggregateCurrentlyDoesNotExist, id)
	}
	return a, nil
}

func (s *scope) requireParentAggregate(id model.NodeAggregateID) (*graph.NodeAggregate, error) {
	a, ok := s.graph.FindNodeAggregateByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrParentNodeAggregateNotFound, id)
	}
	return a, nil
}

func (s *scope) requireAggregateToNotExist(id model.NodeAggregateID) error {
	if _, ok := s.graph.FindNodeAggregateByID(id); ok {
		return fmt.Errorf("%w: %s", ErrNodeAggregateCurrentlyExists, id)
	}
	return nil
}

func requireCovers(a *graph.NodeAggregate, p dimensionspace.Point) error {
	if !a.Covers(p) {
		return fmt.Errorf("%w: %s does not cover %s", ErrNodeAggregateDoesCurrentlyNotCoverDimensionSpacePoint, a.ID, p)
	}
	return nil
}

func requireCoversAll(a *graph.NodeAggregate, points dimensionspace.PointSet) error {
	for _, p := range points.Points() {
		if err := requireCovers(a, p); err != nil {
			return err
		}
	}
	return nil
}

func requireOccupies(a *graph.NodeAggregate, origin dimensionspace.Point) error {
	if !a.Occupies(origin) {
		return fmt.Errorf("%w: %s at %s", ErrDimensionSpacePointIsNotYetOccupied, a.ID, origin)
	}
	return nil
}

func requireNotOccupies(a *graph.NodeAggregate, origin dimensionspace.Point) error {
	if a.Occupies(origin) {
		return fmt.Errorf("%w: %s at %s", ErrDimensionSpacePointIsAlreadyOccupied, a.ID, origin)
	}
	return nil
}

func requireNotRoot(a *graph.NodeAggregate) error {
	if a.IsRoot() {
		return fmt.Errorf("%w: %s", ErrNodeAggregateIsRoot, a.ID)
	}
	return nil
}

func requireUntethered(a *graph.NodeAggregate) error {
	if a.IsTethered() {
		return fmt.Errorf("%w: %s", ErrNodeAggregateIsTethered, a.ID)
	}
	return nil
}

// requireNotDescendant rejects placing a below candidate when candidate is
// a itself or one of its descendants.
func (s *scope) requireNotDescendant(candidate, a model.NodeAggregateID) error {
	if candidate == a || s.graph.IsDescendantOf(candidate, a) {
		return fmt.Errorf("%w: %s is below %s", ErrNodeAggregateIsDescendant, candidate, a)
	}
	return nil
}

func (s *scope) requireSibling(id, sibling model.NodeAggregateID, p dimensionspace.Point) error {
	parent, ok := s.graph.ParentIDAt(id, p)
	siblingParent, siblingOK := s.graph.ParentIDAt(sibling, p)
	if !ok || !siblingOK || parent != siblingParent {
		return fmt.Errorf("%w: %s and %s at %s", ErrNodeAggregateIsNoSibling, sibling, id, p)
	}
	return nil
}

func (s *scope) requireChild(child, parent model.NodeAggregateID, p dimensionspace.Point) error {
	actual, ok := s.graph.ParentIDAt(child, p)
	if !ok || actual != parent {
		return fmt.Errorf("%w: %s of %s at %s", ErrNodeAggregateIsNoChild, child, parent, p)
	}
	return nil
}

// requireNodeNameUncovered rejects name when a child of parent other than
// except carries it at any of the points.
func (s *scope) requireNodeNameUncovered(name model.NodeName, parent model.NodeAggregateID, points dimensionspace.PointSet, except model.NodeAggregateID) error {
	if name == "" {
		return nil
	}
	for _, p := range points.Points() {
		if s.graph.ChildNameTakenAt(parent, name, p, except) {
			return fmt.Errorf("%w: %q below %s at %s", ErrNodeNameIsAlreadyCovered, name, parent, p)
		}
	}
	return nil
}

// requireNodeNameNotTetheredSlot rejects name when the parent type declares
// a tethered child of that name.
func (s *scope) requireNodeNameNotTetheredSlot(parentType nodetype.Name, name model.NodeName) error {
	if name == "" {
		return nil
	}
	t, err := s.requireNodeType(parentType)
	if err != nil {
		return err
	}
	if t.HasTetheredNode(string(name)) {
		return fmt.Errorf("%w: %q is a tethered node of %s", ErrNodeNameIsAlreadyOccupied, name, parentType)
	}
	return nil
}

// ===========================================================================
// Constraints
// ===========================================================================

// requireConstraintsImposedByAncestors checks that t may be placed below
// each parent. Regular parents apply their own constraints; tethered parents
// apply the constraints of the slot they fill in their own parent.
func (s *scope) requireConstraintsImposedByAncestors(t *nodetype.NodeType, parents ...*graph.NodeAggregate) error {
	if !s.ancestorChecks {
		return nil
	}
	for _, parent := range parents {
		parentType, err := s.requireNodeType(parent.NodeTypeName)
		if err != nil {
			return err
		}
		if !parent.IsTethered() {
			if !parentType.AllowsChildNodeType(t) {
				return &ConstraintViolationError{NodeType: t.Name(), Parent: parentType.Name()}
			}
			continue
		}
		for _, grandparent := range s.graph.FindParentNodeAggregates(parent.ID) {
			if err := s.requireConstraintsImposedByGrandparent(t, grandparent.NodeTypeName, parent.NodeName); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *scope) requireConstraintsImposedByGrandparent(t *nodetype.NodeType, grandparentType nodetype.Name, slot model.NodeName) error {
	gp, err := s.requireNodeType(grandparentType)
	if err != nil {
		return err
	}
	if !gp.HasTetheredNode(string(slot)) {
		return nil
	}
	if !s.reg.IsNodeTypeAllowedAsChildToTetheredNode(gp.Name(), string(slot), t.Name()) {
		return &ConstraintViolationError{NodeType: t.Name(), Parent: gp.Name(), Slot: string(slot)}
	}
	return nil
}

// ===========================================================================
// Strategies
// ===========================================================================

// affectedByVariantSelection resolves a selection strategy to the covered
// points of a it affects.
func (s *scope) affectedByVariantSelection(a *graph.NodeAggregate, p dimensionspace.Point, strategy command.NodeVariantSelectionStrategy) dimensionspace.PointSet {
	switch strategy {
	case command.AllVariants:
		return a.CoveredDimensionSpacePoints()
	case command.AllSpecializations:
		return a.CoveredDimensionSpacePoints().Intersection(s.dims.SpecializationSet(p, true, dimensionspace.NewPointSet()))
	default:
		return dimensionspace.NewPointSet(p)
	}
}

// affectedByRelationDistribution resolves a move strategy to the covered
// points of a whose hierarchy changes.
func (s *scope) affectedByRelationDistribution(a *graph.NodeAggregate, p dimensionspace.Point, strategy command.RelationDistributionStrategy) dimensionspace.PointSet {
	switch strategy {
	case command.GatherAll:
		return a.CoveredDimensionSpacePoints()
	case command.GatherSpecializations:
		return a.CoveredDimensionSpacePoints().Intersection(s.dims.SpecializationSet(p, true, dimensionspace.NewPointSet()))
	default:
		return dimensionspace.NewPointSet(p)
	}
}
