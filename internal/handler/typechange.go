package handler

import (
	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/event"
	"github.com/zjrosen/contentgraph/internal/graph"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/nodetype"
)

func (s *scope) changeNodeAggregateType(c *command.ChangeNodeAggregateTypeCommand) ([]event.Event, error) {
	newType, err := s.requireNodeType(c.NewNodeTypeName)
	if err != nil {
		return nil, err
	}
	if err := requireNotAbstract(newType); err != nil {
		return nil, err
	}
	a, err := s.requireAggregate(c.NodeAggregateID)
	if err != nil {
		return nil, err
	}
	if err := requireUntethered(a); err != nil {
		return nil, err
	}
	if err := requireNotOfTypeRoot(newType); err != nil {
		return nil, err
	}
	if err := s.requireTetheredDescendantNodeTypes(newType); err != nil {
		return nil, err
	}
	if err := s.requireConstraintsImposedByAncestors(newType, s.graph.FindParentNodeAggregates(a.ID)...); err != nil {
		return nil, err
	}
	if c.Strategy == command.HappyPath {
		if err := s.requireChildrenAllowedBy(a, newType); err != nil {
			return nil, err
		}
	}

	ids, err := s.completeTetheredDescendantIDs(c, newType, a.ID)
	if err != nil {
		return nil, err
	}

	events := []event.Event{&event.NodeAggregateTypeWasChanged{
		NodeAggregateID: a.ID,
		NewNodeTypeName: newType.Name(),
	}}
	if c.Strategy == command.Delete {
		removals, err := s.removeDisallowedChildren(a, newType)
		if err != nil {
			return nil, err
		}
		events = append(events, removals...)
		events = append(events, s.removeObsoleteTetheredChildren(a, newType)...)
	}

	for _, n := range a.Nodes() {
		origin := n.OriginDimensionSpacePoint
		sub := s.graph.Subgraph(origin.ToPoint(), unrestricted)
		for _, def := range newType.TetheredNodes() {
			if _, ok := sub.FindNodeByPath(a.ID, model.NodePath(def.Name)); ok {
				continue
			}
			created, err := s.tetheredNodeEvents(def, a.ID, "", origin, a.CoverageByOccupant(origin.ToPoint()), ids)
			if err != nil {
				return nil, err
			}
			events = append(events, created...)
		}
	}
	return events, nil
}

// requireChildrenAllowedBy checks that the regular children of a and the
// children of its tethered slots remain valid once a is of type t.
func (s *scope) requireChildrenAllowedBy(a *graph.NodeAggregate, t *nodetype.NodeType) error {
	for _, child := range s.graph.FindChildNodeAggregates(a.ID) {
		childType, err := s.requireNodeType(child.NodeTypeName)
		if err != nil {
			return err
		}
		if !child.IsTethered() {
			if !t.AllowsChildNodeType(childType) {
				return &ConstraintViolationError{NodeType: childType.Name(), Parent: t.Name()}
			}
			continue
		}
		if !t.HasTetheredNode(string(child.NodeName)) {
			continue
		}
		for _, grandchild := range s.graph.FindChildNodeAggregates(child.ID) {
			if grandchild.IsTethered() {
				continue
			}
			grandchildType, err := s.requireNodeType(grandchild.NodeTypeName)
			if err != nil {
				return err
			}
			if !t.AllowsGrandchildNodeType(string(child.NodeName), grandchildType) {
				return &ConstraintViolationError{NodeType: grandchildType.Name(), Parent: t.Name(), Slot: string(child.NodeName)}
			}
		}
	}
	return nil
}

// removeDisallowedChildren removes regular children t does not allow and the
// children of kept tethered slots t does not allow below them. Descendants of
// a removed aggregate go with it and get no event of their own.
func (s *scope) removeDisallowedChildren(a *graph.NodeAggregate, t *nodetype.NodeType) ([]event.Event, error) {
	var events []event.Event
	for _, child := range s.graph.FindChildNodeAggregates(a.ID) {
		childType, err := s.requireNodeType(child.NodeTypeName)
		if err != nil {
			return nil, err
		}
		if !child.IsTethered() {
			if !t.AllowsChildNodeType(childType) {
				events = append(events, s.removeBelow(a.ID, child))
			}
			continue
		}
		// Obsolete slots are removed whole by removeObsoleteTetheredChildren.
		if !t.HasTetheredNode(string(child.NodeName)) {
			continue
		}
		for _, grandchild := range s.graph.FindChildNodeAggregates(child.ID) {
			if grandchild.IsTethered() {
				continue
			}
			grandchildType, err := s.requireNodeType(grandchild.NodeTypeName)
			if err != nil {
				return nil, err
			}
			if !t.AllowsGrandchildNodeType(string(child.NodeName), grandchildType) {
				events = append(events, s.removeBelow(child.ID, grandchild))
			}
		}
	}
	return events, nil
}

func (s *scope) removeObsoleteTetheredChildren(a *graph.NodeAggregate, t *nodetype.NodeType) []event.Event {
	var events []event.Event
	for _, child := range s.graph.FindTetheredChildNodeAggregates(a.ID) {
		if child.NodeName != "" && !t.HasTetheredNode(string(child.NodeName)) {
			events = append(events, s.removeBelow(a.ID, child))
		}
	}
	return events
}

// removeBelow removes child at every point it is placed below parent.
func (s *scope) removeBelow(parent model.NodeAggregateID, child *graph.NodeAggregate) event.Event {
	var points []dimensionspace.Point
	for _, p := range child.CoveredDimensionSpacePoints().Points() {
		if actual, ok := s.graph.ParentIDAt(child.ID, p); ok && actual == parent {
			points = append(points, p)
		}
	}
	set := dimensionspace.NewPointSet(points...)
	return &event.NodeAggregateWasRemoved{
		NodeAggregateID:                      child.ID,
		AffectedOccupiedDimensionSpacePoints: set,
		AffectedCoveredDimensionSpacePoints:  set,
	}
}
