package handler

import (
	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/event"
	"github.com/zjrosen/contentgraph/internal/model"
)

func (s *scope) moveNodeAggregate(c *command.MoveNodeAggregateCommand) ([]event.Event, error) {
	p := c.DimensionSpacePoint
	if err := s.requirePoint(p); err != nil {
		return nil, err
	}
	a, err := s.requireAggregate(c.NodeAggregateID)
	if err != nil {
		return nil, err
	}
	if err := requireNotRoot(a); err != nil {
		return nil, err
	}
	if err := requireUntethered(a); err != nil {
		return nil, err
	}
	if err := requireCovers(a, p); err != nil {
		return nil, err
	}
	affected := s.affectedByRelationDistribution(a, p, c.RelationDistributionStrategy)

	if c.NewParentNodeAggregateID != "" {
		parent, err := s.requireParentAggregate(c.NewParentNodeAggregateID)
		if err != nil {
			return nil, err
		}
		t, err := s.requireNodeType(a.NodeTypeName)
		if err != nil {
			return nil, err
		}
		if err := s.requireConstraintsImposedByAncestors(t, parent); err != nil {
			return nil, err
		}
		if err := s.requireNodeNameUncovered(a.NodeName, parent.ID, affected, a.ID); err != nil {
			return nil, err
		}
		if err := s.requireNodeNameNotTetheredSlot(parent.NodeTypeName, a.NodeName); err != nil {
			return nil, err
		}
		if err := requireCoversAll(parent, affected); err != nil {
			return nil, err
		}
		if err := s.requireNotDescendant(parent.ID, a.ID); err != nil {
			return nil, err
		}
	}

	for _, sibling := range []model.NodeAggregateID{c.NewPrecedingSiblingNodeAggregateID, c.NewSucceedingSiblingNodeAggregateID} {
		if sibling == "" {
			continue
		}
		if _, err := s.requireAggregate(sibling); err != nil {
			return nil, err
		}
		if c.NewParentNodeAggregateID != "" {
			err = s.requireChild(sibling, c.NewParentNodeAggregateID, p)
		} else {
			err = s.requireSibling(a.ID, sibling, p)
		}
		if err != nil {
			return nil, err
		}
	}

	completeSet := c.NewParentNodeAggregateID != "" ||
		(c.NewSucceedingSiblingNodeAggregateID == "" && c.NewPrecedingSiblingNodeAggregateID == "")
	return []event.Event{&event.NodeAggregateWasMoved{
		NodeAggregateID:               a.ID,
		NewParentNodeAggregateID:      c.NewParentNodeAggregateID,
		SucceedingSiblingsForCoverage: s.siblingsForMove(c, affected, completeSet),
	}}, nil
}

// siblingsForMove finds the position of the moved node at each affected
// point. The requested siblings are tried first, then the siblings following
// (or preceding) them at the selected point. Points without any usable
// sibling are appended last when completeSet is set and left alone otherwise.
func (s *scope) siblingsForMove(c *command.MoveNodeAggregateCommand, affected dimensionspace.PointSet, completeSet bool) event.InterdimensionalSiblings {
	id := c.NodeAggregateID
	selected := s.graph.Subgraph(c.DimensionSpacePoint, unrestricted)
	var alternativeSucceeding, alternativePreceding []model.NodeAggregateID
	if c.NewSucceedingSiblingNodeAggregateID != "" {
		alternativeSucceeding = nodeIDs(selected.FindSucceedingSiblingNodes(c.NewSucceedingSiblingNodeAggregateID))
	}
	if c.NewPrecedingSiblingNodeAggregateID != "" {
		alternativePreceding = nodeIDs(selected.FindPrecedingSiblingNodes(c.NewPrecedingSiblingNodeAggregateID))
	}

	out := make(event.InterdimensionalSiblings, 0, affected.Len())
	for _, p := range affected.Points() {
		variant := s.graph.Subgraph(p, unrestricted)
		parent := c.NewParentNodeAggregateID
		if parent == "" {
			if n, ok := variant.FindParentNode(id); ok {
				parent = n.AggregateID
			}
		}
		isChild := func(candidate model.NodeAggregateID) bool {
			if candidate == id || parent == "" {
				return false
			}
			if _, ok := variant.FindNodeByID(candidate); !ok {
				return false
			}
			n, ok := variant.FindParentNode(candidate)
			return ok && n.AggregateID == parent
		}

		if c.NewSucceedingSiblingNodeAggregateID != "" {
			if sibling, ok := firstMatch(append([]model.NodeAggregateID{c.NewSucceedingSiblingNodeAggregateID}, alternativeSucceeding...), isChild); ok {
				out = append(out, event.InterdimensionalSibling{DimensionSpacePoint: p, SucceedingSibling: sibling})
				continue
			}
		}
		if c.NewPrecedingSiblingNodeAggregateID != "" {
			if preceding, ok := firstMatch(append([]model.NodeAggregateID{c.NewPrecedingSiblingNodeAggregateID}, alternativePreceding...), isChild); ok {
				entry := event.InterdimensionalSibling{DimensionSpacePoint: p}
				for _, next := range nodeIDs(variant.FindSucceedingSiblingNodes(preceding)) {
					if next != id {
						entry.SucceedingSibling = next
						break
					}
				}
				out = append(out, entry)
				continue
			}
		}
		if completeSet {
			out = append(out, event.InterdimensionalSibling{DimensionSpacePoint: p})
		}
	}
	return out
}

func firstMatch(ids []model.NodeAggregateID, keep func(model.NodeAggregateID) bool) (model.NodeAggregateID, bool) {
	for _, id := range ids {
		if keep(id) {
			return id, true
		}
	}
	return "", false
}
