package handler

import (
	"fmt"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/event"
	"github.com/zjrosen/contentgraph/internal/graph"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/nodetype"
)

func (s *scope) createRootNodeAggregate(c *command.CreateRootNodeAggregateWithNodeCommand) ([]event.Event, error) {
	t, err := s.requireNodeType(c.NodeTypeName)
	if err != nil {
		return nil, err
	}
	if err := requireNotAbstract(t); err != nil {
		return nil, err
	}
	if err := requireOfTypeRoot(t); err != nil {
		return nil, err
	}
	if existing, ok := s.graph.FindRootNodeAggregateByType(t.Name()); ok {
		return nil, fmt.Errorf("%w: %s by %s", ErrRootNodeAggregateTypeIsAlreadyOccupied, t.Name(), existing.ID)
	}
	if err := s.requireAggregateToNotExist(c.NodeAggregateID); err != nil {
		return nil, err
	}
	if err := s.requireTetheredDescendantNodeTypes(t); err != nil {
		return nil, err
	}
	ids, err := s.completeTetheredDescendantIDs(c, t, c.NodeAggregateID)
	if err != nil {
		return nil, err
	}

	events := []event.Event{&event.RootNodeAggregateWithNodeWasCreated{
		NodeAggregateID:             c.NodeAggregateID,
		NodeTypeName:                t.Name(),
		CoveredDimensionSpacePoints: s.dims.Points(),
		NodeAggregateClassification: model.ClassificationRoot,
	}}
	for _, root := range s.dims.RootGeneralizations().Points() {
		covered := s.dims.SpecializationSet(root, true, dimensionspace.NewPointSet())
		tethered, err := s.tetheredChildEvents(t, c.NodeAggregateID, "", dimensionspace.OriginOf(root), covered, ids)
		if err != nil {
			return nil, err
		}
		events = append(events, tethered...)
	}
	return events, nil
}

func (s *scope) createNodeAggregate(c *command.CreateNodeAggregateWithNodeCommand) ([]event.Event, error) {
	origin := c.OriginDimensionSpacePoint.ToPoint()
	if err := s.requirePoint(origin); err != nil {
		return nil, err
	}
	t, err := s.requireNodeType(c.NodeTypeName)
	if err != nil {
		return nil, err
	}
	if err := requireNotAbstract(t); err != nil {
		return nil, err
	}
	if err := requireNotOfTypeRoot(t); err != nil {
		return nil, err
	}
	if err := s.requireTetheredDescendantNodeTypes(t); err != nil {
		return nil, err
	}
	if err := requireProperties(t, c.InitialPropertyValues); err != nil {
		return nil, err
	}
	parent, err := s.requireParentAggregate(c.ParentNodeAggregateID)
	if err != nil {
		return nil, err
	}
	if err := s.requireConstraintsImposedByAncestors(t, parent); err != nil {
		return nil, err
	}
	if err := s.requireAggregateToNotExist(c.NodeAggregateID); err != nil {
		return nil, err
	}
	if c.SucceedingSiblingNodeAggregateID != "" {
		if _, err := s.requireAggregate(c.SucceedingSiblingNodeAggregateID); err != nil {
			return nil, err
		}
	}
	if err := requireCovers(parent, origin); err != nil {
		return nil, err
	}
	covered := s.dims.SpecializationSet(origin, true, dimensionspace.NewPointSet()).
		Intersection(parent.CoveredDimensionSpacePoints())
	if c.NodeName != "" {
		if err := s.requireNodeNameNotTetheredSlot(parent.NodeTypeName, c.NodeName); err != nil {
			return nil, err
		}
		if err := s.requireNodeNameUncovered(c.NodeName, parent.ID, covered, ""); err != nil {
			return nil, err
		}
	}

	ids, err := s.completeTetheredDescendantIDs(c, t, c.NodeAggregateID)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := s.requireAggregateToNotExist(id); err != nil {
			return nil, err
		}
	}

	siblings := siblingsWithoutSucceeding(covered)
	if c.SucceedingSiblingNodeAggregateID != "" {
		siblings = s.siblingsForCreation(c.SucceedingSiblingNodeAggregateID, origin, covered)
	}
	events := []event.Event{&event.NodeAggregateWithNodeWasCreated{
		NodeAggregateID:               c.NodeAggregateID,
		NodeTypeName:                  t.Name(),
		OriginDimensionSpacePoint:     c.OriginDimensionSpacePoint,
		SucceedingSiblingsForCoverage: siblings,
		ParentNodeAggregateID:         parent.ID,
		NodeName:                      c.NodeName,
		InitialPropertyValues:         defaultProperties(t).Merge(c.InitialPropertyValues),
		NodeAggregateClassification:   model.ClassificationRegular,
	}}
	tethered, err := s.tetheredChildEvents(t, c.NodeAggregateID, "", c.OriginDimensionSpacePoint, covered, ids)
	if err != nil {
		return nil, err
	}
	return append(events, tethered...), nil
}

// completeTetheredDescendantIDs assigns an id to every tethered descendant
// path of t below id and writes the result back into cmd. Ids already on the
// command win; missing ones are derived from id and the path.
func (s *scope) completeTetheredDescendantIDs(cmd command.TetheredDescendantsCompleter, t *nodetype.NodeType, id model.NodeAggregateID) (model.NodeAggregateIDsByNodePaths, error) {
	given := cmd.TetheredDescendantIDs()
	out := make(model.NodeAggregateIDsByNodePaths)
	var walk func(t *nodetype.NodeType, path model.NodePath) error
	walk = func(t *nodetype.NodeType, path model.NodePath) error {
		for _, def := range t.TetheredNodes() {
			childPath := path.Append(model.NodeName(def.Name))
			if given[childPath] != "" {
				out[childPath] = given[childPath]
			} else {
				out[childPath] = model.TetheredNodeAggregateID(id, childPath)
			}
			child, err := s.requireNodeType(def.Type)
			if err != nil {
				return err
			}
			if err := walk(child, childPath); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(t, ""); err != nil {
		return nil, err
	}
	if len(out) > 0 {
		cmd.SetTetheredDescendantIDs(out)
	}
	return out, nil
}

// tetheredChildEvents creates the tethered descendants of a node of type t,
// depth first in declaration order.
func (s *scope) tetheredChildEvents(
	t *nodetype.NodeType,
	parent model.NodeAggregateID,
	path model.NodePath,
	origin dimensionspace.OriginPoint,
	covered dimensionspace.PointSet,
	ids model.NodeAggregateIDsByNodePaths,
) ([]event.Event, error) {
	var events []event.Event
	for _, def := range t.TetheredNodes() {
		tethered, err := s.tetheredNodeEvents(def, parent, path, origin, covered, ids)
		if err != nil {
			return nil, err
		}
		events = append(events, tethered...)
	}
	return events, nil
}

// tetheredNodeEvents creates the tethered node declared by def below parent
// and its own tethered descendants.
func (s *scope) tetheredNodeEvents(
	def nodetype.ChildNodeDefinition,
	parent model.NodeAggregateID,
	path model.NodePath,
	origin dimensionspace.OriginPoint,
	covered dimensionspace.PointSet,
	ids model.NodeAggregateIDsByNodePaths,
) ([]event.Event, error) {
	childType, err := s.requireNodeType(def.Type)
	if err != nil {
		return nil, err
	}
	childPath := path.Append(model.NodeName(def.Name))
	id := ids[childPath]
	if id == "" {
		id = model.TetheredNodeAggregateID(parent, model.NodePath(def.Name))
	}
	events := []event.Event{&event.NodeAggregateWithNodeWasCreated{
		NodeAggregateID:               id,
		NodeTypeName:                  childType.Name(),
		OriginDimensionSpacePoint:     origin,
		SucceedingSiblingsForCoverage: siblingsWithoutSucceeding(covered),
		ParentNodeAggregateID:         parent,
		NodeName:                      model.NodeName(def.Name),
		InitialPropertyValues:         defaultProperties(childType),
		NodeAggregateClassification:   model.ClassificationTethered,
	}}
	descendants, err := s.tetheredChildEvents(childType, id, childPath, origin, covered, ids)
	if err != nil {
		return nil, err
	}
	return append(events, descendants...), nil
}

func defaultProperties(t *nodetype.NodeType) model.PropertyValues {
	defaults := t.DefaultValuesForProperties()
	if len(defaults) == 0 {
		return model.PropertyValues{}
	}
	return model.PropertyValues(defaults)
}

// ===========================================================================
// Interdimensional Siblings
// ===========================================================================

func siblingsWithoutSucceeding(points dimensionspace.PointSet) event.InterdimensionalSiblings {
	out := make(event.InterdimensionalSiblings, 0, points.Len())
	for _, p := range points.Points() {
		out = append(out, event.InterdimensionalSibling{DimensionSpacePoint: p})
	}
	return out
}

// siblingsForCreation positions a new node before sibling wherever sibling
// is visible, else before the nearest of the siblings succeeding it at the
// origin, else last.
func (s *scope) siblingsForCreation(sibling model.NodeAggregateID, origin dimensionspace.Point, covered dimensionspace.PointSet) event.InterdimensionalSiblings {
	alternatives := nodeIDs(s.graph.Subgraph(origin, unrestricted).FindSucceedingSiblingNodes(sibling))
	candidates := append([]model.NodeAggregateID{sibling}, alternatives...)

	out := make(event.InterdimensionalSiblings, 0, covered.Len())
	for _, p := range covered.Points() {
		sub := s.graph.Subgraph(p, unrestricted)
		entry := event.InterdimensionalSibling{DimensionSpacePoint: p}
		for _, candidate := range candidates {
			if _, ok := sub.FindNodeByID(candidate); ok {
				entry.SucceedingSibling = candidate
				break
			}
		}
		out = append(out, entry)
	}
	return out
}

var unrestricted = graph.VisibilityConstraints{IncludeDisabled: true}

func nodeIDs(nodes []*graph.Node) []model.NodeAggregateID {
	out := make([]model.NodeAggregateID, len(nodes))
	for i, n := range nodes {
		out[i] = n.AggregateID
	}
	return out
}
