package handler

import (
	"fmt"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/event"
)

func (s *scope) setNodeProperties(c *command.SetNodePropertiesCommand) ([]event.Event, error) {
	origin := c.OriginDimensionSpacePoint.ToPoint()
	if err := s.requirePoint(origin); err != nil {
		return nil, err
	}
	a, err := s.requireAggregate(c.NodeAggregateID)
	if err != nil {
		return nil, err
	}
	if err := requireOccupies(a, origin); err != nil {
		return nil, err
	}
	t, err := s.requireNodeType(a.NodeTypeName)
	if err != nil {
		return nil, err
	}
	if err := requireProperties(t, c.PropertyValues); err != nil {
		return nil, err
	}
	for _, name := range c.PropertiesToUnset {
		if !t.HasProperty(name) {
			return nil, fmt.Errorf("%w: %s on %s", ErrPropertyNotDeclared, name, t.Name())
		}
	}
	return []event.Event{&event.NodePropertiesWereSet{
		NodeAggregateID:           a.ID,
		OriginDimensionSpacePoint: c.OriginDimensionSpacePoint,
		PropertyValues:            c.PropertyValues,
		PropertiesToUnset:         c.PropertiesToUnset,
	}}, nil
}

func (s *scope) setNodeReferences(c *command.SetNodeReferencesCommand) ([]event.Event, error) {
	origin := c.SourceOriginDimensionSpacePoint.ToPoint()
	if err := s.requirePoint(origin); err != nil {
		return nil, err
	}
	a, err := s.requireAggregate(c.SourceNodeAggregateID)
	if err != nil {
		return nil, err
	}
	if err := requireOccupies(a, origin); err != nil {
		return nil, err
	}
	t, err := s.requireNodeType(a.NodeTypeName)
	if err != nil {
		return nil, err
	}
	ref, ok := t.Reference(string(c.ReferenceName))
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrReferenceNotDeclared, c.ReferenceName, t.Name())
	}
	if ref.MaxItems > 0 && len(c.References) > ref.MaxItems {
		return nil, fmt.Errorf("%w: %s of %s allows %d items, got %d", ErrReferenceCannotBeSet, c.ReferenceName, t.Name(), ref.MaxItems, len(c.References))
	}
	for _, r := range c.References {
		target, err := s.requireAggregate(r.Target)
		if err != nil {
			return nil, err
		}
		targetType, err := s.requireNodeType(target.NodeTypeName)
		if err != nil {
			return nil, err
		}
		if !ref.Constraints.Allows(targetType) {
			return nil, &ConstraintViolationError{
				NodeType: targetType.Name(),
				Parent:   t.Name(),
				Reason:   fmt.Sprintf("not allowed as target of reference %q of %q", c.ReferenceName, t.Name()),
			}
		}
		if err := requireReferenceProperties(t, ref, r.Properties); err != nil {
			return nil, err
		}
	}
	return []event.Event{&event.NodeReferencesWereSet{
		NodeAggregateID:                          a.ID,
		AffectedSourceOriginDimensionSpacePoints: dimensionspace.NewPointSet(origin),
		ReferenceName:                            c.ReferenceName,
		References:                               c.References,
	}}, nil
}
