package handler

import (
	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/event"
	"github.com/zjrosen/contentgraph/internal/graph"
	"github.com/zjrosen/contentgraph/internal/model"
)

func (s *scope) disableNodeAggregate(c *command.DisableNodeAggregateCommand) ([]event.Event, error) {
	a, affected, err := s.selectVariants(c.NodeAggregateID, c.CoveredDimensionSpacePoint, c.NodeVariantSelectionStrategy)
	if err != nil {
		return nil, err
	}
	affected = affected.Difference(a.DisabledDimensionSpacePoints())
	if affected.IsEmpty() {
		return nil, nil
	}
	return []event.Event{&event.NodeAggregateWasDisabled{
		NodeAggregateID:              a.ID,
		AffectedDimensionSpacePoints: affected,
	}}, nil
}

func (s *scope) enableNodeAggregate(c *command.EnableNodeAggregateCommand) ([]event.Event, error) {
	a, affected, err := s.selectVariants(c.NodeAggregateID, c.CoveredDimensionSpacePoint, c.NodeVariantSelectionStrategy)
	if err != nil {
		return nil, err
	}
	affected = affected.Intersection(a.DisabledDimensionSpacePoints())
	if affected.IsEmpty() {
		return nil, nil
	}
	return []event.Event{&event.NodeAggregateWasEnabled{
		NodeAggregateID:              a.ID,
		AffectedDimensionSpacePoints: affected,
	}}, nil
}

func (s *scope) removeNodeAggregate(c *command.RemoveNodeAggregateCommand) ([]event.Event, error) {
	a, affected, err := s.selectVariants(c.NodeAggregateID, c.CoveredDimensionSpacePoint, c.NodeVariantSelectionStrategy)
	if err != nil {
		return nil, err
	}
	if err := requireUntethered(a); err != nil {
		return nil, err
	}

	var occupied []dimensionspace.Point
	for _, origin := range a.OccupiedDimensionSpacePoints().Points() {
		if a.CoverageByOccupant(origin).Difference(affected).IsEmpty() {
			occupied = append(occupied, origin)
		}
	}
	return []event.Event{&event.NodeAggregateWasRemoved{
		NodeAggregateID:                      a.ID,
		AffectedOccupiedDimensionSpacePoints: dimensionspace.NewPointSet(occupied...),
		AffectedCoveredDimensionSpacePoints:  affected,
	}}, nil
}

// selectVariants loads an aggregate covering p and resolves strategy to the
// points a visibility change affects.
func (s *scope) selectVariants(id model.NodeAggregateID, p dimensionspace.Point, strategy command.NodeVariantSelectionStrategy) (*graph.NodeAggregate, dimensionspace.PointSet, error) {
	if err := s.requirePoint(p); err != nil {
		return nil, dimensionspace.PointSet{}, err
	}
	a, err := s.requireAggregate(id)
	if err != nil {
		return nil, dimensionspace.PointSet{}, err
	}
	if err := requireCovers(a, p); err != nil {
		return nil, dimensionspace.PointSet{}, err
	}
	return a, s.affectedByVariantSelection(a, p, strategy), nil
}
