package handler

import (
	"fmt"

	"github.com/zjrosen/contentgraph/internal/command"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/event"
	"github.com/zjrosen/contentgraph/internal/graph"
)

func (s *scope) createNodeVariant(c *command.CreateNodeVariantCommand) ([]event.Event, error) {
	source, target := c.SourceOrigin.ToPoint(), c.TargetOrigin.ToPoint()
	if err := s.requirePoint(source); err != nil {
		return nil, err
	}
	if err := s.requirePoint(target); err != nil {
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
	if err := requireOccupies(a, source); err != nil {
		return nil, err
	}
	if err := requireNotOccupies(a, target); err != nil {
		return nil, err
	}
	parent, ok := s.graph.FindParentNodeAggregateAt(a.ID, source)
	if !ok {
		return nil, fmt.Errorf("%w: of %s at %s", ErrParentNodeAggregateNotFound, a.ID, source)
	}
	if err := requireCovers(parent, target); err != nil {
		return nil, err
	}

	visibility := s.variantVisibility(a, target).Intersection(parent.CoveredDimensionSpacePoints())
	return s.variantEvents(s.dims.VariantType(target, source), a, c.SourceOrigin, c.TargetOrigin, visibility), nil
}

// variantVisibility returns the points a new variant at target covers: the
// specializations of target that no more specific variant of a occupies.
func (s *scope) variantVisibility(a *graph.NodeAggregate, target dimensionspace.Point) dimensionspace.PointSet {
	excluded := dimensionspace.NewPointSet()
	occupied := a.OccupiedDimensionSpacePoints()
	for _, p := range s.dims.IndexedSpecializations(target).Points() {
		if occupied.Contains(p) {
			excluded = excluded.Union(s.dims.SpecializationSet(p, true, dimensionspace.NewPointSet()))
		}
	}
	return s.dims.SpecializationSet(target, true, excluded)
}

// variantEvents varies a and its tethered descendants, all with the same
// visibility.
func (s *scope) variantEvents(
	variant dimensionspace.VariantType,
	a *graph.NodeAggregate,
	source, target dimensionspace.OriginPoint,
	visibility dimensionspace.PointSet,
) []event.Event {
	siblings := s.siblingsForVariant(a, source, visibility)
	var e event.Event
	switch variant {
	case dimensionspace.VariantSpecialization:
		e = &event.NodeSpecializationVariantWasCreated{
			NodeAggregateID:        a.ID,
			SourceOrigin:           source,
			SpecializationOrigin:   target,
			SpecializationSiblings: siblings,
		}
	case dimensionspace.VariantGeneralization:
		e = &event.NodeGeneralizationVariantWasCreated{
			NodeAggregateID:           a.ID,
			SourceOrigin:              source,
			GeneralizationOrigin:      target,
			VariantSucceedingSiblings: siblings,
		}
	default:
		e = &event.NodePeerVariantWasCreated{
			NodeAggregateID:        a.ID,
			SourceOrigin:           source,
			PeerOrigin:             target,
			PeerSucceedingSiblings: siblings,
		}
	}

	events := []event.Event{e}
	for _, child := range s.graph.FindTetheredChildNodeAggregates(a.ID) {
		if !child.Occupies(source.ToPoint()) || child.Occupies(target.ToPoint()) {
			continue
		}
		events = append(events, s.variantEvents(variant, child, source, target, visibility)...)
	}
	return events
}

// siblingsForVariant places the variant before the first sibling following
// a at the source origin that is visible at each point, else last.
func (s *scope) siblingsForVariant(a *graph.NodeAggregate, source dimensionspace.OriginPoint, visibility dimensionspace.PointSet) event.InterdimensionalSiblings {
	candidates := nodeIDs(s.graph.Subgraph(source.ToPoint(), unrestricted).FindSucceedingSiblingNodes(a.ID))
	out := make(event.InterdimensionalSiblings, 0, visibility.Len())
	for _, p := range visibility.Points() {
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
