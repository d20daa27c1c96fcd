package graph

import (
	"fmt"

	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/event"
	"github.com/zjrosen/contentgraph/internal/model"
)

// apply folds one record into the graph. Records must arrive in sequence.
// The caller holds the write lock.
func (g *ContentGraph) apply(r contentstream.Record) error {
	if r.SequenceNumber != g.version+1 {
		return fmt.Errorf("%w: record #%d after version %d", ErrOutOfSequence, r.SequenceNumber, g.version)
	}
	e, err := event.Denormalize(r)
	if err != nil {
		return err
	}

	switch e := e.(type) {
	case *event.RootNodeAggregateWithNodeWasCreated:
		err = g.applyRootCreated(e)
	case *event.NodeAggregateWithNodeWasCreated:
		err = g.applyCreated(e)
	case *event.NodeAggregateWasMoved:
		err = g.applyMoved(e)
	case *event.NodeAggregateWasDisabled:
		err = g.withAggregate(e.NodeAggregateID, func(a *NodeAggregate) {
			for _, p := range e.AffectedDimensionSpacePoints.Points() {
				if a.Covers(p) {
					a.disabled[p.Hash()] = p
				}
			}
		})
	case *event.NodeAggregateWasEnabled:
		err = g.withAggregate(e.NodeAggregateID, func(a *NodeAggregate) {
			for _, p := range e.AffectedDimensionSpacePoints.Points() {
				delete(a.disabled, p.Hash())
			}
		})
	case *event.NodeAggregateWasRemoved:
		err = g.applyRemoved(e)
	case *event.NodePropertiesWereSet:
		err = g.withNode(e.NodeAggregateID, e.OriginDimensionSpacePoint.ToPoint(), func(n *Node) {
			n.Properties = n.Properties.Merge(e.PropertyValues).Unset(e.PropertiesToUnset...)
		})
	case *event.NodeReferencesWereSet:
		for _, origin := range e.AffectedSourceOriginDimensionSpacePoints.Points() {
			err = g.withNode(e.NodeAggregateID, origin, func(n *Node) {
				if len(e.References) == 0 {
					delete(n.References, e.ReferenceName)
					return
				}
				n.References[e.ReferenceName] = append([]model.NodeReference(nil), e.References...)
			})
			if err != nil {
				break
			}
		}
	case *event.NodeAggregateTypeWasChanged:
		err = g.withAggregate(e.NodeAggregateID, func(a *NodeAggregate) {
			a.NodeTypeName = e.NewNodeTypeName
			for _, n := range a.nodes {
				n.NodeTypeName = e.NewNodeTypeName
			}
		})
	case *event.NodeSpecializationVariantWasCreated:
		err = g.applyVariant(e.NodeAggregateID, e.SourceOrigin, e.SpecializationOrigin, e.SpecializationSiblings)
	case *event.NodeGeneralizationVariantWasCreated:
		err = g.applyVariant(e.NodeAggregateID, e.SourceOrigin, e.GeneralizationOrigin, e.VariantSucceedingSiblings)
	case *event.NodePeerVariantWasCreated:
		err = g.applyVariant(e.NodeAggregateID, e.SourceOrigin, e.PeerOrigin, e.PeerSucceedingSiblings)
	default:
		err = fmt.Errorf("%w: %s", event.ErrUnknownEventType, e.EventType())
	}
	if err != nil {
		return fmt.Errorf("failed to apply %s #%d: %w", r.Type, r.SequenceNumber, err)
	}
	g.version = r.SequenceNumber
	return nil
}

func (g *ContentGraph) withAggregate(id model.NodeAggregateID, fn func(*NodeAggregate)) error {
	a, ok := g.aggregates[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeAggregateNotFound, id)
	}
	fn(a)
	return nil
}

func (g *ContentGraph) withNode(id model.NodeAggregateID, origin dimensionspace.Point, fn func(*Node)) error {
	return g.withAggregateErr(id, func(a *NodeAggregate) error {
		n, ok := a.nodes[origin.Hash()]
		if !ok {
			return fmt.Errorf("%w: %s at %s", ErrNodeNotFound, id, origin)
		}
		fn(n)
		return nil
	})
}

func (g *ContentGraph) withAggregateErr(id model.NodeAggregateID, fn func(*NodeAggregate) error) error {
	a, ok := g.aggregates[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeAggregateNotFound, id)
	}
	return fn(a)
}

func (g *ContentGraph) applyRootCreated(e *event.RootNodeAggregateWithNodeWasCreated) error {
	if _, ok := g.aggregates[e.NodeAggregateID]; ok {
		return fmt.Errorf("%w: %s", ErrNodeAggregateExists, e.NodeAggregateID)
	}
	a := newAggregate(e.NodeAggregateID, e.NodeTypeName, "", e.NodeAggregateClassification)
	origin := dimensionspace.OriginOf(dimensionspace.EmptyPoint())
	a.nodes[origin.Hash()] = &Node{
		AggregateID:               e.NodeAggregateID,
		NodeTypeName:              e.NodeTypeName,
		Classification:            e.NodeAggregateClassification,
		OriginDimensionSpacePoint: origin,
		Properties:                model.PropertyValues{},
		References:                map[model.ReferenceName][]model.NodeReference{},
	}
	for _, p := range e.CoveredDimensionSpacePoints.Points() {
		a.cover(p, origin.ToPoint())
	}
	g.aggregates[a.ID] = a
	g.roots[a.NodeTypeName] = a.ID
	return nil
}

func (g *ContentGraph) applyCreated(e *event.NodeAggregateWithNodeWasCreated) error {
	if _, ok := g.aggregates[e.ParentNodeAggregateID]; !ok {
		return fmt.Errorf("%w: parent %s", ErrNodeAggregateNotFound, e.ParentNodeAggregateID)
	}
	a, ok := g.aggregates[e.NodeAggregateID]
	if !ok {
		a = newAggregate(e.NodeAggregateID, e.NodeTypeName, e.NodeName, e.NodeAggregateClassification)
		g.aggregates[a.ID] = a
	}
	origin := e.OriginDimensionSpacePoint.ToPoint()
	a.nodes[origin.Hash()] = &Node{
		AggregateID:               e.NodeAggregateID,
		NodeTypeName:              e.NodeTypeName,
		Name:                      e.NodeName,
		Classification:            e.NodeAggregateClassification,
		OriginDimensionSpacePoint: e.OriginDimensionSpacePoint,
		Properties:                model.PropertyValues{}.Merge(e.InitialPropertyValues),
		References:                map[model.ReferenceName][]model.NodeReference{},
	}
	for _, sib := range e.SucceedingSiblingsForCoverage {
		g.at(sib.DimensionSpacePoint).link(e.ParentNodeAggregateID, a.ID, sib.SucceedingSibling)
		a.cover(sib.DimensionSpacePoint, origin)
	}
	return nil
}

func (g *ContentGraph) applyMoved(e *event.NodeAggregateWasMoved) error {
	a, ok := g.aggregates[e.NodeAggregateID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeAggregateNotFound, e.NodeAggregateID)
	}
	if e.NewParentNodeAggregateID != "" {
		if _, ok := g.aggregates[e.NewParentNodeAggregateID]; !ok {
			return fmt.Errorf("%w: parent %s", ErrNodeAggregateNotFound, e.NewParentNodeAggregateID)
		}
	}
	for _, sib := range e.SucceedingSiblingsForCoverage {
		p := sib.DimensionSpacePoint
		if !a.Covers(p) {
			continue
		}
		h := g.at(p)
		parent := e.NewParentNodeAggregateID
		if parent == "" {
			parent, ok = h.parent[a.ID]
			if !ok {
				continue
			}
		}
		h.link(parent, a.ID, sib.SucceedingSibling)
	}
	return nil
}

func (g *ContentGraph) applyRemoved(e *event.NodeAggregateWasRemoved) error {
	if _, ok := g.aggregates[e.NodeAggregateID]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeAggregateNotFound, e.NodeAggregateID)
	}
	touched := make(map[model.NodeAggregateID]bool)
	for _, p := range e.AffectedCoveredDimensionSpacePoints.Points() {
		g.removeAt(e.NodeAggregateID, p, touched)
	}
	for id := range touched {
		a := g.aggregates[id]
		a.pruneNodes()
		if len(a.nodes) == 0 {
			delete(g.aggregates, id)
			if a.IsRoot() && g.roots[a.NodeTypeName] == id {
				delete(g.roots, a.NodeTypeName)
			}
		}
	}
	return nil
}

// removeAt detaches id and its descendants at p.
func (g *ContentGraph) removeAt(id model.NodeAggregateID, p dimensionspace.Point, touched map[model.NodeAggregateID]bool) {
	a, ok := g.aggregates[id]
	if !ok || !a.Covers(p) {
		return
	}
	h := g.at(p)
	for _, child := range append([]model.NodeAggregateID(nil), h.children[id]...) {
		g.removeAt(child, p, touched)
	}
	h.unlink(id)
	a.uncover(p)
	touched[id] = true
}

// applyVariant copies the node at source to target and lets it cover the
// points of siblings. Points the aggregate did not cover before are linked
// below the parent the source node has at its origin.
func (g *ContentGraph) applyVariant(id model.NodeAggregateID, source, target dimensionspace.OriginPoint, siblings event.InterdimensionalSiblings) error {
	a, ok := g.aggregates[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeAggregateNotFound, id)
	}
	src, ok := a.nodes[source.Hash()]
	if !ok {
		return fmt.Errorf("%w: %s at %s", ErrNodeNotFound, id, source)
	}
	variant := src.clone()
	variant.OriginDimensionSpacePoint = target
	a.nodes[target.Hash()] = variant

	parent, hasParent := g.peek(source.ToPoint()).parent[id]
	for _, sib := range siblings {
		p := sib.DimensionSpacePoint
		if !a.Covers(p) && hasParent {
			g.at(p).link(parent, id, sib.SucceedingSibling)
		}
		a.cover(p, target.ToPoint())
	}
	a.pruneNodes()
	return nil
}
