package graph

import (
	"maps"
	"slices"

	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/nodetype"
)

// Node is one variant of a node aggregate, authored at its origin.
type Node struct {
	AggregateID               model.NodeAggregateID
	NodeTypeName              nodetype.Name
	Name                      model.NodeName
	Classification            model.Classification
	OriginDimensionSpacePoint dimensionspace.OriginPoint
	Properties                model.PropertyValues
	References                map[model.ReferenceName][]model.NodeReference
}

func (n *Node) clone() *Node {
	c := *n
	c.Properties = maps.Clone(n.Properties)
	c.References = make(map[model.ReferenceName][]model.NodeReference, len(n.References))
	for name, refs := range n.References {
		c.References[name] = slices.Clone(refs)
	}
	return &c
}

// NodeAggregate is the projected state of one aggregate in one content stream.
// Values returned by the graph are snapshots; changing them has no effect.
type NodeAggregate struct {
	ID             model.NodeAggregateID
	NodeTypeName   nodetype.Name
	NodeName       model.NodeName
	Classification model.Classification

	// nodes by origin hash
	nodes map[string]*Node
	// covered point hash to origin hash
	coverage map[string]string
	covered  map[string]dimensionspace.Point
	disabled map[string]dimensionspace.Point
}

func newAggregate(id model.NodeAggregateID, typeName nodetype.Name, name model.NodeName, class model.Classification) *NodeAggregate {
	return &NodeAggregate{
		ID:             id,
		NodeTypeName:   typeName,
		NodeName:       name,
		Classification: class,
		nodes:          make(map[string]*Node),
		coverage:       make(map[string]string),
		covered:        make(map[string]dimensionspace.Point),
		disabled:       make(map[string]dimensionspace.Point),
	}
}

func (a *NodeAggregate) clone() *NodeAggregate {
	c := newAggregate(a.ID, a.NodeTypeName, a.NodeName, a.Classification)
	for k, n := range a.nodes {
		c.nodes[k] = n.clone()
	}
	maps.Copy(c.coverage, a.coverage)
	maps.Copy(c.covered, a.covered)
	maps.Copy(c.disabled, a.disabled)
	return c
}

// IsRoot reports whether the aggregate is a root aggregate.
func (a *NodeAggregate) IsRoot() bool { return a.Classification == model.ClassificationRoot }

// IsTethered reports whether the aggregate was created by its parent's type.
func (a *NodeAggregate) IsTethered() bool { return a.Classification == model.ClassificationTethered }

// OccupiedDimensionSpacePoints returns the origins of all variants.
func (a *NodeAggregate) OccupiedDimensionSpacePoints() dimensionspace.PointSet {
	points := make([]dimensionspace.Point, 0, len(a.nodes))
	for _, n := range a.nodes {
		points = append(points, n.OriginDimensionSpacePoint.ToPoint())
	}
	return dimensionspace.NewPointSet(points...)
}

// CoveredDimensionSpacePoints returns every point some variant covers.
func (a *NodeAggregate) CoveredDimensionSpacePoints() dimensionspace.PointSet {
	return dimensionspace.NewPointSet(slices.Collect(maps.Values(a.covered))...)
}

// DisabledDimensionSpacePoints returns the points the aggregate is disabled at.
func (a *NodeAggregate) DisabledDimensionSpacePoints() dimensionspace.PointSet {
	return dimensionspace.NewPointSet(slices.Collect(maps.Values(a.disabled))...)
}

// Occupies reports whether a variant originates at origin.
func (a *NodeAggregate) Occupies(origin dimensionspace.Point) bool {
	_, ok := a.nodes[origin.Hash()]
	return ok
}

// Covers reports whether a variant covers p.
func (a *NodeAggregate) Covers(p dimensionspace.Point) bool {
	_, ok := a.coverage[p.Hash()]
	return ok
}

// IsDisabledAt reports whether the aggregate is disabled at p.
func (a *NodeAggregate) IsDisabledAt(p dimensionspace.Point) bool {
	_, ok := a.disabled[p.Hash()]
	return ok
}

// NodeByOccupiedDimensionSpacePoint returns the variant originating at origin.
func (a *NodeAggregate) NodeByOccupiedDimensionSpacePoint(origin dimensionspace.Point) (*Node, bool) {
	n, ok := a.nodes[origin.Hash()]
	return n, ok
}

// NodeByCoveredDimensionSpacePoint returns the variant visible at p.
func (a *NodeAggregate) NodeByCoveredDimensionSpacePoint(p dimensionspace.Point) (*Node, bool) {
	originHash, ok := a.coverage[p.Hash()]
	if !ok {
		return nil, false
	}
	n, ok := a.nodes[originHash]
	return n, ok
}

// OccupationByCovered returns the origin of the variant visible at p.
func (a *NodeAggregate) OccupationByCovered(p dimensionspace.Point) (dimensionspace.OriginPoint, bool) {
	n, ok := a.NodeByCoveredDimensionSpacePoint(p)
	if !ok {
		return dimensionspace.OriginPoint{}, false
	}
	return n.OriginDimensionSpacePoint, true
}

// CoverageByOccupant returns the points the variant at origin covers.
func (a *NodeAggregate) CoverageByOccupant(origin dimensionspace.Point) dimensionspace.PointSet {
	var points []dimensionspace.Point
	for pointHash, originHash := range a.coverage {
		if originHash == origin.Hash() {
			points = append(points, a.covered[pointHash])
		}
	}
	return dimensionspace.NewPointSet(points...)
}

// Nodes returns the variants ordered by origin hash.
func (a *NodeAggregate) Nodes() []*Node {
	keys := slices.Sorted(maps.Keys(a.nodes))
	out := make([]*Node, 0, len(keys))
	for _, k := range keys {
		out = append(out, a.nodes[k])
	}
	return out
}

func (a *NodeAggregate) cover(p dimensionspace.Point, origin dimensionspace.Point) {
	a.coverage[p.Hash()] = origin.Hash()
	a.covered[p.Hash()] = p
}

func (a *NodeAggregate) uncover(p dimensionspace.Point) {
	delete(a.coverage, p.Hash())
	delete(a.covered, p.Hash())
	delete(a.disabled, p.Hash())
}

// pruneNodes drops variants that cover no point anymore.
func (a *NodeAggregate) pruneNodes() {
	used := make(map[string]bool, len(a.nodes))
	for _, originHash := range a.coverage {
		used[originHash] = true
	}
	for k := range a.nodes {
		if !used[k] {
			delete(a.nodes, k)
		}
	}
}
