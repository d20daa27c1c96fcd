package graph

import (
	"cmp"
	"maps"
	"slices"
	"sync"

	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/nodetype"
)

// hierarchy holds the parent/child edges at one dimension space point.
type hierarchy struct {
	parent   map[model.NodeAggregateID]model.NodeAggregateID
	children map[model.NodeAggregateID][]model.NodeAggregateID
}

func newHierarchy() *hierarchy {
	return &hierarchy{
		parent:   make(map[model.NodeAggregateID]model.NodeAggregateID),
		children: make(map[model.NodeAggregateID][]model.NodeAggregateID),
	}
}

// link places child below parent before succeeding, or last when
// succeeding is empty or not a child of parent.
func (h *hierarchy) link(parent, child, succeeding model.NodeAggregateID) {
	h.unlink(child)
	h.parent[child] = parent
	siblings := h.children[parent]
	if i := slices.Index(siblings, succeeding); succeeding != "" && i >= 0 {
		h.children[parent] = slices.Insert(siblings, i, child)
		return
	}
	h.children[parent] = append(siblings, child)
}

func (h *hierarchy) unlink(child model.NodeAggregateID) {
	parent, ok := h.parent[child]
	if !ok {
		return
	}
	delete(h.parent, child)
	siblings := h.children[parent]
	if i := slices.Index(siblings, child); i >= 0 {
		h.children[parent] = slices.Delete(slices.Clone(siblings), i, i+1)
	}
	if len(h.children[parent]) == 0 {
		delete(h.children, parent)
	}
}

func compareIDs(a, b model.NodeAggregateID) int { return cmp.Compare(a, b) }

// ContentGraph is the projected state of one content stream. It is safe for
// concurrent use; queries return snapshots.
type ContentGraph struct {
	mu       sync.RWMutex
	streamID contentstream.ID
	version  int64

	aggregates  map[model.NodeAggregateID]*NodeAggregate
	hierarchies map[string]*hierarchy
	roots       map[nodetype.Name]model.NodeAggregateID
}

func newContentGraph(id contentstream.ID) *ContentGraph {
	return &ContentGraph{
		streamID:    id,
		aggregates:  make(map[model.NodeAggregateID]*NodeAggregate),
		hierarchies: make(map[string]*hierarchy),
		roots:       make(map[nodetype.Name]model.NodeAggregateID),
	}
}

// StreamID returns the projected content stream.
func (g *ContentGraph) StreamID() contentstream.ID { return g.streamID }

// Version returns the sequence number of the last applied record.
func (g *ContentGraph) Version() int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

func (g *ContentGraph) at(p dimensionspace.Point) *hierarchy {
	h, ok := g.hierarchies[p.Hash()]
	if !ok {
		h = newHierarchy()
		g.hierarchies[p.Hash()] = h
	}
	return h
}

func (g *ContentGraph) peek(p dimensionspace.Point) *hierarchy {
	if h, ok := g.hierarchies[p.Hash()]; ok {
		return h
	}
	return newHierarchy()
}

// CountNodeAggregates returns the number of aggregates in the stream.
func (g *ContentGraph) CountNodeAggregates() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.aggregates)
}

// FindNodeAggregateByID returns the aggregate with the given id.
func (g *ContentGraph) FindNodeAggregateByID(id model.NodeAggregateID) (*NodeAggregate, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.aggregates[id]
	if !ok {
		return nil, false
	}
	return a.clone(), true
}

// FindRootNodeAggregateByType returns the root aggregate of the given type.
func (g *ContentGraph) FindRootNodeAggregateByType(typeName nodetype.Name) (*NodeAggregate, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	id, ok := g.roots[typeName]
	if !ok {
		return nil, false
	}
	return g.aggregates[id].clone(), true
}

// FindRootNodeAggregates returns every root aggregate ordered by id.
func (g *ContentGraph) FindRootNodeAggregates() []*NodeAggregate {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*NodeAggregate
	for _, id := range g.roots {
		out = append(out, g.aggregates[id].clone())
	}
	slices.SortFunc(out, func(a, b *NodeAggregate) int { return compareIDs(a.ID, b.ID) })
	return out
}

// FindParentNodeAggregates returns the aggregates child is placed below at
// any covered point, ordered by id.
func (g *ContentGraph) FindParentNodeAggregates(child model.NodeAggregateID) []*NodeAggregate {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[model.NodeAggregateID]bool)
	var out []*NodeAggregate
	for _, h := range g.hierarchies {
		parent, ok := h.parent[child]
		if !ok || seen[parent] {
			continue
		}
		seen[parent] = true
		out = append(out, g.aggregates[parent].clone())
	}
	slices.SortFunc(out, func(a, b *NodeAggregate) int { return compareIDs(a.ID, b.ID) })
	return out
}

// FindParentNodeAggregateAt returns the parent of child at p.
func (g *ContentGraph) FindParentNodeAggregateAt(child model.NodeAggregateID, p dimensionspace.Point) (*NodeAggregate, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	parent, ok := g.peek(p).parent[child]
	if !ok {
		return nil, false
	}
	return g.aggregates[parent].clone(), true
}

// FindChildNodeAggregates returns the aggregates placed below parent at any
// point, in order of first appearance across points sorted by hash.
func (g *ContentGraph) FindChildNodeAggregates(parent model.NodeAggregateID) []*NodeAggregate {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.childAggregates(parent, func(*NodeAggregate) bool { return true })
}

// FindTetheredChildNodeAggregates returns the tethered children of parent.
func (g *ContentGraph) FindTetheredChildNodeAggregates(parent model.NodeAggregateID) []*NodeAggregate {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.childAggregates(parent, (*NodeAggregate).IsTethered)
}

// FindChildNodeAggregateByName returns the child of parent with the given name.
func (g *ContentGraph) FindChildNodeAggregateByName(parent model.NodeAggregateID, name model.NodeName) (*NodeAggregate, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	children := g.childAggregates(parent, func(a *NodeAggregate) bool { return a.NodeName == name })
	if len(children) == 0 {
		return nil, false
	}
	return children[0], true
}

func (g *ContentGraph) childAggregates(parent model.NodeAggregateID, keep func(*NodeAggregate) bool) []*NodeAggregate {
	seen := make(map[model.NodeAggregateID]bool)
	var out []*NodeAggregate
	for _, key := range slices.Sorted(maps.Keys(g.hierarchies)) {
		for _, child := range g.hierarchies[key].children[parent] {
			if seen[child] {
				continue
			}
			seen[child] = true
			if a := g.aggregates[child]; keep(a) {
				out = append(out, a.clone())
			}
		}
	}
	return out
}

// ChildIDsAt returns the ordered children of parent at p.
func (g *ContentGraph) ChildIDsAt(parent model.NodeAggregateID, p dimensionspace.Point) []model.NodeAggregateID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.peek(p).children[parent])
}

// ParentIDAt returns the parent of child at p.
func (g *ContentGraph) ParentIDAt(child model.NodeAggregateID, p dimensionspace.Point) (model.NodeAggregateID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	parent, ok := g.peek(p).parent[child]
	return parent, ok
}

// SucceedingSiblingAt returns the sibling following id below its parent at p.
func (g *ContentGraph) SucceedingSiblingAt(id model.NodeAggregateID, p dimensionspace.Point) (model.NodeAggregateID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	h := g.peek(p)
	parent, ok := h.parent[id]
	if !ok {
		return "", false
	}
	siblings := h.children[parent]
	i := slices.Index(siblings, id)
	if i < 0 || i+1 >= len(siblings) {
		return "", false
	}
	return siblings[i+1], true
}

// ChildNameTakenAt reports whether a child of parent other than except is
// named name at p.
func (g *ContentGraph) ChildNameTakenAt(parent model.NodeAggregateID, name model.NodeName, p dimensionspace.Point, except model.NodeAggregateID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, child := range g.peek(p).children[parent] {
		if child != except && g.aggregates[child].NodeName == name {
			return true
		}
	}
	return false
}

// IsDescendantOf reports whether candidate is below ancestor at any point.
func (g *ContentGraph) IsDescendantOf(candidate, ancestor model.NodeAggregateID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, h := range g.hierarchies {
		for cur, ok := h.parent[candidate]; ok; cur, ok = h.parent[cur] {
			if cur == ancestor {
				return true
			}
		}
	}
	return false
}

// FindDescendantNodeAggregateIDs returns every aggregate below id at any
// point, ordered by id.
func (g *ContentGraph) FindDescendantNodeAggregateIDs(id model.NodeAggregateID) []model.NodeAggregateID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[model.NodeAggregateID]bool)
	for _, h := range g.hierarchies {
		stack := slices.Clone(h.children[id])
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[cur] {
				continue
			}
			seen[cur] = true
			stack = append(stack, h.children[cur]...)
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// FindNodeAggregatesByType returns the aggregates of the given type ordered by id.
func (g *ContentGraph) FindNodeAggregatesByType(typeName nodetype.Name) []*NodeAggregate {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*NodeAggregate
	for _, a := range g.aggregates {
		if a.NodeTypeName == typeName {
			out = append(out, a.clone())
		}
	}
	slices.SortFunc(out, func(a, b *NodeAggregate) int { return compareIDs(a.ID, b.ID) })
	return out
}
