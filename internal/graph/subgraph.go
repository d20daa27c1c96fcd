package graph

import (
	"slices"
	"strings"

	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/model"
)

// VisibilityConstraints controls which nodes a subgraph returns.
type VisibilityConstraints struct {
	// IncludeDisabled returns disabled nodes and their descendants.
	IncludeDisabled bool
}

// Subgraph is the view of a content graph at one dimension space point.
type Subgraph struct {
	graph      *ContentGraph
	point      dimensionspace.Point
	visibility VisibilityConstraints
}

// Subgraph returns the view at p.
func (g *ContentGraph) Subgraph(p dimensionspace.Point, visibility VisibilityConstraints) *Subgraph {
	return &Subgraph{graph: g, point: p, visibility: visibility}
}

// DimensionSpacePoint returns the point of the view.
func (s *Subgraph) DimensionSpacePoint() dimensionspace.Point { return s.point }

// visible reports whether id is covered and neither it nor an ancestor is
// disabled. The caller holds the read lock.
func (s *Subgraph) visible(id model.NodeAggregateID) bool {
	a, ok := s.graph.aggregates[id]
	if !ok || !a.Covers(s.point) {
		return false
	}
	if s.visibility.IncludeDisabled {
		return true
	}
	h := s.graph.peek(s.point)
	for cur, ok := id, true; ok; cur, ok = h.parent[cur] {
		if s.graph.aggregates[cur].IsDisabledAt(s.point) {
			return false
		}
	}
	return true
}

func (s *Subgraph) node(id model.NodeAggregateID) (*Node, bool) {
	if !s.visible(id) {
		return nil, false
	}
	n, ok := s.graph.aggregates[id].NodeByCoveredDimensionSpacePoint(s.point)
	if !ok {
		return nil, false
	}
	return n.clone(), true
}

func (s *Subgraph) nodes(ids []model.NodeAggregateID) []*Node {
	var out []*Node
	for _, id := range ids {
		if n, ok := s.node(id); ok {
			out = append(out, n)
		}
	}
	return out
}

// FindNodeByID returns the node visible at the point.
func (s *Subgraph) FindNodeByID(id model.NodeAggregateID) (*Node, bool) {
	s.graph.mu.RLock()
	defer s.graph.mu.RUnlock()
	return s.node(id)
}

// FindParentNode returns the parent of id at the point.
func (s *Subgraph) FindParentNode(id model.NodeAggregateID) (*Node, bool) {
	s.graph.mu.RLock()
	defer s.graph.mu.RUnlock()
	if !s.visible(id) {
		return nil, false
	}
	parent, ok := s.graph.peek(s.point).parent[id]
	if !ok {
		return nil, false
	}
	return s.node(parent)
}

// FindChildNodes returns the ordered children of parent.
func (s *Subgraph) FindChildNodes(parent model.NodeAggregateID) []*Node {
	s.graph.mu.RLock()
	defer s.graph.mu.RUnlock()
	if !s.visible(parent) {
		return nil
	}
	return s.nodes(s.graph.peek(s.point).children[parent])
}

// FindSucceedingSiblingNodes returns the siblings after id, nearest first.
func (s *Subgraph) FindSucceedingSiblingNodes(id model.NodeAggregateID) []*Node {
	s.graph.mu.RLock()
	defer s.graph.mu.RUnlock()
	siblings, i := s.siblings(id)
	if i < 0 {
		return nil
	}
	return s.nodes(siblings[i+1:])
}

// FindPrecedingSiblingNodes returns the siblings before id, nearest first.
func (s *Subgraph) FindPrecedingSiblingNodes(id model.NodeAggregateID) []*Node {
	s.graph.mu.RLock()
	defer s.graph.mu.RUnlock()
	siblings, i := s.siblings(id)
	if i < 0 {
		return nil
	}
	preceding := slices.Clone(siblings[:i])
	slices.Reverse(preceding)
	return s.nodes(preceding)
}

func (s *Subgraph) siblings(id model.NodeAggregateID) ([]model.NodeAggregateID, int) {
	if !s.visible(id) {
		return nil, -1
	}
	h := s.graph.peek(s.point)
	parent, ok := h.parent[id]
	if !ok {
		return nil, -1
	}
	siblings := h.children[parent]
	return siblings, slices.Index(siblings, id)
}

// FindNodeByPath follows node names from start.
func (s *Subgraph) FindNodeByPath(start model.NodeAggregateID, path model.NodePath) (*Node, bool) {
	s.graph.mu.RLock()
	defer s.graph.mu.RUnlock()
	if !s.visible(start) {
		return nil, false
	}
	h := s.graph.peek(s.point)
	cur := start
	for _, segment := range strings.Split(string(path), "/") {
		if segment == "" {
			continue
		}
		next, found := model.NodeAggregateID(""), false
		for _, child := range h.children[cur] {
			if string(s.graph.aggregates[child].NodeName) == segment && s.visible(child) {
				next, found = child, true
				break
			}
		}
		if !found {
			return nil, false
		}
		cur = next
	}
	return s.node(cur)
}

// CountNodes returns the number of visible nodes at the point.
func (s *Subgraph) CountNodes() int {
	s.graph.mu.RLock()
	defer s.graph.mu.RUnlock()
	count := 0
	for id := range s.graph.aggregates {
		if s.visible(id) {
			count++
		}
	}
	return count
}

// Walk visits the visible subtree below start depth first in child order.
// Returning false from fn skips the children of the visited node.
func (s *Subgraph) Walk(start model.NodeAggregateID, fn func(n *Node, depth int) bool) {
	s.graph.mu.RLock()
	defer s.graph.mu.RUnlock()
	s.walk(start, 0, fn)
}

func (s *Subgraph) walk(id model.NodeAggregateID, depth int, fn func(*Node, int) bool) {
	n, ok := s.node(id)
	if !ok || !fn(n, depth) {
		return
	}
	for _, child := range s.graph.peek(s.point).children[id] {
		s.walk(child, depth+1, fn)
	}
}
