package dimensionspace

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// PointSet is an immutable set of points. Iteration order is the
// lexical order of point hashes so that anything derived from a set
// is deterministic.
type PointSet struct {
	points map[string]Point
}

// NewPointSet creates a set from the given points.
func NewPointSet(points ...Point) PointSet {
	m := make(map[string]Point, len(points))
	for _, p := range points {
		m[p.Hash()] = p
	}
	return PointSet{points: m}
}

// Len returns the number of points in the set.
func (s PointSet) Len() int {
	return len(s.points)
}

// IsEmpty reports whether the set has no points.
func (s PointSet) IsEmpty() bool {
	return len(s.points) == 0
}

// Contains reports whether p is a member of the set.
func (s PointSet) Contains(p Point) bool {
	_, ok := s.points[p.Hash()]
	return ok
}

// Points returns the members in deterministic order.
func (s PointSet) Points() []Point {
	keys := slices.Sorted(maps.Keys(s.points))
	out := make([]Point, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.points[k])
	}
	return out
}

// With returns a copy of the set including p.
func (s PointSet) With(p Point) PointSet {
	m := make(map[string]Point, len(s.points)+1)
	maps.Copy(m, s.points)
	m[p.Hash()] = p
	return PointSet{points: m}
}

// Union returns the points contained in either set.
func (s PointSet) Union(other PointSet) PointSet {
	m := make(map[string]Point, len(s.points)+len(other.points))
	maps.Copy(m, s.points)
	maps.Copy(m, other.points)
	return PointSet{points: m}
}

// Intersection returns the points contained in both sets.
func (s PointSet) Intersection(other PointSet) PointSet {
	m := make(map[string]Point)
	for k, p := range s.points {
		if _, ok := other.points[k]; ok {
			m[k] = p
		}
	}
	return PointSet{points: m}
}

// Difference returns the points of s not contained in other.
func (s PointSet) Difference(other PointSet) PointSet {
	m := make(map[string]Point)
	for k, p := range s.points {
		if _, ok := other.points[k]; !ok {
			m[k] = p
		}
	}
	return PointSet{points: m}
}

// Equal reports whether both sets hold the same points.
func (s PointSet) Equal(other PointSet) bool {
	if len(s.points) != len(other.points) {
		return false
	}
	for k := range s.points {
		if _, ok := other.points[k]; !ok {
			return false
		}
	}
	return true
}

// String renders the set as [{..},{..}].
func (s PointSet) String() string {
	parts := make([]string, 0, len(s.points))
	for _, p := range s.Points() {
		parts = append(parts, p.String())
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// MarshalJSON encodes the set as an ordered JSON array of points.
func (s PointSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Points())
}

// UnmarshalJSON decodes a JSON array of points.
func (s *PointSet) UnmarshalJSON(data []byte) error {
	var points []Point
	if err := json.Unmarshal(data, &points); err != nil {
		return err
	}
	*s = NewPointSet(points...)
	return nil
}
