// Package dimensionspace models the coordinate system of the content graph.
// A Point locates a node variant in the configured dimensions, and the
// VariationGraph describes how points fall back to one another.
package dimensionspace

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Point is an immutable mapping from dimension name to dimension value.
// Two points are equal when they carry the same coordinates.
type Point struct {
	coordinates map[string]string
	hash        string
}

// NewPoint creates a Point from the given coordinates. The map is copied.
func NewPoint(coordinates map[string]string) Point {
	c := make(map[string]string, len(coordinates))
	maps.Copy(c, coordinates)
	return Point{coordinates: c, hash: hashOf(c)}
}

// EmptyPoint returns the point of a content repository without dimensions.
func EmptyPoint() Point {
	return NewPoint(nil)
}

func hashOf(c map[string]string) string {
	keys := slices.Sorted(maps.Keys(c))
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(c[k])
	}
	return b.String()
}

// Hash returns a stable string form usable as a map key.
func (p Point) Hash() string {
	return p.hash
}

// Equal reports whether both points carry the same coordinates.
func (p Point) Equal(other Point) bool {
	return p.hash == other.hash
}

// Coordinate returns the value for a dimension and whether it is set.
func (p Point) Coordinate(dimension string) (string, bool) {
	v, ok := p.coordinates[dimension]
	return v, ok
}

// Coordinates returns a copy of the coordinates.
func (p Point) Coordinates() map[string]string {
	c := make(map[string]string, len(p.coordinates))
	maps.Copy(c, p.coordinates)
	return c
}

// Vary returns a copy of p with one dimension set to a different value.
func (p Point) Vary(dimension, value string) Point {
	c := p.Coordinates()
	c[dimension] = value
	return Point{coordinates: c, hash: hashOf(c)}
}

// String renders the point as {dim=value,...}.
func (p Point) String() string {
	return "{" + p.hash + "}"
}

// MarshalJSON encodes the point as a flat JSON object.
func (p Point) MarshalJSON() ([]byte, error) {
	if p.coordinates == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.coordinates)
}

// UnmarshalJSON decodes a flat JSON object of string values.
func (p *Point) UnmarshalJSON(data []byte) error {
	var c map[string]string
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("decode dimension space point: %w", err)
	}
	*p = NewPoint(c)
	return nil
}

// OriginPoint is the point a node variant was authored at.
type OriginPoint struct {
	Point
}

// NewOriginPoint creates an OriginPoint from coordinates.
func NewOriginPoint(coordinates map[string]string) OriginPoint {
	return OriginPoint{Point: NewPoint(coordinates)}
}

// OriginOf converts a point into an origin point.
func OriginOf(p Point) OriginPoint {
	return OriginPoint{Point: p}
}

// ToPoint returns the underlying dimension space point.
func (o OriginPoint) ToPoint() Point {
	return o.Point
}
