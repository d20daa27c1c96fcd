package dimensionspace

import (
	"cmp"
	"slices"
)

// VariantType classifies how one point relates to another.
type VariantType string

const (
	VariantSame           VariantType = "same"
	VariantSpecialization VariantType = "specialization"
	VariantGeneralization VariantType = "generalization"
	VariantPeer           VariantType = "peer"
)

// VariationGraph is the immutable inter-dimensional fallback graph over
// all allowed combinations of dimension values. Dimensions are given in
// priority order; the first dimension dominates weights.
type VariationGraph struct {
	dimensions []*Dimension
	points     PointSet
	weights    map[string]int

	// generalizations and specializations are indexed transitively and
	// ordered nearest first.
	generalizations map[string][]Point
	specializations map[string][]Point
}

// NewVariationGraph builds the graph for the given dimensions.
// Construction fails with a ConfigurationError when a constraint names an
// unknown dimension or when an allowed point has no allowed generalization
// although it is not a root combination.
func NewVariationGraph(dimensions ...*Dimension) (*VariationGraph, error) {
	names := make(map[string]bool, len(dimensions))
	for _, d := range dimensions {
		if names[d.name] {
			return nil, configErr(d.name, "dimension declared twice")
		}
		names[d.name] = true
	}
	for _, d := range dimensions {
		for _, v := range d.values {
			for other, byValue := range v.constraints {
				od, ok := findDimension(dimensions, other)
				if !ok {
					return nil, configErr(d.name, "value %q constrains unknown dimension %q", v.Name, other)
				}
				for ov := range byValue {
					if _, ok := od.values[ov]; !ok && ov != "*" {
						return nil, configErr(d.name, "value %q constrains unknown value %q of dimension %q", v.Name, ov, other)
					}
				}
			}
		}
	}

	g := &VariationGraph{
		dimensions:      dimensions,
		weights:         make(map[string]int),
		generalizations: make(map[string][]Point),
		specializations: make(map[string][]Point),
	}

	allowed := g.enumerate()
	g.points = NewPointSet(allowed...)

	base := 1
	for _, d := range dimensions {
		base = max(base, d.maxDepth+1)
	}
	for _, p := range allowed {
		g.weights[p.Hash()] = g.weightOf(p, base)
	}

	for _, p := range allowed {
		direct := g.directGeneralizations(p)
		if len(direct) == 0 && !g.isRootCombination(p) {
			return nil, configErr("", "point %s has no allowed generalization on its fallback chain", p)
		}
	}

	for _, p := range allowed {
		gens := g.transitiveGeneralizations(p)
		g.sortByDistance(p, gens)
		g.generalizations[p.Hash()] = gens
		for _, gen := range gens {
			g.specializations[gen.Hash()] = append(g.specializations[gen.Hash()], p)
		}
	}
	for hash, specs := range g.specializations {
		origin, _ := g.lookup(hash)
		g.sortByDistance(origin, specs)
	}
	return g, nil
}

func findDimension(dimensions []*Dimension, name string) (*Dimension, bool) {
	for _, d := range dimensions {
		if d.name == name {
			return d, true
		}
	}
	return nil, false
}

// enumerate builds the cartesian product of all values and filters
// combinations rejected by value constraints.
func (g *VariationGraph) enumerate() []Point {
	combos := []map[string]string{{}}
	for _, d := range g.dimensions {
		var next []map[string]string
		for _, c := range combos {
			for _, v := range d.Values() {
				nc := make(map[string]string, len(c)+1)
				for k, val := range c {
					nc[k] = val
				}
				nc[d.name] = v.Name
				next = append(next, nc)
			}
		}
		combos = next
	}

	var out []Point
	for _, c := range combos {
		if g.allowedCombination(c) {
			out = append(out, NewPoint(c))
		}
	}
	return out
}

func (g *VariationGraph) allowedCombination(c map[string]string) bool {
	for _, d := range g.dimensions {
		v := d.values[c[d.name]]
		for other, ov := range c {
			if other == d.name {
				continue
			}
			if !v.allows(other, ov) {
				return false
			}
		}
	}
	return true
}

func (g *VariationGraph) weightOf(p Point, base int) int {
	w := 0
	for _, d := range g.dimensions {
		v, _ := p.Coordinate(d.name)
		w = w*base + d.values[v].Depth
	}
	return w
}

func (g *VariationGraph) isRootCombination(p Point) bool {
	for _, d := range g.dimensions {
		v, _ := p.Coordinate(d.name)
		if !d.values[v].IsRoot() {
			return false
		}
	}
	return true
}

// directGeneralizations varies one dimension at a time to its parent value.
func (g *VariationGraph) directGeneralizations(p Point) []Point {
	var out []Point
	for _, d := range g.dimensions {
		v, _ := p.Coordinate(d.name)
		parent := d.values[v].Generalization
		if parent == "" {
			continue
		}
		candidate := p.Vary(d.name, parent)
		if g.points.Contains(candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

func (g *VariationGraph) transitiveGeneralizations(p Point) []Point {
	seen := map[string]bool{p.Hash(): true}
	var out []Point
	queue := g.directGeneralizations(p)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next.Hash()] {
			continue
		}
		seen[next.Hash()] = true
		out = append(out, next)
		queue = append(queue, g.directGeneralizations(next)...)
	}
	return out
}

// sortByDistance orders points by their weight distance to origin, ties by hash.
func (g *VariationGraph) sortByDistance(origin Point, points []Point) {
	ow := g.weights[origin.Hash()]
	slices.SortFunc(points, func(a, b Point) int {
		da := abs(ow - g.weights[a.Hash()])
		db := abs(ow - g.weights[b.Hash()])
		if da != db {
			return cmp.Compare(da, db)
		}
		return cmp.Compare(a.Hash(), b.Hash())
	})
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func (g *VariationGraph) lookup(hash string) (Point, bool) {
	p, ok := g.points.points[hash]
	return p, ok
}

// Dimensions returns the configured dimensions in priority order.
func (g *VariationGraph) Dimensions() []*Dimension {
	return slices.Clone(g.dimensions)
}

// Points returns every allowed point.
func (g *VariationGraph) Points() PointSet {
	return g.points
}

// Has reports whether p is an allowed point.
func (g *VariationGraph) Has(p Point) bool {
	return g.points.Contains(p)
}

// Weight returns the normalized weight of p; more specialized points weigh more.
func (g *VariationGraph) Weight(p Point) int {
	return g.weights[p.Hash()]
}

// Generalizations returns all generalizations of p, nearest first and
// root-most last.
func (g *VariationGraph) Generalizations(p Point) []Point {
	return slices.Clone(g.generalizations[p.Hash()])
}

// Specializations returns all specializations of p, nearest first.
func (g *VariationGraph) Specializations(p Point) []Point {
	return slices.Clone(g.specializations[p.Hash()])
}

// IndexedSpecializations returns the specializations of p as a set.
func (g *VariationGraph) IndexedSpecializations(p Point) PointSet {
	return NewPointSet(g.specializations[p.Hash()]...)
}

// PrimaryGeneralization returns the nearest generalization of p.
func (g *VariationGraph) PrimaryGeneralization(p Point) (Point, bool) {
	gens := g.generalizations[p.Hash()]
	if len(gens) == 0 {
		return Point{}, false
	}
	return gens[0], true
}

// IsGeneralizationOf reports whether a is a (strict, transitive) generalization of b.
func (g *VariationGraph) IsGeneralizationOf(a, b Point) bool {
	return slices.ContainsFunc(g.generalizations[b.Hash()], a.Equal)
}

// IsSpecializationOf reports whether a is a (strict, transitive) specialization of b.
func (g *VariationGraph) IsSpecializationOf(a, b Point) bool {
	return g.IsGeneralizationOf(b, a)
}

// VariantType classifies subject relative to reference.
func (g *VariationGraph) VariantType(subject, reference Point) VariantType {
	switch {
	case subject.Equal(reference):
		return VariantSame
	case g.IsSpecializationOf(subject, reference):
		return VariantSpecialization
	case g.IsGeneralizationOf(subject, reference):
		return VariantGeneralization
	default:
		return VariantPeer
	}
}

// SpecializationSet returns origin (if includeOrigin) plus all of its
// specializations, leaving out excluded points.
func (g *VariationGraph) SpecializationSet(origin Point, includeOrigin bool, excluded PointSet) PointSet {
	var out []Point
	if includeOrigin && g.Has(origin) && !excluded.Contains(origin) {
		out = append(out, origin)
	}
	for _, s := range g.specializations[origin.Hash()] {
		if !excluded.Contains(s) {
			out = append(out, s)
		}
	}
	return NewPointSet(out...)
}

// RootGeneralizations returns the points that do not fall back to any other point.
func (g *VariationGraph) RootGeneralizations() PointSet {
	var out []Point
	for _, p := range g.points.Points() {
		if len(g.generalizations[p.Hash()]) == 0 {
			out = append(out, p)
		}
	}
	return NewPointSet(out...)
}
