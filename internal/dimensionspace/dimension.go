package dimensionspace

import (
	"maps"
	"slices"
)

// ValueConfig is the declarative form of one dimension value.
type ValueConfig struct {
	// Specializations lists the values that fall back to this one.
	Specializations []string `yaml:"specializations" mapstructure:"specializations"`
	// Constraints restricts which values of other dimensions this value
	// may be combined with: dimension -> value (or "*") -> allowed.
	Constraints map[string]map[string]bool `yaml:"constraints" mapstructure:"constraints"`
}

// DimensionConfig is the declarative form of one dimension.
type DimensionConfig struct {
	Name   string                 `yaml:"name" mapstructure:"name"`
	Values map[string]ValueConfig `yaml:"values" mapstructure:"values"`
}

// Value is one resolved coordinate of a Dimension.
type Value struct {
	Name            string
	Generalization  string // empty for root values
	Specializations []string
	Depth           int
	constraints     map[string]map[string]bool
}

// IsRoot reports whether the value has no generalization.
func (v Value) IsRoot() bool {
	return v.Generalization == ""
}

// allows reports whether the value may be combined with value other of dimension dim.
func (v Value) allows(dim, other string) bool {
	c, ok := v.constraints[dim]
	if !ok {
		return true
	}
	if allowed, ok := c[other]; ok {
		return allowed
	}
	if allowed, ok := c["*"]; ok {
		return allowed
	}
	return true
}

// Dimension is a validated, immutable dimension with its value tree.
type Dimension struct {
	name     string
	values   map[string]Value
	maxDepth int
}

// NewDimension validates cfg and resolves generalizations and depths.
// Every specialization must be a declared value, every value may have at
// most one generalization and the value tree must be acyclic.
func NewDimension(cfg DimensionConfig) (*Dimension, error) {
	if cfg.Name == "" {
		return nil, configErr("", "dimension name is required")
	}
	if len(cfg.Values) == 0 {
		return nil, configErr(cfg.Name, "at least one value is required")
	}

	values := make(map[string]Value, len(cfg.Values))
	for _, name := range slices.Sorted(maps.Keys(cfg.Values)) {
		vc := cfg.Values[name]
		values[name] = Value{
			Name:            name,
			Specializations: slices.Clone(vc.Specializations),
			constraints:     vc.Constraints,
		}
	}

	for _, name := range slices.Sorted(maps.Keys(values)) {
		for _, spec := range values[name].Specializations {
			child, ok := values[spec]
			if !ok {
				return nil, configErr(cfg.Name, "value %q declares undeclared specialization %q", name, spec)
			}
			if spec == name {
				return nil, configErr(cfg.Name, "value %q specializes itself", name)
			}
			if child.Generalization != "" && child.Generalization != name {
				return nil, configErr(cfg.Name, "value %q is specialized by both %q and %q", spec, child.Generalization, name)
			}
			child.Generalization = name
			values[spec] = child
		}
	}

	d := &Dimension{name: cfg.Name, values: values}
	for _, name := range slices.Sorted(maps.Keys(values)) {
		depth, err := d.depthOf(name)
		if err != nil {
			return nil, err
		}
		v := values[name]
		v.Depth = depth
		values[name] = v
		d.maxDepth = max(d.maxDepth, depth)
	}
	return d, nil
}

// depthOf walks the generalization chain and detects cycles.
func (d *Dimension) depthOf(name string) (int, error) {
	seen := map[string]bool{name: true}
	depth := 0
	for current := d.values[name].Generalization; current != ""; current = d.values[current].Generalization {
		if seen[current] {
			return 0, configErr(d.name, "generalization cycle through value %q", current)
		}
		seen[current] = true
		depth++
	}
	return depth, nil
}

// Name returns the dimension name.
func (d *Dimension) Name() string {
	return d.name
}

// Value looks up a value by name.
func (d *Dimension) Value(name string) (Value, bool) {
	v, ok := d.values[name]
	return v, ok
}

// Values returns all values sorted by depth, then name.
func (d *Dimension) Values() []Value {
	out := slices.Collect(maps.Values(d.values))
	slices.SortFunc(out, func(a, b Value) int {
		if a.Depth != b.Depth {
			return a.Depth - b.Depth
		}
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return out
}

// MaxDepth returns the depth of the deepest value.
func (d *Dimension) MaxDepth() int {
	return d.maxDepth
}
