package nodetype

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Registry is an immutable snapshot of resolved node types.
type Registry struct {
	types map[Name]*NodeType
}

// builder resolves types on demand with a per-build cache.
type builder struct {
	raw      *Tree
	resolved map[Name]*NodeType
	stack    []Name
	registry *Registry
}

// NewRegistry resolves every node type in configs, keyed by type name.
// The root type is added with an empty configuration if missing.
func NewRegistry(configs *Tree) (*Registry, error) {
	raw := configs.Clone()
	if raw == nil {
		raw = NewTree()
	}
	if !raw.Has(string(RootTypeName)) {
		raw.Set(string(RootTypeName), NewTree())
	}

	r := &Registry{types: make(map[Name]*NodeType, raw.Len())}
	b := &builder{raw: raw, resolved: make(map[Name]*NodeType), registry: r}
	for _, k := range raw.Keys() {
		if _, err := b.resolve(Name(k)); err != nil {
			return nil, err
		}
	}
	for _, k := range raw.Keys() {
		t := b.resolved[Name(k)]
		cfg, err := normalize(t.name, mergeInOrder(t))
		if err != nil {
			return nil, err
		}
		t.config = cfg
		r.types[t.name] = t
	}
	return r, nil
}

// mergeInOrder deep-merges the local configurations of all flattened
// ancestors, root-most first, and finally the type's own configuration.
func mergeInOrder(t *NodeType) *Tree {
	full := NewTree()
	for _, ancestor := range flattenedSuperTypes(t) {
		full = Merge(full, ancestor.local)
	}
	return Merge(full, t.local)
}

// flattenedSuperTypes lists all transitive ancestors of t in merge order.
// Indirect ancestors keep the position of their first appearance; a direct
// super type is moved to the end on every encounter so that the closest
// declaration wins. The type's own absent names are removed.
func flattenedSuperTypes(t *NodeType) []*NodeType {
	var out []*NodeType
	index := func(name Name) int {
		for i, s := range out {
			if s.name == name {
				return i
			}
		}
		return -1
	}
	for _, s := range t.superTypes {
		for _, a := range flattenedSuperTypes(s) {
			if index(a.name) < 0 {
				out = append(out, a)
			}
		}
		if i := index(s.name); i >= 0 {
			out = append(out[:i], out[i+1:]...)
		}
		out = append(out, s)
	}
	filtered := out[:0]
	for _, s := range out {
		if !t.absent[s.name] {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func (b *builder) resolve(name Name) (*NodeType, error) {
	if t, ok := b.resolved[name]; ok {
		return t, nil
	}
	for i, n := range b.stack {
		if n == name {
			cycle := make([]string, 0, len(b.stack)-i+1)
			for _, c := range b.stack[i:] {
				cycle = append(cycle, string(c))
			}
			cycle = append(cycle, string(name))
			return nil, &ConfigurationError{Reason: "super type cycle: " + strings.Join(cycle, " -> ")}
		}
	}

	v, ok := b.raw.Get(string(name))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeTypeNotFound, name)
	}
	var local *Tree
	switch x := v.(type) {
	case nil:
		local = NewTree()
	case *Tree:
		local = x.Clone()
	default:
		return nil, nodeConfigErr(name, nil, "configuration must be a mapping")
	}

	b.stack = append(b.stack, name)
	defer func() { b.stack = b.stack[:len(b.stack)-1] }()

	t := &NodeType{name: name, absent: make(map[Name]bool), registry: b.registry}
	if t.abstract, ok = flag(local, keyAbstract); !ok {
		return nil, nodeConfigErr(name, nil, "%s must be a boolean", keyAbstract)
	}
	if t.final, ok = flag(local, keyFinal); !ok {
		return nil, nodeConfigErr(name, nil, "%s must be a boolean", keyFinal)
	}

	if sv, ok := local.Get(keySuperTypes); ok && sv != nil {
		supers, ok := sv.(*Tree)
		if !ok {
			return nil, nodeConfigErr(name, nil, "%s must be a mapping", keySuperTypes)
		}
		for _, k := range supers.Keys() {
			declared, _ := supers.Get(k)
			switch d := declared.(type) {
			case nil:
				t.absent[Name(k)] = true
				continue
			case bool:
				if !d {
					t.absent[Name(k)] = true
					continue
				}
			default:
				return nil, nodeConfigErr(name, nil, "super type %q must be declared with a boolean", k)
			}
			super, err := b.resolve(Name(k))
			if err != nil {
				if errors.Is(err, ErrNodeConfiguration) || errors.Is(err, ErrConfiguration) {
					return nil, err
				}
				return nil, nodeConfigErr(name, err, "super type %q cannot be resolved", k)
			}
			if super.final {
				return nil, nodeConfigErr(name, &NodeTypeIsFinalError{SuperType: super.name}, "invalid super type")
			}
			t.superTypes = append(t.superTypes, super)
		}
	}

	local.Delete(keySuperTypes)
	local.Delete(keyAbstract)
	local.Delete(keyFinal)
	t.local = local
	b.resolved[name] = t
	return t, nil
}

func flag(t *Tree, key string) (value bool, ok bool) {
	v, present := t.Get(key)
	if !present || v == nil {
		return false, true
	}
	b, ok := v.(bool)
	return b, ok
}

// Get returns the node type with the given name.
func (r *Registry) Get(name Name) (*NodeType, error) {
	t, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeTypeNotFound, name)
	}
	return t, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name Name) bool {
	_, ok := r.types[name]
	return ok
}

// Root returns the built-in root type.
func (r *Registry) Root() *NodeType {
	return r.types[RootTypeName]
}

// All returns the registered types sorted by name.
func (r *Registry) All(includeAbstract bool) []*NodeType {
	out := make([]*NodeType, 0, len(r.types))
	for _, t := range r.types {
		if t.abstract && !includeAbstract {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// SubNodeTypes returns all types other than name that are of type name.
func (r *Registry) SubNodeTypes(name Name, includeAbstract bool) []*NodeType {
	var out []*NodeType
	for _, t := range r.All(includeAbstract) {
		if t.name != name && t.IsOfType(name) {
			out = append(out, t)
		}
	}
	return out
}

// TetheredNodes returns the tethered child declarations of the named type.
func (r *Registry) TetheredNodes(name Name) ([]ChildNodeDefinition, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return t.TetheredNodes(), nil
}

// IsNodeTypeAllowedAsChildToTetheredNode reports whether candidate may be
// created below the tethered slot of parentType.
func (r *Registry) IsNodeTypeAllowedAsChildToTetheredNode(parentType Name, slot string, candidate Name) bool {
	parent, err := r.Get(parentType)
	if err != nil {
		return false
	}
	c, err := r.Get(candidate)
	if err != nil {
		return false
	}
	return parent.AllowsGrandchildNodeType(slot, c)
}
