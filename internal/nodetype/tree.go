package nodetype

import (
	"fmt"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// Tree is an ordered configuration mapping. Values are scalars, []any, *Tree
// or nil. Key order is the declaration order and survives merges.
type Tree struct {
	keys   []string
	values map[string]any
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{values: make(map[string]any)}
}

// TreeFromMap converts a plain map into a tree with keys in sorted order.
// Nested map[string]any values become nested trees.
func TreeFromMap(m map[string]any) *Tree {
	t := NewTree()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.Set(k, fromPlain(m[k]))
	}
	return t
}

func fromPlain(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return TreeFromMap(x)
	case *Tree:
		return x.Clone()
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = fromPlain(item)
		}
		return out
	default:
		return v
	}
}

// Len returns the number of keys.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns the keys in declaration order.
func (t *Tree) Keys() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.keys)
}

// Has reports whether key is present, even with a nil value.
func (t *Tree) Has(key string) bool {
	if t == nil {
		return false
	}
	_, ok := t.values[key]
	return ok
}

// Get returns the value stored under key.
func (t *Tree) Get(key string) (any, bool) {
	if t == nil {
		return nil, false
	}
	v, ok := t.values[key]
	return v, ok
}

// Set stores v under key. New keys are appended; existing keys keep their position.
func (t *Tree) Set(key string, v any) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = v
}

// Delete removes key.
func (t *Tree) Delete(key string) {
	if _, ok := t.values[key]; !ok {
		return
	}
	delete(t.values, key)
	t.keys = slices.DeleteFunc(t.keys, func(k string) bool { return k == key })
}

// Subtree returns the nested tree under key, if any.
func (t *Tree) Subtree(key string) (*Tree, bool) {
	v, ok := t.Get(key)
	if !ok {
		return nil, false
	}
	sub, ok := v.(*Tree)
	return sub, ok
}

// String returns the string value under key or "".
func (t *Tree) String(key string) string {
	v, _ := t.Get(key)
	s, _ := v.(string)
	return s
}

// Clone returns a deep copy.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	out := &Tree{keys: slices.Clone(t.keys), values: make(map[string]any, len(t.values))}
	for k, v := range t.values {
		out.values[k] = fromPlain(v)
	}
	return out
}

// ToMap converts the tree into plain maps, losing key order.
func (t *Tree) ToMap() map[string]any {
	if t == nil {
		return nil
	}
	out := make(map[string]any, len(t.values))
	for k, v := range t.values {
		out[k] = toPlain(v)
	}
	return out
}

func toPlain(v any) any {
	switch x := v.(type) {
	case *Tree:
		return x.ToMap()
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = toPlain(item)
		}
		return out
	default:
		return v
	}
}

// Merge deep-merges override into a copy of base. Nested trees merge
// recursively; scalars, lists and nil in override replace the base value.
// Keys of base keep their positions and new keys are appended.
func Merge(base, override *Tree) *Tree {
	out := base.Clone()
	if out == nil {
		out = NewTree()
	}
	if override == nil {
		return out
	}
	for _, k := range override.keys {
		ov := override.values[k]
		if ot, ok := ov.(*Tree); ok {
			if bt, ok := out.Subtree(k); ok {
				out.Set(k, Merge(bt, ot))
				continue
			}
		}
		out.Set(k, fromPlain(ov))
	}
	return out
}

// ParseYAML parses a YAML document into a tree, preserving mapping order.
// An empty document yields an empty tree.
func ParseYAML(data []byte) (*Tree, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return NewTree(), nil
	}
	v, err := fromNode(doc.Content[0])
	if err != nil {
		return nil, err
	}
	if v == nil {
		return NewTree(), nil
	}
	t, ok := v.(*Tree)
	if !ok {
		return nil, fmt.Errorf("parsing yaml: top level must be a mapping")
	}
	return t, nil
}

func fromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromNode(n.Content[0])
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.MappingNode:
		t := NewTree()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			v, err := fromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			t.Set(key, v)
		}
		return t, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node", n.Line)
	}
}
