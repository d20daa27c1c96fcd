package nodetype

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const (
	keySuperTypes  = "superTypes"
	keyAbstract    = "abstract"
	keyFinal       = "final"
	keyProperties  = "properties"
	keyReferences  = "references"
	keyChildNodes  = "childNodes"
	keyConstraints = "constraints"
	keyNodeTypes   = "nodeTypes"
	keyMaxItems    = "maxItems"
	keyType        = "type"
	keyPosition    = "position"
	keyDefault     = "defaultValue"
	keyLabel       = "label"
	keyOptions     = "options"
)

// normalize runs the structural passes over a merged configuration tree in
// a fixed order and extracts the typed configuration.
func normalize(name Name, full *Tree) (Configuration, error) {
	if err := migrateLegacyReferences(name, full); err != nil {
		return Configuration{}, err
	}
	removeNullEntries(full)
	if err := checkPropertyReferenceCollision(name, full); err != nil {
		return Configuration{}, err
	}
	if children, ok := full.Subtree(keyChildNodes); ok {
		full.Set(keyChildNodes, sortByPosition(children))
	}
	return extract(name, full)
}

// migrateLegacyReferences moves properties typed "reference" or "references"
// into the references section. Single references get maxItems 1.
func migrateLegacyReferences(name Name, full *Tree) error {
	props, ok := full.Subtree(keyProperties)
	if !ok {
		return nil
	}
	refs, _ := full.Subtree(keyReferences)
	for _, prop := range props.Keys() {
		def, ok := props.Subtree(prop)
		if !ok {
			continue
		}
		typ := def.String(keyType)
		if typ != "reference" && typ != "references" {
			continue
		}
		if refs.Has(prop) {
			return nodeConfigErr(name, nil, "%q is declared as both property and reference", prop)
		}
		if refs == nil {
			refs = NewTree()
		}
		migrated := def.Clone()
		migrated.Delete(keyType)
		if typ == "reference" {
			constraints, ok := migrated.Subtree(keyConstraints)
			if !ok {
				constraints = NewTree()
			}
			constraints.Set(keyMaxItems, 1)
			migrated.Set(keyConstraints, constraints)
		}
		refs.Set(prop, migrated)
		props.Delete(prop)
	}
	if refs != nil {
		full.Set(keyReferences, refs)
	}
	return nil
}

func removeNullEntries(full *Tree) {
	for _, section := range []string{keyProperties, keyReferences, keyChildNodes} {
		sub, ok := full.Subtree(section)
		if !ok {
			continue
		}
		for _, k := range sub.Keys() {
			if v, _ := sub.Get(k); v == nil {
				sub.Delete(k)
			}
		}
	}
}

func checkPropertyReferenceCollision(name Name, full *Tree) error {
	props, _ := full.Subtree(keyProperties)
	refs, _ := full.Subtree(keyReferences)
	for _, k := range props.Keys() {
		if refs.Has(k) {
			return nodeConfigErr(name, nil, "%q is declared as both property and reference", k)
		}
	}
	return nil
}

type positioned struct {
	key      string
	index    int
	group    int // 0 start, 1 middle, 2 end, 3 relative
	weight   float64
	anchor   string
	before   bool
	priority float64
}

// sortByPosition orders the entries of t by their "position" value.
//
// Supported positions are "start [weight]", "end [weight]", numeric values,
// "before <key> [priority]" and "after <key> [priority]". Start entries come
// first with higher weights first, then numeric and unpositioned entries in
// ascending order, then end entries with lower weights first. Relative entries
// are placed next to their anchor; those with a missing anchor join the
// middle group. Ties keep declaration order.
func sortByPosition(t *Tree) *Tree {
	keys := t.Keys()
	items := make([]positioned, 0, len(keys))
	for i, k := range keys {
		p := positioned{key: k, index: i, group: 1}
		if sub, ok := t.Subtree(k); ok {
			if v, ok := sub.Get(keyPosition); ok && v != nil {
				parsePosition(&p, fmt.Sprint(v))
			}
		}
		items = append(items, p)
	}

	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	for i := range items {
		if items[i].group == 3 && (!present[items[i].anchor] || items[i].anchor == items[i].key) {
			items[i].group = 1
			items[i].weight = 0
		}
	}

	var base []positioned
	befores := make(map[string][]positioned)
	afters := make(map[string][]positioned)
	for _, p := range items {
		switch {
		case p.group != 3:
			base = append(base, p)
		case p.before:
			befores[p.anchor] = append(befores[p.anchor], p)
		default:
			afters[p.anchor] = append(afters[p.anchor], p)
		}
	}
	slices.SortStableFunc(base, func(a, b positioned) int {
		if a.group != b.group {
			return a.group - b.group
		}
		switch a.group {
		case 0:
			return cmpFloat(b.weight, a.weight)
		default:
			return cmpFloat(a.weight, b.weight)
		}
	})
	byPriority := func(a, b positioned) int { return cmpFloat(b.priority, a.priority) }
	for k := range befores {
		slices.SortStableFunc(befores[k], byPriority)
	}
	for k := range afters {
		slices.SortStableFunc(afters[k], byPriority)
	}

	out := NewTree()
	emitted := make(map[string]bool, len(keys))
	var emit func(key string)
	emit = func(key string) {
		if emitted[key] {
			return
		}
		emitted[key] = true
		for _, b := range befores[key] {
			emit(b.key)
		}
		v, _ := t.Get(key)
		out.Set(key, v)
		for _, a := range afters[key] {
			emit(a.key)
		}
	}
	for _, p := range base {
		emit(p.key)
	}
	// relative entries whose anchors form a cycle
	for _, k := range keys {
		if !emitted[k] {
			emitted[k] = true
			v, _ := t.Get(k)
			out.Set(k, v)
		}
	}
	return out
}

func parsePosition(p *positioned, raw string) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return
	}
	number := func(i int) float64 {
		if len(fields) <= i {
			return 0
		}
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return 0
		}
		return f
	}
	switch fields[0] {
	case "start":
		p.group, p.weight = 0, number(1)
	case "end":
		p.group, p.weight = 2, number(1)
	case "before", "after":
		if len(fields) < 2 {
			return
		}
		p.group = 3
		p.before = fields[0] == "before"
		p.anchor = fields[1]
		p.priority = number(2)
	default:
		if f, err := strconv.ParseFloat(fields[0], 64); err == nil {
			p.weight = f
		}
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func extract(name Name, full *Tree) (Configuration, error) {
	cfg := Configuration{full: full, Label: full.String(keyLabel)}
	cfg.Options, _ = full.Subtree(keyOptions)

	var err error
	if props, ok := full.Subtree(keyProperties); ok {
		if cfg.Properties, err = extractProperties(name, props); err != nil {
			return Configuration{}, err
		}
	}

	if refs, ok := full.Subtree(keyReferences); ok {
		for _, k := range refs.Keys() {
			def, ok := refs.Subtree(k)
			if !ok {
				return Configuration{}, nodeConfigErr(name, nil, "reference %q must be a mapping", k)
			}
			ref := ReferenceDefinition{Name: k}
			if c, ok := def.Subtree(keyConstraints); ok {
				if ref.Constraints, err = extractConstraints(name, c); err != nil {
					return Configuration{}, err
				}
				if v, ok := c.Get(keyMaxItems); ok && v != nil {
					n, ok := toInt(v)
					if !ok || n < 0 {
						return Configuration{}, nodeConfigErr(name, nil, "reference %q: maxItems must be a non-negative integer", k)
					}
					ref.MaxItems = n
				}
			}
			if props, ok := def.Subtree(keyProperties); ok {
				if ref.Properties, err = extractProperties(name, props); err != nil {
					return Configuration{}, err
				}
			}
			cfg.References = append(cfg.References, ref)
		}
	}

	if children, ok := full.Subtree(keyChildNodes); ok {
		for _, k := range children.Keys() {
			def, ok := children.Subtree(k)
			if !ok {
				return Configuration{}, nodeConfigErr(name, nil, "child node %q must be a mapping", k)
			}
			typ := def.String(keyType)
			if typ == "" {
				return Configuration{}, nodeConfigErr(name, nil, "child node %q has no type", k)
			}
			child := ChildNodeDefinition{Name: k, Type: Name(typ)}
			if v, ok := def.Get(keyPosition); ok && v != nil {
				child.Position = fmt.Sprint(v)
			}
			if c, ok := def.Subtree(keyConstraints); ok {
				if child.Constraints, err = extractConstraints(name, c); err != nil {
					return Configuration{}, err
				}
			}
			cfg.ChildNodes = append(cfg.ChildNodes, child)
		}
	}

	if c, ok := full.Subtree(keyConstraints); ok {
		if cfg.Constraints, err = extractConstraints(name, c); err != nil {
			return Configuration{}, err
		}
	}
	return cfg, nil
}

func extractProperties(name Name, props *Tree) ([]PropertyDefinition, error) {
	out := make([]PropertyDefinition, 0, props.Len())
	for _, k := range props.Keys() {
		def, ok := props.Subtree(k)
		if !ok {
			return nil, nodeConfigErr(name, nil, "property %q must be a mapping", k)
		}
		p := PropertyDefinition{Name: k, Type: def.String(keyType)}
		if p.Type == "" {
			p.Type = "string"
		}
		if v, ok := def.Get(keyDefault); ok {
			p.DefaultValue, p.HasDefault = toPlain(v), true
		}
		out = append(out, p)
	}
	return out, nil
}

// extractConstraints reads the nodeTypes map of a constraints section.
// Null entries reset an inherited constraint and are dropped.
func extractConstraints(name Name, c *Tree) (Constraints, error) {
	nodeTypes, ok := c.Subtree(keyNodeTypes)
	if !ok {
		return nil, nil
	}
	out := make(Constraints, nodeTypes.Len())
	for _, k := range nodeTypes.Keys() {
		v, _ := nodeTypes.Get(k)
		switch b := v.(type) {
		case nil:
		case bool:
			out[k] = b
		default:
			return nil, nodeConfigErr(name, nil, "constraint for %q must be a boolean", k)
		}
	}
	return out, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}
