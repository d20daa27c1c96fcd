package nodetype

import (
	"slices"
)

// Name identifies a node type, e.g. "Acme:Page".
type Name string

// RootTypeName is the built-in type every root node aggregate carries.
const RootTypeName Name = "ContentRepository:Root"

// PropertyDefinition is a declared node property.
type PropertyDefinition struct {
	Name         string
	Type         string
	DefaultValue any
	HasDefault   bool
}

// ReferenceDefinition is a declared named reference. MaxItems of zero means unbounded.
type ReferenceDefinition struct {
	Name        string
	MaxItems    int
	Constraints Constraints
	Properties  []PropertyDefinition
}

// ChildNodeDefinition declares a tethered child node.
type ChildNodeDefinition struct {
	Name        string
	Type        Name
	Position    string
	Constraints Constraints
}

// Configuration is the merged, normalized configuration of a node type.
// It is shared between callers and must be treated as read-only.
type Configuration struct {
	Label       string
	Properties  []PropertyDefinition
	References  []ReferenceDefinition
	ChildNodes  []ChildNodeDefinition
	Constraints Constraints
	Options     *Tree
	full        *Tree
}

// NodeType is a resolved node type. Instances are immutable once their
// registry is built.
type NodeType struct {
	name       Name
	superTypes []*NodeType
	absent     map[Name]bool
	abstract   bool
	final      bool
	local      *Tree
	config     Configuration
	registry   *Registry
}

// Name returns the type name.
func (t *NodeType) Name() Name { return t.name }

// IsAbstract reports whether the type can only be inherited from.
func (t *NodeType) IsAbstract() bool { return t.abstract }

// IsFinal reports whether the type forbids being inherited from.
func (t *NodeType) IsFinal() bool { return t.final }

// IsRoot reports whether the type is the root type or inherits from it.
func (t *NodeType) IsRoot() bool { return t.IsOfType(RootTypeName) }

// DeclaredSuperTypes returns the direct, non-absent super types in declaration order.
func (t *NodeType) DeclaredSuperTypes() []*NodeType {
	return slices.Clone(t.superTypes)
}

// IsOfType reports whether t is name or inherits from it through declared,
// non-absent super types.
func (t *NodeType) IsOfType(name Name) bool {
	return t.distanceTo(name) >= 0
}

// Configuration returns the merged configuration.
func (t *NodeType) Configuration() Configuration { return t.config }

// FullConfiguration returns a copy of the merged raw configuration tree.
func (t *NodeType) FullConfiguration() *Tree { return t.config.full.Clone() }

// LocalConfiguration returns a copy of the type's own declared configuration.
func (t *NodeType) LocalConfiguration() *Tree { return t.local.Clone() }

// Label returns the configured label or the type name.
func (t *NodeType) Label() string {
	if t.config.Label != "" {
		return t.config.Label
	}
	return string(t.name)
}

// Property returns the named property definition.
func (t *NodeType) Property(name string) (PropertyDefinition, bool) {
	for _, p := range t.config.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyDefinition{}, false
}

// HasProperty reports whether the property is declared.
func (t *NodeType) HasProperty(name string) bool {
	_, ok := t.Property(name)
	return ok
}

// Reference returns the named reference definition.
func (t *NodeType) Reference(name string) (ReferenceDefinition, bool) {
	for _, r := range t.config.References {
		if r.Name == name {
			return r, true
		}
	}
	return ReferenceDefinition{}, false
}

// HasReference reports whether the reference is declared.
func (t *NodeType) HasReference(name string) bool {
	_, ok := t.Reference(name)
	return ok
}

// DefaultValuesForProperties returns the declared default values keyed by property name.
func (t *NodeType) DefaultValuesForProperties() map[string]any {
	out := make(map[string]any)
	for _, p := range t.config.Properties {
		if p.HasDefault {
			out[p.Name] = p.DefaultValue
		}
	}
	return out
}

// TetheredNodes returns the tethered child node declarations ordered by position.
func (t *NodeType) TetheredNodes() []ChildNodeDefinition {
	return slices.Clone(t.config.ChildNodes)
}

// TetheredNode returns the tethered child declaration with the given name.
func (t *NodeType) TetheredNode(name string) (ChildNodeDefinition, bool) {
	for _, c := range t.config.ChildNodes {
		if c.Name == name {
			return c, true
		}
	}
	return ChildNodeDefinition{}, false
}

// HasTetheredNode reports whether name is a tethered child slot.
func (t *NodeType) HasTetheredNode(name string) bool {
	_, ok := t.TetheredNode(name)
	return ok
}

// AllowsChildNodeType reports whether candidate may be a direct child of t.
func (t *NodeType) AllowsChildNodeType(candidate *NodeType) bool {
	return t.config.Constraints.Allows(candidate)
}

// AllowsGrandchildNodeType reports whether candidate may be a child of the
// tethered node slot of t. The slot's constraints override those of the
// slot's node type. Unknown slots or slot types allow nothing.
func (t *NodeType) AllowsGrandchildNodeType(slot string, candidate *NodeType) bool {
	def, ok := t.TetheredNode(slot)
	if !ok || t.registry == nil {
		return false
	}
	slotType, err := t.registry.Get(def.Type)
	if err != nil {
		return false
	}
	return slotType.config.Constraints.Merge(def.Constraints).Allows(candidate)
}

func (t *NodeType) String() string { return string(t.name) }
