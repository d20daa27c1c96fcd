// Package nodetype resolves declarative node type configurations into an
// inheritance graph and answers constraint queries against it.
//
// # Core Types
//
// Tree is the ordered raw configuration of a node type. YAML mappings keep
// their declaration order, which matters for child node positions and for the
// depth-first walk used by constraint resolution.
//
// NodeType is a resolved type with:
//   - IsOfType: reflexive, transitive over declared super types
//   - AllowsChildNodeType / AllowsGrandchildNodeType: constraint checks
//   - TetheredNodes: the child nodes created together with the type
//
// A super type declared as false or null is absent. Absence is recorded on
// the declaring type and wins over any re-declaration further up the chain.
//
// Registry is an immutable snapshot of all types. Manager builds snapshots from
// a Provider lazily and swaps them atomically on Reload.
//
// # Full Configuration
//
// The full configuration of a type merges the local configuration of every
// transitive ancestor, root-most first, and the type's own configuration last.
// The merged tree is then normalized:
//  1. legacy "reference"/"references" properties move to the references section
//  2. null properties, references and child nodes are removed
//  3. names declared as both property and reference are rejected
//  4. child nodes are ordered by their position
//
// # Constraints
//
// Constraints.Allows resolves a constraint map against a candidate type. Direct
// entries win, then the nearest constrained ancestor, then the "*" wildcard.
// Equal allow and deny distances resolve to deny.
package nodetype
