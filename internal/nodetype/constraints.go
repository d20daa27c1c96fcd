package nodetype

import "math"

// Wildcard is the constraint key that matches every node type.
const Wildcard = "*"

// Constraints maps node type names (or Wildcard) to allow/deny decisions.
type Constraints map[string]bool

// Merge returns c overlaid with override; override wins on conflicts.
func (c Constraints) Merge(override Constraints) Constraints {
	out := make(Constraints, len(c)+len(override))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Allows decides whether candidate is permitted by these constraints.
//
// An empty set allows everything. A direct entry for the candidate decides.
// Otherwise the nearest constrained ancestor decides; when both an allowing and
// a denying ancestor are found, the candidate is allowed only if the allowing
// one is strictly closer. Without any inherited match the wildcard decides,
// and without a wildcard the candidate is allowed.
func (c Constraints) Allows(candidate *NodeType) bool {
	if len(c) == 0 {
		return true
	}
	if v, ok := c[string(candidate.Name())]; ok {
		return v
	}

	allowDist, denyDist := math.MaxInt, math.MaxInt
	for key, allowed := range c {
		if key == Wildcard {
			continue
		}
		d := candidate.distanceTo(Name(key))
		if d < 0 {
			continue
		}
		if allowed {
			allowDist = min(allowDist, d)
		} else {
			denyDist = min(denyDist, d)
		}
	}

	switch {
	case allowDist != math.MaxInt && denyDist != math.MaxInt:
		return allowDist < denyDist
	case allowDist != math.MaxInt:
		return true
	case denyDist != math.MaxInt:
		return false
	}

	if v, ok := c[Wildcard]; ok {
		return v
	}
	return true
}

// distanceTo returns the inheritance distance from t to ancestor along the
// first depth-first path in declaration order, or -1 when t does not inherit
// from ancestor. Explicitly absent super types are never traversed.
func (t *NodeType) distanceTo(ancestor Name) int {
	if t.name == ancestor {
		return 0
	}
	if t.absent[ancestor] {
		return -1
	}
	for _, s := range t.superTypes {
		if d := s.distanceTo(ancestor); d >= 0 {
			return d + 1
		}
	}
	return -1
}
