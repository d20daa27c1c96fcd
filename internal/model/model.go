// Package model holds the value objects shared by commands, events and the
// content graph.
package model

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// NodeAggregateID identifies a node aggregate across all its variants.
type NodeAggregateID string

// NewNodeAggregateID returns a random aggregate id.
func NewNodeAggregateID() NodeAggregateID {
	return NodeAggregateID(uuid.NewString())
}

func (id NodeAggregateID) String() string { return string(id) }

var tetheredNamespace = uuid.MustParse("6ba7b812-9dad-11d1-80b4-00c04fd430c8")

// TetheredNodeAggregateID derives the id of the tethered descendant at path
// below parent. The result only depends on its inputs, so replaying a command
// yields the same ids.
func TetheredNodeAggregateID(parent NodeAggregateID, path NodePath) NodeAggregateID {
	return NodeAggregateID(uuid.NewSHA1(tetheredNamespace, []byte(string(parent)+"/"+string(path))).String())
}

// NodeName is the optional name of a node below its parent.
type NodeName string

// NodePath is a slash separated sequence of node names, e.g. "main/column0".
type NodePath string

// Append returns the path extended by name.
func (p NodePath) Append(name NodeName) NodePath {
	if p == "" {
		return NodePath(name)
	}
	return p + "/" + NodePath(name)
}

// Classification tells root, tethered and regular aggregates apart.
type Classification string

const (
	ClassificationRoot     Classification = "root"
	ClassificationRegular  Classification = "regular"
	ClassificationTethered Classification = "tethered"
)

// PropertyValues maps property names to serializable values.
type PropertyValues map[string]any

// Merge returns p overlaid with other.
func (p PropertyValues) Merge(other PropertyValues) PropertyValues {
	out := make(PropertyValues, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Unset returns p without the given names.
func (p PropertyValues) Unset(names ...string) PropertyValues {
	out := make(PropertyValues, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, n := range names {
		delete(out, n)
	}
	return out
}

// ReferenceName names an outgoing reference of a node type.
type ReferenceName string

// NodeReference is one entry of a named reference.
type NodeReference struct {
	Target     NodeAggregateID `json:"target"`
	Properties PropertyValues  `json:"properties,omitempty"`
}

// NodeAggregateIDsByNodePaths assigns aggregate ids to tethered descendants by path.
type NodeAggregateIDsByNodePaths map[NodePath]NodeAggregateID

// WorkspaceName names a workspace.
type WorkspaceName string

// LiveWorkspace is the conventional root workspace.
const LiveWorkspace WorkspaceName = "live"

var workspaceNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]{0,35}$`)

// Validate checks the name format.
func (n WorkspaceName) Validate() error {
	if !workspaceNamePattern.MatchString(string(n)) {
		return fmt.Errorf("invalid workspace name %q: must match %s", n, workspaceNamePattern)
	}
	return nil
}

func (n WorkspaceName) String() string { return string(n) }
