package testutil

import (
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/nodetype"
)

// nodeData holds everything needed to create one node aggregate.
type nodeData struct {
	id         model.NodeAggregateID
	parent     model.NodeAggregateID
	typeName   nodetype.Name
	origin     dimensionspace.Point
	name       model.NodeName
	properties model.PropertyValues
	before     model.NodeAggregateID
}

// defaultNode returns a page at en.
func defaultNode(id, parent model.NodeAggregateID) nodeData {
	return nodeData{
		id:       id,
		parent:   parent,
		typeName: "Acme:Page",
		origin:   En,
	}
}

// NodeOption configures a node during builder setup.
type NodeOption func(*nodeData)

// Type sets the node type. Default is Acme:Page.
func Type(name nodetype.Name) NodeOption {
	return func(n *nodeData) { n.typeName = name }
}

// Origin sets the origin point. Default is en.
func Origin(p dimensionspace.Point) NodeOption {
	return func(n *nodeData) { n.origin = p }
}

// Name sets the node name.
func Name(name model.NodeName) NodeOption {
	return func(n *nodeData) { n.name = name }
}

// Properties sets initial property values.
func Properties(values model.PropertyValues) NodeOption {
	return func(n *nodeData) { n.properties = values }
}

// Before places the node before the given sibling.
func Before(sibling model.NodeAggregateID) NodeOption {
	return func(n *nodeData) { n.before = sibling }
}
