// Package event defines the domain events appended to content streams.
//
// Payload field names are part of the stored record format and must not be
// renamed; a changed shape needs a new event type.
package event

import (
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/model"
	"github.com/zjrosen/contentgraph/internal/nodetype"
)

// Type is the stored event type name.
type Type string

const (
	TypeRootNodeAggregateWithNodeWasCreated Type = "RootNodeAggregateWithNodeWasCreated"
	TypeNodeAggregateWithNodeWasCreated     Type = "NodeAggregateWithNodeWasCreated"
	TypeNodeAggregateWasMoved               Type = "NodeAggregateWasMoved"
	TypeNodeAggregateWasDisabled            Type = "NodeAggregateWasDisabled"
	TypeNodeAggregateWasEnabled             Type = "NodeAggregateWasEnabled"
	TypeNodeAggregateWasRemoved             Type = "NodeAggregateWasRemoved"
	TypeNodePropertiesWereSet               Type = "NodePropertiesWereSet"
	TypeNodeReferencesWereSet               Type = "NodeReferencesWereSet"
	TypeNodeAggregateTypeWasChanged         Type = "NodeAggregateTypeWasChanged"
	TypeNodeSpecializationVariantWasCreated Type = "NodeSpecializationVariantWasCreated"
	TypeNodeGeneralizationVariantWasCreated Type = "NodeGeneralizationVariantWasCreated"
	TypeNodePeerVariantWasCreated           Type = "NodePeerVariantWasCreated"
)

// Event is implemented by every domain event.
type Event interface {
	EventType() Type
	// AggregateID returns the node aggregate the event is about.
	AggregateID() model.NodeAggregateID
}

// InterdimensionalSibling names, for one covered point, the aggregate the node
// is positioned before. An empty SucceedingSibling means "last child".
type InterdimensionalSibling struct {
	DimensionSpacePoint dimensionspace.Point  `json:"dimensionSpacePoint"`
	SucceedingSibling   model.NodeAggregateID `json:"nodeAggregateId,omitempty"`
}

// InterdimensionalSiblings is ordered by point hash.
type InterdimensionalSiblings []InterdimensionalSibling

// Points returns the points the siblings are given for.
func (s InterdimensionalSiblings) Points() dimensionspace.PointSet {
	points := make([]dimensionspace.Point, len(s))
	for i, sib := range s {
		points[i] = sib.DimensionSpacePoint
	}
	return dimensionspace.NewPointSet(points...)
}

// SiblingAt returns the succeeding sibling given for p.
func (s InterdimensionalSiblings) SiblingAt(p dimensionspace.Point) (model.NodeAggregateID, bool) {
	for _, sib := range s {
		if sib.DimensionSpacePoint.Equal(p) {
			return sib.SucceedingSibling, true
		}
	}
	return "", false
}

type RootNodeAggregateWithNodeWasCreated struct {
	NodeAggregateID             model.NodeAggregateID   `json:"nodeAggregateId"`
	NodeTypeName                nodetype.Name           `json:"nodeTypeName"`
	CoveredDimensionSpacePoints dimensionspace.PointSet `json:"coveredDimensionSpacePoints"`
	NodeAggregateClassification model.Classification    `json:"nodeAggregateClassification"`
}

type NodeAggregateWithNodeWasCreated struct {
	NodeAggregateID               model.NodeAggregateID      `json:"nodeAggregateId"`
	NodeTypeName                  nodetype.Name              `json:"nodeTypeName"`
	OriginDimensionSpacePoint     dimensionspace.OriginPoint `json:"originDimensionSpacePoint"`
	SucceedingSiblingsForCoverage InterdimensionalSiblings   `json:"succeedingSiblingsForCoverage"`
	ParentNodeAggregateID         model.NodeAggregateID      `json:"parentNodeAggregateId"`
	NodeName                      model.NodeName             `json:"nodeName,omitempty"`
	InitialPropertyValues         model.PropertyValues       `json:"initialPropertyValues,omitempty"`
	NodeAggregateClassification   model.Classification       `json:"nodeAggregateClassification"`
}

type NodeAggregateWasMoved struct {
	NodeAggregateID               model.NodeAggregateID    `json:"nodeAggregateId"`
	NewParentNodeAggregateID      model.NodeAggregateID    `json:"newParentNodeAggregateId,omitempty"`
	SucceedingSiblingsForCoverage InterdimensionalSiblings `json:"succeedingSiblingsForCoverage"`
}

type NodeAggregateWasDisabled struct {
	NodeAggregateID              model.NodeAggregateID   `json:"nodeAggregateId"`
	AffectedDimensionSpacePoints dimensionspace.PointSet `json:"affectedDimensionSpacePoints"`
}

type NodeAggregateWasEnabled struct {
	NodeAggregateID              model.NodeAggregateID   `json:"nodeAggregateId"`
	AffectedDimensionSpacePoints dimensionspace.PointSet `json:"affectedDimensionSpacePoints"`
}

type NodeAggregateWasRemoved struct {
	NodeAggregateID                      model.NodeAggregateID   `json:"nodeAggregateId"`
	AffectedOccupiedDimensionSpacePoints dimensionspace.PointSet `json:"affectedOccupiedDimensionSpacePoints"`
	AffectedCoveredDimensionSpacePoints  dimensionspace.PointSet `json:"affectedCoveredDimensionSpacePoints"`
}

type NodePropertiesWereSet struct {
	NodeAggregateID           model.NodeAggregateID      `json:"nodeAggregateId"`
	OriginDimensionSpacePoint dimensionspace.OriginPoint `json:"originDimensionSpacePoint"`
	PropertyValues            model.PropertyValues       `json:"propertyValues"`
	PropertiesToUnset         []string                   `json:"propertiesToUnset,omitempty"`
}

type NodeReferencesWereSet struct {
	NodeAggregateID                          model.NodeAggregateID   `json:"nodeAggregateId"`
	AffectedSourceOriginDimensionSpacePoints dimensionspace.PointSet `json:"affectedSourceOriginDimensionSpacePoints"`
	ReferenceName                            model.ReferenceName     `json:"referenceName"`
	References                               []model.NodeReference   `json:"references"`
}

type NodeAggregateTypeWasChanged struct {
	NodeAggregateID model.NodeAggregateID `json:"nodeAggregateId"`
	NewNodeTypeName nodetype.Name         `json:"newNodeTypeName"`
}

type NodeSpecializationVariantWasCreated struct {
	NodeAggregateID        model.NodeAggregateID      `json:"nodeAggregateId"`
	SourceOrigin           dimensionspace.OriginPoint `json:"sourceOrigin"`
	SpecializationOrigin   dimensionspace.OriginPoint `json:"specializationOrigin"`
	SpecializationSiblings InterdimensionalSiblings   `json:"specializationSiblings"`
}

type NodeGeneralizationVariantWasCreated struct {
	NodeAggregateID           model.NodeAggregateID      `json:"nodeAggregateId"`
	SourceOrigin              dimensionspace.OriginPoint `json:"sourceOrigin"`
	GeneralizationOrigin      dimensionspace.OriginPoint `json:"generalizationOrigin"`
	VariantSucceedingSiblings InterdimensionalSiblings   `json:"variantSucceedingSiblings"`
}

type NodePeerVariantWasCreated struct {
	NodeAggregateID        model.NodeAggregateID      `json:"nodeAggregateId"`
	SourceOrigin           dimensionspace.OriginPoint `json:"sourceOrigin"`
	PeerOrigin             dimensionspace.OriginPoint `json:"peerOrigin"`
	PeerSucceedingSiblings InterdimensionalSiblings   `json:"peerSucceedingSiblings"`
}

func (e *RootNodeAggregateWithNodeWasCreated) EventType() Type {
	return TypeRootNodeAggregateWithNodeWasCreated
}
func (e *NodeAggregateWithNodeWasCreated) EventType() Type { return TypeNodeAggregateWithNodeWasCreated }
func (e *NodeAggregateWasMoved) EventType() Type           { return TypeNodeAggregateWasMoved }
func (e *NodeAggregateWasDisabled) EventType() Type        { return TypeNodeAggregateWasDisabled }
func (e *NodeAggregateWasEnabled) EventType() Type         { return TypeNodeAggregateWasEnabled }
func (e *NodeAggregateWasRemoved) EventType() Type         { return TypeNodeAggregateWasRemoved }
func (e *NodePropertiesWereSet) EventType() Type           { return TypeNodePropertiesWereSet }
func (e *NodeReferencesWereSet) EventType() Type           { return TypeNodeReferencesWereSet }
func (e *NodeAggregateTypeWasChanged) EventType() Type     { return TypeNodeAggregateTypeWasChanged }
func (e *NodeSpecializationVariantWasCreated) EventType() Type {
	return TypeNodeSpecializationVariantWasCreated
}
func (e *NodeGeneralizationVariantWasCreated) EventType() Type {
	return TypeNodeGeneralizationVariantWasCreated
}
func (e *NodePeerVariantWasCreated) EventType() Type { return TypeNodePeerVariantWasCreated }

func (e *RootNodeAggregateWithNodeWasCreated) AggregateID() model.NodeAggregateID {
	return e.NodeAggregateID
}
func (e *NodeAggregateWithNodeWasCreated) AggregateID() model.NodeAggregateID {
	return e.NodeAggregateID
}
func (e *NodeAggregateWasMoved) AggregateID() model.NodeAggregateID       { return e.NodeAggregateID }
func (e *NodeAggregateWasDisabled) AggregateID() model.NodeAggregateID    { return e.NodeAggregateID }
func (e *NodeAggregateWasEnabled) AggregateID() model.NodeAggregateID     { return e.NodeAggregateID }
func (e *NodeAggregateWasRemoved) AggregateID() model.NodeAggregateID     { return e.NodeAggregateID }
func (e *NodePropertiesWereSet) AggregateID() model.NodeAggregateID       { return e.NodeAggregateID }
func (e *NodeReferencesWereSet) AggregateID() model.NodeAggregateID       { return e.NodeAggregateID }
func (e *NodeAggregateTypeWasChanged) AggregateID() model.NodeAggregateID { return e.NodeAggregateID }
func (e *NodeSpecializationVariantWasCreated) AggregateID() model.NodeAggregateID {
	return e.NodeAggregateID
}
func (e *NodeGeneralizationVariantWasCreated) AggregateID() model.NodeAggregateID {
	return e.NodeAggregateID
}
func (e *NodePeerVariantWasCreated) AggregateID() model.NodeAggregateID { return e.NodeAggregateID }
