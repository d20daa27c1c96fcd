package event

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/contentgraph/internal/contentstream"
	"github.com/zjrosen/contentgraph/internal/dimensionspace"
	"github.com/zjrosen/contentgraph/internal/model"
)

func TestNormalize_MetadataOnFirstEventOnly(t *testing.T) {
	en := dimensionspace.NewPoint(map[string]string{"language": "en"})
	events := []Event{
		&NodeAggregateWithNodeWasCreated{
			NodeAggregateID:               "a",
			NodeTypeName:                  "Acme:Page",
			OriginDimensionSpacePoint:     dimensionspace.OriginOf(en),
			SucceedingSiblingsForCoverage: InterdimensionalSiblings{{DimensionSpacePoint: en}},
			ParentNodeAggregateID:         "root",
			NodeAggregateClassification:   model.ClassificationRegular,
		},
		&NodeAggregateWasDisabled{NodeAggregateID: "a", AffectedDimensionSpacePoints: dimensionspace.NewPointSet(en)},
	}
	meta := Metadata{CommandType: "create_node_aggregate_with_node", CommandPayload: json.RawMessage(`{"nodeAggregateId":"a"}`)}

	stored, err := Normalize(events, meta)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	require.Equal(t, string(TypeNodeAggregateWithNodeWasCreated), stored[0].Type)
	require.NotEmpty(t, stored[0].Metadata)
	require.Empty(t, stored[1].Metadata)

	got, err := MetadataOf(contentstream.Record{Event: stored[0]})
	require.NoError(t, err)
	require.Equal(t, meta.CommandType, got.CommandType)
	require.JSONEq(t, string(meta.CommandPayload), string(got.CommandPayload))

	empty, err := MetadataOf(contentstream.Record{Event: stored[1]})
	require.NoError(t, err)
	require.True(t, empty.IsZero())
}

func TestDenormalize(t *testing.T) {
	en := dimensionspace.NewPoint(map[string]string{"language": "en"})
	stored, err := Normalize([]Event{&NodePropertiesWereSet{
		NodeAggregateID:           "a",
		OriginDimensionSpacePoint: dimensionspace.OriginOf(en),
		PropertyValues:            model.PropertyValues{"title": "Hello"},
		PropertiesToUnset:         []string{"subtitle"},
	}}, Metadata{})
	require.NoError(t, err)
	require.JSONEq(t,
		`{"nodeAggregateId":"a","originDimensionSpacePoint":{"language":"en"},"propertyValues":{"title":"Hello"},"propertiesToUnset":["subtitle"]}`,
		string(stored[0].Payload))

	e, err := Denormalize(contentstream.Record{Event: stored[0], SequenceNumber: 1})
	require.NoError(t, err)
	set, ok := e.(*NodePropertiesWereSet)
	require.True(t, ok)
	require.Equal(t, model.NodeAggregateID("a"), set.AggregateID())
	require.True(t, set.OriginDimensionSpacePoint.Equal(en))
	require.Equal(t, "Hello", set.PropertyValues["title"])
}

func TestDenormalize_UnknownType(t *testing.T) {
	_, err := Denormalize(contentstream.Record{Event: contentstream.Event{Type: "NodeWasTeleported"}})
	require.True(t, errors.Is(err, ErrUnknownEventType))
}

func TestInterdimensionalSiblings(t *testing.T) {
	en := dimensionspace.NewPoint(map[string]string{"language": "en"})
	de := dimensionspace.NewPoint(map[string]string{"language": "de"})
	siblings := InterdimensionalSiblings{
		{DimensionSpacePoint: de, SucceedingSibling: "b"},
		{DimensionSpacePoint: en},
	}

	require.True(t, siblings.Points().Equal(dimensionspace.NewPointSet(en, de)))
	sib, ok := siblings.SiblingAt(de)
	require.True(t, ok)
	require.Equal(t, model.NodeAggregateID("b"), sib)
	sib, ok = siblings.SiblingAt(en)
	require.True(t, ok)
	require.Empty(t, sib)
	_, ok = siblings.SiblingAt(dimensionspace.NewPoint(map[string]string{"language": "fr"}))
	require.False(t, ok)
}
