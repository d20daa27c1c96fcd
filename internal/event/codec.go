package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zjrosen/contentgraph/internal/contentstream"
)

// ErrUnknownEventType is returned when a record carries an unregistered type.
var ErrUnknownEventType = errors.New("unknown event type")

var factories = map[Type]func() Event{
	TypeRootNodeAggregateWithNodeWasCreated: func() Event { return &RootNodeAggregateWithNodeWasCreated{} },
	TypeNodeAggregateWithNodeWasCreated:     func() Event { return &NodeAggregateWithNodeWasCreated{} },
	TypeNodeAggregateWasMoved:               func() Event { return &NodeAggregateWasMoved{} },
	TypeNodeAggregateWasDisabled:            func() Event { return &NodeAggregateWasDisabled{} },
	TypeNodeAggregateWasEnabled:             func() Event { return &NodeAggregateWasEnabled{} },
	TypeNodeAggregateWasRemoved:             func() Event { return &NodeAggregateWasRemoved{} },
	TypeNodePropertiesWereSet:               func() Event { return &NodePropertiesWereSet{} },
	TypeNodeReferencesWereSet:               func() Event { return &NodeReferencesWereSet{} },
	TypeNodeAggregateTypeWasChanged:         func() Event { return &NodeAggregateTypeWasChanged{} },
	TypeNodeSpecializationVariantWasCreated: func() Event { return &NodeSpecializationVariantWasCreated{} },
	TypeNodeGeneralizationVariantWasCreated: func() Event { return &NodeGeneralizationVariantWasCreated{} },
	TypeNodePeerVariantWasCreated:           func() Event { return &NodePeerVariantWasCreated{} },
}

// Metadata is attached to the first record a command appends so the command
// can be replayed later.
type Metadata struct {
	CommandType    string          `json:"commandType,omitempty"`
	CommandPayload json.RawMessage `json:"commandPayload,omitempty"`
	CommandID      string          `json:"commandId,omitempty"`
}

// IsZero reports whether no command is recorded.
func (m Metadata) IsZero() bool {
	return m.CommandType == "" && len(m.CommandPayload) == 0
}

// Normalize converts domain events into storable events. The metadata is
// attached to the first event only.
func Normalize(events []Event, meta Metadata) ([]contentstream.Event, error) {
	out := make([]contentstream.Event, 0, len(events))
	for i, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", e.EventType(), err)
		}
		se := contentstream.Event{Type: string(e.EventType()), Payload: payload}
		if i == 0 && !meta.IsZero() {
			if se.Metadata, err = json.Marshal(meta); err != nil {
				return nil, fmt.Errorf("failed to encode metadata: %w", err)
			}
		}
		out = append(out, se)
	}
	return out, nil
}

// Denormalize decodes the payload of a stored record.
func Denormalize(r contentstream.Record) (Event, error) {
	factory, ok := factories[Type(r.Type)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, r.Type)
	}
	e := factory()
	if err := json.Unmarshal(r.Payload, e); err != nil {
		return nil, fmt.Errorf("failed to decode %s #%d: %w", r.Type, r.SequenceNumber, err)
	}
	return e, nil
}

// MetadataOf decodes the metadata of a stored record.
func MetadataOf(r contentstream.Record) (Metadata, error) {
	var m Metadata
	if len(r.Metadata) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(r.Metadata, &m); err != nil {
		return m, fmt.Errorf("failed to decode metadata of #%d: %w", r.SequenceNumber, err)
	}
	return m, nil
}
