package contentstream

import (
	"context"

	"github.com/zjrosen/contentgraph/internal/pubsub"
)

// Change is published for every successful write to a stream.
type Change struct {
	StreamID ID
	// Version is the stream version after the write.
	Version int64
	// Records holds the appended records for pubsub.AppendedEvent.
	Records []Record
}

// NotifyingStore publishes stream changes to a broker:
//   - pubsub.CreatedEvent on Create and Fork
//   - pubsub.AppendedEvent on Append
//   - pubsub.UpdatedEvent on Close and Reopen
//   - pubsub.DeletedEvent on Remove
type NotifyingStore struct {
	Store
	broker pubsub.Publisher[Change]
}

var _ Store = (*NotifyingStore)(nil)

// WithNotifications wraps store so that writes are published to broker.
func WithNotifications(store Store, broker pubsub.Publisher[Change]) *NotifyingStore {
	return &NotifyingStore{Store: store, broker: broker}
}

func (s *NotifyingStore) Create(ctx context.Context, id ID) error {
	if err := s.Store.Create(ctx, id); err != nil {
		return err
	}
	s.broker.Publish(pubsub.CreatedEvent, Change{StreamID: id})
	return nil
}

func (s *NotifyingStore) Fork(ctx context.Context, source, target ID) (int64, error) {
	v, err := s.Store.Fork(ctx, source, target)
	if err != nil {
		return 0, err
	}
	s.broker.Publish(pubsub.CreatedEvent, Change{StreamID: target, Version: v})
	return v, nil
}

func (s *NotifyingStore) Append(ctx context.Context, id ID, expectedVersion int64, events []Event) (int64, error) {
	v, err := s.Store.Append(ctx, id, expectedVersion, events)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return v, nil
	}
	records, err := s.Store.Load(ctx, id, v-int64(len(events)))
	if err != nil {
		return v, nil
	}
	if len(records) > len(events) {
		records = records[:len(events)]
	}
	s.broker.Publish(pubsub.AppendedEvent, Change{StreamID: id, Version: v, Records: records})
	return v, nil
}

func (s *NotifyingStore) Close(ctx context.Context, id ID) error {
	return s.status(ctx, id, s.Store.Close)
}

func (s *NotifyingStore) Reopen(ctx context.Context, id ID) error {
	return s.status(ctx, id, s.Store.Reopen)
}

func (s *NotifyingStore) status(ctx context.Context, id ID, fn func(context.Context, ID) error) error {
	if err := fn(ctx, id); err != nil {
		return err
	}
	s.broker.Publish(pubsub.UpdatedEvent, Change{StreamID: id})
	return nil
}

func (s *NotifyingStore) Remove(ctx context.Context, id ID) error {
	if err := s.Store.Remove(ctx, id); err != nil {
		return err
	}
	s.broker.Publish(pubsub.DeletedEvent, Change{StreamID: id})
	return nil
}
