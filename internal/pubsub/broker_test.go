package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// appended mimics the payload of a content stream notification.
type appended struct {
	stream  string
	version int64
}

func receive[T any](t *testing.T, ch <-chan Event[T]) Event[T] {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return Event[T]{}
	}
}

func TestBroker_DeliversToEverySubscriber(t *testing.T) {
	broker := NewBroker[appended]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subs := []<-chan Event[appended]{broker.Subscribe(ctx), broker.Subscribe(ctx), broker.Subscribe(ctx)}
	require.Equal(t, 3, broker.SubscriberCount())

	broker.Publish(AppendedEvent, appended{stream: "cs-1", version: 4})

	for i, ch := range subs {
		e := receive(t, ch)
		require.Equal(t, AppendedEvent, e.Type, "subscriber %d", i)
		require.Equal(t, appended{stream: "cs-1", version: 4}, e.Payload, "subscriber %d", i)
		require.False(t, e.Timestamp.IsZero())
	}
}

func TestBroker_ContextCancellationClosesSubscription(t *testing.T) {
	broker := NewBroker[appended]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)
	require.Equal(t, 1, broker.SubscriberCount())

	cancel()
	_, ok := <-ch
	require.False(t, ok, "channel should be closed")
	require.Eventually(t, func() bool { return broker.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestBroker_FullSubscriberMissesEvents(t *testing.T) {
	broker := NewBrokerWithBuffer[int](1)
	defer broker.Close()

	ch := broker.Subscribe(context.Background())

	done := make(chan struct{})
	go func() {
		for v := 1; v <= 3; v++ {
			broker.Publish(AppendedEvent, v)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	require.Equal(t, 1, receive(t, ch).Payload)
	require.Equal(t, int64(2), broker.Dropped())
}

func TestBroker_WithBufferSize(t *testing.T) {
	broker := NewBrokerWithBuffer[int](1)
	defer broker.Close()

	ch := broker.Subscribe(context.Background(), WithBufferSize(3))
	for v := 1; v <= 3; v++ {
		broker.Publish(AppendedEvent, v)
	}

	for v := 1; v <= 3; v++ {
		require.Equal(t, v, receive(t, ch).Payload)
	}
	require.Zero(t, broker.Dropped())
}

func TestBroker_LosslessWaitsForSubscriber(t *testing.T) {
	broker := NewBrokerWithBuffer[int](0)
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := broker.Subscribe(ctx, Lossless())

	published := make(chan struct{})
	go func() {
		for v := 1; v <= 5; v++ {
			broker.Publish(AppendedEvent, v)
		}
		close(published)
	}()

	for v := 1; v <= 5; v++ {
		require.Equal(t, v, receive(t, ch).Payload)
	}
	<-published
	require.Zero(t, broker.Dropped())
}

func TestBroker_LosslessReleasesPublisherOnCancel(t *testing.T) {
	broker := NewBrokerWithBuffer[int](0)
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	_ = broker.Subscribe(ctx, Lossless())

	published := make(chan struct{})
	go func() {
		broker.Publish(AppendedEvent, 1)
		close(published)
	}()

	select {
	case <-published:
		t.Fatal("Publish returned before the lossless subscriber read or left")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("Publish still blocked after cancel")
	}
	require.Equal(t, int64(1), broker.Dropped())
}

func TestBroker_Close(t *testing.T) {
	broker := NewBroker[string]()

	ch1 := broker.Subscribe(context.Background())
	ch2 := broker.Subscribe(context.Background(), Lossless())
	require.Equal(t, 2, broker.SubscriberCount())

	broker.Close()
	broker.Close()

	_, ok1 := <-ch1
	_, ok2 := <-ch2
	require.False(t, ok1)
	require.False(t, ok2)
	require.Equal(t, 0, broker.SubscriberCount())

	late := broker.Subscribe(context.Background())
	_, ok := <-late
	require.False(t, ok, "subscribing to a closed broker yields a closed channel")

	broker.Publish(UpdatedEvent, "ignored")
}
