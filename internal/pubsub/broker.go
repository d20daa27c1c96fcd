package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultBufferSize = 64

// SubscribeOption configures one subscription.
type SubscribeOption func(*subscription)

// WithBufferSize overrides the channel buffer of one subscription.
func WithBufferSize(n int) SubscribeOption {
	return func(s *subscription) {
		if n >= 0 {
			s.size = n
		}
	}
}

// Lossless makes Publish wait for this subscriber instead of dropping the
// event when its buffer is full. The wait ends when the subscription's
// context is cancelled. Use it for consumers that must see every appended
// record, such as forwarders.
func Lossless() SubscribeOption {
	return func(s *subscription) { s.lossless = true }
}

type subscription struct {
	size     int
	lossless bool
	done     <-chan struct{}
}

// Broker is a generic pub/sub event broker.
// It allows multiple subscribers to receive events published by publishers.
type Broker[T any] struct {
	subs       map[chan Event[T]]subscription
	mu         sync.RWMutex
	done       chan struct{}
	bufferSize int
	dropped    atomic.Int64
}

// NewBroker creates a new broker with the default buffer size (64).
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](defaultBufferSize)
}

// NewBrokerWithBuffer creates a new broker with a custom default buffer size.
func NewBrokerWithBuffer[T any](size int) *Broker[T] {
	return &Broker[T]{
		subs:       make(map[chan Event[T]]subscription),
		done:       make(chan struct{}),
		bufferSize: size,
	}
}

// Subscribe creates a new subscription channel.
// The channel is closed when ctx is cancelled or the broker is closed.
func (b *Broker[T]) Subscribe(ctx context.Context, opts ...SubscribeOption) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		ch := make(chan Event[T])
		close(ch)
		return ch
	default:
	}

	s := subscription{size: b.bufferSize, done: ctx.Done()}
	for _, opt := range opts {
		opt(&s)
	}
	sub := make(chan Event[T], s.size)
	b.subs[sub] = s

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()

		select {
		case <-b.done:
			return
		default:
		}

		delete(b.subs, sub)
		close(sub)
	}()

	return sub
}

// Publish sends an event to all subscribers. Regular subscribers with a full
// buffer miss the event; lossless subscribers are waited for.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return
	default:
	}

	event := Event[T]{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	for sub, s := range b.subs {
		select {
		case sub <- event:
			continue
		default:
		}
		if !s.lossless {
			b.dropped.Add(1)
			continue
		}
		select {
		case sub <- event:
		case <-s.done:
			b.dropped.Add(1)
		}
	}
}

// Close shuts down the broker and all subscriber channels.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return
	default:
	}

	close(b.done)
	for sub := range b.subs {
		close(sub)
	}
	b.subs = nil
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped, either because a
// subscriber buffer was full or because a lossless subscriber went away.
func (b *Broker[T]) Dropped() int64 {
	return b.dropped.Load()
}
