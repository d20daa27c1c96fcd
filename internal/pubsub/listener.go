package pubsub

import "context"

// Consume subscribes to sub and calls fn for every event until ctx is
// cancelled or the broker is closed. It blocks; run it in a goroutine.
func Consume[T any](ctx context.Context, sub Subscriber[T], fn func(Event[T]), opts ...SubscribeOption) {
	ch := sub.Subscribe(ctx, opts...)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			fn(event)
		}
	}
}
