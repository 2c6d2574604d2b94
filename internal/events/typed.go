package events

import (
	"context"
	"fmt"
)

// On subscribes a typed handler to topic. The handler only ever sees payloads
// of type T; any other payload is reported as a *PayloadTypeError.
func On[T Event](r *Registry, topic Topic, fn func(ctx context.Context, ev T) error) SubscriptionID {
	return r.Subscribe(topic, ListenerFunc(func(ctx context.Context, ev Event) error {
		typed, ok := ev.(T)
		if !ok {
			var want T
			return &PayloadTypeError{
				Topic: topic,
				Want:  fmt.Sprintf("%T", want),
				Got:   fmt.Sprintf("%T", ev),
			}
		}
		return fn(ctx, typed)
	}))
}

// OnTopic is On with the topic taken from T itself.
func OnTopic[T Event](r *Registry, fn func(ctx context.Context, ev T) error) SubscriptionID {
	var zero T
	return On(r, zero.Topic(), fn)
}
