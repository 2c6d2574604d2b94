package pubsub

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
)

// PublishJSON encodes payload into msg and publishes it on msg.Topic.
func PublishJSON[T any](ctx context.Context, p Publisher, msg Message, payload T) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", msg.Topic, err)
	}
	msg.Payload = data
	return p.Publish(ctx, msg)
}

// DecodeJSON decodes a message payload into T.
func DecodeJSON[T any](msg Message) (T, error) {
	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", msg.Topic, err)
	}
	return v, nil
}
