package pubsub

import (
	"context"
)

// Message is the structure passed between components on the bus.
// It is intentionally simple to act as a wrapper for raw frame data.
type Message struct {
	// Topic identifies the channel the message belongs to (e.g., "messenger.request.getUser").
	Topic string
	// CorrelationID ties a request to the events it eventually produces.
	CorrelationID string
	// Payload contains the encoded frame.
	Payload []byte
	// Metadata can contain arbitrary key-value pairs for context.
	Metadata map[string]string
}

// Handler defines the function signature for processing a received message.
type Handler func(ctx context.Context, msg Message) error

// Publisher defines the contract for sending messages to the Pub/Sub system.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Subscriber defines the contract for receiving messages from the Pub/Sub system.
type Subscriber interface {
	// Subscribe starts listening to the given topic, processing messages with the handler.
	// Messages of one subscription are handled in order on a single goroutine.
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Close() error
}
