package pubsub

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel/trace"
)

// WatermillBridge implements the Publisher and Subscriber interfaces using watermill's GoChannel.
type WatermillBridge struct {
	pub    message.Publisher
	sub    message.Subscriber
	logger watermill.LoggerAdapter
	tracer trace.Tracer
	log    *slog.Logger
}

const (
	// Metadata keys used to transfer our Message structure fields through watermill's message.
	metaKeyCorrelationID = "correlation_id"
	metaKeyTopic         = "topic"
)

// BridgeOption configures a WatermillBridge.
type BridgeOption func(*bridgeOptions)

type bridgeOptions struct {
	tracer trace.Tracer
	logger watermill.LoggerAdapter
	buffer int64
}

// WithTracer wraps the publisher with OpenTelemetry spans.
func WithTracer(tracer trace.Tracer) BridgeOption {
	return func(o *bridgeOptions) {
		o.tracer = tracer
	}
}

// WithWatermillLogger overrides the logger handed to watermill.
func WithWatermillLogger(l watermill.LoggerAdapter) BridgeOption {
	return func(o *bridgeOptions) {
		o.logger = l
	}
}

// WithOutputBuffer sets the per-subscriber output channel buffer.
func WithOutputBuffer(n int64) BridgeOption {
	return func(o *bridgeOptions) {
		o.buffer = n
	}
}

// NewWatermillBridge initializes an in-memory Pub/Sub system.
//
// Publish returns once every subscriber has queued the message, which keeps
// delivery on one topic in publish order without waiting for handlers.
func NewWatermillBridge(opts ...BridgeOption) *WatermillBridge {
	o := bridgeOptions{logger: watermill.NewStdLogger(false, false)}
	for _, opt := range opts {
		opt(&o)
	}

	goChannel := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            o.buffer,
			BlockPublishUntilSubscriberAck: true,
		},
		o.logger,
	)

	var pub message.Publisher = goChannel
	if o.tracer != nil {
		pub = NewPublisherTracingMiddleware(goChannel, o.tracer)
	}

	return &WatermillBridge{
		pub:    pub,
		sub:    goChannel,
		logger: o.logger,
		tracer: o.tracer,
		log:    slog.Default().With("component", "pubsub"),
	}
}

// mapToWatermillMessage converts our pubsub.Message to a watermill message.
func mapToWatermillMessage(ctx context.Context, msg Message) *message.Message {
	wmMsg := message.NewMessage(watermill.NewUUID(), msg.Payload)
	wmMsg.SetContext(ctx)

	for k, v := range msg.Metadata {
		wmMsg.Metadata.Set(k, v)
	}
	wmMsg.Metadata.Set(metaKeyCorrelationID, msg.CorrelationID)
	wmMsg.Metadata.Set(metaKeyTopic, msg.Topic)

	return wmMsg
}

// mapToPubSubMessage converts a watermill message back to our internal pubsub.Message.
func mapToPubSubMessage(wmMsg *message.Message) Message {
	metadata := make(map[string]string)
	for k, v := range wmMsg.Metadata {
		if k != metaKeyCorrelationID && k != metaKeyTopic {
			metadata[k] = v
		}
	}

	return Message{
		Topic:         wmMsg.Metadata.Get(metaKeyTopic),
		CorrelationID: wmMsg.Metadata.Get(metaKeyCorrelationID),
		Payload:       wmMsg.Payload,
		Metadata:      metadata,
	}
}

// Publish implements the Publisher interface.
func (wb *WatermillBridge) Publish(ctx context.Context, msg Message) error {
	return wb.pub.Publish(msg.Topic, mapToWatermillMessage(ctx, msg))
}

// Subscribe implements the Subscriber interface. It returns once the
// subscription is active; messages are handled in publish order on a
// background goroutine until ctx is canceled or the bridge is closed.
// A message is acked when it is queued for the handler, so publishers never
// wait for handlers and a handler may publish or send in turn.
func (wb *WatermillBridge) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := wb.sub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}
	if wb.tracer != nil {
		handler = TraceHandler(wb.tracer, topic, handler)
	}

	queue := newInbox()
	go queue.drain(func(d delivery) {
		if err := handler(d.ctx, d.msg); err != nil {
			wb.log.Error("Failed to handle message", "topic", topic, "msg_id", d.id, "error", err)
		}
	})

	go func() {
		for wmMsg := range messages {
			queue.push(delivery{
				ctx: context.WithoutCancel(wmMsg.Context()),
				id:  wmMsg.UUID,
				msg: mapToPubSubMessage(wmMsg),
			})
			wmMsg.Ack()
		}
		queue.close()
		wb.log.Debug("Subscription message loop ended", "topic", topic)
	}()

	return nil
}

// Close implements the Publisher and Subscriber interface to shut down the bridge.
func (wb *WatermillBridge) Close() error {
	return wb.sub.Close()
}
