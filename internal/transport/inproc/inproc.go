// Package inproc carries transport frames over the in-memory watermill bridge.
//
// Requests are published on "messenger.request.<method>" and native events
// on their native name. A Peer attached to the same bridge plays the native
// side.
package inproc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/nfrund/messenger/internal/pubsub"
	"github.com/nfrund/messenger/internal/transport"
)

// RequestTopicPrefix prefixes the bus topic of every request.
const RequestTopicPrefix = "messenger.request."

// RequestTopic returns the bus topic requests for method are published on.
func RequestTopic(method string) string {
	return RequestTopicPrefix + method
}

// Bus is the part of the watermill bridge the transport needs.
type Bus interface {
	pubsub.Publisher
	pubsub.Subscriber
}

// Transport implements transport.Transport on a Bus.
type Transport struct {
	bus        Bus
	dispatcher *transport.Dispatcher
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	listeners map[string]context.CancelFunc
}

var _ transport.Transport = (*Transport)(nil)

// New creates a transport on bus. Closing the transport does not close bus.
func New(bus Bus) *Transport {
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.Default().With("component", "transport", "kind", "inproc")
	return &Transport{
		bus:        bus,
		dispatcher: transport.NewDispatcher(logger),
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		listeners:  make(map[string]context.CancelFunc),
	}
}

// Send publishes req on its request topic.
func (t *Transport) Send(ctx context.Context, req transport.Request) error {
	if t.isClosed() {
		return transport.ErrClosed
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	return pubsub.PublishJSON(ctx, t.bus, pubsub.Message{
		Topic:         RequestTopic(req.Method),
		CorrelationID: id,
		Metadata:      map[string]string{"method": req.Method},
	}, req.Params)
}

// Listen binds h to the native event name. The subscription lives until
// Unlisten or Close, independent of ctx.
func (t *Transport) Listen(ctx context.Context, name string, h transport.EventHandler) error {
	if t.isClosed() {
		return transport.ErrClosed
	}
	if err := t.dispatcher.Bind(name, h); err != nil {
		return err
	}
	subCtx, stop := context.WithCancel(t.ctx)
	err := t.bus.Subscribe(subCtx, name, func(ctx context.Context, msg pubsub.Message) error {
		if subCtx.Err() != nil {
			return nil
		}
		t.dispatcher.Dispatch(ctx, transport.Event{
			Name:      name,
			Payload:   msg.Payload,
			RequestID: msg.CorrelationID,
		})
		return nil
	})
	if err != nil {
		stop()
		t.dispatcher.Unbind(name)
		return fmt.Errorf("subscribe %s: %w", name, err)
	}

	t.mu.Lock()
	t.listeners[name] = stop
	t.mu.Unlock()
	return nil
}

// Unlisten ends the subscription of name and drops its handler.
func (t *Transport) Unlisten(name string) error {
	t.mu.Lock()
	stop, ok := t.listeners[name]
	delete(t.listeners, name)
	t.mu.Unlock()

	if ok {
		stop()
	}
	t.dispatcher.Unbind(name)
	return nil
}

// Close stops event delivery. It is safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.cancel()
	return nil
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
