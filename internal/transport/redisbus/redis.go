// Package redisbus carries transport frames over Redis pub/sub.
//
// Requests are PUBLISHed on "<prefix>:request:<method>"; native events are
// received on "<prefix>:event:<name>", one subscription per bound name.
package redisbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/nfrund/messenger/internal/transport"
)

// DefaultPrefix is used when no channel prefix is configured.
const DefaultPrefix = "messenger"

// Transport implements transport.Transport on Redis pub/sub.
type Transport struct {
	client     *redis.Client
	ownsClient bool
	prefix     string
	dispatcher *transport.Dispatcher
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	subscriptions map[string]*redis.PubSub
	closed        bool
}

var _ transport.Transport = (*Transport)(nil)

// New creates a transport with its own client built from opts.
func New(opts *redis.Options, prefix string) *Transport {
	t := NewWithClient(redis.NewClient(opts), prefix)
	t.ownsClient = true
	return t
}

// NewWithClient creates a transport on an existing client. The client is
// not closed by Close.
func NewWithClient(client *redis.Client, prefix string) *Transport {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.Default().With("component", "transport", "kind", "redis")
	return &Transport{
		client:        client,
		prefix:        prefix,
		dispatcher:    transport.NewDispatcher(logger),
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		subscriptions: make(map[string]*redis.PubSub),
	}
}

// RequestChannel returns the channel requests for method are published on.
func (t *Transport) RequestChannel(method string) string {
	return t.prefix + ":request:" + method
}

// EventChannel returns the channel native event name is received on.
func (t *Transport) EventChannel(name string) string {
	return t.prefix + ":event:" + name
}

// Ping checks the connection.
func (t *Transport) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

// Send publishes req as a request frame.
func (t *Transport) Send(ctx context.Context, req transport.Request) error {
	if t.isClosed() {
		return transport.ErrClosed
	}
	frame, _, err := transport.EncodeRequest(req)
	if err != nil {
		return err
	}
	if err := t.client.Publish(ctx, t.RequestChannel(req.Method), frame).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", req.Method, err)
	}
	return nil
}

// Listen binds h to name and subscribes to its event channel. It returns
// once Redis has confirmed the subscription.
func (t *Transport) Listen(ctx context.Context, name string, h transport.EventHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return transport.ErrClosed
	}
	if err := t.dispatcher.Bind(name, h); err != nil {
		return err
	}

	ps := t.client.Subscribe(t.ctx, t.EventChannel(name))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		t.dispatcher.Unbind(name)
		return fmt.Errorf("subscribe %s: %w", name, err)
	}
	t.subscriptions[name] = ps

	t.wg.Add(1)
	go t.consume(name, ps)
	return nil
}

// Unlisten unsubscribes from the event channel of name and drops its handler.
func (t *Transport) Unlisten(name string) error {
	t.mu.Lock()
	ps, ok := t.subscriptions[name]
	delete(t.subscriptions, name)
	t.mu.Unlock()

	t.dispatcher.Unbind(name)
	if !ok {
		return nil
	}
	if err := ps.Close(); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", name, err)
	}
	return nil
}

// consume delivers messages of one subscription in order.
func (t *Transport) consume(name string, ps *redis.PubSub) {
	defer t.wg.Done()
	for msg := range ps.Channel() {
		ev, err := transport.DecodeEvent([]byte(msg.Payload))
		if err != nil {
			t.logger.Warn("ignoring undecodable frame", "channel", msg.Channel, "error", err)
			continue
		}
		if ev.Name != name {
			t.logger.Warn("event name does not match channel", "channel", msg.Channel, "event", ev.Name)
			continue
		}
		t.dispatcher.Dispatch(t.ctx, ev)
	}
}

// Close terminates all subscriptions and, when owned, the client.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	subs := t.subscriptions
	t.subscriptions = make(map[string]*redis.PubSub)
	t.mu.Unlock()

	t.cancel()
	for _, ps := range subs {
		_ = ps.Close()
	}
	t.wg.Wait()

	if t.ownsClient {
		return t.client.Close()
	}
	return nil
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
