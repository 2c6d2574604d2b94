// Package wsclient carries transport frames over a single websocket
// connection to a native messaging bridge.
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/nfrund/messenger/internal/transport"
)

const defaultReadLimit = 1 << 20

// Client implements transport.Transport over websocket text frames.
type Client struct {
	conn       *websocket.Conn
	dispatcher *transport.Dispatcher
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
}

var _ transport.Transport = (*Client)(nil)

// Option configures Dial.
type Option func(*options)

type options struct {
	header    http.Header
	readLimit int64
	client    *http.Client
}

// WithHeader adds headers to the handshake request, e.g. an auth token.
func WithHeader(h http.Header) Option {
	return func(o *options) {
		o.header = h
	}
}

// WithReadLimit caps the size of a single inbound frame.
func WithReadLimit(n int64) Option {
	return func(o *options) {
		o.readLimit = n
	}
}

// WithHTTPClient sets the client used for the handshake.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// Dial connects to url and starts reading events.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	o := options{readLimit: defaultReadLimit}
	for _, opt := range opts {
		opt(&o)
	}

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: o.header,
		HTTPClient: o.client,
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	conn.SetReadLimit(o.readLimit)

	logger := slog.Default().With("component", "transport", "kind", "websocket")
	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:       conn,
		dispatcher: transport.NewDispatcher(logger),
		logger:     logger,
		ctx:        runCtx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// readLoop delivers inbound frames in arrival order until the connection ends.
func (c *Client) readLoop() {
	defer close(c.done)
	for {
		typ, data, err := c.conn.Read(c.ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if c.ctx.Err() != nil || status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				c.logger.Info("websocket transport closed")
			} else {
				c.logger.Error("websocket read failed", "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			c.logger.Warn("ignoring non-text frame")
			continue
		}
		ev, err := transport.DecodeEvent(data)
		if err != nil {
			c.logger.Warn("ignoring undecodable frame", "error", err)
			continue
		}
		c.dispatcher.Dispatch(c.ctx, ev)
	}
}

// Send writes req as a request frame.
func (c *Client) Send(ctx context.Context, req transport.Request) error {
	if c.ctx.Err() != nil {
		return transport.ErrClosed
	}
	frame, _, err := transport.EncodeRequest(req)
	if err != nil {
		return err
	}
	if err := c.conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("send %s: %w", req.Method, err)
	}
	return nil
}

// Listen binds h to a native event name.
func (c *Client) Listen(ctx context.Context, name string, h transport.EventHandler) error {
	if c.ctx.Err() != nil {
		return transport.ErrClosed
	}
	return c.dispatcher.Bind(name, h)
}

// Unlisten drops the handler of name; later frames for it are ignored.
func (c *Client) Unlisten(name string) error {
	c.dispatcher.Unbind(name)
	return nil
}

// Done is closed when the read loop has stopped.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close performs a normal closure and waits for the read loop to stop.
// A failed closing handshake is logged, not returned; the connection is gone either way.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if err := c.conn.Close(websocket.StatusNormalClosure, ""); err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Debug("websocket close handshake failed", "error", err)
		}
		c.cancel()
		<-c.done
	})
	return nil
}
