// Package wsserver is the native side of the websocket transport. A Gateway
// accepts websocket clients, forwards their request frames onto an
// in-process bus and broadcasts the bus's native events back to every client.
package wsserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"

	"github.com/nfrund/messenger/internal/transport"
	"github.com/nfrund/messenger/internal/transport/inproc"
)

// ErrorEventName is the native event a client receives when one of its
// frames is rejected.
const ErrorEventName = "VIError"

const sendBuffer = 256

// peerConn is one connected websocket client.
type peerConn struct {
	id   int64
	conn *websocket.Conn
	// send is a buffered channel of outbound frames for this client.
	send chan []byte
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithWhitelist restricts the methods clients may call. Without it every
// method is rejected.
func WithWhitelist(w *Whitelist) Option {
	return func(g *Gateway) { g.allowed = w }
}

// WithAcceptOptions sets the websocket handshake options.
func WithAcceptOptions(opts *websocket.AcceptOptions) Option {
	return func(g *Gateway) { g.accept = opts }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// Gateway bridges websocket clients and the in-process bus.
type Gateway struct {
	upstream *inproc.Transport
	allowed  *Whitelist
	accept   *websocket.AcceptOptions
	logger   *slog.Logger

	register   chan *peerConn
	unregister chan *peerConn
	broadcast  chan []byte
	done       chan struct{}

	nextID  atomic.Int64
	clients atomic.Int64
}

// New creates a gateway publishing onto bus. Call Run before serving.
func New(bus inproc.Bus, opts ...Option) *Gateway {
	g := &Gateway{
		upstream:   inproc.New(bus),
		allowed:    NewWhitelist(),
		logger:     slog.Default().With("component", "wsserver"),
		register:   make(chan *peerConn),
		unregister: make(chan *peerConn),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Forward broadcasts the named native events from the bus to every client.
func (g *Gateway) Forward(ctx context.Context, names ...string) error {
	for _, name := range names {
		err := g.upstream.Listen(ctx, name, func(ctx context.Context, ev transport.Event) error {
			frame, err := transport.EncodeEvent(ev)
			if err != nil {
				return err
			}
			select {
			case g.broadcast <- frame:
			case <-g.done:
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("forward %s: %w", name, err)
		}
	}
	return nil
}

// Run manages client lifecycle and fan-out until ctx is canceled.
func (g *Gateway) Run(ctx context.Context) {
	g.logger.Info("websocket gateway started")
	clients := make(map[*peerConn]struct{})
	defer func() {
		_ = g.upstream.Close()
		close(g.done)
		g.logger.Info("websocket gateway stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-g.register:
			clients[c] = struct{}{}
			g.clients.Add(1)
			g.logger.Info("client connected", "client", c.id)

		case c := <-g.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
				g.clients.Add(-1)
				g.logger.Info("client disconnected", "client", c.id)
			}

		case frame := <-g.broadcast:
			for c := range clients {
				select {
				case c.send <- frame:
				default:
					// Drop message if client's send buffer is full.
					g.logger.Warn("client send buffer full, dropping event", "client", c.id)
				}
			}
		}
	}
}

// Clients returns the number of connected clients.
func (g *Gateway) Clients() int {
	return int(g.clients.Load())
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, g.accept)
	if err != nil {
		g.logger.Error("failed to upgrade connection to websocket", "error", err)
		return
	}

	c := &peerConn{id: g.nextID.Add(1), conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case g.register <- c:
	case <-g.done:
		conn.Close(websocket.StatusGoingAway, "gateway stopped")
		return
	}

	go g.writePump(c)
	g.readPump(r.Context(), c)
}

// readPump forwards request frames from the client onto the bus.
func (g *Gateway) readPump(ctx context.Context, c *peerConn) {
	defer func() {
		select {
		case g.unregister <- c:
		case <-g.done:
		}
		c.conn.Close(websocket.StatusNormalClosure, "client disconnected")
	}()

	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				g.logger.Debug("websocket closed normally by client", "client", c.id)
			} else if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				g.logger.Warn("websocket read error", "client", c.id, "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		req, err := transport.DecodeRequest(data)
		if err != nil {
			g.reject(c, "", "", http.StatusBadRequest, err.Error())
			continue
		}
		if !g.allowed.IsAllowed(req.Method) {
			g.reject(c, req.ID, req.Method, http.StatusForbidden, "method not allowed")
			continue
		}
		if err := g.upstream.Send(ctx, req); err != nil {
			g.logger.Error("failed to forward request", "client", c.id, "method", req.Method, "error", err)
			g.reject(c, req.ID, req.Method, http.StatusBadGateway, err.Error())
		}
	}
}

// reject answers one client with an error event.
func (g *Gateway) reject(c *peerConn, requestID, method string, code int, description string) {
	payload, err := json.Marshal(map[string]any{
		"name":        ErrorEventName,
		"code":        code,
		"description": description,
		"action":      method,
	})
	if err != nil {
		return
	}
	frame, err := transport.EncodeEvent(transport.Event{Name: ErrorEventName, Payload: payload, RequestID: requestID})
	if err != nil {
		return
	}
	select {
	case c.send <- frame:
	default:
		g.logger.Warn("client send buffer full, dropping error", "client", c.id)
	}
}

// writePump writes frames from the client's send channel to the connection.
func (g *Gateway) writePump(c *peerConn) {
	defer c.conn.Close(websocket.StatusNormalClosure, "server-side cleanup")

	for {
		var frame []byte
		select {
		case f, ok := <-c.send:
			if !ok {
				// Unregistered by Run.
				return
			}
			frame = f
		case <-g.done:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, frame)
		cancel()
		if err != nil {
			g.logger.Warn("websocket write error", "client", c.id, "error", err)
			return
		}
	}
}
