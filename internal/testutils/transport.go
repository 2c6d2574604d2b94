package testutils

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"github.com/nfrund/messenger/internal/transport"
)

// SentRequest is a request captured by FakeTransport with its params
// already encoded the way a real transport would put them on the wire.
type SentRequest struct {
	transport.Request
	Params gjson.Result
}

// FakeTransport records outbound requests and lets tests raise native
// events synchronously.
type FakeTransport struct {
	mu       sync.Mutex
	requests []SentRequest
	handlers map[string]transport.EventHandler
	failOnce map[string]error
	closed   bool

	// SendErr, when set, is returned by every Send.
	SendErr error
	// ListenErr, when set, is returned by every Listen.
	ListenErr error
}

var _ transport.Transport = (*FakeTransport)(nil)

// NewFakeTransport returns an empty fake.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		handlers: make(map[string]transport.EventHandler),
		failOnce: make(map[string]error),
	}
}

// FailListenOnce makes the next Listen for name return err.
func (f *FakeTransport) FailListenOnce(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOnce[name] = err
}

func (f *FakeTransport) Send(ctx context.Context, req transport.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return transport.ErrClosed
	}
	if f.SendErr != nil {
		return f.SendErr
	}
	raw, err := json.Marshal(req.Params)
	if err != nil {
		return err
	}
	f.requests = append(f.requests, SentRequest{Request: req, Params: gjson.ParseBytes(raw)})
	return nil
}

func (f *FakeTransport) Listen(ctx context.Context, name string, h transport.EventHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ListenErr != nil {
		return f.ListenErr
	}
	if err, ok := f.failOnce[name]; ok {
		delete(f.failOnce, name)
		return err
	}
	if _, ok := f.handlers[name]; ok {
		return transport.ErrAlreadyBound
	}
	f.handlers[name] = h
	return nil
}

func (f *FakeTransport) Unlisten(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, name)
	return nil
}

func (f *FakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Raise delivers a native event to its bound handler. It reports whether a
// handler was bound.
func (f *FakeTransport) Raise(ctx context.Context, name, payload string) bool {
	f.mu.Lock()
	h, ok := f.handlers[name]
	f.mu.Unlock()

	if !ok {
		return false
	}
	_ = h(ctx, transport.Event{Name: name, Payload: []byte(payload)})
	return true
}

// Bound returns the native event names with a handler.
func (f *FakeTransport) Bound() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.handlers))
	for name := range f.handlers {
		out = append(out, name)
	}
	return out
}

// Requests returns every captured request in send order.
func (f *FakeTransport) Requests() []SentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]SentRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// Last returns the most recent request, or false when none was sent.
func (f *FakeTransport) Last() (SentRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.requests) == 0 {
		return SentRequest{}, false
	}
	return f.requests[len(f.requests)-1], true
}

// Closed reports whether Close was called.
func (f *FakeTransport) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
