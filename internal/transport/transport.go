// Package transport defines the boundary between the messenger facade and
// the native messaging module it drives.
//
// The facade only ever sends requests and receives named events; what the
// native side does with a request is outside this module. Adapters in the
// subpackages move the same frames over watermill, websocket and redis.
package transport

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by Send and Listen after Close.
	ErrClosed = errors.New("transport closed")
	// ErrAlreadyBound is returned by Listen when the native event already has a handler.
	ErrAlreadyBound = errors.New("native event already bound")
)

// Request is one outbound call to the native module. Params is encoded as
// JSON; nil pointer and nil map fields encode as null.
type Request struct {
	ID     string `json:"id,omitempty"`
	Method string `json:"method"`
	Params any    `json:"params"`
}

// Event is one inbound notification raised by the native module.
type Event struct {
	// Name is the native event name, e.g. "VIGetUser".
	Name string
	// Payload is the raw JSON body of the event.
	Payload []byte
	// RequestID echoes Request.ID when the native side correlates.
	RequestID string
}

// EventHandler processes one inbound event.
type EventHandler func(ctx context.Context, ev Event) error

// Transport is the native messaging module as seen by the facade.
type Transport interface {
	// Send forwards a request without waiting for its result; results
	// arrive later as events.
	Send(ctx context.Context, req Request) error
	// Listen binds h to a native event name. Each name can be bound once.
	Listen(ctx context.Context, name string, h EventHandler) error
	// Unlisten releases the binding of name so it can be bound again.
	// Unbound names are a no-op.
	Unlisten(name string) error
	// Close releases the connection and stops event delivery.
	Close() error
}
