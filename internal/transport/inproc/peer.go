package inproc

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/nfrund/messenger/internal/pubsub"
	"github.com/nfrund/messenger/internal/transport"
)

// RequestHandler receives requests published by a Transport.
type RequestHandler func(ctx context.Context, req transport.Request) error

// Peer is the native end of an in-process bus: it observes requests and
// raises native events.
type Peer struct {
	bus Bus
}

// NewPeer attaches a peer to bus.
func NewPeer(bus Bus) *Peer {
	return &Peer{bus: bus}
}

// OnRequest subscribes h to requests for method until ctx is canceled.
// Params reach h as raw JSON.
func (p *Peer) OnRequest(ctx context.Context, method string, h RequestHandler) error {
	return p.bus.Subscribe(ctx, RequestTopic(method), func(ctx context.Context, msg pubsub.Message) error {
		params, err := pubsub.DecodeJSON[json.RawMessage](msg)
		if err != nil {
			return err
		}
		return h(ctx, transport.Request{
			ID:     msg.CorrelationID,
			Method: method,
			Params: params,
		})
	})
}

// Raise publishes a native event. payload may be raw JSON bytes or any
// value that encodes to JSON.
func (p *Peer) Raise(ctx context.Context, name string, payload any) error {
	return p.RaiseFor(ctx, "", name, payload)
}

// RaiseFor is Raise with the id of the request the event answers.
func (p *Peer) RaiseFor(ctx context.Context, requestID, name string, payload any) error {
	msg := pubsub.Message{Topic: name, CorrelationID: requestID}
	if raw, ok := payload.([]byte); ok {
		msg.Payload = raw
		return p.bus.Publish(ctx, msg)
	}
	return pubsub.PublishJSON(ctx, p.bus, msg, payload)
}
