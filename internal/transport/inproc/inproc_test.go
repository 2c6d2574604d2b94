package inproc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/messenger/internal/pubsub"
	"github.com/nfrund/messenger/internal/transport"
)

func TestTransport_RoundTrip(t *testing.T) {
	bus := pubsub.NewWatermillBridge()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := New(bus)
	defer tr.Close()
	peer := NewPeer(bus)

	requests := make(chan transport.Request, 1)
	require.NoError(t, peer.OnRequest(ctx, "getUser", func(ctx context.Context, req transport.Request) error {
		requests <- req
		return nil
	}))

	var mu sync.Mutex
	var events []transport.Event
	require.NoError(t, tr.Listen(ctx, "VIGetUser", func(ctx context.Context, ev transport.Event) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev)
		return nil
	}))

	require.NoError(t, tr.Send(ctx, transport.Request{ID: "req-1", Method: "getUser", Params: map[string]string{"userId": "u1"}}))

	select {
	case req := <-requests:
		assert.Equal(t, "req-1", req.ID)
		assert.Equal(t, "getUser", req.Method)
		assert.JSONEq(t, `{"userId":"u1"}`, string(req.Params.(json.RawMessage)))
	case <-time.After(time.Second):
		t.Fatal("request never reached the peer")
	}

	require.NoError(t, peer.RaiseFor(ctx, "req-1", "VIGetUser", map[string]any{"user": map[string]string{"userId": "u1"}}))
	require.NoError(t, peer.Raise(ctx, "VIGetUser", []byte(`{"user":{"userId":"u2"}}`)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.JSONEq(t, `{"user":{"userId":"u2"}}`, string(events[1].Payload))
}

func TestTransport_BindingAndClose(t *testing.T) {
	bus := pubsub.NewWatermillBridge()
	defer bus.Close()
	ctx := context.Background()

	tr := New(bus)
	noop := func(context.Context, transport.Event) error { return nil }
	require.NoError(t, tr.Listen(ctx, "VISetStatus", noop))
	assert.True(t, errors.Is(tr.Listen(ctx, "VISetStatus", noop), transport.ErrAlreadyBound))

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.ErrorIs(t, tr.Send(ctx, transport.Request{Method: "getUser"}), transport.ErrClosed)
	assert.ErrorIs(t, tr.Listen(ctx, "VIGetUser", noop), transport.ErrClosed)
}

type refusingBus struct {
	Bus
	topic string
}

func (b refusingBus) Subscribe(ctx context.Context, topic string, h pubsub.Handler) error {
	if topic == b.topic {
		return errors.New("subscribe refused")
	}
	return b.Bus.Subscribe(ctx, topic, h)
}

func TestTransport_Unlisten(t *testing.T) {
	bridge := pubsub.NewWatermillBridge()
	defer bridge.Close()
	ctx := context.Background()

	t.Run("failed subscribe leaves the name unbound", func(t *testing.T) {
		tr := New(refusingBus{Bus: bridge, topic: "VITyping"})
		defer tr.Close()
		noop := func(context.Context, transport.Event) error { return nil }

		require.Error(t, tr.Listen(ctx, "VITyping", noop))
		assert.False(t, tr.dispatcher.Bound("VITyping"))
	})

	t.Run("rebinding delivers to the new handler only", func(t *testing.T) {
		tr := New(bridge)
		defer tr.Close()
		peer := NewPeer(bridge)

		var mu sync.Mutex
		var calls []string
		handler := func(tag string) transport.EventHandler {
			return func(ctx context.Context, ev transport.Event) error {
				mu.Lock()
				defer mu.Unlock()
				calls = append(calls, tag)
				return nil
			}
		}

		require.NoError(t, tr.Listen(ctx, "VIEditUser", handler("old")))
		require.NoError(t, tr.Unlisten("VIEditUser"))
		require.NoError(t, tr.Unlisten("VIEditUser"))
		require.NoError(t, tr.Listen(ctx, "VIEditUser", handler("new")))

		require.NoError(t, peer.Raise(ctx, "VIEditUser", []byte(`{}`)))
		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(calls) > 0
		}, time.Second, 10*time.Millisecond)

		time.Sleep(50 * time.Millisecond)
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"new"}, calls)
	})
}
