package wsserver

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/nfrund/messenger/internal/pubsub"
	"github.com/nfrund/messenger/internal/transport"
	"github.com/nfrund/messenger/internal/transport/inproc"
	"github.com/nfrund/messenger/internal/transport/wsclient"
)

func startGateway(t *testing.T, ctx context.Context) (*Gateway, *inproc.Peer, string) {
	t.Helper()
	bus := pubsub.NewWatermillBridge()
	t.Cleanup(func() { _ = bus.Close() })

	g := New(bus, WithWhitelist(NewWhitelist("getUser", "setStatus")))
	require.NoError(t, g.Forward(ctx, "VIGetUser", "VISetStatus"))
	go g.Run(ctx)

	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	return g, inproc.NewPeer(bus), "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestGateway_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	g, peer, url := startGateway(t, ctx)

	require.NoError(t, peer.OnRequest(ctx, "getUser", func(ctx context.Context, req transport.Request) error {
		userID := gjson.GetBytes(req.Params.(json.RawMessage), "userId").String()
		return peer.RaiseFor(ctx, req.ID, "VIGetUser", map[string]any{
			"user": map[string]any{"userId": userID},
		})
	}))

	client, err := wsclient.Dial(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	got := make(chan transport.Event, 2)
	require.NoError(t, client.Listen(ctx, "VIGetUser", func(ctx context.Context, ev transport.Event) error {
		got <- ev
		return nil
	}))
	require.NoError(t, client.Send(ctx, transport.Request{
		ID:     "r1",
		Method: "getUser",
		Params: map[string]string{"userId": "u7"},
	}))

	select {
	case ev := <-got:
		assert.Equal(t, "r1", ev.RequestID)
		assert.Equal(t, "u7", gjson.GetBytes(ev.Payload, "user.userId").String())
	case <-ctx.Done():
		t.Fatal("event never arrived")
	}
	assert.Equal(t, 1, g.Clients())
}

func TestGateway_RejectsUnlistedMethod(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, url := startGateway(t, ctx)

	client, err := wsclient.Dial(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	rejected := make(chan transport.Event, 1)
	require.NoError(t, client.Listen(ctx, ErrorEventName, func(ctx context.Context, ev transport.Event) error {
		rejected <- ev
		return nil
	}))
	require.NoError(t, client.Send(ctx, transport.Request{ID: "r2", Method: "removeConversation"}))

	select {
	case ev := <-rejected:
		assert.Equal(t, "r2", ev.RequestID)
		assert.Equal(t, int64(403), gjson.GetBytes(ev.Payload, "code").Int())
		assert.Equal(t, "removeConversation", gjson.GetBytes(ev.Payload, "action").String())
	case <-ctx.Done():
		t.Fatal("rejection never arrived")
	}
}

func TestWhitelist(t *testing.T) {
	w := NewWhitelist("getUser", "", "getUser")
	assert.Equal(t, []string{"getUser"}, w.Methods())
	assert.True(t, w.IsAllowed("getUser"))
	assert.False(t, w.IsAllowed(""))
	assert.False(t, w.IsAllowed("typing"))

	require.NoError(t, w.Allow("typing"))
	assert.True(t, w.IsAllowed("typing"))
	assert.ErrorIs(t, w.Allow("typing"), ErrMethodAlreadyAllowed)
	assert.ErrorIs(t, w.Allow(""), ErrInvalidMethod)
}
