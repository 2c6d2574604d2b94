package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/messenger/internal/events"
	"github.com/nfrund/messenger/internal/testutils"
	"github.com/nfrund/messenger/internal/transport"
	"github.com/nfrund/messenger/internal/transport/inproc"
)

func TestApp_InprocRoundTrip(t *testing.T) {
	cfg := testutils.ConfigForTests(t, map[string]string{"MESSENGER_BUS_BUFFER": "16"})
	a := New(cfg)
	t.Cleanup(func() { _ = a.Shutdown() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bus, err := a.Bus()
	require.NoError(t, err)
	peer := inproc.NewPeer(bus)
	require.NoError(t, peer.OnRequest(ctx, "getUser", func(ctx context.Context, req transport.Request) error {
		return peer.RaiseFor(ctx, req.ID, "VIGetUser", map[string]any{
			"name": "VIGetUser",
			"user": map[string]any{"userId": "u1", "displayName": "Ann"},
		})
	}))

	m, err := a.Messenger()
	require.NoError(t, err)
	again, err := a.Messenger()
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Equal(t, "test-user", m.GetMe())

	got := make(chan events.GetUserEvent, 1)
	events.OnTopic(m.Events(), func(ctx context.Context, ev events.GetUserEvent) error {
		got <- ev
		return nil
	})

	require.NoError(t, m.GetUser(ctx, "u1"))

	select {
	case ev := <-got:
		assert.Equal(t, "Ann", ev.User.DisplayName)
	case <-ctx.Done():
		t.Fatal("GetUser event never arrived")
	}

	roster, err := a.Presence()
	require.NoError(t, err)
	require.NoError(t, peer.Raise(ctx, "VISetStatus", map[string]any{"userId": "u9", "online": true}))
	assert.Eventually(t, func() bool {
		return len(roster.GetOnlineUsers()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Shutdown())
	require.NoError(t, a.Shutdown())
}

func TestApp_RedisTransport(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := testutils.ConfigForTests(t, map[string]string{
		"MESSENGER_TRANSPORT":  "redis",
		"MESSENGER_REDIS_ADDR": s.Addr(),
	})
	a := New(cfg)
	t.Cleanup(func() { _ = a.Shutdown() })

	m, err := a.Messenger()
	require.NoError(t, err)
	require.NoError(t, m.SetStatus(context.Background(), true))
	assert.Equal(t, 13, a.Catalog().Count())
}

func TestApp_BadRedis(t *testing.T) {
	cfg := testutils.ConfigForTests(t, map[string]string{
		"MESSENGER_TRANSPORT":  "redis",
		"MESSENGER_REDIS_ADDR": "127.0.0.1:1",
	})
	a := New(cfg)
	t.Cleanup(func() { _ = a.Shutdown() })

	_, err := a.Messenger()
	assert.Error(t, err)
}
