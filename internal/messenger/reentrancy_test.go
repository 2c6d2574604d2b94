package messenger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/messenger/internal/events"
	"github.com/nfrund/messenger/internal/pubsub"
	"github.com/nfrund/messenger/internal/transport/inproc"
)

func TestMessenger_ListenerSendsFollowUpRequest(t *testing.T) {
	bus := pubsub.NewWatermillBridge()
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, inproc.NewLoopback(bus, "me").Start(ctx))

	m, err := NewProvider(FromDeps(Deps{Transport: inproc.New(bus)})).New()
	require.NoError(t, err)
	defer m.Close()

	seen := make(chan string, 4)
	followUp := make(chan error, 1)
	events.OnTopic(m.Events(), func(ctx context.Context, ev events.GetUserEvent) error {
		seen <- ev.User.UserID
		if ev.User.UserID == "u1" {
			followUp <- m.GetUser(ctx, "u2")
		}
		return nil
	})

	sent := make(chan error, 1)
	go func() { sent <- m.GetUser(ctx, "u1") }()

	select {
	case err := <-sent:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("GetUser waited for the native side")
	}

	for _, want := range []string{"u1", "u2"} {
		select {
		case got := <-seen:
			assert.Equal(t, want, got)
		case <-ctx.Done():
			t.Fatalf("GetUser event for %s never arrived", want)
		}
	}
	require.NoError(t, <-followUp)
}
