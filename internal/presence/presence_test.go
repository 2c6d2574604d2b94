package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/messenger/internal/events"
)

func status(user string, online bool, at time.Time) events.SetStatusEvent {
	var ev events.SetStatusEvent
	ev.UserID = user
	ev.Online = online
	ev.Timestamp = at.UnixMilli()
	return ev
}

func TestTracker(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000).UTC()
	r := events.NewRegistry()
	tr := NewTracker(WithStaleThreshold(time.Minute), WithClock(func() time.Time { return now }))
	tr.Attach(r)

	var changes []Presence
	tr.OnChange(func(p Presence) { changes = append(changes, p) })

	r.Publish(ctx, status("bob", true, now))
	r.Publish(ctx, status("alice", true, now))
	r.Publish(ctx, status("carol", false, now))
	assert.Equal(t, []string{"alice", "bob"}, tr.GetOnlineUsers())
	assert.Len(t, changes, 3)

	t.Run("out of order updates are ignored", func(t *testing.T) {
		r.Publish(ctx, status("bob", false, now.Add(-time.Second)))
		p, ok := tr.GetPresence("bob")
		require.True(t, ok)
		assert.Equal(t, StatusOnline, p.Status)
	})

	t.Run("stale status reads as offline", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		p, ok := tr.GetPresence("alice")
		require.True(t, ok)
		assert.Equal(t, StatusOffline, p.Status)
		assert.Empty(t, tr.GetOnlineUsers())
	})

	t.Run("subscriptions", func(t *testing.T) {
		var sub events.SubscribeEvent
		sub.Users = []string{"dave", "erin"}
		r.Publish(ctx, sub)
		var unsub events.UnsubscribeEvent
		unsub.Users = []string{"dave"}
		r.Publish(ctx, unsub)
		assert.Equal(t, []string{"erin"}, tr.Watched())
	})

	t.Run("detach", func(t *testing.T) {
		tr.Shutdown()
		assert.Equal(t, 0, r.Count(events.TopicSetStatus))
		r.Publish(ctx, status("zed", true, now))
		_, ok := tr.GetPresence("zed")
		assert.False(t, ok)
	})
}
