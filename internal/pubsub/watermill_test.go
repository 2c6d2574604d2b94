package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillBridge_OrderAndMetadata(t *testing.T) {
	bridge := NewWatermillBridge()
	defer bridge.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []Message
	require.NoError(t, bridge.Subscribe(ctx, "VITyping", func(ctx context.Context, msg Message) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, msg)
		return nil
	}))

	for i := 0; i < 10; i++ {
		require.NoError(t, PublishJSON(ctx, bridge, Message{Topic: "VITyping"}, map[string]int{"seq": i}))
	}
	require.NoError(t, bridge.Publish(ctx, Message{
		Topic:         "VITyping",
		CorrelationID: "req-9",
		Payload:       []byte(`{"seq":10}`),
		Metadata:      map[string]string{"source": "test"},
	}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 11
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, msg := range got {
		v, err := DecodeJSON[map[string]int](msg)
		require.NoError(t, err)
		assert.Equal(t, i, v["seq"], "messages must arrive in publish order")
		assert.Equal(t, "VITyping", msg.Topic)
	}
	last := got[10]
	assert.Equal(t, "req-9", last.CorrelationID)
	assert.Equal(t, "test", last.Metadata["source"])
	assert.NotContains(t, last.Metadata, metaKeyCorrelationID)
}

func TestWatermillBridge_HandlerPublishesOnSameTopic(t *testing.T) {
	bridge := NewWatermillBridge()
	defer bridge.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hops := make(chan int, 8)
	require.NoError(t, bridge.Subscribe(ctx, "VIGetUser", func(ctx context.Context, msg Message) error {
		v, err := DecodeJSON[map[string]int](msg)
		if err != nil {
			return err
		}
		hops <- v["hop"]
		if v["hop"] < 3 {
			return PublishJSON(ctx, bridge, Message{Topic: "VIGetUser"}, map[string]int{"hop": v["hop"] + 1})
		}
		return nil
	}))

	published := make(chan error, 1)
	go func() {
		published <- PublishJSON(ctx, bridge, Message{Topic: "VIGetUser"}, map[string]int{"hop": 0})
	}()

	select {
	case err := <-published:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("publish waited for the handler")
	}

	for want := 0; want <= 3; want++ {
		select {
		case got := <-hops:
			assert.Equal(t, want, got)
		case <-ctx.Done():
			t.Fatalf("hop %d never arrived", want)
		}
	}
}
