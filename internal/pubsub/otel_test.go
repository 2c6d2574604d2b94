package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracing_PublishAndProcessSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	bridge := NewWatermillBridge(WithTracer(tp.Tracer("test")))
	defer bridge.Close()

	ctx := context.Background()
	done := make(chan struct{})
	require.NoError(t, bridge.Subscribe(ctx, "messenger.request.getUser", func(ctx context.Context, msg Message) error {
		close(done)
		return nil
	}))

	require.NoError(t, bridge.Publish(ctx, Message{
		Topic:         "messenger.request.getUser",
		CorrelationID: "req-1",
		Payload:       []byte(`{"method":"getUser","params":{"userId":"u1"}}`),
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("message was not processed")
	}

	require.Eventually(t, func() bool { return len(recorder.Ended()) >= 2 }, time.Second, 10*time.Millisecond)
	names := map[string]bool{}
	for _, span := range recorder.Ended() {
		names[span.Name()] = true
	}
	assert.True(t, names["pubsub.publish.messenger.request.getUser"])
	assert.True(t, names["pubsub.process.messenger.request.getUser"])
}

func TestSetupOTel(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled tracing", func(t *testing.T) {
		tracer, cleanup, err := SetupOTel(ctx, TracingConfig{Enabled: false})
		require.NoError(t, err)
		require.NotNil(t, tracer)

		_, span := tracer.Start(ctx, "test")
		span.End()
		cleanup()
	})

	t.Run("enabled tracing", func(t *testing.T) {
		tracer, cleanup, err := SetupOTel(ctx, TracingConfig{
			Enabled:     true,
			ServiceName: "test-service",
			ZipkinURL:   "http://localhost:9411/api/v2/spans",
		})
		require.NoError(t, err)
		require.NotNil(t, tracer)
		cleanup()
	})
}
