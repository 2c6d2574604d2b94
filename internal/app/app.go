// Package app is the composition root. It wires configuration, logging,
// the transport and the messenger provider into one injector.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do/v2"

	"github.com/nfrund/messenger/internal/config"
	"github.com/nfrund/messenger/internal/events"
	"github.com/nfrund/messenger/internal/messenger"
	"github.com/nfrund/messenger/internal/presence"
	"github.com/nfrund/messenger/internal/pubsub"
	"github.com/nfrund/messenger/internal/session"
	"github.com/nfrund/messenger/internal/topicmgr"
	"github.com/nfrund/messenger/internal/transport"
	"github.com/nfrund/messenger/internal/transport/inproc"
	"github.com/nfrund/messenger/internal/transport/redisbus"
	"github.com/nfrund/messenger/internal/transport/wsclient"
)

// App owns the injector and everything it created.
type App struct {
	injector *do.RootScope

	mu       sync.Mutex
	closers  []func() error
	shutdown bool
}

// New registers every service lazily; nothing is constructed until first use.
func New(cfg config.Provider) *App {
	a := &App{injector: do.New()}
	i := a.injector

	do.ProvideValue[config.Provider](i, cfg)

	do.Provide(i, func(i do.Injector) (*slog.Logger, error) {
		return slog.Default().With("app", "messenger"), nil
	})

	do.Provide(i, func(i do.Injector) (*topicmgr.Manager, error) {
		m := topicmgr.NewManager()
		if err := events.RegisterTopics(m); err != nil {
			return nil, err
		}
		return m, nil
	})

	do.Provide(i, func(i do.Injector) (*session.Store, error) {
		return session.NewStore(do.MustInvoke[config.Provider](i).GetUser()), nil
	})

	do.Provide(i, func(i do.Injector) (*pubsub.WatermillBridge, error) {
		cfg := do.MustInvoke[config.Provider](i)
		tracer, cleanup, err := pubsub.SetupOTel(context.Background(), pubsub.TracingConfig{
			Enabled:     cfg.GetTracingEnabled(),
			ServiceName: cfg.GetTracingServiceName(),
			ZipkinURL:   cfg.GetTracingZipkinURL(),
		})
		if err != nil {
			return nil, fmt.Errorf("setup tracing: %w", err)
		}
		logger := do.MustInvoke[*slog.Logger](i)
		bridge := pubsub.NewWatermillBridge(
			pubsub.WithTracer(tracer),
			pubsub.WithWatermillLogger(watermill.NewSlogLogger(logger.With("component", "watermill"))),
			pubsub.WithOutputBuffer(cfg.GetBusBuffer()),
		)
		a.onShutdown(func() error {
			err := bridge.Close()
			cleanup()
			return err
		})
		return bridge, nil
	})

	do.Provide(i, func(i do.Injector) (transport.Transport, error) {
		return a.newTransport(i)
	})

	do.Provide(i, func(i do.Injector) (*messenger.Provider, error) {
		p := messenger.NewProvider(func() (messenger.Deps, error) {
			tr, err := do.Invoke[transport.Transport](i)
			if err != nil {
				return messenger.Deps{}, err
			}
			logger := do.MustInvoke[*slog.Logger](i)
			return messenger.Deps{
				Transport: tr,
				Session:   do.MustInvoke[*session.Store](i),
				Catalog:   do.MustInvoke[*topicmgr.Manager](i),
				Logger:    logger,
				OnError: func(ctx context.Context, err *events.DispatchError) {
					logger.Debug("dispatch failure", "topic", err.Topic, "error", err.Err)
				},
			}, nil
		})
		a.onShutdown(p.Close)
		return p, nil
	})

	do.Provide(i, func(i do.Injector) (*presence.Tracker, error) {
		p, err := do.Invoke[*messenger.Provider](i)
		if err != nil {
			return nil, err
		}
		m, err := p.Instance()
		if err != nil {
			return nil, err
		}
		t := presence.NewTracker()
		t.Attach(m.Events())
		return t, nil
	})

	return a
}

func (a *App) newTransport(i do.Injector) (transport.Transport, error) {
	cfg := do.MustInvoke[config.Provider](i)
	logger := do.MustInvoke[*slog.Logger](i)

	switch cfg.GetTransport() {
	case config.TransportWebsocket:
		var opts []wsclient.Option
		if token := cfg.GetWebsocketToken(); token != "" {
			opts = append(opts, wsclient.WithHeader(http.Header{"Authorization": {"Bearer " + token}}))
		}
		logger.Info("connecting websocket transport", "url", cfg.GetWebsocketURL())
		return wsclient.Dial(context.Background(), cfg.GetWebsocketURL(), opts...)

	case config.TransportRedis:
		opts := &redis.Options{Addr: cfg.GetRedisAddr()}
		if c, ok := cfg.(*config.Config); ok {
			opts.DB = c.RedisDB
		}
		tr := redisbus.New(opts, cfg.GetRedisPrefix())
		if err := tr.Ping(context.Background()); err != nil {
			_ = tr.Close()
			return nil, fmt.Errorf("redis transport: %w", err)
		}
		logger.Info("connected redis transport", "addr", cfg.GetRedisAddr(), "prefix", cfg.GetRedisPrefix())
		return tr, nil

	case config.TransportInproc, "":
		bridge, err := do.Invoke[*pubsub.WatermillBridge](i)
		if err != nil {
			return nil, err
		}
		logger.Info("using in-process transport")
		return inproc.New(bridge), nil

	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.GetTransport())
	}
}

// Messenger returns the single messenger instance, building it on first call.
func (a *App) Messenger() (*messenger.Messenger, error) {
	p, err := do.Invoke[*messenger.Provider](a.injector)
	if err != nil {
		return nil, err
	}
	return p.Instance()
}

// Presence returns the roster attached to the messenger's events.
func (a *App) Presence() (*presence.Tracker, error) {
	return do.Invoke[*presence.Tracker](a.injector)
}

// Bus returns the in-process watermill bus. The native side of an inproc
// transport attaches to it with inproc.NewPeer.
func (a *App) Bus() (*pubsub.WatermillBridge, error) {
	return do.Invoke[*pubsub.WatermillBridge](a.injector)
}

// Session returns the current-user store.
func (a *App) Session() *session.Store {
	return do.MustInvoke[*session.Store](a.injector)
}

// Catalog returns the topic catalog.
func (a *App) Catalog() *topicmgr.Manager {
	return do.MustInvoke[*topicmgr.Manager](a.injector)
}

func (a *App) onShutdown(fn func() error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// Shutdown releases everything. Closers run in registration order, which
// puts the messenger ahead of the bus its transport publishes on.
func (a *App) Shutdown() error {
	a.mu.Lock()
	if a.shutdown {
		a.mu.Unlock()
		return nil
	}
	a.shutdown = true
	closers := a.closers
	a.mu.Unlock()

	var firstErr error
	for _, closeFn := range closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_ = a.injector.Shutdown()
	return firstErr
}
