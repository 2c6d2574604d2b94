// Package messenger is the client-side facade over the native messaging
// module.
//
// A Messenger forwards method calls to the native module through a
// transport.Transport and republishes the native events it receives as typed
// events on named topics. There is at most one Messenger per Provider; the
// package-level Configure, GetInstance and New operate on a process-wide
// default provider.
package messenger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/nfrund/messenger/internal/events"
	"github.com/nfrund/messenger/internal/session"
	"github.com/nfrund/messenger/internal/topicmgr"
	"github.com/nfrund/messenger/internal/transport"
)

// Deps holds the collaborators a Messenger is built from. Only Transport is
// required.
type Deps struct {
	Transport transport.Transport
	Session   session.CurrentUser
	// Catalog holds the topic table. A fresh manager with the messenger
	// topics registered is used when nil.
	Catalog *topicmgr.Manager
	// OnError receives every listener failure and every native payload that
	// could not be decoded.
	OnError events.ErrorHandler
	Logger  *slog.Logger
}

// Messenger is the facade. Create it through a Provider.
type Messenger struct {
	transport transport.Transport
	registry  *events.Registry
	session   session.CurrentUser
	catalog   *topicmgr.Manager
	onError   events.ErrorHandler
	logger    *slog.Logger
	validate  *validator.Validate

	closeOnce sync.Once
	closeErr  error
}

func build(ctx context.Context, deps Deps) (*Messenger, error) {
	if deps.Transport == nil {
		return nil, errors.New("transport is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "messenger")

	catalog := deps.Catalog
	if catalog == nil {
		catalog = topicmgr.NewManager()
	}
	if err := events.RegisterTopics(catalog); err != nil {
		return nil, fmt.Errorf("register topics: %w", err)
	}
	if err := catalog.CheckBindings(events.AllTopicNames()); err != nil {
		return nil, err
	}

	cur := deps.Session
	if cur == nil {
		cur = session.Static("")
	}

	m := &Messenger{
		transport: deps.Transport,
		session:   cur,
		catalog:   catalog,
		onError:   deps.OnError,
		logger:    logger,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	m.registry = events.NewRegistry(
		events.WithLogger(logger),
		events.WithErrorHandler(deps.OnError),
		events.WithCatalog(catalog),
	)

	bound := make([]string, 0, len(events.AllTopics()))
	for _, topic := range events.AllTopics() {
		def, _ := catalog.Get(string(topic))
		name := def.NativeEvent()
		if err := m.transport.Listen(ctx, name, m.bridge(topic)); err != nil {
			m.unbind(bound)
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
		bound = append(bound, name)
	}

	logger.Info("messenger initialized", "topics", len(events.AllTopics()))
	return m, nil
}

// unbind releases names bound by a construction that failed, so the
// transport can be bound again by the next attempt.
func (m *Messenger) unbind(names []string) {
	for _, name := range names {
		if err := m.transport.Unlisten(name); err != nil {
			m.logger.Warn("failed to release native event", "event", name, "error", err)
		}
	}
}

// bridge turns one native event into a typed emission on topic.
func (m *Messenger) bridge(topic events.Topic) transport.EventHandler {
	return func(ctx context.Context, ev transport.Event) error {
		payload, err := events.Decode(topic, ev.Payload)
		if err != nil {
			m.logger.Warn("dropping undecodable native event", "event", ev.Name, "topic", topic, "error", err)
			if m.onError != nil {
				m.onError(ctx, &events.DispatchError{Topic: topic, Err: err})
			}
			return nil
		}
		m.registry.Emit(ctx, topic, payload)
		return nil
	}
}

// On subscribes l to topic. Subscribing the same pointer listener twice
// returns the same handle.
func (m *Messenger) On(topic events.Topic, l events.Listener) events.SubscriptionID {
	return m.registry.Subscribe(topic, l)
}

// Off removes the subscription id from topic. Unknown ids are ignored.
func (m *Messenger) Off(topic events.Topic, id events.SubscriptionID) {
	m.registry.Unsubscribe(topic, id)
}

// Remove unsubscribes l from topic by identity.
func (m *Messenger) Remove(topic events.Topic, l events.Listener) {
	m.registry.Remove(topic, l)
}

// Events exposes the underlying registry, e.g. for events.On.
func (m *Messenger) Events() *events.Registry {
	return m.registry
}

// Catalog returns the topic table the messenger was bound with.
func (m *Messenger) Catalog() *topicmgr.Manager {
	return m.catalog
}

// GetMe returns the id of the logged-in user, or "" before login.
func (m *Messenger) GetMe() string {
	return m.session.CurrentUser()
}

// Close releases the transport. The messenger stays the provider's instance;
// further requests fail with transport.ErrClosed.
func (m *Messenger) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.transport.Close()
	})
	return m.closeErr
}
