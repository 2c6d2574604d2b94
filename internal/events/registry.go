package events

import (
	"context"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nfrund/messenger/internal/topicmgr"
)

// Listener receives events emitted on the topics it is subscribed to.
type Listener interface {
	HandleEvent(ctx context.Context, ev Event) error
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(ctx context.Context, ev Event) error

// HandleEvent calls f(ctx, ev).
func (f ListenerFunc) HandleEvent(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// SubscriptionID is the opaque handle returned by Subscribe.
type SubscriptionID string

// ErrorHandler is the diagnostic hook for listener failures.
type ErrorHandler func(ctx context.Context, err *DispatchError)

type subscription struct {
	id       SubscriptionID
	listener Listener
	// identity is the listener itself when its dynamic type is comparable,
	// nil otherwise. Only non-nil identities are deduplicated.
	identity any
}

// Registry routes events to the listeners subscribed to their topic.
//
// The per-topic subscriber slices are copy-on-write: Emit takes the slice that
// is current when it starts and dispatches without holding the lock, so
// listeners added or removed during an emission take effect from the next one.
type Registry struct {
	mu     sync.RWMutex
	topics map[Topic][]*subscription

	logger  *slog.Logger
	onError ErrorHandler
	catalog *topicmgr.Manager

	emitted  atomic.Int64
	failures atomic.Int64
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithErrorHandler installs a hook that is called for every failed listener invocation.
func WithErrorHandler(h ErrorHandler) Option {
	return func(r *Registry) {
		r.onError = h
	}
}

// WithCatalog enables the unknown-topic diagnostic against the given topic catalog.
func WithCatalog(m *topicmgr.Manager) Option {
	return func(r *Registry) {
		r.catalog = m
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		topics: make(map[Topic][]*subscription),
		logger: slog.Default().With("component", "events"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe adds l to topic and returns its handle. Subscribing the same
// comparable listener to the same topic again returns the existing handle.
// Func listeners such as ListenerFunc have no identity in Go, so each call
// adds a new subscription; keep the handle and pass it to Unsubscribe.
// Any topic is accepted; topics outside the catalog just never fire.
func (r *Registry) Subscribe(topic Topic, l Listener) SubscriptionID {
	if l == nil {
		r.logger.Warn("ignoring nil listener", "topic", topic)
		return ""
	}
	identity := identityOf(l)

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.topics[topic]
	if identity != nil {
		for _, s := range current {
			if s.identity != nil && s.identity == identity {
				return s.id
			}
		}
	}

	s := &subscription{
		id:       SubscriptionID(uuid.NewString()),
		listener: l,
		identity: identity,
	}
	next := make([]*subscription, len(current), len(current)+1)
	copy(next, current)
	r.topics[topic] = append(next, s)

	r.warnUnknown(topic, "subscribe")
	return s.id
}

// Unsubscribe removes the subscription with the given handle from topic.
// Unknown topics and handles are a no-op.
func (r *Registry) Unsubscribe(topic Topic, id SubscriptionID) {
	r.removeWhere(topic, func(s *subscription) bool { return s.id == id })
}

// Remove removes l from topic by identity. It is a no-op for listeners that
// are not subscribed or whose type is not comparable (use Unsubscribe for those).
func (r *Registry) Remove(topic Topic, l Listener) {
	identity := identityOf(l)
	if identity == nil {
		return
	}
	r.removeWhere(topic, func(s *subscription) bool {
		return s.identity != nil && s.identity == identity
	})
}

func (r *Registry) removeWhere(topic Topic, match func(*subscription) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.topics[topic]
	if !ok {
		return
	}
	next := make([]*subscription, 0, len(current))
	for _, s := range current {
		if !match(s) {
			next = append(next, s)
		}
	}
	if len(next) == len(current) {
		return
	}
	if len(next) == 0 {
		delete(r.topics, topic)
		return
	}
	r.topics[topic] = next
}

// Emit delivers ev to every listener subscribed to topic, synchronously and
// in subscription order. A listener that returns an error or panics is
// reported and skipped; the rest still run. Emit returns the number of
// listeners that handled the event without failing.
func (r *Registry) Emit(ctx context.Context, topic Topic, ev Event) int {
	r.mu.RLock()
	subs := r.topics[topic]
	r.mu.RUnlock()

	r.emitted.Add(1)
	if len(subs) == 0 {
		r.warnUnknown(topic, "emit")
		return 0
	}

	delivered := 0
	for _, s := range subs {
		if err := invoke(ctx, s.listener, ev); err != nil {
			r.report(ctx, &DispatchError{Topic: topic, Subscription: s.id, Err: err})
			continue
		}
		delivered++
	}
	return delivered
}

// Publish emits ev on its own topic.
func (r *Registry) Publish(ctx context.Context, ev Event) int {
	if ev == nil {
		return 0
	}
	return r.Emit(ctx, ev.Topic(), ev)
}

// Count returns the number of listeners subscribed to topic.
func (r *Registry) Count(topic Topic) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.topics[topic])
}

// Topics returns the topics that currently have at least one listener.
func (r *Registry) Topics() []Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Topic, 0, len(r.topics))
	for t := range r.topics {
		out = append(out, t)
	}
	return out
}

// Stats returns counters describing registry activity.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	subs := 0
	for _, s := range r.topics {
		subs += len(s)
	}
	topics := len(r.topics)
	r.mu.RUnlock()

	return RegistryStats{
		Topics:        topics,
		Subscriptions: subs,
		Emitted:       r.emitted.Load(),
		Failures:      r.failures.Load(),
	}
}

// RegistryStats provides statistics about the registry
type RegistryStats struct {
	Topics        int   `json:"topics"`
	Subscriptions int   `json:"subscriptions"`
	Emitted       int64 `json:"emitted"`
	Failures      int64 `json:"failures"`
}

func (r *Registry) report(ctx context.Context, err *DispatchError) {
	r.failures.Add(1)
	r.logger.Error("listener failed", "topic", err.Topic, "subscription", err.Subscription, "error", err.Err)
	if r.onError != nil {
		r.onError(ctx, err)
	}
}

func (r *Registry) warnUnknown(topic Topic, op string) {
	if r.catalog == nil || r.catalog.CheckTopicExists(string(topic)) {
		return
	}
	r.logger.Debug("unknown topic", "topic", topic, "op", op)
}

func invoke(ctx context.Context, l Listener, ev Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	return l.HandleEvent(ctx, ev)
}

func identityOf(l Listener) any {
	if l == nil {
		return nil
	}
	if !reflect.TypeOf(l).Comparable() {
		return nil
	}
	return l
}
