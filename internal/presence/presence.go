// Package presence keeps a roster of the users the messenger hears about:
// who is online according to SetStatus events and whom the current user is
// subscribed to.
package presence

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nfrund/messenger/internal/events"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// DefaultStaleThreshold is how long an online status is trusted without a
// fresh SetStatus event.
const DefaultStaleThreshold = 10 * time.Minute

type Presence struct {
	UserID    string    `json:"userId"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Tracker builds the roster from events emitted on a registry.
type Tracker struct {
	mu        sync.RWMutex
	presences map[string]Presence
	watched   map[string]struct{}
	handlers  []func(Presence)

	staleThreshold time.Duration
	now            func() time.Time
	logger         *slog.Logger

	registry *events.Registry
	subs     map[events.Topic]events.SubscriptionID
}

// Option is a function that configures a Tracker.
type Option func(*Tracker)

// WithStaleThreshold sets a custom stale threshold. Zero disables expiry.
func WithStaleThreshold(d time.Duration) Option {
	return func(t *Tracker) {
		t.staleThreshold = d
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates an empty roster.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		presences:      make(map[string]Presence),
		watched:        make(map[string]struct{}),
		staleThreshold: DefaultStaleThreshold,
		now:            func() time.Time { return time.Now().UTC() },
		logger:         slog.Default().With("service", "presence"),
		subs:           make(map[events.Topic]events.SubscriptionID),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Attach subscribes the tracker to r. Attaching again moves it to the new registry.
func (t *Tracker) Attach(r *events.Registry) {
	t.Detach()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.registry = r
	t.subs[events.TopicSetStatus] = events.OnTopic(r, t.onSetStatus)
	t.subs[events.TopicSubscribe] = events.OnTopic(r, t.onSubscribe)
	t.subs[events.TopicUnsubscribe] = events.OnTopic(r, t.onUnsubscribe)
}

// Detach removes the tracker's subscriptions. The roster is kept.
func (t *Tracker) Detach() {
	t.mu.Lock()
	r, subs := t.registry, t.subs
	t.registry = nil
	t.subs = make(map[events.Topic]events.SubscriptionID)
	t.mu.Unlock()

	if r == nil {
		return
	}
	for topic, id := range subs {
		r.Unsubscribe(topic, id)
	}
}

// Shutdown detaches the tracker.
func (t *Tracker) Shutdown() {
	t.Detach()
}

// OnChange registers fn to be called after every status change.
func (t *Tracker) OnChange(fn func(Presence)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, fn)
}

func (t *Tracker) onSetStatus(ctx context.Context, ev events.SetStatusEvent) error {
	if ev.UserID == "" {
		return nil
	}
	status := StatusOffline
	if ev.Online {
		status = StatusOnline
	}
	ts := ev.Time()
	if ts.IsZero() {
		ts = t.now()
	}
	p := Presence{UserID: ev.UserID, Status: status, Timestamp: ts}

	t.mu.Lock()
	if prev, ok := t.presences[ev.UserID]; ok && prev.Timestamp.After(ts) {
		t.mu.Unlock()
		t.logger.Debug("ignoring out-of-order status", "user", ev.UserID)
		return nil
	}
	t.presences[ev.UserID] = p
	handlers := slices.Clone(t.handlers)
	t.mu.Unlock()

	for _, fn := range handlers {
		fn(p)
	}
	return nil
}

func (t *Tracker) onSubscribe(ctx context.Context, ev events.SubscribeEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, u := range ev.Users {
		t.watched[u] = struct{}{}
	}
	return nil
}

func (t *Tracker) onUnsubscribe(ctx context.Context, ev events.UnsubscribeEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, u := range ev.Users {
		delete(t.watched, u)
	}
	return nil
}

// GetPresence returns the last known status of a user. A stale online
// status is reported as offline.
func (t *Tracker) GetPresence(userID string) (Presence, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.presences[userID]
	if !ok {
		return Presence{}, false
	}
	if t.staleLocked(p) {
		p.Status = StatusOffline
	}
	return p, true
}

// GetOnlineUsers returns the users currently considered online, sorted.
func (t *Tracker) GetOnlineUsers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]string, 0, len(t.presences))
	for userID, p := range t.presences {
		if p.Status == StatusOnline && !t.staleLocked(p) {
			result = append(result, userID)
		}
	}
	slices.Sort(result)
	return result
}

// Watched returns the users the current user is subscribed to, sorted.
func (t *Tracker) Watched() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]string, 0, len(t.watched))
	for u := range t.watched {
		result = append(result, u)
	}
	slices.Sort(result)
	return result
}

func (t *Tracker) staleLocked(p Presence) bool {
	return t.staleThreshold > 0 && p.Timestamp.Before(t.now().Add(-t.staleThreshold))
}
