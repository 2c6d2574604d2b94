package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Dispatcher holds the one handler bound to each native event name and
// routes inbound events to it. Adapters embed it to implement Listen.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]EventHandler
	logger   *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handlers: make(map[string]EventHandler),
		logger:   logger,
	}
}

// Bind registers h for name. Rebinding a name fails with ErrAlreadyBound.
func (d *Dispatcher) Bind(name string, h EventHandler) error {
	if name == "" || h == nil {
		return fmt.Errorf("bind %q: name and handler are required", name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.handlers[name]; ok {
		return fmt.Errorf("bind %s: %w", name, ErrAlreadyBound)
	}
	d.handlers[name] = h
	return nil
}

// Unbind removes the handler of name and reports whether one was bound.
func (d *Dispatcher) Unbind(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.handlers[name]
	delete(d.handlers, name)
	return ok
}

// Bound reports whether name has a handler.
func (d *Dispatcher) Bound(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[name]
	return ok
}

// Names returns the bound native event names.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	return names
}

// Dispatch calls the handler bound to ev.Name. Events nobody listens for are
// dropped. It reports whether a handler ran.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) bool {
	d.mu.RLock()
	h, ok := d.handlers[ev.Name]
	d.mu.RUnlock()

	if !ok {
		d.logger.Debug("dropping unbound native event", "event", ev.Name)
		return false
	}
	if err := h(ctx, ev); err != nil {
		d.logger.Error("native event handler failed", "event", ev.Name, "error", err)
	}
	return true
}
