package wsserver

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
)

var (
	// ErrMethodAlreadyAllowed is returned when trying to add a duplicate method
	ErrMethodAlreadyAllowed = errors.New("method already in whitelist")
	// ErrInvalidMethod is returned when an empty method is provided
	ErrInvalidMethod = errors.New("method cannot be empty")
)

// Whitelist contains the request methods clients are allowed to forward.
type Whitelist struct {
	mu      sync.RWMutex
	methods []string
}

// NewWhitelist creates a whitelist with the given methods. Empty names are dropped.
func NewWhitelist(methods ...string) *Whitelist {
	valid := make([]string, 0, len(methods))
	for _, m := range methods {
		if m != "" && !slices.Contains(valid, m) {
			valid = append(valid, m)
		}
	}
	return &Whitelist{methods: valid}
}

// IsAllowed checks if a method is in the whitelist.
func (w *Whitelist) IsAllowed(method string) bool {
	if method == "" {
		return false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	return slices.Contains(w.methods, method)
}

// Allow adds a method to the whitelist.
func (w *Whitelist) Allow(method string) error {
	if method == "" {
		slog.Warn("attempted to add empty method to whitelist")
		return ErrInvalidMethod
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if slices.Contains(w.methods, method) {
		slog.Debug("method already in whitelist", "method", method)
		return ErrMethodAlreadyAllowed
	}

	w.methods = append(w.methods, method)
	slog.Info("added method to whitelist", "method", method)
	return nil
}

// Methods returns a copy of the allowed methods.
func (w *Whitelist) Methods() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.methods)
}
