package messenger

import (
	"context"
	"sync"
)

// Factory supplies the dependencies of the instance. It runs at most once
// per successful construction, on first access.
type Factory func() (Deps, error)

// FromDeps returns a Factory that always yields deps.
func FromDeps(deps Deps) Factory {
	return func() (Deps, error) { return deps, nil }
}

// Provider owns at most one Messenger.
type Provider struct {
	factory Factory

	mu       sync.Mutex
	instance *Messenger
}

// NewProvider returns an uninitialized provider.
func NewProvider(f Factory) *Provider {
	return &Provider{factory: f}
}

// Instance returns the messenger, constructing it on first call. Concurrent
// first calls construct exactly once. A failed construction leaves the
// provider uninitialized.
func (p *Provider) Instance() (*Messenger, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.instance != nil {
		return p.instance, nil
	}
	return p.construct()
}

// New constructs the messenger directly. Only the first successful call
// does so; every later call fails with ErrAlreadyInitialized.
func (p *Provider) New() (*Messenger, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.instance != nil {
		return nil, &InitError{Err: ErrAlreadyInitialized}
	}
	return p.construct()
}

// Ready reports whether the instance exists.
func (p *Provider) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instance != nil
}

// Close closes the instance, if any.
func (p *Provider) Close() error {
	p.mu.Lock()
	m := p.instance
	p.mu.Unlock()

	if m == nil {
		return nil
	}
	return m.Close()
}

func (p *Provider) construct() (*Messenger, error) {
	if p.factory == nil {
		return nil, &InitError{Err: ErrNotConfigured}
	}
	deps, err := p.factory()
	if err != nil {
		return nil, &InitError{Err: err}
	}
	m, err := build(context.Background(), deps)
	if err != nil {
		return nil, &InitError{Err: err}
	}
	p.instance = m
	return m, nil
}

var (
	defaultMu       sync.Mutex
	defaultProvider *Provider
)

// Configure installs the factory of the process-wide instance. It may be
// called again until the instance exists.
func Configure(f Factory) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultProvider != nil && defaultProvider.Ready() {
		return &InitError{Err: ErrAlreadyInitialized}
	}
	defaultProvider = NewProvider(f)
	return nil
}

// GetInstance returns the process-wide messenger, constructing it on first use.
// Configure waits while the instance is being constructed, so the factory
// must not call back into this package's process-wide functions.
func GetInstance() (*Messenger, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultProvider == nil {
		return nil, ErrNotConfigured
	}
	return defaultProvider.Instance()
}

// New constructs the process-wide messenger. It fails once an instance exists.
func New() (*Messenger, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultProvider == nil {
		return nil, ErrNotConfigured
	}
	return defaultProvider.New()
}
