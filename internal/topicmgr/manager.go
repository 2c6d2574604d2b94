package topicmgr

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Manager provides the main API for the topic catalog
type Manager struct {
	registry  *Registry
	validator *Validator
	mu        sync.RWMutex
	createdAt time.Time
}

// NewManager creates a new topic manager with registry and validator
func NewManager() *Manager {
	return &Manager{
		registry:  NewRegistry(),
		validator: NewValidator(),
		createdAt: time.Now(),
	}
}

// Register validates a topic and adds it to the catalog
func (m *Manager) Register(topic Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if topic == nil {
		return &TopicError{
			Type:    ErrorValidationFailed,
			Message: "cannot register nil topic",
		}
	}

	if err := m.validator.ValidateDefinition(topic); err != nil {
		return &TopicError{
			Type:        ErrorValidationFailed,
			Topic:       topic.Name(),
			NativeEvent: topic.NativeEvent(),
			Message:     "topic validation failed",
			Cause:       err,
		}
	}

	return m.registry.Register(topic)
}

// RegisterAll registers every topic, skipping ones that are already present
// with the same native binding. Any other failure stops registration.
func (m *Manager) RegisterAll(topics ...Topic) error {
	for _, topic := range topics {
		err := m.Register(topic)
		if err == nil {
			continue
		}
		if errors.Is(err, &TopicError{Type: ErrorDuplicateRegistration}) {
			if existing, ok := m.Get(topic.Name()); ok && existing.NativeEvent() == topic.NativeEvent() {
				continue
			}
		}
		return err
	}
	return nil
}

// Get retrieves a topic by name
func (m *Manager) Get(name string) (Topic, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.registry.Get(name)
}

// GetByNative retrieves the topic bound to a native event name
func (m *Manager) GetByNative(native string) (Topic, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.registry.GetByNative(native)
}

// CheckTopicExists verifies if a topic is registered
func (m *Manager) CheckTopicExists(name string) bool {
	_, exists := m.Get(name)
	return exists
}

// List returns all registered topics
func (m *Manager) List() []Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.registry.List()
}

// ListByScope returns topics for a specific scope
func (m *Manager) ListByScope(scope TopicScope) []Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.registry.ListByScope(scope)
}

// Count returns the total number of registered topics
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.registry.Count()
}

// ValidateTopicName checks if a topic name is valid without creating a topic
func (m *Manager) ValidateTopicName(name string) error {
	return m.validator.ValidateName(name)
}

// CheckBindings verifies that every required topic is registered and bound to
// a native event. All problems are reported together.
func (m *Manager) CheckBindings(required []string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for _, name := range required {
		topic, ok := m.registry.Get(name)
		if !ok {
			errs = append(errs, &TopicError{
				Type:    ErrorTopicNotFound,
				Topic:   name,
				Message: fmt.Sprintf("topic not registered: %s", name),
			})
			continue
		}
		if topic.NativeEvent() == "" {
			errs = append(errs, &TopicError{
				Type:    ErrorMissingBinding,
				Topic:   name,
				Message: fmt.Sprintf("topic has no native event binding: %s", name),
			})
		}
	}
	return errors.Join(errs...)
}

// GetStats returns manager statistics
func (m *Manager) GetStats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return ManagerStats{
		CreatedAt:     m.createdAt,
		Uptime:        time.Since(m.createdAt),
		RegistryStats: m.registry.GetStats(),
	}
}

// ManagerStats provides statistics about the manager
type ManagerStats struct {
	CreatedAt     time.Time     `json:"created_at"`
	Uptime        time.Duration `json:"uptime"`
	RegistryStats RegistryStats `json:"registry_stats"`
}

// Reset removes all registered topics (primarily for testing)
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.registry.Reset()
}

// Global manager instance
var (
	defaultManager     *Manager
	defaultManagerOnce sync.Once
)

// Default returns the default global manager
func Default() *Manager {
	defaultManagerOnce.Do(func() {
		defaultManager = NewManager()
	})
	return defaultManager
}

// Get retrieves a topic from the default manager
func Get(name string) (Topic, bool) {
	return Default().Get(name)
}

// List returns all topics from the default manager
func List() []Topic {
	return Default().List()
}
