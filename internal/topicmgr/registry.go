package topicmgr

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry stores catalog topics indexed by name and by native event name.
type Registry struct {
	entries  map[string]*RegistryEntry
	byNative map[string]string // native event -> topic name
	mu       sync.RWMutex
}

// NewRegistry creates a new topic registry
func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[string]*RegistryEntry),
		byNative: make(map[string]string),
	}
}

// Register adds a topic to the registry
func (r *Registry) Register(topic Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if topic == nil {
		return &TopicError{
			Type:    ErrorValidationFailed,
			Message: "cannot register nil topic",
		}
	}

	name := topic.Name()
	if name == "" {
		return &TopicError{
			Type:    ErrorValidationFailed,
			Message: "topic name cannot be empty",
		}
	}

	if _, exists := r.entries[name]; exists {
		return &TopicError{
			Type:    ErrorDuplicateRegistration,
			Topic:   name,
			Message: fmt.Sprintf("topic already registered: %s", name),
		}
	}

	native := topic.NativeEvent()
	if native != "" {
		if owner, taken := r.byNative[native]; taken {
			return &TopicError{
				Type:        ErrorDuplicateBinding,
				Topic:       name,
				NativeEvent: native,
				Message:     fmt.Sprintf("native event %s already bound to %s", native, owner),
			}
		}
		r.byNative[native] = name
	}

	r.entries[name] = &RegistryEntry{
		Topic:        topic,
		RegisteredAt: time.Now(),
	}
	return nil
}

// Get retrieves a topic by name
func (r *Registry) Get(name string) (Topic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[name]
	if !exists {
		return nil, false
	}
	entry.LookupCount++
	return entry.Topic, true
}

// GetByNative retrieves the topic bound to a native event name
func (r *Registry) GetByNative(native string) (Topic, bool) {
	r.mu.RLock()
	name, ok := r.byNative[native]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return r.Get(name)
}

// List returns all registered topics ordered by name
func (r *Registry) List() []Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := make([]Topic, 0, len(r.entries))
	for _, entry := range r.entries {
		topics = append(topics, entry.Topic)
	}
	sortTopics(topics)
	return topics
}

// ListByScope returns topics for a specific scope ordered by name
func (r *Registry) ListByScope(scope TopicScope) []Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var topics []Topic
	for _, entry := range r.entries {
		if entry.Topic.Scope() == scope {
			topics = append(topics, entry.Topic)
		}
	}
	sortTopics(topics)
	return topics
}

// GetEntry retrieves a registry entry by topic name
func (r *Registry) GetEntry(name string) (*RegistryEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[name]
	if !exists {
		return nil, false
	}
	copied := *entry
	return &copied, true
}

// Count returns the number of registered topics
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Reset removes all registered topics (primarily for testing)
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]*RegistryEntry)
	r.byNative = make(map[string]string)
}

// GetStats returns registry statistics
func (r *Registry) GetStats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := RegistryStats{
		TotalTopics:    len(r.entries),
		BoundTopics:    len(r.byNative),
		ScopeBreakdown: make(map[TopicScope]int),
	}
	for _, entry := range r.entries {
		stats.ScopeBreakdown[entry.Topic.Scope()]++
	}
	return stats
}

// RegistryStats provides statistics about the registry
type RegistryStats struct {
	TotalTopics    int                `json:"total_topics"`
	BoundTopics    int                `json:"bound_topics"`
	ScopeBreakdown map[TopicScope]int `json:"scope_breakdown"`
}

func sortTopics(topics []Topic) {
	sort.Slice(topics, func(i, j int) bool {
		return topics[i].Name() < topics[j].Name()
	})
}
