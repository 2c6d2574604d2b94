package topicmgr

import (
	"time"
)

// Topic is one entry of the messenger topic catalog.
type Topic interface {
	// Name returns the topic identifier subscribers listen on (e.g. "GetUser").
	Name() string

	// NativeEvent returns the transport event name bound to this topic (e.g. "VIGetUser").
	NativeEvent() string

	// Description returns human-readable documentation
	Description() string

	// PayloadType names the Go type carried by events on this topic
	PayloadType() string

	// Example returns a sample native payload
	Example() string

	// Metadata returns additional topic information
	Metadata() map[string]interface{}

	// Scope returns the category the topic belongs to
	Scope() TopicScope
}

// TypedTopic is the concrete Topic produced by Define.
type TypedTopic struct {
	name        string
	nativeEvent string
	description string
	payloadType string
	example     string
	metadata    map[string]interface{}
	scope       TopicScope
}

var _ Topic = (*TypedTopic)(nil)

// TopicConfig holds configuration for creating a new topic
type TopicConfig struct {
	Name        string                 `json:"name"`         // Unique identifier
	NativeEvent string                 `json:"native_event"` // Bound transport event name
	Scope       TopicScope             `json:"scope"`        // Category
	Description string                 `json:"description"`  // Human-readable description
	PayloadType string                 `json:"payload_type"` // Go payload type name
	Example     string                 `json:"example"`      // Sample native payload
	Metadata    map[string]interface{} `json:"metadata"`     // Additional data
}

// TopicScope groups topics by the kind of object they report on.
type TopicScope string

const (
	ScopeUser         TopicScope = "user"
	ScopeConversation TopicScope = "conversation"
	ScopeMessage      TopicScope = "message"
	ScopeSystem       TopicScope = "system"
)

// ValidScopes lists every scope a topic may declare.
var ValidScopes = []TopicScope{ScopeUser, ScopeConversation, ScopeMessage, ScopeSystem}

// RegistryEntry represents a topic entry in the registry with metadata
type RegistryEntry struct {
	Topic        Topic     `json:"topic"`
	RegisteredAt time.Time `json:"registered_at"`
	LookupCount  int64     `json:"lookup_count"`
}

// TopicError represents structured errors in the topic catalog
type TopicError struct {
	Type        ErrorType `json:"type"`
	Topic       string    `json:"topic"`
	NativeEvent string    `json:"native_event,omitempty"`
	Message     string    `json:"message"`
	Cause       error     `json:"cause,omitempty"`
}

// ErrorType defines the type of topic catalog error
type ErrorType string

const (
	ErrorTopicNotFound         ErrorType = "topic_not_found"
	ErrorDuplicateRegistration ErrorType = "duplicate_registration"
	ErrorDuplicateBinding      ErrorType = "duplicate_binding"
	ErrorMissingBinding        ErrorType = "missing_binding"
	ErrorValidationFailed      ErrorType = "validation_failed"
	ErrorInvalidScope          ErrorType = "invalid_scope"
)

// Error implements the error interface
func (e *TopicError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *TopicError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *TopicError of the same Type, so callers can
// write errors.Is(err, &TopicError{Type: ErrorMissingBinding}).
func (e *TopicError) Is(target error) bool {
	t, ok := target.(*TopicError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// Define creates a new catalog topic from config.
func Define(config TopicConfig) Topic {
	return &TypedTopic{
		name:        config.Name,
		nativeEvent: config.NativeEvent,
		description: config.Description,
		payloadType: config.PayloadType,
		example:     config.Example,
		metadata:    config.Metadata,
		scope:       config.Scope,
	}
}

// Name returns the topic's unique identifier
func (t *TypedTopic) Name() string {
	return t.name
}

// NativeEvent returns the bound transport event name
func (t *TypedTopic) NativeEvent() string {
	return t.nativeEvent
}

// Description returns human-readable documentation
func (t *TypedTopic) Description() string {
	return t.description
}

// PayloadType returns the payload type name
func (t *TypedTopic) PayloadType() string {
	return t.payloadType
}

// Example returns a sample native payload
func (t *TypedTopic) Example() string {
	return t.example
}

// Metadata returns a copy of the topic metadata
func (t *TypedTopic) Metadata() map[string]interface{} {
	result := make(map[string]interface{}, len(t.metadata))
	for k, v := range t.metadata {
		result[k] = v
	}
	return result
}

// Scope returns the topic category
func (t *TypedTopic) Scope() TopicScope {
	return t.scope
}

// String returns the topic name for easy debugging
func (t *TypedTopic) String() string {
	return t.name
}
