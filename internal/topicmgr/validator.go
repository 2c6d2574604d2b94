package topicmgr

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator checks topic definitions against the catalog naming rules.
type Validator struct {
	// namePattern matches topic names such as GetUser or CreateConversation
	namePattern *regexp.Regexp
	// nativePattern matches transport event names such as VIGetUser
	nativePattern *regexp.Regexp
}

// NewValidator creates a new topic validator
func NewValidator() *Validator {
	return &Validator{
		namePattern:   regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`),
		nativePattern: regexp.MustCompile(`^VI[A-Z][A-Za-z0-9]*$`),
	}
}

// ValidateDefinition validates a topic definition
func (v *Validator) ValidateDefinition(topic Topic) error {
	if topic == nil {
		return fmt.Errorf("topic cannot be nil")
	}

	if err := v.ValidateName(topic.Name()); err != nil {
		return fmt.Errorf("invalid topic name: %w", err)
	}

	if native := topic.NativeEvent(); native != "" {
		if err := v.ValidateNativeEvent(native); err != nil {
			return fmt.Errorf("invalid native event: %w", err)
		}
	}

	if strings.TrimSpace(topic.Description()) == "" {
		return fmt.Errorf("topic description cannot be empty")
	}

	if !validScope(topic.Scope()) {
		return fmt.Errorf("invalid topic scope: %q", topic.Scope())
	}

	return nil
}

// ValidateName checks if a topic name follows the naming convention
func (v *Validator) ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > 64 {
		return fmt.Errorf("name too long (max 64 characters)")
	}
	if !v.namePattern.MatchString(name) {
		return fmt.Errorf("name must be PascalCase alphanumeric: %q", name)
	}
	return nil
}

// ValidateNativeEvent checks if a native event name follows the transport convention
func (v *Validator) ValidateNativeEvent(name string) error {
	if !v.nativePattern.MatchString(name) {
		return fmt.Errorf("native event must look like VI<Name>: %q", name)
	}
	return nil
}

func validScope(scope TopicScope) bool {
	for _, s := range ValidScopes {
		if s == scope {
			return true
		}
	}
	return false
}
