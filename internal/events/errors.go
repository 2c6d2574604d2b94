package events

import (
	"errors"
	"fmt"
)

// ErrUnknownTopic is returned by Decode for topics outside the catalog.
var ErrUnknownTopic = errors.New("unknown topic")

// DispatchError describes one listener invocation that failed during Emit.
type DispatchError struct {
	Topic        Topic
	Subscription SubscriptionID
	Err          error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("listener %s on %s: %v", e.Subscription, e.Topic, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking listener.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("listener panicked: %v", e.Value)
}

// PayloadTypeError is reported when a typed listener receives a payload of
// another type than the one it was registered for.
type PayloadTypeError struct {
	Topic Topic
	Want  string
	Got   string
}

func (e *PayloadTypeError) Error() string {
	return fmt.Sprintf("topic %s: expected payload %s, got %s", e.Topic, e.Want, e.Got)
}
