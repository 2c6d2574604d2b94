package events

import (
	"time"

	"github.com/goccy/go-json"
)

// Event is implemented by every payload delivered through the registry.
// Each topic has exactly one payload type, so a type switch on Event is a
// switch on topic.
type Event interface {
	Topic() Topic
}

// Base carries the fields every native event has.
type Base struct {
	// Name is the native event name the payload arrived under.
	Name        string `json:"name,omitempty"`
	InitiatorID string `json:"initiator,omitempty"`
	Sequence    int64  `json:"sequence,omitempty"`
	// Timestamp is in unix milliseconds.
	Timestamp int64 `json:"timestamp,omitempty"`
	// Raw is the native payload as received, including fields the typed
	// event does not model.
	Raw json.RawMessage `json:"-"`
}

func (b *Base) setRaw(data []byte) {
	b.Raw = append(json.RawMessage(nil), data...)
}

// Time returns the event timestamp, or the zero time when unset.
func (b Base) Time() time.Time {
	if b.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(b.Timestamp)
}

// User is a messaging user as reported by the transport.
type User struct {
	UserID             string         `json:"userId"`
	DisplayName        string         `json:"displayName,omitempty"`
	CustomData         map[string]any `json:"customData,omitempty"`
	PrivateCustomData  map[string]any `json:"privateCustomData,omitempty"`
	Conversations      []string       `json:"conversationsList,omitempty"`
	LeftConversations  []string       `json:"leaveConversationList,omitempty"`
	NotificationEvents []string       `json:"notifications,omitempty"`
	IsDeleted          bool           `json:"isDeleted,omitempty"`
}

// Conversation is a conversation as reported by the transport.
type Conversation struct {
	UUID         string         `json:"uuid"`
	Title        string         `json:"title,omitempty"`
	Participants []string       `json:"participants,omitempty"`
	Moderators   []string       `json:"moderators,omitempty"`
	Distinct     bool           `json:"distinct,omitempty"`
	PublicJoin   bool           `json:"publicJoin,omitempty"`
	Uber         bool           `json:"uber,omitempty"`
	CustomData   map[string]any `json:"customData,omitempty"`
	LastSequence int64          `json:"lastSequence,omitempty"`
	LastUpdate   int64          `json:"lastUpdate,omitempty"`
}

// Message is a conversation message as reported by the transport.
type Message struct {
	UUID         string           `json:"uuid"`
	Conversation string           `json:"conversation"`
	Sender       string           `json:"sender,omitempty"`
	Text         string           `json:"text,omitempty"`
	Payload      []map[string]any `json:"payload,omitempty"`
	Sequence     int64            `json:"sequence,omitempty"`
}

// UserEvent is the shared shape of user results.
type UserEvent struct {
	Base
	User User `json:"user"`
}

// StatusEvent reports a user's online status.
type StatusEvent struct {
	Base
	UserID string `json:"userId"`
	Online bool   `json:"online"`
}

// SubscriptionEvent reports the users a subscription change applied to.
type SubscriptionEvent struct {
	Base
	Users []string `json:"users"`
}

// ConversationEvent is the shared shape of conversation results.
type ConversationEvent struct {
	Base
	Conversation Conversation `json:"conversation"`
}

// MessageEvent is the shared shape of message results.
type MessageEvent struct {
	Base
	Message Message `json:"message"`
}

type (
	GetUserEvent            struct{ UserEvent }
	EditUserEvent           struct{ UserEvent }
	SetStatusEvent          struct{ StatusEvent }
	SubscribeEvent          struct{ SubscriptionEvent }
	UnsubscribeEvent        struct{ SubscriptionEvent }
	CreateConversationEvent struct{ ConversationEvent }
	EditConversationEvent   struct{ ConversationEvent }
	GetConversationEvent    struct{ ConversationEvent }
	RemoveConversationEvent struct{ ConversationEvent }
	SendMessageEvent        struct{ MessageEvent }
	EditMessageEvent        struct{ MessageEvent }
)

// TypingEvent reports that a user is typing in a conversation.
type TypingEvent struct {
	Base
	Conversation string `json:"conversation"`
	UserID       string `json:"userId"`
}

// ErrorEvent relays a failure the transport reported for an earlier request.
type ErrorEvent struct {
	Base
	Code        int    `json:"code"`
	Description string `json:"description"`
	// Action names the request that failed, e.g. "createConversation".
	Action string `json:"action,omitempty"`
}

func (GetUserEvent) Topic() Topic            { return TopicGetUser }
func (EditUserEvent) Topic() Topic           { return TopicEditUser }
func (SetStatusEvent) Topic() Topic          { return TopicSetStatus }
func (SubscribeEvent) Topic() Topic          { return TopicSubscribe }
func (UnsubscribeEvent) Topic() Topic        { return TopicUnsubscribe }
func (CreateConversationEvent) Topic() Topic { return TopicCreateConversation }
func (EditConversationEvent) Topic() Topic   { return TopicEditConversation }
func (GetConversationEvent) Topic() Topic    { return TopicGetConversation }
func (RemoveConversationEvent) Topic() Topic { return TopicRemoveConversation }
func (SendMessageEvent) Topic() Topic        { return TopicSendMessage }
func (EditMessageEvent) Topic() Topic        { return TopicEditMessage }
func (TypingEvent) Topic() Topic             { return TopicTyping }
func (ErrorEvent) Topic() Topic              { return TopicError }
