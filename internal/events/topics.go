package events

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/nfrund/messenger/internal/topicmgr"
)

// Topic names a category of events subscribers can listen to.
type Topic string

const (
	TopicCreateConversation Topic = "CreateConversation"
	TopicEditConversation   Topic = "EditConversation"
	TopicEditMessage        Topic = "EditMessage"
	TopicEditUser           Topic = "EditUser"
	TopicGetConversation    Topic = "GetConversation"
	TopicGetUser            Topic = "GetUser"
	TopicRemoveConversation Topic = "RemoveConversation"
	TopicSendMessage        Topic = "SendMessage"
	TopicSetStatus          Topic = "SetStatus"
	TopicSubscribe          Topic = "Subscribe"
	TopicTyping             Topic = "Typing"
	TopicUnsubscribe        Topic = "Unsubscribe"
	TopicError              Topic = "Error"
)

func (t Topic) String() string { return string(t) }

type definition struct {
	topic       Topic
	native      string
	scope       topicmgr.TopicScope
	description string
	payloadType string
	example     string
	decode      func([]byte) (Event, error)
}

// definitions is the static native-event table. Every Topic constant above
// appears exactly once.
var definitions = []definition{
	{TopicGetUser, "VIGetUser", topicmgr.ScopeUser,
		"Result of a getUser or getUsers request", "GetUserEvent",
		`{"name":"VIGetUser","user":{"userId":"u1","displayName":"Ann"}}`, decodeAs[GetUserEvent]},
	{TopicEditUser, "VIEditUser", topicmgr.ScopeUser,
		"A user's custom data was edited", "EditUserEvent",
		`{"name":"VIEditUser","user":{"userId":"u1","customData":{"k":"v"}}}`, decodeAs[EditUserEvent]},
	{TopicSetStatus, "VISetStatus", topicmgr.ScopeUser,
		"A user's online status changed", "SetStatusEvent",
		`{"name":"VISetStatus","userId":"u1","online":true}`, decodeAs[SetStatusEvent]},
	{TopicSubscribe, "VISubscribe", topicmgr.ScopeUser,
		"The current user subscribed to other users", "SubscribeEvent",
		`{"name":"VISubscribe","users":["u2","u3"]}`, decodeAs[SubscribeEvent]},
	{TopicUnsubscribe, "VIUnsubscribe", topicmgr.ScopeUser,
		"The current user unsubscribed from other users", "UnsubscribeEvent",
		`{"name":"VIUnsubscribe","users":["u2"]}`, decodeAs[UnsubscribeEvent]},
	{TopicCreateConversation, "VICreateConversation", topicmgr.ScopeConversation,
		"A conversation was created", "CreateConversationEvent",
		`{"name":"VICreateConversation","conversation":{"uuid":"c1","participants":["a","b"]}}`, decodeAs[CreateConversationEvent]},
	{TopicEditConversation, "VIEditConversation", topicmgr.ScopeConversation,
		"A conversation was edited", "EditConversationEvent",
		`{"name":"VIEditConversation","conversation":{"uuid":"c1","title":"Team"}}`, decodeAs[EditConversationEvent]},
	{TopicGetConversation, "VIGetConversation", topicmgr.ScopeConversation,
		"Result of a getConversation or getConversations request", "GetConversationEvent",
		`{"name":"VIGetConversation","conversation":{"uuid":"c1"}}`, decodeAs[GetConversationEvent]},
	{TopicRemoveConversation, "VIRemoveConversation", topicmgr.ScopeConversation,
		"A conversation was removed", "RemoveConversationEvent",
		`{"name":"VIRemoveConversation","conversation":{"uuid":"c1"}}`, decodeAs[RemoveConversationEvent]},
	{TopicSendMessage, "VISendMessage", topicmgr.ScopeMessage,
		"A message was sent to a conversation", "SendMessageEvent",
		`{"name":"VISendMessage","message":{"uuid":"m1","conversation":"c1","text":"hi"}}`, decodeAs[SendMessageEvent]},
	{TopicEditMessage, "VIEditMessage", topicmgr.ScopeMessage,
		"A message was edited", "EditMessageEvent",
		`{"name":"VIEditMessage","message":{"uuid":"m1","conversation":"c1","text":"hello"}}`, decodeAs[EditMessageEvent]},
	{TopicTyping, "VITyping", topicmgr.ScopeMessage,
		"A user is typing in a conversation", "TypingEvent",
		`{"name":"VITyping","conversation":"c1","userId":"u1"}`, decodeAs[TypingEvent]},
	{TopicError, "VIError", topicmgr.ScopeSystem,
		"The transport rejected an earlier request", "ErrorEvent",
		`{"name":"VIError","code":403,"description":"forbidden","action":"removeConversation"}`, decodeAs[ErrorEvent]},
}

var byTopic = func() map[Topic]*definition {
	m := make(map[Topic]*definition, len(definitions))
	for i := range definitions {
		m[definitions[i].topic] = &definitions[i]
	}
	return m
}()

// AllTopics returns every recognised topic.
func AllTopics() []Topic {
	out := make([]Topic, len(definitions))
	for i, d := range definitions {
		out[i] = d.topic
	}
	return out
}

// AllTopicNames returns every recognised topic as a string.
func AllTopicNames() []string {
	out := make([]string, len(definitions))
	for i, d := range definitions {
		out[i] = string(d.topic)
	}
	return out
}

// Known reports whether t is one of the recognised topics.
func Known(t Topic) bool {
	_, ok := byTopic[t]
	return ok
}

// CatalogTopics returns the topicmgr definitions of every recognised topic.
func CatalogTopics() []topicmgr.Topic {
	out := make([]topicmgr.Topic, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, topicmgr.Define(topicmgr.TopicConfig{
			Name:        string(d.topic),
			NativeEvent: d.native,
			Scope:       d.scope,
			Description: d.description,
			PayloadType: d.payloadType,
			Example:     d.example,
		}))
	}
	return out
}

// RegisterTopics registers every recognised topic with the given manager.
// Registering twice is harmless.
func RegisterTopics(m *topicmgr.Manager) error {
	return m.RegisterAll(CatalogTopics()...)
}

// MustRegisterTopics registers all topics with the default manager and panics on error
func MustRegisterTopics() {
	if err := RegisterTopics(topicmgr.Default()); err != nil {
		panic("failed to register messenger topics: " + err.Error())
	}
}

// Decode parses a native JSON payload into the typed event for topic.
func Decode(topic Topic, data []byte) (Event, error) {
	d, ok := byTopic[topic]
	if !ok {
		return nil, fmt.Errorf("decode %s: %w", topic, ErrUnknownTopic)
	}
	ev, err := d.decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", topic, err)
	}
	return ev, nil
}

func decodeAs[T Event](data []byte) (Event, error) {
	var v T
	if len(data) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if b, ok := any(&v).(interface{ setRaw([]byte) }); ok {
		b.setRaw(data)
	}
	return v, nil
}
