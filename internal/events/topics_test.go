package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/messenger/internal/topicmgr"
)

func TestCatalog_Complete(t *testing.T) {
	m := topicmgr.NewManager()
	require.NoError(t, RegisterTopics(m))
	require.NoError(t, RegisterTopics(m), "re-registering the catalog is harmless")

	assert.Equal(t, len(AllTopics()), m.Count())
	assert.NoError(t, m.CheckBindings(AllTopicNames()))

	for _, name := range []string{"GetUser", "SetStatus", "Subscribe", "Unsubscribe", "EditUser",
		"GetConversation", "CreateConversation", "RemoveConversation"} {
		topic, ok := m.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, "VI"+name, topic.NativeEvent())
	}
}

func TestMustRegisterTopics(t *testing.T) {
	assert.NotPanics(t, MustRegisterTopics)
	assert.NotPanics(t, MustRegisterTopics)
	assert.NoError(t, topicmgr.Default().CheckBindings(AllTopicNames()))
}

func TestDecode(t *testing.T) {
	for _, topic := range CatalogTopics() {
		t.Run(topic.Name(), func(t *testing.T) {
			ev, err := Decode(Topic(topic.Name()), []byte(topic.Example()))
			require.NoError(t, err)
			assert.Equal(t, Topic(topic.Name()), ev.Topic())
		})
	}

	t.Run("fields", func(t *testing.T) {
		ev, err := Decode(TopicCreateConversation,
			[]byte(`{"name":"VICreateConversation","sequence":4,"timestamp":1700000000000,"conversation":{"uuid":"c1","participants":["a","b"],"uber":true}}`))
		require.NoError(t, err)
		created, ok := ev.(CreateConversationEvent)
		require.True(t, ok)
		assert.Equal(t, "c1", created.Conversation.UUID)
		assert.Equal(t, []string{"a", "b"}, created.Conversation.Participants)
		assert.True(t, created.Conversation.Uber)
		assert.Equal(t, int64(4), created.Sequence)
		assert.Equal(t, int64(1700000000000), created.Time().UnixMilli())
	})

	t.Run("unmodelled fields stay in Raw", func(t *testing.T) {
		ev, err := Decode(TopicGetUser, []byte(`{"id":"u1","user":{"userId":"u1"}}`))
		require.NoError(t, err)
		got, ok := ev.(GetUserEvent)
		require.True(t, ok)
		assert.Equal(t, "u1", got.User.UserID)
		assert.JSONEq(t, `{"id":"u1","user":{"userId":"u1"}}`, string(got.Raw))
	})

	t.Run("empty payload", func(t *testing.T) {
		ev, err := Decode(TopicSetStatus, nil)
		require.NoError(t, err)
		assert.Equal(t, SetStatusEvent{}, ev)
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := Decode(TopicGetUser, []byte(`{"user":`))
		assert.Error(t, err)
	})

	t.Run("unknown topic", func(t *testing.T) {
		_, err := Decode("Nope", []byte(`{}`))
		assert.True(t, errors.Is(err, ErrUnknownTopic))
		assert.False(t, Known("Nope"))
		assert.True(t, Known(TopicTyping))
	})
}
