package topicmgr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTopic(name, native string) Topic {
	return Define(TopicConfig{
		Name:        name,
		NativeEvent: native,
		Scope:       ScopeUser,
		Description: "test topic " + name,
		PayloadType: "UserEvent",
	})
}

func TestManager_Register(t *testing.T) {
	t.Run("Register and Get", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.Register(testTopic("GetUser", "VIGetUser")))

		topic, ok := m.Get("GetUser")
		require.True(t, ok)
		assert.Equal(t, "VIGetUser", topic.NativeEvent())

		byNative, ok := m.GetByNative("VIGetUser")
		require.True(t, ok)
		assert.Equal(t, "GetUser", byNative.Name())
	})

	t.Run("Duplicate name is rejected", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.Register(testTopic("GetUser", "VIGetUser")))

		err := m.Register(testTopic("GetUser", "VIGetUserAgain"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, &TopicError{Type: ErrorDuplicateRegistration}))
	})

	t.Run("Duplicate native binding is rejected", func(t *testing.T) {
		m := NewManager()
		require.NoError(t, m.Register(testTopic("GetUser", "VIGetUser")))

		err := m.Register(testTopic("EditUser", "VIGetUser"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, &TopicError{Type: ErrorDuplicateBinding}))
		assert.False(t, m.CheckTopicExists("EditUser"))
	})

	t.Run("Invalid definitions fail validation", func(t *testing.T) {
		m := NewManager()
		cases := []Topic{
			testTopic("getUser", "VIGetUser"),
			testTopic("GetUser", "GetUser"),
			Define(TopicConfig{Name: "GetUser", NativeEvent: "VIGetUser", Scope: ScopeUser}),
			Define(TopicConfig{Name: "GetUser", NativeEvent: "VIGetUser", Scope: "bogus", Description: "x"}),
		}
		for _, topic := range cases {
			err := m.Register(topic)
			require.Error(t, err, topic.Name())
			assert.True(t, errors.Is(err, &TopicError{Type: ErrorValidationFailed}))
		}
		assert.Equal(t, 0, m.Count())
	})

	t.Run("RegisterAll tolerates identical re-registration", func(t *testing.T) {
		m := NewManager()
		topics := []Topic{testTopic("GetUser", "VIGetUser"), testTopic("EditUser", "VIEditUser")}
		require.NoError(t, m.RegisterAll(topics...))
		require.NoError(t, m.RegisterAll(topics...))
		assert.Equal(t, 2, m.Count())
	})
}

func TestManager_CheckBindings(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(testTopic("GetUser", "VIGetUser")))
	require.NoError(t, m.Register(testTopic("Typing", "")))

	assert.NoError(t, m.CheckBindings([]string{"GetUser"}))

	err := m.CheckBindings([]string{"GetUser", "Typing", "SetStatus"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, &TopicError{Type: ErrorMissingBinding}))
	assert.True(t, errors.Is(err, &TopicError{Type: ErrorTopicNotFound}))
	assert.Contains(t, err.Error(), "Typing")
	assert.Contains(t, err.Error(), "SetStatus")
}

func TestManager_ListOrderAndStats(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register(testTopic("SetStatus", "VISetStatus")))
	require.NoError(t, m.Register(testTopic("EditUser", "VIEditUser")))
	require.NoError(t, m.Register(Define(TopicConfig{
		Name:        "Typing",
		NativeEvent: "VITyping",
		Scope:       ScopeMessage,
		Description: "typing",
	})))

	var names []string
	for _, topic := range m.List() {
		names = append(names, topic.Name())
	}
	assert.Equal(t, []string{"EditUser", "SetStatus", "Typing"}, names)
	assert.Len(t, m.ListByScope(ScopeMessage), 1)

	stats := m.GetStats()
	assert.Equal(t, 3, stats.RegistryStats.TotalTopics)
	assert.Equal(t, 2, stats.RegistryStats.ScopeBreakdown[ScopeUser])

	m.Reset()
	assert.Equal(t, 0, m.Count())
	_, ok := m.GetByNative("VITyping")
	assert.False(t, ok)
}

func TestDefault_IsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestDefault_PackageLookups(t *testing.T) {
	require.NoError(t, Default().RegisterAll(testTopic("DefaultOnly", "VIDefaultOnly")))

	topic, ok := Get("DefaultOnly")
	require.True(t, ok)
	assert.Equal(t, "VIDefaultOnly", topic.NativeEvent())

	var names []string
	for _, tp := range List() {
		names = append(names, tp.Name())
	}
	assert.Contains(t, names, "DefaultOnly")
}
