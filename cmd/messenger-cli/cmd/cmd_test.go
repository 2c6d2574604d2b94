package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		listOutputFormat, listScopeFilter, getOutputFormat = "table", "", "table"
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTopicsList(t *testing.T) {
	out, err := run(t, "topics", "list", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, int64(13), gjson.Get(out, "count").Int())
	assert.Equal(t, "VICreateConversation", gjson.Get(out, `topics.#(name=="CreateConversation").nativeEvent`).String())

	out, err = run(t, "topics", "list", "--scope", "message", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, int64(3), gjson.Get(out, "count").Int())

	out, err = run(t, "topics", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "VIRemoveConversation")

	_, err = run(t, "topics", "list", "--scope", "galaxy")
	assert.Error(t, err)
}

func TestTopicsGetAndCheck(t *testing.T) {
	out, err := run(t, "topics", "get", "VIGetUser", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, "GetUser", gjson.Get(out, "name").String())

	_, err = run(t, "topics", "get", "Nope")
	assert.Error(t, err)

	out, err = run(t, "topics", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "13 topics, 13 bound")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "messenger-cli v")
}

func TestParseTopics(t *testing.T) {
	all, err := parseTopics(nil)
	require.NoError(t, err)
	assert.Len(t, all, 13)

	_, err = parseTopics([]string{"GetUser", "Bogus"})
	assert.Error(t, err)
}

func TestRootHelpListsCommands(t *testing.T) {
	for _, sub := range rootCmd.Commands() {
		if sub.Hidden || sub.Name() == "help" || sub.Name() == "completion" {
			continue
		}
		assert.Contains(t, rootCmd.Long, "  "+sub.Name()+" ", "root help should describe %s", sub.Name())
	}
}
