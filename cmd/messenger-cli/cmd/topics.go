package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nfrund/messenger/cmd/messenger-cli/internal/topics"
	"github.com/nfrund/messenger/internal/events"
	"github.com/nfrund/messenger/internal/topicmgr"
)

var (
	listOutputFormat string
	listScopeFilter  string
	getOutputFormat  string
)

// topicsCmd represents the topics command
var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Explore the messenger topic catalog",
	Long: `The topics command lists the topics subscribers can listen to and the
native events each of them is bound to.

Examples:
  messenger-cli topics list
  messenger-cli topics list --scope conversation --format json
  messenger-cli topics get CreateConversation
  messenger-cli topics check`,
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all topics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := topics.Catalog()

		list := topicmgr.List()
		if listScopeFilter != "" {
			scope := topicmgr.TopicScope(strings.ToLower(listScopeFilter))
			if !slices.Contains(topicmgr.ValidScopes, scope) {
				return fmt.Errorf("invalid scope %q", listScopeFilter)
			}
			list = manager.ListByScope(scope)
		}

		switch listOutputFormat {
		case "json":
			return topics.DisplayTopicsJSON(cmd.OutOrStdout(), list)
		case "table":
			topics.DisplayTopicsTable(cmd.OutOrStdout(), list)
			return nil
		default:
			return fmt.Errorf("unsupported output format %q, use table or json", listOutputFormat)
		}
	},
}

var topicsGetCmd = &cobra.Command{
	Use:   "get <topic-name>",
	Short: "Show one topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := topics.Catalog()
		topic, ok := topicmgr.Get(args[0])
		if !ok {
			topic, ok = manager.GetByNative(args[0])
		}
		if !ok {
			return fmt.Errorf("topic not found: %s", args[0])
		}
		return topics.DisplayTopicDetails(cmd.OutOrStdout(), topic, getOutputFormat)
	},
}

var topicsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that every topic is bound to exactly one native event",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		manager := topics.Catalog()
		if err := manager.CheckBindings(events.AllTopicNames()); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "❌ Native bindings incomplete:\n%v\n", err)
			return err
		}
		stats := manager.GetStats()
		fmt.Fprintf(cmd.OutOrStdout(), "✅ %d topics, %d bound to native events\n",
			stats.RegistryStats.TotalTopics, stats.RegistryStats.BoundTopics)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(topicsCmd)
	topicsCmd.AddCommand(topicsListCmd, topicsGetCmd, topicsCheckCmd)

	topicsListCmd.Flags().StringVarP(&listOutputFormat, "format", "f", "table", "Output format (table, json)")
	topicsListCmd.Flags().StringVarP(&listScopeFilter, "scope", "s", "", "Filter topics by scope (user, conversation, message, system)")
	topicsGetCmd.Flags().StringVarP(&getOutputFormat, "format", "f", "table", "Output format (table, json)")
}
