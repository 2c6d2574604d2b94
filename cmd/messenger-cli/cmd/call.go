package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/nfrund/messenger/internal/app"
	"github.com/nfrund/messenger/internal/events"
	"github.com/nfrund/messenger/internal/messenger"
)

var (
	callWait time.Duration

	convTitle      string
	convDistinct   bool
	convPublicJoin bool
	convUber       bool
	convCustomData string
	convModerators []string
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Send one request to the native module",
	Long: `Send a single request through the configured transport. With --wait the
command keeps listening and prints the events that arrive in the meantime.

Examples:
  messenger-cli call get-user alice --wait 2s
  messenger-cli call create-conversation alice bob --title Team --distinct
  messenger-cli call get-conversations`,
}

// runCall sends one request and optionally prints events for callWait.
func runCall(cmd *cobra.Command, send func(ctx context.Context, m *messenger.Messenger) error) error {
	return withMessenger(func(a *app.App) error {
		m, err := a.Messenger()
		if err != nil {
			return err
		}
		if callWait > 0 {
			subscribePrinter(m, cmd.OutOrStdout(), events.AllTopics())
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := send(ctx, m); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "request sent: %s\n", cmd.Name())

		if callWait > 0 {
			waitCtx, stop := signalContext(ctx, callWait)
			defer stop()
			<-waitCtx.Done()
		}
		return nil
	})
}

func parseCustomData(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("custom data must be a JSON object: %w", err)
	}
	return data, nil
}

var callGetUserCmd = &cobra.Command{
	Use:   "get-user <user-id>...",
	Short: "Request one or more user profiles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd, func(ctx context.Context, m *messenger.Messenger) error {
			if len(args) == 1 {
				return m.GetUser(ctx, args[0])
			}
			return m.GetUsers(ctx, args)
		})
	},
}

var callSetStatusCmd = &cobra.Command{
	Use:   "set-status <online>",
	Short: "Set the current user's online status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		online, err := strconv.ParseBool(args[0])
		if err != nil {
			return fmt.Errorf("online must be true or false: %w", err)
		}
		return runCall(cmd, func(ctx context.Context, m *messenger.Messenger) error {
			return m.SetStatus(ctx, online)
		})
	},
}

var callSubscribeCmd = &cobra.Command{
	Use:   "subscribe <user-id>...",
	Short: "Subscribe to user changes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd, func(ctx context.Context, m *messenger.Messenger) error {
			return m.Subscribe(ctx, args)
		})
	},
}

var callUnsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe <user-id>...",
	Short: "Unsubscribe from user changes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd, func(ctx context.Context, m *messenger.Messenger) error {
			return m.Unsubscribe(ctx, args)
		})
	},
}

var callCreateConversationCmd = &cobra.Command{
	Use:   "create-conversation <participant>...",
	Short: "Create a conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts []messenger.ConversationOption
		flags := cmd.Flags()
		if flags.Changed("title") {
			opts = append(opts, messenger.WithTitle(convTitle))
		}
		if flags.Changed("moderator") {
			opts = append(opts, messenger.WithModerators(convModerators...))
		}
		data, err := parseCustomData(convCustomData)
		if err != nil {
			return err
		}
		if data != nil {
			opts = append(opts, messenger.WithCustomData(data))
		}
		opts = append(opts,
			messenger.WithDistinct(convDistinct),
			messenger.WithPublicJoin(convPublicJoin),
			messenger.WithUber(convUber),
		)
		return runCall(cmd, func(ctx context.Context, m *messenger.Messenger) error {
			return m.CreateConversation(ctx, args, opts...)
		})
	},
}

var callGetConversationCmd = &cobra.Command{
	Use:   "get-conversation [uuid]",
	Short: "Request one conversation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uuid := ""
		if len(args) == 1 {
			uuid = args[0]
		}
		return runCall(cmd, func(ctx context.Context, m *messenger.Messenger) error {
			return m.GetConversation(ctx, uuid)
		})
	},
}

var callGetConversationsCmd = &cobra.Command{
	Use:   "get-conversations [uuid...]",
	Short: "Request several conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd, func(ctx context.Context, m *messenger.Messenger) error {
			if len(args) == 0 {
				return m.GetConversations(ctx, nil)
			}
			return m.GetConversations(ctx, args)
		})
	},
}

var callRemoveConversationCmd = &cobra.Command{
	Use:   "remove-conversation [uuid]",
	Short: "Remove a conversation",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uuid := ""
		if len(args) == 1 {
			uuid = args[0]
		}
		return runCall(cmd, func(ctx context.Context, m *messenger.Messenger) error {
			return m.RemoveConversation(ctx, uuid)
		})
	},
}

var callSendMessageCmd = &cobra.Command{
	Use:   "send-message <conversation> <text>",
	Short: "Send a text message",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd, func(ctx context.Context, m *messenger.Messenger) error {
			return m.SendMessage(ctx, args[0], args[1], nil)
		})
	},
}

var callTypingCmd = &cobra.Command{
	Use:   "typing <conversation>",
	Short: "Signal that the current user is typing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd, func(ctx context.Context, m *messenger.Messenger) error {
			return m.Typing(ctx, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
	callCmd.PersistentFlags().DurationVarP(&callWait, "wait", "w", 0, "Print incoming events for this long after sending")
	callCmd.AddCommand(
		callGetUserCmd,
		callSetStatusCmd,
		callSubscribeCmd,
		callUnsubscribeCmd,
		callCreateConversationCmd,
		callGetConversationCmd,
		callGetConversationsCmd,
		callRemoveConversationCmd,
		callSendMessageCmd,
		callTypingCmd,
	)

	f := callCreateConversationCmd.Flags()
	f.StringVar(&convTitle, "title", "", "Conversation title")
	f.BoolVar(&convDistinct, "distinct", false, "Reuse an existing conversation with the same participants")
	f.BoolVar(&convPublicJoin, "public-join", false, "Allow anyone to join")
	f.BoolVar(&convUber, "uber", false, "Create an uber conversation")
	f.StringVar(&convCustomData, "custom-data", "", "Custom data as a JSON object")
	f.StringSliceVar(&convModerators, "moderator", nil, "Moderator user id (repeatable)")
}
