package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/nfrund/messenger/internal/app"
	"github.com/nfrund/messenger/internal/events"
	"github.com/nfrund/messenger/internal/messenger"
)

var watchDuration time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [topic...]",
	Short: "Print events as they arrive",
	Long: `Subscribe to the given topics (all topics when none are given) and print
every event as one JSON line until interrupted or --duration elapses.

Examples:
  messenger-cli watch
  messenger-cli watch GetUser SetStatus --duration 30s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		selected, err := parseTopics(args)
		if err != nil {
			return err
		}
		return withMessenger(func(a *app.App) error {
			m, err := a.Messenger()
			if err != nil {
				return err
			}
			subscribePrinter(m, cmd.OutOrStdout(), selected)

			ctx, stop := signalContext(cmd.Context(), watchDuration)
			defer stop()
			<-ctx.Done()
			return nil
		})
	},
}

func parseTopics(args []string) ([]events.Topic, error) {
	if len(args) == 0 {
		return events.AllTopics(), nil
	}
	out := make([]events.Topic, 0, len(args))
	for _, arg := range args {
		topic := events.Topic(arg)
		if !events.Known(topic) {
			return nil, fmt.Errorf("unknown topic %q, see 'messenger-cli topics list'", arg)
		}
		out = append(out, topic)
	}
	return out, nil
}

type eventLine struct {
	Topic events.Topic `json:"topic"`
	Event events.Event `json:"event"`
}

// subscribePrinter writes every event on topics to w as a JSON line.
func subscribePrinter(m *messenger.Messenger, w io.Writer, topics []events.Topic) {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	printer := events.ListenerFunc(func(ctx context.Context, ev events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(eventLine{Topic: ev.Topic(), Event: ev})
	})
	for _, topic := range topics {
		m.On(topic, printer)
	}
}

// signalContext is cancelled on SIGINT/SIGTERM, or after d when d > 0.
func signalContext(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	timed, cancel := context.WithTimeout(ctx, d)
	return timed, func() {
		cancel()
		stop()
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVarP(&watchDuration, "duration", "d", 0, "Stop after this long (0 waits for an interrupt)")
}
