package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nfrund/messenger/internal/app"
	"github.com/nfrund/messenger/internal/config"
	"github.com/nfrund/messenger/internal/logging"
	"github.com/nfrund/messenger/internal/transport/inproc"
)

var loopback bool

var rootCmd = &cobra.Command{
	Use:   "messenger-cli",
	Short: "Messenger CLI tool",
	Long: `messenger-cli drives the messenger facade from the command line.

Available commands:
  topics    Inspect the topic catalog and its native event bindings
  watch     Print events as they arrive from the native module
  call      Send a single request to the native module
  gateway   Serve the messenger to websocket clients
  presence  Track the online status of users
  version   Print the version

The transport is selected with MESSENGER_TRANSPORT (inproc, websocket, redis).
Use "messenger-cli [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp loads configuration and builds the composition root.
func newApp() (*app.App, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	logging.Setup(os.Stderr, cfg.GetLogFormat(), cfg.GetLogLevel())
	return app.New(cfg), nil
}

// withMessenger runs fn against a freshly built messenger and shuts the
// application down afterwards.
func withMessenger(fn func(a *app.App) error) error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	defer func() { _ = a.Shutdown() }()
	if err := startLoopback(context.Background(), a); err != nil {
		return err
	}
	return fn(a)
}

// startLoopback attaches a local stand-in for the native module to the
// in-process bus when --loopback is set.
func startLoopback(ctx context.Context, a *app.App) error {
	if !loopback {
		return nil
	}
	bus, err := a.Bus()
	if err != nil {
		return err
	}
	return inproc.NewLoopback(bus, a.Session().CurrentUser()).Start(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&loopback, "loopback", false,
		"Answer requests with a local stand-in for the native module (inproc transport)")
}
