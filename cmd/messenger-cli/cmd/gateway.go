package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/spf13/cobra"

	"github.com/nfrund/messenger/internal/app"
	"github.com/nfrund/messenger/internal/messenger"
	"github.com/nfrund/messenger/internal/transport/wsserver"
)

var (
	gatewayAddr string
	gatewayPath string
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Serve the native side of the websocket transport",
	Long: `Accept websocket clients on --addr and forward their requests onto the
in-process bus. Every native event raised on the bus is broadcast to all
connected clients. Combine with --loopback to answer requests locally.

Examples:
  messenger-cli gateway --addr :8080 --loopback
  MESSENGER_TRANSPORT=websocket MESSENGER_WS_URL=ws://localhost:8080/ws messenger-cli watch`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		defer func() { _ = a.Shutdown() }()

		ctx, stop := signalContext(cmd.Context(), 0)
		defer stop()
		return serveGateway(ctx, a)
	},
}

func serveGateway(ctx context.Context, a *app.App) error {
	bus, err := a.Bus()
	if err != nil {
		return err
	}
	if err := startLoopback(ctx, a); err != nil {
		return err
	}

	g := wsserver.New(bus,
		wsserver.WithWhitelist(wsserver.NewWhitelist(messenger.Methods()...)),
		wsserver.WithAcceptOptions(&websocket.AcceptOptions{InsecureSkipVerify: true}),
	)
	var names []string
	for _, topic := range a.Catalog().List() {
		names = append(names, topic.NativeEvent())
	}
	if err := g.Forward(ctx, names...); err != nil {
		return err
	}
	go g.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle(gatewayPath, g)
	srv := &http.Server{Addr: gatewayAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("gateway listening", "addr", gatewayAddr, "path", gatewayPath)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
	gatewayCmd.Flags().StringVar(&gatewayAddr, "addr", ":8080", "Listen address")
	gatewayCmd.Flags().StringVar(&gatewayPath, "path", "/ws", "Websocket endpoint path")
}
