package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nfrund/messenger/internal/app"
	"github.com/nfrund/messenger/internal/presence"
)

var presenceDuration time.Duration

var presenceCmd = &cobra.Command{
	Use:   "presence [user-id...]",
	Short: "Subscribe to users and report who is online",
	Long: `Subscribe to the given users, print every status change for --duration and
then print the roster.

Example:
  messenger-cli presence alice bob --duration 1m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMessenger(func(a *app.App) error {
			roster, err := a.Presence()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			roster.OnChange(func(p presence.Presence) {
				fmt.Fprintf(out, "%s\t%s\t%s\n", p.Timestamp.Format(time.RFC3339), p.UserID, p.Status)
			})

			m, err := a.Messenger()
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context(), presenceDuration)
			defer stop()
			if len(args) > 0 {
				if err := m.Subscribe(ctx, args); err != nil {
					return err
				}
			}
			<-ctx.Done()

			fmt.Fprintf(out, "online: %v\nwatched: %v\n", roster.GetOnlineUsers(), roster.Watched())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(presenceCmd)
	presenceCmd.Flags().DurationVarP(&presenceDuration, "duration", "d", 10*time.Second, "How long to listen (0 waits for an interrupt)")
}
