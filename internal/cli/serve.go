package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mindful-trader/internal/server"
)

// addServeCommands adds the local JSON API command.
func addServeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newServeCmd(app))
}

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the journal as a JSON API on localhost",
		Long: `Serve the journal as a JSON API for a browser front end.

The API has no authentication; keep it bound to a loopback address.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if addr == "" {
				addr = app.Config.Server.Addr
			}

			srv := server.New(app.Journal, server.Config{
				Addr:             addr,
				Mode:             app.Config.Server.Mode,
				DefaultTimeframe: app.Config.Journal.DefaultTimeframe,
			}, app.Logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			output.Info("Serving on http://%s (Ctrl-C to stop)", addr)
			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
