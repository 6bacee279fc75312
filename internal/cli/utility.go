package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/api"
)

// addUtilityCommands adds the HTTP API server.
func addUtilityCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newServeCmd(app))
}

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON HTTP API",
		Long: `Start the JSON HTTP API over the journal.

Endpoints:
  GET    /api/health                  - Health check
  GET    /api/trades                  - List trades (filter query params)
  POST   /api/trades                  - Open a trade
  DELETE /api/trades                  - Bulk delete (confirm required)
  POST   /api/trades/undo             - Undo the last bulk delete
  POST   /api/trades/:id/close        - Close a trade
  POST   /api/trades/:id/review       - Record the exit review
  GET    /api/metrics                 - Statistics bundle
  GET    /api/rank                    - Trader rank
  GET    /api/breakdown/:by           - Grouped P&L
  GET    /api/calendar/:year/:month   - Monthly calendar
  POST   /api/size                    - Position size calculator
  POST   /api/import                  - CSV import
  GET    /api/export                  - CSV or XLSX export
  GET    /api/risk                    - Risk lock and goals
  GET    /api/price/:symbol           - Last price`,
		Example: `  journal serve
  journal serve --addr :9090 --monitor`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := app.service()
			if err != nil {
				return err
			}

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Config.API.Addr
			}
			debug, _ := cmd.Flags().GetBool("debug")

			server := api.NewServer(api.ServerConfig{
				Addr:           addr,
				ProductionMode: !debug,
			}, svc, app.prices(), app.Logger)

			if withMonitor, _ := cmd.Flags().GetBool("monitor"); withMonitor {
				mon := startMonitor(ctx, app, svc, app.Config.Monitor.PollInterval, output)
				defer mon.Stop()
				output.Info("Position monitor running")
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			output.Success("✓ API listening on http://%s", addr)
			output.Dim("Press Ctrl+C to stop the server")

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			output.Info("Server stopped")
			return nil
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default: api.addr)")
	cmd.Flags().Bool("monitor", false, "Also run the position monitor")
	return cmd
}
