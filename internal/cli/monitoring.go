package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/journal"
	"trade-journal/internal/monitor"
)

// addMonitoringCommands adds the live position monitor.
func addMonitoringCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newMonitorCmd(app))
}

func newMonitorCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Watch open positions and auto-close them",
		Long: `Poll the last price of every open trade and close it automatically when the
liquidation price, stop loss or take profit is crossed. Newly opened trades
are picked up on every poll interval.

Press Ctrl+C to stop.`,
		Example: `  journal monitor
  journal monitor --interval 2s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := app.service()
			if err != nil {
				return err
			}

			interval, _ := cmd.Flags().GetDuration("interval")
			if interval <= 0 {
				interval = app.Config.Monitor.PollInterval
			}

			mon := startMonitor(ctx, app, svc, interval, output)
			defer mon.Stop()

			output.Bold("Position Monitor")
			output.Printf("  Tracking: %d open trade(s)\n", len(mon.Tracked()))
			output.Printf("  Interval: %s\n", interval)
			output.Println()
			output.Dim("Press Ctrl+C to stop")

			<-ctx.Done()
			output.Println()
			output.Info("Monitor stopped")
			return nil
		},
	}

	cmd.Flags().Duration("interval", 0, "Poll interval (default: monitor.poll_interval)")
	return cmd
}

// startMonitor tracks every open trade and keeps rescanning for new ones
// until ctx ends.
func startMonitor(ctx context.Context, app *App, svc *journal.Service, interval time.Duration, output *Output) *monitor.Monitor {
	mon := monitor.NewWithConfig(monitor.Config{PollInterval: interval}, app.prices(), svc, app.Logger)
	mon.OnClose(func(e monitor.Event) {
		output.Warning("⚡ %s %s closed at %s (%s)", e.Symbol, e.TradeID, FormatPrice(e.Price), e.Reason)
	})

	scan := func() {
		scanCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		trades, err := svc.OpenTrades(scanCtx)
		if err != nil {
			app.Logger.Warn().Err(err).Msg("Failed to load open trades")
			return
		}
		for _, t := range trades {
			if mon.Track(t) {
				app.Logger.Debug().Str("trade_id", t.ID).Str("symbol", t.Symbol).Msg("Tracking trade")
			}
		}
	}
	scan()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				scan()
			}
		}
	}()
	return mon
}
