// Package cli provides the command-line interface for the trade journal.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trade-journal/internal/config"
	"trade-journal/internal/journal"
	"trade-journal/internal/logging"
	"trade-journal/internal/pricefeed"
	"trade-journal/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-06-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore

	// Journal is opened on first use so that commands such as version and
	// config path never touch the database.
	Journal *journal.Service

	// Prices overrides the Binance source, mainly for tests.
	Prices pricefeed.PriceSource
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	return newRootCmd(&App{
		Config: cfg,
		Logger: logger,
	})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Trade journal - log trades and analyze your performance",
		Long: `Trade journal records crypto, forex and stock trades and turns them into
performance analytics: win rate, profit factor, drawdown, streaks, Sharpe and
Sortino ratios, a trader rank and daily risk locks.

Trades can be entered by hand, imported from exchange CSV exports, or closed
automatically by the live position monitor.

Use 'journal examples' to see common workflows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dir, _ := cmd.Flags().GetString("config"); dir != "" && dir != app.Config.Dir {
				loaded, err := config.Load(dir)
				if err != nil {
					return err
				}
				app.Config = loaded
			}

			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trade-journal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addAnalysisCommands(rootCmd, app)
	addDataCommands(rootCmd, app)
	addAccountCommands(rootCmd, app)
	addPlanningCommands(rootCmd, app)
	addMonitoringCommands(rootCmd, app)
	addUtilityCommands(rootCmd, app)
	addHelpCommands(rootCmd, app)

	return rootCmd
}

// service opens the store and journal service on first use.
func (a *App) service() (*journal.Service, error) {
	if a.Journal != nil {
		return a.Journal, nil
	}
	if a.Store == nil {
		ds, err := store.NewSQLiteStore(a.Config.Journal.DBPath)
		if err != nil {
			return nil, err
		}
		a.Store = ds
		a.Logger.Debug().Str("path", a.Config.Journal.DBPath).Msg("SQLite store initialized")
	}

	opts := journal.DefaultOptions()
	opts.UndoWindow = a.Config.Journal.UndoWindow
	opts.Risk = a.Config.Risk
	opts.Goals = a.Config.Goals
	opts.Metrics = a.Config.MetricsConfig()

	a.Journal = journal.New(a.Store, opts, a.Logger)
	return a.Journal, nil
}

// prices returns the configured price source.
func (a *App) prices() pricefeed.PriceSource {
	if a.Prices != nil {
		return a.Prices
	}
	cfg := pricefeed.DefaultBinanceConfig()
	if a.Config.Monitor.PriceBaseURL != "" {
		cfg.BaseURL = a.Config.Monitor.PriceBaseURL
	}
	if a.Config.Monitor.RequestsPerSecond > 0 {
		cfg.RequestsPerSecond = a.Config.Monitor.RequestsPerSecond
	}
	a.Prices = pricefeed.NewBreakerSource(pricefeed.NewBinanceSource(cfg, a.Logger), pricefeed.DefaultBreakerConfig(), a.Logger)
	return a.Prices
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	a.Journal = nil
	return err
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Trade Journal v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			path := config.Path(app.Config.Dir)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": path})
			} else {
				output.Println(path)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	fee := cfg.DefaultFee()

	output.Bold("Journal")
	output.Printf("  Database:        %s\n", cfg.Journal.DBPath)
	output.Printf("  Undo Window:     %s\n", cfg.Journal.UndoWindow)
	output.Println()

	output.Bold("Fees")
	output.Printf("  Type:            %s\n", fee.Type)
	output.Printf("  Maker / Taker:   %s / %s\n", FormatRate(fee.Maker, fee.Type), FormatRate(fee.Taker, fee.Type))
	for name, fc := range cfg.Fees.Exchanges {
		output.Printf("  %-16s %s / %s\n", name+":", FormatRate(fc.Maker, fc.Type), FormatRate(fc.Taker, fc.Type))
	}
	output.Println()

	output.Bold("Risk")
	output.Printf("  Max Trades/Day:  %s\n", limitOrOff(float64(cfg.Risk.MaxTradesDay), "%.0f"))
	output.Printf("  Daily DD:        %s\n", limitOrOff(cfg.Risk.DailyDDPercent, "%.1f%%"))
	output.Printf("  Monthly DD:      %s\n", limitOrOff(cfg.Risk.MonthlyDDPercent, "%.1f%%"))
	output.Printf("  Risk per Trade:  %s\n", limitOrOff(cfg.Risk.MaxRiskPerTradePercent, "%.1f%%"))
	output.Println()

	output.Bold("Monitor")
	output.Printf("  Poll Interval:   %s\n", cfg.Monitor.PollInterval)
	output.Printf("  Price Feed:      %s\n", cfg.Monitor.PriceBaseURL)
	output.Println()

	output.Bold("API")
	output.Printf("  Address:         %s\n", cfg.API.Addr)
	return nil
}
