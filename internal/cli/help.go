package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// addHelpCommands adds help and documentation commands.
func addHelpCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newExamplesCmd(app))
	rootCmd.AddCommand(newQuickstartCmd(app))
}

func newExamplesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show common workflow examples",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Common Workflow Examples")
			output.Println()

			examples := []struct {
				title    string
				commands []string
			}{
				{
					title: "Fund an Account",
					commands: []string{
						"journal account add Bybit --exchange Bybit --leverage 10",
						"journal account deposit 5000 --account <id>",
						"journal account list            # Balances are derived",
					},
				},
				{
					title: "Plan and Log a Trade",
					commands: []string{
						"journal size BTCUSDT --entry 64000 --capital 500 --leverage 10 --sl 62500",
						"journal trade open BTCUSDT --entry 64000 --capital 500 --leverage 10 --sl 62500 --tp 68000",
						"journal monitor                 # Auto-close on SL, TP or liquidation",
					},
				},
				{
					title: "Close and Review",
					commands: []string{
						"journal trade list --open       # Find the trade id",
						"journal trade close <id> --price 66500",
						"journal trade review <id> --quality 4 --reasons \"Target hit\"",
					},
				},
				{
					title: "Import Exchange History",
					commands: []string{
						"journal import binance_futures.csv",
						"journal stats --range 30d       # Statistics for the last 30 days",
					},
				},
				{
					title: "Weekly Review",
					commands: []string{
						"journal stats --curve           # Full statistics and equity curve",
						"journal rank                    # Rank and next-level gaps",
						"journal breakdown --by weekday  # Which days pay",
						"journal breakdown --by strategy",
						"journal calendar                # This month day by day",
						"journal risk                    # Risk lock and goals",
					},
				},
				{
					title: "Clean Up",
					commands: []string{
						"journal trade delete <id> <id>  # Undo prompt follows",
						"journal export --xlsx           # Backup to Excel",
					},
				},
				{
					title: "Serve the API",
					commands: []string{
						"journal serve --monitor         # HTTP API plus position monitor",
					},
				},
			}

			for _, ex := range examples {
				output.Bold(ex.title)
				for _, c := range ex.commands {
					parts := strings.SplitN(c, "#", 2)
					if len(parts) == 2 {
						output.Printf("  %s %s\n", output.Cyan(strings.TrimSpace(parts[0])), output.DimText(strings.TrimSpace(parts[1])))
					} else {
						output.Printf("  %s\n", output.Cyan(c))
					}
				}
				output.Println()
			}

			return nil
		},
	}
}

func newQuickstartCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "quickstart",
		Short: "New user guide",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Trade Journal - Quick Start Guide")
			output.Println()

			steps := []struct {
				title string
				desc  string
				cmd   string
			}{
				{"Review Settings", "Fees, risk rules and goals live in config.toml.", "journal config path"},
				{"Set Risk Rules", "Enable the daily lock under [risk], e.g. max_trades_day = 3.", "journal config validate"},
				{"Deposit Capital", "RISK sizing and drawdown percentages use your balance.", "journal account deposit 1000"},
				{"Log a Trade", "Open a trade with entry, margin and leverage.", "journal trade open ETHUSDT --entry 3100 --capital 200 --leverage 5"},
				{"Close It", "Close at a price or at the current market price.", "journal trade close <id> --market"},
				{"Read the Numbers", "See how you are doing.", "journal stats"},
			}

			for i, s := range steps {
				output.Printf("%s Step %d: %s\n", output.Cyan("→"), i+1, output.BoldText(s.title))
				output.Printf("  %s\n", s.desc)
				output.Printf("  %s\n\n", output.DimText(s.cmd))
			}

			output.Bold("Getting Help")
			output.Printf("  %s\n", output.DimText("journal examples        # Common workflows"))
			output.Printf("  %s\n", output.DimText("journal <command> --help"))
			return nil
		},
	}
}
