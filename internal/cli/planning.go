package cli

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/metrics"
	"trade-journal/internal/models"
	"trade-journal/internal/risk"
	"trade-journal/internal/sizing"
)

// addPlanningCommands adds position sizing and risk commands.
func addPlanningCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newSizeCmd(app))
	rootCmd.AddCommand(newRiskCmd(app))
}

func newSizeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "size <symbol>",
		Short: "Position size calculator",
		Long: `Calculate position size, quantity, estimated fees, liquidation price and
risk/reward without recording a trade. Forex pairs also get lots and pip value.`,
		Example: `  journal size BTCUSDT --entry 50000 --capital 1000 --leverage 10
  journal size EURUSD --entry 1.0850 --capital 500 --leverage 50 --sl 1.0800 --tp 1.0950
  journal size ETHUSDT --entry 3100 --mode risk --risk-percent 2 --balance 25000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			flags := cmd.Flags()
			side, _ := flags.GetString("side")
			entry, _ := flags.GetFloat64("entry")
			capital, _ := flags.GetFloat64("capital")
			leverage, _ := flags.GetFloat64("leverage")
			mode, _ := flags.GetString("mode")
			riskPct, _ := flags.GetFloat64("risk-percent")
			balance, _ := flags.GetFloat64("balance")
			exchange, _ := flags.GetString("exchange")

			mc := app.Config.MetricsConfig()
			in := sizing.Input{
				Symbol:           strings.ToUpper(args[0]),
				Side:             models.Side(strings.ToUpper(side)),
				EntryPrice:       entry,
				Capital:          capital,
				Leverage:         leverage,
				StopLoss:         optionalFloat(cmd, "sl"),
				TakeProfit:       optionalFloat(cmd, "tp"),
				Fees:             metrics.FeeFor(exchange, mc),
				Mode:             sizing.Mode(strings.ToUpper(mode)),
				RiskPercent:      riskPct,
				PortfolioBalance: balance,
			}

			if in.Mode == sizing.ModeRisk && !flags.Changed("balance") {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				svc, err := app.service()
				if err != nil {
					return err
				}
				account, _ := flags.GetString("account")
				if in.PortfolioBalance, err = svc.AccountBalance(ctx, account); err != nil {
					return err
				}
			}

			res, err := sizing.Calculate(in)
			if err != nil {
				output.Error("Invalid input: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(res)
			}
			displaySizing(output, in.Symbol, in.Side, res)

			if in.StopLoss != nil {
				loss := res.Quantity * math.Abs(entry-*in.StopLoss)
				output.Printf("  Loss at stop:   %s\n", output.Red(FormatMoney(loss)))
			}
			if in.TakeProfit != nil {
				gain := res.Quantity * math.Abs(*in.TakeProfit-entry)
				output.Printf("  Gain at target: %s\n", output.Green(FormatMoney(gain)))
			}
			return nil
		},
	}

	cmd.Flags().String("side", "long", "Trade side (long, short)")
	cmd.Flags().Float64("entry", 0, "Entry price")
	cmd.Flags().Float64("capital", 0, "Margin committed (MARGIN mode)")
	cmd.Flags().Float64("leverage", 1, "Leverage")
	cmd.Flags().String("mode", "margin", "Sizing mode (margin, risk)")
	cmd.Flags().Float64("risk-percent", 0, "Balance percentage used as margin (RISK mode)")
	cmd.Flags().Float64("balance", 0, "Portfolio balance for RISK mode (default: account balance)")
	cmd.Flags().String("account", "", "Account whose balance RISK mode uses")
	cmd.Flags().Float64("sl", 0, "Stop loss price")
	cmd.Flags().Float64("tp", 0, "Take profit price")
	cmd.Flags().String("exchange", "", "Exchange name for fee lookup")
	cmd.MarkFlagRequired("entry")
	return cmd
}

func newRiskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Daily risk lock and profit goal progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			svc, err := app.service()
			if err != nil {
				return err
			}
			account, _ := cmd.Flags().GetString("account")
			report, err := svc.Risk(ctx, account)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(report)
			}
			displayRisk(output, report.Balance, report.State, report.Goals)
			return nil
		},
	}

	cmd.Flags().String("account", "", "Account ID (default: unassigned)")
	return cmd
}

func displayRisk(output *Output, balance float64, st risk.State, goals []risk.GoalProgress) {
	if st.IsLocked {
		output.Error("🔒 LOCKED: %s", st.LockReason)
	} else {
		output.Success("✓ Trading allowed")
	}
	output.Println()

	output.Bold("Risk Rules")
	output.Printf("  Balance:          %s\n", FormatMoney(balance))
	trades := fmt.Sprintf("%d", st.TradeCount)
	if st.MaxTrades > 0 {
		trades = fmt.Sprintf("%d / %d", st.TradeCount, st.MaxTrades)
	}
	output.Printf("  Trades Today:     %s\n", trades)
	output.Printf("  Daily Drawdown:   %.2f%% / %s\n", st.CurrentDD, limitOrOff(st.DailyDDLimit, "%.2f%%"))
	output.Printf("  Monthly Drawdown: %.2f%% / %s\n", st.MonthlyDD, limitOrOff(st.MonthlyDDLimit, "%.2f%%"))
	output.Println()

	output.Bold("Goals")
	table := NewTable(output, "Period", "P&L", "Progress", "Target", "")
	for _, g := range goals {
		status := ""
		if g.Achieved {
			status = output.Green("✓")
		}
		target := limitOrOff(g.Target, "%.2f%%")
		bar := ""
		if g.Target > 0 {
			bar = Bar(g.Percent, g.Target, 15)
		}
		table.AddRow(string(g.Period), output.FormatPnL(g.PnL), output.FormatPercent(g.Percent)+" "+bar, target, status)
	}
	table.Render()
}
