package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/journal"
	"trade-journal/internal/metrics"
	"trade-journal/internal/models"
	"trade-journal/internal/sizing"
)

// addTradeCommands adds the trade lifecycle commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "trade",
		Aliases: []string{"t"},
		Short:   "Log, close, review and delete trades",
	}

	cmd.AddCommand(newTradeOpenCmd(app))
	cmd.AddCommand(newTradeCloseCmd(app))
	cmd.AddCommand(newTradeReviewCmd(app))
	cmd.AddCommand(newTradeListCmd(app))
	cmd.AddCommand(newTradeDeleteCmd(app))

	rootCmd.AddCommand(cmd)
}

func newTradeOpenCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open <symbol>",
		Short: "Open a new trade",
		Long: `Size and record a new trade.

In MARGIN mode --capital is the margin committed. In RISK mode the margin is
--risk-percent of the account balance. LIVE trades are refused while the
daily risk lock is active.`,
		Example: `  journal trade open BTCUSDT --entry 64000 --capital 500 --leverage 10 --sl 62500 --tp 68000
  journal trade open EURUSD --side short --entry 1.0850 --capital 1000 --leverage 30
  journal trade open ETHUSDT --entry 3100 --mode risk --risk-percent 2 --type past --date "2024-05-30 09:15"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			svc, err := app.service()
			if err != nil {
				return err
			}

			in, err := newTradeFromFlags(cmd, args[0])
			if err != nil {
				return err
			}

			trade, res, err := svc.OpenTrade(ctx, in)
			if err != nil {
				var lock *jerrors.RiskLockError
				if jerrors.As(err, &lock) {
					output.Error("🔒 Trading locked: %s", lock.Reason)
				} else {
					output.Error("Failed to open trade: %v", err)
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"trade":  trade,
					"sizing": res,
				})
			}
			displaySizing(output, trade.Symbol, trade.Side, res)
			output.Println()
			output.Success("✓ Trade %s opened", trade.ID)
			return nil
		},
	}

	cmd.Flags().String("side", "long", "Trade side (long, short)")
	cmd.Flags().Float64("entry", 0, "Entry price")
	cmd.Flags().Float64("capital", 0, "Margin committed (MARGIN mode)")
	cmd.Flags().Float64("leverage", 0, "Leverage (default: account leverage or 1)")
	cmd.Flags().String("mode", "margin", "Sizing mode (margin, risk)")
	cmd.Flags().Float64("risk-percent", 0, "Balance percentage used as margin (RISK mode)")
	cmd.Flags().Float64("sl", 0, "Stop loss price")
	cmd.Flags().Float64("tp", 0, "Take profit price")
	cmd.Flags().String("exchange", "", "Exchange name for fee lookup")
	cmd.Flags().String("type", "live", "Trade type (live, past, data)")
	cmd.Flags().String("account", "", "Account ID")
	cmd.Flags().String("date", "", "Entry date (default: now)")
	cmd.Flags().String("strategy", "", "Strategy name")
	cmd.Flags().String("notes", "", "Free-form notes")
	cmd.Flags().StringSlice("reasons", nil, "Entry reasons")
	cmd.Flags().StringSlice("mental", nil, "Mental state tags")
	cmd.Flags().StringSlice("tags", nil, "Tags")
	cmd.Flags().StringSlice("setups", nil, "Setups")
	cmd.Flags().StringSlice("checklist", nil, "Entry checklist items completed")
	cmd.MarkFlagRequired("entry")

	return cmd
}

func newTradeFromFlags(cmd *cobra.Command, symbol string) (journal.NewTrade, error) {
	flags := cmd.Flags()
	side, _ := flags.GetString("side")
	entry, _ := flags.GetFloat64("entry")
	capital, _ := flags.GetFloat64("capital")
	leverage, _ := flags.GetFloat64("leverage")
	mode, _ := flags.GetString("mode")
	riskPct, _ := flags.GetFloat64("risk-percent")
	exchange, _ := flags.GetString("exchange")
	tradeType, _ := flags.GetString("type")
	account, _ := flags.GetString("account")
	date, _ := flags.GetString("date")
	strategy, _ := flags.GetString("strategy")
	notes, _ := flags.GetString("notes")
	reasons, _ := flags.GetStringSlice("reasons")
	mental, _ := flags.GetStringSlice("mental")
	tags, _ := flags.GetStringSlice("tags")
	setups, _ := flags.GetStringSlice("setups")
	checklist, _ := flags.GetStringSlice("checklist")

	in := journal.NewTrade{
		Symbol:         symbol,
		Side:           models.Side(strings.ToUpper(side)),
		EntryPrice:     entry,
		Capital:        capital,
		Leverage:       leverage,
		Mode:           sizing.Mode(strings.ToUpper(mode)),
		RiskPercent:    riskPct,
		Exchange:       exchange,
		TradeType:      models.TradeType(strings.ToUpper(tradeType)),
		AccountID:      account,
		Strategy:       strategy,
		Notes:          notes,
		EntryReasons:   reasons,
		MentalState:    mental,
		Tags:           tags,
		Setups:         setups,
		EntryChecklist: checklist,
		StopLoss:       optionalFloat(cmd, "sl"),
		TakeProfit:     optionalFloat(cmd, "tp"),
	}
	if date != "" {
		t, err := parseTimeFlag(date)
		if err != nil {
			return journal.NewTrade{}, err
		}
		in.EntryDate = t
	}
	return in, nil
}

func displaySizing(output *Output, symbol string, side models.Side, res sizing.Result) {
	lines := []string{
		fmt.Sprintf("Margin:         %s", FormatMoney(res.Capital)),
		fmt.Sprintf("Position Size:  %s", FormatMoney(res.PositionSize)),
		fmt.Sprintf("Quantity:       %s", FormatQuantity(res.Quantity)),
		fmt.Sprintf("Est. Fees:      %s", FormatMoney(res.EstFees)),
		fmt.Sprintf("Liquidation:    %s", output.Red(FormatPrice(res.LiquidationPrice))),
		fmt.Sprintf("Risk/Reward:    %s", FormatRiskReward(res.RiskReward)),
	}
	if res.Forex != nil {
		lines = append(lines,
			fmt.Sprintf("Lots:           %.2f", res.Forex.Lots),
			fmt.Sprintf("Pip Value:      %s", FormatMoney(res.Forex.PipValue)),
		)
	}
	output.Box(fmt.Sprintf("%s %s", side, symbol), lines)
}

func newTradeCloseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close <id>",
		Short: "Close an open trade",
		Example: `  journal trade close 01HZX3K4Q7 --price 66500
  journal trade close 01HZX3K4Q7 --market --reason "Manual"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			svc, err := app.service()
			if err != nil {
				return err
			}

			price, _ := cmd.Flags().GetFloat64("price")
			market, _ := cmd.Flags().GetBool("market")
			reason, _ := cmd.Flags().GetString("reason")
			date, _ := cmd.Flags().GetString("date")

			if market {
				t, err := svc.Store().GetTrade(ctx, args[0])
				if err != nil {
					output.Error("Trade not found: %s", args[0])
					return err
				}
				price, err = app.prices().FetchPrice(ctx, t.Symbol)
				if err != nil {
					output.Error("Failed to fetch price for %s: %v", t.Symbol, err)
					return err
				}
			}

			var exitDate time.Time
			if date != "" {
				if exitDate, err = parseTimeFlag(date); err != nil {
					return err
				}
			}

			trade, err := svc.CloseTrade(ctx, args[0], price, exitDate, reason)
			if err != nil {
				output.Error("Failed to close trade: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("✓ Closed %s %s at %s", trade.Side, trade.Symbol, FormatPrice(trade.ExitPriceValue()))
			output.Printf("  P&L:   %s (%s)\n", output.FormatPnL(trade.PnLValue()), output.FormatPercent(trade.PnLPercentValue()))
			if trade.ExitDate != nil {
				output.Printf("  Held:  %s\n", FormatDuration(trade.ExitDate.Sub(trade.EntryDate)))
			}
			output.Println()
			output.Dim("Tip: add your exit review with 'journal trade review %s'", trade.ID)
			return nil
		},
	}

	cmd.Flags().Float64("price", 0, "Exit price")
	cmd.Flags().Bool("market", false, "Close at the current market price")
	cmd.Flags().String("reason", "", "Exit reason")
	cmd.Flags().String("date", "", "Exit date (default: now)")
	return cmd
}

func newTradeReviewCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "review <id>",
		Short:   "Record the exit review of a closed trade",
		Example: `  journal trade review 01HZX3K4Q7 --quality 4 --reasons "Target hit" --checklist "Followed plan"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			svc, err := app.service()
			if err != nil {
				return err
			}

			quality, _ := cmd.Flags().GetInt("quality")
			notes, _ := cmd.Flags().GetString("notes")
			a := journal.Annotation{ExitQuality: quality, Notes: notes}
			if cmd.Flags().Changed("reasons") {
				a.ExitReasons, _ = cmd.Flags().GetStringSlice("reasons")
			}
			if cmd.Flags().Changed("checklist") {
				a.ExitChecklist, _ = cmd.Flags().GetStringSlice("checklist")
			}

			trade, err := svc.Annotate(ctx, args[0], a)
			if err != nil {
				output.Error("Failed to review trade: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("✓ Review saved for %s", trade.ID)
			output.Printf("  Quality: %s\n", FormatQuality(trade.ExitQuality))
			return nil
		},
	}

	cmd.Flags().Int("quality", 0, "Exit quality from 1 to 5")
	cmd.Flags().StringSlice("reasons", nil, "Exit reasons")
	cmd.Flags().StringSlice("checklist", nil, "Exit checklist items completed")
	cmd.Flags().String("notes", "", "Notes appended to the trade")
	return cmd
}

func newTradeListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List trades",
		Example: `  journal trade list
  journal trade list --open
  journal trade list --symbol BTCUSDT --range 30d`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			svc, err := app.service()
			if err != nil {
				return err
			}
			sc, err := scopeFromFlags(cmd, svc)
			if err != nil {
				return err
			}
			trades, err := svc.Trades(ctx, sc)
			if err != nil {
				output.Error("Failed to fetch trades: %v", err)
				return err
			}

			openOnly, _ := cmd.Flags().GetBool("open")
			limit, _ := cmd.Flags().GetInt("limit")
			trades = selectTrades(trades, openOnly, limit)

			if output.IsJSON() {
				if trades == nil {
					trades = []models.Trade{}
				}
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Info("No trades found.")
				return nil
			}

			now := svc.Now()
			layout := app.Config.UI.DateFormat
			table := NewTable(output, "ID", "Date", "Symbol", "Side", "Qty", "Entry", "Exit", "P&L", "Held", "Strategy")
			for i := range trades {
				t := &trades[i]
				pnl := output.DimText("open")
				if t.IsClosed() {
					pnl = output.FormatPnL(t.PnLValue())
				}
				table.AddRow(
					t.ID,
					FormatDateTime(t.EntryDate, layout),
					t.Symbol,
					string(t.Side),
					FormatQuantity(t.Quantity),
					FormatPrice(t.EntryPrice),
					FormatOptionalPrice(t.ExitPrice),
					pnl,
					FormatDuration(metrics.LiveDuration(t, now)),
					TruncateString(t.Strategy, 15),
				)
			}
			table.Render()
			output.Println()
			output.Dim("%d trades", len(trades))
			return nil
		},
	}

	addFilterFlags(cmd)
	cmd.Flags().Bool("open", false, "Only open trades")
	cmd.Flags().Int("limit", 0, "Show only the most recent N trades")
	return cmd
}

// selectTrades returns the newest trades first, optionally open ones only.
func selectTrades(trades []models.Trade, openOnly bool, limit int) []models.Trade {
	var out []models.Trade
	for i := len(trades) - 1; i >= 0; i-- {
		if openOnly && trades[i].IsClosed() {
			continue
		}
		out = append(out, trades[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete trades",
		Long: `Delete one or more trades.

The deletion can be undone for a few seconds afterwards: answer the undo
prompt before the window closes to restore the trades exactly.`,
		Example: `  journal trade delete 01HZX3K4Q7 01HZX3M2B9
  journal trade delete 01HZX3K4Q7 --yes`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			svc, err := app.service()
			if err != nil {
				return err
			}

			in := bufio.NewReader(cmd.InOrStdin())
			confirmed, _ := cmd.Flags().GetBool("yes")
			if !confirmed {
				output.Printf("Delete %d trade(s)? [y/N] ", len(args))
				confirmed = isYes(readLine(in))
			}

			batch, err := svc.BulkDelete(ctx, args, confirmed)
			if err != nil {
				if jerrors.Is(err, jerrors.ErrNotConfirmed) {
					output.Warning("Aborted")
					return nil
				}
				output.Error("Failed to delete trades: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(batch)
			}
			output.Success("✓ Deleted %d trade(s)", batch.Count)

			noUndo, _ := cmd.Flags().GetBool("no-undo")
			if noUndo {
				return nil
			}
			window := time.Until(batch.ExpiresAt)
			output.Printf("Undo? [y/N] (%s) ", window.Round(time.Second))
			if !isYes(readLineWithin(in, window)) {
				output.Println()
				return nil
			}

			restored, err := svc.Undo(ctx)
			if err != nil {
				if jerrors.Is(err, jerrors.ErrNothingToUndo) {
					output.Warning("Undo window has closed; the deletion is permanent")
					return nil
				}
				return err
			}
			output.Success("✓ Restored %d trade(s)", restored.Count)
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().Bool("no-undo", false, "Skip the undo prompt")
	return cmd
}

func readLine(r *bufio.Reader) string {
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return ""
	}
	return strings.TrimSpace(line)
}

// readLineWithin returns "" when no line arrives before d elapses.
func readLineWithin(r *bufio.Reader, d time.Duration) string {
	if d <= 0 {
		return ""
	}
	ch := make(chan string, 1)
	go func() { ch <- readLine(r) }()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case line := <-ch:
		return line
	case <-timer.C:
		return ""
	}
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "y" || s == "yes"
}

// optionalFloat returns the flag value only when it was set.
func optionalFloat(cmd *cobra.Command, name string) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetFloat64(name)
	return &v
}

var timeFlagLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTimeFlag reads a date flag in local time.
func parseTimeFlag(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeFlagLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, jerrors.NewValidationError("date", s, "expected YYYY-MM-DD [HH:MM[:SS]] or RFC3339")
}
