package cli

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/calendar"
	"trade-journal/internal/filter"
	"trade-journal/internal/journal"
	"trade-journal/internal/metrics"
	"trade-journal/internal/ranking"
)

// addAnalysisCommands adds the analytics commands.
func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStatsCmd(app))
	rootCmd.AddCommand(newRankCmd(app))
	rootCmd.AddCommand(newBreakdownCmd(app))
	rootCmd.AddCommand(newCalendarCmd(app))
	rootCmd.AddCommand(newOptionsCmd(app))
}

// addFilterFlags registers the account and filter flags shared by the
// analytics commands.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("account", "", "Account ID (default: global view)")
	cmd.Flags().String("symbol", "", "Filter by symbol")
	cmd.Flags().String("strategy", "", "Filter by strategy")
	cmd.Flags().String("setup", "", "Filter by setup")
	cmd.Flags().String("side", "", "Filter by side (long, short)")
	cmd.Flags().Int("quality", 0, "Filter by exit quality (1-5)")
	cmd.Flags().String("tag", "", "Filter by tag, entry reason or mental state")
	cmd.Flags().String("range", "", "Date range: lifetime, <N>d or YYYY-MM-DD..YYYY-MM-DD")
}

func scopeFromFlags(cmd *cobra.Command, svc *journal.Service) (journal.Scope, error) {
	flags := cmd.Flags()
	account, _ := flags.GetString("account")
	symbol, _ := flags.GetString("symbol")
	strategy, _ := flags.GetString("strategy")
	setup, _ := flags.GetString("setup")
	side, _ := flags.GetString("side")
	quality, _ := flags.GetInt("quality")
	tag, _ := flags.GetString("tag")
	rng, _ := flags.GetString("range")

	date, err := filter.ParseDateFilter(rng, svc.Now().Location())
	if err != nil {
		return journal.Scope{}, err
	}
	f := filter.Filters{
		Symbol:   strings.ToUpper(symbol),
		Strategy: strategy,
		Setup:    setup,
		Side:     strings.ToUpper(side),
		Tag:      tag,
		Date:     date,
	}
	if quality > 0 {
		f.Quality = filter.QualityLabel(quality)
	}
	return journal.Scope{AccountID: account, Filters: f}, nil
}

func newStatsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Performance statistics",
		Long:  "Compute win rate, profit factor, drawdown, streaks, risk ratios and fees for closed trades.",
		Example: `  journal stats
  journal stats --range 30d --symbol BTCUSDT
  journal stats --account 6f1c... --curve`,
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
			m, _, err := svc.Metrics(ctx, sc)
			if err != nil {
				output.Error("Failed to compute statistics: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(m)
			}
			if m.TotalTrades == 0 {
				output.Info("No closed trades in scope.")
				return nil
			}

			curve, _ := cmd.Flags().GetBool("curve")
			displayMetrics(output, m, svc.Options().Metrics.ProfitFactorCap, curve)
			return nil
		},
	}

	addFilterFlags(cmd)
	cmd.Flags().Bool("curve", false, "Draw the equity curve")
	return cmd
}

func displayMetrics(output *Output, m metrics.Metrics, pfCap float64, curve bool) {
	output.Bold("Trade Statistics")
	output.Printf("  Total Trades:     %d\n", m.TotalTrades)
	output.Printf("  Winning Trades:   %d (%.1f%%)\n", m.WinningTrades, m.WinRate)
	output.Printf("  Losing Trades:    %d (%.1f%%)\n", m.LosingTrades, 100-m.WinRate)
	output.Printf("  Avg Hold Time:    %s\n", FormatDuration(m.AvgHoldTime))
	output.Println()

	output.Bold("Profit & Loss")
	output.Printf("  Gross Profit:     %s\n", output.Green(FormatMoney(m.GrossWin)))
	output.Printf("  Gross Loss:       %s\n", output.Red(FormatMoney(m.GrossLoss)))
	output.Printf("  Net P&L:          %s\n", output.FormatPnL(m.NetPnL))
	output.Printf("  Expectancy:       %s\n", output.FormatPnL(m.Expectancy))
	output.Println()

	output.Bold("Performance Metrics")
	output.Printf("  Profit Factor:    %s\n", FormatRatio(m.ProfitFactor, pfCap))
	output.Printf("  Realized R:R:     %s\n", FormatRiskReward(m.RealizedRR))
	output.Printf("  Sharpe Ratio:     %.2f\n", m.SharpeRatio)
	output.Printf("  Sortino Ratio:    %.2f\n", m.SortinoRatio)
	output.Printf("  Recovery Factor:  %.2f\n", m.RecoveryFactor)
	output.Printf("  Max Drawdown:     %s (%s)\n", output.Red(FormatMoney(m.MaxDrawdownAbs)), output.Red(fmt.Sprintf("%.1f%%", m.MaxDrawdownPct)))
	output.Println()

	output.Bold("Trade Analysis")
	output.Printf("  Avg Win:          %s\n", FormatMoney(m.AvgWin))
	output.Printf("  Avg Loss:         %s\n", FormatMoney(m.AvgLoss))
	output.Printf("  Largest Win:      %s (%s)\n", FormatMoney(m.HighestWin), FormatSignedPercent(m.HighestWinPct))
	output.Printf("  Largest Loss:     %s (%s)\n", FormatMoney(m.HighestLoss), FormatSignedPercent(m.HighestLossPct))
	output.Println()

	output.Bold("Streaks")
	output.Printf("  Max Win Streak:   %d\n", m.Streaks.MaxWin)
	output.Printf("  Max Loss Streak:  %d\n", m.Streaks.MaxLoss)
	current := fmt.Sprintf("%d %s", m.Streaks.Current.Count, strings.ToLower(string(m.Streaks.Current.Type)))
	switch m.Streaks.Current.Type {
	case metrics.StreakWin:
		current = output.Green(current)
	case metrics.StreakLoss:
		current = output.Red(current)
	}
	output.Printf("  Current:          %s\n", current)
	output.Println()

	output.Bold("Estimated Fees")
	output.Printf("  Total:            %s\n", FormatMoney(m.Fees.Total))
	exchanges := make([]string, 0, len(m.Fees.ByExchange))
	for name := range m.Fees.ByExchange {
		exchanges = append(exchanges, name)
	}
	sort.Strings(exchanges)
	for _, name := range exchanges {
		output.Printf("  %-17s %s\n", name+":", FormatMoney(m.Fees.ByExchange[name]))
	}

	if curve {
		output.Println()
		output.Bold("Equity Curve")
		equity := make([]float64, 0, len(m.EquityCurve)+1)
		equity = append(equity, 0)
		for _, p := range m.EquityCurve {
			equity = append(equity, p.Equity)
		}
		drawEquityCurve(output, equity)
	}
}

func drawEquityCurve(output *Output, equityCurve []float64) {
	if len(equityCurve) < 2 {
		output.Println("  Insufficient data for equity curve")
		return
	}

	minEquity, maxEquity := equityCurve[0], equityCurve[0]
	for _, e := range equityCurve {
		minEquity = math.Min(minEquity, e)
		maxEquity = math.Max(maxEquity, e)
	}

	padding := (maxEquity - minEquity) * 0.1
	if padding == 0 {
		padding = 1
	}
	minEquity -= padding
	maxEquity += padding

	width := 40
	height := 8
	if len(equityCurve) < width {
		width = len(equityCurve)
	}

	chart := make([][]rune, height)
	for i := range chart {
		chart[i] = []rune(strings.Repeat(" ", width))
	}

	for i, e := range equityCurve {
		x := i * width / len(equityCurve)
		y := int((e - minEquity) / (maxEquity - minEquity) * float64(height-1))
		if y >= 0 && y < height && x >= 0 && x < width {
			chart[height-1-y][x] = '█'
		}
	}

	for i := 0; i < height; i++ {
		label := strings.Repeat(" ", 10)
		if i == 0 {
			label = fmt.Sprintf("%10.0f", maxEquity)
		} else if i == height-1 {
			label = fmt.Sprintf("%10.0f", minEquity)
		}
		output.Printf("  %s │%s\n", label, string(chart[i]))
	}
	output.Printf("  %s └%s\n", strings.Repeat(" ", 10), strings.Repeat("─", width))
}

func newRankCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Trader rank and progress to the next level",
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
			m, _, err := svc.Metrics(ctx, sc)
			if err != nil {
				return err
			}

			p := ranking.DefaultTable().Progress(m.ProfitFactor, m.MaxDrawdownPct, m.RealizedRR)
			if output.IsJSON() {
				return output.JSON(p)
			}

			output.Printf("Rank: %s %s\n", output.BoldText(p.Current.Name), output.DimText(fmt.Sprintf("(level %d)", p.Current.Level)))
			output.Println()
			if p.Next == nil {
				output.Success("🏆 Top rank reached")
				return nil
			}

			pfCap := svc.Options().Metrics.ProfitFactorCap
			output.Bold("Next: %s", p.Next.Name)
			table := NewTable(output, "Metric", "Current", "Required", "Status")
			table.AddRow("Profit Factor", FormatRatio(p.ProfitFactor.Current, pfCap), fmt.Sprintf("≥ %.2f", p.ProfitFactor.Required), gapStatus(output, p.ProfitFactor, "%.2f"))
			table.AddRow("Max Drawdown", fmt.Sprintf("%.1f%%", p.Drawdown.Current), fmt.Sprintf("≤ %.1f%%", p.Drawdown.Required), gapStatus(output, p.Drawdown, "%.1f%%"))
			table.AddRow("Realized R:R", fmt.Sprintf("%.2f", p.RealizedRR.Current), fmt.Sprintf("≥ %.2f", p.RealizedRR.Required), gapStatus(output, p.RealizedRR, "%.2f"))
			table.Render()
			return nil
		},
	}

	addFilterFlags(cmd)
	return cmd
}

func gapStatus(output *Output, g ranking.Gap, format string) string {
	if g.Met {
		return output.Green("✓")
	}
	return output.Yellow(fmt.Sprintf("need "+format, g.Delta))
}

func newBreakdownCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breakdown",
		Short: "P&L grouped by day, month, weekday, hour, symbol, strategy or side",
		Example: `  journal breakdown --by symbol
  journal breakdown --by weekday --range 90d`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			by, _ := cmd.Flags().GetString("by")
			key, ok := calendar.KeyFuncs[strings.ToLower(by)]
			if !ok {
				return fmt.Errorf("unknown breakdown %q (day, month, weekday, hour, symbol, strategy, side)", by)
			}

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
				return err
			}

			buckets := calendar.Group(trades, key)
			if output.IsJSON() {
				if buckets == nil {
					buckets = []calendar.Bucket{}
				}
				return output.JSON(buckets)
			}
			if len(buckets) == 0 {
				output.Info("No closed trades in scope.")
				return nil
			}

			var maxAbs float64
			for _, b := range buckets {
				maxAbs = math.Max(maxAbs, math.Abs(b.PnL))
			}

			table := NewTable(output, strings.ToUpper(by[:1])+strings.ToLower(by[1:]), "Trades", "Win Rate", "P&L", "")
			for _, b := range buckets {
				bar := Bar(math.Abs(b.PnL), maxAbs, 20)
				if b.PnL >= 0 {
					bar = output.Green(bar)
				} else {
					bar = output.Red(bar)
				}
				table.AddRow(b.Key, fmt.Sprintf("%d", b.Count), fmt.Sprintf("%.1f%%", b.WinRate), output.FormatPnL(b.PnL), bar)
			}
			table.Render()
			return nil
		},
	}

	addFilterFlags(cmd)
	cmd.Flags().String("by", "symbol", "Grouping: day, month, weekday, hour, symbol, strategy, side")
	return cmd
}

func newCalendarCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "calendar",
		Short:   "Monthly P&L calendar",
		Example: `  journal calendar --month 2024-06`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			svc, err := app.service()
			if err != nil {
				return err
			}

			now := svc.Now()
			month, _ := cmd.Flags().GetString("month")
			first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
			if month != "" {
				if first, err = time.ParseInLocation("2006-01", month, now.Location()); err != nil {
					return fmt.Errorf("invalid month %q, expected YYYY-MM", month)
				}
			}

			account, _ := cmd.Flags().GetString("account")
			trades, err := svc.Trades(ctx, journal.Scope{AccountID: account})
			if err != nil {
				return err
			}

			grid := calendar.Month(trades, first.Year(), first.Month(), now.Location())
			if output.IsJSON() {
				return output.JSON(grid)
			}
			displayCalendar(output, grid)
			return nil
		},
	}

	cmd.Flags().String("account", "", "Account ID (default: global view)")
	cmd.Flags().String("month", "", "Month as YYYY-MM (default: current month)")
	return cmd
}

func displayCalendar(output *Output, g calendar.MonthGrid) {
	const cell = 9

	output.Bold("%s %d", g.Month, g.Year)
	var header []string
	for _, d := range []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"} {
		header = append(header, PadRight(d, cell))
	}
	output.Println(output.DimText(strings.Join(header, " ")))

	days := make([]string, 0, 2*7)
	pnls := make([]string, 0, 7)
	for i := 0; i < g.Leading; i++ {
		days = append(days, strings.Repeat(" ", cell))
		pnls = append(pnls, strings.Repeat(" ", cell))
	}
	flush := func() {
		output.Println(strings.Join(days, " "))
		output.Println(strings.Join(pnls, " "))
		days, pnls = days[:0], pnls[:0]
	}

	for _, d := range g.Days {
		days = append(days, PadRight(fmt.Sprintf("%2d", d.Day), cell))
		p := strings.Repeat(" ", cell)
		if d.Count > 0 {
			p = PadRight(output.FormatPnL(d.PnL), cell)
		}
		pnls = append(pnls, p)
		if len(days) == 7 {
			flush()
		}
	}
	if len(days) > 0 {
		flush()
	}

	output.Println()
	output.Printf("Month total: %s\n", output.FormatPnL(g.Total))
}

func newOptionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "List the values available for each filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			svc, err := app.service()
			if err != nil {
				return err
			}
			account, _ := cmd.Flags().GetString("account")
			trades, err := svc.Trades(ctx, journal.Scope{AccountID: account})
			if err != nil {
				return err
			}

			opts := filter.Options(trades)
			if output.IsJSON() {
				return output.JSON(opts)
			}
			output.Printf("%s %s\n", output.BoldText("Symbols:   "), strings.Join(opts.Symbols, ", "))
			output.Printf("%s %s\n", output.BoldText("Strategies:"), strings.Join(opts.Strategies, ", "))
			output.Printf("%s %s\n", output.BoldText("Setups:    "), strings.Join(opts.Setups, ", "))
			output.Printf("%s %s\n", output.BoldText("Tags:      "), strings.Join(opts.Tags, ", "))
			return nil
		},
	}

	cmd.Flags().String("account", "", "Account ID (default: global view)")
	return cmd
}
