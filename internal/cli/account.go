package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/models"
)

// addAccountCommands adds account and capital commands.
func addAccountCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"acc"},
		Short:   "Manage trading accounts and capital",
		Long: `Manage trading accounts, deposits and withdrawals.

Balances are never stored: they are derived from deposits, withdrawals and the
P&L of closed trades. Commands without --account work on the unassigned
(global) records.`,
	}

	cmd.AddCommand(newAccountAddCmd(app))
	cmd.AddCommand(newAccountListCmd(app))
	cmd.AddCommand(newAccountBalanceCmd(app))
	cmd.AddCommand(newTransactionCmd(app, models.TransactionDeposit))
	cmd.AddCommand(newTransactionCmd(app, models.TransactionWithdrawal))
	cmd.AddCommand(newTransactionsCmd(app))

	rootCmd.AddCommand(cmd)
}

func newAccountAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create an account",
		Example: `  journal account add "Bybit Futures" --exchange Bybit --leverage 10 --taker 0.055 --maker 0.02
  journal account add Prop --exclusive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			svc, err := app.service()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			currency, _ := flags.GetString("currency")
			exchange, _ := flags.GetString("exchange")
			leverage, _ := flags.GetFloat64("leverage")
			exclusive, _ := flags.GetBool("exclusive")
			favorites, _ := flags.GetStringSlice("favorites")

			a := models.Account{
				Name:            args[0],
				Currency:        strings.ToUpper(currency),
				Exchange:        exchange,
				Leverage:        leverage,
				IsExclusive:     exclusive,
				FavoriteSymbols: favorites,
			}
			if flags.Changed("maker") || flags.Changed("taker") || flags.Changed("fee-type") {
				maker, _ := flags.GetFloat64("maker")
				taker, _ := flags.GetFloat64("taker")
				feeType, _ := flags.GetString("fee-type")
				a.Fees = models.FeeConfig{Maker: maker, Taker: taker, Type: models.FeeType(strings.ToUpper(feeType))}
			}

			acc, err := svc.AddAccount(ctx, a)
			if err != nil {
				output.Error("Failed to create account: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(acc)
			}
			output.Success("✓ Account %q created", acc.Name)
			output.Printf("  ID: %s\n", acc.ID)
			return nil
		},
	}

	cmd.Flags().String("currency", "USD", "Account currency")
	cmd.Flags().String("exchange", "", "Exchange name")
	cmd.Flags().Float64("leverage", 1, "Default leverage")
	cmd.Flags().Bool("exclusive", false, "Keep this account out of the global view")
	cmd.Flags().StringSlice("favorites", nil, "Favorite symbols")
	cmd.Flags().Float64("maker", 0, "Maker fee")
	cmd.Flags().Float64("taker", 0, "Taker fee")
	cmd.Flags().String("fee-type", string(models.FeeTypePercentage), "Fee type (percentage, fixed)")
	return cmd
}

func newAccountListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List accounts with their balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			svc, err := app.service()
			if err != nil {
				return err
			}
			accounts, err := svc.Accounts(ctx)
			if err != nil {
				return err
			}

			type row struct {
				models.Account
				Balance float64 `json:"balance"`
			}
			rows := make([]row, 0, len(accounts))
			for _, a := range accounts {
				bal, err := svc.AccountBalance(ctx, a.ID)
				if err != nil {
					return err
				}
				rows = append(rows, row{Account: a, Balance: bal})
			}

			if output.IsJSON() {
				return output.JSON(rows)
			}
			if len(rows) == 0 {
				output.Info("No accounts. Create one with 'journal account add <name>'.")
				return nil
			}

			table := NewTable(output, "ID", "Name", "Exchange", "Leverage", "Fees", "Balance", "")
			for _, r := range rows {
				flag := ""
				if r.IsExclusive {
					flag = output.DimText("exclusive")
				}
				table.AddRow(
					r.ID,
					r.Name,
					r.Exchange,
					fmt.Sprintf("%gx", r.Leverage),
					FormatRate(r.Fees.Maker, r.Fees.Type)+" / "+FormatRate(r.Fees.Taker, r.Fees.Type),
					FormatMoney(r.Balance)+" "+r.Currency,
					flag,
				)
			}
			table.Render()
			return nil
		},
	}
}

func newAccountBalanceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the derived balance of an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			svc, err := app.service()
			if err != nil {
				return err
			}
			account, _ := cmd.Flags().GetString("account")
			bal, err := svc.AccountBalance(ctx, account)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"accountId": account, "balance": bal})
			}
			output.Printf("Balance: %s\n", output.BoldText(FormatMoney(bal)))
			return nil
		},
	}

	cmd.Flags().String("account", "", "Account ID (default: unassigned)")
	return cmd
}

func newTransactionCmd(app *App, typ models.TransactionType) *cobra.Command {
	use, short, label := "deposit", "Deposit capital", "Deposit"
	if typ == models.TransactionWithdrawal {
		use, short, label = "withdraw", "Withdraw capital", "Withdrawal"
	}

	cmd := &cobra.Command{
		Use:     use + " <amount>",
		Short:   short,
		Example: fmt.Sprintf("  journal account %s 1000 --account 6f1c... --note \"monthly\"", use),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			amount, err := strconv.ParseFloat(strings.ReplaceAll(args[0], ",", ""), 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}

			svc, err := app.service()
			if err != nil {
				return err
			}
			account, _ := cmd.Flags().GetString("account")
			note, _ := cmd.Flags().GetString("note")

			var tx *models.Transaction
			if typ == models.TransactionDeposit {
				tx, err = svc.Deposit(ctx, account, amount, note)
			} else {
				tx, err = svc.Withdraw(ctx, account, amount, note)
			}
			if err != nil {
				output.Error("%s failed: %v", short, err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(tx)
			}
			bal, err := svc.AccountBalance(ctx, account)
			if err != nil {
				return err
			}
			output.Success("✓ %s of %s recorded", label, FormatMoney(tx.Amount))
			output.Printf("  Balance: %s\n", FormatMoney(bal))
			return nil
		},
	}

	cmd.Flags().String("account", "", "Account ID (default: unassigned)")
	cmd.Flags().String("note", "", "Note")
	return cmd
}

func newTransactionsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "List deposits and withdrawals",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			svc, err := app.service()
			if err != nil {
				return err
			}
			account, _ := cmd.Flags().GetString("account")
			txs, err := svc.Store().ListTransactions(ctx, account)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if txs == nil {
					txs = []models.Transaction{}
				}
				return output.JSON(txs)
			}
			if len(txs) == 0 {
				output.Info("No transactions.")
				return nil
			}

			table := NewTable(output, "Date", "Type", "Amount", "Note")
			for _, tx := range txs {
				amount := output.Green(FormatMoney(tx.Amount))
				if tx.Type == models.TransactionWithdrawal {
					amount = output.Red(FormatMoney(-tx.Amount))
				}
				table.AddRow(FormatDateTime(tx.Date, app.Config.UI.DateFormat), string(tx.Type), amount, TruncateString(tx.Note, 30))
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("account", "", "Account ID (default: unassigned)")
	return cmd
}
