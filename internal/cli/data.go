package cli

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/csvimport"
	jerrors "trade-journal/internal/errors"
)

// addDataCommands adds CSV import and export commands.
func addDataCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newExportCmd(app))
}

func newImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import trades from an exchange CSV export",
		Long: `Import trades from a broker or exchange CSV export.

Column names are matched case-insensitively against common aliases, e.g.
"Date(UTC)", "Pair", "Realized PnL" or "Commission". Symbol, price and date
columns are required. Cancelled and symbol-less rows are skipped.`,
		Example: `  journal import binance_futures_history.csv
  journal import bybit.csv --account 6f1c...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			svc, err := app.service()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				output.Error("Failed to open %s: %v", args[0], err)
				return err
			}
			defer f.Close()

			account, _ := cmd.Flags().GetString("account")
			res, err := svc.Import(ctx, f, filepath.Base(args[0]), account)
			if err != nil {
				if jerrors.Is(err, jerrors.ErrMissingColumns) {
					for _, e := range res.Errors {
						output.Error("%s", e)
					}
				} else {
					output.Error("Import failed: %v", err)
				}
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"imported": len(res.Trades),
					"skipped":  res.Skipped,
					"errors":   res.Errors,
				})
			}

			output.Success("✓ Imported %d trade(s) from %s", len(res.Trades), filepath.Base(args[0]))
			if res.Skipped > 0 {
				output.Warning("  Skipped %d row(s)", res.Skipped)
			}
			for _, e := range res.Errors {
				output.Dim("  %s", e)
			}
			return nil
		},
	}

	cmd.Flags().String("account", "", "Assign imported trades to this account")
	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export trades to CSV or XLSX",
		Example: `  journal export
  journal export --xlsx --range 30d
  journal export --out trades.csv --symbol BTCUSDT`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			svc, err := app.service()
			if err != nil {
				return err
			}
			sc, err := scopeFromFlags(cmd, svc)
			if err != nil {
				return err
			}

			xlsx, _ := cmd.Flags().GetBool("xlsx")
			path, _ := cmd.Flags().GetString("out")
			if path == "" {
				path = csvimport.ExportFilename(svc.Now())
				if xlsx {
					path = csvimport.ExportXLSXFilename(svc.Now())
				}
			}

			f, err := os.Create(path)
			if err != nil {
				output.Error("Failed to create %s: %v", path, err)
				return err
			}
			n, err := svc.Export(ctx, f, sc, xlsx)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				output.Error("Export failed: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"path": path, "trades": n})
			}
			output.Success("✓ Exported %d trade(s) to %s", n, path)
			return nil
		},
	}

	addFilterFlags(cmd)
	cmd.Flags().Bool("xlsx", false, "Write an Excel workbook instead of CSV")
	cmd.Flags().StringP("out", "o", "", "Output file (default: trades_export_<date>.csv)")
	return cmd
}
