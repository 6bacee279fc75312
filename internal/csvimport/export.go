package csvimport

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"trade-journal/internal/models"
)

const (
	listSep   = "|"
	sheetName = "Trades"
)

// ExportRow is the flat CSV shape of a trade. The leading columns use header
// names the import keyword table resolves, so an export can be re-imported.
type ExportRow struct {
	Date           string `csv:"Date"`
	Symbol         string `csv:"Symbol"`
	Side           string `csv:"Side"`
	Price          string `csv:"Price"`
	Quantity       string `csv:"Quantity"`
	PnL            string `csv:"PnL"`
	Fee            string `csv:"Fee"`
	Status         string `csv:"Status"`
	ID             string `csv:"ID"`
	ExitPrice      string `csv:"Exit Price"`
	ExitDate       string `csv:"Exit Date"`
	PnLPercentage  string `csv:"PnL %"`
	Capital        string `csv:"Capital"`
	Leverage       string `csv:"Leverage"`
	Exchange       string `csv:"Exchange"`
	TradeType      string `csv:"Trade Type"`
	Strategy       string `csv:"Strategy"`
	StrategyID     string `csv:"Strategy ID"`
	StopLoss       string `csv:"Stop Loss"`
	TakeProfit     string `csv:"Take Profit"`
	RiskReward     string `csv:"Risk Reward"`
	ExitQuality    string `csv:"Exit Quality"`
	Notes          string `csv:"Notes"`
	EntryReasons   string `csv:"Entry Reasons"`
	ExitReasons    string `csv:"Exit Reasons"`
	MentalState    string `csv:"Mental State"`
	Tags           string `csv:"Tags"`
	Setups         string `csv:"Setups"`
	EntryChecklist string `csv:"Entry Checklist"`
	ExitChecklist  string `csv:"Exit Checklist"`
	AccountID      string `csv:"Account ID"`
}

// exportHeaders must follow ExportRow field order.
var exportHeaders = []string{
	"Date", "Symbol", "Side", "Price", "Quantity", "PnL", "Fee", "Status", "ID",
	"Exit Price", "Exit Date", "PnL %", "Capital", "Leverage", "Exchange",
	"Trade Type", "Strategy", "Strategy ID", "Stop Loss", "Take Profit",
	"Risk Reward", "Exit Quality", "Notes", "Entry Reasons", "Exit Reasons",
	"Mental State", "Tags", "Setups", "Entry Checklist", "Exit Checklist",
	"Account ID",
}

// ToExportRow flattens a trade. Optional values are empty when unset and
// list fields are joined with '|'.
func ToExportRow(t *models.Trade) ExportRow {
	row := ExportRow{
		Date:           t.EntryDate.Format(time.RFC3339),
		Symbol:         t.Symbol,
		Side:           string(t.Side),
		Price:          formatFloat(t.EntryPrice),
		Quantity:       formatFloat(t.Quantity),
		PnL:            formatOptional(t.PnL),
		Fee:            formatOptional(t.Fees),
		Status:         string(t.Status),
		ID:             t.ID,
		ExitPrice:      formatOptional(t.ExitPrice),
		PnLPercentage:  formatOptional(t.PnLPercentage),
		Capital:        formatFloat(t.Capital),
		Leverage:       formatFloat(t.Leverage),
		Exchange:       t.Exchange,
		TradeType:      string(t.TradeType),
		Strategy:       t.Strategy,
		StrategyID:     t.StrategyID,
		StopLoss:       formatOptional(t.StopLoss),
		TakeProfit:     formatOptional(t.TakeProfit),
		RiskReward:     formatOptional(t.RiskReward),
		Notes:          t.Notes,
		EntryReasons:   strings.Join(t.EntryReasons, listSep),
		ExitReasons:    strings.Join(t.ExitReasons, listSep),
		MentalState:    strings.Join(t.MentalState, listSep),
		Tags:           strings.Join(t.Tags, listSep),
		Setups:         strings.Join(t.Setups, listSep),
		EntryChecklist: strings.Join(t.EntryChecklist, listSep),
		ExitChecklist:  strings.Join(t.ExitChecklist, listSep),
		AccountID:      t.AccountID,
	}
	if t.ExitDate != nil {
		row.ExitDate = t.ExitDate.Format(time.RFC3339)
	}
	if t.ExitQuality > 0 {
		row.ExitQuality = strconv.Itoa(t.ExitQuality)
	}
	return row
}

func (r ExportRow) cells() []interface{} {
	return []interface{}{
		r.Date, r.Symbol, r.Side, r.Price, r.Quantity, r.PnL, r.Fee, r.Status, r.ID,
		r.ExitPrice, r.ExitDate, r.PnLPercentage, r.Capital, r.Leverage, r.Exchange,
		r.TradeType, r.Strategy, r.StrategyID, r.StopLoss, r.TakeProfit,
		r.RiskReward, r.ExitQuality, r.Notes, r.EntryReasons, r.ExitReasons,
		r.MentalState, r.Tags, r.Setups, r.EntryChecklist, r.ExitChecklist,
		r.AccountID,
	}
}

// ExportCSV writes every field of every trade as CSV.
func ExportCSV(w io.Writer, trades []models.Trade) error {
	rows := make([]*ExportRow, 0, len(trades))
	for i := range trades {
		row := ToExportRow(&trades[i])
		rows = append(rows, &row)
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("marshal csv: %w", err)
	}
	return nil
}

// ExportFilename is the download name for an export taken at now.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("trades_export_%s.csv", now.Format("2006-01-02"))
}

// ExportXLSXFilename is ExportFilename with an .xlsx extension.
func ExportXLSXFilename(now time.Time) string {
	return strings.TrimSuffix(ExportFilename(now), ".csv") + ".xlsx"
}

// ExportXLSX writes the trades to a single-sheet workbook with the same
// columns as ExportCSV. Numeric columns are stored as numbers.
func ExportXLSX(w io.Writer, trades []models.Trade) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write header %s: %w", h, err)
		}
	}

	for r := range trades {
		cells := ToExportRow(&trades[r]).cells()
		for c, v := range cells {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, xlsxValue(v)); err != nil {
				return fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 22); err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// xlsxValue stores numeric strings as numbers so spreadsheet formulas work.
func xlsxValue(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(p *float64) string {
	if p == nil {
		return ""
	}
	return formatFloat(*p)
}
