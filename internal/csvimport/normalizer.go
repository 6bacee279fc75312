package csvimport

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// ImportedLabel is written into the exchange and strategy of imported trades.
const ImportedLabel = "Imported"

const unknownSymbol = "UNKNOWN"

// Result is the outcome of a normalization pass.
type Result struct {
	Trades []models.Trade `json:"trades"`
	Errors []string       `json:"errors"`

	// Skipped counts rows dropped for being cancelled, symbol-less or malformed.
	Skipped int `json:"skipped"`

	missing []string
}

// Err returns an ImportError when mandatory columns were missing.
func (r Result) Err() error {
	if len(r.missing) == 0 {
		return nil
	}
	return jerrors.NewImportError(r.missing)
}

var (
	// Zone abbreviations brokers append to timestamps, optionally with an offset.
	tzSuffix = regexp.MustCompile(`(?i)\s*\(?\b(UTC|GMT|IST|EST|EDT|CST|CDT|MST|MDT|PST|PDT|CET|CEST|EET|EEST|BST|JST|KST|SGT|HKT|AEST|AEDT)([+-]\d{1,2}(:?\d{2})?)?\)?\s*$`)
	nonNumeric = regexp.MustCompile(`[^0-9.\-]`)
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"02-01-2006 15:04:05",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
}

// Normalize converts parsed CSV rows into trades. Rows are maps keyed by the
// original header names. When any of the symbol, price or date columns cannot
// be resolved, no trades are produced and Errors holds one message per
// missing column.
func Normalize(rows []map[string]string, headers []string, now time.Time) Result {
	cols := ResolveColumns(headers)

	if missing := cols.Missing(); len(missing) > 0 {
		res := Result{Trades: []models.Trade{}}
		for _, f := range missing {
			res.Errors = append(res.Errors, fmt.Sprintf("Missing required column: %s", f))
			res.missing = append(res.missing, f.String())
		}
		return res
	}

	res := Result{Trades: make([]models.Trade, 0, len(rows)), Errors: []string{}}
	stamp := now.UnixMilli()

	for i, row := range rows {
		t, ok := normalizeRow(row, cols, i, stamp, now)
		if !ok {
			res.Skipped++
			continue
		}
		res.Trades = append(res.Trades, t)
	}
	return res
}

// normalizeRow builds one trade. Any panic raised while parsing drops the row.
func normalizeRow(row map[string]string, cols ColumnMap, idx int, stamp int64, now time.Time) (t models.Trade, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	status := strings.ToLower(cols.Value(row, FieldStatus))
	if isCancelled(status) {
		return t, false
	}

	symbol := strings.ToUpper(cols.Value(row, FieldSymbol))
	if symbol == "" {
		symbol = unknownSymbol
	}
	if symbol == unknownSymbol {
		return t, false
	}

	price, err := ParseNumber(cols.Value(row, FieldPrice))
	if err != nil {
		return t, false
	}
	qty, err := ParseNumber(cols.Value(row, FieldQuantity))
	if err != nil {
		return t, false
	}
	qty = math.Abs(qty)
	pnl, err := ParseNumber(cols.Value(row, FieldPnL))
	if err != nil {
		return t, false
	}
	fee, err := ParseNumber(cols.Value(row, FieldFee))
	if err != nil {
		return t, false
	}

	date := ParseDate(cols.Value(row, FieldDate), now)
	capital := math.Abs(price * qty)

	t = models.Trade{
		ID:         fmt.Sprintf("imp-%d-%d", stamp, idx),
		Symbol:     symbol,
		Side:       ParseSide(cols.Value(row, FieldSide)),
		EntryPrice: price,
		Quantity:   qty,
		Capital:    capital,
		Leverage:   1,
		EntryDate:  date,
		Status:     models.StatusOpen,
		Exchange:   ImportedLabel,
		Strategy:   ImportedLabel,
		TradeType:  models.TradeTypePast,
		Notes:      "Imported. Fee: " + strconv.FormatFloat(fee, 'f', -1, 64),
	}
	if cols.Has(FieldFee) {
		t.Fees = models.Float(fee)
	}

	if pnl != 0 || fee > 0 || status == "closed" {
		exitDate := date
		t.Status = models.StatusClosed
		t.ExitPrice = models.Float(price)
		t.ExitDate = &exitDate
		t.PnL = models.Float(pnl)
		t.PnLPercentage = models.Float(models.PnLPercent(pnl, capital))
	}

	if err := t.Validate(); err != nil {
		return models.Trade{}, false
	}
	return t, true
}

func isCancelled(status string) bool {
	return strings.Contains(status, "cancelled") ||
		strings.Contains(status, "canceled") ||
		strings.Contains(status, "rejected")
}

// ParseSide maps free-form side text to a trade side. Anything that does not
// mention sell or short is LONG.
func ParseSide(s string) models.Side {
	s = strings.ToLower(s)
	if strings.Contains(s, "sell") || strings.Contains(s, "short") {
		return models.SideShort
	}
	return models.SideLong
}

// ParseNumber strips everything except digits, '.' and '-' and parses the
// rest as a decimal. Empty input is zero.
func ParseNumber(s string) (float64, error) {
	clean := nonNumeric.ReplaceAllString(s, "")
	if clean == "" || clean == "-" || clean == "." {
		return 0, nil
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", s, err)
	}
	v, _ := d.Float64()
	return v, nil
}

// ParseDate parses a broker timestamp after removing a trailing zone
// abbreviation. Values without an offset are read in now's location.
// Unparseable input yields now.
func ParseDate(s string, now time.Time) time.Time {
	s = strings.TrimSpace(tzSuffix.ReplaceAllString(strings.TrimSpace(s), ""))
	if s == "" {
		return now
	}
	loc := now.Location()
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, s, loc); err == nil {
			return d
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		// Millisecond epochs have 13 digits.
		if n > 1e11 {
			return time.UnixMilli(n).In(loc)
		}
		return time.Unix(n, 0).In(loc)
	}
	return now
}
