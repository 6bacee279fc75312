// Package csvimport turns arbitrary broker CSV exports into trade records
// and serializes trades back to CSV and XLSX.
package csvimport

import "strings"

// Field is a logical trade column a CSV header can resolve to.
type Field int

const (
	FieldDate Field = iota
	FieldSymbol
	FieldSide
	FieldPrice
	FieldQuantity
	FieldPnL
	FieldFee
	FieldStatus
)

// String returns the lowercase field name used in error messages.
func (f Field) String() string {
	switch f {
	case FieldDate:
		return "date"
	case FieldSymbol:
		return "symbol"
	case FieldSide:
		return "side"
	case FieldPrice:
		return "price"
	case FieldQuantity:
		return "quantity"
	case FieldPnL:
		return "pnl"
	case FieldFee:
		return "fee"
	case FieldStatus:
		return "status"
	default:
		return "unknown"
	}
}

type columnMatcher struct {
	field    Field
	keywords []string
}

// matchers is evaluated per field; a header matches when it equals or
// contains any keyword.
var matchers = []columnMatcher{
	{FieldDate, []string{"time", "date", "created", "timestamp", "datetime"}},
	{FieldSymbol, []string{"contract", "symbol", "pair", "instrument", "ticker", "market"}},
	{FieldSide, []string{"side", "type", "direction", "action"}},
	{FieldPrice, []string{"exec.price", "price", "avg", "entry", "fill", "avg price"}},
	{FieldQuantity, []string{"qty", "quantity", "amount", "size", "volume", "executed"}},
	{FieldPnL, []string{"realised p&l", "pnl", "profit", "roe", "realized"}},
	{FieldFee, []string{"trading fees", "fee", "commission"}},
	{FieldStatus, []string{"status", "state"}},
}

// mandatory fields abort the whole import when missing.
var mandatory = []Field{FieldSymbol, FieldPrice, FieldDate}

// ColumnMap maps a logical field to the original header it was found under.
type ColumnMap map[Field]string

// Has reports whether the field was resolved.
func (m ColumnMap) Has(f Field) bool {
	_, ok := m[f]
	return ok
}

// Value returns the row value for a field, or "" when the column is absent.
func (m ColumnMap) Value(row map[string]string, f Field) string {
	h, ok := m[f]
	if !ok {
		return ""
	}
	return strings.TrimSpace(row[h])
}

// ResolveColumns returns, for each field, the first header in header order
// that matches one of the field's keywords.
func ResolveColumns(headers []string) ColumnMap {
	cols := make(ColumnMap, len(matchers))
	for _, m := range matchers {
		for _, h := range headers {
			if matchHeader(normalizeHeader(h), m.keywords) {
				cols[m.field] = h
				break
			}
		}
	}
	return cols
}

// Missing lists the mandatory fields that did not resolve, in the order
// symbol, price, date.
func (m ColumnMap) Missing() []Field {
	var out []Field
	for _, f := range mandatory {
		if !m.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

const bom = "\ufeff"

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, bom)))
}

func matchHeader(header string, keywords []string) bool {
	if header == "" {
		return false
	}
	for _, k := range keywords {
		if header == k || strings.Contains(header, k) {
			return true
		}
	}
	return false
}
