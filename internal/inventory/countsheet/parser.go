// Package countsheet reads physical stock count sheets exported from
// spreadsheet tools. Headers may be English or Arabic.
package countsheet

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	colProduct = "product_id"
	colBatch   = "batch_number"
	colCounted = "counted_qty"
	colCost    = "unit_cost"
)

var headerAliases = map[string]string{
	"product_id":       colProduct,
	"product id":       colProduct,
	"product":          colProduct,
	"رقم المنتج":       colProduct,
	"كود المنتج":       colProduct,
	"المنتج":           colProduct,
	"batch_number":     colBatch,
	"batch number":     colBatch,
	"batch":            colBatch,
	"lot":              colBatch,
	"رقم التشغيلة":     colBatch,
	"التشغيلة":         colBatch,
	"الدفعة":           colBatch,
	"counted_qty":      colCounted,
	"counted qty":      colCounted,
	"counted quantity": colCounted,
	"counted":          colCounted,
	"qty":              colCounted,
	"الكمية المعدودة":  colCounted,
	"الكمية الفعلية":   colCounted,
	"الكمية":           colCounted,
	"unit_cost":        colCost,
	"unit cost":        colCost,
	"cost":             colCost,
	"تكلفة الوحدة":     colCost,
	"التكلفة":          colCost,
}

// ErrEmptySheet is returned when a workbook carries no count rows.
var ErrEmptySheet = errors.New("countsheet: no count rows")

// Row is one counted product line.
type Row struct {
	Line        int
	ProductID   int64
	BatchNumber string
	CountedQty  decimal.Decimal
	UnitCost    *decimal.Decimal
}

// Parse reads the first sheet of an xlsx workbook.
func Parse(reader io.Reader) ([]Row, error) {
	file, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("countsheet: open workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("countsheet: read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	cols := mapColumns(rows[0])
	for _, required := range []string{colProduct, colCounted} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("countsheet: missing required column %s", required)
		}
	}

	out := make([]Row, 0, len(rows)-1)
	for idx := 1; idx < len(rows); idx++ {
		cells := rows[idx]
		line := idx + 1
		rawProduct := digits(readCell(cells, cols[colProduct]))
		if rawProduct == "" {
			continue
		}
		product, err := strconv.ParseInt(rawProduct, 10, 64)
		if err != nil || product <= 0 {
			return nil, fmt.Errorf("countsheet: row %d invalid product id %q", line, rawProduct)
		}
		counted, err := parseDecimal(readCell(cells, cols[colCounted]))
		if err != nil {
			return nil, fmt.Errorf("countsheet: row %d invalid counted quantity: %w", line, err)
		}
		if counted.IsNegative() {
			return nil, fmt.Errorf("countsheet: row %d counted quantity cannot be negative", line)
		}
		row := Row{Line: line, ProductID: product, CountedQty: counted}
		if i, ok := cols[colBatch]; ok {
			row.BatchNumber = digits(readCell(cells, i))
		}
		if i, ok := cols[colCost]; ok {
			if raw := strings.TrimSpace(readCell(cells, i)); raw != "" {
				cost, err := parseDecimal(raw)
				if err != nil {
					return nil, fmt.Errorf("countsheet: row %d invalid unit cost: %w", line, err)
				}
				row.UnitCost = &cost
			}
		}
		out = append(out, row)
	}
	if len(out) == 0 {
		return nil, ErrEmptySheet
	}
	return out, nil
}

func mapColumns(header []string) map[string]int {
	mapped := make(map[string]int)
	for idx, col := range header {
		canonical, ok := headerAliases[normalizeHeader(col)]
		if !ok {
			continue
		}
		if _, exists := mapped[canonical]; !exists {
			mapped[canonical] = idx
		}
	}
	return mapped
}

func normalizeHeader(raw string) string {
	// tatweel (U+0640) is decorative elongation
	clean := transform.Chain(norm.NFKC, runes.Remove(runes.Predicate(func(r rune) bool { return r == '\u0640' })))
	value, _, err := transform.String(clean, raw)
	if err != nil {
		value = raw
	}
	value = strings.TrimPrefix(strings.TrimSpace(value), "\ufeff")
	value = cases.Fold().String(value)
	value = strings.ReplaceAll(value, "_", " ")
	return strings.Join(strings.Fields(value), " ")
}

// asciiDigits maps Arabic-Indic and Eastern Arabic-Indic digits and the
// Arabic separators to ASCII.
func asciiDigits(r rune) rune {
	switch {
	case r >= '\u0660' && r <= '\u0669':
		return '0' + (r - '\u0660')
	case r >= '\u06f0' && r <= '\u06f9':
		return '0' + (r - '\u06f0')
	case r == '\u066b':
		return '.'
	case r == '\u066c':
		return ','
	}
	return r
}

func digits(raw string) string {
	value, _, err := transform.String(runes.Map(asciiDigits), raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(value)
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	value := strings.ReplaceAll(digits(raw), ",", "")
	if value == "" {
		return decimal.Zero, errors.New("value is empty")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %q", raw)
	}
	return d, nil
}

func readCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
