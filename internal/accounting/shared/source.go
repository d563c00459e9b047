package shared

import (
	"fmt"
	"strings"
)

// SourceModule labels the producer of a journal entry. The engine only filters on it.
type SourceModule string

const (
	SourceManualJournal       SourceModule = "MANUAL_JOURNAL"
	SourceSales               SourceModule = "SALES"
	SourcePurchases           SourceModule = "PURCHASES"
	SourcePOS                 SourceModule = "POS"
	SourceReversal            SourceModule = "REVERSAL"
	SourceSystem              SourceModule = "SYSTEM"
	SourceInventoryAdjustment SourceModule = "INVENTORY_ADJUSTMENT"
	SourceYearEndClosing      SourceModule = "YEAR_END_CLOSING"
)

var sourceModules = map[SourceModule]struct{}{
	SourceManualJournal:       {},
	SourceSales:               {},
	SourcePurchases:           {},
	SourcePOS:                 {},
	SourceReversal:            {},
	SourceSystem:              {},
	SourceInventoryAdjustment: {},
	SourceYearEndClosing:      {},
}

// ParseSourceModule accepts the lower or upper case label.
func ParseSourceModule(raw string) (SourceModule, error) {
	m := SourceModule(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := sourceModules[m]; !ok {
		return "", fmt.Errorf("accounting: unknown source module %q", raw)
	}
	return m, nil
}

// Valid reports whether m is a known label.
func (m SourceModule) Valid() bool {
	_, ok := sourceModules[m]
	return ok
}
