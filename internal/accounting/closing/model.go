package closing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// Input requests the close of one fiscal year. A nil ClosingDate defaults to
// the last day of the year's last period.
type Input struct {
	FiscalYear  int
	ClosingDate *time.Time
	Actor       shared.Actor
}

// Result reports the closing entry and the periods that were locked.
type Result struct {
	FiscalYear     int              `json:"fiscal_year"`
	ClosingDate    time.Time        `json:"closing_date"`
	JournalEntryID *int64           `json:"journal_entry_id,omitempty"`
	JournalEntryNo *int64           `json:"journal_entry_no,omitempty"`
	NetIncome      decimal.Decimal  `json:"net_income"`
	ClosedPeriods  []periods.Period `json:"closed_periods"`
}
