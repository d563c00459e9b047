package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// PostedLine is a journal line of a posted entry together with its header.
type PostedLine struct {
	EntryID      int64               `json:"entry_id"`
	EntryNo      int64               `json:"entry_no"`
	EntryDate    time.Time           `json:"entry_date"`
	SourceModule shared.SourceModule `json:"source_module"`
	Memo         string              `json:"memo"`
	LineNo       int                 `json:"line_no"`
	AccountID    int64               `json:"account_id"`
	Description  string              `json:"description,omitempty"`
	Debit        decimal.Decimal     `json:"debit"`
	Credit       decimal.Decimal     `json:"credit"`
	PartnerID    *int64              `json:"partner_id,omitempty"`
	DueDate      *time.Time          `json:"due_date,omitempty"`
	BranchID     *int64              `json:"branch_id,omitempty"`
}

// LineFilter selects posted lines. Date bounds are inclusive; nil means open.
type LineFilter struct {
	AccountIDs     []int64
	From           *time.Time
	To             *time.Time
	BranchID       *int64
	ExcludeSources []shared.SourceModule
}

// Match reports whether l passes the filter.
func (f LineFilter) Match(l PostedLine) bool {
	if f.From != nil && l.EntryDate.Before(*f.From) {
		return false
	}
	if f.To != nil && l.EntryDate.After(*f.To) {
		return false
	}
	if f.BranchID != nil && (l.BranchID == nil || *l.BranchID != *f.BranchID) {
		return false
	}
	if len(f.AccountIDs) > 0 {
		hit := false
		for _, id := range f.AccountIDs {
			if id == l.AccountID {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, src := range f.ExcludeSources {
		if l.SourceModule == src {
			return false
		}
	}
	return true
}

// GLQuery selects a general ledger view.
type GLQuery struct {
	AccountID int64
	From      *time.Time
	To        *time.Time
	BranchID  *int64
}

// GLTransaction is one posted line with the running balance after it.
type GLTransaction struct {
	EntryID        int64               `json:"entry_id"`
	EntryNo        int64               `json:"entry_no"`
	EntryDate      time.Time           `json:"entry_date"`
	LineNo         int                 `json:"line_no"`
	AccountID      int64               `json:"account_id"`
	SourceModule   shared.SourceModule `json:"source_module"`
	Description    string              `json:"description"`
	Debit          decimal.Decimal     `json:"debit"`
	Credit         decimal.Decimal     `json:"credit"`
	RunningBalance decimal.Decimal     `json:"running_balance"`
}

// GeneralLedgerResult is the general ledger of one account over a range.
type GeneralLedgerResult struct {
	Account        accounts.Account `json:"account"`
	From           *time.Time       `json:"from,omitempty"`
	To             *time.Time       `json:"to,omitempty"`
	OpeningBalance decimal.Decimal  `json:"opening_balance"`
	Transactions   []GLTransaction  `json:"transactions"`
	TotalDebits    decimal.Decimal  `json:"total_debits"`
	TotalCredits   decimal.Decimal  `json:"total_credits"`
	ClosingBalance decimal.Decimal  `json:"closing_balance"`
}

// TrialBalanceRow is the cumulative position of one leaf account.
type TrialBalanceRow struct {
	AccountID int64                `json:"account_id"`
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	Type      accounts.AccountType `json:"type"`
	Debit     decimal.Decimal      `json:"debit"`
	Credit    decimal.Decimal      `json:"credit"`
	Balance   decimal.Decimal      `json:"balance"`
}

// TrialBalanceResult lists every leaf account as of a date.
type TrialBalanceResult struct {
	AsOf        time.Time            `json:"as_of"`
	Rows        []TrialBalanceRow    `json:"rows"`
	TotalDebit  decimal.Decimal      `json:"total_debit"`
	TotalCredit decimal.Decimal      `json:"total_credit"`
	Net         decimal.Decimal      `json:"net"`
	Grouped     reports.TrialBalance `json:"grouped"`
}

// Check verifies the double-entry invariant over the whole ledger. Stored
// entries balance to the cent, so any nonzero net is a defect.
func (tb TrialBalanceResult) Check() error {
	if !tb.Net.IsZero() {
		return fmt.Errorf("%w: as of %s debit %s credit %s",
			internalShared.ErrTrialBalanceUnbalanced,
			tb.AsOf.Format(internalShared.DateLayout),
			tb.TotalDebit.StringFixed(2), tb.TotalCredit.StringFixed(2))
	}
	return nil
}

// IncomeStatement wraps the profit and loss figures for a range.
type IncomeStatement struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	reports.ProfitAndLoss
}

// BalanceSheet wraps the balance sheet as of a date.
type BalanceSheet struct {
	AsOf time.Time `json:"as_of"`
	reports.BalanceSheet
}

// CashFlowStatement is a direct or indirect cash flow for a range.
type CashFlowStatement struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	reports.CashFlow
}

// SupplierAging lists open payables by supplier.
type SupplierAging struct {
	AsOf    time.Time                  `json:"as_of"`
	Rows    []reports.AgingRow         `json:"rows"`
	Totals  map[string]decimal.Decimal `json:"totals"`
	Total   decimal.Decimal            `json:"total"`
	Buckets []string                   `json:"buckets"`
}
