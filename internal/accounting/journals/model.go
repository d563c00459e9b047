package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
)

// SequenceJournalEntry names the global entry number counter.
const SequenceJournalEntry = "journal_entry"

// JournalEntry captures posting metadata.
type JournalEntry struct {
	ID           int64               `json:"id"`
	EntryNo      int64               `json:"entry_no"`
	EntryDate    time.Time           `json:"entry_date"`
	Description  string              `json:"description"`
	SourceModule shared.SourceModule `json:"source_module"`
	SourceID     uuid.UUID           `json:"source_id"`
	IsPosted     bool                `json:"is_posted"`
	IsReversed   bool                `json:"is_reversed"`
	ReversalOfID *int64              `json:"reversal_of_id,omitempty"`
	ReversedByID *int64              `json:"reversed_by_id,omitempty"`
	PostedAt     *time.Time          `json:"posted_at,omitempty"`
	PostedBy     *int64              `json:"posted_by,omitempty"`
	CreatedBy    int64               `json:"created_by"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Lines        []JournalLine       `json:"lines,omitempty"`
}

// Totals sums the debit and credit sides.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// JournalLine stores debit or credit amount for an account.
type JournalLine struct {
	ID          int64           `json:"id"`
	JournalID   int64           `json:"journal_id"`
	LineNo      int             `json:"line_no"`
	AccountID   int64           `json:"account_id"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	PartnerID   *int64          `json:"partner_id,omitempty"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	BranchID    *int64          `json:"branch_id,omitempty"`
	WarehouseID *int64          `json:"warehouse_id,omitempty"`
}

// Filter narrows journal listings. Nil fields match everything.
type Filter struct {
	StartDate    *time.Time
	EndDate      *time.Time
	IsPosted     *bool
	SourceModule *shared.SourceModule
}

// Match reports whether e satisfies the filter.
func (f Filter) Match(e JournalEntry) bool {
	if f.StartDate != nil && e.EntryDate.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.EntryDate.After(*f.EndDate) {
		return false
	}
	if f.IsPosted != nil && e.IsPosted != *f.IsPosted {
		return false
	}
	if f.SourceModule != nil && e.SourceModule != *f.SourceModule {
		return false
	}
	return true
}
