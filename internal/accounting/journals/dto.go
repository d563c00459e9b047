package journals

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
)

// LineInput describes a journal line for a create or update request.
type LineInput struct {
	AccountID   int64           `json:"account_id"`
	Description string          `json:"description,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	PartnerID   *int64          `json:"partner_id,omitempty"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	BranchID    *int64          `json:"branch_id,omitempty"`
	WarehouseID *int64          `json:"warehouse_id,omitempty"`
}

// CreateInput groups fields required to create a journal entry.
type CreateInput struct {
	EntryDate    time.Time
	Description  string
	SourceModule shared.SourceModule
	SourceID     uuid.UUID
	Post         bool
	ActorID      int64
	ReversalOfID *int64
	Lines        []LineInput
}

// CreateResult identifies the stored entry.
type CreateResult struct {
	JournalID int64 `json:"journal_id"`
	EntryNo   int64 `json:"entry_no"`
	IsPosted  bool  `json:"is_posted"`
}

// UpdateInput replaces the content of a draft.
type UpdateInput struct {
	EntryDate   time.Time
	Description string
	Lines       []LineInput
}

// ReverseInput wraps parameters for reversal.
type ReverseInput struct {
	EntryID     int64
	Date        *time.Time
	Description string
	ActorID     int64
}

// ValidationResult lists every problem found in a set of lines.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}
