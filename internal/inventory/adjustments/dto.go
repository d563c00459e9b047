package adjustments

import (
	"time"

	"github.com/shopspring/decimal"
)

// ManualItem sets the target quantity of one product batch.
type ManualItem struct {
	ProductID     int64
	BatchNumber   string
	QuantityAfter decimal.Decimal
	UnitCost      *decimal.Decimal
}

// ManualInput stages an adjustment entered by hand.
type ManualInput struct {
	WarehouseID int64
	Date        time.Time
	Reason      Reason
	Notes       string
	ActorID     int64
	Items       []ManualItem
}

// CountLine is one counted product batch.
type CountLine struct {
	ProductID   int64
	BatchNumber string
	CountedQty  decimal.Decimal
	UnitCost    *decimal.Decimal
}

// CountInput stages a physical stock count.
type CountInput struct {
	WarehouseID int64
	Date        time.Time
	Notes       string
	ActorID     int64
	Lines       []CountLine
}

// PostResult identifies what posting produced. The journal fields are nil
// when the net value difference is zero.
type PostResult struct {
	AdjustmentNumber     string          `json:"adjustment_number"`
	JournalEntryID       *int64          `json:"journal_entry_id,omitempty"`
	JournalEntryNo       *int64          `json:"journal_entry_number,omitempty"`
	TotalDifferenceQty   decimal.Decimal `json:"total_difference_qty"`
	TotalDifferenceValue decimal.Decimal `json:"total_difference_value"`
}
