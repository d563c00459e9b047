package adjustments

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SequenceStockAdjustment names the adjustment number counter.
const SequenceStockAdjustment = "stock_adjustment"

// FormatNumber renders a sequence value as an adjustment number.
func FormatNumber(n int64) string {
	return fmt.Sprintf("ADJ-%06d", n)
}

// Reason explains why stock changed.
type Reason string

const (
	ReasonStockCount     Reason = "STOCK_COUNT"
	ReasonDamaged        Reason = "DAMAGED"
	ReasonExpired        Reason = "EXPIRED"
	ReasonFound          Reason = "FOUND"
	ReasonOpeningBalance Reason = "OPENING_BALANCE"
	ReasonTheft          Reason = "THEFT"
	ReasonDonation       Reason = "DONATION"
	ReasonOther          Reason = "OTHER"
)

// ParseReason accepts the lower or upper case label.
func ParseReason(raw string) (Reason, bool) {
	r := Reason(strings.ToUpper(strings.TrimSpace(raw)))
	switch r {
	case ReasonStockCount, ReasonDamaged, ReasonExpired, ReasonFound,
		ReasonOpeningBalance, ReasonTheft, ReasonDonation, ReasonOther:
		return r, true
	}
	return "", false
}

// Status tracks the adjustment lifecycle.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPosted    Status = "POSTED"
	StatusCancelled Status = "CANCELLED"
)

// Adjustment is a staged or posted stock correction for one warehouse.
type Adjustment struct {
	ID                   int64           `json:"id"`
	AdjustmentNumber     string          `json:"adjustment_number"`
	WarehouseID          int64           `json:"warehouse_id"`
	AdjustmentDate       time.Time       `json:"adjustment_date"`
	Reason               Reason          `json:"reason"`
	Status               Status          `json:"status"`
	TotalDifferenceQty   decimal.Decimal `json:"total_difference_qty"`
	TotalDifferenceValue decimal.Decimal `json:"total_difference_value"`
	JournalEntryID       *int64          `json:"journal_entry_id,omitempty"`
	JournalEntryNo       *int64          `json:"journal_entry_no,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	CreatedBy            int64           `json:"created_by"`
	CreatedAt            time.Time       `json:"created_at"`
	PostedAt             *time.Time      `json:"posted_at,omitempty"`
	PostedBy             *int64          `json:"posted_by,omitempty"`
	CancelledAt          *time.Time      `json:"cancelled_at,omitempty"`
	Items                []Item          `json:"items"`
}

// PostingItems returns the items that move stock.
func (a Adjustment) PostingItems() []Item {
	out := make([]Item, 0, len(a.Items))
	for _, it := range a.Items {
		if !it.NoChange {
			out = append(out, it)
		}
	}
	return out
}

// Totals sums quantity and value differences of the posting items.
func (a Adjustment) Totals() (qty, value decimal.Decimal) {
	qty, value = decimal.Zero, decimal.Zero
	for _, it := range a.PostingItems() {
		qty = qty.Add(it.QuantityDiff)
		value = value.Add(it.TotalCostDiff)
	}
	return qty, value
}

// Item is one product line. QuantityBefore is the on-hand seen at staging.
type Item struct {
	ID             int64           `json:"id"`
	AdjustmentID   int64           `json:"adjustment_id"`
	LineNo         int             `json:"line_no"`
	ProductID      int64           `json:"product_id"`
	BatchNumber    string          `json:"batch_number,omitempty"`
	QuantityBefore decimal.Decimal `json:"quantity_before"`
	QuantityAfter  decimal.Decimal `json:"quantity_after"`
	QuantityDiff   decimal.Decimal `json:"quantity_diff"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	TotalCostDiff  decimal.Decimal `json:"total_cost_diff"`
	Counted        bool            `json:"counted"`
	NoChange       bool            `json:"no_change"`
}

// Filter narrows adjustment listings.
type Filter struct {
	WarehouseID *int64
	Status      *Status
	From        *time.Time
	To          *time.Time
}

// Match reports whether a passes the filter.
func (f Filter) Match(a Adjustment) bool {
	if f.WarehouseID != nil && a.WarehouseID != *f.WarehouseID {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	if f.From != nil && a.AdjustmentDate.Before(*f.From) {
		return false
	}
	if f.To != nil && a.AdjustmentDate.After(*f.To) {
		return false
	}
	return true
}
