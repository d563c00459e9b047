package costlayer

import (
	"time"

	"github.com/shopspring/decimal"
)

// Key addresses stock of one product in one warehouse. An empty BatchNumber
// spans every batch of the product.
type Key struct {
	ProductID   int64  `json:"product_id"`
	WarehouseID int64  `json:"warehouse_id"`
	BatchNumber string `json:"batch_number,omitempty"`
}

// Lot is a FIFO cost layer.
type Lot struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"product_id"`
	WarehouseID  int64           `json:"warehouse_id"`
	BatchNumber  string          `json:"batch_number,omitempty"`
	ReceivedQty  decimal.Decimal `json:"received_qty"`
	RemainingQty decimal.Decimal `json:"remaining_qty"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	ReceivedAt   time.Time       `json:"received_at"`
	SourceRef    string          `json:"source_ref,omitempty"`
}

// LotFilter narrows open lot listings. Zero values match everything.
type LotFilter struct {
	WarehouseID int64
	ProductID   int64
	BatchNumber string
}

// Match reports whether lot passes the filter.
func (f LotFilter) Match(lot Lot) bool {
	if f.WarehouseID != 0 && lot.WarehouseID != f.WarehouseID {
		return false
	}
	if f.ProductID != 0 && lot.ProductID != f.ProductID {
		return false
	}
	if f.BatchNumber != "" && lot.BatchNumber != f.BatchNumber {
		return false
	}
	return true
}

// ReceiveInput creates a new lot.
type ReceiveInput struct {
	ProductID   int64
	WarehouseID int64
	BatchNumber string
	Qty         decimal.Decimal
	UnitCost    decimal.Decimal
	ReceivedAt  time.Time
	SourceRef   string
}

// ConsumeInput removes quantity oldest lot first.
type ConsumeInput struct {
	Key
	Qty       decimal.Decimal
	SourceRef string
}

// Slice is the part of one lot taken by a consumption.
type Slice struct {
	LotID       int64           `json:"lot_id"`
	BatchNumber string          `json:"batch_number,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Cost        decimal.Decimal `json:"cost"`
}

// Consumption is the realised cost of a FIFO draw.
type Consumption struct {
	Qty    decimal.Decimal `json:"qty"`
	Cost   decimal.Decimal `json:"cost"`
	Slices []Slice         `json:"slices"`
}

// ValuationRow is the FIFO value of one product in one warehouse.
type ValuationRow struct {
	ProductID   int64           `json:"product_id"`
	WarehouseID int64           `json:"warehouse_id"`
	Qty         decimal.Decimal `json:"qty"`
	Value       decimal.Decimal `json:"value"`
}

// Valuation aggregates open lots.
type Valuation struct {
	Rows       []ValuationRow  `json:"rows"`
	TotalQty   decimal.Decimal `json:"total_qty"`
	TotalValue decimal.Decimal `json:"total_value"`
}
