package costlayer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// Service maintains FIFO lots.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func validateKey(key Key) error {
	var problems []string
	if key.ProductID <= 0 {
		problems = append(problems, "product is required")
	}
	if key.WarehouseID <= 0 {
		problems = append(problems, "warehouse is required")
	}
	if len(problems) > 0 {
		return &internalShared.ValidationError{Errors: problems}
	}
	return nil
}

// OnHand sums committed remaining quantity.
func (s *Service) OnHand(ctx context.Context, key Key) (decimal.Decimal, error) {
	if err := validateKey(key); err != nil {
		return decimal.Zero, err
	}
	lots, err := s.repo.ListOpenLots(ctx, LotFilter{WarehouseID: key.WarehouseID, ProductID: key.ProductID, BatchNumber: key.BatchNumber})
	if err != nil {
		return decimal.Zero, err
	}
	return Available(lots), nil
}

// OnHandTx sums remaining quantity with the lots locked by tx.
func (s *Service) OnHandTx(ctx context.Context, tx TxRepository, key Key) (decimal.Decimal, error) {
	lots, err := tx.ListOpenLotsForUpdate(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	return Available(lots), nil
}

// Receive stores a new lot in its own transaction.
func (s *Service) Receive(ctx context.Context, in ReceiveInput) (Lot, error) {
	var lot Lot
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockProduct(ctx, in.WarehouseID, in.ProductID); err != nil {
			return err
		}
		var err error
		lot, err = s.ReceiveTx(ctx, tx, in)
		return err
	})
	return lot, err
}

// ReceiveTx stores a new lot inside the caller's transaction.
func (s *Service) ReceiveTx(ctx context.Context, tx TxRepository, in ReceiveInput) (Lot, error) {
	if err := validateKey(Key{ProductID: in.ProductID, WarehouseID: in.WarehouseID}); err != nil {
		return Lot{}, err
	}
	if !in.Qty.IsPositive() {
		return Lot{}, &internalShared.ValidationError{Errors: []string{"receive quantity must be positive"}}
	}
	if in.UnitCost.IsNegative() {
		return Lot{}, &internalShared.ValidationError{Errors: []string{"unit cost cannot be negative"}}
	}
	at := in.ReceivedAt
	if at.IsZero() {
		at = s.now()
	}
	return tx.InsertLot(ctx, Lot{
		ProductID:    in.ProductID,
		WarehouseID:  in.WarehouseID,
		BatchNumber:  strings.TrimSpace(in.BatchNumber),
		ReceivedQty:  in.Qty,
		RemainingQty: in.Qty,
		UnitCost:     shared.Round(in.UnitCost),
		ReceivedAt:   at.UTC(),
		SourceRef:    in.SourceRef,
	})
}

// Consume draws quantity FIFO in its own transaction.
func (s *Service) Consume(ctx context.Context, in ConsumeInput) (Consumption, error) {
	var out Consumption
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockProduct(ctx, in.WarehouseID, in.ProductID); err != nil {
			return err
		}
		var err error
		out, err = s.ConsumeTx(ctx, tx, in)
		return err
	})
	return out, err
}

// ConsumeTx draws quantity oldest lot first. Nothing is written when the
// open lots cannot cover the request.
func (s *Service) ConsumeTx(ctx context.Context, tx TxRepository, in ConsumeInput) (Consumption, error) {
	if err := validateKey(in.Key); err != nil {
		return Consumption{}, err
	}
	if !in.Qty.IsPositive() {
		return Consumption{}, &internalShared.ValidationError{Errors: []string{"consume quantity must be positive"}}
	}
	lots, err := tx.ListOpenLotsForUpdate(ctx, in.Key)
	if err != nil {
		return Consumption{}, err
	}
	out, ok := plan(lots, in.Qty)
	if !ok {
		return Consumption{}, insufficient(in, lots)
	}
	remaining := make(map[int64]decimal.Decimal, len(lots))
	for _, lot := range lots {
		remaining[lot.ID] = lot.RemainingQty
	}
	for _, sl := range out.Slices {
		if err := tx.UpdateLotRemaining(ctx, sl.LotID, remaining[sl.LotID].Sub(sl.Qty)); err != nil {
			return Consumption{}, fmt.Errorf("consume lot %d: %w", sl.LotID, err)
		}
	}
	return out, nil
}

// Preview costs a draw against committed lots without consuming them.
func (s *Service) Preview(ctx context.Context, in ConsumeInput) (Consumption, error) {
	if err := validateKey(in.Key); err != nil {
		return Consumption{}, err
	}
	lots, err := s.repo.ListOpenLots(ctx, LotFilter{WarehouseID: in.WarehouseID, ProductID: in.ProductID, BatchNumber: in.BatchNumber})
	if err != nil {
		return Consumption{}, err
	}
	out, ok := plan(lots, in.Qty)
	if !ok {
		return Consumption{}, insufficient(in, lots)
	}
	return out, nil
}

// Valuation values open lots per product. warehouseID 0 covers every warehouse.
func (s *Service) Valuation(ctx context.Context, warehouseID int64) (Valuation, error) {
	lots, err := s.repo.ListOpenLots(ctx, LotFilter{WarehouseID: warehouseID})
	if err != nil {
		return Valuation{}, err
	}
	type rowKey struct{ product, warehouse int64 }
	rows := make(map[rowKey]*ValuationRow)
	for _, lot := range lots {
		k := rowKey{lot.ProductID, lot.WarehouseID}
		row, ok := rows[k]
		if !ok {
			row = &ValuationRow{ProductID: lot.ProductID, WarehouseID: lot.WarehouseID, Qty: decimal.Zero, Value: decimal.Zero}
			rows[k] = row
		}
		row.Qty = row.Qty.Add(lot.RemainingQty)
		row.Value = row.Value.Add(shared.Round(lot.RemainingQty.Mul(lot.UnitCost)))
	}
	out := Valuation{Rows: make([]ValuationRow, 0, len(rows)), TotalQty: decimal.Zero, TotalValue: decimal.Zero}
	for _, row := range rows {
		out.Rows = append(out.Rows, *row)
		out.TotalQty = out.TotalQty.Add(row.Qty)
		out.TotalValue = out.TotalValue.Add(row.Value)
	}
	sort.Slice(out.Rows, func(i, j int) bool {
		if out.Rows[i].WarehouseID != out.Rows[j].WarehouseID {
			return out.Rows[i].WarehouseID < out.Rows[j].WarehouseID
		}
		return out.Rows[i].ProductID < out.Rows[j].ProductID
	})
	return out, nil
}

func insufficient(in ConsumeInput, lots []Lot) error {
	return &internalShared.InsufficientStockError{
		ProductID:   in.ProductID,
		WarehouseID: in.WarehouseID,
		BatchNumber: in.BatchNumber,
		Requested:   in.Qty,
		Available:   Available(lots),
	}
}
