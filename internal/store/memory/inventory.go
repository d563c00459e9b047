package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/inventory/adjustments"
	"github.com/odyssey-erp/pharma-ledger/internal/inventory/costlayer"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// Lots.

func (st *state) openLots(filter costlayer.LotFilter) []costlayer.Lot {
	var out []costlayer.Lot
	for _, lot := range st.lots {
		if lot.RemainingQty.IsPositive() && filter.Match(lot) {
			out = append(out, lot)
		}
	}
	costlayer.SortFIFO(out)
	return out
}

func (s *Store) ListOpenLots(_ context.Context, filter costlayer.LotFilter) ([]costlayer.Lot, error) {
	var out []costlayer.Lot
	s.read(func(st *state) { out = st.openLots(filter) })
	return out, nil
}

// LockProduct is a no-op: the writer mutex already serialises transactions.
func (tx *Tx) LockProduct(_ context.Context, _, _ int64) error {
	return nil
}

func (tx *Tx) ListOpenLotsForUpdate(_ context.Context, key costlayer.Key) ([]costlayer.Lot, error) {
	return tx.st.openLots(costlayer.LotFilter{
		WarehouseID: key.WarehouseID,
		ProductID:   key.ProductID,
		BatchNumber: key.BatchNumber,
	}), nil
}

func (tx *Tx) InsertLot(_ context.Context, lot costlayer.Lot) (costlayer.Lot, error) {
	lot.ID = tx.st.nextID("cost_lots")
	tx.st.lots[lot.ID] = lot
	return lot, nil
}

func (tx *Tx) UpdateLotRemaining(_ context.Context, lotID int64, remaining decimal.Decimal) error {
	lot, ok := tx.st.lots[lotID]
	if !ok {
		return fmt.Errorf("lot %d: %w", lotID, shared.ErrNotFound)
	}
	if remaining.IsNegative() {
		return fmt.Errorf("lot %d remaining %s: %w", lotID, remaining, shared.ErrInsufficientStock)
	}
	lot.RemainingQty = remaining
	tx.st.lots[lotID] = lot
	return nil
}

// Adjustments.

func cloneAdjustment(a adjustments.Adjustment) adjustments.Adjustment {
	a.Items = append([]adjustments.Item(nil), a.Items...)
	return a
}

func (st *state) getAdjustment(id int64) (adjustments.Adjustment, error) {
	a, ok := st.adjustments[id]
	if !ok {
		return adjustments.Adjustment{}, fmt.Errorf("stock adjustment %d: %w", id, shared.ErrNotFound)
	}
	return cloneAdjustment(a), nil
}

func (s *Store) GetAdjustment(_ context.Context, id int64) (adjustments.Adjustment, error) {
	var (
		a   adjustments.Adjustment
		err error
	)
	s.read(func(st *state) { a, err = st.getAdjustment(id) })
	return a, err
}

func (s *Store) ListAdjustments(_ context.Context, filter adjustments.Filter) ([]adjustments.Adjustment, error) {
	var out []adjustments.Adjustment
	s.read(func(st *state) {
		for _, a := range st.adjustments {
			if filter.Match(a) {
				out = append(out, cloneAdjustment(a))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AdjustmentDate.Equal(out[j].AdjustmentDate) {
			return out[i].AdjustmentDate.After(out[j].AdjustmentDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (tx *Tx) InsertAdjustment(_ context.Context, adj adjustments.Adjustment) (adjustments.Adjustment, error) {
	adj.ID = tx.st.nextID("stock_adjustments")
	items := make([]adjustments.Item, len(adj.Items))
	for i, it := range adj.Items {
		it.ID = tx.st.nextID("stock_adjustment_items")
		it.AdjustmentID = adj.ID
		items[i] = it
	}
	adj.Items = items
	tx.st.adjustments[adj.ID] = adj
	return cloneAdjustment(adj), nil
}

func (tx *Tx) GetAdjustmentForUpdate(_ context.Context, id int64) (adjustments.Adjustment, error) {
	return tx.st.getAdjustment(id)
}

func (tx *Tx) SaveAdjustmentPosting(_ context.Context, adj adjustments.Adjustment) error {
	if _, ok := tx.st.adjustments[adj.ID]; !ok {
		return fmt.Errorf("stock adjustment %d: %w", adj.ID, shared.ErrNotFound)
	}
	tx.st.adjustments[adj.ID] = cloneAdjustment(adj)
	return nil
}

func (tx *Tx) MarkAdjustmentCancelled(_ context.Context, id int64, at time.Time) error {
	adj, ok := tx.st.adjustments[id]
	if !ok {
		return fmt.Errorf("stock adjustment %d: %w", id, shared.ErrNotFound)
	}
	adj.Status = adjustments.StatusCancelled
	adj.CancelledAt = &at
	tx.st.adjustments[id] = adj
	return nil
}
