package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/inventory/adjustments"
	"github.com/odyssey-erp/pharma-ledger/internal/inventory/costlayer"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

const lotColumns = `id, product_id, warehouse_id, batch_number, received_qty, remaining_qty, unit_cost, received_at, source_ref`

func openLots(ctx context.Context, q querier, filter costlayer.LotFilter, forUpdate bool) ([]costlayer.Lot, error) {
	where := []string{"remaining_qty > 0"}
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.WarehouseID != 0 {
		add("warehouse_id = $%d", filter.WarehouseID)
	}
	if filter.ProductID != 0 {
		add("product_id = $%d", filter.ProductID)
	}
	if filter.BatchNumber != "" {
		add("batch_number = $%d", filter.BatchNumber)
	}
	sql := `SELECT ` + lotColumns + ` FROM cost_lots WHERE ` + strings.Join(where, " AND ") + ` ORDER BY received_at, id`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []costlayer.Lot
	for rows.Next() {
		var l costlayer.Lot
		if err := rows.Scan(&l.ID, &l.ProductID, &l.WarehouseID, &l.BatchNumber, &l.ReceivedQty, &l.RemainingQty,
			&l.UnitCost, &l.ReceivedAt, &l.SourceRef); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) ListOpenLots(ctx context.Context, filter costlayer.LotFilter) ([]costlayer.Lot, error) {
	return openLots(ctx, s.pool, filter, false)
}

// LockProduct takes a transaction-scoped advisory lock on the lot set.
func (t *Tx) LockProduct(ctx context.Context, warehouseID, productID int64) error {
	_, err := t.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		fmt.Sprintf("cost_lots:%d:%d", warehouseID, productID))
	return err
}

func (t *Tx) ListOpenLotsForUpdate(ctx context.Context, key costlayer.Key) ([]costlayer.Lot, error) {
	return openLots(ctx, t.q, costlayer.LotFilter{
		WarehouseID: key.WarehouseID,
		ProductID:   key.ProductID,
		BatchNumber: key.BatchNumber,
	}, true)
}

func (t *Tx) InsertLot(ctx context.Context, lot costlayer.Lot) (costlayer.Lot, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO cost_lots (product_id, warehouse_id, batch_number, received_qty, remaining_qty, unit_cost, received_at, source_ref)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		lot.ProductID, lot.WarehouseID, lot.BatchNumber, lot.ReceivedQty, lot.RemainingQty, lot.UnitCost, lot.ReceivedAt, lot.SourceRef).
		Scan(&lot.ID)
	if err != nil {
		return costlayer.Lot{}, err
	}
	return lot, nil
}

func (t *Tx) UpdateLotRemaining(ctx context.Context, lotID int64, remaining decimal.Decimal) error {
	cmd, err := t.q.Exec(ctx, `UPDATE cost_lots SET remaining_qty=$2 WHERE id=$1`, lotID, remaining)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("lot %d: %w", lotID, shared.ErrNotFound)
	}
	return nil
}

// Adjustments.

const adjustmentColumns = `id, adjustment_number, warehouse_id, adjustment_date, reason, status, total_difference_qty,
total_difference_value, journal_entry_id, journal_entry_no, notes, created_by, created_at, posted_at, posted_by, cancelled_at`

const itemColumns = `id, adjustment_id, line_no, product_id, batch_number, quantity_before, quantity_after, quantity_diff,
unit_cost, total_cost_diff, counted, no_change`

func scanAdjustment(row pgx.Row) (adjustments.Adjustment, error) {
	var a adjustments.Adjustment
	err := row.Scan(&a.ID, &a.AdjustmentNumber, &a.WarehouseID, &a.AdjustmentDate, &a.Reason, &a.Status, &a.TotalDifferenceQty,
		&a.TotalDifferenceValue, &a.JournalEntryID, &a.JournalEntryNo, &a.Notes, &a.CreatedBy, &a.CreatedAt, &a.PostedAt, &a.PostedBy, &a.CancelledAt)
	return a, err
}

func loadItems(ctx context.Context, q querier, list []adjustments.Adjustment) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]int64, len(list))
	index := make(map[int64]int, len(list))
	for i, a := range list {
		ids[i] = a.ID
		index[a.ID] = i
	}
	rows, err := q.Query(ctx, `SELECT `+itemColumns+` FROM stock_adjustment_items WHERE adjustment_id = ANY($1) ORDER BY adjustment_id, line_no`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it adjustments.Item
		if err := rows.Scan(&it.ID, &it.AdjustmentID, &it.LineNo, &it.ProductID, &it.BatchNumber, &it.QuantityBefore, &it.QuantityAfter,
			&it.QuantityDiff, &it.UnitCost, &it.TotalCostDiff, &it.Counted, &it.NoChange); err != nil {
			return err
		}
		i := index[it.AdjustmentID]
		list[i].Items = append(list[i].Items, it)
	}
	return rows.Err()
}

func getAdjustment(ctx context.Context, q querier, id int64, forUpdate bool) (adjustments.Adjustment, error) {
	sql := `SELECT ` + adjustmentColumns + ` FROM stock_adjustments WHERE id=$1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	a, err := scanAdjustment(q.QueryRow(ctx, sql, id))
	if err != nil {
		return adjustments.Adjustment{}, notFound("stock adjustment", id, err)
	}
	list := []adjustments.Adjustment{a}
	if err := loadItems(ctx, q, list); err != nil {
		return adjustments.Adjustment{}, err
	}
	return list[0], nil
}

func (s *Store) GetAdjustment(ctx context.Context, id int64) (adjustments.Adjustment, error) {
	return getAdjustment(ctx, s.pool, id, false)
}

func (s *Store) ListAdjustments(ctx context.Context, filter adjustments.Filter) ([]adjustments.Adjustment, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.WarehouseID != nil {
		add("warehouse_id = $%d", *filter.WarehouseID)
	}
	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	if filter.From != nil {
		add("adjustment_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("adjustment_date <= $%d", *filter.To)
	}
	sql := `SELECT ` + adjustmentColumns + ` FROM stock_adjustments`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY adjustment_date DESC, id DESC`
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	var out []adjustments.Adjustment
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadItems(ctx, s.pool, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Tx) InsertAdjustment(ctx context.Context, adj adjustments.Adjustment) (adjustments.Adjustment, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO stock_adjustments (adjustment_number, warehouse_id, adjustment_date, reason, status,
total_difference_qty, total_difference_value, notes, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
		adj.AdjustmentNumber, adj.WarehouseID, adj.AdjustmentDate, string(adj.Reason), string(adj.Status),
		adj.TotalDifferenceQty, adj.TotalDifferenceValue, adj.Notes, adj.CreatedBy, adj.CreatedAt).
		Scan(&adj.ID)
	if err != nil {
		return adjustments.Adjustment{}, err
	}
	items := make([]adjustments.Item, len(adj.Items))
	for i, it := range adj.Items {
		it.AdjustmentID = adj.ID
		if err := t.q.QueryRow(ctx, `INSERT INTO stock_adjustment_items (adjustment_id, line_no, product_id, batch_number,
quantity_before, quantity_after, quantity_diff, unit_cost, total_cost_diff, counted, no_change)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
			it.AdjustmentID, it.LineNo, it.ProductID, it.BatchNumber, it.QuantityBefore, it.QuantityAfter, it.QuantityDiff,
			it.UnitCost, it.TotalCostDiff, it.Counted, it.NoChange).Scan(&it.ID); err != nil {
			return adjustments.Adjustment{}, err
		}
		items[i] = it
	}
	adj.Items = items
	return adj, nil
}

func (t *Tx) GetAdjustmentForUpdate(ctx context.Context, id int64) (adjustments.Adjustment, error) {
	return getAdjustment(ctx, t.q, id, true)
}

func (t *Tx) SaveAdjustmentPosting(ctx context.Context, adj adjustments.Adjustment) error {
	cmd, err := t.q.Exec(ctx, `UPDATE stock_adjustments SET status=$2, total_difference_qty=$3, total_difference_value=$4,
journal_entry_id=$5, journal_entry_no=$6, posted_at=$7, posted_by=$8 WHERE id=$1`,
		adj.ID, string(adj.Status), adj.TotalDifferenceQty, adj.TotalDifferenceValue,
		adj.JournalEntryID, adj.JournalEntryNo, adj.PostedAt, adj.PostedBy)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("stock adjustment %d: %w", adj.ID, shared.ErrNotFound)
	}
	for _, it := range adj.Items {
		if _, err := t.q.Exec(ctx, `UPDATE stock_adjustment_items SET unit_cost=$2, total_cost_diff=$3 WHERE id=$1`,
			it.ID, it.UnitCost, it.TotalCostDiff); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) MarkAdjustmentCancelled(ctx context.Context, id int64, at time.Time) error {
	cmd, err := t.q.Exec(ctx, `UPDATE stock_adjustments SET status=$2, cancelled_at=$3 WHERE id=$1`,
		id, string(adjustments.StatusCancelled), at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("stock adjustment %d: %w", id, shared.ErrNotFound)
	}
	return nil
}
