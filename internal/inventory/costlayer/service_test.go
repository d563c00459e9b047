package costlayer_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pharma-ledger/internal/inventory/costlayer"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/store/memory"
	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newStock(t *testing.T) *costlayer.Service {
	t.Helper()
	svc := costlayer.NewService(memory.New().Lots())
	svc.WithNow(func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) })
	return svc
}

func receive(t *testing.T, svc *costlayer.Service, batch, qty, cost string, day int) costlayer.Lot {
	t.Helper()
	lot, err := svc.Receive(context.Background(), costlayer.ReceiveInput{
		ProductID:   1,
		WarehouseID: 1,
		BatchNumber: batch,
		Qty:         d(qty),
		UnitCost:    d(cost),
		ReceivedAt:  time.Date(2024, 4, day, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return lot
}

func TestConsumeDrawsOldestLotFirst(t *testing.T) {
	svc := newStock(t)
	ctx := context.Background()
	older := receive(t, svc, "B-1", "10", "2.00", 1)
	newer := receive(t, svc, "B-2", "10", "3.00", 5)

	out, err := svc.Consume(ctx, costlayer.ConsumeInput{Key: costlayer.Key{ProductID: 1, WarehouseID: 1}, Qty: d("15")})
	require.NoError(t, err)
	require.Len(t, out.Slices, 2)
	require.Equal(t, older.ID, out.Slices[0].LotID)
	require.True(t, out.Slices[0].Qty.Equal(d("10")))
	require.Equal(t, newer.ID, out.Slices[1].LotID)
	require.True(t, out.Slices[1].Qty.Equal(d("5")))
	require.True(t, out.Cost.Equal(d("35.00")), "cost %s", out.Cost)

	left, err := svc.OnHand(ctx, costlayer.Key{ProductID: 1, WarehouseID: 1})
	require.NoError(t, err)
	require.True(t, left.Equal(d("5")))
}

func TestConsumeByBatch(t *testing.T) {
	svc := newStock(t)
	ctx := context.Background()
	receive(t, svc, "B-1", "10", "2.00", 1)
	receive(t, svc, "B-2", "10", "3.00", 5)

	out, err := svc.Consume(ctx, costlayer.ConsumeInput{Key: costlayer.Key{ProductID: 1, WarehouseID: 1, BatchNumber: "B-2"}, Qty: d("4")})
	require.NoError(t, err)
	require.True(t, out.Cost.Equal(d("12.00")))

	b1, err := svc.OnHand(ctx, costlayer.Key{ProductID: 1, WarehouseID: 1, BatchNumber: "B-1"})
	require.NoError(t, err)
	require.True(t, b1.Equal(d("10")))
}

func TestConsumeInsufficientWritesNothing(t *testing.T) {
	svc := newStock(t)
	ctx := context.Background()
	receive(t, svc, "B-1", "3", "2.00", 1)

	_, err := svc.Consume(ctx, costlayer.ConsumeInput{Key: costlayer.Key{ProductID: 1, WarehouseID: 1}, Qty: d("5")})
	var short *shared.InsufficientStockError
	require.ErrorAs(t, err, &short)
	require.True(t, short.Available.Equal(d("3")))

	left, err := svc.OnHand(ctx, costlayer.Key{ProductID: 1, WarehouseID: 1})
	require.NoError(t, err)
	require.True(t, left.Equal(d("3")))
}

func TestPreviewDoesNotConsume(t *testing.T) {
	svc := newStock(t)
	ctx := context.Background()
	receive(t, svc, "B-1", "4", "1.25", 1)

	out, err := svc.Preview(ctx, costlayer.ConsumeInput{Key: costlayer.Key{ProductID: 1, WarehouseID: 1}, Qty: d("2")})
	require.NoError(t, err)
	require.True(t, out.Cost.Equal(d("2.50")))

	left, err := svc.OnHand(ctx, costlayer.Key{ProductID: 1, WarehouseID: 1})
	require.NoError(t, err)
	require.True(t, left.Equal(d("4")))
}

func TestReceiveValidates(t *testing.T) {
	svc := newStock(t)
	ctx := context.Background()

	_, err := svc.Receive(ctx, costlayer.ReceiveInput{ProductID: 1, WarehouseID: 1, Qty: d("0"), UnitCost: d("1")})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Receive(ctx, costlayer.ReceiveInput{ProductID: 1, Qty: d("1"), UnitCost: d("1")})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Receive(ctx, costlayer.ReceiveInput{ProductID: 1, WarehouseID: 1, Qty: d("1"), UnitCost: d("-1")})
	require.ErrorIs(t, err, shared.ErrValidation)

	lot, err := svc.Receive(ctx, costlayer.ReceiveInput{ProductID: 1, WarehouseID: 1, Qty: d("1"), UnitCost: d("1")})
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), lot.ReceivedAt)
}

func TestValuationPerWarehouse(t *testing.T) {
	svc := newStock(t)
	ctx := context.Background()
	receive(t, svc, "B-1", "10", "2.00", 1)
	receive(t, svc, "B-2", "5", "3.00", 2)
	_, err := svc.Receive(ctx, costlayer.ReceiveInput{ProductID: 2, WarehouseID: 2, Qty: d("4"), UnitCost: d("10")})
	require.NoError(t, err)

	all, err := svc.Valuation(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all.Rows, 2)
	require.True(t, all.TotalQty.Equal(d("19")))
	require.True(t, all.TotalValue.Equal(d("75")))

	wh1, err := svc.Valuation(ctx, 1)
	require.NoError(t, err)
	require.Len(t, wh1.Rows, 1)
	require.True(t, wh1.Rows[0].Value.Equal(d("35")))
}
