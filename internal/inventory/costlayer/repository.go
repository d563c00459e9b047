package costlayer

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository reads committed lots and opens transactions.
type Repository interface {
	ListOpenLots(ctx context.Context, filter LotFilter) ([]Lot, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository mutates lots. LockProduct serialises every writer touching
// the (warehouse, product) lot set until the transaction ends.
type TxRepository interface {
	LockProduct(ctx context.Context, warehouseID, productID int64) error
	ListOpenLotsForUpdate(ctx context.Context, key Key) ([]Lot, error)
	InsertLot(ctx context.Context, lot Lot) (Lot, error)
	UpdateLotRemaining(ctx context.Context, lotID int64, remaining decimal.Decimal) error
}
