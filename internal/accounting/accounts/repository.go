package accounts

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository persists the chart of accounts.
type Repository interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
	InsertAccount(ctx context.Context, account Account) (Account, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository changes account state. GetAccountForUpdate holds the account
// against new postings until the transaction ends, and PostedBalance then
// sees every posting committed before it.
type TxRepository interface {
	GetAccountForUpdate(ctx context.Context, id int64) (Account, error)
	PostedBalance(ctx context.Context, id int64) (decimal.Decimal, error)
	SetAccountActive(ctx context.Context, id int64, active bool) error
}

// Lookup resolves accounts inside a posting transaction.
type Lookup interface {
	AccountsByID(ctx context.Context, ids []int64) (map[int64]Account, error)
}
