package closing

import (
	"context"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/periods"
)

// Repository opens the unit of work a year-end close runs in.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository combines the ports touched while closing a fiscal year.
type TxRepository interface {
	journals.TxRepository
	periods.TxRepository
	mappings.Lookup
	ledger.LineReader
	ledger.AccountLister
}
