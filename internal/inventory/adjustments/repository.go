package adjustments

import (
	"context"
	"time"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/inventory/costlayer"
)

// Repository reads committed adjustments and opens transactions.
type Repository interface {
	GetAdjustment(ctx context.Context, id int64) (Adjustment, error)
	ListAdjustments(ctx context.Context, filter Filter) ([]Adjustment, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository spans the journal, the cost layer and the adjustment tables
// so a posting commits or fails as one unit.
type TxRepository interface {
	journals.TxRepository
	costlayer.TxRepository
	mappings.Lookup

	InsertAdjustment(ctx context.Context, adj Adjustment) (Adjustment, error)
	GetAdjustmentForUpdate(ctx context.Context, id int64) (Adjustment, error)
	SaveAdjustmentPosting(ctx context.Context, adj Adjustment) error
	MarkAdjustmentCancelled(ctx context.Context, id int64, at time.Time) error
}
