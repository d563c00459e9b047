package ledger

import (
	"context"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
)

// LineReader replays posted journal lines ordered by entry date, entry
// number and line number. Drafts are never returned.
type LineReader interface {
	PostedLines(ctx context.Context, filter LineFilter) ([]PostedLine, error)
}

// AccountLister loads the chart of accounts.
type AccountLister interface {
	ListAccounts(ctx context.Context) ([]accounts.Account, error)
}

// Repository is the read side the aggregator runs on.
type Repository interface {
	LineReader
	AccountLister
	mappings.Lookup
}
