package journals

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
)

// Repository encapsulates committed reads and the transaction boundary.
type Repository interface {
	ListJournals(ctx context.Context, filter Filter) ([]JournalEntry, error)
	GetJournal(ctx context.Context, id int64) (JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction. Period and
// account checks run on the same transaction so a period closing mid-flight
// serialises against the posting.
type TxRepository interface {
	periods.Locker
	accounts.Lookup
	mappings.Lookup

	NextSequence(ctx context.Context, name string) (int64, error)
	InsertJournalEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	GetJournalForUpdate(ctx context.Context, id int64) (JournalEntry, error)
	ReplaceJournalDraft(ctx context.Context, entry JournalEntry) error
	DeleteJournalDraft(ctx context.Context, id int64) error
	MarkJournalPosted(ctx context.Context, id, postedBy int64, at time.Time) error
	MarkJournalReversed(ctx context.Context, id, reversedByID int64) error
	LinkSource(ctx context.Context, module shared.SourceModule, ref uuid.UUID, entryID int64) error
}
