package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	acctShared "github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/store/memory"
	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

func TestFailedTxRestoresSnapshot(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	boom := errors.New("boom")
	ref := uuid.New()

	err := store.Journals().WithTx(ctx, func(ctx context.Context, tx journals.TxRepository) error {
		n, err := tx.NextSequence(ctx, "journal_entry")
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
		entry, err := tx.InsertJournalEntry(ctx, journals.JournalEntry{EntryNo: n})
		require.NoError(t, err)
		require.NoError(t, tx.LinkSource(ctx, acctShared.SourceManualJournal, ref, entry.ID))
		return boom
	})
	require.ErrorIs(t, err, boom)

	list, err := store.ListJournals(ctx, journals.Filter{})
	require.NoError(t, err)
	require.Empty(t, list)

	err = store.Journals().WithTx(ctx, func(ctx context.Context, tx journals.TxRepository) error {
		n, err := tx.NextSequence(ctx, "journal_entry")
		require.NoError(t, err)
		require.EqualValues(t, 1, n, "sequence rolled back with the failed tx")
		entry, err := tx.InsertJournalEntry(ctx, journals.JournalEntry{EntryNo: n})
		require.NoError(t, err)
		return tx.LinkSource(ctx, acctShared.SourceManualJournal, ref, entry.ID)
	})
	require.NoError(t, err)
}

func TestLinkSourceRejectsDuplicates(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	ref := uuid.New()

	err := store.Journals().WithTx(ctx, func(ctx context.Context, tx journals.TxRepository) error {
		if err := tx.LinkSource(ctx, acctShared.SourceReversal, ref, 1); err != nil {
			return err
		}
		return tx.LinkSource(ctx, acctShared.SourceReversal, ref, 2)
	})
	require.ErrorIs(t, err, shared.ErrSourceAlreadyLinked)
}

func TestInsertedLinesAreNumbered(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	var id int64
	err := store.Journals().WithTx(ctx, func(ctx context.Context, tx journals.TxRepository) error {
		entry, err := tx.InsertJournalEntry(ctx, journals.JournalEntry{
			EntryNo: 1,
			Lines:   []journals.JournalLine{{AccountID: 10}, {AccountID: 11}},
		})
		id = entry.ID
		return err
	})
	require.NoError(t, err)

	got, err := store.GetJournal(ctx, id)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	require.Equal(t, 1, got.Lines[0].LineNo)
	require.Equal(t, 2, got.Lines[1].LineNo)
	require.Equal(t, id, got.Lines[1].JournalID)

	_, err = store.GetJournal(ctx, id+1)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCancelledContextSkipsTx(t *testing.T) {
	store := memory.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.Journals().WithTx(ctx, func(context.Context, journals.TxRepository) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}
