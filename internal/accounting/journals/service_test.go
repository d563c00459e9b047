package journals_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/pharma-ledger/internal/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/testing/ledgertest"
	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

func TestCreatePostedEntry(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	res := f.Post(t, "2024-03-05", f.Dr("1100", "250.00"), f.Cr("4100", "250.00"))
	if !res.IsPosted || res.EntryNo != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	entry, err := f.Services.Journals.Get(ctx, res.JournalID)
	require.NoError(t, err)
	require.Len(t, entry.Lines, 2)
	require.Equal(t, shared.SourceManualJournal, entry.SourceModule)
	debit, credit := entry.Totals()
	require.True(t, debit.Equal(credit))
	require.NotNil(t, entry.PostedAt)
}

func TestCreateRejectsUnbalancedWithoutSideEffects(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	_, err := f.Services.Journals.Create(ctx, journals.CreateInput{
		EntryDate: ledgertest.Date("2024-03-05"),
		Post:      true,
		Lines:     []journals.LineInput{f.Dr("1100", "100"), f.Cr("4100", "90")},
	})
	require.ErrorIs(t, err, internalShared.ErrValidation)

	var verr *internalShared.ValidationError
	require.True(t, errors.As(err, &verr))
	require.NotEmpty(t, verr.Errors)

	list, err := f.Services.Journals.List(ctx, journals.Filter{})
	require.NoError(t, err)
	require.Empty(t, list)

	// the rejected attempt does not consume an entry number
	res := f.Post(t, "2024-03-05", f.Dr("1100", "100"), f.Cr("4100", "100"))
	require.EqualValues(t, 1, res.EntryNo)
}

func TestCreateRejectsHeaderAndInactiveAccounts(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	_, err := f.Services.Journals.Create(ctx, journals.CreateInput{
		EntryDate: ledgertest.Date("2024-03-05"),
		Post:      true,
		Lines:     []journals.LineInput{f.Dr("1000", "10"), f.Cr("4100", "10")},
	})
	require.ErrorIs(t, err, internalShared.ErrInvalidAccount)

	require.NoError(t, f.Services.Accounts.Deactivate(ctx, f.ID("6100")))
	_, err = f.Services.Journals.Create(ctx, journals.CreateInput{
		EntryDate: ledgertest.Date("2024-03-05"),
		Post:      true,
		Lines:     []journals.LineInput{f.Dr("6100", "10"), f.Cr("1100", "10")},
	})
	require.ErrorIs(t, err, internalShared.ErrInvalidAccount)
}

func TestPostingGateFollowsPeriodLock(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()
	march := f.Periods["2024-03"]

	_, err := f.Services.Periods.Close(ctx, periods.CloseInput{PeriodID: march.ID, Actor: ledgertest.Admin})
	require.NoError(t, err)

	in := journals.CreateInput{
		EntryDate: ledgertest.Date("2024-03-15"),
		Post:      true,
		Lines:     []journals.LineInput{f.Dr("6100", "75"), f.Cr("1100", "75")},
	}
	_, err = f.Services.Journals.Create(ctx, in)
	var closed *internalShared.PeriodClosedError
	require.ErrorAs(t, err, &closed)
	require.Equal(t, "2024-03", closed.Period)

	_, err = f.Services.Periods.Reopen(ctx, periods.ReopenInput{
		PeriodID: march.ID,
		Reason:   "late supplier invoice",
		Actor:    ledgertest.Admin,
	})
	require.NoError(t, err)

	res, err := f.Services.Journals.Create(ctx, in)
	require.NoError(t, err)
	require.True(t, res.IsPosted)
}

func TestPostingOutsideAnyPeriodFails(t *testing.T) {
	f := ledgertest.New(t)

	_, err := f.Services.Journals.Create(context.Background(), journals.CreateInput{
		EntryDate: ledgertest.Date("2025-01-02"),
		Post:      true,
		Lines:     []journals.LineInput{f.Dr("1100", "10"), f.Cr("4100", "10")},
	})
	require.ErrorIs(t, err, internalShared.ErrNoPeriodDefined)
}

func TestDraftLifecycle(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()
	svc := f.Services.Journals

	draft, err := svc.Create(ctx, journals.CreateInput{
		EntryDate: ledgertest.Date("2024-04-01"),
		Lines:     []journals.LineInput{f.Dr("6100", "40"), f.Cr("1100", "40")},
	})
	require.NoError(t, err)
	require.False(t, draft.IsPosted)

	updated, err := svc.UpdateDraft(ctx, draft.JournalID, journals.UpdateInput{
		EntryDate:   ledgertest.Date("2024-04-02"),
		Description: "office supplies",
		Lines:       []journals.LineInput{f.Dr("6100", "45"), f.Cr("1100", "45")},
	})
	require.NoError(t, err)
	require.Equal(t, "office supplies", updated.Description)

	posted, err := svc.Post(ctx, draft.JournalID, ledgertest.Accountant.ID)
	require.NoError(t, err)
	require.True(t, posted.IsPosted)

	_, err = svc.Post(ctx, draft.JournalID, ledgertest.Accountant.ID)
	require.ErrorIs(t, err, internalShared.ErrAlreadyPosted)

	_, err = svc.UpdateDraft(ctx, draft.JournalID, journals.UpdateInput{
		EntryDate: ledgertest.Date("2024-04-02"),
		Lines:     []journals.LineInput{f.Dr("6100", "1"), f.Cr("1100", "1")},
	})
	require.ErrorIs(t, err, internalShared.ErrPostedImmutable)
	require.ErrorIs(t, svc.DeleteDraft(ctx, draft.JournalID, 0), internalShared.ErrPostedImmutable)
}

func TestDeletedDraftNumberIsNotReused(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()
	svc := f.Services.Journals

	draft, err := svc.Create(ctx, journals.CreateInput{
		EntryDate: ledgertest.Date("2024-04-01"),
		Lines:     []journals.LineInput{f.Dr("6100", "40"), f.Cr("1100", "40")},
	})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteDraft(ctx, draft.JournalID, 0))

	_, err = svc.Get(ctx, draft.JournalID)
	require.ErrorIs(t, err, internalShared.ErrNotFound)

	next := f.Post(t, "2024-04-01", f.Dr("6100", "40"), f.Cr("1100", "40"))
	require.Greater(t, next.EntryNo, draft.EntryNo)
}

func TestReverseOnce(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()
	svc := f.Services.Journals

	orig := f.Post(t, "2024-05-10", f.Dr("1200", "300"), f.Cr("2100", "300"))
	date := ledgertest.Date("2024-05-20")

	rev, err := svc.Reverse(ctx, journals.ReverseInput{EntryID: orig.JournalID, Date: &date})
	require.NoError(t, err)
	require.True(t, rev.IsPosted)
	require.Equal(t, shared.SourceReversal, rev.SourceModule)
	require.NotNil(t, rev.ReversalOfID)
	require.Equal(t, orig.JournalID, *rev.ReversalOfID)
	require.Equal(t, "Reversal of JE 1", rev.Description)

	original, err := svc.Get(ctx, orig.JournalID)
	require.NoError(t, err)
	require.True(t, original.IsReversed)
	require.NotNil(t, original.ReversedByID)
	require.Equal(t, rev.ID, *original.ReversedByID)

	for i, l := range rev.Lines {
		o := original.Lines[i]
		require.Equal(t, o.AccountID, l.AccountID)
		require.True(t, l.Debit.Equal(o.Credit), "line %d debit", i+1)
		require.True(t, l.Credit.Equal(o.Debit), "line %d credit", i+1)
	}

	_, err = svc.Reverse(ctx, journals.ReverseInput{EntryID: orig.JournalID, Date: &date})
	var already *internalShared.AlreadyReversedError
	require.ErrorAs(t, err, &already)
	require.EqualValues(t, 1, already.EntryNo)

	list, err := svc.List(ctx, journals.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestReverseRejectsDraft(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	draft, err := f.Services.Journals.Create(ctx, journals.CreateInput{
		EntryDate: ledgertest.Date("2024-05-10"),
		Lines:     []journals.LineInput{f.Dr("1200", "5"), f.Cr("2100", "5")},
	})
	require.NoError(t, err)

	_, err = f.Services.Journals.Reverse(ctx, journals.ReverseInput{EntryID: draft.JournalID})
	require.ErrorIs(t, err, internalShared.ErrInvalidStatus)
}

func mapRoundingAccount(t *testing.T, f *ledgertest.Fixture) int64 {
	t.Helper()
	ctx := context.Background()
	parent := f.ID("6000")
	acc, err := f.Services.Accounts.Create(ctx, accounts.CreateInput{
		Code:     "6900",
		Name:     "Rounding Differences",
		Type:     accounts.AccountTypeExpense,
		ParentID: &parent,
	})
	require.NoError(t, err)
	_, err = f.Services.Mappings.Set(ctx, mappings.KeyRoundingDifference, acc.ID)
	require.NoError(t, err)
	return acc.ID
}

func TestSubCentGapIsBookedToRoundingAccount(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()
	rounding := mapRoundingAccount(t, f)

	for i := 0; i < 3; i++ {
		res := f.Post(t, "2024-03-05", f.Dr("1110", "100.00"), f.Cr("4100", "99.99"))
		entry, err := f.Services.Journals.Get(ctx, res.JournalID)
		require.NoError(t, err)
		require.Len(t, entry.Lines, 3)

		fix := entry.Lines[2]
		require.Equal(t, rounding, fix.AccountID)
		require.True(t, fix.Credit.Equal(ledgertest.D("0.01")), "rounding credit %s", fix.Credit)
		debit, credit := entry.Totals()
		require.True(t, debit.Equal(credit), "entry %d: %s vs %s", entry.EntryNo, debit, credit)
	}

	tb, err := f.Services.Ledger.VerifyTrialBalance(ctx, ledgertest.Date("2024-12-31"))
	require.NoError(t, err)
	require.True(t, tb.Net.IsZero(), "net %s", tb.Net)
	require.True(t, tb.TotalDebit.Equal(ledgertest.D("300")), "debit %s", tb.TotalDebit)
}

func TestSubCentInputIsRoundedToCents(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	res := f.Post(t, "2024-03-05", f.Dr("6100", "33.334"), f.Cr("1100", "33.33"))
	entry, err := f.Services.Journals.Get(ctx, res.JournalID)
	require.NoError(t, err)
	require.Len(t, entry.Lines, 2, "rounds to a balanced entry without a fix line")
	require.True(t, entry.Lines[0].Debit.Equal(ledgertest.D("33.33")))
}

func TestSubCentGapWithoutRoundingAccountIsRejected(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	_, err := f.Services.Journals.Create(ctx, journals.CreateInput{
		EntryDate: ledgertest.Date("2024-03-05"),
		Post:      true,
		Lines:     []journals.LineInput{f.Dr("1110", "100.00"), f.Cr("4100", "99.99")},
	})
	require.ErrorIs(t, err, internalShared.ErrValidation)

	list, err := f.Services.Journals.List(ctx, journals.Filter{})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestLineRoundingToZeroIsRejected(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()
	mapRoundingAccount(t, f)

	_, err := f.Services.Journals.Create(ctx, journals.CreateInput{
		EntryDate: ledgertest.Date("2024-03-05"),
		Lines:     []journals.LineInput{f.Dr("6100", "0.004"), f.Dr("1110", "100.00"), f.Cr("4100", "100.004")},
	})
	require.ErrorIs(t, err, internalShared.ErrValidation)
	require.Contains(t, err.Error(), "rounds to zero")
}

func TestDraftUpdateClosesSubCentGap(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()
	rounding := mapRoundingAccount(t, f)
	svc := f.Services.Journals

	draft, err := svc.Create(ctx, journals.CreateInput{
		EntryDate: ledgertest.Date("2024-04-01"),
		Lines:     []journals.LineInput{f.Dr("6100", "40"), f.Cr("1100", "40")},
	})
	require.NoError(t, err)

	_, err = svc.UpdateDraft(ctx, draft.JournalID, journals.UpdateInput{
		EntryDate: ledgertest.Date("2024-04-02"),
		Lines:     []journals.LineInput{f.Dr("6100", "39.99"), f.Cr("1100", "40.00")},
	})
	require.NoError(t, err)

	entry, err := svc.Get(ctx, draft.JournalID)
	require.NoError(t, err)
	require.Len(t, entry.Lines, 3)
	require.Equal(t, rounding, entry.Lines[2].AccountID)
	require.True(t, entry.Lines[2].Debit.Equal(ledgertest.D("0.01")))

	_, err = svc.Post(ctx, draft.JournalID, ledgertest.Accountant.ID)
	require.NoError(t, err)
}
