package periods_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/testing/ledgertest"
	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

func TestCreateRejectsOverlap(t *testing.T) {
	f := ledgertest.New(t)

	_, err := f.Services.Periods.Create(context.Background(), periods.CreatePeriodInput{
		Name:       "Q1 2024",
		FiscalYear: 2024,
		StartDate:  ledgertest.Date("2024-03-15"),
		EndDate:    ledgertest.Date("2024-04-15"),
	})
	require.ErrorIs(t, err, shared.ErrPeriodOverlap)
}

func TestCreateValidatesWindow(t *testing.T) {
	f := ledgertest.New(t)

	_, err := f.Services.Periods.Create(context.Background(), periods.CreatePeriodInput{
		Name:       "backwards",
		FiscalYear: 2025,
		StartDate:  ledgertest.Date("2025-02-01"),
		EndDate:    ledgertest.Date("2025-01-01"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestIsOpen(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	open, err := f.Services.Periods.IsOpen(ctx, ledgertest.Date("2024-06-30"))
	require.NoError(t, err)
	require.True(t, open)

	_, err = f.Services.Periods.IsOpen(ctx, ledgertest.Date("2023-12-31"))
	require.ErrorIs(t, err, shared.ErrNoPeriodDefined)

	_, err = f.Services.Periods.Close(ctx, periods.CloseInput{PeriodID: f.Periods["2024-06"].ID, Actor: ledgertest.Admin})
	require.NoError(t, err)

	open, err = f.Services.Periods.IsOpen(ctx, ledgertest.Date("2024-06-30"))
	require.NoError(t, err)
	require.False(t, open)
	require.ErrorIs(t, f.Services.Periods.EnsureOpen(ctx, ledgertest.Date("2024-06-01")), shared.ErrPeriodClosed)
	require.NoError(t, f.Services.Periods.EnsureOpen(ctx, ledgertest.Date("2024-07-01")))
}

func TestCloseRequiresAdmin(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()
	id := f.Periods["2024-01"].ID

	_, err := f.Services.Periods.Close(ctx, periods.CloseInput{PeriodID: id, Actor: ledgertest.Accountant})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.Services.Periods.Close(ctx, periods.CloseInput{PeriodID: id, Actor: ledgertest.Admin})
	require.NoError(t, err)

	_, err = f.Services.Periods.Reopen(ctx, periods.ReopenInput{PeriodID: id, Reason: "fix", Actor: ledgertest.Accountant})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestCloseTwiceFails(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()
	id := f.Periods["2024-02"].ID

	_, err := f.Services.Periods.Close(ctx, periods.CloseInput{PeriodID: id, Actor: ledgertest.Admin})
	require.NoError(t, err)
	_, err = f.Services.Periods.Close(ctx, periods.CloseInput{PeriodID: id, Actor: ledgertest.Admin})
	require.ErrorIs(t, err, shared.ErrAlreadyClosed)
}

func TestCloseBlockedByDrafts(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()
	id := f.Periods["2024-02"].ID

	draft, err := f.Services.Journals.Create(ctx, journals.CreateInput{
		EntryDate: ledgertest.Date("2024-02-10"),
		Lines:     []journals.LineInput{f.Dr("6100", "12"), f.Cr("1100", "12")},
	})
	require.NoError(t, err)

	_, err = f.Services.Periods.Close(ctx, periods.CloseInput{PeriodID: id, Actor: ledgertest.Admin})
	var pending *shared.DraftEntriesPendingError
	require.ErrorAs(t, err, &pending)
	require.Equal(t, []int64{draft.EntryNo}, pending.EntryNos)

	res, err := f.Services.Periods.Close(ctx, periods.CloseInput{PeriodID: id, Actor: ledgertest.Admin, ExcludeDrafts: true})
	require.NoError(t, err)
	require.True(t, res.Period.IsClosed)
	require.Equal(t, []int64{draft.EntryNo}, res.Flagged)

	// the flagged draft stays a draft and can no longer be posted
	_, err = f.Services.Journals.Post(ctx, draft.JournalID, ledgertest.Accountant.ID)
	require.ErrorIs(t, err, shared.ErrPeriodClosed)
}

func TestReopenRecordsEvents(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()
	id := f.Periods["2024-08"].ID

	_, err := f.Services.Periods.Reopen(ctx, periods.ReopenInput{PeriodID: id, Reason: "not closed", Actor: ledgertest.Admin})
	require.ErrorIs(t, err, shared.ErrInvalidStatus)

	_, err = f.Services.Periods.Close(ctx, periods.CloseInput{PeriodID: id, Actor: ledgertest.Admin})
	require.NoError(t, err)

	_, err = f.Services.Periods.Reopen(ctx, periods.ReopenInput{PeriodID: id, Reason: "  ", Actor: ledgertest.Admin})
	require.ErrorIs(t, err, shared.ErrValidation)

	p, err := f.Services.Periods.Reopen(ctx, periods.ReopenInput{PeriodID: id, Reason: "audit adjustment", Actor: ledgertest.Admin})
	require.NoError(t, err)
	require.False(t, p.IsClosed)
	require.Nil(t, p.ClosedAt)

	events, err := f.Services.Periods.Events(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, shared.PeriodActionClose, events[0].Action)
	require.Equal(t, shared.PeriodActionReopen, events[1].Action)
	require.Equal(t, "audit adjustment", events[1].Reason)
	require.Equal(t, ledgertest.Admin.ID, events[1].ActorID)
}

func TestPostingStampsItsPeriod(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	f.Post(t, "2024-03-05", f.Dr("1100", "10"), f.Cr("4100", "10"))
	_, err := f.Services.Journals.Create(ctx, journals.CreateInput{
		EntryDate: ledgertest.Date("2024-04-10"),
		Lines:     []journals.LineInput{f.Dr("6100", "5"), f.Cr("1100", "5")},
	})
	require.NoError(t, err)

	list, err := f.Services.Periods.List(ctx)
	require.NoError(t, err)
	byName := make(map[string]periods.Period, len(list))
	for _, p := range list {
		byName[p.Name] = p
	}
	require.NotNil(t, byName["2024-03"].LastPostingAt, "posting stamps its period")
	require.Nil(t, byName["2024-04"].LastPostingAt, "drafts do not")
	require.Nil(t, byName["2024-05"].LastPostingAt)
}
