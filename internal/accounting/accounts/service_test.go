package accounts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/testing/ledgertest"
	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

func TestCreateChecksParent(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	leaf := f.ID("1100")
	_, err := f.Services.Accounts.Create(ctx, accounts.CreateInput{
		Code: "1101", Name: "Petty Cash", Type: accounts.AccountTypeAsset, ParentID: &leaf,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	liabilities := f.ID("2000")
	_, err = f.Services.Accounts.Create(ctx, accounts.CreateInput{
		Code: "1102", Name: "Till", Type: accounts.AccountTypeAsset, ParentID: &liabilities,
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	assets := f.ID("1000")
	acc, err := f.Services.Accounts.Create(ctx, accounts.CreateInput{
		Code: "1120", Name: "Card Clearing", Type: accounts.AccountTypeAsset, ParentID: &assets,
	})
	require.NoError(t, err)
	require.False(t, acc.IsHeader)
	require.True(t, acc.IsActive)
}

func TestCreateValidatesFields(t *testing.T) {
	f := ledgertest.New(t)

	_, err := f.Services.Accounts.Create(context.Background(), accounts.CreateInput{Code: " ", Type: "ASSETS"})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Errors, 3)
}

func TestTreeOrdersByCode(t *testing.T) {
	f := ledgertest.New(t)

	tree, err := f.Services.Accounts.Tree(context.Background())
	require.NoError(t, err)

	var roots []string
	for _, n := range tree {
		roots = append(roots, n.Code)
	}
	require.Equal(t, []string{"1000", "2000", "3000", "4000", "5000", "6000"}, roots)
	require.Len(t, tree[0].Children, 4)
	require.Equal(t, "1100", tree[0].Children[0].Code)
}

func TestEnsurePostable(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	got, err := accounts.EnsurePostable(ctx, f.Store, []int64{f.ID("1100"), f.ID("4100"), f.ID("1100")})
	require.NoError(t, err)
	require.Len(t, got, 2)

	_, err = accounts.EnsurePostable(ctx, f.Store, []int64{f.ID("6000")})
	require.ErrorIs(t, err, shared.ErrInvalidAccount)

	_, err = accounts.EnsurePostable(ctx, f.Store, []int64{424242})
	require.ErrorIs(t, err, shared.ErrInvalidAccount)
}

func TestSignedFollowsNormalSide(t *testing.T) {
	debit, credit := ledgertest.D("70"), ledgertest.D("20")
	require.True(t, accounts.AccountTypeAsset.Signed(debit, credit).Equal(ledgertest.D("50")))
	require.True(t, accounts.AccountTypeRevenue.Signed(debit, credit).Equal(ledgertest.D("-50")))
	require.True(t, accounts.AccountTypeCOGS.Temporary())
	require.False(t, accounts.AccountTypeEquity.Temporary())
}

func TestDeactivateRefusesAccountWithBalance(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()
	f.Post(t, "2024-03-05", f.Dr("1110", "100"), f.Cr("4100", "100"))

	err := f.Services.Accounts.Deactivate(ctx, f.ID("4100"))
	require.ErrorIs(t, err, shared.ErrAccountHasBalance)
	var balErr *shared.AccountHasBalanceError
	require.ErrorAs(t, err, &balErr)
	require.Equal(t, "4100", balErr.Code)
	require.True(t, balErr.Balance.Equal(ledgertest.D("-100")), "balance %s", balErr.Balance)

	list, err := f.Services.Accounts.List(ctx)
	require.NoError(t, err)
	for _, acc := range list {
		if acc.Code == "4100" {
			require.True(t, acc.IsActive, "refused deactivation leaves the account active")
		}
	}

	// a settled account can go
	f.Post(t, "2024-03-06", f.Dr("4100", "100"), f.Cr("1110", "100"))
	require.NoError(t, f.Services.Accounts.Deactivate(ctx, f.ID("4100")))
	require.ErrorIs(t, f.Services.Accounts.Deactivate(ctx, 9999), shared.ErrNotFound)
}

func TestDeactivateIgnoresDraftLines(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	_, err := f.Services.Journals.Create(ctx, journals.CreateInput{
		EntryDate: ledgertest.Date("2024-03-05"),
		Lines:     []journals.LineInput{f.Dr("6100", "20"), f.Cr("1100", "20")},
	})
	require.NoError(t, err)
	require.NoError(t, f.Services.Accounts.Deactivate(ctx, f.ID("6100")))
}
