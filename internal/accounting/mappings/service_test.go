package mappings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/testing/ledgertest"
	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

func TestSetNormalisesKeyAndRepoints(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	m, err := f.Services.Mappings.Set(ctx, "  Cash.Petty ", f.ID("1100"))
	require.NoError(t, err)
	require.Equal(t, "cash.petty", m.Key)

	_, err = f.Services.Mappings.Set(ctx, mappings.KeyInventoryShrinkage, f.ID("6100"))
	require.NoError(t, err)
	id, err := mappings.Resolve(ctx, f.Store, mappings.KeyInventoryShrinkage)
	require.NoError(t, err)
	require.Equal(t, f.ID("6100"), id)
}

func TestSetRejectsBadInput(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	_, err := f.Services.Mappings.Set(ctx, "two words", f.ID("1100"))
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.Services.Mappings.Set(ctx, "cash.header", f.ID("1000"))
	require.ErrorIs(t, err, shared.ErrInvalidAccount)
}

func TestResolveAndAccountSet(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	_, err := mappings.Resolve(ctx, f.Store, "sales.discount")
	require.ErrorIs(t, err, shared.ErrMappingNotFound)

	cash, err := mappings.AccountSet(ctx, f.Store, mappings.PrefixCash)
	require.NoError(t, err)
	require.Len(t, cash, 2)
	require.Contains(t, cash, f.ID("1100"))
	require.Contains(t, cash, f.ID("1110"))

	list, err := f.Services.Mappings.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 10)
}
