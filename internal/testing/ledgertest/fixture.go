// Package ledgertest builds an in-memory ledger with a small pharmacy chart
// of accounts for service and handler tests.
package ledgertest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/pharma-ledger/internal/app"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/store/memory"
)

// Admin may close and reopen periods.
var Admin = shared.Actor{ID: 1, Role: shared.RoleAdmin}

// Accountant posts journals but cannot lock periods.
var Accountant = shared.Actor{ID: 2, Role: shared.RoleAccountant}

// Fixture is a seeded ledger. Accounts and periods are keyed by code and name.
type Fixture struct {
	Store    *memory.Store
	Services *app.Services
	Redis    *miniredis.Miniredis
	Client   *redis.Client
	Logger   *slog.Logger

	Accounts map[string]accounts.Account
	Periods  map[string]periods.Period
}

type options struct {
	redis bool
	year  int
}

// Option tunes New.
type Option func(*options)

// WithRedis backs the report cache and the year-end lock with miniredis.
func WithRedis() Option {
	return func(o *options) { o.redis = true }
}

// WithFiscalYear seeds the twelve monthly periods of year instead of 2024.
func WithFiscalYear(year int) Option {
	return func(o *options) { o.year = year }
}

type seedAccount struct {
	code, name, parent string
	typ                accounts.AccountType
	header             bool
	mapping            string
}

var chart = []seedAccount{
	{code: "1000", name: "Assets", typ: accounts.AccountTypeAsset, header: true},
	{code: "1100", name: "Cash on Hand", parent: "1000", typ: accounts.AccountTypeAsset, mapping: "cash.main"},
	{code: "1110", name: "Bank", parent: "1000", typ: accounts.AccountTypeAsset, mapping: "cash.bank"},
	{code: "1200", name: "Inventory", parent: "1000", typ: accounts.AccountTypeAsset, mapping: mappings.KeyInventoryAsset},
	{code: "1300", name: "Equipment", parent: "1000", typ: accounts.AccountTypeAsset, mapping: mappings.PrefixInvesting + "equipment"},
	{code: "2000", name: "Liabilities", typ: accounts.AccountTypeLiability, header: true},
	{code: "2100", name: "Accounts Payable", parent: "2000", typ: accounts.AccountTypeLiability, mapping: mappings.KeyPayablesControl},
	{code: "2200", name: "Bank Loan", parent: "2000", typ: accounts.AccountTypeLiability, mapping: mappings.PrefixFinancing + "loan"},
	{code: "3000", name: "Equity", typ: accounts.AccountTypeEquity, header: true},
	{code: "3100", name: "Owner Capital", parent: "3000", typ: accounts.AccountTypeEquity, mapping: mappings.PrefixFinancing + "capital"},
	{code: "3200", name: "Retained Earnings", parent: "3000", typ: accounts.AccountTypeEquity, mapping: mappings.KeyRetainedEarnings},
	{code: "4000", name: "Revenue", typ: accounts.AccountTypeRevenue, header: true},
	{code: "4100", name: "Sales", parent: "4000", typ: accounts.AccountTypeRevenue},
	{code: "4200", name: "Inventory Gain", parent: "4000", typ: accounts.AccountTypeRevenue, mapping: mappings.KeyInventoryAdjustmentGain},
	{code: "5000", name: "Cost of Goods Sold", typ: accounts.AccountTypeCOGS},
	{code: "6000", name: "Expenses", typ: accounts.AccountTypeExpense, header: true},
	{code: "6100", name: "Operating Expense", parent: "6000", typ: accounts.AccountTypeExpense},
	{code: "6200", name: "Inventory Shrinkage", parent: "6000", typ: accounts.AccountTypeExpense, mapping: mappings.KeyInventoryShrinkage},
}

// New seeds the chart, its mappings and monthly periods for one fiscal year.
func New(t testing.TB, opts ...Option) *Fixture {
	t.Helper()
	o := options{year: 2024}
	for _, opt := range opts {
		opt(&o)
	}

	f := &Fixture{
		Store:    memory.New(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Accounts: make(map[string]accounts.Account),
		Periods:  make(map[string]periods.Period),
	}
	deps := app.ServiceDeps{Logger: f.Logger}
	if o.redis {
		f.Redis = miniredis.RunT(t)
		f.Client = redis.NewClient(&redis.Options{Addr: f.Redis.Addr()})
		t.Cleanup(func() { _ = f.Client.Close() })
		deps.Redis = f.Client
	}
	f.Services = app.NewServices(f.Store, deps)

	ctx := context.Background()
	for _, s := range chart {
		in := accounts.CreateInput{Code: s.code, Name: s.name, Type: s.typ, IsHeader: s.header}
		if s.parent != "" {
			parentID := f.Accounts[s.parent].ID
			in.ParentID = &parentID
		}
		acc, err := f.Services.Accounts.Create(ctx, in)
		require.NoError(t, err, "create account %s", s.code)
		f.Accounts[s.code] = acc
		if s.mapping != "" {
			_, err := f.Services.Mappings.Set(ctx, s.mapping, acc.ID)
			require.NoError(t, err, "map %s", s.mapping)
		}
	}
	f.AddYear(t, o.year)
	return f
}

// AddYear creates the monthly periods of year, named YYYY-MM.
func (f *Fixture) AddYear(t testing.TB, year int) {
	t.Helper()
	for m := time.January; m <= time.December; m++ {
		start := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
		name := start.Format("2006-01")
		p, err := f.Services.Periods.Create(context.Background(), periods.CreatePeriodInput{
			Name:       name,
			FiscalYear: year,
			StartDate:  start,
			EndDate:    start.AddDate(0, 1, -1),
		})
		require.NoError(t, err, "create period %s", name)
		f.Periods[name] = p
	}
}

// ID returns the id of the seeded account code.
func (f *Fixture) ID(code string) int64 {
	acc, ok := f.Accounts[code]
	if !ok {
		panic(fmt.Sprintf("ledgertest: unknown account %s", code))
	}
	return acc.ID
}

// Dr is a debit line on the account code.
func (f *Fixture) Dr(code, amount string) journals.LineInput {
	return journals.LineInput{AccountID: f.ID(code), Debit: D(amount), Credit: decimal.Zero}
}

// Cr is a credit line on the account code.
func (f *Fixture) Cr(code, amount string) journals.LineInput {
	return journals.LineInput{AccountID: f.ID(code), Debit: decimal.Zero, Credit: D(amount)}
}

// Post posts a manual journal dated date and fails the test on error.
func (f *Fixture) Post(t testing.TB, date string, lines ...journals.LineInput) journals.CreateResult {
	t.Helper()
	res, err := f.Services.Journals.Create(context.Background(), journals.CreateInput{
		EntryDate:   Date(date),
		Description: "test entry",
		Post:        true,
		ActorID:     Accountant.ID,
		Lines:       lines,
	})
	require.NoError(t, err)
	return res
}

// D parses a decimal literal.
func D(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// Date parses YYYY-MM-DD as a UTC date.
func Date(v string) time.Time {
	t, err := time.Parse(shared.DateLayout, v)
	if err != nil {
		panic(err)
	}
	return t
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
