package ledger_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/testing/ledgertest"
	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

var d = ledgertest.D

func eq(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Fatalf("%s: want %s got %s", msg, want, got)
	}
}

func withPartner(l journals.LineInput, partner int64, due string) journals.LineInput {
	l.PartnerID = ledgertest.Ptr(partner)
	if due != "" {
		l.DueDate = ledgertest.Ptr(ledgertest.Date(due))
	}
	return l
}

// seedQuarter posts a small trading history for January to April 2024.
func seedQuarter(t *testing.T, f *ledgertest.Fixture) {
	t.Helper()
	f.Post(t, "2024-01-02", f.Dr("1110", "100000"), f.Cr("3100", "100000"))
	f.Post(t, "2024-01-05", f.Dr("1300", "20000"), f.Cr("1110", "20000"))
	f.Post(t, "2024-02-10", f.Dr("1200", "30000"), withPartner(f.Cr("2100", "30000"), 7, "2024-03-10"))
	f.Post(t, "2024-03-01", f.Dr("1110", "50000"), f.Cr("4100", "50000"))
	f.Post(t, "2024-03-01", f.Dr("5000", "18000"), f.Cr("1200", "18000"))
	f.Post(t, "2024-03-15", f.Dr("6100", "4000"), f.Cr("1110", "4000"))
	f.Post(t, "2024-03-20", withPartner(f.Dr("2100", "10000"), 7, ""), f.Cr("1110", "10000"))
	f.Post(t, "2024-04-01", f.Dr("1110", "15000"), f.Cr("2200", "15000"))
}

func TestGeneralLedgerIsAdditive(t *testing.T) {
	f := ledgertest.New(t)
	seedQuarter(t, f)
	ctx := context.Background()
	svc := f.Services.Ledger

	jan1 := ledgertest.Date("2024-01-01")
	feb29 := ledgertest.Date("2024-02-29")
	mar1 := ledgertest.Date("2024-03-01")
	mar31 := ledgertest.Date("2024-03-31")

	first, err := svc.GeneralLedger(ctx, ledger.GLQuery{AccountID: f.ID("1110"), From: &jan1, To: &feb29})
	require.NoError(t, err)
	eq(t, "80000", first.ClosingBalance, "jan-feb closing")

	march, err := svc.GeneralLedger(ctx, ledger.GLQuery{AccountID: f.ID("1110"), From: &mar1, To: &mar31})
	require.NoError(t, err)
	eq(t, "80000", march.OpeningBalance, "march opening")
	eq(t, "50000", march.TotalDebits, "march debits")
	eq(t, "14000", march.TotalCredits, "march credits")
	eq(t, "116000", march.ClosingBalance, "march closing")
	require.Len(t, march.Transactions, 3)
	eq(t, "130000", march.Transactions[0].RunningBalance, "first running balance")

	whole, err := svc.GeneralLedger(ctx, ledger.GLQuery{AccountID: f.ID("1110"), From: &jan1, To: &mar31})
	require.NoError(t, err)
	eq(t, march.ClosingBalance.String(), whole.ClosingBalance, "split equals whole")
}

func TestGeneralLedgerOfHeaderAggregatesChildren(t *testing.T) {
	f := ledgertest.New(t)
	seedQuarter(t, f)
	to := ledgertest.Date("2024-04-30")

	gl, err := f.Services.Ledger.GeneralLedger(context.Background(), ledger.GLQuery{AccountID: f.ID("1000"), To: &to})
	require.NoError(t, err)
	eq(t, "163000", gl.ClosingBalance, "assets")
}

func TestGeneralLedgerLiabilityIsCreditPositive(t *testing.T) {
	f := ledgertest.New(t)
	seedQuarter(t, f)
	to := ledgertest.Date("2024-04-30")

	gl, err := f.Services.Ledger.GeneralLedger(context.Background(), ledger.GLQuery{AccountID: f.ID("2100"), To: &to})
	require.NoError(t, err)
	eq(t, "20000", gl.ClosingBalance, "payables")
}

func TestGeneralLedgerValidatesQuery(t *testing.T) {
	f := ledgertest.New(t)
	ctx := context.Background()

	_, err := f.Services.Ledger.GeneralLedger(ctx, ledger.GLQuery{})
	require.ErrorIs(t, err, shared.ErrValidation)

	from, to := ledgertest.Date("2024-05-01"), ledgertest.Date("2024-04-01")
	_, err = f.Services.Ledger.GeneralLedger(ctx, ledger.GLQuery{AccountID: f.ID("1110"), From: &from, To: &to})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.Services.Ledger.GeneralLedger(ctx, ledger.GLQuery{AccountID: 9999})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTrialBalanceNetsToZero(t *testing.T) {
	f := ledgertest.New(t)
	seedQuarter(t, f)

	tb, err := f.Services.Ledger.VerifyTrialBalance(context.Background(), ledgertest.Date("2024-04-30"))
	require.NoError(t, err)
	eq(t, "247000", tb.TotalDebit, "total debit")
	eq(t, "247000", tb.TotalCredit, "total credit")
	require.True(t, tb.Net.IsZero())

	for _, row := range tb.Rows {
		require.NotEqual(t, "1000", row.Code, "header accounts carry no rows")
	}

	early, err := f.Services.Ledger.TrialBalance(context.Background(), ledgertest.Date("2024-01-31"))
	require.NoError(t, err)
	eq(t, "120000", early.TotalDebit, "january debit")
}

func TestTrialBalanceCheckFlagsImbalance(t *testing.T) {
	tb := ledger.TrialBalanceResult{
		AsOf:        ledgertest.Date("2024-12-31"),
		TotalDebit:  d("100.00"),
		TotalCredit: d("99.00"),
		Net:         d("1.00"),
	}
	require.ErrorIs(t, tb.Check(), shared.ErrTrialBalanceUnbalanced)

	tb.TotalDebit, tb.TotalCredit, tb.Net = d("100.00"), d("99.99"), d("0.01")
	require.ErrorIs(t, tb.Check(), shared.ErrTrialBalanceUnbalanced)

	tb.TotalCredit, tb.Net = d("100.00"), d("0")
	require.NoError(t, tb.Check())
}

func TestIncomeStatementAndBalanceSheet(t *testing.T) {
	f := ledgertest.New(t)
	seedQuarter(t, f)
	ctx := context.Background()

	is, err := f.Services.Ledger.IncomeStatement(ctx, ledgertest.Date("2024-01-01"), ledgertest.Date("2024-04-30"))
	require.NoError(t, err)
	eq(t, "50000", is.Revenue.Total, "revenue")
	eq(t, "18000", is.COGS.Total, "cogs")
	eq(t, "32000", is.GrossProfit, "gross profit")
	eq(t, "4000", is.Expense.Total, "expense")
	eq(t, "28000", is.NetIncome, "net income")

	bs, err := f.Services.Ledger.BalanceSheet(ctx, ledgertest.Date("2024-04-30"))
	require.NoError(t, err)
	eq(t, "163000", bs.Assets.Total, "assets")
	eq(t, "35000", bs.Liabilities.Total, "liabilities")
	eq(t, "28000", bs.CurrentEarnings, "current earnings")
	eq(t, "128000", bs.Equity.Total, "equity")
	require.True(t, bs.Balanced)

	_, err = f.Services.Ledger.IncomeStatement(ctx, ledgertest.Date("2024-04-30"), ledgertest.Date("2024-01-01"))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCashFlowMethodsReconcile(t *testing.T) {
	f := ledgertest.New(t)
	seedQuarter(t, f)
	ctx := context.Background()
	from, to := ledgertest.Date("2024-01-01"), ledgertest.Date("2024-04-30")

	direct, err := f.Services.Ledger.CashFlowDirect(ctx, from, to)
	require.NoError(t, err)
	eq(t, "36000", direct.Operating.Total, "direct operating")
	eq(t, "-20000", direct.Investing.Total, "direct investing")
	eq(t, "115000", direct.Financing.Total, "direct financing")
	eq(t, "131000", direct.NetChange, "direct net")
	eq(t, "0", direct.OpeningCash, "opening cash")
	eq(t, "131000", direct.ClosingCash, "closing cash")

	indirect, err := f.Services.Ledger.CashFlowIndirect(ctx, from, to)
	require.NoError(t, err)
	eq(t, "28000", indirect.NetIncome, "net income")
	eq(t, "36000", indirect.Operating.Total, "indirect operating")
	eq(t, direct.NetChange.String(), indirect.NetChange, "indirect net")
	require.True(t, indirect.Reconciles)

	// a later window opens with the cash accumulated before it
	april, err := f.Services.Ledger.CashFlowDirect(ctx, ledgertest.Date("2024-04-01"), to)
	require.NoError(t, err)
	eq(t, "116000", april.OpeningCash, "april opening")
	eq(t, "15000", april.Financing.Total, "april financing")
	eq(t, "131000", april.ClosingCash, "april closing")
}

func TestSupplierAging(t *testing.T) {
	f := ledgertest.New(t)
	seedQuarter(t, f)
	f.Post(t, "2024-04-20", f.Dr("1200", "5000"), withPartner(f.Cr("2100", "5000"), 9, "2024-05-20"))
	f.Post(t, "2024-04-22", withPartner(f.Dr("2100", "500"), 11, ""), f.Cr("1110", "500"))
	f.Post(t, "2024-01-10", f.Dr("1200", "800"), withPartner(f.Cr("2100", "800"), 12, ""))

	aging, err := f.Services.Ledger.SupplierAging(context.Background(), ledgertest.Date("2024-04-30"))
	require.NoError(t, err)
	require.Equal(t, reports.AgingBuckets, aging.Buckets)
	require.Len(t, aging.Rows, 4)

	byPartner := make(map[int64]reports.AgingRow)
	for _, row := range aging.Rows {
		byPartner[row.PartnerID] = row
	}
	eq(t, "20000", byPartner[7].Buckets[reports.Bucket31To60], "partner 7 remainder")
	eq(t, "5000", byPartner[9].Buckets[reports.BucketCurrent], "partner 9 not yet due")
	eq(t, "500", byPartner[11].Advance, "partner 11 advance")
	eq(t, "0", byPartner[11].Total, "partner 11 owes nothing")
	eq(t, "800", byPartner[12].Buckets[reports.Bucket91To120], "partner 12 due on entry date")
	eq(t, "25800", aging.Total, "aging total")
}

func TestBucketFor(t *testing.T) {
	cases := map[int]string{
		-3: reports.BucketCurrent, 0: reports.BucketCurrent, 1: reports.Bucket1To30, 30: reports.Bucket1To30,
		31: reports.Bucket31To60, 61: reports.Bucket61To90, 120: reports.Bucket91To120, 121: reports.BucketOver120,
	}
	for days, want := range cases {
		if got := reports.BucketFor(days); got != want {
			t.Fatalf("BucketFor(%d) = %s, want %s", days, got, want)
		}
	}
}

type cacheCounter struct {
	hits, misses map[string]int
}

func (c *cacheCounter) CacheHit(report string)  { c.hits[report]++ }
func (c *cacheCounter) CacheMiss(report string) { c.misses[report]++ }

func TestReportCacheServesUntilPosting(t *testing.T) {
	f := ledgertest.New(t, ledgertest.WithRedis())
	counter := &cacheCounter{hits: map[string]int{}, misses: map[string]int{}}
	f.Services.Cache.WithMetrics(counter)
	ctx := context.Background()
	asOf := ledgertest.Date("2024-06-30")

	f.Post(t, "2024-06-01", f.Dr("1110", "100"), f.Cr("4100", "100"))
	version, err := f.Services.Cache.Version(ctx)
	require.NoError(t, err)

	first, err := f.Services.Ledger.TrialBalance(ctx, asOf)
	require.NoError(t, err)
	second, err := f.Services.Ledger.TrialBalance(ctx, asOf)
	require.NoError(t, err)
	require.Equal(t, 1, counter.misses["tb"])
	require.Equal(t, 1, counter.hits["tb"])
	require.True(t, first.TotalDebit.Equal(second.TotalDebit))
	require.True(t, f.Redis.Exists("ledger:tb:2024-06-30:"+strconv.FormatInt(version, 10)))

	f.Post(t, "2024-06-02", f.Dr("1110", "50"), f.Cr("4100", "50"))
	bumped, err := f.Services.Cache.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, version+1, bumped)

	third, err := f.Services.Ledger.TrialBalance(ctx, asOf)
	require.NoError(t, err)
	require.Equal(t, 2, counter.misses["tb"])
	eq(t, "150", third.TotalDebit, "fresh total after posting")
}

func TestCacheExpiresWithTTL(t *testing.T) {
	f := ledgertest.New(t, ledgertest.WithRedis())
	ctx := context.Background()
	f.Post(t, "2024-06-01", f.Dr("1110", "100"), f.Cr("4100", "100"))

	_, err := f.Services.Ledger.BalanceSheet(ctx, ledgertest.Date("2024-06-30"))
	require.NoError(t, err)
	keys := f.Redis.Keys()
	require.Contains(t, keys, "ledger:bs:2024-06-30:1")

	f.Redis.FastForward(10 * time.Minute)
	require.False(t, f.Redis.Exists("ledger:bs:2024-06-30:1"))
}

func TestReportsComputeWhileRedisIsDown(t *testing.T) {
	f := ledgertest.New(t, ledgertest.WithRedis())
	counter := &cacheCounter{hits: map[string]int{}, misses: map[string]int{}}
	f.Services.Cache.WithMetrics(counter)
	ctx := context.Background()
	asOf := ledgertest.Date("2024-06-30")
	f.Post(t, "2024-06-01", f.Dr("1110", "100"), f.Cr("4100", "100"))

	f.Redis.Close()

	tb, err := f.Services.Ledger.TrialBalance(ctx, asOf)
	require.NoError(t, err)
	eq(t, "100", tb.TotalDebit, "trial balance without redis")
	bs, err := f.Services.Ledger.BalanceSheet(ctx, asOf)
	require.NoError(t, err)
	eq(t, "100", bs.Assets.Total, "assets without redis")
	require.True(t, bs.Balanced)

	// postings still commit, only the bump is lost
	f.Post(t, "2024-06-02", f.Dr("1110", "50"), f.Cr("4100", "50"))
	tb, err = f.Services.Ledger.TrialBalance(ctx, asOf)
	require.NoError(t, err)
	eq(t, "150", tb.TotalDebit, "trial balance after posting without redis")
	require.Zero(t, counter.hits["tb"])
}

func TestFailedBumpKeepsStaleReportsOut(t *testing.T) {
	f := ledgertest.New(t, ledgertest.WithRedis())
	ctx := context.Background()
	asOf := ledgertest.Date("2024-06-30")
	f.Post(t, "2024-06-01", f.Dr("1110", "100"), f.Cr("4100", "100"))

	cachedTB, err := f.Services.Ledger.TrialBalance(ctx, asOf)
	require.NoError(t, err)
	eq(t, "100", cachedTB.TotalDebit, "cached total")

	f.Redis.Close()
	f.Post(t, "2024-06-02", f.Dr("1110", "50"), f.Cr("4100", "50"))
	require.NoError(t, f.Redis.Restart())

	// the entry cached under the old version is still in redis
	require.True(t, f.Redis.Exists("ledger:tb:2024-06-30:1"))
	tb, err := f.Services.Ledger.TrialBalance(ctx, asOf)
	require.NoError(t, err)
	eq(t, "150", tb.TotalDebit, "report after missed bump")
}

func TestBumpIsSeenByEveryInstance(t *testing.T) {
	f := ledgertest.New(t, ledgertest.WithRedis())
	ctx := context.Background()
	other := ledger.NewCache(f.Client, 0)

	before, err := other.Version(ctx)
	require.NoError(t, err)
	f.Post(t, "2024-06-01", f.Dr("1110", "100"), f.Cr("4100", "100"))

	after, err := other.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, before+1, after)
	key, err := other.BuildKey(ctx, "tb", "2024-06-30")
	require.NoError(t, err)
	require.Equal(t, "ledger:tb:2024-06-30:"+strconv.FormatInt(after, 10), key)
}
