package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestBuildTrialBalance(t *testing.T) {
	balances := []AccountBalance{
		{Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, Opening: d("1000"), Debit: d("200"), Credit: d("150")},
		{Code: "1001", Name: "Bank", Type: accounts.AccountTypeAsset, Opening: d("500"), Debit: d("100"), Credit: d("50")},
		{Code: "2000", Name: "Accounts Payable", Type: accounts.AccountTypeLiability, Debit: d("10"), Credit: d("400")},
	}

	tb := BuildTrialBalance(balances)
	if len(tb.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(tb.Groups))
	}
	if !tb.TotalDebit.Equal(d("310")) {
		t.Fatalf("unexpected total debit: %v", tb.TotalDebit)
	}
	if !tb.TotalCredit.Equal(d("600")) {
		t.Fatalf("unexpected total credit: %v", tb.TotalCredit)
	}
	if !tb.TotalOpening.Equal(d("1500")) {
		t.Fatalf("unexpected total opening: %v", tb.TotalOpening)
	}
	if !tb.TotalClosing.Equal(d("1210")) {
		t.Fatalf("unexpected closing total: %v", tb.TotalClosing)
	}
}

func TestBuildProfitAndLoss(t *testing.T) {
	balances := []AccountBalance{
		{Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue, Credit: d("1200")},
		{Code: "5000", Name: "COGS", Type: accounts.AccountTypeCOGS, Debit: d("300")},
		{Code: "6100", Name: "Marketing", Type: accounts.AccountTypeExpense, Debit: d("200")},
	}

	pl := BuildProfitAndLoss(balances)
	if !pl.Revenue.Total.Equal(d("1200")) {
		t.Fatalf("expected revenue total 1200 got %v", pl.Revenue.Total)
	}
	if !pl.GrossProfit.Equal(d("900")) {
		t.Fatalf("expected gross profit 900 got %v", pl.GrossProfit)
	}
	if !pl.Expense.Total.Equal(d("200")) {
		t.Fatalf("expected expense total 200 got %v", pl.Expense.Total)
	}
	if !pl.NetIncome.Equal(d("700")) {
		t.Fatalf("expected net income 700 got %v", pl.NetIncome)
	}
}

func TestBuildBalanceSheet(t *testing.T) {
	balances := []AccountBalance{
		{Code: "1000", Name: "Cash", Type: accounts.AccountTypeAsset, Opening: d("500"), Debit: d("100"), Credit: d("20")},
		{Code: "2000", Name: "AP", Type: accounts.AccountTypeLiability, Debit: d("10"), Credit: d("40")},
		{Code: "3000", Name: "Capital", Type: accounts.AccountTypeEquity, Opening: d("-500")},
		{Code: "4000", Name: "Sales", Type: accounts.AccountTypeRevenue, Credit: d("100")},
		{Code: "6000", Name: "Rent", Type: accounts.AccountTypeExpense, Debit: d("50")},
	}

	bs := BuildBalanceSheet(balances)
	if !bs.Assets.Total.Equal(d("580")) {
		t.Fatalf("expected assets 580 got %v", bs.Assets.Total)
	}
	if !bs.Liabilities.Total.Equal(d("30")) {
		t.Fatalf("expected liabilities 30 got %v", bs.Liabilities.Total)
	}
	if !bs.CurrentEarnings.Equal(d("50")) {
		t.Fatalf("expected current earnings 50 got %v", bs.CurrentEarnings)
	}
	if !bs.Equity.Total.Equal(d("550")) {
		t.Fatalf("expected equity 550 got %v", bs.Equity.Total)
	}
	if !bs.Balanced {
		t.Fatalf("expected balanced sheet, assets %v vs %v", bs.Assets.Total, bs.TotalLiabilitiesAndEquity)
	}
}

func TestBuildCashFlowMergesRows(t *testing.T) {
	cf := BuildCashFlow("direct", []CashFlowEntry{
		{Activity: ActivityOperating, Code: "4000", Name: "Sales", Amount: d("300")},
		{Activity: ActivityOperating, Code: "4000", Name: "Sales", Amount: d("200")},
		{Activity: ActivityInvesting, Code: "1500", Name: "Equipment", Amount: d("-120")},
		{Activity: ActivityFinancing, Code: "2500", Name: "Loan", Amount: d("0")},
	}, d("1000"))

	if len(cf.Operating.Lines) != 1 || !cf.Operating.Total.Equal(d("500")) {
		t.Fatalf("unexpected operating section %+v", cf.Operating)
	}
	if len(cf.Financing.Lines) != 0 {
		t.Fatalf("zero rows must be dropped")
	}
	if !cf.NetChange.Equal(d("380")) || !cf.ClosingCash.Equal(d("1380")) {
		t.Fatalf("unexpected net change %v closing %v", cf.NetChange, cf.ClosingCash)
	}
}

func TestBucketFor(t *testing.T) {
	cases := map[int]string{-5: "0", 0: "0", 1: "1-30", 30: "1-30", 31: "31-60", 60: "31-60", 61: "61-90", 91: "91-120", 120: "91-120", 121: "120+"}
	for days, want := range cases {
		if got := BucketFor(days); got != want {
			t.Fatalf("days %d: expected %s got %s", days, want, got)
		}
	}
}

func TestBuildAging(t *testing.T) {
	asOf := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	rows := BuildAging(asOf, []OpenItem{
		{PartnerID: 7, EntryNo: 1, DueDate: asOf.AddDate(0, 0, 10), Amount: d("100")},
		{PartnerID: 7, EntryNo: 2, DueDate: asOf.AddDate(0, 0, -45), Amount: d("40")},
		{PartnerID: 3, EntryNo: 3, DueDate: asOf.AddDate(0, 0, -200), Amount: d("25")},
	}, map[int64]decimal.Decimal{9: d("15")})

	if len(rows) != 3 {
		t.Fatalf("expected 3 rows got %d", len(rows))
	}
	if rows[0].PartnerID != 3 || !rows[0].Buckets[BucketOver120].Equal(d("25")) {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
	if !rows[1].Buckets[BucketCurrent].Equal(d("100")) || !rows[1].Buckets[Bucket31To60].Equal(d("40")) || !rows[1].Total.Equal(d("140")) {
		t.Fatalf("unexpected supplier 7 row %+v", rows[1])
	}
	if !rows[2].Advance.Equal(d("15")) || !rows[2].Total.IsZero() {
		t.Fatalf("unexpected advance row %+v", rows[2])
	}
}
