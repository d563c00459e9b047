package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/pharma-ledger/internal/app"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

type seedAccount struct {
	code, name, parent string
	typ                accounts.AccountType
	header             bool
	mappings           []string
}

// pharmacyChart is the starter chart of a single-branch pharmacy.
var pharmacyChart = []seedAccount{
	{code: "1000", name: "Assets", typ: accounts.AccountTypeAsset, header: true},
	{code: "1100", name: "Cash on Hand", parent: "1000", typ: accounts.AccountTypeAsset, mappings: []string{mappings.PrefixCash + "main"}},
	{code: "1110", name: "Bank Account", parent: "1000", typ: accounts.AccountTypeAsset, mappings: []string{mappings.PrefixCash + "bank"}},
	{code: "1120", name: "Card Clearing", parent: "1000", typ: accounts.AccountTypeAsset, mappings: []string{mappings.PrefixCash + "card_clearing"}},
	{code: "1150", name: "Trade Receivables", parent: "1000", typ: accounts.AccountTypeAsset},
	{code: "1200", name: "Medicine Inventory", parent: "1000", typ: accounts.AccountTypeAsset, mappings: []string{mappings.KeyInventoryAsset}},
	{code: "1500", name: "Fixtures and Equipment", parent: "1000", typ: accounts.AccountTypeAsset, mappings: []string{mappings.PrefixInvesting + "equipment"}},
	{code: "2000", name: "Liabilities", typ: accounts.AccountTypeLiability, header: true},
	{code: "2100", name: "Supplier Payables", parent: "2000", typ: accounts.AccountTypeLiability, mappings: []string{mappings.KeyPayablesControl}},
	{code: "2200", name: "VAT Payable", parent: "2000", typ: accounts.AccountTypeLiability},
	{code: "2500", name: "Bank Loan", parent: "2000", typ: accounts.AccountTypeLiability, mappings: []string{mappings.PrefixFinancing + "bank_loan"}},
	{code: "3000", name: "Equity", typ: accounts.AccountTypeEquity, header: true},
	{code: "3100", name: "Owner Capital", parent: "3000", typ: accounts.AccountTypeEquity, mappings: []string{mappings.PrefixFinancing + "owner_capital"}},
	{code: "3200", name: "Retained Earnings", parent: "3000", typ: accounts.AccountTypeEquity, mappings: []string{mappings.KeyRetainedEarnings}},
	{code: "4000", name: "Revenue", typ: accounts.AccountTypeRevenue, header: true},
	{code: "4100", name: "Prescription Sales", parent: "4000", typ: accounts.AccountTypeRevenue},
	{code: "4200", name: "Over-the-counter Sales", parent: "4000", typ: accounts.AccountTypeRevenue},
	{code: "4900", name: "Stock Count Gains", parent: "4000", typ: accounts.AccountTypeRevenue, mappings: []string{mappings.KeyInventoryAdjustmentGain}},
	{code: "5000", name: "Cost of Goods Sold", typ: accounts.AccountTypeCOGS, header: true},
	{code: "5100", name: "Cost of Medicines Sold", parent: "5000", typ: accounts.AccountTypeCOGS},
	{code: "6000", name: "Operating Expenses", typ: accounts.AccountTypeExpense, header: true},
	{code: "6100", name: "Salaries", parent: "6000", typ: accounts.AccountTypeExpense},
	{code: "6200", name: "Rent", parent: "6000", typ: accounts.AccountTypeExpense},
	{code: "6300", name: "Utilities", parent: "6000", typ: accounts.AccountTypeExpense},
	{code: "6900", name: "Stock Shrinkage and Expiry", parent: "6000", typ: accounts.AccountTypeExpense, mappings: []string{mappings.KeyInventoryShrinkage}},
	{code: "6950", name: "Rounding Differences", parent: "6000", typ: accounts.AccountTypeExpense, mappings: []string{mappings.KeyRoundingDifference}},
}

func main() {
	year := flag.Int("year", time.Now().UTC().Year(), "fiscal year whose monthly periods are created")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)
	ctx := context.Background()

	rt, err := app.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer rt.Close()
	services := rt.Services(cfg, app.ServiceDeps{Logger: logger})

	fmt.Println("→ Seeding chart of accounts...")
	if err := seedChart(ctx, services); err != nil {
		log.Fatalf("seed chart: %v", err)
	}
	fmt.Printf("→ Seeding periods for %d...\n", *year)
	if err := seedPeriods(ctx, services, *year); err != nil {
		log.Fatalf("seed periods: %v", err)
	}
	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

// seedChart creates missing accounts and (re)points their mappings.
func seedChart(ctx context.Context, services *app.Services) error {
	existing, err := services.Accounts.List(ctx)
	if err != nil {
		return err
	}
	byCode := make(map[string]accounts.Account, len(existing))
	for _, acc := range existing {
		byCode[acc.Code] = acc
	}
	for _, s := range pharmacyChart {
		acc, ok := byCode[s.code]
		if !ok {
			in := accounts.CreateInput{Code: s.code, Name: s.name, Type: s.typ, IsHeader: s.header}
			if s.parent != "" {
				parentID := byCode[s.parent].ID
				in.ParentID = &parentID
			}
			acc, err = services.Accounts.Create(ctx, in)
			if err != nil {
				return fmt.Errorf("account %s: %w", s.code, err)
			}
			byCode[s.code] = acc
		}
		for _, key := range s.mappings {
			if _, err := services.Mappings.Set(ctx, key, acc.ID); err != nil {
				return fmt.Errorf("mapping %s: %w", key, err)
			}
		}
	}
	return nil
}

// seedPeriods creates the twelve monthly periods of year, skipping months
// that already exist.
func seedPeriods(ctx context.Context, services *app.Services, year int) error {
	for m := time.January; m <= time.December; m++ {
		start := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
		_, err := services.Periods.Create(ctx, periods.CreatePeriodInput{
			Name:       start.Format("2006-01"),
			FiscalYear: year,
			StartDate:  start,
			EndDate:    start.AddDate(0, 1, -1),
		})
		if errors.Is(err, shared.ErrPeriodOverlap) {
			continue
		}
		if err != nil {
			return fmt.Errorf("period %s: %w", start.Format("2006-01"), err)
		}
	}
	return nil
}
