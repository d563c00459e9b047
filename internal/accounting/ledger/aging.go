package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/reports"
	internalShared "github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// SupplierAging ages open payables per supplier. Credits on the payables
// control account are invoices due on their DueDate (entry date when
// missing); debits are payments applied to the oldest due invoice first.
func (s *Service) SupplierAging(ctx context.Context, asOf time.Time) (SupplierAging, error) {
	asOf = internalShared.DateOf(asOf)
	return cached(ctx, s.cache, "ap-aging", []string{dateToken(&asOf)}, func(ctx context.Context) (SupplierAging, error) {
		control, err := mappings.Resolve(ctx, s.repo, mappings.KeyPayablesControl)
		if err != nil {
			return SupplierAging{}, err
		}
		lines, err := s.repo.PostedLines(ctx, LineFilter{AccountIDs: []int64{control}, To: &asOf})
		if err != nil {
			return SupplierAging{}, err
		}
		SortLines(lines)
		items, advances := openItems(lines)
		rows := reports.BuildAging(asOf, items, advances)
		out := SupplierAging{
			AsOf:    asOf,
			Rows:    rows,
			Totals:  make(map[string]decimal.Decimal, len(reports.AgingBuckets)),
			Total:   decimal.Zero,
			Buckets: reports.AgingBuckets,
		}
		for _, b := range reports.AgingBuckets {
			out.Totals[b] = decimal.Zero
		}
		for _, row := range rows {
			for b, v := range row.Buckets {
				out.Totals[b] = out.Totals[b].Add(v)
			}
			out.Total = out.Total.Add(row.Total)
		}
		return out, nil
	})
}

func openItems(lines []PostedLine) ([]reports.OpenItem, map[int64]decimal.Decimal) {
	invoices := make(map[int64][]reports.OpenItem)
	payments := make(map[int64]decimal.Decimal)
	for _, l := range lines {
		if l.PartnerID == nil {
			continue
		}
		partner := *l.PartnerID
		if l.Credit.IsPositive() {
			due := l.EntryDate
			if l.DueDate != nil {
				due = internalShared.DateOf(*l.DueDate)
			}
			invoices[partner] = append(invoices[partner], reports.OpenItem{
				PartnerID: partner,
				EntryNo:   l.EntryNo,
				DueDate:   due,
				Amount:    l.Credit,
			})
		}
		if l.Debit.IsPositive() {
			payments[partner] = payments[partner].Add(l.Debit)
		}
	}

	var open []reports.OpenItem
	advances := make(map[int64]decimal.Decimal)
	partners := make([]int64, 0, len(invoices)+len(payments))
	for p := range invoices {
		partners = append(partners, p)
	}
	for p := range payments {
		if _, ok := invoices[p]; !ok {
			partners = append(partners, p)
		}
	}
	sort.Slice(partners, func(i, j int) bool { return partners[i] < partners[j] })

	for _, p := range partners {
		list := invoices[p]
		sort.SliceStable(list, func(i, j int) bool {
			if !list[i].DueDate.Equal(list[j].DueDate) {
				return list[i].DueDate.Before(list[j].DueDate)
			}
			return list[i].EntryNo < list[j].EntryNo
		})
		paid := payments[p]
		for _, inv := range list {
			applied := decimal.Min(paid, inv.Amount)
			paid = paid.Sub(applied)
			inv.Amount = inv.Amount.Sub(applied)
			if inv.Amount.IsPositive() {
				open = append(open, inv)
			}
		}
		if paid.IsPositive() {
			advances[p] = paid
		}
	}
	return open, advances
}
