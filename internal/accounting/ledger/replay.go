package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/reports"
)

// SortLines orders lines by entry date, entry number and line number.
func SortLines(lines []PostedLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if !a.EntryDate.Equal(b.EntryDate) {
			return a.EntryDate.Before(b.EntryDate)
		}
		if a.EntryNo != b.EntryNo {
			return a.EntryNo < b.EntryNo
		}
		return a.LineNo < b.LineNo
	})
}

// Replay folds lines into per-account balances for every leaf account.
// Lines dated before openingBefore count as opening; the rest as movement.
// A nil openingBefore puts everything into movement.
func Replay(chart []accounts.Account, lines []PostedLine, openingBefore *time.Time) []reports.AccountBalance {
	byID := make(map[int64]*reports.AccountBalance, len(chart))
	out := make([]*reports.AccountBalance, 0, len(chart))
	for _, acc := range chart {
		if acc.IsHeader {
			continue
		}
		bal := &reports.AccountBalance{
			AccountID: acc.ID,
			Code:      acc.Code,
			Name:      acc.Name,
			Type:      acc.Type,
			Opening:   decimal.Zero,
			Debit:     decimal.Zero,
			Credit:    decimal.Zero,
		}
		byID[acc.ID] = bal
		out = append(out, bal)
	}
	for _, l := range lines {
		bal, ok := byID[l.AccountID]
		if !ok {
			continue
		}
		if openingBefore != nil && l.EntryDate.Before(*openingBefore) {
			bal.Opening = bal.Opening.Add(l.Debit).Sub(l.Credit)
			continue
		}
		bal.Debit = bal.Debit.Add(l.Debit)
		bal.Credit = bal.Credit.Add(l.Credit)
	}
	result := make([]reports.AccountBalance, 0, len(out))
	for _, bal := range out {
		result = append(result, *bal)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result
}

// SignedSum totals lines in the normal direction of t.
func SignedSum(t accounts.AccountType, lines []PostedLine) decimal.Decimal {
	debit, credit := decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return t.Signed(debit, credit)
}

func byEntry(lines []PostedLine) [][]PostedLine {
	index := make(map[int64]int)
	var groups [][]PostedLine
	for _, l := range lines {
		i, ok := index[l.EntryID]
		if !ok {
			i = len(groups)
			index[l.EntryID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], l)
	}
	return groups
}
