package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Cash flow activity classes.
const (
	ActivityOperating = "OPERATING"
	ActivityInvesting = "INVESTING"
	ActivityFinancing = "FINANCING"
)

// CashFlowLine is one contributing account within an activity.
type CashFlowLine struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// CashFlowSection totals one activity class.
type CashFlowSection struct {
	Activity string          `json:"activity"`
	Lines    []CashFlowLine  `json:"lines"`
	Total    decimal.Decimal `json:"total"`
}

// CashFlow is shared by the direct and indirect presentations.
type CashFlow struct {
	Method         string          `json:"method"`
	NetIncome      decimal.Decimal `json:"net_income"`
	Operating      CashFlowSection `json:"operating"`
	Investing      CashFlowSection `json:"investing"`
	Financing      CashFlowSection `json:"financing"`
	NetChange      decimal.Decimal `json:"net_change"`
	OpeningCash    decimal.Decimal `json:"opening_cash"`
	ClosingCash    decimal.Decimal `json:"closing_cash"`
	Reconciles     bool            `json:"reconciles"`
	DirectNetCheck decimal.Decimal `json:"direct_net_change"`
}

// CashFlowEntry is a classified contribution fed to BuildCashFlow.
type CashFlowEntry struct {
	Activity string
	Code     string
	Name     string
	Amount   decimal.Decimal
}

// BuildCashFlow folds classified contributions into sections, merging rows
// for the same account code.
func BuildCashFlow(method string, entries []CashFlowEntry, openingCash decimal.Decimal) CashFlow {
	sections := map[string]*CashFlowSection{
		ActivityOperating: {Activity: ActivityOperating},
		ActivityInvesting: {Activity: ActivityInvesting},
		ActivityFinancing: {Activity: ActivityFinancing},
	}
	index := make(map[string]int)
	for _, e := range entries {
		if e.Amount.IsZero() {
			continue
		}
		sec, ok := sections[e.Activity]
		if !ok {
			sec = sections[ActivityOperating]
		}
		key := sec.Activity + "|" + e.Code
		if i, seen := index[key]; seen {
			sec.Lines[i].Amount = sec.Lines[i].Amount.Add(e.Amount)
		} else {
			index[key] = len(sec.Lines)
			sec.Lines = append(sec.Lines, CashFlowLine{Code: e.Code, Name: e.Name, Amount: e.Amount})
		}
		sec.Total = sec.Total.Add(e.Amount)
	}
	for _, sec := range sections {
		lines := sec.Lines
		sort.Slice(lines, func(i, j int) bool { return lines[i].Code < lines[j].Code })
	}
	net := sections[ActivityOperating].Total.Add(sections[ActivityInvesting].Total).Add(sections[ActivityFinancing].Total)
	return CashFlow{
		Method:      method,
		Operating:   *sections[ActivityOperating],
		Investing:   *sections[ActivityInvesting],
		Financing:   *sections[ActivityFinancing],
		NetChange:   net,
		OpeningCash: openingCash,
		ClosingCash: openingCash.Add(net),
		Reconciles:  true,
	}
}
