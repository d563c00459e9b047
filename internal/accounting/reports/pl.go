package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
)

// ProfitAndLossAccount represents a revenue, cost or expense account summary.
type ProfitAndLossAccount struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// ProfitAndLossSection groups accounts by nature.
type ProfitAndLossSection struct {
	Label    string                 `json:"label"`
	Accounts []ProfitAndLossAccount `json:"accounts"`
	Total    decimal.Decimal        `json:"total"`
}

// ProfitAndLoss contains the structured output for the report.
type ProfitAndLoss struct {
	Revenue     ProfitAndLossSection `json:"revenue"`
	COGS        ProfitAndLossSection `json:"cogs"`
	Expense     ProfitAndLossSection `json:"expense"`
	GrossProfit decimal.Decimal      `json:"gross_profit"`
	NetIncome   decimal.Decimal      `json:"net_income"`
}

// BuildProfitAndLoss aggregates period movements into revenue, COGS and
// expense sections. Opening balances are ignored.
func BuildProfitAndLoss(balances []AccountBalance) ProfitAndLoss {
	revenue := ProfitAndLossSection{Label: "Revenue"}
	cogs := ProfitAndLossSection{Label: "Cost of Goods Sold"}
	expense := ProfitAndLossSection{Label: "Expense"}

	for _, acc := range balances {
		row := ProfitAndLossAccount{Code: acc.Code, Name: acc.Name, Amount: acc.Type.Signed(acc.Debit, acc.Credit)}
		switch acc.Type {
		case accounts.AccountTypeRevenue:
			revenue.Accounts = append(revenue.Accounts, row)
			revenue.Total = revenue.Total.Add(row.Amount)
		case accounts.AccountTypeCOGS:
			cogs.Accounts = append(cogs.Accounts, row)
			cogs.Total = cogs.Total.Add(row.Amount)
		case accounts.AccountTypeExpense:
			expense.Accounts = append(expense.Accounts, row)
			expense.Total = expense.Total.Add(row.Amount)
		}
	}

	for _, sec := range []*ProfitAndLossSection{&revenue, &cogs, &expense} {
		rows := sec.Accounts
		sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	}

	gross := revenue.Total.Sub(cogs.Total)
	return ProfitAndLoss{
		Revenue:     revenue,
		COGS:        cogs,
		Expense:     expense,
		GrossProfit: gross,
		NetIncome:   gross.Sub(expense.Total),
	}
}
