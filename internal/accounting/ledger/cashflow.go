package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/pharma-ledger/internal/shared"
)

type cashContext struct {
	chart     map[int64]accounts.Account
	cash      map[int64]struct{}
	investing map[int64]struct{}
	financing map[int64]struct{}
	opening   decimal.Decimal
	lines     []PostedLine
}

func (c cashContext) activity(acc accounts.Account) string {
	if _, ok := c.financing[acc.ID]; ok || acc.Type == accounts.AccountTypeEquity {
		return reports.ActivityFinancing
	}
	if _, ok := c.investing[acc.ID]; ok {
		return reports.ActivityInvesting
	}
	return reports.ActivityOperating
}

func (c cashContext) isCash(id int64) bool {
	_, ok := c.cash[id]
	return ok
}

func (s *Service) loadCashContext(ctx context.Context, from, to time.Time) (cashContext, error) {
	chart, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return cashContext{}, err
	}
	cc := cashContext{chart: make(map[int64]accounts.Account, len(chart)), opening: decimal.Zero}
	for _, a := range chart {
		cc.chart[a.ID] = a
	}
	if cc.cash, err = mappings.AccountSet(ctx, s.repo, mappings.PrefixCash); err != nil {
		return cashContext{}, err
	}
	if len(cc.cash) == 0 {
		return cashContext{}, fmt.Errorf("%s*: %w", mappings.PrefixCash, internalShared.ErrMappingNotFound)
	}
	if cc.investing, err = mappings.AccountSet(ctx, s.repo, mappings.PrefixInvesting); err != nil {
		return cashContext{}, err
	}
	if cc.financing, err = mappings.AccountSet(ctx, s.repo, mappings.PrefixFinancing); err != nil {
		return cashContext{}, err
	}
	lines, err := s.repo.PostedLines(ctx, LineFilter{To: &to})
	if err != nil {
		return cashContext{}, err
	}
	SortLines(lines)
	for _, l := range lines {
		if l.EntryDate.Before(from) {
			if cc.isCash(l.AccountID) {
				cc.opening = cc.opening.Add(l.Debit).Sub(l.Credit)
			}
			continue
		}
		cc.lines = append(cc.lines, l)
	}
	return cc, nil
}

// CashFlowDirect classifies every cash movement in [from, to] by the
// accounts on the other side of the entry.
func (s *Service) CashFlowDirect(ctx context.Context, from, to time.Time) (CashFlowStatement, error) {
	from, to = internalShared.DateOf(from), internalShared.DateOf(to)
	if err := checkRange(from, to); err != nil {
		return CashFlowStatement{}, err
	}
	return cached(ctx, s.cache, "cf-direct", []string{dateToken(&from), dateToken(&to)}, func(ctx context.Context) (CashFlowStatement, error) {
		cc, err := s.loadCashContext(ctx, from, to)
		if err != nil {
			return CashFlowStatement{}, err
		}
		return CashFlowStatement{From: from, To: to, CashFlow: directFlow(cc)}, nil
	})
}

func directFlow(cc cashContext) reports.CashFlow {
	var entries []reports.CashFlowEntry
	for _, group := range byEntry(cc.lines) {
		touchesCash := false
		for _, l := range group {
			if cc.isCash(l.AccountID) {
				touchesCash = true
				break
			}
		}
		if !touchesCash {
			continue
		}
		for _, l := range group {
			if cc.isCash(l.AccountID) {
				continue
			}
			acc := cc.chart[l.AccountID]
			entries = append(entries, reports.CashFlowEntry{
				Activity: cc.activity(acc),
				Code:     acc.Code,
				Name:     acc.Name,
				Amount:   l.Credit.Sub(l.Debit),
			})
		}
	}
	return reports.BuildCashFlow("direct", entries, cc.opening)
}

// CashFlowIndirect starts from net income and adds the change of every
// non-cash balance sheet account. Its net change reconciles with the
// direct method over the same postings.
func (s *Service) CashFlowIndirect(ctx context.Context, from, to time.Time) (CashFlowStatement, error) {
	from, to = internalShared.DateOf(from), internalShared.DateOf(to)
	if err := checkRange(from, to); err != nil {
		return CashFlowStatement{}, err
	}
	return cached(ctx, s.cache, "cf-indirect", []string{dateToken(&from), dateToken(&to)}, func(ctx context.Context) (CashFlowStatement, error) {
		cc, err := s.loadCashContext(ctx, from, to)
		if err != nil {
			return CashFlowStatement{}, err
		}
		pl, err := s.profitAndLoss(ctx, from, to)
		if err != nil {
			return CashFlowStatement{}, err
		}
		direct := directFlow(cc)
		flow := indirectFlow(cc, pl.NetIncome)
		flow.DirectNetCheck = direct.NetChange
		flow.Reconciles = shared.Balanced(flow.NetChange, direct.NetChange)
		if !flow.Reconciles {
			s.logger.WarnContext(ctx, "cash flow methods disagree",
				"from", from.Format(internalShared.DateLayout),
				"to", to.Format(internalShared.DateLayout),
				"indirect", flow.NetChange.String(),
				"direct", direct.NetChange.String())
		}
		return CashFlowStatement{From: from, To: to, CashFlow: flow}, nil
	})
}

func indirectFlow(cc cashContext, netIncome decimal.Decimal) reports.CashFlow {
	entries := []reports.CashFlowEntry{{
		Activity: reports.ActivityOperating,
		Code:     "NET-INCOME",
		Name:     "Net income",
		Amount:   netIncome,
	}}
	for _, l := range cc.lines {
		if l.SourceModule == shared.SourceYearEndClosing || cc.isCash(l.AccountID) {
			continue
		}
		acc := cc.chart[l.AccountID]
		if acc.Type.Temporary() {
			continue
		}
		entries = append(entries, reports.CashFlowEntry{
			Activity: cc.activity(acc),
			Code:     acc.Code,
			Name:     acc.Name,
			Amount:   l.Credit.Sub(l.Debit),
		})
	}
	flow := reports.BuildCashFlow("indirect", entries, cc.opening)
	flow.NetIncome = netIncome
	return flow
}
