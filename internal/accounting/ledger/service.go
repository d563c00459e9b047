package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/reports"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// Service replays posted lines into ledger reports.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
}

func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// GeneralLedger lists the posted activity of one account. Header accounts
// aggregate their descendants.
func (s *Service) GeneralLedger(ctx context.Context, q GLQuery) (GeneralLedgerResult, error) {
	if q.AccountID <= 0 {
		return GeneralLedgerResult{}, &internalShared.ValidationError{Errors: []string{"account_id is required"}}
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return GeneralLedgerResult{}, &internalShared.ValidationError{Errors: []string{"to must not be before from"}}
	}
	parts := []string{strconv.FormatInt(q.AccountID, 10), dateToken(q.From), dateToken(q.To), idToken(q.BranchID)}
	return cached(ctx, s.cache, "gl", parts, func(ctx context.Context) (GeneralLedgerResult, error) {
		return s.generalLedger(ctx, q)
	})
}

func (s *Service) generalLedger(ctx context.Context, q GLQuery) (GeneralLedgerResult, error) {
	chart, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return GeneralLedgerResult{}, err
	}
	acc, err := accounts.Find(chart, q.AccountID)
	if err != nil {
		return GeneralLedgerResult{}, err
	}
	ids := []int64{acc.ID}
	if acc.IsHeader {
		ids = accounts.Descendants(chart, acc.ID)
	}
	lines, err := s.repo.PostedLines(ctx, LineFilter{AccountIDs: ids, To: q.To, BranchID: q.BranchID})
	if err != nil {
		return GeneralLedgerResult{}, err
	}
	SortLines(lines)

	res := GeneralLedgerResult{
		Account:        acc,
		From:           q.From,
		To:             q.To,
		OpeningBalance: decimal.Zero,
		TotalDebits:    decimal.Zero,
		TotalCredits:   decimal.Zero,
		Transactions:   make([]GLTransaction, 0),
	}
	var inRange []PostedLine
	for _, l := range lines {
		if q.From != nil && l.EntryDate.Before(*q.From) {
			res.OpeningBalance = res.OpeningBalance.Add(acc.Type.Signed(l.Debit, l.Credit))
			continue
		}
		inRange = append(inRange, l)
	}
	running := res.OpeningBalance
	for _, l := range inRange {
		running = running.Add(acc.Type.Signed(l.Debit, l.Credit))
		desc := l.Description
		if desc == "" {
			desc = l.Memo
		}
		res.Transactions = append(res.Transactions, GLTransaction{
			EntryID:        l.EntryID,
			EntryNo:        l.EntryNo,
			EntryDate:      l.EntryDate,
			LineNo:         l.LineNo,
			AccountID:      l.AccountID,
			SourceModule:   l.SourceModule,
			Description:    desc,
			Debit:          l.Debit,
			Credit:         l.Credit,
			RunningBalance: running,
		})
		res.TotalDebits = res.TotalDebits.Add(l.Debit)
		res.TotalCredits = res.TotalCredits.Add(l.Credit)
	}
	res.ClosingBalance = running
	return res, nil
}

// TrialBalance returns every leaf account's cumulative position as of asOf.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (TrialBalanceResult, error) {
	asOf = internalShared.DateOf(asOf)
	return cached(ctx, s.cache, "tb", []string{dateToken(&asOf)}, func(ctx context.Context) (TrialBalanceResult, error) {
		return s.trialBalance(ctx, asOf)
	})
}

// VerifyTrialBalance recomputes the trial balance without the cache and
// runs the net-zero check.
func (s *Service) VerifyTrialBalance(ctx context.Context, asOf time.Time) (TrialBalanceResult, error) {
	tb, err := s.trialBalance(ctx, internalShared.DateOf(asOf))
	if err != nil {
		return TrialBalanceResult{}, err
	}
	if err := tb.Check(); err != nil {
		s.logger.ErrorContext(ctx, "trial balance out of balance",
			slog.String("as_of", tb.AsOf.Format(internalShared.DateLayout)),
			slog.String("net", tb.Net.String()))
		return tb, err
	}
	return tb, nil
}

func (s *Service) trialBalance(ctx context.Context, asOf time.Time) (TrialBalanceResult, error) {
	chart, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return TrialBalanceResult{}, err
	}
	lines, err := s.repo.PostedLines(ctx, LineFilter{To: &asOf})
	if err != nil {
		return TrialBalanceResult{}, err
	}
	balances := Replay(chart, lines, nil)
	res := TrialBalanceResult{
		AsOf:        asOf,
		Rows:        make([]TrialBalanceRow, 0, len(balances)),
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		Grouped:     reports.BuildTrialBalance(balances),
	}
	for _, b := range balances {
		res.Rows = append(res.Rows, TrialBalanceRow{
			AccountID: b.AccountID,
			Code:      b.Code,
			Name:      b.Name,
			Type:      b.Type,
			Debit:     b.Debit,
			Credit:    b.Credit,
			Balance:   b.Closing(),
		})
		res.TotalDebit = res.TotalDebit.Add(b.Debit)
		res.TotalCredit = res.TotalCredit.Add(b.Credit)
	}
	res.Net = res.TotalDebit.Sub(res.TotalCredit)
	return res, nil
}

// IncomeStatement reports revenue, COGS and expenses posted in [from, to].
// Year-end closing entries are left out so a closed year still shows its result.
func (s *Service) IncomeStatement(ctx context.Context, from, to time.Time) (IncomeStatement, error) {
	from, to = internalShared.DateOf(from), internalShared.DateOf(to)
	if err := checkRange(from, to); err != nil {
		return IncomeStatement{}, err
	}
	return cached(ctx, s.cache, "is", []string{dateToken(&from), dateToken(&to)}, func(ctx context.Context) (IncomeStatement, error) {
		pl, err := s.profitAndLoss(ctx, from, to)
		if err != nil {
			return IncomeStatement{}, err
		}
		return IncomeStatement{From: from, To: to, ProfitAndLoss: pl}, nil
	})
}

func (s *Service) profitAndLoss(ctx context.Context, from, to time.Time) (reports.ProfitAndLoss, error) {
	chart, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return reports.ProfitAndLoss{}, err
	}
	lines, err := s.repo.PostedLines(ctx, LineFilter{
		From:           &from,
		To:             &to,
		ExcludeSources: []shared.SourceModule{shared.SourceYearEndClosing},
	})
	if err != nil {
		return reports.ProfitAndLoss{}, err
	}
	return reports.BuildProfitAndLoss(Replay(chart, lines, nil)), nil
}

// BalanceSheet reports cumulative asset, liability and equity positions.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	asOf = internalShared.DateOf(asOf)
	return cached(ctx, s.cache, "bs", []string{dateToken(&asOf)}, func(ctx context.Context) (BalanceSheet, error) {
		chart, err := s.repo.ListAccounts(ctx)
		if err != nil {
			return BalanceSheet{}, err
		}
		lines, err := s.repo.PostedLines(ctx, LineFilter{To: &asOf})
		if err != nil {
			return BalanceSheet{}, err
		}
		return BalanceSheet{AsOf: asOf, BalanceSheet: reports.BuildBalanceSheet(Replay(chart, lines, nil))}, nil
	})
}

func checkRange(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return &internalShared.ValidationError{Errors: []string{"from and to are required"}}
	}
	if to.Before(from) {
		return &internalShared.ValidationError{Errors: []string{fmt.Sprintf("range %s..%s is inverted", from.Format(internalShared.DateLayout), to.Format(internalShared.DateLayout))}}
	}
	return nil
}
