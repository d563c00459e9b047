package closing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/pharma-ledger/internal/shared"
)

type Service struct {
	repo     Repository
	journals *journals.Service
	periods  *periods.Service
	locker   *internalShared.Locker
	audit    internalShared.AuditPort
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, journalSvc *journals.Service, periodSvc *periods.Service, locker *internalShared.Locker, audit internalShared.AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		journals: journalSvc,
		periods:  periodSvc,
		locker:   locker,
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PerformYearEndClosing zeroes every revenue, expense and COGS account of the
// fiscal year into retained earnings and closes all of the year's periods in
// one transaction.
func (s *Service) PerformYearEndClosing(ctx context.Context, in Input) (Result, error) {
	if !in.Actor.IsAdmin() {
		return Result{}, fmt.Errorf("year-end closing: %w", internalShared.ErrForbidden)
	}
	if in.FiscalYear <= 0 {
		return Result{}, &internalShared.ValidationError{Errors: []string{"fiscal year is required"}}
	}
	release, err := s.locker.Acquire(ctx, internalShared.YearEndLockKey(in.FiscalYear))
	if err != nil {
		return Result{}, err
	}
	defer release(context.WithoutCancel(ctx))

	var (
		result Result
		entry  journals.JournalEntry
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		list, err := tx.ListPeriodsByYearForUpdate(ctx, in.FiscalYear)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return &internalShared.NoPeriodDefinedError{FiscalYear: in.FiscalYear}
		}
		start, end := list[0].StartDate, list[0].EndDate
		for _, p := range list {
			if p.IsClosed {
				return &internalShared.AlreadyClosedError{Period: p.Name, FiscalYear: in.FiscalYear}
			}
			if p.StartDate.Before(start) {
				start = p.StartDate
			}
			if p.EndDate.After(end) {
				end = p.EndDate
			}
		}
		closingDate := end
		if in.ClosingDate != nil {
			closingDate = internalShared.DateOf(*in.ClosingDate)
		}
		if closingDate.Before(start) || closingDate.After(end) {
			return fmt.Errorf("closing date %s outside fiscal year %d (%s to %s): %w",
				closingDate.Format(internalShared.DateLayout), in.FiscalYear,
				start.Format(internalShared.DateLayout), end.Format(internalShared.DateLayout),
				internalShared.ErrDateOutOfRange)
		}

		lines, netIncome, priorRuns, err := s.closingLines(ctx, tx, start, end)
		if err != nil {
			return err
		}
		result = Result{FiscalYear: in.FiscalYear, ClosingDate: closingDate, NetIncome: netIncome}

		if len(lines) > 0 {
			if res := journals.Validate(lines); !res.IsValid {
				return &internalShared.UnbalancedClosingEntryError{FiscalYear: in.FiscalYear, Errors: res.Errors}
			}
			entry, err = s.journals.CreateTx(ctx, tx, journals.CreateInput{
				EntryDate:    closingDate,
				Description:  fmt.Sprintf("Year-end closing %d", in.FiscalYear),
				SourceModule: shared.SourceYearEndClosing,
				SourceID:     SourceID(in.FiscalYear, priorRuns),
				Post:         true,
				ActorID:      in.Actor.ID,
				Lines:        lines,
			})
			if err != nil {
				return err
			}
			result.JournalEntryID = &entry.ID
			result.JournalEntryNo = &entry.EntryNo
		}

		closed, err := s.periods.CloseFiscalYearTx(ctx, tx, in.FiscalYear, in.Actor.ID)
		if err != nil {
			return err
		}
		result.ClosedPeriods = closed
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "year-end closing failed", slog.Int("fiscal_year", in.FiscalYear), slog.Any("error", err))
		return Result{}, err
	}

	s.journals.AfterCommit(ctx, entry)
	meta := map[string]any{
		"net_income":     result.NetIncome.StringFixed(2),
		"closed_periods": len(result.ClosedPeriods),
	}
	if result.JournalEntryNo != nil {
		meta["entry_no"] = *result.JournalEntryNo
	}
	internalShared.RecordAudit(ctx, s.audit, s.logger, internalShared.AuditLog{
		ActorID:  in.Actor.ID,
		Action:   "fiscal_year.close",
		Entity:   "fiscal_year",
		EntityID: fmt.Sprintf("%d", in.FiscalYear),
		Meta:     meta,
		At:       s.now(),
	})
	s.logger.InfoContext(ctx, "fiscal year closed",
		slog.Int("fiscal_year", in.FiscalYear),
		slog.String("net_income", result.NetIncome.StringFixed(2)))
	return result, nil
}

// closingLines builds one line per temporary account with a balance over the
// window, plus the retained earnings line that absorbs the net. priorRuns
// counts closing entries already inside the window, left by a close that was
// reopened afterwards.
func (s *Service) closingLines(ctx context.Context, tx TxRepository, start, end time.Time) ([]journals.LineInput, decimal.Decimal, int, error) {
	chart, err := tx.ListAccounts(ctx)
	if err != nil {
		return nil, decimal.Zero, 0, err
	}
	posted, err := tx.PostedLines(ctx, ledger.LineFilter{From: &start, To: &end})
	if err != nil {
		return nil, decimal.Zero, 0, err
	}
	runs := make(map[int64]struct{})
	for _, l := range posted {
		if l.SourceModule == shared.SourceYearEndClosing {
			runs[l.EntryID] = struct{}{}
		}
	}

	var lines []journals.LineInput
	net := decimal.Zero
	for _, bal := range ledger.Replay(chart, posted, nil) {
		if !bal.Type.Temporary() {
			continue
		}
		movement := bal.Debit.Sub(bal.Credit)
		if movement.IsZero() {
			continue
		}
		line := journals.LineInput{
			AccountID:   bal.AccountID,
			Description: "Close " + bal.Code,
			Debit:       decimal.Zero,
			Credit:      decimal.Zero,
		}
		if movement.IsPositive() {
			line.Credit = movement
		} else {
			line.Debit = movement.Neg()
		}
		lines = append(lines, line)
		net = net.Add(movement)
	}
	if len(lines) == 0 {
		return nil, decimal.Zero, len(runs), nil
	}
	if !net.IsZero() {
		retained, err := mappings.Resolve(ctx, tx, mappings.KeyRetainedEarnings)
		if err != nil {
			return nil, decimal.Zero, 0, fmt.Errorf("%s: %w", mappings.KeyRetainedEarnings, err)
		}
		line := journals.LineInput{
			AccountID:   retained,
			Description: "Net result to retained earnings",
			Debit:       decimal.Zero,
			Credit:      decimal.Zero,
		}
		if net.IsNegative() {
			line.Credit = net.Neg()
		} else {
			line.Debit = net
		}
		lines = append(lines, line)
	}
	return lines, net.Neg(), len(runs), nil
}

// SourceID is the idempotency link of the n-th closing entry of a fiscal year.
func SourceID(fiscalYear, priorRuns int) uuid.UUID {
	key := fmt.Sprintf("YEAR_END:%d", fiscalYear)
	if priorRuns > 0 {
		key = fmt.Sprintf("%s:%d", key, priorRuns)
	}
	return uuid.NewSHA1(uuid.Nil, []byte(key))
}
