package periods

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

type Service struct {
	repo   Repository
	audit  shared.AuditPort
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, audit shared.AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context) ([]Period, error) {
	return s.repo.ListPeriods(ctx)
}

func (s *Service) Events(ctx context.Context, periodID int64) ([]Event, error) {
	return s.repo.ListPeriodEvents(ctx, periodID)
}

// Create stores a period after checking it overlaps no existing window.
func (s *Service) Create(ctx context.Context, in CreatePeriodInput) (Period, error) {
	in.StartDate = shared.DateOf(in.StartDate)
	in.EndDate = shared.DateOf(in.EndDate)
	if err := in.Validate(); err != nil {
		return Period{}, err
	}
	candidate := Period{
		Name:       strings.TrimSpace(in.Name),
		FiscalYear: in.FiscalYear,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
	}
	var created Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.ListPeriodsForUpdate(ctx)
		if err != nil {
			return err
		}
		for _, p := range existing {
			if p.Overlaps(candidate) {
				return fmt.Errorf("%s overlaps %s: %w", candidate.Name, p.Name, shared.ErrPeriodOverlap)
			}
		}
		created, err = tx.InsertPeriod(ctx, candidate)
		return err
	})
	if err != nil {
		return Period{}, err
	}
	return created, nil
}

// IsOpen reports whether postings dated date are currently accepted.
// A date without a period is reported as NoPeriodDefinedError, never as open.
func (s *Service) IsOpen(ctx context.Context, date time.Time) (bool, error) {
	date = shared.DateOf(date)
	p, err := s.repo.PeriodForDate(ctx, date)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, &shared.NoPeriodDefinedError{Date: date}
		}
		return false, err
	}
	return !p.IsClosed, nil
}

// EnsureOpen is the committed-state form of the posting gate.
func (s *Service) EnsureOpen(ctx context.Context, date time.Time) error {
	open, err := s.IsOpen(ctx, date)
	if err != nil {
		return err
	}
	if !open {
		p, err := s.repo.PeriodForDate(ctx, shared.DateOf(date))
		if err != nil {
			return err
		}
		return &shared.PeriodClosedError{Date: shared.DateOf(date), Period: p.Name}
	}
	return nil
}

// Close locks a period. Drafts dated inside it are never posted here: they
// block the close unless ExcludeDrafts is set, in which case they are flagged.
func (s *Service) Close(ctx context.Context, in CloseInput) (CloseResult, error) {
	if !in.Actor.IsAdmin() {
		return CloseResult{}, fmt.Errorf("close period: %w", shared.ErrForbidden)
	}
	var result CloseResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPeriodForUpdate(ctx, in.PeriodID)
		if err != nil {
			return err
		}
		closed, flagged, err := s.closeTx(ctx, tx, p, in.Actor.ID, in.ExcludeDrafts)
		if err != nil {
			return err
		}
		result = CloseResult{Period: closed, Flagged: flagged}
		return nil
	})
	if err != nil {
		return CloseResult{}, err
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  in.Actor.ID,
		Action:   "period.close",
		Entity:   "accounting_period",
		EntityID: fmt.Sprintf("%d", in.PeriodID),
		Meta:     map[string]any{"flagged_drafts": result.Flagged},
		At:       s.now(),
	})
	return result, nil
}

// CloseFiscalYearTx closes every period of fiscalYear inside the caller's transaction.
func (s *Service) CloseFiscalYearTx(ctx context.Context, tx TxRepository, fiscalYear int, actorID int64) ([]Period, error) {
	list, err := tx.ListPeriodsByYearForUpdate(ctx, fiscalYear)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, &shared.NoPeriodDefinedError{FiscalYear: fiscalYear}
	}
	for i := range list {
		closed, _, err := s.closeTx(ctx, tx, list[i], actorID, false)
		if err != nil {
			return nil, err
		}
		list[i] = closed
	}
	return list, nil
}

func (s *Service) closeTx(ctx context.Context, tx TxRepository, p Period, actorID int64, excludeDrafts bool) (Period, []int64, error) {
	if err := shared.ValidatePeriodTransition(p.IsClosed, shared.PeriodActionClose); err != nil {
		return Period{}, nil, &shared.AlreadyClosedError{Period: p.Name}
	}
	drafts, err := tx.DraftEntryNosBetween(ctx, p.StartDate, p.EndDate)
	if err != nil {
		return Period{}, nil, err
	}
	if len(drafts) > 0 && !excludeDrafts {
		return Period{}, nil, &shared.DraftEntriesPendingError{Period: p.Name, EntryNos: drafts}
	}
	now := s.now()
	p.IsClosed = true
	p.ClosedAt = &now
	if actorID != 0 {
		p.ClosedBy = &actorID
	}
	if err := tx.UpdatePeriodLock(ctx, p); err != nil {
		return Period{}, nil, err
	}
	reason := ""
	if len(drafts) > 0 {
		reason = fmt.Sprintf("closed with %d draft entries flagged", len(drafts))
	}
	if err := tx.InsertPeriodEvent(ctx, Event{PeriodID: p.ID, Action: shared.PeriodActionClose, Reason: reason, ActorID: actorID, At: now}); err != nil {
		return Period{}, nil, err
	}
	return p, drafts, nil
}

// Reopen unlocks a closed period and records why.
func (s *Service) Reopen(ctx context.Context, in ReopenInput) (Period, error) {
	if !in.Actor.IsAdmin() {
		return Period{}, fmt.Errorf("reopen period: %w", shared.ErrForbidden)
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return Period{}, &shared.ValidationError{Errors: []string{"reopen reason is required"}}
	}
	var reopened Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetPeriodForUpdate(ctx, in.PeriodID)
		if err != nil {
			return err
		}
		if err := shared.ValidatePeriodTransition(p.IsClosed, shared.PeriodActionReopen); err != nil {
			return fmt.Errorf("period %s is open: %w", p.Name, err)
		}
		p.IsClosed = false
		p.ClosedAt = nil
		p.ClosedBy = nil
		if err := tx.UpdatePeriodLock(ctx, p); err != nil {
			return err
		}
		if err := tx.InsertPeriodEvent(ctx, Event{PeriodID: p.ID, Action: shared.PeriodActionReopen, Reason: reason, ActorID: in.Actor.ID, At: s.now()}); err != nil {
			return err
		}
		reopened = p
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  in.Actor.ID,
		Action:   "period.reopen",
		Entity:   "accounting_period",
		EntityID: fmt.Sprintf("%d", reopened.ID),
		Meta:     map[string]any{"reason": reason},
		At:       s.now(),
	})
	return reopened, nil
}
