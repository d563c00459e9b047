package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
	internalShared "github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// Invalidator drops cached ledger reports after postings commit.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Recorder counts posting outcomes.
type Recorder interface {
	JournalPosted(source string)
	JournalRejected(reason string)
}

type Service struct {
	repo    Repository
	audit   internalShared.AuditPort
	cache   Invalidator
	metrics Recorder
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(repo Repository, audit internalShared.AuditPort, logger *slog.Logger) *Service {
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

// WithCache registers the report cache bumped after every posting.
func (s *Service) WithCache(cache Invalidator) {
	s.cache = cache
}

// WithMetrics registers posting counters.
func (s *Service) WithMetrics(metrics Recorder) {
	s.metrics = metrics
}

// Validate is the stateless line check exposed to callers.
func (s *Service) Validate(lines []LineInput) ValidationResult {
	return Validate(lines)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]JournalEntry, error) {
	return s.repo.ListJournals(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (JournalEntry, error) {
	return s.repo.GetJournal(ctx, id)
}

// Create stores an entry as draft, or posts it in the same transaction when
// in.Post is set.
func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = s.CreateTx(ctx, tx, in)
		return err
	})
	if err != nil {
		s.rejected(err)
		return CreateResult{}, err
	}
	action := "journal.create"
	if entry.IsPosted {
		action = "journal.post"
		s.afterPost(ctx, entry)
	}
	internalShared.RecordAudit(ctx, s.audit, s.logger, internalShared.AuditLog{
		ActorID:  in.ActorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: strconv.FormatInt(entry.ID, 10),
		Meta: map[string]any{
			"entry_no":      entry.EntryNo,
			"source_module": string(entry.SourceModule),
			"source_id":     entry.SourceID.String(),
		},
		At: s.now(),
	})
	return CreateResult{JournalID: entry.ID, EntryNo: entry.EntryNo, IsPosted: entry.IsPosted}, nil
}

// CreateTx runs the create (and optional post) inside the caller's
// transaction so other modules can compose it into one unit of work.
func (s *Service) CreateTx(ctx context.Context, tx TxRepository, in CreateInput) (JournalEntry, error) {
	if in.SourceModule == "" {
		in.SourceModule = shared.SourceManualJournal
	}
	var problems []string
	if in.EntryDate.IsZero() {
		problems = append(problems, "entry date is required")
	}
	if !in.SourceModule.Valid() {
		problems = append(problems, fmt.Sprintf("unknown source module %q", in.SourceModule))
	}
	if res := Validate(in.Lines); !res.IsValid {
		problems = append(problems, res.Errors...)
	}
	if len(problems) > 0 {
		return JournalEntry{}, &internalShared.ValidationError{Errors: problems}
	}
	date := internalShared.DateOf(in.EntryDate)
	lines, err := closeResidual(ctx, tx, in.Lines)
	if err != nil {
		return JournalEntry{}, err
	}
	if _, err := accounts.EnsurePostable(ctx, tx, accountIDs(lines)); err != nil {
		return JournalEntry{}, err
	}
	if in.Post {
		if _, err := periods.EnsureOpen(ctx, tx, date); err != nil {
			return JournalEntry{}, err
		}
	}
	entryNo, err := tx.NextSequence(ctx, SequenceJournalEntry)
	if err != nil {
		return JournalEntry{}, err
	}
	sourceID := in.SourceID
	if sourceID == uuid.Nil {
		sourceID = uuid.New()
	}
	now := s.now()
	entry := JournalEntry{
		EntryNo:      entryNo,
		EntryDate:    date,
		Description:  strings.TrimSpace(in.Description),
		SourceModule: in.SourceModule,
		SourceID:     sourceID,
		ReversalOfID: in.ReversalOfID,
		CreatedBy:    in.ActorID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Lines:        inputToLines(lines),
	}
	if in.Post {
		entry.IsPosted = true
		entry.PostedAt = &now
		if in.ActorID != 0 {
			actor := in.ActorID
			entry.PostedBy = &actor
		}
	}
	inserted, err := tx.InsertJournalEntry(ctx, entry)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := tx.LinkSource(ctx, inserted.SourceModule, inserted.SourceID, inserted.ID); err != nil {
		return JournalEntry{}, err
	}
	return inserted, nil
}

// Post flips a draft to posted after re-checking the period at call time.
func (s *Service) Post(ctx context.Context, id, actorID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		entry, err = s.PostTx(ctx, tx, id, actorID)
		return err
	})
	if err != nil {
		s.rejected(err)
		return JournalEntry{}, err
	}
	s.afterPost(ctx, entry)
	internalShared.RecordAudit(ctx, s.audit, s.logger, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   "journal.post",
		Entity:   "journal_entry",
		EntityID: strconv.FormatInt(entry.ID, 10),
		Meta:     map[string]any{"entry_no": entry.EntryNo},
		At:       s.now(),
	})
	return entry, nil
}

// PostTx is Post inside the caller's transaction.
func (s *Service) PostTx(ctx context.Context, tx TxRepository, id, actorID int64) (JournalEntry, error) {
	entry, err := tx.GetJournalForUpdate(ctx, id)
	if err != nil {
		return JournalEntry{}, err
	}
	if entry.IsPosted {
		return JournalEntry{}, &internalShared.AlreadyPostedError{Kind: "journal entry", Ref: strconv.FormatInt(entry.EntryNo, 10)}
	}
	if _, err := periods.EnsureOpen(ctx, tx, entry.EntryDate); err != nil {
		return JournalEntry{}, err
	}
	inputs := linesToInput(entry.Lines)
	if res := Validate(inputs); !res.IsValid {
		return JournalEntry{}, &internalShared.ValidationError{Errors: res.Errors}
	}
	if _, err := accounts.EnsurePostable(ctx, tx, accountIDs(inputs)); err != nil {
		return JournalEntry{}, err
	}
	now := s.now()
	if err := tx.MarkJournalPosted(ctx, entry.ID, actorID, now); err != nil {
		return JournalEntry{}, err
	}
	entry.IsPosted = true
	entry.PostedAt = &now
	if actorID != 0 {
		entry.PostedBy = &actorID
	}
	return entry, nil
}

// UpdateDraft replaces header and lines of an unposted entry.
func (s *Service) UpdateDraft(ctx context.Context, id int64, in UpdateInput) (JournalEntry, error) {
	var updated JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetJournalForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if entry.IsPosted {
			return fmt.Errorf("journal entry %d: %w", entry.EntryNo, internalShared.ErrPostedImmutable)
		}
		var problems []string
		if in.EntryDate.IsZero() {
			problems = append(problems, "entry date is required")
		}
		if res := Validate(in.Lines); !res.IsValid {
			problems = append(problems, res.Errors...)
		}
		if len(problems) > 0 {
			return &internalShared.ValidationError{Errors: problems}
		}
		lines, err := closeResidual(ctx, tx, in.Lines)
		if err != nil {
			return err
		}
		if _, err := accounts.EnsurePostable(ctx, tx, accountIDs(lines)); err != nil {
			return err
		}
		entry.EntryDate = internalShared.DateOf(in.EntryDate)
		entry.Description = strings.TrimSpace(in.Description)
		entry.Lines = inputToLines(lines)
		entry.UpdatedAt = s.now()
		if err := tx.ReplaceJournalDraft(ctx, entry); err != nil {
			return err
		}
		updated = entry
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return updated, nil
}

// DeleteDraft removes an unposted entry. Its number is not reused.
func (s *Service) DeleteDraft(ctx context.Context, id, actorID int64) error {
	var entryNo int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetJournalForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if entry.IsPosted {
			return fmt.Errorf("journal entry %d: %w", entry.EntryNo, internalShared.ErrPostedImmutable)
		}
		entryNo = entry.EntryNo
		return tx.DeleteJournalDraft(ctx, id)
	})
	if err != nil {
		return err
	}
	internalShared.RecordAudit(ctx, s.audit, s.logger, internalShared.AuditLog{
		ActorID:  actorID,
		Action:   "journal.delete_draft",
		Entity:   "journal_entry",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"entry_no": entryNo},
		At:       s.now(),
	})
	return nil
}

// Reverse posts the mirror image of a posted entry and links both. An entry
// can be reversed once.
func (s *Service) Reverse(ctx context.Context, in ReverseInput) (JournalEntry, error) {
	if in.EntryID == 0 {
		return JournalEntry{}, &internalShared.ValidationError{Errors: []string{"entry id required"}}
	}
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetJournalForUpdate(ctx, in.EntryID)
		if err != nil {
			return err
		}
		if !original.IsPosted {
			return fmt.Errorf("journal entry %d is a draft: %w", original.EntryNo, internalShared.ErrInvalidStatus)
		}
		if original.IsReversed {
			return &internalShared.AlreadyReversedError{EntryNo: original.EntryNo}
		}
		date := internalShared.DateOf(s.now())
		if in.Date != nil {
			date = internalShared.DateOf(*in.Date)
		}
		originalID := original.ID
		reversal, err = s.CreateTx(ctx, tx, CreateInput{
			EntryDate:    date,
			Description:  defaultReversalDescription(in.Description, original.EntryNo),
			SourceModule: shared.SourceReversal,
			SourceID:     uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("REVERSAL:%d", original.ID))),
			Post:         true,
			ActorID:      in.ActorID,
			ReversalOfID: &originalID,
			Lines:        reverseLines(original.Lines),
		})
		if err != nil {
			if errors.Is(err, internalShared.ErrSourceAlreadyLinked) {
				return &internalShared.AlreadyReversedError{EntryNo: original.EntryNo}
			}
			return err
		}
		return tx.MarkJournalReversed(ctx, original.ID, reversal.ID)
	})
	if err != nil {
		s.rejected(err)
		return JournalEntry{}, err
	}
	s.afterPost(ctx, reversal)
	internalShared.RecordAudit(ctx, s.audit, s.logger, internalShared.AuditLog{
		ActorID:  in.ActorID,
		Action:   "journal.reverse",
		Entity:   "journal_entry",
		EntityID: strconv.FormatInt(in.EntryID, 10),
		Meta: map[string]any{
			"reversal_id":       reversal.ID,
			"reversal_entry_no": reversal.EntryNo,
		},
		At: s.now(),
	})
	return reversal, nil
}

// AfterCommit runs the post-commit side effects for entries posted through
// CreateTx or PostTx by another module.
func (s *Service) AfterCommit(ctx context.Context, entry JournalEntry) {
	if entry.IsPosted {
		s.afterPost(ctx, entry)
	}
}

func (s *Service) afterPost(ctx context.Context, entry JournalEntry) {
	if s.metrics != nil {
		s.metrics.JournalPosted(string(entry.SourceModule))
	}
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.WarnContext(ctx, "ledger cache bump failed", slog.Int64("entry_no", entry.EntryNo), slog.Any("error", err))
		}
	}
}

func (s *Service) rejected(err error) {
	if s.metrics == nil {
		return
	}
	reason := "other"
	switch {
	case errors.Is(err, internalShared.ErrValidation):
		reason = "validation"
	case errors.Is(err, internalShared.ErrPeriodClosed):
		reason = "period_closed"
	case errors.Is(err, internalShared.ErrNoPeriodDefined):
		reason = "no_period"
	case errors.Is(err, internalShared.ErrInvalidAccount):
		reason = "invalid_account"
	case errors.Is(err, internalShared.ErrAlreadyPosted), errors.Is(err, internalShared.ErrAlreadyReversed):
		reason = "duplicate"
	}
	s.metrics.JournalRejected(reason)
}

func defaultReversalDescription(desc string, entryNo int64) string {
	if strings.TrimSpace(desc) != "" {
		return desc
	}
	return fmt.Sprintf("Reversal of JE %d", entryNo)
}
