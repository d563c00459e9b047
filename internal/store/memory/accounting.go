package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/periods"
	acctShared "github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// Accounts.

func (st *state) listAccounts() []accounts.Account {
	out := make([]accounts.Account, 0, len(st.accounts))
	for _, a := range st.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (s *Store) ListAccounts(_ context.Context) ([]accounts.Account, error) {
	var out []accounts.Account
	s.read(func(st *state) { out = st.listAccounts() })
	return out, nil
}

func (s *Store) GetAccount(_ context.Context, id int64) (accounts.Account, error) {
	var (
		acc accounts.Account
		ok  bool
	)
	s.read(func(st *state) { acc, ok = st.accounts[id] })
	if !ok {
		return accounts.Account{}, fmt.Errorf("account %d: %w", id, shared.ErrNotFound)
	}
	return acc, nil
}

func (s *Store) InsertAccount(ctx context.Context, account accounts.Account) (accounts.Account, error) {
	err := s.withTx(ctx, func(_ context.Context, tx *Tx) error {
		for _, existing := range tx.st.accounts {
			if strings.EqualFold(existing.Code, account.Code) {
				return &shared.ValidationError{Errors: []string{fmt.Sprintf("account code %s already exists", account.Code)}}
			}
		}
		now := tx.now()
		account.ID = tx.st.nextID("accounts")
		account.CreatedAt = now
		account.UpdatedAt = now
		tx.st.accounts[account.ID] = account
		return nil
	})
	if err != nil {
		return accounts.Account{}, err
	}
	return account, nil
}

func (tx *Tx) GetAccountForUpdate(_ context.Context, id int64) (accounts.Account, error) {
	acc, ok := tx.st.accounts[id]
	if !ok {
		return accounts.Account{}, fmt.Errorf("account %d: %w", id, shared.ErrNotFound)
	}
	return acc, nil
}

func (tx *Tx) PostedBalance(_ context.Context, id int64) (decimal.Decimal, error) {
	balance := decimal.Zero
	for _, e := range tx.st.journals {
		if !e.IsPosted {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountID == id {
				balance = balance.Add(l.Debit).Sub(l.Credit)
			}
		}
	}
	return balance, nil
}

func (tx *Tx) SetAccountActive(_ context.Context, id int64, active bool) error {
	acc, ok := tx.st.accounts[id]
	if !ok {
		return fmt.Errorf("account %d: %w", id, shared.ErrNotFound)
	}
	acc.IsActive = active
	acc.UpdatedAt = tx.now()
	tx.st.accounts[id] = acc
	return nil
}

func (tx *Tx) ListAccounts(_ context.Context) ([]accounts.Account, error) {
	return tx.st.listAccounts(), nil
}

func (tx *Tx) AccountsByID(_ context.Context, ids []int64) (map[int64]accounts.Account, error) {
	return tx.st.accountsByID(ids), nil
}

func (s *Store) AccountsByID(_ context.Context, ids []int64) (map[int64]accounts.Account, error) {
	var out map[int64]accounts.Account
	s.read(func(st *state) { out = st.accountsByID(ids) })
	return out, nil
}

func (st *state) accountsByID(ids []int64) map[int64]accounts.Account {
	out := make(map[int64]accounts.Account, len(ids))
	for _, id := range ids {
		if acc, ok := st.accounts[id]; ok {
			out[id] = acc
		}
	}
	return out
}

// Mappings.

func (st *state) getMapping(key string) (mappings.AccountMapping, error) {
	m, ok := st.mappings[key]
	if !ok {
		return mappings.AccountMapping{}, fmt.Errorf("mapping %s: %w", key, shared.ErrNotFound)
	}
	return m, nil
}

func (st *state) listMappings(prefix string) []mappings.AccountMapping {
	out := make([]mappings.AccountMapping, 0)
	for k, m := range st.mappings {
		if strings.HasPrefix(k, prefix) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (s *Store) GetMapping(_ context.Context, key string) (mappings.AccountMapping, error) {
	var (
		m   mappings.AccountMapping
		err error
	)
	s.read(func(st *state) { m, err = st.getMapping(key) })
	return m, err
}

func (s *Store) ListMappings(_ context.Context, prefix string) ([]mappings.AccountMapping, error) {
	var out []mappings.AccountMapping
	s.read(func(st *state) { out = st.listMappings(prefix) })
	return out, nil
}

func (s *Store) UpsertMapping(ctx context.Context, mapping mappings.AccountMapping) (mappings.AccountMapping, error) {
	err := s.withTx(ctx, func(_ context.Context, tx *Tx) error {
		now := tx.now()
		if existing, ok := tx.st.mappings[mapping.Key]; ok {
			mapping.CreatedAt = existing.CreatedAt
		} else {
			mapping.CreatedAt = now
		}
		mapping.UpdatedAt = now
		tx.st.mappings[mapping.Key] = mapping
		return nil
	})
	if err != nil {
		return mappings.AccountMapping{}, err
	}
	return mapping, nil
}

func (tx *Tx) GetMapping(_ context.Context, key string) (mappings.AccountMapping, error) {
	return tx.st.getMapping(key)
}

func (tx *Tx) ListMappings(_ context.Context, prefix string) ([]mappings.AccountMapping, error) {
	return tx.st.listMappings(prefix), nil
}

// Periods.

func (st *state) listPeriods(match func(periods.Period) bool) []periods.Period {
	out := make([]periods.Period, 0, len(st.periods))
	for _, p := range st.periods {
		if match == nil || match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

func (st *state) periodForDate(date time.Time) (periods.Period, error) {
	for _, p := range st.periods {
		if p.Contains(date) {
			return p, nil
		}
	}
	return periods.Period{}, fmt.Errorf("period for %s: %w", date.Format(shared.DateLayout), shared.ErrNotFound)
}

func (st *state) getPeriod(id int64) (periods.Period, error) {
	p, ok := st.periods[id]
	if !ok {
		return periods.Period{}, fmt.Errorf("period %d: %w", id, shared.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ListPeriods(_ context.Context) ([]periods.Period, error) {
	var out []periods.Period
	s.read(func(st *state) { out = st.listPeriods(nil) })
	return out, nil
}

func (s *Store) GetPeriod(_ context.Context, id int64) (periods.Period, error) {
	var (
		p   periods.Period
		err error
	)
	s.read(func(st *state) { p, err = st.getPeriod(id) })
	return p, err
}

func (s *Store) PeriodForDate(_ context.Context, date time.Time) (periods.Period, error) {
	var (
		p   periods.Period
		err error
	)
	s.read(func(st *state) { p, err = st.periodForDate(date) })
	return p, err
}

func (s *Store) ListPeriodEvents(_ context.Context, periodID int64) ([]periods.Event, error) {
	var out []periods.Event
	s.read(func(st *state) {
		for _, e := range st.events {
			if e.PeriodID == periodID {
				out = append(out, e)
			}
		}
	})
	return out, nil
}

func (tx *Tx) PeriodForDateForUpdate(_ context.Context, date time.Time) (periods.Period, error) {
	return tx.st.periodForDate(date)
}

func (tx *Tx) MarkPosting(_ context.Context, periodID int64) error {
	p, ok := tx.st.periods[periodID]
	if !ok {
		return fmt.Errorf("period %d: %w", periodID, shared.ErrNotFound)
	}
	now := tx.now()
	p.LastPostingAt = &now
	tx.st.periods[periodID] = p
	return nil
}

func (tx *Tx) ListPeriodsForUpdate(_ context.Context) ([]periods.Period, error) {
	return tx.st.listPeriods(nil), nil
}

func (tx *Tx) GetPeriodForUpdate(_ context.Context, id int64) (periods.Period, error) {
	return tx.st.getPeriod(id)
}

func (tx *Tx) ListPeriodsByYearForUpdate(_ context.Context, fiscalYear int) ([]periods.Period, error) {
	return tx.st.listPeriods(func(p periods.Period) bool { return p.FiscalYear == fiscalYear }), nil
}

func (tx *Tx) InsertPeriod(_ context.Context, p periods.Period) (periods.Period, error) {
	now := tx.now()
	p.ID = tx.st.nextID("periods")
	p.CreatedAt = now
	p.UpdatedAt = now
	tx.st.periods[p.ID] = p
	return p, nil
}

func (tx *Tx) UpdatePeriodLock(_ context.Context, p periods.Period) error {
	if _, ok := tx.st.periods[p.ID]; !ok {
		return fmt.Errorf("period %d: %w", p.ID, shared.ErrNotFound)
	}
	p.UpdatedAt = tx.now()
	tx.st.periods[p.ID] = p
	return nil
}

func (tx *Tx) InsertPeriodEvent(_ context.Context, e periods.Event) error {
	e.ID = tx.st.nextID("period_events")
	tx.st.events = append(tx.st.events, e)
	return nil
}

func (tx *Tx) DraftEntryNosBetween(_ context.Context, from, to time.Time) ([]int64, error) {
	var out []int64
	for _, e := range tx.st.journals {
		if !e.IsPosted && !e.EntryDate.Before(from) && !e.EntryDate.After(to) {
			out = append(out, e.EntryNo)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Journals.

func cloneEntry(e journals.JournalEntry) journals.JournalEntry {
	e.Lines = append([]journals.JournalLine(nil), e.Lines...)
	return e
}

func (st *state) getJournal(id int64) (journals.JournalEntry, error) {
	e, ok := st.journals[id]
	if !ok {
		return journals.JournalEntry{}, fmt.Errorf("journal %d: %w", id, shared.ErrNotFound)
	}
	return cloneEntry(e), nil
}

func (st *state) storeLines(e *journals.JournalEntry) {
	lines := make([]journals.JournalLine, len(e.Lines))
	for i, l := range e.Lines {
		l.ID = st.nextID("journal_lines")
		l.JournalID = e.ID
		l.LineNo = i + 1
		lines[i] = l
	}
	e.Lines = lines
}

func (s *Store) ListJournals(_ context.Context, filter journals.Filter) ([]journals.JournalEntry, error) {
	var out []journals.JournalEntry
	s.read(func(st *state) {
		for _, e := range st.journals {
			if filter.Match(e) {
				out = append(out, cloneEntry(e))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].EntryNo < out[j].EntryNo })
	return out, nil
}

func (s *Store) GetJournal(_ context.Context, id int64) (journals.JournalEntry, error) {
	var (
		e   journals.JournalEntry
		err error
	)
	s.read(func(st *state) { e, err = st.getJournal(id) })
	return e, err
}

func (tx *Tx) NextSequence(_ context.Context, name string) (int64, error) {
	tx.st.sequences[name]++
	return tx.st.sequences[name], nil
}

func (tx *Tx) InsertJournalEntry(_ context.Context, entry journals.JournalEntry) (journals.JournalEntry, error) {
	entry.ID = tx.st.nextID("journal_entries")
	tx.st.storeLines(&entry)
	tx.st.journals[entry.ID] = entry
	return cloneEntry(entry), nil
}

func (tx *Tx) GetJournalForUpdate(_ context.Context, id int64) (journals.JournalEntry, error) {
	return tx.st.getJournal(id)
}

func (tx *Tx) ReplaceJournalDraft(_ context.Context, entry journals.JournalEntry) error {
	current, ok := tx.st.journals[entry.ID]
	if !ok {
		return fmt.Errorf("journal %d: %w", entry.ID, shared.ErrNotFound)
	}
	if current.IsPosted {
		return shared.ErrPostedImmutable
	}
	entry.EntryNo = current.EntryNo
	entry.SourceModule = current.SourceModule
	entry.SourceID = current.SourceID
	entry.CreatedAt = current.CreatedAt
	entry.CreatedBy = current.CreatedBy
	entry.UpdatedAt = tx.now()
	tx.st.storeLines(&entry)
	tx.st.journals[entry.ID] = entry
	return nil
}

func (tx *Tx) DeleteJournalDraft(_ context.Context, id int64) error {
	current, ok := tx.st.journals[id]
	if !ok {
		return fmt.Errorf("journal %d: %w", id, shared.ErrNotFound)
	}
	if current.IsPosted {
		return shared.ErrPostedImmutable
	}
	delete(tx.st.journals, id)
	for k, entryID := range tx.st.sources {
		if entryID == id {
			delete(tx.st.sources, k)
		}
	}
	return nil
}

func (tx *Tx) MarkJournalPosted(_ context.Context, id, postedBy int64, at time.Time) error {
	e, ok := tx.st.journals[id]
	if !ok {
		return fmt.Errorf("journal %d: %w", id, shared.ErrNotFound)
	}
	e.IsPosted = true
	e.PostedAt = &at
	if postedBy != 0 {
		e.PostedBy = &postedBy
	}
	e.UpdatedAt = at
	tx.st.journals[id] = e
	return nil
}

func (tx *Tx) MarkJournalReversed(_ context.Context, id, reversedByID int64) error {
	e, ok := tx.st.journals[id]
	if !ok {
		return fmt.Errorf("journal %d: %w", id, shared.ErrNotFound)
	}
	e.IsReversed = true
	e.ReversedByID = &reversedByID
	e.UpdatedAt = tx.now()
	tx.st.journals[id] = e
	return nil
}

func (tx *Tx) LinkSource(_ context.Context, module acctShared.SourceModule, ref uuid.UUID, entryID int64) error {
	key := sourceKey{module: module, ref: ref}
	if existing, ok := tx.st.sources[key]; ok {
		return fmt.Errorf("%s %s already linked to journal %d: %w", module, ref, existing, shared.ErrSourceAlreadyLinked)
	}
	tx.st.sources[key] = entryID
	return nil
}

// Posted lines.

func (st *state) postedLines(filter ledger.LineFilter) []ledger.PostedLine {
	var out []ledger.PostedLine
	for _, e := range st.journals {
		if !e.IsPosted {
			continue
		}
		for _, l := range e.Lines {
			pl := ledger.PostedLine{
				EntryID:      e.ID,
				EntryNo:      e.EntryNo,
				EntryDate:    e.EntryDate,
				SourceModule: e.SourceModule,
				Memo:         e.Description,
				LineNo:       l.LineNo,
				AccountID:    l.AccountID,
				Description:  l.Description,
				Debit:        l.Debit,
				Credit:       l.Credit,
				PartnerID:    l.PartnerID,
				DueDate:      l.DueDate,
				BranchID:     l.BranchID,
			}
			if filter.Match(pl) {
				out = append(out, pl)
			}
		}
	}
	ledger.SortLines(out)
	return out
}

func (s *Store) PostedLines(_ context.Context, filter ledger.LineFilter) ([]ledger.PostedLine, error) {
	var out []ledger.PostedLine
	s.read(func(st *state) { out = st.postedLines(filter) })
	return out, nil
}

func (tx *Tx) PostedLines(_ context.Context, filter ledger.LineFilter) ([]ledger.PostedLine, error) {
	return tx.st.postedLines(filter), nil
}
