// Package memory is an in-process store implementing every repository port.
// Writers are serialised by one mutex and work on the live state; a snapshot
// taken when the transaction starts is restored if it fails.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/closing"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/inventory/adjustments"
	"github.com/odyssey-erp/pharma-ledger/internal/inventory/costlayer"
)

type sourceKey struct {
	module shared.SourceModule
	ref    uuid.UUID
}

type state struct {
	accounts    map[int64]accounts.Account
	mappings    map[string]mappings.AccountMapping
	periods     map[int64]periods.Period
	events      []periods.Event
	journals    map[int64]journals.JournalEntry
	sources     map[sourceKey]int64
	sequences   map[string]int64
	lots        map[int64]costlayer.Lot
	adjustments map[int64]adjustments.Adjustment
	ids         map[string]int64
}

func newState() *state {
	return &state{
		accounts:    make(map[int64]accounts.Account),
		mappings:    make(map[string]mappings.AccountMapping),
		periods:     make(map[int64]periods.Period),
		journals:    make(map[int64]journals.JournalEntry),
		sources:     make(map[sourceKey]int64),
		sequences:   make(map[string]int64),
		lots:        make(map[int64]costlayer.Lot),
		adjustments: make(map[int64]adjustments.Adjustment),
		ids:         make(map[string]int64),
	}
}

// clone copies the maps. Stored values own their slices and are replaced,
// never mutated in place, so a shallow copy is a full snapshot.
func (st *state) clone() *state {
	out := &state{
		accounts:    make(map[int64]accounts.Account, len(st.accounts)),
		mappings:    make(map[string]mappings.AccountMapping, len(st.mappings)),
		periods:     make(map[int64]periods.Period, len(st.periods)),
		events:      append([]periods.Event(nil), st.events...),
		journals:    make(map[int64]journals.JournalEntry, len(st.journals)),
		sources:     make(map[sourceKey]int64, len(st.sources)),
		sequences:   make(map[string]int64, len(st.sequences)),
		lots:        make(map[int64]costlayer.Lot, len(st.lots)),
		adjustments: make(map[int64]adjustments.Adjustment, len(st.adjustments)),
		ids:         make(map[string]int64, len(st.ids)),
	}
	for k, v := range st.accounts {
		out.accounts[k] = v
	}
	for k, v := range st.mappings {
		out.mappings[k] = v
	}
	for k, v := range st.periods {
		out.periods[k] = v
	}
	for k, v := range st.journals {
		out.journals[k] = v
	}
	for k, v := range st.sources {
		out.sources[k] = v
	}
	for k, v := range st.sequences {
		out.sequences[k] = v
	}
	for k, v := range st.lots {
		out.lots[k] = v
	}
	for k, v := range st.adjustments {
		out.adjustments[k] = v
	}
	for k, v := range st.ids {
		out.ids[k] = v
	}
	return out
}

func (st *state) nextID(table string) int64 {
	st.ids[table]++
	return st.ids[table]
}

// Store holds the whole ledger in memory.
type Store struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState(), now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

func (s *Store) withTx(ctx context.Context, fn func(context.Context, *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	committed := false
	defer func() {
		if !committed {
			s.st = snapshot
		}
	}()
	if err := fn(ctx, &Tx{st: s.st, now: s.now}); err != nil {
		return err
	}
	committed = true
	return nil
}

// Accounts returns the chart of accounts repository.
func (s *Store) Accounts() accounts.Repository { return accountRepo{s} }

// Mappings returns the account mapping repository.
func (s *Store) Mappings() mappings.Repository { return s }

// Periods returns the period repository.
func (s *Store) Periods() periods.Repository { return periodRepo{s} }

// Journals returns the journal repository.
func (s *Store) Journals() journals.Repository { return journalRepo{s} }

// Lots returns the cost layer repository.
func (s *Store) Lots() costlayer.Repository { return lotRepo{s} }

// Adjustments returns the stock adjustment repository.
func (s *Store) Adjustments() adjustments.Repository { return adjustmentRepo{s} }

// Closing returns the year-end closing unit of work.
func (s *Store) Closing() closing.Repository { return closingRepo{s} }

type accountRepo struct{ *Store }

func (r accountRepo) WithTx(ctx context.Context, fn func(context.Context, accounts.TxRepository) error) error {
	return r.withTx(ctx, func(ctx context.Context, tx *Tx) error { return fn(ctx, tx) })
}

type periodRepo struct{ *Store }

func (r periodRepo) WithTx(ctx context.Context, fn func(context.Context, periods.TxRepository) error) error {
	return r.withTx(ctx, func(ctx context.Context, tx *Tx) error { return fn(ctx, tx) })
}

type journalRepo struct{ *Store }

func (r journalRepo) WithTx(ctx context.Context, fn func(context.Context, journals.TxRepository) error) error {
	return r.withTx(ctx, func(ctx context.Context, tx *Tx) error { return fn(ctx, tx) })
}

type lotRepo struct{ *Store }

func (r lotRepo) WithTx(ctx context.Context, fn func(context.Context, costlayer.TxRepository) error) error {
	return r.withTx(ctx, func(ctx context.Context, tx *Tx) error { return fn(ctx, tx) })
}

type adjustmentRepo struct{ *Store }

func (r adjustmentRepo) WithTx(ctx context.Context, fn func(context.Context, adjustments.TxRepository) error) error {
	return r.withTx(ctx, func(ctx context.Context, tx *Tx) error { return fn(ctx, tx) })
}

type closingRepo struct{ *Store }

func (r closingRepo) WithTx(ctx context.Context, fn func(context.Context, closing.TxRepository) error) error {
	return r.withTx(ctx, func(ctx context.Context, tx *Tx) error { return fn(ctx, tx) })
}

// Tx is the transactional view handed to services. It is only valid inside
// the callback it was passed to.
type Tx struct {
	st  *state
	now func() time.Time
}

var (
	_ accounts.Repository      = accountRepo{}
	_ accounts.TxRepository    = (*Tx)(nil)
	_ accounts.Lookup          = (*Store)(nil)
	_ mappings.Repository      = (*Store)(nil)
	_ ledger.Repository        = (*Store)(nil)
	_ journals.TxRepository    = (*Tx)(nil)
	_ adjustments.TxRepository = (*Tx)(nil)
	_ closing.TxRepository     = (*Tx)(nil)
)
