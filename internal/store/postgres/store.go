// Package postgres implements the repository ports on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/closing"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/ledger"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/pharma-ledger/internal/inventory/adjustments"
	"github.com/odyssey-erp/pharma-ledger/internal/inventory/costlayer"
	"github.com/odyssey-erp/pharma-ledger/internal/platform/db"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads committed state from the pool and runs writes in
// RepeatableRead transactions.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) withTx(ctx context.Context, fn func(context.Context, *Tx) error) error {
	if s == nil || s.pool == nil {
		return errors.New("postgres store not initialised")
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Tx{q: tx})
	})
}

type accountRepo struct{ *Store }

// WithTx runs at ReadCommitted so the balance read after the account lock
// sees the postings that held the lock before it.
func (r accountRepo) WithTx(ctx context.Context, fn func(context.Context, accounts.TxRepository) error) error {
	if r.Store == nil || r.pool == nil {
		return errors.New("postgres store not initialised")
	}
	return db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &Tx{q: tx})
	})
}

func (s *Store) Accounts() accounts.Repository       { return accountRepo{s} }
func (s *Store) Mappings() mappings.Repository       { return s }
func (s *Store) Periods() periods.Repository         { return periodRepo{s} }
func (s *Store) Journals() journals.Repository       { return journalRepo{s} }
func (s *Store) Lots() costlayer.Repository          { return lotRepo{s} }
func (s *Store) Adjustments() adjustments.Repository { return adjustmentRepo{s} }
func (s *Store) Closing() closing.Repository         { return closingRepo{s} }

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

// Tx runs every port method on one pgx transaction.
type Tx struct {
	q querier
}

func uniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

func notFound(what string, id any, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, shared.ErrNotFound)
	}
	return err
}

var (
	_ accounts.Repository      = accountRepo{}
	_ accounts.TxRepository    = (*Tx)(nil)
	_ accounts.Lookup          = (*Store)(nil)
	_ mappings.Repository      = (*Store)(nil)
	_ ledger.Repository        = (*Store)(nil)
	_ adjustments.TxRepository = (*Tx)(nil)
	_ closing.TxRepository     = (*Tx)(nil)
)
