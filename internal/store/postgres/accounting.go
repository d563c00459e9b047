package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/mappings"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/periods"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

const accountColumns = `id, code, name, type, parent_id, is_header, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (accounts.Account, error) {
	var a accounts.Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.IsHeader, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func listAccounts(ctx context.Context, q querier) ([]accounts.Account, error) {
	rows, err := q.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []accounts.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListAccounts(ctx context.Context) ([]accounts.Account, error) {
	return listAccounts(ctx, s.pool)
}

func (s *Store) GetAccount(ctx context.Context, id int64) (accounts.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id))
	if err != nil {
		return accounts.Account{}, notFound("account", id, err)
	}
	return a, nil
}

func (s *Store) InsertAccount(ctx context.Context, account accounts.Account) (accounts.Account, error) {
	err := s.pool.QueryRow(ctx, `INSERT INTO accounts (code, name, type, parent_id, is_header, is_active)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at, updated_at`,
		account.Code, account.Name, account.Type, account.ParentID, account.IsHeader, account.IsActive).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if uniqueViolation(err, "uq_accounts_code") {
			return accounts.Account{}, &shared.ValidationError{Errors: []string{fmt.Sprintf("account code %s already exists", account.Code)}}
		}
		return accounts.Account{}, err
	}
	return account, nil
}

func (t *Tx) GetAccountForUpdate(ctx context.Context, id int64) (accounts.Account, error) {
	a, err := scanAccount(t.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return accounts.Account{}, notFound("account", id, err)
	}
	return a, nil
}

func (t *Tx) PostedBalance(ctx context.Context, id int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := t.q.QueryRow(ctx, `SELECT COALESCE(SUM(l.debit - l.credit), 0) FROM journal_lines l
JOIN journal_entries e ON e.id = l.journal_id
WHERE l.account_id=$1 AND e.is_posted`, id).Scan(&balance)
	return balance, err
}

func (t *Tx) SetAccountActive(ctx context.Context, id int64, active bool) error {
	cmd, err := t.q.Exec(ctx, `UPDATE accounts SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("account %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (t *Tx) ListAccounts(ctx context.Context) ([]accounts.Account, error) {
	return listAccounts(ctx, t.q)
}

// AccountsByID share-locks the accounts a posting touches, so deactivation
// waits for the posting to commit.
func (t *Tx) AccountsByID(ctx context.Context, ids []int64) (map[int64]accounts.Account, error) {
	return accountsByID(ctx, t.q, ids, true)
}

func (s *Store) AccountsByID(ctx context.Context, ids []int64) (map[int64]accounts.Account, error) {
	return accountsByID(ctx, s.pool, ids, false)
}

func accountsByID(ctx context.Context, q querier, ids []int64, share bool) (map[int64]accounts.Account, error) {
	sql := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ANY($1)`
	if share {
		sql += ` FOR SHARE`
	}
	rows, err := q.Query(ctx, sql, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]accounts.Account, len(ids))
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

// Mappings.

func getMapping(ctx context.Context, q querier, key string) (mappings.AccountMapping, error) {
	var m mappings.AccountMapping
	err := q.QueryRow(ctx, `SELECT key, account_id, created_at, updated_at FROM account_mappings WHERE key=$1`, key).
		Scan(&m.Key, &m.AccountID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return mappings.AccountMapping{}, notFound("mapping", key, err)
	}
	return m, nil
}

func listMappings(ctx context.Context, q querier, prefix string) ([]mappings.AccountMapping, error) {
	rows, err := q.Query(ctx, `SELECT key, account_id, created_at, updated_at FROM account_mappings
WHERE starts_with(key, $1) ORDER BY key`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []mappings.AccountMapping
	for rows.Next() {
		var m mappings.AccountMapping
		if err := rows.Scan(&m.Key, &m.AccountID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetMapping(ctx context.Context, key string) (mappings.AccountMapping, error) {
	return getMapping(ctx, s.pool, key)
}

func (s *Store) ListMappings(ctx context.Context, prefix string) ([]mappings.AccountMapping, error) {
	return listMappings(ctx, s.pool, prefix)
}

func (s *Store) UpsertMapping(ctx context.Context, m mappings.AccountMapping) (mappings.AccountMapping, error) {
	err := s.pool.QueryRow(ctx, `INSERT INTO account_mappings (key, account_id) VALUES ($1,$2)
ON CONFLICT (key) DO UPDATE SET account_id=EXCLUDED.account_id, updated_at=NOW()
RETURNING created_at, updated_at`, m.Key, m.AccountID).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return mappings.AccountMapping{}, err
	}
	return m, nil
}

func (t *Tx) GetMapping(ctx context.Context, key string) (mappings.AccountMapping, error) {
	return getMapping(ctx, t.q, key)
}

func (t *Tx) ListMappings(ctx context.Context, prefix string) ([]mappings.AccountMapping, error) {
	return listMappings(ctx, t.q, prefix)
}

// Periods.

const periodColumns = `id, name, fiscal_year, start_date, end_date, is_closed, closed_at, closed_by, last_posting_at, created_at, updated_at`

func scanPeriod(row pgx.Row) (periods.Period, error) {
	var p periods.Period
	err := row.Scan(&p.ID, &p.Name, &p.FiscalYear, &p.StartDate, &p.EndDate, &p.IsClosed, &p.ClosedAt, &p.ClosedBy, &p.LastPostingAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func queryPeriods(ctx context.Context, q querier, sql string, args ...any) ([]periods.Period, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []periods.Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ListPeriods(ctx context.Context) ([]periods.Period, error) {
	return queryPeriods(ctx, s.pool, `SELECT `+periodColumns+` FROM accounting_periods ORDER BY start_date`)
}

func (s *Store) GetPeriod(ctx context.Context, id int64) (periods.Period, error) {
	p, err := scanPeriod(s.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE id=$1`, id))
	if err != nil {
		return periods.Period{}, notFound("period", id, err)
	}
	return p, nil
}

func (s *Store) PeriodForDate(ctx context.Context, date time.Time) (periods.Period, error) {
	p, err := scanPeriod(s.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods
WHERE $1::date BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, date))
	if err != nil {
		return periods.Period{}, notFound("period for", date.Format(shared.DateLayout), err)
	}
	return p, nil
}

func (s *Store) ListPeriodEvents(ctx context.Context, periodID int64) ([]periods.Event, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, period_id, action, reason, actor_id, at FROM period_events
WHERE period_id=$1 ORDER BY at, id`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []periods.Event
	for rows.Next() {
		var e periods.Event
		if err := rows.Scan(&e.ID, &e.PeriodID, &e.Action, &e.Reason, &e.ActorID, &e.At); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *Tx) PeriodForDateForUpdate(ctx context.Context, date time.Time) (periods.Period, error) {
	p, err := scanPeriod(t.q.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods
WHERE $1::date BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1 FOR UPDATE`, date))
	if err != nil {
		return periods.Period{}, notFound("period for", date.Format(shared.DateLayout), err)
	}
	return p, nil
}

func (t *Tx) MarkPosting(ctx context.Context, periodID int64) error {
	cmd, err := t.q.Exec(ctx, `UPDATE accounting_periods SET last_posting_at=NOW() WHERE id=$1`, periodID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("period %d: %w", periodID, shared.ErrNotFound)
	}
	return nil
}

func (t *Tx) ListPeriodsForUpdate(ctx context.Context) ([]periods.Period, error) {
	return queryPeriods(ctx, t.q, `SELECT `+periodColumns+` FROM accounting_periods ORDER BY start_date FOR UPDATE`)
}

func (t *Tx) GetPeriodForUpdate(ctx context.Context, id int64) (periods.Period, error) {
	p, err := scanPeriod(t.q.QueryRow(ctx, `SELECT `+periodColumns+` FROM accounting_periods WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return periods.Period{}, notFound("period", id, err)
	}
	return p, nil
}

func (t *Tx) ListPeriodsByYearForUpdate(ctx context.Context, fiscalYear int) ([]periods.Period, error) {
	return queryPeriods(ctx, t.q, `SELECT `+periodColumns+` FROM accounting_periods
WHERE fiscal_year=$1 ORDER BY start_date FOR UPDATE`, fiscalYear)
}

func (t *Tx) InsertPeriod(ctx context.Context, p periods.Period) (periods.Period, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO accounting_periods (name, fiscal_year, start_date, end_date)
VALUES ($1,$2,$3,$4) RETURNING id, created_at, updated_at`, p.Name, p.FiscalYear, p.StartDate, p.EndDate).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return periods.Period{}, err
	}
	return p, nil
}

func (t *Tx) UpdatePeriodLock(ctx context.Context, p periods.Period) error {
	cmd, err := t.q.Exec(ctx, `UPDATE accounting_periods SET is_closed=$2, closed_at=$3, closed_by=$4, updated_at=NOW() WHERE id=$1`,
		p.ID, p.IsClosed, p.ClosedAt, p.ClosedBy)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("period %d: %w", p.ID, shared.ErrNotFound)
	}
	return nil
}

func (t *Tx) InsertPeriodEvent(ctx context.Context, e periods.Event) error {
	_, err := t.q.Exec(ctx, `INSERT INTO period_events (period_id, action, reason, actor_id, at) VALUES ($1,$2,$3,$4,$5)`,
		e.PeriodID, e.Action, e.Reason, e.ActorID, e.At)
	return err
}

func (t *Tx) DraftEntryNosBetween(ctx context.Context, from, to time.Time) ([]int64, error) {
	rows, err := t.q.Query(ctx, `SELECT entry_no FROM journal_entries
WHERE NOT is_posted AND entry_date BETWEEN $1 AND $2 ORDER BY entry_no`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var no int64
		if err := rows.Scan(&no); err != nil {
			return nil, err
		}
		out = append(out, no)
	}
	return out, rows.Err()
}
