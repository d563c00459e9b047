package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/pharma-ledger/internal/accounting/journals"
	"github.com/odyssey-erp/pharma-ledger/internal/accounting/ledger"
	acctShared "github.com/odyssey-erp/pharma-ledger/internal/accounting/shared"
	"github.com/odyssey-erp/pharma-ledger/internal/shared"
)

const entryColumns = `id, entry_no, entry_date, description, source_module, source_id, is_posted, is_reversed,
reversal_of_id, reversed_by_id, posted_at, posted_by, created_by, created_at, updated_at`

const lineColumns = `id, journal_id, line_no, account_id, description, debit, credit, partner_id, due_date, branch_id, warehouse_id`

func scanEntry(row pgx.Row) (journals.JournalEntry, error) {
	var e journals.JournalEntry
	err := row.Scan(&e.ID, &e.EntryNo, &e.EntryDate, &e.Description, &e.SourceModule, &e.SourceID, &e.IsPosted, &e.IsReversed,
		&e.ReversalOfID, &e.ReversedByID, &e.PostedAt, &e.PostedBy, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func loadLines(ctx context.Context, q querier, entries []journals.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]int64, len(entries))
	index := make(map[int64]int, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		index[e.ID] = i
	}
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM journal_lines WHERE journal_id = ANY($1) ORDER BY journal_id, line_no`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var l journals.JournalLine
		if err := rows.Scan(&l.ID, &l.JournalID, &l.LineNo, &l.AccountID, &l.Description, &l.Debit, &l.Credit,
			&l.PartnerID, &l.DueDate, &l.BranchID, &l.WarehouseID); err != nil {
			return err
		}
		i := index[l.JournalID]
		entries[i].Lines = append(entries[i].Lines, l)
	}
	return rows.Err()
}

func getJournal(ctx context.Context, q querier, id int64, forUpdate bool) (journals.JournalEntry, error) {
	sql := `SELECT ` + entryColumns + ` FROM journal_entries WHERE id=$1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	e, err := scanEntry(q.QueryRow(ctx, sql, id))
	if err != nil {
		return journals.JournalEntry{}, notFound("journal", id, err)
	}
	list := []journals.JournalEntry{e}
	if err := loadLines(ctx, q, list); err != nil {
		return journals.JournalEntry{}, err
	}
	return list[0], nil
}

func (s *Store) ListJournals(ctx context.Context, filter journals.Filter) ([]journals.JournalEntry, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.StartDate != nil {
		add("entry_date >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("entry_date <= $%d", *filter.EndDate)
	}
	if filter.IsPosted != nil {
		add("is_posted = $%d", *filter.IsPosted)
	}
	if filter.SourceModule != nil {
		add("source_module = $%d", string(*filter.SourceModule))
	}
	sql := `SELECT ` + entryColumns + ` FROM journal_entries`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY entry_no`
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	var out []journals.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadLines(ctx, s.pool, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetJournal(ctx context.Context, id int64) (journals.JournalEntry, error) {
	return getJournal(ctx, s.pool, id, false)
}

// NextSequence increments the named counter inside the caller's transaction.
func (t *Tx) NextSequence(ctx context.Context, name string) (int64, error) {
	var v int64
	err := t.q.QueryRow(ctx, `INSERT INTO sequences (name, value) VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1 RETURNING value`, name).Scan(&v)
	return v, err
}

func (t *Tx) insertLines(ctx context.Context, entry *journals.JournalEntry) error {
	for i := range entry.Lines {
		l := &entry.Lines[i]
		l.JournalID = entry.ID
		l.LineNo = i + 1
		if err := t.q.QueryRow(ctx, `INSERT INTO journal_lines (journal_id, line_no, account_id, description, debit, credit, partner_id, due_date, branch_id, warehouse_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id`,
			l.JournalID, l.LineNo, l.AccountID, l.Description, l.Debit, l.Credit, l.PartnerID, l.DueDate, l.BranchID, l.WarehouseID).
			Scan(&l.ID); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tx) InsertJournalEntry(ctx context.Context, entry journals.JournalEntry) (journals.JournalEntry, error) {
	err := t.q.QueryRow(ctx, `INSERT INTO journal_entries (entry_no, entry_date, description, source_module, source_id, is_posted,
reversal_of_id, posted_at, posted_by, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
		entry.EntryNo, entry.EntryDate, entry.Description, string(entry.SourceModule), entry.SourceID, entry.IsPosted,
		entry.ReversalOfID, entry.PostedAt, entry.PostedBy, entry.CreatedBy, entry.CreatedAt, entry.UpdatedAt).
		Scan(&entry.ID)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	entry.Lines = append([]journals.JournalLine(nil), entry.Lines...)
	if err := t.insertLines(ctx, &entry); err != nil {
		return journals.JournalEntry{}, err
	}
	return entry, nil
}

func (t *Tx) GetJournalForUpdate(ctx context.Context, id int64) (journals.JournalEntry, error) {
	return getJournal(ctx, t.q, id, true)
}

func (t *Tx) ReplaceJournalDraft(ctx context.Context, entry journals.JournalEntry) error {
	cmd, err := t.q.Exec(ctx, `UPDATE journal_entries SET entry_date=$2, description=$3, updated_at=NOW()
WHERE id=$1 AND NOT is_posted`, entry.ID, entry.EntryDate, entry.Description)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return t.draftMiss(ctx, entry.ID)
	}
	if _, err := t.q.Exec(ctx, `DELETE FROM journal_lines WHERE journal_id=$1`, entry.ID); err != nil {
		return err
	}
	entry.Lines = append([]journals.JournalLine(nil), entry.Lines...)
	return t.insertLines(ctx, &entry)
}

func (t *Tx) DeleteJournalDraft(ctx context.Context, id int64) error {
	cmd, err := t.q.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1 AND NOT is_posted`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return t.draftMiss(ctx, id)
	}
	return nil
}

// draftMiss explains why a draft-only statement touched no row.
func (t *Tx) draftMiss(ctx context.Context, id int64) error {
	var posted bool
	err := t.q.QueryRow(ctx, `SELECT is_posted FROM journal_entries WHERE id=$1`, id).Scan(&posted)
	if err != nil {
		return notFound("journal", id, err)
	}
	return shared.ErrPostedImmutable
}

func (t *Tx) MarkJournalPosted(ctx context.Context, id, postedBy int64, at time.Time) error {
	var by any
	if postedBy != 0 {
		by = postedBy
	}
	cmd, err := t.q.Exec(ctx, `UPDATE journal_entries SET is_posted=TRUE, posted_at=$2, posted_by=$3, updated_at=$2 WHERE id=$1`, id, at, by)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("journal %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (t *Tx) MarkJournalReversed(ctx context.Context, id, reversedByID int64) error {
	cmd, err := t.q.Exec(ctx, `UPDATE journal_entries SET is_reversed=TRUE, reversed_by_id=$2, updated_at=NOW() WHERE id=$1`, id, reversedByID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("journal %d: %w", id, shared.ErrNotFound)
	}
	return nil
}

func (t *Tx) LinkSource(ctx context.Context, module acctShared.SourceModule, ref uuid.UUID, entryID int64) error {
	_, err := t.q.Exec(ctx, `INSERT INTO source_links (module, ref_id, journal_id) VALUES ($1,$2,$3)`, string(module), ref, entryID)
	if err != nil {
		if uniqueViolation(err, "uq_source_links") {
			return fmt.Errorf("%s %s: %w", module, ref, shared.ErrSourceAlreadyLinked)
		}
		return err
	}
	return nil
}

// Posted lines.

func postedLines(ctx context.Context, q querier, filter ledger.LineFilter) ([]ledger.PostedLine, error) {
	where := []string{"e.is_posted"}
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.From != nil {
		add("e.entry_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("e.entry_date <= $%d", *filter.To)
	}
	if filter.BranchID != nil {
		add("l.branch_id = $%d", *filter.BranchID)
	}
	if len(filter.AccountIDs) > 0 {
		add("l.account_id = ANY($%d)", filter.AccountIDs)
	}
	if len(filter.ExcludeSources) > 0 {
		sources := make([]string, len(filter.ExcludeSources))
		for i, src := range filter.ExcludeSources {
			sources[i] = string(src)
		}
		add("e.source_module <> ALL($%d)", sources)
	}
	rows, err := q.Query(ctx, `SELECT e.id, e.entry_no, e.entry_date, e.source_module, e.description,
l.line_no, l.account_id, l.description, l.debit, l.credit, l.partner_id, l.due_date, l.branch_id
FROM journal_lines l JOIN journal_entries e ON e.id = l.journal_id
WHERE `+strings.Join(where, " AND ")+`
ORDER BY e.entry_date, e.entry_no, l.line_no`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.PostedLine
	for rows.Next() {
		var pl ledger.PostedLine
		if err := rows.Scan(&pl.EntryID, &pl.EntryNo, &pl.EntryDate, &pl.SourceModule, &pl.Memo,
			&pl.LineNo, &pl.AccountID, &pl.Description, &pl.Debit, &pl.Credit, &pl.PartnerID, &pl.DueDate, &pl.BranchID); err != nil {
			return nil, err
		}
		out = append(out, pl)
	}
	return out, rows.Err()
}

func (s *Store) PostedLines(ctx context.Context, filter ledger.LineFilter) ([]ledger.PostedLine, error) {
	return postedLines(ctx, s.pool, filter)
}

func (t *Tx) PostedLines(ctx context.Context, filter ledger.LineFilter) ([]ledger.PostedLine, error) {
	return postedLines(ctx, t.q, filter)
}
