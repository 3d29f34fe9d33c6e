// Package storage implements the data-access interfaces of the ledger
// and memoranda packages on SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pacioli/internal/core"
	"pacioli/internal/ledger"
	"pacioli/internal/memoranda"

	_ "modernc.org/sqlite"
)

// dayLayout is the canonical TEXT representation of entry dates.
// Lexicographic order equals chronological order, so date comparisons
// and strftime grouping both work directly on the column.
const dayLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func parseDay(s string) (core.Date, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return core.DateOf(t), nil
}

// entryWhere translates an EntryFilter into a WHERE clause and args.
func entryWhere(f ledger.EntryFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Ledger != "" {
		conds = append(conds, "ledger = ?")
		args = append(args, f.Ledger)
	}
	if f.Currency != "" {
		conds = append(conds, "currency = ?")
		args = append(args, f.Currency)
	}
	if f.Side != "" {
		conds = append(conds, "tside = ?")
		args = append(args, string(f.Side))
	}
	if !f.DateTo.IsZero() {
		conds = append(conds, "entry_date <= ?")
		args = append(args, f.DateTo.Format(dayLayout))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// FindEntries implements ledger.Store.
func (r *SQLiteRepository) FindEntries(ctx context.Context, f ledger.EntryFilter, order ledger.EntryOrder) ([]core.LedgerEntry, error) {
	query := `SELECT id, journal_entry_id, ledger, entry_date, tside, amount_cents, currency, entry_type
		FROM ledger_entries`
	where, args := entryWhere(f)
	query += where

	switch order {
	case ledger.OrderDateDescSideDesc:
		// 'debit' sorts after 'credit', so DESC yields debit first.
		query += " ORDER BY entry_date DESC, tside DESC"
	case ledger.OrderDateDescTypeDesc:
		query += " ORDER BY entry_date DESC, entry_type DESC"
	default:
		query += " ORDER BY id"
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []core.LedgerEntry
	for rows.Next() {
		var e core.LedgerEntry
		var day, side string
		if err := rows.Scan(&e.ID, &e.JournalEntryID, &e.Ledger, &day, &side, &e.Amount.Cents, &e.Currency, &e.Type); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if e.Date, err = parseDay(day); err != nil {
			return nil, err
		}
		e.Side = core.Side(side)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}

// AggregateByPeriod implements ledger.Store. Summation happens in SQL
// over the INTEGER amount column, so the per-period totals stay exact.
func (r *SQLiteRepository) AggregateByPeriod(ctx context.Context, f ledger.EntryFilter, g ledger.Granularity, side core.Side) ([]core.PeriodTotal, error) {
	f.Side = side
	where, args := entryWhere(f)

	var query string
	if g == ledger.ByDay {
		query = `SELECT CAST(strftime('%Y', entry_date) AS INTEGER),
			CAST(strftime('%m', entry_date) AS INTEGER),
			CAST(strftime('%d', entry_date) AS INTEGER),
			CAST(SUM(amount_cents) AS INTEGER)
			FROM ledger_entries` + where + ` GROUP BY 1, 2, 3`
	} else {
		query = `SELECT CAST(strftime('%Y', entry_date) AS INTEGER),
			CAST(strftime('%m', entry_date) AS INTEGER),
			1,
			CAST(SUM(amount_cents) AS INTEGER)
			FROM ledger_entries` + where + ` GROUP BY 1, 2`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate ledger entries: %w", err)
	}
	defer rows.Close()

	var totals []core.PeriodTotal
	for rows.Next() {
		var year, month, day int
		var sum int64
		if err := rows.Scan(&year, &month, &day, &sum); err != nil {
			return nil, fmt.Errorf("scan period total: %w", err)
		}
		totals = append(totals, core.PeriodTotal{
			Period: core.NewDate(year, month, day),
			Total:  core.Money{Cents: sum},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate period totals: %w", err)
	}
	return totals, nil
}

// ListEntryAccounts implements ledger.Store.
func (r *SQLiteRepository) ListEntryAccounts(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ledger FROM ledger_entries GROUP BY ledger ORDER BY ledger`)
	if err != nil {
		return nil, fmt.Errorf("list entry accounts: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan account name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// FindJournalEntry implements ledger.Store.
func (r *SQLiteRepository) FindJournalEntry(ctx context.Context, id int64) (ledger.JournalEntryDetail, error) {
	var detail ledger.JournalEntryDetail
	var uploadedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT j.id, j.transaction_id, t.id, t.memorandum_id, t.details, m.id, m.file_name, m.uploaded_at
		FROM journal_entries j
		JOIN memoranda_transactions t ON t.id = j.transaction_id
		JOIN memoranda m ON m.id = t.memorandum_id
		WHERE j.id = ?`, id).Scan(
		&detail.Entry.ID, &detail.Entry.TransactionID,
		&detail.Transaction.ID, &detail.Transaction.MemorandumID, &detail.Transaction.Details,
		&detail.Memorandum.ID, &detail.Memorandum.FileName, &uploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.JournalEntryDetail{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.JournalEntryDetail{}, fmt.Errorf("query journal entry %d: %w", id, err)
	}
	detail.Transaction.JournalEntryID = detail.Entry.ID
	if detail.Memorandum.UploadedAt, err = parseDay(uploadedAt); err != nil {
		return ledger.JournalEntryDetail{}, err
	}

	detail.Entry.Entries, err = r.findEntriesByJournal(ctx, id)
	if err != nil {
		return ledger.JournalEntryDetail{}, err
	}
	return detail, nil
}

func (r *SQLiteRepository) findEntriesByJournal(ctx context.Context, journalID int64) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, journal_entry_id, ledger, entry_date, tside, amount_cents, currency, entry_type
		FROM ledger_entries WHERE journal_entry_id = ?
		ORDER BY entry_date DESC, entry_type DESC`, journalID)
	if err != nil {
		return nil, fmt.Errorf("query entries of journal %d: %w", journalID, err)
	}
	defer rows.Close()

	var entries []core.LedgerEntry
	for rows.Next() {
		var e core.LedgerEntry
		var day, side string
		if err := rows.Scan(&e.ID, &e.JournalEntryID, &e.Ledger, &day, &side, &e.Amount.Cents, &e.Currency, &e.Type); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if e.Date, err = parseDay(day); err != nil {
			return nil, err
		}
		e.Side = core.Side(side)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FindAccountHierarchy implements ledger.Store. The chart is assembled
// leaf-up so each level nests under its named parent.
func (r *SQLiteRepository) FindAccountHierarchy(ctx context.Context) ([]core.Element, error) {
	subaccounts := make(map[string][]core.SubAccount)
	if err := r.eachPair(ctx, `SELECT name, parent FROM subaccounts ORDER BY name`, func(name, parent string) {
		subaccounts[parent] = append(subaccounts[parent], core.SubAccount{Name: name, Parent: parent})
	}); err != nil {
		return nil, err
	}

	accounts := make(map[string][]core.Account)
	if err := r.eachPair(ctx, `SELECT name, parent FROM accounts ORDER BY name`, func(name, parent string) {
		accounts[parent] = append(accounts[parent], core.Account{
			Name:        name,
			Parent:      parent,
			SubAccounts: subaccounts[name],
		})
	}); err != nil {
		return nil, err
	}

	classifications := make(map[string][]core.Classification)
	if err := r.eachPair(ctx, `SELECT name, parent FROM classifications ORDER BY name`, func(name, parent string) {
		classifications[parent] = append(classifications[parent], core.Classification{
			Name:     name,
			Parent:   parent,
			Accounts: accounts[name],
		})
	}); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT name FROM elements ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query elements: %w", err)
	}
	defer rows.Close()

	var elements []core.Element
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan element: %w", err)
		}
		elements = append(elements, core.Element{
			Name:            name,
			Classifications: classifications[name],
		})
	}
	return elements, rows.Err()
}

func (r *SQLiteRepository) eachPair(ctx context.Context, query string, fn func(name, parent string)) error {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query chart level: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, parent string
		if err := rows.Scan(&name, &parent); err != nil {
			return fmt.Errorf("scan chart row: %w", err)
		}
		fn(name, parent)
	}
	return rows.Err()
}

// SaveMemorandum implements memoranda.Store. The memorandum and its
// transactions land together or not at all.
func (r *SQLiteRepository) SaveMemorandum(ctx context.Context, m core.Memorandum, txs []core.MemorandaTransaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save memorandum: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO memoranda (id, file_name, uploaded_at) VALUES (?, ?, ?)`,
		m.ID, m.FileName, m.UploadedAt.Format(dayLayout)); err != nil {
		return fmt.Errorf("insert memorandum: %w", err)
	}
	for _, t := range txs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memoranda_transactions (memorandum_id, details) VALUES (?, ?)`,
			m.ID, t.Details); err != nil {
			return fmt.Errorf("insert memoranda transaction: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save memorandum: %w", err)
	}

	slog.InfoContext(ctx, "Memorandum saved to SQLite",
		"id", m.ID,
		"file_name", m.FileName,
		"transactions", len(txs))
	return nil
}

// ListMemoranda implements memoranda.Store.
func (r *SQLiteRepository) ListMemoranda(ctx context.Context) ([]memoranda.MemorandumSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.file_name, m.uploaded_at, COUNT(t.id)
		FROM memoranda m
		LEFT JOIN memoranda_transactions t ON t.memorandum_id = m.id
		GROUP BY m.id, m.file_name, m.uploaded_at
		ORDER BY m.uploaded_at DESC, m.id`)
	if err != nil {
		return nil, fmt.Errorf("list memoranda: %w", err)
	}
	defer rows.Close()

	var memos []memoranda.MemorandumSummary
	for rows.Next() {
		var s memoranda.MemorandumSummary
		var uploadedAt string
		if err := rows.Scan(&s.ID, &s.FileName, &uploadedAt, &s.Transactions); err != nil {
			return nil, fmt.Errorf("scan memorandum: %w", err)
		}
		if s.UploadedAt, err = parseDay(uploadedAt); err != nil {
			return nil, err
		}
		memos = append(memos, s)
	}
	return memos, rows.Err()
}

// ListTransactions implements memoranda.Store. JournalEntryID is zero
// for transactions not yet posted.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, memorandumID string) ([]core.MemorandaTransaction, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memoranda WHERE id = ?`, memorandumID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check memorandum %s: %w", memorandumID, err)
	}
	if exists == 0 {
		return nil, memoranda.ErrNotFound
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.memorandum_id, t.details, COALESCE(j.id, 0)
		FROM memoranda_transactions t
		LEFT JOIN journal_entries j ON j.transaction_id = t.id
		WHERE t.memorandum_id = ?
		ORDER BY t.id`, memorandumID)
	if err != nil {
		return nil, fmt.Errorf("list transactions of %s: %w", memorandumID, err)
	}
	defer rows.Close()

	var txs []core.MemorandaTransaction
	for rows.Next() {
		var t core.MemorandaTransaction
		if err := rows.Scan(&t.ID, &t.MemorandumID, &t.Details, &t.JournalEntryID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// SaveJournalEntry implements memoranda.Store. The journal entry and
// all its ledger entries commit together.
func (r *SQLiteRepository) SaveJournalEntry(ctx context.Context, transactionID int64, je core.JournalEntry) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin save journal entry: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO journal_entries (transaction_id) VALUES (?)`, transactionID)
	if err != nil {
		return 0, fmt.Errorf("insert journal entry: %w", err)
	}
	journalID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("journal entry id: %w", err)
	}

	for _, e := range je.Entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_entries (journal_entry_id, ledger, entry_date, tside, amount_cents, currency, entry_type)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			journalID, e.Ledger, e.Date.Format(dayLayout), string(e.Side), e.Amount.Cents, e.Currency, e.Type); err != nil {
			return 0, fmt.Errorf("insert ledger entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save journal entry: %w", err)
	}

	slog.InfoContext(ctx, "Journal entry posted",
		"journal_entry_id", journalID,
		"transaction_id", transactionID,
		"ledger_entries", len(je.Entries))
	return journalID, nil
}

// DeleteMemorandumCascade implements memoranda.Store. The whole chain
// of owned rows goes in one transaction; a missing memorandum aborts
// with ErrNotFound before anything is touched.
func (r *SQLiteRepository) DeleteMemorandumCascade(ctx context.Context, memorandumID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete cascade: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memoranda WHERE id = ?`, memorandumID).Scan(&exists); err != nil {
		return fmt.Errorf("check memorandum %s: %w", memorandumID, err)
	}
	if exists == 0 {
		return memoranda.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ledger_entries WHERE journal_entry_id IN (
			SELECT j.id FROM journal_entries j
			JOIN memoranda_transactions t ON t.id = j.transaction_id
			WHERE t.memorandum_id = ?)`, memorandumID); err != nil {
		return fmt.Errorf("delete ledger entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM journal_entries WHERE transaction_id IN (
			SELECT id FROM memoranda_transactions WHERE memorandum_id = ?)`, memorandumID); err != nil {
		return fmt.Errorf("delete journal entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM memoranda_transactions WHERE memorandum_id = ?`, memorandumID); err != nil {
		return fmt.Errorf("delete transactions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM memoranda WHERE id = ?`, memorandumID); err != nil {
		return fmt.Errorf("delete memorandum: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete cascade: %w", err)
	}
	slog.InfoContext(ctx, "Memorandum cascade deleted", "id", memorandumID)
	return nil
}
