package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
)

const entryColumns = `id, ledger, entry_type, entry_date, particulars, voucher_type, voucher_no,
	party, category, source, debit, credit, created_at`

// CreateEntry inserts e. Expense entries are mirrored into the bank ledger
// with source "expense" and the amounts swapped, since the bank pays them.
func (s *Store) CreateEntry(ctx context.Context, e *ledger.Entry) error {
	if e.ID == "" {
		e.ID = uuid.Must(uuid.NewV7()).String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := e.Validate(); err != nil {
		return err
	}

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertEntry(ctx, tx, e, ""); err != nil {
		return err
	}

	if e.Ledger == ledger.LedgerExpense {
		mirror := ledger.Entry{
			ID:          uuid.Must(uuid.NewV7()).String(),
			Ledger:      ledger.LedgerBank,
			Date:        e.Date,
			Particulars: e.Particulars,
			VoucherType: e.VoucherType,
			VoucherNo:   e.VoucherNo,
			Party:       e.Party,
			Category:    e.Category,
			Source:      string(ledger.LedgerExpense),
			Debit:       e.Credit,
			Credit:      e.Debit,
			CreatedAt:   e.CreatedAt,
		}
		if err := insertEntry(ctx, tx, &mirror, e.ID); err != nil {
			return fmt.Errorf("mirror expense: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, e *ledger.Entry, linkedID string) error {
	date := ""
	if !e.Date.IsZero() {
		date = e.Date.String()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (id, ledger, entry_type, entry_date, particulars, voucher_type, voucher_no,
			party, category, source, linked_id, debit, credit, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Ledger), e.EntryType, date, e.Particulars, e.VoucherType, e.VoucherNo,
		e.Party, e.Category, e.Source, linkedID, e.Debit.String(), e.Credit.String(),
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, l ledger.Ledger, id string) (*ledger.Entry, error) {
	row := s.reader.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE ledger = ? AND id = ?`, string(l), id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListEntries returns entries newest first; undated entries come last.
func (s *Store) ListEntries(ctx context.Context, filter EntryFilter) ([]ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE 1=1`
	args := []any{}

	if filter.Ledger != "" {
		query += ` AND ledger = ?`
		args = append(args, string(filter.Ledger))
	}
	if filter.Party != "" {
		query += ` AND party = ? COLLATE NOCASE`
		args = append(args, filter.Party)
	}
	if !filter.From.IsZero() {
		query += ` AND entry_date != '' AND entry_date >= ?`
		args = append(args, filter.From.String())
	}
	if !filter.To.IsZero() {
		query += ` AND entry_date != '' AND entry_date <= ?`
		args = append(args, filter.To.String())
	}

	query += ` ORDER BY entry_date = '', entry_date DESC, created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(` OFFSET %d`, filter.Offset)
		}
	}

	rows, err := s.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// DeleteEntry removes an entry and anything mirrored from it. For the vendor
// ledger a non-empty entryType must match the stored one.
func (s *Store) DeleteEntry(ctx context.Context, l ledger.Ledger, entryType, id string) error {
	if id == "" {
		return ledger.ErrMissingID
	}

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `DELETE FROM ledger_entries WHERE ledger = ? AND id = ?`
	args := []any{string(l), id}
	if l == ledger.LedgerVendor && entryType != "" {
		query += ` AND entry_type = ?`
		args = append(args, entryType)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n == 0 {
		return ledger.ErrEntryNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_entries WHERE linked_id = ?`, id); err != nil {
		return fmt.Errorf("delete mirrored entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*ledger.Entry, error) {
	var e ledger.Entry
	var l, date, debit, credit, createdAt string
	err := row.Scan(&e.ID, &l, &e.EntryType, &date, &e.Particulars, &e.VoucherType, &e.VoucherNo,
		&e.Party, &e.Category, &e.Source, &debit, &credit, &createdAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	e.Ledger = ledger.Ledger(l)
	// Stored values were validated on insert; a bad row degrades to zero.
	e.Date, _ = ledger.ParseDate(date)
	e.Debit, _ = decimal.NewFromString(debit)
	e.Credit, _ = decimal.NewFromString(credit)
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &e, nil
}
