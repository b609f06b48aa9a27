package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var version int
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version < 1 {
		if err := migrateV1(ctx, tx); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return tx.Commit()
}

func migrateV1(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id           TEXT PRIMARY KEY,
			ledger       TEXT NOT NULL CHECK (ledger IN ('company','vendor','expense','bank')),
			entry_type   TEXT NOT NULL DEFAULT '',
			entry_date   TEXT NOT NULL DEFAULT '',
			particulars  TEXT NOT NULL,
			voucher_type TEXT NOT NULL DEFAULT '',
			voucher_no   TEXT NOT NULL DEFAULT '',
			party        TEXT NOT NULL DEFAULT '',
			category     TEXT NOT NULL DEFAULT '',
			source       TEXT NOT NULL DEFAULT '',
			linked_id    TEXT NOT NULL DEFAULT '',
			debit        TEXT NOT NULL DEFAULT '0',
			credit       TEXT NOT NULL DEFAULT '0',
			created_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_ledger_date ON ledger_entries(ledger, entry_date)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_party ON ledger_entries(party)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_linked ON ledger_entries(linked_id)`,

		// Shared sync signal keys, one row per key family.
		`CREATE TABLE IF NOT EXISTS sync_signals (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		)`,

		`INSERT INTO schema_version (version) VALUES (1)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}
	return nil
}
