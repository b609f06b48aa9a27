// Package store keeps ledger entries and sync signals in SQLite. Writes go
// through a single connection; reads use a pool.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	_ "modernc.org/sqlite"
)

// EntryFilter narrows ListEntries. Zero fields match everything.
type EntryFilter struct {
	Ledger ledger.Ledger
	Party  string
	From   ledger.Date
	To     ledger.Date
	Limit  int
	Offset int
}

type Store struct {
	writer *sql.DB
	reader *sql.DB
}

// Open opens or creates the database at dbPath, creating missing parent
// directories, and applies pending migrations.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(runtime.NumCPU())

	s := &Store{writer: writer, reader: reader}
	if err := s.migrate(context.Background()); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate %s: %w", dbPath, err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return errors.Join(s.writer.Close(), s.reader.Close())
}
