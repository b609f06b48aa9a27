package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *Store) GetSignal(ctx context.Context, key string) (string, error) {
	var value string
	err := s.reader.QueryRowContext(ctx, `SELECT value FROM sync_signals WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get signal: %w", err)
	}
	return value, nil
}

func (s *Store) SetSignal(ctx context.Context, key, value string) error {
	_, err := s.writer.ExecContext(ctx,
		`INSERT INTO sync_signals (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value,
		 updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set signal: %w", err)
	}
	return nil
}

// Signals exposes the signal table as a get/set store. Processes sharing the
// database file see each other's signals by polling.
func (s *Store) Signals() SignalKV {
	return SignalKV{s}
}

type SignalKV struct{ s *Store }

func (k SignalKV) Get(ctx context.Context, key string) (string, error) {
	return k.s.GetSignal(ctx, key)
}

func (k SignalKV) Set(ctx context.Context, key, value string) error {
	return k.s.SetSignal(ctx, key, value)
}
