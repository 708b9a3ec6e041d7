package slotstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS slots (
	name       TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_slots_expires_at ON slots(expires_at);
`

// SQLite is a Store backed by a database file, so separate processes on one
// machine can hand archives to each other.
type SQLite struct {
	db    *sql.DB
	nowFn func() time.Time
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("slotstore: create data directory: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("slotstore: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("slotstore: create slots table: %w", err)
	}
	return &SQLite{db: db, nowFn: time.Now}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Put(ctx context.Context, slot string, payload []byte, ttl time.Duration) error {
	if slot == "" {
		return ErrEmptySlot
	}
	now := s.nowFn()
	if payload == nil {
		payload = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (name, payload, expires_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			payload = excluded.payload,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		slot, payload, expiry(now, ttl), now.UnixNano())
	if err != nil {
		return fmt.Errorf("slotstore: put %q: %w", slot, err)
	}
	return nil
}

func (s *SQLite) Peek(ctx context.Context, slot string) ([]byte, bool, error) {
	if slot == "" {
		return nil, false, ErrEmptySlot
	}
	var (
		payload  []byte
		expireAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT payload, expires_at FROM slots WHERE name = ?`, slot).Scan(&payload, &expireAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("slotstore: peek %q: %w", slot, err)
	}
	if expired(expireAt, s.nowFn()) {
		if _, err := s.Delete(ctx, slot); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return payload, true, nil
}

// Take deletes the row and returns its payload in one statement, so two
// processes racing on a slot cannot both receive it.
func (s *SQLite) Take(ctx context.Context, slot string) ([]byte, bool, error) {
	if slot == "" {
		return nil, false, ErrEmptySlot
	}
	var (
		payload  []byte
		expireAt int64
	)
	err := s.db.QueryRowContext(ctx, `DELETE FROM slots WHERE name = ? RETURNING payload, expires_at`, slot).Scan(&payload, &expireAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("slotstore: take %q: %w", slot, err)
	}
	if expired(expireAt, s.nowFn()) {
		return nil, false, nil
	}
	return payload, true, nil
}

func (s *SQLite) Delete(ctx context.Context, slot string) (bool, error) {
	if slot == "" {
		return false, ErrEmptySlot
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE name = ?`, slot)
	if err != nil {
		return false, fmt.Errorf("slotstore: delete %q: %w", slot, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Sweep removes expired slots and returns how many it dropped.
func (s *SQLite) Sweep(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE expires_at != 0 AND expires_at <= ?`, s.nowFn().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("slotstore: sweep: %w", err)
	}
	return res.RowsAffected()
}
