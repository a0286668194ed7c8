package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS responses (
	key       TEXT PRIMARY KEY,
	body      BLOB NOT NULL,
	stored_at INTEGER NOT NULL
);
`

// SQLite is the persistent backend: a single-file store safe for one
// writer and concurrent readers. WAL mode keeps readers unblocked while
// the write mutex serializes mutations within the process.
type SQLite struct {
	db      *sql.DB
	expire  time.Duration
	writeMu sync.Mutex

	now func() time.Time
}

// NewSQLite opens (creating if necessary) the store file at path.
func NewSQLite(path string, expire time.Duration) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db, expire: expire, now: time.Now}, nil
}

// Get returns the cached body for key if the entry is still live.
// Expired rows are deleted on the spot so the file does not grow
// unbounded with dead entries.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var (
		body     []byte
		storedAt int64
	)
	row := s.db.QueryRowContext(ctx, `SELECT body, stored_at FROM responses WHERE key = ?`, key)
	if err := row.Scan(&body, &storedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache row: %w", err)
	}

	if s.now().Sub(time.Unix(storedAt, 0)) >= s.expire {
		s.writeMu.Lock()
		_, err := s.db.ExecContext(ctx, `DELETE FROM responses WHERE key = ? AND stored_at = ?`, key, storedAt)
		s.writeMu.Unlock()
		if err != nil {
			return nil, false, fmt.Errorf("evict expired row: %w", err)
		}
		return nil, false, nil
	}
	return body, true, nil
}

// Put stores body under key, replacing any previous entry.
func (s *SQLite) Put(ctx context.Context, key string, body []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO responses (key, body, stored_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET body = excluded.body, stored_at = excluded.stored_at`,
		key, body, s.now().Unix())
	if err != nil {
		return fmt.Errorf("write cache row: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("close cache db: %w", err)
	}
	return nil
}
