package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const createResponses = `CREATE TABLE IF NOT EXISTS responses (
	url           TEXT PRIMARY KEY,
	etag          TEXT NOT NULL DEFAULT '',
	last_modified TEXT NOT NULL DEFAULT '',
	body          BLOB,
	stored_at     INTEGER NOT NULL,
	expires_at    INTEGER NOT NULL
)`

// sqliteStore implements a Store backed by a SQLite file.
type sqliteStore struct {
	db              *sql.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	ttl             time.Duration
	cleanupInterval time.Duration
}

func openSQLite(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=rwc&_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(createResponses); err != nil {
		db.Close()
		return nil, fmt.Errorf("init responses table: %w", err)
	}

	store := &sqliteStore{
		db:              db,
		ttl:             opts.TTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Lookup(ctx context.Context, url string) (Entry, bool, error) {
	now := time.Now()
	if err := s.maybeCleanupExpired(ctx, now); err != nil {
		return Entry{}, false, err
	}

	var (
		entry     Entry
		storedAt  int64
		expiresAt int64
	)
	row := s.db.QueryRowContext(ctx,
		`SELECT etag, last_modified, body, stored_at, expires_at FROM responses WHERE url = ?`, url)
	err := row.Scan(&entry.ETag, &entry.LastModified, &entry.Body, &storedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("lookup response: %w", err)
	}
	if expiresAt <= now.Unix() {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM responses WHERE url = ?`, url); err != nil {
			return Entry{}, false, fmt.Errorf("delete expired response: %w", err)
		}
		return Entry{}, false, nil
	}
	entry.StoredAt = time.Unix(storedAt, 0)
	return entry, true, nil
}

func (s *sqliteStore) Save(ctx context.Context, url string, entry Entry) error {
	now := time.Now()
	if err := s.maybeCleanupExpired(ctx, now); err != nil {
		return err
	}
	storedAt := entry.StoredAt
	if storedAt.IsZero() {
		storedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO responses (url, etag, last_modified, body, stored_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)`,
		url, entry.ETag, entry.LastModified, entry.Body, storedAt.Unix(), now.Add(s.ttl).Unix())
	if err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	return nil
}

func (s *sqliteStore) maybeCleanupExpired(ctx context.Context, now time.Time) error {
	last := time.Unix(s.lastCleanup.Load(), 0)
	if now.Sub(last) < s.cleanupInterval {
		return nil
	}

	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()

	last = time.Unix(s.lastCleanup.Load(), 0)
	if now.Sub(last) < s.cleanupInterval {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM responses WHERE expires_at <= ?`, now.Unix()); err != nil {
		return fmt.Errorf("cleanup expired responses: %w", err)
	}
	s.lastCleanup.Store(now.Unix())
	return nil
}
