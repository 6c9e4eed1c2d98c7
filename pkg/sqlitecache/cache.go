// Package sqlitecache is a fintrack.LocalCache stored in a SQLite file, so
// the last known transaction list survives restarts.
package sqlitecache

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/eshaffer321/fintrack-go/pkg/fintrack"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

// Cache implements fintrack.LocalCache
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

var _ fintrack.LocalCache = (*Cache)(nil)

// Open opens or creates the database at path and applies migrations
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, errors.Wrap(err, "create cache directory")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database")
	}
	// One writer at a time; SQLite serializes writes anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	if err := RunMigrations(path); err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db, now: time.Now}, nil
}

// Get returns nil, nil for a missing key
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.db.QueryRowContext(ctx, `SELECT value FROM cache_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read cache key %q", key)
	}
	return value, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO cache_entries (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, c.now().UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "write cache key %q", key)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return errors.Wrapf(err, "delete cache key %q", key)
	}
	return nil
}

// Close closes the database
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
