// Package cache persists the last successful tariff aggregate to a local
// SQLite file. It is a single-slot snapshot store: every Put replaces the
// prior entry wholesale, and Get only serves entries younger than the TTL.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/tariff-radar/internal/model"
)

// DefaultTTL is the validity window for a cached snapshot.
const DefaultTTL = 24 * time.Hour

// ErrNoValidEntry is returned by Get when the slot is empty, expired, or
// unreadable.
var ErrNoValidEntry = eris.New("cache: no valid entry")

// Store is the single-slot snapshot cache.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

const migration = `
CREATE TABLE IF NOT EXISTS snapshot (
	id        INTEGER PRIMARY KEY CHECK (id = 1),
	data      TEXT NOT NULL,
	cached_at DATETIME NOT NULL
);
`

// Open opens (or creates) the cache database at path. A ttl of 0 means
// DefaultTTL.
func Open(path string, ttl time.Duration) (*Store, error) {
	if ttl == 0 {
		ttl = DefaultTTL
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "cache: migrate")
	}

	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

// WithNow injects a clock for testing.
func (s *Store) WithNow(now func() time.Time) *Store {
	s.now = now
	return s
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores the record with the current timestamp, replacing any prior
// snapshot in full. No merging across cache generations.
func (s *Store) Put(ctx context.Context, rec *model.TariffRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "cache: marshal record")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshot (id, data, cached_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, cached_at = excluded.cached_at`,
		string(data), s.now().UTC(),
	)
	if err != nil {
		return eris.Wrap(err, "cache: put")
	}
	return nil
}

// Get returns the stored record and its capture time. ErrNoValidEntry
// covers absence, expiry, and a corrupt stored payload alike — a bad slot
// is a cache miss, never a fatal condition.
func (s *Store) Get(ctx context.Context) (*model.TariffRecord, time.Time, error) {
	var data string
	var cachedAt time.Time
	err := s.db.QueryRowContext(ctx, `SELECT data, cached_at FROM snapshot WHERE id = 1`).Scan(&data, &cachedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, time.Time{}, ErrNoValidEntry
	case err != nil:
		zap.L().Warn("cache: read failed, treating as miss", zap.Error(err))
		return nil, time.Time{}, ErrNoValidEntry
	}

	if s.now().UTC().Sub(cachedAt) > s.ttl {
		return nil, time.Time{}, ErrNoValidEntry
	}

	var rec model.TariffRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		zap.L().Warn("cache: corrupt entry, treating as miss", zap.Error(err))
		return nil, time.Time{}, ErrNoValidEntry
	}

	rec.IsCached = true
	return &rec, cachedAt, nil
}
