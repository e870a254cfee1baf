package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps entries in an embedded database with primary-key
// upserts. The connection pool is capped at one writer, so mutations are
// serialized without whole-file rewrites.
type SQLiteStore[P any] struct {
	db     *sql.DB
	name   string
	logger zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// schema exists.
func NewSQLiteStore[P any](dbPath, name string, logger zerolog.Logger) (*SQLiteStore[P], error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore[P]{
		db:     db,
		name:   name,
		logger: logger.With().Str("store", name).Logger(),
	}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore[P]) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			key        TEXT PRIMARY KEY,
			entry      TEXT NOT NULL,
			expires_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_entries_expires ON entries(expires_at);
	`)
	if err != nil {
		return fmt.Errorf("initialize cache schema: %w", err)
	}
	return nil
}

// Get returns the valid entry for (name, source) or ErrCacheMiss. An expired
// row is deleted as a side effect.
func (s *SQLiteStore[P]) Get(ctx context.Context, name, source string) (*Entry[P], error) {
	key := Key(name, source)

	var data string
	err := s.db.QueryRowContext(ctx, "SELECT entry FROM entries WHERE key = ?", key).Scan(&data)
	if err == sql.ErrNoRows {
		CacheMisses.WithLabelValues(s.name).Inc()
		s.logger.Debug().Str("restaurant", name).Str("source", source).Msg("Cache MISS")
		return nil, ErrCacheMiss
	}
	if err != nil {
		CacheErrors.WithLabelValues(s.name, "get").Inc()
		return nil, fmt.Errorf("query cache entry: %w", err)
	}

	var entry Entry[P]
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		CacheErrors.WithLabelValues(s.name, "get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if !entry.Valid(time.Now()) {
		s.logger.Debug().Str("restaurant", name).Str("source", source).Msg("Cache EXPIRED")
		if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE key = ?", key); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to evict expired entry")
		}
		CacheEvictions.WithLabelValues(s.name).Inc()
		CacheMisses.WithLabelValues(s.name).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(s.name).Inc()
	s.logger.Debug().Str("restaurant", name).Str("source", source).Msg("Cache HIT")
	return &entry, nil
}

// Set upserts the entry under its normalized key.
func (s *SQLiteStore[P]) Set(ctx context.Context, entry Entry[P]) error {
	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues(s.name, "set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	key := Key(entry.Name, entry.Source)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (key, entry, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			entry = excluded.entry,
			expires_at = excluded.expires_at
	`, key, string(data), entry.ExpiresAt().UTC())
	if err != nil {
		CacheErrors.WithLabelValues(s.name, "set").Inc()
		return fmt.Errorf("upsert cache entry: %w", err)
	}

	s.logger.Debug().
		Str("restaurant", entry.Name).
		Str("source", entry.Source).
		Int("ttl_days", entry.TTLDays).
		Msg("Cache SET")
	return nil
}

// Remove deletes the entry for (name, source).
func (s *SQLiteStore[P]) Remove(ctx context.Context, name, source string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE key = ?", Key(name, source))
	if err != nil {
		CacheErrors.WithLabelValues(s.name, "remove").Inc()
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Clear removes all entries.
func (s *SQLiteStore[P]) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries"); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// CleanupExpired deletes every row whose validity window has passed.
func (s *SQLiteStore[P]) CleanupExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM entries WHERE expires_at <= ?", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup expired entries: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		CacheEvictions.WithLabelValues(s.name).Add(float64(removed))
		s.logger.Info().Int64("removed", removed).Msg("Cache cleanup removed expired entries")
	}
	return int(removed), nil
}

// Stats reports entry counts computed against the current time.
func (s *SQLiteStore[P]) Stats(ctx context.Context) (Stats, error) {
	now := time.Now().UTC()

	var stats Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN expires_at > ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0)
		FROM entries
	`, now, now).Scan(&stats.Total, &stats.Valid, &stats.Expired)
	if err != nil {
		return Stats{}, fmt.Errorf("query cache stats: %w", err)
	}

	return stats, nil
}

// Close closes the underlying database.
func (s *SQLiteStore[P]) Close() error {
	return s.db.Close()
}
