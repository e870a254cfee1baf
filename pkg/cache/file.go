package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// FileStore persists the whole store as a single JSON snapshot file mapping
// normalized keys to entries. Every mutation rewrites the full file.
//
// The store is best-effort durable, not crash-safe, and assumes exactly one
// writer process. Concurrent writers lose updates (last writer wins); use
// RedisStore or SQLiteStore when multiple processes share a cache.
type FileStore[P any] struct {
	path    string
	name    string
	entries map[string]Entry[P]
	logger  zerolog.Logger
}

// NewFileStore creates a file-backed store and loads the existing snapshot.
// A missing, unreadable or corrupt snapshot is treated as an empty store.
// The name labels log lines and metrics ("scrape", "extraction").
func NewFileStore[P any](path, name string, logger zerolog.Logger) (*FileStore[P], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	s := &FileStore[P]{
		path:    path,
		name:    name,
		entries: make(map[string]Entry[P]),
		logger:  logger.With().Str("store", name).Logger(),
	}
	s.load()

	return s, nil
}

// load reads the snapshot file into memory. Never fails: corruption is
// logged and the store starts empty.
func (s *FileStore[P]) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("Cache snapshot unreadable, starting empty")
		}
		return
	}

	var entries map[string]Entry[P]
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("Cache snapshot corrupt, starting empty")
		return
	}

	s.entries = entries
	s.logger.Info().Int("entries", len(entries)).Str("path", s.path).Msg("Loaded cache snapshot")
}

// persist rewrites the full snapshot file.
func (s *FileStore[P]) persist() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		CacheErrors.WithLabelValues(s.name, "persist").Inc()
		return fmt.Errorf("marshal cache snapshot: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		CacheErrors.WithLabelValues(s.name, "persist").Inc()
		return fmt.Errorf("write cache snapshot: %w", err)
	}

	s.logger.Debug().Int("entries", len(s.entries)).Str("path", s.path).Msg("Saved cache snapshot")
	return nil
}

// Get returns the valid entry for (name, source) or ErrCacheMiss. An expired
// entry is evicted as a side effect.
func (s *FileStore[P]) Get(ctx context.Context, name, source string) (*Entry[P], error) {
	key := Key(name, source)

	entry, ok := s.entries[key]
	if !ok {
		CacheMisses.WithLabelValues(s.name).Inc()
		s.logger.Debug().Str("restaurant", name).Str("source", source).Msg("Cache MISS")
		return nil, ErrCacheMiss
	}

	if !entry.Valid(time.Now()) {
		s.logger.Debug().Str("restaurant", name).Str("source", source).Msg("Cache EXPIRED")
		delete(s.entries, key)
		CacheEvictions.WithLabelValues(s.name).Inc()
		CacheMisses.WithLabelValues(s.name).Inc()
		if err := s.persist(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to persist after eviction")
		}
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(s.name).Inc()
	s.logger.Debug().Str("restaurant", name).Str("source", source).Msg("Cache HIT")
	return &entry, nil
}

// Set stores the entry under its normalized key, replacing any previous
// value, and persists the snapshot immediately.
func (s *FileStore[P]) Set(ctx context.Context, entry Entry[P]) error {
	key := Key(entry.Name, entry.Source)
	s.entries[key] = entry

	if err := s.persist(); err != nil {
		return err
	}

	s.logger.Debug().
		Str("restaurant", entry.Name).
		Str("source", entry.Source).
		Int("ttl_days", entry.TTLDays).
		Msg("Cache SET")
	return nil
}

// Remove deletes the entry for (name, source) and persists.
func (s *FileStore[P]) Remove(ctx context.Context, name, source string) error {
	key := Key(name, source)
	if _, ok := s.entries[key]; !ok {
		return nil
	}

	delete(s.entries, key)
	return s.persist()
}

// Clear removes all entries and persists.
func (s *FileStore[P]) Clear(ctx context.Context) error {
	s.entries = make(map[string]Entry[P])
	return s.persist()
}

// CleanupExpired sweeps the store, evicting every expired entry. The
// snapshot is rewritten once, and only if anything was removed.
func (s *FileStore[P]) CleanupExpired(ctx context.Context) (int, error) {
	now := time.Now()

	var removed []string
	for key, entry := range s.entries {
		if !entry.Valid(now) {
			removed = append(removed, key)
		}
	}

	for _, key := range removed {
		delete(s.entries, key)
	}

	if len(removed) > 0 {
		CacheEvictions.WithLabelValues(s.name).Add(float64(len(removed)))
		s.logger.Info().Int("removed", len(removed)).Msg("Cache cleanup removed expired entries")
		if err := s.persist(); err != nil {
			return len(removed), err
		}
	}

	return len(removed), nil
}

// Stats reports entry counts computed against the current time.
func (s *FileStore[P]) Stats(ctx context.Context) (Stats, error) {
	now := time.Now()

	stats := Stats{Total: len(s.entries)}
	for _, entry := range s.entries {
		if entry.Valid(now) {
			stats.Valid++
		} else {
			stats.Expired++
		}
	}

	return stats, nil
}

// Close is a no-op for the file backend.
func (s *FileStore[P]) Close() error {
	return nil
}
