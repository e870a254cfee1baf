package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore keeps one redis key per entry with server-side expiry. Writes
// are atomic per key, so the store is safe for concurrent writer processes,
// unlike the file snapshot backend.
type RedisStore[P any] struct {
	client *redis.Client
	name   string
	prefix string
	logger zerolog.Logger
}

// NewRedisStore creates a redis-backed store. Entries live under
// "menupipe:<name>:<normalized key>".
func NewRedisStore[P any](client *redis.Client, name string, logger zerolog.Logger) (*RedisStore[P], error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	return &RedisStore[P]{
		client: client,
		name:   name,
		prefix: "menupipe:" + name + ":",
		logger: logger.With().Str("store", name).Logger(),
	}, nil
}

func (s *RedisStore[P]) redisKey(name, source string) string {
	return s.prefix + Key(name, source)
}

// Get returns the valid entry for (name, source) or ErrCacheMiss. Redis
// normally evicts expired keys server-side; the validity check here also
// covers entries written with a different TTL than their ttl_days field.
func (s *RedisStore[P]) Get(ctx context.Context, name, source string) (*Entry[P], error) {
	data, err := s.client.Get(ctx, s.redisKey(name, source)).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.WithLabelValues(s.name).Inc()
			s.logger.Debug().Str("restaurant", name).Str("source", source).Msg("Cache MISS")
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues(s.name, "get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry[P]
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues(s.name, "get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	if !entry.Valid(time.Now()) {
		s.logger.Debug().Str("restaurant", name).Str("source", source).Msg("Cache EXPIRED")
		_ = s.Remove(ctx, name, source)
		CacheEvictions.WithLabelValues(s.name).Inc()
		CacheMisses.WithLabelValues(s.name).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(s.name).Inc()
	s.logger.Debug().Str("restaurant", name).Str("source", source).Msg("Cache HIT")
	return &entry, nil
}

// Set stores the entry with a redis expiry matching its TTL.
func (s *RedisStore[P]) Set(ctx context.Context, entry Entry[P]) error {
	ttl := time.Until(entry.ExpiresAt())
	if ttl <= 0 {
		// Already expired, don't store
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues(s.name, "set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	key := s.redisKey(entry.Name, entry.Source)
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues(s.name, "set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	s.logger.Debug().
		Str("restaurant", entry.Name).
		Str("source", entry.Source).
		Int("ttl_days", entry.TTLDays).
		Msg("Cache SET")
	return nil
}

// Remove deletes the entry for (name, source).
func (s *RedisStore[P]) Remove(ctx context.Context, name, source string) error {
	if err := s.client.Del(ctx, s.redisKey(name, source)).Err(); err != nil {
		CacheErrors.WithLabelValues(s.name, "remove").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear removes every entry belonging to this store.
func (s *RedisStore[P]) Clear(ctx context.Context) error {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// CleanupExpired sweeps entries whose validity window has passed but that
// redis has not evicted yet (TTL drift). Usually returns 0.
func (s *RedisStore[P]) CleanupExpired(ctx context.Context) (int, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	removed := 0

	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var entry Entry[P]
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		if !entry.Valid(now) {
			if err := s.client.Del(ctx, key).Err(); err == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		CacheEvictions.WithLabelValues(s.name).Add(float64(removed))
		s.logger.Info().Int("removed", removed).Msg("Cache cleanup removed expired entries")
	}
	return removed, nil
}

// Stats reports entry counts computed against the current time.
func (s *RedisStore[P]) Stats(ctx context.Context) (Stats, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return Stats{}, err
	}

	now := time.Now()
	stats := Stats{Total: len(keys)}

	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var entry Entry[P]
		if err := json.Unmarshal(data, &entry); err != nil {
			stats.Expired++
			continue
		}
		if entry.Valid(now) {
			stats.Valid++
		} else {
			stats.Expired++
		}
	}

	return stats, nil
}

// Close is a no-op: the redis client is owned by the caller.
func (s *RedisStore[P]) Close() error {
	return nil
}

func (s *RedisStore[P]) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}
