// Package cache provides TTL-bounded key/value stores for the menu pipeline.
//
// Two independently configured stores exist in a deployment: a short-lived one
// for raw scrape pointers and a longer-lived one for structured extraction
// results. Both share the same semantics:
//
//   - Keys are normalized from (restaurant name, source): lowercased, trimmed,
//     joined with "_". Casing and whitespace variants collapse to one slot;
//     near-duplicate names ("Tony's" vs "Tonys") do not.
//   - An entry is valid iff now < fetched_at + ttl_days. The boundary is
//     exclusive. Expired entries are evicted lazily on the next touch, or in
//     bulk via CleanupExpired.
//   - Set is full replacement; entries are never merged in place.
//
// Three backends implement the Store interface:
//
//   - FileStore persists the whole store as one JSON snapshot file. Every
//     mutation rewrites the full file, so it assumes a single writer process.
//     Corrupt or unreadable snapshots are treated as an empty store at load.
//   - RedisStore uses one redis key per entry with server-side expiry, and is
//     safe for concurrent writers.
//   - SQLiteStore uses an embedded database with primary-key upserts and a
//     single-writer connection.
//
// # Basic Usage
//
//	store, err := cache.NewFileStore[menus.CachePointer](
//		"data/cache/scraping_cache.json", "scrape", logger)
//	if err != nil {
//		return err
//	}
//
//	entry, err := store.Get(ctx, "Tony's Pizza", "yelp")
//	if err == cache.ErrCacheMiss {
//		// fetch from the backend
//	}
//
// # Metrics
//
// All backends export Prometheus metrics labeled by store name:
//
//   - menupipe_cache_hits_total{store}
//   - menupipe_cache_misses_total{store}
//   - menupipe_cache_evictions_total{store}
//   - menupipe_cache_errors_total{store,operation}
package cache
