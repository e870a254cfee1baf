package cache

import "strings"

// Key generates the normalized cache key for a restaurant and source.
// Format: lowercase(trim(name)) + "_" + source.
//
// Normalization is idempotent and collapses casing/whitespace variants of the
// same name into one slot. It deliberately does not collapse near-duplicate
// spellings ("Tony's" vs "Tonys"); those remain distinct slots.
func Key(name, source string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "_" + source
}
