// Package menus orchestrates menu scraping per (restaurant, source) pair:
// reuse a cached artifact when one is valid, otherwise fetch through the
// scrape client, persist the raw payload to disk and record a cache pointer.
package menus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Source tags for the supported scrape platforms.
const (
	SourceYelp      = "yelp"
	SourceOpenTable = "opentable"
)

// MenuData represents scraped menu data for a restaurant. The raw payload is
// service-specific and passed through opaquely.
type MenuData struct {
	RestaurantName string          `json:"restaurant_name"`
	Source         string          `json:"source"`
	URL            string          `json:"url"`
	RawData        json.RawMessage `json:"raw_data"`
	ScrapedAt      time.Time       `json:"scraped_at"`
}

// CachePointer is the scrape-cache payload. The cache holds a pointer; the
// heavy raw payload lives in the file at FilePath.
type CachePointer struct {
	MenuURL  string `json:"menu_url"`
	FilePath string `json:"file_path,omitempty"`
}

// safeFileName lowercases the restaurant name and replaces every
// non-alphanumeric rune with an underscore.
func safeFileName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// SaveToFile writes the menu data as a JSON file under dir, named
// <safe_name>_<source>_<date>.json, and returns the file path.
//
// The file is written without re-indentation or HTML escaping: the opaque
// raw payload must survive the round trip through disk byte for byte.
func (m *MenuData) SaveToFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create raw data dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_%s.json",
		safeFileName(m.RestaurantName), m.Source, m.ScrapedAt.Format("2006-01-02"))
	path := filepath.Join(dir, filename)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return "", fmt.Errorf("marshal menu data: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write menu data: %w", err)
	}

	return path, nil
}

// loadMenuData reads a persisted raw payload file back into MenuData.
func loadMenuData(path string) (*MenuData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu data: %w", err)
	}

	var m MenuData
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse menu data: %w", err)
	}

	return &m, nil
}
