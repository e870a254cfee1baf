package menus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/laneric/menupipe/pkg/cache"
	"github.com/laneric/menupipe/pkg/discovery"
)

// ScrapeClient is the slice of the scrape backend client the orchestrator
// needs. *scrape.Client satisfies it.
type ScrapeClient interface {
	ScrapeYelpBusiness(ctx context.Context, businessURL string, includeReviews bool) (json.RawMessage, error)
	ScrapeOpenTableRestaurant(ctx context.Context, restaurantURL string) (json.RawMessage, error)
}

// Config holds scraper configuration.
type Config struct {
	// RawDataDir is where raw scraped payloads are persisted.
	RawDataDir string

	// TTLDays is the lifetime of new cache entries.
	TTLDays int

	// UseCache enables fetch-or-reuse; when false every scrape fetches.
	UseCache bool

	// Logger is the observability sink for this scraper.
	Logger zerolog.Logger
}

// DefaultConfig returns a default scraper configuration.
func DefaultConfig() Config {
	return Config{
		RawDataDir: "data/raw/menus",
		TTLDays:    7,
		UseCache:   true,
	}
}

// Scraper fetches or reuses menu data per (restaurant, source) pair.
type Scraper struct {
	client ScrapeClient
	store  cache.Store[CachePointer]
	config Config
	logger zerolog.Logger
}

// NewScraper creates a menu scraper backed by the given client and cache store.
func NewScraper(client ScrapeClient, store cache.Store[CachePointer], cfg Config) (*Scraper, error) {
	if client == nil {
		return nil, fmt.Errorf("scrape client is required")
	}
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if cfg.RawDataDir == "" {
		cfg.RawDataDir = "data/raw/menus"
	}
	if cfg.TTLDays <= 0 {
		cfg.TTLDays = 7
	}

	if err := os.MkdirAll(cfg.RawDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create raw data dir: %w", err)
	}

	return &Scraper{
		client: client,
		store:  store,
		config: cfg,
		logger: cfg.Logger.With().Str("component", "menu-scraper").Logger(),
	}, nil
}

// fromCache tries to serve (name, source) from the cache pointer. A missing
// or corrupt payload file is not fatal: the caller falls through to a fetch.
func (s *Scraper) fromCache(ctx context.Context, name, source string) *MenuData {
	entry, err := s.store.Get(ctx, name, source)
	if err != nil || entry.Payload.FilePath == "" {
		return nil
	}

	data, err := loadMenuData(entry.Payload.FilePath)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("restaurant", name).
			Str("source", source).
			Str("file_path", entry.Payload.FilePath).
			Msg("Cached payload unreadable, re-scraping")
		return nil
	}

	s.logger.Debug().
		Str("restaurant", name).
		Str("source", source).
		Msg("Using cached menu data")
	return data
}

// persist writes the raw payload to disk and records a cache pointer with a
// content digest for change detection.
func (s *Scraper) persist(ctx context.Context, data *MenuData) {
	path, err := data.SaveToFile(s.config.RawDataDir)
	if err != nil {
		s.logger.Warn().Err(err).Str("restaurant", data.RestaurantName).Msg("Failed to persist raw payload")
		return
	}

	if !s.config.UseCache {
		return
	}

	entry := cache.Entry[CachePointer]{
		Name:        data.RestaurantName,
		Source:      data.Source,
		FetchedAt:   data.ScrapedAt,
		TTLDays:     s.config.TTLDays,
		ContentHash: fmt.Sprintf("%016x", xxhash.Sum64(data.RawData)),
		Payload: CachePointer{
			MenuURL:  data.URL,
			FilePath: path,
		},
	}
	if err := s.store.Set(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("restaurant", data.RestaurantName).Msg("Failed to cache scrape pointer")
	}
}

// scrapeSource runs the fetch-or-reuse state machine for one source.
func (s *Scraper) scrapeSource(ctx context.Context, name, source, sourceURL string, fetch func() (json.RawMessage, error)) (*MenuData, error) {
	if s.config.UseCache {
		if data := s.fromCache(ctx, name, source); data != nil {
			return data, nil
		}
	}

	raw, err := fetch()
	if err != nil {
		return nil, fmt.Errorf("scrape %s for %s: %w", source, name, err)
	}

	data := &MenuData{
		RestaurantName: name,
		Source:         source,
		URL:            sourceURL,
		RawData:        raw,
		ScrapedAt:      time.Now().UTC(),
	}
	s.persist(ctx, data)

	return data, nil
}

// ScrapeYelp fetches or reuses yelp menu data for a restaurant.
func (s *Scraper) ScrapeYelp(ctx context.Context, name, yelpURL string, includeReviews bool) (*MenuData, error) {
	return s.scrapeSource(ctx, name, SourceYelp, yelpURL, func() (json.RawMessage, error) {
		return s.client.ScrapeYelpBusiness(ctx, yelpURL, includeReviews)
	})
}

// ScrapeOpenTable fetches or reuses opentable menu data for a restaurant.
func (s *Scraper) ScrapeOpenTable(ctx context.Context, name, openTableURL string) (*MenuData, error) {
	return s.scrapeSource(ctx, name, SourceOpenTable, openTableURL, func() (json.RawMessage, error) {
		return s.client.ScrapeOpenTableRestaurant(ctx, openTableURL)
	})
}

// Options selects which sources to scrape.
type Options struct {
	Yelp           bool
	OpenTable      bool
	IncludeReviews bool
}

// DefaultOptions scrapes both sources with reviews.
func DefaultOptions() Options {
	return Options{Yelp: true, OpenTable: true, IncludeReviews: true}
}

// Result holds per-source outcomes for one restaurant. Partial availability
// (one source present, the other absent) is a normal outcome, not an error;
// per-source failures are recorded, never raised.
type Result struct {
	Yelp         *MenuData
	OpenTable    *MenuData
	YelpErr      error
	OpenTableErr error
}

// ScrapeRestaurant runs the fetch-or-reuse state machine independently for
// each requested source. One source's failure never aborts the other.
func (s *Scraper) ScrapeRestaurant(ctx context.Context, ident discovery.Identifier, opts Options) Result {
	var result Result

	if opts.Yelp && ident.YelpURL != "" {
		result.Yelp, result.YelpErr = s.ScrapeYelp(ctx, ident.Name, ident.YelpURL, opts.IncludeReviews)
		if result.YelpErr != nil {
			s.logger.Warn().Err(result.YelpErr).Str("restaurant", ident.Name).Msg("Yelp scrape failed")
		}
	}

	if opts.OpenTable && ident.OpenTableURL != "" {
		result.OpenTable, result.OpenTableErr = s.ScrapeOpenTable(ctx, ident.Name, ident.OpenTableURL)
		if result.OpenTableErr != nil {
			s.logger.Warn().Err(result.OpenTableErr).Str("restaurant", ident.Name).Msg("OpenTable scrape failed")
		}
	}

	return result
}

// BatchEntry records one restaurant's outcome in a batch scrape.
type BatchEntry struct {
	RestaurantName string    `json:"restaurant_name"`
	Location       string    `json:"location"`
	YelpOK         bool      `json:"yelp_success"`
	OpenTableOK    bool      `json:"opentable_success"`
	Yelp           *MenuData `json:"yelp_data,omitempty"`
	OpenTable      *MenuData `json:"opentable_data,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// BatchScrape scrapes restaurants sequentially. Per-restaurant failures are
// recorded in the entry and never abort the remaining restaurants; the batch
// always returns one entry per identifier, in input order.
func (s *Scraper) BatchScrape(ctx context.Context, idents []discovery.Identifier, opts Options) []BatchEntry {
	entries := make([]BatchEntry, 0, len(idents))

	for i, ident := range idents {
		s.logger.Info().
			Int("index", i+1).
			Int("total", len(idents)).
			Str("restaurant", ident.Name).
			Msg("Scraping restaurant")

		result := s.ScrapeRestaurant(ctx, ident, opts)

		entry := BatchEntry{
			RestaurantName: ident.Name,
			Location:       ident.Location,
			YelpOK:         result.Yelp != nil,
			OpenTableOK:    result.OpenTable != nil,
			Yelp:           result.Yelp,
			OpenTable:      result.OpenTable,
		}
		if result.YelpErr != nil {
			entry.Error = result.YelpErr.Error()
		}
		if result.OpenTableErr != nil {
			if entry.Error != "" {
				entry.Error += "; "
			}
			entry.Error += result.OpenTableErr.Error()
		}

		entries = append(entries, entry)
	}

	return entries
}
