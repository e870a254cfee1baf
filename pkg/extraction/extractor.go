package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/laneric/menupipe/pkg/cache"
	"github.com/laneric/menupipe/pkg/discovery"
	"github.com/laneric/menupipe/pkg/menus"
)

// RestaurantScraper is the slice of the menu scraper the extractor needs.
// *menus.Scraper satisfies it.
type RestaurantScraper interface {
	ScrapeRestaurant(ctx context.Context, ident discovery.Identifier, opts menus.Options) menus.Result
}

// Config holds extractor configuration.
type Config struct {
	// Completer is the completion backend. When nil and APIKey is set, an
	// Anthropic backend is constructed; when both are absent every
	// extraction returns a failed record without network traffic.
	Completer Completer

	// APIKey builds the default completion backend when Completer is nil.
	APIKey string

	// TTLDays is the lifetime of cached successful extractions.
	TTLDays int

	// UseCache enables reuse of prior successful extractions.
	UseCache bool

	// Logger is the observability sink for this extractor.
	Logger zerolog.Logger
}

// DefaultConfig returns a default extractor configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:   apiKey,
		TTLDays:  30,
		UseCache: true,
	}
}

// Extractor orchestrates scrape, prompt, parse and cache for structured
// restaurant records.
type Extractor struct {
	completer Completer
	scraper   RestaurantScraper
	store     cache.Store[RestaurantInfo]
	config    Config
	logger    zerolog.Logger
}

// NewExtractor creates an extractor. The scraper may be nil; extractions
// then rely on geo fallback data alone.
func NewExtractor(scraper RestaurantScraper, store cache.Store[RestaurantInfo], cfg Config) (*Extractor, error) {
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if cfg.TTLDays <= 0 {
		cfg.TTLDays = 30
	}

	completer := cfg.Completer
	if completer == nil && cfg.APIKey != "" {
		var err error
		completer, err = NewAnthropicCompleter(cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("create completion backend: %w", err)
		}
	}

	return &Extractor{
		completer: completer,
		scraper:   scraper,
		store:     store,
		config:    cfg,
		logger:    cfg.Logger.With().Str("component", "extractor").Logger(),
	}, nil
}

// Request identifies one restaurant to extract. Identifier and Geo are both
// optional; with neither, the extraction fails with a data-availability
// record.
type Request struct {
	Name       string
	Identifier *discovery.Identifier
	Geo        *GeoData
}

// Extract produces a structured record for one restaurant. It always returns
// a record; scrape, completion and parse failures are expressed through the
// record's Status and Error fields.
func (e *Extractor) Extract(ctx context.Context, req Request) RestaurantInfo {
	if e.config.UseCache {
		if entry, err := e.store.Get(ctx, req.Name, SourceCombined); err == nil {
			e.logger.Debug().Str("restaurant", req.Name).Msg("Using cached extraction")
			return entry.Payload
		}
	}

	if e.completer == nil {
		e.logger.Warn().Str("restaurant", req.Name).Msg("No completion credential, skipping extraction")
		extractionsTotal.WithLabelValues(StatusFailed).Inc()
		return failedInfo(req.Name, SourceNone, "ANTHROPIC_API_KEY not set")
	}

	scraped, source := e.gatherSources(ctx, req)

	if scraped.empty() && req.Geo == nil {
		extractionsTotal.WithLabelValues(StatusFailed).Inc()
		return failedInfo(req.Name, SourceNone, "no data available for extraction")
	}

	info, err := e.complete(ctx, req, scraped, source)
	if err != nil {
		e.logger.Warn().Err(err).Str("restaurant", req.Name).Msg("Extraction degraded to partial record")
		extractionsTotal.WithLabelValues(StatusPartial).Inc()
		return partialInfo(req.Name, source, req.Geo, fmt.Sprintf("extraction failed: %v", err))
	}

	extractionsTotal.WithLabelValues(StatusSuccess).Inc()
	e.cacheResult(ctx, info)
	return info
}

// gatherSources scrapes the restaurant's platforms when an identifier is
// available and labels the extraction source. A lone source keeps its own
// label; both together are labeled combined; no scrape keeps geo_only.
func (e *Extractor) gatherSources(ctx context.Context, req Request) (ScrapedData, string) {
	var scraped ScrapedData
	source := SourceGeoOnly

	if req.Identifier == nil || e.scraper == nil {
		return scraped, source
	}

	result := e.scraper.ScrapeRestaurant(ctx, *req.Identifier, menus.Options{
		Yelp:           true,
		OpenTable:      true,
		IncludeReviews: true,
	})

	if result.Yelp != nil {
		scraped.Yelp = result.Yelp.RawData
		source = SourceYelp
	}
	if result.OpenTable != nil {
		scraped.OpenTable = result.OpenTable.RawData
		if source == SourceYelp {
			source = SourceCombined
		} else {
			source = SourceOpenTable
		}
	}

	return scraped, source
}

// complete runs the prompt through the completion backend and assembles a
// success record from the parsed reply.
func (e *Extractor) complete(ctx context.Context, req Request, scraped ScrapedData, source string) (RestaurantInfo, error) {
	prompt := BuildPrompt(req.Name, scraped, req.Geo)

	text, err := e.completer.Complete(ctx, prompt)
	if err != nil {
		return RestaurantInfo{}, err
	}

	fields, err := ParseReply(text)
	if err != nil {
		return RestaurantInfo{}, err
	}

	info := RestaurantInfo{
		RestaurantName:       req.Name,
		Cuisine:              orEmpty(fields.Cuisine),
		PopularDishes:        orEmpty(fields.PopularDishes),
		CommonAllergens:      orEmpty(fields.CommonAllergens),
		PriceRange:           fields.PriceRange,
		NumberOfReviews:      fields.NumberOfReviews,
		AverageStars:         fields.AverageStars,
		Hours:                fields.Hours,
		DietaryOptions:       orEmpty(fields.DietaryOptions),
		Ambiance:             fields.Ambiance,
		ReservationsRequired: fields.ReservationsRequired,
		ExtractionSource:     source,
		ExtractedAt:          time.Now().UTC(),
		Status:               StatusSuccess,
	}
	return info, nil
}

// cacheResult stores a successful record under the combined source key.
// Partial and failed records are never cached.
func (e *Extractor) cacheResult(ctx context.Context, info RestaurantInfo) {
	if !e.config.UseCache {
		return
	}

	data, err := json.Marshal(info)
	if err != nil {
		e.logger.Warn().Err(err).Str("restaurant", info.RestaurantName).Msg("Failed to digest extraction")
		return
	}

	entry := cache.Entry[RestaurantInfo]{
		Name:        info.RestaurantName,
		Source:      SourceCombined,
		FetchedAt:   info.ExtractedAt,
		TTLDays:     e.config.TTLDays,
		ContentHash: fmt.Sprintf("%016x", xxhash.Sum64(data)),
		Payload:     info,
	}
	if err := e.store.Set(ctx, entry); err != nil {
		e.logger.Warn().Err(err).Str("restaurant", info.RestaurantName).Msg("Failed to cache extraction")
	}
}

// ExtractBatch extracts restaurants sequentially over the shared scraper and
// cache. Requests without a name produce failed records; the batch always
// returns one record per request, in input order.
func (e *Extractor) ExtractBatch(ctx context.Context, reqs []Request) []RestaurantInfo {
	results := make([]RestaurantInfo, 0, len(reqs))

	for i, req := range reqs {
		e.logger.Info().
			Int("index", i+1).
			Int("total", len(reqs)).
			Str("restaurant", req.Name).
			Msg("Extracting restaurant")

		if req.Name == "" {
			extractionsTotal.WithLabelValues(StatusFailed).Inc()
			results = append(results, failedInfo("", SourceNone, "restaurant name is required"))
			continue
		}

		results = append(results, e.Extract(ctx, req))
	}

	return results
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
