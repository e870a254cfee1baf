// Package config provides environment and flag based configuration for the
// menu data pipeline. Components never read the environment themselves; all
// credentials, paths and tuning knobs flow through an explicit Config.
package config

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Config holds the full pipeline configuration.
type Config struct {
	// Credentials
	BrightDataAPIKey string `long:"bright-data-api-key" env:"BRIGHT_DATA_API_KEY" description:"Bright Data API key for the scraping backend"`
	AnthropicAPIKey  string `long:"anthropic-api-key" env:"ANTHROPIC_API_KEY" description:"Anthropic API key for structured extraction"`

	// Cache storage
	ScrapeCachePath     string `long:"scrape-cache-path" env:"SCRAPE_CACHE_PATH" default:"data/cache/scraping_cache.json" description:"Path to the raw-scrape cache snapshot"`
	ExtractionCachePath string `long:"extraction-cache-path" env:"EXTRACTION_CACHE_PATH" default:"data/cache/extraction_cache.json" description:"Path to the extraction cache snapshot"`
	RawMenuDir          string `long:"raw-menu-dir" env:"RAW_MENU_DIR" default:"data/raw/menus" description:"Directory for persisted raw menu payloads"`

	// Cache lifetimes
	ScrapeTTLDays     int `long:"scrape-ttl-days" env:"SCRAPE_TTL_DAYS" default:"7" description:"Days until scraped menu data expires"`
	ExtractionTTLDays int `long:"extraction-ttl-days" env:"EXTRACTION_TTL_DAYS" default:"30" description:"Days until extraction results expire"`

	// Scrape client tuning
	RateLimitDelay time.Duration `long:"rate-limit-delay" env:"RATE_LIMIT_DELAY" default:"500ms" description:"Minimum interval between scrape backend requests"`
	MaxRetries     int           `long:"max-retries" env:"MAX_RETRIES" default:"3" description:"Retry attempts for transient scrape failures"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses configuration from environment variables and command line flags.
// Returns (nil, nil) when help was requested.
func Load() (*Config, error) {
	var cfg Config

	parser := flags.NewParser(&cfg, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration consistency. Missing credentials are not an
// error here: the pipeline degrades explicitly when a key is absent.
func (c *Config) Validate() error {
	if c.ScrapeTTLDays <= 0 {
		return fmt.Errorf("scrape TTL must be positive (got %d)", c.ScrapeTTLDays)
	}
	if c.ExtractionTTLDays <= 0 {
		return fmt.Errorf("extraction TTL must be positive (got %d)", c.ExtractionTTLDays)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be >= 1 (got %d)", c.MaxRetries)
	}
	if c.RateLimitDelay < 0 {
		return fmt.Errorf("rate limit delay must not be negative (got %s)", c.RateLimitDelay)
	}
	return nil
}
