package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		ScrapeCachePath:     "data/cache/scraping_cache.json",
		ExtractionCachePath: "data/cache/extraction_cache.json",
		RawMenuDir:          "data/raw/menus",
		ScrapeTTLDays:       7,
		ExtractionTTLDays:   30,
		RateLimitDelay:      500 * time.Millisecond,
		MaxRetries:          3,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing credentials are allowed",
			mutate:  func(c *Config) { c.BrightDataAPIKey = ""; c.AnthropicAPIKey = "" },
			wantErr: false,
		},
		{
			name:    "zero scrape ttl",
			mutate:  func(c *Config) { c.ScrapeTTLDays = 0 },
			wantErr: true,
		},
		{
			name:    "negative extraction ttl",
			mutate:  func(c *Config) { c.ExtractionTTLDays = -1 },
			wantErr: true,
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.MaxRetries = 0 },
			wantErr: true,
		},
		{
			name:    "negative rate limit delay",
			mutate:  func(c *Config) { c.RateLimitDelay = -time.Second },
			wantErr: true,
		},
		{
			name:    "zero rate limit delay is allowed",
			mutate:  func(c *Config) { c.RateLimitDelay = 0 },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
