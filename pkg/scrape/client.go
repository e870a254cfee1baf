// Package scrape provides the Bright Data web scraper client with rate
// limiting, retry logic and error classification.
//
// The client issues one outbound POST per dataset trigger and knows nothing
// about caching; fetch-or-reuse decisions belong to the orchestrators in
// pkg/menus and pkg/extraction.
package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the Bright Data API root.
const DefaultBaseURL = "https://api.brightdata.com"

// Dataset trigger endpoints.
const (
	yelpEndpoint        = "datasets/gd_l7q7dkf244hwxrsmi/trigger"
	openTableEndpoint   = "datasets/gd_opentable/trigger"
	webUnlockerEndpoint = "web_unlocker/trigger"
)

// Config holds the client configuration.
type Config struct {
	// APIKey is the Bright Data bearer token (REQUIRED).
	APIKey string

	// BaseURL overrides the API root (used in tests).
	BaseURL string

	// RateLimitDelay is the minimum interval between requests.
	RateLimitDelay time.Duration

	// MaxRetries is the number of attempts for transient failures.
	MaxRetries int

	// Timeout is the per-request transport timeout.
	Timeout time.Duration

	// Logger is the observability sink for this client.
	Logger zerolog.Logger
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:         apiKey,
		BaseURL:        DefaultBaseURL,
		RateLimitDelay: 500 * time.Millisecond,
		MaxRetries:     3,
		Timeout:        30 * time.Second,
	}
}

// Client is the rate-limited retrying scrape backend client.
//
// Calls are strictly sequential: the client tracks the previous request time
// and suspends the caller until the minimum interval has elapsed. It is not
// safe for concurrent use.
type Client struct {
	httpClient  *http.Client
	config      Config
	logger      zerolog.Logger
	lastRequest time.Time
	sleep       func(time.Duration)
}

// New creates a new scrape client. The API key is required; a missing key is
// a configuration error, not a runtime outcome.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("bright data API key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	// Bearer auth via a static token source; the oauth2 transport injects
	// the Authorization header on every request.
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"},
	))
	httpClient.Timeout = cfg.Timeout

	return &Client{
		httpClient: httpClient,
		config:     cfg,
		logger:     cfg.Logger.With().Str("component", "scrape-client").Logger(),
		sleep:      time.Sleep,
	}, nil
}

// rateLimit suspends the caller until the minimum inter-request interval has
// elapsed since the previous request started.
func (c *Client) rateLimit() {
	if c.config.RateLimitDelay > 0 && !c.lastRequest.IsZero() {
		elapsed := time.Since(c.lastRequest)
		if wait := c.config.RateLimitDelay - elapsed; wait > 0 {
			scrapeRateLimitWaitSeconds.Observe(wait.Seconds())
			c.logger.Debug().Dur("wait", wait).Msg("Rate limit pause")
			c.sleep(wait)
		}
	}
	c.lastRequest = time.Now()
}

// Request performs an HTTP request against the scrape backend with rate
// limiting and retry logic, returning the raw JSON reply.
//
// Transient failures (network errors, 5xx) are retried up to MaxRetries with
// exponential backoff: 2^attempt seconds before attempt+1. On exhaustion the
// last error is surfaced wrapped in ErrRetryExhausted. 4xx replies fail
// immediately with a *RequestError.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any, params url.Values) (json.RawMessage, error) {
	c.rateLimit()

	reqURL := strings.TrimSuffix(c.config.BaseURL, "/") + "/" + strings.TrimPrefix(endpoint, "/")
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	startTime := time.Now()
	defer func() {
		scrapeRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var lastErr error

	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s, ...
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			errClass := classify(lastErr)
			scrapeRetriesTotal.WithLabelValues(string(errClass)).Inc()
			scrapeRetryBackoffSeconds.WithLabelValues(string(errClass)).Observe(backoff.Seconds())

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Err(lastErr).
				Msg("Retrying request after backoff")

			c.sleep(backoff)
		}

		data, err := c.doOnce(ctx, method, reqURL, endpoint, payload)
		if err == nil {
			if attempt > 0 {
				c.logger.Info().
					Str("endpoint", endpoint).
					Int("attempt", attempt+1).
					Msg("Request succeeded after retry")
			}
			return data, nil
		}

		lastErr = err

		if !shouldRetry(classify(err)) {
			return nil, err
		}
	}

	errClass := classify(lastErr)
	scrapeRetryExhaustedTotal.WithLabelValues(string(errClass)).Inc()
	c.logger.Error().
		Str("endpoint", endpoint).
		Int("max_retries", c.config.MaxRetries).
		Err(lastErr).
		Msg("Retry attempts exhausted")

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, c.config.MaxRetries, lastErr)
}

// doOnce issues a single attempt.
func (c *Client) doOnce(ctx context.Context, method, reqURL, endpoint string, payload []byte) (json.RawMessage, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		scrapeErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		scrapeRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &RequestError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		scrapeErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &RequestError{
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		}
	}

	scrapeRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		errClass := classifyStatus(resp.StatusCode)
		scrapeErrorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Scrape backend error")

		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	var data json.RawMessage
	if err := json.Unmarshal(respBody, &data); err != nil {
		// A 2xx reply that is not JSON is a backend contract violation,
		// not a transient condition; don't retry it.
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassClient,
			Message:    "invalid JSON reply",
			Err:        err,
		}
	}

	return data, nil
}

// classify extracts the error class from a request error.
func classify(err error) ErrorClass {
	if reqErr, ok := err.(*RequestError); ok {
		return reqErr.ErrorClass
	}
	return ErrorClassNetwork
}

// classifyStatus categorizes an HTTP status code.
func classifyStatus(statusCode int) ErrorClass {
	if statusCode >= 400 && statusCode < 500 {
		return ErrorClassClient
	}
	return ErrorClassServer
}

// yelpTriggerRequest is the dataset trigger body for yelp business pages.
type yelpTriggerRequest struct {
	URL            string `json:"url"`
	IncludeReviews bool   `json:"include_reviews"`
	Format         string `json:"format"`
}

// openTableTriggerRequest is the dataset trigger body for opentable pages.
type openTableTriggerRequest struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

// webUnlockerRequest is the generic webpage scrape body.
type webUnlockerRequest struct {
	URL       string            `json:"url"`
	Format    string            `json:"format"`
	Selectors map[string]string `json:"selectors,omitempty"`
}

// ScrapeYelpBusiness scrapes yelp business data by URL. The reply schema is
// source-specific and passed through opaquely.
func (c *Client) ScrapeYelpBusiness(ctx context.Context, businessURL string, includeReviews bool) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodPost, yelpEndpoint, yelpTriggerRequest{
		URL:            businessURL,
		IncludeReviews: includeReviews,
		Format:         "json",
	}, nil)
}

// ScrapeOpenTableRestaurant scrapes opentable restaurant data by URL.
func (c *Client) ScrapeOpenTableRestaurant(ctx context.Context, restaurantURL string) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodPost, openTableEndpoint, openTableTriggerRequest{
		URL:    restaurantURL,
		Format: "json",
	}, nil)
}

// ScrapeWebpage scrapes a generic webpage through the web unlocker,
// optionally mapping field names to CSS selectors.
func (c *Client) ScrapeWebpage(ctx context.Context, pageURL string, selectors map[string]string) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodPost, webUnlockerEndpoint, webUnlockerRequest{
		URL:       pageURL,
		Format:    "json",
		Selectors: selectors,
	}, nil)
}

// SetSleepForTest replaces the sleep function used for rate limit pauses and
// retry backoff (for testing).
func (c *Client) SetSleepForTest(sleep func(time.Duration)) {
	c.sleep = sleep
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
