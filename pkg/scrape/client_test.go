package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/laneric/menupipe/internal/testutil"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	cfg := DefaultConfig("test-api-key")
	cfg.BaseURL = serverURL
	cfg.Logger = zerolog.Nop()
	cfg.RateLimitDelay = 0

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{
			name:        "valid config",
			config:      DefaultConfig("test-api-key"),
			expectError: false,
		},
		{
			name:        "missing api key",
			config:      DefaultConfig(""),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if client == nil {
				t.Error("Expected client but got nil")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	client, err := New(Config{APIKey: "test-api-key"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if client.config.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", client.config.BaseURL, DefaultBaseURL)
	}
	if client.config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", client.config.MaxRetries)
	}
	if client.config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", client.config.Timeout)
	}
}

func TestRequest_Success(t *testing.T) {
	backend := testutil.NewMockBackend()
	defer backend.Close()

	backend.SetResponse("/"+yelpEndpoint, testutil.NewHealthyResponse(`{"name":"Tony's Pizza","rating":4.5}`))

	client := testClient(t, backend.URL())

	data, err := client.ScrapeYelpBusiness(context.Background(), "https://www.yelp.com/biz/tonys-pizza", true)
	if err != nil {
		t.Fatalf("ScrapeYelpBusiness() error = %v", err)
	}

	var parsed struct {
		Name   string  `json:"name"`
		Rating float64 `json:"rating"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("reply not JSON: %v", err)
	}
	if parsed.Name != "Tony's Pizza" {
		t.Errorf("reply name = %q, want Tony's Pizza", parsed.Name)
	}

	if got := backend.LastRequestHeader.Get("Authorization"); got != "Bearer test-api-key" {
		t.Errorf("Authorization = %q, want bearer token", got)
	}

	bodies := backend.GetRequestBodies()
	if len(bodies) != 1 {
		t.Fatalf("recorded bodies = %d, want 1", len(bodies))
	}
	var reqBody map[string]any
	if err := json.Unmarshal([]byte(bodies[0]), &reqBody); err != nil {
		t.Fatalf("request body not JSON: %v", err)
	}
	if reqBody["format"] != "json" || reqBody["include_reviews"] != true {
		t.Errorf("request body = %v, want format=json include_reviews=true", reqBody)
	}

	// A fresh count after Reset isolates the generic webpage call
	backend.Reset()
	if backend.GetRequestCount() != 0 {
		t.Fatalf("Reset() left count at %d", backend.GetRequestCount())
	}

	if _, err := client.ScrapeWebpage(context.Background(), "https://tonys.example/menu", map[string]string{"menu": ".menu-list"}); err != nil {
		t.Fatalf("ScrapeWebpage() error = %v", err)
	}
	if backend.GetRequestCount() != 1 {
		t.Errorf("requests after reset = %d, want 1", backend.GetRequestCount())
	}
	if bodies := backend.GetRequestBodies(); len(bodies) != 1 || !json.Valid([]byte(bodies[0])) {
		t.Errorf("webpage request body not recorded: %v", bodies)
	}
}

func TestRequest_RetriesTransientThenSucceeds(t *testing.T) {
	backend := testutil.NewMockBackend()
	defer backend.Close()

	backend.SetFailThenSucceed("/"+openTableEndpoint, 2, http.StatusInternalServerError, `{"ok":true}`)

	client := testClient(t, backend.URL())

	var backoffs []time.Duration
	client.SetSleepForTest(func(d time.Duration) {
		backoffs = append(backoffs, d)
	})

	_, err := client.ScrapeOpenTableRestaurant(context.Background(), "https://www.opentable.com/r/tonys")
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}

	if backend.GetRequestCount() != 3 {
		t.Errorf("attempts = %d, want 3", backend.GetRequestCount())
	}

	// Exactly two backoff sleeps: 1s then 2s
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(backoffs) != len(want) {
		t.Fatalf("backoffs = %v, want %v", backoffs, want)
	}
	for i := range want {
		if backoffs[i] != want[i] {
			t.Errorf("backoff[%d] = %v, want %v", i, backoffs[i], want[i])
		}
	}
}

func TestRequest_RetryExhaustion(t *testing.T) {
	backend := testutil.NewMockBackend()
	defer backend.Close()

	backend.SetResponse("/"+yelpEndpoint, testutil.NewServerErrorResponse())

	client := testClient(t, backend.URL())
	client.SetSleepForTest(func(time.Duration) {})

	_, err := client.ScrapeYelpBusiness(context.Background(), "https://www.yelp.com/biz/tonys", false)
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}

	if backend.GetRequestCount() != 3 {
		t.Errorf("attempts = %d, want 3", backend.GetRequestCount())
	}
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error = %v, want ErrRetryExhausted", err)
	}

	// The original error is surfaced, not swallowed
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error = %v, want wrapped *RequestError", err)
	}
	if reqErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", reqErr.StatusCode)
	}
	if reqErr.ErrorClass != ErrorClassServer {
		t.Errorf("ErrorClass = %q, want server", reqErr.ErrorClass)
	}
}

func TestRequest_RateLimitedReplyNotRetried(t *testing.T) {
	backend := testutil.NewMockBackend()
	defer backend.Close()

	backend.SetResponse("/"+yelpEndpoint, testutil.NewRateLimitResponse())

	client := testClient(t, backend.URL())
	client.SetSleepForTest(func(time.Duration) {})

	_, err := client.ScrapeYelpBusiness(context.Background(), "https://www.yelp.com/biz/tonys", false)
	if err == nil {
		t.Fatal("expected error")
	}

	if backend.GetRequestCount() != 1 {
		t.Errorf("attempts = %d, want 1 (429 is a client error, not retried)", backend.GetRequestCount())
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error = %v, want *RequestError", err)
	}
	if reqErr.StatusCode != http.StatusTooManyRequests || reqErr.ErrorClass != ErrorClassClient {
		t.Errorf("error = %d/%q, want 429/client", reqErr.StatusCode, reqErr.ErrorClass)
	}
}

func TestRequest_ClientErrorNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	client.SetSleepForTest(func(time.Duration) {})

	_, err := client.ScrapeYelpBusiness(context.Background(), "https://www.yelp.com/biz/gone", false)
	if err == nil {
		t.Fatal("expected error")
	}

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (4xx must not be retried)", attempts)
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) || reqErr.ErrorClass != ErrorClassClient {
		t.Errorf("error = %v, want client-class *RequestError", err)
	}
}

func TestRequest_RateLimitPause(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	cfg := DefaultConfig("test-api-key")
	cfg.BaseURL = server.URL
	cfg.Logger = zerolog.Nop()
	cfg.RateLimitDelay = 500 * time.Millisecond

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var waits []time.Duration
	client.SetSleepForTest(func(d time.Duration) {
		waits = append(waits, d)
	})

	ctx := context.Background()

	// First call never waits
	if _, err := client.ScrapeYelpBusiness(ctx, "https://www.yelp.com/biz/one", false); err != nil {
		t.Fatalf("first call error = %v", err)
	}
	if len(waits) != 0 {
		t.Fatalf("first call waited %v, want no wait", waits)
	}

	// An immediate second call pauses for the remainder of the interval
	if _, err := client.ScrapeYelpBusiness(ctx, "https://www.yelp.com/biz/two", false); err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if len(waits) != 1 {
		t.Fatalf("second call recorded %d waits, want 1", len(waits))
	}
	if waits[0] <= 0 || waits[0] > 500*time.Millisecond {
		t.Errorf("wait = %v, want within (0, 500ms]", waits[0])
	}
	if waits[0] < 400*time.Millisecond {
		t.Errorf("wait = %v, want most of the 500ms interval for a back-to-back call", waits[0])
	}
}

func TestRequest_InvalidJSONReply(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	client.SetSleepForTest(func(time.Duration) {})

	_, err := client.ScrapeYelpBusiness(context.Background(), "https://www.yelp.com/biz/tonys", false)
	if err == nil {
		t.Fatal("expected error for non-JSON reply")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (contract violations are not retried)", attempts)
	}
}

func TestBatchScrape_IsolatesFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URL string `json:"url"`
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)

		if body.URL == "https://www.yelp.com/biz/broken" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	client.SetSleepForTest(func(time.Duration) {})

	urls := []string{
		"https://www.yelp.com/biz/one",
		"https://www.yelp.com/biz/broken",
		"https://www.yelp.com/biz/three",
	}

	results := client.BatchScrapeYelp(context.Background(), urls, false)

	if len(results) != len(urls) {
		t.Fatalf("results = %d, want one per input URL (%d)", len(results), len(urls))
	}

	for i, r := range results {
		if r.URL != urls[i] {
			t.Errorf("result[%d].URL = %q, want input order preserved (%q)", i, r.URL, urls[i])
		}
		if r.ScrapedAt.IsZero() {
			t.Errorf("result[%d].ScrapedAt is zero", i)
		}
	}

	if !results[0].Success || !results[2].Success {
		t.Error("healthy URLs should succeed independently of the broken one")
	}
	if results[1].Success {
		t.Error("broken URL should be marked failed")
	}
	if results[1].Error == "" {
		t.Error("failed result should carry the error text")
	}
	if results[1].Data != nil {
		t.Error("failed result should carry no data")
	}
}
