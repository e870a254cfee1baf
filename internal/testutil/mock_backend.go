// Package testutil provides testing utilities for the scrape and extraction
// pipelines.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock backend endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockBackend is a configurable mock scrape backend for testing.
type MockBackend struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	RequestBodies     []string
	LastRequestHeader http.Header
}

// NewMockBackend creates a new mock backend server.
func NewMockBackend() *MockBackend {
	mock := &MockBackend{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mock.mu.Lock()
		mock.RequestCount++
		mock.RequestBodies = append(mock.RequestBodies, string(body))
		mock.LastRequestHeader = r.Header.Clone()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockBackend) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockBackend) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockBackend) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.RequestBodies = nil
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockBackend) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockBackend) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetFailThenSucceed configures a path to return failStatus for the first n
// requests, then the success body afterwards.
func (m *MockBackend) SetFailThenSucceed(path string, n, failStatus int, successBody string) {
	var mu sync.Mutex
	count := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		count++
		failing := count <= n
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if failing {
			w.WriteHeader(failStatus)
			w.Write([]byte(`{"error":"upstream failure"}`))
			return
		}
		w.Write([]byte(successBody))
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockBackend) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetRequestBodies returns a copy of the recorded request bodies.
func (m *MockBackend) GetRequestBodies() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.RequestBodies...)
}

func (m *MockBackend) defaultHandler(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}

// NewHealthyResponse creates a standard 200 OK JSON response.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "rate limit exceeded"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// ScriptedCompleter replays canned completion replies in order and records
// the prompts it receives. When the script is exhausted the last element
// repeats.
type ScriptedCompleter struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	Prompts []string
}

// NewScriptedCompleter creates a completer that returns the given replies in
// order. A nil error slot means the matching reply is returned.
func NewScriptedCompleter(replies []string, errs []error) *ScriptedCompleter {
	return &ScriptedCompleter{replies: replies, errs: errs}
}

// Complete returns the next scripted reply or error.
func (s *ScriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := len(s.Prompts)
	s.Prompts = append(s.Prompts, prompt)

	if i >= len(s.replies) && len(s.replies) > 0 {
		i = len(s.replies) - 1
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", nil
}

// CallCount returns how many completions were requested.
func (s *ScriptedCompleter) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}
