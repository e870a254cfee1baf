package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Completion backend defaults.
const (
	DefaultModel   = "claude-3-5-haiku-20241022"
	DefaultAPIBase = "https://api.anthropic.com"

	defaultMaxTokens = 2048
)

// Completer produces a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AnthropicCompleter calls the Anthropic messages API over plain HTTP.
type AnthropicCompleter struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// AnthropicOption customizes an AnthropicCompleter.
type AnthropicOption func(*AnthropicCompleter)

// WithModel overrides the completion model.
func WithModel(model string) AnthropicOption {
	return func(c *AnthropicCompleter) { c.model = model }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) AnthropicOption {
	return func(c *AnthropicCompleter) { c.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) AnthropicOption {
	return func(c *AnthropicCompleter) { c.client = client }
}

// NewAnthropicCompleter creates a completion backend for the given API key.
func NewAnthropicCompleter(apiKey string, opts ...AnthropicOption) (*AnthropicCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	c := &AnthropicCompleter{
		apiKey:  apiKey,
		model:   DefaultModel,
		baseURL: DefaultAPIBase,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends the prompt as a single user message and returns the first
// content block of the reply.
func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(messagesRequest{
		Model:       c.model,
		MaxTokens:   defaultMaxTokens,
		Temperature: 0,
		Messages:    []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	start := time.Now()
	resp, err := c.client.Do(req)
	completionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("completion API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("completion API %d: %s", resp.StatusCode, string(b))
	}

	var mr messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(mr.Content) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return mr.Content[0].Text, nil
}
