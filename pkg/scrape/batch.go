package scrape

import (
	"context"
	"encoding/json"
	"time"
)

// BatchResult captures one URL's outcome in a batch scrape. Batches always
// return one result per input URL, in input order; a failed URL never aborts
// the rest of the batch.
type BatchResult struct {
	URL       string          `json:"url"`
	Data      json.RawMessage `json:"data,omitempty"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
	ScrapedAt time.Time       `json:"scraped_at"`
}

// BatchScrapeYelp scrapes multiple yelp businesses sequentially, capturing
// each URL's success or failure independently.
func (c *Client) BatchScrapeYelp(ctx context.Context, businessURLs []string, includeReviews bool) []BatchResult {
	results := make([]BatchResult, 0, len(businessURLs))

	for _, u := range businessURLs {
		data, err := c.ScrapeYelpBusiness(ctx, u, includeReviews)
		results = append(results, batchResult(u, data, err))
	}

	return results
}

// BatchScrapeOpenTable scrapes multiple opentable restaurants sequentially.
func (c *Client) BatchScrapeOpenTable(ctx context.Context, restaurantURLs []string) []BatchResult {
	results := make([]BatchResult, 0, len(restaurantURLs))

	for _, u := range restaurantURLs {
		data, err := c.ScrapeOpenTableRestaurant(ctx, u)
		results = append(results, batchResult(u, data, err))
	}

	return results
}

func batchResult(u string, data json.RawMessage, err error) BatchResult {
	result := BatchResult{
		URL:       u,
		ScrapedAt: time.Now().UTC(),
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Data = data
	result.Success = true
	return result
}
