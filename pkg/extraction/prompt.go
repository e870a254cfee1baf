package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ScrapedData carries the raw per-source payloads feeding one extraction.
type ScrapedData struct {
	Yelp      json.RawMessage
	OpenTable json.RawMessage
}

func (s ScrapedData) empty() bool {
	return len(s.Yelp) == 0 && len(s.OpenTable) == 0
}

const fieldInstructions = `extract the following fields and return them in JSON format:

{
  "cuisine": ["list of cuisine types"],
  "popular_dishes": ["list of popular/signature dishes"],
  "common_allergens": ["list of common allergens found in menu items"],
  "price_range": "$, $$, $$$, or $$$$",
  "number_of_reviews": integer or null,
  "average_stars": float or null,
  "hours": "operating hours string or null",
  "dietary_options": ["vegetarian", "vegan", "gluten-free", etc.],
  "ambiance": "brief description or null",
  "reservations_required": true/false/null
}

rules:
- if a field is not available in the data, use null or empty array as appropriate
- for cuisine, extract all mentioned cuisine types
- for popular_dishes, prioritize dishes mentioned multiple times in reviews or highlighted on menu
- for common_allergens, look for common allergens like dairy, nuts, shellfish, gluten, soy, eggs
- for price_range, use $ symbols ($ = under $10, $$ = $10-25, $$$ = $25-50, $$$$ = over $50)
- for dietary_options, only include options explicitly mentioned or clearly available
- for ambiance, keep it concise (e.g., "casual", "fine dining", "family-friendly")
- return only the JSON object, no additional text

JSON output:`

// BuildPrompt assembles the completion prompt from the available data
// sources. Sections appear only for sources that produced data.
func BuildPrompt(restaurantName string, scraped ScrapedData, geo *GeoData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "extract structured information about the restaurant %q from the provided data.\n\n", restaurantName)
	b.WriteString("analyze the following data sources and extract the requested fields:\n\n")

	if len(scraped.Yelp) > 0 {
		b.WriteString("=== YELP DATA ===\n")
		b.Write(indentJSON(scraped.Yelp))
		b.WriteString("\n\n")
	}
	if len(scraped.OpenTable) > 0 {
		b.WriteString("=== OPENTABLE DATA ===\n")
		b.Write(indentJSON(scraped.OpenTable))
		b.WriteString("\n\n")
	}
	if geo != nil {
		b.WriteString("=== GEO DATA (FALLBACK) ===\n")
		data, _ := json.MarshalIndent(geo, "", "  ")
		b.Write(data)
		b.WriteString("\n\n")
	}

	b.WriteString(fieldInstructions)
	return b.String()
}

// indentJSON reformats a raw payload for the prompt; payloads that fail to
// re-indent are passed through as-is.
func indentJSON(raw json.RawMessage) []byte {
	var buf strings.Builder
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return raw
	}
	return []byte(strings.TrimRight(buf.String(), "\n"))
}

// replyFields is the JSON object the completion backend is instructed to
// return.
type replyFields struct {
	Cuisine              []string `json:"cuisine"`
	PopularDishes        []string `json:"popular_dishes"`
	CommonAllergens      []string `json:"common_allergens"`
	PriceRange           string   `json:"price_range"`
	NumberOfReviews      *int     `json:"number_of_reviews"`
	AverageStars         *float64 `json:"average_stars"`
	Hours                *string  `json:"hours"`
	DietaryOptions       []string `json:"dietary_options"`
	Ambiance             *string  `json:"ambiance"`
	ReservationsRequired *bool    `json:"reservations_required"`
}

// ParseReply extracts the JSON object from a completion reply. The object is
// located by brace scan (first "{" to last "}") so surrounding prose is
// tolerated; a reply without a complete object is an error.
func ParseReply(text string) (*replyFields, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no json found in response")
	}

	var fields replyFields
	if err := json.Unmarshal([]byte(text[start:end+1]), &fields); err != nil {
		return nil, fmt.Errorf("parse extraction reply: %w", err)
	}
	return &fields, nil
}
