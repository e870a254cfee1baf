// Package extraction turns scraped restaurant payloads into structured
// records via an LLM completion backend. Every entry point returns an
// outcome record with a Status field; failures are data, not errors.
package extraction

import (
	"strings"
	"time"
)

// Extraction source labels.
const (
	SourceYelp      = "yelp"
	SourceOpenTable = "opentable"
	SourceCombined  = "combined"
	SourceGeoOnly   = "geo_only"
	SourceNone      = "none"
)

// Extraction outcome states.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// RestaurantInfo is the structured record extracted from web sources.
// List fields are always present (empty, never null); unknowable scalars
// are nil pointers.
type RestaurantInfo struct {
	RestaurantName       string    `json:"restaurant_name"`
	Cuisine              []string  `json:"cuisine"`
	PopularDishes        []string  `json:"popular_dishes"`
	CommonAllergens      []string  `json:"common_allergens"`
	PriceRange           string    `json:"price_range"`
	NumberOfReviews      *int      `json:"number_of_reviews"`
	AverageStars         *float64  `json:"average_stars"`
	Hours                *string   `json:"hours"`
	DietaryOptions       []string  `json:"dietary_options"`
	Ambiance             *string   `json:"ambiance"`
	ReservationsRequired *bool     `json:"reservations_required"`
	ExtractionSource     string    `json:"extraction_source"`
	ExtractedAt          time.Time `json:"extracted_at"`
	Status               string    `json:"status"`
	Error                *string   `json:"error,omitempty"`
}

// PayloadKey nests the record under one field in cache snapshots, matching
// the persisted extraction-cache format.
func (RestaurantInfo) PayloadKey() string {
	return "extraction_data"
}

// GeoData is the minimal fallback record from the geo layer. Cuisine is a
// comma separated string in that layer's format.
type GeoData struct {
	Name    string `json:"name"`
	Cuisine string `json:"cuisine,omitempty"`
}

// cuisineList splits the geo cuisine string into trimmed entries.
func (g *GeoData) cuisineList() []string {
	if g == nil || g.Cuisine == "" {
		return []string{}
	}
	parts := strings.Split(g.Cuisine, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// emptyInfo returns a record with all list fields initialized and all
// scalars unknown.
func emptyInfo(name string) RestaurantInfo {
	return RestaurantInfo{
		RestaurantName:  name,
		Cuisine:         []string{},
		PopularDishes:   []string{},
		CommonAllergens: []string{},
		DietaryOptions:  []string{},
		ExtractedAt:     time.Now().UTC(),
	}
}

// failedInfo builds a failed outcome record.
func failedInfo(name, source, errMsg string) RestaurantInfo {
	info := emptyInfo(name)
	info.ExtractionSource = source
	info.Status = StatusFailed
	info.Error = &errMsg
	return info
}

// partialInfo builds a partial outcome record, salvaging cuisine from geo
// data when available.
func partialInfo(name, source string, geo *GeoData, errMsg string) RestaurantInfo {
	info := emptyInfo(name)
	info.Cuisine = geo.cuisineList()
	info.ExtractionSource = source
	info.Status = StatusPartial
	info.Error = &errMsg
	return info
}
