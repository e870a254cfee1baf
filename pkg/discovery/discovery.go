// Package discovery builds restaurant identifiers and platform search URLs.
// An identifier carries the direct yelp/opentable URLs when they are known;
// otherwise search URLs are generated from name and location.
package discovery

import (
	"fmt"
	"net/url"
)

// Identifier represents a restaurant with its associated URLs across platforms.
type Identifier struct {
	Name         string `json:"name"`
	Location     string `json:"location"`
	YelpURL      string `json:"yelp_url,omitempty"`
	OpenTableURL string `json:"opentable_url,omitempty"`
}

// Seed is the raw input for building an identifier.
type Seed struct {
	Name         string
	Location     string
	YelpURL      string
	OpenTableURL string
}

// YelpSearchURL generates a yelp search URL for a restaurant.
func YelpSearchURL(name, location string) string {
	return fmt.Sprintf("https://www.yelp.com/search?find_desc=%s&find_loc=%s",
		url.QueryEscape(name), url.QueryEscape(location))
}

// OpenTableSearchURL generates an opentable search URL for a restaurant.
// opentable uses a different format: query term first, then location.
func OpenTableSearchURL(name, location string) string {
	return fmt.Sprintf("https://www.opentable.com/s?term=%s&corrid=&covers=2&currentview=list&dateTime=2025-01-01T19%%3A00%%3A00&latitude=0&longitude=0&metroId=&originCorrelationId=&pageType=0&term=%s",
		url.QueryEscape(name), url.QueryEscape(location))
}

// NewIdentifiers builds identifiers from seeds, skipping entries without a
// name or location.
func NewIdentifiers(seeds []Seed) []Identifier {
	identifiers := make([]Identifier, 0, len(seeds))

	for _, seed := range seeds {
		if seed.Name == "" || seed.Location == "" {
			continue
		}
		identifiers = append(identifiers, Identifier{
			Name:         seed.Name,
			Location:     seed.Location,
			YelpURL:      seed.YelpURL,
			OpenTableURL: seed.OpenTableURL,
		})
	}

	return identifiers
}

// FillSearchURLs populates search URLs for identifiers missing direct URLs.
func FillSearchURLs(identifiers []Identifier) []Identifier {
	for i := range identifiers {
		if identifiers[i].YelpURL == "" {
			identifiers[i].YelpURL = YelpSearchURL(identifiers[i].Name, identifiers[i].Location)
		}
		if identifiers[i].OpenTableURL == "" {
			identifiers[i].OpenTableURL = OpenTableSearchURL(identifiers[i].Name, identifiers[i].Location)
		}
	}
	return identifiers
}

// DirectURLs maps restaurant names to their known platform URLs.
type DirectURLs map[string]struct {
	YelpURL      string
	OpenTableURL string
}

// Discover builds identifiers for the given restaurant names in a common
// location, preferring direct URLs where known and falling back to generated
// search URLs.
func Discover(names []string, location string, direct DirectURLs) []Identifier {
	seeds := make([]Seed, 0, len(names))

	for _, name := range names {
		seed := Seed{Name: name, Location: location}
		if urls, ok := direct[name]; ok {
			seed.YelpURL = urls.YelpURL
			seed.OpenTableURL = urls.OpenTableURL
		}
		seeds = append(seeds, seed)
	}

	return FillSearchURLs(NewIdentifiers(seeds))
}
