package discovery

import (
	"strings"
	"testing"
)

func TestYelpSearchURL(t *testing.T) {
	got := YelpSearchURL("Tony's Pizza", "San Francisco")

	if !strings.HasPrefix(got, "https://www.yelp.com/search?") {
		t.Errorf("unexpected URL prefix: %s", got)
	}
	if !strings.Contains(got, "find_desc=Tony%27s+Pizza") {
		t.Errorf("name not escaped in %s", got)
	}
	if !strings.Contains(got, "find_loc=San+Francisco") {
		t.Errorf("location not escaped in %s", got)
	}
}

func TestOpenTableSearchURL(t *testing.T) {
	got := OpenTableSearchURL("Tony's Pizza", "San Francisco")

	if !strings.HasPrefix(got, "https://www.opentable.com/s?") {
		t.Errorf("unexpected URL prefix: %s", got)
	}
	if !strings.Contains(got, "term=Tony%27s+Pizza") {
		t.Errorf("name not escaped in %s", got)
	}
}

func TestNewIdentifiers_SkipsIncomplete(t *testing.T) {
	seeds := []Seed{
		{Name: "Tony's Pizza", Location: "San Francisco"},
		{Name: "", Location: "San Francisco"},
		{Name: "Luna Noodle Bar", Location: ""},
		{Name: "Luna Noodle Bar", Location: "Oakland"},
	}

	got := NewIdentifiers(seeds)
	if len(got) != 2 {
		t.Fatalf("NewIdentifiers() returned %d identifiers, want 2", len(got))
	}
	if got[0].Name != "Tony's Pizza" || got[1].Name != "Luna Noodle Bar" {
		t.Errorf("unexpected identifiers: %+v", got)
	}
}

func TestFillSearchURLs_PreservesDirect(t *testing.T) {
	direct := "https://www.yelp.com/biz/tonys-pizza-napoletana-san-francisco"
	ids := []Identifier{
		{Name: "Tony's Pizza", Location: "San Francisco", YelpURL: direct},
	}

	got := FillSearchURLs(ids)

	if got[0].YelpURL != direct {
		t.Errorf("direct yelp URL overwritten: %s", got[0].YelpURL)
	}
	if got[0].OpenTableURL == "" {
		t.Error("missing opentable URL should be generated")
	}
}

func TestDiscover(t *testing.T) {
	direct := DirectURLs{
		"Tony's Pizza": {YelpURL: "https://www.yelp.com/biz/tonys-pizza"},
	}

	got := Discover([]string{"Tony's Pizza", "Luna Noodle Bar"}, "San Francisco", direct)

	if len(got) != 2 {
		t.Fatalf("Discover() returned %d identifiers, want 2", len(got))
	}
	if got[0].YelpURL != "https://www.yelp.com/biz/tonys-pizza" {
		t.Errorf("direct URL not used: %s", got[0].YelpURL)
	}
	if !strings.Contains(got[1].YelpURL, "find_desc=Luna+Noodle+Bar") {
		t.Errorf("search URL not generated: %s", got[1].YelpURL)
	}
	for _, id := range got {
		if id.OpenTableURL == "" {
			t.Errorf("identifier %s missing opentable URL", id.Name)
		}
	}
}
