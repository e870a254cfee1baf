package cache

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

type pointerPayload struct {
	MenuURL  string `json:"menu_url"`
	FilePath string `json:"file_path,omitempty"`
}

type structuredPayload struct {
	RestaurantName string   `json:"restaurant_name"`
	Cuisine        []string `json:"cuisine"`
	Status         string   `json:"status"`
}

func (structuredPayload) PayloadKey() string { return "extraction_data" }

func TestEntry_Valid(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		fetchedAt time.Time
		ttlDays   int
		at        time.Time
		want      bool
	}{
		{
			name:      "fresh entry",
			fetchedAt: now,
			ttlDays:   7,
			at:        now.Add(time.Hour),
			want:      true,
		},
		{
			name:      "expired entry",
			fetchedAt: now.Add(-8 * 24 * time.Hour),
			ttlDays:   7,
			at:        now,
			want:      false,
		},
		{
			name:      "exactly at boundary is invalid",
			fetchedAt: now.Add(-7 * 24 * time.Hour),
			ttlDays:   7,
			at:        now,
			want:      false,
		},
		{
			name:      "one instant before boundary is valid",
			fetchedAt: now.Add(-7*24*time.Hour + time.Nanosecond),
			ttlDays:   7,
			at:        now,
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := Entry[pointerPayload]{
				FetchedAt: tt.fetchedAt,
				TTLDays:   tt.ttlDays,
			}
			if got := entry.Valid(tt.at); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_ExpiresAt(t *testing.T) {
	fetched := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	entry := Entry[pointerPayload]{FetchedAt: fetched, TTLDays: 7}

	want := time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC)
	if got := entry.ExpiresAt(); !got.Equal(want) {
		t.Errorf("ExpiresAt() = %v, want %v", got, want)
	}
}

func TestEntry_MarshalFlat(t *testing.T) {
	entry := Entry[pointerPayload]{
		Name:        "Tony's Pizza",
		Source:      "yelp",
		FetchedAt:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		TTLDays:     7,
		ContentHash: "abc123",
		Payload: pointerPayload{
			MenuURL:  "https://www.yelp.com/biz/tonys-pizza",
			FilePath: "data/raw/menus/tony_s_pizza_yelp_2026-01-01.json",
		},
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	// Payload fields sit at the top level of the entry object
	out := string(data)
	for _, field := range []string{`"restaurant_name"`, `"source"`, `"fetched_at"`, `"ttl_days"`, `"content_hash"`, `"menu_url"`, `"file_path"`} {
		if !strings.Contains(out, field) {
			t.Errorf("Marshal() output missing %s: %s", field, out)
		}
	}
	if strings.Contains(out, `"payload"`) {
		t.Errorf("Marshal() should flatten struct payloads, got %s", out)
	}
}

func TestEntry_MarshalKeyedPayloadNests(t *testing.T) {
	entry := Entry[structuredPayload]{
		Name:        "Tony's Pizza",
		Source:      "combined",
		FetchedAt:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		TTLDays:     30,
		ContentHash: "abc123",
		Payload: structuredPayload{
			RestaurantName: "Tony's Pizza",
			Cuisine:        []string{"Italian"},
			Status:         "success",
		},
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	nested, ok := fields["extraction_data"]
	if !ok {
		t.Fatalf("Marshal() output missing extraction_data key: %s", data)
	}
	if _, ok := fields["cuisine"]; ok {
		t.Errorf("keyed payload fields must not be flattened: %s", data)
	}

	var payload structuredPayload
	if err := json.Unmarshal(nested, &payload); err != nil {
		t.Fatalf("nested payload unreadable: %v", err)
	}
	if payload.Status != "success" || len(payload.Cuisine) != 1 {
		t.Errorf("nested payload = %+v", payload)
	}

	// The header's restaurant_name survives alongside the nested copy
	var name string
	if err := json.Unmarshal(fields["restaurant_name"], &name); err != nil || name != "Tony's Pizza" {
		t.Errorf("header restaurant_name = %q (err=%v)", name, err)
	}

	var got Entry[structuredPayload]
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("round trip Unmarshal() error = %v", err)
	}
	if got.Payload.Status != entry.Payload.Status || got.ContentHash != entry.ContentHash {
		t.Errorf("round trip = %+v, want %+v", got, entry)
	}
}

func TestEntry_RoundTrip(t *testing.T) {
	entry := Entry[pointerPayload]{
		Name:        "Tony's Pizza",
		Source:      "opentable",
		FetchedAt:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		TTLDays:     30,
		ContentHash: "deadbeef",
		Payload: pointerPayload{
			MenuURL: "https://www.opentable.com/r/tonys-pizza",
		},
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got Entry[pointerPayload]
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got.Name != entry.Name || got.Source != entry.Source {
		t.Errorf("round trip identity = %q/%q, want %q/%q", got.Name, got.Source, entry.Name, entry.Source)
	}
	if !got.FetchedAt.Equal(entry.FetchedAt) {
		t.Errorf("round trip FetchedAt = %v, want %v", got.FetchedAt, entry.FetchedAt)
	}
	if got.TTLDays != entry.TTLDays || got.ContentHash != entry.ContentHash {
		t.Errorf("round trip meta = %d/%q, want %d/%q", got.TTLDays, got.ContentHash, entry.TTLDays, entry.ContentHash)
	}
	if got.Payload != entry.Payload {
		t.Errorf("round trip payload = %+v, want %+v", got.Payload, entry.Payload)
	}
}
