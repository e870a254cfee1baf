package cache

import (
	"encoding/json"
	"time"
)

// Entry is a TTL-bounded cache record. The payload type differs per store
// instantiation (raw scrape pointers vs structured extraction results) while
// the header fields and validity semantics are shared.
//
// Entries serialize flat by default: payload fields are merged into the same
// JSON object as the header fields, matching the scrape snapshot format.
// Flattened payload field names must not collide with the header names.
// Payloads implementing KeyedPayload nest under their own key instead, for
// snapshot formats that carry the payload as a single field.
type Entry[P any] struct {
	Name        string    `json:"restaurant_name"`
	Source      string    `json:"source"`
	FetchedAt   time.Time `json:"fetched_at"`
	TTLDays     int       `json:"ttl_days"`
	ContentHash string    `json:"content_hash,omitempty"`
	Payload     P         `json:"-"`
}

// KeyedPayload marks payload types that serialize under a single named key
// in the entry object instead of being flattened into it.
type KeyedPayload interface {
	PayloadKey() string
}

// entryHeader mirrors Entry without the payload, for (un)marshaling.
type entryHeader struct {
	Name        string    `json:"restaurant_name"`
	Source      string    `json:"source"`
	FetchedAt   time.Time `json:"fetched_at"`
	TTLDays     int       `json:"ttl_days"`
	ContentHash string    `json:"content_hash,omitempty"`
}

// ExpiresAt returns the instant the entry becomes invalid.
func (e *Entry[P]) ExpiresAt() time.Time {
	return e.FetchedAt.Add(time.Duration(e.TTLDays) * 24 * time.Hour)
}

// Valid reports whether the entry is still usable at the given time.
// The TTL boundary is exclusive: an entry exactly at expiry is invalid.
func (e *Entry[P]) Valid(now time.Time) bool {
	return now.Before(e.ExpiresAt())
}

// MarshalJSON flattens the payload fields into the entry object, or nests
// them under the payload's key when it implements KeyedPayload.
func (e Entry[P]) MarshalJSON() ([]byte, error) {
	merged := map[string]json.RawMessage{}

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	if kp, ok := any(e.Payload).(KeyedPayload); ok {
		merged[kp.PayloadKey()] = payload
	} else {
		// A payload that is not a JSON object (e.g. struct-less
		// instantiations in tests) is carried under an explicit key instead
		// of being flattened.
		var payloadFields map[string]json.RawMessage
		if err := json.Unmarshal(payload, &payloadFields); err == nil {
			for k, v := range payloadFields {
				merged[k] = v
			}
		} else {
			merged["payload"] = payload
		}
	}

	header, err := json.Marshal(entryHeader{
		Name:        e.Name,
		Source:      e.Source,
		FetchedAt:   e.FetchedAt,
		TTLDays:     e.TTLDays,
		ContentHash: e.ContentHash,
	})
	if err != nil {
		return nil, err
	}
	var headerFields map[string]json.RawMessage
	if err := json.Unmarshal(header, &headerFields); err != nil {
		return nil, err
	}
	for k, v := range headerFields {
		merged[k] = v
	}

	return json.Marshal(merged)
}

// UnmarshalJSON reads header and payload fields from the same flat object.
func (e *Entry[P]) UnmarshalJSON(data []byte) error {
	var header entryHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return err
	}
	e.Name = header.Name
	e.Source = header.Source
	e.FetchedAt = header.FetchedAt
	e.TTLDays = header.TTLDays
	e.ContentHash = header.ContentHash

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var zero P
	if kp, ok := any(zero).(KeyedPayload); ok {
		if raw, ok := fields[kp.PayloadKey()]; ok {
			return json.Unmarshal(raw, &e.Payload)
		}
		return nil
	}

	if raw, ok := fields["payload"]; ok {
		return json.Unmarshal(raw, &e.Payload)
	}
	return json.Unmarshal(data, &e.Payload)
}
