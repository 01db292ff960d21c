package models

import (
	"encoding/json"
	"time"
)

// isoLayout matches the millisecond ISO-8601 form the web client writes.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp is a UTC instant that tolerates empty or malformed JSON values.
// A value that cannot be parsed decodes to the zero Timestamp instead of
// failing the whole collection.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t normalized to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(isoLayout))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		t.Time = time.Time{}
		return nil
	}
	t.Time = parsed.UTC()
	return nil
}
