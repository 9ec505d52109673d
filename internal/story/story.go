// Package story defines the data model shared by the story client, renderer and backend.
package story

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Sentinel errors surfaced by the repository client.
var (
	ErrListUnavailable  = errors.New("story list unavailable")
	ErrNotFound         = errors.New("story not found")
	ErrFetchFailed      = errors.New("story fetch failed")
	ErrGenerationFailed = errors.New("story generation failed")
)

// ID is an opaque story identifier. The backend may encode it as a JSON
// string or a JSON number; the textual form is preserved either way.
type ID string

// UnmarshalJSON accepts both quoted strings and bare numbers.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to decode story id: %w", err)
		}
		*id = ID(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("failed to decode story id: %w", err)
	}
	*id = ID(n.String())

	return nil
}

// MarshalJSON writes canonical integer ids as numbers so they round-trip with
// backends that use integer keys. Anything else, including "007" and "+5",
// is written as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}

	return json.Marshal(string(id))
}

func (id ID) String() string {
	return string(id)
}

// Timestamp layouts accepted from the backend, most specific first.
// Zone-less values are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC1123Z,
	time.RFC1123,
	time.DateOnly,
}

// Timestamp is a creation time that tolerates the backend's zone-less
// ISO 8601 output.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s using the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}

	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// UnmarshalJSON decodes a timestamp. The value is display-only, so anything
// unrecognized leaves the zero time instead of failing the enclosing story.
// Bare numbers are read as Unix seconds.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	*ts = Timestamp{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] != '"' {
		var secs json.Number
		if err := json.Unmarshal(data, &secs); err != nil {
			slog.Debug("ignoring created_at", "value", string(data), "error", err)
			return nil
		}
		if f, err := secs.Float64(); err == nil {
			sec := int64(f)
			*ts = Timestamp{Time: time.Unix(sec, int64((f-float64(sec))*1e9)).UTC()}
		}

		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		return nil
	}

	parsed, err := ParseTimestamp(s)
	if err != nil {
		slog.Debug("ignoring created_at", "value", s, "error", err)
		return nil
	}
	*ts = parsed

	return nil
}

// MarshalJSON encodes the timestamp as RFC 3339 in UTC.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte(`""`), nil
	}

	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}

// Panel is one illustrated beat of a story. ImagePrompt is informational
// and only set by backends that record it.
type Panel struct {
	ImageURL    string `json:"image_url"`
	CaptionText string `json:"caption_text"`
	ImagePrompt string `json:"image_prompt,omitempty"`
}

// Summary is the listing view of a story.
type Summary struct {
	ID        ID        `json:"id"`
	Title     string    `json:"title"`
	CreatedAt Timestamp `json:"created_at"`
}

// Story is an immutable snapshot of a generated story. Panels are in
// narrative order and must never be re-sorted.
type Story struct {
	ID         ID        `json:"id"`
	Title      string    `json:"title"`
	CreatedAt  Timestamp `json:"created_at"`
	AudioURL   string    `json:"audio_url"`
	Transcript string    `json:"transcript"`
	Panels     []Panel   `json:"panels"`
}

// Summary returns the listing view of s.
func (s Story) Summary() Summary {
	return Summary{
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
	}
}

// Clone returns a copy of s that shares no slices with the original.
func (s Story) Clone() Story {
	c := s
	if s.Panels != nil {
		c.Panels = make([]Panel, len(s.Panels))
		copy(c.Panels, s.Panels)
	}

	return c
}
