package story_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/alkime/storytime/internal/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected story.ID
	}{
		{name: "string", input: `"3f2a-11"`, expected: "3f2a-11"},
		{name: "integer", input: `1`, expected: "1"},
		{name: "large integer", input: `9007199254740993`, expected: "9007199254740993"},
		{name: "null", input: `null`, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var id story.ID
			require.NoError(t, json.Unmarshal([]byte(tt.input), &id))
			assert.Equal(t, tt.expected, id)
		})
	}
}

func TestID_UnmarshalJSON_Invalid(t *testing.T) {
	t.Parallel()

	var id story.ID
	require.Error(t, json.Unmarshal([]byte(`{"a":1}`), &id))
}

func TestID_MarshalJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(story.ID("42"))
	require.NoError(t, err)
	assert.Equal(t, `42`, string(b))

	b, err = json.Marshal(story.ID("abc"))
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, string(b))

	for _, id := range []story.ID{"007", "+5", "-0", "1e3"} {
		b, err = json.Marshal(id)
		require.NoError(t, err)
		assert.Equal(t, `"`+string(id)+`"`, string(b), "id %q", id)

		var back story.ID
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, id, back)
	}

	b, err = json.Marshal(story.ID("-12"))
	require.NoError(t, err)
	assert.Equal(t, `-12`, string(b))
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{
			name:     "rfc3339 utc",
			input:    "2024-01-01T00:00:00Z",
			expected: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "zone-less isoformat with micros",
			input:    "2024-03-05T10:11:12.123456",
			expected: time.Date(2024, 3, 5, 10, 11, 12, 123456000, time.UTC),
		},
		{
			name:     "offset",
			input:    "2024-01-01T02:00:00+02:00",
			expected: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts, err := story.ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(ts.Time), "got %s", ts.Time)
		})
	}

	_, err := story.ParseTimestamp("yesterday")
	require.Error(t, err)
}

func TestStory_DecodeFullShape(t *testing.T) {
	t.Parallel()

	raw := `{
		"id": 1,
		"title": "Trip",
		"created_at": "2024-01-01T00:00:00Z",
		"audio_url": "/audio/1_story.mp3",
		"transcript": "We went to the park.",
		"panels": [
			{"image_url": "https://img/1", "caption_text": "first", "image_prompt": "ignored"},
			{"image_url": "https://img/2", "caption_text": "second"}
		]
	}`

	var s story.Story
	require.NoError(t, json.Unmarshal([]byte(raw), &s))

	assert.Equal(t, story.ID("1"), s.ID)
	assert.Equal(t, "Trip", s.Title)
	assert.Equal(t, "/audio/1_story.mp3", s.AudioURL)
	require.Len(t, s.Panels, 2)
	assert.Equal(t, "first", s.Panels[0].CaptionText)
	assert.Equal(t, "second", s.Panels[1].CaptionText)
	assert.Equal(t, story.Summary{ID: "1", Title: "Trip", CreatedAt: s.CreatedAt}, s.Summary())
}

func TestTimestamp_UnmarshalJSONIsLenient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{name: "unparseable string", input: `"yesterday-ish"`},
		{name: "empty string", input: `""`},
		{name: "null", input: `null`},
		{name: "object", input: `{"when":"now"}`},
		{name: "unix seconds", input: `1700000000`, want: time.Unix(1700000000, 0).UTC()},
		{name: "rfc1123", input: `"Mon, 02 Jan 2006 15:04:05 UTC"`, want: time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)},
		{name: "compact zone", input: `"2024-05-06T07:08:09+0000"`, want: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var ts story.Timestamp
			require.NoError(t, json.Unmarshal([]byte(tt.input), &ts))
			if tt.want.IsZero() {
				assert.True(t, ts.IsZero(), "got %s", ts.Time)
				return
			}
			assert.True(t, tt.want.Equal(ts.Time), "got %s", ts.Time)
		})
	}
}

func TestStory_DecodeWithBadCreatedAt(t *testing.T) {
	t.Parallel()

	var s story.Story
	require.NoError(t, json.Unmarshal([]byte(`{"id": 3, "title": "Odd", "created_at": "sometime"}`), &s))

	assert.Equal(t, story.ID("3"), s.ID)
	assert.Equal(t, "Odd", s.Title)
	assert.True(t, s.CreatedAt.IsZero())
}

func TestStory_Clone(t *testing.T) {
	t.Parallel()

	orig := story.Story{Panels: []story.Panel{{CaptionText: "a"}}}
	c := orig.Clone()
	c.Panels[0].CaptionText = "b"

	assert.Equal(t, "a", orig.Panels[0].CaptionText)
}
