package render_test

import (
	"strings"
	"testing"
	"time"

	"github.com/alkime/storytime/internal/render"
	"github.com/alkime/storytime/internal/story"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func sampleStory(panels int) story.Story {
	s := story.Story{
		ID:         "42",
		Title:      "Luna the Explorer",
		CreatedAt:  story.Timestamp{Time: time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)},
		AudioURL:   "/audio/42_story.mp3",
		Transcript: "A kid tells a story about a brave friend and a sunny day.",
	}
	for i := range panels {
		s.Panels = append(s.Panels, story.Panel{
			ImageURL:    "https://placehold.co/600x400/png?text=Panel+" + string(rune('1'+i)),
			CaptionText: "caption-" + string(rune('a'+i)),
		})
	}

	return s
}

func TestRender_Instant(t *testing.T) {
	t.Parallel()

	v := render.Render(sampleStory(4), render.Instant)

	assert.Empty(t, v.Schedule())
	assert.Equal(t, 4, v.Revealed())

	content := v.Content(60)
	for _, caption := range []string{"caption-a", "caption-b", "caption-c", "caption-d"} {
		assert.Contains(t, content, caption)
	}
	assert.Contains(t, content, "Luna the Explorer")
	assert.Contains(t, content, "/audio/42_story.mp3")
	assert.Contains(t, content, "brave friend")
}

func TestRender_PanelOrder(t *testing.T) {
	t.Parallel()

	content := render.Render(sampleStory(3), render.Instant).Content(60)

	a := strings.Index(content, "caption-a")
	b := strings.Index(content, "caption-b")
	c := strings.Index(content, "caption-c")
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestRender_StaggeredSchedule(t *testing.T) {
	t.Parallel()

	v := render.Render(sampleStory(4), render.Staggered)
	assert.Equal(t, 0, v.Revealed())

	sched := v.Schedule()
	require.Len(t, sched, 4)
	for i, r := range sched {
		assert.Equal(t, v.ID(), r.View)
		assert.Equal(t, i, r.Index)
		assert.Equal(t, time.Duration(i)*700*time.Millisecond, r.Delay)
	}
}

func TestRender_StaggeredRevealsIndependently(t *testing.T) {
	t.Parallel()

	v := render.Render(sampleStory(3), render.Staggered)

	content := v.Content(60)
	assert.NotContains(t, content, "caption-a")
	assert.Contains(t, content, "Luna the Explorer")

	// out of order reveal does not depend on earlier panels
	assert.True(t, v.Reveal(2))
	assert.False(t, v.Visible(0))
	assert.True(t, v.Visible(2))

	content = v.Content(60)
	assert.NotContains(t, content, "caption-a")
	assert.Contains(t, content, "caption-c")

	assert.False(t, v.Reveal(2), "second reveal is a no-op")
	assert.False(t, v.Reveal(7), "unknown panel is a no-op")
	assert.False(t, v.Reveal(-1))

	for _, r := range v.Schedule() {
		v.Apply(r)
	}
	assert.Equal(t, 3, v.Revealed())
}

func TestRender_HiddenPanelsKeepLayout(t *testing.T) {
	t.Parallel()

	s := sampleStory(2)
	staggered := render.Render(s, render.Staggered)
	instant := render.Render(s, render.Instant)

	assert.Equal(t, lipgloss.Height(instant.Content(60)), lipgloss.Height(staggered.Content(60)))
}

func TestRender_CloseCancelsReveals(t *testing.T) {
	t.Parallel()

	v := render.Render(sampleStory(2), render.Staggered)
	sched := v.Schedule()
	require.Len(t, sched, 2)

	v.Close()
	assert.True(t, v.Closed())
	assert.Empty(t, v.Schedule())

	for _, r := range sched {
		assert.False(t, v.Apply(r))
	}
	assert.Equal(t, 0, v.Revealed())
}

func TestRender_RevealForOtherViewIgnored(t *testing.T) {
	t.Parallel()

	old := render.Render(sampleStory(2), render.Staggered)
	current := render.Render(sampleStory(2), render.Staggered)
	require.NotEqual(t, old.ID(), current.ID())

	for _, r := range old.Schedule() {
		assert.False(t, current.Apply(r))
	}
	assert.Equal(t, 0, current.Revealed())
}

func TestRender_SameStorySameOutput(t *testing.T) {
	t.Parallel()

	s := sampleStory(4)
	fetched := render.Render(s, render.Instant)
	created := render.Render(s.Clone(), render.Instant)

	assert.Equal(t, fetched.Content(72), created.Content(72))
}

func TestRender_IsolatedFromCaller(t *testing.T) {
	t.Parallel()

	s := sampleStory(1)
	v := render.Render(s, render.Instant)
	s.Panels[0].CaptionText = "changed"

	assert.Equal(t, "caption-a", v.Story().Panels[0].CaptionText)
}

func TestRender_URLResolver(t *testing.T) {
	t.Parallel()

	v := render.Render(sampleStory(1), render.Instant, render.WithURLResolver(func(ref string) string {
		if strings.HasPrefix(ref, "/") {
			return "http://localhost:8000" + ref
		}
		return ref
	}))

	assert.Contains(t, v.Content(80), "http://localhost:8000/audio/42_story.mp3")
}

func TestRender_NoPanels(t *testing.T) {
	t.Parallel()

	v := render.Render(sampleStory(0), render.Staggered)
	assert.Empty(t, v.Schedule())
	assert.Contains(t, v.Content(0), "Luna the Explorer")
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	ts := story.Timestamp{Time: time.Date(2025, 3, 1, 15, 4, 0, 0, time.UTC)}
	assert.Equal(t, ts.Local().Format("Jan 2, 2006 3:04 PM"), render.FormatDate(ts))
	assert.Empty(t, render.FormatDate(story.Timestamp{}))
}

func TestMode_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "instant", render.Instant.String())
	assert.Equal(t, "staggered", render.Staggered.String())
}
