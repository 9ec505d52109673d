package generate_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/alkime/storytime/internal/generate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeTranscriber struct {
	text string
	err  error
	got  generate.Audio
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio generate.Audio) (string, error) {
	f.got = audio
	return f.text, f.err
}

type fakePlanner struct {
	plan generate.Plan
	err  error
	got  string
}

func (f *fakePlanner) Plan(_ context.Context, transcript string) (generate.Plan, error) {
	f.got = transcript
	return f.plan, f.err
}

func TestGenerate_Offline(t *testing.T) {
	t.Parallel()

	g, err := generate.NewFromKeys(generate.Keys{}, discard)
	require.NoError(t, err)

	res, err := g.Generate(context.Background(), generate.Audio{Data: []byte{1}}, "")
	require.NoError(t, err)

	assert.Equal(t, "A Day of Adventure", res.Title)
	assert.Equal(t, generate.PlaceholderTranscript, res.Transcript)
	require.Len(t, res.Panels, generate.PanelCount)
	assert.Equal(t, "Luna the Explorer arrives in a sunny park.", res.Panels[0].CaptionText)
	assert.Equal(t, "A problem appears: a lost kite.", res.Panels[1].CaptionText)
	assert.Equal(t, "Luna the Explorer takes action by searching with a helpful dog.", res.Panels[2].CaptionText)
	assert.Equal(t, "The outcome is finding the kite and celebrating.", res.Panels[3].CaptionText)
	for i, p := range res.Panels {
		assert.Equal(t, generate.PlaceholderImageURL(i+1), p.ImageURL)
		assert.NotEmpty(t, p.ImagePrompt)
	}
	assert.Equal(t, "https://placehold.co/600x400/png?text=Panel+1", res.Panels[0].ImageURL)
}

func TestGenerate_TitleOverride(t *testing.T) {
	t.Parallel()

	g := generate.New(generate.PlaceholderTranscriber{}, generate.FallbackPlanner{}, discard)

	res, err := g.Generate(context.Background(), generate.Audio{}, "  My Dragon  ")
	require.NoError(t, err)
	assert.Equal(t, "My Dragon", res.Title)

	res, err = g.Generate(context.Background(), generate.Audio{}, "   ")
	require.NoError(t, err)
	assert.Equal(t, "A Day of Adventure", res.Title)
}

func TestGenerate_FiltersEverything(t *testing.T) {
	t.Parallel()

	tr := &fakeTranscriber{text: "the pirate had a knife"}
	pl := &fakePlanner{plan: generate.Plan{
		Title: "Blood Moon",
		Panels: []generate.PanelPlan{
			{Caption: "A gun appears", ImagePrompt: "a weapon on a table"},
		},
	}}
	g := generate.New(tr, pl, discard)

	audio := generate.Audio{Data: []byte("pcm"), Filename: "story.mp3", ContentType: "audio/mpeg"}
	res, err := g.Generate(context.Background(), audio, "")
	require.NoError(t, err)

	assert.Equal(t, audio, tr.got)
	assert.Equal(t, "the pirate had a knife", pl.got, "planner sees the raw transcript")
	assert.Equal(t, "* Moon", res.Title)
	assert.Equal(t, "the pirate had a *", res.Transcript)
	require.Len(t, res.Panels, 1)
	assert.Equal(t, "A * appears", res.Panels[0].CaptionText)
	assert.Equal(t, "a * on a table", res.Panels[0].ImagePrompt)

	res, err = g.Generate(context.Background(), audio, "kill the dragon")
	require.NoError(t, err)
	assert.Equal(t, "* the dragon", res.Title)
}

func TestGenerate_StageErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	g := generate.New(&fakeTranscriber{err: boom}, &fakePlanner{}, discard)
	_, err := g.Generate(context.Background(), generate.Audio{}, "")
	require.ErrorIs(t, err, generate.ErrTranscription)
	require.ErrorIs(t, err, boom)

	g = generate.New(&fakeTranscriber{text: "hi"}, &fakePlanner{err: boom}, discard)
	_, err = g.Generate(context.Background(), generate.Audio{}, "")
	require.ErrorIs(t, err, generate.ErrPlanning)
	require.ErrorIs(t, err, boom)
}

func TestBuildPanels_KeepsOrder(t *testing.T) {
	t.Parallel()

	panels := generate.BuildPanels(generate.Plan{Panels: []generate.PanelPlan{
		{Caption: "one"}, {Caption: "two"}, {Caption: "three"},
	}})

	require.Len(t, panels, 3)
	for i, want := range []string{"one", "two", "three"} {
		assert.Equal(t, want, panels[i].CaptionText)
		assert.Equal(t, generate.PlaceholderImageURL(i+1), panels[i].ImageURL)
	}

	assert.Empty(t, generate.BuildPanels(generate.Plan{}))
}
