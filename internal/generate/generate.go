// Package generate turns uploaded narration into a filtered story: speech to
// text, a four panel plan and placeholder illustrations.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alkime/storytime/internal/story"
)

var (
	ErrTranscription = errors.New("transcription failed")
	ErrPlanning      = errors.New("panel planning failed")
)

// PlaceholderImageURL returns the stand-in illustration for the n-th panel,
// counting from 1.
func PlaceholderImageURL(n int) string {
	return fmt.Sprintf("https://placehold.co/600x400/png?text=Panel+%d", n)
}

// Result is the generated content of a story, ready to be persisted.
type Result struct {
	Title      string
	Transcript string
	Panels     []story.Panel
}

// Generator runs the transcription and planning pipeline.
type Generator struct {
	transcriber Transcriber
	planner     Planner
	logger      *slog.Logger
}

// New creates a Generator from explicit stages.
func New(transcriber Transcriber, planner Planner, logger *slog.Logger) *Generator {
	return &Generator{
		transcriber: transcriber,
		planner:     planner,
		logger:      logger,
	}
}

// Keys selects the hosted services. An empty key selects the offline stage.
type Keys struct {
	OpenAI         string
	Anthropic      string
	AnthropicModel string
}

// NewFromKeys wires Whisper and Claude when their keys are present and the
// placeholder stages otherwise.
func NewFromKeys(keys Keys, logger *slog.Logger) (*Generator, error) {
	var transcriber Transcriber = PlaceholderTranscriber{}
	if keys.OpenAI != "" {
		w, err := NewWhisperTranscriber(keys.OpenAI)
		if err != nil {
			return nil, err
		}
		transcriber = w
	}

	var planner Planner = FallbackPlanner{}
	if keys.Anthropic != "" {
		p, err := NewClaudePlanner(keys.Anthropic, keys.AnthropicModel)
		if err != nil {
			return nil, err
		}
		planner = p
	}

	logger.Info("Configured story generation",
		"transcriber", fmt.Sprintf("%T", transcriber),
		"planner", fmt.Sprintf("%T", planner),
	)

	return New(transcriber, planner, logger), nil
}

// Generate transcribes audio, plans the panels and filters all text. A
// non-blank title overrides the planned one.
func (g *Generator) Generate(ctx context.Context, audio Audio, title string) (Result, error) {
	transcript, err := g.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	g.logger.Debug("Transcribed narration", "chars", len(transcript))

	plan, err := g.planner.Plan(ctx, transcript)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrPlanning, err)
	}
	g.logger.Debug("Planned panels", "title", plan.Title, "panels", len(plan.Panels))

	storyTitle := strings.TrimSpace(title)
	if storyTitle == "" {
		storyTitle = plan.Title
	}

	return Result{
		Title:      SafeText(storyTitle),
		Transcript: SafeText(transcript),
		Panels:     BuildPanels(plan),
	}, nil
}

// BuildPanels attaches placeholder images to plan in order and filters the text.
func BuildPanels(plan Plan) []story.Panel {
	panels := make([]story.Panel, 0, len(plan.Panels))
	for i, p := range plan.Panels {
		panels = append(panels, story.Panel{
			ImageURL:    PlaceholderImageURL(i + 1),
			CaptionText: SafeText(p.Caption),
			ImagePrompt: SafeText(p.ImagePrompt),
		})
	}

	return panels
}
