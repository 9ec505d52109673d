package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// PlaceholderTranscript is used when no speech-to-text service is configured.
const PlaceholderTranscript = "A kid tells a story about a brave friend and a sunny day."

// Audio is an uploaded narration.
type Audio struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Transcriber turns narration audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
}

// WhisperTranscriber transcribes with the OpenAI Whisper API.
type WhisperTranscriber struct {
	client openai.Client
}

// NewWhisperTranscriber creates a Whisper client. Extra options are applied
// after the API key.
func NewWhisperTranscriber(apiKey string, opts ...option.RequestOption) (*WhisperTranscriber, error) {
	if apiKey == "" {
		return nil, errors.New("API key required: set OPENAI_API_KEY or run storytime config set-key openai")
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &WhisperTranscriber{client: openai.NewClient(opts...)}, nil
}

// Transcribe sends audio to Whisper and returns the recognized text.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", errors.New("no audio to transcribe")
	}

	filename := audio.Filename
	if filename == "" {
		filename = "story.mp3"
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio.Data), filename, audio.ContentType),
		Model: openai.AudioModelWhisper1,
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription via Whisper API: %w", err)
	}

	return resp.Text, nil
}

// PlaceholderTranscriber returns PlaceholderTranscript for any input.
type PlaceholderTranscriber struct{}

func (PlaceholderTranscriber) Transcribe(context.Context, Audio) (string, error) {
	return PlaceholderTranscript, nil
}
