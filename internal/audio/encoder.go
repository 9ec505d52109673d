package audio

import (
	"bytes"
	"fmt"
	"log/slog"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
)

// Encoder turns a finished recording's raw S16LE PCM into an uploadable file.
type Encoder interface {
	Encode(pcm []byte) ([]byte, error)
	ContentType() string
	Filename() string
}

// MP3Encoder encodes PCM to MP3 with shine.
type MP3Encoder struct {
	SampleRate int
	Channels   int
}

// NewMP3Encoder returns an encoder matching the capture config.
func NewMP3Encoder(conf DeviceConfig) MP3Encoder {
	return MP3Encoder{
		SampleRate: conf.SampleRate,
		Channels:   conf.CaptureChannels,
	}
}

func (e MP3Encoder) ContentType() string { return "audio/mpeg" }

func (e MP3Encoder) Filename() string { return "story.mp3" }

func (e MP3Encoder) Encode(pcm []byte) ([]byte, error) {
	samples := BytesToInt16(pcm)
	if len(samples) == 0 {
		return []byte{}, nil
	}

	if e.Channels == 1 {
		// WORKAROUND: shine-mp3 Write() has a bug for mono (always increments by samples_per_pass * 2)
		// Convert mono to stereo by duplicating samples (L=R)
		stereo := make([]int16, len(samples)*2)
		for i, sample := range samples {
			stereo[i*2] = sample
			stereo[i*2+1] = sample
		}
		samples = stereo
	}

	slog.Debug("encoding MP3",
		"sampleRate", e.SampleRate,
		"stereoSamples", len(samples))

	var out bytes.Buffer
	enc := mp3encoder.NewEncoder(e.SampleRate, 2)
	if err := enc.Write(&out, samples); err != nil {
		return nil, fmt.Errorf("failed to encode audio to MP3: %w", err)
	}

	return out.Bytes(), nil
}
