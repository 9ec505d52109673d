package audio

import (
	"errors"

	"github.com/gen2brain/malgo"
)

const (
	// DefaultSampleRate is 16kHz, plenty for narration and the native rate for Whisper.
	DefaultSampleRate = 16_000
	// DefaultChannels is mono.
	DefaultChannels = 1
)

type DeviceConfig struct {
	Format          malgo.FormatType
	CaptureChannels int
	SampleRate      int
}

// DefaultDeviceConfig returns S16LE mono capture at DefaultSampleRate.
func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		Format:          malgo.FormatS16,
		CaptureChannels: DefaultChannels,
		SampleRate:      DefaultSampleRate,
	}
}

// Validate returns an error if the config cannot be captured and encoded.
func (c DeviceConfig) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}

	if c.CaptureChannels != 1 && c.CaptureChannels != 2 {
		return errors.New("capture channels must be 1 or 2")
	}

	if c.Format != malgo.FormatS16 {
		return errors.New("only S16 sample format is supported")
	}

	return nil
}
