package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alkime/storytime/pkg/collections"
	"github.com/alkime/storytime/pkg/uictl"
)

var (
	// ErrPermissionDenied is returned when the microphone could not be started.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceUnavailable is returned when no capture device could be opened.
	ErrDeviceUnavailable = errors.New("microphone unavailable")
	// ErrCaptureActive is returned when Start is called during a recording.
	ErrCaptureActive = errors.New("recording already in progress")
)

const (
	packetBuffer = 256
	levelWindow  = 16_000
)

// Buffer is one finished recording, encoded and ready to upload.
type Buffer struct {
	Data        []byte
	ContentType string
	Filename    string
	Duration    time.Duration
}

// Empty reports whether the recording holds no audio.
func (b Buffer) Empty() bool {
	return len(b.Data) == 0
}

// SessionConfig configures a capture Session.
type SessionConfig struct {
	Device DeviceConfig
	// NewDevice allocates the microphone for a recording. Defaults to NewDevice.
	NewDevice func(*DeviceConfig) Device
	// Encoder defaults to an MP3Encoder for Device.
	Encoder Encoder
}

// Session records one clip at a time from the microphone. Packets are
// collected in arrival order; the clip is encoded when the recording stops.
type Session struct {
	conf    SessionConfig
	levels  *LevelRing
	written atomic.Int64

	mu     sync.Mutex
	active *capture
}

type capture struct {
	dev   Device
	dataC chan DataPacket
	done  chan [][]byte
}

// NewSession validates conf and fills in defaults.
func NewSession(conf SessionConfig) (*Session, error) {
	if err := conf.Device.Validate(); err != nil {
		return nil, fmt.Errorf("invalid device config: %w", err)
	}

	if conf.NewDevice == nil {
		conf.NewDevice = NewDevice
	}

	if conf.Encoder == nil {
		conf.Encoder = NewMP3Encoder(conf.Device)
	}

	return &Session{
		conf:   conf,
		levels: NewLevelRing(levelWindow),
	}, nil
}

// Start opens the microphone and begins collecting audio.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return ErrCaptureActive
	}

	dev := s.conf.NewDevice(&s.conf.Device)
	dataC := make(chan DataPacket, packetBuffer)

	if err := dev.CaptureInto(ctx, dataC); err != nil {
		dev.Dealloc(ctx)
		return classify(err, ErrDeviceUnavailable)
	}

	s.written.Store(0)
	s.levels.Reset()

	c := &capture{
		dev:   dev,
		dataC: dataC,
		done:  make(chan [][]byte, 1),
	}
	go s.collect(c)

	if err := dev.Start(ctx); err != nil {
		dev.Dealloc(ctx)
		close(dataC)
		<-c.done
		return classify(err, ErrPermissionDenied)
	}

	s.active = c
	slog.Debug("recording started", "sampleRate", s.conf.Device.SampleRate)

	return nil
}

// Stop ends the recording and returns the encoded clip. ok is false when no
// recording was in progress. A recording that captured nothing yields an
// empty buffer with ok true.
func (s *Session) Stop(ctx context.Context) (Buffer, bool, error) {
	c := s.take()
	if c == nil {
		return Buffer{}, false, nil
	}

	chunks, err := s.release(ctx, c)
	if err != nil {
		return Buffer{}, false, err
	}

	pcm := collections.Concat(chunks)
	buf := Buffer{
		Data:        []byte{},
		ContentType: s.conf.Encoder.ContentType(),
		Filename:    s.conf.Encoder.Filename(),
		Duration:    s.pcmDuration(len(pcm)),
	}

	if len(pcm) > 0 {
		data, err := s.conf.Encoder.Encode(pcm)
		if err != nil {
			return Buffer{}, false, fmt.Errorf("failed to encode recording: %w", err)
		}
		buf.Data = data
	}

	slog.Debug("recording stopped",
		"chunks", len(chunks),
		"pcmBytes", len(pcm),
		"encodedBytes", len(buf.Data))

	return buf, true, nil
}

// Abandon ends any recording in progress and discards its audio.
func (s *Session) Abandon(ctx context.Context) error {
	c := s.take()
	if c == nil {
		return nil
	}

	_, err := s.release(ctx, c)

	return err
}

// Active reports whether a recording is in progress.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active != nil
}

// BytesCaptured is a dial over the raw bytes collected by the current recording.
func (s *Session) BytesCaptured() uictl.Dial[int64] {
	return uictl.DialFunc[int64](s.written.Load)
}

// Levels returns the most recent samples for drawing a waveform.
func (s *Session) Levels(n int) uictl.Levels[int16] {
	return uictl.LevelsFunc[int16](func() []int16 {
		return s.levels.Read(n)
	})
}

func (s *Session) take() *capture {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.active
	s.active = nil

	return c
}

func (s *Session) collect(c *capture) {
	var chunks [][]byte
	for packet := range c.dataC {
		if len(packet) == 0 {
			continue
		}
		chunks = append(chunks, packet)
		s.written.Add(int64(len(packet)))
		s.levels.Write(BytesToInt16(packet))
	}
	c.done <- chunks
}

// release stops the device, frees it, and waits for the collector to drain.
func (s *Session) release(ctx context.Context, c *capture) ([][]byte, error) {
	if err := c.dev.Stop(ctx); err != nil {
		slog.Warn("failed to stop microphone", "error", err)
	}
	c.dev.Dealloc(ctx)
	close(c.dataC)

	select {
	case chunks := <-c.done:
		return chunks, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("recording did not finish: %w", ctx.Err())
	}
}

func (s *Session) pcmDuration(n int) time.Duration {
	bytesPerSecond := s.conf.Device.SampleRate * s.conf.Device.CaptureChannels * 2
	if bytesPerSecond == 0 {
		return 0
	}

	return time.Duration(n) * time.Second / time.Duration(bytesPerSecond)
}

func classify(err, fallback error) error {
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable) {
		return err
	}

	return fmt.Errorf("%w: %w", fallback, err)
}
