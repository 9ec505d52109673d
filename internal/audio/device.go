package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alkime/storytime/pkg/channels"
	"github.com/alkime/storytime/pkg/collections"
	"github.com/gen2brain/malgo"
)

// DataPacket is one chunk of raw S16LE samples delivered by the driver.
type DataPacket = []byte

// Device is a microphone. The capture session allocates a fresh Device for
// every recording and deallocates it when the recording ends.
type Device interface {
	// CaptureInto opens the microphone. Once started, sampled bytes are
	// written to dataC.
	CaptureInto(ctx context.Context, dataC chan<- DataPacket) error

	// Start begins sampling.
	Start(ctx context.Context) error
	// Stop halts sampling. No packets are sent after it returns. A no-op on
	// a device that is not open.
	Stop(ctx context.Context) error

	// Dealloc closes the microphone. Safe to call more than once.
	Dealloc(ctx context.Context)
}

type microphone struct {
	conf *DeviceConfig

	mctx *malgo.AllocatedContext
	dev  *malgo.Device
	out  *channels.DropCounter[DataPacket]
}

// NewDevice returns a malgo-backed microphone.
func NewDevice(conf *DeviceConfig) Device {
	return &microphone{conf: conf}
}

func (m *microphone) CaptureInto(_ context.Context, dataC chan<- DataPacket) error {
	switch {
	case m.dev != nil:
		return errors.New("microphone already open")
	case dataC == nil:
		return errors.New("no packet channel to capture into")
	case m.conf == nil:
		return errors.New("no device config")
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	devConf := malgo.DefaultDeviceConfig(malgo.Capture)
	devConf.Capture.Format = m.conf.Format
	devConf.Capture.Channels = uint32(m.conf.CaptureChannels)
	devConf.SampleRate = uint32(m.conf.SampleRate)

	out := channels.NewDropCounter(dataC)
	dev, err := malgo.InitDevice(mctx.Context, devConf, malgo.DeviceCallbacks{
		Data: func(_, samples []byte, _ uint32) {
			// samples is driver memory, reused after the callback returns
			packet := make([]byte, len(samples))
			copy(packet, samples)
			out.Send(packet)
		},
	})
	if err != nil {
		freeContext(mctx)
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	m.mctx, m.dev, m.out = mctx, dev, out

	return nil
}

func (m *microphone) Start(context.Context) error {
	if m.dev == nil {
		return errors.New("microphone not open, call CaptureInto first")
	}

	if m.dev.IsStarted() {
		return nil
	}

	if err := m.dev.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	return nil
}

func (m *microphone) Stop(context.Context) error {
	if m.dev == nil {
		return nil
	}

	if err := m.dev.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}

	if dropped := m.out.Dropped(); dropped > 0 {
		slog.Warn("microphone packets dropped", "count", dropped)
	}

	return nil
}

func (m *microphone) Dealloc(context.Context) {
	if m.dev == nil {
		return
	}

	m.dev.Uninit()
	freeContext(m.mctx)
	m.dev, m.mctx = nil, nil
}

// Info describes a capture device.
type Info struct {
	Name        string
	IsDefault   bool
	FormatCount int
	Formats     []string
}

// Devices lists available capture devices.
func Devices(context.Context) ([]Info, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer freeContext(mctx)

	found, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to list capture devices: %w", err)
	}

	return collections.Apply(found, describe), nil
}

func describe(mdi malgo.DeviceInfo) Info {
	n := min(int(mdi.FormatCount), len(mdi.Formats))
	formats := make([]string, 0, n)
	for _, f := range mdi.Formats[:n] {
		formats = append(formats, fmt.Sprintf("%d-byte x%d @ %dHz",
			malgo.SampleSizeInBytes(f.Format), f.Channels, f.SampleRate))
	}

	return Info{
		Name:        mdi.Name(),
		IsDefault:   mdi.IsDefault != 0,
		FormatCount: int(mdi.FormatCount),
		Formats:     formats,
	}
}

func freeContext(mctx *malgo.AllocatedContext) {
	if mctx == nil {
		return
	}

	if err := mctx.Uninit(); err != nil {
		slog.Error("failed to uninitialize malgo context", "error", err)
	}
	mctx.Free()
}
