// Package session holds the client state machine: one microphone capture at a
// time, the pending recording, and the upload of that recording for generation.
//
// The controller is driven from bubbletea commands, which run on their own
// goroutines, so every field is guarded by a mutex and blocking work happens
// outside it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alkime/storytime/internal/audio"
	"github.com/alkime/storytime/internal/story"
	"github.com/alkime/storytime/internal/storyapi"
)

var (
	// ErrNothingToGenerate is returned by Generate when no recording is pending.
	ErrNothingToGenerate = errors.New("no recording to generate from")
	// ErrNotRecording is returned by StopRecording when the microphone is not open.
	ErrNotRecording = errors.New("not recording")
	// ErrBusy is returned when a transition is not allowed in the current state.
	ErrBusy = errors.New("session busy")
)

// Status lines shown to the user.
const (
	StatusRequestingMic  = "Requesting microphone…"
	StatusRecording      = "Recording…"
	StatusSaved          = "Recording saved! Ready to generate."
	StatusMicDenied      = "Microphone access was denied."
	StatusMicUnavailable = "No microphone available."
	StatusSaveFailed     = "Couldn't save the recording."

	ProgressUploading = "Uploading audio and generating panels…"
	ProgressReady     = "Panels ready!"
	ProgressFailed    = "Oops! Something went wrong."
)

// Repository is the story backend.
type Repository interface {
	ListStories(ctx context.Context) ([]story.Summary, error)
	GetStory(ctx context.Context, id story.ID) (story.Story, error)
	CreateStory(ctx context.Context, upload storyapi.Upload, opts ...storyapi.CreateOption) (story.Story, error)
}

// Recorder is the microphone.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (audio.Buffer, bool, error)
	Abandon(ctx context.Context) error
}

// State is derived from the controller's fields.
type State int

const (
	Idle State = iota
	Recording
	Captured
	Generating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Captured:
		return "captured"
	case Generating:
		return "generating"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is a consistent read of the controller for rendering.
type Snapshot struct {
	State        State
	RecordStatus string
	Progress     string

	Recording   bool
	Generating  bool
	CanStart    bool
	CanStop     bool
	CanGenerate bool

	// PendingDuration is the length of the pending recording, if any.
	PendingDuration time.Duration
}

// Controller owns the capture session and the pending recording.
type Controller struct {
	repo Repository
	rec  Recorder

	mu sync.Mutex
	// reserved is set between RequestMicrophone and StartRecording.
	reserved  bool
	starting  bool
	recording bool
	stopping  bool
	pending   *audio.Buffer
	inflight  *audio.Buffer

	recordStatus string
	progress     string
}

// New returns an idle controller.
func New(repo Repository, rec Recorder) *Controller {
	return &Controller{
		repo: repo,
		rec:  rec,
	}
}

// Bootstrap loads the initial story list.
func (c *Controller) Bootstrap(ctx context.Context) []story.Summary {
	return c.Refresh(ctx)
}

// Refresh lists stories. A failed listing is logged and yields an empty list.
func (c *Controller) Refresh(ctx context.Context) []story.Summary {
	summaries, err := c.repo.ListStories(ctx)
	if err != nil {
		slog.Debug("story list unavailable", "error", err)
		return []story.Summary{}
	}

	if summaries == nil {
		return []story.Summary{}
	}

	return summaries
}

// Browse fetches a saved story. Recording state is untouched either way.
func (c *Controller) Browse(ctx context.Context, id story.ID) (story.Story, error) {
	s, err := c.repo.GetStory(ctx, id)
	if err != nil {
		slog.Debug("failed to load story", "id", id, "error", err)
		return story.Story{}, fmt.Errorf("failed to load story %s: %w", id, err)
	}

	return s, nil
}

// RequestMicrophone reserves the start transition so the UI can show the
// request status before the blocking StartRecording runs.
func (c *Controller) RequestMicrophone() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.canStartLocked() {
		return c.startRefusalLocked()
	}

	c.reserved = true
	c.pending = nil
	c.recordStatus = StatusRequestingMic

	return nil
}

// StartRecording opens the microphone. Any stale pending recording is
// discarded first.
func (c *Controller) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	if c.reserved {
		c.reserved = false
	} else if !c.canStartLocked() {
		err := c.startRefusalLocked()
		c.mu.Unlock()
		return err
	}
	c.starting = true
	c.pending = nil
	c.recordStatus = StatusRequestingMic
	c.mu.Unlock()

	err := c.rec.Start(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.starting = false
	if err != nil {
		c.recordStatus = micFailureStatus(err)
		slog.Warn("failed to start recording", "error", err)
		return fmt.Errorf("failed to start recording: %w", err)
	}

	c.recording = true
	c.recordStatus = StatusRecording

	return nil
}

// StopRecording closes the microphone and keeps the recording as pending.
func (c *Controller) StopRecording(ctx context.Context) (audio.Buffer, error) {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return audio.Buffer{}, ErrNotRecording
	}
	c.recording = false
	c.stopping = true
	c.mu.Unlock()

	buf, ok, err := c.rec.Stop(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopping = false
	if err != nil {
		c.recordStatus = StatusSaveFailed
		slog.Warn("failed to stop recording", "error", err)
		return audio.Buffer{}, fmt.Errorf("failed to stop recording: %w", err)
	}

	if !ok {
		c.recordStatus = ""
		return audio.Buffer{}, ErrNotRecording
	}

	c.pending = &buf
	c.recordStatus = StatusSaved
	slog.Debug("recording saved", "bytes", len(buf.Data), "duration", buf.Duration)

	return buf, nil
}

// Generate submits the pending recording. On failure the recording is
// restored so the user can try again.
func (c *Controller) Generate(ctx context.Context, opts ...storyapi.CreateOption) (story.Story, error) {
	c.mu.Lock()
	if c.inflight != nil {
		c.mu.Unlock()
		return story.Story{}, fmt.Errorf("%w: generation in progress", ErrBusy)
	}

	if c.pending == nil {
		c.mu.Unlock()
		return story.Story{}, ErrNothingToGenerate
	}

	buf := c.pending
	c.pending = nil
	c.inflight = buf
	c.progress = ProgressUploading
	c.mu.Unlock()

	s, err := c.repo.CreateStory(ctx, storyapi.Upload{
		Data:        buf.Data,
		Filename:    buf.Filename,
		ContentType: buf.ContentType,
	}, opts...)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.inflight = nil
	if err != nil {
		c.progress = ProgressFailed
		c.pending = buf
		slog.Warn("story generation failed", "error", err)
		return story.Story{}, fmt.Errorf("failed to generate story: %w", err)
	}

	c.progress = ProgressReady
	slog.Info("story generated", "id", s.ID, "panels", len(s.Panels))

	return s, nil
}

// Close releases the microphone if it is open.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	active := c.recording || c.starting || c.stopping
	c.recording = false
	c.reserved = false
	c.mu.Unlock()

	if !active {
		return nil
	}

	if err := c.rec.Abandon(ctx); err != nil {
		return fmt.Errorf("failed to release microphone: %w", err)
	}

	return nil
}

// Snapshot returns the current state and control flags.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:        c.stateLocked(),
		RecordStatus: c.recordStatus,
		Progress:     c.progress,
		Recording:    c.reserved || c.starting || c.recording || c.stopping,
		Generating:   c.inflight != nil,
		CanStart:     c.canStartLocked(),
		CanStop:      c.recording,
		CanGenerate:  c.pending != nil && c.inflight == nil,
	}

	if c.pending != nil {
		snap.PendingDuration = c.pending.Duration
	}

	return snap
}

// State returns the derived state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	switch {
	case c.reserved || c.starting || c.recording || c.stopping:
		return Recording
	case c.inflight != nil:
		return Generating
	case c.pending != nil:
		return Captured
	default:
		return Idle
	}
}

func (c *Controller) canStartLocked() bool {
	return !c.reserved && !c.starting && !c.recording && !c.stopping && c.inflight == nil
}

func (c *Controller) startRefusalLocked() error {
	if c.inflight != nil {
		return fmt.Errorf("%w: generation in progress", ErrBusy)
	}

	return audio.ErrCaptureActive
}

func micFailureStatus(err error) string {
	if errors.Is(err, audio.ErrPermissionDenied) {
		return StatusMicDenied
	}

	return StatusMicUnavailable
}
