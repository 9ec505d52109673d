// Package tui is the bubbletea front end: the story list, the recording
// controls, and the story viewer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alkime/storytime/internal/render"
	"github.com/alkime/storytime/internal/session"
	"github.com/alkime/storytime/internal/story"
	"github.com/alkime/storytime/internal/storyapi"
	"github.com/alkime/storytime/internal/tui/components/labeledspinner"
	"github.com/alkime/storytime/internal/tui/components/waveform"
	"github.com/alkime/storytime/internal/tui/style"
	"github.com/alkime/storytime/pkg/uictl"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/stopwatch"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	listRows      = 6
	waveHeight    = 2
	// rows used by everything above and below the story viewport
	chromeRows = 22
)

// Config wires the model to its collaborators. Only Controller is required.
type Config struct {
	Controller *session.Controller
	// Levels and Captured feed the live recording telemetry.
	Levels   uictl.Levels[int16]
	Captured uictl.Dial[int64]
	Player   Launcher
	// ResolveURL turns relative audio and image locators into absolute ones.
	ResolveURL func(string) string
	// Title, when set, is sent with every generated story.
	Title string
}

type storiesLoadedMsg struct {
	stories []story.Summary
}

type recordingStartedMsg struct {
	err error
}

type recordingStoppedMsg struct {
	err error
}

type generatedMsg struct {
	story story.Story
	err   error
}

type storyLoadedMsg struct {
	story story.Story
	err   error
}

type revealMsg struct {
	reveal render.Reveal
}

// Model is the root bubbletea model.
type Model struct {
	ctrl       *session.Controller
	levels     uictl.Levels[int16]
	captured   uictl.Dial[int64]
	player     Launcher
	resolveURL func(string) string
	title      string

	keys      KeyMap
	spinner   labeledspinner.Model
	stopwatch stopwatch.Model
	waveform  waveform.Model
	progress  progress.Model
	viewport  viewport.Model

	stories []story.Summary
	cursor  int
	view    *render.View
	notice  string

	// animation loops run only while these are set
	recording  bool
	generating bool

	width  int
	height int
}

// New creates the root model.
func New(cfg Config) *Model {
	resolve := cfg.ResolveURL
	if resolve == nil {
		resolve = func(ref string) string { return ref }
	}

	vp := viewport.New(defaultWidth-4, defaultHeight-chromeRows)
	// the list owns up and down
	vp.KeyMap.Up.SetEnabled(false)
	vp.KeyMap.Down.SetEnabled(false)

	return &Model{
		ctrl:       cfg.Controller,
		levels:     cfg.Levels,
		captured:   cfg.Captured,
		player:     cfg.Player,
		resolveURL: resolve,
		title:      cfg.Title,
		keys:       DefaultKeyMap(),
		spinner: labeledspinner.New(spinner.Dot,
			session.ProgressUploading,
			"Turning your story into pictures."),
		stopwatch: stopwatch.NewWithInterval(time.Second),
		waveform:  waveform.New(cfg.Levels, defaultWidth-4, waveHeight),
		progress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
			progress.WithoutPercentage(),
		),
		viewport: vp,
		stories:  []story.Summary{},
		width:    defaultWidth,
		height:   defaultHeight,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.bootstrapCmd(), tea.WindowSize())
}

func (m *Model) Update(teaMsg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := teaMsg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case storiesLoadedMsg:
		m.stories = msg.stories
		m.cursor = min(m.cursor, max(len(m.stories)-1, 0))
		return m, nil

	case recordingStartedMsg:
		if msg.err != nil {
			return m, nil
		}
		m.recording = true
		return m, tea.Batch(m.stopwatch.Reset(), m.stopwatch.Start(), m.waveform.Init())

	case recordingStoppedMsg:
		m.recording = false
		return m, m.stopwatch.Stop()

	case generatedMsg:
		if errors.Is(msg.err, session.ErrBusy) || errors.Is(msg.err, session.ErrNothingToGenerate) {
			// a repeated keypress lost the race; the first upload is still running
			return m, nil
		}
		m.generating = false
		if msg.err != nil {
			return m, nil
		}
		// show the new story before asking for the refreshed list
		v := m.show(msg.story, render.Staggered)
		cmds := m.revealCmds(v)
		cmds = append(cmds, m.refreshCmd())
		return m, tea.Batch(cmds...)

	case storyLoadedMsg:
		if msg.err != nil {
			return m, nil
		}
		m.show(msg.story, render.Instant)
		return m, nil

	case revealMsg:
		if m.view != nil && m.view.Apply(msg.reveal) {
			m.refreshViewport()
		}
		return m, nil

	case playerDoneMsg:
		if msg.err != nil {
			slog.Warn("audio player failed", "error", msg.err)
			m.notice = "Couldn't play the audio."
		}
		return m, nil

	case spinner.TickMsg:
		if !m.generating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case waveform.TickMsg:
		if !m.recording {
			return m, nil
		}
		var cmd tea.Cmd
		m.waveform, cmd = m.waveform.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model) //nolint:forcetypeassert // bubbles library contract
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.stopwatch, cmd = m.stopwatch.Update(teaMsg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(teaMsg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.keys.syncEnabled(m.ctrl.Snapshot(), m.canPlay())
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		if err := m.ctrl.Close(context.Background()); err != nil {
			slog.Error("failed to close session", "error", err)
		}
		m.recording = false
		if m.view != nil {
			m.view.Close()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Record):
		if err := m.ctrl.RequestMicrophone(); err != nil {
			return m, nil
		}
		return m, m.startCmd()

	case key.Matches(msg, m.keys.Stop):
		return m, m.stopCmd()

	case key.Matches(msg, m.keys.Generate):
		if m.generating {
			return m, nil
		}
		m.generating = true
		var tick tea.Cmd
		m.spinner, tick = m.spinner.Start()
		return m, tea.Batch(m.generateCmd(), tick)

	case key.Matches(msg, m.keys.Up):
		m.cursor = max(m.cursor-1, 0)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.cursor = min(m.cursor+1, max(len(m.stories)-1, 0))
		return m, nil

	case key.Matches(msg, m.keys.Open):
		if len(m.stories) == 0 {
			return m, nil
		}
		return m, m.browseCmd(m.stories[m.cursor].ID)

	case key.Matches(msg, m.keys.Play):
		return m, m.player.Launch(m.resolveURL(m.view.Story().AudioURL))
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)

	return m, cmd
}

func (m *Model) View() string {
	snap := m.ctrl.Snapshot()
	m.keys.syncEnabled(snap, m.canPlay())

	var sb strings.Builder

	sb.WriteString(style.Title.Render("StoryTime"))
	sb.WriteString("\n\n")

	sb.WriteString(m.recordView(snap))
	sb.WriteString("\n")
	sb.WriteString(m.progressView(snap))
	sb.WriteString("\n\n")

	sb.WriteString(style.Label.Render("Your stories"))
	sb.WriteString("\n")
	sb.WriteString(renderList(m.stories, m.cursor, listRows))
	sb.WriteString("\n\n")

	if m.view != nil {
		sb.WriteString(style.Viewport.Render(m.viewport.View()))
	} else {
		sb.WriteString(style.Muted.Render("Pick a story or record a new one."))
	}
	sb.WriteString("\n")

	if m.notice != "" {
		sb.WriteString(style.Error.Render(m.notice))
		sb.WriteString("\n")
	}

	sb.WriteString(renderHelp(m.keys.ShortHelp()))
	sb.WriteString("\n")

	return sb.String()
}

func (m *Model) recordView(snap session.Snapshot) string {
	var sb strings.Builder

	if snap.CanStop {
		sb.WriteString(style.Warning.Render("● " + snap.RecordStatus))
		sb.WriteString(" ")
		sb.WriteString(style.Subtitle.Render(m.stopwatch.View()))
		if m.captured != nil {
			sb.WriteString(style.Muted.Render(fmt.Sprintf("  %d KB", m.captured.Read()/1024)))
		}
		sb.WriteString("\n")
		sb.WriteString(m.waveform.View())

		return sb.String()
	}

	switch snap.RecordStatus {
	case session.StatusSaved:
		sb.WriteString(style.Success.Render(snap.RecordStatus))
		if snap.PendingDuration > 0 {
			sb.WriteString(style.Muted.Render(" (" + snap.PendingDuration.Round(time.Second).String() + ")"))
		}
	case session.StatusMicDenied, session.StatusMicUnavailable, session.StatusSaveFailed:
		sb.WriteString(style.Error.Render(snap.RecordStatus))
	default:
		sb.WriteString(style.Subtitle.Render(snap.RecordStatus))
	}

	return sb.String()
}

func (m *Model) progressView(snap session.Snapshot) string {
	if snap.Generating {
		return m.spinner.View()
	}

	switch snap.Progress {
	case "":
		return ""
	case session.ProgressFailed:
		return style.Error.Render(snap.Progress)
	case session.ProgressReady:
		s := style.Success.Render(snap.Progress)
		if m.view != nil && m.view.Mode() == render.Staggered {
			total := len(m.view.Story().Panels)
			if total > 0 && m.view.Revealed() < total {
				s += " " + m.progress.ViewAs(float64(m.view.Revealed())/float64(total))
			}
		}
		return s
	default:
		return style.Progress.Render(snap.Progress)
	}
}

func (m *Model) canPlay() bool {
	return m.player != nil && m.view != nil && m.view.Story().AudioURL != ""
}

// show replaces the current story view, dropping any reveals still pending
// for the old one.
func (m *Model) show(s story.Story, mode render.Mode) *render.View {
	if m.view != nil {
		m.view.Close()
	}

	m.view = render.Render(s, mode, render.WithURLResolver(m.resolveURL))
	m.refreshViewport()
	m.viewport.GotoTop()

	return m.view
}

func (m *Model) refreshViewport() {
	if m.view == nil {
		return
	}

	m.viewport.SetContent(m.view.Content(m.viewport.Width - 2))
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	m.viewport.Width = max(width-4, 20)
	m.viewport.Height = max(height-chromeRows, 5)
	m.waveform = waveform.New(m.levels, max(width-4, 10), waveHeight)
	m.refreshViewport()
}

func (m *Model) revealCmds(v *render.View) []tea.Cmd {
	sched := v.Schedule()
	cmds := make([]tea.Cmd, 0, len(sched))

	for _, r := range sched {
		cmds = append(cmds, tea.Tick(r.Delay, func(time.Time) tea.Msg {
			return revealMsg{reveal: r}
		}))
	}

	return cmds
}

func (m *Model) bootstrapCmd() tea.Cmd {
	return func() tea.Msg {
		return storiesLoadedMsg{stories: m.ctrl.Bootstrap(context.Background())}
	}
}

func (m *Model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return storiesLoadedMsg{stories: m.ctrl.Refresh(context.Background())}
	}
}

func (m *Model) startCmd() tea.Cmd {
	return func() tea.Msg {
		return recordingStartedMsg{err: m.ctrl.StartRecording(context.Background())}
	}
}

func (m *Model) stopCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.ctrl.StopRecording(context.Background())
		return recordingStoppedMsg{err: err}
	}
}

func (m *Model) generateCmd() tea.Cmd {
	var opts []storyapi.CreateOption
	if m.title != "" {
		opts = append(opts, storyapi.WithTitle(m.title))
	}

	return func() tea.Msg {
		s, err := m.ctrl.Generate(context.Background(), opts...)
		return generatedMsg{story: s, err: err}
	}
}

func (m *Model) browseCmd(id story.ID) tea.Cmd {
	return func() tea.Msg {
		s, err := m.ctrl.Browse(context.Background(), id)
		return storyLoadedMsg{story: s, err: err}
	}
}
