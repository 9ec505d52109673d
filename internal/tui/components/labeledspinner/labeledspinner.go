// Package labeledspinner shows a spinner with a title, a subtitle and the time
// spent waiting so far.
package labeledspinner

import (
	"strings"
	"time"

	"github.com/alkime/storytime/internal/tui/style"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model displays a spinner while a long request is in flight.
type Model struct {
	Spinner  spinner.Model
	Title    string
	Subtitle string

	started time.Time
	now     func() time.Time
}

// New creates a labeled spinner.
func New(s spinner.Spinner, title, subtitle string) Model {
	sp := spinner.New()
	sp.Spinner = s

	return Model{
		Spinner:  sp,
		Title:    title,
		Subtitle: subtitle,
		now:      time.Now,
	}
}

// Start resets the elapsed clock and returns the first tick.
func (ls Model) Start() (Model, tea.Cmd) {
	ls.started = ls.now()

	return ls, ls.Spinner.Tick
}

// Update handles spinner tick messages.
func (ls Model) Update(teaMsg tea.Msg) (Model, tea.Cmd) {
	if tickMsg, ok := teaMsg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		ls.Spinner, cmd = ls.Spinner.Update(tickMsg)

		return ls, cmd
	}

	return ls, nil
}

// Elapsed is the time since Start, rounded to the second.
func (ls Model) Elapsed() time.Duration {
	if ls.started.IsZero() {
		return 0
	}

	return ls.now().Sub(ls.started).Round(time.Second)
}

// View renders the spinner on the title line with the subtitle and elapsed
// time beneath it.
func (ls Model) View() string {
	var sb strings.Builder

	sb.WriteString(ls.Spinner.View())
	sb.WriteString(" ")
	sb.WriteString(style.Progress.Render(ls.Title))
	sb.WriteString("\n")

	sb.WriteString(style.Subtitle.Render(ls.Subtitle))
	if !ls.started.IsZero() {
		sb.WriteString(style.Muted.Render(" " + ls.Elapsed().String()))
	}

	return sb.String()
}

// WithClock replaces the clock used for the elapsed time.
func (ls Model) WithClock(now func() time.Time) Model {
	ls.now = now

	return ls
}
