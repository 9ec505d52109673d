// Package waveform draws a live loudness trace of the microphone.
package waveform

import (
	"math"
	"strings"
	"time"

	"github.com/alkime/storytime/internal/tui/style"
	"github.com/alkime/storytime/pkg/uictl"
	tea "github.com/charmbracelet/bubbletea"
)

// Eighth-block glyphs, empty to full.
var blocks = []rune(" ▁▂▃▄▅▆▇█")

const (
	frameInterval = 50 * time.Millisecond
	fullScale     = 32768.0
)

// TickMsg triggers a redraw.
type TickMsg struct{}

// Model renders recent samples as columns of bars, oldest on the left. Each
// column is the RMS loudness of its share of the samples.
type Model struct {
	levels uictl.Levels[int16]
	width  int
	height int
}

// New creates a waveform of the given size in cells.
func New(levels uictl.Levels[int16], width, height int) Model {
	return Model{
		levels: levels,
		width:  max(width, 1),
		height: max(height, 1),
	}
}

// Init starts the redraw loop.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update schedules the next redraw on every tick.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(TickMsg); ok {
		return m, m.tick()
	}

	return m, nil
}

// View draws the waveform, or a flat baseline when there is nothing to show.
func (m Model) View() string {
	var samples []int16
	if m.levels != nil {
		samples = m.levels.Read()
	}

	if len(samples) == 0 {
		return m.baseline()
	}

	heights := m.columnHeights(samples)
	rows := make([]string, m.height)

	for row := range m.height {
		// eighths already drawn by the rows beneath this one
		floor := (m.height - 1 - row) * 8

		line := make([]rune, m.width)
		for col, h := range heights {
			line[col] = blocks[min(max(h-floor, 0), 8)]
		}
		rows[row] = style.Progress.Render(string(line))
	}

	return strings.Join(rows, "\n")
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// columnHeights maps each column to a bar height in eighths of a cell.
func (m Model) columnHeights(samples []int16) []int {
	heights := make([]int, m.width)
	per := max(len(samples)/m.width, 1)
	top := m.height * 8

	for col := range heights {
		start := col * per
		if start >= len(samples) {
			break
		}

		loudness := rms(samples[start:min(start+per, len(samples))])
		// square root lifts quiet speech into view
		heights[col] = min(int(math.Round(math.Sqrt(loudness)*float64(top))), top)
	}

	return heights
}

func (m Model) baseline() string {
	rows := make([]string, m.height)
	for row := range rows {
		glyph := " "
		if row == m.height-1 {
			glyph = "▁"
		}
		rows[row] = style.Muted.Render(strings.Repeat(glyph, m.width))
	}

	return strings.Join(rows, "\n")
}

// rms returns the root mean square of samples, scaled to 0..1.
func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		v := float64(s) / fullScale
		sum += v * v
	}

	return math.Min(math.Sqrt(sum/float64(len(samples))), 1)
}
