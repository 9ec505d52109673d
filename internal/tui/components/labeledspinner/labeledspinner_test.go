package labeledspinner_test

import (
	"testing"
	"time"

	"github.com/alkime/storytime/internal/tui/components/labeledspinner"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:gochecknoinits // recommend for CI by bubbletea folks
func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func TestLabeledSpinner(t *testing.T) {
	m := labeledspinner.New(spinner.Dot, "Uploading", "Hang tight")

	t.Run("initial state", func(t *testing.T) {
		assert.Equal(t, "Uploading", m.Title)
		assert.Equal(t, "Hang tight", m.Subtitle)
		assert.Equal(t, spinner.Dot, m.Spinner.Spinner)
		assert.Zero(t, m.Elapsed())
	})

	v0 := m.View()
	t.Run("view output", func(t *testing.T) {
		assert.Contains(t, v0, "Uploading")
		assert.Contains(t, v0, "Hang tight")
		assert.Contains(t, v0, spinner.Dot.Frames[0])
	})

	t.Run("check updates", func(t *testing.T) {
		m, _ = m.Update(spinner.TickMsg{})
		assert.Contains(t, m.View(), spinner.Dot.Frames[1])
		m, _ = m.Update(spinner.TickMsg{})
		assert.Contains(t, m.View(), spinner.Dot.Frames[2])
	})
}

func TestLabeledSpinner_Elapsed(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := labeledspinner.New(spinner.Dot, "Uploading", "Hang tight").
		WithClock(func() time.Time { return now })

	m, cmd := m.Start()
	require.NotNil(t, cmd)

	now = now.Add(12*time.Second + 300*time.Millisecond)
	assert.Equal(t, 12*time.Second, m.Elapsed())
	assert.Contains(t, m.View(), "12s")
}
