// Package style holds the storybook palette and lipgloss styles for the TUI.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
const (
	pink   = lipgloss.Color("205")
	rose   = lipgloss.Color("212")
	indigo = lipgloss.Color("63")
	slate  = lipgloss.Color("62")
	gray   = lipgloss.Color("241")
	ash    = lipgloss.Color("245")
	white  = lipgloss.Color("255")
	green  = lipgloss.Color("42")
	red    = lipgloss.Color("196")
	amber  = lipgloss.Color("214")
)

// Text styles. Named without a Style suffix: style.Title, style.Muted.
var (
	Title    = lipgloss.NewStyle().Bold(true).Foreground(pink)
	Subtitle = lipgloss.NewStyle().Foreground(gray)
	Label    = lipgloss.NewStyle().Bold(true).Foreground(white)
	Muted    = lipgloss.NewStyle().Foreground(ash)

	// Status lines.
	Success  = lipgloss.NewStyle().Foreground(green)
	Error    = lipgloss.NewStyle().Foreground(red)
	Warning  = lipgloss.NewStyle().Foreground(amber)
	Progress = lipgloss.NewStyle().Foreground(indigo)

	// Help line.
	Help = lipgloss.NewStyle().Foreground(gray)
	Key  = lipgloss.NewStyle().Bold(true).Foreground(pink)

	// Story list.
	Bullet   = lipgloss.NewStyle().Foreground(pink)
	Selected = lipgloss.NewStyle().Bold(true).Foreground(rose)
)

// Frames.
var (
	// Viewport surrounds the open story.
	Viewport = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(slate).
			Padding(0, 1)

	// Panel frames one story panel.
	Panel = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(indigo).
		Padding(0, 1)
)
