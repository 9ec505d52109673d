package tui

import (
	"context"
	"os/exec"
	"runtime"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Launcher plays a story's narration outside the TUI.
type Launcher interface {
	Launch(target string) tea.Cmd
}

// PlayerLauncher opens audio with a configured player, or with the
// platform's default opener when none is set.
type PlayerLauncher struct {
	PlayerCmd string
}

var _ Launcher = PlayerLauncher{}

type playerDoneMsg struct {
	err error
}

// Launch suspends the TUI while the player runs.
//
//nolint:gosec // subprocess launching
func (p PlayerLauncher) Launch(target string) tea.Cmd {
	name, args := playerCommand(p.PlayerCmd, runtime.GOOS)
	c := exec.CommandContext(context.Background(), name, append(args, target)...)

	return tea.ExecProcess(c, func(err error) tea.Msg {
		return playerDoneMsg{err: err}
	})
}

func playerCommand(playerCmd, goos string) (string, []string) {
	if fields := strings.Fields(playerCmd); len(fields) > 0 {
		return fields[0], fields[1:]
	}

	switch goos {
	case "darwin":
		// blocking open so the TUI resumes when the player closes
		return "open", []string{"-W"}
	case "windows":
		return "cmd", []string{"/c", "start", "/wait", ""}
	default:
		return "xdg-open", nil
	}
}
