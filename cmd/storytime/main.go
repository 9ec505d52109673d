package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/alkime/storytime/internal/audio"
	"github.com/alkime/storytime/internal/config"
	"github.com/alkime/storytime/internal/keyring"
	"github.com/alkime/storytime/internal/logger"
	"github.com/alkime/storytime/internal/render"
	"github.com/alkime/storytime/internal/session"
	"github.com/alkime/storytime/internal/story"
	"github.com/alkime/storytime/internal/storyapi"
	"github.com/alkime/storytime/internal/tui"
	"github.com/alkime/storytime/internal/workdir"
	tea "github.com/charmbracelet/bubbletea"
)

// levelWindow is roughly 50ms of samples at 16kHz.
const levelWindow = 800

// Globals are flags shared by every command.
type Globals struct {
	APIURL          string        `name:"api-url" default:"${api_url}" help:"Story backend base URL (STORYTIME_API_URL)"`
	RequestTimeout  time.Duration `default:"${request_timeout}" help:"Timeout for list and fetch requests"`
	GenerateTimeout time.Duration `default:"${generate_timeout}" help:"Timeout for story generation"`
	LogLevel        string        `default:"${log_level}" help:"Log level (debug, info, warn, error)"`
}

func (g *Globals) client() (*storyapi.Client, error) {
	client, err := storyapi.NewClient(storyapi.Config{
		BaseURL:         g.APIURL,
		RequestTimeout:  g.RequestTimeout,
		GenerateTimeout: g.GenerateTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create story client: %w", err)
	}

	return client, nil
}

// CLI defines the storytime command structure.
type CLI struct {
	Globals

	// Default TUI command (runs when no subcommand given)
	TUI TUICmd `cmd:"" default:"withargs" help:"Launch the storytelling terminal UI"`

	// Subcommands
	List    ListCmd    `cmd:"" help:"List stories"`
	Show    ShowCmd    `cmd:"" help:"Print a story"`
	Devices DevicesCmd `cmd:"" help:"List available audio devices"`
	Config  ConfigCmd  `cmd:"" help:"Manage configuration"`
}

// TUICmd is the default command that runs the TUI.
type TUICmd struct {
	Player string `default:"${player}" help:"Command used to play story narration (STORYTIME_PLAYER)"`
	Title  string `optional:"" help:"Title sent with every generated story"`
}

// Run executes the TUI command.
func (c *TUICmd) Run(g *Globals) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The TUI owns the terminal, so logs go to a file.
	logPath, err := workdir.LogPath()
	if err != nil {
		return fmt.Errorf("failed to determine log path: %w", err)
	}

	fileLogger, closer, err := logger.SetupFileLogger(logPath, g.LogLevel)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(fileLogger)

	client, err := g.client()
	if err != nil {
		return err
	}

	rec, err := audio.NewSession(audio.SessionConfig{Device: audio.DefaultDeviceConfig()})
	if err != nil {
		return fmt.Errorf("failed to configure audio capture: %w", err)
	}

	ctrl := session.New(client, rec)
	defer func() {
		if err := ctrl.Close(ctx); err != nil {
			slog.Error("Failed to release recorder", "error", err)
		}
	}()

	model := tui.New(tui.Config{
		Controller: ctrl,
		Levels:     rec.Levels(levelWindow),
		Captured:   rec.BytesCaptured(),
		Player:     tui.PlayerLauncher{PlayerCmd: c.Player},
		ResolveURL: client.ResolveURL,
		Title:      c.Title,
	})

	slog.Info("Starting storytime", "api_url", g.APIURL)

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("failed to start TUI: %w", err)
	}

	return nil
}

// ListCmd prints the story list.
type ListCmd struct{}

// Run executes the list command.
func (c *ListCmd) Run(g *Globals) error {
	client, err := g.client()
	if err != nil {
		return err
	}

	stories, err := client.ListStories(context.Background())

	return printStories(os.Stdout, stories, err)
}

// printStories writes the list as a table. An unreachable backend reads the
// same as an empty list.
func printStories(out io.Writer, stories []story.Summary, err error) error {
	if err != nil {
		slog.Debug("story list unavailable", "error", err)
		stories = nil
	}

	if len(stories) == 0 {
		_, err = fmt.Fprintln(out, "No stories yet.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, s := range stories {
		title := s.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, render.FormatDate(s.CreatedAt), title)
	}

	return w.Flush()
}

// ShowCmd prints one story with all panels revealed.
type ShowCmd struct {
	ID    string `arg:"" help:"Story id"`
	Width int    `default:"80" help:"Wrap width"`
}

// Run executes the show command.
func (c *ShowCmd) Run(g *Globals) error {
	client, err := g.client()
	if err != nil {
		return err
	}

	s, err := client.GetStory(context.Background(), story.ID(c.ID))
	if err != nil {
		return err
	}

	view := render.Render(s, render.Instant, render.WithURLResolver(client.ResolveURL))
	fmt.Println(view.Content(c.Width))

	return nil
}

// DevicesCmd lists available audio devices.
type DevicesCmd struct{}

// Run executes the devices command.
func (dcmd *DevicesCmd) Run() error {
	slog.Info("Enumerating audio devices...")

	devices, err := audio.Devices(context.Background())
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	for _, dev := range devices {
		slog.Info("Audio Device",
			"name", dev.Name,
			"isDefault", dev.IsDefault,
			"formatCount", dev.FormatCount,
			"formats", dev.Formats,
		)
	}

	return nil
}

// ConfigCmd groups configuration-related subcommands.
type ConfigCmd struct {
	SetKey   SetKeyCmd   `cmd:"" help:"Store a storyd API key in system keychain"`
	ListKeys ListKeysCmd `cmd:"" name:"list-keys" help:"Show which API keys are configured"`
}

// SetKeyCmd stores an API key in the system keychain.
type SetKeyCmd struct {
	Service string `arg:"" enum:"openai,anthropic" help:"Service name (openai or anthropic)"`
	Secret  string `arg:"" help:"API key value"`
}

// Run executes the set-key command.
func (c *SetKeyCmd) Run() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("API key cannot be empty")
	}

	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Set(apiKey, c.Secret); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("%s API key stored in keychain\n", c.Service)

	return nil
}

// ListKeysCmd shows which API keys are configured.
type ListKeysCmd struct{}

// Run executes the list-keys command.
//
//nolint:unparam // error return required by Kong interface
func (c *ListKeysCmd) Run() error {
	allSet := true

	for _, apiKey := range keyring.AllAPIKeys() {
		if keyring.IsSet(apiKey) {
			fmt.Printf("%s: configured\n", apiKey.DisplayName())
		} else {
			fmt.Printf("%s: not set\n", apiKey.DisplayName())
			allSet = false
		}
	}

	if !allSet {
		fmt.Println("\nstoryd falls back to placeholder stories without keys.")
		fmt.Println("Run 'storytime config set-key <service> <key>' to configure.")
	}

	return nil
}

func main() {
	defaults, err := config.LoadClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "storytime: %v\n", err)
		os.Exit(1)
	}

	// Non-interactive commands log to stderr. The TUI swaps in a file logger.
	slog.SetDefault(logger.SetupConsoleLogger(defaults.LogLevel))

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli,
		kong.Name("storytime"),
		kong.Description("Record a story out loud and watch it become a comic."),
		kong.Vars{
			"api_url":          defaults.APIURL,
			"request_timeout":  defaults.RequestTimeout.String(),
			"generate_timeout": defaults.GenerateTimeout.String(),
			"log_level":        defaults.LogLevel,
			"player":           defaults.Player,
		},
	)
	err = ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
	os.Exit(0)
}
