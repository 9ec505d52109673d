package main

import (
	"fmt"
	"log"
	"log/slog"
	"path/filepath"

	"github.com/alkime/storytime/internal/config"
	"github.com/alkime/storytime/internal/generate"
	"github.com/alkime/storytime/internal/keyring"
	"github.com/alkime/storytime/internal/logger"
	"github.com/alkime/storytime/internal/server"
	"github.com/alkime/storytime/internal/storystore"
	"github.com/alkime/storytime/internal/workdir"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg := logger.SetupLogger(cfg)

	if err := run(cfg, lg); err != nil {
		lg.Error("storyd stopped", "error", err)
		log.Fatalf("Fatal: %v", err)
	}
}

func run(cfg *config.ServerConfig, lg *slog.Logger) error {
	dataDir, err := workdir.ServerDir(cfg.DataDir)
	if err != nil {
		return err
	}

	audioDir := filepath.Join(dataDir, "audio")
	if err := workdir.Prep(audioDir); err != nil {
		return fmt.Errorf("failed to prepare audio directory: %w", err)
	}

	store, err := storystore.Open(filepath.Join(dataDir, "stories.db"))
	if err != nil {
		return fmt.Errorf("failed to open story store: %w", err)
	}
	defer store.Close()

	gen, err := generate.NewFromKeys(generate.Keys{
		OpenAI:         lookupKey(lg, keyring.OpenAI, cfg.OpenAIAPIKey),
		Anthropic:      lookupKey(lg, keyring.Anthropic, cfg.AnthropicAPIKey),
		AnthropicModel: cfg.AnthropicModel,
	}, lg)
	if err != nil {
		return fmt.Errorf("failed to configure story generation: %w", err)
	}

	lg.Info("Starting storyd",
		"env", cfg.Env,
		"port", cfg.Port,
		"data_dir", dataDir,
	)

	srv := server.New(cfg, server.Deps{
		Store:     store,
		Generator: gen,
		AudioDir:  audioDir,
	}, lg)

	return server.Run(srv)
}

// lookupKey resolves an API key from the environment, then the keychain. A
// missing key selects the offline fallback.
func lookupKey(lg *slog.Logger, apiKey keyring.APIKey, configured string) string {
	secret, err := keyring.Lookup(apiKey, configured)
	if err != nil {
		lg.Debug("API key unavailable, using fallback", "key", apiKey.DisplayName(), "error", err)
		return ""
	}

	return secret
}
