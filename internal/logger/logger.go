// Package logger installs the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alkime/storytime/internal/config"
)

// SetupLogger configures structured JSON logging for storyd.
func SetupLogger(cfg *config.ServerConfig) *slog.Logger {
	return setup(os.Stdout, serverLevel(cfg), true)
}

// SetupConsoleLogger logs text to stderr. Used by the non-interactive commands.
func SetupConsoleLogger(level string) *slog.Logger {
	return setup(os.Stderr, config.ParseLogLevel(level), false)
}

// SetupFileLogger logs text to path, creating its directory. The terminal UI
// owns stdout, so it logs here instead. The caller closes the returned file.
func SetupFileLogger(path, level string) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return setup(f, config.ParseLogLevel(level), false), f, nil
}

func serverLevel(cfg *config.ServerConfig) slog.Level {
	if cfg.Env == config.EnvDevelopment {
		return slog.LevelDebug
	}

	return config.ParseLogLevel(cfg.LogLevel)
}

func setup(w io.Writer, level slog.Level, json bool) *slog.Logger {
	//nolint:exhaustruct // Using default values for other HandlerOptions fields
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}
