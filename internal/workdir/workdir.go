// Package workdir resolves the per-user storytime data directory.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the data directory root when set.
const HomeEnv = "STORYTIME_HOME"

// Root returns the base directory for storytime files:
//
//	$HOME/.storytime
func Root() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".storytime"), nil
}

// LogPath returns the client log file path.
func LogPath() (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "storytime.log"), nil
}

// ServerDir returns the storyd data directory, preferring override when set.
func ServerDir(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "storyd"), nil
}

// Prep ensures that dir exists.
func Prep(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return nil
}
