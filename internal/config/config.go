// Package config loads settings for the storytime client and the storyd
// development backend from the environment and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"
	// EnvDevelopment is the default environment.
	EnvDevelopment = "development"
)

// ServerConfig holds storyd configuration.
type ServerConfig struct {
	// Server settings
	Env  string `envconfig:"ENV" default:"development"`
	Port string `envconfig:"PORT" default:"8000"`

	// Security settings
	HSTSMaxAge int    `envconfig:"HSTS_MAX_AGE" default:"31536000"`
	CSPMode    string `envconfig:"CSP_MODE" default:"relaxed"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage, empty means <home>/.storytime/storyd
	DataDir string `envconfig:"STORYD_DATA_DIR"`

	// Generation, empty keys fall back to the system keychain
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `envconfig:"STORYD_ANTHROPIC_MODEL" default:"claude-sonnet-4-5"`
}

// ClientConfig holds storytime defaults. Command line flags override them.
type ClientConfig struct {
	APIURL          string        `envconfig:"STORYTIME_API_URL" default:"http://localhost:8000"`
	Player          string        `envconfig:"STORYTIME_PLAYER"`
	LogLevel        string        `envconfig:"STORYTIME_LOG_LEVEL" default:"info"`
	RequestTimeout  time.Duration `envconfig:"STORYTIME_REQUEST_TIMEOUT" default:"15s"`
	GenerateTimeout time.Duration `envconfig:"STORYTIME_GENERATE_TIMEOUT" default:"3m"`
}

// LoadServerConfig loads storyd configuration from .env file and environment variables.
func LoadServerConfig() (*ServerConfig, error) {
	loadDotEnv()

	var config ServerConfig
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	return &config, nil
}

// LoadClientConfig loads storytime configuration from .env file and environment variables.
func LoadClientConfig() (*ClientConfig, error) {
	loadDotEnv()

	var config ClientConfig
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	return &config, nil
}

func loadDotEnv() {
	// Try to load .env file (optional for development)
	if err := godotenv.Load(); err != nil {
		// Not an error if file doesn't exist (expected in production)
		if !os.IsNotExist(err) {
			slog.Warn("error loading .env file", "error", err)
		}
	}
}

// ParseLogLevel maps a level name to a slog level. Unknown names mean info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// BuildCSP constructs Content Security Policy based on mode.
func BuildCSP(mode string) string {
	if mode == "strict" {
		// Production CSP
		return "default-src 'self'; " +
			"style-src 'self'; " +
			"script-src 'self'; " +
			"img-src 'self' https://placehold.co data:; " +
			"media-src 'self'; " +
			"object-src 'none'; " +
			"base-uri 'self'; " +
			"form-action 'self'"
	}

	// Development/relaxed CSP
	return "default-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"script-src 'self' 'unsafe-inline'; " +
		"img-src 'self' https: data:; " +
		"media-src 'self' blob:"
}
