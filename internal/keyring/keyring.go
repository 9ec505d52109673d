// Package keyring keeps storyd's API keys in the system keychain so they need
// not live in the shell environment.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "storytime"

// ErrNotSet is returned by Lookup when a key is neither configured nor stored.
var ErrNotSet = errors.New("api key not set")

// APIKey names a keychain entry.
type APIKey string

const (
	// OpenAI authenticates Whisper transcription.
	OpenAI APIKey = "openai-api-key"
	// Anthropic authenticates panel planning.
	Anthropic APIKey = "anthropic-api-key"
)

// services maps the short names used on the command line to entries.
var services = []struct {
	name string
	key  APIKey
}{
	{"openai", OpenAI},
	{"anthropic", Anthropic},
}

// AllAPIKeys returns every known entry in display order.
func AllAPIKeys() []APIKey {
	keys := make([]APIKey, len(services))
	for i, s := range services {
		keys[i] = s.key
	}

	return keys
}

// DisplayName is the short service name, e.g. "openai".
func (k APIKey) DisplayName() string {
	for _, s := range services {
		if s.key == k {
			return s.name
		}
	}

	return string(k)
}

// APIKeyFromServiceName maps a short service name to its entry.
func APIKeyFromServiceName(name string) (APIKey, error) {
	for _, s := range services {
		if s.name == name {
			return s.key, nil
		}
	}

	return "", fmt.Errorf("unknown service: %s", name)
}

// Get reads an entry from the keychain.
func Get(k APIKey) (string, error) {
	secret, err := keyring.Get(serviceName, string(k))
	if err != nil {
		return "", fmt.Errorf("failed to get %s from keychain: %w", k.DisplayName(), err)
	}

	return secret, nil
}

// Set writes an entry to the keychain.
func Set(k APIKey, secret string) error {
	if secret == "" {
		return fmt.Errorf("refusing to store an empty %s key", k.DisplayName())
	}

	if err := keyring.Set(serviceName, string(k), secret); err != nil {
		return fmt.Errorf("failed to set %s in keychain: %w", k.DisplayName(), err)
	}

	return nil
}

// IsSet reports whether the keychain holds an entry.
func IsSet(k APIKey) bool {
	_, err := keyring.Get(serviceName, string(k))

	return err == nil
}

// Lookup returns configured when non-empty, otherwise the keychain entry.
func Lookup(k APIKey, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	secret, err := keyring.Get(serviceName, string(k))
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return "", fmt.Errorf("%w: %s", ErrNotSet, k.DisplayName())
	case err != nil:
		return "", fmt.Errorf("failed to get %s from keychain: %w", k.DisplayName(), err)
	}

	return secret, nil
}
