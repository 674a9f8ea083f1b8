// Package config resolves backend profiles from the user config file and
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Profile is the resolved backend configuration for one session.
type Profile struct {
	Provider string
	Model    string
	APIKey   string
	Endpoint string
}

const (
	envPrefix       = "TERMINAL_AI"
	defaultProvider = "openai"
)

// Dir returns the user config directory (~/.terminal-ai).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".terminal-ai"), nil
}

// HistoryPath returns the default location of the thread database.
func HistoryPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "threads.db"), nil
}

// Load reads ~/.terminal-ai/config.yaml plus TERMINAL_AI_* environment
// overrides and resolves the profile for provider. Empty provider or model
// fall back to the configured defaults; a missing config file is not an
// error.
func Load(provider, model string) (*Profile, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := Dir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("provider", defaultProvider)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if provider == "" {
		provider = v.GetString("provider")
	}
	if model == "" {
		model = v.GetString("providers." + provider + ".model")
	}

	profile := &Profile{
		Provider: provider,
		Model:    model,
		APIKey:   v.GetString("providers." + provider + ".api_key"),
		Endpoint: v.GetString("providers." + provider + ".endpoint"),
	}
	if profile.APIKey == "" {
		profile.APIKey = os.Getenv(apiKeyEnv(provider))
	}
	return profile, nil
}

// apiKeyEnv maps a provider to its conventional API key variable.
func apiKeyEnv(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	default:
		return strings.ToUpper(provider) + "_API_KEY"
	}
}
