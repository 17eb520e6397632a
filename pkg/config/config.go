package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultRedirectURI is used when X_REDIRECT_URI is not set. The host:port
// portion determines where the local callback listener binds during setup.
const DefaultRedirectURI = "http://localhost:3000/callback"

// Config contains runtime configuration values.
type Config struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	TokenFile    string `yaml:"token_file"`
	LogLevel     string `yaml:"log_level"`
}

// ConfigError indicates missing or invalid client credentials. It is fatal:
// the process must exit at startup rather than fail per-call.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s is required", e.Field)
}

// Load reads configuration from an optional YAML file (X_CONFIG_FILE) and the
// environment, with environment variables taking precedence. Missing client
// credentials return a ConfigError.
func Load() (Config, error) {
	var cfg Config

	if path := os.Getenv("X_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.ClientID = getEnv("X_CLIENT_ID", cfg.ClientID)
	cfg.ClientSecret = getEnv("X_CLIENT_SECRET", cfg.ClientSecret)
	cfg.RedirectURI = getEnv("X_REDIRECT_URI", cfg.RedirectURI)
	cfg.TokenFile = getEnv("X_TOKEN_FILE", cfg.TokenFile)
	cfg.LogLevel = getEnv("X_LOG_LEVEL", cfg.LogLevel)

	if cfg.ClientID == "" {
		return Config{}, &ConfigError{Field: "X_CLIENT_ID"}
	}
	if cfg.ClientSecret == "" {
		return Config{}, &ConfigError{Field: "X_CLIENT_SECRET"}
	}
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = DefaultRedirectURI
	}
	if cfg.TokenFile == "" {
		cfg.TokenFile = defaultTokenFile()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tokens.json"
	}
	return filepath.Join(home, ".x-mcp-server", "tokens.json")
}
