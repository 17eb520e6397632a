package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"X_CLIENT_ID", "X_CLIENT_SECRET", "X_REDIRECT_URI", "X_TOKEN_FILE", "X_LOG_LEVEL", "X_CONFIG_FILE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "X_CLIENT_ID", cfgErr.Field)

	t.Setenv("X_CLIENT_ID", "id")
	_, err = Load()
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "X_CLIENT_SECRET", cfgErr.Field)
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("X_CLIENT_ID", "id")
	t.Setenv("X_CLIENT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DefaultRedirectURI, cfg.RedirectURI)
	require.NotEmpty(t, cfg.TokenFile)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadYAMLFileWithEnvPrecedence(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"client_id: file-id\nclient_secret: file-secret\nredirect_uri: http://localhost:9999/callback\n",
	), 0600))

	t.Setenv("X_CONFIG_FILE", path)
	t.Setenv("X_CLIENT_ID", "env-id")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "env-id", cfg.ClientID, "environment wins over the config file")
	require.Equal(t, "file-secret", cfg.ClientSecret)
	require.Equal(t, "http://localhost:9999/callback", cfg.RedirectURI)
}

func TestLoadBadYAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":::"), 0600))

	t.Setenv("X_CONFIG_FILE", path)
	t.Setenv("X_CLIENT_ID", "id")
	t.Setenv("X_CLIENT_SECRET", "secret")

	_, err := Load()
	require.Error(t, err)
}
