package oauth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileStorageRoundTrip(t *testing.T) {
	storage := NewFileStorage(filepath.Join(t.TempDir(), "tokens.json"))

	bundle := &TokenBundle{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(2 * time.Hour).Truncate(time.Second),
	}

	require.NoError(t, storage.Save(bundle))

	loaded, err := storage.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, bundle.AccessToken, loaded.AccessToken)
	require.Equal(t, bundle.RefreshToken, loaded.RefreshToken)
	require.True(t, bundle.ExpiresAt.Equal(loaded.ExpiresAt))
}

func TestFileStorageLoadAbsent(t *testing.T) {
	storage := NewFileStorage(filepath.Join(t.TempDir(), "tokens.json"))

	loaded, err := storage.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestFileStorageCorruptRecordIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	storage := NewFileStorage(path)
	loaded, err := storage.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestFileStorageSaveOverwrites(t *testing.T) {
	storage := NewFileStorage(filepath.Join(t.TempDir(), "tokens.json"))

	require.NoError(t, storage.Save(&TokenBundle{AccessToken: "first", RefreshToken: "rt"}))
	require.NoError(t, storage.Save(&TokenBundle{AccessToken: "second"}))

	loaded, err := storage.Load()
	require.NoError(t, err)
	require.Equal(t, "second", loaded.AccessToken)
	require.Empty(t, loaded.RefreshToken, "overwrite must replace, not merge")
}

func TestFileStorageClearIdempotent(t *testing.T) {
	storage := NewFileStorage(filepath.Join(t.TempDir(), "tokens.json"))

	require.NoError(t, storage.Clear(), "clearing an empty store must not error")

	require.NoError(t, storage.Save(&TokenBundle{AccessToken: "tok"}))
	require.NoError(t, storage.Clear())

	loaded, err := storage.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)

	require.NoError(t, storage.Clear())
}

func TestMemoryStorage(t *testing.T) {
	storage := NewMemoryStorage()

	loaded, err := storage.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)

	require.NoError(t, storage.Save(&TokenBundle{AccessToken: "tok"}))
	loaded, err = storage.Load()
	require.NoError(t, err)
	require.Equal(t, "tok", loaded.AccessToken)

	require.NoError(t, storage.Clear())
	loaded, err = storage.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)
}
