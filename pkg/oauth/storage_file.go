package oauth

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// FileStorage persists the token bundle as a single JSON file. Writes go
// through a temp file and rename so a crash mid-write never leaves a
// half-written record. Single-process, single-user: no locking beyond
// whole-file overwrite.
type FileStorage struct {
	path string
}

// NewFileStorage creates a file-backed token storage at path
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Save persists the bundle, replacing any prior content
func (s *FileStorage) Save(bundle *TokenBundle) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	return nil
}

// Load returns the stored bundle. A missing file is absent, not an error,
// and so is a corrupt record: losing a cached token is recoverable by
// re-authorizing, crashing the caller is not.
func (s *FileStorage) Load() (*TokenBundle, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &PersistenceError{Op: "load", Path: s.path, Err: err}
	}

	var bundle TokenBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, nil
	}
	if bundle.AccessToken == "" {
		return nil, nil
	}

	return &bundle, nil
}

// Clear deletes the stored bundle; clearing an empty store is a no-op
func (s *FileStorage) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return &PersistenceError{Op: "clear", Path: s.path, Err: err}
	}
	return nil
}
