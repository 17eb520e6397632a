package oauth

import "sync"

// MemoryStorage is an in-memory implementation of TokenStorage. Tokens are
// lost on restart; it exists for tests and explicitly ephemeral runs.
type MemoryStorage struct {
	mu     sync.RWMutex
	bundle *TokenBundle
}

// NewMemoryStorage creates a new in-memory token storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Save overwrites the stored bundle
func (s *MemoryStorage) Save(bundle *TokenBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *bundle
	s.bundle = &copied
	return nil
}

// Load returns the stored bundle, or nil if none was saved
func (s *MemoryStorage) Load() (*TokenBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.bundle == nil {
		return nil, nil
	}

	copied := *s.bundle
	return &copied, nil
}

// Clear drops the stored bundle
func (s *MemoryStorage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundle = nil
	return nil
}
