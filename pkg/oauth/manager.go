package oauth

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// refreshMargin is the safety window before expiry inside which a refresh is
// attempted, so a credential handed out is never about to expire mid-call.
const refreshMargin = 5 * time.Minute

// Refresher is the part of the flow the manager needs: exchanging a refresh
// token for a new, persisted bundle.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*TokenBundle, error)
}

// Manager is the token lifecycle facade used by every API operation. It hands
// out a currently valid access token, transparently refreshing near expiry,
// and exposes reset semantics. Bundle states: absent -> valid -> near expiry
// -> valid again after a refresh, or absent when the refresh token is dead or
// missing.
type Manager struct {
	storage   TokenStorage
	refresher Refresher
	logger    *zap.Logger
	margin    time.Duration
	now       func() time.Time

	// mu serializes refresh so concurrent near-expiry detections trigger a
	// single provider call and a stale response never overwrites a fresh one.
	mu sync.Mutex
}

// NewManager creates a token lifecycle manager over the given storage
func NewManager(storage TokenStorage, refresher Refresher, logger *zap.Logger) *Manager {
	return &Manager{
		storage:   storage,
		refresher: refresher,
		logger:    logger,
		margin:    refreshMargin,
		now:       time.Now,
	}
}

// GetValidCredential returns an access token that is valid for at least the
// refresh margin, refreshing if needed. ok is false when no credential is
// available and the caller must trigger a fresh authorization. A token well
// before expiry is returned as-is with no network call.
func (m *Manager) GetValidCredential(ctx context.Context) (token string, ok bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bundle, err := m.storage.Load()
	if err != nil {
		return "", false, err
	}
	if bundle == nil {
		m.logger.Debug("No token bundle stored")
		return "", false, nil
	}

	if !bundle.NeedsRefresh(m.now(), m.margin) {
		return bundle.AccessToken, true, nil
	}

	if bundle.RefreshToken == "" {
		m.logger.Warn("Access token near expiry and no refresh token available",
			zap.Time("expiresAt", bundle.ExpiresAt),
		)
		return "", false, nil
	}

	// A dead refresh token does not become valid by retrying: one attempt,
	// then the session collapses back to absent.
	refreshed, err := m.refresher.Refresh(ctx, bundle.RefreshToken)
	if err != nil {
		m.logger.Warn("Refresh failed, re-authorization required", zap.Error(err))
		return "", false, nil
	}

	return refreshed.AccessToken, true, nil
}

// IsAuthenticated reports whether a valid credential is available. It may
// trigger a refresh as a side effect.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	_, ok, err := m.GetValidCredential(ctx)
	return err == nil && ok
}

// Reset clears the stored bundle. Storage errors are logged and swallowed:
// reset is advisory cleanup, not a correctness-critical path.
func (m *Manager) Reset() {
	if err := m.storage.Clear(); err != nil {
		m.logger.Warn("Failed to clear token storage", zap.Error(err))
	}
}
