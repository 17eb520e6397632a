package oauth

import "time"

// TokenBundle represents the OAuth token set issued by X.
type TokenBundle struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"` // absent when offline.access was not granted
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// NeedsRefresh reports whether the access token expires within the given
// buffer of now. Bundles without an expiry never need a refresh.
func (b *TokenBundle) NeedsRefresh(now time.Time, buffer time.Duration) bool {
	if b.ExpiresAt.IsZero() {
		return false
	}
	return now.Add(buffer).After(b.ExpiresAt)
}

// AuthorizationRequest is a single-flight, in-memory authorization attempt.
// The code verifier is only ever sent in the final token exchange; the state
// value must match exactly on callback.
type AuthorizationRequest struct {
	AuthorizationURL string
	CodeVerifier     string
	State            string
}

// TokenStorage stores and retrieves the current token bundle. Save fully
// overwrites any prior bundle, never merges.
type TokenStorage interface {
	// Save persists the bundle, atomically replacing any prior content.
	Save(bundle *TokenBundle) error

	// Load returns the last saved bundle, or nil if none exists. Corrupt
	// records are treated as absent, not as errors.
	Load() (*TokenBundle, error)

	// Clear deletes any persisted bundle. Clearing an empty store is a no-op.
	Clear() error
}
