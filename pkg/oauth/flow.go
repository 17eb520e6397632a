package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// X API v2 OAuth endpoints.
const (
	AuthURL  = "https://x.com/i/oauth2/authorize"
	TokenURL = "https://api.x.com/2/oauth2/token"
)

// defaultTokenLifetime is a conservative fallback applied only when the token
// endpoint response carries no expires_in. A provider-supplied lifetime
// always wins.
const defaultTokenLifetime = 2 * time.Hour

// DefaultScopes is the scope set needed by the registered tools.
// offline.access is mandatory: without it X issues no refresh token and the
// refresh path is unreachable.
var DefaultScopes = []string{
	"tweet.read",
	"tweet.write",
	"users.read",
	"bookmark.read",
	"bookmark.write",
	"like.read",
	"like.write",
	"list.read",
	"list.write",
	"offline.access",
}

// Flow implements the authorization-code-with-PKCE flow against X: it builds
// authorization requests and exchanges codes and refresh tokens for bundles.
// Every successful exchange or refresh overwrites the stored bundle.
type Flow struct {
	conf    *oauth2.Config
	storage TokenStorage
	logger  *zap.Logger
	now     func() time.Time
}

// NewFlow creates a new authorization flow
func NewFlow(clientID, clientSecret, redirectURI string, storage TokenStorage, logger *zap.Logger) *Flow {
	return &Flow{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:  AuthURL,
				TokenURL: TokenURL,
			},
		},
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// BuildAuthorizationRequest generates a fresh authorization request with a
// cryptographically random code verifier and anti-forgery state. Verifier and
// state are never reused across calls. Does not touch the token storage.
func (f *Flow) BuildAuthorizationRequest(scopes []string) *AuthorizationRequest {
	verifier := oauth2.GenerateVerifier()
	state := generateState()

	conf := *f.conf
	conf.Scopes = scopes

	req := &AuthorizationRequest{
		AuthorizationURL: conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)),
		CodeVerifier:     verifier,
		State:            state,
	}

	f.logger.Debug("Built authorization request", zap.Strings("scopes", scopes))
	return req
}

// Exchange trades an authorization code for a token bundle using the PKCE
// verifier from the matching authorization request, persists the bundle and
// returns it. Codes are single-use and short-lived; any provider rejection
// surfaces as an ExchangeError.
func (f *Flow) Exchange(ctx context.Context, code, codeVerifier string) (*TokenBundle, error) {
	tok, err := f.conf.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		f.logger.Error("Code exchange failed", zap.Error(err))
		return nil, &ExchangeError{Op: "exchange", Err: err}
	}

	bundle := f.bundleFrom(tok, "")
	if err := f.storage.Save(bundle); err != nil {
		return nil, err
	}

	f.logger.Info("Authorization code exchanged",
		zap.Time("expiresAt", bundle.ExpiresAt),
		zap.Bool("hasRefreshToken", bundle.RefreshToken != ""),
	)
	return bundle, nil
}

// Refresh trades a refresh token for a new bundle, persists it and returns
// it. X rotates refresh tokens; if the response omits one the previous
// refresh token is retained. A rejected refresh token is surfaced as an
// ExchangeError and must not be retried - the caller falls back to a full
// re-authorization.
func (f *Flow) Refresh(ctx context.Context, refreshToken string) (*TokenBundle, error) {
	src := f.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		f.logger.Error("Token refresh failed", zap.Error(err))
		return nil, &ExchangeError{Op: "refresh", Err: err}
	}

	bundle := f.bundleFrom(tok, refreshToken)
	if err := f.storage.Save(bundle); err != nil {
		return nil, err
	}

	f.logger.Info("Access token refreshed",
		zap.Time("expiresAt", bundle.ExpiresAt),
		zap.Bool("refreshTokenRotated", tok.RefreshToken != "" && tok.RefreshToken != refreshToken),
	)
	return bundle, nil
}

// bundleFrom converts a provider token response to a bundle, keeping the
// previous refresh token when the provider did not rotate it.
func (f *Flow) bundleFrom(tok *oauth2.Token, prevRefreshToken string) *TokenBundle {
	bundle := &TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if bundle.RefreshToken == "" {
		bundle.RefreshToken = prevRefreshToken
	}
	if bundle.ExpiresAt.IsZero() {
		bundle.ExpiresAt = f.now().Add(defaultTokenLifetime)
	}
	return bundle
}

func generateState() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failure is critical for security
		panic(fmt.Sprintf("failed to generate secure random state: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
