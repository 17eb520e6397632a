package provider

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	twitter "github.com/g8rswimmer/go-twitter/v2"
	"go.uber.org/zap"
)

const defaultAPIHost = "https://api.twitter.com"

// CredentialSource yields a currently valid access token, refreshing behind
// the scenes when needed.
type CredentialSource interface {
	GetValidCredential(ctx context.Context) (token string, ok bool, err error)
}

// ApiProvider builds X API clients authorized with whatever credential the
// token lifecycle manager currently holds. Clients are created per request so
// a refreshed token is picked up immediately.
type ApiProvider struct {
	creds      CredentialSource
	host       string
	httpClient *http.Client
	logger     *zap.Logger

	mu         sync.Mutex
	authUserID string
}

// NewApiProvider creates a provider backed by the given credential source
func NewApiProvider(creds CredentialSource, logger *zap.Logger) *ApiProvider {
	return &ApiProvider{
		creds:  creds,
		host:   defaultAPIHost,
		logger: logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Client returns an X API client for the current request, or an error when
// no credential is available.
func (p *ApiProvider) Client(ctx context.Context) (*twitter.Client, error) {
	token, ok, err := p.creds.GetValidCredential(ctx)
	if err != nil {
		p.logger.Error("Failed to load credential", zap.Error(err))
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("not authenticated: run x-mcp-server --setup")
	}

	return &twitter.Client{
		Authorizer: bearerAuthorizer{token: token},
		Client:     p.httpClient,
		Host:       p.host,
	}, nil
}

// AuthUserID returns the authenticated user's ID, looked up once and cached.
// The ID is stable across token refreshes for the same account.
func (p *ApiProvider) AuthUserID(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.authUserID != "" {
		return p.authUserID, nil
	}

	client, err := p.Client(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.AuthUserLookup(ctx, twitter.UserLookupOpts{})
	if err != nil {
		p.logger.Error("Authenticated user lookup failed", zap.Error(err))
		return "", fmt.Errorf("failed to look up authenticated user: %w", err)
	}
	if resp.Raw == nil || len(resp.Raw.Users) == 0 {
		return "", fmt.Errorf("authenticated user lookup returned no user")
	}

	p.authUserID = resp.Raw.Users[0].ID
	p.logger.Debug("Cached authenticated user", zap.String("userID", p.authUserID))
	return p.authUserID, nil
}

// bearerAuthorizer injects the OAuth access token into API requests.
type bearerAuthorizer struct {
	token string
}

func (a bearerAuthorizer) Add(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.token)
}
