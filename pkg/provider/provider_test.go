package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCreds struct {
	token string
	ok    bool
	err   error
	calls int
}

func (f *fakeCreds) GetValidCredential(ctx context.Context) (string, bool, error) {
	f.calls++
	return f.token, f.ok, f.err
}

func TestBearerAuthorizer(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://api.twitter.com/2/users/me", nil)
	require.NoError(t, err)

	bearerAuthorizer{token: "at-1"}.Add(req)
	require.Equal(t, "Bearer at-1", req.Header.Get("Authorization"))
}

func TestClientUsesCurrentCredential(t *testing.T) {
	creds := &fakeCreds{token: "at-1", ok: true}
	p := NewApiProvider(creds, zap.NewNop())

	client, err := p.Client(context.Background())
	require.NoError(t, err)
	require.NotNil(t, client)
	require.Equal(t, 1, creds.calls)

	// A second client picks up whatever the manager currently holds.
	creds.token = "at-2"
	client, err = p.Client(context.Background())
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "https://api.twitter.com/2/users/me", nil)
	client.Authorizer.Add(req)
	require.Equal(t, "Bearer at-2", req.Header.Get("Authorization"))
}

func TestClientNotAuthenticated(t *testing.T) {
	p := NewApiProvider(&fakeCreds{ok: false}, zap.NewNop())

	_, err := p.Client(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "--setup")
}

func TestClientCredentialLoadFault(t *testing.T) {
	p := NewApiProvider(&fakeCreds{err: errors.New("disk on fire")}, zap.NewNop())

	_, err := p.Client(context.Background())
	require.Error(t, err)
}
