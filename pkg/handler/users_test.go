package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	twitter "github.com/g8rswimmer/go-twitter/v2"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xmcp-dev/x-mcp-server/pkg/provider"
	"github.com/xmcp-dev/x-mcp-server/pkg/server/auth"
)

type staticCreds struct{}

func (staticCreds) GetValidCredential(ctx context.Context) (string, bool, error) {
	return "at-1", true, nil
}

func newTestContext(apiHost string) context.Context {
	client := &twitter.Client{
		Authorizer: authorizerFunc(func(req *http.Request) {}),
		Client:     http.DefaultClient,
		Host:       apiHost,
	}
	return auth.WithClient(context.Background(), client)
}

type authorizerFunc func(req *http.Request)

func (f authorizerFunc) Add(req *http.Request) { f(req) }

func callToolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestGetUserProfileHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2/users/by", r.URL.Path)
		require.Equal(t, "jack", r.URL.Query().Get("usernames"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"12","name":"Jack","username":"jack","description":"bio","public_metrics":{"followers_count":100,"following_count":10,"tweet_count":5}}]}`))
	}))
	defer srv.Close()

	uh := NewUsersHandler(provider.NewApiProvider(staticCreds{}, zap.NewNop()), zap.NewNop())

	result, err := uh.GetUserProfileHandler(newTestContext(srv.URL), callToolRequest(map[string]any{
		"username": "@jack",
	}))
	require.NoError(t, err)

	out := resultText(t, result)
	require.Contains(t, out, "jack")
	require.Contains(t, out, "12")
	require.Contains(t, out, "100")
}

func TestGetUserProfileHandlerMissingUsername(t *testing.T) {
	uh := NewUsersHandler(provider.NewApiProvider(staticCreds{}, zap.NewNop()), zap.NewNop())

	result, err := uh.GetUserProfileHandler(newTestContext("http://unused"), callToolRequest(nil))
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestGetUserProfileHandlerNoClientInContext(t *testing.T) {
	uh := NewUsersHandler(provider.NewApiProvider(staticCreds{}, zap.NewNop()), zap.NewNop())

	_, err := uh.GetUserProfileHandler(context.Background(), callToolRequest(map[string]any{
		"username": "jack",
	}))
	require.Error(t, err)
}
