package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xmcp-dev/x-mcp-server/pkg/oauth"
)

type fakeFlow struct {
	mu            sync.Mutex
	exchangeCalls int
	gotCode       string
	gotVerifier   string
	exchangeErr   error
}

func (f *fakeFlow) BuildAuthorizationRequest(scopes []string) *oauth.AuthorizationRequest {
	return &oauth.AuthorizationRequest{
		AuthorizationURL: "https://x.test/authorize?state=state-1",
		CodeVerifier:     "verifier-1",
		State:            "state-1",
	}
}

func (f *fakeFlow) Exchange(ctx context.Context, code, codeVerifier string) (*oauth.TokenBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeCalls++
	f.gotCode = code
	f.gotVerifier = codeVerifier
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth.TokenBundle{AccessToken: "at-1", RefreshToken: "rt-1"}, nil
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func newTestSetupFlow(t *testing.T, flow AuthorizationFlow) (*SetupFlow, string) {
	t.Helper()
	port := freePort(t)
	redirectURI := fmt.Sprintf("http://127.0.0.1:%d/callback", port)
	s := NewSetupFlow(flow, redirectURI, oauth.DefaultScopes, zap.NewNop())
	s.out = io.Discard
	s.openBrowser = func(string) error { return nil }
	return s, redirectURI
}

// hitCallback retries until the listener accepts connections.
func hitCallback(t *testing.T, url string) *http.Response {
	t.Helper()
	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get(url)
		if err == nil {
			return resp
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("callback endpoint never came up: %v", err)
	return nil
}

func TestSetupFlowSuccess(t *testing.T) {
	flow := &fakeFlow{}
	s, redirectURI := newTestSetupFlow(t, flow)

	type result struct {
		bundle *oauth.TokenBundle
		err    error
	}
	done := make(chan result, 1)
	go func() {
		bundle, err := s.Run(context.Background())
		done <- result{bundle, err}
	}()

	resp := hitCallback(t, redirectURI+"?code=abc123&state=state-1")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	res := <-done
	require.NoError(t, res.err)
	require.Equal(t, "at-1", res.bundle.AccessToken)
	require.Equal(t, "abc123", flow.gotCode)
	require.Equal(t, "verifier-1", flow.gotVerifier)
	require.Equal(t, 1, flow.exchangeCalls)
}

func TestSetupFlowMismatchedState(t *testing.T) {
	flow := &fakeFlow{}
	s, redirectURI := newTestSetupFlow(t, flow)

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background())
		done <- err
	}()

	resp := hitCallback(t, redirectURI+"?code=abc123&state=wrong-state")
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	err := <-done
	require.ErrorIs(t, err, oauth.ErrInvalidCallback)
	require.Zero(t, flow.exchangeCalls, "a mismatched state must not reach the exchange step")
}

func TestSetupFlowProviderError(t *testing.T) {
	flow := &fakeFlow{}
	s, redirectURI := newTestSetupFlow(t, flow)

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background())
		done <- err
	}()

	resp := hitCallback(t, redirectURI+"?error=access_denied&error_description=user+said+no")
	resp.Body.Close()

	err := <-done
	var denied *oauth.AuthorizationDeniedError
	require.ErrorAs(t, err, &denied)
	require.Contains(t, denied.Reason, "access_denied")
	require.Zero(t, flow.exchangeCalls)
}

func TestSetupFlowExchangeFailure(t *testing.T) {
	flow := &fakeFlow{exchangeErr: &oauth.ExchangeError{Op: "exchange", Err: errors.New("invalid_grant")}}
	s, redirectURI := newTestSetupFlow(t, flow)

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background())
		done <- err
	}()

	resp := hitCallback(t, redirectURI+"?code=expired&state=state-1")
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	err := <-done
	var exchangeErr *oauth.ExchangeError
	require.ErrorAs(t, err, &exchangeErr)
}

func TestSetupFlowTimeoutReleasesPort(t *testing.T) {
	flow := &fakeFlow{}
	s, redirectURI := newTestSetupFlow(t, flow)
	s.timeout = 100 * time.Millisecond

	_, err := s.Run(context.Background())
	require.ErrorIs(t, err, oauth.ErrAuthorizationTimeout)

	// The port must be immediately bindable again.
	u := redirectURI[len("http://"):]
	host := u[:len(u)-len("/callback")]
	ln, err := net.Listen("tcp", host)
	require.NoError(t, err)
	ln.Close()
}

func TestSetupFlowRejectsConcurrentRun(t *testing.T) {
	flow := &fakeFlow{}
	s, _ := newTestSetupFlow(t, flow)

	s.inFlight.Store(true)
	_, err := s.Run(context.Background())
	require.ErrorIs(t, err, oauth.ErrSetupInProgress)
}

func TestSetupFlowBrowserFailureDoesNotAbort(t *testing.T) {
	flow := &fakeFlow{}
	s, redirectURI := newTestSetupFlow(t, flow)
	s.openBrowser = func(string) error { return errors.New("no display") }

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background())
		done <- err
	}()

	resp := hitCallback(t, redirectURI+"?code=abc123&state=state-1")
	resp.Body.Close()

	require.NoError(t, <-done)
}

func TestCallbackHandlerSingleUseState(t *testing.T) {
	flow := &fakeFlow{}
	results := make(chan callbackResult, 1)
	h := &callbackHandler{
		path:     "/callback",
		state:    "state-1",
		verifier: "verifier-1",
		exchange: flow.Exchange,
		results:  results,
		logger:   zap.NewNop(),
	}

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/callback?code=abc123&state=state-1", nil))
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, 1, flow.exchangeCalls)

	// A second hit with the same, now-consumed state is rejected even though
	// it looks valid.
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/callback?code=def456&state=state-1", nil))
	require.Equal(t, http.StatusBadRequest, second.Code)
	require.Equal(t, 1, flow.exchangeCalls, "exchange must run at most once")
}

func TestCallbackHandlerUnknownPath(t *testing.T) {
	h := &callbackHandler{
		path:    "/callback",
		state:   "state-1",
		results: make(chan callbackResult, 1),
		logger:  zap.NewNop(),
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.False(t, h.consumed, "stray paths must not affect the flow outcome")
}
