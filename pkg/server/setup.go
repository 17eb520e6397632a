package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/xmcp-dev/x-mcp-server/pkg/oauth"
)

// setupTimeout bounds how long the callback listener waits for the redirect.
const setupTimeout = 5 * time.Minute

// AuthorizationFlow is the part of the OAuth flow the setup needs.
type AuthorizationFlow interface {
	BuildAuthorizationRequest(scopes []string) *oauth.AuthorizationRequest
	Exchange(ctx context.Context, code, codeVerifier string) (*oauth.TokenBundle, error)
}

// SetupFlow drives one interactive authorization attempt: it opens the
// authorization URL in the user's browser, hosts a single-use callback
// listener on the redirect URI's host:port, and exchanges the returned code
// for a persisted token bundle. The listener is strictly single-shot and the
// socket is released on every exit path so a later retry can bind the same
// port.
type SetupFlow struct {
	flow        AuthorizationFlow
	redirectURI string
	scopes      []string
	timeout     time.Duration
	logger      *zap.Logger
	out         io.Writer
	openBrowser func(string) error
	inFlight    atomic.Bool
}

// NewSetupFlow creates a setup flow for the given redirect URI and scopes
func NewSetupFlow(flow AuthorizationFlow, redirectURI string, scopes []string, logger *zap.Logger) *SetupFlow {
	return &SetupFlow{
		flow:        flow,
		redirectURI: redirectURI,
		scopes:      scopes,
		timeout:     setupTimeout,
		logger:      logger,
		out:         os.Stdout,
		openBrowser: browser.OpenURL,
	}
}

type callbackResult struct {
	bundle *oauth.TokenBundle
	err    error
}

// Run performs one authorization attempt. Exactly one authorization request
// is live per run; a second concurrent Run is rejected instead of spawning a
// second listener on the same port.
func (s *SetupFlow) Run(ctx context.Context) (*oauth.TokenBundle, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, oauth.ErrSetupInProgress
	}
	defer s.inFlight.Store(false)

	u, err := url.Parse(s.redirectURI)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI %q: %w", s.redirectURI, err)
	}
	callbackPath := u.Path
	if callbackPath == "" {
		callbackPath = "/callback"
	}

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to bind callback listener on %s: %w", u.Host, err)
	}

	req := s.flow.BuildAuthorizationRequest(s.scopes)

	results := make(chan callbackResult, 1)
	handler := &callbackHandler{
		path:     callbackPath,
		state:    req.State,
		verifier: req.CodeVerifier,
		exchange: s.flow.Exchange,
		results:  results,
		logger:   s.logger,
	}

	srv := &http.Server{Handler: handler}
	// Close, not Shutdown: a terminal outcome or timeout must positively tear
	// down the socket so the fixed port is free for a later retry.
	defer srv.Close()
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Warn("Callback listener stopped unexpectedly", zap.Error(err))
		}
	}()

	fmt.Fprintf(s.out, "Open the following URL in your browser to authorize:\n\n  %s\n\n", req.AuthorizationURL)
	fmt.Fprintf(s.out, "Waiting for authorization (timeout %s)...\n", s.timeout)

	if err := s.openBrowser(req.AuthorizationURL); err != nil {
		// Best-effort side effect; the URL is already printed.
		s.logger.Debug("Failed to launch browser", zap.Error(err))
	}

	select {
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		s.logger.Info("Authorization completed",
			zap.Time("expiresAt", res.bundle.ExpiresAt),
			zap.Bool("hasRefreshToken", res.bundle.RefreshToken != ""),
		)
		return res.bundle, nil
	case <-time.After(s.timeout):
		return nil, oauth.ErrAuthorizationTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// callbackHandler serves the single-use callback endpoint. The first request
// reaching a terminal outcome consumes the authorization request; any later
// hit on the callback path, browser prefetch or retry included, is rejected
// even with a correct state.
type callbackHandler struct {
	path     string
	state    string
	verifier string
	exchange func(ctx context.Context, code, codeVerifier string) (*oauth.TokenBundle, error)
	results  chan<- callbackResult
	logger   *zap.Logger

	mu       sync.Mutex
	consumed bool
}

func (h *callbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != h.path {
		http.NotFound(w, r)
		return
	}

	h.mu.Lock()
	if h.consumed {
		h.mu.Unlock()
		h.logger.Warn("Callback hit after authorization request was consumed")
		renderFailure(w, "This authorization attempt has already completed.")
		return
	}

	q := r.URL.Query()

	if errCode := q.Get("error"); errCode != "" {
		h.consumed = true
		h.mu.Unlock()
		reason := errCode
		if desc := q.Get("error_description"); desc != "" {
			reason = errCode + ": " + desc
		}
		h.logger.Warn("Authorization denied by provider", zap.String("reason", reason))
		renderFailure(w, "Authorization was denied: "+reason)
		h.results <- callbackResult{err: &oauth.AuthorizationDeniedError{Reason: reason}}
		return
	}

	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" ||
		subtle.ConstantTimeCompare([]byte(state), []byte(h.state)) != 1 {
		h.consumed = true
		h.mu.Unlock()
		h.logger.Warn("Invalid callback",
			zap.Bool("hasCode", code != ""),
			zap.Bool("hasState", state != ""),
		)
		renderFailure(w, "Invalid authorization callback: missing code or mismatched state.")
		h.results <- callbackResult{err: oauth.ErrInvalidCallback}
		return
	}

	h.consumed = true
	h.mu.Unlock()

	bundle, err := h.exchange(r.Context(), code, h.verifier)
	if err != nil {
		h.logger.Error("Code exchange failed", zap.Error(err))
		renderFailure(w, "Token exchange failed. Check the terminal for details.")
		h.results <- callbackResult{err: err}
		return
	}

	renderSuccess(w)
	h.results <- callbackResult{bundle: bundle}
}

const pageTemplate = `<!DOCTYPE html>
<html>
<head><title>x-mcp-server</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 4em;">
<h1>%s</h1>
<p>%s</p>
</body>
</html>`

func renderSuccess(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, pageTemplate, "Authorization successful", "You can close this window and return to the terminal.")
}

func renderFailure(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintf(w, pageTemplate, "Authorization failed", reason)
}
