// Package gateway is the single chokepoint for all outbound API calls. It
// attaches the bearer credential, decodes the response envelope, classifies
// failures into tagged error values, and coordinates token renewal so that
// at most one renewal is in flight per process.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-client/apierror"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/session"
)

const contentTypeJSON = "application/json; charset=utf-8"

// Gateway issues API calls on behalf of the whole process. The embedded
// cookie jar carries the server-managed refresh cookie; the access token is
// re-read from the session store on every attempt so a call never replays
// with a stale credential.
type Gateway struct {
	baseURL     *url.URL
	refreshPath string
	httpClient  *http.Client
	store       *session.Store
	coordinator *Coordinator
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient sets a custom HTTP client. The client should carry a
// cookie jar, otherwise the refresh cookie is lost between calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = httpClient
	}
}

// WithSessionExpiredHook registers a callback fired when a renewal fails
// and the session is force-ended. Navigation consumers use it to route to
// the login entry point.
func WithSessionExpiredHook(hook func()) Option {
	return func(g *Gateway) {
		g.coordinator.onSessionExpired = hook
	}
}

// New creates a Gateway bound to the process-wide session store.
func New(store *session.Store, cfg config.ClientConfig, options ...Option) (*Gateway, error) {
	if store == nil {
		return nil, errors.New("[gateway.New] session store is required")
	}
	baseURL, err := url.Parse(cfg.GetAPIBaseURL())
	if err != nil {
		return nil, errors.Wrap(err, "[gateway.New] invalid API base URL")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "[gateway.New] cookie jar")
	}

	g := &Gateway{
		baseURL:     baseURL,
		refreshPath: cfg.GetRefreshPath(),
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: cfg.GetHTTPTimeout(),
		},
		store: store,
	}
	g.coordinator = newCoordinator(store, g.renewToken)

	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Coordinator returns the gateway's refresh coordinator.
func (g *Gateway) Coordinator() *Coordinator {
	return g.coordinator
}

// Do issues an API call. A non-nil body is JSON-encoded; a non-nil out has
// the envelope's data field decoded into it. On a 401 the call is suspended
// behind a (possibly shared) renewal and replayed exactly once with the
// refreshed token; a second 401 is terminal.
func (g *Gateway) Do(ctx context.Context, method, path string, body any, out any) (*Envelope, error) {
	env, err := g.roundTrip(ctx, method, path, body, out, g.store.AccessToken())
	if err == nil || !apierror.IsKind(err, apierror.KindUnauthenticated) || !g.retriable(path) {
		return env, err
	}

	// Expired or missing token. Renew once (joining any renewal already in
	// flight) and replay with the fresh credential.
	if refreshErr := g.coordinator.Refresh(ctx); refreshErr != nil {
		return nil, refreshErr
	}

	env, err = g.roundTrip(ctx, method, path, body, out, g.store.AccessToken())
	if apierror.IsKind(err, apierror.KindUnauthenticated) {
		// Already retried once; a token the server just minted is still
		// rejected, so the session cannot be re-established. Force logout
		// rather than leaving a credential the server refuses.
		g.coordinator.sessionEnded()
		return nil, apierror.New(apierror.KindRefreshExhausted, http.StatusUnauthorized,
			"session could not be re-established")
	}
	return env, err
}

// Get issues a GET call.
func (g *Gateway) Get(ctx context.Context, path string, out any) (*Envelope, error) {
	return g.Do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST call.
func (g *Gateway) Post(ctx context.Context, path string, body any, out any) (*Envelope, error) {
	return g.Do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT call.
func (g *Gateway) Put(ctx context.Context, path string, body any, out any) (*Envelope, error) {
	return g.Do(ctx, http.MethodPut, path, body, out)
}

// renewToken performs the raw renewal call. It never recurses into the 401
// retry path: a 401 here means the long-lived credential is gone and the
// session cannot be re-established.
func (g *Gateway) renewToken(ctx context.Context) (string, error) {
	var data struct {
		AccessToken string `json:"accessToken"`
	}
	if _, err := g.roundTrip(ctx, http.MethodPost, g.refreshPath, nil, &data, ""); err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", apierror.New(apierror.KindServiceUnavailable, 0,
			"renewal response carried no access token")
	}
	return data.AccessToken, nil
}

// roundTrip performs a single HTTP exchange and classifies the outcome. It
// never retries; retry policy lives in Do.
func (g *Gateway) roundTrip(ctx context.Context, method, path string, body any, out any, token string) (*Envelope, error) {
	req, err := g.newRequest(ctx, method, path, body, token)
	if err != nil {
		return nil, err
	}

	requestID := req.Header.Get("X-Request-ID")
	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Debug().Str("method", method).Str("path", path).Str("request_id", requestID).
			Err(err).Msg("request transport failure")
		return nil, apierror.Wrap(err, apierror.KindTransport, 0, "request failed: "+err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierror.Wrap(err, apierror.KindTransport, 0, "reading response body")
	}

	env := &Envelope{}
	if len(raw) > 0 {
		// Tolerate non-envelope bodies; classification falls back to the
		// HTTP status text.
		_ = json.Unmarshal(raw, env)
	}

	log.Debug().Str("method", method).Str("path", path).Str("request_id", requestID).
		Int("status", resp.StatusCode).Msg("request completed")

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, g.classify(path, resp.StatusCode, env)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, apierror.Wrap(err, apierror.KindTransport, resp.StatusCode,
				"decoding response data")
		}
	}
	return env, nil
}

func (g *Gateway) newRequest(ctx context.Context, method, path string, body any, token string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "[Gateway.newRequest] encoding request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.resolve(path), reader)
	if err != nil {
		return nil, errors.Wrap(err, "[Gateway.newRequest] building request")
	}

	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", contentTypeJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// retriable reports whether a 401 on the path may be answered by renewing
// the token and replaying. Credential-submission endpoints are excluded: a
// rejected login must surface the server's message, not trigger a renewal.
func (g *Gateway) retriable(path string) bool {
	return path != g.refreshPath && path != "/auth/login"
}

func (g *Gateway) resolve(path string) string {
	base := strings.TrimSuffix(g.baseURL.String(), "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// classify maps an error status to a tagged error value. This is the only
// place the taxonomy is produced for HTTP responses.
func (g *Gateway) classify(path string, status int, env *Envelope) error {
	message := env.Reason()
	if message == "" {
		message = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized && path == g.refreshPath:
		// The renewal endpoint rejecting the long-lived credential is
		// terminal; never retried.
		return apierror.New(apierror.KindRefreshExhausted, status, message)
	case status == http.StatusUnauthorized:
		return apierror.New(apierror.KindUnauthenticated, status, message)
	case status >= http.StatusInternalServerError:
		return apierror.New(apierror.KindServiceUnavailable, status, message)
	default:
		return apierror.New(apierror.KindValidation, status, message)
	}
}

// SetTimeout overrides the per-call timeout. Primarily for tests.
func (g *Gateway) SetTimeout(d time.Duration) {
	g.httpClient.Timeout = d
}
