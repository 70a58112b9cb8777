// Package auth implements the per-session OAuth2 authorization-code and
// refresh-token lifecycle for the Figma API.
//
// Each MCP session moves through unauthenticated -> awaiting-callback ->
// authenticated. Refreshes happen inside AccessToken and are invisible to
// callers.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/standardbeagle/figma-bridge/internal/store"
)

// PendingTTL is how long an issued authorization state stays valid.
const PendingTTL = 10 * time.Minute

const credentialKeyPrefix = "credentials:"

// Credentials is the OAuth grant held for one session.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type pendingAuth struct {
	sessionID string
	createdAt time.Time
}

// Access is the result of a capability check: either an access token or an
// authorization URL the user must visit first.
type Access struct {
	Token   string
	AuthURL string
}

// Authorized reports whether the session may call the Figma API now.
func (a Access) Authorized() bool { return a.AuthURL == "" }

// Flow drives the OAuth lifecycle. Credential records live in the injected
// store keyed by session ID; pending authorization states are in-process
// only, since a callback always lands on the instance that issued it.
type Flow struct {
	oauth       *oauth2.Config
	store       store.Store
	staticToken string
	log         *slog.Logger
	now         func() time.Time

	mu         sync.Mutex
	pending    map[string]pendingAuth
	refreshing map[string]*sync.Mutex
}

// Option configures a Flow.
type Option func(*Flow)

// WithStaticToken puts the flow in personal-access-token mode: every
// session is authorized with tok and the browser flow is bypassed.
func WithStaticToken(tok string) Option {
	return func(f *Flow) { f.staticToken = tok }
}

// WithLogger sets the flow's logger.
func WithLogger(log *slog.Logger) Option {
	return func(f *Flow) { f.log = log }
}

// WithClock overrides the time source. Test seam.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

// New creates a Flow. cfg may be nil when only static-token mode is used.
func New(cfg *oauth2.Config, st store.Store, opts ...Option) *Flow {
	f := &Flow{
		oauth:      cfg,
		store:      st,
		log:        slog.Default(),
		now:        time.Now,
		pending:    make(map[string]pendingAuth),
		refreshing: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BeginAuth issues an authorization redirect URL for the session and
// records a pending anti-CSRF state entry.
func (f *Flow) BeginAuth(ctx context.Context, sessionID string) (string, error) {
	if f.oauth == nil || f.oauth.ClientID == "" {
		return "", ErrNotConfigured
	}

	state := uuid.NewString()
	f.mu.Lock()
	f.pending[state] = pendingAuth{sessionID: sessionID, createdAt: f.now()}
	f.mu.Unlock()

	f.log.Info("issued authorization redirect", "session", sessionID)
	return f.oauth.AuthCodeURL(state), nil
}

// CompleteAuth handles the provider callback: it matches state against the
// pending entries, exchanges the authorization code, and stores the
// resulting credential record for the initiating session.
//
// Entries older than PendingTTL are swept on every callback, so a stale
// state can never match.
func (f *Flow) CompleteAuth(ctx context.Context, code, state string) error {
	f.mu.Lock()
	cutoff := f.now().Add(-PendingTTL)
	for s, p := range f.pending {
		if p.createdAt.Before(cutoff) {
			delete(f.pending, s)
		}
	}
	p, ok := f.pending[state]
	f.mu.Unlock()

	if !ok {
		return ErrInvalidState
	}

	tok, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		// The pending entry stays so the callback can be retried while
		// the state is within PendingTTL.
		f.log.Warn("code exchange failed", "session", p.sessionID, "error", err)
		return fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	if err := f.putCredentials(ctx, p.sessionID, Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}); err != nil {
		return err
	}

	f.mu.Lock()
	delete(f.pending, state)
	f.mu.Unlock()

	f.log.Info("session authenticated", "session", p.sessionID)
	return nil
}

// AccessToken returns a valid access token for the session, refreshing it
// first when expired. An unexpired token never touches the network.
func (f *Flow) AccessToken(ctx context.Context, sessionID string) (string, error) {
	if f.staticToken != "" {
		return f.staticToken, nil
	}

	rec, err := f.getCredentials(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", ErrNotAuthenticated
	}
	if f.now().Before(rec.ExpiresAt) {
		return rec.AccessToken, nil
	}
	return f.refresh(ctx, sessionID, rec)
}

// refresh performs a refresh-token exchange and overwrites the credential
// record. A per-session mutex serializes concurrent refreshes so two racing
// calls for one session cannot each hit the token endpoint.
func (f *Flow) refresh(ctx context.Context, sessionID string, rec *Credentials) (string, error) {
	mu := f.sessionMutex(sessionID)
	mu.Lock()
	defer mu.Unlock()

	// Another call may have refreshed while we waited on the mutex.
	cur, err := f.getCredentials(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if cur == nil {
		return "", ErrNotAuthenticated
	}
	if f.now().Before(cur.ExpiresAt) {
		return cur.AccessToken, nil
	}

	tok, err := f.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cur.RefreshToken}).Token()
	if err != nil {
		f.log.Warn("token refresh failed", "session", sessionID, "error", err)
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	next := Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	if next.RefreshToken == "" {
		// Providers may omit the refresh token on renewal.
		next.RefreshToken = cur.RefreshToken
	}
	if err := f.putCredentials(ctx, sessionID, next); err != nil {
		return "", err
	}

	f.log.Debug("access token refreshed", "session", sessionID)
	return next.AccessToken, nil
}

// Authorize is the capability check run before any OAuth-gated tool logic:
// it yields either a usable token or the authorization URL the user must
// visit.
func (f *Flow) Authorize(ctx context.Context, sessionID string) (Access, error) {
	if f.staticToken != "" {
		return Access{Token: f.staticToken}, nil
	}

	rec, err := f.getCredentials(ctx, sessionID)
	if err != nil {
		return Access{}, err
	}
	if rec == nil {
		url, err := f.BeginAuth(ctx, sessionID)
		if err != nil {
			return Access{}, err
		}
		return Access{AuthURL: url}, nil
	}

	tok, err := f.AccessToken(ctx, sessionID)
	if err != nil {
		return Access{}, err
	}
	return Access{Token: tok}, nil
}

// Authenticated reports whether the session holds a credential record,
// without starting an authorization flow or refreshing anything.
func (f *Flow) Authenticated(ctx context.Context, sessionID string) (bool, error) {
	if f.staticToken != "" {
		return true, nil
	}
	rec, err := f.getCredentials(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// TokenSource binds the flow to one session as a bearer-token provider for
// the Figma gateway client.
func (f *Flow) TokenSource(sessionID string) SessionTokenSource {
	return SessionTokenSource{flow: f, sessionID: sessionID}
}

// SessionTokenSource yields valid access tokens for a single session.
type SessionTokenSource struct {
	flow      *Flow
	sessionID string
}

// AccessToken returns a valid token for the bound session.
func (ts SessionTokenSource) AccessToken(ctx context.Context) (string, error) {
	return ts.flow.AccessToken(ctx, ts.sessionID)
}

func (f *Flow) sessionMutex(sessionID string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	mu, ok := f.refreshing[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		f.refreshing[sessionID] = mu
	}
	return mu
}

func (f *Flow) getCredentials(ctx context.Context, sessionID string) (*Credentials, error) {
	data, err := f.store.Get(ctx, credentialKeyPrefix+sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	var rec Credentials
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling credentials: %w", err)
	}
	return &rec, nil
}

func (f *Flow) putCredentials(ctx context.Context, sessionID string, rec Credentials) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := f.store.Set(ctx, credentialKeyPrefix+sessionID, data, 0); err != nil {
		return fmt.Errorf("storing credentials: %w", err)
	}
	return nil
}
