package oauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"coaclient/internal/credstore"
	"coaclient/pkg/logging"
)

// AuthState is the authorization state of one registered client.
type AuthState int

const (
	// StateUnregistered means no registration exists for the name.
	StateUnregistered AuthState = iota

	// StateRegistered means a registration exists but no tokens have been
	// issued and no authorization flow is in flight.
	StateRegistered

	// StateAwaitingCallback means the callback listener is running and the
	// client has no tokens yet.
	StateAwaitingCallback

	// StateAuthorized means a token set is stored for the client. Reads of
	// an expired access token refresh it transparently.
	StateAuthorized
)

// String returns the string representation of the auth state.
func (s AuthState) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistered:
		return "registered"
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// ManagerConfig configures the manager.
type ManagerConfig struct {
	// Store is the credential store. Required.
	Store credstore.Store

	// AuthEndpoint overrides the provider authorization endpoint.
	AuthEndpoint string

	// TokenEndpoint overrides the provider token endpoint.
	TokenEndpoint string

	// CallbackPort overrides the local callback port.
	CallbackPort int

	// HTTPClient is an optional custom HTTP client for token exchanges.
	HTTPClient *http.Client

	// OpenBrowser overrides how authorization URLs reach the user's
	// browser. Defaults to launching the system browser.
	OpenBrowser func(url string) error
}

// Manager orchestrates the full authorization flow for registered clients:
// it validates and stores registrations, owns the callback listener handle,
// builds authorization URLs, and applies the freshness/refresh decision on
// access-token reads.
type Manager struct {
	store        credstore.Store
	exchanger    *ExchangeClient
	callback     *CallbackServer
	authEndpoint string
	openBrowser  func(url string) error

	// refreshGroup deduplicates concurrent refresh calls per client name.
	refreshGroup singleflight.Group
}

// NewManager creates a manager with the given configuration.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("manager requires a credential store")
	}

	authEndpoint := cfg.AuthEndpoint
	if authEndpoint == "" {
		authEndpoint = DefaultAuthEndpoint
	}
	tokenEndpoint := cfg.TokenEndpoint
	if tokenEndpoint == "" {
		tokenEndpoint = DefaultTokenEndpoint
	}
	port := cfg.CallbackPort
	if port == 0 {
		port = DefaultCallbackPort
	}
	openBrowser := cfg.OpenBrowser
	if openBrowser == nil {
		openBrowser = OpenBrowser
	}

	redirectBase := fmt.Sprintf("http://localhost:%d/callback?client_id=", port)
	exchanger := NewExchangeClient(tokenEndpoint, redirectBase, cfg.HTTPClient)

	return &Manager{
		store:        cfg.Store,
		exchanger:    exchanger,
		callback:     NewCallbackServer(port, cfg.Store, exchanger),
		authEndpoint: authEndpoint,
		openBrowser:  openBrowser,
	}, nil
}

// Register validates and stores a new client registration. An empty scope
// list defaults to view_profile; requesting access_business_api implies
// view_profile at the provider, so it is added when missing.
func (m *Manager) Register(name, clientID, clientSecret string, scopes credstore.Scopes) error {
	if len(scopes) == 0 {
		scopes = credstore.Scopes{credstore.ScopeViewProfile}
	} else if scopes.Contains(credstore.ScopeAccessBusiness) && !scopes.Contains(credstore.ScopeViewProfile) {
		scopes = append(credstore.Scopes{credstore.ScopeViewProfile}, scopes...)
	}

	return m.store.Put(credstore.Registration{
		Name:         name,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       scopes,
	})
}

// Deregister removes a client registration and its token set.
func (m *Manager) Deregister(name string) error {
	return m.store.Delete(name)
}

// Logout clears the stored token set for the named client. The registration
// stays; a later login re-authorizes it.
func (m *Manager) Logout(name string) error {
	_, ok, err := m.store.Get(name)
	if err != nil {
		return fmt.Errorf("failed to look up registration: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrRegistrationNotFound, name)
	}
	return m.store.DeleteTokens(name)
}

// BeginAuthorization starts the authorization-code flow for the named client:
// it starts the callback listener (idempotently), builds the authorization
// URL and hands it to the browser collaborator. It returns the URL and does
// not block; authorization completes asynchronously when the provider invokes
// the callback. A browser-launch failure is logged, not returned — the
// listener keeps running and the URL can be opened manually.
func (m *Manager) BeginAuthorization(name string) (string, error) {
	reg, ok, err := m.store.Get(name)
	if err != nil {
		return "", fmt.Errorf("failed to look up registration: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRegistrationNotFound, name)
	}

	if err := m.callback.Start(); err != nil {
		return "", err
	}

	authURL := m.buildAuthorizationURL(reg)

	if err := m.openBrowser(authURL); err != nil {
		logging.Error("Manager", err, "Error opening desktop browser; open the authorization URL manually")
	}

	logging.Info("Manager", "Authorization started for %s, waiting for provider callback", name)
	return authURL, nil
}

// buildAuthorizationURL constructs the provider authorization URL. The scope
// list is joined with literal '+' (the provider reads it as a space-separated
// list), so the URL is assembled from a fixed template rather than
// url.Values, which would percent-encode the separator.
func (m *Manager) buildAuthorizationURL(reg credstore.Registration) string {
	redirectURI := m.callback.RedirectBase() + reg.ClientID
	return fmt.Sprintf(
		"%s?scope=%s&redirect_uri=%s&access_type=offline&grant_type=authorization_code&response_type=code&client_id=%s",
		m.authEndpoint,
		reg.Scopes.String(),
		url.QueryEscape(redirectURI),
		url.QueryEscape(reg.ClientID),
	)
}

// GetTokens returns the raw stored token set for the named client, without
// any freshness check.
func (m *Manager) GetTokens(name string) (credstore.TokenSet, bool, error) {
	return m.store.LoadTokens(name)
}

// GetAccessToken returns a usable access token for the named client. A stale
// token triggers exactly one refresh exchange (concurrent readers share it);
// the refreshed set is persisted before the new token is returned. Absence of
// tokens and refresh failures both yield the absent result — no error escapes
// the read path.
func (m *Manager) GetAccessToken(ctx context.Context, name string) (string, bool) {
	tokens, ok, err := m.store.LoadTokens(name)
	if err != nil {
		logging.Error("Manager", err, "Failed to load tokens for %s", name)
		return "", false
	}
	if !ok {
		return "", false
	}

	if !tokens.Expired(time.Now()) {
		return tokens.AccessToken, true
	}

	logging.Info("Manager", "Access token for %s is expired, generating a new one", name)

	result, err, _ := m.refreshGroup.Do(name, func() (interface{}, error) {
		return m.refreshAccessToken(ctx, name)
	})
	if err != nil {
		logging.Error("Manager", err, "New access token is not generated using refresh token for %s", name)
		return "", false
	}
	return result.(string), true
}

// refreshAccessToken performs one refresh exchange and persists the result.
// It re-reads the store first so readers that piled up behind a concurrent
// refresh reuse its outcome instead of refreshing again.
func (m *Manager) refreshAccessToken(ctx context.Context, name string) (string, error) {
	tokens, ok, err := m.store.LoadTokens(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("no tokens stored for %s", name)
	}
	if !tokens.Expired(time.Now()) {
		return tokens.AccessToken, nil
	}

	reg, ok, err := m.store.Get(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRegistrationNotFound, name)
	}

	refreshed, err := m.exchanger.Refresh(ctx, reg, tokens.RefreshToken)
	if err != nil {
		return "", err
	}

	if err := m.store.SaveTokens(name, refreshed); err != nil {
		// The token is still valid for this read even if persisting failed.
		logging.Warn("Manager", "Failed to persist refreshed tokens for %s: %v", name, err)
	}

	return refreshed.AccessToken, nil
}

// Status reports the authorization state of the named client.
func (m *Manager) Status(name string) AuthState {
	_, ok, err := m.store.Get(name)
	if err != nil || !ok {
		return StateUnregistered
	}

	if _, ok, err := m.store.LoadTokens(name); err == nil && ok {
		return StateAuthorized
	}

	if m.callback.Running() {
		return StateAwaitingCallback
	}
	return StateRegistered
}

// ListClients returns all stored registrations.
func (m *Manager) ListClients() ([]credstore.Registration, error) {
	return m.store.List()
}

// WaitForAuthorization blocks until a pending authorization flow has been
// completed by the provider callback, or the context is done.
func (m *Manager) WaitForAuthorization(ctx context.Context) (AuthOutcome, error) {
	return m.callback.WaitForOutcome(ctx)
}

// StopCallback stops the callback listener. Safe to call when not running.
func (m *Manager) StopCallback() {
	m.callback.Stop()
}

// TokenSource returns an oauth2.TokenSource backed by the stored credentials
// for the named client, so they can feed oauth2-aware HTTP clients. Each
// Token call re-applies the freshness/refresh decision.
func (m *Manager) TokenSource(ctx context.Context, name string) oauth2.TokenSource {
	return &managerTokenSource{ctx: ctx, manager: m, name: name}
}

type managerTokenSource struct {
	ctx     context.Context
	manager *Manager
	name    string
}

// Token implements oauth2.TokenSource.
func (s *managerTokenSource) Token() (*oauth2.Token, error) {
	if _, ok := s.manager.GetAccessToken(s.ctx, s.name); !ok {
		return nil, fmt.Errorf("no valid access token for client %s", s.name)
	}

	tokens, ok, err := s.manager.GetTokens(s.name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no tokens stored for client %s", s.name)
	}
	return tokens.OAuth2Token(), nil
}
