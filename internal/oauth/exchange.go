package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coaclient/internal/credstore"
	"coaclient/pkg/logging"
)

// Coursera provider endpoints and the registered local callback.
const (
	// DefaultAuthEndpoint is the provider's authorization endpoint.
	DefaultAuthEndpoint = "https://accounts.coursera.org/oauth2/v1/auth"

	// DefaultTokenEndpoint is the provider's token endpoint.
	DefaultTokenEndpoint = "https://accounts.coursera.org/oauth2/v1/token"

	// DefaultCallbackPort is the local port the provider redirects back to.
	// It must match the redirect URI registered with the provider.
	DefaultCallbackPort = 9876
)

// DefaultHTTPTimeout is the default timeout for token endpoint requests.
const DefaultHTTPTimeout = 30 * time.Second

// ExchangeClient performs the two OAuth2 exchanges against the provider's
// token endpoint. Both calls are synchronous, single-attempt, form-encoded
// POSTs; retry policy belongs to the caller.
type ExchangeClient struct {
	tokenEndpoint string
	redirectBase  string // callback URI prefix, completed with the client id
	httpClient    *http.Client
}

// NewExchangeClient creates an exchange client. redirectBase is the callback
// URI up to and including "?client_id="; the client id of the registration
// being exchanged is appended per call.
func NewExchangeClient(tokenEndpoint, redirectBase string, httpClient *http.Client) *ExchangeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &ExchangeClient{
		tokenEndpoint: tokenEndpoint,
		redirectBase:  redirectBase,
		httpClient:    httpClient,
	}
}

// tokenResponse is the flat key-value object the token endpoint returns.
type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    json.Number `json:"expires_in"`
}

// Exchange trades an authorization code for a fresh token set.
func (c *ExchangeClient) Exchange(ctx context.Context, reg credstore.Registration, code string) (credstore.TokenSet, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {reg.ClientID},
		"client_secret": {reg.ClientSecret},
		"code":          {code},
		"redirect_uri":  {c.redirectBase + reg.ClientID},
		"access_type":   {"offline"},
	}

	resp, err := c.post(ctx, "authorization_code", data)
	if err != nil {
		return credstore.TokenSet{}, err
	}

	if resp.AccessToken == "" {
		return credstore.TokenSet{}, &TokenExchangeError{Op: "authorization_code", Err: errMissingField("access_token")}
	}
	if resp.RefreshToken == "" {
		return credstore.TokenSet{}, &TokenExchangeError{Op: "authorization_code", Err: errMissingField("refresh_token")}
	}
	expiresIn, err := expiresInSeconds(resp.ExpiresIn)
	if err != nil {
		return credstore.TokenSet{}, &TokenExchangeError{Op: "authorization_code", Err: err}
	}

	logging.Debug("Exchange", "Authorization code exchanged for client %s (expires_in=%d)", reg.Name, expiresIn)

	return credstore.TokenSet{
		RefreshToken: resp.RefreshToken,
		AccessToken:  resp.AccessToken,
		ExpiresAt:    time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// Refresh trades a refresh token for a new access token. The provider does
// not rotate refresh tokens, so the returned token set carries the same
// refresh token that was passed in.
func (c *ExchangeClient) Refresh(ctx context.Context, reg credstore.Registration, refreshToken string) (credstore.TokenSet, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {reg.ClientID},
		"client_secret": {reg.ClientSecret},
		"refresh_token": {refreshToken},
	}

	resp, err := c.post(ctx, "refresh_token", data)
	if err != nil {
		return credstore.TokenSet{}, err
	}

	if resp.AccessToken == "" {
		return credstore.TokenSet{}, &TokenExchangeError{Op: "refresh_token", Err: errMissingField("access_token")}
	}
	expiresIn, err := expiresInSeconds(resp.ExpiresIn)
	if err != nil {
		return credstore.TokenSet{}, &TokenExchangeError{Op: "refresh_token", Err: err}
	}

	logging.Debug("Exchange", "Access token refreshed for client %s (expires_in=%d)", reg.Name, expiresIn)

	return credstore.TokenSet{
		RefreshToken: refreshToken,
		AccessToken:  resp.AccessToken,
		ExpiresAt:    time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// post sends one form-encoded request to the token endpoint and parses the
// response. Token values are never logged; error bodies are preserved on the
// returned TokenExchangeError for the caller to log.
func (c *ExchangeClient) post(ctx context.Context, op string, data url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, &TokenExchangeError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TokenExchangeError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TokenExchangeError{Op: op, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &TokenExchangeError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &TokenExchangeError{Op: op, Err: fmt.Errorf("failed to parse token response: %w", err)}
	}

	return &parsed, nil
}

func errMissingField(field string) error {
	return fmt.Errorf("token response is missing required field %q", field)
}

func expiresInSeconds(raw json.Number) (int64, error) {
	if raw == "" {
		return 0, errMissingField("expires_in")
	}
	seconds, err := raw.Int64()
	if err != nil {
		return 0, fmt.Errorf("invalid expires_in value %q: %w", raw, err)
	}
	return seconds, nil
}
