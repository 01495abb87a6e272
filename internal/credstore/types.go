// Package credstore defines the client registration and token set model for
// the Coursera OAuth2 credential manager, together with the durable Store
// contract and its file-backed implementation.
//
// The backing layout follows the ~/.coursera convention: a single
// coaclient.csv holding all client registrations and one <name>_aout2.csv
// per client holding its current token set.
package credstore

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Scope is a permission requested for an access token.
type Scope string

// The scopes the Coursera provider knows about.
const (
	ScopeViewProfile    Scope = "view_profile"
	ScopeAccessBusiness Scope = "access_business_api"
)

// scopeSeparator joins multiple scopes in authorization URLs and in the
// config file; the provider reads the literal '+' as the scope-list
// separator.
const scopeSeparator = "+"

// Valid reports whether s is one of the known scopes.
func (s Scope) Valid() bool {
	return s == ScopeViewProfile || s == ScopeAccessBusiness
}

// Scopes is an ordered set of scopes.
type Scopes []Scope

// String joins the scopes with "+" for use in authorization URLs and the
// persisted registration row.
func (s Scopes) String() string {
	parts := make([]string, len(s))
	for i, scope := range s {
		parts[i] = string(scope)
	}
	return strings.Join(parts, scopeSeparator)
}

// Contains reports whether the set includes the given scope.
func (s Scopes) Contains(scope Scope) bool {
	for _, existing := range s {
		if existing == scope {
			return true
		}
	}
	return false
}

// ParseScopes parses a "+"-joined scope list. An empty input yields an empty
// set; validation of the individual values is left to Registration.Validate.
func ParseScopes(raw string) Scopes {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, scopeSeparator)
	scopes := make(Scopes, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		scopes = append(scopes, Scope(part))
	}
	return scopes
}

// Registration identifies one OAuth application registered with the provider.
// Registrations are immutable once stored; they are created by Store.Put and
// removed by Store.Delete.
type Registration struct {
	// Name is the unique client app name, the primary external key.
	Name string

	// ClientID is the provider-issued client identifier, a secondary
	// lookup key.
	ClientID string

	// ClientSecret is the provider-issued client secret.
	ClientSecret string

	// Scopes are the permissions requested during authorization.
	Scopes Scopes
}

// Validate checks the registration invariants: all identity fields non-empty
// and every scope within the known set.
func (r Registration) Validate() error {
	if r.Name == "" || r.ClientID == "" || r.ClientSecret == "" {
		return &InvalidRegistrationError{Reason: "name, client id and client secret must not be empty"}
	}
	// The backing file stores one comma-separated row per registration and
	// does not quote fields, so these characters cannot round-trip.
	for _, field := range []struct{ label, value string }{
		{"name", r.Name},
		{"client id", r.ClientID},
		{"client secret", r.ClientSecret},
	} {
		if strings.ContainsAny(field.value, ",\n\r") {
			return &InvalidRegistrationError{
				Reason: fmt.Sprintf("%s must not contain ',' or line breaks", field.label),
			}
		}
	}
	if len(r.Scopes) == 0 {
		return &InvalidRegistrationError{Reason: "scope must not be empty"}
	}
	for _, scope := range r.Scopes {
		if !scope.Valid() {
			return &InvalidRegistrationError{
				Reason: fmt.Sprintf("scope is invalid: %s. Valid scopes are '%s' or '%s'",
					scope, ScopeViewProfile, ScopeAccessBusiness),
			}
		}
	}
	return nil
}

// TokenSet is the issued credential material for one registration. It is
// created on the first successful authorization-code exchange and fully
// replaced on refresh, never partially mutated.
type TokenSet struct {
	// RefreshToken is the opaque long-lived credential.
	RefreshToken string

	// AccessToken is the opaque short-lived credential.
	AccessToken string

	// ExpiresAt is the absolute instant the access token expires. It is
	// derived at issuance from the provider's expires_in so staleness can
	// be checked without knowing issuance time.
	ExpiresAt time.Time
}

// Expired reports whether the access token is stale at the given instant.
func (t TokenSet) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// OAuth2Token converts the token set to a golang.org/x/oauth2 token so stored
// credentials can feed oauth2-aware HTTP clients.
func (t TokenSet) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       t.ExpiresAt,
	}
}
