// Package oauth drives the Coursera authorization-code grant for locally
// registered OAuth applications.
//
// # Architecture
//
// The package provides:
//   - ExchangeClient: the two form-encoded POST exchanges against the
//     provider's token endpoint (authorization code and refresh token)
//   - CallbackServer: a transient local HTTP listener that captures the
//     authorization code the provider redirects back after user consent,
//     exchanges it and persists the resulting token set
//   - Manager: the capability set callers use — register/deregister clients,
//     begin authorization, read tokens with transparent refresh
//
// # Flow
//
// A caller registers a client, then calls Manager.BeginAuthorization. The
// manager starts the callback listener, builds the authorization URL and
// hands it to the system browser. When the provider redirects back to
// http://localhost:<port>/callback with a code, the handler exchanges it and
// writes the token set to the credential store. Later access-token reads go
// through Manager.GetAccessToken, which refreshes stale tokens in place.
//
// Authorization completes asynchronously; BeginAuthorization never blocks.
// Callers that want to block until the callback lands (such as the CLI) use
// Manager.WaitForAuthorization with their own timeout.
package oauth
