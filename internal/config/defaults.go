package config

import (
	"time"

	"coaclient/internal/oauth"
)

// GetDefaultConfig returns the built-in configuration, wired for the
// Coursera OAuth2 provider.
func GetDefaultConfig() Config {
	return Config{
		OAuth: OAuthConfig{
			AuthEndpoint:       oauth.DefaultAuthEndpoint,
			TokenEndpoint:      oauth.DefaultTokenEndpoint,
			CallbackPort:       oauth.DefaultCallbackPort,
			HTTPTimeoutSeconds: int(oauth.DefaultHTTPTimeout / time.Second),
		},
		Storage: StorageConfig{
			Dir: "", // empty resolves to ~/.coursera at store construction
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}
