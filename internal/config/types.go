package config

import "time"

// Config is the top-level configuration structure for coaclient.
type Config struct {
	OAuth   OAuthConfig   `yaml:"oauth"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// OAuthConfig defines provider endpoints and the local callback listener.
type OAuthConfig struct {
	AuthEndpoint       string `yaml:"authEndpoint,omitempty"`       // Authorization endpoint (default: Coursera)
	TokenEndpoint      string `yaml:"tokenEndpoint,omitempty"`      // Token endpoint (default: Coursera)
	CallbackPort       int    `yaml:"callbackPort,omitempty"`       // Local callback listener port (default: 9876)
	HTTPTimeoutSeconds int    `yaml:"httpTimeoutSeconds,omitempty"` // Timeout for token endpoint requests (default: 30)
}

// HTTPTimeout returns the token endpoint request timeout as a duration.
func (c OAuthConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// StorageConfig defines where registrations and tokens are persisted.
type StorageConfig struct {
	Dir string `yaml:"dir,omitempty"` // Credential directory (default: ~/.coursera)
}

// LoggingConfig controls CLI log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn or error (default: warn)
}
