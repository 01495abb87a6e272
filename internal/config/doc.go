// Package config loads the coaclient configuration file.
//
// Configuration lives at ~/.config/coaclient/config.yaml and is entirely
// optional: a missing file yields the built-in defaults, which point at the
// Coursera OAuth2 endpoints and the ~/.coursera credential directory. Every
// field can be overridden individually; unset fields fall back to their
// defaults after loading.
package config
