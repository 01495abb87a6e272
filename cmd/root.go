package cmd

import (
	"errors"
	"os"

	"coaclient/internal/credstore"
	"coaclient/internal/oauth"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates no usable token is available for the client.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the OAuth flow failed.
	ExitCodeAuthFailed = 3
)

var (
	configDir string
	logLevel  string
)

// rootCmd represents the base command for the coaclient application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "coaclient",
	Short: "Manage OAuth2 credentials for the Coursera API",
	Long: `coaclient registers OAuth2 client credentials, runs the
authorization-code flow against the Coursera accounts service with a local
callback listener, and serves access tokens from local storage, refreshing
them transparently when they expire.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from the main
// package to inject the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "coaclient version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps error types to semantic exit codes for scripting.
func getExitCode(err error) int {
	if errors.Is(err, oauth.ErrRegistrationNotFound) {
		return ExitCodeAuthRequired
	}
	var authRequired *authRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}
	var invalid *credstore.InvalidRegistrationError
	if errors.As(err, &invalid) {
		return ExitCodeError
	}
	var exchange *oauth.TokenExchangeError
	if errors.As(err, &exchange) {
		return ExitCodeAuthFailed
	}
	var listener *oauth.ListenerStartError
	if errors.As(err, &listener) {
		return ExitCodeAuthFailed
	}
	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default is $HOME/.config/coaclient)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newClientCmd())
	rootCmd.AddCommand(newAuthCmd())
}
