package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var (
	loginTimeout time.Duration
	loginNoWait  bool
	loginQuiet   bool
)

// authRequiredError marks a missing token so Execute can exit with the
// dedicated code.
type authRequiredError struct {
	name string
}

func (e *authRequiredError) Error() string {
	return fmt.Sprintf("no valid access token for client '%s'; run 'coaclient auth login %s'", e.name, e.name)
}

// newAuthCmd creates the auth command group.
func newAuthCmd() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize clients and inspect their tokens",
		Long: `Run the OAuth2 authorization-code flow and work with stored tokens.

Examples:
  coaclient auth login my-app            # Authorize via browser, wait for the callback
  coaclient auth login my-app --no-wait  # Print the URL and return immediately
  coaclient auth token my-app            # Print a usable access token
  coaclient auth status my-app           # Show the authorization state
  coaclient auth logout my-app           # Clear stored tokens, keep the registration`,
	}

	loginCmd := &cobra.Command{
		Use:   "login <name>",
		Short: "Authorize a client via the browser",
		Long: `Start the authorization-code flow for the named client.

A local callback listener is started, the provider's consent page is opened
in the default browser, and the command waits until the provider redirects
back with an authorization code and the code has been exchanged for tokens.`,
		Args: cobra.ExactArgs(1),
		RunE: runAuthLogin,
	}
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 5*time.Minute, "how long to wait for the provider callback")
	loginCmd.Flags().BoolVar(&loginNoWait, "no-wait", false, "start the flow and return without waiting for the callback")
	loginCmd.Flags().BoolVar(&loginQuiet, "quiet", false, "suppress progress output")

	tokenCmd := &cobra.Command{
		Use:   "token <name>",
		Short: "Print a valid access token for a client",
		Long: `Print an access token for the named client to stdout.

An expired stored token is refreshed transparently. If no token can be
produced the command fails with exit code 2.`,
		Args: cobra.ExactArgs(1),
		RunE: runAuthToken,
	}

	statusCmd := &cobra.Command{
		Use:   "status <name>",
		Short: "Show the authorization state of a client",
		Args:  cobra.ExactArgs(1),
		RunE:  runAuthStatus,
	}

	logoutCmd := &cobra.Command{
		Use:   "logout <name>",
		Short: "Clear stored tokens for a client",
		Args:  cobra.ExactArgs(1),
		RunE:  runAuthLogout,
	}

	authCmd.AddCommand(loginCmd, tokenCmd, statusCmd, logoutCmd)
	return authCmd
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	manager, err := newManager(cmd)
	if err != nil {
		return err
	}
	defer manager.StopCallback()

	name := args[0]
	authURL, err := manager.BeginAuthorization(name)
	if err != nil {
		return err
	}

	if !loginQuiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Opening browser for authorization. If it does not open, visit:\n\n  %s\n\n", authURL)
	}
	if loginNoWait {
		return nil
	}

	var s *spinner.Spinner
	if !loginQuiet {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Waiting for authorization callback..."
		s.Start()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
	defer cancel()
	outcome, err := manager.WaitForAuthorization(ctx)
	if s != nil {
		s.Stop()
	}
	if err != nil {
		return fmt.Errorf("authorization did not complete: %w", err)
	}
	if outcome.Err != nil {
		return fmt.Errorf("authorization failed: %w", outcome.Err)
	}

	if !loginQuiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Client %s authorized.\n", outcome.ClientName)
	}
	return nil
}

func runAuthToken(cmd *cobra.Command, args []string) error {
	manager, err := newManager(cmd)
	if err != nil {
		return err
	}

	name := args[0]
	token, ok := manager.GetAccessToken(cmd.Context(), name)
	if !ok {
		return &authRequiredError{name: name}
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	manager, err := newManager(cmd)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), manager.Status(args[0]).String())
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	manager, err := newManager(cmd)
	if err != nil {
		return err
	}

	if err := manager.Logout(args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Tokens for %s cleared.\n", args[0])
	return nil
}
