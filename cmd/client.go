package cmd

import (
	"fmt"

	"coaclient/internal/credstore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var clientScopes []string

// newClientCmd creates the client command group for managing registrations.
func newClientCmd() *cobra.Command {
	clientCmd := &cobra.Command{
		Use:   "client",
		Short: "Manage OAuth2 client registrations",
		Long: `Manage locally stored OAuth2 client registrations.

Registrations are kept in the credential directory (default ~/.coursera)
alongside the token sets obtained for them.

Examples:
  coaclient client add my-app <client-id> <client-secret>
  coaclient client add my-app <client-id> <client-secret> --scope access_business_api
  coaclient client list
  coaclient client remove my-app`,
	}

	addCmd := &cobra.Command{
		Use:   "add <name> <client-id> <client-secret>",
		Short: "Register an OAuth2 client",
		Long: `Register an OAuth2 client under a local name.

The scope defaults to view_profile. Requesting access_business_api
automatically includes view_profile as well.`,
		Args: cobra.ExactArgs(3),
		RunE: runClientAdd,
	}
	addCmd.Flags().StringSliceVar(&clientScopes, "scope", nil, "requested scope (view_profile, access_business_api); repeatable")

	removeCmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a client registration and its tokens",
		Args:  cobra.ExactArgs(1),
		RunE:  runClientRemove,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered clients and their authorization state",
		Args:  cobra.NoArgs,
		RunE:  runClientList,
	}

	clientCmd.AddCommand(addCmd, removeCmd, listCmd)
	return clientCmd
}

func runClientAdd(cmd *cobra.Command, args []string) error {
	manager, err := newManager(cmd)
	if err != nil {
		return err
	}

	var scopes credstore.Scopes
	for _, s := range clientScopes {
		scopes = append(scopes, credstore.Scope(s))
	}

	if err := manager.Register(args[0], args[1], args[2], scopes); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Client %s registered. Run 'coaclient auth login %s' to authorize it.\n", args[0], args[0])
	return nil
}

func runClientRemove(cmd *cobra.Command, args []string) error {
	manager, err := newManager(cmd)
	if err != nil {
		return err
	}

	if err := manager.Deregister(args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Client %s removed.\n", args[0])
	return nil
}

func runClientList(cmd *cobra.Command, args []string) error {
	manager, err := newManager(cmd)
	if err != nil {
		return err
	}

	clients, err := manager.ListClients()
	if err != nil {
		return err
	}
	if len(clients) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No clients registered.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("NAME"),
		text.FgHiCyan.Sprint("CLIENT ID"),
		text.FgHiCyan.Sprint("SCOPE"),
		text.FgHiCyan.Sprint("STATUS"),
	})
	for _, client := range clients {
		t.AppendRow(table.Row{
			client.Name,
			client.ClientID,
			client.Scopes.String(),
			manager.Status(client.Name).String(),
		})
	}
	t.Render()
	return nil
}
