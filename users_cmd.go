package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/msservices/internal/users"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Look up directory users",
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List every user in the organisation, or those matching --filter",
		Args:  cobra.NoArgs,
		RunE:  runUsersLs,
	}
	ls.Flags().String("filter", "", "OData filter, e.g. \"startswith(displayName,'A')\"")

	get := &cobra.Command{
		Use:   "get <user-principal-name>",
		Short: "Show one user by principal name or email",
		Args:  cobra.ExactArgs(1),
		RunE:  runUsersGet,
	}

	cmd.AddCommand(ls, get)

	return cmd
}

func runUsersLs(cmd *cobra.Command, _ []string) error {
	filter, err := cmd.Flags().GetString("filter")
	if err != nil {
		return err
	}

	svc, err := newUsersService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	var list []users.User
	if filter != "" {
		list, err = svc.ByFilter(cmd.Context(), filter)
	} else {
		list, err = svc.AllInOrganization(cmd.Context())
	}

	if err != nil {
		return err
	}

	return printUsers(list)
}

func runUsersGet(cmd *cobra.Command, args []string) error {
	svc, err := newUsersService(resolvedCfg, buildLogger())
	if err != nil {
		return err
	}

	u, err := svc.ByUserPrincipalName(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(os.Stdout, u)
	}

	return printUsers([]users.User{*u})
}

func printUsers(list []users.User) error {
	if flagJSON {
		return printJSON(os.Stdout, list)
	}

	rows := make([][]string, 0, len(list))
	for i := range list {
		rows = append(rows, []string{list[i].DisplayName, list[i].UserPrincipalName, list[i].JobTitle, list[i].ID})
	}

	printTable(os.Stdout, []string{"NAME", "UPN", "TITLE", "ID"}, rows)

	return nil
}
