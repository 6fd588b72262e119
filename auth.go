package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Acquire a Graph bearer token",
		Long: `Acquire a bearer token for the Graph API the way every other command does.

With --caller-token the delegation mode decides: passthrough prints the caller
token unchanged, exchange trades it on behalf of its owner. Without one, an
application token is issued through client credentials.`,
		Args: cobra.NoArgs,
		RunE: runToken,
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <authorization-header>",
		Short: "Exchange a caller token and print its identity claims",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}
}

// tokenJSON is the JSON output schema for the token command.
type tokenJSON struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	HasIDToken  bool   `json:"has_id_token"`
}

func runToken(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	broker, err := newBroker(resolvedCfg, logger)
	if err != nil {
		return err
	}

	tok, err := broker.Acquire(cmd.Context(), flagCallerToken)
	if err != nil {
		return err
	}

	if flagJSON {
		out := tokenJSON{AccessToken: tok.AccessToken, HasIDToken: tok.IDToken != ""}
		if !tok.Expiry.IsZero() {
			out.ExpiresAt = tok.Expiry.UTC().Format(time.RFC3339)
		}

		return printJSON(os.Stdout, out)
	}

	fmt.Println(tok.AccessToken)

	if !tok.Expiry.IsZero() {
		statusf("Expires %s\n", tok.Expiry.Local().Format(time.RFC1123))
	}

	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	logger := buildLogger()

	broker, err := newBroker(resolvedCfg, logger)
	if err != nil {
		return err
	}

	claims, err := broker.Verify(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(os.Stdout, claims)
	}

	rows := [][]string{
		{"Name", claims.Name},
		{"UPN", claims.UPN},
		{"Email", claims.Email},
		{"Preferred username", claims.PreferredUsername},
		{"Object ID", claims.ObjectID},
		{"Subject", claims.Subject},
		{"App ID", claims.AppID},
		{"Issuer", claims.Issuer},
		{"Audience", claims.Audience},
		{"Scope", claims.Scope},
		{"IP address", claims.IPAddress},
	}

	printTable(os.Stdout, []string{"CLAIM", "VALUE"}, rows)

	return nil
}
