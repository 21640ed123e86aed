package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"cashcount/internal/core"
)

func newLoginCommand(opts *options) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify credentials with the API and save them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
				p, err := readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading password: %w", err)
				}
				password = p
			}
			return runLogin(cmd, opts, core.Credentials{Username: strings.TrimSpace(username), Password: password})
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "API username (required)")
	_ = cmd.MarkFlagRequired("username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "API password (read from stdin when omitted)")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *options, creds core.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	client, err := opts.client()
	if err != nil {
		return err
	}
	if err := client.Login(cmd.Context(), creds); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	store, err := opts.store()
	if err != nil {
		return err
	}
	if err := store.Save(creds); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", creds.Username)
	return nil
}

func newLogoutCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.store()
			if err != nil {
				return err
			}
			if err := store.Delete(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
