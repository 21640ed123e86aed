package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"cashcount/internal/core"
)

func newRegistriesCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registries",
		Short: "List and create registries",
	}
	cmd.AddCommand(newRegistriesListCommand(opts), newRegistriesCreateCommand(opts))
	return cmd
}

func newRegistriesListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := opts.credentials()
			if err != nil {
				return err
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			regs, err := client.ListRegistries(cmd.Context(), creds)
			if err != nil {
				return apiError(err)
			}

			if len(regs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No registries found.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, r := range regs {
				fmt.Fprintf(tw, "%d\t%s\n", r.ID, r.Name)
			}
			return tw.Flush()
		},
	}
}

func newRegistriesCreateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a registry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(strings.Join(args, " "))
			if err := core.ValidateRegistryName(name); err != nil {
				return err
			}
			creds, err := opts.credentials()
			if err != nil {
				return err
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			reg, err := client.CreateRegistry(cmd.Context(), creds, name)
			if err != nil {
				return apiError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created registry %d: %s\n", reg.ID, reg.Name)
			return nil
		},
	}
}
