package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cashcount/internal/core"
)

func newCountsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counts",
		Short: "Review cash counts",
	}
	cmd.AddCommand(newCountsListCommand(opts))
	return cmd
}

func newCountsListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cash counts with their over/short",
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
			counts, err := client.ListCashCounts(cmd.Context(), creds)
			if err != nil {
				return apiError(err)
			}
			regs, err := client.ListRegistries(cmd.Context(), creds)
			if err != nil {
				return apiError(err)
			}
			names := make(map[int64]string, len(regs))
			for _, r := range regs {
				names[r.ID] = r.Name
			}

			if len(counts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cash counts found.")
				return nil
			}
			now := time.Now()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tREGISTRY\tDATE\tREPORTED\tACTUAL\tLEFTOVER\tOVER/SHORT\tNOTE")
			for _, cc := range counts {
				registry := names[cc.RegistryID]
				if registry == "" {
					registry = "#" + strconv.FormatInt(cc.RegistryID, 10)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s (%s)\t%s\t%s\t%s\t%s\t%s\n",
					cc.ID,
					registry,
					cc.DateCounted.Local().Format("2006-01-02 15:04"),
					humanize.RelTime(cc.DateCounted, now, "ago", "from now"),
					core.FormatAmount(cc.ReportedAmount),
					core.FormatAmount(cc.ActualTotal),
					core.FormatAmount(cc.LeftoverTotal),
					core.FormatSigned(cc.OverShort),
					cc.Note)
			}
			return tw.Flush()
		},
	}
}
