package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cashcount/internal/core"
)

func newReconcileCommand() *cobra.Command {
	var actual, leftover []string
	var reported string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compute totals and over/short offline",
		Long: "Compute drawer totals without contacting the API.\n\n" +
			"Quantities are given as DENOMINATION=COUNT, for example:\n" +
			"  cashctl reconcile --actual 100=2 --actual 0.25=4 --reported 200",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actualBreakdown, err := parseQuantities(actual)
			if err != nil {
				return fmt.Errorf("--actual: %w", err)
			}
			leftoverBreakdown, err := parseQuantities(leftover)
			if err != nil {
				return fmt.Errorf("--leftover: %w", err)
			}
			reportedAmount, err := core.ParseAmount(reported)
			if err != nil {
				return fmt.Errorf("--reported: %w", err)
			}

			rec, err := core.Reconcile(actualBreakdown, leftoverBreakdown, reportedAmount)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Reported:        %s\n", core.FormatAmount(rec.Reported))
			fmt.Fprintf(out, "Actual total:    %s\n", core.FormatAmount(rec.Actual.Total))
			fmt.Fprintf(out, "  Bills:         %s\n", core.FormatAmount(rec.Actual.Bills))
			fmt.Fprintf(out, "  Coins:         %s\n", core.FormatAmount(rec.Actual.Coins))
			fmt.Fprintf(out, "Leftover total:  %s\n", core.FormatAmount(rec.Leftover.Total))
			fmt.Fprintf(out, "  Bills:         %s\n", core.FormatAmount(rec.Leftover.Bills))
			fmt.Fprintf(out, "  Coins:         %s\n", core.FormatAmount(rec.Leftover.Coins))
			fmt.Fprintf(out, "Over/short:      %s (%s)\n", core.FormatSigned(rec.OverShort), rec.Status())
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&actual, "actual", nil, "actual DENOMINATION=COUNT, repeatable")
	cmd.Flags().StringArrayVar(&leftover, "leftover", nil, "leftover DENOMINATION=COUNT, repeatable")
	cmd.Flags().StringVar(&reported, "reported", "0", "reported amount")

	return cmd
}

// parseQuantities reads DENOMINATION=COUNT pairs. A repeated denomination
// keeps the last count.
func parseQuantities(pairs []string) (core.Breakdown, error) {
	b := core.Breakdown{}
	for _, pair := range pairs {
		key, qty, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%q: expected DENOMINATION=COUNT", pair)
		}
		value, err := core.ParseDenomination(strings.TrimSpace(key))
		if err != nil {
			return nil, err
		}
		n, err := core.ParseQuantity(qty)
		if err != nil {
			return nil, err
		}
		b, err = core.SetDenominationQuantity(b, value, n)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}
