package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ratingsCmd = &cobra.Command{
	Use:   "ratings",
	Short: "Maintain salon rating rollups",
}

var ratingsRecalcCmd = &cobra.Command{
	Use:   "recalc [salon-id]",
	Short: "Recompute the rating of one salon, or of every active salon",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			summary, err := core.RatingService.RecalculateSalonRating(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %.1f from %d reviews\n", args[0], summary.Average, summary.Count)
			return nil
		}

		report, err := core.RatingService.RecalculateAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "recalculated %d of %d salons (%d failed)\n", report.Updated, report.Total, report.Failed)
		if report.Failed > 0 {
			return fmt.Errorf("%d salons could not be recalculated", report.Failed)
		}
		return nil
	},
}

func init() {
	ratingsCmd.AddCommand(ratingsRecalcCmd)
}
