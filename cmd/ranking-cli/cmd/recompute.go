package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"supplier-ranking/internal/ranking/recompute"
)

func newRecomputeCmd(c *cli) *cobra.Command {
	var opts recompute.Options

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Score suppliers and refresh rankings",
		Long: `Scores every active supplier over the evaluation window and re-ranks
the affected regions. A run within the guard window of the previous one is
skipped unless --force is given.

Examples:
  ranking-cli recompute
  ranking-cli recompute --region north --dry-run
  ranking-cli recompute --supplier farmer-42 --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := c.svc.Orchestrator.Run(cmd.Context(), opts)
			if report != nil {
				if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
					return perr
				}
			}
			if err != nil {
				return fmt.Errorf("recompute %s: %w", recompute.OutcomeOf(report, err), err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.RegionID, "region", "", "only suppliers of this region")
	cmd.Flags().StringVar(&opts.SupplierID, "supplier", "", "only this supplier")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "ignore the guard window")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compute without persisting")
	return cmd
}
