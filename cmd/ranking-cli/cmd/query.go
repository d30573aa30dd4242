package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"supplier-ranking/internal/ranking/query"
)

const dateLayout = "2006-01-02"

func newRankingsCmd(c *cli) *cobra.Command {
	var (
		region string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "rankings",
		Short: "Print current rankings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rankings, err := c.svc.Query.GetCurrentRankings(cmd.Context(), region, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rankings)
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "region to list; empty lists every region")
	cmd.Flags().IntVar(&limit, "limit", query.DefaultLimit, fmt.Sprintf("maximum entries (1-%d)", query.MaxLimit))
	return cmd
}

func newTrendCmd(c *cli) *cobra.Command {
	var (
		supplier string
		days     int
	)
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Classify a supplier's score trend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.svc.Query.GetTrend(cmd.Context(), supplier, days)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&supplier, "supplier", "", "supplier id")
	cmd.Flags().IntVar(&days, "days", 0, "trend window in days (default from config)")
	_ = cmd.MarkFlagRequired("supplier")
	return cmd
}

func newHistoryCmd(c *cli) *cobra.Command {
	var supplier, from, to string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print a supplier's ranking history",
		Long: `Prints daily history entries, newest first.

Examples:
  ranking-cli history --supplier farmer-42
  ranking-cli history --supplier farmer-42 --from 2024-03-01 --to 2024-03-31`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := parseDate(from, c.svc.Location)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			toDate, err := parseDate(to, c.svc.Location)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			entries, err := c.svc.Query.GetHistory(cmd.Context(), supplier, fromDate, toDate)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVar(&supplier, "supplier", "", "supplier id")
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("supplier")
	return cmd
}

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ranking tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.svc.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

// parseDate reads an optional calendar date in loc.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, s, loc)
}
