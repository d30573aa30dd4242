// Package cmd holds the ranking-cli commands.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"supplier-ranking/internal/app"
	"supplier-ranking/internal/common/config"
	"supplier-ranking/internal/common/logger"
	"supplier-ranking/internal/repository/memory"
)

// cli carries the state shared by every subcommand of one invocation.
type cli struct {
	cfgFile  string
	memory   bool
	fixtures string
	verbose  bool

	cfg *config.Config
	log logger.Logger
	svc *app.Services
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "ranking-cli",
		Short: "Supplier ranking operator tool",
		Long: `Supplier ranking operator tool.

Commands:
    recompute   score every active supplier and refresh regional rankings
    rankings    print the current rankings of a region
    trend       compare a supplier's current score with the trend window
    history     print a supplier's daily ranking history
    migrate     create the ranking tables
    registry    validate or list the activity registry
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.svc != nil {
				c.svc.Close()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default configs/config.yaml)")
	flags.BoolVar(&c.memory, "memory", false, "run against an in-process store instead of PostgreSQL")
	flags.StringVar(&c.fixtures, "fixtures", "", "JSON fixtures to seed the in-process store with")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newRecomputeCmd(c),
		newRankingsCmd(c),
		newTrendCmd(c),
		newHistoryCmd(c),
		newMigrateCmd(c),
		newRegistryCmd(),
	)
	return root
}

func (c *cli) init(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.fixtures != "" && !c.memory {
		return fmt.Errorf("--fixtures needs --memory")
	}

	var err error
	switch {
	case c.memory:
		c.cfg, err = config.Defaults()
	case c.cfgFile != "":
		c.cfg, err = config.LoadFromFile(c.cfgFile)
	default:
		c.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	level := "warn"
	if c.verbose {
		level = "debug"
	}
	c.log = logger.NewZapAdapter(logger.New(level, "console", "stderr"))

	if !c.memory {
		c.svc, err = app.Connect(ctx, c.cfg, c.log)
		return err
	}

	store := memory.New()
	if c.fixtures != "" {
		if err := store.LoadFile(c.fixtures); err != nil {
			return err
		}
	}
	c.svc, err = app.New(c.cfg, app.Backends{Store: store}, c.log)
	return err
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
