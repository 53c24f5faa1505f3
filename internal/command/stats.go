package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chroniclehq/chronicle/internal/config"
	"github.com/chroniclehq/chronicle/internal/store"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print per-channel message counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			counts, err := store.ChannelCounts(db)
			if err != nil {
				return err
			}
			if len(counts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "archive is empty")
				return nil
			}
			for _, c := range counts {
				fmt.Fprintf(cmd.OutOrStdout(), "%s/%s\t%d\n", c.Source, c.Channel, c.MessageCount)
			}
			return nil
		},
	}
}
