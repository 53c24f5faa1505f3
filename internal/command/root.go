// Package command wires the CLI entry points.
package command

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chronicle",
		Short: "Archive chat platform history into a local SQLite database",
		Long: `chronicle drives a browser automation helper to continuously archive
chat platform messages, edits, and reactions into SQLite, and answers
read-only queries over the archive.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default config/chronicle.yaml)")
	root.AddCommand(newSyncCmd())
	root.AddCommand(newAgentCmd())
	root.AddCommand(newStatsCmd())
	return root
}

// Execute runs the CLI and returns the error for exit code mapping.
func Execute() error {
	// A .env alongside the binary may carry CHRONICLE_* settings.
	_ = godotenv.Load()
	return newRootCmd().Execute()
}
