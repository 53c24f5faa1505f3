package command

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/chroniclehq/chronicle/internal/agent"
	"github.com/chroniclehq/chronicle/internal/config"
	"github.com/chroniclehq/chronicle/internal/logging"
	"github.com/chroniclehq/chronicle/internal/store"
)

func newAgentCmd() *cobra.Command {
	var httpAddr string
	var serve bool
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Query the archive",
		Long: `Read-only access to the archive. Without flags this starts an
interactive prompt; --serve exposes the same queries over HTTP along
with Prometheus metrics on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(serve, httpAddr)
		},
	}
	cmd.Flags().BoolVar(&serve, "serve", false, "serve the HTTP query API instead of the prompt")
	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address (overrides http_addr in config)")
	return cmd
}

func runAgent(serve bool, httpAddr string) error {
	logger := logging.New()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if serve {
		addr := httpAddr
		if addr == "" {
			addr = cfg.HTTPAddr
		}
		if addr == "" {
			addr = ":8642"
		}
		logger.Info("query API listening", "addr", addr)
		return http.ListenAndServe(addr, agent.NewRouter(db, logger))
	}

	return agent.NewREPL(db, os.Stdin, os.Stdout).Run()
}
