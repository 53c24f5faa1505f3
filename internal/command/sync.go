package command

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chroniclehq/chronicle/internal/config"
	"github.com/chroniclehq/chronicle/internal/logging"
	"github.com/chroniclehq/chronicle/internal/runner"
	"github.com/chroniclehq/chronicle/internal/store"
	"github.com/chroniclehq/chronicle/internal/surface"
)

func newSyncCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the archiver daemon",
		Long: `Runs sync cycles over all enabled sources. By default the daemon loops
until interrupted; SIGINT finishes the current cycle before exiting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(once)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single sync cycle and exit")
	return cmd
}

func runSync(once bool) error {
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

	audit, auditClose, err := logging.NewAudit(cfg.LogsDir, logger)
	if err != nil {
		logger.Warn("audit log unavailable; using main logger", "error", err)
	}
	defer auditClose.Close()

	surfaces := make(map[string]surface.Surface)
	for _, src := range cfg.EnabledSources() {
		bridge, err := surface.NewBridge(src.BridgeDir, src.Selectors, cfg.Attended, logger)
		if err != nil {
			return fmt.Errorf("%w: %v", runner.ErrMissingDependency, err)
		}
		surfaces[src.Name] = bridge
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch := runner.New(db, cfg, surfaces, logger, audit)
	if once {
		return orch.RunOnce(ctx)
	}
	return orch.RunForever(ctx)
}
