package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/chroniclehq/chronicle/internal/command"
	"github.com/chroniclehq/chronicle/internal/config"
	"github.com/chroniclehq/chronicle/internal/runner"
)

func main() {
	if err := command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chronicle:", err)
		os.Exit(exitCode(err))
	}
}

// Distinct exit codes let a supervisor decide whether to restart, reinstall
// the automation helper, or page a human for login.
func exitCode(err error) int {
	switch {
	case errors.Is(err, runner.ErrMissingDependency), errors.Is(err, config.ErrNotFound):
		return 3
	case errors.Is(err, runner.ErrSessionClosed):
		return 4
	case errors.Is(err, runner.ErrParentGone):
		return 5
	default:
		return 1
	}
}
