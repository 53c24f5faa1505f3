package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/chroniclehq/chronicle/internal/config"
	"github.com/chroniclehq/chronicle/internal/runner"
)

func TestExitCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"missing dependency", fmt.Errorf("startup: %w", runner.ErrMissingDependency), 3},
		{"missing config", fmt.Errorf("%w: config/chronicle.yaml", config.ErrNotFound), 3},
		{"session closed", fmt.Errorf("cycle: %w", runner.ErrSessionClosed), 4},
		{"parent gone", runner.ErrParentGone, 5},
		{"generic", errors.New("boom"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
