package syncer

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/chroniclehq/chronicle/internal/metrics"
	"github.com/chroniclehq/chronicle/internal/store"
	"github.com/chroniclehq/chronicle/internal/surface"
	"github.com/chroniclehq/chronicle/internal/types"
)

// Options are the sync state machine knobs. Zero values mean defaults.
type Options struct {
	ScrollDelay   time.Duration
	RecentLimit   int
	IdleThreshold int
	BackfillSteps int
	ScrollPixels  int
}

// DefaultOptions returns the stock knob values.
func DefaultOptions() Options {
	return Options{
		ScrollDelay:   time.Second,
		RecentLimit:   200,
		IdleThreshold: 6,
		BackfillSteps: 4,
		ScrollPixels:  1200,
	}
}

func (o Options) withDefaults() Options {
	defaults := DefaultOptions()
	if o.ScrollDelay == 0 {
		o.ScrollDelay = defaults.ScrollDelay
	}
	if o.RecentLimit == 0 {
		o.RecentLimit = defaults.RecentLimit
	}
	if o.IdleThreshold == 0 {
		o.IdleThreshold = defaults.IdleThreshold
	}
	if o.BackfillSteps == 0 {
		o.BackfillSteps = defaults.BackfillSteps
	}
	if o.ScrollPixels == 0 {
		o.ScrollPixels = defaults.ScrollPixels
	}
	return o
}

// Result summarizes one channel sync pass for observability.
type Result struct {
	Status           string
	Details          string
	Mode             types.SyncMode
	Inserted         int
	Edited           int
	BackfillInserted int
	BackfillEdited   int
}

// Channel identifies the channel a pass operates on.
type Channel struct {
	SourceID   int64
	SourceName string
	ChannelID  int64
	Name       string
	URL        string
}

// SyncChannel runs one sync pass over a channel.
//
// The pass reads the persisted sync state, extracts the most recent activity,
// ingests it, and advances the recent/backfill state machine: enough
// consecutive zero-insert recent passes flip the channel into backfill mode,
// which additionally walks backward through history in scroll-and-extract
// rounds. Backfill is terminal; the machine never returns to recent mode.
// An empty extraction is a valid zero-insert pass, not an error.
func SyncChannel(db *sql.DB, surf surface.Surface, ch Channel, opts Options, logger *slog.Logger) (Result, error) {
	opts = opts.withDefaults()
	label := ch.SourceName + ":" + ch.Name

	state, err := store.GetSyncState(db, ch.SourceID, ch.ChannelID)
	if err != nil {
		return Result{}, fmt.Errorf("sync state for %s: %w", label, err)
	}
	mode := state.Mode
	if mode == "" {
		mode = types.SyncModeRecent
	}
	idleCycles := state.IdleCycles
	lastSeenAt := state.LastSeenAt
	oldestSeenAt := state.OldestSeenAt

	if err := surf.OpenChannel(ch.URL); err != nil {
		return Result{}, fmt.Errorf("open channel %s: %w", label, err)
	}
	if err := surf.ScrollToBottom(); err != nil {
		logger.Warn("scroll to bottom failed; extracting in place", "channel", label, "error", err)
	}
	time.Sleep(opts.ScrollDelay)

	raw, err := surf.Extract()
	if err != nil {
		return Result{}, fmt.Errorf("extract %s: %w", label, err)
	}
	recent := ParseBatch(raw)
	// Extraction is forward-chronological; keep the newest tail.
	if len(recent) > opts.RecentLimit {
		recent = recent[len(recent)-opts.RecentLimit:]
	}
	if len(recent) == 0 {
		logger.Warn("no messages extracted; check login status and selectors", "channel", label)
	}

	recentResult, err := IngestBatch(db, ch.SourceID, ch.ChannelID, recent)
	if err != nil {
		return Result{}, fmt.Errorf("ingest %s: %w", label, err)
	}
	if recentResult.Inserted == 0 {
		idleCycles++
	} else {
		idleCycles = 0
	}

	for _, msg := range recent {
		if msg.CreatedAt != nil {
			lastSeenAt = maxTimestamp(lastSeenAt, *msg.CreatedAt)
		}
	}

	if mode == types.SyncModeRecent && idleCycles >= opts.IdleThreshold {
		mode = types.SyncModeBackfill
		idleCycles = 0
		logger.Info("channel entering backfill", "channel", label, "idle_threshold", opts.IdleThreshold)
	}

	var backfill IngestResult
	if mode == types.SyncModeBackfill {
		for step := 0; step < opts.BackfillSteps; step++ {
			if err := surf.ScrollUp(opts.ScrollPixels); err != nil {
				logger.Warn("scroll up failed; stopping backfill round", "channel", label, "error", err)
				break
			}
			time.Sleep(opts.ScrollDelay)
			raw, err := surf.Extract()
			if err != nil {
				return Result{}, fmt.Errorf("backfill extract %s: %w", label, err)
			}
			batch := ParseBatch(raw)
			stepResult, err := IngestBatch(db, ch.SourceID, ch.ChannelID, batch)
			if err != nil {
				return Result{}, fmt.Errorf("backfill ingest %s: %w", label, err)
			}
			backfill.Inserted += stepResult.Inserted
			backfill.Edited += stepResult.Edited
			for _, msg := range batch {
				if msg.CreatedAt != nil {
					oldestSeenAt = minTimestamp(oldestSeenAt, *msg.CreatedAt)
				}
			}
		}
	}

	cursor := encodeCursor(mode, idleCycles)
	err = store.UpdateSyncState(db, ch.SourceID, ch.ChannelID, mode, lastSeenAt, oldestSeenAt, &cursor, idleCycles)
	if err != nil {
		return Result{}, fmt.Errorf("persist sync state %s: %w", label, err)
	}

	metrics.MessagesInserted.WithLabelValues(ch.SourceName).Add(float64(recentResult.Inserted + backfill.Inserted))
	metrics.MessagesEdited.WithLabelValues(ch.SourceName).Add(float64(recentResult.Edited + backfill.Edited))
	metrics.SyncPasses.WithLabelValues(ch.SourceName, string(mode)).Inc()

	result := Result{
		Status:           "ok",
		Mode:             mode,
		Inserted:         recentResult.Inserted,
		Edited:           recentResult.Edited,
		BackfillInserted: backfill.Inserted,
		BackfillEdited:   backfill.Edited,
	}
	result.Details = fmt.Sprintf(
		"mode=%s recent_inserted=%d recent_edited=%d backfill_inserted=%d backfill_edited=%d",
		mode, result.Inserted, result.Edited, result.BackfillInserted, result.BackfillEdited)

	logger.Info("sync pass complete", "channel", label, "mode", mode,
		"inserted", result.Inserted, "edited", result.Edited,
		"backfill_inserted", result.BackfillInserted, "backfill_edited", result.BackfillEdited)
	return result, nil
}

func encodeCursor(mode types.SyncMode, idleCycles int) string {
	data, _ := json.Marshal(map[string]any{"mode": mode, "idle_cycles": idleCycles})
	return string(data)
}
