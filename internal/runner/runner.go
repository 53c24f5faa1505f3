// Package runner plans and executes sync cycles across all enabled sources.
package runner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chroniclehq/chronicle/internal/config"
	"github.com/chroniclehq/chronicle/internal/metrics"
	"github.com/chroniclehq/chronicle/internal/store"
	"github.com/chroniclehq/chronicle/internal/surface"
	"github.com/chroniclehq/chronicle/internal/syncer"
	"github.com/chroniclehq/chronicle/internal/tasks"
)

// Fatal conditions the daemon cannot recover from. The command layer maps
// each to a distinct exit code so supervisors can tell them apart.
var (
	// ErrMissingDependency means a source's automation surface could not be
	// reached at startup.
	ErrMissingDependency = errors.New("automation surface unavailable")
	// ErrSessionClosed means a previously live automation session is gone.
	ErrSessionClosed = errors.New("automation session closed")
	// ErrParentGone means the supervising parent process exited.
	ErrParentGone = errors.New("parent process gone")
)

// Orchestrator owns the per-cycle planning loop: for each enabled source it
// inspects session and login state, then enqueues channel sync work into a
// task queue that drains within the cycle.
type Orchestrator struct {
	db       *sql.DB
	cfg      *config.Config
	surfaces map[string]surface.Surface
	logger   *slog.Logger
	audit    *slog.Logger

	// parentGone is swapped in tests. Defaults to detecting reparenting
	// to init, which on Linux means the original parent died.
	parentGone func() bool
}

// New builds an orchestrator over pre-constructed surfaces, one per enabled
// source name.
func New(db *sql.DB, cfg *config.Config, surfaces map[string]surface.Surface, logger, audit *slog.Logger) *Orchestrator {
	return &Orchestrator{
		db:         db,
		cfg:        cfg,
		surfaces:   surfaces,
		logger:     logger,
		audit:      audit,
		parentGone: func() bool { return os.Getppid() == 1 },
	}
}

// RunOnce executes a single sync cycle.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	return o.runCycle(ctx)
}

// RunForever executes sync cycles until the context is cancelled or a fatal
// condition surfaces. Cancellation between cycles is graceful; the current
// cycle always finishes.
func (o *Orchestrator) RunForever(ctx context.Context) error {
	delay := time.Duration(o.cfg.LoopDelaySeconds) * time.Second
	for {
		if err := o.runCycle(ctx); err != nil {
			if isFatal(err) {
				return err
			}
			// Anything else is a bad cycle, not a dead daemon.
			o.logger.Error("cycle failed", "error", err)
		}
		select {
		case <-ctx.Done():
			o.logger.Info("shutdown requested; stopping after completed cycle")
			return nil
		case <-time.After(delay):
		}
	}
}

func (o *Orchestrator) runCycle(ctx context.Context) error {
	if o.parentGone() {
		return ErrParentGone
	}

	queue := tasks.NewQueue(o.audit)
	var fatal error
	for _, src := range o.cfg.EnabledSources() {
		err := o.planSource(ctx, queue, src)
		if err == nil {
			continue
		}
		if isFatal(err) {
			// Finish the work already planned before reporting; the
			// process exits after this cycle either way.
			fatal = err
			break
		}
		o.logger.Error("source planning failed", "source", src.Name, "error", err)
	}

	ran, failed := queue.Run()
	metrics.Cycles.Inc()
	// A cycle with nothing to do is a valid cycle.
	o.logger.Info("cycle complete", "tasks", ran, "failed", failed)
	return fatal
}

func isFatal(err error) bool {
	return errors.Is(err, ErrSessionClosed) || errors.Is(err, ErrParentGone) || errors.Is(err, ErrMissingDependency)
}

// planSource enqueues one source's work for this cycle. A login screen
// short-circuits planning: the only task for that source is waiting for
// login, and channel syncs resume next cycle.
func (o *Orchestrator) planSource(ctx context.Context, queue *tasks.Queue, src config.SourceConfig) error {
	surf, ok := o.surfaces[src.Name]
	if !ok {
		return fmt.Errorf("%w: no surface for source %s", ErrMissingDependency, src.Name)
	}
	if !surf.Alive() {
		return fmt.Errorf("%w: source %s", ErrSessionClosed, src.Name)
	}

	var baseURL *string
	if src.BaseURL != "" {
		baseURL = &src.BaseURL
	}
	sourceID, err := store.UpsertSource(o.db, src.Name, src.Type, baseURL)
	if err != nil {
		return fmt.Errorf("upsert source %s: %w", src.Name, err)
	}

	loginRequired, err := surf.LoginRequired()
	if err != nil {
		o.logger.Warn("login check failed; skipping source this cycle", "source", src.Name, "error", err)
		return nil
	}
	if loginRequired {
		queue.Add(tasks.Task{
			Name:   "login_pending",
			Source: src.Name,
			Reason: "platform is showing a login screen",
			Action: func() (tasks.Result, error) {
				err := surf.WaitForLogin(ctx)
				// A blocked login is a status, not a failure: sync for the
				// source is deferred to the next cycle, nothing is broken.
				if errors.Is(err, surface.ErrLoginTimeout) {
					return tasks.Result{Status: "login_pending", Details: "login not completed before deadline"}, nil
				}
				if err != nil {
					return tasks.Result{}, err
				}
				return tasks.Result{Status: "ok", Details: "login completed"}, nil
			},
		})
		return nil
	}

	o.addHealthTasks(queue, surf, src.Name)

	planned := 0
	for _, chCfg := range src.EnabledChannels() {
		// The URL is the platform id for configured channels, keeping the
		// (source, external id) identity stable across cycles.
		ch, err := o.registerChannel(sourceID, src.Name, chCfg.Name, chCfg.URL, chCfg.URL, false, nil)
		if err != nil {
			return err
		}
		o.addSyncTask(queue, surf, ch, "configured channel")
		planned++
	}

	// Discovery only covers sources with no explicit channel list; configured
	// channels are an exact statement of what to archive.
	if src.Discover && planned == 0 {
		stored, err := o.storedDiscoverableChannels(sourceID, src.Name)
		if err != nil {
			return err
		}
		if len(stored) > 0 {
			for _, ch := range stored {
				o.addSyncTask(queue, surf, ch, "previously discovered channel")
				planned++
			}
		} else {
			o.addDiscoveryTask(queue, surf, sourceID, src.Name)
			planned++
		}
	}

	if planned == 0 {
		o.logger.Info("no channels to sync for source", "source", src.Name)
	}
	return nil
}

// addHealthTasks enqueues the per-cycle health probes. Both re-detect login
// in case the platform logged the session out mid-cycle; channel syncs later
// in the queue then fail individually instead of silently archiving nothing.
func (o *Orchestrator) addHealthTasks(queue *tasks.Queue, surf surface.Surface, sourceName string) {
	queue.Add(tasks.Task{
		Name:   "check_notifications",
		Source: sourceName,
		Reason: "cycle-start login and notification probe",
		Action: func() (tasks.Result, error) {
			required, err := surf.LoginRequired()
			if err != nil {
				return tasks.Result{}, err
			}
			if required {
				return tasks.Result{Status: "login_pending", Details: "login screen appeared mid-cycle"}, nil
			}
			return tasks.Result{Status: "ok"}, nil
		},
	})
	queue.Add(tasks.Task{
		Name:   "check_servers",
		Source: sourceName,
		Reason: "cycle-start session liveness probe",
		Action: func() (tasks.Result, error) {
			if !surf.Alive() {
				return tasks.Result{}, fmt.Errorf("%w: source %s", ErrSessionClosed, sourceName)
			}
			return tasks.Result{Status: "ok"}, nil
		},
	})
}

// addSyncTask enqueues one channel sync. Parameters are captured eagerly so
// the task is independent of loop variables and later planning.
func (o *Orchestrator) addSyncTask(queue *tasks.Queue, surf surface.Surface, ch syncer.Channel, reason string) {
	opts := o.syncOptions()
	queue.Add(tasks.Task{
		Name:    "sync_channel",
		Source:  ch.SourceName,
		Channel: ch.Name,
		Reason:  reason,
		Action: func() (tasks.Result, error) {
			result, err := syncer.SyncChannel(o.db, surf, ch, opts, o.logger)
			if err != nil {
				return tasks.Result{}, err
			}
			return tasks.Result{Status: result.Status, Details: result.Details}, nil
		},
	})
}

// addDiscoveryTask enqueues a channel walk. Channels found are persisted and
// their sync tasks added to the running queue, so they sync this same cycle.
func (o *Orchestrator) addDiscoveryTask(queue *tasks.Queue, surf surface.Surface, sourceID int64, sourceName string) {
	queue.Add(tasks.Task{
		Name:   "discover_channels",
		Source: sourceName,
		Reason: "discovery enabled and no channels stored yet",
		Action: func() (tasks.Result, error) {
			discovered, err := surf.DiscoverChannels()
			if err != nil {
				return tasks.Result{}, err
			}
			added := 0
			for _, d := range discovered {
				if d.IsDM {
					continue
				}
				var meta *string
				if len(d.Metadata) > 0 {
					meta = encodeMetadata(d.Metadata)
				}
				ch, err := o.registerChannel(sourceID, sourceName, d.Name, d.URL, d.ExternalID, d.IsDM, meta)
				if err != nil {
					return tasks.Result{}, err
				}
				o.addSyncTask(queue, surf, ch, "channel discovered this cycle")
				added++
			}
			return tasks.Result{Status: "ok", Details: fmt.Sprintf("discovered=%d queued=%d", len(discovered), added)}, nil
		},
	})
}

func (o *Orchestrator) registerChannel(sourceID int64, sourceName, name, url, externalID string, isDM bool, metadata *string) (syncer.Channel, error) {
	// A NULL external_id would defeat the UNIQUE(source_id, external_id)
	// key (SQLite treats NULLs as distinct), so fall back to the URL.
	if externalID == "" {
		externalID = url
	}
	var extPtr, urlPtr *string
	if externalID != "" {
		extPtr = &externalID
	}
	if url != "" {
		urlPtr = &url
	}
	channelID, err := store.UpsertChannel(o.db, sourceID, name, extPtr, urlPtr, isDM, metadata)
	if err != nil {
		return syncer.Channel{}, fmt.Errorf("upsert channel %s:%s: %w", sourceName, name, err)
	}
	return syncer.Channel{
		SourceID:   sourceID,
		SourceName: sourceName,
		ChannelID:  channelID,
		Name:       name,
		URL:        url,
	}, nil
}

// storedDiscoverableChannels returns previously discovered non-DM channels
// with a usable URL, ready to sync without another discovery walk.
func (o *Orchestrator) storedDiscoverableChannels(sourceID int64, sourceName string) ([]syncer.Channel, error) {
	stored, err := store.GetChannelsForSource(o.db, sourceID)
	if err != nil {
		return nil, fmt.Errorf("load channels for %s: %w", sourceName, err)
	}
	var usable []syncer.Channel
	for _, ch := range stored {
		if ch.IsDM || ch.URL == nil || *ch.URL == "" {
			continue
		}
		name := ""
		if ch.Name != nil {
			name = *ch.Name
		}
		usable = append(usable, syncer.Channel{
			SourceID:   sourceID,
			SourceName: sourceName,
			ChannelID:  ch.ID,
			Name:       name,
			URL:        *ch.URL,
		})
	}
	return usable, nil
}

func encodeMetadata(meta map[string]string) *string {
	data, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

func (o *Orchestrator) syncOptions() syncer.Options {
	return syncer.Options{
		ScrollDelay:   o.cfg.Scrape.ScrollDelay(),
		RecentLimit:   o.cfg.Scrape.RecentMessageLimit,
		IdleThreshold: o.cfg.Scrape.IdleCyclesBeforeBackfill,
		BackfillSteps: o.cfg.Scrape.BackfillScrollSteps,
		ScrollPixels:  o.cfg.Scrape.ScrollPixels,
	}
}
