package syncer

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/chroniclehq/chronicle/internal/store"
	"github.com/chroniclehq/chronicle/internal/surface"
	"github.com/chroniclehq/chronicle/internal/types"
)

// fakeSurface serves a fixed view and records positioning calls. Extract
// always returns the current view; tests mutate view between passes.
type fakeSurface struct {
	view       []surface.RawMessage
	opened     []string
	scrollUps  int
	extractErr error
}

func (f *fakeSurface) Alive() bool                          { return true }
func (f *fakeSurface) LoginRequired() (bool, error)         { return false, nil }
func (f *fakeSurface) WaitForLogin(context.Context) error   { return nil }
func (f *fakeSurface) OpenChannel(url string) error         { f.opened = append(f.opened, url); return nil }
func (f *fakeSurface) ScrollToBottom() error                { return nil }
func (f *fakeSurface) ScrollUp(pixels int) error            { f.scrollUps++; return nil }
func (f *fakeSurface) Extract() ([]surface.RawMessage, error) {
	return f.view, f.extractErr
}
func (f *fakeSurface) DiscoverChannels() ([]surface.DiscoveredChannel, error) { return nil, nil }

func newPassFixture(t *testing.T) (*sql.DB, Channel) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sourceID, err := store.UpsertSource(db, "work", "slack", nil)
	if err != nil {
		t.Fatalf("upsert source: %v", err)
	}
	channelID, err := store.UpsertChannel(db, sourceID, "general", strPtr("C123"), strPtr("https://example.test/c/general"), false, nil)
	if err != nil {
		t.Fatalf("upsert channel: %v", err)
	}
	return db, Channel{
		SourceID:   sourceID,
		SourceName: "work",
		ChannelID:  channelID,
		Name:       "general",
		URL:        "https://example.test/c/general",
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastOptions() Options {
	return Options{
		ScrollDelay:   time.Millisecond,
		RecentLimit:   200,
		IdleThreshold: 2,
		BackfillSteps: 1,
		ScrollPixels:  1200,
	}
}

func rawMsg(id, content, ts string) surface.RawMessage {
	return surface.RawMessage{
		ExternalID:   strPtr(id),
		Author:       strPtr("ada"),
		Content:      strPtr(content),
		RawTimestamp: strPtr(ts),
	}
}

func TestSyncChannelFirstPassInserts(t *testing.T) {
	db, ch := newPassFixture(t)
	surf := &fakeSurface{view: []surface.RawMessage{
		rawMsg("m1", "older", "2024-03-01T10:00:00Z"),
		rawMsg("m2", "newer", "2024-03-01T11:00:00Z"),
	}}

	result, err := SyncChannel(db, surf, ch, fastOptions(), testLogger())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.Inserted != 2 || result.Mode != types.SyncModeRecent {
		t.Fatalf("result = %+v", result)
	}
	if len(surf.opened) != 1 || surf.opened[0] != ch.URL {
		t.Fatalf("opened = %v", surf.opened)
	}

	state, err := store.GetSyncState(db, ch.SourceID, ch.ChannelID)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.IdleCycles != 0 {
		t.Fatalf("idle cycles = %d after an inserting pass", state.IdleCycles)
	}
	if state.LastSeenAt == nil || *state.LastSeenAt != "2024-03-01T11:00:00.000000000Z" {
		t.Fatalf("last_seen_at = %v", state.LastSeenAt)
	}
}

func TestSyncChannelIdleThresholdFlipsToBackfill(t *testing.T) {
	db, ch := newPassFixture(t)
	opts := fastOptions() // threshold 2
	surf := &fakeSurface{view: []surface.RawMessage{
		rawMsg("m1", "hello", "2024-03-01T10:00:00Z"),
	}}

	// Pass 1 inserts; passes 2 and 3 see the same view and insert nothing.
	for pass := 1; pass <= 3; pass++ {
		if _, err := SyncChannel(db, surf, ch, opts, testLogger()); err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
	}

	state, err := store.GetSyncState(db, ch.SourceID, ch.ChannelID)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Mode != types.SyncModeBackfill {
		t.Fatalf("mode = %q after %d idle passes, want backfill", state.Mode, 2)
	}
	if state.IdleCycles != 0 {
		t.Fatalf("idle cycles should reset on the flip, got %d", state.IdleCycles)
	}
	if surf.scrollUps == 0 {
		t.Fatal("flip pass should run backfill scrolling")
	}
}

func TestSyncChannelBackfillIsTerminal(t *testing.T) {
	db, ch := newPassFixture(t)
	opts := fastOptions()
	surf := &fakeSurface{view: []surface.RawMessage{
		rawMsg("m1", "hello", "2024-03-01T10:00:00Z"),
	}}

	for pass := 1; pass <= 3; pass++ {
		if _, err := SyncChannel(db, surf, ch, opts, testLogger()); err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
	}

	// Fresh activity after the flip must not revert the mode.
	surf.view = append(surf.view, rawMsg("m2", "brand new", "2024-03-02T09:00:00Z"))
	result, err := SyncChannel(db, surf, ch, opts, testLogger())
	if err != nil {
		t.Fatalf("post-flip pass: %v", err)
	}
	if result.Mode != types.SyncModeBackfill {
		t.Fatalf("mode = %q, backfill must be terminal", result.Mode)
	}
	if result.Inserted == 0 {
		t.Fatal("new message should still be ingested in backfill mode")
	}

	state, err := store.GetSyncState(db, ch.SourceID, ch.ChannelID)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Mode != types.SyncModeBackfill {
		t.Fatalf("persisted mode = %q, want backfill", state.Mode)
	}
	if state.LastSeenAt == nil || *state.LastSeenAt != "2024-03-02T09:00:00.000000000Z" {
		t.Fatalf("last_seen_at = %v", state.LastSeenAt)
	}
}

func TestSyncChannelBackfillTracksOldest(t *testing.T) {
	db, ch := newPassFixture(t)
	opts := fastOptions()
	surf := &fakeSurface{view: []surface.RawMessage{
		rawMsg("m1", "hello", "2024-03-01T10:00:00Z"),
	}}

	for pass := 1; pass <= 3; pass++ {
		if _, err := SyncChannel(db, surf, ch, opts, testLogger()); err != nil {
			t.Fatalf("pass %d: %v", pass, err)
		}
	}

	// Backfill scroll reveals older history.
	surf.view = []surface.RawMessage{
		rawMsg("m0", "ancient", "2024-02-01T08:00:00Z"),
		rawMsg("m1", "hello", "2024-03-01T10:00:00Z"),
	}
	result, err := SyncChannel(db, surf, ch, opts, testLogger())
	if err != nil {
		t.Fatalf("backfill pass: %v", err)
	}
	if result.Inserted+result.BackfillInserted == 0 {
		t.Fatal("older message should be ingested")
	}

	state, err := store.GetSyncState(db, ch.SourceID, ch.ChannelID)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.OldestSeenAt == nil || *state.OldestSeenAt != "2024-02-01T08:00:00.000000000Z" {
		t.Fatalf("oldest_seen_at = %v", state.OldestSeenAt)
	}
	// The newest bound never regresses while walking backward.
	if state.LastSeenAt == nil || *state.LastSeenAt != "2024-03-01T10:00:00.000000000Z" {
		t.Fatalf("last_seen_at = %v", state.LastSeenAt)
	}
}

func TestSyncChannelEmptyExtractionIsValid(t *testing.T) {
	db, ch := newPassFixture(t)
	surf := &fakeSurface{}

	result, err := SyncChannel(db, surf, ch, fastOptions(), testLogger())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.Status != "ok" || result.Inserted != 0 {
		t.Fatalf("result = %+v", result)
	}

	state, err := store.GetSyncState(db, ch.SourceID, ch.ChannelID)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.IdleCycles != 1 {
		t.Fatalf("idle cycles = %d, want 1", state.IdleCycles)
	}
}

func TestSyncChannelTrimsToRecentLimit(t *testing.T) {
	db, ch := newPassFixture(t)
	opts := fastOptions()
	opts.RecentLimit = 2
	surf := &fakeSurface{view: []surface.RawMessage{
		rawMsg("m1", "one", "2024-03-01T10:00:00Z"),
		rawMsg("m2", "two", "2024-03-01T10:01:00Z"),
		rawMsg("m3", "three", "2024-03-01T10:02:00Z"),
	}}

	result, err := SyncChannel(db, surf, ch, opts, testLogger())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if result.Inserted != 2 {
		t.Fatalf("inserted = %d, want the newest 2", result.Inserted)
	}
	if msg, err := store.GetMessageByExternalID(db, ch.SourceID, "m1"); err != nil || msg != nil {
		t.Fatalf("oldest tuple should be trimmed, got %v err %v", msg, err)
	}
	if msg, err := store.GetMessageByExternalID(db, ch.SourceID, "m3"); err != nil || msg == nil {
		t.Fatalf("newest tuple should be kept, err %v", err)
	}
}

func TestSyncChannelEditRecordsEvent(t *testing.T) {
	db, ch := newPassFixture(t)
	opts := fastOptions()
	surf := &fakeSurface{view: []surface.RawMessage{
		rawMsg("m1", "first draft", "2024-03-01T10:00:00Z"),
	}}

	if _, err := SyncChannel(db, surf, ch, opts, testLogger()); err != nil {
		t.Fatalf("initial pass: %v", err)
	}

	edited := rawMsg("m1", "final draft", "2024-03-01T10:00:00Z")
	edited.Edited = true
	surf.view = []surface.RawMessage{edited}
	result, err := SyncChannel(db, surf, ch, opts, testLogger())
	if err != nil {
		t.Fatalf("edit pass: %v", err)
	}
	if result.Edited == 0 {
		t.Fatal("edit should be detected")
	}

	events, err := store.GetEventsForSource(db, ch.SourceID, 10)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	if len(events) != 1 || events[0].Type != "message.edited" {
		t.Fatalf("events = %+v", events)
	}
}
