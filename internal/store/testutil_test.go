package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestStore(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// seedChannel creates a source and channel to hang messages off.
func seedChannel(t *testing.T, db *sql.DB) (sourceID, channelID int64) {
	t.Helper()
	sourceID, err := UpsertSource(db, "work", "slack", strPtr("https://example.slack.com"))
	if err != nil {
		t.Fatalf("upsert source: %v", err)
	}
	channelID, err = UpsertChannel(db, sourceID, "general", strPtr("C123"), strPtr("https://example.slack.com/archives/C123"), false, nil)
	if err != nil {
		t.Fatalf("upsert channel: %v", err)
	}
	return sourceID, channelID
}

func strPtr(value string) *string {
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}
