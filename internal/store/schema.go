package store

import (
	"database/sql"
	"fmt"
)

// InitSchema creates all tables and indexes if they do not exist.
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

const schemaSQL = `
-- Archived chat platforms
CREATE TABLE IF NOT EXISTS sources (
  id INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  type TEXT NOT NULL,                  -- "discord", "slack", ...
  base_url TEXT,
  metadata_json TEXT,
  UNIQUE(name, type)
);

-- Conversation surfaces within a source
CREATE TABLE IF NOT EXISTS channels (
  id INTEGER PRIMARY KEY,
  source_id INTEGER NOT NULL,
  name TEXT,
  external_id TEXT,                    -- stable platform id, often the URL
  url TEXT,
  is_dm INTEGER NOT NULL DEFAULT 0,
  metadata_json TEXT,
  UNIQUE(source_id, external_id),
  FOREIGN KEY (source_id) REFERENCES sources(id)
);

-- Message authors
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY,
  source_id INTEGER NOT NULL,
  external_id TEXT NOT NULL,
  handle TEXT,
  display_name TEXT,
  metadata_json TEXT,
  UNIQUE(source_id, external_id),
  FOREIGN KEY (source_id) REFERENCES sources(id)
);

-- Current message state; prior content lives in message_versions
CREATE TABLE IF NOT EXISTS messages (
  id INTEGER PRIMARY KEY,
  source_id INTEGER NOT NULL,
  channel_id INTEGER NOT NULL,
  external_id TEXT NOT NULL,
  author_id INTEGER,
  thread_root_external_id TEXT,
  reply_to_external_id TEXT,
  content TEXT,
  content_raw TEXT,
  created_at TEXT,                     -- RFC 3339 UTC, set once
  edited_at TEXT,
  deleted_at TEXT,                     -- reserved: no delete flow yet
  is_deleted INTEGER NOT NULL DEFAULT 0,
  metadata_json TEXT,
  UNIQUE(source_id, external_id),
  FOREIGN KEY (source_id) REFERENCES sources(id),
  FOREIGN KEY (channel_id) REFERENCES channels(id),
  FOREIGN KEY (author_id) REFERENCES users(id)
);

-- Immutable pre-edit snapshots, ordered by captured_at, never deleted
CREATE TABLE IF NOT EXISTS message_versions (
  id INTEGER PRIMARY KEY,
  message_id INTEGER NOT NULL,
  captured_at TEXT NOT NULL,
  content TEXT,
  content_raw TEXT,
  metadata_json TEXT,
  FOREIGN KEY (message_id) REFERENCES messages(id)
);

-- Last observed reaction state; count is replaced on re-observation
CREATE TABLE IF NOT EXISTS reactions (
  id INTEGER PRIMARY KEY,
  message_id INTEGER NOT NULL,
  emoji TEXT NOT NULL,
  count INTEGER NOT NULL DEFAULT 1,
  metadata_json TEXT,
  UNIQUE(message_id, emoji),
  FOREIGN KEY (message_id) REFERENCES messages(id)
);

-- Append-only audit records
CREATE TABLE IF NOT EXISTS events (
  id INTEGER PRIMARY KEY,
  source_id INTEGER NOT NULL,
  channel_id INTEGER,
  message_id INTEGER,
  type TEXT NOT NULL,
  created_at TEXT NOT NULL,
  payload_json TEXT,
  FOREIGN KEY (source_id) REFERENCES sources(id),
  FOREIGN KEY (channel_id) REFERENCES channels(id),
  FOREIGN KEY (message_id) REFERENCES messages(id)
);

-- Per-channel sync progress
CREATE TABLE IF NOT EXISTS sync_state (
  id INTEGER PRIMARY KEY,
  source_id INTEGER NOT NULL,
  channel_id INTEGER NOT NULL,
  mode TEXT NOT NULL,                  -- "recent" or "backfill"
  last_seen_at TEXT,
  oldest_seen_at TEXT,
  cursor_json TEXT,
  idle_cycles INTEGER NOT NULL DEFAULT 0,
  updated_at TEXT NOT NULL,
  UNIQUE(source_id, channel_id),
  FOREIGN KEY (source_id) REFERENCES sources(id),
  FOREIGN KEY (channel_id) REFERENCES channels(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_channel_created
  ON messages(channel_id, created_at);
CREATE INDEX IF NOT EXISTS idx_events_source_created
  ON events(source_id, created_at);
`
