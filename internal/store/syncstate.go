package store

import (
	"database/sql"
	"fmt"

	"github.com/chroniclehq/chronicle/internal/types"
)

// GetSyncState returns the sync state for a channel, creating a default row
// (mode=recent, no cursors, zero idle cycles) on first access.
func GetSyncState(db *sql.DB, sourceID, channelID int64) (types.SyncState, error) {
	state, found, err := readSyncState(db, sourceID, channelID)
	if err != nil {
		return types.SyncState{}, err
	}
	if found {
		return state, nil
	}

	_, err = db.Exec(`
		INSERT INTO sync_state (source_id, channel_id, mode, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_id, channel_id) DO NOTHING
	`, sourceID, channelID, types.SyncModeRecent, nowUTC())
	if err != nil {
		return types.SyncState{}, fmt.Errorf("provision sync state: %w", wrapConstraint(err))
	}

	state, found, err = readSyncState(db, sourceID, channelID)
	if err != nil {
		return types.SyncState{}, err
	}
	if !found {
		return types.SyncState{}, fmt.Errorf("sync state missing after provision for channel %d", channelID)
	}
	return state, nil
}

// UpdateSyncState overwrites all mutable fields of a channel's sync state.
func UpdateSyncState(db *sql.DB, sourceID, channelID int64, mode types.SyncMode, lastSeenAt, oldestSeenAt, cursor *string, idleCycles int) error {
	_, err := db.Exec(`
		UPDATE sync_state SET
			mode = ?,
			last_seen_at = ?,
			oldest_seen_at = ?,
			cursor_json = ?,
			idle_cycles = ?,
			updated_at = ?
		WHERE source_id = ? AND channel_id = ?
	`, mode, lastSeenAt, oldestSeenAt, cursor, idleCycles, nowUTC(), sourceID, channelID)
	if err != nil {
		return fmt.Errorf("update sync state: %w", err)
	}
	return nil
}

func readSyncState(db *sql.DB, sourceID, channelID int64) (types.SyncState, bool, error) {
	var state types.SyncState
	err := db.QueryRow(`
		SELECT source_id, channel_id, mode, last_seen_at, oldest_seen_at, cursor_json, idle_cycles, updated_at
		FROM sync_state
		WHERE source_id = ? AND channel_id = ?
	`, sourceID, channelID).Scan(
		&state.SourceID, &state.ChannelID, &state.Mode,
		&state.LastSeenAt, &state.OldestSeenAt, &state.Cursor,
		&state.IdleCycles, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		return types.SyncState{}, false, nil
	}
	if err != nil {
		return types.SyncState{}, false, err
	}
	return state, true, nil
}
