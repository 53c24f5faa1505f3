package store

import (
	"database/sql"
	"fmt"

	"github.com/chroniclehq/chronicle/internal/types"
)

// RecordEvent appends an audit record. Events are never updated or deleted.
func RecordEvent(db *sql.DB, sourceID int64, channelID, messageID *int64, eventType string, payload *string) error {
	_, err := db.Exec(`
		INSERT INTO events (source_id, channel_id, message_id, type, created_at, payload_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sourceID, channelID, messageID, eventType, nowUTC(), payload)
	if err != nil {
		return fmt.Errorf("record event %s: %w", eventType, wrapConstraint(err))
	}
	return nil
}

// GetEventsForSource returns events for a source, newest first.
func GetEventsForSource(db *sql.DB, sourceID int64, limit int) ([]types.Event, error) {
	rows, err := db.Query(`
		SELECT id, source_id, channel_id, message_id, type, created_at, payload_json
		FROM events
		WHERE source_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, sourceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		var ev types.Event
		if err := rows.Scan(&ev.ID, &ev.SourceID, &ev.ChannelID, &ev.MessageID, &ev.Type, &ev.CreatedAt, &ev.Payload); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
