package store

import (
	"database/sql"
	"fmt"

	"github.com/chroniclehq/chronicle/internal/types"
)

// UpsertReaction records the last observed state of a reaction keyed by
// (message_id, emoji). Count and metadata are replaced, not accumulated:
// the extraction surface reports totals, so last-observed wins.
func UpsertReaction(db *sql.DB, messageID int64, emoji string, count int, metadata *string) error {
	_, err := db.Exec(`
		INSERT INTO reactions (message_id, emoji, count, metadata_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(message_id, emoji) DO UPDATE SET
			count = excluded.count,
			metadata_json = excluded.metadata_json
	`, messageID, emoji, count, metadata)
	if err != nil {
		return fmt.Errorf("upsert reaction %s: %w", emoji, wrapConstraint(err))
	}
	return nil
}

// GetReactionsForMessage returns reactions on a message, emoji order.
func GetReactionsForMessage(db *sql.DB, messageID int64) ([]types.Reaction, error) {
	rows, err := db.Query(`
		SELECT id, message_id, emoji, count, metadata_json
		FROM reactions
		WHERE message_id = ?
		ORDER BY emoji ASC
	`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reactions []types.Reaction
	for rows.Next() {
		var r types.Reaction
		if err := rows.Scan(&r.ID, &r.MessageID, &r.Emoji, &r.Count, &r.Metadata); err != nil {
			return nil, err
		}
		reactions = append(reactions, r)
	}
	return reactions, rows.Err()
}
