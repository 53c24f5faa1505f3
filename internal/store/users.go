package store

import (
	"database/sql"
	"fmt"
)

// UpsertUser inserts or updates a user keyed by (source_id, external_id).
// Fields are overwritten on conflict.
func UpsertUser(db *sql.DB, sourceID int64, externalID string, handle, displayName, metadata *string) (int64, error) {
	_, err := db.Exec(`
		INSERT INTO users (source_id, external_id, handle, display_name, metadata_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id, external_id) DO UPDATE SET
			handle = excluded.handle,
			display_name = excluded.display_name,
			metadata_json = excluded.metadata_json
	`, sourceID, externalID, handle, displayName, metadata)
	if err != nil {
		return 0, fmt.Errorf("upsert user %s: %w", externalID, wrapConstraint(err))
	}

	var id int64
	err = db.QueryRow(`SELECT id FROM users WHERE source_id = ? AND external_id = ?`, sourceID, externalID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup user %s: %w", externalID, err)
	}
	return id, nil
}
