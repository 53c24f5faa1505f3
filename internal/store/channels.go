package store

import (
	"database/sql"
	"fmt"

	"github.com/chroniclehq/chronicle/internal/types"
)

// UpsertChannel inserts or updates a channel keyed by (source_id, external_id).
// Discovery output is authoritative: name, url, and metadata are overwritten
// on conflict rather than merged.
func UpsertChannel(db *sql.DB, sourceID int64, name string, externalID, url *string, isDM bool, metadata *string) (int64, error) {
	_, err := db.Exec(`
		INSERT INTO channels (source_id, name, external_id, url, is_dm, metadata_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, external_id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			is_dm = excluded.is_dm,
			metadata_json = excluded.metadata_json
	`, sourceID, name, externalID, url, boolToInt(isDM), metadata)
	if err != nil {
		return 0, fmt.Errorf("upsert channel %s: %w", name, wrapConstraint(err))
	}

	// IS matches NULL external ids the way the unique index treats them.
	var id int64
	err = db.QueryRow(`SELECT id FROM channels WHERE source_id = ? AND external_id IS ?`, sourceID, externalID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup channel %s: %w", name, err)
	}
	return id, nil
}

// GetChannelsForSource returns all stored channels for a source.
func GetChannelsForSource(db *sql.DB, sourceID int64) ([]types.Channel, error) {
	rows, err := db.Query(`
		SELECT id, source_id, name, external_id, url, is_dm, metadata_json
		FROM channels
		WHERE source_id = ?
		ORDER BY id ASC
	`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []types.Channel
	for rows.Next() {
		var ch types.Channel
		var isDM int
		if err := rows.Scan(&ch.ID, &ch.SourceID, &ch.Name, &ch.ExternalID, &ch.URL, &isDM, &ch.Metadata); err != nil {
			return nil, err
		}
		ch.IsDM = isDM != 0
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
