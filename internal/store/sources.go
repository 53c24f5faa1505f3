package store

import (
	"database/sql"
	"fmt"
)

// UpsertSource inserts or updates a source keyed by (name, type) and returns
// its stable id. The base URL is refreshed on every call.
func UpsertSource(db *sql.DB, name, sourceType string, baseURL *string) (int64, error) {
	_, err := db.Exec(`
		INSERT INTO sources (name, type, base_url)
		VALUES (?, ?, ?)
		ON CONFLICT(name, type) DO UPDATE SET base_url = excluded.base_url
	`, name, sourceType, baseURL)
	if err != nil {
		return 0, fmt.Errorf("upsert source %s/%s: %w", name, sourceType, err)
	}

	var id int64
	err = db.QueryRow(`SELECT id FROM sources WHERE name = ? AND type = ?`, name, sourceType).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup source %s/%s: %w", name, sourceType, err)
	}
	return id, nil
}
