package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/chroniclehq/chronicle/internal/types"
)

// MessageUpsert carries the fields of one observed message.
type MessageUpsert struct {
	SourceID             int64
	ChannelID            int64
	ExternalID           string
	AuthorID             *int64
	Content              *string
	ContentRaw           *string
	CreatedAt            *string
	EditedAt             *string
	ThreadRootExternalID *string
	ReplyToExternalID    *string
	Metadata             *string
}

// UpsertMessage inserts or updates a message keyed by (source_id, external_id).
//
// On first sight all fields are stored as given. On re-observation the stored
// content/content_raw are compared against the incoming values; if either
// differs, a pre-update snapshot is written to message_versions and edited is
// reported. Updates use fill-if-null semantics: a nil incoming field never
// erases a stored value, and created_at is never overwritten. The snapshot and
// the update commit together.
func UpsertMessage(db *sql.DB, msg MessageUpsert) (id int64, created, edited bool, err error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, false, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var existingID int64
	var curContent, curContentRaw, curMetadata sql.NullString
	err = tx.QueryRow(`
		SELECT id, content, content_raw, metadata_json
		FROM messages
		WHERE source_id = ? AND external_id = ?
	`, msg.SourceID, msg.ExternalID).Scan(&existingID, &curContent, &curContentRaw, &curMetadata)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		var res sql.Result
		res, err = tx.Exec(`
			INSERT INTO messages (
				source_id, channel_id, external_id, author_id,
				thread_root_external_id, reply_to_external_id,
				content, content_raw, created_at, edited_at, metadata_json
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, msg.SourceID, msg.ChannelID, msg.ExternalID, msg.AuthorID,
			msg.ThreadRootExternalID, msg.ReplyToExternalID,
			msg.Content, msg.ContentRaw, msg.CreatedAt, msg.EditedAt, msg.Metadata)
		if err != nil {
			err = fmt.Errorf("insert message %s: %w", msg.ExternalID, wrapConstraint(err))
			return 0, false, false, err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, false, false, err
		}
		if err = tx.Commit(); err != nil {
			return 0, false, false, err
		}
		return id, true, false, nil

	case err != nil:
		return 0, false, false, fmt.Errorf("lookup message %s: %w", msg.ExternalID, err)
	}

	if contentChanged(curContent, msg.Content) || contentChanged(curContentRaw, msg.ContentRaw) {
		_, err = tx.Exec(`
			INSERT INTO message_versions (message_id, captured_at, content, content_raw, metadata_json)
			VALUES (?, ?, ?, ?, ?)
		`, existingID, nowUTC(), nullToPtr(curContent), nullToPtr(curContentRaw), nullToPtr(curMetadata))
		if err != nil {
			err = fmt.Errorf("snapshot message %s: %w", msg.ExternalID, err)
			return 0, false, false, err
		}
		edited = true
	}

	// created_at is deliberately absent: it is set once on insert.
	_, err = tx.Exec(`
		UPDATE messages SET
			author_id = COALESCE(?, author_id),
			content = COALESCE(?, content),
			content_raw = COALESCE(?, content_raw),
			edited_at = COALESCE(?, edited_at),
			thread_root_external_id = COALESCE(?, thread_root_external_id),
			reply_to_external_id = COALESCE(?, reply_to_external_id),
			metadata_json = COALESCE(?, metadata_json)
		WHERE id = ?
	`, msg.AuthorID, msg.Content, msg.ContentRaw, msg.EditedAt,
		msg.ThreadRootExternalID, msg.ReplyToExternalID, msg.Metadata, existingID)
	if err != nil {
		err = fmt.Errorf("update message %s: %w", msg.ExternalID, wrapConstraint(err))
		return 0, false, false, err
	}

	if err = tx.Commit(); err != nil {
		return 0, false, false, err
	}
	return existingID, false, edited, nil
}

// GetMessageByExternalID returns a message or nil when absent.
func GetMessageByExternalID(db *sql.DB, sourceID int64, externalID string) (*types.Message, error) {
	var msg types.Message
	err := db.QueryRow(`
		SELECT id, source_id, channel_id, external_id, author_id,
		       thread_root_external_id, reply_to_external_id,
		       content, content_raw, created_at, edited_at, metadata_json
		FROM messages
		WHERE source_id = ? AND external_id = ?
	`, sourceID, externalID).Scan(
		&msg.ID, &msg.SourceID, &msg.ChannelID, &msg.ExternalID, &msg.AuthorID,
		&msg.ThreadRootExternalID, &msg.ReplyToExternalID,
		&msg.Content, &msg.ContentRaw, &msg.CreatedAt, &msg.EditedAt, &msg.Metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessageVersions returns all snapshots for a message, oldest first.
func GetMessageVersions(db *sql.DB, messageID int64) ([]types.MessageVersion, error) {
	rows, err := db.Query(`
		SELECT id, message_id, captured_at, content, content_raw, metadata_json
		FROM message_versions
		WHERE message_id = ?
		ORDER BY captured_at ASC, id ASC
	`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []types.MessageVersion
	for rows.Next() {
		var v types.MessageVersion
		if err := rows.Scan(&v.ID, &v.MessageID, &v.CapturedAt, &v.Content, &v.ContentRaw, &v.Metadata); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// contentChanged treats NULL and a present value as different, and two NULLs
// as equal, matching the dedup contract.
func contentChanged(stored sql.NullString, incoming *string) bool {
	if !stored.Valid && incoming == nil {
		return false
	}
	if stored.Valid != (incoming != nil) {
		return true
	}
	return stored.String != *incoming
}

func nullToPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
