package syncer

import (
	"database/sql"
	"encoding/json"

	"github.com/chroniclehq/chronicle/internal/store"
	"github.com/chroniclehq/chronicle/internal/types"
)

// IngestResult summarizes one batch of message ingestion.
type IngestResult struct {
	Inserted int
	Edited   int
}

// IngestBatch feeds parsed messages into the store. Per message: upsert the
// author when known, upsert the message, replace its reactions, and record an
// audit event when an edit was detected. Each store call commits on its own;
// a pass interrupted partway is healed by the next pass re-upserting.
func IngestBatch(db *sql.DB, sourceID, channelID int64, messages []types.MessageData) (IngestResult, error) {
	var result IngestResult
	for _, msg := range messages {
		var authorID *int64
		if msg.AuthorExternalID != nil && *msg.AuthorExternalID != "" {
			id, err := store.UpsertUser(db, sourceID, *msg.AuthorExternalID, nil, msg.Author, nil)
			if err != nil {
				return result, err
			}
			authorID = &id
		}

		messageID, created, edited, err := store.UpsertMessage(db, store.MessageUpsert{
			SourceID:             sourceID,
			ChannelID:            channelID,
			ExternalID:           msg.ExternalID,
			AuthorID:             authorID,
			Content:              msg.Content,
			ContentRaw:           msg.ContentRaw,
			CreatedAt:            msg.CreatedAt,
			EditedAt:             msg.EditedAt,
			ThreadRootExternalID: msg.ThreadRootExternalID,
			ReplyToExternalID:    msg.ReplyToExternalID,
			Metadata:             msg.Metadata,
		})
		if err != nil {
			return result, err
		}
		if created {
			result.Inserted++
		}
		if edited {
			result.Edited++
			payload, _ := json.Marshal(map[string]string{"external_id": msg.ExternalID})
			payloadStr := string(payload)
			if err := store.RecordEvent(db, sourceID, &channelID, &messageID, "message.edited", &payloadStr); err != nil {
				return result, err
			}
		}

		for _, reaction := range msg.Reactions {
			if err := store.UpsertReaction(db, messageID, reaction.Emoji, reaction.Count, reaction.Metadata); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}
