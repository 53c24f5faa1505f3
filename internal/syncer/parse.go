package syncer

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"

	"github.com/chroniclehq/chronicle/internal/surface"
	"github.com/chroniclehq/chronicle/internal/types"
)

// fallbackPrefix marks synthetic external ids derived from content hashes.
const fallbackPrefix = "fallback:"

// FallbackExternalID derives a deterministic id for a message the platform
// gave no stable identifier. Re-ingesting the same observed content maps to
// the same id; the tradeoff is that an edit to such a message looks like a
// brand-new message.
func FallbackExternalID(rawTimestamp, author, content *string) string {
	h := sha1.New()
	h.Write([]byte(deref(rawTimestamp)))
	h.Write([]byte{'|'})
	h.Write([]byte(deref(author)))
	h.Write([]byte{'|'})
	h.Write([]byte(deref(content)))
	return fallbackPrefix + hex.EncodeToString(h.Sum(nil))
}

// ParseBatch converts raw extraction tuples into ingestable messages.
// Tuples with neither an id nor content are dropped; everything else gets an
// external id, a normalized timestamp, and its reactions carried over.
func ParseBatch(raw []surface.RawMessage) []types.MessageData {
	var parsed []types.MessageData
	for _, r := range raw {
		if r.ExternalID == nil && r.Content == nil {
			continue
		}

		externalID := deref(r.ExternalID)
		if externalID == "" {
			externalID = FallbackExternalID(r.RawTimestamp, r.Author, r.Content)
		}

		timestamp := ParseTimestamp(r.RawTimestamp)
		var editedAt *string
		if r.Edited {
			editedAt = timestamp
		}

		msg := types.MessageData{
			ExternalID:       externalID,
			Author:           r.Author,
			AuthorExternalID: r.Author,
			Content:          r.Content,
			ContentRaw:       r.ContentRaw,
			CreatedAt:        timestamp,
			EditedAt:         editedAt,
			Metadata:         rawMetadata(r),
		}
		for _, reaction := range r.Reactions {
			emoji := reaction.Emoji
			if emoji == "" {
				continue
			}
			count := reaction.Count
			if count < 1 {
				count = 1
			}
			msg.Reactions = append(msg.Reactions, types.ReactionData{Emoji: emoji, Count: count})
		}
		parsed = append(parsed, msg)
	}
	return parsed
}

// rawMetadata preserves extraction context that has no dedicated column.
func rawMetadata(r surface.RawMessage) *string {
	meta := map[string]any{}
	if r.ReplyContext != nil {
		meta["reply_context"] = *r.ReplyContext
	}
	if r.RawTimestamp != nil {
		meta["raw_timestamp"] = *r.RawTimestamp
	}
	if len(meta) == 0 {
		return nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
