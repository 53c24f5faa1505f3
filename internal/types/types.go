package types

// SyncMode represents how a channel is being synced.
type SyncMode string

const (
	// SyncModeRecent reads only the most recently visible activity.
	SyncModeRecent SyncMode = "recent"
	// SyncModeBackfill walks backward through channel history.
	SyncModeBackfill SyncMode = "backfill"
)

// Source represents a chat platform being archived.
type Source struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	BaseURL *string `json:"base_url,omitempty"`
}

// Channel represents a single conversation surface within a source.
type Channel struct {
	ID         int64   `json:"id"`
	SourceID   int64   `json:"source_id"`
	Name       *string `json:"name,omitempty"`
	ExternalID *string `json:"external_id,omitempty"`
	URL        *string `json:"url,omitempty"`
	IsDM       bool    `json:"is_dm,omitempty"`
	Metadata   *string `json:"metadata,omitempty"`
}

// User represents a platform account observed as a message author.
type User struct {
	ID          int64   `json:"id"`
	SourceID    int64   `json:"source_id"`
	ExternalID  string  `json:"external_id"`
	Handle      *string `json:"handle,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	Metadata    *string `json:"metadata,omitempty"`
}

// Message represents the current state of an archived message.
// Timestamps are RFC 3339 strings in UTC; nil means never observed.
type Message struct {
	ID                   int64   `json:"id"`
	SourceID             int64   `json:"source_id"`
	ChannelID            int64   `json:"channel_id"`
	ExternalID           string  `json:"external_id"`
	AuthorID             *int64  `json:"author_id,omitempty"`
	ThreadRootExternalID *string `json:"thread_root_external_id,omitempty"`
	ReplyToExternalID    *string `json:"reply_to_external_id,omitempty"`
	Content              *string `json:"content,omitempty"`
	ContentRaw           *string `json:"content_raw,omitempty"`
	CreatedAt            *string `json:"created_at,omitempty"`
	EditedAt             *string `json:"edited_at,omitempty"`
	Metadata             *string `json:"metadata,omitempty"`
}

// MessageVersion is an immutable snapshot of a message's prior content,
// captured before an edit overwrote it.
type MessageVersion struct {
	ID         int64   `json:"id"`
	MessageID  int64   `json:"message_id"`
	CapturedAt string  `json:"captured_at"`
	Content    *string `json:"content,omitempty"`
	ContentRaw *string `json:"content_raw,omitempty"`
	Metadata   *string `json:"metadata,omitempty"`
}

// Reaction represents the last observed reaction state on a message.
type Reaction struct {
	ID        int64   `json:"id"`
	MessageID int64   `json:"message_id"`
	Emoji     string  `json:"emoji"`
	Count     int     `json:"count"`
	Metadata  *string `json:"metadata,omitempty"`
}

// Event is an append-only audit record tied to a source.
type Event struct {
	ID        int64   `json:"id"`
	SourceID  int64   `json:"source_id"`
	ChannelID *int64  `json:"channel_id,omitempty"`
	MessageID *int64  `json:"message_id,omitempty"`
	Type      string  `json:"type"`
	CreatedAt string  `json:"created_at"`
	Payload   *string `json:"payload,omitempty"`
}

// SyncState tracks per-channel sync progress.
type SyncState struct {
	SourceID     int64    `json:"source_id"`
	ChannelID    int64    `json:"channel_id"`
	Mode         SyncMode `json:"mode"`
	LastSeenAt   *string  `json:"last_seen_at,omitempty"`
	OldestSeenAt *string  `json:"oldest_seen_at,omitempty"`
	Cursor       *string  `json:"cursor,omitempty"`
	IdleCycles   int      `json:"idle_cycles"`
	UpdatedAt    string   `json:"updated_at"`
}

// ReactionData is a reaction observed during extraction.
type ReactionData struct {
	Emoji    string  `json:"emoji"`
	Count    int     `json:"count"`
	Metadata *string `json:"metadata,omitempty"`
}

// MessageData is one parsed message ready for ingestion.
type MessageData struct {
	ExternalID           string         `json:"external_id"`
	Author               *string        `json:"author,omitempty"`
	AuthorExternalID     *string        `json:"author_external_id,omitempty"`
	Content              *string        `json:"content,omitempty"`
	ContentRaw           *string        `json:"content_raw,omitempty"`
	CreatedAt            *string        `json:"created_at,omitempty"`
	EditedAt             *string        `json:"edited_at,omitempty"`
	ThreadRootExternalID *string        `json:"thread_root_external_id,omitempty"`
	ReplyToExternalID    *string        `json:"reply_to_external_id,omitempty"`
	Reactions            []ReactionData `json:"reactions,omitempty"`
	Metadata             *string        `json:"metadata,omitempty"`
}
