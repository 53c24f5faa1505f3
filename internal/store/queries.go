package store

import (
	"database/sql"
)

// ChannelCount is a per-channel message tally for the query surface.
type ChannelCount struct {
	Source       string `json:"source"`
	Channel      string `json:"channel"`
	MessageCount int    `json:"message_count"`
}

// MessageSummary is one message row joined with its source and channel names.
type MessageSummary struct {
	Source    string  `json:"source"`
	Channel   string  `json:"channel"`
	Content   *string `json:"content,omitempty"`
	CreatedAt *string `json:"created_at,omitempty"`
}

// ChannelCounts returns message counts per channel, busiest first.
func ChannelCounts(db *sql.DB) ([]ChannelCount, error) {
	rows, err := db.Query(`
		SELECT sources.name, channels.name, COUNT(messages.id)
		FROM messages
		JOIN channels ON channels.id = messages.channel_id
		JOIN sources ON sources.id = messages.source_id
		GROUP BY sources.name, channels.name
		ORDER BY COUNT(messages.id) DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChannelCounts(rows)
}

// RecentMessages returns the newest messages across all channels.
func RecentMessages(db *sql.DB, limit int) ([]MessageSummary, error) {
	rows, err := db.Query(`
		SELECT sources.name, channels.name, messages.content, messages.created_at
		FROM messages
		JOIN channels ON channels.id = messages.channel_id
		JOIN sources ON sources.id = messages.source_id
		ORDER BY messages.created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessageSummaries(rows)
}

// SearchMessages returns messages whose content contains term, newest first.
// Plain substring match; relevance ranking is out of scope.
func SearchMessages(db *sql.DB, term string, limit int) ([]MessageSummary, error) {
	rows, err := db.Query(`
		SELECT sources.name, channels.name, messages.content, messages.created_at
		FROM messages
		JOIN channels ON channels.id = messages.channel_id
		JOIN sources ON sources.id = messages.source_id
		WHERE messages.content LIKE ?
		ORDER BY messages.created_at DESC
		LIMIT ?
	`, "%"+term+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessageSummaries(rows)
}

func scanChannelCounts(rows *sql.Rows) ([]ChannelCount, error) {
	var counts []ChannelCount
	for rows.Next() {
		var c ChannelCount
		var source, channel sql.NullString
		if err := rows.Scan(&source, &channel, &c.MessageCount); err != nil {
			return nil, err
		}
		c.Source = source.String
		c.Channel = channel.String
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func scanMessageSummaries(rows *sql.Rows) ([]MessageSummary, error) {
	var summaries []MessageSummary
	for rows.Next() {
		var m MessageSummary
		var source, channel sql.NullString
		if err := rows.Scan(&source, &channel, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Source = source.String
		m.Channel = channel.String
		summaries = append(summaries, m)
	}
	return summaries, rows.Err()
}
