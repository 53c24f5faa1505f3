// Package surface is the boundary to the automation helper that renders the
// live chat platforms. Chronicle never touches the DOM itself; it asks a
// Surface to position the view and hand back raw field tuples.
package surface

import "context"

// RawReaction is one reaction as extracted, totals included.
type RawReaction struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// RawMessage is one extracted message tuple. Every field may be missing;
// downstream parsing decides what is usable.
type RawMessage struct {
	ExternalID   *string       `json:"external_id,omitempty"`
	Author       *string       `json:"author,omitempty"`
	Content      *string       `json:"content,omitempty"`
	ContentRaw   *string       `json:"content_raw,omitempty"`
	RawTimestamp *string       `json:"raw_timestamp,omitempty"`
	Edited       bool          `json:"edited,omitempty"`
	ReplyContext *string       `json:"reply_context,omitempty"`
	Reactions    []RawReaction `json:"reactions,omitempty"`
}

// DiscoveredChannel is one channel found by walking the platform's UI.
type DiscoveredChannel struct {
	Name       string            `json:"name"`
	URL        string            `json:"url"`
	ExternalID string            `json:"external_id"`
	IsDM       bool              `json:"is_dm,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Surface drives one source's automation session.
//
// Implementations degrade rather than fail: an extraction that cannot
// complete returns an empty batch, and positioning calls tolerate a view
// that never reaches the ready state.
type Surface interface {
	// Alive reports whether the automation session still exists.
	Alive() bool
	// LoginRequired reports whether the platform is showing a login screen.
	LoginRequired() (bool, error)
	// WaitForLogin blocks until login completes. In unattended mode it gives
	// up after a deadline and returns ErrLoginTimeout; attended mode waits
	// until the context is cancelled.
	WaitForLogin(ctx context.Context) error
	// OpenChannel navigates the view to a channel.
	OpenChannel(url string) error
	// ScrollToBottom positions the view at the most recent activity.
	ScrollToBottom() error
	// ScrollUp scrolls the view backward through history by pixels.
	ScrollUp(pixels int) error
	// Extract returns the message tuples currently visible.
	Extract() ([]RawMessage, error)
	// DiscoverChannels enumerates channels visible from the base view.
	DiscoverChannels() ([]DiscoveredChannel, error)
}
