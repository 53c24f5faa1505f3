package store

import "testing"

func TestUpsertReactionReplacesCount(t *testing.T) {
	db := openTestStore(t)
	sourceID, channelID := seedChannel(t, db)

	msgID, _, _, err := UpsertMessage(db, MessageUpsert{
		SourceID: sourceID, ChannelID: channelID, ExternalID: "m1",
		Content: strPtr("hi"),
	})
	if err != nil {
		t.Fatalf("insert message: %v", err)
	}

	if err := UpsertReaction(db, msgID, "👍", 3, nil); err != nil {
		t.Fatalf("first reaction: %v", err)
	}
	if err := UpsertReaction(db, msgID, "👍", 5, nil); err != nil {
		t.Fatalf("second reaction: %v", err)
	}

	reactions, err := GetReactionsForMessage(db, msgID)
	if err != nil {
		t.Fatalf("get reactions: %v", err)
	}
	if len(reactions) != 1 {
		t.Fatalf("got %d reaction rows, want 1", len(reactions))
	}
	// Last-observed wins: 5, not 8.
	if reactions[0].Count != 5 {
		t.Fatalf("count = %d, want 5", reactions[0].Count)
	}
}

func TestUpsertReactionDistinctEmoji(t *testing.T) {
	db := openTestStore(t)
	sourceID, channelID := seedChannel(t, db)

	msgID, _, _, err := UpsertMessage(db, MessageUpsert{
		SourceID: sourceID, ChannelID: channelID, ExternalID: "m1",
		Content: strPtr("hi"),
	})
	if err != nil {
		t.Fatalf("insert message: %v", err)
	}

	if err := UpsertReaction(db, msgID, "👍", 1, nil); err != nil {
		t.Fatalf("thumbs: %v", err)
	}
	if err := UpsertReaction(db, msgID, "🎉", 2, nil); err != nil {
		t.Fatalf("party: %v", err)
	}

	reactions, err := GetReactionsForMessage(db, msgID)
	if err != nil {
		t.Fatalf("get reactions: %v", err)
	}
	if len(reactions) != 2 {
		t.Fatalf("got %d reaction rows, want 2", len(reactions))
	}
}
