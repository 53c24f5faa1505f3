package store

import "testing"

func TestQueries(t *testing.T) {
	db := openTestStore(t)
	sourceID, channelID := seedChannel(t, db)

	fixtures := []struct {
		externalID string
		content    string
		createdAt  string
	}{
		{"m1", "standup at ten", "2026-01-01T09:00:00Z"},
		{"m2", "deploy went fine", "2026-01-02T09:00:00Z"},
		{"m3", "standup moved to eleven", "2026-01-03T09:00:00Z"},
	}
	for _, f := range fixtures {
		_, _, _, err := UpsertMessage(db, MessageUpsert{
			SourceID: sourceID, ChannelID: channelID, ExternalID: f.externalID,
			Content: strPtr(f.content), CreatedAt: strPtr(f.createdAt),
		})
		if err != nil {
			t.Fatalf("seed %s: %v", f.externalID, err)
		}
	}

	counts, err := ChannelCounts(db)
	if err != nil {
		t.Fatalf("channel counts: %v", err)
	}
	if len(counts) != 1 || counts[0].MessageCount != 3 {
		t.Fatalf("counts = %+v, want one channel with 3 messages", counts)
	}
	if counts[0].Source != "work" || counts[0].Channel != "general" {
		t.Fatalf("counts joined wrong names: %+v", counts[0])
	}

	recent, err := RecentMessages(db, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent returned %d rows, want 2", len(recent))
	}
	if recent[0].Content == nil || *recent[0].Content != "standup moved to eleven" {
		t.Fatalf("recent[0] = %+v, want newest first", recent[0])
	}

	found, err := SearchMessages(db, "standup", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("search returned %d rows, want 2", len(found))
	}
	if found[0].Content == nil || *found[0].Content != "standup moved to eleven" {
		t.Fatalf("search order wrong: %+v", found[0])
	}
}
