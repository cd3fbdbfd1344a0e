package chat

import (
	"testing"
	"time"
)

func TestClockTime(t *testing.T) {
	got := ClockTime(time.Date(2025, 6, 1, 9, 5, 42, 0, time.UTC))
	if got != "09:05" {
		t.Errorf("ClockTime() = %q, want %q", got, "09:05")
	}
}

func TestNormalize(t *testing.T) {
	doc := &Document{
		Workspaces: []*Workspace{
			{
				Name: "legacy",
				Channels: []*Channel{
					{
						Name: "general",
						Messages: []*Message{
							{
								Text: "no id, nil slices",
								Replies: []*Message{
									{Text: "nested, also bare"},
								},
							},
						},
					},
				},
			},
		},
	}

	doc.Normalize()

	ws := doc.Workspaces[0]
	if ws.ID == "" {
		t.Error("workspace id not backfilled")
	}
	ch := ws.Channels[0]
	if ch.ID == "" {
		t.Error("channel id not backfilled")
	}
	msg := ch.Messages[0]
	if msg.ID == "" {
		t.Error("message id not backfilled")
	}
	if msg.Reactions == nil {
		t.Error("reactions slice left nil")
	}
	reply := msg.Replies[0]
	if reply.ID == "" {
		t.Error("reply id not backfilled")
	}
	if reply.Replies == nil || reply.Reactions == nil {
		t.Error("nested reply slices left nil")
	}
}

func TestNormalize_NilCollections(t *testing.T) {
	doc := &Document{}
	doc.Normalize()
	if doc.Workspaces == nil {
		t.Error("workspaces slice left nil")
	}

	doc = &Document{Workspaces: []*Workspace{{Name: "w"}}}
	doc.Normalize()
	if doc.Workspaces[0].Channels == nil {
		t.Error("channels slice left nil")
	}
}

func TestClone_Detached(t *testing.T) {
	original := &Channel{
		ID:   "ch1",
		Name: "general",
		Messages: []*Message{
			{
				ID:        "m1",
				Text:      "root",
				Reactions: []ReactionGroup{{Emoji: "👍", Users: []string{"u1"}}},
				Replies: []*Message{
					{ID: "r1", Text: "leaf", Replies: []*Message{}, Reactions: []ReactionGroup{}},
				},
			},
		},
	}

	clone := original.Clone()

	clone.Messages[0].Text = "changed"
	clone.Messages[0].Replies[0].Text = "changed too"
	clone.Messages[0].Reactions[0].Users[0] = "someone-else"

	if original.Messages[0].Text != "root" {
		t.Error("clone shares top-level message with original")
	}
	if original.Messages[0].Replies[0].Text != "leaf" {
		t.Error("clone shares reply nodes with original")
	}
	if original.Messages[0].Reactions[0].Users[0] != "u1" {
		t.Error("clone shares reaction users with original")
	}
}

func TestClone_Nil(t *testing.T) {
	var ch *Channel
	if ch.Clone() != nil {
		t.Error("Clone() of nil channel != nil")
	}
}

func TestDocumentLookups(t *testing.T) {
	doc := &Document{
		Workspaces: []*Workspace{
			{ID: "ws1", Channels: []*Channel{{ID: "ch1"}}},
		},
	}

	if doc.Workspace("ws1") == nil {
		t.Error("Workspace(ws1) = nil")
	}
	if doc.Workspace("ghost") != nil {
		t.Error("Workspace(ghost) != nil")
	}
	if doc.Workspaces[0].Channel("ch1") == nil {
		t.Error("Channel(ch1) = nil")
	}
	if doc.Workspaces[0].Channel("ghost") != nil {
		t.Error("Channel(ghost) != nil")
	}
}
