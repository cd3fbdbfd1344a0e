package chat

import (
	"testing"
	"time"

	domain "github.com/example/workspace-chat/domain/chat"
)

func newTestMessage(id, sender, text string, replies ...*domain.Message) *domain.Message {
	if replies == nil {
		replies = []*domain.Message{}
	}
	return &domain.Message{
		ID:        id,
		Text:      text,
		Sender:    sender,
		SenderID:  sender + "-id",
		Time:      "10:00",
		Replies:   replies,
		Reactions: []domain.ReactionGroup{},
	}
}

// deepTree builds: m1(r1(r1a(r1a1)), r2), m2(r3)
func deepTree() []*domain.Message {
	return []*domain.Message{
		newTestMessage("m1", "alice", "first",
			newTestMessage("r1", "bob", "reply one",
				newTestMessage("r1a", "carol", "nested",
					newTestMessage("r1a1", "dave", "very nested"),
				),
			),
			newTestMessage("r2", "alice", "reply two"),
		),
		newTestMessage("m2", "bob", "second",
			newTestMessage("r3", "alice", "reply three"),
		),
	}
}

func TestLocate(t *testing.T) {
	tree := deepTree()

	tests := []struct {
		name   string
		id     string
		found  bool
		sender string
	}{
		{name: "top-level message", id: "m2", found: true, sender: "bob"},
		{name: "depth 1 reply", id: "r2", found: true, sender: "alice"},
		{name: "depth 2 reply", id: "r1a", found: true, sender: "carol"},
		{name: "depth 3 reply", id: "r1a1", found: true, sender: "dave"},
		{name: "missing id", id: "nope", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Locate(tree, tt.id)
			if !tt.found {
				if msg != nil {
					t.Fatalf("Locate(%q) = %v, want nil", tt.id, msg)
				}
				return
			}
			if msg == nil {
				t.Fatalf("Locate(%q) = nil, want message", tt.id)
			}
			if msg.Sender != tt.sender {
				t.Errorf("Locate(%q).Sender = %q, want %q", tt.id, msg.Sender, tt.sender)
			}
		})
	}
}

func TestLocate_PreOrder(t *testing.T) {
	// Two nodes could match a subtree search; pre-order must exhaust the
	// first sibling's subtree before visiting the second sibling.
	dup := []*domain.Message{
		newTestMessage("a", "alice", "a",
			newTestMessage("shared", "from-subtree", "inside a"),
		),
		newTestMessage("shared", "from-top", "top-level twin"),
	}

	msg := Locate(dup, "shared")
	if msg == nil {
		t.Fatal("Locate() = nil, want message")
	}
	if msg.Sender != "from-subtree" {
		t.Errorf("Locate() returned %q, want the pre-order first match %q", msg.Sender, "from-subtree")
	}
}

func TestAttachReply(t *testing.T) {
	tests := []struct {
		name     string
		parentID string
		ok       bool
	}{
		{name: "top-level parent", parentID: "m2", ok: true},
		{name: "depth 1 parent", parentID: "r2", ok: true},
		{name: "depth 3 parent", parentID: "r1a1", ok: true},
		{name: "missing parent", parentID: "ghost", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := deepTree()
			reply := newTestMessage("new-reply", "eve", "hello")

			ok := AttachReply(tree, tt.parentID, reply)
			if ok != tt.ok {
				t.Fatalf("AttachReply() = %v, want %v", ok, tt.ok)
			}
			if !tt.ok {
				if Locate(tree, "new-reply") != nil {
					t.Error("reply attached despite missing parent")
				}
				return
			}

			found := Locate(tree, "new-reply")
			if found == nil {
				t.Fatal("Locate() cannot find attached reply")
			}

			parent := Locate(tree, tt.parentID)
			if last := parent.Replies[len(parent.Replies)-1]; last.ID != "new-reply" {
				t.Errorf("reply not appended as trailing entry, got %q", last.ID)
			}
		})
	}
}

func TestAttachReply_PreservesSiblingOrder(t *testing.T) {
	tree := deepTree()
	if !AttachReply(tree, "m1", newTestMessage("r4", "eve", "late")) {
		t.Fatal("AttachReply() failed")
	}

	want := []string{"r1", "r2", "r4"}
	got := tree[0].Replies
	if len(got) != len(want) {
		t.Fatalf("len(replies) = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("replies[%d].ID = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestFindReply_ExcludesTopLevel(t *testing.T) {
	tree := deepTree()

	if FindReply(tree, "m1") != nil {
		t.Error("FindReply() matched a top-level message")
	}
	if FindReply(tree, "r1a1") == nil {
		t.Error("FindReply() missed a nested reply")
	}
}

func TestEditReply(t *testing.T) {
	tree := deepTree()
	now := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)

	reply := EditReply(tree, "r1a", "updated text", now)
	if reply == nil {
		t.Fatal("EditReply() = nil, want updated node")
	}
	if reply.Text != "updated text" {
		t.Errorf("Text = %q, want %q", reply.Text, "updated text")
	}
	if reply.Time != "14:30" {
		t.Errorf("Time = %q, want %q", reply.Time, "14:30")
	}

	if EditReply(tree, "m1", "nope", now) != nil {
		t.Error("EditReply() edited a top-level message")
	}
	if EditReply(tree, "ghost", "nope", now) != nil {
		t.Error("EditReply() edited a missing node")
	}
}

func TestDeleteReply(t *testing.T) {
	tests := []struct {
		name       string
		replyID    string
		ok         bool
		wantParent string
	}{
		{name: "depth 1 reply", replyID: "r2", ok: true, wantParent: "m1"},
		{name: "depth 2 reply", replyID: "r1a", ok: true, wantParent: "r1"},
		{name: "depth 3 reply", replyID: "r1a1", ok: true, wantParent: "r1a"},
		{name: "top-level message is not a reply", replyID: "m1", ok: false},
		{name: "missing id", replyID: "ghost", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := deepTree()
			parentID, ok := DeleteReply(tree, tt.replyID)
			if ok != tt.ok {
				t.Fatalf("DeleteReply() ok = %v, want %v", ok, tt.ok)
			}
			if !tt.ok {
				return
			}
			if parentID != tt.wantParent {
				t.Errorf("parentID = %q, want %q", parentID, tt.wantParent)
			}
			if Locate(tree, tt.replyID) != nil {
				t.Error("deleted reply still locatable")
			}
		})
	}
}

func TestDeleteReply_PreservesSiblingOrder(t *testing.T) {
	tree := []*domain.Message{
		newTestMessage("m", "alice", "root",
			newTestMessage("a", "bob", "a"),
			newTestMessage("b", "bob", "b"),
			newTestMessage("c", "bob", "c"),
		),
	}

	if _, ok := DeleteReply(tree, "b"); !ok {
		t.Fatal("DeleteReply() failed")
	}

	want := []string{"a", "c"}
	for i, id := range want {
		if tree[0].Replies[i].ID != id {
			t.Errorf("replies[%d].ID = %q, want %q", i, tree[0].Replies[i].ID, id)
		}
	}
}

func TestToggleReaction_ToggleLaw(t *testing.T) {
	tree := deepTree()

	// off -> on
	reactions, ok := ToggleReaction(tree, "r1a", "u1", "👍")
	if !ok {
		t.Fatal("ToggleReaction() not found")
	}
	if len(reactions) != 1 || reactions[0].Emoji != "👍" || len(reactions[0].Users) != 1 {
		t.Fatalf("after toggle on: %+v", reactions)
	}

	// on -> off returns to the pre-first-call state
	reactions, ok = ToggleReaction(tree, "r1a", "u1", "👍")
	if !ok {
		t.Fatal("ToggleReaction() not found")
	}
	if len(reactions) != 0 {
		t.Fatalf("after toggle off: %+v, want empty", reactions)
	}
}

func TestToggleReaction_SwitchLaw(t *testing.T) {
	tree := deepTree()

	if _, ok := ToggleReaction(tree, "m1", "u1", "👍"); !ok {
		t.Fatal("first toggle failed")
	}
	reactions, ok := ToggleReaction(tree, "m1", "u1", "🎉")
	if !ok {
		t.Fatal("second toggle failed")
	}

	if len(reactions) != 1 {
		t.Fatalf("groups = %d, want exactly 1 (old emoji pruned)", len(reactions))
	}
	if reactions[0].Emoji != "🎉" {
		t.Errorf("Emoji = %q, want %q", reactions[0].Emoji, "🎉")
	}
	if len(reactions[0].Users) != 1 || reactions[0].Users[0] != "u1" {
		t.Errorf("Users = %v, want [u1]", reactions[0].Users)
	}
}

func TestToggleReaction_SwitchKeepsOtherUsers(t *testing.T) {
	tree := deepTree()

	ToggleReaction(tree, "m1", "u1", "👍")
	ToggleReaction(tree, "m1", "u2", "👍")
	reactions, _ := ToggleReaction(tree, "m1", "u1", "🎉")

	if len(reactions) != 2 {
		t.Fatalf("groups = %d, want 2", len(reactions))
	}
	for _, group := range reactions {
		switch group.Emoji {
		case "👍":
			if len(group.Users) != 1 || group.Users[0] != "u2" {
				t.Errorf("👍 users = %v, want [u2]", group.Users)
			}
		case "🎉":
			if len(group.Users) != 1 || group.Users[0] != "u1" {
				t.Errorf("🎉 users = %v, want [u1]", group.Users)
			}
		default:
			t.Errorf("unexpected group %q", group.Emoji)
		}
	}
}

func TestToggleReaction_NoEmptyGroups(t *testing.T) {
	tree := deepTree()

	sequence := []struct{ user, emoji string }{
		{"u1", "👍"},
		{"u2", "👍"},
		{"u1", "🎉"},
		{"u1", "🎉"},
		{"u2", "👍"},
	}
	for _, step := range sequence {
		reactions, ok := ToggleReaction(tree, "m2", step.user, step.emoji)
		if !ok {
			t.Fatal("ToggleReaction() not found")
		}
		for _, group := range reactions {
			if len(group.Users) == 0 {
				t.Fatalf("empty group %q survived after %v", group.Emoji, step)
			}
		}
	}
}

func TestToggleReaction_MissingMessage(t *testing.T) {
	tree := deepTree()
	if _, ok := ToggleReaction(tree, "ghost", "u1", "👍"); ok {
		t.Error("ToggleReaction() succeeded on a missing message")
	}
}
