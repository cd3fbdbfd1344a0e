package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/example/workspace-chat/domain/chat"
	"github.com/example/workspace-chat/events"
)

// memStore is an in-memory document store fake.
type memStore struct {
	doc     *domain.Document
	saves   int
	loadErr error
	saveErr error
}

func (s *memStore) Load(_ context.Context) (*domain.Document, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.doc, nil
}

func (s *memStore) Save(_ context.Context, doc *domain.Document) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.doc = doc
	s.saves++
	return nil
}

// recordingPublisher collects every published event for inspection.
type recordingPublisher struct {
	sent      []events.MessageSentEvent
	changed   []events.MessageChangedEvent
	replies   []events.ReplyChangedEvent
	reactions []events.ReactionUpdatedEvent
	topology  []events.TopologyChangedEvent
}

func (p *recordingPublisher) MessageSent(ev events.MessageSentEvent) {
	p.sent = append(p.sent, ev)
}

func (p *recordingPublisher) MessageChanged(ev events.MessageChangedEvent) {
	p.changed = append(p.changed, ev)
}

func (p *recordingPublisher) ReplyChanged(ev events.ReplyChangedEvent) {
	p.replies = append(p.replies, ev)
}

func (p *recordingPublisher) ReactionUpdated(ev events.ReactionUpdatedEvent) {
	p.reactions = append(p.reactions, ev)
}

func (p *recordingPublisher) TopologyChanged(ev events.TopologyChangedEvent) {
	p.topology = append(p.topology, ev)
}

func (p *recordingPublisher) total() int {
	return len(p.sent) + len(p.changed) + len(p.replies) + len(p.reactions) + len(p.topology)
}

func testDocument() *domain.Document {
	return &domain.Document{
		Workspaces: []*domain.Workspace{
			{
				ID:        "ws1",
				Name:      "Engineering",
				CreatedBy: "alice",
				Channels: []*domain.Channel{
					{
						ID:       "ch1",
						Name:     "general",
						Messages: []*domain.Message{},
					},
					{
						ID:   "ch2",
						Name: "random",
						Messages: []*domain.Message{
							newTestMessage("m1", "alice", "hello",
								newTestMessage("r1", "bob", "hi back"),
							),
							newTestMessage("m2", "bob", "second"),
						},
					},
				},
			},
			{
				ID:       "ws2",
				Name:     "Design",
				Channels: []*domain.Channel{{ID: "ch3", Name: "general", Messages: []*domain.Message{}}},
			},
		},
	}
}

func newTestCoordinator() (*Coordinator, *memStore, *recordingPublisher) {
	store := &memStore{doc: testDocument()}
	pub := &recordingPublisher{}
	c := NewCoordinator(store, pub)
	c.now = func() time.Time { return time.Date(2025, 6, 1, 9, 15, 0, 0, time.UTC) }
	return c, store, pub
}

func TestSendMessage(t *testing.T) {
	c, store, pub := newTestCoordinator()

	msg, err := c.SendMessage(context.Background(), SendMessageInput{
		WorkspaceID: "ws1",
		ChannelID:   "ch1",
		Text:        "first post",
		Username:    "alice",
		UserID:      "alice-id",
		AvatarColor: "#ff0000",
	})
	if err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
	if msg == nil {
		t.Fatal("SendMessage() = nil, want message")
	}
	if msg.ID == "" {
		t.Error("message id not assigned")
	}
	if msg.Time != "09:15" {
		t.Errorf("Time = %q, want %q", msg.Time, "09:15")
	}
	if msg.Replies == nil || msg.Reactions == nil {
		t.Error("Replies/Reactions not initialized")
	}

	if store.saves != 1 {
		t.Errorf("saves = %d, want 1", store.saves)
	}
	if len(pub.sent) != 1 {
		t.Fatalf("sent events = %d, want 1", len(pub.sent))
	}
	if pub.sent[0].ChannelID != "ch1" || pub.sent[0].Message != msg {
		t.Errorf("unexpected event: %+v", pub.sent[0])
	}

	ch := store.doc.Workspace("ws1").Channel("ch1")
	if len(ch.Messages) != 1 || ch.Messages[0] != msg {
		t.Error("message not appended to channel")
	}
}

func TestSendMessage_SilentAbort(t *testing.T) {
	tests := []struct {
		name        string
		workspaceID string
		channelID   string
	}{
		{name: "unknown workspace", workspaceID: "ghost", channelID: "ch1"},
		{name: "unknown channel", workspaceID: "ws1", channelID: "ghost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, store, pub := newTestCoordinator()
			msg, err := c.SendMessage(context.Background(), SendMessageInput{
				WorkspaceID: tt.workspaceID,
				ChannelID:   tt.channelID,
				Text:        "lost",
				Username:    "alice",
			})
			if err != nil {
				t.Fatalf("SendMessage() error: %v", err)
			}
			if msg != nil {
				t.Errorf("SendMessage() = %v, want nil", msg)
			}
			if store.saves != 0 {
				t.Error("document persisted despite abort")
			}
			if pub.total() != 0 {
				t.Error("events published despite abort")
			}
		})
	}
}

func TestEditMessage(t *testing.T) {
	c, store, pub := newTestCoordinator()

	err := c.EditMessage(context.Background(), "ws1", "ch2", "m1", "edited", "alice")
	if err != nil {
		t.Fatalf("EditMessage() error: %v", err)
	}

	msg := store.doc.Workspace("ws1").Channel("ch2").Messages[0]
	if msg.Text != "edited" {
		t.Errorf("Text = %q, want %q", msg.Text, "edited")
	}
	if msg.Time != "09:15" {
		t.Errorf("Time = %q, want refreshed %q", msg.Time, "09:15")
	}

	if len(pub.changed) != 1 {
		t.Fatalf("changed events = %d, want 1", len(pub.changed))
	}
	ev := pub.changed[0]
	if ev.Action != events.ActionUpdated || ev.MessageID != "m1" || ev.NewText != "edited" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestEditMessage_SenderMismatch(t *testing.T) {
	c, store, pub := newTestCoordinator()

	if err := c.EditMessage(context.Background(), "ws1", "ch2", "m1", "hijack", "mallory"); err != nil {
		t.Fatalf("EditMessage() error: %v", err)
	}

	if got := store.doc.Workspace("ws1").Channel("ch2").Messages[0].Text; got != "hello" {
		t.Errorf("Text = %q, want untouched %q", got, "hello")
	}
	if store.saves != 0 {
		t.Error("document persisted despite mismatch")
	}
	if pub.total() != 0 {
		t.Error("events published despite mismatch")
	}
}

func TestEditMessage_IgnoresReplies(t *testing.T) {
	c, store, pub := newTestCoordinator()

	// r1 is a reply node; the top-level edit path must not reach it.
	if err := c.EditMessage(context.Background(), "ws1", "ch2", "r1", "nope", "bob"); err != nil {
		t.Fatalf("EditMessage() error: %v", err)
	}
	if store.saves != 0 || pub.total() != 0 {
		t.Error("top-level edit touched a reply node")
	}
}

func TestDeleteMessage(t *testing.T) {
	c, store, pub := newTestCoordinator()

	if err := c.DeleteMessage(context.Background(), "ws1", "ch2", "m1", "alice"); err != nil {
		t.Fatalf("DeleteMessage() error: %v", err)
	}

	msgs := store.doc.Workspace("ws1").Channel("ch2").Messages
	if len(msgs) != 1 || msgs[0].ID != "m2" {
		t.Errorf("remaining messages = %v, want [m2]", msgs)
	}
	if len(pub.changed) != 1 || pub.changed[0].Action != events.ActionDeleted {
		t.Errorf("unexpected events: %+v", pub.changed)
	}
}

func TestDeleteMessage_SenderMismatch(t *testing.T) {
	c, store, pub := newTestCoordinator()

	if err := c.DeleteMessage(context.Background(), "ws1", "ch2", "m1", "bob"); err != nil {
		t.Fatalf("DeleteMessage() error: %v", err)
	}
	if len(store.doc.Workspace("ws1").Channel("ch2").Messages) != 2 {
		t.Error("message deleted despite sender mismatch")
	}
	if pub.total() != 0 {
		t.Error("events published despite mismatch")
	}
}

func TestAddReply_NestedParent(t *testing.T) {
	c, store, pub := newTestCoordinator()

	reply, err := c.AddReply(context.Background(), "ws1", "ch2", "r1", ReplyInput{
		Text:     "nested answer",
		Username: "carol",
		UserID:   "carol-id",
	})
	if err != nil {
		t.Fatalf("AddReply() error: %v", err)
	}
	if reply == nil {
		t.Fatal("AddReply() = nil, want reply")
	}

	parent := FindReply(store.doc.Workspace("ws1").Channel("ch2").Messages, "r1")
	if len(parent.Replies) != 1 || parent.Replies[0].ID != reply.ID {
		t.Error("reply not attached under nested parent")
	}

	if len(pub.replies) != 1 {
		t.Fatalf("reply events = %d, want 1", len(pub.replies))
	}
	ev := pub.replies[0]
	if ev.Action != events.ActionAdded || ev.ParentID != "r1" || ev.Reply != reply {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestAddReply_UnknownParent(t *testing.T) {
	c, store, pub := newTestCoordinator()

	reply, err := c.AddReply(context.Background(), "ws1", "ch2", "ghost", ReplyInput{Text: "lost", Username: "carol"})
	if err != nil {
		t.Fatalf("AddReply() error: %v", err)
	}
	if reply != nil {
		t.Errorf("AddReply() = %v, want nil", reply)
	}
	if store.saves != 0 || pub.total() != 0 {
		t.Error("abort was not silent")
	}
}

func TestDeleteReply_ReportsParent(t *testing.T) {
	c, store, pub := newTestCoordinator()

	// Build a depth 2 reply under r1, then delete it.
	nested, err := c.AddReply(context.Background(), "ws1", "ch2", "r1", ReplyInput{Text: "deep", Username: "carol"})
	if err != nil || nested == nil {
		t.Fatalf("AddReply() = %v, %v", nested, err)
	}

	if err := c.DeleteReply(context.Background(), "ws1", "ch2", nested.ID, "carol"); err != nil {
		t.Fatalf("DeleteReply() error: %v", err)
	}

	ev := pub.replies[len(pub.replies)-1]
	if ev.Action != events.ActionDeleted {
		t.Errorf("Action = %q, want %q", ev.Action, events.ActionDeleted)
	}
	if ev.ParentID != "r1" {
		t.Errorf("ParentID = %q, want enclosing parent %q", ev.ParentID, "r1")
	}
	if ev.ReplyID != nested.ID {
		t.Errorf("ReplyID = %q, want %q", ev.ReplyID, nested.ID)
	}
	if FindReply(store.doc.Workspace("ws1").Channel("ch2").Messages, nested.ID) != nil {
		t.Error("deleted reply still present")
	}
}

func TestUpdateReply_SenderMismatch(t *testing.T) {
	c, store, pub := newTestCoordinator()

	if err := c.UpdateReply(context.Background(), "ws1", "ch2", "r1", "hijack", "mallory"); err != nil {
		t.Fatalf("UpdateReply() error: %v", err)
	}
	reply := FindReply(store.doc.Workspace("ws1").Channel("ch2").Messages, "r1")
	if reply.Text != "hi back" {
		t.Errorf("Text = %q, want untouched %q", reply.Text, "hi back")
	}
	if pub.total() != 0 {
		t.Error("events published despite mismatch")
	}
}

func TestToggleReactionCycle(t *testing.T) {
	c, store, pub := newTestCoordinator()
	ctx := context.Background()

	if err := c.ToggleReaction(ctx, "ws1", "ch2", "m2", "u1", "👍"); err != nil {
		t.Fatalf("ToggleReaction() error: %v", err)
	}
	if err := c.ToggleReaction(ctx, "ws1", "ch2", "m2", "u1", "👍"); err != nil {
		t.Fatalf("ToggleReaction() error: %v", err)
	}

	if len(pub.reactions) != 2 {
		t.Fatalf("reaction events = %d, want 2", len(pub.reactions))
	}
	if got := len(pub.reactions[0].Reactions); got != 1 {
		t.Errorf("first event groups = %d, want 1", got)
	}
	// The second event carries the full post-toggle collection, here empty.
	if got := len(pub.reactions[1].Reactions); got != 0 {
		t.Errorf("second event groups = %d, want 0", got)
	}
	if store.saves != 2 {
		t.Errorf("saves = %d, want 2", store.saves)
	}
}

func TestCreateWorkspace(t *testing.T) {
	c, store, pub := newTestCoordinator()

	ws, err := c.CreateWorkspace(context.Background(), "  Marketing  ", "alice", "alice-id")
	if err != nil {
		t.Fatalf("CreateWorkspace() error: %v", err)
	}
	if ws.Name != "Marketing" {
		t.Errorf("Name = %q, want trimmed %q", ws.Name, "Marketing")
	}
	if len(ws.Channels) != 1 || ws.Channels[0].Name != "general" {
		t.Errorf("Channels = %v, want a single default general channel", ws.Channels)
	}
	if len(store.doc.Workspaces) != 3 {
		t.Errorf("workspaces = %d, want 3", len(store.doc.Workspaces))
	}

	if len(pub.topology) != 1 {
		t.Fatalf("topology events = %d, want 1", len(pub.topology))
	}
	ev := pub.topology[0]
	if ev.Scope != events.ScopeWorkspace || ev.Action != events.ActionCreated || ev.Workspace != ws {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestCreateWorkspace_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "empty", input: "   ", wantErr: ErrNameEmpty},
		{name: "exact duplicate", input: "Engineering", wantErr: ErrNameTaken},
		{name: "case-insensitive duplicate", input: "engineering", wantErr: ErrNameTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, store, pub := newTestCoordinator()
			_, err := c.CreateWorkspace(context.Background(), tt.input, "alice", "alice-id")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateWorkspace() error = %v, want %v", err, tt.wantErr)
			}
			if store.saves != 0 || pub.total() != 0 {
				t.Error("rejected create left side effects")
			}
		})
	}
}

func TestRenameWorkspace_SelfRenameAllowed(t *testing.T) {
	c, _, pub := newTestCoordinator()

	// Renaming a workspace to its own name (different case) is not a
	// collision with itself.
	if err := c.RenameWorkspace(context.Background(), "ws1", "ENGINEERING", "alice"); err != nil {
		t.Fatalf("RenameWorkspace() error: %v", err)
	}
	if len(pub.topology) != 1 || pub.topology[0].NewName != "ENGINEERING" {
		t.Errorf("unexpected events: %+v", pub.topology)
	}
}

func TestDeleteWorkspace_LastWorkspaceRejected(t *testing.T) {
	c, store, pub := newTestCoordinator()
	ctx := context.Background()

	if err := c.DeleteWorkspace(ctx, "ws2", "alice"); err != nil {
		t.Fatalf("DeleteWorkspace() error: %v", err)
	}
	if len(store.doc.Workspaces) != 1 {
		t.Fatalf("workspaces = %d, want 1", len(store.doc.Workspaces))
	}

	err := c.DeleteWorkspace(ctx, "ws1", "alice")
	if !errors.Is(err, ErrLastWorkspace) {
		t.Fatalf("DeleteWorkspace() error = %v, want ErrLastWorkspace", err)
	}
	if len(store.doc.Workspaces) != 1 {
		t.Error("last workspace was deleted")
	}
	if len(pub.topology) != 1 {
		t.Errorf("topology events = %d, want only the first delete", len(pub.topology))
	}
}

func TestCreateChannel_DuplicateName(t *testing.T) {
	c, _, _ := newTestCoordinator()

	_, err := c.CreateChannel(context.Background(), "ws1", "General", "alice", "alice-id")
	if !errors.Is(err, ErrNameTaken) {
		t.Fatalf("CreateChannel() error = %v, want ErrNameTaken", err)
	}
}

func TestDeleteChannel_LastChannelRejected(t *testing.T) {
	c, store, _ := newTestCoordinator()
	ctx := context.Background()

	if err := c.DeleteChannel(ctx, "ws1", "ch2", "alice"); err != nil {
		t.Fatalf("DeleteChannel() error: %v", err)
	}

	err := c.DeleteChannel(ctx, "ws1", "ch1", "alice")
	if !errors.Is(err, ErrLastChannel) {
		t.Fatalf("DeleteChannel() error = %v, want ErrLastChannel", err)
	}
	if len(store.doc.Workspace("ws1").Channels) != 1 {
		t.Error("last channel was deleted")
	}
}

func TestChannelSnapshot_Detached(t *testing.T) {
	c, store, _ := newTestCoordinator()

	snap, err := c.ChannelSnapshot(context.Background(), "ws1", "ch2")
	if err != nil {
		t.Fatalf("ChannelSnapshot() error: %v", err)
	}
	if snap == nil {
		t.Fatal("ChannelSnapshot() = nil, want channel")
	}

	// Mutating the snapshot must not leak into the stored document.
	snap.Messages[0].Text = "mutated"
	if got := store.doc.Workspace("ws1").Channel("ch2").Messages[0].Text; got != "hello" {
		t.Errorf("stored text = %q, want %q", got, "hello")
	}
}

func TestChannelSnapshot_Missing(t *testing.T) {
	c, _, _ := newTestCoordinator()
	ctx := context.Background()

	snap, err := c.ChannelSnapshot(ctx, "ghost", "ch1")
	if err != nil || snap != nil {
		t.Errorf("ChannelSnapshot(unknown workspace) = %v, %v; want nil, nil", snap, err)
	}

	snap, err = c.ChannelSnapshot(ctx, "ws1", "ghost")
	if err != nil || snap != nil {
		t.Errorf("ChannelSnapshot(unknown channel) = %v, %v; want nil, nil", snap, err)
	}
}

func TestMutation_LoadError(t *testing.T) {
	store := &memStore{loadErr: errors.New("disk gone")}
	pub := &recordingPublisher{}
	c := NewCoordinator(store, pub)

	if _, err := c.SendMessage(context.Background(), SendMessageInput{WorkspaceID: "ws1", ChannelID: "ch1"}); err == nil {
		t.Error("SendMessage() error = nil, want load failure")
	}
	if pub.total() != 0 {
		t.Error("events published despite load failure")
	}
}

func TestMutation_SaveErrorSuppressesEvents(t *testing.T) {
	store := &memStore{doc: testDocument(), saveErr: errors.New("disk full")}
	pub := &recordingPublisher{}
	c := NewCoordinator(store, pub)

	_, err := c.SendMessage(context.Background(), SendMessageInput{
		WorkspaceID: "ws1",
		ChannelID:   "ch1",
		Text:        "hi",
		Username:    "alice",
	})
	if err == nil {
		t.Error("SendMessage() error = nil, want save failure")
	}
	if pub.total() != 0 {
		t.Error("event published before persistence succeeded")
	}
}
