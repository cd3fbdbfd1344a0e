package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/example/workspace-chat/domain/chat"
	"github.com/example/workspace-chat/events"
)

// Validation errors. These are the only failures surfaced to the requester;
// unknown ids and ownership mismatches abort silently by policy.
var (
	ErrNameEmpty     = errors.New("name cannot be empty")
	ErrNameTaken     = errors.New("name is already taken")
	ErrLastWorkspace = errors.New("cannot delete the last workspace")
	ErrLastChannel   = errors.New("cannot delete the last channel")
)

// DocumentStore is the document store adapter contract: whole-collection
// load and save, nothing finer.
type DocumentStore interface {
	Load(ctx context.Context) (*domain.Document, error)
	Save(ctx context.Context, doc *domain.Document) error
}

// EventPublisher receives the delta of each successful mutation cycle, after
// the document has been persisted.
type EventPublisher interface {
	MessageSent(ev events.MessageSentEvent)
	MessageChanged(ev events.MessageChangedEvent)
	ReplyChanged(ev events.ReplyChangedEvent)
	ReactionUpdated(ev events.ReactionUpdatedEvent)
	TopologyChanged(ev events.TopologyChangedEvent)
}

// Coordinator runs every mutation as reload, resolve, apply one tree or
// collection operation, persist, publish. Each cycle reloads the full
// document so it sees the latest persisted state; overlapping cycles are
// last-write-wins on the whole document (see DESIGN.md).
type Coordinator struct {
	store  DocumentStore
	events EventPublisher
	now    func() time.Time
}

// NewCoordinator creates a coordinator over the given store and publisher.
func NewCoordinator(store DocumentStore, pub EventPublisher) *Coordinator {
	return &Coordinator{
		store:  store,
		events: pub,
		now:    time.Now,
	}
}

// Workspaces returns the current workspace collection.
func (c *Coordinator) Workspaces(ctx context.Context) ([]*domain.Workspace, error) {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Workspaces, nil
}

// ChannelSnapshot returns a detached copy of a channel's current state, or
// nil if the workspace or channel no longer exists.
func (c *Coordinator) ChannelSnapshot(ctx context.Context, workspaceID, channelID string) (*domain.Channel, error) {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	ws := doc.Workspace(workspaceID)
	if ws == nil {
		return nil, nil
	}
	return ws.Channel(channelID).Clone(), nil
}

// SendMessageInput carries one inbound chat message.
type SendMessageInput struct {
	WorkspaceID string
	ChannelID   string
	Text        string
	Username    string
	UserID      string
	AvatarColor string
	FileURL     string
	FileName    string
	IsAI        bool
}

// SendMessage appends a new top-level message to a channel. Unknown
// workspace or channel ids abort silently.
func (c *Coordinator) SendMessage(ctx context.Context, in SendMessageInput) (*domain.Message, error) {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	ws := doc.Workspace(in.WorkspaceID)
	if ws == nil {
		return nil, nil
	}
	ch := ws.Channel(in.ChannelID)
	if ch == nil {
		return nil, nil
	}

	msg := &domain.Message{
		ID:          uuid.New().String(),
		Text:        in.Text,
		Sender:      in.Username,
		SenderID:    in.UserID,
		Time:        domain.ClockTime(c.now()),
		AvatarColor: in.AvatarColor,
		FileURL:     in.FileURL,
		FileName:    in.FileName,
		IsAI:        in.IsAI,
		Replies:     []*domain.Message{},
		Reactions:   []domain.ReactionGroup{},
	}
	ch.Messages = append(ch.Messages, msg)

	if err := c.store.Save(ctx, doc); err != nil {
		return nil, err
	}
	c.events.MessageSent(events.MessageSentEvent{
		WorkspaceID: in.WorkspaceID,
		ChannelID:   in.ChannelID,
		Message:     msg,
	})
	return msg, nil
}

// EditMessage updates the text of a top-level message. Only the original
// sender may edit; any mismatch aborts silently.
func (c *Coordinator) EditMessage(ctx context.Context, workspaceID, channelID, messageID, newText, username string) error {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	ch := resolveChannel(doc, workspaceID, channelID)
	if ch == nil {
		return nil
	}
	msg := topLevelMessage(ch, messageID)
	if msg == nil || msg.Sender != username {
		return nil
	}

	msg.Text = newText
	msg.Time = domain.ClockTime(c.now())

	if err := c.store.Save(ctx, doc); err != nil {
		return err
	}
	c.events.MessageChanged(events.MessageChangedEvent{
		Action:      events.ActionUpdated,
		WorkspaceID: workspaceID,
		ChannelID:   channelID,
		MessageID:   messageID,
		NewText:     msg.Text,
		Time:        msg.Time,
	})
	return nil
}

// DeleteMessage removes a top-level message, preserving the order of the
// remaining messages. Only the original sender may delete.
func (c *Coordinator) DeleteMessage(ctx context.Context, workspaceID, channelID, messageID, username string) error {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	ch := resolveChannel(doc, workspaceID, channelID)
	if ch == nil {
		return nil
	}

	idx := -1
	for i, msg := range ch.Messages {
		if msg.ID == messageID {
			if msg.Sender != username {
				return nil
			}
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	ch.Messages = append(ch.Messages[:idx], ch.Messages[idx+1:]...)

	if err := c.store.Save(ctx, doc); err != nil {
		return err
	}
	c.events.MessageChanged(events.MessageChangedEvent{
		Action:      events.ActionDeleted,
		WorkspaceID: workspaceID,
		ChannelID:   channelID,
		MessageID:   messageID,
	})
	return nil
}

// ReplyInput carries one inbound reply.
type ReplyInput struct {
	Text        string
	Username    string
	UserID      string
	AvatarColor string
	FileURL     string
	FileName    string
	IsAI        bool
}

// AddReply attaches a reply to the parent node carrying parentID, at any
// depth of the channel's tree.
func (c *Coordinator) AddReply(ctx context.Context, workspaceID, channelID, parentID string, in ReplyInput) (*domain.Message, error) {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	ch := resolveChannel(doc, workspaceID, channelID)
	if ch == nil {
		return nil, nil
	}

	reply := &domain.Message{
		ID:          uuid.New().String(),
		Text:        in.Text,
		Sender:      in.Username,
		SenderID:    in.UserID,
		Time:        domain.ClockTime(c.now()),
		AvatarColor: in.AvatarColor,
		FileURL:     in.FileURL,
		FileName:    in.FileName,
		IsAI:        in.IsAI,
		Replies:     []*domain.Message{},
		Reactions:   []domain.ReactionGroup{},
	}
	if !AttachReply(ch.Messages, parentID, reply) {
		return nil, nil
	}

	if err := c.store.Save(ctx, doc); err != nil {
		return nil, err
	}
	c.events.ReplyChanged(events.ReplyChangedEvent{
		Action:      events.ActionAdded,
		WorkspaceID: workspaceID,
		ChannelID:   channelID,
		ParentID:    parentID,
		Reply:       reply,
	})
	return reply, nil
}

// UpdateReply edits a reply node's text in place. Only the original sender
// may edit.
func (c *Coordinator) UpdateReply(ctx context.Context, workspaceID, channelID, replyID, newText, username string) error {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	ch := resolveChannel(doc, workspaceID, channelID)
	if ch == nil {
		return nil
	}
	reply := FindReply(ch.Messages, replyID)
	if reply == nil || reply.Sender != username {
		return nil
	}

	EditReply(ch.Messages, replyID, newText, c.now())

	if err := c.store.Save(ctx, doc); err != nil {
		return err
	}
	c.events.ReplyChanged(events.ReplyChangedEvent{
		Action:      events.ActionUpdated,
		WorkspaceID: workspaceID,
		ChannelID:   channelID,
		ReplyID:     replyID,
		NewText:     reply.Text,
		Time:        reply.Time,
	})
	return nil
}

// DeleteReply removes a reply node at any depth. Only the original sender
// may delete.
func (c *Coordinator) DeleteReply(ctx context.Context, workspaceID, channelID, replyID, username string) error {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	ch := resolveChannel(doc, workspaceID, channelID)
	if ch == nil {
		return nil
	}
	reply := FindReply(ch.Messages, replyID)
	if reply == nil || reply.Sender != username {
		return nil
	}

	parentID, ok := DeleteReply(ch.Messages, replyID)
	if !ok {
		return nil
	}

	if err := c.store.Save(ctx, doc); err != nil {
		return err
	}
	c.events.ReplyChanged(events.ReplyChangedEvent{
		Action:      events.ActionDeleted,
		WorkspaceID: workspaceID,
		ChannelID:   channelID,
		ParentID:    parentID,
		ReplyID:     replyID,
	})
	return nil
}

// ToggleReaction applies the reaction state machine to a message at any
// depth and broadcasts the resulting reaction collection.
func (c *Coordinator) ToggleReaction(ctx context.Context, workspaceID, channelID, messageID, userID, emoji string) error {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	ch := resolveChannel(doc, workspaceID, channelID)
	if ch == nil {
		return nil
	}
	reactions, ok := ToggleReaction(ch.Messages, messageID, userID, emoji)
	if !ok {
		return nil
	}

	if err := c.store.Save(ctx, doc); err != nil {
		return err
	}
	c.events.ReactionUpdated(events.ReactionUpdatedEvent{
		WorkspaceID: workspaceID,
		ChannelID:   channelID,
		MessageID:   messageID,
		Reactions:   reactions,
	})
	return nil
}

// CreateWorkspace creates a workspace with a default "general" channel.
// Names are trimmed and must be unique case-insensitively.
func (c *Coordinator) CreateWorkspace(ctx context.Context, name, createdBy, userID string) (*domain.Workspace, error) {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameEmpty
	}
	if workspaceNameTaken(doc, name, "") {
		return nil, ErrNameTaken
	}

	now := c.now()
	ws := &domain.Workspace{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: now,
		Channels: []*domain.Channel{
			{
				ID:        uuid.New().String(),
				Name:      "general",
				CreatedBy: createdBy,
				CreatedAt: now,
				Messages:  []*domain.Message{},
			},
		},
	}
	doc.Workspaces = append(doc.Workspaces, ws)

	if err := c.store.Save(ctx, doc); err != nil {
		return nil, err
	}
	c.events.TopologyChanged(events.TopologyChangedEvent{
		Scope:       events.ScopeWorkspace,
		Action:      events.ActionCreated,
		WorkspaceID: ws.ID,
		Workspace:   ws,
	})
	return ws, nil
}

// RenameWorkspace renames a workspace. Unknown ids abort silently; empty or
// colliding names surface a validation error.
func (c *Coordinator) RenameWorkspace(ctx context.Context, workspaceID, newName, username string) error {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	ws := doc.Workspace(workspaceID)
	if ws == nil {
		return nil
	}

	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrNameEmpty
	}
	if workspaceNameTaken(doc, newName, workspaceID) {
		return ErrNameTaken
	}
	ws.Name = newName

	if err := c.store.Save(ctx, doc); err != nil {
		return err
	}
	c.events.TopologyChanged(events.TopologyChangedEvent{
		Scope:       events.ScopeWorkspace,
		Action:      events.ActionRenamed,
		WorkspaceID: workspaceID,
		NewName:     newName,
	})
	return nil
}

// DeleteWorkspace removes a workspace. The last workspace in the collection
// may not be deleted.
func (c *Coordinator) DeleteWorkspace(ctx context.Context, workspaceID, username string) error {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	ws := doc.Workspace(workspaceID)
	if ws == nil {
		return nil
	}
	if len(doc.Workspaces) <= 1 {
		return ErrLastWorkspace
	}

	for i, w := range doc.Workspaces {
		if w.ID == workspaceID {
			doc.Workspaces = append(doc.Workspaces[:i], doc.Workspaces[i+1:]...)
			break
		}
	}

	if err := c.store.Save(ctx, doc); err != nil {
		return err
	}
	c.events.TopologyChanged(events.TopologyChangedEvent{
		Scope:       events.ScopeWorkspace,
		Action:      events.ActionDeleted,
		WorkspaceID: workspaceID,
	})
	return nil
}

// CreateChannel adds a channel to a workspace. Channel names are unique
// case-insensitively within their workspace.
func (c *Coordinator) CreateChannel(ctx context.Context, workspaceID, name, createdBy, userID string) (*domain.Channel, error) {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	ws := doc.Workspace(workspaceID)
	if ws == nil {
		return nil, nil
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameEmpty
	}
	if channelNameTaken(ws, name, "") {
		return nil, ErrNameTaken
	}

	ch := &domain.Channel{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: c.now(),
		Messages:  []*domain.Message{},
	}
	ws.Channels = append(ws.Channels, ch)

	if err := c.store.Save(ctx, doc); err != nil {
		return nil, err
	}
	c.events.TopologyChanged(events.TopologyChangedEvent{
		Scope:       events.ScopeChannel,
		Action:      events.ActionCreated,
		WorkspaceID: workspaceID,
		ChannelID:   ch.ID,
		Channel:     ch,
	})
	return ch, nil
}

// RenameChannel renames a channel within its workspace.
func (c *Coordinator) RenameChannel(ctx context.Context, workspaceID, channelID, newName, username string) error {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	ws := doc.Workspace(workspaceID)
	if ws == nil {
		return nil
	}
	ch := ws.Channel(channelID)
	if ch == nil {
		return nil
	}

	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrNameEmpty
	}
	if channelNameTaken(ws, newName, channelID) {
		return ErrNameTaken
	}
	ch.Name = newName

	if err := c.store.Save(ctx, doc); err != nil {
		return err
	}
	c.events.TopologyChanged(events.TopologyChangedEvent{
		Scope:       events.ScopeChannel,
		Action:      events.ActionRenamed,
		WorkspaceID: workspaceID,
		ChannelID:   channelID,
		NewName:     newName,
	})
	return nil
}

// DeleteChannel removes a channel. A workspace must always retain at least
// one channel.
func (c *Coordinator) DeleteChannel(ctx context.Context, workspaceID, channelID, username string) error {
	doc, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	ws := doc.Workspace(workspaceID)
	if ws == nil {
		return nil
	}
	ch := ws.Channel(channelID)
	if ch == nil {
		return nil
	}
	if len(ws.Channels) <= 1 {
		return ErrLastChannel
	}

	for i, existing := range ws.Channels {
		if existing.ID == channelID {
			ws.Channels = append(ws.Channels[:i], ws.Channels[i+1:]...)
			break
		}
	}

	if err := c.store.Save(ctx, doc); err != nil {
		return err
	}
	c.events.TopologyChanged(events.TopologyChangedEvent{
		Scope:       events.ScopeChannel,
		Action:      events.ActionDeleted,
		WorkspaceID: workspaceID,
		ChannelID:   channelID,
	})
	return nil
}

func resolveChannel(doc *domain.Document, workspaceID, channelID string) *domain.Channel {
	ws := doc.Workspace(workspaceID)
	if ws == nil {
		return nil
	}
	return ws.Channel(channelID)
}

func topLevelMessage(ch *domain.Channel, messageID string) *domain.Message {
	for _, msg := range ch.Messages {
		if msg.ID == messageID {
			return msg
		}
	}
	return nil
}

func workspaceNameTaken(doc *domain.Document, name, excludeID string) bool {
	for _, ws := range doc.Workspaces {
		if ws.ID != excludeID && strings.EqualFold(ws.Name, name) {
			return true
		}
	}
	return false
}

func channelNameTaken(ws *domain.Workspace, name, excludeID string) bool {
	for _, ch := range ws.Channels {
		if ch.ID != excludeID && strings.EqualFold(ch.Name, name) {
			return true
		}
	}
	return false
}
